package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-enhanced-svg/pkg/importer"
)

func TestParse_Formats(t *testing.T) {
	expected := Default()
	expected.Import.Variant = "processed"
	expected.Import.ScaleFactor = 2.5
	expected.Elevation.Step = 0.25
	expected.Elevation.Target = "SVG_Processed_logo"
	expected.Server.Port = 9000
	expected.Server.Library = "art"

	tests := []struct {
		filename string
		content  string
	}{
		{"config.yaml", `
import:
  variant: processed
  scale_factor: 2.5
elevation:
  target: SVG_Processed_logo
  step: 0.25
server:
  port: 9000
  library: art
`},
		{"config.toml", `
[import]
variant = "processed"
scale_factor = 2.5

[elevation]
target = "SVG_Processed_logo"
step = 0.25

[server]
port = 9000
library = "art"
`},
		{"config.hcl", `
import {
  variant      = "processed"
  scale_factor = 2.5
}

elevation {
  target = "SVG_Processed_logo"
  step   = 0.25
}

server {
  port    = 9000
  library = "art"
}
`},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			cfg, err := Parse(tt.filename, []byte(tt.content))
			require.NoError(t, err)
			if diff := cmp.Diff(expected, cfg); diff != "" {
				t.Errorf("Parse(%s) mismatch (-want +got):\n%s", tt.filename, diff)
			}
			assert.Equal(t, importer.Processed, cfg.Variant())
		})
	}
}

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	for _, name := range []string{"c.yml", "c.toml", "c.hcl"} {
		cfg, err := Parse(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, Default(), cfg, name)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"unknown variant", "c.yaml", "import:\n  variant: fancy\n"},
		{"zero scale", "c.yaml", "import:\n  scale_factor: 0\n"},
		{"bad level", "c.toml", "[logging]\nlevel = \"loud\"\n"},
		{"bad format", "c.toml", "[logging]\nformat = \"xml\"\n"},
		{"bad port", "c.hcl", "server {\n  port = 70000\n}\n"},
		{"bad preprocessor", "c.yaml", "import:\n  preprocessor: 'svgo \"oops'\n"},
		{"syntax", "c.yaml", "import: [\n"},
		{"unknown extension", "c.ini", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.filename, []byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enhanced-svg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n  format: json\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Preprocessor(t *testing.T) {
	cfg := Default()
	p, err := cfg.Preprocessor()
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg.Import.Preprocessor = "svgo -i - -o -"
	p, err = cfg.Preprocessor()
	require.NoError(t, err)
	assert.NotNil(t, p)
}
