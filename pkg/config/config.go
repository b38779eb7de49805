// Package config loads import, layout, logging and server settings from YAML,
// TOML or HCL files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-enhanced-svg/pkg/importer"
	"github.com/df07/go-enhanced-svg/pkg/logging"
)

// Config is the complete configuration
type Config struct {
	Import    ImportConfig    `yaml:"import" toml:"import" json:"import"`
	Elevation ElevationConfig `yaml:"elevation" toml:"elevation" json:"elevation"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" toml:"server" json:"server"`
}

// ImportConfig configures the import pipeline
type ImportConfig struct {
	Variant      string  `yaml:"variant" toml:"variant" json:"variant"`
	ScaleFactor  float64 `yaml:"scale_factor" toml:"scale_factor" json:"scaleFactor"`
	TempDir      string  `yaml:"temp_dir" toml:"temp_dir" json:"tempDir"`
	Preprocessor string  `yaml:"preprocessor" toml:"preprocessor" json:"preprocessor"` // command line, empty disables preprocessing
}

// ElevationConfig configures vertical stacking
type ElevationConfig struct {
	Target string  `yaml:"target" toml:"target" json:"target"` // group name, empty means the last imported group
	Step   float64 `yaml:"step" toml:"step" json:"step"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
}

// ServerConfig configures the web server
type ServerConfig struct {
	Port    int    `yaml:"port" toml:"port" json:"port"`
	Library string `yaml:"library" toml:"library" json:"library"` // directory listed by /api/files
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Import: ImportConfig{
			Variant:     "simple",
			ScaleFactor: 1.0,
		},
		Elevation: ElevationConfig{
			Step: 0.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// Load reads a configuration file on top of the defaults. The format is chosen
// by extension: .yaml/.yml, .toml or .hcl.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes configuration data; filename selects the format
func Parse(filename string, data []byte) (Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config %s: %w", filename, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse TOML config %s: %w", filename, err)
		}
	case ".hcl":
		var file hclFile
		if err := hclsimple.Decode(filename, data, nil, &file); err != nil {
			return Config{}, fmt.Errorf("failed to parse HCL config %s: %w", filename, err)
		}
		file.applyTo(&cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", filename)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs []error
	if _, err := importer.ParseVariant(c.Import.Variant); err != nil {
		errs = append(errs, err)
	}
	if c.Import.ScaleFactor <= 0 {
		errs = append(errs, fmt.Errorf("scale_factor must be positive, got %g", c.Import.ScaleFactor))
	}
	if c.Import.Preprocessor != "" {
		if _, err := importer.NewCommandPreprocessor(c.Import.Preprocessor); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %q", c.Logging.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// Variant returns the parsed import variant
func (c Config) Variant() importer.Variant {
	v, _ := importer.ParseVariant(c.Import.Variant)
	return v
}

// Preprocessor builds the configured preprocessor, nil when none is set
func (c Config) Preprocessor() (importer.Preprocessor, error) {
	if c.Import.Preprocessor == "" {
		return nil, nil
	}
	return importer.NewCommandPreprocessor(c.Import.Preprocessor)
}

// hclFile mirrors Config with optional blocks and attributes so that absent
// settings keep their defaults
type hclFile struct {
	Import *struct {
		Variant      *string  `hcl:"variant,optional"`
		ScaleFactor  *float64 `hcl:"scale_factor,optional"`
		TempDir      *string  `hcl:"temp_dir,optional"`
		Preprocessor *string  `hcl:"preprocessor,optional"`
	} `hcl:"import,block"`
	Elevation *struct {
		Target *string  `hcl:"target,optional"`
		Step   *float64 `hcl:"step,optional"`
	} `hcl:"elevation,block"`
	Logging *struct {
		Level  *string `hcl:"level,optional"`
		Format *string `hcl:"format,optional"`
	} `hcl:"logging,block"`
	Server *struct {
		Port    *int    `hcl:"port,optional"`
		Library *string `hcl:"library,optional"`
	} `hcl:"server,block"`
}

func (f hclFile) applyTo(cfg *Config) {
	if b := f.Import; b != nil {
		set(&cfg.Import.Variant, b.Variant)
		set(&cfg.Import.ScaleFactor, b.ScaleFactor)
		set(&cfg.Import.TempDir, b.TempDir)
		set(&cfg.Import.Preprocessor, b.Preprocessor)
	}
	if b := f.Elevation; b != nil {
		set(&cfg.Elevation.Target, b.Target)
		set(&cfg.Elevation.Step, b.Step)
	}
	if b := f.Logging; b != nil {
		set(&cfg.Logging.Level, b.Level)
		set(&cfg.Logging.Format, b.Format)
	}
	if b := f.Server; b != nil {
		set(&cfg.Server.Port, b.Port)
		set(&cfg.Server.Library, b.Library)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
