package loaders

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

const logoSVG = `<?xml version="1.0" encoding="UTF-8"?>
<!-- exported -->
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <title>Company Logo</title>
  <defs>
    <rect id="hidden" width="1" height="1" fill="#123456"/>
  </defs>
  <g fill="#ff0000">
    <rect id="a" x="0" y="0" width="10" height="10"/>
    <circle id="b" cx="5" cy="5" r="2" style="fill: #00ff00; stroke: black"/>
    <g opacity="0.5">
      <path id="c" d="M0 0 L10 10" fill-opacity="0.5"/>
    </g>
  </g>
  <ellipse id="d" cx="1" cy="1" rx="1" ry="1" fill="none"/>
  <polygon id="e" points="0,0 1,1 1,0" fill="rgb(255, 0, 0)"></polygon>
  <line id="f" x1="0" y1="0" x2="1" y2="1"/>
</svg>`

func TestParseSVGShapes(t *testing.T) {
	shapes, err := ParseSVGShapes(context.Background(), strings.NewReader(logoSVG))
	require.NoError(t, err)

	var ids []string
	for _, s := range shapes {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, ids, "defs content is skipped")

	red := core.NewColor(1, 0, 0)
	green := core.NewColor(0, 1, 0)
	require.NotNil(t, shapes[0].Fill)
	assert.Equal(t, red, *shapes[0].Fill, "fill inherited from the group")
	require.NotNil(t, shapes[1].Fill)
	assert.Equal(t, green, *shapes[1].Fill, "style overrides the inherited fill")
	require.NotNil(t, shapes[2].Fill)
	assert.Equal(t, core.NewColorRGBA(1, 0, 0, 0.25), *shapes[2].Fill, "opacity and fill-opacity multiply")
	assert.Nil(t, shapes[3].Fill, "fill=none has no material")
	require.NotNil(t, shapes[4].Fill)
	assert.Equal(t, red, *shapes[4].Fill)
	require.NotNil(t, shapes[5].Fill)
	assert.Equal(t, core.NewColor(0, 0, 0), *shapes[5].Fill, "default fill is black")
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input    string
		expected core.Color
		ok       bool
	}{
		{"#ff0000", core.NewColor(1, 0, 0), true},
		{"#0f0", core.NewColor(0, 1, 0), true},
		{"rgb(0, 0, 255)", core.NewColor(0, 0, 1), true},
		{"rgb(100%, 0%, 0%)", core.NewColor(1, 0, 0), true},
		{"rgb(300 0 0)", core.NewColor(1, 0, 0), true},
		{"White", core.NewColor(1, 1, 1), true},
		{"url(#gradient)", core.Color{}, false},
		{"#zzzzzz", core.Color{}, false},
		{"rgb(1, 2)", core.Color{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseColor(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseColor(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got.Hex() != tt.expected.Hex() {
				t.Errorf("ParseColor(%q) = #%s, want #%s", tt.input, got.Hex(), tt.expected.Hex())
			}
		})
	}
}

func TestSVGImporter_Import(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.svg")
	require.NoError(t, os.WriteFile(path, []byte(logoSVG), 0o644))

	sc := scene.New()
	require.NoError(t, NewSVGImporter(nil).Import(context.Background(), sc, path))

	g, ok := sc.Group("logo.svg")
	require.True(t, ok, "group is named after the file")
	require.Equal(t, 6, g.Len())

	objs := g.Objects()
	assert.Equal(t, "Curve", objs[0].Name())
	assert.Equal(t, "Curve.001", objs[1].Name())
	for _, obj := range objs {
		assert.Equal(t, scene.KindCurve, obj.Kind)
	}

	// a and e share red, b is green, c is translucent red, f is black, d has none
	assert.Same(t, objs[0].Materials()[0], objs[4].Materials()[0])
	assert.NotSame(t, objs[0].Materials()[0], objs[2].Materials()[0])
	assert.False(t, objs[3].HasMaterial())
	assert.Equal(t, 4, sc.Materials.Len())
	for _, m := range sc.Materials.Materials() {
		assert.True(t, strings.HasPrefix(m.Name, SVGMaterialName))
	}
}

func TestSVGImporter_MissingFile(t *testing.T) {
	sc := scene.New()
	err := NewSVGImporter(nil).Import(context.Background(), sc, filepath.Join(t.TempDir(), "missing.svg"))
	assert.Error(t, err)
	assert.Empty(t, sc.Groups())
}

func TestParseSVGShapes_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseSVGShapes(ctx, strings.NewReader(logoSVG))
	assert.ErrorIs(t, err, context.Canceled)
}
