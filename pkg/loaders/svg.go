package loaders

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
	"go.uber.org/zap"

	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// SVGMaterialName is the base name of materials created by the SVG importer
const SVGMaterialName = "SVGMat"

// SVGCurveName is the base name of objects created by the SVG importer
const SVGCurveName = "Curve"

// shapeElements are the SVG elements that become curve objects
var shapeElements = map[string]bool{
	"path":     true,
	"rect":     true,
	"circle":   true,
	"ellipse":  true,
	"polygon":  true,
	"polyline": true,
	"line":     true,
}

// hiddenElements hold content that is referenced rather than rendered
var hiddenElements = map[string]bool{
	"defs":     true,
	"clipPath": true,
	"mask":     true,
	"marker":   true,
	"pattern":  true,
	"symbol":   true,
}

// SVGImporter is a minimal native importer: it creates one curve object per
// shape element with a material for the element's resolved fill. Path data is
// not interpreted.
type SVGImporter struct {
	logger *zap.Logger
}

// NewSVGImporter creates an SVG importer. A nil logger disables logging.
func NewSVGImporter(logger *zap.Logger) *SVGImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SVGImporter{logger: logger}
}

// SVGShape is one shape element found in a document
type SVGShape struct {
	Element string
	ID      string
	Fill    *core.Color // nil when the shape is not filled
}

// paint is the inherited fill state of an element
type paint struct {
	fill        core.Color
	none        bool
	fillOpacity float64
	opacity     float64
	hidden      bool
}

func (p paint) color() *core.Color {
	if p.none {
		return nil
	}
	c := p.fill
	c.A = float32(p.fillOpacity * p.opacity)
	return &c
}

type element struct {
	name  string
	id    string
	paint paint
}

// Import reads the file and adds a group named after its base name to the scene
func (s *SVGImporter) Import(ctx context.Context, sc *scene.Scene, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open SVG file: %w", err)
	}
	defer file.Close()

	shapes, err := ParseSVGShapes(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	g := sc.NewGroup(filepath.Base(path))
	materials := make(map[core.Color]string)
	filled := 0
	for _, shape := range shapes {
		obj := sc.NewObject(g, SVGCurveName, scene.KindCurve)
		if shape.Fill == nil {
			continue
		}
		filled++
		name, ok := materials[*shape.Fill]
		if !ok {
			name = sc.Materials.New(SVGMaterialName, *shape.Fill).Name
			materials[*shape.Fill] = name
		}
		mat, _ := sc.Materials.Lookup(name)
		obj.SetMaterials(mat)
	}

	s.logger.Debug("SVG imported",
		zap.String("file", filepath.Base(path)),
		zap.String("group", g.Name()),
		zap.Int("shapes", len(shapes)),
		zap.Int("filled", filled),
		zap.Int("materials", len(materials)))
	return nil
}

// ParseSVGShapes lexes an SVG document and returns its rendered shape elements
// in document order with their fills resolved
func ParseSVGShapes(ctx context.Context, r io.Reader) ([]SVGShape, error) {
	l := xml.NewLexer(parse.NewInput(r))

	root := paint{fill: core.NewColor(0, 0, 0), fillOpacity: 1, opacity: 1}
	stack := []element{{name: "", paint: root}}
	var cur *element
	var shapes []SVGShape

	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() == io.EOF {
				return shapes, nil
			}
			return nil, l.Err()

		case xml.StartTagToken:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			parent := stack[len(stack)-1]
			el := element{name: localName(l.Text()), paint: parent.paint}
			if hiddenElements[el.name] {
				el.paint.hidden = true
			}
			cur = &el

		case xml.AttributeToken:
			if cur != nil {
				applyAttribute(cur, localName(l.Text()), unquote(l.AttrVal()))
			}

		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			if cur == nil {
				continue
			}
			if shapeElements[cur.name] && !cur.paint.hidden {
				shapes = append(shapes, SVGShape{Element: cur.name, ID: cur.id, Fill: cur.paint.color()})
			}
			if tt == xml.StartTagCloseToken {
				stack = append(stack, *cur)
			}
			cur = nil

		case xml.EndTagToken:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}

func applyAttribute(el *element, name, value string) {
	switch name {
	case "id":
		el.id = value
	case "fill":
		setFill(&el.paint, value)
	case "fill-opacity":
		if v, ok := parseUnit(value); ok {
			el.paint.fillOpacity = v
		}
	case "opacity":
		// group opacity multiplies down the tree
		if v, ok := parseUnit(value); ok {
			el.paint.opacity *= v
		}
	case "style":
		for _, decl := range strings.Split(value, ";") {
			prop, val, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			prop = strings.TrimSpace(prop)
			if prop == "fill" || prop == "fill-opacity" || prop == "opacity" {
				applyAttribute(el, prop, strings.TrimSpace(val))
			}
		}
	}
}

func setFill(p *paint, value string) {
	value = strings.TrimSpace(value)
	switch value {
	case "", "inherit", "currentColor":
		return
	case "none", "transparent":
		p.none = true
		return
	}
	if c, ok := ParseColor(value); ok {
		p.fill = c
		p.none = false
	}
}

// ParseColor parses an SVG paint color: #rgb, #rrggbb, rgb(r, g, b) with
// integer or percentage channels, and a set of basic named colors
func ParseColor(value string) (core.Color, bool) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return core.Color{}, false
		}
		return fromColorful(c), true
	}

	if inner, ok := strings.CutPrefix(value, "rgb("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		if !ok {
			return core.Color{}, false
		}
		parts := strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ' ' })
		if len(parts) != 3 {
			return core.Color{}, false
		}
		var ch [3]float64
		for i, part := range parts {
			v, ok := parseChannel(part)
			if !ok {
				return core.Color{}, false
			}
			ch[i] = v
		}
		return fromColorful(colorful.Color{R: ch[0], G: ch[1], B: ch[2]}.Clamped()), true
	}

	if hex, ok := namedColors[strings.ToLower(value)]; ok {
		c, _ := colorful.Hex(hex)
		return fromColorful(c), true
	}
	return core.Color{}, false
}

func fromColorful(c colorful.Color) core.Color {
	return core.NewColor(float32(c.R), float32(c.G), float32(c.B))
}

func parseChannel(s string) (float64, bool) {
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(pct, 64)
		return v / 100, err == nil
	}
	v, err := strconv.ParseFloat(s, 64)
	return v / 255, err == nil
}

// parseUnit parses an opacity value, either a number or a percentage, clamped to [0, 1]
func parseUnit(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	scale := 1.0
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		s, scale = pct, 0.01
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v *= scale
	return max(0, min(1, v)), true
}

func localName(b []byte) string {
	name := string(b)
	if i := strings.IndexByte(name, ':'); i >= 0 && !strings.HasPrefix(name, "xml") {
		return name[i+1:]
	}
	return name
}

func unquote(b []byte) string {
	if len(b) >= 2 && (b[0] == '"' || b[0] == '\'') && b[len(b)-1] == b[0] {
		b = b[1 : len(b)-1]
	}
	return entities.Replace(string(b))
}

var entities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"lime":    "#00ff00",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"aqua":    "#00ffff",
	"magenta": "#ff00ff",
	"fuchsia": "#ff00ff",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"maroon":  "#800000",
	"olive":   "#808000",
	"navy":    "#000080",
	"purple":  "#800080",
	"teal":    "#008080",
	"orange":  "#ffa500",
}
