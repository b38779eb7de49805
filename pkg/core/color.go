package core

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Color is a linear RGBA color stored with float32 precision, like the host's
// material color properties.
type Color struct {
	R, G, B, A float32
}

// ColorKey is the deduplication key of a color: its RGB components exactly as
// stored. Alpha is not part of the key.
type ColorKey [3]float32

// NewColor creates an opaque color
func NewColor(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// NewColorRGBA creates a color with explicit alpha
func NewColorRGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Key returns the exact-match deduplication key of the color
func (c Color) Key() ColorKey {
	return ColorKey{c.R, c.G, c.B}
}

// Hex formats the RGB components as six lowercase hex digits. Each channel is
// truncated, not rounded: int(c*255).
func (c Color) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", channelByte(c.R), channelByte(c.G), channelByte(c.B))
}

// Array returns the components as a fixed-size array (used for JSON output)
func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// String implements fmt.Stringer
func (k ColorKey) String() string {
	return fmt.Sprintf("(%g, %g, %g)", k[0], k[1], k[2])
}

func channelByte(v float32) int {
	return int(clamp01(v) * 255)
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
