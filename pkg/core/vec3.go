package core

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float64
}

// NewVec3 creates a new Vec3
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// One returns the unit scale vector (1, 1, 1)
func One() Vec3 {
	return Vec3{X: 1, Y: 1, Z: 1}
}

// Multiply returns the vector scaled by a scalar
func (v Vec3) Multiply(scalar float64) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

// MultiplyVec returns component-wise multiplication of two vectors
func (v Vec3) MultiplyVec(other Vec3) Vec3 {
	return Vec3{
		X: v.X * other.X,
		Y: v.Y * other.Y,
		Z: v.Z * other.Z,
	}
}

// WithZ returns a copy of the vector with Z replaced
func (v Vec3) WithZ(z float64) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: z}
}

// Array returns the components as a fixed-size array (used for JSON output)
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
