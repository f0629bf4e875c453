package island

import (
	"math"

	"github.com/paulmach/orb"
)

// Vec3 is a world-space position or direction. Y is up; the water plane
// is y = 0.
type Vec3 struct {
	X, Y, Z float64
}

// At returns the ground-plane point (x, z) lifted to height y.
func At(p orb.Point, y float64) Vec3 {
	return Vec3{X: p.X(), Y: y, Z: p.Y()}
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Ground projects v onto the ground plane as (x, z).
func (v Vec3) Ground() orb.Point { return orb.Point{v.X, v.Z} }

// rotateY rotates the ground-plane offset (x, z) around the up axis.
func rotateY(x, z, cos, sin float64) (float64, float64) {
	return x*cos + z*sin, z*cos - x*sin
}
