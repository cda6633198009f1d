package dynamo

import "math"

// Vec3 is a 3-vector. Frame and units depend on use.
type Vec3 struct {
	X, Y, Z float64
}

var (
	XHat = Vec3{1, 0, 0}
	YHat = Vec3{0, 1, 0}
	ZHat = Vec3{0, 0, 1}
)

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Norm() float64        { return math.Sqrt(v.Dot(v)) }
func (v Vec3) NormXY() float64      { return math.Hypot(v.X, v.Y) }
func (v Vec3) Array() [3]float64    { return [3]float64{v.X, v.Y, v.Z} }
func (v Vec3) IsZero() bool         { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func Vec3From(a [3]float64) Vec3    { return Vec3{a[0], a[1], a[2]} }
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Unit returns v/|v|, or the zero vector when |v| is zero.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

func (v Vec3) IsFinite() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
