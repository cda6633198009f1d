package dynamo

import "math"

// Quat is a rotation quaternion (w, x, y, z). Composition is the Hamilton
// product: a.Mul(b) applies b first, then a.
type Quat struct {
	W, X, Y, Z float64
}

// Identity is the zero rotation.
var Identity = Quat{W: 1}

// AxisAngle returns the rotation of angle radians about axis. A zero axis
// yields the identity.
func AxisAngle(axis Vec3, angle float64) Quat {
	u := axis.Unit()
	if u.IsZero() {
		return Identity
	}
	s, c := math.Sincos(angle / 2)
	return Quat{W: c, X: u.X * s, Y: u.Y * s, Z: u.Z * s}
}

// Mul composes q with r.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

func (q Quat) Conj() Quat { return Quat{q.W, -q.X, -q.Y, -q.Z} }
func (q Quat) Neg() Quat  { return Quat{-q.W, -q.X, -q.Y, -q.Z} }

func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Inv returns the multiplicative inverse. The zero quaternion maps to the
// identity rather than to NaNs.
func (q Quat) Inv() Quat {
	n2 := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
	if n2 == 0 {
		return Identity
	}
	c := q.Conj()
	return Quat{c.W / n2, c.X / n2, c.Y / n2, c.Z / n2}
}

// Normalize returns q scaled to unit norm, or the identity for a zero q.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return Identity
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Canonical returns the unit quaternion for q with a non-negative scalar part.
func (q Quat) Canonical() Quat {
	q = q.Normalize()
	if q.W < 0 {
		return q.Neg()
	}
	return q
}

// Rotate maps v by the rotation q (q v q*).
func (q Quat) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quat{0, v.X, v.Y, v.Z}).Mul(q.Inv())
	return Vec3{p.X, p.Y, p.Z}
}

// Vec returns the vector part.
func (q Quat) Vec() Vec3 { return Vec3{q.X, q.Y, q.Z} }

// Angle returns the rotation angle in [0, pi].
func (q Quat) Angle() float64 {
	q = q.Canonical()
	return 2 * math.Atan2(q.Vec().Norm(), q.W)
}

// Euler returns roll, pitch and yaw (ZYX convention) in radians.
func (q Quat) Euler() (roll, pitch, yaw float64) {
	q = q.Normalize()
	roll = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	s := 2 * (q.W*q.Y - q.Z*q.X)
	pitch = math.Asin(math.Max(-1, math.Min(1, s)))
	yaw = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return roll, pitch, yaw
}

func (q Quat) Array() [4]float64 { return [4]float64{q.W, q.X, q.Y, q.Z} }

func (q Quat) IsFinite() bool {
	return finite(q.W) && finite(q.X) && finite(q.Y) && finite(q.Z)
}
