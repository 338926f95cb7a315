package geom

import "math"

// MaxCoord bounds every client-supplied coordinate.
const MaxCoord = 100000

// Vec3 is a point or direction in level space (z up).
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}
func (a Vec3) Neg() Vec3           { return Vec3{-a.X, -a.Y, -a.Z} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Len() float64   { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Len2() float64  { return a.Dot(a) }
func (a Vec3) LenXY() float64 { return math.Hypot(a.X, a.Y) }

// XY drops the vertical component.
func (a Vec3) XY() Vec3 { return Vec3{a.X, a.Y, 0} }

// WithZ returns a copy with z offset by dz.
func (a Vec3) WithZ(dz float64) Vec3 { return Vec3{a.X, a.Y, a.Z + dz} }

// Normalize returns the unit vector, or the zero vector when a has no length.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

func (a Vec3) IsZero() bool { return a.X == 0 && a.Y == 0 && a.Z == 0 }

// Finite reports whether every component is a real number.
func (a Vec3) Finite() bool {
	return finite(a.X) && finite(a.Y) && finite(a.Z)
}

// InBounds reports whether a is finite and within MaxCoord on every axis.
func (a Vec3) InBounds() bool {
	return a.Finite() && math.Abs(a.X) <= MaxCoord && math.Abs(a.Y) <= MaxCoord && math.Abs(a.Z) <= MaxCoord
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func Dist(a, b Vec3) float64   { return a.Sub(b).Len() }
func Dist2D(a, b Vec3) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// Lerp returns a + (b-a)*t.
func Lerp(a, b Vec3, t float64) Vec3 { return a.Add(b.Sub(a).Scale(t)) }

// MoveTowards steps from pos toward target by step units.
func MoveTowards(pos, target Vec3, step float64) Vec3 {
	return pos.Add(target.Sub(pos).Normalize().Scale(step))
}

// Reflect mirrors v about the plane with normal n (n need not be unit).
func Reflect(v, n Vec3) Vec3 {
	n = n.Normalize()
	return v.Sub(n.Scale(2 * v.Dot(n)))
}

// Rotate turns v around axis by angle radians (Rodrigues).
func Rotate(v, axis Vec3, angle float64) Vec3 {
	k := axis.Normalize()
	if k.IsZero() {
		return v
	}
	c, s := math.Cos(angle), math.Sin(angle)
	return v.Scale(c).Add(k.Cross(v).Scale(s)).Add(k.Scale(k.Dot(v) * (1 - c)))
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
