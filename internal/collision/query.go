package collision

import (
	"math"

	"github.com/gunzgo/server/internal/geom"
)

// Shape is the volume swept along a query segment.
type Shape struct {
	Radius float64
	// Height > 0 models an upright cylinder standing on the query point.
	Height float64
}

// Point is a zero-volume probe.
var Point = Shape{}

func Sphere(r float64) Shape { return Shape{Radius: r} }

func Cylinder(r, h float64) Shape { return Shape{Radius: r, Height: h} }

// shift returns how far a plane must move outward for the shape to touch
// the half-space on its negative (solidward) side.
func (s Shape) shift(n geom.Vec3) float64 {
	if s.Height <= 0 {
		return s.Radius
	}
	return s.Radius*math.Hypot(n.X, n.Y) + math.Max(0, -n.Z*s.Height)
}

// Hit describes the first contact of a sweep.
type Hit struct {
	Fraction float64 // 0..1 along the segment
	Dist     float64
	Pos      geom.Vec3
	Plane    Plane
	// Impacts holds every distinct plane touched at Pos that opposes the
	// sweep direction.
	Impacts []Plane
}

type leafHit struct {
	t      float64
	plane  Plane
	planes []Plane
}

type walker struct {
	tree   *Tree
	from   geom.Vec3
	to     geom.Vec3
	shape  Shape
	stack  []Plane
	hits   []leafHit
	length float64
}

// Sweep moves shape from origin to target and reports the nearest contact
// with solid space.
func (t *Tree) Sweep(origin, target geom.Vec3, shape Shape) (Hit, bool) {
	if t == nil || len(t.Nodes) == 0 || !origin.Finite() || !target.Finite() {
		return Hit{}, false
	}
	w := walker{
		tree:   t,
		from:   origin,
		to:     target,
		shape:  shape,
		stack:  make([]Plane, 0, 16),
		length: geom.Dist(origin, target),
	}
	w.visit(t.Root)
	if len(w.hits) == 0 {
		return Hit{}, false
	}

	best := 0
	for i := range w.hits {
		if w.hits[i].t < w.hits[best].t {
			best = i
		}
	}
	bt := w.hits[best].t
	hit := Hit{
		Fraction: bt,
		Dist:     bt * w.length,
		Pos:      geom.Lerp(origin, target, bt),
		Plane:    w.hits[best].plane,
	}
	dir := target.Sub(origin)
	for _, lh := range w.hits {
		if (lh.t-bt)*w.length > Epsilon {
			continue
		}
		for _, p := range lh.planes {
			if math.Abs(p.Dist(hit.Pos)) >= Epsilon || p.N.Dot(dir) > 0 {
				continue
			}
			hit.Impacts = appendUnique(hit.Impacts, p)
		}
	}
	if len(hit.Impacts) == 0 {
		hit.Impacts = append(hit.Impacts, hit.Plane)
	}
	return hit, true
}

func appendUnique(list []Plane, p Plane) []Plane {
	for _, q := range list {
		if q.N.Dot(p.N) > 0.9999 && math.Abs(q.D-p.D) < Epsilon {
			return list
		}
	}
	return append(list, p)
}

func (w *walker) visit(idx int) {
	n := &w.tree.Nodes[idx]
	if n.IsLeaf() {
		if n.Solid {
			w.clip()
		}
		return
	}

	s := w.shape.shift(n.Plane.N)
	neg := Plane{N: n.Plane.N, D: n.Plane.D - s}
	if !bothOutside(neg, w.from, w.to) {
		w.stack = append(w.stack, neg)
		w.visit(n.Neg)
		w.stack = w.stack[:len(w.stack)-1]
	}

	s = w.shape.shift(n.Plane.N.Neg())
	pos := Plane{N: n.Plane.N.Neg(), D: -n.Plane.D - s}
	if !bothOutside(pos, w.from, w.to) {
		w.stack = append(w.stack, pos)
		w.visit(n.Pos)
		w.stack = w.stack[:len(w.stack)-1]
	}
}

func bothOutside(p Plane, a, b geom.Vec3) bool {
	return p.Dist(a) > Epsilon && p.Dist(b) > Epsilon
}

// clip intersects the segment with the convex region bounded by the
// accumulated planes.
func (w *walker) clip() {
	tEnter, tExit := 0.0, 1.0
	var enter Plane
	entered := false
	inside := true
	deepest := math.Inf(-1)
	var shallow Plane

	for _, p := range w.stack {
		d0, d1 := p.Dist(w.from), p.Dist(w.to)
		switch {
		case d0 > -Epsilon && d1 > -Epsilon:
			return
		case d0 > -Epsilon:
			inside = false
			t := math.Max(0, d0/(d0-d1))
			if !entered || t > tEnter {
				tEnter, enter, entered = t, p, true
			}
		case d1 > -Epsilon:
			t := d0 / (d0 - d1)
			if t < tExit {
				tExit = t
			}
		}
		if d0 <= -Epsilon && d0 > deepest {
			deepest, shallow = d0, p
		}
	}
	if tEnter > tExit {
		return
	}
	planes := make([]Plane, len(w.stack))
	copy(planes, w.stack)
	if inside {
		w.hits = append(w.hits, leafHit{t: 0, plane: shallow, planes: planes})
		return
	}
	w.hits = append(w.hits, leafHit{t: tEnter, plane: enter, planes: planes})
}
