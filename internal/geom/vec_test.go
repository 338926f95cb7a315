package geom

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestNormalizeZero(t *testing.T) {
	n := Vec3{}.Normalize()
	if !n.IsZero() || !n.Finite() {
		t.Fatalf("zero normalize = %+v", n)
	}
	u := V(3, 4, 0).Normalize()
	if !near(u.Len(), 1) || !near(u.X, 0.6) {
		t.Errorf("normalize = %+v", u)
	}
}

func TestInBounds(t *testing.T) {
	cases := []struct {
		v    Vec3
		want bool
	}{
		{V(0, 0, 0), true},
		{V(MaxCoord, -MaxCoord, 1), true},
		{V(MaxCoord+1, 0, 0), false},
		{V(math.NaN(), 0, 0), false},
		{V(0, math.Inf(1), 0), false},
	}
	for _, c := range cases {
		if got := c.v.InBounds(); got != c.want {
			t.Errorf("InBounds(%+v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestReflect(t *testing.T) {
	r := Reflect(V(10, 5, 0), V(-1, 0, 0))
	if !near(r.X, -10) || !near(r.Y, 5) {
		t.Errorf("reflect = %+v", r)
	}
}

func TestRotateKeepsLength(t *testing.T) {
	v := V(1, 2, 3)
	r := Rotate(v, V(0, 0, 1), math.Pi/2)
	if !near(r.Len(), v.Len()) {
		t.Errorf("rotate changed length: %v vs %v", r.Len(), v.Len())
	}
	if !near(r.X, -2) || !near(r.Y, 1) || !near(r.Z, 3) {
		t.Errorf("rotate = %+v", r)
	}
	if got := Rotate(v, Vec3{}, 1); got != v {
		t.Errorf("zero axis rotate = %+v", got)
	}
}

func TestPointSegmentDist(t *testing.T) {
	a, b := V(0, 0, 0), V(0, 0, 100)
	if d := PointSegmentDist(V(10, 0, 50), a, b); !near(d, 10) {
		t.Errorf("mid dist = %v", d)
	}
	if d := PointSegmentDist(V(0, 0, 130), a, b); !near(d, 30) {
		t.Errorf("end dist = %v", d)
	}
	if d := PointSegmentDist(V(3, 4, 0), a, a); !near(d, 5) {
		t.Errorf("degenerate dist = %v", d)
	}
}

func TestSegmentSegment(t *testing.T) {
	d, p, q := SegmentSegment(V(-100, 0, 50), V(100, 0, 50), V(0, 20, 0), V(0, 20, 100))
	if !near(d, 20) {
		t.Fatalf("crossing dist = %v", d)
	}
	if !near(p.X, 0) || !near(q.Z, 50) {
		t.Errorf("closest points = %+v %+v", p, q)
	}

	d, _, _ = SegmentSegment(V(0, 0, 0), V(0, 0, 100), V(30, 0, 50), V(30, 0, 150))
	if !near(d, 30) {
		t.Errorf("parallel dist = %v", d)
	}
}

func TestRayCylinder(t *testing.T) {
	tt, ok := RayCylinder(V(-200, 0, 50), V(1, 0, 0), V(0, 0, 0), 180, 30, 1000)
	if !ok || !near(tt, 170) {
		t.Fatalf("hit = %v %v", tt, ok)
	}
	if _, ok := RayCylinder(V(-200, 0, 250), V(1, 0, 0), V(0, 0, 0), 180, 30, 1000); ok {
		t.Error("ray above cylinder should miss")
	}
	if _, ok := RayCylinder(V(-200, 0, 50), V(1, 0, 0), V(0, 0, 0), 180, 30, 100); ok {
		t.Error("ray shorter than distance should miss")
	}
}
