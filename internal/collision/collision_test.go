package collision

import (
	"math"
	"testing"
	"time"

	"github.com/gunzgo/server/internal/geom"
)

func wallBox() Box {
	return Box{Min: geom.V(100, -500, 0), Max: geom.V(120, 500, 300)}
}

func floorBox() Box {
	return Box{Min: geom.V(-1000, -1000, -100), Max: geom.V(1000, 1000, 0)}
}

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestRaycastHitsWall(t *testing.T) {
	tree := FromBoxes(wallBox())
	hit, ok := tree.Raycast(geom.V(0, 0, 50), geom.V(200, 0, 50))
	if !ok {
		t.Fatal("expected hit")
	}
	if !approx(hit.Dist, 100, 1e-6) {
		t.Errorf("dist = %v, want 100", hit.Dist)
	}
	if !approx(hit.Plane.N.X, -1, 1e-9) {
		t.Errorf("plane normal = %+v", hit.Plane.N)
	}
	if !approx(hit.Pos.X, 100, 1e-6) {
		t.Errorf("pos = %+v", hit.Pos)
	}
}

func TestRaycastMisses(t *testing.T) {
	tree := FromBoxes(wallBox())
	if _, ok := tree.Raycast(geom.V(0, 0, 400), geom.V(200, 0, 400)); ok {
		t.Error("ray above wall should miss")
	}
	if _, ok := tree.Raycast(geom.V(0, 0, 50), geom.V(90, 0, 50)); ok {
		t.Error("short ray should miss")
	}
	var empty *Tree
	if _, ok := empty.Raycast(geom.V(0, 0, 0), geom.V(1, 1, 1)); ok {
		t.Error("nil tree should be open space")
	}
}

func TestZeroLengthQueryIsFinite(t *testing.T) {
	tree := FromBoxes(wallBox())
	p := geom.V(10, 0, 10)
	hit, ok := tree.Sweep(p, p, Sphere(5))
	if ok {
		t.Fatalf("zero-length sweep in open space hit: %+v", hit)
	}
	got, blocked := tree.SweepAndSlide(p, p, 33, 180)
	if blocked || got != p || !got.Finite() {
		t.Errorf("SweepAndSlide degenerate = %+v %v", got, blocked)
	}
}

func TestSweepAndSlideHeadOn(t *testing.T) {
	tree := FromBoxes(wallBox())
	got, blocked := tree.SweepAndSlide(geom.V(0, 0, 0), geom.V(90, 0, 0), 33, 180)
	if !blocked {
		t.Fatal("expected contact")
	}
	if got.X > 67 || got.X < 66 {
		t.Errorf("stopped at %+v, want x just below 67", got)
	}
	if tree.IsSolid(got, 33, 180) {
		t.Error("corrected position is inside solid")
	}
}

func TestSweepAndSlideAlongWall(t *testing.T) {
	tree := FromBoxes(wallBox())
	from := geom.V(0, 0, 0)
	got, blocked := tree.SweepAndSlide(from, geom.V(90, 90, 0), 33, 180)
	if !blocked {
		t.Fatal("expected contact")
	}
	if got.X > 67 {
		t.Errorf("penetrated wall: %+v", got)
	}
	if !approx(got.Y, 90, 0.2) {
		t.Errorf("slide lost forward motion: %+v", got)
	}
	if geom.Dist(from, got) > geom.Dist(from, geom.V(90, 90, 0))+1e-9 {
		t.Errorf("slide travelled further than requested: %+v", got)
	}
}

func TestWalkingOnFloorIsFree(t *testing.T) {
	tree := FromBoxes(floorBox(), wallBox())
	got, blocked := tree.SweepAndSlide(geom.V(0, 0, 0), geom.V(50, 20, 0), 33, 180)
	if blocked || got != geom.V(50, 20, 0) {
		t.Errorf("floor walk = %+v blocked=%v", got, blocked)
	}
}

func TestFloorDistance(t *testing.T) {
	tree := FromBoxes(floorBox())
	d, ok := tree.FloorDistance(geom.V(0, 0, 50))
	if !ok || !approx(d, 50, 1e-6) {
		t.Errorf("floor distance = %v %v", d, ok)
	}
	d, ok = tree.FloorDistance(geom.V(0, 0, 0))
	if !ok || !approx(d, 0, 1e-6) {
		t.Errorf("standing floor distance = %v %v", d, ok)
	}
	if _, ok := tree.FloorDistance(geom.V(5000, 0, 0)); ok {
		t.Error("no floor outside the box")
	}
	if p := tree.FloorPos(geom.V(10, 10, 300)); !approx(p.Z, 0, 1e-6) {
		t.Errorf("floor pos = %+v", p)
	}
}

func TestIsSolid(t *testing.T) {
	tree := FromBoxes(floorBox(), wallBox())
	if !tree.IsSolid(geom.V(110, 0, 0), 33, 180) {
		t.Error("inside wall should be solid")
	}
	if tree.IsSolid(geom.V(0, 0, 0), 33, 180) {
		t.Error("standing on floor should not be solid")
	}
	if !tree.IsSolid(geom.V(80, 0, 0), 33, 180) {
		t.Error("cylinder overlapping wall by radius should be solid")
	}
}

func TestWallProximity(t *testing.T) {
	tree := FromBoxes(wallBox())
	pos := geom.V(50, 0, 0)
	if !tree.WallProximity(pos, geom.V(1, 0, 0), 120) {
		t.Error("wall ahead within range")
	}
	if tree.WallProximity(pos, geom.V(0, 1, 0), 120) {
		t.Error("no wall along y")
	}
	if tree.WallProximity(pos, geom.V(0, 0, 1), 120) {
		t.Error("vertical direction must short-circuit")
	}
	if tree.WallProximity(pos, geom.V(1, 0, 0), 20) {
		t.Error("wall beyond range")
	}
}

func TestIsBlockedMovement(t *testing.T) {
	tree := FromBoxes(wallBox())
	if !tree.IsBlockedMovement(geom.V(0, 0, 0), geom.V(200, 0, 0)) {
		t.Error("crossing the wall should be blocked")
	}
	if tree.IsBlockedMovement(geom.V(0, 0, 0), geom.V(50, 0, 0)) {
		t.Error("short step should be free")
	}
}

func TestManyBoxesNearestHit(t *testing.T) {
	var boxes []Box
	for i := 7; i >= 0; i-- {
		x := float64(200 * i)
		boxes = append(boxes, Box{Min: geom.V(x, -100, 0), Max: geom.V(x+50, 100, 100)})
	}
	tree := FromBoxes(boxes...)
	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
	hit, ok := tree.Raycast(geom.V(-100, 0, 50), geom.V(2000, 0, 50))
	if !ok || !approx(hit.Dist, 100, 1e-6) {
		t.Fatalf("nearest hit = %+v %v", hit, ok)
	}
	hit, ok = tree.Raycast(geom.V(1100, 0, 50), geom.V(2000, 0, 50))
	if !ok || !approx(hit.Pos.X, 1200, 1e-6) {
		t.Errorf("mid hit = %+v %v", hit, ok)
	}
}

func TestFromNodesValidate(t *testing.T) {
	if _, err := FromNodes([]RawNode{{A: 1, Pos: 0, Neg: 1}, {Pos: None, Neg: None}}); err == nil {
		t.Error("self reference should be rejected")
	}
	if _, err := FromNodes([]RawNode{{Pos: 1, Neg: 2}, {Pos: None, Neg: None}, {Pos: None, Neg: None, Solid: true}}); err == nil {
		t.Error("zero normal should be rejected")
	}
	tree, err := FromNodes([]RawNode{
		{A: 0, B: 0, C: 2, D: 0, Pos: 1, Neg: 2},
		{Pos: None, Neg: None},
		{Pos: None, Neg: None, Solid: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	d, ok := tree.FloorDistance(geom.V(0, 0, 30))
	if !ok || !approx(d, 30, 1e-6) {
		t.Errorf("half-space floor = %v %v", d, ok)
	}
}

func gridArena(walls int) []Box {
	boxes := []Box{floorBox()}
	for i := 0; i < walls/2; i++ {
		c := float64(-900 + 150*i)
		boxes = append(boxes,
			Box{Min: geom.V(-1000, c, 0), Max: geom.V(1000, c+20, 300)},
			Box{Min: geom.V(c, -1000, 0), Max: geom.V(c+20, 1000, 300)},
		)
	}
	return boxes
}

func TestCrossingWallsStayCheap(t *testing.T) {
	tree := FromBoxes(gridArena(24)...)
	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
	if n := len(tree.Nodes); n > 20000 {
		t.Fatalf("tree has %d nodes", n)
	}

	start := time.Now()
	for i := 0; i < 20; i++ {
		// cell between the first two wall pairs
		if tree.IsBlockedMovement(geom.V(-800, -800, 0), geom.V(-800, -790, 0)) {
			t.Fatal("step inside a cell should be free")
		}
		if !tree.IsBlockedMovement(geom.V(-800, -800, 0), geom.V(-600, -800, 0)) {
			t.Fatal("step through a wall should be blocked")
		}
	}
	if d := time.Since(start); d > 200*time.Millisecond {
		t.Errorf("40 movement checks took %v", d)
	}
}

func TestOverlappingBoxesNearestHit(t *testing.T) {
	tree := FromBoxes(
		Box{Min: geom.V(100, -100, 0), Max: geom.V(300, 100, 200)},
		Box{Min: geom.V(200, -50, 0), Max: geom.V(400, 50, 200)},
		Box{Min: geom.V(150, -500, 0), Max: geom.V(160, 500, 200)},
	)
	hit, ok := tree.Raycast(geom.V(0, 0, 50), geom.V(1000, 0, 50))
	if !ok || !approx(hit.Pos.X, 100, 1e-6) || hit.Plane.N.X >= 0 {
		t.Fatalf("hit = %+v %v", hit, ok)
	}
	hit, ok = tree.Raycast(geom.V(1000, 0, 50), geom.V(0, 0, 50))
	if !ok || !approx(hit.Pos.X, 400, 1e-6) {
		t.Errorf("reverse hit = %+v %v", hit, ok)
	}
	if tree.Blocked(geom.V(0, 300, 50), geom.V(140, 300, 50)) {
		t.Error("open space reported blocked")
	}
	if !tree.Blocked(geom.V(0, 300, 50), geom.V(1000, 300, 50)) {
		t.Error("thin wall missed")
	}
}
