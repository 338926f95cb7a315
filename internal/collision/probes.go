package collision

import "github.com/gunzgo/server/internal/geom"

const (
	floorProbeUp    = 5
	floorProbeDepth = 5000
	wallProbeLow    = 100
	wallProbeHigh   = 180
	losHeight       = 100
	blockOffset     = 33
)

var blockHeights = [3]float64{40, 100, 170}

// Raycast returns the nearest impact of a zero-volume ray.
func (t *Tree) Raycast(origin, target geom.Vec3) (Hit, bool) {
	return t.Sweep(origin, target, Point)
}

// Blocked reports whether anything solid lies between origin and target.
func (t *Tree) Blocked(origin, target geom.Vec3) bool {
	_, ok := t.Raycast(origin, target)
	return ok
}

// WallBetween tests line of sight between two actors at chest height.
func (t *Tree) WallBetween(a, b geom.Vec3) bool {
	return t.Blocked(a.WithZ(losHeight), b.WithZ(losHeight))
}

// FloorDistance is the vertical gap between pos and the floor beneath it.
func (t *Tree) FloorDistance(pos geom.Vec3) (float64, bool) {
	hit, ok := t.Raycast(pos.WithZ(floorProbeUp), pos.WithZ(-floorProbeDepth))
	if !ok {
		return 0, false
	}
	return hit.Dist - floorProbeUp, true
}

// FloorPos returns the floor point under pos, or the probe end when there
// is none.
func (t *Tree) FloorPos(pos geom.Vec3) geom.Vec3 {
	end := pos.WithZ(-2 * floorProbeDepth)
	hit, ok := t.Raycast(pos.WithZ(floorProbeUp), end)
	if !ok {
		return end
	}
	return hit.Pos
}

// IsSolid reports whether a cylinder standing at pos overlaps solid space.
func (t *Tree) IsSolid(pos geom.Vec3, radius, height float64) bool {
	_, ok := t.Sweep(pos, pos.WithZ(Epsilon), Cylinder(radius, height))
	return ok
}

// WallProximity reports whether a wall lies within maxDist of pos along the
// horizontal part of dir, at both waist and head height.
func (t *Tree) WallProximity(pos, dir geom.Vec3, maxDist float64) bool {
	d := dir.XY().Normalize()
	if d.IsZero() || t == nil {
		return false
	}
	reach := d.Scale(maxDist)
	for _, h := range [2]float64{wallProbeLow, wallProbeHigh} {
		from := pos.WithZ(h)
		if !t.Blocked(from, from.Add(reach)) {
			return false
		}
	}
	return true
}

// IsBlockedMovement casts rays from a ring of body offsets at three heights
// and reports whether any of them is obstructed.
func (t *Tree) IsBlockedMovement(from, to geom.Vec3) bool {
	if t == nil {
		return false
	}
	offsets := [5]geom.Vec3{
		{},
		geom.V(blockOffset, 0, 0),
		geom.V(-blockOffset, 0, 0),
		geom.V(0, blockOffset, 0),
		geom.V(0, -blockOffset, 0),
	}
	for _, off := range offsets {
		for _, h := range blockHeights {
			lift := off.WithZ(h)
			if t.Blocked(from.Add(lift), to.Add(lift)) {
				return true
			}
		}
	}
	return false
}
