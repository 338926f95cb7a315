package combat

import (
	"math"

	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/world"
)

const (
	headRadius = 15.0
	limbRadius = 30.0
	limbInset  = 20.0
	hitLift    = 5.0
)

// PlayerHitTest checks the shot src→dest against a body standing between
// foot and head. The head is a sphere, the torso and legs are capsules
// split at the body midpoint.
func PlayerHitTest(head, foot, src, dest geom.Vec3) (Part, geom.Vec3, bool) {
	footPos := foot.WithZ(hitLift)
	headPos := head.WithZ(hitLift)
	root := geom.Lerp(footPos, headPos, 0.5)

	nearest := geom.ClosestOnSegment(headPos, src, dest)
	if geom.Dist(nearest, headPos) < headRadius {
		return PartHead, nearest, true
	}

	dir := dest.Sub(src).Normalize()
	rootDir := root.Sub(headPos).Normalize()
	inset := rootDir.Scale(limbInset)

	if pos, ok := capsuleEntry(src, dest, dir, headPos.Add(inset), root.Sub(inset)); ok {
		return PartBody, pos, true
	}
	if pos, ok := capsuleEntry(src, dest, dir, root.Sub(inset), footPos); ok {
		return PartLegs, pos, true
	}
	return "", geom.Vec3{}, false
}

// capsuleEntry backs the closest approach of the shot to the bone a..b up
// to the capsule surface.
func capsuleEntry(src, dest, dir, a, b geom.Vec3) (geom.Vec3, bool) {
	d, onShot, onBone := geom.SegmentSegment(src, dest, a, b)
	if d >= limbRadius {
		return geom.Vec3{}, false
	}
	gap := onShot.Sub(onBone).Len2()
	back := math.Sqrt(max(0, limbRadius*limbRadius-gap))
	return onShot.Sub(dir.Scale(back)), true
}

// bodyTop is the head point used for hit tests.
func bodyTop(p *world.Player) geom.Vec3 { return p.Pos.WithZ(world.PlayerHeight) }
