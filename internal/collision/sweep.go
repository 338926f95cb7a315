package collision

import (
	"sort"

	"github.com/gunzgo/server/internal/geom"
)

// SweepAndSlide moves a cylinder from origin toward target. On contact the
// motion is clipped to the first impact and the remainder is redirected
// along the touched planes, or along the crease of two planes, keeping
// whichever option preserves the most forward motion. The returned flag is
// true when any contact occurred.
func (t *Tree) SweepAndSlide(origin, target geom.Vec3, radius, height float64) (geom.Vec3, bool) {
	shape := Cylinder(radius, height)
	hit, ok := t.Sweep(origin, target, shape)
	if !ok {
		return target, false
	}

	delta := target.Sub(origin)
	length := delta.Len()
	if length < 1e-9 {
		return origin, true
	}
	dir := delta.Scale(1 / length)

	travel := hit.Dist - Epsilon
	if travel < 0 {
		travel = 0
	}
	stop := origin.Add(dir.Scale(travel))
	rest := target.Sub(stop)

	cands := slideCandidates(rest, hit.Impacts)
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Dot(dir) > cands[j].Dot(dir)
	})

	best := stop
	bestScore := 0.0
	for _, c := range cands {
		if c.Len() < Epsilon {
			continue
		}
		score := c.Dot(dir)
		if score < -0.01 {
			// moving backward is never an improvement
			continue
		}
		if score <= bestScore {
			continue
		}
		end := stop.Add(c)
		if h2, blocked := t.Sweep(stop, end, shape); blocked {
			adv := h2.Dist - Epsilon
			if adv <= 0 {
				continue
			}
			end = stop.Add(c.Normalize().Scale(adv))
			score = end.Sub(stop).Dot(dir)
			if score <= bestScore {
				continue
			}
		}
		best, bestScore = end, score
	}

	if best != stop && t.IsSolid(best, radius, height) {
		best = stop
	}
	return best, true
}

// slideCandidates projects rest onto each impact plane and onto the
// intersection line of every pair of planes.
func slideCandidates(rest geom.Vec3, planes []Plane) []geom.Vec3 {
	out := make([]geom.Vec3, 0, len(planes)*2)
	for _, p := range planes {
		out = append(out, rest.Sub(p.N.Scale(rest.Dot(p.N))))
	}
	for i := 0; i < len(planes); i++ {
		for j := i + 1; j < len(planes); j++ {
			line := planes[i].N.Cross(planes[j].N)
			if line.Len() < 1e-6 {
				continue
			}
			line = line.Normalize()
			out = append(out, line.Scale(rest.Dot(line)))
		}
	}
	return out
}
