package geom

import "math"

// ClosestOnSegment returns the point on [a,b] nearest p.
func ClosestOnSegment(p, a, b Vec3) Vec3 {
	ab := b.Sub(a)
	l2 := ab.Len2()
	if l2 == 0 {
		return a
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Scale(t))
}

// PointSegmentDist is the distance from p to the segment [a,b].
func PointSegmentDist(p, a, b Vec3) float64 {
	return Dist(p, ClosestOnSegment(p, a, b))
}

// SegmentSegment returns the distance between segments [p1,p2] and [q1,q2]
// and the closest point on each. Nearly parallel segments fall back to
// endpoint projections.
func SegmentSegment(p1, p2, q1, q2 Vec3) (dist float64, onP, onQ Vec3) {
	d1 := p2.Sub(p1)
	d2 := q2.Sub(q1)
	r := p1.Sub(q1)
	a := d1.Len2()
	e := d2.Len2()
	f := d2.Dot(r)

	if a == 0 && e == 0 {
		return Dist(p1, q1), p1, q1
	}
	if a == 0 {
		onQ = ClosestOnSegment(p1, q1, q2)
		return Dist(p1, onQ), p1, onQ
	}
	if e == 0 {
		onP = ClosestOnSegment(q1, p1, p2)
		return Dist(onP, q1), onP, q1
	}

	if d1.Cross(d2).Len() < 1 {
		// parallel: test the four endpoint projections
		best := math.Inf(1)
		try := func(p, q Vec3) {
			if d := Dist(p, q); d < best {
				best, onP, onQ = d, p, q
			}
		}
		try(p1, ClosestOnSegment(p1, q1, q2))
		try(p2, ClosestOnSegment(p2, q1, q2))
		try(ClosestOnSegment(q1, p1, p2), q1)
		try(ClosestOnSegment(q2, p1, p2), q2)
		return best, onP, onQ
	}

	c := d1.Dot(r)
	b := d1.Dot(d2)
	denom := a*e - b*b
	s := 0.0
	if denom != 0 {
		s = Clamp((b*f-c*e)/denom, 0, 1)
	}
	t := (b*s + f) / e
	switch {
	case t < 0:
		t = 0
		s = Clamp(-c/a, 0, 1)
	case t > 1:
		t = 1
		s = Clamp((b-c)/a, 0, 1)
	}
	onP = p1.Add(d1.Scale(s))
	onQ = q1.Add(d2.Scale(t))
	return Dist(onP, onQ), onP, onQ
}

// RayCylinder intersects a ray with an upright cylinder standing on foot.
// It returns the entry distance along dir (unit) within maxDist.
func RayCylinder(origin, dir, foot Vec3, height, radius, maxDist float64) (float64, bool) {
	ox, oy := origin.X-foot.X, origin.Y-foot.Y
	a := dir.X*dir.X + dir.Y*dir.Y
	if a < 1e-9 {
		// vertical ray
		if ox*ox+oy*oy > radius*radius {
			return 0, false
		}
		lo, hi := foot.Z, foot.Z+height
		if origin.Z >= lo && origin.Z <= hi {
			return 0, true
		}
		var t float64
		if dir.Z > 0 {
			t = lo - origin.Z
		} else {
			t = origin.Z - hi
		}
		if t < 0 || t > maxDist {
			return 0, false
		}
		return t, true
	}
	b := 2 * (ox*dir.X + oy*dir.Y)
	c := ox*ox + oy*oy - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	for _, t := range [2]float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if t < 0 || t > maxDist {
			continue
		}
		z := origin.Z + dir.Z*t
		if z >= foot.Z && z <= foot.Z+height {
			return t, true
		}
	}
	return 0, false
}
