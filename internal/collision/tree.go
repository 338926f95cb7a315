package collision

import (
	"errors"
	"fmt"
	"math"

	"github.com/gunzgo/server/internal/geom"
)

// Epsilon is the tolerance used for every plane-side comparison.
const Epsilon = 0.1

// None marks an absent child.
const None = -1

// Plane is a normalized half-space boundary. Dist > 0 is the free side.
type Plane struct {
	N geom.Vec3
	D float64
}

func (p Plane) Dist(x geom.Vec3) float64 { return p.N.Dot(x) + p.D }

// NewPlane normalizes ax+by+cz+d=0.
func NewPlane(a, b, c, d float64) (Plane, error) {
	n := geom.V(a, b, c)
	l := n.Len()
	if l < 1e-9 || !n.Finite() {
		return Plane{}, errors.New("degenerate plane normal")
	}
	return Plane{N: n.Scale(1 / l), D: d / l}, nil
}

// Node is one arena entry. An internal node splits on Plane; a leaf has no
// children and is either solid or empty.
type Node struct {
	Plane Plane
	Pos   int
	Neg   int
	Solid bool
}

func (n *Node) IsLeaf() bool { return n.Pos == None && n.Neg == None }

// Tree is a plane arena addressed by index. A nil tree is open space.
type Tree struct {
	Nodes []Node
	Root  int
}

// RawNode is the authoring form used by content files.
type RawNode struct {
	A, B, C, D float64
	Pos, Neg   int
	Solid      bool
}

// FromNodes builds and validates a tree from raw authoring nodes. Node 0 is
// the root.
func FromNodes(raw []RawNode) (*Tree, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	t := &Tree{Nodes: make([]Node, len(raw))}
	for i, r := range raw {
		n := Node{Pos: r.Pos, Neg: r.Neg, Solid: r.Solid}
		if !n.IsLeaf() {
			p, err := NewPlane(r.A, r.B, r.C, r.D)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			n.Plane = p
		}
		t.Nodes[i] = n
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every child index is in range and greater than its
// parent's, which rules out cycles.
func (t *Tree) Validate() error {
	if t == nil {
		return nil
	}
	if t.Root < 0 || t.Root >= len(t.Nodes) {
		return fmt.Errorf("root %d out of range", t.Root)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		for _, c := range [2]int{n.Pos, n.Neg} {
			if c == None {
				continue
			}
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("node %d: bad child %d", i, c)
			}
		}
		if n.Pos == None && n.Neg != None || n.Pos != None && n.Neg == None {
			return fmt.Errorf("node %d: internal node needs both children", i)
		}
	}
	return nil
}

// Box is an axis-aligned solid volume.
type Box struct {
	Min, Max geom.Vec3
}

func comp(v geom.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func axisVec(axis int) geom.Vec3 {
	switch axis {
	case 0:
		return geom.V(1, 0, 0)
	case 1:
		return geom.V(0, 1, 0)
	}
	return geom.V(0, 0, 1)
}

// faces returns the six outward planes of b.
func (b Box) faces() [6]Plane {
	return [6]Plane{
		{N: geom.V(1, 0, 0), D: -b.Max.X},
		{N: geom.V(-1, 0, 0), D: b.Min.X},
		{N: geom.V(0, 1, 0), D: -b.Max.Y},
		{N: geom.V(0, -1, 0), D: b.Min.Y},
		{N: geom.V(0, 0, 1), D: -b.Max.Z},
		{N: geom.V(0, 0, -1), D: b.Min.Z},
	}
}

// FromBoxes builds a tree whose solid space is the union of boxes. Space is
// cut on box faces and every box is clipped to the cell it falls in, so each
// subtree hangs off a single parent.
func FromBoxes(boxes ...Box) *Tree {
	if len(boxes) == 0 {
		return nil
	}
	inf := math.Inf(1)
	t := &Tree{}
	t.Root = t.build(Box{Min: geom.V(-inf, -inf, -inf), Max: geom.V(inf, inf, inf)}, boxes)
	return t
}

func (t *Tree) alloc(n Node) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

// clip returns the part of b inside cell. Boxes that only touch the cell
// are dropped unless b is itself flat on that axis.
func (b Box) clip(cell Box) (Box, bool) {
	out := b
	for a := 0; a < 3; a++ {
		lo := max(comp(b.Min, a), comp(cell.Min, a))
		hi := min(comp(b.Max, a), comp(cell.Max, a))
		if hi < lo || hi == lo && comp(b.Max, a) > comp(b.Min, a) {
			return Box{}, false
		}
		setComp(&out.Min, a, lo)
		setComp(&out.Max, a, hi)
	}
	return out, true
}

func setComp(v *geom.Vec3, axis int, x float64) {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}

func (t *Tree) build(cell Box, boxes []Box) int {
	in := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		c, ok := b.clip(cell)
		if !ok {
			continue
		}
		if c == cell {
			return t.alloc(Node{Pos: None, Neg: None, Solid: true})
		}
		in = append(in, c)
	}
	switch len(in) {
	case 0:
		return t.alloc(Node{Pos: None, Neg: None})
	case 1:
		return t.buildBox(in[0], cell)
	}

	axis, split, ok := chooseSplit(cell, in)
	if !ok {
		return t.buildChain(in)
	}
	pos, neg := cell, cell
	setComp(&pos.Min, axis, split)
	setComp(&neg.Max, axis, split)

	idx := t.alloc(Node{Plane: Plane{N: axisVec(axis), D: -split}})
	p := t.build(pos, in)
	n := t.build(neg, in)
	t.Nodes[idx].Pos, t.Nodes[idx].Neg = p, n
	return idx
}

// chooseSplit picks the box face inside cell that cuts the fewest boxes,
// then the one that balances the two sides best.
func chooseSplit(cell Box, boxes []Box) (axis int, split float64, ok bool) {
	best := math.MaxInt
	for a := 0; a < 3; a++ {
		lo, hi := comp(cell.Min, a), comp(cell.Max, a)
		for _, cand := range boxes {
			for _, c := range [2]float64{comp(cand.Min, a), comp(cand.Max, a)} {
				if c <= lo || c >= hi {
					continue
				}
				var cut, neg, pos int
				for _, b := range boxes {
					bmin, bmax := comp(b.Min, a), comp(b.Max, a)
					switch {
					case bmin < c && bmax > c:
						cut++
					case bmax <= c:
						neg++
					default:
						pos++
					}
				}
				bal := neg - pos
				if bal < 0 {
					bal = -bal
				}
				if cost := 4*cut + bal; cost < best {
					best, axis, split, ok = cost, a, c, true
				}
			}
		}
	}
	return axis, split, ok
}

// buildBox emits the faces of b that lie inside cell as a chain: negative
// children lead deeper into the box, positive children to one empty leaf.
func (t *Tree) buildBox(b Box, cell Box) int {
	var faces []Plane
	for i, f := range b.faces() {
		a := i / 2
		if i%2 == 0 && comp(b.Max, a) >= comp(cell.Max, a) || i%2 == 1 && comp(b.Min, a) <= comp(cell.Min, a) {
			continue
		}
		faces = append(faces, f)
	}
	first := len(t.Nodes)
	for _, f := range faces {
		t.alloc(Node{Plane: f})
	}
	solid := t.alloc(Node{Pos: None, Neg: None, Solid: true})
	if len(faces) == 0 {
		return solid
	}
	empty := t.alloc(Node{Pos: None, Neg: None})
	for i := range faces {
		n := &t.Nodes[first+i]
		n.Pos = empty
		if i+1 < len(faces) {
			n.Neg = first + i + 1
		} else {
			n.Neg = solid
		}
	}
	return first
}

// buildChain nests one box after another through the positive side of
// every face. It is only reached for flat boxes lying on cell borders.
func (t *Tree) buildChain(boxes []Box) int {
	if len(boxes) == 0 {
		return t.alloc(Node{Pos: None, Neg: None})
	}
	faces := boxes[0].faces()
	first := len(t.Nodes)
	for _, f := range faces {
		t.alloc(Node{Plane: f})
	}
	solid := t.alloc(Node{Pos: None, Neg: None, Solid: true})
	rest := t.buildChain(boxes[1:])
	for i := range faces {
		n := &t.Nodes[first+i]
		n.Pos = rest
		if i+1 < len(faces) {
			n.Neg = first + i + 1
		} else {
			n.Neg = solid
		}
	}
	return first
}
