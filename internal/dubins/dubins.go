// Package dubins computes shortest paths for a planar vehicle with a minimum
// turn radius (the Dubins car).
//
// The solver normalizes the problem so that the start pose sits at the
// origin heading along +X with a unit turn radius, evaluates the four
// curve-straight-curve and the two curve-curve-curve words in closed form and
// keeps the cheapest word whose reconstructed endpoint lands on the target.
// All functions are pure and safe for concurrent use.
package dubins

import "math"

const (
	twoPi = 2 * math.Pi

	// compareTolerance bounds the squared endpoint error of a root.
	compareTolerance = 1e-6

	// angleSnap folds angles within this distance of 2π back to zero so a
	// rounding error never turns into a full loop.
	angleSnap = 1e-9
)

// Path is a solved Dubins path. A, B and C are the lengths of the three
// maneuvers of Family, already scaled by Radius. Cost is +Inf when no word
// connects the endpoints.
type Path struct {
	Start, End Pose
	Radius     float64
	A, B, C    float64
	Family     Family
	Cost       float64
}

// Feasible reports whether the path has a finite cost.
func (p Path) Feasible() bool {
	return !math.IsInf(p.Cost, 1) && !math.IsNaN(p.Cost)
}

// Maneuvers expands the path into its three pieces.
func (p Path) Maneuvers() []Maneuver {
	t := p.Family.Turns()
	return []Maneuver{
		{Turn: t[0], Length: p.A},
		{Turn: t[1], Length: p.B},
		{Turn: t[2], Length: p.C},
	}
}

// Point returns the pose at fraction t ∈ [0, 1] of the path length.
func (p Path) Point(t float64) Pose {
	if !p.Feasible() {
		return p.Start
	}
	return Trace(p.Start, p.Radius, p.Maneuvers(), t*p.Cost)
}

// Endpoint reconstructs the final pose from the segment lengths.
func (p Path) Endpoint() Pose {
	return p.Point(1)
}

// Solve returns the shortest path from start to end with turn radius r.
// The result has Family Unknown and an infinite cost when r is not a
// positive finite number or no word is feasible.
func Solve(start, end Pose, r float64) Path {
	best := infeasible(start, end, r)
	if !validRadius(r) {
		return best
	}
	n := normalize(start, end, r)
	for _, f := range Families {
		w := n.solve(f)
		if w.ok && w.cost()*r < best.Cost {
			best = w.path(start, end, r, f)
		}
	}
	return best
}

// SolveFamily returns the shortest path of a single word. Infeasible words
// produce an infinite cost and Family Unknown.
func SolveFamily(start, end Pose, r float64, f Family) Path {
	if !validRadius(r) {
		return infeasible(start, end, r)
	}
	w := normalize(start, end, r).solve(f)
	if !w.ok {
		return infeasible(start, end, r)
	}
	return w.path(start, end, r, f)
}

func validRadius(r float64) bool {
	return r > 0 && !math.IsInf(r, 1)
}

func infeasible(start, end Pose, r float64) Path {
	return Path{Start: start, End: end, Radius: r, Family: Unknown, Cost: math.Inf(1)}
}

// wrap maps a onto [0, 2π) and snaps values next to 2π to zero.
func wrap(a float64) float64 {
	v := mod(a, twoPi)
	if twoPi-v < angleSnap {
		return 0
	}
	return v
}

type word struct {
	a, b, c float64
	ok      bool
}

func (w word) cost() float64 {
	if !w.ok {
		return math.Inf(1)
	}
	return w.a + w.b + w.c
}

func (w word) path(start, end Pose, r float64, f Family) Path {
	return Path{
		Start:  start,
		End:    end,
		Radius: r,
		A:      w.a * r,
		B:      w.b * r,
		C:      w.c * r,
		Family: f,
		Cost:   w.cost() * r,
	}
}

// normalized is the target pose after moving the start to the origin,
// rotating it onto +X and scaling the radius to one.
type normalized struct {
	x, y, h float64
	sh, ch  float64
}

func normalize(start, end Pose, r float64) normalized {
	dx := (end.X - start.X) / r
	dy := (end.Y - start.Y) / r
	s, c := math.Sincos(start.Heading)
	n := normalized{
		x: dx*c + dy*s,
		y: -dx*s + dy*c,
		h: wrap(end.Heading - start.Heading),
	}
	n.sh, n.ch = math.Sincos(n.h)
	return n
}

func (n normalized) solve(f Family) word {
	switch f {
	case LSL:
		return n.lsl()
	case LSR:
		return n.lsr()
	case RSL:
		return n.rsl()
	case RSR:
		return n.rsr()
	case LRL:
		return n.lrl()
	case RLR:
		return n.rlr()
	}
	return word{}
}

// consider keeps (a, b, c) in best when it reaches the target and is
// cheaper than the current root.
func (n normalized) consider(best *word, f Family, a, b, c float64) {
	if !n.reaches(f, a, b, c) {
		return
	}
	if !best.ok || a+b+c < best.cost() {
		*best = word{a: a, b: b, c: c, ok: true}
	}
}

func (n normalized) reaches(f Family, a, b, c float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsNaN(c) || b < 0 {
		return false
	}
	t := f.Turns()
	p := Advance(Pose{}, t[0], a, 1)
	p = Advance(p, t[1], b, 1)
	p = Advance(p, t[2], c, 1)
	dx := p.X - n.x
	dy := p.Y - n.y
	dh := math.Remainder(p.Heading-n.h, twoPi)
	return dx*dx+dy*dy+dh*dh < compareTolerance
}

func (n normalized) lsl() word {
	var w word
	dx := n.x - n.sh
	dy := n.y + n.ch - 1
	b := math.Sqrt(dx*dx + dy*dy)
	a0 := math.Atan2(dy, dx)
	for _, a := range [2]float64{wrap(a0), wrap(a0 + math.Pi)} {
		n.consider(&w, LSL, a, b, wrap(n.h-a))
	}
	return w
}

func (n normalized) lsr() word {
	var w word
	dx := n.x + n.sh
	dy := n.y - n.ch - 1
	b2 := dx*dx + dy*dy - 4
	if !(b2 >= 0) {
		return w
	}
	b := math.Sqrt(b2)
	a0 := math.Atan2(2*dx+b*dy, b*dx-2*dy)
	for _, a := range [2]float64{wrap(a0), wrap(a0 + math.Pi)} {
		n.consider(&w, LSR, a, b, wrap(a-n.h))
	}
	return w
}

func (n normalized) rsl() word {
	var w word
	dx := n.x - n.sh
	dy := n.y + n.ch + 1
	b2 := dx*dx + dy*dy - 4
	if !(b2 >= 0) {
		return w
	}
	b := math.Sqrt(b2)
	a0 := math.Atan2(2*dx-b*dy, b*dx+2*dy)
	for _, a := range [2]float64{wrap(a0), wrap(a0 + math.Pi)} {
		n.consider(&w, RSL, a, b, wrap(a+n.h))
	}
	return w
}

func (n normalized) rsr() word {
	var w word
	dx := n.x + n.sh
	dy := n.y - n.ch + 1
	b := math.Sqrt(dx*dx + dy*dy)
	a0 := math.Atan2(-dy, dx)
	for _, a := range [2]float64{wrap(a0), wrap(a0 + math.Pi)} {
		n.consider(&w, RSR, a, b, wrap(-n.h-a))
	}
	return w
}

func (n normalized) lrl() word {
	v := (n.x - n.sh) / 2
	u := (n.y - 1 + n.ch) / 2
	return n.ccc(LRL, v, u, func(a, b float64) float64 { return wrap(b - a + n.h) })
}

func (n normalized) rlr() word {
	v := (n.x + n.sh) / 2
	u := (-n.y - 1 + n.ch) / 2
	return n.ccc(RLR, v, u, func(a, b float64) float64 { return wrap(b - a - n.h) })
}

// ccc solves the two curve-curve-curve words. (v, u) is half the vector
// between the first and last turn centers in the word's own frame.
func (n normalized) ccc(f Family, v, u float64, third func(a, b float64) float64) word {
	var w word
	t := 1 - (v*v+u*u)/2
	if !(t >= -1 && t <= 1) {
		return w
	}
	b0 := math.Acos(t)
	for _, b := range [2]float64{b0, twoPi - b0} {
		sb, cb := math.Sincos(b)
		den := 1 - cb
		if den < 1e-12 {
			continue
		}
		A := (v*v - u*u) / (2 * den)
		B := v * u / den
		a0 := 0.5 * math.Atan2(B*cb+A*sb, A*cb-B*sb)
		if math.IsNaN(a0) {
			continue
		}
		for k := 0; k < 4; k++ {
			a := wrap(a0 + float64(k)*math.Pi/2)
			c := third(a, b)
			if math.Max(a, c) < b && math.Min(a, c) < b+math.Pi {
				n.consider(&w, f, a, b, c)
			}
		}
	}
	return w
}
