package airplane

import (
	"math"

	"github.com/banshee-data/viewplan/internal/dubins"
)

const approxZero = 1e-10

// Vana splits the curvature budget between the horizontal and vertical
// channels. For a scale b ≥ 1 the horizontal path uses radius r·b and the
// vertical path the radius rv with 1/r² = 1/(r·b)² + 1/rv², so the combined
// curvature never exceeds 1/r. The scale is searched for the cheapest path
// whose vertical maneuver respects the pitch bounds.
type Vana struct{}

// Solve implements Solver.
func (Vana) Solve(start, end Pose, r float64, b Bounds) Path {
	start, end = normalizeHeadings(start, end)
	if !(r > 0) || math.IsInf(r, 1) {
		return infeasible(start, end, r, CaseDecoupled)
	}

	scale := 2.0
	best := decoupled(start, end, r, scale)
	for i := 0; !pitchFeasible(best, b) && i < maxIterations; i++ {
		scale *= 2
		best = decoupled(start, end, r, scale)
	}
	if !pitchFeasible(best, b) {
		return infeasible(start, end, r, CaseDecoupled)
	}

	delta := 0.1
	for i := 0; i < maxIterations && math.Abs(delta) > approxZero; i++ {
		c := math.Max(1, scale+delta)
		candidate := decoupled(start, end, r, c)
		if pitchFeasible(candidate, b) && candidate.Cost < best.Cost {
			best = candidate
			scale = c
			delta *= 2
		} else {
			delta *= -0.5
		}
	}
	return best
}

// VerticalRadius returns the vertical radius coupled to a horizontal
// radius r·scale. It is +Inf for scale ≤ 1.
func VerticalRadius(r, scale float64) float64 {
	if scale <= 1 {
		return math.Inf(1)
	}
	rh := r * scale
	return 1 / math.Sqrt(1/(r*r)-1/(rh*rh))
}

func decoupled(start, end Pose, r, scale float64) Path {
	rh := r * scale
	rv := VerticalRadius(r, scale)
	xy := dubins.Solve(start.Horizontal(), end.Horizontal(), rh)
	if !xy.Feasible() || math.IsInf(rv, 1) || math.IsNaN(rv) {
		return infeasible(start, end, rh, CaseDecoupled)
	}
	p := Path{
		Start:      start,
		End:        end,
		Radius:     rh,
		A:          xy.A,
		B:          xy.B,
		C:          xy.C,
		Horizontal: xy.Family.String(),
		Case:       CaseDecoupled,
	}
	return solveVertical(p, rv)
}

// pitchFeasible rejects curve-curve-curve vertical words and words whose
// first turn carries the pitch past its bound.
func pitchFeasible(p Path, b Bounds) bool {
	if !p.Feasible() {
		return false
	}
	swing := p.D / p.VerticalRadius
	switch p.Vertical {
	case dubins.RSL, dubins.RSR:
		return p.Start.Pitch-swing > b.PitchMin
	case dubins.LSL, dubins.LSR:
		return p.Start.Pitch+swing < b.PitchMax
	}
	return false
}
