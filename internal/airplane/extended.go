package airplane

import (
	"math"

	"github.com/banshee-data/viewplan/internal/dubins"
	"github.com/banshee-data/viewplan/internal/monitoring"
)

const (
	pathError     = 1e-3
	learningRate  = 0.1
	maxIterations = 1000

	// cscSeparation is the horizontal distance, in radii, beyond which the
	// planar optimum is a curve-straight-curve word.
	cscSeparation = 6
)

// Extended lengthens the planar Dubins path until the altitude change fits
// inside the pitch bounds, then solves the vertical channel with the same
// radius.
type Extended struct{}

// Solve implements Solver.
func (Extended) Solve(start, end Pose, r float64, b Bounds) Path {
	start, end = normalizeHeadings(start, end)
	xy := dubins.Solve(start.Horizontal(), end.Horizontal(), r)
	if !xy.Feasible() {
		return infeasible(start, end, r, CaseUnknown)
	}

	p := Path{
		Start:      start,
		End:        end,
		Radius:     r,
		A:          xy.A,
		B:          xy.B,
		C:          xy.C,
		Horizontal: xy.Family.String(),
		Case:       CaseLow,
	}

	dz := end.Z - start.Z
	angle := b.PitchMin
	if dz > 0 {
		angle = b.PitchMax
	}
	minLength := dz / math.Tan(angle)
	if math.IsNaN(minLength) || math.IsInf(minLength, 0) {
		return infeasible(start, end, r, CaseUnknown)
	}
	diff := minLength - xy.Cost
	separation := math.Hypot(end.X-start.X, end.Y-start.Y)

	switch {
	case diff <= 0:
	case diff < 2*math.Pi*r && !xy.Family.IsCCC() && separation >= cscSeparation*r:
		if medium, ok := insertTurn(xy, start, end, r, minLength, dz > 0); ok {
			p = medium
			break
		}
		monitoring.Logf("warn: medium altitude correction did not converge for %v -> %v, using high altitude loops", start, end)
		p = addLoops(p, minLength, r)
		p.Degraded = true
	default:
		p = addLoops(p, minLength, r)
	}

	return solveVertical(p, r)
}

// addLoops grows the last turn by whole circles until the horizontal path
// is at least minLength long.
func addLoops(p Path, minLength, r float64) Path {
	loop := 2 * math.Pi * r
	length := p.HorizontalLength()
	if minLength > length {
		n := math.Ceil((minLength - length) / loop)
		p.C += n * loop
		length += n * loop
		for length < minLength {
			p.C += loop
			length += loop
		}
	}
	p.Case = CaseHigh
	return p
}

// insertTurn adds one turn of arc ψ at the start when climbing or at the end
// when diving, turning opposite to the neighbouring maneuver, and adjusts ψ
// until the horizontal length matches minLength.
func insertTurn(xy dubins.Path, start, end Pose, r, minLength float64, climbing bool) (Path, bool) {
	turns := xy.Family.Turns()
	s := start.Horizontal()
	e := end.Horizontal()

	var inserted dubins.Turn
	solve := func(psi float64) dubins.Path {
		if climbing {
			exit := dubins.Advance(s, inserted, r*psi, r)
			return dubins.SolveFamily(exit, e, r, xy.Family)
		}
		entry := dubins.Advance(e, inserted, -r*psi, r)
		return dubins.SolveFamily(s, entry, r, xy.Family)
	}
	if climbing {
		inserted = turns[0].Opposite()
	} else {
		inserted = turns[2].Opposite()
	}

	psi := math.Pi
	for i := 0; i < maxIterations; i++ {
		edge := solve(psi)
		if !edge.Feasible() {
			return Path{}, false
		}
		err := edge.Cost + r*psi - minLength
		if math.Abs(err) <= pathError {
			return mediumPath(edge, start, end, r, psi, inserted, climbing), true
		}
		psi -= err / r * learningRate
		if !(psi >= 0 && psi <= 2*math.Pi) {
			return Path{}, false
		}
	}
	return Path{}, false
}

func mediumPath(edge dubins.Path, start, end Pose, r, psi float64, inserted dubins.Turn, climbing bool) Path {
	p := Path{
		Start:  start,
		End:    end,
		Radius: r,
		Case:   CaseMedium,
	}
	arc := r * psi
	if climbing {
		p.A, p.B, p.C, p.CStar = arc, edge.A, edge.B, edge.C
		p.Horizontal = inserted.String() + edge.Family.String()
	} else {
		p.A, p.B, p.C, p.CStar = edge.A, edge.B, edge.C, arc
		p.Horizontal = edge.Family.String() + inserted.String()
	}
	return p
}
