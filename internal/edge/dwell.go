package edge

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/model"
)

// DwellStraight holds the start heading for Dwell metres before handing
// over to Inner. With Multiply set, a shared sample dwells once per group
// it covers.
type DwellStraight struct {
	Dwell    float64
	Multiply bool
	Inner    Solver
}

// EdgeCost implements Solver.
func (d DwellStraight) EdgeCost(a, b model.Configuration) float64 {
	v := dwellVector(a, d.Dwell, d.Multiply)
	return r3.Norm(v) + d.Inner.EdgeCost(a.Shifted(v), b)
}

// Edge implements Solver.
func (d DwellStraight) Edge(a, b model.Configuration) Segment {
	v := dwellVector(a, d.Dwell, d.Multiply)
	inner := d.Inner.Edge(a.Shifted(v), b)
	return Dwell{
		Start:      a,
		End:        b,
		Dwell:      v,
		Transition: inner,
		Cost:       r3.Norm(v) + inner.Length(),
	}
}

// Edges implements Solver.
func (d DwellStraight) Edges(tour []model.Configuration) []Segment {
	return edges(d, orient(d.Inner, tour))
}

// LeadInDwell adds to DwellStraight a straight approach of Lead metres
// along the end heading.
type LeadInDwell struct {
	Lead     float64
	Dwell    float64
	Multiply bool
	Inner    Solver
}

// EdgeCost implements Solver.
func (l LeadInDwell) EdgeCost(a, b model.Configuration) float64 {
	v := dwellVector(a, l.Dwell, l.Multiply)
	lead := r3.Scale(l.Lead, b.Direction())
	return r3.Norm(v) + l.Inner.EdgeCost(a.Shifted(v), b.Shifted(r3.Scale(-1, lead))) + r3.Norm(lead)
}

// Edge implements Solver.
func (l LeadInDwell) Edge(a, b model.Configuration) Segment {
	v := dwellVector(a, l.Dwell, l.Multiply)
	lead := r3.Scale(l.Lead, b.Direction())
	inner := l.Inner.Edge(a.Shifted(v), b.Shifted(r3.Scale(-1, lead)))
	return Dwell{
		Start:      a,
		End:        b,
		Dwell:      v,
		Lead:       lead,
		Transition: inner,
		Cost:       r3.Norm(v) + inner.Length() + r3.Norm(lead),
	}
}

// Edges implements Solver.
func (l LeadInDwell) Edges(tour []model.Configuration) []Segment {
	return edges(l, orient(l.Inner, tour))
}

func dwellVector(a model.Configuration, length float64, multiply bool) r3.Vec {
	if multiply && a.IsMulti() {
		length *= float64(len(a.Visits))
	}
	return r3.Scale(length, a.Direction())
}
