// Package edge turns pairs of configurations into flyable segments and
// their costs. Concrete solvers wrap the planar and 3-D geometry; the
// decorators add straight dwell and lead-in legs around a stop.
package edge

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/dubins"
	"github.com/banshee-data/viewplan/internal/headings"
	"github.com/banshee-data/viewplan/internal/model"
)

// Solver computes edges between configurations. EdgeCost is +Inf when no
// feasible maneuver connects a to b. Implementations must be safe for
// concurrent use.
type Solver interface {
	EdgeCost(a, b model.Configuration) float64
	Edge(a, b model.Configuration) Segment
	Edges(tour []model.Configuration) []Segment
}

// Segment is a materialized edge. Length is +Inf for an infeasible edge and
// Point samples the path at fraction t ∈ [0, 1] of its length.
type Segment interface {
	From() model.Configuration
	To() model.Configuration
	Length() float64
	Point(t float64) r3.Vec
}

// edges returns the segments of the closed tour: the first one joins the
// last stop to the first.
func edges(s Solver, tour []model.Configuration) []Segment {
	out := make([]Segment, 0, len(tour))
	for i := range tour {
		prev := tour[(i-1+len(tour))%len(tour)]
		out = append(out, s.Edge(prev, tour[i]))
	}
	return out
}

// Car connects planar configurations with Dubins paths.
type Car struct {
	Radius float64
}

// EdgeCost implements Solver.
func (c Car) EdgeCost(a, b model.Configuration) float64 {
	return dubins.Solve(a.Pose2(), b.Pose2(), c.Radius).Cost
}

// Edge implements Solver.
func (c Car) Edge(a, b model.Configuration) Segment {
	return CarSegment{Start: a, End: b, Path: dubins.Solve(a.Pose2(), b.Pose2(), c.Radius)}
}

// Edges implements Solver.
func (c Car) Edges(tour []model.Configuration) []Segment {
	return edges(c, tour)
}

// Airplane connects 3-D configurations with the given geometry.
type Airplane struct {
	Radius   float64
	Bounds   airplane.Bounds
	Geometry airplane.Solver
}

// EdgeCost implements Solver.
func (p Airplane) EdgeCost(a, b model.Configuration) float64 {
	return p.Geometry.Solve(a.Pose3(), b.Pose3(), p.Radius, p.Bounds).Cost
}

// Edge implements Solver.
func (p Airplane) Edge(a, b model.Configuration) Segment {
	return AirplaneSegment{Start: a, End: b, Path: p.Geometry.Solve(a.Pose3(), b.Pose3(), p.Radius, p.Bounds)}
}

// Edges implements Solver.
func (p Airplane) Edges(tour []model.Configuration) []Segment {
	return edges(p, tour)
}

// Heuristic prices an edge by a lower bound on the climb-limited straight
// distance, ignoring headings. It is used to order positions before any
// orientation is chosen; Edges assigns headings to the tour with Headings
// and then flies it with Airplane.
type Heuristic struct {
	Airplane
	Headings headings.Strategy
}

// EdgeCost implements Solver.
func (h Heuristic) EdgeCost(a, b model.Configuration) float64 {
	d := r3.Sub(b.Point(), a.Point())
	climb := 0.0
	switch {
	case d.Z > 0:
		climb = d.Z / math.Sin(h.Bounds.PitchMax)
	case d.Z < 0:
		climb = d.Z / math.Sin(h.Bounds.PitchMin)
	}
	return math.Ceil(math.Max(math.Abs(climb), r3.Norm(d)))
}

// Orient returns tour with headings and pitches chosen by Headings.
func (h Heuristic) Orient(tour []model.Configuration) []model.Configuration {
	if h.Headings == nil {
		return tour
	}
	return h.Headings.Assign(tour, h.Bounds, h.Radius)
}

// Edges implements Solver.
func (h Heuristic) Edges(tour []model.Configuration) []Segment {
	return edges(h.Airplane, h.Orient(tour))
}

// orienter is implemented by solvers that choose the orientation of the
// stops themselves before flying a tour.
type orienter interface {
	Orient(tour []model.Configuration) []model.Configuration
}

func orient(s Solver, tour []model.Configuration) []model.Configuration {
	if o, ok := s.(orienter); ok {
		return o.Orient(tour)
	}
	return tour
}
