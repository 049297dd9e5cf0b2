package edge

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/headings"
	"github.com/banshee-data/viewplan/internal/model"
)

var bounds = airplane.Bounds{PitchMin: -2 * math.Pi / 9, PitchMax: 2 * math.Pi / 9}

var approxVec = cmpopts.EquateApprox(0, 1e-9)

func TestCar_StraightLine(t *testing.T) {
	t.Parallel()

	a := model.New2D(0, 0, 0, 0, 0)
	b := model.New2D(1, 1, 4, 0, 0)
	s := Car{Radius: 1}

	assert.InDelta(t, 4, s.EdgeCost(a, b), 1e-9)
	seg := s.Edge(a, b)
	assert.InDelta(t, 4, seg.Length(), 1e-9)
	if diff := cmp.Diff(r3.Vec{X: 2}, seg.Point(0.5), approxVec); diff != "" {
		t.Errorf("midpoint mismatch (-want +got):\n%s", diff)
	}
}

func TestEdges_WrapsAround(t *testing.T) {
	t.Parallel()

	tour := []model.Configuration{
		model.New2D(0, 0, 0, 0, 0),
		model.New2D(1, 1, 100, 0, math.Pi/2),
		model.New2D(2, 2, 100, 100, math.Pi),
	}
	segs := Car{Radius: 10}.Edges(tour)

	require.Len(t, segs, 3)
	assert.Equal(t, tour[2], segs[0].From())
	assert.Equal(t, tour[0], segs[0].To())
	assert.Equal(t, tour[0], segs[1].From())
	assert.Equal(t, tour[2], segs[2].To())
	for _, seg := range segs {
		assert.False(t, math.IsInf(seg.Length(), 1))
	}
}

func TestAirplane_VanaScenario(t *testing.T) {
	t.Parallel()

	a := model.New3D(0, 0, 0, 0, 0, 0, 0)
	b := model.New3D(1, 1, 100, 100, 400, math.Pi/4, 0)
	s := Airplane{Radius: 50, Bounds: bounds, Geometry: airplane.Vana{}}

	cost := s.EdgeCost(a, b)
	require.False(t, math.IsInf(cost, 1))
	seg := s.Edge(a, b)
	assert.InDelta(t, cost, seg.Length(), 1e-12)
	end := seg.Point(1)
	assert.InDelta(t, 400, end.Z, 1e-3)
}

func TestDwellStraight(t *testing.T) {
	t.Parallel()

	a := model.New2D(0, 0, 0, 0, 0)
	b := model.New2D(1, 1, 20, 0, 0)
	s := DwellStraight{Dwell: 3, Inner: Car{Radius: 1}}

	assert.InDelta(t, 20, s.EdgeCost(a, b), 1e-9)

	seg, ok := s.Edge(a, b).(Dwell)
	require.True(t, ok)
	assert.InDelta(t, 20, seg.Length(), 1e-9)
	if diff := cmp.Diff(r3.Vec{X: 3}, seg.Dwell, approxVec); diff != "" {
		t.Errorf("dwell mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(r3.Vec{X: 3}, seg.Point(0.15), approxVec); diff != "" {
		t.Errorf("end of dwell mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(r3.Vec{X: 20}, seg.Point(1), approxVec); diff != "" {
		t.Errorf("end mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, a, seg.From(), "the segment starts at the unshifted stop")
}

func TestDwellStraight_MultiplyByVisits(t *testing.T) {
	t.Parallel()

	a := model.New2D(0, 0, 0, 0, math.Pi/2).WithVisits(4)
	b := model.New2D(1, 1, 0, 50, math.Pi/2)
	s := DwellStraight{Dwell: 3, Multiply: true, Inner: Car{Radius: 1}}

	seg := s.Edge(a, b).(Dwell)
	if diff := cmp.Diff(r3.Vec{Y: 6}, seg.Dwell, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("dwell mismatch (-want +got):\n%s", diff)
	}

	plain := DwellStraight{Dwell: 3, Inner: Car{Radius: 1}}.Edge(a, b).(Dwell)
	assert.InDelta(t, 3, r3.Norm(plain.Dwell), 1e-12)
}

func TestLeadInDwell(t *testing.T) {
	t.Parallel()

	a := model.New3D(0, 0, 0, 0, 100, 0, 0)
	b := model.New3D(1, 1, 400, 0, 100, 0, 0)
	s := LeadInDwell{Lead: 5, Dwell: 3, Inner: Airplane{Radius: 20, Bounds: bounds, Geometry: airplane.Extended{}}}

	assert.InDelta(t, 400, s.EdgeCost(a, b), 1e-6)

	seg := s.Edge(a, b).(Dwell)
	if diff := cmp.Diff(r3.Vec{X: 5}, seg.Lead, approxVec); diff != "" {
		t.Errorf("lead mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 392, seg.Transition.Length(), 1e-6)
	assert.InDelta(t, 3, seg.Transition.From().X, 1e-12)
	assert.InDelta(t, 395, seg.Transition.To().X, 1e-12)

	last := seg.Point(1)
	assert.InDelta(t, 400, last.X, 1e-9)
	assert.InDelta(t, 100, last.Z, 1e-9)

	// 1.5m into the dwell and 2.5m into the lead-in.
	if diff := cmp.Diff(r3.Vec{X: 1.5, Z: 100}, seg.Point(1.5/400), approxVec); diff != "" {
		t.Errorf("dwell point mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(r3.Vec{X: 397.5, Z: 100}, seg.Point(397.5/400), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("lead-in point mismatch (-want +got):\n%s", diff)
	}
}

func TestDwell_InfeasiblePointStaysAtStart(t *testing.T) {
	t.Parallel()

	a := model.New3D(0, 0, 0, 0, 0, 0, 0)
	b := model.New3D(1, 1, 0, 0, 400, 0, 0)
	s := DwellStraight{Inner: Airplane{Radius: 50, Bounds: bounds, Geometry: airplane.Vana{}}}

	seg := s.Edge(a, b)
	assert.True(t, math.IsInf(seg.Length(), 1))
	assert.Equal(t, a.Point(), seg.Point(0.5))
}

func TestHeuristic_EdgeCost(t *testing.T) {
	t.Parallel()

	h := Heuristic{Airplane: Airplane{Radius: 10, Bounds: airplane.Bounds{PitchMin: -math.Pi / 9, PitchMax: math.Pi / 9}}}
	a := model.New3D(0, 0, 0, 0, 0, 0, 0)

	flat := model.New3D(1, 1, 3, 4, 0, 0, 0)
	assert.Equal(t, 5.0, h.EdgeCost(a, flat))

	up := model.New3D(2, 2, 100, 0, 100, 0, 0)
	assert.Equal(t, math.Ceil(100/math.Sin(math.Pi/9)), h.EdgeCost(a, up))
	assert.Equal(t, h.EdgeCost(a, up), h.EdgeCost(up, a))
}

func TestHeuristic_EdgesAssignHeadings(t *testing.T) {
	t.Parallel()

	h := Heuristic{
		Airplane: Airplane{Radius: 10, Bounds: bounds, Geometry: airplane.Vana{}},
		Headings: headings.Alternating{},
	}
	tour := []model.Configuration{
		model.New3D(0, 0, 0, 0, 0, 2, 0),
		model.New3D(1, 1, 1000, 0, 0, 2, 0),
	}
	segs := h.Edges(tour)

	require.Len(t, segs, 2)
	assert.InDelta(t, 0, segs[1].From().Heading, 1e-12)
	assert.InDelta(t, 0, segs[1].To().Heading, 1e-12)
	assert.InDelta(t, 1000, segs[1].Length(), 1e-6)
}

func TestDwellStraight_OrientsHeuristicTour(t *testing.T) {
	t.Parallel()

	d := DwellStraight{
		Dwell: 5,
		Inner: Heuristic{
			Airplane: Airplane{Radius: 10, Bounds: bounds, Geometry: airplane.Vana{}},
			Headings: headings.Alternating{},
		},
	}
	tour := []model.Configuration{
		model.New3D(0, 0, 0, 0, 0, 2, 0),
		model.New3D(1, 1, 1000, 0, 0, 2, 0),
	}
	segs := d.Edges(tour)

	require.Len(t, segs, 2)
	dw, ok := segs[1].(Dwell)
	require.True(t, ok)
	assert.InDelta(t, 0, dw.Start.Heading, 1e-12)
	if diff := cmp.Diff(r3.Vec{X: 5}, dw.Dwell, approxVec); diff != "" {
		t.Errorf("dwell mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1000, dw.Length(), 1e-6)
}

func TestDegraded(t *testing.T) {
	t.Parallel()

	degraded := AirplaneSegment{Path: airplane.Path{Degraded: true}}
	assert.True(t, Degraded(degraded))
	assert.True(t, Degraded(Dwell{Transition: degraded}))
	assert.False(t, Degraded(Dwell{Transition: AirplaneSegment{}}))
	assert.False(t, Degraded(Dwell{}))
	assert.False(t, Degraded(CarSegment{}))
}

type countingSolver struct {
	Car
	calls atomic.Int64
}

func (c *countingSolver) EdgeCost(a, b model.Configuration) float64 {
	c.calls.Add(1)
	return c.Car.EdgeCost(a, b)
}

func TestCached(t *testing.T) {
	t.Parallel()

	inner := &countingSolver{Car: Car{Radius: 1}}
	c, err := NewCached(inner, 16)
	require.NoError(t, err)

	a := model.New2D(0, 0, 0, 0, 0)
	b := model.New2D(1, 1, 4, 0, 0)

	assert.InDelta(t, 4, c.EdgeCost(a, b), 1e-9)
	assert.InDelta(t, 4, c.EdgeCost(a, b), 1e-9)
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	c.EdgeCost(a, b)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestNewCached_InvalidSize(t *testing.T) {
	t.Parallel()

	_, err := NewCached(Car{Radius: 1}, 0)
	assert.Error(t, err)
}

func TestNewSolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy config.EdgeStrategy
		want     Solver
	}{
		{name: "car", strategy: config.EdgeStrategy{Type: config.EdgeDubinsCar}, want: Car{}},
		{name: "vana", strategy: config.EdgeStrategy{Type: config.EdgeVanaAirplane}, want: Airplane{}},
		{name: "extended", strategy: config.EdgeStrategy{Type: config.EdgeModifiedAirplane, Modification: config.ModificationNone}, want: Airplane{}},
		{name: "heuristic", strategy: config.EdgeStrategy{Type: config.EdgeHeuristic}, want: Heuristic{}},
		{name: "dwell", strategy: config.EdgeStrategy{Type: config.EdgeDubinsCar, Modification: config.ModificationDwell, Dwell: 2}, want: DwellStraight{}},
		{name: "lead", strategy: config.EdgeStrategy{Type: config.EdgeVanaAirplane, Modification: config.ModificationLeadInDwell, Lead: 2}, want: LeadInDwell{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSolver(tt.strategy, 10, bounds)
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}

	_, err := NewSolver(config.EdgeStrategy{Type: "boat"}, 10, bounds)
	assert.Error(t, err)
	_, err = NewSolver(config.EdgeStrategy{Type: config.EdgeDubinsCar, Modification: "hover"}, 10, bounds)
	assert.Error(t, err)
	_, err = NewSolver(config.EdgeStrategy{Type: config.EdgeHeuristic, Headings: "spiral"}, 10, bounds)
	assert.Error(t, err)
}
