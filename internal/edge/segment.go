package edge

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/dubins"
	"github.com/banshee-data/viewplan/internal/model"
)

// CarSegment is a planar Dubins edge.
type CarSegment struct {
	Start, End model.Configuration
	Path       dubins.Path
}

func (s CarSegment) From() model.Configuration { return s.Start }
func (s CarSegment) To() model.Configuration   { return s.End }
func (s CarSegment) Length() float64           { return s.Path.Cost }

func (s CarSegment) Point(t float64) r3.Vec {
	p := s.Path.Point(t)
	return r3.Vec{X: p.X, Y: p.Y}
}

// AirplaneSegment is a 3-D edge.
type AirplaneSegment struct {
	Start, End model.Configuration
	Path       airplane.Path
}

func (s AirplaneSegment) From() model.Configuration { return s.Start }
func (s AirplaneSegment) To() model.Configuration   { return s.End }
func (s AirplaneSegment) Length() float64           { return s.Path.Cost }

func (s AirplaneSegment) Point(t float64) r3.Vec {
	p := s.Path.Point(t)
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Dwell is an edge decorated with a straight dwell leg leaving Start and a
// straight lead-in leg arriving at End. Dwell is the displacement of the
// first leg and Lead of the last one; either may be zero. Transition joins
// the end of the dwell leg to the start of the lead-in leg.
type Dwell struct {
	Start, End model.Configuration
	Dwell      r3.Vec
	Lead       r3.Vec
	Transition Segment
	Cost       float64
}

func (s Dwell) From() model.Configuration { return s.Start }
func (s Dwell) To() model.Configuration   { return s.End }
func (s Dwell) Length() float64           { return s.Cost }

// Point walks the dwell leg, the transition and the lead-in leg in order.
func (s Dwell) Point(t float64) r3.Vec {
	start := s.Start.Point()
	if math.IsInf(s.Cost, 1) || s.Cost <= 0 {
		return start
	}
	at := math.Max(0, math.Min(1, t)) * s.Cost

	dwell := r3.Norm(s.Dwell)
	if at <= dwell {
		return r3.Add(start, r3.Scale(at/dwell, s.Dwell))
	}
	at -= dwell

	transition := s.Transition.Length()
	if at <= transition {
		if transition == 0 {
			return s.Transition.Point(1)
		}
		return s.Transition.Point(at / transition)
	}
	at -= transition

	lead := r3.Norm(s.Lead)
	leadStart := r3.Sub(s.End.Point(), s.Lead)
	if lead == 0 {
		return s.End.Point()
	}
	return r3.Add(leadStart, r3.Scale(math.Min(1, at/lead), s.Lead))
}

// Degraded reports whether s, or the transition inside a decorated edge,
// fell back to the high-altitude solution after the medium-altitude search
// failed to converge.
func Degraded(s Segment) bool {
	switch s := s.(type) {
	case AirplaneSegment:
		return s.Path.Degraded
	case Dwell:
		return s.Transition != nil && Degraded(s.Transition)
	}
	return false
}
