// Package airplane extends the planar Dubins solver with an altitude channel.
//
// A path is the pair of a horizontal Dubins path in (x, y) and a vertical
// Dubins path in the (arc length, z) plane where pitch plays the role of
// heading. Two strategies are provided: Extended lengthens the horizontal
// path until the climb fits inside the pitch bounds, and Vana searches the
// split of curvature between the two channels.
package airplane

import (
	"fmt"
	"math"

	"github.com/banshee-data/viewplan/internal/dubins"
)

// Pose is a 3-D configuration. Heading and Pitch are in radians.
type Pose struct {
	X, Y, Z float64
	Heading float64
	Pitch   float64
}

// Horizontal projects the pose onto the (x, y) plane.
func (p Pose) Horizontal() dubins.Pose {
	return dubins.Pose{X: p.X, Y: p.Y, Heading: p.Heading}
}

// Bounds limits the flight path angle.
type Bounds struct {
	PitchMin float64
	PitchMax float64
}

// Validate checks that the bounds describe a dive below and a climb above
// level flight within (-π/2, π/2).
func (b Bounds) Validate() error {
	if !(b.PitchMin < 0 && b.PitchMin > -math.Pi/2) {
		return fmt.Errorf("airplane: pitch_min must be in (-π/2, 0), got %f", b.PitchMin)
	}
	if !(b.PitchMax > 0 && b.PitchMax < math.Pi/2) {
		return fmt.Errorf("airplane: pitch_max must be in (0, π/2), got %f", b.PitchMax)
	}
	return nil
}

// Case records how the altitude change was absorbed.
type Case uint8

const (
	CaseUnknown Case = iota
	// CaseLow needed no change to the horizontal path.
	CaseLow
	// CaseMedium inserted one extra turn.
	CaseMedium
	// CaseHigh added whole loops.
	CaseHigh
	// CaseDecoupled came from the radius search.
	CaseDecoupled
)

func (c Case) String() string {
	switch c {
	case CaseLow:
		return "low"
	case CaseMedium:
		return "medium"
	case CaseHigh:
		return "high"
	case CaseDecoupled:
		return "decoupled"
	}
	return "unknown"
}

// Path is a solved 3-D path.
//
// A, B, C and CStar are the horizontal maneuver lengths in the order of the
// Horizontal word, which has three letters or four when a medium-altitude
// turn was inserted (CStar is zero otherwise). D, E and F belong to the
// Vertical family. Degraded is set when the medium-altitude correction did
// not converge and the higher-cost high-altitude answer was used instead.
type Path struct {
	Start, End     Pose
	Radius         float64
	VerticalRadius float64

	A, B, C, CStar float64
	D, E, F        float64

	Horizontal string
	Vertical   dubins.Family

	Cost     float64
	Case     Case
	Degraded bool
}

// Feasible reports whether the path has a finite cost.
func (p Path) Feasible() bool {
	return !math.IsInf(p.Cost, 1) && !math.IsNaN(p.Cost)
}

// HorizontalLength is the length of the (x, y) projection.
func (p Path) HorizontalLength() float64 {
	return p.A + p.B + p.C + p.CStar
}

// HorizontalManeuvers expands the horizontal word into maneuvers. It
// returns nil for an unknown word.
func (p Path) HorizontalManeuvers() []dubins.Maneuver {
	lengths := [4]float64{p.A, p.B, p.C, p.CStar}
	if len(p.Horizontal) < 3 || len(p.Horizontal) > 4 {
		return nil
	}
	out := make([]dubins.Maneuver, 0, len(p.Horizontal))
	for i := 0; i < len(p.Horizontal); i++ {
		t, ok := dubins.TurnFromLetter(p.Horizontal[i])
		if !ok {
			return nil
		}
		out = append(out, dubins.Maneuver{Turn: t, Length: lengths[i]})
	}
	return out
}

// VerticalPath returns the (arc length, z) channel as a planar path.
func (p Path) VerticalPath() dubins.Path {
	return dubins.Path{
		Start:  dubins.Pose{X: 0, Y: p.Start.Z, Heading: p.Start.Pitch},
		End:    dubins.Pose{X: p.HorizontalLength(), Y: p.End.Z, Heading: p.End.Pitch},
		Radius: p.VerticalRadius,
		A:      p.D,
		B:      p.E,
		C:      p.F,
		Family: p.Vertical,
		Cost:   p.Cost,
	}
}

// Point samples the path at fraction t ∈ [0, 1] of its length. The
// vertical channel gives the travelled horizontal distance and altitude,
// the horizontal channel is traced to that distance.
func (p Path) Point(t float64) Pose {
	if !p.Feasible() {
		return p.Start
	}
	v := p.VerticalPath().Point(t)
	h := dubins.Trace(p.Start.Horizontal(), p.Radius, p.HorizontalManeuvers(), v.X)
	return Pose{X: h.X, Y: h.Y, Z: v.Y, Heading: h.Heading, Pitch: v.Heading}
}

// Solver computes 3-D paths. Implementations must be pure.
type Solver interface {
	Solve(start, end Pose, r float64, b Bounds) Path
}

func infeasible(start, end Pose, r float64, c Case) Path {
	return Path{
		Start:      start,
		End:        end,
		Radius:     r,
		Horizontal: dubins.Unknown.String(),
		Vertical:   dubins.Unknown,
		Cost:       math.Inf(1),
		Case:       c,
	}
}

// solveVertical fills the vertical channel of p for a horizontal length of
// p.HorizontalLength() at radius r.
func solveVertical(p Path, r float64) Path {
	v := dubins.Solve(
		dubins.Pose{X: 0, Y: p.Start.Z, Heading: p.Start.Pitch},
		dubins.Pose{X: p.HorizontalLength(), Y: p.End.Z, Heading: p.End.Pitch},
		r,
	)
	p.VerticalRadius = r
	p.D, p.E, p.F = v.A, v.B, v.C
	p.Vertical = v.Family
	p.Cost = v.Cost
	return p
}

func normalizeHeadings(start, end Pose) (Pose, Pose) {
	start.Heading = dubins.NormalizeAngle(start.Heading)
	end.Heading = dubins.NormalizeAngle(end.Heading)
	return start, end
}
