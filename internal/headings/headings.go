// Package headings assigns headings and pitches to an ordered tour of
// positions, turning a Euclidean tour into a Dubins tour.
package headings

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/model"
)

// Strategy assigns orientations to a cyclic tour. Implementations return a
// new slice and leave the input untouched.
type Strategy interface {
	Assign(tour []model.Configuration, b airplane.Bounds, r float64) []model.Configuration
}

// New returns the strategy registered under name: "alternating",
// "angle_bisector" or "alternating_bisector".
func New(name string) (Strategy, error) {
	switch name {
	case "alternating":
		return Alternating{}, nil
	case "angle_bisector":
		return AngleBisector{}, nil
	case "alternating_bisector":
		return AlternatingBisector{}, nil
	}
	return nil, fmt.Errorf("headings: unknown strategy %q", name)
}

// Alternating pairs consecutive stops (0,1), (2,3), ... and points both
// stops of a pair along the segment joining them, so every other edge is a
// straight line. With an odd number of stops the last one follows the
// direction from its predecessor.
type Alternating struct{}

// Assign implements Strategy.
func (Alternating) Assign(tour []model.Configuration, b airplane.Bounds, r float64) []model.Configuration {
	out := clone(tour)
	n := len(out)
	for i := 0; i+1 < n; i += 2 {
		orientPair(out, i, i+1, b)
	}
	if n%2 == 1 && n > 1 {
		theta, phi := angles(r3.Sub(out[n-1].Point(), out[n-2].Point()))
		out[n-1].Heading = theta
		out[n-1].Pitch = clip(phi, b)
	}
	return out
}

// AngleBisector points every stop along the bisector of its incoming and
// outgoing legs.
type AngleBisector struct{}

// Assign implements Strategy.
func (AngleBisector) Assign(tour []model.Configuration, b airplane.Bounds, r float64) []model.Configuration {
	out := clone(tour)
	bisect(tour, out, b)
	return out
}

// AlternatingBisector starts from the bisector headings and then aligns
// both ends of any leg shorter than four turn radii with that leg. A stop
// aligned this way is not reused as the start of the next aligned leg.
type AlternatingBisector struct{}

// Assign implements Strategy.
func (AlternatingBisector) Assign(tour []model.Configuration, b airplane.Bounds, r float64) []model.Configuration {
	out := clone(tour)
	bisect(tour, out, b)
	n := len(out)
	if n < 2 {
		return out
	}
	paired := false
	for i := 0; i < n; i++ {
		if paired {
			paired = false
			continue
		}
		prev := (i - 1 + n) % n
		if r3.Norm(r3.Sub(out[i].Point(), out[prev].Point())) <= 4*r {
			orientPair(out, prev, i, b)
			paired = true
		}
	}
	return out
}

func bisect(src, dst []model.Configuration, b airplane.Bounds) {
	n := len(src)
	if n < 2 {
		return
	}
	for i := range src {
		prev := src[(i-1+n)%n].Point()
		cur := src[i].Point()
		next := src[(i+1)%n].Point()
		in := r3.Sub(cur, prev)
		outLeg := r3.Sub(next, cur)

		thetaIn, phiIn := angles(in)
		thetaOut, phiOut := angles(outLeg)
		heading := math.Mod((thetaIn+thetaOut)/2+2*math.Pi, 2*math.Pi)
		sh, ch := math.Sincos(heading)
		if sh*in.Y+ch*in.X < 0 && sh*outLeg.Y+ch*outLeg.X < 0 {
			heading = math.Mod(heading+math.Pi, 2*math.Pi)
		}
		dst[i].Heading = heading
		dst[i].Pitch = clip((phiIn+phiOut)/2, b)
	}
}

func orientPair(out []model.Configuration, from, to int, b airplane.Bounds) {
	theta, phi := angles(r3.Sub(out[to].Point(), out[from].Point()))
	theta = math.Mod(theta+2*math.Pi, 2*math.Pi)
	phi = clip(phi, b)
	out[from].Heading, out[from].Pitch = theta, phi
	out[to].Heading, out[to].Pitch = theta, phi
}

// angles returns the heading and the pitch of v. The pitch is in
// [-π/2, π/2].
func angles(v r3.Vec) (theta, phi float64) {
	return math.Atan2(v.Y, v.X), math.Atan2(v.Z, math.Hypot(v.X, v.Y))
}

func clip(phi float64, b airplane.Bounds) float64 {
	return math.Max(b.PitchMin, math.Min(b.PitchMax, phi))
}

func clone(tour []model.Configuration) []model.Configuration {
	out := make([]model.Configuration, len(tour))
	copy(out, tour)
	return out
}
