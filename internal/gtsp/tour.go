package gtsp

import (
	"fmt"
	"math"
	"slices"

	"github.com/banshee-data/viewplan/internal/model"
)

// mismatchTolerance is the relative disagreement allowed between the
// recomputed and the reported tour cost.
const mismatchTolerance = 0.01

// Tour is a decoded, validated closed tour.
type Tour struct {
	// Stops visits every group once; copies of a shared sample are merged
	// into one stop listing all covered groups in Visits.
	Stops []model.Configuration
	// Nodes is the raw engine permutation, 0-based.
	Nodes []int
	// Cost is recomputed from the exact edge costs.
	Cost float64
	// ReportedCost is the engine's length comment, or -1 if absent.
	ReportedCost int64
}

// Decode maps the engine permutation back to configurations and checks it.
// It fails with ErrSolverMismatch when a group is missing or repeated, when
// the tour uses a forbidden hop, or when the recomputed cost disagrees with
// the reported length by more than 1% (plus half a unit per hop for
// rounding).
func Decode(p *Problem, configs []model.Configuration, tf TourFile) (Tour, error) {
	if len(configs) != p.Size {
		return Tour{}, fmt.Errorf("gtsp: %d configurations for a problem of size %d", len(configs), p.Size)
	}
	if len(tf.Nodes) == 0 {
		return Tour{}, fmt.Errorf("%w: empty tour", ErrMalformedTour)
	}

	seen := make([]bool, len(p.Groups))
	for _, n := range tf.Nodes {
		if n < 0 || n >= p.Size {
			return Tour{}, fmt.Errorf("%w: node %d out of range", ErrMalformedTour, n+1)
		}
		k := p.Membership[n]
		if seen[k] {
			return Tour{}, fmt.Errorf("%w: group %d visited twice", ErrSolverMismatch, p.GroupIDs[k])
		}
		seen[k] = true
	}
	for k, ok := range seen {
		if !ok {
			return Tour{}, fmt.Errorf("%w: group %d not visited", ErrSolverMismatch, p.GroupIDs[k])
		}
	}

	t := Tour{
		Stops:        mergeShared(configs, tf.Nodes),
		Nodes:        slices.Clone(tf.Nodes),
		ReportedCost: -1,
	}
	if tf.HasLength {
		t.ReportedCost = tf.Length
	}
	// One shared sample covering every group needs no hop at all.
	if len(t.Stops) == 1 {
		return t, nil
	}

	n := len(tf.Nodes)
	var weight int64
	for i, to := range tf.Nodes {
		from := tf.Nodes[(i-1+n)%n]
		if p.Weights[from][to] >= p.Sentinel {
			return Tour{}, fmt.Errorf("%w: hop %d -> %d is forbidden", ErrSolverMismatch, from+1, to+1)
		}
		weight += p.Weights[from][to]
		t.Cost += p.Costs.At(from, to)
	}
	if math.IsInf(t.Cost, 1) || math.IsNaN(t.Cost) {
		return Tour{}, fmt.Errorf("%w: tour cost is not finite", ErrSolverMismatch)
	}

	if tf.HasLength {
		// The engine reports the weight of its tour in the written matrix,
		// which must match exactly.
		if tf.Length != weight {
			return Tour{}, fmt.Errorf("%w: tour weight %d, reported %d", ErrSolverMismatch, weight, tf.Length)
		}
		if math.Abs(t.Cost-float64(tf.Length)) > mismatchTolerance*t.Cost {
			return Tour{}, fmt.Errorf("%w: recomputed cost %.3f, reported %d", ErrSolverMismatch, t.Cost, tf.Length)
		}
	}
	return t, nil
}

// mergeShared collapses consecutive copies of one shared sample, including
// across the wrap from the last stop to the first.
func mergeShared(configs []model.Configuration, nodes []int) []model.Configuration {
	stops := make([]model.Configuration, 0, len(nodes))
	for _, n := range nodes {
		c := configs[n]
		if last := len(stops) - 1; last >= 0 && sameSample(stops[last], c) {
			stops[last] = stops[last].WithVisits(append([]int{c.Group}, c.Visits...)...)
			continue
		}
		stops = append(stops, c)
	}
	if last := len(stops) - 1; last > 0 && sameSample(stops[0], stops[last]) {
		stops[0] = stops[0].WithVisits(append([]int{stops[last].Group}, stops[last].Visits...)...)
		stops = stops[:last]
	}
	return stops
}

func sameSample(a, b model.Configuration) bool {
	return a.ID == b.ID && a.IsMulti() && b.IsMulti()
}
