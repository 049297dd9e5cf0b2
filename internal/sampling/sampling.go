// Package sampling turns visibility regions into candidate configurations.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/model"
)

// ErrSamplingIncomplete is returned when a region produced no configuration.
var ErrSamplingIncomplete = errors.New("sampling: regions without samples")

// coincident is the distance under which two sampled points are the same.
const coincident = 1e-4

// Region is one visibility volume reduced to its reference points.
// Configurations sampled from the i-th region of a slice get Group i.
type Region struct {
	ID     int
	Points []r3.Vec
}

// RegionsFromConfig converts region configs, keeping their order.
func RegionsFromConfig(rcs []config.RegionConfig) []Region {
	out := make([]Region, len(rcs))
	for i, rc := range rcs {
		out[i].ID = rc.ID
		for _, p := range rc.Points {
			out[i].Points = append(out[i].Points, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
		}
	}
	return out
}

// Sampler produces configurations for a set of regions.
type Sampler interface {
	Sample(ctx context.Context, regions []Region) ([]model.Configuration, error)
}

// PointSampler samples every reference point of a region with uniformly
// spaced headings and, in 3-D, pitches. Ranges are half open: n values
// h0 + i(h1-h0)/n.
type PointSampler struct {
	Dim          int
	NumHeadings  int
	HeadingRange [2]float64
	NumPitches   int
	PitchRange   [2]float64
	// Shared merges coincident samples of different regions into shared
	// samples, see SharedPoints.
	Shared bool
}

// NewPointSampler builds a PointSampler from an experiment's sampling
// section. An empty heading range means the full circle.
func NewPointSampler(dim int, s config.SamplingConfig) *PointSampler {
	ps := &PointSampler{
		Dim:          dim,
		NumHeadings:  s.NumHeadings,
		HeadingRange: [2]float64{s.HeadingMin, s.HeadingMax},
		NumPitches:   s.NumPitches,
		PitchRange:   [2]float64{s.PitchMin, s.PitchMax},
		Shared:       true,
	}
	if s.HeadingMin == s.HeadingMax {
		ps.HeadingRange = [2]float64{0, 2 * math.Pi}
	}
	return ps
}

// Sample implements Sampler.
func (s *PointSampler) Sample(ctx context.Context, regions []Region) ([]model.Configuration, error) {
	headings := uniform(s.HeadingRange, max(s.NumHeadings, 1))
	pitches := []float64{0}
	if s.Dim == 3 {
		pitches = uniform(s.PitchRange, max(s.NumPitches, 1))
	}

	var out []model.Configuration
	id := 0
	for group, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, p := range r.Points {
			for _, h := range headings {
				for _, phi := range pitches {
					if s.Dim == 3 {
						out = append(out, model.New3D(id, group, p.X, p.Y, p.Z, h, phi))
					} else {
						out = append(out, model.New2D(id, group, p.X, p.Y, h))
					}
					id++
				}
			}
		}
	}
	if s.Shared {
		out = SharedPoints(out)
	}
	return out, nil
}

// uniform returns n values lo + i(hi-lo)/n.
func uniform(r [2]float64, n int) []float64 {
	return floats.Span(make([]float64, n+1), r[0], r[1])[:n]
}

// SharedPoints finds configurations of different groups that share the
// same pose. Each copy keeps its own group but takes the ID of the first
// copy, and all copies list every covered group in Visits. Repeated poses
// within one group are dropped.
func SharedPoints(configs []model.Configuration) []model.Configuration {
	type pose struct {
		x, y, z, h, p int64
	}
	key := func(c model.Configuration) pose {
		q := func(v float64) int64 { return int64(math.Round(v / coincident)) }
		return pose{q(c.X), q(c.Y), q(c.Z), q(c.Heading), q(c.Pitch)}
	}

	clusters := make(map[pose][]int)
	var order []pose
	for i, c := range configs {
		k := key(c)
		if _, ok := clusters[k]; !ok {
			order = append(order, k)
		}
		clusters[k] = append(clusters[k], i)
	}

	out := make([]model.Configuration, 0, len(configs))
	for _, k := range order {
		members := clusters[k]
		var groups []int
		var kept []model.Configuration
		for _, i := range members {
			c := configs[i]
			if slices.Contains(groups, c.Group) {
				continue
			}
			groups = append(groups, c.Group)
			kept = append(kept, c)
		}
		if len(kept) == 1 {
			out = append(out, kept[0])
			continue
		}
		id := kept[0].ID
		for _, c := range kept {
			c.ID = id
			out = append(out, c.WithVisits(groups...))
		}
	}
	return out
}

// CheckGroups verifies that each of the groups 0..numRegions-1 has at
// least one configuration, directly or through Visits.
func CheckGroups(configs []model.Configuration, numRegions int) error {
	covered := make([]bool, numRegions)
	mark := func(g int) {
		if g >= 0 && g < numRegions {
			covered[g] = true
		}
	}
	for _, c := range configs {
		mark(c.Group)
		for _, g := range c.Visits {
			mark(g)
		}
	}
	var missing []int
	for g, ok := range covered {
		if !ok {
			missing = append(missing, g)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrSamplingIncomplete, missing)
	}
	return nil
}
