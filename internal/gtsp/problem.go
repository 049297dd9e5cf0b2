// Package gtsp builds Generalized TSP instances from sampled
// configurations, runs a GTSP engine over the GLKH file protocol and decodes
// the resulting tour.
package gtsp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/viewplan/internal/model"
)

var (
	ErrSolverTimeout  = errors.New("gtsp: solver timed out")
	ErrSolverMismatch = errors.New("gtsp: solver tour does not match the problem")
	ErrEmptyProblem   = errors.New("gtsp: no configurations")
	ErrMalformedTour  = errors.New("gtsp: malformed tour file")
)

// CostFunc prices the directed edge from a to b. It returns +Inf for an
// infeasible edge and must be safe for concurrent use.
type CostFunc func(a, b model.Configuration) float64

// Options tunes BuildProblem.
type Options struct {
	// Workers bounds the number of rows computed concurrently. Zero means
	// one per CPU.
	Workers int
}

// Problem is an asymmetric GTSP instance. Node i is configs[i].
type Problem struct {
	Size int
	// GroupIDs are the distinct configuration groups, sorted. Set k of the
	// instance is GroupIDs[k].
	GroupIDs []int
	// Groups lists the nodes of each set.
	Groups [][]int
	// Membership maps a node to its set.
	Membership []int
	// Weights is the integer matrix handed to the engine; Weights[i][j]
	// prices the hop from node i to node j.
	Weights [][]int64
	// Costs holds the exact edge costs, +Inf for forbidden hops.
	Costs *mat.Dense
	// Sentinel is the weight of a forbidden hop.
	Sentinel int64
}

// Sentinel returns the forbidden-hop weight for numGroups sets. A tour
// visits numGroups nodes, so even an all-sentinel tour stays within int32.
func Sentinel(numGroups int) int64 {
	if numGroups < 1 {
		numGroups = 1
	}
	return math.MaxInt32 / int64(numGroups)
}

// BuildProblem prices every ordered pair of configurations. Rules, in
// order, for the hop from node y to node x:
//
//  1. copies of one shared sample: zero from the later-listed copy to the
//     earlier one; the other direction falls through.
//  2. same group, or either group already covered by the other node:
//     sentinel.
//  3. infeasible edge: sentinel.
//  4. otherwise the rounded cost.
//
// The diagonal is the sentinel.
func BuildProblem(ctx context.Context, configs []model.Configuration, cost CostFunc, opts Options) (*Problem, error) {
	n := len(configs)
	if n == 0 {
		return nil, ErrEmptyProblem
	}

	groupIDs := model.Groups(configs)
	index := make(map[int]int, len(groupIDs))
	for k, g := range groupIDs {
		index[g] = k
	}
	p := &Problem{
		Size:       n,
		GroupIDs:   groupIDs,
		Groups:     make([][]int, len(groupIDs)),
		Membership: make([]int, n),
		Weights:    make([][]int64, n),
		Costs:      mat.NewDense(n, n, nil),
		Sentinel:   Sentinel(len(groupIDs)),
	}
	for i, c := range configs {
		k := index[c.Group]
		p.Membership[i] = k
		p.Groups[k] = append(p.Groups[k], i)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y := range configs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.Weights[y] = p.row(configs, y, cost)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build cost matrix: %w", err)
	}
	return p, nil
}

func (p *Problem) row(configs []model.Configuration, y int, cost CostFunc) []int64 {
	inf := math.Inf(1)
	w := make([]int64, len(configs))
	from := configs[y]
	for x, to := range configs {
		switch {
		case x == y:
			w[x] = p.Sentinel
			p.Costs.Set(y, x, inf)
		case sharedCopies(from, to) && y > x:
			w[x] = 0
			p.Costs.Set(y, x, 0)
		case from.Group == to.Group || from.HasVisit(to.Group) || to.HasVisit(from.Group):
			w[x] = p.Sentinel
			p.Costs.Set(y, x, inf)
		default:
			c := cost(from, to)
			if math.IsInf(c, 1) || math.IsNaN(c) {
				w[x] = p.Sentinel
				p.Costs.Set(y, x, inf)
				continue
			}
			w[x] = min(int64(math.Round(c)), p.Sentinel)
			p.Costs.Set(y, x, c)
		}
	}
	return w
}

// Symmetric reports whether Weights equals its transpose.
func (p *Problem) Symmetric() bool {
	for i := range p.Weights {
		for j := i + 1; j < p.Size; j++ {
			if p.Weights[i][j] != p.Weights[j][i] {
				return false
			}
		}
	}
	return true
}

// sharedCopies reports whether a and b are two materializations of one
// shared sample in different groups.
func sharedCopies(a, b model.Configuration) bool {
	return a.ID == b.ID && a.Group != b.Group && a.IsMulti() && b.IsMulti()
}
