// Package planner runs view planning experiments end to end: it samples the
// regions, builds and solves the GTSP instance, flies the resulting tour and
// stores the solution.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/db"
	"github.com/banshee-data/viewplan/internal/edge"
	"github.com/banshee-data/viewplan/internal/gtsp"
	"github.com/banshee-data/viewplan/internal/model"
	"github.com/banshee-data/viewplan/internal/sampling"
	"github.com/banshee-data/viewplan/internal/timeutil"
)

// ErrInfeasibleTour is returned when the flown tour contains an edge that no
// maneuver can realise.
var ErrInfeasibleTour = errors.New("planner: tour contains an infeasible edge")

// Experiment is one planning problem.
type Experiment struct {
	ID          string
	Name        string
	Dim         int
	Regions     []sampling.Region
	Radius      float64
	PitchBounds airplane.Bounds
	Edge        config.EdgeStrategy
	Sampling    config.SamplingConfig
	CreatedAt   time.Time
}

// NewExperiment builds an experiment with a fresh ID from its config.
func NewExperiment(ec config.ExperimentConfig) Experiment {
	return Experiment{
		ID:          uuid.NewString(),
		Name:        ec.Name,
		Dim:         ec.Dim,
		Regions:     sampling.RegionsFromConfig(ec.Regions),
		Radius:      ec.Radius,
		PitchBounds: airplane.Bounds{PitchMin: ec.PitchMin, PitchMax: ec.PitchMax},
		Edge:        ec.Edge,
		Sampling:    ec.Sampling,
		CreatedAt:   time.Now(),
	}
}

// Solution is a validated, flown tour.
type Solution struct {
	ID            string
	ExperimentID  string
	Cost          float64
	ReportedCost  int64
	ExecutionTime time.Duration
	Stops         []model.Configuration
	Edges         []edge.Segment
	Samples       int
	Degraded      bool
	CreatedAt     time.Time
}

// Store persists solutions.
type Store interface {
	SaveSolution(ctx context.Context, s *db.Solution) error
}

// Planner runs experiments against one tour builder.
type Planner struct {
	Builder   *gtsp.Builder
	CacheSize int
	// Store, if set, receives every valid solution.
	Store  Store
	Clock  timeutil.Clock
	Logger gtsp.Logger
	// NewSampler overrides the point sampler built from the experiment.
	NewSampler func(Experiment) sampling.Sampler
}

// Run solves exp. The edge cost cache lives for this call only and the
// builder removes its scratch files on every path. Nothing is stored
// unless the tour validates.
func (p *Planner) Run(ctx context.Context, exp Experiment) (*Solution, error) {
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	log := p.Logger
	if log == nil {
		log = nopLogger{}
	}
	cacheSize := p.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1 << 16
	}
	start := clock.Now()

	solver, err := edge.NewSolver(exp.Edge, exp.Radius, exp.PitchBounds)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", exp.Name, err)
	}
	cached, err := edge.NewCached(solver, cacheSize)
	if err != nil {
		return nil, err
	}
	defer cached.Clear()

	sampler := p.sampler(exp)
	configs, err := sampler.Sample(ctx, exp.Regions)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: sampling failed: %w", exp.Name, err)
	}
	if err := sampling.CheckGroups(configs, len(exp.Regions)); err != nil {
		return nil, fmt.Errorf("experiment %s: %w", exp.Name, err)
	}
	log.Debugf("experiment %s: %d samples in %d regions", exp.Name, len(configs), len(exp.Regions))

	tour, err := p.Builder.Solve(ctx, exp.ID, configs, cached.EdgeCost)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", exp.Name, err)
	}

	sol := &Solution{
		ID:           uuid.NewString(),
		ExperimentID: exp.ID,
		ReportedCost: tour.ReportedCost,
		Stops:        tour.Stops,
		Samples:      len(configs),
	}
	if len(tour.Stops) > 1 {
		sol.Edges = cached.Edges(tour.Stops)
		sol.Stops = make([]model.Configuration, len(sol.Edges))
		for i, s := range sol.Edges {
			sol.Stops[i] = s.To()
			sol.Cost += s.Length()
			if edge.Degraded(s) {
				sol.Degraded = true
			}
		}
	}
	if math.IsInf(sol.Cost, 1) || math.IsNaN(sol.Cost) {
		return nil, fmt.Errorf("experiment %s: %w", exp.Name, ErrInfeasibleTour)
	}
	if sol.Degraded {
		log.Warnf("experiment %s: tour uses a degraded altitude solution", exp.Name)
	}
	sol.ExecutionTime = clock.Since(start)
	sol.CreatedAt = clock.Now()

	if p.Store != nil {
		if err := p.Store.SaveSolution(ctx, sol.Record(exp)); err != nil {
			return nil, fmt.Errorf("experiment %s: failed to save solution: %w", exp.Name, err)
		}
	}
	log.Debugf("experiment %s: %d stops, cost %.3f in %s", exp.Name, len(sol.Stops), sol.Cost, sol.ExecutionTime)
	return sol, nil
}

func (p *Planner) sampler(exp Experiment) sampling.Sampler {
	if p.NewSampler != nil {
		return p.NewSampler(exp)
	}
	return sampling.NewPointSampler(exp.Dim, exp.Sampling)
}

// Result is the outcome of one experiment of RunAll.
type Result struct {
	Experiment Experiment
	Solution   *Solution
	Err        error
}

// RunAll runs exps in order. A failed experiment does not stop the others;
// a cancelled context does.
func (p *Planner) RunAll(ctx context.Context, exps []Experiment) []Result {
	out := make([]Result, 0, len(exps))
	for _, exp := range exps {
		if err := ctx.Err(); err != nil {
			out = append(out, Result{Experiment: exp, Err: err})
			continue
		}
		sol, err := p.Run(ctx, exp)
		out = append(out, Result{Experiment: exp, Solution: sol, Err: err})
	}
	return out
}

// Record converts s into its stored form.
func (s *Solution) Record(exp Experiment) *db.Solution {
	rec := &db.Solution{
		ID: s.ID,
		Experiment: db.Experiment{
			ID:        exp.ID,
			Name:      exp.Name,
			Dim:       exp.Dim,
			Radius:    exp.Radius,
			PitchMin:  exp.PitchBounds.PitchMin,
			PitchMax:  exp.PitchBounds.PitchMax,
			Edge:      exp.Edge,
			Sampling:  exp.Sampling,
			Regions:   regionConfigs(exp.Regions),
			CreatedAt: exp.CreatedAt,
		},
		Cost:          s.Cost,
		ReportedCost:  s.ReportedCost,
		ExecutionTime: s.ExecutionTime,
		Samples:       s.Samples,
		Degraded:      s.Degraded,
		CreatedAt:     s.CreatedAt,
		Stops:         s.Stops,
	}
	for i, seg := range s.Edges {
		rec.Edges = append(rec.Edges, db.Edge{Seq: i, Length: seg.Length(), Degraded: edge.Degraded(seg)})
	}
	return rec
}

func regionConfigs(regions []sampling.Region) []config.RegionConfig {
	out := make([]config.RegionConfig, len(regions))
	for i, r := range regions {
		out[i].ID = r.ID
		for _, p := range r.Points {
			out[i].Points = append(out[i].Points, [3]float64{p.X, p.Y, p.Z})
		}
	}
	return out
}

// Path samples the flown tour every step metres along each edge, for
// plotting.
func (s *Solution) Path(step float64) []r3.Vec {
	var out []r3.Vec
	for _, seg := range s.Edges {
		l := seg.Length()
		if math.IsInf(l, 1) || l <= 0 {
			continue
		}
		n := max(int(math.Ceil(l/step)), 1)
		for i := 0; i <= n; i++ {
			out = append(out, seg.Point(float64(i)/float64(n)))
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
