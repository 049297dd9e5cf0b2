package planner

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/db"
	"github.com/banshee-data/viewplan/internal/fsutil"
	"github.com/banshee-data/viewplan/internal/gtsp"
	"github.com/banshee-data/viewplan/internal/model"
	"github.com/banshee-data/viewplan/internal/sampling"
	"github.com/banshee-data/viewplan/internal/timeutil"
)

type memStore struct {
	mu    sync.Mutex
	saved []*db.Solution
	err   error
}

func (s *memStore) SaveSolution(ctx context.Context, sol *db.Solution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, sol)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newPlanner(store Store) (*Planner, *fsutil.MemoryFileSystem) {
	mem := fsutil.NewMemoryFileSystem()
	return &Planner{
		Builder: &gtsp.Builder{
			Root:    "/scratch",
			Engine:  gtsp.LocalEngine{FS: mem},
			FS:      mem,
			Workers: 2,
		},
		CacheSize: 1024,
		Store:     store,
		Clock:     timeutil.NewMockClock(epoch),
	}, mem
}

func carSquare() config.ExperimentConfig {
	return config.ExperimentConfig{
		Name:     "car-square",
		Dim:      2,
		Radius:   20,
		Edge:     config.EdgeStrategy{Type: config.EdgeDubinsCar},
		Sampling: config.SamplingConfig{NumHeadings: 4},
		Regions: []config.RegionConfig{
			{ID: 0, Points: [][3]float64{{0, 0, 0}}},
			{ID: 1, Points: [][3]float64{{300, 0, 0}}},
			{ID: 2, Points: [][3]float64{{300, 300, 0}}},
			{ID: 3, Points: [][3]float64{{0, 300, 0}}},
		},
	}
}

// covered returns how often each group is served by the stops.
func covered(stops []model.Configuration) map[int]int {
	out := make(map[int]int)
	for _, s := range stops {
		if s.IsMulti() {
			for _, g := range s.Visits {
				out[g]++
			}
			continue
		}
		out[s.Group]++
	}
	return out
}

func TestRun_CarSquare(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p, mem := newPlanner(store)
	exp := NewExperiment(carSquare())

	sol, err := p.Run(context.Background(), exp)
	require.NoError(t, err)

	require.Len(t, sol.Stops, 4)
	require.Len(t, sol.Edges, 4)
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 1}, covered(sol.Stops))
	assert.GreaterOrEqual(t, sol.Cost, 1200.0)
	assert.Less(t, sol.Cost, 1900.0)
	assert.InDelta(t, sol.Cost, float64(sol.ReportedCost), 0.01*sol.Cost+2)
	assert.Equal(t, 16, sol.Samples)
	assert.Equal(t, exp.ID, sol.ExperimentID)
	assert.Equal(t, epoch, sol.CreatedAt)
	assert.False(t, sol.Degraded)

	require.Equal(t, 1, store.count())
	rec := store.saved[0]
	assert.Equal(t, sol.ID, rec.ID)
	assert.Equal(t, "car-square", rec.Experiment.Name)
	assert.Len(t, rec.Edges, 4)
	assert.Equal(t, carSquare().Regions, rec.Experiment.Regions)

	assert.Empty(t, mem.Paths("/scratch"))
}

func TestRun_SamplingIncomplete(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p, _ := newPlanner(store)
	ec := carSquare()
	ec.Regions = append(ec.Regions, config.RegionConfig{ID: 9})

	_, err := p.Run(context.Background(), NewExperiment(ec))
	assert.True(t, errors.Is(err, sampling.ErrSamplingIncomplete), "got %v", err)
	assert.Equal(t, 0, store.count())
}

func TestRun_MismatchIsNotStored(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p, mem := newPlanner(store)
	// An engine that visits only the first node.
	p.Builder.Engine = engineFunc(func(ctx context.Context, paramsPath string) error {
		r, err := mem.Open(paramsPath)
		if err != nil {
			return err
		}
		params, err := gtsp.ParseParams(r)
		r.Close()
		if err != nil {
			return err
		}
		w, err := mem.Create(params.TourFile)
		if err != nil {
			return err
		}
		if err := gtsp.WriteTour(w, "bad", []int{0}, 0); err != nil {
			return err
		}
		return w.Close()
	})

	_, err := p.Run(context.Background(), NewExperiment(carSquare()))
	assert.True(t, errors.Is(err, gtsp.ErrSolverMismatch), "got %v", err)
	assert.Equal(t, 0, store.count())
	assert.Empty(t, mem.Paths("/scratch"))
}

type engineFunc func(ctx context.Context, paramsPath string) error

func (f engineFunc) Solve(ctx context.Context, paramsPath string) error { return f(ctx, paramsPath) }

func TestRun_StoreFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	p, _ := newPlanner(&memStore{err: boom})
	_, err := p.Run(context.Background(), NewExperiment(carSquare()))
	assert.True(t, errors.Is(err, boom))
}

func TestRun_UnknownEdgeType(t *testing.T) {
	t.Parallel()

	p, _ := newPlanner(nil)
	ec := carSquare()
	ec.Edge.Type = "teleport"
	_, err := p.Run(context.Background(), NewExperiment(ec))
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p, mem := newPlanner(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, NewExperiment(carSquare()))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, 0, store.count())
	assert.Empty(t, mem.Paths("/scratch"))
}

func TestRun_AirplaneSharedRegion(t *testing.T) {
	t.Parallel()

	p, _ := newPlanner(nil)
	ec := config.ExperimentConfig{
		Name:     "airplane-shared",
		Dim:      3,
		Radius:   50,
		PitchMin: -0.349,
		PitchMax: 0.349,
		Edge: config.EdgeStrategy{
			Type:         config.EdgeVanaAirplane,
			Modification: config.ModificationLeadInDwell,
			Lead:         20,
			Dwell:        10,
			Multiply:     true,
		},
		Sampling: config.SamplingConfig{NumHeadings: 4, NumPitches: 1},
		Regions: []config.RegionConfig{
			{ID: 0, Points: [][3]float64{{0, 0, 100}}},
			{ID: 1, Points: [][3]float64{{800, 0, 150}}},
			{ID: 2, Points: [][3]float64{{800, 800, 250}, {800, 0, 150}}},
		},
	}

	sol, err := p.Run(context.Background(), NewExperiment(ec))
	require.NoError(t, err)
	assert.False(t, math.IsInf(sol.Cost, 1))
	assert.Equal(t, 16, sol.Samples)
	for g, n := range covered(sol.Stops) {
		assert.Equal(t, 1, n, "group %d", g)
	}
	assert.Len(t, covered(sol.Stops), 3)
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p, _ := newPlanner(store)
	bad := carSquare()
	bad.Regions[0].Points = nil

	results := p.RunAll(context.Background(), []Experiment{NewExperiment(bad), NewExperiment(carSquare())})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Solution)
	require.NoError(t, results[1].Err)
	assert.NotNil(t, results[1].Solution)
	assert.Equal(t, 1, store.count())
}

func TestRun_PersistsToDatabase(t *testing.T) {
	t.Parallel()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "viewplan.db"))
	require.NoError(t, err)
	defer database.Close()

	p, _ := newPlanner(database)
	sol, err := p.Run(context.Background(), NewExperiment(carSquare()))
	require.NoError(t, err)

	got, err := database.GetSolution(context.Background(), sol.ID)
	require.NoError(t, err)
	assert.Equal(t, sol.Stops, got.Stops)
	assert.InDelta(t, sol.Cost, got.Cost, 1e-9)

	list, err := database.ListSolutions(context.Background(), "car-square", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSolution_Path(t *testing.T) {
	t.Parallel()

	p, _ := newPlanner(nil)
	sol, err := p.Run(context.Background(), NewExperiment(carSquare()))
	require.NoError(t, err)

	pts := sol.Path(10)
	assert.Greater(t, len(pts), 120)
	first := sol.Edges[0].From().Point()
	assert.InDelta(t, first.X, pts[0].X, 1e-6)
	assert.InDelta(t, first.Y, pts[0].Y, 1e-6)
}

func TestNewExperiment(t *testing.T) {
	t.Parallel()

	a := NewExperiment(carSquare())
	b := NewExperiment(carSquare())
	assert.NotEqual(t, a.ID, b.ID)
	require.Len(t, a.Regions, 4)
	assert.Equal(t, 300.0, a.Regions[2].Points[0].Y)
	assert.Equal(t, carSquare().Regions, regionConfigs(a.Regions))
}
