package gtsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/fsutil"
	"github.com/banshee-data/viewplan/internal/timeutil"
)

// TestHelperProcess is not a real test. It stands in for the external
// engine when re-executed by helperEngine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "missing params file")
		os.Exit(2)
	}
	paramsPath := args[len(args)-1]

	switch os.Getenv("GTSP_HELPER_MODE") {
	case "solve":
		if err := (LocalEngine{}).Solve(context.Background(), paramsPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "boom: cannot read problem")
		os.Exit(3)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperEngine(mode string) *ProcessEngine {
	return &ProcessEngine{
		Binary: os.Args[0],
		Args:   []string{"-test.run=^TestHelperProcess$", "--"},
		Env:    []string{"GO_WANT_HELPER_PROCESS=1", "GTSP_HELPER_MODE=" + mode},
	}
}

// writeInstance writes the threeByTwo problem and its control file to dir
// and returns the control file path.
func writeInstance(t *testing.T, dir string) (string, Params) {
	t.Helper()

	p, err := BuildProblem(context.Background(), threeByTwo(), euclid, Options{})
	require.NoError(t, err)

	fsys := fsutil.OSFileSystem{}
	params := Params{
		ProblemFile: filepath.Join(dir, ProblemFileName),
		TourFile:    filepath.Join(dir, TourFileName),
	}
	require.NoError(t, writeFile(fsys, params.ProblemFile, func(w io.Writer) error {
		return WriteProblem(w, p, config.FormatFullMatrix)
	}))
	paramsPath := filepath.Join(dir, ParamsFileName)
	require.NoError(t, writeFile(fsys, paramsPath, func(w io.Writer) error {
		return WriteParams(w, params)
	}))
	return paramsPath, params
}

func TestProcessEngine_Success(t *testing.T) {
	t.Parallel()

	paramsPath, params := writeInstance(t, t.TempDir())
	require.NoError(t, helperEngine("solve").Solve(context.Background(), paramsPath))

	f, err := os.Open(params.TourFile)
	require.NoError(t, err)
	defer f.Close()
	tf, err := ParseTour(f)
	require.NoError(t, err)
	assert.True(t, tf.HasLength)
	assert.Equal(t, int64(242), tf.Length)
	assert.ElementsMatch(t, []int{1, 3, 4}, tf.Nodes)
}

func TestProcessEngine_FailureSurfacesStderr(t *testing.T) {
	t.Parallel()

	paramsPath, _ := writeInstance(t, t.TempDir())
	err := helperEngine("fail").Solve(context.Background(), paramsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom: cannot read problem")
	assert.False(t, errors.Is(err, ErrSolverTimeout))
}

func TestProcessEngine_MissingBinary(t *testing.T) {
	t.Parallel()

	e := &ProcessEngine{Binary: filepath.Join(t.TempDir(), "no-such-engine")}
	err := e.Solve(context.Background(), "params.param")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestProcessEngine_Timeout(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := helperEngine("hang")
	e.Clock = clock
	e.Timeout = 10 * time.Minute

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if clock.Waiters() > 0 {
				clock.Advance(time.Minute)
				continue
			}
			time.Sleep(time.Millisecond)
		}
	}()

	paramsPath, _ := writeInstance(t, t.TempDir())
	start := time.Now()
	err := e.Solve(context.Background(), paramsPath)
	assert.True(t, errors.Is(err, ErrSolverTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestProcessEngine_ContextCancel(t *testing.T) {
	t.Parallel()

	paramsPath, _ := writeInstance(t, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := helperEngine("hang").Solve(ctx, paramsPath)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
