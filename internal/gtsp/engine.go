package gtsp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/banshee-data/viewplan/internal/timeutil"
)

// Poll back-off bounds of ProcessEngine.
const (
	pollInitial = 10 * time.Millisecond
	pollMax     = 16 * time.Second
)

// Engine solves the GTSP instance named by a control file and writes the
// tour file the control file points at.
type Engine interface {
	Solve(ctx context.Context, paramsPath string) error
}

// Logger defines the interface for diagnostic logging.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// nopLogger is a no-op logger implementation.
type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Warnf(format string, args ...interface{})  {}

// ProcessEngine runs an external GLKH-compatible binary as
// "<Binary> <Args...> <paramsPath>" and waits for it, checking with an
// exponential back-off from 10ms to 16s. The process is killed when
// Timeout elapses or ctx is cancelled.
type ProcessEngine struct {
	Binary string
	Args   []string
	// Dir is the working directory of the process. Empty means the
	// current directory.
	Dir string
	// Env is appended to the current environment.
	Env     []string
	Timeout time.Duration
	Clock   timeutil.Clock
	Logger  Logger
}

// Solve implements Engine.
func (e *ProcessEngine) Solve(ctx context.Context, paramsPath string) error {
	clock := e.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	log := e.Logger
	if log == nil {
		log = nopLogger{}
	}

	args := append(append([]string{}, e.Args...), paramsPath)
	cmd := exec.Command(e.Binary, args...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	log.Debugf("Executing: %s %s", e.Binary, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start gtsp engine: %w", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	kill := func() {
		if err := cmd.Process.Kill(); err != nil {
			log.Warnf("failed to kill gtsp engine (pid %d): %v", cmd.Process.Pid, err)
		}
		<-done
	}

	start := clock.Now()
	backoff := timeutil.NewBackoff(pollInitial, pollMax)
	for {
		delay := backoff.Next()
		if e.Timeout > 0 {
			delay = min(delay, max(e.Timeout-clock.Since(start), 0))
		}
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("gtsp engine failed: %w: %s", err, strings.TrimSpace(stderr.String()))
			}
			log.Debugf("gtsp engine finished in %s", clock.Since(start))
			return nil
		case <-ctx.Done():
			kill()
			return ctx.Err()
		case <-clock.After(delay):
			elapsed := clock.Since(start)
			if e.Timeout > 0 && elapsed >= e.Timeout {
				kill()
				return fmt.Errorf("%w after %s", ErrSolverTimeout, e.Timeout)
			}
			log.Debugf("gtsp engine still running after %s", elapsed)
		}
	}
}
