// Command viewplan runs every experiment of a planner configuration: it
// samples the regions, solves the GTSP tour and stores and plots each
// solution.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/db"
	"github.com/banshee-data/viewplan/internal/fsutil"
	"github.com/banshee-data/viewplan/internal/gtsp"
	"github.com/banshee-data/viewplan/internal/monitoring"
	"github.com/banshee-data/viewplan/internal/planner"
	"github.com/banshee-data/viewplan/internal/plotting"
	"github.com/banshee-data/viewplan/internal/security"
	"github.com/banshee-data/viewplan/internal/version"
)

var (
	configPath  = flag.String("config", config.ExampleConfigPath, "Path to the planner configuration (.json)")
	dbPath      = flag.String("db", "", "Path to the sqlite solution store (empty disables storage)")
	plotDir     = flag.String("plot", "", "Directory for tour plots (empty disables plotting)")
	engine      = flag.String("engine", "", "GTSP engine: \"local\" or the path to a GLKH binary (overrides the config)")
	timeout     = flag.Duration("timeout", 0, "GTSP engine timeout (overrides the config)")
	only        = flag.String("experiments", "", "Comma separated experiment names to run (empty runs all)")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn or error")
	logDir      = flag.String("log-dir", "", "Directory for the rotating log file (empty logs to stderr)")
	logMaxSize  = flag.Int("log-max-size", 32, "Log file rotation size in MB")
	logBackups  = flag.Int("log-max-backups", 5, "Rotated log files to keep")
	plotStep    = flag.Float64("plot-step", 5, "Sampling step along the flown path in metres")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if err := run(); err != nil {
		log.Fatalf("viewplan: %v", err)
	}
}

func run() error {
	logger, closer, err := monitoring.NewLogger(monitoring.Options{
		Level:      *logLevel,
		Dir:        *logDir,
		MaxSizeMB:  *logMaxSize,
		MaxBackups: *logBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	monitoring.UseSlog(logger)
	logger.Info("starting", "version", version.Version, "git_sha", version.GitSHA)

	cfg, err := config.LoadPlannerConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *engine != "" {
		cfg.Engine = engine
	}
	if *timeout > 0 {
		s := timeout.String()
		cfg.Timeout = &s
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", *configPath, err)
	}

	exps, err := selectExperiments(cfg.Experiments, *only)
	if err != nil {
		return err
	}

	registry := fsutil.NewScratchRegistry()
	p := &planner.Planner{
		Builder: &gtsp.Builder{
			Root:     cfg.GetScratchDir(),
			Engine:   newEngine(cfg.GetEngine(), cfg.GetTimeout(), monitoring.NewComponent(logger, "engine")),
			Format:   cfg.GetWeightFormat(),
			Workers:  cfg.GetWorkers(),
			Registry: registry,
			Logger:   monitoring.NewComponent(logger, "gtsp"),
		},
		CacheSize: cfg.GetCacheSize(),
		Logger:    monitoring.NewComponent(logger, "planner"),
	}

	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		p.Store = database
	}
	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0o755); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// Engines are killed through ctx; anything still registered is
		// removed here as well.
		registry.RemoveAll()
	}()

	failed := 0
	for _, res := range p.RunAll(ctx, exps) {
		name := res.Experiment.Name
		if res.Err != nil {
			failed++
			monitoring.Logf("error: experiment %s failed: %v", name, res.Err)
			continue
		}
		sol := res.Solution
		monitoring.Logf("experiment %s: solution %s, %d stops, cost %.3f, %d samples in %s",
			name, sol.ID, len(sol.Stops), sol.Cost, sol.Samples, sol.ExecutionTime.Round(time.Millisecond))

		if *plotDir != "" {
			out := filepath.Join(*plotDir, plotName(name, sol.ID))
			if err := plotting.Tour(out, name, sol.Path(*plotStep), sol.Stops); err != nil {
				monitoring.Logf("warn: failed to plot %s: %v", name, err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d experiments failed", failed, len(exps))
	}
	return nil
}

// newEngine returns the in-process engine for "local" and a subprocess
// engine for anything else.
func newEngine(name string, timeout time.Duration, logger gtsp.Logger) gtsp.Engine {
	if name == config.EngineLocal {
		return gtsp.LocalEngine{Logger: logger}
	}
	return &gtsp.ProcessEngine{
		Binary:  name,
		Timeout: timeout,
		Logger:  logger,
	}
}

// selectExperiments builds experiments for the configs named in only, a
// comma separated list. An empty list selects all of them.
func selectExperiments(cfgs []config.ExperimentConfig, only string) ([]planner.Experiment, error) {
	want := make(map[string]bool)
	for _, n := range strings.Split(only, ",") {
		if n = strings.TrimSpace(n); n != "" {
			want[n] = true
		}
	}

	var out []planner.Experiment
	for _, ec := range cfgs {
		if len(want) > 0 && !want[ec.Name] {
			continue
		}
		delete(want, ec.Name)
		out = append(out, planner.NewExperiment(ec))
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown experiment %q", missing[0])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no experiments to run")
	}
	return out, nil
}

func plotName(experiment, solutionID string) string {
	if len(solutionID) > 8 {
		solutionID = solutionID[:8]
	}
	return security.SanitizeFilename(experiment) + "_" + security.SanitizeFilename(solutionID) + ".png"
}
