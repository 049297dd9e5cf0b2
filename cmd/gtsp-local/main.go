// Command gtsp-local is a GLKH-compatible GTSP engine backed by the
// in-process local search. It takes the path of a parameter file naming the
// problem and tour files:
//
//	gtsp-local [-timeout 10m] params.param
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/viewplan/internal/gtsp"
	"github.com/banshee-data/viewplan/internal/monitoring"
)

var (
	timeout  = flag.Duration("timeout", 0, "Give up after this long (0 waits forever)")
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn or error")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <params file>", os.Args[0])
	}

	logger, closer, err := monitoring.NewLogger(monitoring.Options{Level: *logLevel})
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	engine := gtsp.LocalEngine{Logger: monitoring.NewComponent(logger, "gtsp-local")}
	if err := engine.Solve(ctx, flag.Arg(0)); err != nil {
		stop()
		log.Fatalf("gtsp-local: %v", err)
	}
	logger.Info("solved", "params", flag.Arg(0), "elapsed", time.Since(start).String())
}
