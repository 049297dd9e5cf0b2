package gtsp

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/fsutil"
	"github.com/banshee-data/viewplan/internal/model"
)

// Scratch file names inside <Root>/<id>/.
const (
	ParamsFileName  = "params.param"
	ProblemFileName = "gtsp.gtsp"
	TourFileName    = "tour.tour"
)

// Builder runs one GTSP solve per call in its own scratch directory.
type Builder struct {
	Root    string
	Engine  Engine
	FS      fsutil.FileSystem
	Format  string
	Workers int
	// Registry, if set, tracks the scratch directory while the engine runs.
	Registry *fsutil.ScratchRegistry
	Logger   Logger
}

// Solve builds the problem for configs, runs the engine in <Root>/<id>/
// and decodes the tour. The scratch directory is removed on every path.
func (b *Builder) Solve(ctx context.Context, id string, configs []model.Configuration, cost CostFunc) (Tour, error) {
	log := b.Logger
	if log == nil {
		log = nopLogger{}
	}
	fsys := b.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	format := b.Format
	if format == "" {
		format = config.FormatFullMatrix
	}

	p, err := BuildProblem(ctx, configs, cost, Options{Workers: b.Workers})
	if err != nil {
		return Tour{}, err
	}
	if len(p.Groups) == 1 {
		return Tour{Stops: []model.Configuration{configs[0]}, Nodes: []int{0}, ReportedCost: -1}, nil
	}

	root, err := filepath.Abs(b.Root)
	if err != nil {
		return Tour{}, fmt.Errorf("failed to resolve scratch root: %w", err)
	}
	dir, err := fsutil.NewScratchDir(fsys, root, id)
	if err != nil {
		return Tour{}, err
	}
	if b.Registry != nil {
		b.Registry.Register(dir)
	}
	defer func() {
		var err error
		if b.Registry != nil {
			err = b.Registry.Release(dir)
		} else {
			err = dir.Remove()
		}
		if err != nil {
			log.Warnf("failed to remove scratch directory %s: %v", dir.Path, err)
		}
	}()

	params := Params{
		ProblemFile: dir.File(ProblemFileName),
		TourFile:    dir.File(TourFileName),
	}
	if err := writeFile(fsys, params.ProblemFile, func(w io.Writer) error { return WriteProblem(w, p, format) }); err != nil {
		return Tour{}, err
	}
	paramsPath := dir.File(ParamsFileName)
	if err := writeFile(fsys, paramsPath, func(w io.Writer) error { return WriteParams(w, params) }); err != nil {
		return Tour{}, err
	}

	log.Debugf("solving %d configurations in %d groups (%s)", p.Size, len(p.Groups), id)
	if err := b.Engine.Solve(ctx, paramsPath); err != nil {
		return Tour{}, fmt.Errorf("failed to solve %s: %w", id, err)
	}

	r, err := fsys.Open(params.TourFile)
	if err != nil {
		return Tour{}, fmt.Errorf("%w: %v", ErrMalformedTour, err)
	}
	tf, err := ParseTour(r)
	r.Close()
	if err != nil {
		return Tour{}, err
	}
	return Decode(p, configs, tf)
}

func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}
