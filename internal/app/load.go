package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specialistvlad/taskgraph/internal/builder"
	"github.com/specialistvlad/taskgraph/internal/config"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/dag"
	"github.com/specialistvlad/taskgraph/internal/hcl"
	"github.com/specialistvlad/taskgraph/internal/yaml"
)

// ErrLoad marks failures to read or decode graph documents.
var ErrLoad = errors.New("failed to load graph")

// Compiled is a validated and planned job.
type Compiled struct {
	Graph     *builder.Graph
	Plan      *dag.Plan
	Artifacts *builder.ArtifactGraph
}

// loadersFor picks the document loaders for path by file extension. A
// directory may mix HCL and YAML documents.
func loadersFor(path string) ([]config.Loader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	var hasHCL, hasYAML bool
	classify := func(p string) {
		switch filepath.Ext(p) {
		case ".hcl":
			hasHCL = true
		case ".yaml", ".yml":
			hasYAML = true
		}
	}
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				classify(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", path, err)
		}
	} else {
		classify(path)
	}

	var loaders []config.Loader
	if hasHCL {
		loaders = append(loaders, hcl.NewLoader())
	}
	if hasYAML {
		loaders = append(loaders, yaml.NewLoader())
	}
	if len(loaders) == 0 {
		return nil, fmt.Errorf("no graph documents (.hcl, .yaml, .yml) found at %s", path)
	}
	return loaders, nil
}

// Load reads the graph documents at the configured path into one model.
func (a *App) Load(ctx context.Context) (*config.Model, error) {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph documents...", "graph_path", a.config.GraphPath)

	loaders, err := loadersFor(a.config.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	model := &config.Model{}
	for _, l := range loaders {
		part, err := l.Load(ctx, a.config.GraphPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
		model.Merge(part)
	}
	logger.Info("Graph loaded successfully.", "steps_found", len(model.Steps), "artifacts_found", len(model.Artifacts))
	return model, nil
}

// Compile loads, validates and plans the job. Every error it returns other
// than a read failure is a *taskerr.ValidationError.
func (a *App) Compile(ctx context.Context) (*Compiled, error) {
	ctx = a.context(ctx)
	model, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}

	opts := builder.Options{HasTask: a.handlers.HasTask, HasSerializer: a.handlers.HasSerializer}
	g, err := builder.Build(ctx, model, opts)
	if err != nil {
		return nil, err
	}
	plan, err := dag.Resolve(ctx, g)
	if err != nil {
		return nil, err
	}
	ag, err := g.BuildArtifacts(ctx, model, opts)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Graph compiled.", "steps", len(plan.Order), "artifacts", len(ag.Steps))
	return &Compiled{Graph: g, Plan: plan, Artifacts: ag}, nil
}

// Validate checks the job without running it.
func (a *App) Validate(ctx context.Context) error {
	_, err := a.Compile(ctx)
	return err
}

// Plan returns the execution order of the job's steps.
func (a *App) Plan(ctx context.Context) ([]string, error) {
	c, err := a.Compile(ctx)
	if err != nil {
		return nil, err
	}
	return c.Plan.Order, nil
}
