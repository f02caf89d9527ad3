package builder

import (
	"context"

	"github.com/specialistvlad/taskgraph/internal/binding"
	"github.com/specialistvlad/taskgraph/internal/config"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
)

// ContentsInput is the input every artifact task must declare. It carries
// the step output being serialized.
const ContentsInput = "contents"

// BuildArtifacts validates the artifact declarations of a model against an
// already-built step graph. Artifact bindings may reference parameters and
// step outputs, but not other artifacts.
func (g *Graph) BuildArtifacts(ctx context.Context, model *config.Model, opts Options) (*ArtifactGraph, error) {
	logger := ctxlog.FromContext(ctx)

	ag := &ArtifactGraph{Tasks: registry.New()}
	if err := buildSignatures(g.Types, ag.Tasks, model.ArtifactTasks); err != nil {
		return nil, err
	}
	for _, name := range ag.Tasks.Names() {
		sig, _ := ag.Tasks.Lookup(name)
		if _, ok := sig.Input(ContentsInput); !ok {
			return nil, &taskerr.ValidationError{
				Kind:    taskerr.ErrMissingRequiredInput,
				Task:    name,
				Binding: ContentsInput,
				Msg:     "artifact tasks must declare a contents input",
			}
		}
	}
	if opts.HasSerializer != nil {
		if err := ag.Tasks.CheckCallables(ctx, opts.HasSerializer); err != nil {
			return nil, err
		}
	}

	sigs := make(map[string]*registry.Signature, len(g.Steps))
	for _, s := range g.Steps {
		sigs[s.Name] = s.Task
	}
	sc := &scope{params: g.params, steps: sigs}

	seen := make(map[string]bool, len(model.Artifacts))
	for i, cfg := range model.Artifacts {
		if !binding.ValidName(cfg.Name) {
			return nil, &taskerr.ValidationError{Kind: taskerr.ErrInvalidName, Step: cfg.Name, Msg: "artifact names must be identifiers"}
		}
		if seen[cfg.Name] {
			return nil, &taskerr.ValidationError{Kind: taskerr.ErrDuplicateIdentifier, Step: cfg.Name, Msg: "artifact is declared more than once"}
		}
		seen[cfg.Name] = true

		sig, err := ag.Tasks.Lookup(cfg.Task)
		if err != nil {
			return nil, taskerr.AtStep(err, cfg.Name, cfg.Task, "")
		}
		st := &Step{Name: cfg.Name, Index: i, Task: sig}
		if err := sc.bindStep(st, cfg); err != nil {
			return nil, err
		}
		if b := st.Inputs[ContentsInput]; b == nil || len(b.StepRefs()) == 0 {
			return nil, &taskerr.ValidationError{
				Kind:    taskerr.ErrInvalidReference,
				Step:    cfg.Name,
				Task:    cfg.Task,
				Binding: ContentsInput,
				Msg:     "contents must reference a step output",
			}
		}
		ag.Steps = append(ag.Steps, st)
	}

	logger.Debug("Build: Artifact validation successful.", "artifacts", len(ag.Steps))
	return ag, nil
}
