package config

import (
	"github.com/specialistvlad/taskgraph/internal/types"
)

// Model is the unified, format-agnostic representation of a graph document:
// its types, parameters, task declarations, steps and artifact outputs.
// Slices keep declaration order.
type Model struct {
	Types         []types.Definition
	Parameters    []*Parameter
	Tasks         []*TaskDefinition
	Steps         []*Step
	ArtifactTasks []*TaskDefinition
	Artifacts     []*Step
}

// Merge appends the declarations of other to m, preserving order.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Types = append(m.Types, other.Types...)
	m.Parameters = append(m.Parameters, other.Parameters...)
	m.Tasks = append(m.Tasks, other.Tasks...)
	m.Steps = append(m.Steps, other.Steps...)
	m.ArtifactTasks = append(m.ArtifactTasks, other.ArtifactTasks...)
	m.Artifacts = append(m.Artifacts, other.Artifacts...)
}

// Parameter is a job input. A nil Type is inferred from the default.
type Parameter struct {
	Name       string
	Type       *types.Expr
	Default    any
	HasDefault bool
}

// TaskDefinition is the format-agnostic representation of a task declaration.
type TaskDefinition struct {
	Name        string
	Plugin      string
	Description string
	Inputs      []*InputDefinition
	Outputs     []*OutputDefinition
}

// InputDefinition defines a single input of a task. A nil Type means any.
type InputDefinition struct {
	Name     string
	Type     *types.Expr
	Required bool
}

// OutputDefinition defines a single output of a task. A nil Type means any.
type OutputDefinition struct {
	Name string
	Type *types.Expr
}

// Step is the format-agnostic representation of a step or artifact
// invocation. Argument values are raw: scalars, []any and map[string]any,
// with references still in their "$name" string form.
type Step struct {
	Name         string
	Task         string
	Args         []any
	Kwargs       map[string]any
	Dependencies []string
}
