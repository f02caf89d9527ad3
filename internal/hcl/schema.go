package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Types         []*typeBlock      `hcl:"type,block"`
	Parameters    []*parameterBlock `hcl:"parameter,block"`
	Tasks         []*taskBlock      `hcl:"task,block"`
	Steps         []*stepBlock      `hcl:"step,block"`
	ArtifactTasks []*taskBlock      `hcl:"artifact_task,block"`
	Artifacts     []*stepBlock      `hcl:"artifact,block"`
}

// typeBlock declares a named type. Without a `type` attribute the type is nominal.
type typeBlock struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type,optional"`
}

type parameterBlock struct {
	Name    string         `hcl:"name,label"`
	Type    hcl.Expression `hcl:"type,optional"`
	Default hcl.Expression `hcl:"default,optional"`
}

type taskBlock struct {
	Name        string         `hcl:"name,label"`
	Plugin      string         `hcl:"plugin,optional"`
	Description string         `hcl:"description,optional"`
	Inputs      []*inputBlock  `hcl:"input,block"`
	Outputs     []*outputBlock `hcl:"output,block"`
}

type inputBlock struct {
	Name     string         `hcl:"name,label"`
	Type     hcl.Expression `hcl:"type,optional"`
	Required *bool          `hcl:"required,optional"`
}

type outputBlock struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type,optional"`
}

// stepBlock is shared by `step` and `artifact` blocks.
type stepBlock struct {
	Task         string          `hcl:"task,label"`
	Name         string          `hcl:"name,label"`
	Args         hcl.Expression  `hcl:"args,optional"`
	Arguments    *argumentsBlock `hcl:"arguments,block"`
	Dependencies []string        `hcl:"dependencies,optional"`
}

// argumentsBlock holds named bindings as plain attributes.
type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}
