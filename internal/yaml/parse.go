package yaml

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/taskgraph/internal/config"
	"github.com/specialistvlad/taskgraph/internal/types"
	yamlv3 "gopkg.in/yaml.v3"
)

const nullTag = "!!null"

type pair struct {
	key   string
	value *yamlv3.Node
}

// Parse decodes a single YAML graph document.
func Parse(data []byte) (*config.Model, error) {
	var doc yamlv3.Node
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	m := &config.Model{}
	if len(doc.Content) == 0 {
		return m, nil
	}

	sections, err := pairs(doc.Content[0])
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		switch s.key {
		case "types":
			err = parseTypes(m, s.value)
		case "parameters":
			err = parseParameters(m, s.value)
		case "tasks":
			m.Tasks, err = parseTasks(s.value)
		case "artifact_tasks":
			m.ArtifactTasks, err = parseTasks(s.value)
		case "graph":
			m.Steps, err = parseSteps(s.value)
		case "artifacts":
			m.Artifacts, err = parseSteps(s.value)
		default:
			err = errorAt(s.value, "unknown top-level section %q", s.key)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.key, err)
		}
	}
	return m, nil
}

func parseTypes(m *config.Model, n *yamlv3.Node) error {
	entries, err := pairs(n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		expr, err := parseType(e.value)
		if err != nil {
			return fmt.Errorf("type %q: %w", e.key, err)
		}
		m.Types = append(m.Types, types.Definition{Name: e.key, Expr: expr})
	}
	return nil
}

// parseType reads a type expression: null, a string in constructor syntax,
// or a single-key mapping such as {list: number} or {tuple: [string, int]}.
func parseType(n *yamlv3.Node) (*types.Expr, error) {
	switch n.Kind {
	case yamlv3.ScalarNode:
		if n.Tag == nullTag {
			return nil, nil
		}
		expr, err := types.ParseExpr(n.Value)
		if err != nil {
			return nil, errorAt(n, "%v", err)
		}
		return expr, nil

	case yamlv3.MappingNode:
		entries, err := pairs(n)
		if err != nil {
			return nil, err
		}
		if len(entries) != 1 {
			return nil, errorAt(n, "a structured type must have exactly one constructor key")
		}
		ctor := entries[0]
		var argNodes []*yamlv3.Node
		if ctor.value.Kind == yamlv3.SequenceNode {
			argNodes = ctor.value.Content
		} else {
			argNodes = []*yamlv3.Node{ctor.value}
		}
		args := make([]*types.Expr, 0, len(argNodes))
		for _, a := range argNodes {
			arg, err := parseType(a)
			if err != nil {
				return nil, err
			}
			if arg == nil {
				arg = types.Ref("null")
			}
			args = append(args, arg)
		}
		// Round-trip through the expression parser so constructor names and
		// arity are checked in one place.
		expr, err := types.ParseExpr(types.Call(ctor.key, args...).String())
		if err != nil {
			return nil, errorAt(n, "%v", err)
		}
		return expr, nil
	}
	return nil, errorAt(n, "invalid type expression")
}

var parameterKeys = []string{"type", "default"}

func parseParameters(m *config.Model, n *yamlv3.Node) error {
	entries, err := pairs(n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := &config.Parameter{Name: e.key}
		if isStructured(e.value, parameterKeys) {
			fields, _ := pairs(e.value)
			for _, f := range fields {
				switch f.key {
				case "type":
					if p.Type, err = parseType(f.value); err != nil {
						return fmt.Errorf("parameter %q: %w", e.key, err)
					}
				case "default":
					if p.Default, err = decodeValue(f.value); err != nil {
						return fmt.Errorf("parameter %q: %w", e.key, err)
					}
					p.HasDefault = true
				}
			}
		} else if e.value.Tag != nullTag {
			if p.Default, err = decodeValue(e.value); err != nil {
				return fmt.Errorf("parameter %q: %w", e.key, err)
			}
			p.HasDefault = true
		}
		m.Parameters = append(m.Parameters, p)
	}
	return nil
}

// isStructured reports whether n is a non-empty mapping whose keys all belong
// to allowed.
func isStructured(n *yamlv3.Node, allowed []string) bool {
	if n.Kind != yamlv3.MappingNode || len(n.Content) == 0 {
		return false
	}
	for i := 0; i < len(n.Content); i += 2 {
		if !slices.Contains(allowed, n.Content[i].Value) {
			return false
		}
	}
	return true
}

func parseTasks(n *yamlv3.Node) ([]*config.TaskDefinition, error) {
	entries, err := pairs(n)
	if err != nil {
		return nil, err
	}
	var out []*config.TaskDefinition
	for _, e := range entries {
		def, err := parseTask(e.key, e.value)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", e.key, err)
		}
		out = append(out, def)
	}
	return out, nil
}

func parseTask(name string, n *yamlv3.Node) (*config.TaskDefinition, error) {
	def := &config.TaskDefinition{Name: name}
	fields, err := pairs(n)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		switch f.key {
		case "plugin":
			def.Plugin = f.value.Value
		case "description":
			def.Description = f.value.Value
		case "inputs":
			if def.Inputs, err = parseInputs(f.value); err != nil {
				return nil, err
			}
		case "outputs":
			if def.Outputs, err = parseOutputs(f.value); err != nil {
				return nil, err
			}
		default:
			return nil, errorAt(f.value, "unknown task field %q", f.key)
		}
	}
	return def, nil
}

func parseInputs(n *yamlv3.Node) ([]*config.InputDefinition, error) {
	if n.Tag == nullTag {
		return nil, nil
	}
	if n.Kind != yamlv3.SequenceNode {
		return nil, errorAt(n, "inputs must be a list")
	}
	var out []*config.InputDefinition
	for _, item := range n.Content {
		in := &config.InputDefinition{Required: true}
		if item.Kind == yamlv3.ScalarNode {
			in.Name = item.Value
			out = append(out, in)
			continue
		}
		fields, err := pairs(item)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			switch f.key {
			case "name":
				in.Name = f.value.Value
			case "type":
				if in.Type, err = parseType(f.value); err != nil {
					return nil, err
				}
			case "required":
				if err := f.value.Decode(&in.Required); err != nil {
					return nil, errorAt(f.value, "required must be a boolean")
				}
			default:
				return nil, errorAt(f.value, "unknown input field %q", f.key)
			}
		}
		if in.Name == "" {
			return nil, errorAt(item, "input is missing a name")
		}
		out = append(out, in)
	}
	return out, nil
}

// parseOutputs accepts a mapping of name to type, a list of single-key
// mappings, or a list of bare names.
func parseOutputs(n *yamlv3.Node) ([]*config.OutputDefinition, error) {
	if n.Tag == nullTag {
		return nil, nil
	}
	var entries []pair
	switch n.Kind {
	case yamlv3.MappingNode:
		var err error
		if entries, err = pairs(n); err != nil {
			return nil, err
		}
	case yamlv3.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yamlv3.ScalarNode {
				entries = append(entries, pair{key: item.Value, value: &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: nullTag}})
				continue
			}
			sub, err := pairs(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
		}
	default:
		return nil, errorAt(n, "outputs must be a mapping or a list")
	}

	out := make([]*config.OutputDefinition, 0, len(entries))
	for _, e := range entries {
		typ, err := parseType(e.value)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", e.key, err)
		}
		out = append(out, &config.OutputDefinition{Name: e.key, Type: typ})
	}
	return out, nil
}

var longFormKeys = []string{"task", "args", "kwargs", "dependencies"}

// parseSteps reads graph or artifact entries. The long form names the task
// explicitly; the short form uses the task name as the only key, with a list
// of positional arguments, a mapping of named arguments, or a single value.
func parseSteps(n *yamlv3.Node) ([]*config.Step, error) {
	entries, err := pairs(n)
	if err != nil {
		return nil, err
	}
	var out []*config.Step
	for _, e := range entries {
		s, err := parseStep(e.key, e.value)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", e.key, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseStep(name string, n *yamlv3.Node) (*config.Step, error) {
	s := &config.Step{Name: name}
	fields, err := pairs(n)
	if err != nil {
		return nil, err
	}

	long := false
	for _, f := range fields {
		if f.key == "task" {
			long = true
		}
	}

	var taskNode *yamlv3.Node
	for _, f := range fields {
		switch {
		case f.key == "dependencies":
			if err := f.value.Decode(&s.Dependencies); err != nil {
				return nil, errorAt(f.value, "dependencies must be a list of step names")
			}
		case long && f.key == "task":
			s.Task = f.value.Value
		case long && f.key == "args":
			if f.value.Kind != yamlv3.SequenceNode {
				return nil, errorAt(f.value, "args must be a list")
			}
			if err := decodeArgs(s, f.value); err != nil {
				return nil, err
			}
		case long && f.key == "kwargs":
			if err := decodeKwargs(s, f.value); err != nil {
				return nil, err
			}
		case long:
			return nil, errorAt(f.value, "unknown step field %q (expected one of %v)", f.key, longFormKeys)
		default:
			if s.Task != "" {
				return nil, errorAt(f.value, "short-form step names more than one task (%q and %q)", s.Task, f.key)
			}
			s.Task = f.key
			taskNode = f.value
		}
	}
	if s.Task == "" {
		return nil, errorAt(n, "step does not name a task")
	}

	if taskNode != nil {
		switch {
		case taskNode.Tag == nullTag:
		case taskNode.Kind == yamlv3.SequenceNode:
			if err := decodeArgs(s, taskNode); err != nil {
				return nil, err
			}
		case taskNode.Kind == yamlv3.MappingNode:
			if err := decodeKwargs(s, taskNode); err != nil {
				return nil, err
			}
		default:
			v, err := decodeValue(taskNode)
			if err != nil {
				return nil, err
			}
			s.Args = []any{v}
		}
	}
	return s, nil
}

func decodeArgs(s *config.Step, n *yamlv3.Node) error {
	v, err := decodeValue(n)
	if err != nil {
		return err
	}
	s.Args, _ = v.([]any)
	return nil
}

func decodeKwargs(s *config.Step, n *yamlv3.Node) error {
	if n.Kind != yamlv3.MappingNode {
		return errorAt(n, "kwargs must be a mapping")
	}
	v, err := decodeValue(n)
	if err != nil {
		return err
	}
	s.Kwargs, _ = v.(map[string]any)
	return nil
}

func pairs(n *yamlv3.Node) ([]pair, error) {
	if n.Tag == nullTag {
		return nil, nil
	}
	if n.Kind != yamlv3.MappingNode {
		return nil, errorAt(n, "expected a mapping")
	}
	out := make([]pair, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if seen[key] {
			return nil, errorAt(n.Content[i], "duplicate key %q", key)
		}
		seen[key] = true
		out = append(out, pair{key: key, value: n.Content[i+1]})
	}
	return out, nil
}

func errorAt(n *yamlv3.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}
