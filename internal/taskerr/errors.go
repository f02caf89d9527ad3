// Package taskerr defines the error taxonomy shared by every stage of a job:
// validation errors raised before any task runs, and execution errors raised
// while steps and artifacts are processed.
//
// Each error carries a sentinel Kind so callers can test for it with
// errors.Is, and enough context (step, task, binding, types) to be actionable
// without re-running the job.
package taskerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation kinds.
var (
	ErrUnknownTask           = errors.New("unknown task")
	ErrUndeclaredParameter   = errors.New("undeclared parameter")
	ErrUnknownStepOutput     = errors.New("unknown step output")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrMissingRequiredInput  = errors.New("missing required input")
	ErrUnknownInputParameter = errors.New("unknown input parameter")
	ErrDuplicateBinding      = errors.New("duplicate binding")
	ErrCyclicDependency      = errors.New("cyclic dependency")
	ErrDuplicateType         = errors.New("duplicate type")
	ErrUnknownType           = errors.New("unknown type")
	ErrUnknownComponentType  = errors.New("unknown component type")
	ErrInvalidReference      = errors.New("invalid reference")
	ErrInvalidName           = errors.New("invalid name")
	ErrDuplicateIdentifier   = errors.New("duplicate identifier")
	ErrDuplicateTask         = errors.New("duplicate task")
	ErrMissingParameterValue = errors.New("missing parameter value")
)

// Execution kinds.
var (
	ErrStepExecution                = errors.New("step execution failed")
	ErrMissingArtifactSource        = errors.New("missing artifact source")
	ErrDuplicateArtifactDestination = errors.New("duplicate artifact destination")
)

// ValidationError reports a malformed graph. It is raised before any task
// callable runs.
type ValidationError struct {
	Kind     error
	Step     string
	Task     string
	Binding  string
	Expected string
	Actual   string
	Msg      string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	var where []string
	if e.Step != "" {
		where = append(where, fmt.Sprintf("step %q", e.Step))
	}
	if e.Task != "" {
		where = append(where, fmt.Sprintf("task %q", e.Task))
	}
	if e.Binding != "" {
		where = append(where, fmt.Sprintf("binding %q", e.Binding))
	}
	if len(where) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(where, ", "))
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&sb, ": expected %s, got %s", e.Expected, e.Actual)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Invalidf builds a ValidationError of the given kind with a formatted message.
func Invalidf(kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// AtStep fills in step context on a ValidationError found in err, keeping any
// context that is already set. Non-validation errors are returned unchanged.
func AtStep(err error, step, task, binding string) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	if ve.Step == "" {
		ve.Step = step
	}
	if ve.Task == "" {
		ve.Task = task
	}
	if ve.Binding == "" {
		ve.Binding = binding
	}
	return err
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExecutionError reports a failure that happened while a job was running.
// Inputs holds a snapshot of the resolved inputs the step was invoked with.
type ExecutionError struct {
	Kind   error
	Step   string
	Task   string
	Inputs map[string]any
	Err    error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: step %q", e.Kind.Error(), e.Step)
	if e.Task != "" {
		msg += fmt.Sprintf(" (task %q)", e.Task)
	}
	if len(e.Inputs) > 0 {
		names := make([]string, 0, len(e.Inputs))
		for name := range e.Inputs {
			names = append(names, name)
		}
		sort.Strings(names)
		msg += fmt.Sprintf(" with inputs [%s]", strings.Join(names, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
