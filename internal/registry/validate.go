package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/types"
)

// CheckCallables performs a parity check between declared signatures and
// compiled code. The first signature, in declaration order, whose plugin has
// no callable fails with an unknown task error.
//
// Inputs declared as any are accepted but logged, since they opt out of
// static type checking.
func (r *Registry) CheckCallables(ctx context.Context, has func(plugin string) bool) error {
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.order {
		sig := r.signatures[name]
		if !has(sig.Plugin) {
			return &taskerr.ValidationError{
				Kind: taskerr.ErrUnknownTask,
				Task: name,
				Msg:  fmt.Sprintf("no callable is registered for plugin %q", sig.Plugin),
			}
		}
		for _, in := range sig.Inputs {
			if in.Type.Kind == types.KindAny {
				logger.Warn("Task declares an input with 'type = any', which disables static type checking. Consider using a specific type.", "task", name, "input", in.Name)
			}
		}
	}
	return nil
}
