package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/taskgraph/internal/registry"
)

// Barrier returns a task that blocks until n invocations are in flight at the
// same time. If they never all arrive within timeout the task fails, which
// proves the steps did not run concurrently.
func Barrier(n int, timeout time.Duration) registry.TaskFunc {
	var wg sync.WaitGroup
	wg.Add(n)
	released := make(chan struct{})
	go func() {
		wg.Wait()
		close(released)
	}()

	return func(ctx context.Context, _ map[string]any) (any, error) {
		wg.Done()
		select {
		case <-released:
			return nil, nil
		case <-time.After(timeout):
			return nil, fmt.Errorf("only some of %d concurrent calls arrived within %s", n, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
