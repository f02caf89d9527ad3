package executor

import (
	"context"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/node"
)

// worker is the processing loop for a single concurrent worker. It runs one
// step at a time and reports every outcome on results.
func (e *Executor) worker(ctx context.Context, jobs <-chan *node.Node, results chan<- result, workerID int) {
	defer e.wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range jobs {
		e.opts.Metrics.WorkerBusy(1)
		err := e.runStep(ctx, n, workerID)
		e.opts.Metrics.WorkerBusy(-1)
		results <- result{node: n, err: err}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
