package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/specialistvlad/taskgraph/internal/artifacts"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/executor"
	"github.com/specialistvlad/taskgraph/internal/inmemorystore"
	"github.com/specialistvlad/taskgraph/internal/tracking"
)

// Result describes a finished job.
type Result struct {
	JobID    string
	Attempts int
	// Report is the report of the last attempt. It is nil when the job never
	// reached execution.
	Report *executor.Report
	// Artifacts maps artifact names to the locations they were written to.
	Artifacts map[string]string
}

// Run executes one job: compile, bind parameters, execute with retries and
// finally serialize artifacts from the last attempt's outputs.
func (a *App) Run(ctx context.Context) (*Result, error) {
	res := &Result{JobID: uuid.NewString()}
	logger := a.logger.With("job_id", res.JobID)
	ctx = tracking.WithJob(ctxlog.WithLogger(ctx, logger), res.JobID)
	logger.Debug("App.Run method started.")

	if err := a.startHealthCheckServer(); err != nil {
		return res, err
	}
	defer a.closeHealthCheckServer(ctx)

	compiled, err := a.Compile(ctx)
	if err != nil {
		return res, err
	}

	tracker, closeTracker, err := a.trackers(ctx)
	if err != nil {
		return res, err
	}
	defer closeTracker()
	ctx = tracking.WithTracker(ctx, tracker)

	policy, err := executor.ParsePolicy(a.config.FailurePolicy)
	if err != nil {
		return res, err
	}

	var ec *executor.ExecutionContext
	attempt := func() error {
		res.Attempts++
		store := inmemorystore.New()
		ec, err = executor.NewExecutionContext(compiled.Graph, compiled.Plan, a.handlers, store, a.config.Params)
		if err != nil {
			return backoff.Permanent(err)
		}
		if res.Attempts == 1 {
			logParams(ctx, tracker, ec.Params())
		}

		logger.Info("🚀 Starting concurrent execution...", "attempt", res.Attempts, "workers", a.config.Workers)
		exec := executor.New(ec, executor.Options{Workers: a.config.Workers, Policy: policy, Metrics: a.metrics})
		report, runErr := exec.Run(ctx)
		res.Report = report
		logger.Info("🏁 Execution finished.", "status", report.Status, "duration", report.Duration)

		if runErr != nil && (report.Status == executor.JobCancelled || ctx.Err() != nil) {
			return backoff.Permanent(runErr)
		}
		if runErr != nil {
			logger.Warn("Job attempt failed.", "attempt", res.Attempts, "failed_steps", report.Failed())
		}
		return runErr
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.RetryInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.config.JobAttempts-1)), ctx)
	runErr := backoff.Retry(attempt, retry)

	if ec == nil {
		// Parameter binding failed; nothing ran.
		return res, runErr
	}

	store := artifacts.NewStore(a.fs, a.config.ArtifactsDir, a.artifactPolicy())
	locations, artErr := artifacts.NewResolver(ec, compiled.Artifacts, a.handlers, store, a.metrics).Run(ctx)
	res.Artifacts = locations

	logger.Debug("App.Run method finished.")
	return res, errors.Join(runErr, artErr)
}

func (a *App) artifactPolicy() artifacts.Policy {
	if a.config.ArtifactOverwrite {
		return artifacts.PolicyOverwrite
	}
	return artifacts.PolicyError
}

// trackers assembles the configured tracking sinks. The returned func
// releases their connections.
func (a *App) trackers(ctx context.Context) (tracking.Tracker, func(), error) {
	sinks := tracking.Multi{a.promTracker}
	sinks = append(sinks, a.extraTrackers...)
	closer := func() {}

	if a.config.TrackingFile != "" {
		sinks = append(sinks, tracking.NewFile(a.fs, a.config.TrackingFile))
	}
	if a.config.TrackingSocketURL != "" {
		sock, err := tracking.DialSocketIO(ctx, tracking.SocketOptions{URL: a.config.TrackingSocketURL, Timeout: 10 * time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect tracking socket: %w", err)
		}
		sinks = append(sinks, sock)
		closer = sock.Close
	}
	return sinks, closer, nil
}

func logParams(ctx context.Context, t tracking.Tracker, params map[string]any) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := t.LogParam(ctx, name, params[name]); err != nil {
			ctxlog.FromContext(ctx).Warn("Could not track parameter.", "param", name, "error", err)
		}
	}
}
