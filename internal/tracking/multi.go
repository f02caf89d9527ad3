package tracking

import (
	"context"
	"errors"
)

// Multi fans every record out to several trackers. All trackers are called
// even when one fails; the failures are joined.
type Multi []Tracker

func (m Multi) LogParam(ctx context.Context, key string, value any) error {
	var errs []error
	for _, t := range m {
		errs = append(errs, t.LogParam(ctx, key, value))
	}
	return errors.Join(errs...)
}

func (m Multi) LogMetric(ctx context.Context, name string, value float64, step string) error {
	var errs []error
	for _, t := range m {
		errs = append(errs, t.LogMetric(ctx, name, value, step))
	}
	return errors.Join(errs...)
}

func (m Multi) LogArtifact(ctx context.Context, name, location string) error {
	var errs []error
	for _, t := range m {
		errs = append(errs, t.LogArtifact(ctx, name, location))
	}
	return errors.Join(errs...)
}
