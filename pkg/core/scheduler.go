package core

import (
	"context"
	"runtime"
)

// Scheduler decides how a long run of init hooks gives way to other work.
// Yield is called between batches; returning an error stops the run.
type Scheduler interface {
	Yield(ctx context.Context) error
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(ctx context.Context) error

// Yield calls f.
func (f SchedulerFunc) Yield(ctx context.Context) error { return f(ctx) }

// GoschedScheduler yields the processor to other goroutines.
type GoschedScheduler struct{}

// Yield calls runtime.Gosched and reports whether ctx is done.
func (GoschedScheduler) Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}
