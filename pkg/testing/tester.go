package testing

import (
	"context"
	"testing"

	"github.com/go-drift/schemaui/pkg/config"
	"github.com/go-drift/schemaui/pkg/core"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/metrics"
)

// DefaultBatchSize is the init batch size used by testers.
const DefaultBatchSize = 4

// Tester mounts schemas into an isolated runtime. Reported errors and
// panics are collected instead of logged.
type Tester struct {
	rt        *core.Runtime
	host      *core.Context
	errs      *errors.Collector
	scheduler *Scheduler
	metrics   *metrics.Collector
	ctx       context.Context
}

// NewTester creates a tester with its own runtime. Extra options are
// applied after the tester's defaults. Call Cleanup when done, or use
// NewTesterWithT instead.
func NewTester(opts ...core.Option) *Tester {
	cfg := config.Default()
	cfg.Runtime.BatchSize = DefaultBatchSize
	t := &Tester{
		errs:      &errors.Collector{},
		scheduler: NewScheduler(),
		metrics:   metrics.New(),
		ctx:       context.Background(),
	}
	base := []core.Option{
		core.WithConfig(cfg),
		core.WithErrorHandler(t.errs),
		core.WithScheduler(t.scheduler),
		core.WithMetrics(t.metrics),
	}
	t.rt = core.New(append(base, opts...)...)
	return t
}

// NewTesterWithT creates a tester that cleans up via t.Cleanup.
func NewTesterWithT(t *testing.T, opts ...core.Option) *Tester {
	tester := NewTester(opts...)
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup disposes the runtime.
func (t *Tester) Cleanup() {
	t.rt.Dispose()
	t.host = nil
}

// WithContext sets the context used by later mounts.
func (t *Tester) WithContext(ctx context.Context) *Tester {
	t.ctx = ctx
	return t
}

// Mount destroys the current tree, if any, and mounts root into the body.
func (t *Tester) Mount(root any) error {
	if old := t.host; old != nil {
		t.rt.Dispatch(old.Destroy)
		t.host = nil
	}
	host, err := t.rt.Mount(t.ctx, "", root)
	if err != nil {
		return err
	}
	t.host = host
	return nil
}

// Runtime returns the tester's runtime.
func (t *Tester) Runtime() *core.Runtime {
	return t.rt
}

// Host returns the host context of the mounted tree, or nil.
func (t *Tester) Host() *core.Context {
	return t.host
}

// Errors returns the collected error reports.
func (t *Tester) Errors() *errors.Collector {
	return t.errs
}

// Scheduler returns the scheduler the runtime yields to.
func (t *Tester) Scheduler() *Scheduler {
	return t.scheduler
}

// Metrics returns the runtime's metrics collector.
func (t *Tester) Metrics() *metrics.Collector {
	return t.metrics
}

// Text returns the text content of the mounted tree.
func (t *Tester) Text() string {
	if t.host == nil {
		return ""
	}
	return t.host.Binding().Text()
}

// Dependencies returns the number of live dependencies in the runtime's
// graph.
func (t *Tester) Dependencies() int {
	return t.rt.Graph().Len()
}

// Find evaluates a finder against the mounted tree.
func (t *Tester) Find(finder Finder) FinderResult {
	if t.host == nil {
		return FinderResult{finder: finder}
	}
	return FinderResult{
		contexts: finder.Evaluate(t.host),
		finder:   finder,
	}
}
