package core

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-drift/schemaui/pkg/channel"
	"github.com/go-drift/schemaui/pkg/config"
	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/loader"
	"github.com/go-drift/schemaui/pkg/metrics"
	"github.com/go-drift/schemaui/pkg/reactive"
	"github.com/go-drift/schemaui/pkg/styler"
)

// Runtime owns everything one mounted UI needs: the document, the
// dependency graph, the module loader, the stylesheet and the channel bus.
//
// Mount, Dispose, Click, DispatchEvent and Dispatch hold the runtime lock
// while they run, and reactions rerun inside whichever of them changed the
// state. Anything else that reads or writes the tree (a Context, a
// Component, a Binding or a state Object) must run inside one of them once
// more than one goroutine is involved. The lock is not reentrant: handlers
// and functions passed to Dispatch must not call these methods again.
type Runtime struct {
	id       string
	cfg      *config.Config
	doc      *dom.Document
	graph    *reactive.Graph
	loader   *loader.Loader
	styler   *styler.Styler
	channels *channel.Manager
	sched    Scheduler
	metrics  *metrics.Collector
	handler  errors.Handler
	logger   zerolog.Logger
	sheet    *dom.Binding
	roots    []*Context
	mu       sync.Mutex
	disposed bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithConfig sets the runtime configuration.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg != nil {
			rt.cfg = cfg
		}
	}
}

// WithLogger sets the logger shared by the runtime's parts.
func WithLogger(logger zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithErrorHandler sets where non-fatal errors are reported. The default
// logs them.
func WithErrorHandler(h errors.Handler) Option {
	return func(rt *Runtime) {
		rt.handler = h
	}
}

// WithDocument renders into an existing document.
func WithDocument(doc *dom.Document) Option {
	return func(rt *Runtime) {
		rt.doc = doc
	}
}

// WithLoader resolves references with l.
func WithLoader(l *loader.Loader) Option {
	return func(rt *Runtime) {
		rt.loader = l
	}
}

// WithStyler shares a stylesheet between runtimes.
func WithStyler(s *styler.Styler) Option {
	return func(rt *Runtime) {
		rt.styler = s
	}
}

// WithScheduler sets how init hook batches yield.
func WithScheduler(s Scheduler) Option {
	return func(rt *Runtime) {
		rt.sched = s
	}
}

// WithMetrics records runtime metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(rt *Runtime) {
		rt.metrics = c
	}
}

// New creates a Runtime with an empty document.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		id:     uuid.NewString(),
		cfg:    config.Default(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger = rt.logger.With().Str("runtime", rt.id).Logger()
	if rt.handler == nil {
		rt.handler = errors.NewLogHandler(rt.logger, rt.cfg.Log.Verbose)
	}
	if rt.doc == nil {
		rt.doc = dom.NewDocument(
			dom.WithLogger(rt.logger),
			dom.WithListenerWarnThreshold(rt.cfg.WarnThreshold()),
		)
	}
	rt.graph = reactive.NewGraph(reactive.Options{
		Handler: rt.handler,
		Logger:  rt.logger,
		OnRun:   rt.metrics.ReactionRun,
	})
	if rt.loader == nil {
		rt.loader = loader.New(
			loader.WithDecoder(DecodeYAML),
			loader.WithLogger(rt.logger),
			loader.WithLoadHook(func(r loader.Result) { rt.metrics.ModuleLoad(r.Cached, r.Err) }),
		)
	}
	if rt.styler == nil {
		rt.styler = styler.New()
	}
	rt.channels = channel.NewManager(
		channel.WithLogger(rt.logger),
		channel.WithErrorHandler(rt.handler),
		channel.WithListenerWarnThreshold(rt.cfg.WarnThreshold()),
		channel.WithEmitHook(func(_ string, n int) { rt.metrics.ChannelDelivered(n) }),
	)
	if rt.sched == nil {
		rt.sched = GoschedScheduler{}
	}
	return rt
}

// ID returns the runtime's unique id.
func (rt *Runtime) ID() string { return rt.id }

// Document returns the document the runtime renders into.
func (rt *Runtime) Document() *dom.Document { return rt.doc }

// Graph returns the runtime's dependency graph.
func (rt *Runtime) Graph() *reactive.Graph { return rt.graph }

// Loader returns the module loader.
func (rt *Runtime) Loader() *loader.Loader { return rt.loader }

// Styler returns the stylesheet.
func (rt *Runtime) Styler() *styler.Styler { return rt.styler }

// Channels returns the channel bus.
func (rt *Runtime) Channels() *channel.Manager { return rt.channels }

// Metrics returns the metrics collector, which may be nil.
func (rt *Runtime) Metrics() *metrics.Collector { return rt.metrics }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() zerolog.Logger { return rt.logger }

// Roots returns the mounted root contexts.
func (rt *Runtime) Roots() []*Context {
	return append([]*Context(nil), rt.roots...)
}

// Mount compiles root and places it in the element with id target, or in
// the body when target is empty. A missing target is reported and the tree
// is built into a detached fragment.
//
// Mount returns once the tree is built and its init hooks have run.
// Validation and loading errors abort the build and are returned with
// nothing left in the document.
func (rt *Runtime) Mount(ctx context.Context, target string, root any) (*Context, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.mount(ctx, target, root)
}

func (rt *Runtime) mount(ctx context.Context, target string, root any) (*Context, error) {
	if rt.disposed {
		return nil, &errors.Error{Op: "core.Mount", Kind: errors.KindUnknown, Err: errors.ErrDestroyed}
	}
	parent := rt.doc.Body()
	if target != "" {
		parent = rt.doc.ByID(target)
		if parent == nil {
			errors.Report(rt.handler, &errors.Error{
				Op:   "core.Mount",
				Kind: errors.KindNotFound,
				Err:  errors.ErrMountTargetMissing,
				Path: target,
			})
			parent = rt.doc.CreateFragment()
		}
	}

	host := rt.newContext(nil, nil)
	host.host = true
	host.binding = parent
	host.state = rt.graph.Object(nil)
	host.ownsState = true
	host.component = newComponent(host)
	Reflect(host.component, host.descriptors()...)
	host.phase = PhaseBound
	if parent.Connected() {
		host.phase = PhaseMounted
	}

	rt.roots = append(rt.roots, host)
	s := rt.newSession(ctx)
	if err := host.renderer.renderAll(s, []any{root}); err != nil {
		host.Destroy()
		return nil, err
	}
	rt.logger.Debug().Str("target", target).Int("contexts", host.count()-1).Msg("mounted")
	return host, s.flush()
}

// Dispatch runs fn while holding the runtime lock.
func (rt *Runtime) Dispatch(fn func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn()
}

// Click fires a click on b under the runtime lock.
func (rt *Runtime) Click(b *dom.Binding) bool {
	return rt.DispatchEvent(b, &dom.Event{Type: "click", Bubbles: true})
}

// DispatchEvent fires ev on b under the runtime lock and reports whether
// the default action was left alone.
func (rt *Runtime) DispatchEvent(b *dom.Binding, ev *dom.Event) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return b.Dispatch(ev)
}

// Dispose destroys every mounted tree, drops all channel subscriptions and
// empties the module cache and stylesheet. The runtime cannot mount again.
func (rt *Runtime) Dispose() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.disposed {
		return
	}
	for _, root := range slices.Clone(rt.roots) {
		root.Destroy()
	}
	rt.roots = nil
	rt.channels.ClearAll()
	rt.loader.Purge()
	rt.styler.Reset()
	rt.disposed = true
}

// FlushStyles writes the stylesheet into a style element in the head.
func (rt *Runtime) FlushStyles() {
	if rt.sheet == nil {
		rt.sheet = rt.doc.CreateElement("style")
		rt.sheet.SetAttr("id", "schemaui-styles")
		rt.doc.Head().Append(rt.sheet)
	}
	rt.sheet.SetText(rt.styler.CSS())
}

// Render flushes styles and writes the document as HTML.
func (rt *Runtime) Render(w io.Writer) error {
	rt.FlushStyles()
	return rt.doc.Render(w)
}

func (rt *Runtime) forgetRoot(c *Context) {
	for i, root := range rt.roots {
		if root == c {
			rt.roots = append(rt.roots[:i], rt.roots[i+1:]...)
			return
		}
	}
}

// watch runs compute as a reaction. A panic during the first evaluation is
// reported and leaves ok false with no reaction registered.
func (rt *Runtime) watch(name string, compute func() any, apply func(any)) (value any, r *reactive.Reaction, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			errors.Report(rt.handler, &errors.Error{
				Op:         "core.watch",
				Kind:       errors.KindReaction,
				Path:       name,
				Err:        &errors.PanicError{Op: name, Value: rec},
				StackTrace: errors.CaptureStack(),
			})
			value, r, ok = nil, nil, false
		}
	}()
	value, r = rt.graph.Watch(name, compute, apply)
	return value, r, true
}

func (rt *Runtime) report(op string, kind errors.Kind, err error) {
	if err == nil {
		return
	}
	var rerr *errors.Error
	if errors.As(err, &rerr) {
		errors.Report(rt.handler, rerr)
		return
	}
	errors.Report(rt.handler, &errors.Error{Op: op, Kind: kind, Err: err})
}
