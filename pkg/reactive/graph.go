package reactive

import (
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/go-drift/schemaui/pkg/errors"
)

// lengthKey is the dependency key for a list's length.
const lengthKey = "length"

// Mode selects whether a registration adds or removes a dependent.
type Mode int

const (
	// ModeSet registers a reaction as a dependent.
	ModeSet Mode = iota
	// ModeRemove unregisters a reaction.
	ModeRemove
)

// node is implemented by *Object and *List.
type node interface {
	nodeID() uint64
	owner() *Graph
	release()
	releaseExcept(keep map[node]bool)
}

type depKey struct {
	id  uint64
	key string
}

// dependency holds the reactions that read one key of one node, in
// registration order.
type dependency struct {
	reactions []*Reaction
}

func (d *dependency) add(r *Reaction) bool {
	for _, existing := range d.reactions {
		if existing == r {
			return false
		}
	}
	d.reactions = append(d.reactions, r)
	return true
}

func (d *dependency) remove(r *Reaction) {
	for i, existing := range d.reactions {
		if existing == r {
			d.reactions = append(d.reactions[:i], d.reactions[i+1:]...)
			return
		}
	}
}

// Options configures a Graph.
type Options struct {
	// Handler receives reaction failures. Nil drops them.
	Handler errors.Handler
	// Logger receives trace output about reaction runs.
	Logger zerolog.Logger
	// OnRun is called after every reaction run with its outcome.
	OnRun func(failed bool)
}

// Graph tracks which reactions depend on which node keys.
type Graph struct {
	nextID  uint64
	deps    map[uint64]map[string]*dependency
	nodes   map[uint64]node
	wrapped map[uintptr]*Object
	current *Reaction
	opts    Options
}

// NewGraph creates an empty dependency graph.
func NewGraph(opts ...Options) *Graph {
	g := &Graph{
		deps:    make(map[uint64]map[string]*dependency),
		nodes:   make(map[uint64]node),
		wrapped: make(map[uintptr]*Object),
		opts:    Options{Logger: zerolog.Nop()},
	}
	if len(opts) > 0 {
		g.opts = opts[0]
	}
	return g
}

func (g *Graph) allocID() uint64 {
	g.nextID++
	return g.nextID
}

// Len returns the number of live dependencies (node key pairs with at least
// one dependent reaction).
func (g *Graph) Len() int {
	n := 0
	for _, keys := range g.deps {
		n += len(keys)
	}
	return n
}

// CountFor returns the number of live dependencies on v and every reactive
// node nested inside it.
func (g *Graph) CountFor(v any) int {
	n, ok := v.(node)
	if !ok {
		return 0
	}
	count := len(g.deps[n.nodeID()])
	switch typed := v.(type) {
	case *Object:
		for _, child := range typed.raw {
			count += g.CountFor(child)
		}
	case *List:
		for _, child := range typed.items {
			count += g.CountFor(child)
		}
	}
	return count
}

// Release drops v and every node nested in it from the graph, along with
// all dependencies registered on them. Storing v again revives it.
func (g *Graph) Release(v any) {
	if n, ok := v.(node); ok && n.owner() == g {
		n.release()
	}
}

// releaseReplaced releases old after it was overwritten by next. Nodes
// still reachable from next keep their dependencies.
func releaseReplaced(old, next any) {
	n, ok := old.(node)
	if !ok || sameNode(old, next) {
		return
	}
	keep := make(map[node]bool)
	reachable(next, keep)
	n.releaseExcept(keep)
}

func reachable(v any, into map[node]bool) {
	n, ok := v.(node)
	if !ok || into[n] {
		return
	}
	into[n] = true
	switch typed := n.(type) {
	case *Object:
		for _, child := range typed.raw {
			reachable(child, into)
		}
	case *List:
		for _, child := range typed.items {
			reachable(child, into)
		}
	}
}

// Nodes returns the number of reactive nodes currently registered.
func (g *Graph) Nodes() int {
	return len(g.nodes)
}

// Current returns the reaction being evaluated, or nil.
func (g *Graph) Current() *Reaction {
	return g.current
}

// Toggle makes r the current reaction, invokes its trigger so every read
// registers r, then restores the previous current reaction.
func (g *Graph) Toggle(r *Reaction) {
	prev := g.current
	g.current = r
	defer func() { g.current = prev }()
	r.trigger()
}

// Untracked runs fn with no current reaction, so reads inside fn do not
// register dependencies.
func (g *Graph) Untracked(fn func()) {
	prev := g.current
	g.current = nil
	defer func() { g.current = prev }()
	fn()
}

// register adds or removes r as a dependent of (id, key).
func (g *Graph) register(mode Mode, id uint64, key string, r *Reaction) {
	switch mode {
	case ModeSet:
		keys := g.deps[id]
		if keys == nil {
			keys = make(map[string]*dependency)
			g.deps[id] = keys
		}
		dep := keys[key]
		if dep == nil {
			dep = &dependency{}
			keys[key] = dep
		}
		if dep.add(r) {
			r.deps = append(r.deps, depKey{id: id, key: key})
		}
	case ModeRemove:
		keys := g.deps[id]
		if keys == nil {
			return
		}
		dep := keys[key]
		if dep == nil {
			return
		}
		dep.remove(r)
		if len(dep.reactions) == 0 {
			delete(keys, key)
		}
		if len(keys) == 0 {
			delete(g.deps, id)
		}
	}
}

// track registers the current reaction, if any, on (id, key).
func (g *Graph) track(id uint64, key string) {
	if g.current == nil || g.current.disposed {
		return
	}
	g.register(ModeSet, id, key, g.current)
}

func (g *Graph) trackIndex(id uint64, index int) {
	if g.current == nil {
		return
	}
	g.track(id, strconv.Itoa(index))
}

// notify re-runs every dependent of (id, key).
func (g *Graph) notify(id uint64, key string) {
	dep := g.deps[id][key]
	if dep == nil {
		return
	}
	g.runAll(append([]*Reaction(nil), dep.reactions...))
}

// notifyAll re-runs every dependent of any key of id. Used for list length
// changes, which can move every index.
func (g *Graph) notifyAll(id uint64) {
	keys := g.deps[id]
	if len(keys) == 0 {
		return
	}
	var pending []*Reaction
	seen := make(map[*Reaction]bool)
	// Length dependents first, then indexes in ascending order.
	if dep := keys[lengthKey]; dep != nil {
		for _, r := range dep.reactions {
			if !seen[r] {
				seen[r] = true
				pending = append(pending, r)
			}
		}
	}
	indexes := make([]int, 0, len(keys))
	for key := range keys {
		if i, err := strconv.Atoi(key); err == nil {
			indexes = append(indexes, i)
		}
	}
	slices.Sort(indexes)
	for _, i := range indexes {
		for _, r := range keys[strconv.Itoa(i)].reactions {
			if !seen[r] {
				seen[r] = true
				pending = append(pending, r)
			}
		}
	}
	g.runAll(pending)
}

func (g *Graph) runAll(reactions []*Reaction) {
	for _, r := range reactions {
		if r.disposed || r.running {
			continue
		}
		g.run(r)
	}
}

// run re-evaluates r: it drops r's current dependencies and re-tracks them.
// A panicking reaction is reported and does not stop its siblings.
func (g *Graph) run(r *Reaction) {
	failed := false
	defer func() {
		if g.opts.OnRun != nil {
			g.opts.OnRun(failed)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			failed = true
			r.running = false
			g.opts.Logger.Debug().Str("reaction", r.name).Interface("panic", rec).Msg("reaction failed")
			errors.Report(g.opts.Handler, &errors.Error{
				Op:         "reactive.Reaction",
				Kind:       errors.KindReaction,
				Path:       r.name,
				Err:        &errors.PanicError{Op: r.name, Value: rec},
				StackTrace: errors.CaptureStack(),
			})
		}
	}()
	r.untrack()
	r.running = true
	g.Toggle(r)
	r.running = false
}

// releaseDeps drops every dependency registered on id.
func (g *Graph) releaseDeps(id uint64) {
	keys := g.deps[id]
	for key, dep := range keys {
		for _, r := range dep.reactions {
			r.forget(depKey{id: id, key: key})
		}
	}
	delete(g.deps, id)
	delete(g.nodes, id)
}
