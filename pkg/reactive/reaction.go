package reactive

// Reaction is a computation that re-runs whenever a value it read changes.
type Reaction struct {
	graph    *Graph
	name     string
	trigger  func()
	deps     []depKey
	running  bool
	disposed bool
}

// NewReaction creates a reaction around trigger without running it. Use
// Graph.Toggle to perform the first tracked run.
func (g *Graph) NewReaction(name string, trigger func()) *Reaction {
	return &Reaction{graph: g, name: name, trigger: trigger}
}

// Name returns the diagnostic name of the reaction.
func (r *Reaction) Name() string {
	return r.name
}

// Deps returns the number of dependencies the reaction currently holds.
func (r *Reaction) Deps() int {
	return len(r.deps)
}

// Disposed reports whether Dispose has been called.
func (r *Reaction) Disposed() bool {
	return r.disposed
}

// Run re-evaluates the reaction immediately.
func (r *Reaction) Run() {
	if r.disposed {
		return
	}
	r.graph.run(r)
}

// Dispose unregisters the reaction from every dependency. It never runs
// again afterwards.
func (r *Reaction) Dispose() {
	if r.disposed {
		return
	}
	r.untrack()
	r.disposed = true
}

// untrack removes r from all of its dependencies.
func (r *Reaction) untrack() {
	for _, key := range r.deps {
		r.graph.register(ModeRemove, key.id, key.key, r)
	}
	r.deps = r.deps[:0]
}

// forget drops key from r's own list after the graph released it.
func (r *Reaction) forget(key depKey) {
	for i, existing := range r.deps {
		if existing == key {
			r.deps = append(r.deps[:i], r.deps[i+1:]...)
			return
		}
	}
}

// Assigner is the target of Register. *Object satisfies it.
type Assigner interface {
	Set(key string, value any)
}

// Register binds target[prop] to fn: fn runs once tracked and its result is
// assigned, then every write to something fn read re-runs fn and re-assigns.
func (g *Graph) Register(target Assigner, prop string, fn func() any) *Reaction {
	v, r := g.Watch(prop, fn, func(v any) { target.Set(prop, v) })
	target.Set(prop, v)
	return r
}

// Watch runs compute once tracked and returns its result. Later changes to
// anything compute read re-run it and pass the new result to apply. apply
// runs untracked so the reads it performs belong to no reaction.
func (g *Graph) Watch(name string, compute func() any, apply func(any)) (any, *Reaction) {
	w := &watch{compute: compute, apply: apply}
	r := g.NewReaction(name, w.fire)
	w.graph = g
	func() {
		defer func() {
			r.running = false
			if rec := recover(); rec != nil {
				r.Dispose()
				panic(rec)
			}
		}()
		r.running = true
		g.Toggle(r)
	}()
	w.started = true
	return w.value, r
}

type watch struct {
	graph   *Graph
	compute func() any
	apply   func(any)
	value   any
	started bool
}

func (w *watch) fire() {
	w.value = w.compute()
	if !w.started || w.apply == nil {
		return
	}
	v := w.value
	w.graph.Untracked(func() { w.apply(v) })
}
