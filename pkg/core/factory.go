package core

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// maxRefDepth bounds chains of modules that return references.
const maxRefDepth = 32

// session carries one build pass: its cancellation context and the init
// hooks collected while building.
type session struct {
	rt    *Runtime
	ctx   context.Context
	inits []*Context
}

func (rt *Runtime) newSession(ctx context.Context) *session {
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{rt: rt, ctx: ctx}
}

// check reports whether building under parent may continue. Destroying
// any ancestor cancels the build.
func (s *session) check(parent *Context) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	for c := parent; c != nil; c = c.parent {
		if c.Destroyed() {
			return &errors.Error{Op: "core.build", Kind: errors.KindUnknown, Err: errors.ErrDestroyed}
		}
	}
	return nil
}

// flush runs the collected init hooks in order, yielding to the scheduler
// after every batch.
func (s *session) flush() error {
	if len(s.inits) == 0 {
		return nil
	}
	batch := s.rt.cfg.Runtime.BatchSize
	if batch < 1 {
		batch = 1
	}
	inits := s.inits
	s.inits = nil
	start := time.Now()
	for i, c := range inits {
		if i > 0 && i%batch == 0 {
			s.rt.metrics.ObserveInit(time.Since(start))
			if err := s.rt.sched.Yield(s.ctx); err != nil {
				return err
			}
			start = time.Now()
		}
		if c.Destroyed() {
			continue
		}
		c.component.runInit()
	}
	s.rt.metrics.ObserveInit(time.Since(start))
	return nil
}

// containsReaction reports whether v is a reaction or a list holding one.
func containsReaction(v any) bool {
	if _, ok := asReaction(v); ok {
		return true
	}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if containsReaction(item) {
				return true
			}
		}
	}
	return false
}

// flatten expands v into the items of one segment. Lists are spliced in,
// reactions are evaluated against state, and nil or false items drop out.
func flatten(v any, state *reactive.Object) []any {
	var out []any
	var walk func(v any)
	walk = func(v any) {
		switch typed := v.(type) {
		case []any:
			for _, item := range typed {
				walk(item)
			}
			return
		case *reactive.List:
			for _, item := range typed.Values() {
				walk(item)
			}
			return
		}
		if fn, ok := asReaction(v); ok {
			walk(fn(state))
			return
		}
		if !isEmpty(v) {
			out = append(out, v)
		}
	}
	walk(v)
	return out
}

type resolution struct {
	value  any
	module string
	loaded bool
}

// resolveAll loads the references among the items that need building.
// References load concurrently; the first failure cancels the rest.
func (rt *Runtime) resolveAll(s *session, parent *Context, items []any, reuse []bool) ([]resolution, error) {
	out := make([]resolution, len(items))
	g, gctx := errgroup.WithContext(s.ctx)
	for j, item := range items {
		out[j].value = item
		ref, ok := asRef(item)
		if !ok || reuse[j] {
			continue
		}
		base := ref.Base
		if base == "" {
			base = parent.module
		}
		g.Go(func() error {
			v, u, err := rt.loader.Load(gctx, ref.Path, base, ref.Args)
			if err != nil {
				return err
			}
			out[j] = resolution{value: v, module: u, loaded: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// built is one position produced by generate.
type built struct {
	index  int
	ctx    *Context
	reused bool
}

// generate walks the positions of a segment in order, yielding the reused
// context or building a new one. Each new context is yielded only after
// its whole subtree is bound, so the walk is depth first. The walk stops
// when the session is canceled or parent is destroyed.
func (rt *Runtime) generate(s *session, parent *Context, items []any, resolved []resolution, old []*Context, reuse []bool) iter.Seq2[built, error] {
	return func(yield func(built, error) bool) {
		for j, item := range items {
			if reuse[j] {
				if !yield(built{index: j, ctx: old[j], reused: true}, nil) {
					return
				}
				continue
			}
			if err := s.check(parent); err != nil {
				yield(built{}, err)
				return
			}
			child, err := rt.build(s, parent, item, resolved[j])
			if err != nil {
				yield(built{}, err)
				return
			}
			if err := s.check(parent); err != nil {
				child.Destroy()
				yield(built{}, err)
				return
			}
			if !yield(built{index: j, ctx: child}, nil) {
				return
			}
		}
	}
}

// build turns one resolved item into a bound context.
func (rt *Runtime) build(s *session, parent *Context, source any, res resolution) (*Context, error) {
	value, module := res.value, res.module
	if res.loaded {
		v, err := FromValue(value)
		if err != nil {
			return nil, err
		}
		value = v
	}
	for depth := 0; ; depth++ {
		ref, ok := asRef(value)
		if !ok {
			break
		}
		if depth == maxRefDepth {
			return nil, &errors.ValidationError{Path: ref.Path, Reason: "reference chain too deep"}
		}
		base := ref.Base
		if base == "" {
			base = module
		}
		if base == "" {
			base = parent.module
		}
		v, u, err := rt.loader.Load(s.ctx, ref.Path, base, ref.Args)
		if err != nil {
			return nil, err
		}
		if value, err = FromValue(v); err != nil {
			return nil, err
		}
		module = u
	}

	if isEmpty(value) {
		return rt.leaf(parent, source, module, nil), nil
	}
	if n, ok := asNode(value); ok {
		return rt.element(s, parent, source, n, module)
	}
	if fn, ok := asReaction(value); ok {
		c := rt.leaf(parent, source, module, "")
		c.component.SetText(fn)
		return c, nil
	}
	if _, ok := value.([]any); ok {
		return nil, &errors.ValidationError{Path: module, Reason: "module produced a list; wrap it in a node"}
	}
	if text, ok := textOf(value); ok {
		return rt.leaf(parent, source, module, text), nil
	}
	return nil, &errors.ValidationError{Path: module, Reason: fmt.Sprintf("unsupported child %T", value)}
}

// leaf builds a text context, or a placeholder when text is nil.
func (rt *Runtime) leaf(parent *Context, source any, module string, text any) *Context {
	c := rt.newContext(parent, source)
	if module != "" {
		c.module = module
	}
	if s, ok := text.(string); ok {
		c.binding = rt.doc.CreateText(s)
	} else {
		c.binding = rt.doc.CreatePlaceholder()
	}
	c.component = newComponent(c)
	Reflect(c.component, c.descriptors()...)
	c.phase = PhaseBound
	return c
}

// element builds an element context and its children, detached.
func (rt *Runtime) element(s *session, parent *Context, source any, n *Node, module string) (*Context, error) {
	if err := Validate(n); err != nil {
		return nil, err
	}
	c := rt.newContext(parent, source)
	c.node = n
	switch {
	case n.Module != "":
		c.module = n.Module
	case module != "":
		c.module = module
	}
	if n.State != nil {
		c.state = rt.graph.Object(cloneValue(n.State).(map[string]any))
		c.ownsState = true
	}
	c.binding = rt.doc.CreateElement(n.Tag)
	c.component = newComponent(c)
	Reflect(c.component, c.descriptors()...)
	if err := c.component.init(n); err != nil {
		c.Destroy()
		return nil, err
	}
	c.phase = PhaseBound
	if n.Hooks.Init != nil {
		s.inits = append(s.inits, c)
	}
	if n.Children != nil {
		if err := c.renderer.renderAll(s, n.Children); err != nil {
			c.Destroy()
			return nil, err
		}
	}
	return c, nil
}

// cloneValue deep-copies plain maps and slices so each context activates
// its own state and the schema stays reusable.
func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := maps.Clone(typed)
		for k, item := range out {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
