package core

import (
	"iter"

	"github.com/google/uuid"

	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Phase is the lifecycle stage of a Context.
type Phase int

const (
	// PhasePending means the schema is known but nothing is built yet.
	PhasePending Phase = iota
	// PhaseBound means the binding exists and the component is wired.
	PhaseBound
	// PhaseMounted means the node is placed in the live document.
	PhaseMounted
	// PhaseDestroyed is terminal.
	PhaseDestroyed
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseBound:
		return "bound"
	case PhaseMounted:
		return "mounted"
	case PhaseDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Context is the live counterpart of one child value. It owns the
// component, the DOM binding and the child contexts produced by each
// declared child slot.
type Context struct {
	id        string
	rt        *Runtime
	parent    *Context
	source    any
	node      *Node
	module    string
	host      bool
	component *Component
	binding   *dom.Binding
	renderer  *renderer
	state     *reactive.Object
	ownsState bool
	phase     Phase
}

func (rt *Runtime) newContext(parent *Context, source any) *Context {
	c := &Context{
		id:     uuid.NewString(),
		rt:     rt,
		parent: parent,
		source: source,
	}
	c.renderer = &renderer{ctx: c}
	if parent != nil {
		c.module = parent.module
		c.state = parent.state
		rt.metrics.ContextCreated()
	}
	return c
}

// ID returns the context's unique id.
func (c *Context) ID() string { return c.id }

// Parent returns the parent context, nil for a mount root.
func (c *Context) Parent() *Context { return c.parent }

// Phase returns the lifecycle phase.
func (c *Context) Phase() Phase { return c.phase }

// Destroyed reports whether the context was destroyed.
func (c *Context) Destroyed() bool { return c.phase == PhaseDestroyed }

// IsHost reports whether c is the host context created by Mount.
func (c *Context) IsHost() bool { return c.host }

// Node returns the schema node, nil for text and placeholder contexts.
func (c *Context) Node() *Node { return c.node }

// Source returns the child value the context was built from.
func (c *Context) Source() any { return c.source }

// Component returns the context's component.
func (c *Context) Component() *Component { return c.component }

// Binding returns the DOM binding.
func (c *Context) Binding() *dom.Binding { return c.binding }

// State returns the reactive state the context reads.
func (c *Context) State() *reactive.Object { return c.state }

// Runtime returns the runtime the context belongs to.
func (c *Context) Runtime() *Runtime { return c.rt }

// ModuleURL returns the URL of the module that declared the context.
func (c *Context) ModuleURL() string { return c.module }

// Segments returns a copy of the child segments, one per declared slot.
func (c *Context) Segments() [][]*Context {
	out := make([][]*Context, len(c.renderer.segments))
	for i, seg := range c.renderer.segments {
		out[i] = append([]*Context(nil), seg...)
	}
	return out
}

// Children returns the child contexts of every segment in order.
func (c *Context) Children() []*Context {
	var out []*Context
	for _, seg := range c.renderer.segments {
		out = append(out, seg...)
	}
	return out
}

// First returns the first child context, or nil.
func (c *Context) First() *Context {
	for _, seg := range c.renderer.segments {
		if len(seg) > 0 {
			return seg[0]
		}
	}
	return nil
}

// Walk yields c and its descendants depth first.
func (c *Context) Walk() iter.Seq[*Context] {
	return func(yield func(*Context) bool) {
		c.walk(yield)
	}
}

func (c *Context) walk(yield func(*Context) bool) bool {
	if !yield(c) {
		return false
	}
	for _, seg := range c.renderer.segments {
		for _, child := range seg {
			if !child.walk(yield) {
				return false
			}
		}
	}
	return true
}

func (c *Context) count() int {
	n := 0
	for range c.Walk() {
		n++
	}
	return n
}

func (c *Context) markMounted() {
	for d := range c.Walk() {
		if d.phase == PhaseBound {
			d.phase = PhaseMounted
		}
	}
}

// Destroy tears the context down: the destroy hook runs, descendants are
// destroyed, reactions are disposed, channel subscriptions are cleared and
// the node is detached. Destroying twice is a no-op. A build in progress
// under c stops at its next step.
func (c *Context) Destroy() {
	if c.phase == PhaseDestroyed {
		return
	}
	bound := c.phase >= PhaseBound
	c.phase = PhaseDestroyed

	if bound && c.node != nil && c.node.Hooks.Destroy != nil {
		hook := c.node.Hooks.Destroy
		c.component.invoke("hooks.destroy", func() { hook(c.component) })
	}
	c.renderer.dispose()
	if c.component != nil {
		c.component.dispose()
	}
	c.rt.channels.Clear(c, "")
	if c.ownsState {
		c.rt.graph.Release(c.state)
	}

	if c.host {
		c.rt.forgetRoot(c)
		return
	}
	if c.binding != nil {
		c.binding.Destroy()
	}
	if c.parent != nil {
		c.parent.renderer.forget(c)
	}
	c.rt.metrics.ContextDestroyed()
}

// descriptors lists the reflected properties of c's component.
func (c *Context) descriptors() []Descriptor {
	comp := c.component
	ds := []Descriptor{{
		Name: "text",
		Get:  func() any { return comp.Text() },
		Set:  func(v any) error { return comp.SetText(v) },
	}}
	if c.binding.IsPlaceholder() {
		return ds[:0]
	}
	if !c.binding.IsElement() {
		return ds
	}
	ds = append(ds,
		Descriptor{Name: "styles", Get: func() any { return comp.styles }, Set: comp.styles.assignValue},
		Descriptor{Name: "attrs", Get: func() any { return comp.attrs }, Set: comp.attrs.assignValue},
		Descriptor{Name: "props", Get: func() any { return comp.props }, Set: comp.props.assignValue},
		Descriptor{Name: "events", Get: func() any { return comp.events }, Set: comp.events.assignValue},
		Descriptor{Name: "children", Get: func() any { return comp.Children() }, Set: comp.SetChildren},
		Descriptor{Name: "state", Get: func() any { return comp.State() }, Set: comp.setState},
	)
	return ds
}
