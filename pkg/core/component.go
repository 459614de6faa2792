package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Component is the handle user code receives in handlers, methods and
// hooks. Its properties are live: every write is applied to the element at
// once.
type Component struct {
	ctx       *Context
	reflected map[string]Descriptor
	text      *reactive.Reaction
	styles    *Surface
	attrs     *Surface
	props     *Surface
	events    *Surface
	listeners map[string]func()
}

func newComponent(c *Context) *Component {
	comp := &Component{ctx: c, listeners: make(map[string]func())}
	if !c.binding.IsElement() {
		return comp
	}
	b := c.binding

	comp.styles = newSurface(c, "styles", true)
	comp.styles.declarations = true
	comp.styles.flush = func(s *Surface) {
		class, err := c.rt.styler.Use(s.Map(), b.Tag())
		if err != nil {
			c.rt.report("core.styles", errors.KindValidation, err)
			return
		}
		b.SetStyleClass(class)
	}

	comp.attrs = newSurface(c, "attrs", true)
	comp.attrs.apply = func(key string, v any) {
		switch v {
		case false:
			b.RemoveAttr(key)
		case true:
			b.SetAttr(key, "")
		default:
			b.SetAttr(key, stringOf(v))
		}
	}
	comp.attrs.remove = b.RemoveAttr
	comp.attrs.replace = func(values map[string]any, previous []string) {
		// Attributes the surface never owned, such as a mount target's id,
		// stay put.
		attrs := b.Attributes()
		delete(attrs, "class")
		for _, k := range previous {
			delete(attrs, k)
		}
		for k, v := range values {
			switch v {
			case false:
			case true:
				attrs[k] = ""
			default:
				attrs[k] = stringOf(v)
			}
		}
		if style, ok := b.Attr("style"); ok {
			attrs["style"] = style
		}
		b.SetAttributes(attrs)
	}
	inline := newSurface(c, "attrs.style", true)
	inline.declarations = true
	inline.apply = func(key string, v any) { b.SetStyleProperty(key, stringOf(v)) }
	inline.remove = b.RemoveStyleProperty
	inline.replace = func(values map[string]any, _ []string) {
		style := make(map[string]string, len(values))
		for k, v := range values {
			style[k] = stringOf(v)
		}
		b.SetInlineStyle(style)
	}
	comp.attrs.nested = map[string]*Surface{"style": inline}

	comp.props = newSurface(c, "props", true)
	comp.props.apply = b.SetProperty
	comp.props.remove = b.RemoveProperty
	comp.props.replace = func(values map[string]any, _ []string) { b.SetProperties(values) }

	comp.events = newSurface(c, "events", false)
	comp.events.apply = func(key string, v any) {
		comp.unlisten(key)
		fn, ok := asHandler(v)
		if !ok {
			c.rt.report("core.events", errors.KindValidation, &errors.ValidationError{
				Path:   "events." + key,
				Reason: fmt.Sprintf("%T is not an event handler", v),
			})
			return
		}
		comp.listeners[key] = b.AddEventListener(key, func(ev *dom.Event) {
			comp.invoke("events."+key, func() { fn(comp, ev) })
		})
	}
	comp.events.remove = comp.unlisten
	return comp
}

func stringOf(v any) string {
	if s, ok := textOf(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asHandler(v any) (Handler, bool) {
	switch fn := v.(type) {
	case Handler:
		return fn, fn != nil
	case func(*Component, *dom.Event):
		return fn, fn != nil
	case func(*Component):
		return func(c *Component, _ *dom.Event) { fn(c) }, fn != nil
	case func():
		return func(*Component, *dom.Event) { fn() }, fn != nil
	}
	return nil, false
}

func (c *Component) unlisten(key string) {
	if remove := c.listeners[key]; remove != nil {
		remove()
		delete(c.listeners, key)
	}
}

// invoke runs user code, reporting a panic instead of unwinding the
// runtime.
func (c *Component) invoke(op string, fn func()) {
	defer errors.Recover(c.ctx.rt.handler, op)
	fn()
}

// init applies the node's declared properties.
func (c *Component) init(n *Node) error {
	if n.Text != nil {
		if err := c.SetText(n.Text); err != nil {
			return err
		}
	}
	c.styles.assign(n.Styles)
	c.attrs.assign(n.Attrs)
	c.props.assign(n.Props)
	events := make(map[string]any, len(n.Events))
	for k, fn := range n.Events {
		events[k] = fn
	}
	c.events.assign(events)

	names := make([]string, 0, len(n.Channels))
	for name := range n.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.BindChannel(name, n.Channels[name]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Component) runInit() {
	hook := c.ctx.node.Hooks.Init
	var err error
	c.invoke("hooks.init", func() { err = hook(c) })
	if err != nil {
		errors.Report(c.ctx.rt.handler, &errors.Error{Op: "hooks.init", Kind: errors.KindHook, Err: err, Path: c.Tag()})
	}
}

func (c *Component) dispose() {
	if c.text != nil {
		c.text.Dispose()
		c.text = nil
	}
	for _, s := range []*Surface{c.styles, c.attrs, c.props} {
		if s != nil {
			s.dispose()
		}
	}
	for key := range c.listeners {
		c.unlisten(key)
	}
}

// Context returns the component's context.
func (c *Component) Context() *Context { return c.ctx }

// Binding returns the element binding.
func (c *Component) Binding() *dom.Binding { return c.ctx.binding }

// Tag returns the element tag, or "" for text.
func (c *Component) Tag() string {
	if c.ctx.node != nil {
		return c.ctx.node.Tag
	}
	return ""
}

// Module returns the URL of the declaring module.
func (c *Component) Module() string { return c.ctx.module }

// Parent returns the parent component, or nil at a mount root.
func (c *Component) Parent() *Component {
	if c.ctx.parent == nil {
		return nil
	}
	return c.ctx.parent.component
}

// State returns the reactive state. Components without their own state
// share their parent's.
func (c *Component) State() *reactive.Object { return c.ctx.state }

func (c *Component) setState(v any) error {
	var m map[string]any
	switch typed := v.(type) {
	case map[string]any:
		m = typed
	case *reactive.Object:
		m = typed.Raw()
	default:
		return &errors.ValidationError{Path: "state", Reason: fmt.Sprintf("cannot assign %T", v)}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.ctx.state.Set(k, m[k])
	}
	return nil
}

// Text returns the element's text content.
func (c *Component) Text() string { return c.ctx.binding.Text() }

// SetText replaces the element's content with text. A Reaction keeps the
// text in sync with state.
func (c *Component) SetText(v any) error {
	if c.ctx.Destroyed() {
		return nil
	}
	if c.text != nil {
		c.text.Dispose()
		c.text = nil
	}
	if c.ctx.binding.IsElement() {
		c.ctx.renderer.clear()
	}
	b := c.ctx.binding
	if fn, ok := asReaction(v); ok {
		state := c.ctx.state
		value, r, ok := c.ctx.rt.watch("text",
			func() any { return fn(state) },
			func(v any) { b.SetText(stringOf(v)) },
		)
		if !ok {
			return nil
		}
		c.text = r
		v = value
	}
	if v == nil {
		v = ""
	}
	b.SetText(stringOf(v))
	return nil
}

// Styles returns the live style object.
func (c *Component) Styles() *Surface { return c.styles }

// SetStyles replaces every style.
func (c *Component) SetStyles(styles map[string]any) { c.styles.assign(styles) }

// Attrs returns the live attribute object. Its "style" key is the inline
// style object.
func (c *Component) Attrs() *Surface { return c.attrs }

// SetAttrs replaces every attribute.
func (c *Component) SetAttrs(attrs map[string]any) { c.attrs.assign(attrs) }

// Props returns the live property object.
func (c *Component) Props() *Surface { return c.props }

// SetProps replaces every property.
func (c *Component) SetProps(props map[string]any) { c.props.assign(props) }

// Events returns the live event handler object.
func (c *Component) Events() *Surface { return c.events }

// SetEvents replaces every event handler.
func (c *Component) SetEvents(events map[string]any) { c.events.assign(events) }

// Children returns the live child list.
func (c *Component) Children() *Children { return &Children{ctx: c.ctx} }

// SetChildren re-renders every child slot from v, a []any with one value
// per slot or a single value.
func (c *Component) SetChildren(v any) error {
	return c.Children().SetAll(v)
}

// Get reads a reflected property by name.
func (c *Component) Get(name string) (any, error) {
	d, ok := c.reflected[name]
	if !ok {
		return nil, &errors.Error{Op: "core.Get", Kind: errors.KindNotFound, Err: fmt.Errorf("no property %q", name), Path: name}
	}
	return d.Get(), nil
}

// Set writes a reflected property by name.
func (c *Component) Set(name string, v any) error {
	d, ok := c.reflected[name]
	if !ok {
		return &errors.Error{Op: "core.Set", Kind: errors.KindNotFound, Err: fmt.Errorf("no property %q", name), Path: name}
	}
	return d.Set(v)
}

// Properties returns the reflected property names, sorted.
func (c *Component) Properties() []string {
	names := make([]string, 0, len(c.reflected))
	for name := range c.reflected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a method declared on the node. A panicking method is
// returned as an error.
func (c *Component) Call(name string, args ...any) (result any, err error) {
	var m Method
	if c.ctx.node != nil {
		m = c.ctx.node.Methods[name]
	}
	if m == nil {
		return nil, &errors.Error{Op: "core.Call", Kind: errors.KindNotFound, Err: fmt.Errorf("no method %q", name), Path: name}
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = &errors.PanicError{Op: "methods." + name, Value: rec, StackTrace: errors.CaptureStack()}
		}
	}()
	return m(c, args...), nil
}

// BindChannel subscribes fn to name in the scope of the component's module.
func (c *Component) BindChannel(name string, fn ChannelHandler) error {
	_, err := c.ctx.rt.channels.Bind(c.ctx, name, func(data any) { fn(c, data) })
	return err
}

// Emit sends data on name. Without paths it reaches subscribers from the
// component's own module; paths are resolved against that module.
func (c *Component) Emit(name string, data any, paths ...string) (int, error) {
	return c.ctx.rt.channels.Emit(c.ctx, name, data, paths...)
}

// ClearChannel drops the component's subscriptions to name, or all of them
// when name is empty.
func (c *Component) ClearChannel(name string) int {
	return c.ctx.rt.channels.Clear(c.ctx, name)
}

// DispatchCustom fires a bubbling custom event from the element.
func (c *Component) DispatchCustom(name string, detail any) bool {
	return c.ctx.binding.DispatchCustom(name, detail)
}

// Destroy removes the component from its parent's children.
func (c *Component) Destroy() { c.ctx.Destroy() }

// Children is the live child list of a component.
type Children struct {
	ctx *Context
}

// Len returns the number of child slots.
func (ch *Children) Len() int { return len(ch.ctx.renderer.segments) }

// Segment returns the contexts of slot i.
func (ch *Children) Segment(i int) []*Context {
	if i < 0 || i >= ch.Len() {
		return nil
	}
	return append([]*Context(nil), ch.ctx.renderer.segments[i]...)
}

// Components returns the components of every child in order.
func (ch *Children) Components() []*Component {
	var out []*Component
	for _, c := range ch.ctx.Children() {
		out = append(out, c.component)
	}
	return out
}

// At returns the i-th child context across all slots, or nil.
func (ch *Children) At(i int) *Context {
	children := ch.ctx.Children()
	if i < 0 || i >= len(children) {
		return nil
	}
	return children[i]
}

// SetAll re-renders every slot from v. Positions whose value is unchanged
// keep their contexts.
func (ch *Children) SetAll(v any) error {
	s := ch.ctx.rt.newSession(context.Background())
	if err := ch.ctx.renderer.renderAll(s, v); err != nil {
		return err
	}
	return s.flush()
}

// SetAt re-renders slot i from v.
func (ch *Children) SetAt(i int, v any) error {
	if i < 0 || i >= ch.Len() {
		return &errors.Error{Op: "core.Children.SetAt", Kind: errors.KindNotFound, Err: fmt.Errorf("slot %d out of range [0,%d)", i, ch.Len())}
	}
	s := ch.ctx.rt.newSession(context.Background())
	if err := ch.ctx.renderer.renderSlot(s, i, v); err != nil {
		return err
	}
	return s.flush()
}

// Append adds a slot rendered from v.
func (ch *Children) Append(v any) error {
	r := ch.ctx.renderer
	r.grow(len(r.segments) + 1)
	return ch.SetAt(len(r.segments)-1, v)
}
