package dom

// Event is dispatched to listeners.
type Event struct {
	// Type is the event name (e.g., "click").
	Type string
	// Detail carries the payload of a custom event.
	Detail any
	// Bubbles makes the event propagate to ancestors after the target.
	Bubbles bool
	// Target is the binding the event was dispatched on.
	Target *Binding
	// CurrentTarget is the binding whose listeners are running.
	CurrentTarget *Binding

	stopped          bool
	defaultPrevented bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// PreventDefault marks the event as handled.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	fn      Listener
	removed bool
}

// AddEventListener registers fn for events of type typ and returns a
// function that removes it. Registering more listeners than the document's
// warn threshold on one node logs an advisory warning; it never fails.
func (b *Binding) AddEventListener(typ string, fn Listener) (remove func()) {
	if b.destroyed || fn == nil {
		return func() {}
	}
	if b.listeners == nil {
		b.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	b.listeners[typ] = append(b.listeners[typ], l)
	if n := len(b.listeners[typ]); b.doc.warnAt > 0 && n > b.doc.warnAt {
		b.doc.warnings++
		b.doc.logger.Warn().
			Str("event", typ).
			Str("tag", b.Tag()).
			Int("listeners", n).
			Msg("possible event listener leak")
	}
	return func() { b.removeListener(typ, l) }
}

func (b *Binding) removeListener(typ string, l *listener) {
	l.removed = true
	list := b.listeners[typ]
	for i, existing := range list {
		if existing == l {
			b.listeners[typ] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.listeners[typ]) == 0 {
		delete(b.listeners, typ)
	}
}

// RemoveEventListeners removes every listener of type typ.
func (b *Binding) RemoveEventListeners(typ string) {
	for _, l := range b.listeners[typ] {
		l.removed = true
	}
	delete(b.listeners, typ)
}

// ListenerCount returns the number of listeners for typ, or for every type
// when typ is "".
func (b *Binding) ListenerCount(typ string) int {
	if typ != "" {
		return len(b.listeners[typ])
	}
	n := 0
	for _, list := range b.listeners {
		n += len(list)
	}
	return n
}

// Dispatch delivers ev to the listeners of b in registration order, then
// to ancestors when ev.Bubbles is set. It reports whether the default
// action was not prevented.
func (b *Binding) Dispatch(ev *Event) bool {
	if ev.Target == nil {
		ev.Target = b
	}
	for current := b; current != nil; current = current.Parent() {
		current.deliver(ev)
		if !ev.Bubbles || ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

func (b *Binding) deliver(ev *Event) {
	if b.destroyed {
		return
	}
	ev.CurrentTarget = b
	for _, l := range append([]*listener(nil), b.listeners[ev.Type]...) {
		if l.removed {
			continue
		}
		l.fn(ev)
	}
}

// DispatchCustom dispatches a bubbling custom event carrying detail.
func (b *Binding) DispatchCustom(name string, detail any) bool {
	return b.Dispatch(&Event{Type: name, Detail: detail, Bubbles: true})
}

// Click dispatches a bubbling click event.
func (b *Binding) Click() bool {
	return b.Dispatch(&Event{Type: "click", Bubbles: true})
}
