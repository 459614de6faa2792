package reactive

import (
	"reflect"
	"sort"
)

// keysKey is the dependency key notified when an object gains or loses a key.
const keysKey = "\x00keys"

// Object is an activated map. Reads register the running reaction, writes
// notify dependents. The wrapped map is kept and written through, so a raw
// map activated twice yields the same *Object.
type Object struct {
	g        *Graph
	id       uint64
	raw      map[string]any
	released bool
}

// Object activates raw into a reactive object. Nested maps and slices are
// activated in place. Passing a map that is already wrapped returns the
// existing object.
func (g *Graph) Object(raw map[string]any) *Object {
	if raw == nil {
		raw = make(map[string]any)
	}
	ptr := mapPointer(raw)
	if existing := g.wrapped[ptr]; existing != nil {
		existing.revive()
		return existing
	}
	o := &Object{g: g, id: g.allocID(), raw: raw}
	g.wrapped[ptr] = o
	g.nodes[o.id] = o
	for key, value := range raw {
		raw[key] = g.activate(value)
	}
	return o
}

func mapPointer(m map[string]any) uintptr {
	return reflect.ValueOf(m).Pointer()
}

func (o *Object) nodeID() uint64 { return o.id }
func (o *Object) owner() *Graph  { return o.g }

// ID returns the stable identifier of the object inside its graph.
func (o *Object) ID() uint64 {
	return o.id
}

// Graph returns the graph that owns the object.
func (o *Object) Graph() *Graph {
	return o.g
}

// Get returns the value stored under key and registers the running
// reaction as a dependent of it. Nested reactive values are returned as-is.
func (o *Object) Get(key string) any {
	if o == nil {
		return nil
	}
	o.g.track(o.id, key)
	return o.raw[key]
}

// Lookup is like Get but also reports whether the key exists.
func (o *Object) Lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	o.g.track(o.id, key)
	v, ok := o.raw[key]
	return v, ok
}

// Peek returns the value under key without registering a dependency.
func (o *Object) Peek(key string) any {
	if o == nil {
		return nil
	}
	return o.raw[key]
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Keys returns the sorted keys of the object. The running reaction is
// notified when keys are added or deleted.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	o.g.track(o.id, keysKey)
	keys := make([]string, 0, len(o.raw))
	for key := range o.raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	o.g.track(o.id, keysKey)
	return len(o.raw)
}

// Set stores value under key and notifies dependents. Plain maps and
// slices are activated first. A reactive value that is replaced by a
// different one has its dependencies released, except for the parts the
// new value still holds.
func (o *Object) Set(key string, value any) {
	value = o.g.activate(value)
	old, existed := o.raw[key]
	releaseReplaced(old, value)
	o.raw[key] = value
	if !existed {
		o.g.notify(o.id, keysKey)
	}
	o.g.notify(o.id, key)
}

// Update applies fn to the current value of key (read untracked) and
// stores the result.
func (o *Object) Update(key string, fn func(any) any) {
	o.Set(key, fn(o.raw[key]))
}

// Delete removes key. A deleted list is cleared to length zero first so
// index reactions observe the truncation, then every dependency owned by
// the deleted subtree is released.
func (o *Object) Delete(key string) bool {
	old, ok := o.raw[key]
	if !ok {
		return false
	}
	if list, isList := old.(*List); isList {
		list.SetLen(0)
	}
	if n, isNode := old.(node); isNode {
		n.release()
	}
	delete(o.raw, key)
	o.g.notify(o.id, keysKey)
	o.g.notify(o.id, key)
	return true
}

// Raw returns a deep plain copy of the object. It does not track.
func (o *Object) Raw() map[string]any {
	if o == nil {
		return nil
	}
	out := make(map[string]any, len(o.raw))
	for key, value := range o.raw {
		out[key] = plain(value)
	}
	return out
}

// Int returns the value under key as an int, or 0.
func (o *Object) Int(key string) int {
	switch v := o.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// String returns the value under key as a string, or "".
func (o *Object) String(key string) string {
	s, _ := o.Get(key).(string)
	return s
}

// Bool returns the value under key as a bool, or false.
func (o *Object) Bool(key string) bool {
	b, _ := o.Get(key).(bool)
	return b
}

// Object returns the nested object under key, or nil.
func (o *Object) Object(key string) *Object {
	child, _ := o.Get(key).(*Object)
	return child
}

// List returns the nested list under key, or nil.
func (o *Object) List(key string) *List {
	child, _ := o.Get(key).(*List)
	return child
}

func (o *Object) release() { o.releaseExcept(nil) }

func (o *Object) releaseExcept(keep map[node]bool) {
	if o.released || keep[o] {
		return
	}
	o.released = true
	for _, value := range o.raw {
		if n, ok := value.(node); ok {
			n.releaseExcept(keep)
		}
	}
	o.g.releaseDeps(o.id)
	delete(o.g.wrapped, mapPointer(o.raw))
}

// revive re-registers a released object that is being stored again.
func (o *Object) revive() {
	if !o.released {
		return
	}
	o.released = false
	o.g.nodes[o.id] = o
	o.g.wrapped[mapPointer(o.raw)] = o
	for _, value := range o.raw {
		o.g.activate(value)
	}
}

func sameNode(a, b any) bool {
	an, ok := a.(node)
	if !ok {
		return false
	}
	bn, ok := b.(node)
	if !ok {
		return false
	}
	return an == bn
}

func plain(v any) any {
	switch typed := v.(type) {
	case *Object:
		return typed.Raw()
	case *List:
		return typed.Raw()
	}
	return v
}
