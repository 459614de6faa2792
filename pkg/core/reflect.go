package core

import (
	"fmt"
	"maps"
	"sort"

	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Descriptor binds one component property to the element behind it.
type Descriptor struct {
	Name string
	Get  func() any
	Set  func(v any) error
}

// Reflect installs descriptors on c. Later descriptors replace earlier ones
// with the same name.
func Reflect(c *Component, descriptors ...Descriptor) {
	if c.reflected == nil {
		c.reflected = make(map[string]Descriptor, len(descriptors))
	}
	for _, d := range descriptors {
		c.reflected[d.Name] = d
	}
}

// Surface is a live object property of a component, such as its styles or
// attributes. Every write reaches the element before it returns. A value
// may be a Reaction, which keeps the key in sync with state.
type Surface struct {
	name      string
	owner     *Context
	live      bool
	values    map[string]any
	reactions map[string]*reactive.Reaction
	apply     func(key string, v any)
	remove    func(key string)
	replace   func(values map[string]any, previous []string)
	flush     func(s *Surface)
	nested    map[string]*Surface
	batching  bool
	bulk      bool
	// declarations lets a CSS declaration string stand in for a map.
	declarations bool
}

func newSurface(owner *Context, name string, live bool) *Surface {
	return &Surface{
		name:      name,
		owner:     owner,
		live:      live,
		values:    make(map[string]any),
		reactions: make(map[string]*reactive.Reaction),
	}
}

// Get returns the current value of key. A nested surface is returned for
// keys that have one.
func (s *Surface) Get(key string) any {
	if n := s.nested[key]; n != nil {
		return n
	}
	return s.values[key]
}

// Object returns the nested surface under key, or nil.
func (s *Surface) Object(key string) *Surface {
	return s.nested[key]
}

// Has reports whether key is set.
func (s *Surface) Has(key string) bool {
	if n := s.nested[key]; n != nil {
		return n.Len() > 0
	}
	_, ok := s.values[key]
	return ok
}

// Len returns the number of keys set.
func (s *Surface) Len() int {
	return len(s.Keys())
}

// Keys returns the keys set, sorted.
func (s *Surface) Keys() []string {
	keys := make([]string, 0, len(s.values)+len(s.nested))
	for k := range s.values {
		keys = append(keys, k)
	}
	for k, n := range s.nested {
		if _, dup := s.values[k]; !dup && n.Len() > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Map returns a plain copy of the current values.
func (s *Surface) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	for k, n := range s.nested {
		if n.Len() > 0 {
			out[k] = n.Map()
		}
	}
	return out
}

// Set writes key. A Reaction value is evaluated against the component's
// state and re-evaluated when that state changes.
func (s *Surface) Set(key string, v any) {
	if s.owner.Destroyed() {
		return
	}
	s.stop(key)
	if wrapped, ok := v.(*Surface); ok {
		v = wrapped.Map()
	}
	if fn, ok := asReaction(v); ok && s.live {
		state := s.owner.state
		value, r, ok := s.owner.rt.watch(s.name+"."+key,
			func() any { return fn(state) },
			func(v any) { s.write(key, v) },
		)
		if !ok {
			return
		}
		s.reactions[key] = r
		v = value
	}
	s.write(key, v)
}

// Delete removes key.
func (s *Surface) Delete(key string) {
	if s.owner.Destroyed() {
		return
	}
	s.stop(key)
	if n := s.nested[key]; n != nil {
		n.assign(nil)
		return
	}
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	if s.remove != nil && !s.bulk {
		s.remove(key)
	}
	s.done()
}

func (s *Surface) write(key string, v any) {
	if n := s.nested[key]; n != nil {
		if err := n.assignValue(v); err != nil {
			s.owner.rt.report("core."+s.name, errors.KindValidation, err)
		}
		return
	}
	if v == nil {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			if s.remove != nil && !s.bulk {
				s.remove(key)
			}
			s.done()
		}
		return
	}
	s.values[key] = v
	if s.apply != nil && !s.bulk {
		s.apply(key, v)
	}
	s.done()
}

func (s *Surface) done() {
	if s.flush != nil && !s.batching {
		s.flush(s)
	}
}

func (s *Surface) stop(key string) {
	if r := s.reactions[key]; r != nil {
		r.Dispose()
		delete(s.reactions, key)
	}
}

// assign replaces every key with m. A surface with a replace hook hands
// the resulting values to the element in one call.
func (s *Surface) assign(m map[string]any) {
	s.batching = true
	s.bulk = s.replace != nil
	previous := s.Keys()
	for _, key := range s.Keys() {
		if _, keep := m[key]; !keep {
			s.Delete(key)
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, m[k])
	}
	if s.bulk {
		s.bulk = false
		s.replace(maps.Clone(s.values), previous)
	}
	s.batching = false
	s.done()
}

func (s *Surface) assignValue(v any) error {
	switch typed := v.(type) {
	case nil:
		s.assign(nil)
	case map[string]any:
		s.assign(typed)
	case *Surface:
		s.assign(typed.Map())
	case string:
		if !s.declarations {
			return &errors.ValidationError{Path: s.name, Reason: "cannot assign a string"}
		}
		m := make(map[string]any)
		for k, v := range dom.ParseStyle(typed) {
			m[k] = v
		}
		s.assign(m)
	default:
		return &errors.ValidationError{Path: s.name, Reason: fmt.Sprintf("cannot assign %T", v)}
	}
	return nil
}

func (s *Surface) dispose() {
	for key := range s.reactions {
		s.stop(key)
	}
	for _, n := range s.nested {
		n.dispose()
	}
}
