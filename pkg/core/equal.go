package core

import (
	"reflect"
	"unsafe"

	"github.com/go-drift/schemaui/pkg/reactive"
)

// Equal reports whether two child values are structurally equal. Functions
// compare by closure: a function literal that captures nothing, or a named
// function, equals itself across renders, while closures over different
// variables never compare equal. Pointers compare by the value they point to.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return equalValue(reflect.ValueOf(normalize(a)), reflect.ValueOf(normalize(b)), make(map[visit]bool))
}

// normalize treats Node and *Node, Ref and *Ref, and the two reaction
// spellings as the same shape.
func normalize(v any) any {
	if n, ok := asNode(v); ok {
		return *n
	}
	if r, ok := asRef(v); ok {
		return r
	}
	if fn, ok := v.(func(*reactive.Object) any); ok {
		return Reaction(fn)
	}
	return v
}

type visit struct {
	a, b unsafe.Pointer
	typ  reflect.Type
}

// closure returns the funcval behind v, which identifies the closure
// rather than the code it runs.
func closure(v reflect.Value) unsafe.Pointer {
	if !v.CanInterface() {
		return v.UnsafePointer()
	}
	f := v.Interface()
	return (*[2]unsafe.Pointer)(unsafe.Pointer(&f))[1]
}

func equalValue(a, b reflect.Value, seen map[visit]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Func:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return closure(a) == closure(b)
	case reflect.Pointer:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		if a.Pointer() == b.Pointer() {
			return true
		}
		key := visit{a: a.UnsafePointer(), b: b.UnsafePointer(), typ: a.Type()}
		if seen[key] {
			return true
		}
		seen[key] = true
		return equalValue(a.Elem(), b.Elem(), seen)
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return equalValue(reflect.ValueOf(normalizeValue(a.Elem())), reflect.ValueOf(normalizeValue(b.Elem())), seen)
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		if a.Len() == 0 || a.UnsafePointer() == b.UnsafePointer() {
			return true
		}
		key := visit{a: a.UnsafePointer(), b: b.UnsafePointer(), typ: a.Type()}
		if seen[key] {
			return true
		}
		seen[key] = true
		iter := a.MapRange()
		for iter.Next() {
			other := b.MapIndex(iter.Key())
			if !other.IsValid() || !equalValue(iter.Value(), other, seen) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValue(a.Index(i), b.Index(i), seen) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !equalValue(a.Field(i), b.Field(i), seen) {
				return false
			}
		}
		return true
	default:
		return a.Equal(b)
	}
}

func normalizeValue(v reflect.Value) any {
	if !v.CanInterface() {
		return nil
	}
	return normalize(v.Interface())
}
