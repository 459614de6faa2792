package core

import (
	"fmt"

	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Reaction computes a value from reactive state. Used as a child, as text,
// or as the value of a style, attribute or property key, it is re-evaluated
// whenever any state it read changes.
type Reaction func(state *reactive.Object) any

// Handler handles a DOM event on behalf of a component.
type Handler func(c *Component, ev *dom.Event)

// Method is a named function callable through Component.Call.
type Method func(c *Component, args ...any) any

// ChannelHandler receives channel messages addressed to a component.
type ChannelHandler func(c *Component, data any)

// Hooks are lifecycle callbacks.
type Hooks struct {
	// Init runs after the component's whole subtree is mounted. A returned
	// error is reported and does not stop other components.
	Init func(c *Component) error
	// Destroy runs before the component is detached.
	Destroy func(c *Component)
}

// Node is a declarative description of one UI element and its children.
// A Node is plain data: it has no identity until it is compiled into a
// Context and may be reused in several places.
type Node struct {
	Tag string
	// Text is a string or a Reaction. It excludes Children.
	Text any
	// Styles are compiled into a generated class.
	Styles map[string]any
	// Attrs are element attributes. A map under "style" sets inline style.
	Attrs map[string]any
	// Props are element properties, not serialized.
	Props map[string]any
	// State, when set, makes the node the owner of a new reactive state.
	// Otherwise the component shares its parent's state.
	State    map[string]any
	Methods  map[string]Method
	Events   map[string]Handler
	Channels map[string]ChannelHandler
	Hooks    Hooks
	// Children is a []any with one entry per child slot, or a Reaction that
	// produces all children.
	Children any
	// Module is the URL of the module that declares the node. It scopes
	// channels and resolves relative references.
	Module string
}

// Ref is a reference to a schema module, loaded when it is first rendered.
type Ref struct {
	Path string
	Base string
	Args map[string]any
}

func asNode(v any) (*Node, bool) {
	switch typed := v.(type) {
	case *Node:
		return typed, typed != nil
	case Node:
		return &typed, true
	}
	return nil, false
}

func asRef(v any) (Ref, bool) {
	switch typed := v.(type) {
	case Ref:
		return typed, true
	case *Ref:
		if typed != nil {
			return *typed, true
		}
	}
	return Ref{}, false
}

func asReaction(v any) (Reaction, bool) {
	switch typed := v.(type) {
	case Reaction:
		return typed, typed != nil
	case func(*reactive.Object) any:
		return typed, typed != nil
	case Template:
		return typed.Compute, true
	}
	return nil, false
}

// isEmpty reports whether v renders nothing.
func isEmpty(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case bool:
		return !typed
	case *Node:
		return typed == nil
	}
	return false
}

// textOf converts a primitive to its text form.
func textOf(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		return typed, true
	case fmt.Stringer:
		return typed.String(), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(typed), true
	case bool:
		if typed {
			return "true", true
		}
	}
	return "", false
}

// Validate checks that v is a compilable child value. Nodes need a tag and
// cannot declare both text and children; refs need a path.
func Validate(v any) error {
	return validate(v, "")
}

func validate(v any, path string) error {
	if ref, ok := asRef(v); ok {
		if ref.Path == "" {
			return &errors.ValidationError{Path: path, Reason: "reference without path"}
		}
		return nil
	}
	n, ok := asNode(v)
	if !ok {
		return nil
	}
	where := path
	if where == "" {
		where = n.Tag
	}
	if n.Tag == "" {
		return &errors.ValidationError{Path: where, Reason: "node has neither tag nor path"}
	}
	if n.Text != nil && n.Children != nil {
		return &errors.ValidationError{Path: where, Reason: "node declares both text and children"}
	}
	if _, isReaction := asReaction(n.Children); n.Children != nil && !isReaction {
		if _, isSlice := n.Children.([]any); !isSlice {
			return &errors.ValidationError{Path: where, Reason: fmt.Sprintf("children must be []any or a Reaction, got %T", n.Children)}
		}
	}
	return nil
}

// childSlots returns one entry per declared child slot.
func childSlots(children any) []any {
	if children == nil {
		return nil
	}
	if slots, ok := children.([]any); ok {
		return slots
	}
	return []any{children}
}
