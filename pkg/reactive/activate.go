package reactive

import "strconv"

// Activate deep-wraps v for g: map[string]any becomes *Object and []any
// becomes *List, recursively. Values that are already reactive nodes of g
// are returned unchanged, so activation is idempotent. Nodes that belong to
// another graph are copied into g. Any other value is returned as-is.
func Activate(g *Graph, v any) any {
	return g.activate(v)
}

func (g *Graph) activate(v any) any {
	switch typed := v.(type) {
	case *Object:
		if typed == nil {
			return v
		}
		if typed.g == g {
			typed.revive()
			return typed
		}
		return g.Object(typed.Raw())
	case *List:
		if typed == nil {
			return v
		}
		if typed.g == g {
			typed.revive()
			return typed
		}
		return g.List(typed.Raw())
	case map[string]any:
		return g.Object(typed)
	case []any:
		return g.List(typed)
	}
	return v
}

// IsReactive reports whether v is an activated node.
func IsReactive(v any) bool {
	_, ok := v.(node)
	return ok
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
