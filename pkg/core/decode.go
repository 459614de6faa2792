package core

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Template is text with {{key}} placeholders filled from state. Keys may be
// dotted paths into nested objects and lists. As a child or text value it
// behaves like a Reaction reading those keys.
type Template string

// Compute renders the template against state.
func (t Template) Compute(state *reactive.Object) any {
	s := string(t)
	var b strings.Builder
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			break
		}
		end := strings.Index(s[open:], "}}")
		if end < 0 {
			break
		}
		b.WriteString(s[:open])
		key := strings.TrimSpace(s[open+2 : open+end])
		if v := lookup(state, key); v != nil {
			b.WriteString(stringOf(v))
		}
		s = s[open+end+2:]
	}
	b.WriteString(s)
	return b.String()
}

func lookup(state *reactive.Object, path string) any {
	var cur any = state
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case *reactive.Object:
			if node == nil {
				return nil
			}
			cur = node.Get(part)
		case *reactive.List:
			i := 0
			if _, err := fmt.Sscan(part, &i); err != nil {
				return nil
			}
			cur = node.At(i)
		default:
			return nil
		}
	}
	return cur
}

func textValue(s string) any {
	if strings.Contains(s, "{{") && strings.Contains(s, "}}") {
		return Template(s)
	}
	return s
}

// DecodeYAML decodes a schema module written in YAML.
func DecodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return FromValue(v)
}

// FromValue converts plain decoded data into child values. A map with a
// "path" becomes a Ref and any other map a *Node; lists stay lists and
// scalars become text. Strings holding {{key}} placeholders become
// Templates. Values that are already child values pass through.
func FromValue(v any) (any, error) {
	return fromValue(v, "$")
}

func fromValue(v any, path string) (any, error) {
	switch typed := v.(type) {
	case nil, *Node, Node, Ref, *Ref, Reaction, Template, func(*reactive.Object) any:
		return v, nil
	case bool:
		if !typed {
			return false, nil
		}
		return "true", nil
	case string:
		return textValue(typed), nil
	case int, int64, float64, uint64:
		return fmt.Sprint(typed), nil
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			child, err := fromValue(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case map[string]any:
		return nodeFromMap(typed, path)
	}
	return nil, &errors.ValidationError{Path: path, Reason: fmt.Sprintf("unsupported value %T", v)}
}

var nodeKeys = map[string]bool{
	"tag": true, "text": true, "styles": true, "attrs": true, "props": true,
	"state": true, "children": true, "module": true,
}

func nodeFromMap(m map[string]any, path string) (any, error) {
	if p, ok := m["path"]; ok {
		ref := Ref{Path: fmt.Sprint(p)}
		if base, ok := m["base"].(string); ok {
			ref.Base = base
		}
		if args, ok := m["args"].(map[string]any); ok {
			ref.Args = args
		}
		return ref, Validate(ref)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !nodeKeys[k] {
			return nil, &errors.ValidationError{Path: path, Reason: fmt.Sprintf("unknown key %q", k)}
		}
	}

	n := &Node{}
	n.Tag, _ = m["tag"].(string)
	n.Module, _ = m["module"].(string)
	if text, ok := m["text"]; ok && text != nil {
		n.Text = textValue(fmt.Sprint(text))
	}
	var err error
	if n.Styles, err = mapValue(m, "styles", path, true); err != nil {
		return nil, err
	}
	if n.Attrs, err = mapValue(m, "attrs", path, true); err != nil {
		return nil, err
	}
	if n.Props, err = mapValue(m, "props", path, false); err != nil {
		return nil, err
	}
	if n.State, err = mapValue(m, "state", path, false); err != nil {
		return nil, err
	}
	if children, ok := m["children"]; ok && children != nil {
		list, ok := children.([]any)
		if !ok {
			return nil, &errors.ValidationError{Path: path + ".children", Reason: "children must be a list"}
		}
		converted, err := fromValue(list, path+".children")
		if err != nil {
			return nil, err
		}
		n.Children = converted
	}
	if err := validate(n, path); err != nil {
		return nil, err
	}
	return n, nil
}

// mapValue reads a nested map. When templated, string values holding
// placeholders become Templates.
func mapValue(m map[string]any, key, path string, templated bool) (map[string]any, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	typed, ok := raw.(map[string]any)
	if !ok {
		return nil, &errors.ValidationError{Path: path + "." + key, Reason: "must be a mapping"}
	}
	if !templated {
		return typed, nil
	}
	out := make(map[string]any, len(typed))
	for k, v := range typed {
		switch val := v.(type) {
		case string:
			out[k] = textValue(val)
		case map[string]any:
			nested, err := mapValue(typed, k, path+"."+key, true)
			if err != nil {
				return nil, err
			}
			out[k] = nested
		default:
			out[k] = v
		}
	}
	return out, nil
}
