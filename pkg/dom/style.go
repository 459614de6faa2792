package dom

import (
	"slices"
	"strings"
)

type styleDecl struct {
	prop  string
	value string
}

func parseStyle(s string) []styleDecl {
	var out []styleDecl
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		out = append(out, styleDecl{prop: prop, value: value})
	}
	return out
}

func formatStyle(decls []styleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// StyleProperty returns one inline style property.
func (b *Binding) StyleProperty(prop string) string {
	style, _ := b.Attr("style")
	for _, d := range parseStyle(style) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// SetStyleProperty sets one inline style property. An empty value removes it.
func (b *Binding) SetStyleProperty(prop, value string) {
	if b.destroyed {
		return
	}
	style, _ := b.Attr("style")
	decls := parseStyle(style)
	found := false
	for i := 0; i < len(decls); i++ {
		if decls[i].prop != prop {
			continue
		}
		found = true
		if value == "" {
			decls = append(decls[:i], decls[i+1:]...)
			i--
			continue
		}
		decls[i].value = value
	}
	if !found && value != "" {
		decls = append(decls, styleDecl{prop: prop, value: value})
	}
	b.writeStyle(decls)
}

// RemoveStyleProperty removes one inline style property.
func (b *Binding) RemoveStyleProperty(prop string) {
	b.SetStyleProperty(prop, "")
}

// ParseStyle splits a declaration list such as "color: red; width: 1px"
// into properties. Malformed declarations are skipped.
func ParseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, d := range parseStyle(s) {
		out[d.prop] = d.value
	}
	return out
}

// InlineStyle returns the inline style as a map.
func (b *Binding) InlineStyle() map[string]string {
	style, _ := b.Attr("style")
	return ParseStyle(style)
}

// SetInlineStyle replaces the inline style. Properties missing from style
// are removed.
func (b *Binding) SetInlineStyle(style map[string]string) {
	if b.destroyed {
		return
	}
	decls := make([]styleDecl, 0, len(style))
	for _, prop := range sortedKeys(style) {
		if style[prop] != "" {
			decls = append(decls, styleDecl{prop: prop, value: style[prop]})
		}
	}
	b.writeStyle(decls)
}

func (b *Binding) writeStyle(decls []styleDecl) {
	if len(decls) == 0 {
		b.RemoveAttr("style")
		return
	}
	b.setRawAttr("style", formatStyle(decls))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
