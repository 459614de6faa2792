package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Binding owns one document node. A destroyed binding ignores every
// mutation.
type Binding struct {
	doc        *Document
	node       *html.Node
	listeners  map[string][]*listener
	props      map[string]any
	styleClass string
	destroyed  bool
}

// Document returns the owning document.
func (b *Binding) Document() *Document {
	return b.doc
}

// Node returns the underlying node.
func (b *Binding) Node() *html.Node {
	return b.node
}

// IsText reports whether the binding owns a text node.
func (b *Binding) IsText() bool {
	return b.node.Type == html.TextNode
}

// IsElement reports whether the binding owns an element.
func (b *Binding) IsElement() bool {
	return b.node.Type == html.ElementNode
}

// IsPlaceholder reports whether the binding owns a placeholder comment.
func (b *Binding) IsPlaceholder() bool {
	return b.node.Type == html.CommentNode
}

// Tag returns the element tag name, or "" for non-elements.
func (b *Binding) Tag() string {
	if b.node.Type != html.ElementNode {
		return ""
	}
	return b.node.Data
}

// Destroyed reports whether Destroy has been called.
func (b *Binding) Destroyed() bool {
	return b.destroyed
}

// Text returns the text of a text node or the text content of an element.
func (b *Binding) Text() string {
	if b.node.Type == html.TextNode {
		return b.node.Data
	}
	var sb strings.Builder
	walk(b.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

// SetText replaces the text of a text node, or replaces the children of an
// element with a single text node.
func (b *Binding) SetText(text string) {
	if b.destroyed {
		return
	}
	switch b.node.Type {
	case html.TextNode:
		b.node.Data = text
	case html.ElementNode:
		if c := b.node.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.TextNode {
			c.Data = text
			break
		}
		for c := b.node.FirstChild; c != nil; {
			next := c.NextSibling
			b.node.RemoveChild(c)
			b.doc.forget(c)
			c = next
		}
		b.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	default:
		return
	}
	b.doc.record(Mutation{Kind: MutationText, Node: b.node})
}

// Attr returns the value of an attribute.
func (b *Binding) Attr(name string) (string, bool) {
	for _, a := range b.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute. Setting "class" keeps the style class token.
func (b *Binding) SetAttr(name, value string) {
	if b.destroyed || b.node.Type != html.ElementNode {
		return
	}
	if name == "class" {
		value = joinClass(value, b.styleClass)
	}
	b.setRawAttr(name, value)
}

func (b *Binding) setRawAttr(name, value string) {
	for i, a := range b.node.Attr {
		if a.Namespace == "" && a.Key == name {
			b.node.Attr[i].Val = value
			b.doc.record(Mutation{Kind: MutationAttribute, Node: b.node, Name: name})
			return
		}
	}
	b.node.Attr = append(b.node.Attr, html.Attribute{Key: name, Val: value})
	b.doc.record(Mutation{Kind: MutationAttribute, Node: b.node, Name: name})
}

// RemoveAttr removes an attribute.
func (b *Binding) RemoveAttr(name string) {
	if b.destroyed {
		return
	}
	if name == "class" && b.styleClass != "" {
		b.setRawAttr("class", b.styleClass)
		return
	}
	for i, a := range b.node.Attr {
		if a.Namespace == "" && a.Key == name {
			b.node.Attr = append(b.node.Attr[:i], b.node.Attr[i+1:]...)
			b.doc.record(Mutation{Kind: MutationAttribute, Node: b.node, Name: name})
			return
		}
	}
}

// Attributes returns every attribute as a map.
func (b *Binding) Attributes() map[string]string {
	out := make(map[string]string, len(b.node.Attr))
	for _, a := range b.node.Attr {
		out[a.Key] = a.Val
	}
	return out
}

// SetAttributes replaces the attribute set: keys in attrs are set in sorted
// order and attributes missing from attrs are removed.
func (b *Binding) SetAttributes(attrs map[string]string) {
	if b.destroyed {
		return
	}
	for _, a := range append([]html.Attribute(nil), b.node.Attr...) {
		if _, keep := attrs[a.Key]; !keep {
			b.RemoveAttr(a.Key)
		}
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.SetAttr(key, attrs[key])
	}
}

// SetStyleClass sets the generated style class. It is kept in the class
// attribute alongside author classes.
func (b *Binding) SetStyleClass(class string) {
	if b.destroyed || b.node.Type != html.ElementNode || class == b.styleClass {
		return
	}
	current, _ := b.Attr("class")
	current = removeClass(current, b.styleClass)
	b.styleClass = class
	if joined := joinClass(current, class); joined != "" {
		b.setRawAttr("class", joined)
	} else {
		b.RemoveAttr("class")
	}
}

// StyleClass returns the generated style class.
func (b *Binding) StyleClass() string {
	return b.styleClass
}

// Property returns a property value.
func (b *Binding) Property(name string) any {
	return b.props[name]
}

// SetProperty sets a property value. Properties are not serialized.
func (b *Binding) SetProperty(name string, value any) {
	if b.destroyed {
		return
	}
	if b.props == nil {
		b.props = make(map[string]any)
	}
	b.props[name] = value
}

// RemoveProperty deletes a property.
func (b *Binding) RemoveProperty(name string) {
	delete(b.props, name)
}

// Properties returns a copy of the properties.
func (b *Binding) Properties() map[string]any {
	out := make(map[string]any, len(b.props))
	for k, v := range b.props {
		out[k] = v
	}
	return out
}

// SetProperties replaces the property set.
func (b *Binding) SetProperties(props map[string]any) {
	if b.destroyed {
		return
	}
	b.props = make(map[string]any, len(props))
	for k, v := range props {
		b.props[k] = v
	}
}

// Parent returns the binding of the parent node, or nil.
func (b *Binding) Parent() *Binding {
	return b.doc.Wrap(b.node.Parent)
}

// Children returns bindings for the direct children.
func (b *Binding) Children() []*Binding {
	var out []*Binding
	for c := b.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, b.doc.Wrap(c))
	}
	return out
}

// Connected reports whether the node is attached under the document root.
func (b *Binding) Connected() bool {
	for n := b.node; n != nil; n = n.Parent {
		if n == b.doc.root {
			return true
		}
	}
	return false
}

// Append inserts child as the last child of b.
func (b *Binding) Append(child *Binding) {
	if b.destroyed || child == nil || child.destroyed {
		return
	}
	child.detachQuiet()
	b.node.AppendChild(child.node)
	b.doc.record(Mutation{Kind: MutationInserted, Parent: b.node, Node: child.node})
}

// Prepend inserts child as the first child of b.
func (b *Binding) Prepend(child *Binding) {
	if b.destroyed || child == nil || child.destroyed {
		return
	}
	child.detachQuiet()
	if b.node.FirstChild == nil {
		b.node.AppendChild(child.node)
	} else {
		b.node.InsertBefore(child.node, b.node.FirstChild)
	}
	b.doc.record(Mutation{Kind: MutationInserted, Parent: b.node, Node: child.node})
}

// InsertAfter places b immediately after ref under ref's parent.
func (b *Binding) InsertAfter(ref *Binding) {
	if b.destroyed || ref == nil || ref.node.Parent == nil {
		return
	}
	parent := ref.node.Parent
	b.detachQuiet()
	if ref.node.NextSibling == nil {
		parent.AppendChild(b.node)
	} else {
		parent.InsertBefore(b.node, ref.node.NextSibling)
	}
	b.doc.record(Mutation{Kind: MutationInserted, Parent: parent, Node: b.node})
}

// InsertBefore places b immediately before ref under ref's parent.
func (b *Binding) InsertBefore(ref *Binding) {
	if b.destroyed || ref == nil || ref.node.Parent == nil {
		return
	}
	parent := ref.node.Parent
	b.detachQuiet()
	parent.InsertBefore(b.node, ref.node)
	b.doc.record(Mutation{Kind: MutationInserted, Parent: parent, Node: b.node})
}

// Detach removes the node from its parent.
func (b *Binding) Detach() {
	parent := b.node.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(b.node)
	b.doc.record(Mutation{Kind: MutationRemoved, Parent: parent, Node: b.node})
}

func (b *Binding) detachQuiet() {
	if b.node.Parent != nil {
		b.Detach()
	}
}

// Destroy detaches the node and drops its listeners and properties. The
// binding and its node share a lifetime, so the binding is unusable after.
func (b *Binding) Destroy() {
	if b.destroyed {
		return
	}
	b.Detach()
	b.listeners = nil
	b.props = nil
	b.destroyed = true
	b.doc.forget(b.node)
}

func joinClass(classes, extra string) string {
	if extra == "" {
		return classes
	}
	for _, c := range strings.Fields(classes) {
		if c == extra {
			return classes
		}
	}
	if classes == "" {
		return extra
	}
	return classes + " " + extra
}

func removeClass(classes, class string) string {
	if class == "" {
		return classes
	}
	fields := strings.Fields(classes)
	out := fields[:0]
	for _, c := range fields {
		if c != class {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}
