package dom

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultListenerWarnThreshold is the per-node, per-type listener count
// above which AddEventListener logs a leak warning.
const DefaultListenerWarnThreshold = 10

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger used for advisory warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Document) {
		d.logger = logger.With().Str("component", "dom").Logger()
	}
}

// WithListenerWarnThreshold sets the listener leak warning threshold.
// Zero disables the warning.
func WithListenerWarnThreshold(n int) Option {
	return func(d *Document) {
		d.warnAt = n
	}
}

// Document is an in-memory HTML document.
type Document struct {
	root      *html.Node
	head      *html.Node
	body      *html.Node
	bindings  map[*html.Node]*Binding
	observers []*observer
	nextObs   int
	warnAt    int
	warnings  int
	logger    zerolog.Logger
}

// NewDocument creates an empty <html><head></head><body></body></html> document.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		root:     &html.Node{Type: html.DocumentNode},
		bindings: make(map[*html.Node]*Binding),
		warnAt:   DefaultListenerWarnThreshold,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	htmlNode := newElement("html")
	d.head = newElement("head")
	d.body = newElement("body")
	htmlNode.AppendChild(d.head)
	htmlNode.AppendChild(d.body)
	d.root.AppendChild(htmlNode)
	return d
}

func newElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Head returns the binding for <head>.
func (d *Document) Head() *Binding {
	return d.Wrap(d.head)
}

// Body returns the binding for <body>.
func (d *Document) Body() *Binding {
	return d.Wrap(d.body)
}

// CreateElement creates a detached element node.
func (d *Document) CreateElement(tag string) *Binding {
	return d.Wrap(newElement(tag))
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) *Binding {
	return d.Wrap(&html.Node{Type: html.TextNode, Data: text})
}

// CreatePlaceholder creates a detached comment node that holds a position
// in the tree without rendering anything.
func (d *Document) CreatePlaceholder() *Binding {
	return d.Wrap(&html.Node{Type: html.CommentNode, Data: "placeholder"})
}

// CreateFragment creates a detached container node.
func (d *Document) CreateFragment() *Binding {
	return d.Wrap(&html.Node{Type: html.DocumentNode})
}

// Wrap returns the binding that owns n, creating it on first use.
func (d *Document) Wrap(n *html.Node) *Binding {
	if n == nil {
		return nil
	}
	if b := d.bindings[n]; b != nil {
		return b
	}
	b := &Binding{doc: d, node: n}
	d.bindings[n] = b
	return b
}

// ByID returns the first element whose id attribute equals id.
func (d *Document) ByID(id string) *Binding {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attrValue(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return d.Wrap(found)
}

// Query returns every element with the given tag name in document order.
func (d *Document) Query(tag string) []*Binding {
	var out []*Binding
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, d.Wrap(n))
		}
		return true
	})
	return out
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// ListenerWarnings returns how many leak warnings have been logged.
func (d *Document) ListenerWarnings() int {
	return d.warnings
}

// Bindings returns how many bindings the document tracks.
func (d *Document) Bindings() int {
	return len(d.bindings)
}

func (d *Document) forget(n *html.Node) {
	delete(d.bindings, n)
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
