package testing

import (
	"fmt"
	"strings"

	"github.com/go-drift/schemaui/pkg/core"
	"github.com/go-drift/schemaui/pkg/dom"
)

// Finder locates contexts in a mounted tree.
type Finder interface {
	// Evaluate returns all matching contexts under root (depth-first pre-order).
	Evaluate(root *core.Context) []*core.Context
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	contexts []*core.Context
	finder   Finder
}

func (r FinderResult) describe() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *core.Context {
	if len(r.contexts) == 0 {
		panic(fmt.Sprintf("Finder found no contexts: %s", r.describe()))
	}
	return r.contexts[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *core.Context {
	if len(r.contexts) == 0 {
		return nil
	}
	return r.contexts[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *core.Context {
	if index < 0 || index >= len(r.contexts) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.contexts), r.describe()))
	}
	return r.contexts[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*core.Context {
	return r.contexts
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.contexts)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.contexts) > 0
}

// Component returns the component of the first match. Panics if no matches.
func (r FinderResult) Component() *core.Component {
	return r.First().Component()
}

// Binding returns the document binding of the first match. Panics if no
// matches.
func (r FinderResult) Binding() *dom.Binding {
	return r.First().Binding()
}

// Text returns the text content of the first match. Panics if no matches.
func (r FinderResult) Text() string {
	return r.Binding().Text()
}

// --- Concrete finders ---

type predicateFinder struct {
	fn   func(*core.Context) bool
	desc string
}

func (f *predicateFinder) Evaluate(root *core.Context) []*core.Context {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByPredicate returns a finder that matches contexts satisfying fn.
func ByPredicate(fn func(*core.Context) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

// ByTag returns a finder that matches elements with the given tag.
func ByTag(tag string) Finder {
	return &predicateFinder{
		fn: func(c *core.Context) bool {
			return c.Binding().IsElement() && c.Binding().Tag() == tag
		},
		desc: fmt.Sprintf("ByTag(%q)", tag),
	}
}

// ByText returns a finder that matches contexts whose text content is
// exactly text. Both an element and the text node inside it match.
func ByText(text string) Finder {
	return &predicateFinder{
		fn: func(c *core.Context) bool {
			return !c.Binding().IsPlaceholder() && c.Binding().Text() == text
		},
		desc: fmt.Sprintf("ByText(%q)", text),
	}
}

// ByTextContaining returns a finder that matches text nodes containing
// substring.
func ByTextContaining(substring string) Finder {
	return &predicateFinder{
		fn: func(c *core.Context) bool {
			return c.Binding().IsText() && strings.Contains(c.Binding().Text(), substring)
		},
		desc: fmt.Sprintf("ByTextContaining(%q)", substring),
	}
}

// ByAttr returns a finder that matches elements whose attribute name has
// value.
func ByAttr(name, value string) Finder {
	return &predicateFinder{
		fn: func(c *core.Context) bool {
			if !c.Binding().IsElement() {
				return false
			}
			v, ok := c.Binding().Attr(name)
			return ok && v == value
		},
		desc: fmt.Sprintf("ByAttr(%s=%q)", name, value),
	}
}

// ByModule returns a finder that matches contexts built from the module at
// url.
func ByModule(url string) Finder {
	return &predicateFinder{
		fn: func(c *core.Context) bool {
			return c.Binding().IsElement() && c.ModuleURL() == url
		},
		desc: fmt.Sprintf("ByModule(%q)", url),
	}
}

// descendantFinder finds contexts matching 'matching' that are descendants
// of contexts matching 'of'.
type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root *core.Context) []*core.Context {
	var results []*core.Context
	seen := make(map[*core.Context]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		// Search within each ancestor's subtree, skipping the ancestor itself.
		for _, child := range ancestor.Children() {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
		}
	}
	return results
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant returns a finder that matches contexts satisfying 'matching'
// that are descendants of contexts matching 'of'.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

// ancestorFinder finds contexts matching 'matching' that are ancestors of
// contexts matching 'of'.
type ancestorFinder struct {
	of       Finder
	matching Finder
}

func (f *ancestorFinder) Evaluate(root *core.Context) []*core.Context {
	descendants := f.of.Evaluate(root)
	if len(descendants) == 0 {
		return nil
	}
	var results []*core.Context
	seen := make(map[*core.Context]bool)
	for _, candidate := range f.matching.Evaluate(root) {
		for _, d := range descendants {
			if !seen[candidate] && isAncestorOf(candidate, d) {
				seen[candidate] = true
				results = append(results, candidate)
			}
		}
	}
	return results
}

func (f *ancestorFinder) Description() string {
	return fmt.Sprintf("Ancestor(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Ancestor returns a finder that matches contexts satisfying 'matching'
// that are ancestors of contexts matching 'of'.
func Ancestor(of, matching Finder) Finder {
	return &ancestorFinder{of: of, matching: matching}
}

func isAncestorOf(ancestor, descendant *core.Context) bool {
	for c := descendant.Parent(); c != nil; c = c.Parent() {
		if c == ancestor {
			return true
		}
	}
	return false
}

// collectMatches performs a depth-first pre-order traversal, collecting
// contexts that satisfy the predicate. Host contexts never match.
func collectMatches(root *core.Context, predicate func(*core.Context) bool) []*core.Context {
	var results []*core.Context
	for c := range root.Walk() {
		if c.IsHost() {
			continue
		}
		if predicate(c) {
			results = append(results, c)
		}
	}
	return results
}
