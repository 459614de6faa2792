// Package testbed provides schemas shared by the testing package's tests.
package testbed

import (
	"strconv"

	"github.com/go-drift/schemaui/pkg/core"
	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Counter returns a button that shows a count and increments it on click.
// onTap, when set, receives the new count.
func Counter(initial int, onTap func(count int)) *core.Node {
	return &core.Node{
		Tag:   "button",
		State: map[string]any{"count": initial},
		Text: core.Reaction(func(s *reactive.Object) any {
			return strconv.Itoa(s.Int("count"))
		}),
		Events: map[string]core.Handler{
			"click": func(c *core.Component, _ *dom.Event) {
				n := c.State().Int("count") + 1
				c.State().Set("count", n)
				if onTap != nil {
					onTap(n)
				}
			},
		},
	}
}

// List returns a ul whose items follow the "items" list in state.
func List(items ...any) *core.Node {
	return &core.Node{
		Tag:   "ul",
		State: map[string]any{"items": items},
		Children: core.Reaction(func(s *reactive.Object) any {
			var out []any
			for _, item := range s.List("items").Values() {
				out = append(out, &core.Node{Tag: "li", Text: item})
			}
			return out
		}),
	}
}
