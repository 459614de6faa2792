package testbed

import "github.com/go-drift/schemaui/pkg/core"

// Panel returns a section from module url that relays "select" channel
// messages into its title.
func Panel(url, title string) *core.Node {
	return &core.Node{
		Tag:    "section",
		Module: url,
		Attrs:  map[string]any{"data-panel": title},
		State:  map[string]any{"title": title},
		Channels: map[string]core.ChannelHandler{
			"select": func(c *core.Component, data any) {
				c.State().Set("title", data)
			},
		},
		Children: []any{
			&core.Node{Tag: "h2", Text: core.Template("{{title}}")},
			&core.Node{Tag: "button", Text: "pick"},
		},
	}
}
