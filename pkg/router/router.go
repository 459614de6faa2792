// Package router resolves URL paths against an ordered route table.
//
// Patterns are slash separated. Each segment is a literal, a ":name"
// parameter that captures one segment, or "**" which captures the rest of
// the path:
//
//	router.Route{Pattern: "/", Component: home}
//	router.Route{Pattern: "/users/:id", Component: core.Ref{Path: "/user.yaml"}}
//	router.Route{Pattern: "/docs/**", Component: docs}
//	router.Route{Pattern: "**", Component: notFound}
package router

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/schemaui/pkg/core"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// Wildcard matches the remainder of a path.
const Wildcard = "**"

// Route maps a pattern to the component rendered for it.
//
// Component is any child value. A func(Match) any is called with the match,
// and a core.Ref receives the path parameters as Args.
type Route struct {
	Pattern   string
	Component any
}

// Match is the result of resolving a path.
type Match struct {
	Pattern   string
	Component any
	// Params holds ":name" captures, and the "**" capture under "**".
	Params map[string]string
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// match scores pattern against segs. The score counts the leading segments
// matched before a wildcard. Patterns without a wildcard must match every
// segment.
func match(pattern []string, segs []string) (int, map[string]string, bool) {
	params := make(map[string]string)
	for i, p := range pattern {
		if p == Wildcard {
			params[Wildcard] = strings.Join(segs[min(i, len(segs)):], "/")
			return i, params, true
		}
		if i >= len(segs) {
			return 0, nil, false
		}
		switch {
		case strings.HasPrefix(p, ":"):
			params[p[1:]] = segs[i]
		case p != segs[i]:
			return 0, nil, false
		}
	}
	if len(pattern) != len(segs) {
		return 0, nil, false
	}
	return len(pattern), params, true
}

// Resolve returns the best route for path. The highest score wins and ties
// go to the route declared first. A path no route matches returns false.
func Resolve(path string, routes []Route) (*Match, bool) {
	segs := split(path)
	var best *Match
	bestScore := -1
	for _, r := range routes {
		score, params, ok := match(split(r.Pattern), segs)
		if !ok || score <= bestScore {
			continue
		}
		best = &Match{Pattern: r.Pattern, Component: r.Component, Params: params}
		bestScore = score
	}
	return best, best != nil
}

// Render returns the child value a match renders.
func (m *Match) Render() any {
	switch c := m.Component.(type) {
	case func(Match) any:
		return c(*m)
	case core.Ref:
		args := make(map[string]any, len(c.Args)+len(m.Params))
		for k, v := range c.Args {
			args[k] = v
		}
		for k, v := range m.Params {
			args[k] = v
		}
		c.Args = args
		return c
	}
	return m.Component
}

// View returns a reaction that renders the route matching the path stored
// under pathKey in state. An unmatched path is reported as not found and
// renders nothing.
func View(routes []Route, pathKey string, h errors.Handler) core.Reaction {
	return func(state *reactive.Object) any {
		path := state.String(pathKey)
		m, ok := Resolve(path, routes)
		if !ok {
			errors.Report(h, &errors.Error{
				Op:   "router.View",
				Kind: errors.KindNotFound,
				Err:  errors.ErrRouteNotFound,
				Path: path,
			})
			return nil
		}
		return m.Render()
	}
}

type routeFile struct {
	Routes []struct {
		Pattern string         `yaml:"pattern"`
		Path    string         `yaml:"path"`
		Args    map[string]any `yaml:"args"`
	} `yaml:"routes"`
}

// Parse reads a YAML route table whose routes point at schema modules:
//
//	routes:
//	  - pattern: /users/:id
//	    path: ./user.yaml
func Parse(data []byte, base string) ([]Route, error) {
	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	routes := make([]Route, 0, len(file.Routes))
	for i, r := range file.Routes {
		if r.Pattern == "" || r.Path == "" {
			return nil, &errors.ValidationError{Path: fmt.Sprintf("routes[%d]", i), Reason: "route needs pattern and path"}
		}
		routes = append(routes, Route{
			Pattern:   r.Pattern,
			Component: core.Ref{Path: r.Path, Base: base, Args: r.Args},
		})
	}
	return routes, nil
}
