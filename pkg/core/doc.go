// Package core compiles declarative schemas into live document trees and
// keeps them in sync with reactive state.
//
// A schema is a tree of plain values: a Node describes an element, a string
// or number becomes text, a Ref names a module to load, and a Reaction is a
// function of state whose result is re-rendered whenever the state it read
// changes. Falsy values (nil, false and "") render nothing.
//
// # Runtime
//
// A Runtime owns one document, one dependency graph, a module loader, a
// stylesheet and a channel bus. Mount compiles a schema into it:
//
//	rt := core.New(core.WithLogger(logger))
//	host, err := rt.Mount(ctx, "", &core.Node{
//	    Tag:   "button",
//	    State: map[string]any{"count": 0},
//	    Text:  core.Template("{{count}}"),
//	    Events: map[string]core.Handler{
//	        "click": func(c *core.Component, _ *dom.Event) {
//	            c.State().Set("count", c.State().Int("count")+1)
//	        },
//	    },
//	})
//
// # Contexts
//
// Every compiled value gets a Context, which carries its component, its
// document binding and its lifecycle Phase. Child lists are kept per slot:
// each entry of a Node's Children is one slot, and a Reaction slot may
// expand to any number of contexts. Reconciliation compares the old and new
// value at each position with Equal and rebuilds only the positions that
// changed.
//
// # Lifecycle
//
// Init hooks run after the whole tree is built and placed, in document
// order, yielding to the Scheduler between batches. Destroying a context
// runs its destroy hook, destroys its descendants, disposes its reactions
// and clears its channel subscriptions. Destroying an ancestor while a
// subtree is still being built cancels the rest of that build.
//
// # Concurrency
//
// A Runtime is owned by the goroutine that mounts into it. Other goroutines
// reach the tree through Dispatch. Module references are the one place the
// runtime itself goes concurrent: the refs of a child list are loaded in
// parallel before any of them is built.
package core
