// Package reactive implements fine-grained dependency tracking over plain
// state trees.
//
// State is activated into explicit observable nodes: maps become *Object and
// slices become *List. Reads performed while a Reaction is running register
// that reaction as a dependent of the (node, key) pair that was read; writes
// and deletes notify every dependent synchronously.
//
//	g := reactive.NewGraph()
//	state := g.Object(map[string]any{"count": 0})
//	out := g.Object(nil)
//	g.Register(out, "double", func() any { return state.Get("count").(int) * 2 })
//	state.Set("count", 5) // out.Get("double") is now 10
//
// Propagation is eager and unbatched: each write re-runs every dependent
// reaction before Set returns, and a reaction that depends on two keys
// written one after the other runs twice. Dependencies are collected afresh
// on every run, so conditional reads never leave stale registrations behind.
//
// A Graph is not safe for concurrent use. All reads and writes of the nodes
// it owns must happen on one goroutine.
package reactive
