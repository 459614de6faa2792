// Package dom is the host rendering surface for schemaui: an in-memory
// document built on golang.org/x/net/html nodes.
//
// Each Binding owns exactly one node (element, text or comment placeholder)
// and exposes the primitive mutations the runtime needs: text, attributes,
// inline style properties, arbitrary properties, event listeners and tree
// insertion. Structural changes are reported to observers registered with
// Document.Observe, in the order they happen.
package dom
