package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/metrics"
	"github.com/go-drift/schemaui/pkg/reactive"
)

// renderer places a context's children in the document and keeps each
// child slot in sync with its value. Reconciliation is positional: the
// item at index j of a slot is compared with the context at index j, and
// only positions whose value changed are rebuilt.
type renderer struct {
	ctx      *Context
	segments [][]*Context
	slots    []*reactive.Reaction
}

func (r *renderer) grow(n int) {
	for len(r.segments) < n {
		r.segments = append(r.segments, nil)
		r.slots = append(r.slots, nil)
	}
}

// renderAll renders v as the full child list: one slot per element of a
// []any, or a single slot otherwise. Slots beyond the new count are
// destroyed.
func (r *renderer) renderAll(s *session, v any) error {
	values := childSlots(v)
	for i := len(values); i < len(r.segments); i++ {
		r.clearSlot(i)
	}
	if len(r.segments) > len(values) {
		r.segments = r.segments[:len(values)]
		r.slots = r.slots[:len(values)]
	}
	r.grow(len(values))
	for i, value := range values {
		if err := r.renderSlot(s, i, value); err != nil {
			return err
		}
	}
	return nil
}

// renderSlot renders slot i from v. A value that is or contains a Reaction
// becomes live: it is re-evaluated and the slot reconciled whenever the
// state it read changes.
func (r *renderer) renderSlot(s *session, i int, v any) error {
	r.stopSlot(i)
	if !containsReaction(v) {
		return r.reconcile(s, i, flatten(v, nil))
	}
	fn, ok := asReaction(v)
	if !ok {
		fn = func(*reactive.Object) any { return v }
	}
	state := r.ctx.state
	value, react, ok := r.ctx.rt.watch(fmt.Sprintf("children[%d]", i),
		func() any { return flatten(fn(state), state) },
		func(v any) { r.rerender(i, v.([]any)) },
	)
	if !ok {
		return r.reconcile(s, i, nil)
	}
	r.slots[i] = react
	return r.reconcile(s, i, value.([]any))
}

// rerender reconciles a live slot after its reaction re-ran.
func (r *renderer) rerender(i int, items []any) {
	if r.ctx.Destroyed() || i >= len(r.segments) {
		return
	}
	s := r.ctx.rt.newSession(context.Background())
	if err := r.reconcile(s, i, items); err != nil {
		r.ctx.rt.report("core.rerender", errors.KindValidation, err)
		return
	}
	r.ctx.rt.report("core.rerender", errors.KindHook, s.flush())
}

// reconcile makes slot i show items. Reused positions keep their context;
// a changed position gets a new subtree, built detached and inserted next
// to the old one before the old one is destroyed.
func (r *renderer) reconcile(s *session, slot int, items []any) error {
	rt := r.ctx.rt
	old := slices.Clone(r.segments[slot])
	reuse := make([]bool, len(items))
	reused := 0
	for j, item := range items {
		if j < len(old) && !old[j].Destroyed() && Equal(old[j].source, item) {
			reuse[j] = true
			reused++
		}
	}
	rt.metrics.Reconcile(metrics.OutcomeReused, reused)

	resolved, err := rt.resolveAll(s, r.ctx, items, reuse)
	if err != nil {
		return err
	}

	next := make([]*Context, 0, len(items))
	for b, err := range rt.generate(s, r.ctx, items, resolved, old, reuse) {
		if err != nil {
			if len(next) < len(old) {
				next = append(next, old[len(next):]...)
			}
			if !r.ctx.Destroyed() {
				r.segments[slot] = next
			}
			return err
		}
		if !b.reused {
			var prev *Context
			if b.index < len(old) {
				prev = old[b.index]
			}
			r.place(slot, next, prev, b.ctx)
		}
		next = append(next, b.ctx)
	}

	if r.ctx.Destroyed() {
		for _, c := range next {
			c.Destroy()
		}
		return &errors.Error{Op: "core.reconcile", Kind: errors.KindUnknown, Err: errors.ErrDestroyed}
	}
	removed := 0
	if len(old) > len(items) {
		for _, leftover := range old[len(items):] {
			leftover.Destroy()
			removed++
		}
	}
	rt.metrics.Reconcile(metrics.OutcomeRemoved, removed)
	r.segments[slot] = next
	return nil
}

// place inserts child into the document at its position in slot. prev is
// the context previously at that position, if any.
func (r *renderer) place(slot int, next []*Context, prev, child *Context) {
	switch {
	case prev != nil:
		child.binding.InsertAfter(prev.binding)
		prev.Destroy()
		r.ctx.rt.metrics.Reconcile(metrics.OutcomeReplaced, 1)
	default:
		if anchor := r.anchor(slot, next); anchor != nil {
			child.binding.InsertAfter(anchor.binding)
		} else if r.ctx.host {
			r.ctx.binding.Append(child.binding)
		} else {
			r.ctx.binding.Prepend(child.binding)
		}
		r.ctx.rt.metrics.Reconcile(metrics.OutcomeInserted, 1)
	}
	if r.ctx.phase == PhaseMounted {
		child.markMounted()
	}
}

// anchor returns the context a new node in slot goes after: the last one
// placed in this pass, else the last live context of an earlier slot.
func (r *renderer) anchor(slot int, next []*Context) *Context {
	if len(next) > 0 {
		return next[len(next)-1]
	}
	for i := slot - 1; i >= 0; i-- {
		if seg := r.segments[i]; len(seg) > 0 {
			return seg[len(seg)-1]
		}
	}
	return nil
}

func (r *renderer) stopSlot(i int) {
	if i < len(r.slots) && r.slots[i] != nil {
		r.slots[i].Dispose()
		r.slots[i] = nil
	}
}

func (r *renderer) clearSlot(i int) {
	r.stopSlot(i)
	for _, c := range slices.Clone(r.segments[i]) {
		c.Destroy()
	}
	r.segments[i] = nil
}

// clear destroys every child and slot.
func (r *renderer) clear() {
	for i := range r.segments {
		r.clearSlot(i)
	}
	r.segments = nil
	r.slots = nil
}

// dispose is clear for a context being destroyed.
func (r *renderer) dispose() {
	r.clear()
}

// forget drops a destroyed child from its segment.
func (r *renderer) forget(c *Context) {
	for i, seg := range r.segments {
		if j := slices.Index(seg, c); j >= 0 {
			r.segments[i] = slices.Delete(seg, j, j+1)
			return
		}
	}
}
