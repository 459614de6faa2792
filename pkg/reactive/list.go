package reactive

// List is an activated slice. Index reads depend on that index, Len
// depends on the length, and any mutation that changes the length
// re-evaluates every index and length reaction of the list.
type List struct {
	g        *Graph
	id       uint64
	items    []any
	released bool
}

// List activates items into a reactive list. The slice is copied.
func (g *Graph) List(items []any) *List {
	l := &List{g: g, id: g.allocID(), items: make([]any, len(items))}
	g.nodes[l.id] = l
	for i, item := range items {
		l.items[i] = g.activate(item)
	}
	return l
}

func (l *List) nodeID() uint64 { return l.id }
func (l *List) owner() *Graph  { return l.g }

// ID returns the stable identifier of the list inside its graph.
func (l *List) ID() uint64 {
	return l.id
}

// At returns the element at index i, or nil when out of range.
func (l *List) At(i int) any {
	if l == nil {
		return nil
	}
	l.g.trackIndex(l.id, i)
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Len returns the length of the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	l.g.track(l.id, lengthKey)
	return len(l.items)
}

// Values returns a copy of the elements, depending on the length and on
// every index.
func (l *List) Values() []any {
	if l == nil {
		return nil
	}
	l.g.track(l.id, lengthKey)
	out := make([]any, len(l.items))
	for i, item := range l.items {
		l.g.trackIndex(l.id, i)
		out[i] = item
	}
	return out
}

// SetAt stores value at index i, growing the list with nils when i is past
// the end.
func (l *List) SetAt(i int, value any) {
	if i < 0 {
		return
	}
	value = l.g.activate(value)
	if i >= len(l.items) {
		l.items = append(l.items, make([]any, i+1-len(l.items))...)
		l.items[i] = value
		l.g.notifyAll(l.id)
		return
	}
	releaseReplaced(l.items[i], value)
	l.items[i] = value
	l.g.notify(l.id, itoa(i))
}

// Push appends values and returns the new length.
func (l *List) Push(values ...any) int {
	for _, value := range values {
		l.items = append(l.items, l.g.activate(value))
	}
	if len(values) > 0 {
		l.g.notifyAll(l.id)
	}
	return len(l.items)
}

// Pop removes and returns the last element.
func (l *List) Pop() any {
	if len(l.items) == 0 {
		return nil
	}
	last := l.items[len(l.items)-1]
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
	releaseValue(last)
	l.g.notifyAll(l.id)
	return last
}

// Splice removes deleteCount elements at start, inserts values in their
// place and returns the removed elements.
func (l *List) Splice(start, deleteCount int, values ...any) []any {
	n := len(l.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = max(min(deleteCount, n-start), 0)

	removed := append([]any(nil), l.items[start:start+deleteCount]...)
	inserted := make([]any, len(values))
	for i, value := range values {
		inserted[i] = l.g.activate(value)
	}
	tail := append([]any(nil), l.items[start+deleteCount:]...)
	l.items = append(append(l.items[:start], inserted...), tail...)
	for _, value := range removed {
		releaseValue(value)
	}
	if deleteCount > 0 || len(values) > 0 {
		l.g.notifyAll(l.id)
	}
	return removed
}

// SetLen truncates or grows the list to n elements.
func (l *List) SetLen(n int) {
	n = max(n, 0)
	if n == len(l.items) {
		return
	}
	if n < len(l.items) {
		for _, value := range l.items[n:] {
			releaseValue(value)
		}
		clear(l.items[n:])
		l.items = l.items[:n]
	} else {
		l.items = append(l.items, make([]any, n-len(l.items))...)
	}
	l.g.notifyAll(l.id)
}

// Raw returns a deep plain copy of the list. It does not track.
func (l *List) Raw() []any {
	if l == nil {
		return nil
	}
	out := make([]any, len(l.items))
	for i, item := range l.items {
		out[i] = plain(item)
	}
	return out
}

func (l *List) release() { l.releaseExcept(nil) }

func (l *List) releaseExcept(keep map[node]bool) {
	if l.released || keep[l] {
		return
	}
	l.released = true
	for _, item := range l.items {
		if n, ok := item.(node); ok {
			n.releaseExcept(keep)
		}
	}
	l.g.releaseDeps(l.id)
}

func (l *List) revive() {
	if !l.released {
		return
	}
	l.released = false
	l.g.nodes[l.id] = l
	for _, item := range l.items {
		l.g.activate(item)
	}
}

func releaseValue(v any) {
	if n, ok := v.(node); ok {
		n.release()
	}
}
