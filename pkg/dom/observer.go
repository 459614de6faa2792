package dom

import "golang.org/x/net/html"

// MutationKind identifies a structural or content change.
type MutationKind int

const (
	// MutationInserted records a node placed into a parent.
	MutationInserted MutationKind = iota
	// MutationRemoved records a node detached from its parent.
	MutationRemoved
	// MutationText records a text change.
	MutationText
	// MutationAttribute records an attribute change.
	MutationAttribute
)

func (k MutationKind) String() string {
	switch k {
	case MutationInserted:
		return "inserted"
	case MutationRemoved:
		return "removed"
	case MutationText:
		return "text"
	case MutationAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// Mutation describes one change to the document.
type Mutation struct {
	Kind MutationKind
	// Parent is the parent involved in an insert or remove.
	Parent *html.Node
	// Node is the node that changed.
	Node *html.Node
	// Name is the attribute name for attribute mutations.
	Name string
}

type observer struct {
	id int
	fn func(Mutation)
}

// Observe calls fn synchronously for every mutation until cancel is called.
func (d *Document) Observe(fn func(Mutation)) (cancel func()) {
	d.nextObs++
	obs := &observer{id: d.nextObs, fn: fn}
	d.observers = append(d.observers, obs)
	return func() {
		for i, existing := range d.observers {
			if existing == obs {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) record(m Mutation) {
	if len(d.observers) == 0 {
		return
	}
	for _, obs := range append([]*observer(nil), d.observers...) {
		obs.fn(m)
	}
}
