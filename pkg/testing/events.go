package testing

import (
	"fmt"

	"github.com/go-drift/schemaui/pkg/dom"
)

// Tap clicks the first element matched by finder.
func (t *Tester) Tap(finder Finder) error {
	return t.Dispatch(finder, "click")
}

// Dispatch fires a bubbling event of type typ on the first element matched
// by finder.
func (t *Tester) Dispatch(finder Finder, typ string) error {
	b, err := t.element("Dispatch", finder)
	if err != nil {
		return err
	}
	t.rt.DispatchEvent(b, &dom.Event{Type: typ, Bubbles: true})
	return nil
}

// DispatchCustom fires a custom event carrying detail on the first element
// matched by finder.
func (t *Tester) DispatchCustom(finder Finder, name string, detail any) error {
	b, err := t.element("DispatchCustom", finder)
	if err != nil {
		return err
	}
	t.rt.DispatchEvent(b, &dom.Event{Type: name, Detail: detail, Bubbles: true})
	return nil
}

// Emit sends data on channel name from the first context matched by
// finder. It returns the number of subscribers reached.
func (t *Tester) Emit(finder Finder, name string, data any, paths ...string) (int, error) {
	result := t.Find(finder)
	if !result.Exists() {
		return 0, fmt.Errorf("Emit: finder matched no contexts: %s", finder.Description())
	}
	var (
		n   int
		err error
	)
	t.rt.Dispatch(func() {
		n, err = result.Component().Emit(name, data, paths...)
	})
	return n, err
}

func (t *Tester) element(op string, finder Finder) (*dom.Binding, error) {
	result := t.Find(finder)
	if !result.Exists() {
		return nil, fmt.Errorf("%s: finder matched no contexts: %s", op, finder.Description())
	}
	b := result.Binding()
	if !b.IsElement() {
		return nil, fmt.Errorf("%s: match is not an element: %s", op, finder.Description())
	}
	return b, nil
}
