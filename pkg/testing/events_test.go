package testing

import (
	"testing"

	"github.com/go-drift/schemaui/pkg/core"
	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/testing/internal/testbed"
)

func TestTap_Counter(t *testing.T) {
	tester := NewTesterWithT(t)
	var taps []int
	tester.Mount(testbed.Counter(0, func(n int) { taps = append(taps, n) }))

	if err := tester.Tap(ByTag("button")); err != nil {
		t.Fatal(err)
	}
	if !tester.Find(ByText("1")).Exists() {
		t.Errorf("expected text '1', got %q", tester.Text())
	}
	tester.Tap(ByTag("button"))
	if len(taps) != 2 || taps[1] != 2 {
		t.Errorf("expected taps [1 2], got %v", taps)
	}
}

func TestTap_NoMatch(t *testing.T) {
	tester := NewTesterWithT(t)
	tester.Mount("x")

	if err := tester.Tap(ByTag("button")); err == nil {
		t.Error("expected error for missing button")
	}
	if err := tester.Tap(ByText("x")); err == nil {
		t.Error("expected error for tapping a text node")
	}
}

func TestDispatchCustom_Bubbles(t *testing.T) {
	tester := NewTesterWithT(t)
	var got any
	tester.Mount(&core.Node{
		Tag: "form",
		Events: map[string]core.Handler{
			"picked": func(_ *core.Component, ev *dom.Event) { got = ev.Detail },
		},
		Children: []any{&core.Node{Tag: "input"}},
	})

	if err := tester.DispatchCustom(ByTag("input"), "picked", 7); err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("expected detail 7, got %v", got)
	}
}

func TestEmit_AcrossModules(t *testing.T) {
	tester := NewTesterWithT(t)
	tester.Mount(&core.Node{Tag: "main", Children: []any{
		testbed.Panel("/panels/a.yaml", "A"),
		testbed.Panel("/panels/b.yaml", "B"),
	}})

	n, err := tester.Emit(ByAttr("data-panel", "A"), "select", "own")
	if err != nil || n != 1 {
		t.Fatalf("Emit = %d, %v", n, err)
	}
	if got := tester.Find(ByAttr("data-panel", "B")).Text(); got != "Bpick" {
		t.Errorf("panel B changed: %q", got)
	}

	n, _ = tester.Emit(ByAttr("data-panel", "A"), "select", "all", "./")
	if n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
	if got := tester.Text(); got != "allpickallpick" {
		t.Errorf("expected both titles updated, got %q", got)
	}
}
