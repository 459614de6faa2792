package reactive

import (
	"testing"

	"github.com/go-drift/schemaui/pkg/errors"
)

func TestActivateIsIdempotent(t *testing.T) {
	g := NewGraph()
	raw := map[string]any{"a": 1, "nested": map[string]any{"b": 2}}

	first := g.Object(raw)
	second := g.Object(raw)
	if first != second {
		t.Fatal("activating the same map twice should return the same object")
	}
	if Activate(g, first) != any(first) {
		t.Error("activating an already reactive object should return it unchanged")
	}
	nested := first.Object("nested")
	if nested == nil {
		t.Fatal("nested map should be activated")
	}
	if Activate(g, nested) != any(nested) {
		t.Error("nested object should not be re-wrapped")
	}
	if g.Nodes() != 2 {
		t.Errorf("Nodes() = %d, want 2", g.Nodes())
	}
}

func TestActivatePassesThroughPrimitives(t *testing.T) {
	g := NewGraph()
	for _, v := range []any{1, "x", true, nil, 2.5} {
		if got := Activate(g, v); got != v {
			t.Errorf("Activate(%v) = %v", v, got)
		}
	}
	if _, ok := Activate(g, []any{1, 2}).(*List); !ok {
		t.Error("slices should activate into *List")
	}
}

func TestRegisterPropagatesEagerly(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"a": 1})
	target := g.Object(nil)

	g.Register(target, "b", func() any { return state.Int("a") * 2 })
	if got := target.Peek("b"); got != 2 {
		t.Fatalf("initial b = %v, want 2", got)
	}

	state.Set("a", 5)
	if got := target.Peek("b"); got != 10 {
		t.Errorf("b after write = %v, want 10", got)
	}
}

func TestReactionRunsOncePerWrite(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"a": 1, "b": 2})
	runs := 0
	g.Watch("sum", func() any {
		runs++
		return state.Int("a") + state.Int("b")
	}, nil)

	state.Set("a", 3)
	state.Set("b", 4)
	if runs != 3 {
		t.Errorf("runs = %d, want 3 (initial plus one per write)", runs)
	}
}

func TestDeleteReleasesNestedDependencies(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{
		"nested": map[string]any{
			"x":    1,
			"deep": map[string]any{"y": 2},
		},
	})
	nested := state.Object("nested")

	_, r := g.Watch("read", func() any {
		n := state.Object("nested")
		if n == nil {
			return 0
		}
		return n.Int("x") + n.Object("deep").Int("y")
	}, nil)

	if got := g.CountFor(nested); got != 3 {
		t.Fatalf("CountFor(nested) = %d, want 3", got)
	}

	state.Delete("nested")
	if got := g.CountFor(nested); got != 0 {
		t.Errorf("CountFor(nested) after delete = %d, want 0", got)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (only state.nested remains)", g.Len())
	}

	r.Dispose()
	if g.Len() != 0 {
		t.Errorf("Len() after dispose = %d, want 0", g.Len())
	}
}

func TestReplaceReleasesOldValue(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"user": map[string]any{"name": "a"}})
	old := state.Object("user")

	var seen []string
	g.Watch("name", func() any {
		name := state.Object("user").String("name")
		seen = append(seen, name)
		return name
	}, nil)

	state.Set("user", map[string]any{"name": "b"})
	if g.CountFor(old) != 0 {
		t.Errorf("replaced object still holds %d dependencies", g.CountFor(old))
	}
	old.Set("name", "stale")
	if len(seen) != 2 || seen[1] != "b" {
		t.Errorf("seen = %v, want [a b]", seen)
	}
}

func TestReplaceKeepsReusedChildren(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"a": map[string]any{"inner": map[string]any{"x": 1}}})
	inner := state.Object("a").Object("inner")

	var seen []int
	g.Watch("x", func() any {
		x := inner.Int("x")
		seen = append(seen, x)
		return x
	}, nil)

	state.Set("a", map[string]any{"inner": inner})
	if state.Object("a").Object("inner") != inner {
		t.Fatal("inner was re-wrapped")
	}
	if got := g.CountFor(inner); got != 1 {
		t.Errorf("CountFor(inner) = %d, want 1", got)
	}
	inner.Set("x", 2)
	if len(seen) != 2 || seen[1] != 2 {
		t.Errorf("seen = %v, want [1 2]", seen)
	}
}

func TestListSetAtKeepsReusedChildren(t *testing.T) {
	g := NewGraph()
	list := g.List([]any{map[string]any{"child": map[string]any{"x": 1}}})
	child := list.At(0).(*Object).Object("child")

	runs := 0
	g.Watch("x", func() any {
		runs++
		return child.Int("x")
	}, nil)

	list.SetAt(0, map[string]any{"child": child})
	child.Set("x", 2)
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestDeleteClearsList(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"items": []any{"a", "b"}})
	list := state.List("items")

	var lengths []int
	g.Watch("len", func() any {
		n := list.Len()
		lengths = append(lengths, n)
		return n
	}, nil)

	state.Delete("items")
	if list.Len() != 0 {
		t.Errorf("deleted list length = %d, want 0", list.Len())
	}
	if len(lengths) != 2 || lengths[1] != 0 {
		t.Errorf("lengths = %v, want [2 0]", lengths)
	}
	if g.CountFor(list) != 0 {
		t.Errorf("deleted list still holds %d dependencies", g.CountFor(list))
	}
}

func TestListLengthChangesReachIndexReactions(t *testing.T) {
	g := NewGraph()
	list := g.List([]any{"a", "b", "c"})

	var seen []any
	g.Watch("third", func() any {
		v := list.At(2)
		seen = append(seen, v)
		return v
	}, nil)

	list.SetLen(1)
	list.Push("x", "y")
	list.Splice(0, 1)

	want := []any{"c", nil, "y", nil}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestListSetAtNotifiesOnlyThatIndex(t *testing.T) {
	g := NewGraph()
	list := g.List([]any{1, 2})
	first, second := 0, 0
	g.Watch("first", func() any { first++; return list.At(0) }, nil)
	g.Watch("second", func() any { second++; return list.At(1) }, nil)

	list.SetAt(1, 20)
	if first != 1 || second != 2 {
		t.Errorf("first=%d second=%d, want 1 and 2", first, second)
	}
	if list.Pop() != 20 {
		t.Error("Pop should return the last element")
	}
}

func TestDynamicDependencies(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"flag": true, "a": 1, "b": 2})
	runs := 0
	g.Watch("branch", func() any {
		runs++
		if state.Bool("flag") {
			return state.Int("a")
		}
		return state.Int("b")
	}, nil)

	state.Set("flag", false)
	state.Set("a", 100)
	if runs != 2 {
		t.Errorf("runs = %d, want 2: a is no longer read", runs)
	}
	state.Set("b", 3)
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}

func TestFailingReactionIsIsolated(t *testing.T) {
	collector := &errors.Collector{}
	failures := 0
	g := NewGraph(Options{Handler: collector, OnRun: func(failed bool) {
		if failed {
			failures++
		}
	}})
	state := g.Object(map[string]any{"a": 1})

	g.Watch("broken", func() any {
		if state.Int("a") == 2 {
			panic("broken reaction")
		}
		return nil
	}, nil)
	other := 0
	g.Watch("other", func() any {
		other = state.Int("a")
		return other
	}, nil)

	state.Set("a", 2)
	if other != 2 {
		t.Errorf("sibling reaction did not run, other = %d", other)
	}
	if collector.Count(errors.KindReaction) != 1 {
		t.Errorf("reported %d reaction errors, want 1", collector.Count(errors.KindReaction))
	}
	if failures != 1 {
		t.Errorf("OnRun saw %d failures, want 1", failures)
	}
	if g.Current() != nil {
		t.Error("current reaction should be cleared after a panic")
	}
}

func TestSelfWriteDoesNotRecurse(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"n": 0})
	runs := 0
	g.Watch("self", func() any {
		runs++
		n := state.Int("n")
		if n < 5 {
			state.Set("n", n+1)
		}
		return n
	}, nil)
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestKeysTracksAdditions(t *testing.T) {
	g := NewGraph()
	state := g.Object(nil)
	var counts []int
	g.Watch("keys", func() any {
		counts = append(counts, len(state.Keys()))
		return nil
	}, nil)

	state.Set("a", 1)
	state.Set("a", 2)
	state.Delete("a")
	want := []int{0, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}

func TestRawIsDeepPlainCopy(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"list": []any{map[string]any{"k": "v"}}})
	raw := state.Raw()
	list, ok := raw["list"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("raw list = %#v", raw["list"])
	}
	if item, ok := list[0].(map[string]any); !ok || item["k"] != "v" {
		t.Errorf("raw item = %#v", list[0])
	}
}

func TestValueSubscribe(t *testing.T) {
	g := NewGraph()
	count := NewValue(g, 1)
	var got []int
	cancel := count.Subscribe(func(n int) { got = append(got, n) })

	count.Set(2)
	count.Update(func(n int) int { return n + 1 })
	cancel()
	count.Set(9)

	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("got = %v, want [2 3]", got)
	}
	if count.Get() != 9 {
		t.Errorf("Get() = %d, want 9", count.Get())
	}
	if g.Len() != 0 {
		t.Errorf("cancelled subscription left %d dependencies", g.Len())
	}
}

func TestCellView(t *testing.T) {
	g := NewGraph()
	state := g.Object(map[string]any{"title": "a"})
	cell := state.Cell("title")
	var last any
	cancel := cell.Subscribe(func(v any) { last = v })
	defer cancel()

	cell.Set("b")
	if last != "b" || state.Peek("title") != "b" {
		t.Errorf("cell write not observed: last=%v", last)
	}
	if cell.Get() != "b" {
		t.Errorf("cell.Get() = %v", cell.Get())
	}
}
