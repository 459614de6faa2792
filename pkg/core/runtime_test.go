package core

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/go-drift/schemaui/pkg/config"
	"github.com/go-drift/schemaui/pkg/dom"
	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/metrics"
	"github.com/go-drift/schemaui/pkg/reactive"
)

func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *errors.Collector) {
	t.Helper()
	collector := &errors.Collector{}
	rt := New(append([]Option{WithErrorHandler(collector)}, opts...)...)
	t.Cleanup(rt.Dispose)
	return rt, collector
}

func mustMount(t *testing.T, rt *Runtime, root any) *Context {
	t.Helper()
	host, err := rt.Mount(context.Background(), "", root)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return host
}

func bodyText(rt *Runtime) string {
	return rt.Document().Body().Text()
}

func TestClickCounter(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:   "div",
		State: map[string]any{"count": 0},
		Text:  Reaction(func(s *reactive.Object) any { return strconv.Itoa(s.Int("count")) }),
		Events: map[string]Handler{
			"click": func(c *Component, _ *dom.Event) {
				c.State().Set("count", c.State().Int("count")+1)
			},
		},
	})

	div := host.First()
	if got := div.Binding().Text(); got != "0" {
		t.Fatalf("text = %q, want 0", got)
	}
	div.Binding().Click()
	if got := div.Binding().Text(); got != "1" {
		t.Errorf("text after click = %q, want 1", got)
	}
	if div.Phase() != PhaseMounted {
		t.Errorf("phase = %v, want mounted", div.Phase())
	}
}

func TestChildrenReconciledToFalseLeaveNothing(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:   "ul",
		State: map[string]any{"label": "b"},
		Children: []any{
			&Node{Tag: "li", Text: "a"},
			&Node{Tag: "li", Text: Reaction(func(s *reactive.Object) any { return s.String("label") })},
			&Node{Tag: "li", Children: []any{Reaction(func(s *reactive.Object) any { return s.String("label") })}},
		},
	})
	ul := host.First()
	if n := len(ul.Binding().Children()); n != 3 {
		t.Fatalf("children = %d, want 3", n)
	}
	if rt.Graph().Len() == 0 {
		t.Fatal("expected live dependencies before reconciling")
	}

	err := ul.Component().SetChildren(Reaction(func(*reactive.Object) any { return false }))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(ul.Binding().Children()); n != 0 {
		t.Errorf("children = %d, want 0", n)
	}
	if n := rt.Graph().Len(); n != 0 {
		t.Errorf("dependencies = %d, want 0", n)
	}
	if got := len(ul.Segments()); got != 1 {
		t.Errorf("segments = %d, want 1", got)
	}
}

func listItems(s *reactive.Object) any {
	var out []any
	for _, v := range s.List("items").Values() {
		out = append(out, &Node{Tag: "li", Text: v})
	}
	return out
}

func TestUnchangedPositionsKeepTheirNodes(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:      "ul",
		State:    map[string]any{"items": []any{"a", "b"}},
		Children: Reaction(listItems),
	})
	ul := host.First()
	before := ul.Binding().Children()

	items := ul.State().List("items")
	items.SetAt(1, "z")
	after := ul.Binding().Children()
	if len(after) != 2 {
		t.Fatalf("children = %d, want 2", len(after))
	}
	if after[0] != before[0] {
		t.Error("unchanged position was rebuilt")
	}
	if after[1] == before[1] || after[1].Text() != "z" {
		t.Errorf("changed position = %q, want a new z", after[1].Text())
	}

	items.Push("c")
	grown := ul.Binding().Children()
	if len(grown) != 3 || grown[0] != after[0] || grown[1] != after[1] {
		t.Error("push rebuilt existing positions")
	}
	if got := ul.Binding().Text(); got != "azc" {
		t.Errorf("text = %q, want azc", got)
	}

	items.SetLen(1)
	if got := ul.Binding().Text(); got != "a" {
		t.Errorf("text after truncate = %q, want a", got)
	}
}

func TestCapturedValuesRebuildTheirNodes(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:   "ul",
		State: map[string]any{"items": []any{"a", "b"}},
		Children: Reaction(func(s *reactive.Object) any {
			var out []any
			for _, v := range s.List("items").Values() {
				out = append(out, &Node{Tag: "li", Text: Reaction(func(*reactive.Object) any { return v })})
			}
			return out
		}),
	})
	ul := host.First()
	if got := ul.Binding().Text(); got != "ab" {
		t.Fatalf("text = %q, want ab", got)
	}

	ul.State().List("items").SetAt(0, "z")
	if got := ul.Binding().Text(); got != "zb" {
		t.Errorf("text = %q, want zb", got)
	}
}

func TestEqualComparesClosures(t *testing.T) {
	static := Reaction(func(*reactive.Object) any { return "x" })
	capture := func(v string) Reaction {
		return func(*reactive.Object) any { return v }
	}
	if !Equal(&Node{Text: static}, &Node{Text: static}) {
		t.Error("same closure compared unequal")
	}
	if !Equal(Reaction(listItems), Reaction(listItems)) {
		t.Error("named function compared unequal")
	}
	if Equal(&Node{Text: capture("a")}, &Node{Text: capture("a")}) {
		t.Error("distinct closures compared equal")
	}
	var none Reaction
	if !Equal(&Node{Text: none}, &Node{Text: none}) || Equal(&Node{Text: none}, &Node{Text: static}) {
		t.Error("nil function comparison")
	}
}

func TestReplacementInsertsBeforeRemoving(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:      "ul",
		State:    map[string]any{"items": []any{"a", "b"}},
		Children: Reaction(listItems),
	})
	ul := host.First()
	old := ul.Binding().Children()[0].Node()

	var kinds []dom.MutationKind
	cancel := rt.Document().Observe(func(m dom.Mutation) {
		if m.Parent == ul.Binding().Node() {
			kinds = append(kinds, m.Kind)
		}
	})
	defer cancel()

	ul.State().List("items").SetAt(0, "x")
	if len(kinds) != 2 || kinds[0] != dom.MutationInserted || kinds[1] != dom.MutationRemoved {
		t.Errorf("mutations = %v, want [inserted removed]", kinds)
	}
	if ul.Binding().Children()[0].Node() == old {
		t.Error("old node still first")
	}
}

func TestSlotsKeepDeclaredOrder(t *testing.T) {
	rt, _ := newTestRuntime(t)
	maybe := func(key, text string) Reaction {
		return func(s *reactive.Object) any {
			if s.Bool(key) {
				return text
			}
			return false
		}
	}
	host := mustMount(t, rt, &Node{
		Tag:      "p",
		State:    map[string]any{"first": false, "middle": false},
		Children: []any{maybe("first", "<"), "a", maybe("middle", "b"), "c"},
	})
	p := host.First()
	if got := p.Binding().Text(); got != "ac" {
		t.Fatalf("text = %q, want ac", got)
	}
	p.State().Set("middle", true)
	if got := p.Binding().Text(); got != "abc" {
		t.Errorf("text = %q, want abc", got)
	}
	p.State().Set("first", true)
	if got := p.Binding().Text(); got != "<abc" {
		t.Errorf("text = %q, want <abc", got)
	}
	p.State().Set("middle", false)
	if got := p.Binding().Text(); got != "<ac" {
		t.Errorf("text = %q, want <ac", got)
	}
}

func TestStateIsInheritedAndOwned(t *testing.T) {
	rt, _ := newTestRuntime(t)
	inner := &Node{Tag: "span", Text: Template("{{who}}")}
	host := mustMount(t, rt, &Node{
		Tag:      "div",
		State:    map[string]any{"who": "outer"},
		Children: []any{inner, &Node{Tag: "section", State: map[string]any{"who": "inner"}, Children: []any{inner}}},
	})
	div := host.First()
	if got := div.Binding().Text(); got != "outerinner" {
		t.Fatalf("text = %q", got)
	}
	span := div.Children()[0]
	if span.State() != div.State() {
		t.Error("stateless child should share its parent's state")
	}
	section := div.Children()[1]
	if section.State() == div.State() {
		t.Error("a node with state should own it")
	}
	div.State().Set("who", "changed")
	if got := div.Binding().Text(); got != "changedinner" {
		t.Errorf("text = %q", got)
	}
}

func TestSchemaIsReusable(t *testing.T) {
	rt, _ := newTestRuntime(t)
	counter := &Node{Tag: "b", State: map[string]any{"n": 1}, Text: Template("{{n}}")}
	host := mustMount(t, rt, &Node{Tag: "div", Children: []any{counter, counter}})
	first, second := host.First().Children()[0], host.First().Children()[1]
	first.State().Set("n", 5)
	if got := host.First().Binding().Text(); got != "51" {
		t.Errorf("text = %q, want 51", got)
	}
	if counter.State["n"] != 1 {
		t.Error("building mutated the schema's state")
	}
	if first.State() == second.State() {
		t.Error("two uses of a schema share state")
	}
}

func TestValidationErrorAbortsMount(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, err := rt.Mount(context.Background(), "", &Node{
		Tag:      "div",
		Children: []any{"ok", &Node{Tag: "p", Text: "x", Children: []any{"y"}}},
	})
	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if n := len(rt.Document().Body().Children()); n != 0 {
		t.Errorf("body children = %d, want 0", n)
	}
	if len(rt.Roots()) != 0 {
		t.Error("failed mount left a root")
	}
}

func TestMountTargetMissingIsNotFatal(t *testing.T) {
	rt, collector := newTestRuntime(t)
	host, err := rt.Mount(context.Background(), "nowhere", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if collector.Count(errors.KindNotFound) != 1 {
		t.Errorf("not found reports = %d, want 1", collector.Count(errors.KindNotFound))
	}
	if host.Phase() != PhaseBound {
		t.Errorf("phase = %v, want bound", host.Phase())
	}
	if host.First().Binding().Text() != "hello" {
		t.Error("tree was not built into the fragment")
	}
	if bodyText(rt) != "" {
		t.Error("body should stay empty")
	}
}

func TestMountIntoElementByID(t *testing.T) {
	rt, _ := newTestRuntime(t)
	mustMount(t, rt, &Node{Tag: "main", Attrs: map[string]any{"id": "app"}})
	if _, err := rt.Mount(context.Background(), "app", &Node{Tag: "h1", Text: "title"}); err != nil {
		t.Fatal(err)
	}
	if got := rt.Document().ByID("app").Text(); got != "title" {
		t.Errorf("app text = %q", got)
	}
}

func TestDestroyDuringConstructionStopsTheBuild(t *testing.T) {
	rt, _ := newTestRuntime(t)
	inits := 0
	_, err := rt.Mount(context.Background(), "", &Node{
		Tag: "div",
		Children: []any{
			&Node{Tag: "span", Text: Reaction(func(*reactive.Object) any {
				rt.Roots()[0].Destroy()
				return "x"
			})},
			&Node{Tag: "p", Hooks: Hooks{Init: func(*Component) error { inits++; return nil }}},
		},
	})
	if !errors.Is(err, errors.ErrDestroyed) {
		t.Fatalf("err = %v, want ErrDestroyed", err)
	}
	if inits != 0 {
		t.Errorf("init hooks ran %d times after destroy", inits)
	}
	if n := len(rt.Document().Body().Children()); n != 0 {
		t.Errorf("body children = %d, want 0", n)
	}
	if n := rt.Graph().Len(); n != 0 {
		t.Errorf("dependencies = %d, want 0", n)
	}
}

func TestCanceledContextStopsTheBuild(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Loader().RegisterFunc("/slow", func(context.Context, map[string]any) (any, error) {
		cancel()
		return &Node{Tag: "p", Text: "late"}, nil
	})
	_, err := rt.Mount(ctx, "", &Node{Tag: "div", Children: []any{Ref{Path: "/slow"}, "after"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if bodyText(rt) != "" {
		t.Errorf("body = %q, want empty", bodyText(rt))
	}
}

func TestInitHooksRunAfterMountInBatches(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.BatchSize = 2
	yields := 0
	rt, collector := newTestRuntime(t,
		WithConfig(cfg),
		WithScheduler(SchedulerFunc(func(ctx context.Context) error { yields++; return ctx.Err() })),
	)

	var order []string
	hook := func(name string, fail bool) Hooks {
		return Hooks{Init: func(c *Component) error {
			if c.Context().Phase() != PhaseMounted {
				t.Errorf("%s init ran in phase %v", name, c.Context().Phase())
			}
			order = append(order, name)
			if fail {
				return errors.New("init failed")
			}
			return nil
		}}
	}
	var children []any
	for i := range 4 {
		name := "c" + strconv.Itoa(i)
		children = append(children, &Node{Tag: "i", Hooks: hook(name, i == 1)})
	}
	mustMount(t, rt, &Node{Tag: "div", Hooks: hook("root", false), Children: children})

	if got := strings.Join(order, ","); got != "root,c0,c1,c2,c3" {
		t.Errorf("order = %s", got)
	}
	if yields != 2 {
		t.Errorf("yields = %d, want 2", yields)
	}
	if collector.Count(errors.KindHook) != 1 {
		t.Errorf("hook errors = %d, want 1", collector.Count(errors.KindHook))
	}
}

func TestDestroyHookAndCleanup(t *testing.T) {
	m := metrics.New()
	rt, _ := newTestRuntime(t, WithMetrics(m))
	destroyed := 0
	host := mustMount(t, rt, &Node{
		Tag:    "div",
		Module: "/app",
		State:  map[string]any{"v": 1},
		Text:   Template("{{v}}"),
		Hooks:  Hooks{Destroy: func(*Component) { destroyed++ }},
		Channels: map[string]ChannelHandler{
			"ping": func(*Component, any) {},
		},
	})
	if rt.Channels().Count() != 1 {
		t.Fatalf("channels = %d, want 1", rt.Channels().Count())
	}
	host.First().Destroy()

	if destroyed != 1 {
		t.Errorf("destroy hook ran %d times", destroyed)
	}
	if rt.Channels().Count() != 0 {
		t.Error("channel subscriptions survived destroy")
	}
	if rt.Graph().Len() != 0 {
		t.Error("dependencies survived destroy")
	}
	if len(host.Children()) != 0 {
		t.Error("destroyed child still in its segment")
	}

	rt.Dispose()
	if len(rt.Roots()) != 0 || bodyText(rt) != "" {
		t.Error("Dispose left a tree behind")
	}
	if live := testutil.ToFloat64(m.ContextsLive); live != 0 {
		t.Errorf("live contexts = %v, want 0", live)
	}
	if created := testutil.ToFloat64(m.ContextsCreated); created == 0 {
		t.Error("no contexts recorded")
	}
	if _, err := rt.Mount(context.Background(), "", "x"); !errors.Is(err, errors.ErrDestroyed) {
		t.Errorf("Mount after Dispose = %v", err)
	}
}

func TestFailingReactionDoesNotStopSiblings(t *testing.T) {
	rt, collector := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:   "div",
		State: map[string]any{"n": 1},
		Children: []any{
			&Node{Tag: "b", Text: Reaction(func(s *reactive.Object) any {
				if s.Int("n") > 1 {
					panic("broken")
				}
				return "ok"
			})},
			&Node{Tag: "i", Text: Template("{{n}}")},
		},
	})
	host.First().State().Set("n", 2)
	if got := host.First().Children()[1].Binding().Text(); got != "2" {
		t.Errorf("sibling text = %q, want 2", got)
	}
	if collector.Count(errors.KindReaction) != 1 {
		t.Errorf("reaction errors = %d, want 1", collector.Count(errors.KindReaction))
	}
}

func TestWalkIsDepthFirst(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{Tag: "a", Children: []any{
		&Node{Tag: "b", Children: []any{&Node{Tag: "c"}}},
		&Node{Tag: "d"},
	}})
	var tags []string
	for c := range host.Walk() {
		if c.Node() != nil {
			tags = append(tags, c.Node().Tag)
		}
	}
	if got := strings.Join(tags, ""); got != "abcd" {
		t.Errorf("walk = %s, want abcd", got)
	}
}

func TestDispatchSerialisesWithOwner(t *testing.T) {
	rt, _ := newTestRuntime(t)
	host := mustMount(t, rt, &Node{
		Tag:   "div",
		State: map[string]any{"count": 0},
		Text:  Reaction(func(s *reactive.Object) any { return strconv.Itoa(s.Int("count")) }),
		Events: map[string]Handler{
			"click": func(c *Component, _ *dom.Event) {
				c.State().Set("count", c.State().Int("count")+1)
			},
		},
	})
	div := host.First()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range n {
			rt.Dispatch(func() {
				div.State().Set("count", div.State().Int("count")+1)
			})
		}
	}()
	for range n {
		rt.Click(div.Binding())
	}
	wg.Wait()

	var got string
	rt.Dispatch(func() { got = div.Binding().Text() })
	if got != strconv.Itoa(2*n) {
		t.Errorf("count = %s, want %d", got, 2*n)
	}
}
