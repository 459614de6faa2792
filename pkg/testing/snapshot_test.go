package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-drift/schemaui/pkg/core"
	"github.com/go-drift/schemaui/pkg/testing/internal/testbed"
)

type recordingT struct {
	fatals []string
	errs   []string
}

func (r *recordingT) Helper()      {}
func (r *recordingT) Name() string { return "TestRecording" }
func (r *recordingT) Fatalf(format string, a ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, a...))
}
func (r *recordingT) Errorf(format string, a ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, a...))
}

func TestCaptureSnapshot_ContainsTree(t *testing.T) {
	tester := NewTesterWithT(t)
	tester.Mount(testbed.List("a", "b"))

	snap := tester.CaptureSnapshot()
	for _, want := range []string{"<ul>", "<li>a</li>", "<li>b</li>", `<style id="schemaui-styles">`} {
		if !strings.Contains(snap.HTML, want) {
			t.Errorf("snapshot missing %s:\n%s", want, snap.HTML)
		}
	}
}

func TestSnapshot_Diff(t *testing.T) {
	tester := NewTesterWithT(t)
	tester.Mount(testbed.List("a"))
	a := tester.CaptureSnapshot()
	if diff := a.Diff(tester.CaptureSnapshot()); diff != "" {
		t.Errorf("expected no diff for identical snapshots, got:\n%s", diff)
	}

	tester.Host().First().State().List("items").Push("b")
	b := tester.CaptureSnapshot()
	diff := b.Diff(a)
	if !strings.Contains(diff, "+<li>b</li>") {
		t.Errorf("expected added line in diff, got:\n%s", diff)
	}
}

func TestSnapshot_UpdateAndMatch(t *testing.T) {
	tester := NewTesterWithT(t)
	tester.Mount(&core.Node{Tag: "p", Styles: map[string]any{"color": "red"}, Text: "hi"})
	snap := tester.CaptureSnapshot()

	path := filepath.Join(t.TempDir(), "nested", "p.html")
	if err := snap.UpdateFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}

	rec := &recordingT{}
	snap.MatchesFile(rec, path)
	if len(rec.fatals)+len(rec.errs) != 0 {
		t.Errorf("expected match, got %v %v", rec.fatals, rec.errs)
	}

	tester.Host().First().Component().SetText("changed")
	tester.CaptureSnapshot().MatchesFile(rec, path)
	if len(rec.errs) != 1 {
		t.Errorf("expected 1 mismatch, got %v", rec.errs)
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	if os.Getenv(UpdateEnv) == "1" {
		t.Skip("snapshots are being updated")
	}
	tester := NewTesterWithT(t)
	tester.Mount("x")

	rec := &recordingT{}
	tester.CaptureSnapshot().MatchesFile(rec, filepath.Join(t.TempDir(), "missing.html"))
	if len(rec.fatals) != 1 || !strings.Contains(rec.fatals[0], UpdateEnv) {
		t.Errorf("expected missing-file failure, got %v", rec.fatals)
	}
}
