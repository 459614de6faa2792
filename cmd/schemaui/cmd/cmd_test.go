package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-drift/schemaui/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, renderOut, renderTarget, renderWatch = "", "", "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRender(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"app.yaml": `
tag: main
styles:
  color: red
children:
  - path: parts/title.yaml
    args:
      text: hi
  - tag: p
    state:
      name: ada
    text: "Hello {{name}}!"
`,
		"parts/title.yaml": `
tag: h1
text: Title
`,
	})

	out, err := execute(t, "render", filepath.Join(dir, "app.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<h1>Title</h1>", "<p>Hello ada!</p>", "color: red", `<main class="s-`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestRenderToFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"app.yaml": "tag: div\ntext: x\n"})
	outFile := filepath.Join(dir, "out.html")

	out, err := execute(t, "render", filepath.Join(dir, "app.yaml"), "--out", outFile)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("expected nothing on stdout, got %q", out)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<div>x</div>") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestRenderMissingModule(t *testing.T) {
	dir := writeFiles(t, map[string]string{"app.yaml": "tag: div\nchildren:\n  - path: nope.yaml\n"})

	_, err := execute(t, "render", filepath.Join(dir, "app.yaml"))
	if !errors.Is(err, errors.ErrModuleNotFound) {
		t.Errorf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestRenderUsesConfig(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"schemaui.yaml": "loader:\n  prefix: /ui/\n",
		"app.yaml":      "tag: div\nchildren:\n  - path: /ui/b.yaml\n",
		"b.yaml":        "tag: b\ntext: bold\n",
	})

	out, err := execute(t, "render", filepath.Join(dir, "app.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<b>bold</b>") {
		t.Errorf("output missing module b:\n%s", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("runtime:\n  batch_size: -1\n"), 0o644)
	if _, err := execute(t, "render", filepath.Join(dir, "app.yaml"), "--config", bad); err == nil {
		t.Error("expected config error")
	}
}

func TestRoute(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"routes.yaml": `
routes:
  - pattern: /users/:id
    path: ./user.yaml
  - pattern: /**
    path: ./home.yaml
`,
		"user.yaml": "tag: article\ntext: user\n",
		"home.yaml": "tag: section\ntext: home\n",
	})
	routes := filepath.Join(dir, "routes.yaml")

	out, err := execute(t, "route", routes, "/users/42")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<article>user</article>") {
		t.Errorf("expected user page:\n%s", out)
	}

	out, err = execute(t, "route", routes, "/anything/else")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<section>home</section>") {
		t.Errorf("expected fallback page:\n%s", out)
	}
}

func TestRouteNotFound(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"routes.yaml": "routes:\n  - pattern: /a\n    path: ./a.yaml\n",
	})

	_, err := execute(t, "route", filepath.Join(dir, "routes.yaml"), "/b")
	if !errors.Is(err, errors.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"good.yaml": "tag: div\nchildren:\n  - hi\n",
		"bad.yaml":  "tag: p\ntext: x\nchildren:\n  - y\n",
	})

	out, err := execute(t, "validate", filepath.Join(dir, "good.yaml"))
	if err != nil {
		t.Fatalf("expected good.yaml to validate: %v\n%s", err, out)
	}

	out, err = execute(t, "validate", filepath.Join(dir, "good.yaml"), filepath.Join(dir, "bad.yaml"))
	if err == nil {
		t.Fatal("expected bad.yaml to fail")
	}
	if !strings.Contains(out, crossMark) || !strings.Contains(out, checkMark) {
		t.Errorf("expected one pass and one failure:\n%s", out)
	}
}
