package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagebuilder/internal/dbclient"
	"pagebuilder/internal/domain"
)

func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	base := []string{"--data-dir", dataDir, "--autosave", "off", "--secrets", "memory", "-o", "json"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func mustRun[T any](t *testing.T, dataDir string, args ...string) T {
	t.Helper()
	out, err := runCLI(t, dataDir, args...)
	if err != nil {
		t.Fatalf("pagebuilder %v: %v\n%s", args, err, out)
	}
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output of %v: %v\n%s", args, err, out)
	}
	return v
}

// setup creates a project and a page that becomes the current page.
func setup(t *testing.T, dataDir string, extra ...string) (domain.Project, domain.Page) {
	t.Helper()
	proj := mustRun[domain.Project](t, dataDir, append(extra, "project", "create", "--name", "Shop")...)
	page := mustRun[domain.Page](t, dataDir, append(extra, "page", "create", "--project", proj.ID, "--title", "Home")...)
	return proj, page
}

func TestEditAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	_, page := setup(t, dir)
	if !page.IsHomepage || page.Slug != "home" {
		t.Errorf("first page = %+v", page)
	}

	sec := mustRun[editOutput](t, dir, "edit", "add", "Section").Results[0].ComponentID
	h := mustRun[editOutput](t, dir, "edit", "add", "Heading", "--parent", sec, "--index", "0").Results[0].ComponentID
	out := mustRun[editOutput](t, dir, "edit", "text", h, "Welcome")
	if !out.Saved || out.RevisionID == "" || out.PageID != page.ID {
		t.Errorf("edit output = %+v", out)
	}

	shown := mustRun[domain.Page](t, dir, "page", "show")
	content := shown.LayoutData.Content
	if len(content) != 1 || len(content[0].Children) != 1 || content[0].Children[0].Props["text"] != "Welcome" {
		t.Fatalf("stored tree = %+v", content)
	}

	revs := mustRun[[]domain.Revision](t, dir, "revisions")
	if len(revs) != 3 {
		t.Errorf("revisions = %d, want one per saved edit", len(revs))
	}

	// The clipboard and the selection survive between commands.
	mustRun[editOutput](t, dir, "edit", "copy", h)
	pasted := mustRun[editOutput](t, dir, "edit", "paste")
	children := pasted.Tree[0].Children
	if len(children) != 2 || children[1].ID != pasted.Results[0].ComponentID || children[1].ID == h {
		t.Errorf("paste should land after the selected heading inside the section, got %+v", children)
	}
	if children[1].Props["text"] != "Welcome" {
		t.Errorf("pasted props = %v", children[1].Props)
	}

	first := revs[0].ID
	mustRun[domain.Revision](t, dir, "revisions", "restore", first)
	if n := len(mustRun[domain.Page](t, dir, "page", "show").LayoutData.Content[0].Children); n != 0 {
		t.Errorf("restoring the first revision should leave an empty section, got %d children", n)
	}
}

const landingScript = `ops:
  - op: add
    type: Row
    as: row
  - op: add
    type: Column
    parent: $row
    as: left
  - op: add
    type: Button
    parent: $left
    props:
      href: /buy
    as: buy
  - op: style
    id: $buy
    property: color
    value: red
  - op: undo
`

func TestEditScript(t *testing.T) {
	dir := t.TempDir()
	setup(t, dir)
	script := filepath.Join(t.TempDir(), "landing.yaml")
	if err := os.WriteFile(script, []byte(landingScript), 0644); err != nil {
		t.Fatal(err)
	}

	dry := mustRun[editOutput](t, dir, "edit", "--script", script, "--dry-run")
	if dry.Saved || len(dry.Results) != 5 {
		t.Fatalf("dry run = %+v", dry)
	}
	if n := len(mustRun[domain.Page](t, dir, "page", "show").LayoutData.Content); n != 0 {
		t.Fatalf("dry run saved %d components", n)
	}

	out := mustRun[editOutput](t, dir, "edit", "--script", script)
	if !out.Saved {
		t.Fatal("script run should save")
	}
	btn := out.Tree[0].Children[0].Children[0]
	if btn.Type != domain.ComponentButton || btn.Props["href"] != "/buy" {
		t.Errorf("button = %+v", btn)
	}
	if btn.Styles != nil && btn.Styles.Base["color"] != "" {
		t.Error("undo in the script should drop the style change")
	}
}

func TestEditScript_BadReference(t *testing.T) {
	dir := t.TempDir()
	setup(t, dir)
	script := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(script, []byte("ops:\n  - op: text\n    id: $nope\n    text: hi\n"), 0644)

	if _, err := runCLI(t, dir, "edit", "--script", script); err == nil || !strings.Contains(err.Error(), "$nope") {
		t.Errorf("err = %v, want unknown reference", err)
	}
}

func TestEditErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCLI(t, dir, "edit", "add", "Text"); err == nil {
		t.Error("expected error without a current page")
	}

	setup(t, dir)
	txt := mustRun[editOutput](t, dir, "edit", "add", "Text").Results[0].ComponentID
	for _, args := range [][]string{
		{"edit", "add", "Marquee"},
		{"edit", "add", "Text", "--parent", txt},
		{"edit", "move", txt, "--parent", txt},
		{"edit", "remove", "missing"},
		{"edit", "props", txt, "novalue"},
	} {
		if _, err := runCLI(t, dir, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestFileStoreExport(t *testing.T) {
	dir := t.TempDir()
	_, page := setup(t, dir, "--store", "file")
	mustRun[editOutput](t, dir, "--store", "file", "edit", "add", "Image")

	stored, err := os.ReadFile(filepath.Join(dir, "pages", page.ID+".json"))
	if err != nil {
		t.Fatalf("page file: %v", err)
	}
	if !strings.Contains(string(stored), `"Image"`) {
		t.Errorf("page file = %s", stored)
	}

	exported := filepath.Join(t.TempDir(), "tree.json")
	if _, err := runCLI(t, dir, "--store", "file", "page", "export", "--out", exported); err != nil {
		t.Fatal(err)
	}
	var tr domain.Tree
	data, _ := os.ReadFile(exported)
	if err := json.Unmarshal(data, &tr); err != nil || len(tr) != 1 || tr[0].Type != domain.ComponentImage {
		t.Fatalf("exported tree = %s (%v)", data, err)
	}

	// Importing into a second page gives it the same tree.
	proj := page.ProjectID
	other := mustRun[domain.Page](t, dir, "--store", "file", "page", "create", "--project", proj, "--title", "About")
	if _, err := runCLI(t, dir, "--store", "file", "page", "import", exported, "--page", other.ID); err != nil {
		t.Fatal(err)
	}
	got := mustRun[domain.Page](t, dir, "--store", "file", "page", "show", "--page", other.ID)
	if len(got.LayoutData.Content) != 1 || got.LayoutData.Content[0].ID != tr[0].ID {
		t.Errorf("imported tree = %+v", got.LayoutData.Content)
	}
}

func TestYAMLOutput(t *testing.T) {
	dir := t.TempDir()
	setup(t, dir)
	out, err := runCLI(t, dir, "project", "list", "-o", "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "subdomain: shop") || !strings.Contains(out, "name: Shop") {
		t.Errorf("yaml output = %s", out)
	}
	if _, err := runCLI(t, dir, "project", "list", "-o", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTextOutput(t *testing.T) {
	dir := t.TempDir()
	setup(t, dir)
	mustRun[editOutput](t, dir, "edit", "add", "Heading")

	out, err := runCLI(t, dir, "page", "show", "-o", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `Heading`) || !strings.Contains(out, `"Heading"`) || !strings.Contains(out, "*") {
		t.Errorf("text output = %s", out)
	}
}

func seedProducts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := db.Exec(`INSERT INTO products (name) VALUES (?)`, fmt.Sprintf("p%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestDBBind(t *testing.T) {
	dir := t.TempDir()
	proj, _ := setup(t, dir)
	shop := seedProducts(t)

	conn := mustRun[domain.DatabaseConnection](t, dir, "db", "add", "--project", proj.ID, "--name", "shop", "--driver", "sqlite", "--host", shop)
	schema := mustRun[dbclient.SchemaInfo](t, dir, "db", "introspect", conn.ID)
	if len(schema.Tables) != 1 || schema.Tables[0].Name != "products" {
		t.Fatalf("schema = %+v", schema)
	}

	table := mustRun[editOutput](t, dir, "edit", "add", "DataTable").Results[0].ComponentID
	p := mustRun[dbclient.Preview](t, dir, "db", "bind", table, "--conn", conn.ID, "--table", "products", "--limit", "2")
	if len(p.Rows) != 2 || !p.Truncated {
		t.Errorf("preview = %+v", p)
	}

	node := mustRun[domain.Page](t, dir, "page", "show").LayoutData.Content[0]
	b, ok := node.Props["binding"].(map[string]any)
	if !ok || b["connectionId"] != conn.ID || b["table"] != "products" {
		t.Errorf("stored binding = %v", node.Props["binding"])
	}

	if _, err := runCLI(t, dir, "db", "add", "--project", proj.ID, "--name", "x", "--driver", "oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"href=/buy", "level=3", "disabled=true", `meta={"a":1}`, `label="quoted"`})
	if err != nil {
		t.Fatal(err)
	}
	if got["href"] != "/buy" || got["level"] != float64(3) || got["disabled"] != true || got["label"] != "quoted" {
		t.Errorf("patch = %#v", got)
	}
	if m, ok := got["meta"].(map[string]any); !ok || m["a"] != float64(1) {
		t.Errorf("meta = %#v", got["meta"])
	}
	if _, err := parseAssignments([]string{"=x"}); err == nil {
		t.Error("expected error for empty key")
	}
}
