package watchlist

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write groups file: %v", err)
	}
	return path
}

func TestLoadGroupsYAML(t *testing.T) {
	path := writeFile(t, "groups.yaml", `
groups:
  - id: " 1234 "
    name: Book Club
    relay: true
    like_user_ids: ["42", " 42", "", "7"]
  - id: "5678"
`)

	w, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := len(w.All()); got != 2 {
		t.Fatalf("expected 2 groups, got %d", got)
	}

	g, ok := w.ByID("1234")
	if !ok {
		t.Fatalf("expected group 1234 to be loaded")
	}
	if len(g.LikeUserIDs) != 2 || g.LikeUserIDs[0] != "42" || g.LikeUserIDs[1] != "7" {
		t.Fatalf("unexpected like ids: %v", g.LikeUserIDs)
	}
	if relayed := w.Relayed(); len(relayed) != 1 || relayed[0].ID != "1234" {
		t.Fatalf("unexpected relayed groups: %+v", relayed)
	}
	if liked := w.Liked(); len(liked) != 1 {
		t.Fatalf("unexpected liked groups: %+v", liked)
	}
	if other, _ := w.ByID("5678"); other.Label() != "5678" {
		t.Fatalf("label should fall back to id, got %q", other.Label())
	}
}

func TestLoadGroupsJSON(t *testing.T) {
	path := writeFile(t, "groups.json", `{"groups":[{"id":"1","name":"one","relay":false}]}`)

	w, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if g, _ := w.ByID("1"); g.Name != "one" {
		t.Fatalf("unexpected group %+v", g)
	}
}

func TestLoadGroupsRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate": "groups:\n  - id: a\n  - id: a\n",
		"missing":   "groups:\n  - name: nameless\n",
		"slash":     "groups:\n  - id: a/b\n",
		"empty":     "groups: []\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "groups.yaml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Load(writeFile(t, "groups.toml", "x = 1")); err == nil {
		t.Fatalf("expected unknown extension error")
	}
}

func TestSelectKeepsRequestedOrder(t *testing.T) {
	w, err := Parse([]byte("groups:\n  - id: a\n  - id: b\n  - id: c\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := w.Select([]string{"c", "a"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("unexpected selection %+v", got)
	}
	if _, err := w.Select([]string{"zz"}); err == nil {
		t.Fatalf("expected unknown id error")
	}
}
