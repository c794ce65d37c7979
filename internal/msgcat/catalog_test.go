package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("game_ended.resignation", map[string]string{"Winner": "Bob", "Loser": "Alice"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Alice resigned. Bob wins" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestRenderMissingDataErrors(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("notice.opponent_joined", map[string]string{}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if got := c.Text("notice.opponent_joined", map[string]string{}, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  not_your_turn: \"Wait for your opponent\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("errors.not_your_turn", nil, ""); got != "Wait for your opponent" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("errors.not_in_game", nil, ""); got != "Not in a game" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	body := []byte("errors:\n  not_found: \"x\"\n")
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("errors:\n  code: 3\n")); err == nil {
		t.Fatalf("expected error for int leaf")
	}
}
