package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"termdeck/internal/app"
	"termdeck/internal/state"
	"termdeck/internal/term"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	validateJSON = false
	statsJSON = false
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestValidateBundledDecks(t *testing.T) {
	out, err := execute(t, "validate", "../../../decks")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	for _, want := range []string{"ok", "welcome", "5/5 slides", "every 6s", "terminal", "3/3 slides", "every 8s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateReportsBrokenDeck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.yaml")
	if err := os.WriteFile(path, []byte("kind: deck\nschema_version: 9\ndeck_id: bad\ntitle: Bad\nslides:\n  - id: one\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "validate", "--json", dir)
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	var reports []DeckReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(reports) != 1 || !strings.Contains(reports[0].Error, "schema_version") {
		t.Fatalf("unexpected reports %+v", reports)
	}
}

func TestStatsOnEmptyHistory(t *testing.T) {
	out, err := execute(t, "stats", "--data-dir", t.TempDir())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "0 sessions") || !strings.Contains(out, "No decks presented yet.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestWriteStatsFormatsHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	writeStats(&buf,
		state.Summary{Sessions: 3, Transitions: 1234, Autoplays: 2, Viewing: 95 * time.Minute},
		[]state.DeckStats{{
			DeckID:       "talk",
			Sessions:     3,
			Transitions:  1234,
			Viewing:      95 * time.Minute,
			LastViewedTS: now.Add(-2 * time.Hour),
			LastPosition: 7,
		}},
		now,
	)
	out := buf.String()
	for _, want := range []string{"1,234 slide changes", "1h35m0s presented", "talk", "2 hours ago", "LAST SLIDE"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveDeckPath(t *testing.T) {
	ctx := context.Background()
	cfg := app.Config{DataDir: t.TempDir()}

	got, err := resolveDeckPath(ctx, cfg, "../../../decks/welcome", "")
	if err != nil || got != filepath.Join("../../../decks/welcome", "deck.yaml") {
		t.Fatalf("expected directory to resolve to deck.yaml, got %q err=%v", got, err)
	}
	got, err = resolveDeckPath(ctx, cfg, "welcome", "../../../decks")
	if err != nil || filepath.Base(filepath.Dir(got)) != "welcome" {
		t.Fatalf("expected id lookup, got %q err=%v", got, err)
	}
	if _, err := resolveDeckPath(ctx, cfg, "missing", "../../../decks"); err == nil {
		t.Fatalf("expected unknown id to fail")
	}
	if _, err := resolveDeckPath(ctx, cfg, "", ""); err == nil {
		t.Fatalf("expected error without a previous deck")
	}
}

func TestResolveDeckPathFallsBackToLastDeck(t *testing.T) {
	ctx := context.Background()
	cfg := app.Config{DataDir: t.TempDir()}
	store, err := state.NewSQLite(cfg.StatePath())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSettings(ctx, map[string]string{app.SettingLastDeck: "/decks/talk/deck.yaml"}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	got, err := resolveDeckPath(ctx, cfg, "", "")
	if err != nil || got != "/decks/talk/deck.yaml" {
		t.Fatalf("expected last deck, got %q err=%v", got, err)
	}
}

func TestDecksListsBundledDecks(t *testing.T) {
	out, err := execute(t, "decks", "../../../decks")
	if err != nil {
		t.Fatalf("decks: %v", err)
	}
	if !strings.Contains(out, "welcome") || !strings.Contains(out, "Welcome to termdeck") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRecordWritesCast(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "casts", "demo.ttyrec")
	out, err := execute(t, "record", path, "--quiet", "--cols", "40", "--rows", "5", "--", "sh", "-c", "printf 'recorded hi'")
	if err != nil {
		if info, statErr := os.Stat(path); statErr == nil && info.Size() == 0 {
			t.Skipf("pty unavailable: %v", err)
		}
		t.Fatalf("record: %v\n%s", err, out)
	}
	if !strings.Contains(out, "recorded") || !strings.Contains(out, "frames") {
		t.Fatalf("expected summary line, got:\n%s", out)
	}
	frames, err := term.ReadTTYRec(path)
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	var all strings.Builder
	for _, f := range frames {
		all.Write(f.Data)
	}
	if !strings.Contains(all.String(), "recorded hi") {
		t.Fatalf("unexpected recording %q", all.String())
	}
}
