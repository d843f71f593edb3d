package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := openStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestSessionHistoryAggregates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

	if err := store.StartSession(ctx, Session{ID: "s1", DeckID: "welcome", Slides: 5, StartTS: start}); err != nil {
		t.Fatalf("start session: %v", err)
	}
	events := []Transition{
		{SessionID: "s1", Kind: TransitionStarted, To: 1, TS: start},
		{SessionID: "s1", Kind: TransitionChanged, From: 1, To: 2, TS: start.Add(3 * time.Second)},
		{SessionID: "s1", Kind: TransitionChanged, From: 2, To: 3, TS: start.Add(6 * time.Second)},
		{SessionID: "s1", Kind: TransitionStopped, To: 3, TS: start.Add(7 * time.Second)},
	}
	for _, tr := range events {
		if err := store.RecordTransition(ctx, tr); err != nil {
			t.Fatalf("record %s: %v", tr.Kind, err)
		}
	}
	if err := store.EndSession(ctx, "s1", start.Add(90*time.Second)); err != nil {
		t.Fatalf("end session: %v", err)
	}
	// A second end must not move the recorded end time.
	if err := store.EndSession(ctx, "s1", start.Add(time.Hour)); err != nil {
		t.Fatalf("end session again: %v", err)
	}

	later := start.Add(24 * time.Hour)
	if err := store.StartSession(ctx, Session{ID: "s2", DeckID: "talk", StartTS: later}); err != nil {
		t.Fatalf("start second session: %v", err)
	}

	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Sessions != 2 || sum.Transitions != 2 || sum.Autoplays != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Viewing != 90*time.Second {
		t.Fatalf("expected 90s viewing, got %s", sum.Viewing)
	}

	stats, err := store.GetDeckStats(ctx)
	if err != nil {
		t.Fatalf("deck stats: %v", err)
	}
	if len(stats) != 2 || stats[0].DeckID != "talk" || stats[1].DeckID != "welcome" {
		t.Fatalf("expected most recent deck first, got %+v", stats)
	}
	if stats[1].Transitions != 2 || stats[1].Viewing != 90*time.Second {
		t.Fatalf("unexpected welcome stats %+v", stats[1])
	}
}

func TestLastPositionUpsert(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, ok, err := store.LastPosition(ctx, "welcome"); err != nil || ok {
		t.Fatalf("expected no position yet, ok=%v err=%v", ok, err)
	}
	now := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	if err := store.SaveLastPosition(ctx, "welcome", 2, now); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveLastPosition(ctx, "welcome", 4, now.Add(time.Minute)); err != nil {
		t.Fatalf("save again: %v", err)
	}
	// NoPosition is ignored.
	if err := store.SaveLastPosition(ctx, "welcome", 0, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("save zero: %v", err)
	}
	pos, ok, err := store.LastPosition(ctx, "welcome")
	if err != nil || !ok || pos != 4 {
		t.Fatalf("expected position 4, got %d ok=%v err=%v", pos, ok, err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.SaveSettings(ctx, map[string]string{"boundary": "wrap", " ": "skipped"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if err := store.SaveSettings(ctx, map[string]string{"boundary": "clamp"}); err != nil {
		t.Fatalf("overwrite settings: %v", err)
	}
	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if len(got) != 1 || got["boundary"] != "clamp" {
		t.Fatalf("unexpected settings %v", got)
	}
}

func TestStartSessionRequiresID(t *testing.T) {
	store := openStore(t)
	if err := store.StartSession(context.Background(), Session{DeckID: "welcome"}); err == nil {
		t.Fatalf("expected missing id error")
	}
}
