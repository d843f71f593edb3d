package devtools

import (
	"context"
	"encoding/json"
	"os"
	"testing"
)

func TestUpdateBumpsSequence(t *testing.T) {
	m := NewManager(t.TempDir())
	first := m.Update(func(s *Snapshot) { s.Position = 1; s.Total = 3 })
	second := m.Update(func(s *Snapshot) { s.Position = 2 })
	if second.Seq != first.Seq+1 {
		t.Fatalf("expected seq to advance, got %d then %d", first.Seq, second.Seq)
	}
	if got := m.Snapshot(); got.Position != 2 || got.Total != 3 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestPersistWritesJSON(t *testing.T) {
	m := NewManager(t.TempDir())
	m.Update(func(s *Snapshot) {
		s.DeckID = "talk"
		s.Position = 4
		s.Running = true
	})
	if err := m.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	b, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DeckID != "talk" || got.Position != 4 || !got.Running {
		t.Fatalf("unexpected persisted state %+v", got)
	}
}

func TestPersistHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewManager(t.TempDir()).Persist(ctx); err == nil {
		t.Fatalf("expected canceled context to abort persist")
	}
}
