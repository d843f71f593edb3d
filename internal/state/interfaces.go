package state

import (
	"context"
	"time"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	StartSession(ctx context.Context, session Session) error
	RecordTransition(ctx context.Context, tr Transition) error
	EndSession(ctx context.Context, sessionID string, end time.Time) error
	SaveLastPosition(ctx context.Context, deckID string, position int, at time.Time) error
	LastPosition(ctx context.Context, deckID string) (int, bool, error)
	GetSummary(ctx context.Context) (Summary, error)
	GetDeckStats(ctx context.Context) ([]DeckStats, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	Close() error
}

type Session struct {
	ID       string
	DeckID   string
	DeckPath string
	Slides   int
	StartTS  time.Time
}

type TransitionKind string

const (
	TransitionChanged TransitionKind = "changed"
	TransitionStarted TransitionKind = "started"
	TransitionStopped TransitionKind = "stopped"
)

// Transition is one slideshow event as seen by a session. From and To are
// 1-based positions; From is 0 for start/stop events.
type Transition struct {
	SessionID string
	Kind      TransitionKind
	From      int
	To        int
	TS        time.Time
}

type Summary struct {
	Sessions    int
	Transitions int
	Autoplays   int
	Viewing     time.Duration
}

type DeckStats struct {
	DeckID       string
	Sessions     int
	Transitions  int
	Viewing      time.Duration
	LastViewedTS time.Time
	LastPosition int
}
