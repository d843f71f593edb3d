package app

import (
	"context"
	"time"

	"termdeck/internal/deck"
	"termdeck/internal/state"
)

type DeckLoader interface {
	LoadDeck(ctx context.Context, path string) (deck.Deck, error)
}

// Store is the part of the state store the presenter writes to.
type Store interface {
	StartSession(ctx context.Context, session state.Session) error
	RecordTransition(ctx context.Context, tr state.Transition) error
	EndSession(ctx context.Context, sessionID string, end time.Time) error
	SaveLastPosition(ctx context.Context, deckID string, position int, at time.Time) error
	LastPosition(ctx context.Context, deckID string) (int, bool, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	Close() error
}
