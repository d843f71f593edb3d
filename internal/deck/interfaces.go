package deck

import "context"

type Loader interface {
	LoadDeck(ctx context.Context, path string) (Deck, error)
	LoadDecks(ctx context.Context, root string) ([]Deck, error)
	FindDeck(decks []Deck, deckID string) (Deck, error)
}
