package app

import (
	"sync"
	"time"

	"termdeck/internal/deck"
	"termdeck/internal/slideshow"
	"termdeck/internal/ui"
)

// Settings keys written to the state store.
const (
	SettingLastDeck    = "last_deck"
	SettingLastSession = "last_session"
)

// Nominal slide size in terminal cells, used when a deck does not set one.
const (
	defaultPanelCols = 72
	defaultPanelRows = 20
)

// deckSource serves panels from whichever deck is currently loaded, so a
// reload can swap the deck under a live controller.
type deckSource struct {
	mu sync.RWMutex
	d  deck.Deck
}

func (s *deckSource) Set(d deck.Deck) {
	s.mu.Lock()
	s.d = d
	s.mu.Unlock()
}

func (s *deckSource) Deck() deck.Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d
}

func (s *deckSource) QueryAll(container, selector string) []slideshow.Panel {
	return s.Deck().QueryAll(container, selector)
}

func (s *deckSource) QueryFirst(container, selector string) (slideshow.Panel, bool) {
	return s.Deck().QueryFirst(container, selector)
}

// deckView describes the panels the controller will walk, in deck order.
// Terminal slides draw from their pane in media.
func deckView(d deck.Deck, panels []slideshow.Panel, media *mediaPanes) ui.DeckView {
	out := ui.DeckView{DeckID: d.DeckID, Title: d.Title, Author: d.Author}
	for _, p := range panels {
		s, ok := p.(*deck.Slide)
		if !ok {
			continue
		}
		pv := ui.PanelView{
			Panel:  s,
			ID:     s.ID,
			Title:  s.Title,
			BodyMD: s.BodyMD,
			Notes:  s.Notes,
		}
		if s.Media != nil {
			pv.Art = s.Media.Art
			pv.Caption = s.Media.Caption
		}
		if s.Media.Terminal() {
			if pane, ok := media.Pane(s); ok {
				pv.Terminal = pane
				pv.Interactive = len(s.Media.Exec) > 0
			} else if len(s.Media.Exec) > 0 && pv.BodyMD == "" {
				pv.BodyMD = execPlaceholder(s)
			}
		}
		out.Panels = append(out.Panels, pv)
	}
	return out
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
