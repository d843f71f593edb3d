package deck

import (
	"strings"

	"termdeck/internal/slideshow"
)

// QueryAll implements slideshow.PanelSource. The container matches "#<deck_id>"
// or "*"; the selector is a comma separated list of "*", ".class" and "#id",
// and results keep document order.
func (d Deck) QueryAll(container, selector string) []slideshow.Panel {
	if !d.matchesContainer(container) {
		return nil
	}
	parts := splitSelector(selector)
	out := make([]slideshow.Panel, 0, len(d.Slides))
	for _, s := range d.Slides {
		if matchesAny(s, parts) {
			out = append(out, s)
		}
	}
	return out
}

func (d Deck) QueryFirst(container, selector string) (slideshow.Panel, bool) {
	if !d.matchesContainer(container) {
		return nil, false
	}
	parts := splitSelector(selector)
	for _, s := range d.Slides {
		if matchesAny(s, parts) {
			return s, true
		}
	}
	return nil, false
}

// Selector is the container selector naming this deck.
func (d Deck) Selector() string { return "#" + d.DeckID }

func (d Deck) matchesContainer(container string) bool {
	c := strings.TrimSpace(container)
	return c == "" || c == "*" || c == d.Selector()
}

func splitSelector(selector string) []string {
	raw := strings.Split(selector, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchesAny(s *Slide, parts []string) bool {
	for _, p := range parts {
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if s.HasClass(p[1:]) {
				return true
			}
		case strings.HasPrefix(p, "#"):
			if s.ID == p[1:] {
				return true
			}
		}
	}
	return false
}

var _ slideshow.PanelSource = Deck{}
