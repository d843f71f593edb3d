package deck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"termdeck/internal/term"

	"gopkg.in/yaml.v3"
)

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// LoadDeck reads a deck file, resolves file references relative to it and
// applies slide defaults.
func (l *FSLoader) LoadDeck(ctx context.Context, path string) (Deck, error) {
	d, err := readDeck(path)
	if err != nil {
		return d, err
	}
	d.Path = path
	if err := hydrateDeck(ctx, &d, filepath.Dir(path)); err != nil {
		return d, err
	}
	return d, nil
}

// LoadDecks scans root for deck files: either <root>/<name>/deck.yaml or
// <root>/*.deck.yaml.
func (l *FSLoader) LoadDecks(ctx context.Context, root string) ([]Deck, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	decks := make([]Deck, 0)
	for _, entry := range entries {
		var path string
		switch {
		case entry.IsDir():
			path = filepath.Join(root, entry.Name(), "deck.yaml")
			if _, err := os.Stat(path); err != nil {
				continue
			}
		case strings.HasSuffix(entry.Name(), ".deck.yaml"):
			path = filepath.Join(root, entry.Name())
		default:
			continue
		}
		d, err := l.LoadDeck(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load deck %s: %w", path, err)
		}
		decks = append(decks, d)
	}

	sort.Slice(decks, func(i, j int) bool { return decks[i].DeckID < decks[j].DeckID })
	return decks, nil
}

func (l *FSLoader) FindDeck(decks []Deck, deckID string) (Deck, error) {
	for _, d := range decks {
		if d.DeckID == deckID {
			return d, nil
		}
	}
	return Deck{}, fmt.Errorf("deck %s not found", deckID)
}

func readDeck(path string) (Deck, error) {
	var d Deck
	b, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return d, fmt.Errorf("validate %s: %w", path, err)
	}
	return d, nil
}

func hydrateDeck(ctx context.Context, d *Deck, dir string) error {
	for i, s := range d.Slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Position = i + 1
		if s.BodyFile != "" {
			b, err := readRelative(dir, s.BodyFile)
			if err != nil {
				return fmt.Errorf("slide %d body_file: %w", s.Position, err)
			}
			s.BodyMD = b
		}
		if s.Media != nil && s.Media.ArtFile != "" {
			b, err := readRelative(dir, s.Media.ArtFile)
			if err != nil {
				return fmt.Errorf("slide %d media.art_file: %w", s.Position, err)
			}
			s.Media.Art = b
		}
		if s.Media != nil && s.Media.Cast != "" {
			b, err := readRelative(dir, s.Media.Cast)
			if err != nil {
				return fmt.Errorf("slide %d media.cast: %w", s.Position, err)
			}
			frames, err := term.DecodeTTYRec([]byte(b))
			if err != nil {
				return fmt.Errorf("slide %d media.cast: %w", s.Position, err)
			}
			s.Media.Frames = frames
		}
		applySlideDefaults(s)
	}
	return nil
}

func readRelative(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("path %q must be relative to the deck file", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the deck directory", name)
	}
	b, err := os.ReadFile(filepath.Join(dir, clean))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func applySlideDefaults(s *Slide) {
	if len(s.Class) == 0 {
		s.Class = []string{DefaultSlideClass}
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("slide-%d", s.Position)
	}
}
