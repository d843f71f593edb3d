package deck

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"termdeck/internal/slideshow"
)

func TestBuiltinWelcomeDeckLoads(t *testing.T) {
	loader := NewLoader()
	decks, err := loader.LoadDecks(context.Background(), filepath.Join("..", "..", "decks"))
	if err != nil {
		t.Fatalf("load decks: %v", err)
	}
	d, err := loader.FindDeck(decks, "welcome")
	if err != nil {
		t.Fatalf("find welcome: %v", err)
	}
	if len(d.Slides) != 5 {
		t.Fatalf("expected 5 slides, got %d", len(d.Slides))
	}
	if d.Slides[1].BodyMD == "" {
		t.Fatalf("expected body_file to be read")
	}
	if d.Slides[3].Media == nil || d.Slides[3].Media.Art == "" {
		t.Fatalf("expected media art_file to be read")
	}
	if _, ok := d.Slides[3].MediaSize(); !ok {
		t.Fatalf("expected measured media size")
	}
	if dl, ok := d.Slides[1].DisplayLength(); !ok || dl != 9*time.Second {
		t.Fatalf("expected 9s override, got %v %v", dl, ok)
	}
}

func writeDeck(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "deck.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const threeSlides = `kind: deck
schema_version: 1
deck_id: talk
title: Talk
slides:
  - title: One
    body_md: first
  - id: two
    title: Two
    class: [slide, appendix]
  - title: Three
    class: [appendix]
`

func TestQueryFollowsDocumentOrderAndSelectors(t *testing.T) {
	path := writeDeck(t, t.TempDir(), threeSlides)
	d, err := NewLoader().LoadDeck(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	all := d.QueryAll("#talk", ".slide")
	if len(all) != 2 {
		t.Fatalf("expected 2 .slide panels, got %d", len(all))
	}
	if all[0].(*Slide).ID != "slide-1" || all[1].(*Slide).ID != "two" {
		t.Fatalf("unexpected order: %s, %s", all[0].(*Slide).ID, all[1].(*Slide).ID)
	}
	if got := d.QueryAll("#talk", ".appendix"); len(got) != 2 {
		t.Fatalf("expected 2 appendix panels, got %d", len(got))
	}
	if got := d.QueryAll("#talk", "#two, .appendix"); len(got) != 2 {
		t.Fatalf("expected union without duplicates, got %d", len(got))
	}
	if got := d.QueryAll("#other", "*"); got != nil {
		t.Fatalf("expected no panels for foreign container")
	}
	first, ok := d.QueryFirst("#talk", ".appendix")
	if !ok || first.(*Slide).ID != "two" {
		t.Fatalf("expected first appendix to be slide two")
	}
	if _, ok := d.QueryFirst("#talk", ".missing"); ok {
		t.Fatalf("expected no match")
	}
}

func TestLoadDeckRejectsEscapingBodyFile(t *testing.T) {
	body := `kind: deck
schema_version: 1
deck_id: talk
title: Talk
slides:
  - title: One
    body_file: ../secret.md
`
	path := writeDeck(t, t.TempDir(), body)
	if _, err := NewLoader().LoadDeck(context.Background(), path); err == nil {
		t.Fatalf("expected escaping body_file to be rejected")
	}
}

func TestSettingsApplyOverlaysConfig(t *testing.T) {
	body := `kind: deck
schema_version: 1
deck_id: talk
title: Talk
settings:
  display_length_ms: 1500
  auto_start: false
  panel_width: 80%
  panel_height: 24
  margin: 0
  boundary: wrap
  margin_mode: legacy
slides:
  - title: One
`
	path := writeDeck(t, t.TempDir(), body)
	d, err := NewLoader().LoadDeck(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := d.Settings.Apply(slideshow.DefaultConfig())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.DisplayLength != 1500*time.Millisecond {
		t.Fatalf("unexpected display length %s", cfg.DisplayLength)
	}
	if cfg.AutoStart {
		t.Fatalf("expected auto start disabled")
	}
	if !cfg.PanelWidth.Percent || cfg.PanelWidth.Value != 80 {
		t.Fatalf("unexpected panel width %+v", cfg.PanelWidth)
	}
	if cfg.PanelHeight.Percent || cfg.PanelHeight.Value != 24 {
		t.Fatalf("unexpected panel height %+v", cfg.PanelHeight)
	}
	if cfg.Margin != 0 {
		t.Fatalf("expected explicit zero margin to apply")
	}
	if cfg.Boundary != slideshow.BoundaryWrap || cfg.MarginMode != slideshow.MarginLegacy {
		t.Fatalf("unexpected policies %q %q", cfg.Boundary, cfg.MarginMode)
	}
	if cfg.MaxScale != slideshow.DefaultConfig().MaxScale {
		t.Fatalf("expected unset max scale to keep default")
	}
}

func TestDeckDrivesController(t *testing.T) {
	path := writeDeck(t, t.TempDir(), threeSlides)
	d, err := NewLoader().LoadDeck(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctrl := slideshow.New(slideshow.Host{Panels: d})
	cfg := slideshow.DefaultConfig()
	cfg.AutoStart = false
	cfg.ContainerSelector = d.Selector()
	cfg.PanelSelector = "*"
	if err := ctrl.Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if ctrl.Len() != 3 {
		t.Fatalf("expected 3 panels, got %d", ctrl.Len())
	}
	_ = ctrl.Next()
	p, ok := ctrl.Panel(ctrl.Cursor().Current)
	if !ok || p.(*Slide).ID != "two" {
		t.Fatalf("expected to land on slide two")
	}
}

func TestBuiltinTerminalDeckDecodesCast(t *testing.T) {
	d, err := NewLoader().LoadDeck(context.Background(), filepath.Join("..", "..", "decks", "terminal", "deck.yaml"))
	if err != nil {
		t.Fatalf("load terminal deck: %v", err)
	}
	replay := d.Slides[1].Media
	if !replay.Terminal() || len(replay.Frames) != 8 || !replay.Loop {
		t.Fatalf("expected looping 8-frame cast, got %+v", replay)
	}
	if replay.Frames[1].After != 600*time.Millisecond {
		t.Fatalf("unexpected second frame delay %v", replay.Frames[1].After)
	}
	live := d.Slides[2].Media
	if !live.Terminal() || live.Exec[0] != "sh" || len(live.Frames) != 0 {
		t.Fatalf("unexpected exec media %+v", live)
	}
	if size, ok := d.Slides[2].MediaSize(); !ok || size.W != 68 || size.H != 14 {
		t.Fatalf("unexpected exec media size %+v %v", size, ok)
	}
}

func TestLoadDeckRejectsBrokenCast(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.ttyrec"), []byte("not a recording"), 0o644); err != nil {
		t.Fatal(err)
	}
	body := `kind: deck
schema_version: 1
deck_id: talk
title: Talk
slides:
  - title: Demo
    media:
      cast: bad.ttyrec
`
	path := writeDeck(t, dir, body)
	if _, err := NewLoader().LoadDeck(context.Background(), path); err == nil {
		t.Fatalf("expected undecodable cast to be rejected")
	}
}
