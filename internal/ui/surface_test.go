package ui

import (
	"testing"
	"time"

	"termdeck/internal/slideshow"
)

type testPanel struct{ id string }

func (p *testPanel) DisplayLength() (time.Duration, bool) { return 0, false }

type testSource struct{ panels []slideshow.Panel }

func (s testSource) QueryAll(string, string) []slideshow.Panel { return s.panels }

func (s testSource) QueryFirst(string, string) (slideshow.Panel, bool) {
	if len(s.panels) == 0 {
		return nil, false
	}
	return s.panels[0], true
}

func threePanelViews() ([]slideshow.Panel, []PanelView) {
	panels := []slideshow.Panel{&testPanel{"a"}, &testPanel{"b"}, &testPanel{"c"}}
	views := make([]PanelView, len(panels))
	for i, p := range panels {
		id := p.(*testPanel).id
		views[i] = PanelView{Panel: p, ID: id, Title: "Slide " + id, BodyMD: "body " + id, Notes: "notes " + id}
	}
	return panels, views
}

func TestSurfaceMarkingIsExclusive(t *testing.T) {
	panels, views := threePanelViews()
	s := NewSurface()
	s.SetPanels(views)

	s.MarkCurrent(panels[0])
	s.MarkPast(panels[0])
	s.MarkCurrent(panels[1])

	snaps := s.Snapshot()
	if snaps[0].Current || !snaps[0].Past {
		t.Fatalf("expected first panel past only, got %+v", snaps[0])
	}
	if !snaps[1].Current || snaps[1].Past {
		t.Fatalf("expected second panel current only, got %+v", snaps[1])
	}
	cur, ok := s.Current()
	if !ok || cur.Position != 2 || cur.View.ID != "b" {
		t.Fatalf("unexpected current %+v", cur)
	}
}

func TestSurfaceMeasuresFrameChrome(t *testing.T) {
	panels, views := threePanelViews()
	s := NewSurface()
	s.SetPanels(views)

	if _, err := s.ContainerSize(); err == nil {
		t.Fatalf("expected error before the viewport is sized")
	}
	s.SetViewport(100, 25)
	size, err := s.ContainerSize()
	if err != nil || size.W != 100 || size.H != 25 {
		t.Fatalf("unexpected container %+v err=%v", size, err)
	}

	s.SetBoxSize(panels[0], slideshow.Size{W: 60, H: 0})
	got, err := s.RenderedSize(panels[0])
	if err != nil || got.H != panelChromeRows || got.W != 60 {
		t.Fatalf("expected chrome-only height, got %+v err=%v", got, err)
	}
	if _, err := s.RenderedSize(&testPanel{"x"}); err == nil {
		t.Fatalf("expected error for unknown panel")
	}
}

func TestSurfaceHostsController(t *testing.T) {
	panels, views := threePanelViews()
	s := NewSurface()
	s.SetPanels(views)
	s.SetViewport(120, 27)

	ctrl := slideshow.New(slideshow.Host{
		Panels:  testSource{panels: panels},
		Marker:  s,
		Measure: s,
		Style:   s,
	})
	cfg := slideshow.DefaultConfig()
	cfg.AutoStart = false
	cfg.PanelWidth = slideshow.Absolute(60)
	cfg.PanelHeight = slideshow.Absolute(20)
	cfg.Margin = 0
	cfg.MaxScale = 2
	if err := ctrl.Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	cur, ok := s.Current()
	if !ok || cur.Position != 1 {
		t.Fatalf("expected first panel current after initialize")
	}
	// min(120/60, 27/20) = 1.35
	if !cur.Scaled || cur.Transform.Scale < 1.349 || cur.Transform.Scale > 1.351 {
		t.Fatalf("unexpected transform %+v", cur.Transform)
	}
	if cur.Box.W != 60 || cur.Box.H != 20-panelChromeRows {
		t.Fatalf("unexpected content box %+v", cur.Box)
	}

	if err := ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	snaps := s.Snapshot()
	if snaps[0].Current || !snaps[1].Current {
		t.Fatalf("expected marking to follow the cursor")
	}
}

func TestSetPanelsKeepsStateForKnownPanels(t *testing.T) {
	panels, views := threePanelViews()
	s := NewSurface()
	s.SetPanels(views)
	s.MarkCurrent(panels[2])

	views[2].Title = "renamed"
	s.SetPanels(views)
	cur, ok := s.Current()
	if !ok || cur.View.Title != "renamed" {
		t.Fatalf("expected current marking to survive, got %+v", cur)
	}
}
