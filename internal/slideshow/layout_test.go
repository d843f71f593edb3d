package slideshow

import (
	"errors"
	"math"
	"testing"
)

type fakeSurface struct {
	container    Size
	containerErr error
	chrome       map[Panel]float64
	measureErr   map[Panel]error
	zoom         bool

	boxes      map[Panel]Size
	transforms map[Panel]Transform
	cleared    map[Panel]int
}

func newFakeSurface(container Size) *fakeSurface {
	return &fakeSurface{
		container:  container,
		chrome:     map[Panel]float64{},
		measureErr: map[Panel]error{},
		boxes:      map[Panel]Size{},
		transforms: map[Panel]Transform{},
		cleared:    map[Panel]int{},
	}
}

func (s *fakeSurface) ContainerSize() (Size, error) { return s.container, s.containerErr }

func (s *fakeSurface) RenderedSize(p Panel) (Size, error) {
	if err := s.measureErr[p]; err != nil {
		return Size{}, err
	}
	box := s.boxes[p]
	return Size{W: box.W, H: box.H + s.chrome[p]}, nil
}

func (s *fakeSurface) SetBoxSize(p Panel, box Size)        { s.boxes[p] = box }
func (s *fakeSurface) ApplyTransform(p Panel, t Transform) { s.transforms[p] = t }
func (s *fakeSurface) ClearTransform(p Panel) {
	delete(s.transforms, p)
	s.cleared[p]++
}
func (s *fakeSurface) SupportsZoom() bool { return s.zoom }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestScaleToFitWithinBounds(t *testing.T) {
	got := ScaleToFit(Size{W: 800, H: 600}, Size{W: 960, H: 700}, 0.2, 1.5)
	if !approx(got, 0.8333) {
		t.Fatalf("expected ~0.833, got %.4f", got)
	}
}

func TestScaleToFitClampsToMax(t *testing.T) {
	got := ScaleToFit(Size{W: 2000, H: 2000}, Size{W: 960, H: 700}, 0.2, 1.5)
	if got != 1.5 {
		t.Fatalf("expected clamp to 1.5, got %.4f", got)
	}
}

func TestScaleToFitClampsToMin(t *testing.T) {
	got := ScaleToFit(Size{W: 10, H: 10}, Size{W: 960, H: 700}, 0.2, 1.5)
	if got != 0.2 {
		t.Fatalf("expected clamp to 0.2, got %.4f", got)
	}
}

func TestUsableAreaMarginModes(t *testing.T) {
	c := Size{W: 1000, H: 500}
	sym := UsableArea(c, 0.1, MarginSymmetric)
	if sym.W != 900 || sym.H != 450 {
		t.Fatalf("unexpected symmetric area %+v", sym)
	}
	legacy := UsableArea(c, 0.1, MarginLegacy)
	if legacy.W != 950 || legacy.H != 450 {
		t.Fatalf("unexpected legacy area %+v", legacy)
	}
}

func TestFitMediaKeepsAspectRatio(t *testing.T) {
	got := FitMedia(Size{W: 400, H: 400}, Size{W: 1600, H: 900})
	if !approx(got.W, 400) || !approx(got.H, 225) {
		t.Fatalf("unexpected media box %+v", got)
	}
}

func TestLayoutAppliesCenteredTransform(t *testing.T) {
	p := &fakePanel{id: "a"}
	surface := newFakeSurface(Size{W: 800, H: 600})
	surface.chrome[p] = 40
	cfg, _ := Config{PanelWidth: Absolute(960), PanelHeight: Absolute(700)}.normalize()
	cfg.Margin = 0

	out, err := NewLayout(surface, surface).Apply(cfg, []Panel{p})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one placement, got %d", len(out))
	}
	pl := out[0]
	if !approx(pl.Scale, 0.8333) {
		t.Fatalf("expected scale ~0.833, got %.4f", pl.Scale)
	}
	if pl.Cleared {
		t.Fatalf("expected transform applied, not cleared")
	}
	if pl.Box.W != 960 || pl.Box.H != 660 {
		t.Fatalf("expected content box 960x660 after chrome, got %+v", pl.Box)
	}
	if surface.boxes[p] != pl.Box {
		t.Fatalf("expected final box applied to panel, got %+v", surface.boxes[p])
	}
	tr := surface.transforms[p]
	if !approx(tr.TranslateX, 0) || !approx(tr.TranslateY, (600-700*pl.Scale)/2) {
		t.Fatalf("unexpected centering %+v", tr)
	}
	if tr.Zoom {
		t.Fatalf("expected transform, not zoom, when host lacks zoom support")
	}
}

func TestLayoutPrefersZoomWhenSupported(t *testing.T) {
	p := &fakePanel{id: "a"}
	surface := newFakeSurface(Size{W: 800, H: 600})
	surface.zoom = true
	cfg, _ := DefaultConfig().normalize()

	out, err := NewLayout(surface, surface).Apply(cfg, []Panel{p})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out[0].Transform.Zoom || !surface.transforms[p].Zoom {
		t.Fatalf("expected zoom hint")
	}
}

func TestLayoutClearsTransformAtUnitScale(t *testing.T) {
	p := &fakePanel{id: "a"}
	surface := newFakeSurface(Size{W: 2000, H: 2000})
	surface.transforms[p] = Transform{Scale: 0.5}
	cfg, _ := DefaultConfig().normalize()
	cfg.MaxScale = 1

	out, err := NewLayout(surface, surface).Apply(cfg, []Panel{p})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out[0].Cleared || surface.cleared[p] != 1 {
		t.Fatalf("expected transform cleared at scale 1")
	}
	if _, ok := surface.transforms[p]; ok {
		t.Fatalf("expected stale transform removed")
	}
}

func TestLayoutCorrectsMediaAspect(t *testing.T) {
	p := &fakeMediaPanel{fakePanel{id: "m", media: Size{W: 320, H: 240}}}
	surface := newFakeSurface(Size{W: 800, H: 600})
	cfg, _ := Config{PanelWidth: Absolute(400), PanelHeight: Absolute(200)}.normalize()

	out, err := NewLayout(surface, surface).Apply(cfg, []Panel{p})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	box := out[0].Box
	if !approx(box.H, 200) || !approx(box.W, 266.667) {
		t.Fatalf("expected media box ~266.7x200, got %+v", box)
	}
}

func TestLayoutResolvesPercentDimensions(t *testing.T) {
	p := &fakePanel{id: "a"}
	surface := newFakeSurface(Size{W: 1000, H: 500})
	cfg, _ := Config{PanelWidth: Percent(50), PanelHeight: Percent(50)}.normalize()
	cfg.Margin = 0

	out, err := NewLayout(surface, surface).Apply(cfg, []Panel{p})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out[0].Box.W != 500 || out[0].Box.H != 250 {
		t.Fatalf("unexpected percent box %+v", out[0].Box)
	}
	if out[0].Scale != 1.5 {
		t.Fatalf("expected scale clamped to 1.5, got %.3f", out[0].Scale)
	}
}

func TestLayoutSkipsCycleOnMeasurementFailure(t *testing.T) {
	a, b := &fakePanel{id: "a"}, &fakePanel{id: "b"}
	surface := newFakeSurface(Size{W: 800, H: 600})
	cfg, _ := DefaultConfig().normalize()
	layout := NewLayout(surface, surface)
	if _, err := layout.Apply(cfg, []Panel{a, b}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	good := surface.boxes[a]

	surface.measureErr[b] = errors.New("detached")
	_, err := layout.Apply(cfg, []Panel{a, b})
	if !errors.Is(err, ErrMeasure) {
		t.Fatalf("expected ErrMeasure, got %v", err)
	}
	if surface.boxes[a] != good {
		t.Fatalf("expected earlier box restored, got %+v", surface.boxes[a])
	}
}

func TestLayoutFailsWhenContainerNotRendered(t *testing.T) {
	surface := newFakeSurface(Size{})
	cfg, _ := DefaultConfig().normalize()
	_, err := NewLayout(surface, surface).Apply(cfg, []Panel{&fakePanel{}})
	if !errors.Is(err, ErrMeasure) {
		t.Fatalf("expected ErrMeasure for zero container, got %v", err)
	}
}

func TestResizeDoesNotMoveCursor(t *testing.T) {
	panels := makePanels(3)
	surface := newFakeSurface(Size{W: 800, H: 600})
	ctrl := New(Host{Panels: &fakeSource{panels: panels}, Measure: surface, Style: surface, Clock: NewManualClock(timeZero)})
	if err := ctrl.Initialize(manualConfig()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	_ = ctrl.GoTo(2)
	for i := 0; i < 3; i++ {
		out, err := ctrl.Resize()
		if err != nil {
			t.Fatalf("resize: %v", err)
		}
		if len(out) != 3 {
			t.Fatalf("expected placements for every panel, got %d", len(out))
		}
	}
	if c := ctrl.Cursor(); c.Current != 2 || c.Previous != 1 {
		t.Fatalf("expected cursor untouched by resize, got %+v", c)
	}

	surface.containerErr = errors.New("not attached")
	if _, err := ctrl.Resize(); !errors.Is(err, ErrMeasure) {
		t.Fatalf("expected ErrMeasure from resize, got %v", err)
	}
	if c := ctrl.Cursor(); c.Current != 2 {
		t.Fatalf("expected cursor untouched after failed resize")
	}
}

func TestResizeSkipsEmptyDeck(t *testing.T) {
	surface := newFakeSurface(Size{W: 800, H: 600})
	ctrl := New(Host{Panels: &fakeSource{}, Measure: surface, Style: surface})
	if err := ctrl.Initialize(manualConfig()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	out, err := ctrl.Resize()
	if err != nil || out != nil {
		t.Fatalf("expected layout skipped for empty deck, got %v %v", out, err)
	}
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("80%")
	if err != nil || !d.Percent || d.Value != 80 {
		t.Fatalf("unexpected percent parse %+v %v", d, err)
	}
	d, err = ParseDimension("960px")
	if err != nil || d.Percent || d.Value != 960 {
		t.Fatalf("unexpected absolute parse %+v %v", d, err)
	}
	if _, err := ParseDimension("wide"); err == nil {
		t.Fatalf("expected parse error")
	}
}
