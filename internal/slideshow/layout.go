package slideshow

import (
	"fmt"
	"math"
)

// Placement is the layout applied to one panel.
type Placement struct {
	Position  int
	Box       Size
	Scale     float64
	Transform Transform
	Cleared   bool
}

// Layout fits panels into the host container. It never touches the cursor
// and may run any number of times.
type Layout struct {
	measure Measurer
	style   Styler
	boxes   []Size
}

func NewLayout(measure Measurer, style Styler) *Layout {
	return &Layout{measure: measure, style: style}
}

// ScaleToFit returns the uniform scale that fits panel into container,
// clamped to [minScale, maxScale].
func ScaleToFit(container, panel Size, minScale, maxScale float64) float64 {
	if !panel.Valid() {
		return 1
	}
	s := math.Min(container.W/panel.W, container.H/panel.H)
	return math.Max(minScale, math.Min(maxScale, s))
}

// UsableArea applies the margin to the container box.
func UsableArea(container Size, margin float64, mode MarginMode) Size {
	if mode == MarginLegacy {
		return Size{
			W: container.W - container.H*margin,
			H: container.H - container.H*margin,
		}
	}
	return Size{
		W: container.W - container.W*margin,
		H: container.H - container.H*margin,
	}
}

// FitMedia shrinks or grows native to fit box while keeping its aspect ratio.
func FitMedia(box, native Size) Size {
	if !native.Valid() {
		return box
	}
	s := math.Min(box.W/native.W, box.H/native.H)
	return Size{W: native.W * s, H: native.H * s}
}

// Apply measures the container and lays out every panel. A measurement
// failure returns an ErrMeasure error and leaves earlier placements in effect.
func (l *Layout) Apply(cfg Config, panels []Panel) ([]Placement, error) {
	if l == nil || l.measure == nil || l.style == nil || len(panels) == 0 {
		return nil, nil
	}
	container, err := l.measure.ContainerSize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMeasure, err)
	}
	if !container.Valid() {
		return nil, fmt.Errorf("%w: container not rendered (%.0fx%.0f)", ErrMeasure, container.W, container.H)
	}

	nominal := Size{W: cfg.PanelWidth.Resolve(container.W), H: cfg.PanelHeight.Resolve(container.H)}
	if !nominal.Valid() {
		return nil, fmt.Errorf("%w: panel size %sx%s resolves to nothing", ErrMeasure, cfg.PanelWidth, cfg.PanelHeight)
	}
	usable := UsableArea(container, cfg.Margin, cfg.MarginMode)
	scale := ScaleToFit(usable, nominal, cfg.MinScale, cfg.MaxScale)

	if len(l.boxes) != len(panels) {
		l.boxes = make([]Size, len(panels))
	}
	boxes := make([]Size, len(panels))
	for i, p := range panels {
		box, err := l.contentBox(i, p, nominal)
		if err != nil {
			for j := 0; j < i; j++ {
				l.restore(j, panels[j], nominal)
			}
			return nil, fmt.Errorf("%w: panel %d: %v", ErrMeasure, i+1, err)
		}
		if mp, ok := p.(MediaPanel); ok {
			if native, ok := mp.MediaSize(); ok {
				box = FitMedia(box, native)
			}
		}
		boxes[i] = box
	}

	out := make([]Placement, 0, len(panels))
	zoom := l.style.SupportsZoom()
	for i, p := range panels {
		l.style.SetBoxSize(p, boxes[i])
		l.boxes[i] = boxes[i]
		pl := Placement{Position: i + 1, Box: boxes[i], Scale: scale}
		if scale == 1 {
			l.style.ClearTransform(p)
			pl.Cleared = true
		} else {
			pl.Transform = Transform{
				Scale:      scale,
				TranslateX: (container.W - nominal.W*scale) / 2,
				TranslateY: (container.H - nominal.H*scale) / 2,
				Zoom:       zoom,
			}
			l.style.ApplyTransform(p, pl.Transform)
		}
		out = append(out, pl)
	}
	return out, nil
}

// contentBox measures the chrome around a panel's content by collapsing the
// content height and reading the panel's rendered height.
func (l *Layout) contentBox(i int, p Panel, nominal Size) (Size, error) {
	l.style.SetBoxSize(p, Size{W: nominal.W, H: 0})
	rendered, err := l.measure.RenderedSize(p)
	if err != nil {
		l.restore(i, p, nominal)
		return Size{}, err
	}
	chrome := math.Max(0, rendered.H)
	return Size{W: nominal.W, H: math.Max(0, nominal.H-chrome)}, nil
}

func (l *Layout) restore(i int, p Panel, nominal Size) {
	prev := l.boxes[i]
	if !prev.Valid() {
		prev = nominal
	}
	l.style.SetBoxSize(p, prev)
}
