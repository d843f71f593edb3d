package ui

import (
	"fmt"
	"sync"

	"termdeck/internal/slideshow"
)

// Rows taken by the panel frame around its content: the top border carrying
// the title and the bottom border.
const panelChromeRows = 2

// Surface is the terminal's side of the slideshow host. It records marking
// and geometry applied by the controller; Root reads it when drawing.
type Surface struct {
	mu       sync.Mutex
	cols     int
	rows     int
	order    []slideshow.Panel
	panels   map[slideshow.Panel]*panelState
	onChange func()
}

type panelState struct {
	view      PanelView
	current   bool
	past      bool
	box       slideshow.Size
	transform slideshow.Transform
	scaled    bool
}

// PanelSnapshot is a copy of one panel's host-side state.
type PanelSnapshot struct {
	View      PanelView
	Position  int
	Current   bool
	Past      bool
	Box       slideshow.Size
	Transform slideshow.Transform
	Scaled    bool
}

func NewSurface() *Surface {
	return &Surface{panels: map[slideshow.Panel]*panelState{}}
}

// SetViewport sets the cell area panels are laid out in.
func (s *Surface) SetViewport(cols, rows int) {
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
}

func (s *Surface) SetPanels(views []PanelView) {
	s.mu.Lock()
	s.order = make([]slideshow.Panel, 0, len(views))
	next := make(map[slideshow.Panel]*panelState, len(views))
	for _, v := range views {
		if v.Panel == nil {
			continue
		}
		st := &panelState{view: v}
		if prev, ok := s.panels[v.Panel]; ok {
			st.current, st.past = prev.current, prev.past
			st.box, st.transform, st.scaled = prev.box, prev.transform, prev.scaled
		}
		next[v.Panel] = st
		s.order = append(s.order, v.Panel)
	}
	s.panels = next
	s.mu.Unlock()
	s.changed()
}

func (s *Surface) setOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Surface) MarkCurrent(p slideshow.Panel) {
	s.update(p, func(st *panelState) { st.current, st.past = true, false })
}

func (s *Surface) MarkPast(p slideshow.Panel) {
	s.update(p, func(st *panelState) { st.current, st.past = false, true })
}

func (s *Surface) ContainerSize() (slideshow.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cols <= 0 || s.rows <= 0 {
		return slideshow.Size{}, fmt.Errorf("viewport not sized yet")
	}
	return slideshow.Size{W: float64(s.cols), H: float64(s.rows)}, nil
}

// RenderedSize is the panel's outer size at its current box.
func (s *Surface) RenderedSize(p slideshow.Panel) (slideshow.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.panels[p]
	if !ok {
		return slideshow.Size{}, fmt.Errorf("panel not on this surface")
	}
	return slideshow.Size{W: st.box.W, H: st.box.H + panelChromeRows}, nil
}

func (s *Surface) SetBoxSize(p slideshow.Panel, box slideshow.Size) {
	s.update(p, func(st *panelState) { st.box = box })
}

func (s *Surface) ApplyTransform(p slideshow.Panel, t slideshow.Transform) {
	s.update(p, func(st *panelState) { st.transform, st.scaled = t, true })
}

func (s *Surface) ClearTransform(p slideshow.Panel) {
	s.update(p, func(st *panelState) { st.transform, st.scaled = slideshow.Transform{}, false })
}

// SupportsZoom is false: terminal cells cannot be zoomed, so a scale is
// applied by reflowing the panel into a larger or smaller box.
func (s *Surface) SupportsZoom() bool { return false }

// Current returns the panel marked current, if any.
func (s *Surface) Current() (PanelSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.order {
		if st := s.panels[p]; st.current {
			return st.snapshot(i + 1), true
		}
	}
	return PanelSnapshot{}, false
}

func (s *Surface) Snapshot() []PanelSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PanelSnapshot, 0, len(s.order))
	for i, p := range s.order {
		out = append(out, s.panels[p].snapshot(i+1))
	}
	return out
}

func (s *Surface) update(p slideshow.Panel, fn func(*panelState)) {
	s.mu.Lock()
	st, ok := s.panels[p]
	if ok {
		fn(st)
	}
	s.mu.Unlock()
	if ok {
		s.changed()
	}
}

func (s *Surface) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (st *panelState) snapshot(pos int) PanelSnapshot {
	return PanelSnapshot{
		View:      st.view,
		Position:  pos,
		Current:   st.current,
		Past:      st.past,
		Box:       st.box,
		Transform: st.transform,
		Scaled:    st.scaled,
	}
}

var (
	_ slideshow.Marker   = (*Surface)(nil)
	_ slideshow.Measurer = (*Surface)(nil)
	_ slideshow.Styler   = (*Surface)(nil)
)
