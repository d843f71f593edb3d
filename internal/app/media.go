package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"termdeck/internal/deck"
	"termdeck/internal/slideshow"
	"termdeck/internal/telemetry"
	"termdeck/internal/term"
)

// mediaPanes owns one terminal pane per cast or exec slide of the loaded
// deck. Only the current slide's pane runs; leaving a slide stops it.
type mediaPanes struct {
	mu        sync.Mutex
	panes     map[*deck.Slide]*term.Pane
	active    *deck.Slide
	dir       string
	allowExec bool
	redraw    func()
	logger    *telemetry.JSONLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func newMediaPanes(allowExec bool, redraw func(), logger *telemetry.JSONLogger) *mediaPanes {
	ctx, cancel := context.WithCancel(context.Background())
	return &mediaPanes{
		panes:     map[*deck.Slide]*term.Pane{},
		allowExec: allowExec,
		redraw:    redraw,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Reset stops every pane and builds fresh ones for d.
func (m *mediaPanes) Reset(d deck.Deck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
	m.panes = map[*deck.Slide]*term.Pane{}
	m.active = nil
	m.dir = filepath.Dir(d.Path)
	for _, s := range d.Slides {
		if !s.Media.Terminal() {
			continue
		}
		if len(s.Media.Exec) > 0 && !m.allowExec {
			continue
		}
		m.panes[s] = term.NewPane(m.redraw)
	}
}

// Pane returns the pane for s, if s has one.
func (m *mediaPanes) Pane(s *deck.Slide) (*term.Pane, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panes[s]
	return p, ok
}

// Activate stops the previous slide's pane and starts the one for p.
func (m *mediaPanes) Activate(p slideshow.Panel) {
	s, _ := p.(*deck.Slide)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s && s != nil {
		return
	}
	if prev, ok := m.panes[m.active]; ok {
		if err := prev.Stop(); err != nil {
			m.logger.Error("media.stop_failed", map[string]any{"slide": m.active.ID, "error": err.Error()})
		}
	}
	m.active = s
	pane, ok := m.panes[s]
	if !ok {
		return
	}

	var err error
	kind := "cast"
	if len(s.Media.Exec) > 0 {
		kind = "exec"
		err = pane.Start(m.ctx, s.Media.Exec, m.dir, []string{"TERMDECK_SLIDE=" + s.ID})
	} else {
		err = pane.StartPlayback(m.ctx, s.Media.Frames, s.Media.Loop)
	}
	fields := map[string]any{"slide": s.ID, "kind": kind}
	if err != nil {
		fields["error"] = err.Error()
		m.logger.Error("media.start_failed", fields)
		return
	}
	m.logger.Info("media.started", fields)
}

// Input forwards keyboard bytes to the current slide's command.
func (m *mediaPanes) Input(data []byte) error {
	m.mu.Lock()
	pane, ok := m.panes[m.active]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return pane.SendInput(data)
}

func (m *mediaPanes) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
	m.cancel()
}

func (m *mediaPanes) stopAllLocked() {
	for _, p := range m.panes {
		_ = p.Stop()
	}
}

// execPlaceholder stands in for an exec slide when commands are disabled.
func execPlaceholder(s *deck.Slide) string {
	return fmt.Sprintf("This slide runs `%s`.\n\nStart termdeck with `--allow-exec` to run it here.", strings.Join(s.Media.Exec, " "))
}
