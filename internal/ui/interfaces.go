package ui

import (
	"time"

	"termdeck/internal/slideshow"
)

// Controller receives user intents. Calls arrive on their own goroutine.
type Controller interface {
	OnNext()
	OnPrevious()
	OnFirst()
	OnLast()
	OnGoTo(position int)
	OnToggleAutoplay()
	OnReload()
	OnQuit()
	OnResize(cols, rows int)
	OnTerminalInput(data []byte)
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetDeck(deck DeckView)
	SetStatus(status StatusState)
	SetCountdown(c Countdown)
	FlashStatus(msg string)
	RequestDraw()
	Surface() *Surface
}

// Countdown reports the time left before the next automatic advance.
type Countdown interface {
	Remaining(now time.Time) time.Duration
}

type DeckView struct {
	DeckID string
	Title  string
	Author string
	Panels []PanelView
}

// PanelView carries what the terminal needs to draw one panel. Panel is the
// identity the slideshow controller uses when marking and styling.
type PanelView struct {
	Panel   slideshow.Panel
	ID      string
	Title   string
	BodyMD  string
	Notes   string
	Art     string
	Caption string
	// Terminal is set for slides backed by a recording or a live command.
	Terminal Terminal
	// Interactive panels accept keyboard input in terminal mode.
	Interactive bool
}

// Terminal is a terminal screen embedded in a panel.
type Terminal interface {
	Lines(width, height int) []string
	Resize(cols, rows int) error
	BracketedPasteEnabled() bool
}

type StatusState struct {
	Position int
	Total    int
	Running  bool
	Autoplay bool
	Boundary string
}

type LayoutMode int

const (
	LayoutFull LayoutMode = iota
	LayoutCompact
	LayoutTooSmall
)

func (m LayoutMode) String() string {
	switch m {
	case LayoutFull:
		return "full"
	case LayoutCompact:
		return "compact"
	default:
		return "too_small"
	}
}
