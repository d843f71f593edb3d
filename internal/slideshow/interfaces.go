package slideshow

import "time"

// Panel is one visual unit of a deck. The controller never inspects panel
// content; panels are identified by their position in the deck.
type Panel interface {
	// DisplayLength returns the auto-advance override carried by the panel.
	DisplayLength() (time.Duration, bool)
}

// MediaPanel is implemented by panels whose content has an intrinsic size
// (images, recorded clips, ASCII art blocks).
type MediaPanel interface {
	Panel
	MediaSize() (Size, bool)
}

// PanelSource locates panels under a container, in document order.
type PanelSource interface {
	QueryAll(container, selector string) []Panel
	QueryFirst(container, selector string) (Panel, bool)
}

// Marker toggles the mutually exclusive current/past visual state.
type Marker interface {
	MarkCurrent(p Panel)
	MarkPast(p Panel)
}

type Measurer interface {
	ContainerSize() (Size, error)
	RenderedSize(p Panel) (Size, error)
}

type Styler interface {
	SetBoxSize(p Panel, box Size)
	ApplyTransform(p Panel, t Transform)
	ClearTransform(p Panel)
	SupportsZoom() bool
}

type EventBus interface {
	Publish(ev Event)
	Subscribe(name EventName, fn func(Event)) ListenerID
	Unsubscribe(name EventName, id ListenerID)
}

type Clock interface {
	AfterFunc(d time.Duration, fn func()) (Stopper, error)
}

type Stopper interface {
	Stop() bool
}

type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// Host bundles the collaborators a Controller consumes. Nil members degrade
// to no-ops, except Bus and Clock which fall back to NewBus and SystemClock.
type Host struct {
	Panels  PanelSource
	Marker  Marker
	Measure Measurer
	Style   Styler
	Bus     EventBus
	Clock   Clock
	Logger  Logger
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}
