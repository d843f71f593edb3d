package slideshow

import (
	"errors"
	"fmt"
	"sync"
)

// Controller drives one deck. All operations are serialized; a request that
// loses a race acts on the state committed by the winner.
type Controller struct {
	host   Host
	bus    EventBus
	logger Logger
	timer  *Timer
	layout *Layout

	mu          sync.Mutex
	cfg         Config
	initialized bool
	panels      []Panel
	idx         indexMachine
	running     bool
}

func New(host Host) *Controller {
	if host.Bus == nil {
		host.Bus = NewBus()
	}
	if host.Clock == nil {
		host.Clock = SystemClock{}
	}
	if host.Logger == nil {
		host.Logger = nopLogger{}
	}
	c := &Controller{
		host:   host,
		bus:    host.Bus,
		logger: host.Logger,
		timer:  NewTimer(host.Clock),
		layout: NewLayout(host.Measure, host.Style),
		cfg:    DefaultConfig(),
	}
	c.idx.policy = c.cfg.Boundary
	return c
}

// Initialize replaces the configuration, reloads the deck, lays it out and,
// when AutoStart is set, starts auto-advance.
func (c *Controller) Initialize(cfg Config) error {
	cfg, err := cfg.normalize()
	if err != nil {
		return fmt.Errorf("initialize slideshow: %w", err)
	}

	c.mu.Lock()
	c.timer.Cancel()
	c.running = false
	c.cfg = cfg
	c.idx.policy = cfg.Boundary
	c.initialized = true
	c.reloadLocked()
	n := len(c.panels)
	c.mu.Unlock()

	c.logger.Info("slideshow.initialize", map[string]any{
		"panels":         n,
		"auto_start":     cfg.AutoStart,
		"display_length": cfg.DisplayLength.String(),
		"boundary":       string(cfg.Boundary),
	})

	if _, err := c.Resize(); err != nil {
		c.logger.Error("slideshow.layout_skipped", map[string]any{"error": err.Error()})
	}
	if cfg.AutoStart {
		return c.Start()
	}
	return nil
}

// Reload rebuilds the deck from the panel source and rewinds to the first
// panel. A running slideshow keeps running from the first panel.
func (c *Controller) Reload() error {
	c.mu.Lock()
	c.reloadLocked()
	var err error
	if c.running && len(c.panels) > 0 {
		err = c.armLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reload slideshow: %w", err)
	}
	return nil
}

func (c *Controller) reloadLocked() {
	c.timer.Cancel()
	c.panels = nil
	if c.host.Panels != nil {
		c.panels = c.host.Panels.QueryAll(c.cfg.ContainerSelector, c.cfg.PanelSelector)
	}
	c.idx.reset(len(c.panels))
	if c.host.Marker == nil || c.host.Panels == nil {
		return
	}
	for _, p := range c.panels {
		c.host.Marker.MarkPast(p)
	}
	if first, ok := c.host.Panels.QueryFirst(c.cfg.ContainerSelector, c.cfg.PanelSelector); ok {
		c.host.Marker.MarkCurrent(first)
	}
}

// Start arms auto-advance from the current panel and announces it. It is a
// no-op when AutoStart is disabled or the deck is empty.
func (c *Controller) Start() error {
	c.mu.Lock()
	if !c.cfg.AutoStart || len(c.panels) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	events, err := c.transitionLocked(c.idx.cursor.Current)
	if err != nil {
		c.running = false
		c.mu.Unlock()
		c.publish(events)
		return fmt.Errorf("start slideshow: %w", err)
	}
	events = append(events, SlideShowStarted{CurrentIndex: c.idx.cursor.Current})
	c.mu.Unlock()

	c.publish(events)
	return nil
}

// Stop cancels auto-advance and announces it. It is a no-op when AutoStart
// is disabled.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.cfg.AutoStart {
		c.mu.Unlock()
		return
	}
	ev := c.stopLocked()
	c.mu.Unlock()
	c.publish([]Event{ev})
}

func (c *Controller) stopLocked() Event {
	c.timer.Cancel()
	c.running = false
	return SlideShowStopped{CurrentIndex: c.idx.cursor.Current}
}

func (c *Controller) Next() error {
	return c.navigate(func(cur int) int { return cur + 1 }, false)
}

func (c *Controller) Previous() error {
	return c.navigate(func(cur int) int { return cur - 1 }, true)
}

// GoTo moves to a 1-based position, resolved by the boundary policy.
func (c *Controller) GoTo(pos int) error {
	return c.navigate(func(int) int { return pos }, false)
}

func (c *Controller) navigate(target func(cur int) int, backwards bool) error {
	c.mu.Lock()
	events, err := c.transitionLocked(target(c.idx.cursor.Current))
	if backwards && c.cfg.PauseOnPrevious && c.cfg.AutoStart && c.running {
		events = append(events, c.stopLocked())
	}
	c.mu.Unlock()

	c.publish(events)
	return err
}

// transitionLocked commits target and re-arms the timer. Moving to the
// current position re-applies the marking without announcing a change.
func (c *Controller) transitionLocked(target int) ([]Event, error) {
	if len(c.panels) == 0 {
		return nil, nil
	}
	next := c.idx.resolve(target)
	old := c.idx.commit(next)

	if c.host.Marker != nil {
		if old != next && old != NoPosition {
			c.host.Marker.MarkPast(c.panels[old-1])
		}
		c.host.Marker.MarkCurrent(c.panels[next-1])
	}

	var err error
	if c.running {
		err = c.armLocked()
	}
	if old == next {
		return nil, err
	}
	return []Event{SlideChanged{
		OldIndex:     old,
		NewIndex:     next,
		IsFirstSlide: c.idx.isFirst(next),
		IsLastSlide:  c.idx.isLast(next),
	}}, err
}

func (c *Controller) armLocked() error {
	delay := c.cfg.DisplayLength
	if p := c.panels[c.idx.cursor.Current-1]; p != nil {
		if d, ok := p.DisplayLength(); ok && d > 0 {
			delay = d
		}
	}
	return c.timer.Arm(delay, c.fire)
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if !c.timer.Fired(gen) {
		c.mu.Unlock()
		return
	}
	events, err := c.transitionLocked(c.idx.cursor.Current + 1)
	cur := c.idx.cursor.Current
	if err != nil {
		c.running = false
	}
	c.mu.Unlock()

	c.publish(events)
	if err != nil {
		c.logger.Error("slideshow.rearm_failed", map[string]any{"position": cur, "error": err.Error()})
		if errors.Is(err, ErrSchedule) {
			c.publish([]Event{SlideShowStopped{CurrentIndex: cur}})
		}
	}
}

// Resize recomputes the layout. It never changes the cursor; an ErrMeasure
// error means the cycle was skipped and the previous layout remains.
func (c *Controller) Resize() ([]Placement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, nil
	}
	return c.layout.Apply(c.cfg, c.panels)
}

func (c *Controller) AddEventListener(name EventName, fn func(Event)) ListenerID {
	return c.bus.Subscribe(name, fn)
}

func (c *Controller) RemoveEventListener(name EventName, id ListenerID) {
	c.bus.Unsubscribe(name, id)
}

// Close releases the timer without announcing a stop.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Cancel()
	c.running = false
}

func (c *Controller) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx.cursor
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.panels)
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Panel returns the panel at a 1-based position.
func (c *Controller) Panel(pos int) (Panel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos < 1 || pos > len(c.panels) {
		return nil, false
	}
	return c.panels[pos-1], true
}

// Timer exposes the auto-advance handle for status displays.
func (c *Controller) Timer() *Timer { return c.timer }

func (c *Controller) publish(events []Event) {
	for _, ev := range events {
		c.bus.Publish(ev)
	}
}
