package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"termdeck/internal/deck"
	"termdeck/internal/devtools"
	"termdeck/internal/slideshow"
	"termdeck/internal/state"
	"termdeck/internal/telemetry"
	"termdeck/internal/ui"

	"github.com/google/uuid"
)

type App struct {
	cfg Config

	logger *telemetry.JSONLogger
	store  Store
	loader DeckLoader
	source *deckSource
	ctrl   *slideshow.Controller
	view   ui.View
	dev    *devtools.Manager
	media  *mediaPanes

	sessionID string
	now       func() time.Time
	listeners []subscription

	startMu  sync.Mutex
	started  bool
	reloadMu sync.Mutex

	closeOnce sync.Once
	devServer *http.Server
}

type subscription struct {
	name slideshow.EventName
	id   slideshow.ListenerID
}

// deps are the collaborators New builds from Config; tests supply their own.
type deps struct {
	logger *telemetry.JSONLogger
	store  Store
	loader DeckLoader
	view   ui.View
	clock  slideshow.Clock
	now    func() time.Time
}

func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(cfg.StatePath())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	loader := deck.NewLoader()
	d, err := loader.LoadDeck(context.Background(), cfg.DeckPath)
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.ASCIIOnly,
		Debug:        cfg.DebugLayout,
		StyleVariant: cfg.UI.StyleVariant,
		MotionLevel:  cfg.UI.MotionLevel,
	})
	return newApp(cfg, d, deps{
		logger: logger,
		store:  store,
		loader: loader,
		view:   view,
		clock:  slideshow.SystemClock{},
		now:    time.Now,
	}), nil
}

func newApp(cfg Config, d deck.Deck, dp deps) *App {
	if dp.now == nil {
		dp.now = time.Now
	}
	sessionID := uuid.NewString()
	a := &App{
		cfg:       cfg,
		logger:    dp.logger.With(map[string]any{"session": sessionID, "deck": d.DeckID}),
		store:     dp.store,
		loader:    dp.loader,
		source:    &deckSource{d: d},
		view:      dp.view,
		dev:       devtools.NewManager(filepath.Join(cfg.DataDir, "dev")),
		sessionID: sessionID,
		now:       dp.now,
	}
	a.media = newMediaPanes(cfg.AllowExec, dp.view.RequestDraw, a.logger)
	a.media.Reset(d)
	surface := dp.view.Surface()
	a.ctrl = slideshow.New(slideshow.Host{
		Panels:  a.source,
		Marker:  surface,
		Measure: surface,
		Style:   surface,
		Clock:   dp.clock,
		Logger:  a.logger,
	})
	for _, name := range []slideshow.EventName{
		slideshow.EventSlideChanged,
		slideshow.EventSlideShowStarted,
		slideshow.EventSlideShowStopped,
	} {
		id := a.ctrl.AddEventListener(name, a.onEvent)
		a.listeners = append(a.listeners, subscription{name: name, id: id})
	}
	a.view.SetController(a)
	a.view.SetCountdown(a.ctrl.Timer())
	return a
}

func (a *App) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	if a.cfg.Dev {
		if err := a.startDevHTTP(); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-runCtx.Done()
		a.view.Stop()
	}()
	return a.view.Run()
}

// start opens the session, lays the deck out and, when asked, resumes at the
// last position recorded for the deck.
func (a *App) start(ctx context.Context) error {
	d := a.source.Deck()
	cfg, err := a.slideshowConfig(d)
	if err != nil {
		return fmt.Errorf("deck %s settings: %w", d.DeckID, err)
	}

	a.logger.Info("app.start", map[string]any{"path": d.Path, "slides": len(d.Slides)})
	if err := a.store.StartSession(ctx, state.Session{
		ID:       a.sessionID,
		DeckID:   d.DeckID,
		DeckPath: d.Path,
		Slides:   len(d.Slides),
		StartTS:  a.now(),
	}); err != nil {
		return err
	}
	a.startMu.Lock()
	a.started = true
	a.startMu.Unlock()
	if err := a.store.SaveSettings(ctx, map[string]string{
		SettingLastDeck:    d.Path,
		SettingLastSession: a.sessionID,
	}); err != nil {
		a.logger.Error("state.settings_failed", map[string]any{"error": err.Error()})
	}

	a.view.SetDeck(deckView(d, d.QueryAll(cfg.ContainerSelector, cfg.PanelSelector), a.media))
	if err := a.ctrl.Initialize(cfg); err != nil {
		return err
	}
	if a.ctrl.Len() == 0 {
		a.view.FlashStatus(fmt.Sprintf("no slides match %q", cfg.PanelSelector))
	}

	if a.cfg.Resume {
		pos, ok, err := a.store.LastPosition(ctx, d.DeckID)
		switch {
		case err != nil:
			a.logger.Error("state.last_position_failed", map[string]any{"error": err.Error()})
		case ok && pos > 1 && pos <= a.ctrl.Len():
			a.logger.Info("app.resume", map[string]any{"position": pos})
			a.report("resume", a.ctrl.GoTo(pos))
		}
	}
	a.activateCurrent()
	a.syncStatus("")
	return nil
}

// activateCurrent starts the terminal media of the slide on screen.
func (a *App) activateCurrent() {
	p, _ := a.ctrl.Panel(a.ctrl.Cursor().Current)
	a.media.Activate(p)
}

func (a *App) slideshowConfig(d deck.Deck) (slideshow.Config, error) {
	return SlideshowConfig(d, a.cfg.Show)
}

// SlideshowConfig layers terminal defaults, the deck's settings block and the
// show overrides from flags and environment.
func SlideshowConfig(d deck.Deck, show ShowConfig) (slideshow.Config, error) {
	cfg := slideshow.DefaultConfig()
	cfg.ContainerSelector = d.Selector()
	cfg.PanelSelector = "." + deck.DefaultSlideClass
	cfg.PanelWidth = slideshow.Absolute(defaultPanelCols)
	cfg.PanelHeight = slideshow.Absolute(defaultPanelRows)
	cfg.Margin = 0.05
	cfg.MinScale = 0.5

	cfg, err := d.Settings.Apply(cfg)
	if err != nil {
		return cfg, err
	}
	return show.apply(cfg), nil
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if a.devServer != nil {
			_ = a.devServer.Shutdown(ctx)
		}

		cur := a.ctrl.Cursor()
		a.ctrl.Close()
		a.media.Close()
		for _, l := range a.listeners {
			a.ctrl.RemoveEventListener(l.name, l.id)
		}
		a.listeners = nil

		a.startMu.Lock()
		started := a.started
		a.startMu.Unlock()
		if started {
			now := a.now()
			if err := a.store.SaveLastPosition(ctx, a.source.Deck().DeckID, cur.Current, now); err != nil {
				a.logger.Error("state.last_position_failed", map[string]any{"error": err.Error()})
			}
			if err := a.store.EndSession(ctx, a.sessionID, now); err != nil {
				a.logger.Error("state.end_session_failed", map[string]any{"error": err.Error()})
			}
		}
		a.logger.Info("app.stop", map[string]any{"position": cur.Current})
		_ = a.store.Close()
		_ = a.logger.Close()
	})
}

func (a *App) onEvent(ev slideshow.Event) {
	now := a.now()
	ctx := context.Background()
	tr := state.Transition{SessionID: a.sessionID, TS: now}
	fields := map[string]any{"event": string(ev.Name())}

	switch e := ev.(type) {
	case slideshow.SlideChanged:
		tr.Kind, tr.From, tr.To = state.TransitionChanged, e.OldIndex, e.NewIndex
		fields["from"] = e.OldIndex
		fields["to"] = e.NewIndex
		fields["first"] = e.IsFirstSlide
		fields["last"] = e.IsLastSlide
		if err := a.store.SaveLastPosition(ctx, a.source.Deck().DeckID, e.NewIndex, now); err != nil {
			a.logger.Error("state.last_position_failed", map[string]any{"error": err.Error()})
		}
		a.activateCurrent()
	case slideshow.SlideShowStarted:
		tr.Kind, tr.To = state.TransitionStarted, e.CurrentIndex
		fields["position"] = e.CurrentIndex
	case slideshow.SlideShowStopped:
		tr.Kind, tr.To = state.TransitionStopped, e.CurrentIndex
		fields["position"] = e.CurrentIndex
	default:
		return
	}

	a.logger.Info("slideshow.event", fields)
	if err := a.store.RecordTransition(ctx, tr); err != nil {
		a.logger.Error("state.record_failed", map[string]any{"event": string(ev.Name()), "error": err.Error()})
	}
	a.syncStatus(string(ev.Name()))
}

// syncStatus pushes controller state to the status line and the dev snapshot.
func (a *App) syncStatus(event string) {
	cur := a.ctrl.Cursor()
	cfg := a.ctrl.Config()
	st := ui.StatusState{
		Position: cur.Current,
		Total:    a.ctrl.Len(),
		Running:  a.ctrl.Running(),
		Autoplay: cfg.AutoStart,
		Boundary: string(cfg.Boundary),
	}
	a.view.SetStatus(st)

	a.dev.Update(func(s *devtools.Snapshot) {
		s.DeckID = a.source.Deck().DeckID
		s.Session = a.sessionID
		s.Position = cur.Current
		s.Previous = cur.Previous
		s.Total = st.Total
		s.Running = st.Running
		if event != "" {
			s.LastEvent = event
		}
	})
	if a.cfg.Dev {
		if err := a.dev.Persist(context.Background()); err != nil {
			a.logger.Error("dev_state.write_failed", map[string]any{"error": err.Error()})
		}
	}
}

func (a *App) report(op string, err error) {
	if err == nil {
		return
	}
	a.logger.Error("slideshow.op_failed", map[string]any{"op": op, "error": err.Error()})
	a.view.FlashStatus(op + " failed: " + err.Error())
}

func (a *App) OnNext() {
	a.report("next", a.ctrl.Next())
}

func (a *App) OnPrevious() {
	a.report("previous", a.ctrl.Previous())
}

func (a *App) OnFirst() {
	if a.ctrl.Len() > 0 {
		a.report("first", a.ctrl.GoTo(1))
	}
}

func (a *App) OnLast() {
	if n := a.ctrl.Len(); n > 0 {
		a.report("last", a.ctrl.GoTo(n))
	}
}

// OnGoTo jumps to an exact position; numbers outside the deck are rejected
// rather than resolved by the boundary policy.
func (a *App) OnGoTo(position int) {
	if err := a.checkPosition(position); err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	a.report("goto", a.ctrl.GoTo(position))
}

func (a *App) checkPosition(position int) error {
	n := a.ctrl.Len()
	if position < 1 || position > n {
		return fmt.Errorf("no slide %d (deck has %d)", position, n)
	}
	return nil
}

func (a *App) OnToggleAutoplay() {
	if !a.ctrl.Config().AutoStart {
		a.view.FlashStatus("autoplay is off for this deck")
		return
	}
	if a.ctrl.Running() {
		a.ctrl.Stop()
		return
	}
	a.report("start", a.ctrl.Start())
}

func (a *App) OnReload() {
	if err := a.reload(context.Background()); err != nil {
		a.logger.Error("deck.reload_failed", map[string]any{"error": err.Error()})
		a.view.FlashStatus("reload failed: " + err.Error())
		return
	}
	a.view.FlashStatus(fmt.Sprintf("reloaded %d slides", a.ctrl.Len()))
}

// reload rereads the deck file and rebuilds the slideshow from it. The
// configuration fixed at start stays in effect; a broken file keeps the old
// deck on screen.
func (a *App) reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	path := a.source.Deck().Path
	d, err := a.loader.LoadDeck(ctx, path)
	if err != nil {
		return err
	}
	cfg := a.ctrl.Config()
	a.source.Set(d)
	a.media.Reset(d)
	a.view.SetDeck(deckView(d, d.QueryAll(cfg.ContainerSelector, cfg.PanelSelector), a.media))
	if err := a.ctrl.Reload(); err != nil {
		return err
	}
	a.activateCurrent()
	if _, err := a.ctrl.Resize(); err != nil && !errors.Is(err, slideshow.ErrMeasure) {
		return err
	}
	a.logger.Info("deck.reloaded", map[string]any{"path": path, "slides": a.ctrl.Len()})
	a.syncStatus("Reload")
	return nil
}

func (a *App) OnQuit() {
	a.view.Stop()
}

func (a *App) OnTerminalInput(data []byte) {
	if err := a.media.Input(data); err != nil {
		a.logger.Error("media.input_failed", map[string]any{"error": err.Error()})
	}
}

func (a *App) OnResize(cols, rows int) {
	if _, err := a.ctrl.Resize(); err != nil {
		fields := map[string]any{"cols": cols, "rows": rows, "error": err.Error()}
		if errors.Is(err, slideshow.ErrMeasure) {
			a.logger.Info("slideshow.layout_skipped", fields)
			return
		}
		a.logger.Error("slideshow.layout_failed", fields)
	}
}

func (a *App) startDevHTTP() error {
	a.devServer = &http.Server{Addr: a.cfg.DevHTTP, Handler: a.devHandler()}
	a.logger.Info("dev_http.listen", map[string]any{"addr": a.cfg.DevHTTP})
	go func() {
		if err := a.devServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("dev_http.listen_failed", map[string]any{"error": err.Error(), "addr": a.cfg.DevHTTP})
		}
	}()
	return nil
}

// devHandler is a small remote for scripted demos and smoke tests.
func (a *App) devHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__dev/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": a.dev.Snapshot()})
	})

	action := func(name string, fn func() error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			a.logger.Info("dev.request", map[string]any{"action": name})
			if err := fn(); err != nil {
				a.logger.Error("dev.action_failed", map[string]any{"action": name, "error": err.Error()})
				writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			a.syncStatus("")
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": a.dev.Snapshot()})
		}
	}
	mux.HandleFunc("/__dev/next", action("next", a.ctrl.Next))
	mux.HandleFunc("/__dev/previous", action("previous", a.ctrl.Previous))
	mux.HandleFunc("/__dev/start", action("start", a.ctrl.Start))
	mux.HandleFunc("/__dev/stop", action("stop", func() error {
		a.ctrl.Stop()
		return nil
	}))
	mux.HandleFunc("/__dev/reload", action("reload", func() error {
		return a.reload(context.Background())
	}))
	mux.HandleFunc("/__dev/goto", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Position int `json:"position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		if err := a.checkPosition(req.Position); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		action("goto", func() error { return a.ctrl.GoTo(req.Position) })(w, r)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// SessionID identifies this run in the state store and the log.
func (a *App) SessionID() string { return a.sessionID }
