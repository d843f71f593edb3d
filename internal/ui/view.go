package ui

import (
	"fmt"
	"io"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"termdeck/internal/term"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

const drawerRows = 7

type deckKeyMap struct {
	Next     key.Binding
	Previous key.Binding
	First    key.Binding
	Last     key.Binding
	Autoplay key.Binding
	Reload   key.Binding
	Type     key.Binding
	Notes    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k deckKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Previous, k.Autoplay, k.Notes, k.Help, k.Quit}
}

func (k deckKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous, k.First, k.Last},
		{k.Autoplay, k.Reload, k.Type, k.Notes},
		{k.Help, k.Quit},
	}
}

type Root struct {
	theme        Theme
	ascii        bool
	debug        bool
	styleVariant string
	motionLevel  string
	ctrl         Controller
	calls        *callQueue
	surface      *Surface

	mu      sync.Mutex
	program *tea.Program
	running bool

	layout LayoutMode
	cols   int
	rows   int

	deck        DeckView
	status      StatusState
	countdown   Countdown
	statusFlash string
	drawer      string
	jump        string
	typing      bool

	help      help.Model
	keymap    deckKeyMap
	progress  progress.Model
	spin      spinner.Model
	markdown  map[int]*glamour.TermRenderer
	logger    *clog.Logger
	scalePos  float64
	scaleVel  float64
	spring    harmonica.Spring
	now       func() time.Time
	startedAt time.Time

	drawPending atomic.Bool

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	MotionLevel  string
	Surface      *Surface
	LogOutput    io.Writer
}

func New(opts Options) *Root {
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := clog.NewWithOptions(out, clog.Options{Prefix: "termdeck-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	styleVariant := normalizeStyleVariant(opts.StyleVariant)
	theme := ThemeForVariant(styleVariant)
	spring := harmonica.NewSpring(harmonica.FPS(60), 7.0, 0.85)
	if motionLevel == "reduced" {
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 1.0)
	}
	bar := progress.New(
		progress.WithWidth(20),
		progress.WithColors(theme.ProgressFrom, theme.ProgressTo),
		progress.WithScaled(true),
		progress.WithoutPercentage(),
	)
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)
	surface := opts.Surface
	if surface == nil {
		surface = NewSurface()
	}

	r := &Root{
		theme:        theme,
		ascii:        opts.ASCIIOnly,
		debug:        opts.Debug,
		styleVariant: styleVariant,
		motionLevel:  motionLevel,
		calls:        newCallQueue(),
		surface:      surface,
		layout:       LayoutFull,
		help:         h,
		progress:     bar,
		spin:         spin,
		markdown:     map[int]*glamour.TermRenderer{},
		logger:       logger,
		spring:       spring,
		now:          time.Now,
	}
	r.startedAt = r.now()
	r.keymap = deckKeyMap{
		Next:     key.NewBinding(key.WithKeys("right", "l", "space", "pgdown", "down", "j"), key.WithHelp("→/space", "next")),
		Previous: key.NewBinding(key.WithKeys("left", "h", "pgup", "up", "k", "backspace"), key.WithHelp("←", "previous")),
		First:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
		Last:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
		Autoplay: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "autoplay")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Type:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "type into terminal")),
		Notes:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "notes")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	surface.setOnChange(r.RequestDraw)
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		r.help.SetWidth(max(1, r.cols-2))
		r.syncViewport()
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, r.animateIfNeeded()
	case clockMsg:
		return r, clockTickCmd()
	case animateMsg:
		target := r.targetScale()
		r.scalePos, r.scaleVel = r.spring.Update(r.scalePos, r.scaleVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.scalePos = target
		r.scaleVel = 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.PasteMsg:
		return r.handlePaste(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			msg := "UI recovered from a rendering panic. Check logs."
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth(msg, max(1, width-1))))
		}
	}()

	v := tea.NewView(r.render())
	v.AltScreen = true
	return v
}

func (r *Root) render() string {
	w, h := r.cols, r.rows
	if w < 1 || h < 1 {
		return ""
	}
	mode := DetermineLayoutMode(w, h)
	r.layout = mode

	if mode == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			fmt.Sprintf("Minimum: %dx%d", minCols, minRows),
		}
		panel := r.drawPanel("Resize", msg, min(36, w), min(5, h), false)
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	areaW, areaH := PanelArea(w, h, mode, r.drawerHeight())
	parts := []string{r.headerText(), r.renderStage(areaW, areaH)}
	if drawer := r.renderDrawer(); drawer != "" {
		parts = append(parts, drawer)
	}
	parts = append(parts, r.statusText())
	if mode == LayoutFull {
		parts = append(parts, r.helpText())
	}
	return strings.Join(parts, "\n")
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.calls.close()
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) Surface() *Surface { return r.surface }

func (r *Root) SetDeck(deck DeckView) {
	r.surface.SetPanels(deck.Panels)
	r.apply(func(r *Root) {
		r.deck = deck
		r.deck.Panels = nil
	})
}

func (r *Root) SetStatus(status StatusState) {
	r.apply(func(r *Root) {
		r.status = status
		if status.Running {
			r.statusFlash = ""
		}
	})
}

func (r *Root) SetCountdown(c Countdown) {
	r.apply(func(r *Root) { r.countdown = c })
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(r *Root) { r.statusFlash = msg })
}

// RequestDraw coalesces redraw requests coming from outside the UI loop.
func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

// dispatchController hands fn to the call queue so controller work runs off
// the update loop and in key-press order.
func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	r.calls.push(func() { fn(ctrl) })
}

func (r *Root) sendTerminalInput(data []byte) {
	r.dispatchController(func(c Controller) { c.OnTerminalInput(data) })
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	if r.typing {
		return r.handleTypingKey(msg)
	}

	if len(msg.Text) == 1 && msg.Text[0] >= '0' && msg.Text[0] <= '9' {
		if len(r.jump) < 6 {
			r.jump += msg.Text
		}
		return r, nil
	}
	switch msg.String() {
	case "enter":
		if pos, err := strconv.Atoi(r.jump); err == nil {
			r.dispatchController(func(c Controller) { c.OnGoTo(pos) })
		}
		r.jump = ""
		return r, nil
	case "esc":
		if r.jump != "" {
			r.jump = ""
			return r, nil
		}
		if r.drawer != "" {
			r.setDrawer("")
		}
		return r, nil
	}
	r.jump = ""

	switch {
	case key.Matches(msg, r.keymap.Quit):
		r.dispatchController(func(c Controller) { c.OnQuit() })
	case key.Matches(msg, r.keymap.Next):
		r.dispatchController(func(c Controller) { c.OnNext() })
	case key.Matches(msg, r.keymap.Previous):
		r.dispatchController(func(c Controller) { c.OnPrevious() })
	case key.Matches(msg, r.keymap.First):
		r.dispatchController(func(c Controller) { c.OnFirst() })
	case key.Matches(msg, r.keymap.Last):
		r.dispatchController(func(c Controller) { c.OnLast() })
	case key.Matches(msg, r.keymap.Autoplay):
		r.dispatchController(func(c Controller) { c.OnToggleAutoplay() })
	case key.Matches(msg, r.keymap.Reload):
		r.dispatchController(func(c Controller) { c.OnReload() })
	case key.Matches(msg, r.keymap.Type):
		if snap, ok := r.surface.Current(); ok && snap.View.Interactive && snap.View.Terminal != nil {
			r.typing = true
			r.statusFlash = "typing into terminal, " + term.DetachKey + " to leave"
		}
	case key.Matches(msg, r.keymap.Notes):
		r.toggleDrawer("notes")
	case key.Matches(msg, r.keymap.Help):
		r.toggleDrawer("help")
	}
	return r, nil
}

// handleTypingKey forwards keys to the current panel's terminal until the
// escape chord is pressed or the panel stops accepting input.
func (r *Root) handleTypingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	snap, ok := r.surface.Current()
	if !ok || !snap.View.Interactive || snap.View.Terminal == nil {
		r.typing = false
		return r, nil
	}
	if term.IsDetachKey(msg) {
		r.typing = false
		r.statusFlash = ""
		return r, nil
	}
	if data := term.EncodeKeyPress(msg); len(data) > 0 {
		r.sendTerminalInput(data)
	}
	return r, nil
}

func (r *Root) handlePaste(msg tea.PasteMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
	if !r.typing || msg.Content == "" {
		return r, nil
	}
	snap, ok := r.surface.Current()
	if !ok || snap.View.Terminal == nil {
		return r, nil
	}
	content := term.EncodePaste(msg.Content, snap.View.Terminal.BracketedPasteEnabled())
	r.sendTerminalInput(content)
	return r, nil
}

func (r *Root) toggleDrawer(kind string) {
	if r.drawer == kind {
		r.setDrawer("")
		return
	}
	r.setDrawer(kind)
}

// setDrawer opens or closes the bottom drawer. The drawer takes rows from
// the panel area, so the slideshow is asked to lay out again.
func (r *Root) setDrawer(kind string) {
	if r.drawer == kind {
		return
	}
	r.drawer = kind
	r.syncViewport()
}

func (r *Root) syncViewport() {
	if r.cols <= 0 || r.rows <= 0 {
		return
	}
	w, h := PanelArea(r.cols, r.rows, DetermineLayoutMode(r.cols, r.rows), r.drawerHeight())
	r.surface.SetViewport(w, h)
	cols, rows := r.cols, r.rows
	r.dispatchController(func(c Controller) { c.OnResize(cols, rows) })
}

func (r *Root) drawerHeight() int {
	if r.drawer == "" || r.layout != LayoutFull {
		return 0
	}
	return drawerRows
}

func (r *Root) renderDrawer() string {
	rows := r.drawerHeight()
	if rows == 0 {
		return ""
	}
	var title string
	var lines []string
	switch r.drawer {
	case "notes":
		title = "Notes"
		notes := ""
		if snap, ok := r.surface.Current(); ok {
			notes = strings.TrimSpace(snap.View.Notes)
		}
		if notes == "" {
			lines = []string{r.theme.Muted.Render("No notes for this slide.")}
		} else {
			for _, l := range strings.Split(notes, "\n") {
				lines = append(lines, r.theme.Notes.Render(l))
			}
		}
	case "help":
		title = "Keys"
		hv := r.help
		hv.ShowAll = true
		lines = strings.Split(hv.View(r.keymap), "\n")
		lines = append(lines, "", r.theme.Muted.Render("digits + enter: jump to slide   esc: close"))
	}
	return r.drawPanel(title, clipLines(lines, rows-panelChromeRows), r.cols, rows, false)
}

func (r *Root) headerText() string {
	width := max(1, r.cols-2)
	title := firstNonEmptyStr(r.deck.Title, r.deck.DeckID)
	parts := []string{"termdeck"}
	if title != "" {
		parts = append(parts, title)
	}
	if snap, ok := r.surface.Current(); ok && snap.View.Title != "" {
		parts = append(parts, snap.View.Title)
	}
	if r.deck.Author != "" {
		parts = append(parts, "by "+r.deck.Author)
	}
	parts = append(parts, r.now().Sub(r.startedAt).Truncate(time.Second).String())
	txt := strings.Join(parts, " | ")
	if r.debug {
		scale := r.targetScale()
		txt = fmt.Sprintf("%s | %dx%d %v scale=%.2f", txt, r.cols, r.rows, r.layout, scale)
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(trimForWidth(txt, width))
}

func (r *Root) statusText() string {
	st := r.status
	parts := make([]string, 0, 6)
	if st.Total > 0 {
		bar := r.progress
		bar.SetWidth(min(20, max(8, r.cols/6)))
		parts = append(parts, fmt.Sprintf("%s %d/%d", bar.ViewAs(float64(st.Position)/float64(st.Total)), st.Position, st.Total))
	}
	switch {
	case st.Running:
		play := strings.TrimSpace(r.spin.View()) + " playing"
		if r.countdown != nil {
			if left := r.countdown.Remaining(r.now()); left > 0 {
				play += fmt.Sprintf(" · next in %ds", int(math.Ceil(left.Seconds())))
			}
		}
		parts = append(parts, r.theme.Accent.Render(play))
	case st.Autoplay:
		parts = append(parts, r.theme.Muted.Render("paused"))
	}
	if r.typing {
		parts = append(parts, r.theme.Accent.Render("typing"))
	}
	if r.jump != "" {
		parts = append(parts, r.theme.Accent.Render("go to "+r.jump+"_"))
	}
	if r.statusFlash != "" {
		parts = append(parts, r.statusFlash)
	}
	txt := strings.Join(parts, "  ")
	if strip := r.stripText(r.cols / 3); strip != "" && lipgloss.Width(txt)+lipgloss.Width(strip)+4 < r.cols {
		txt += "  " + strip
	}
	return r.theme.Status.Width(max(1, r.cols)).Render(trimForWidth(txt, max(1, r.cols-2)))
}

func (r *Root) helpText() string {
	return " " + r.help.View(r.keymap)
}

// displayScale is the scale the current panel is drawn at: the spring
// position while animating, the layout's target otherwise.
func (r *Root) displayScale(snap PanelSnapshot) float64 {
	target := 1.0
	if snap.Scaled && snap.Transform.Scale > 0 {
		target = snap.Transform.Scale
	}
	if r.motionLevel == "off" || r.scalePos <= 0 {
		return target
	}
	return r.scalePos
}

func (r *Root) targetScale() float64 {
	snap, ok := r.surface.Current()
	if !ok || !snap.Scaled || snap.Transform.Scale <= 0 {
		return 1
	}
	return snap.Transform.Scale
}

func (r *Root) animateIfNeeded() tea.Cmd {
	target := r.targetScale()
	if r.scalePos <= 0 {
		r.scalePos = target
		return nil
	}
	if r.shouldAnimate(target) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if r.motionLevel == "off" {
		return false
	}
	return math.Abs(r.scalePos-target) > 0.001 || math.Abs(r.scaleVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func normalizeStyleVariant(v string) string {
	switch strings.TrimSpace(v) {
	case "cozy_clean", "retro_terminal", "modern_arcade":
		return strings.TrimSpace(v)
	default:
		return "modern_arcade"
	}
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"layout", r.layout,
		"cols", r.cols,
		"rows", r.rows,
		"drawer", r.drawer,
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
