package term

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/creack/pty"
	"github.com/hinshun/vt10x"
)

const (
	bracketedPasteOnSeq  = "\x1b[?2004h"
	bracketedPasteOffSeq = "\x1b[?2004l"
	modeTailMaxLen       = 64

	defaultCols = 80
	defaultRows = 24
)

// State reports what a pane is currently showing.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePlaying State = "playing"
	StateExited  State = "exited"
)

// Pane is a virtual terminal fed either by a command on a pseudo-terminal or
// by recorded frames. Its screen is rendered as ANSI-styled lines.
type Pane struct {
	mu   sync.Mutex
	ioMu sync.Mutex

	vt    vt10x.Terminal
	cmd   *exec.Cmd
	ptmx  *os.File
	cols  int
	rows  int
	dirty func()

	state        State
	exitErr      error
	playbackStop context.CancelFunc

	modeTail         string
	bracketedPaste   bool
	totalOutputBytes atomic.Int64
}

func NewPane(onDirty func()) *Pane {
	return &Pane{
		dirty: onDirty,
		cols:  defaultCols,
		rows:  defaultRows,
		state: StateIdle,
	}
}

// SetDirty updates the callback fired whenever the screen changes.
func (p *Pane) SetDirty(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirty = fn
}

// Start runs command on a fresh pseudo-terminal sized to the pane.
func (p *Pane) Start(ctx context.Context, command []string, cwd string, env []string) error {
	if len(command) == 0 {
		return errors.New("terminal command is empty")
	}
	if err := p.Stop(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, env...)

	p.mu.Lock()
	cols, rows := max(1, p.cols), max(1, p.rows)
	p.mu.Unlock()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.cmd = cmd
	p.ptmx = ptmx
	p.state = StateRunning
	p.exitErr = nil
	p.vt = vt10x.New(vt10x.WithWriter(ptmx), vt10x.WithSize(cols, rows))
	p.resetModesLocked()
	p.mu.Unlock()

	go p.readLoop(ptmx)
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.state = StateExited
			p.exitErr = err
			p.cmd = nil
		}
		p.mu.Unlock()
		p.markDirty()
	}()

	p.markDirty()
	return nil
}

// StartPlayback replays frames into a fresh screen, from the top again when
// loop is set.
func (p *Pane) StartPlayback(ctx context.Context, frames []PlaybackFrame, loop bool) error {
	if len(frames) == 0 {
		return errors.New("playback frames are empty")
	}
	if err := p.Stop(); err != nil {
		return err
	}

	playCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.state = StatePlaying
	p.exitErr = nil
	p.playbackStop = cancel
	p.vt = vt10x.New(vt10x.WithWriter(io.Discard), vt10x.WithSize(max(1, p.cols), max(1, p.rows)))
	p.resetModesLocked()
	p.mu.Unlock()

	go p.playbackLoop(playCtx, frames, loop)
	p.markDirty()
	return nil
}

// Stop kills a running command or ends playback. The last screen stays
// readable.
func (p *Pane) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopPlaybackLocked()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
	if p.state == StateRunning {
		p.state = StateExited
	}
	return p.closePTYLocked()
}

// State reports the pane's source.
func (p *Pane) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ExitErr is the error the last command exited with, if any.
func (p *Pane) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *Pane) stopPlaybackLocked() {
	if p.playbackStop != nil {
		p.playbackStop()
		p.playbackStop = nil
	}
	if p.state == StatePlaying {
		p.state = StateIdle
	}
}

func (p *Pane) closePTYLocked() error {
	if p.ptmx != nil {
		err := p.ptmx.Close()
		p.ptmx = nil
		if errors.Is(err, os.ErrClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (p *Pane) resetModesLocked() {
	p.modeTail = ""
	p.bracketedPaste = false
	p.totalOutputBytes.Store(0)
}

func (p *Pane) readLoop(ptmx *os.File) {
	buf := make([]byte, 8192)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			p.totalOutputBytes.Add(int64(n))

			p.mu.Lock()
			vt := p.vt
			current := p.ptmx == ptmx
			if current {
				p.updateModesLocked(chunk)
			}
			p.mu.Unlock()
			if !current {
				return
			}
			_, _ = vt.Write(chunk)
			p.markDirty()
		}
		if err != nil {
			p.mu.Lock()
			if p.ptmx == ptmx {
				_ = p.closePTYLocked()
			}
			p.mu.Unlock()
			return
		}
	}
}

// TotalOutputBytes returns a monotonic counter of output bytes processed
// since the last Start or StartPlayback.
func (p *Pane) TotalOutputBytes() int64 {
	return p.totalOutputBytes.Load()
}

func (p *Pane) markDirty() {
	p.mu.Lock()
	fn := p.dirty
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Size is the pane's grid in cells.
func (p *Pane) Size() (cols, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cols, p.rows
}

// Resize changes the terminal grid and tells the running program.
func (p *Pane) Resize(cols, rows int) error {
	cols, rows = max(1, cols), max(1, rows)
	p.mu.Lock()
	if p.cols == cols && p.rows == rows {
		p.mu.Unlock()
		return nil
	}
	p.cols = cols
	p.rows = rows
	vt := p.vt
	ptmx := p.ptmx
	p.mu.Unlock()

	if vt != nil {
		vt.Resize(cols, rows)
	}
	if ptmx != nil {
		if err := pty.Setsize(ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
			return err
		}
	}
	p.markDirty()
	return nil
}

// SendInput writes keyboard bytes to the running program. Input during
// playback or after exit is dropped.
func (p *Pane) SendInput(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	p.mu.Lock()
	ptmx := p.ptmx
	p.mu.Unlock()
	if ptmx == nil {
		return nil
	}
	p.ioMu.Lock()
	defer p.ioMu.Unlock()
	_, err := ptmx.Write(data)
	return err
}

// BracketedPasteEnabled reports whether the program turned on bracketed
// paste mode.
func (p *Pane) BracketedPasteEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bracketedPaste
}

// Lines renders the screen as exactly height lines of width cells with SGR
// styling. Cells outside the emulator grid are blank.
func (p *Pane) Lines(width, height int) []string {
	width, height = max(1, width), max(1, height)
	out := make([]string, height)

	p.mu.Lock()
	vt := p.vt
	p.mu.Unlock()

	if vt == nil {
		out[0] = clipWidth("No terminal session", width)
		for row := 1; row < height; row++ {
			out[row] = strings.Repeat(" ", width)
		}
		return out
	}

	vt.Lock()
	defer vt.Unlock()

	vtCols, vtRows := vt.Size()
	drawW := min(width, max(0, vtCols))
	drawH := min(height, max(0, vtRows))

	for row := 0; row < height; row++ {
		if row >= drawH {
			out[row] = strings.Repeat(" ", width)
			continue
		}
		var styled strings.Builder
		var prev vtRenderStyle
		hasStyle := false
		for col := 0; col < width; col++ {
			ch := ' '
			style := vtRenderStyleDefault()
			if col < drawW {
				if g, ok := safeCell(vt, col, row); ok {
					ch = sanitizeGlyphRune(g.Char)
					style = vtRenderStyleFromGlyph(g)
				}
			}
			if !hasStyle || !style.equal(prev) {
				styled.WriteString(style.sgr())
				prev = style
				hasStyle = true
			}
			styled.WriteRune(ch)
		}
		styled.WriteString("\x1b[0m")
		out[row] = styled.String()
	}
	return out
}

func (p *Pane) playbackLoop(ctx context.Context, frames []PlaybackFrame, loop bool) {
	for {
		for _, frame := range frames {
			if frame.After > 0 {
				timer := time.NewTimer(frame.After)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			p.mu.Lock()
			if ctx.Err() != nil {
				p.mu.Unlock()
				return
			}
			vt := p.vt
			p.updateModesLocked(frame.Data)
			p.mu.Unlock()
			_, _ = vt.Write(frame.Data)
			p.totalOutputBytes.Add(int64(len(frame.Data)))
			p.markDirty()
		}
		if !loop {
			return
		}
		p.mu.Lock()
		if ctx.Err() == nil && p.vt != nil {
			p.vt.Write([]byte("\x1b[2J\x1b[H"))
		}
		p.mu.Unlock()
	}
}

func (p *Pane) updateModesLocked(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	state := p.modeTail + string(chunk)
	lastOn := strings.LastIndex(state, bracketedPasteOnSeq)
	lastOff := strings.LastIndex(state, bracketedPasteOffSeq)
	if lastOn >= 0 || lastOff >= 0 {
		p.bracketedPaste = lastOn > lastOff
	}
	if len(state) > modeTailMaxLen {
		state = state[len(state)-modeTailMaxLen:]
	}
	p.modeTail = state
}

const (
	vtAttrReverse   int16 = 1 << 0
	vtAttrUnderline int16 = 1 << 1
	vtAttrBold      int16 = 1 << 2
)

type vtRenderStyle struct {
	FG        vt10x.Color
	BG        vt10x.Color
	Bold      bool
	Underline bool
}

func vtRenderStyleDefault() vtRenderStyle {
	return vtRenderStyle{FG: vt10x.DefaultFG, BG: vt10x.DefaultBG}
}

func vtRenderStyleFromGlyph(g vt10x.Glyph) vtRenderStyle {
	style := vtRenderStyle{
		FG:        g.FG,
		BG:        g.BG,
		Bold:      g.Mode&vtAttrBold != 0,
		Underline: g.Mode&vtAttrUnderline != 0,
	}
	if g.Mode&vtAttrReverse != 0 {
		style.FG, style.BG = style.BG, style.FG
	}
	return style
}

func (s vtRenderStyle) equal(other vtRenderStyle) bool {
	return s == other
}

func (s vtRenderStyle) sgr() string {
	codes := []string{"0"}
	if s.Bold {
		codes = append(codes, "1")
	}
	if s.Underline {
		codes = append(codes, "4")
	}
	codes = append(codes, vtColorToSGR(s.FG, true), vtColorToSGR(s.BG, false))
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func vtColorToSGR(c vt10x.Color, foreground bool) string {
	if c == vt10x.DefaultFG || c == vt10x.DefaultBG || c == vt10x.DefaultCursor {
		if foreground {
			return "39"
		}
		return "49"
	}
	n := int(c)
	switch {
	case n >= 0 && n < 8:
		if foreground {
			return strconv.Itoa(30 + n)
		}
		return strconv.Itoa(40 + n)
	case n >= 8 && n < 16:
		if foreground {
			return strconv.Itoa(90 + (n - 8))
		}
		return strconv.Itoa(100 + (n - 8))
	}
	if foreground {
		return "38;5;" + strconv.Itoa(n)
	}
	return "48;5;" + strconv.Itoa(n)
}

func clipWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > w {
		r = r[:w]
	}
	return string(r) + strings.Repeat(" ", w-len(r))
}

func sanitizeGlyphRune(ch rune) rune {
	if ch == 0 || ch == utf8.RuneError || !utf8.ValidRune(ch) {
		return ' '
	}
	switch ch {
	case '□', '■', '▯', '␣', '␀':
		return ' '
	}
	// Private-use glyphs render as tofu without a patched font.
	if (ch >= 0xE000 && ch <= 0xF8FF) ||
		(ch >= 0xF0000 && ch <= 0xFFFFD) ||
		(ch >= 0x100000 && ch <= 0x10FFFD) {
		return ' '
	}
	if ch < 0x20 || ch == 0x7f || unicode.IsControl(ch) {
		return ' '
	}
	return ch
}

// safeCell reads one glyph; vt10x panics when a resize races the read.
func safeCell(vt vt10x.Terminal, col, row int) (g vt10x.Glyph, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return vt.Cell(col, row), true
}

var _ Media = (*Pane)(nil)
