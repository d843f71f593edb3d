package term

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/hinshun/vt10x"
)

func TestLinesWithoutSession(t *testing.T) {
	p := NewPane(nil)
	lines := p.Lines(40, 3)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "No terminal session") {
		t.Fatalf("expected placeholder text, got %q", lines[0])
	}
	if p.State() != StateIdle {
		t.Fatalf("expected idle pane, got %s", p.State())
	}
}

func TestLinesDoesNotPanicWhenVTBoundsShift(t *testing.T) {
	p := NewPane(nil)
	p.vt = vt10x.New(vt10x.WithWriter(io.Discard), vt10x.WithSize(80, 24))
	p.rows = 40
	p.cols = 120

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("lines panicked: %v", r)
		}
	}()
	lines := p.Lines(120, 40)
	if len(lines) != 40 {
		t.Fatalf("expected 40 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if w := ansi.StringWidth(line); w != 120 {
			t.Fatalf("line %d is %d cells wide", i, w)
		}
	}
}

func TestLinesCarryColor(t *testing.T) {
	p := NewPane(nil)
	p.vt = vt10x.New(vt10x.WithWriter(io.Discard), vt10x.WithSize(20, 2))
	_, _ = p.vt.Write([]byte("\x1b[32mok\x1b[0m"))

	lines := p.Lines(20, 2)
	if !strings.Contains(lines[0], "\x1b[0;32;49mok") {
		t.Fatalf("expected green run, got %q", lines[0])
	}
	if got := strings.TrimSpace(ansi.Strip(lines[0])); got != "ok" {
		t.Fatalf("unexpected plain text %q", got)
	}
}

func TestPlaybackRendersFrames(t *testing.T) {
	dirty := make(chan struct{}, 64)
	p := NewPane(func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err := p.Resize(30, 4); err != nil {
		t.Fatalf("resize: %v", err)
	}
	frames := []PlaybackFrame{
		{Data: []byte("$ make demo\r\n")},
		{After: 5 * time.Millisecond, Data: []byte("done\r\n")},
	}
	if err := p.StartPlayback(context.Background(), frames, false); err != nil {
		t.Fatalf("start playback: %v", err)
	}
	defer p.Stop()
	if p.State() != StatePlaying {
		t.Fatalf("expected playing state, got %s", p.State())
	}

	want := int64(len(frames[0].Data) + len(frames[1].Data))
	waitFor(t, dirty, func() bool { return p.TotalOutputBytes() == want })

	text := plainText(p.Lines(30, 4))
	if !strings.Contains(text, "$ make demo") || !strings.Contains(text, "done") {
		t.Fatalf("unexpected screen:\n%s", text)
	}
	if err := p.SendInput([]byte("x")); err != nil {
		t.Fatalf("input during playback should be dropped, got %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", p.State())
	}
	if !strings.Contains(plainText(p.Lines(30, 4)), "done") {
		t.Fatalf("expected last screen to survive stop")
	}
}

func TestPlaybackRejectsEmptyFrames(t *testing.T) {
	if err := NewPane(nil).StartPlayback(context.Background(), nil, true); err == nil {
		t.Fatalf("expected error for empty playback")
	}
}

func TestStartRunsCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dirty := make(chan struct{}, 64)
	p := NewPane(func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err := p.Resize(40, 5); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := p.Start(context.Background(), []string{"sh", "-c", "printf 'hello from pty'"}, "", nil); err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer p.Stop()

	waitFor(t, dirty, func() bool {
		return strings.Contains(plainText(p.Lines(40, 5)), "hello from pty")
	})
	waitFor(t, dirty, func() bool { return p.State() == StateExited })
	if err := p.ExitErr(); err != nil {
		t.Fatalf("unexpected exit error: %v", err)
	}
}

func TestStartRejectsEmptyCommand(t *testing.T) {
	if err := NewPane(nil).Start(context.Background(), nil, "", nil); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestRecordWritesTTYRec(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out, echo bytes.Buffer
	frames, err := Record(context.Background(), []string{"sh", "-c", "printf one; sleep 0.05; printf two"}, &out, RecordOptions{Cols: 40, Rows: 5, Echo: &echo})
	if err != nil {
		if frames == 0 {
			t.Skipf("pty unavailable: %v", err)
		}
		t.Fatalf("record: %v", err)
	}
	decoded, err := DecodeTTYRec(out.Bytes())
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	if len(decoded) != frames {
		t.Fatalf("decoded %d frames, recorded %d", len(decoded), frames)
	}
	var all strings.Builder
	for _, f := range decoded {
		all.Write(f.Data)
	}
	if all.String() != echo.String() || !strings.Contains(all.String(), "onetwo") {
		t.Fatalf("unexpected recording %q (echo %q)", all.String(), echo.String())
	}
}

func waitFor(t *testing.T, dirty <-chan struct{}, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-dirty:
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("condition not met before deadline")
		}
	}
}

func plainText(lines []string) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimRight(ansi.Strip(line), " ")
	}
	return strings.Join(out, "\n")
}
