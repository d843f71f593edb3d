package term

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// RecordOptions configures a non-interactive capture.
type RecordOptions struct {
	Cols int
	Rows int
	Dir  string
	Env  []string
	// Echo receives the raw output as it is recorded. Optional.
	Echo io.Writer
	Now  func() time.Time
}

// Record runs command on a pseudo-terminal and writes its output to w as a
// ttyrec recording. It returns the number of frames written and the
// command's exit error.
func Record(ctx context.Context, command []string, w io.Writer, opts RecordOptions) (int, error) {
	if len(command) == 0 {
		return 0, errors.New("record command is empty")
	}
	if opts.Cols <= 0 {
		opts.Cols = defaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = defaultRows
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(opts.Cols), Rows: uint16(opts.Rows)})
	if err != nil {
		return 0, err
	}
	defer ptmx.Close()

	frames := 0
	buf := make([]byte, 8192)
	var writeErr error
	for {
		n, rerr := ptmx.Read(buf)
		if n > 0 && writeErr == nil {
			chunk := buf[:n]
			writeErr = writeTTYRecFrame(w, now(), chunk)
			if writeErr == nil {
				frames++
				if opts.Echo != nil {
					_, _ = opts.Echo.Write(chunk)
				}
			}
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && !errors.Is(rerr, syscall.EIO) {
				writeErr = errors.Join(writeErr, rerr)
			}
			break
		}
	}
	waitErr := cmd.Wait()
	if writeErr != nil {
		return frames, writeErr
	}
	return frames, waitErr
}
