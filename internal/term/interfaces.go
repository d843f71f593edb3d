package term

import (
	"context"
	"time"
)

// Media is a live terminal surface a slide can embed.
type Media interface {
	Start(ctx context.Context, command []string, cwd string, env []string) error
	StartPlayback(ctx context.Context, frames []PlaybackFrame, loop bool) error
	Stop() error
	Resize(cols, rows int) error
	SendInput(data []byte) error
	Lines(width, height int) []string
	State() State
}

// PlaybackFrame is one recorded chunk of terminal output, written After the
// previous frame.
type PlaybackFrame struct {
	After time.Duration
	Data  []byte
}
