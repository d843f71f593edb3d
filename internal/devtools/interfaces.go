package devtools

import "context"

// Recorder tracks the live show for the dev remote and mirrors it to disk so
// scripts can poll without HTTP.
type Recorder interface {
	Update(fn func(*Snapshot)) Snapshot
	Snapshot() Snapshot
	Persist(ctx context.Context) error
}
