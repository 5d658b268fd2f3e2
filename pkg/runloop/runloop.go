// Package runloop provides the single-threaded scheduling model the page
// pipeline runs on. Page state is only ever touched from tasks executed by a
// Scheduler; work that may block (network, key derivation) runs through Go and
// posts its results back as new tasks.
package runloop

import (
	"context"
	"time"
)

// DefaultFrame approximates one animation frame at 60Hz.
const DefaultFrame = 16 * time.Millisecond

// Timer is a cancellable scheduled task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Scheduler is the run loop seen by page components.
type Scheduler interface {
	Now() time.Time
	// Post queues fn to run on the loop after the current task.
	Post(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// NextFrame runs fn on the loop at the next frame boundary.
	NextFrame(fn func())
	// Go runs fn off the loop. fn must not touch page state directly.
	Go(fn func(ctx context.Context))
}
