package runloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arshiaxbt/Aura/internal/logging"
)

// Loop executes tasks in order on a single goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	frame   time.Duration
	stopped chan struct{}
}

// New creates a Loop. Call Run (usually in its own goroutine) to start it.
func New() *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		frame:   DefaultFrame,
		stopped: make(chan struct{}),
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.stopped.Store(true)
	return t.t.Stop()
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if !lt.stopped.Load() {
				fn()
			}
		})
	})
	return lt
}

func (l *Loop) NextFrame(fn func()) {
	l.AfterFunc(l.frame, fn)
}

func (l *Loop) Go(fn func(ctx context.Context)) {
	go func() {
		defer recoverTask("go")
		fn(l.ctx)
	}()
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a loop task.
func (l *Loop) Do(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-l.stopped:
	}
}

// Run executes tasks until Close is called.
func (l *Loop) Run() {
	defer close(l.stopped)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if l.ctx.Err() != nil {
				return
			}
			runTask(fn)
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Close stops the loop and cancels the context handed to Go functions.
func (l *Loop) Close() {
	l.cancel()
}

func runTask(fn func()) {
	defer recoverTask("task")
	fn()
}

// recoverTask keeps one failing task from taking the whole page context down.
func recoverTask(kind string) {
	if r := recover(); r != nil {
		logging.Component("runloop").Error("task_panic", "kind", kind, "panic", fmt.Sprint(r))
	}
}
