package runloop

import (
	"context"
	"sort"
	"time"
)

// Manual is a deterministic Scheduler driven by the caller. Go functions run
// inline; timers only fire from Advance.
type Manual struct {
	now    time.Time
	tasks  []func()
	frames []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) Post(fn func()) { m.tasks = append(m.tasks, fn) }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) NextFrame(fn func()) { m.frames = append(m.frames, fn) }

func (m *Manual) Go(fn func(ctx context.Context)) { fn(context.Background()) }

// RunTasks drains posted tasks, including tasks posted while draining.
func (m *Manual) RunTasks() {
	for len(m.tasks) > 0 {
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		runTask(fn)
	}
}

// RunFrame drains tasks, then runs the frames queued so far. It reports
// whether any frame ran.
func (m *Manual) RunFrame() bool {
	m.RunTasks()
	if len(m.frames) == 0 {
		return false
	}
	frames := m.frames
	m.frames = nil
	for _, fn := range frames {
		runTask(fn)
	}
	m.RunTasks()
	return true
}

// Flush runs tasks and frames until both queues are empty. Timers are not fired.
func (m *Manual) Flush() {
	for m.RunFrame() {
	}
}

// PendingFrames reports how many frame callbacks are queued.
func (m *Manual) PendingFrames() int { return len(m.frames) }

// PendingTimers reports how many timers are armed.
func (m *Manual) PendingTimers() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and flushing tasks and frames between them.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		m.Flush()
		t := m.nextDue(target)
		if t == nil {
			break
		}
		if t.at.After(m.now) {
			m.now = t.at
		}
		t.fired = true
		runTask(t.fn)
	}
	m.now = target
	m.Flush()
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	if len(m.timers) == 0 || m.timers[0].at.After(target) {
		return nil
	}
	return m.timers[0]
}
