package vault

import (
	"sync"
	"time"
)

// MessageKind distinguishes broadcast messages.
type MessageKind string

const (
	Unlocked MessageKind = "unlocked"
	Locked   MessageKind = "locked"
)

// Message is a session broadcast. Key and ExpiresAt are only set on Unlocked.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Key       string      `json:"key,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt,omitempty"`
	Origin    string      `json:"origin"`
}

// Bus delivers session broadcasts to every context. Delivery is best effort.
type Bus interface {
	Publish(msg Message)
	Subscribe(fn func(Message)) (cancel func())
}

// LocalBus is an in-process Bus. Subscribers run synchronously on the
// publishing goroutine.
type LocalBus struct {
	mu   sync.Mutex
	subs map[int]func(Message)
	next int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]func(Message))}
}

func (b *LocalBus) Publish(msg Message) {
	b.mu.Lock()
	subs := make([]func(Message), 0, len(b.subs))
	for i := 0; i < b.next; i++ {
		if fn, ok := b.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

func (b *LocalBus) Subscribe(fn func(Message)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
