//go:build js && wasm

package main

import (
	"encoding/json"
	"sync"
	"syscall/js"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

// channelBus carries vault broadcasts between page contexts over a
// BroadcastChannel. A channel never receives its own messages.
type channelBus struct {
	ch      js.Value
	onMsg   js.Func
	mu      sync.Mutex
	subs    map[int]func(vault.Message)
	nextSub int
}

func newChannelBus(name string) vault.Bus {
	ctor := js.Global().Get("BroadcastChannel")
	if ctor.IsUndefined() {
		logging.Component("vault").Warn("BroadcastChannel unavailable, session stays local")
		return vault.NewLocalBus()
	}
	b := &channelBus{ch: ctor.New(name), subs: make(map[int]func(vault.Message))}
	b.onMsg = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		data := args[0].Get("data")
		if data.Type() != js.TypeString {
			return nil
		}
		var msg vault.Message
		if err := json.Unmarshal([]byte(data.String()), &msg); err != nil {
			return nil
		}
		// subscribers may derive keys or touch storage
		go b.deliver(msg)
		return nil
	})
	b.ch.Set("onmessage", b.onMsg)
	return b
}

func (b *channelBus) Publish(msg vault.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.ch.Call("postMessage", string(data))
}

func (b *channelBus) Subscribe(fn func(vault.Message)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *channelBus) deliver(msg vault.Message) {
	b.mu.Lock()
	subs := make([]func(vault.Message), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(msg)
	}
}
