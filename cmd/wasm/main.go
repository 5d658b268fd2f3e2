//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"syscall/js"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/indexeddb"
	"github.com/hack-pad/hackpadfs/mem"

	"github.com/arshiaxbt/Aura/internal/config"
	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/internal/remote"
	"github.com/arshiaxbt/Aura/internal/store"
	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/conductor"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/hover"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/resolver"
	"github.com/arshiaxbt/Aura/pkg/runloop"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

// Version info
const Version = "0.3.0"

const (
	dbName      = "aura"
	channelName = "aura-vault"
	actionEvent = "aura-action"
)

// Global state
var (
	cfg      config.Config
	loop     *runloop.Loop
	doc      *dom.JSDocument
	overlay  *hover.Overlay
	pipeline *conductor.Conductor
	manager  *vault.Manager
	notes    *vault.Notes
	scorer   reputation.Scorer
	names    resolver.Resolver

	// retained so the GC never frees live callbacks
	callbacks []js.Func
)

func main() {
	cfg = config.Load()
	logging.SetLevel(os.Stdout, cfg.LogLevel)

	loop = runloop.New()
	go loop.Run()

	fs := openFS()
	vs := vault.NewFileValidatorStore(fs)
	ns, err := store.NewFSStore(fs, "")
	if err != nil {
		println("[Aura] FATAL: notes store:", err.Error())
		return
	}
	manager = vault.NewManager(vs, newChannelBus(channelName), vault.Config{TTL: cfg.VaultTTL})
	notes = vault.NewNotes(ns, manager)
	println("[Aura] WASM Ready v" + Version)

	// Register exports
	js.Global().Set("Aura", js.ValueOf(map[string]interface{}{
		"version":  fn(getVersion),
		"start":    fn(start),
		"snapshot": fn(snapshot),
		"lookup":   fn(lookup),
		"hasVault": fn(hasVault),
		"setup":    fn(setup),
		"unlock":   fn(unlock),
		"lock":     fn(lock),
		"getNote":  fn(getNote),
		"setNote":  fn(setNote),
	}))

	select {}
}

func fn(f func(this js.Value, args []js.Value) interface{}) js.Func {
	cb := js.FuncOf(f)
	callbacks = append(callbacks, cb)
	return cb
}

// openFS prefers IndexedDB and falls back to memory, e.g. in private windows.
func openFS() hackpadfs.FS {
	fs, err := indexeddb.NewFS(context.Background(), dbName, indexeddb.Options{})
	if err == nil {
		return fs
	}
	println("[Aura] indexeddb unavailable, vault will not persist:", err.Error())
	m, _ := mem.NewFS()
	return m
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// startOptions override the environment defaults from the extension.
type startOptions struct {
	ScoreAPI string `json:"scoreApi"`
	EthRPC   string `json:"ethRpc"`
	BaseRPC  string `json:"baseRpc"`
	LogLevel string `json:"logLevel"`
}

// start: [optionsJSON string (optional)]
// Builds the pipeline, runs the initial scan and starts observing the page.
func start(this js.Value, args []js.Value) interface{} {
	if pipeline != nil {
		return errorResult("already started")
	}
	if len(args) > 0 && args[0].Type() == js.TypeString {
		var opts startOptions
		if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
			return errorResult("options json: " + err.Error())
		}
		applyOptions(opts)
	}

	doc = dom.Global()
	overlay = hover.NewOverlay(doc)
	overlay.Bounds = dom.Bounds
	overlay.Viewport = doc.Viewport

	opts := func(service string) remote.Options {
		return remote.Options{Service: service, Timeout: cfg.HTTPTimeout, RateLimit: cfg.RateLimit, Retries: cfg.HTTPRetries, Backoff: cfg.HTTPBackoff}
	}
	scorer = reputation.NewClient(reputation.Config{BaseURL: cfg.ScoreAPI, Remote: opts("reputation")})
	names = resolver.Router{
		Mainnet: resolver.NewRPCResolver(resolver.RPCConfig{Endpoint: cfg.EthRPC, Registry: resolver.ENSRegistry, Remote: opts("ens")}),
		Base:    resolver.NewRPCResolver(resolver.RPCConfig{Endpoint: cfg.BaseRPC, Registry: resolver.BaseRegistry, Remote: opts("basenames")}),
	}

	loop.Post(func() {
		pipeline = conductor.New(conductor.Deps{
			Doc:      doc,
			Sched:    loop,
			Resolver: names,
			Scorer:   scorer,
			Surface:  overlay,
			Vault:    manager,
		}, conductor.ConfigFrom(cfg))
		pipeline.Start(func(markers int) {
			observe()
			listen()
		})
	})
	return successResult("started")
}

func applyOptions(o startOptions) {
	if o.ScoreAPI != "" {
		cfg.ScoreAPI = o.ScoreAPI
	}
	if o.EthRPC != "" {
		cfg.EthRPC = o.EthRPC
	}
	if o.BaseRPC != "" {
		cfg.BaseRPC = o.BaseRPC
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
		logging.SetLevel(os.Stdout, o.LogLevel)
	}
}

// observe forwards DOM mutations to the reconciler.
func observe() {
	cb := fn(func(this js.Value, args []js.Value) interface{} {
		records := args[0]
		var inserted []dom.Node
		removed := false
		for i := 0; i < records.Length(); i++ {
			r := records.Index(i)
			added := r.Get("addedNodes")
			for j := 0; j < added.Length(); j++ {
				if n := dom.Wrap(added.Index(j)); n != nil {
					inserted = append(inserted, n)
				}
			}
			if r.Get("removedNodes").Length() > 0 {
				removed = true
			}
		}
		loop.Post(func() {
			if len(inserted) > 0 {
				pipeline.Inserted(inserted...)
			}
			if removed {
				pipeline.Removed()
			}
		})
		return nil
	})
	obs := js.Global().Get("MutationObserver").New(cb)
	obs.Call("observe", dom.Value(doc.Root()), map[string]interface{}{"childList": true, "subtree": true})
}

// listen wires pointer and click events. Events inside the tooltip drive its
// own hover state; everything else is checked for markers.
func listen() {
	document := js.Global().Get("document")
	document.Call("addEventListener", "mouseover", fn(func(this js.Value, args []js.Value) interface{} {
		t := args[0].Get("target")
		loop.Post(func() {
			if inTooltip(t) {
				pipeline.TooltipEnter()
				return
			}
			pipeline.PointerEnter(dom.Wrap(t))
		})
		return nil
	}))
	document.Call("addEventListener", "mouseout", fn(func(this js.Value, args []js.Value) interface{} {
		t := args[0].Get("target")
		rel := args[0].Get("relatedTarget")
		loop.Post(func() {
			switch {
			case inTooltip(t) && !inTooltip(rel):
				pipeline.TooltipLeave()
			case !inTooltip(t):
				pipeline.PointerLeave(dom.Wrap(t))
			}
		})
		return nil
	}))
	document.Call("addEventListener", "click", fn(func(this js.Value, args []js.Value) interface{} {
		t := args[0].Get("target")
		if !inTooltip(t) {
			return nil
		}
		btn := t.Call("closest", "[data-aura-action]")
		if !btn.Truthy() {
			return nil
		}
		action := btn.Call("getAttribute", "data-aura-action").String()
		loop.Post(func() {
			v, ok := overlay.Shown()
			if !ok {
				return
			}
			detail := map[string]interface{}{"action": action, "key": v.Key, "address": v.Address}
			ev := js.Global().Get("CustomEvent").New(actionEvent, map[string]interface{}{"detail": detail})
			js.Global().Call("dispatchEvent", ev)
		})
		return nil
	}))
}

func inTooltip(v js.Value) bool {
	if !v.Truthy() || v.Get("closest").IsUndefined() {
		return false
	}
	return v.Call("closest", "["+annotate.AttrTooltip+"]").Truthy()
}

// snapshot returns the tracked records as JSON.
func snapshot(this js.Value, args []js.Value) interface{} {
	if pipeline == nil {
		return "[]"
	}
	var recs interface{}
	loop.Do(func() { recs = pipeline.Snapshot() })
	b, _ := json.Marshal(recs)
	return string(b)
}

// lookup: [query string] -> Promise<resultJSON>
func lookup(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: query")
	}
	if scorer == nil {
		return errorResult("not started")
	}
	q := args[0].String()
	return promise(func() (interface{}, error) {
		r, err := conductor.Lookup(context.Background(), names, scorer, q)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(r)
		return string(b), err
	})
}

func hasVault(this js.Value, args []js.Value) interface{} {
	return promise(func() (interface{}, error) {
		return manager.HasVault()
	})
}

// setup: [password string] -> Promise
func setup(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: password")
	}
	pw := args[0].String()
	return promise(func() (interface{}, error) {
		return "ok", manager.Setup(pw)
	})
}

// unlock: [password string] -> Promise
func unlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: password")
	}
	pw := args[0].String()
	return promise(func() (interface{}, error) {
		return "ok", manager.Unlock(pw)
	})
}

func lock(this js.Value, args []js.Value) interface{} {
	manager.Lock()
	return successResult("locked")
}

// getNote: [address string] -> Promise<string|null>
func getNote(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: address")
	}
	addr := args[0].String()
	return promise(func() (interface{}, error) {
		text, err := notes.Get(addr)
		if errors.Is(err, vault.ErrNoNote) {
			return nil, nil
		}
		return text, err
	})
}

// setNote: [address string, text string] -> Promise
func setNote(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: address, text")
	}
	addr, text := args[0].String(), args[1].String()
	return promise(func() (interface{}, error) {
		return "ok", notes.Set(addr, text)
	})
}

// promise runs work off the JS event loop; key derivation and network calls
// must never block a callback.
func promise(work func() (interface{}, error)) js.Value {
	var handler js.Func
	handler = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			defer handler.Release()
			v, err := work()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(handler)
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}

func successResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"success": true,
		"message": msg,
	})
}
