package vault

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arshiaxbt/Aura/internal/logging"
)

const DefaultTTL = 30 * time.Minute

// Session is an unlocked vault. Key is the vault password; it only ever
// lives in memory.
type Session struct {
	Key       string
	ExpiresAt time.Time
}

// Affordance is what the note area of a tooltip offers.
type Affordance string

const (
	AffordanceSetup  Affordance = "setup"
	AffordanceUnlock Affordance = "unlock"
	AffordanceEdit   Affordance = "edit"
)

// Event tells subscribers the session changed. Remote is set when the change
// arrived from another context.
type Event struct {
	Kind   MessageKind
	Remote bool
}

// Config configures a Manager.
type Config struct {
	TTL   time.Duration
	Clock func() time.Time
}

// Manager owns the session of one context and keeps it in step with the
// others over a Bus. It is safe for concurrent use.
type Manager struct {
	store  ValidatorStore
	bus    Bus
	origin string
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger

	mu       sync.Mutex
	session  *Session
	hasVault *bool
	subs     map[int]func(Event)
	nextSub  int
	unsub    func()
}

// NewManager creates a Manager. bus may be nil for a context that never
// shares its session.
func NewManager(store ValidatorStore, bus Bus, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	m := &Manager{
		store:  store,
		bus:    bus,
		origin: uuid.NewString(),
		ttl:    cfg.TTL,
		now:    cfg.Clock,
		log:    logging.Component("vault"),
		subs:   make(map[int]func(Event)),
	}
	if bus != nil {
		m.unsub = bus.Subscribe(m.receive)
	}
	return m
}

// Origin identifies this context on the bus.
func (m *Manager) Origin() string { return m.origin }

// Close detaches from the bus.
func (m *Manager) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// HasVault reports whether a validator has been set up.
func (m *Manager) HasVault() (bool, error) {
	m.mu.Lock()
	if m.hasVault != nil {
		v := *m.hasVault
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	_, ok, err := m.store.Load()
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	m.hasVault = &ok
	m.mu.Unlock()
	return ok, nil
}

// Setup creates the vault under password and unlocks it.
func (m *Manager) Setup(password string) error {
	if ok, err := m.HasVault(); err != nil {
		return err
	} else if ok {
		return ErrVaultExists
	}
	v, err := CreateValidator(password)
	if err != nil {
		return err
	}
	if err := m.store.Save(v); err != nil {
		return err
	}
	m.mu.Lock()
	yes := true
	m.hasVault = &yes
	m.mu.Unlock()
	m.log.Info("vault created")
	return m.Unlock(password)
}

// Unlock verifies password and starts a session, broadcasting it.
func (m *Manager) Unlock(password string) error {
	v, ok, err := m.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoVault
	}
	if !Verify(v, password) {
		return ErrWrongPassword
	}

	s := Session{Key: password, ExpiresAt: m.now().Add(m.ttl)}
	m.mu.Lock()
	m.session = &s
	yes := true
	m.hasVault = &yes
	m.mu.Unlock()

	m.publish(Message{Kind: Unlocked, Key: s.Key, ExpiresAt: s.ExpiresAt})
	m.notify(Event{Kind: Unlocked})
	return nil
}

// Lock destroys the session here and in every other context.
func (m *Manager) Lock() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	m.publish(Message{Kind: Locked})
	m.notify(Event{Kind: Locked})
}

// IsUnlocked reports whether a live session exists. An expired session is
// destroyed by the check.
func (m *Manager) IsUnlocked() bool {
	_, ok := m.CurrentKey()
	return ok
}

// CurrentKey returns the session key of a live session.
func (m *Manager) CurrentKey() (string, bool) {
	m.mu.Lock()
	s := m.session
	expired := s != nil && m.now().After(s.ExpiresAt)
	if expired {
		m.session = nil
	}
	m.mu.Unlock()

	if s == nil {
		return "", false
	}
	if expired {
		m.log.Debug("session expired")
		m.notify(Event{Kind: Locked})
		return "", false
	}
	return s.Key, true
}

// Subscribe registers fn for session changes, local and remote.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// NoteAffordance picks what the tooltip offers for notes.
func (m *Manager) NoteAffordance() Affordance {
	ok, err := m.HasVault()
	if err != nil {
		m.log.Warn("vault lookup failed", "err", err)
		return AffordanceUnlock
	}
	if !ok {
		return AffordanceSetup
	}
	if m.IsUnlocked() {
		return AffordanceEdit
	}
	return AffordanceUnlock
}

func (m *Manager) publish(msg Message) {
	if m.bus == nil {
		return
	}
	msg.Origin = m.origin
	m.bus.Publish(msg)
}

func (m *Manager) receive(msg Message) {
	if msg.Origin == m.origin {
		return
	}
	m.mu.Lock()
	switch msg.Kind {
	case Unlocked:
		if msg.Key == "" || m.now().After(msg.ExpiresAt) {
			m.mu.Unlock()
			return
		}
		m.session = &Session{Key: msg.Key, ExpiresAt: msg.ExpiresAt}
		yes := true
		m.hasVault = &yes
	case Locked:
		m.session = nil
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.notify(Event{Kind: msg.Kind, Remote: true})
}

func (m *Manager) notify(e Event) {
	m.mu.Lock()
	subs := make([]func(Event), 0, len(m.subs))
	for i := 0; i < m.nextSub; i++ {
		if fn, ok := m.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}
