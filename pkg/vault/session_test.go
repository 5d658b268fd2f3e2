package vault

import (
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(t *testing.T) ValidatorStore {
	t.Helper()
	fs, err := mem.NewFS()
	require.NoError(t, err)
	return NewFileValidatorStore(fs)
}

func TestManagerSetupAndUnlock(t *testing.T) {
	m := NewManager(newStore(t), nil, Config{})

	assert.Equal(t, AffordanceSetup, m.NoteAffordance())
	assert.ErrorIs(t, m.Unlock("pw"), ErrNoVault)

	require.NoError(t, m.Setup("pw"))
	assert.True(t, m.IsUnlocked())
	assert.Equal(t, AffordanceEdit, m.NoteAffordance())
	assert.ErrorIs(t, m.Setup("other"), ErrVaultExists)

	m.Lock()
	assert.False(t, m.IsUnlocked())
	assert.Equal(t, AffordanceUnlock, m.NoteAffordance())

	assert.ErrorIs(t, m.Unlock("nope"), ErrWrongPassword)
	assert.False(t, m.IsUnlocked())

	require.NoError(t, m.Unlock("pw"))
	key, ok := m.CurrentKey()
	assert.True(t, ok)
	assert.Equal(t, "pw", key)
}

func TestManagerSessionExpires(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	m := NewManager(newStore(t), nil, Config{TTL: time.Minute, Clock: c.now})
	require.NoError(t, m.Setup("pw"))

	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })

	c.advance(time.Minute)
	assert.True(t, m.IsUnlocked(), "expiry is exclusive")

	c.advance(time.Millisecond)
	assert.False(t, m.IsUnlocked())
	assert.Equal(t, []Event{{Kind: Locked}}, events)

	assert.False(t, m.IsUnlocked())
	assert.Len(t, events, 1, "expiry is reported once")
}

func TestManagerBroadcastsAcrossContexts(t *testing.T) {
	bus := NewLocalBus()
	st := newStore(t)
	a := NewManager(st, bus, Config{})
	b := NewManager(st, bus, Config{})
	defer a.Close()
	defer b.Close()

	var aEvents, bEvents []Event
	a.Subscribe(func(e Event) { aEvents = append(aEvents, e) })
	b.Subscribe(func(e Event) { bEvents = append(bEvents, e) })

	require.NoError(t, a.Setup("pw"))
	assert.True(t, b.IsUnlocked())
	key, _ := b.CurrentKey()
	assert.Equal(t, "pw", key)
	assert.Equal(t, []Event{{Kind: Unlocked}}, aEvents, "no echo of own broadcast")
	assert.Equal(t, []Event{{Kind: Unlocked, Remote: true}}, bEvents)

	b.Lock()
	assert.False(t, a.IsUnlocked())
	assert.Equal(t, Event{Kind: Locked, Remote: true}, aEvents[len(aEvents)-1])
}

func TestManagerIgnoresStaleBroadcast(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	bus := NewLocalBus()
	m := NewManager(newStore(t), bus, Config{Clock: c.now})

	bus.Publish(Message{Kind: Unlocked, Key: "pw", ExpiresAt: c.t.Add(-time.Second), Origin: "elsewhere"})
	assert.False(t, m.IsUnlocked())

	bus.Publish(Message{Kind: Unlocked, Key: "pw", ExpiresAt: c.t.Add(time.Minute), Origin: "elsewhere"})
	assert.True(t, m.IsUnlocked())
}

func TestSubscribeCancel(t *testing.T) {
	m := NewManager(newStore(t), nil, Config{})
	calls := 0
	cancel := m.Subscribe(func(Event) { calls++ })
	cancel()
	require.NoError(t, m.Setup("pw"))
	assert.Zero(t, calls)
}
