// Package page owns the per-page-context mutable state: one Record per
// case-folded identifier and the live marker elements referencing it. State is
// not synchronized; it is only touched from run loop tasks.
package page

import (
	"sort"

	"github.com/arshiaxbt/Aura/internal/metrics"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/reputation"
)

// DefaultCeiling is the soft cap on tracked identifiers.
const DefaultCeiling = 500

// Record is everything known about one identifier seen on the page.
type Record struct {
	// Identifier keeps the case of its first occurrence for display.
	Identifier      string
	Key             string
	Kind            identifier.Kind
	ResolvedAddress string
	// Score is nil until scored, and stays nil when the service had none.
	Score       *int
	Tier        reputation.Tier
	DisplayName string
	AvatarURL   string
	// Fetched is set once a scoring attempt completed, whatever its outcome.
	Fetched bool
	Seq     uint64
}

// SetScore updates the score and recomputes the tier.
func (r *Record) SetScore(score *int) {
	r.Score = score
	r.Tier = reputation.TierFor(score)
}

// Address is the address reputation is looked up for: the resolved address of
// a name, the key itself for a raw address.
func (r *Record) Address() string {
	if r.Kind == identifier.RawAddress {
		return r.Key
	}
	return r.ResolvedAddress
}

// State holds the identifier records and the marker registry.
type State struct {
	records map[string]*Record
	markers map[string][]dom.Node
	seq     uint64
	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *State {
	s := &State{metrics: m}
	s.Reset()
	return s
}

// Reset drops every record and marker.
func (s *State) Reset() {
	s.records = make(map[string]*Record)
	s.markers = make(map[string][]dom.Node)
	s.report()
}

// Ensure returns the record for text, creating it when absent. created
// reports whether this call created it.
func (s *State) Ensure(text string, kind identifier.Kind) (rec *Record, created bool) {
	key := identifier.Normalize(text)
	if r, ok := s.records[key]; ok {
		return r, false
	}
	s.seq++
	r := &Record{
		Identifier: text,
		Key:        key,
		Kind:       kind,
		Tier:       reputation.Unscored,
		Seq:        s.seq,
	}
	s.records[key] = r
	s.report()
	return r, true
}

// Record returns the live record under key. Callers resuming after an async
// gap must look the record up again rather than keep a pointer.
func (s *State) Record(key string) (*Record, bool) {
	r, ok := s.records[identifier.Normalize(key)]
	return r, ok
}

// Update applies fn to the record under key and reports whether it existed.
func (s *State) Update(key string, fn func(*Record)) bool {
	r, ok := s.Record(key)
	if !ok {
		return false
	}
	fn(r)
	return true
}

// Track registers a marker for key. Registering the same marker twice is a no-op.
func (s *State) Track(key string, marker dom.Node) {
	key = identifier.Normalize(key)
	for _, m := range s.markers[key] {
		if m.Same(marker) {
			return
		}
	}
	s.markers[key] = append(s.markers[key], marker)
	s.report()
}

// Markers returns the markers registered for key in registration order.
func (s *State) Markers(key string) []dom.Node {
	return s.markers[identifier.Normalize(key)]
}

// Len counts tracked records.
func (s *State) Len() int { return len(s.records) }

// MarkerCount counts registered markers across all keys.
func (s *State) MarkerCount() int {
	n := 0
	for _, ms := range s.markers {
		n += len(ms)
	}
	return n
}

// Keys lists tracked keys, oldest first.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.records[keys[i]].Seq < s.records[keys[j]].Seq })
	return keys
}

// Snapshot copies every record, oldest first.
func (s *State) Snapshot() []Record {
	out := make([]Record, 0, len(s.records))
	for _, k := range s.Keys() {
		out = append(out, *s.records[k])
	}
	return out
}

// Sweep drops markers no longer attached to the document, then every record
// left without a marker. It returns the removed keys.
func (s *State) Sweep() []string {
	var removed []string
	for key, ms := range s.markers {
		live := ms[:0]
		for _, m := range ms {
			if m.Connected() {
				live = append(live, m)
			}
		}
		for i := len(live); i < len(ms); i++ {
			ms[i] = nil
		}
		if len(live) == 0 {
			delete(s.markers, key)
			continue
		}
		s.markers[key] = live
	}
	for key := range s.records {
		if _, ok := s.markers[key]; !ok {
			delete(s.records, key)
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	s.report()
	return removed
}

// Evict drops the oldest records (and their markers) until at most ceiling
// remain. It returns the evicted keys, oldest first.
func (s *State) Evict(ceiling int) []string {
	if ceiling <= 0 || len(s.records) <= ceiling {
		return nil
	}
	keys := s.Keys()
	evicted := keys[:len(keys)-ceiling]
	for _, k := range evicted {
		delete(s.records, k)
		delete(s.markers, k)
	}
	s.metrics.Evicted(len(evicted))
	s.report()
	return evicted
}

func (s *State) report() {
	s.metrics.SetTracked(len(s.records), s.MarkerCount())
}
