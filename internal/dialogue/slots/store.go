// internal/dialogue/slots/store.go

// Package slots holds the per-conversation key/value memory. One Store is
// owned by exactly one session; the session manager's per-session lock is the
// only synchronization it needs.
package slots

import (
	"riskbot-engine/internal/models"
)

// Change records a single slot mutation with the turn it happened on.
type Change struct {
	Turn  int             `json:"turn"`
	Slot  models.SlotName `json:"slot"`
	Value string          `json:"value"`
	Clear bool            `json:"clear,omitempty"`
}

// Store is a named, typed value map with last-write-wins semantics and a
// change log indexed by a monotonically increasing turn counter.
type Store struct {
	values  map[models.SlotName]string
	changes []Change
	turn    int
}

func NewStore() *Store {
	return &Store{values: make(map[models.SlotName]string)}
}

// BeginTurn advances the turn index the change log stamps mutations with.
func (s *Store) BeginTurn() int {
	s.turn++
	return s.turn
}

// Turn returns the current turn index.
func (s *Store) Turn() int { return s.turn }

// Set overwrites the current value and records the change.
func (s *Store) Set(name models.SlotName, value string) {
	s.values[name] = value
	s.changes = append(s.changes, Change{Turn: s.turn, Slot: name, Value: value})
}

// Get returns the current value and whether the slot is set.
func (s *Store) Get(name models.SlotName) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Clear unsets one slot.
func (s *Store) Clear(name models.SlotName) {
	if _, ok := s.values[name]; !ok {
		return
	}
	delete(s.values, name)
	s.changes = append(s.changes, Change{Turn: s.turn, Slot: name, Clear: true})
}

// ClearAll unsets every slot.
func (s *Store) ClearAll() {
	for name := range s.values {
		s.changes = append(s.changes, Change{Turn: s.turn, Slot: name, Clear: true})
	}
	s.values = make(map[models.SlotName]string)
}

// Snapshot returns a copy of all currently set slots.
func (s *Store) Snapshot() map[models.SlotName]string {
	out := make(map[models.SlotName]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Restore seeds the store from a previously persisted snapshot without
// logging changes. Used for carry-over after session expiry.
func (s *Store) Restore(snapshot map[models.SlotName]string) {
	for k, v := range snapshot {
		s.values[k] = v
	}
}

// Changes returns the mutation log in order.
func (s *Store) Changes() []Change {
	out := make([]Change, len(s.changes))
	copy(out, s.changes)
	return out
}
