package localstorage

import (
	"iter"
	"maps"
	"slices"
)

// Snapshot is an immutable point-in-time copy of the stored payloads.
// Payloads are as stored: codec-encoded and, with encryption on, encrypted.
type Snapshot struct {
	entries map[string]string
}

// Snapshot captures the current entries.
func (s *LocalStorage) Snapshot() *Snapshot {
	snap, _ := s.snapshot()
	return snap
}

// snapshot also returns the mutation version the copy includes. The version is
// read first, so the copy holds at least every mutation counted in it.
func (s *LocalStorage) snapshot() (*Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version := s.version.Load()
	return &Snapshot{entries: s.entries.Copy()}, version
}

func (sn *Snapshot) Len() int { return len(sn.entries) }

func (sn *Snapshot) Has(key string) bool {
	_, ok := sn.entries[key]
	return ok
}

// Payload returns the stored payload for key.
func (sn *Snapshot) Payload(key string) (string, bool) {
	p, ok := sn.entries[key]
	return p, ok
}

// Keys returns the keys sorted ascending.
func (sn *Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(sn.entries))
}

// All yields every key and payload in key order.
func (sn *Snapshot) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range sn.Keys() {
			if !yield(k, sn.entries[k]) {
				return
			}
		}
	}
}
