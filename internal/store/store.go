// Package store implements the in-memory entry map of a local storage and its
// on-disk document.
//
// The document is a single JSON object mapping key to payload:
//
//	{"greeting":"\"hello\"","count":"42"}
//
// Payloads are opaque strings at this layer. The whole document is rewritten on
// every save; nothing is ever appended.
package store

import (
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// Entries maps keys to payloads. It is safe for concurrent use.
type Entries struct {
	m *xsync.MapOf[string, string]
}

// NewEntries returns an empty entry map.
func NewEntries() *Entries {
	return &Entries{m: xsync.NewMapOf[string, string]()}
}

// EntriesFrom returns an entry map holding a copy of src.
func EntriesFrom(src map[string]string) *Entries {
	e := &Entries{m: xsync.NewMapOf[string, string](xsync.WithPresize(len(src)))}
	for k, v := range src {
		e.m.Store(k, v)
	}
	return e
}

func (e *Entries) Get(key string) (string, bool) { return e.m.Load(key) }

// Set replaces any payload stored under key.
func (e *Entries) Set(key, payload string) { e.m.Store(key, payload) }

// Delete removes key and reports whether it was present.
func (e *Entries) Delete(key string) bool {
	_, ok := e.m.LoadAndDelete(key)
	return ok
}

func (e *Entries) Has(key string) bool {
	_, ok := e.m.Load(key)
	return ok
}

func (e *Entries) Len() int { return e.m.Size() }

// Keys returns all keys sorted ascending.
func (e *Entries) Keys() []string {
	keys := make([]string, 0, e.m.Size())
	e.m.Range(func(k, _ string) bool {
		keys = append(keys, k)
		return true
	})
	slices.Sort(keys)
	return keys
}

// Copy returns a plain map holding every entry.
func (e *Entries) Copy() map[string]string {
	out := make(map[string]string, e.m.Size())
	e.m.Range(func(k, v string) bool {
		out[k] = v
		return true
	})
	return out
}
