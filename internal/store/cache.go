package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache remembers decrypted plaintext per key. An entry is only served while the
// stored payload is the one it was decrypted from, so a stale entry is never
// returned after the key is overwritten.
//
// A nil *Cache is valid and caches nothing.
type Cache struct {
	items *lru.Cache[string, cached]
}

type cached struct {
	payload   string
	plaintext string
}

// NewCache returns a cache holding up to size entries, or nil when size <= 0.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	items, err := lru.New[string, cached](size)
	if err != nil {
		return nil, err
	}
	return &Cache{items: items}, nil
}

// Get returns the plaintext for key if it was decrypted from payload.
func (c *Cache) Get(key, payload string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.items.Get(key)
	if !ok || v.payload != payload {
		return "", false
	}
	return v.plaintext, true
}

func (c *Cache) Add(key, payload, plaintext string) {
	if c == nil {
		return
	}
	c.items.Add(key, cached{payload: payload, plaintext: plaintext})
}

func (c *Cache) Remove(key string) {
	if c == nil {
		return
	}
	c.items.Remove(key)
}

func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.items.Purge()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.items.Len()
}
