package utils

import (
	"sort"
	"sync"

	"market-structure/src/models"

	"github.com/cespare/xxhash/v2"
)

// -----------------------------------------------------------------------------
// KeyStore holds one mutable state unit per (symbol, resolution) key.
// Shard locks only guard the key map; each entry has its own lock, held for
// the whole read-modify-write done in With.
// -----------------------------------------------------------------------------

type KeyStore[S any] struct {
	shards []*storeShard[S]
	init   func(models.Key) *S
}

type storeShard[S any] struct {
	mu      sync.RWMutex
	entries map[models.Key]*storeEntry[S]
}

type storeEntry[S any] struct {
	mu    sync.Mutex
	state *S
}

// -----------------------------------------------------------------------------

// NewKeyStore creates a store with n shards. init builds the state of a key
// on first use.
func NewKeyStore[S any](n int, init func(models.Key) *S) *KeyStore[S] {
	if n <= 0 {
		n = 32
	}

	shards := make([]*storeShard[S], n)
	for i := range shards {
		shards[i] = &storeShard[S]{entries: make(map[models.Key]*storeEntry[S])}
	}
	return &KeyStore[S]{shards: shards, init: init}
}

// -----------------------------------------------------------------------------

func (ks *KeyStore[S]) shardFor(key models.Key) *storeShard[S] {
	h := xxhash.Sum64String(key.String())
	return ks.shards[h%uint64(len(ks.shards))]
}

// -----------------------------------------------------------------------------

func (ks *KeyStore[S]) entry(key models.Key, create bool) *storeEntry[S] {
	sh := ks.shardFor(key)

	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok || !create {
		return e
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok = sh.entries[key]; ok {
		return e
	}
	e = &storeEntry[S]{state: ks.init(key)}
	sh.entries[key] = e
	return e
}

// -----------------------------------------------------------------------------

// With runs fn with exclusive access to the state of key, creating it if needed
func (ks *KeyStore[S]) With(key models.Key, fn func(*S) error) error {
	e := ks.entry(key, true)

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// -----------------------------------------------------------------------------

// View runs fn under the key lock if the key exists and reports whether it did
func (ks *KeyStore[S]) View(key models.Key, fn func(*S)) bool {
	e := ks.entry(key, false)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
	return true
}

// -----------------------------------------------------------------------------

// Keys returns all known keys sorted by symbol then resolution
func (ks *KeyStore[S]) Keys() []models.Key {
	var keys []models.Key
	for _, sh := range ks.shards {
		sh.mu.RLock()
		for k := range sh.entries {
			keys = append(keys, k)
		}
		sh.mu.RUnlock()
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Resolution < keys[j].Resolution
	})
	return keys
}

// -----------------------------------------------------------------------------

// Len returns the number of keys
func (ks *KeyStore[S]) Len() int {
	n := 0
	for _, sh := range ks.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
