package utils

import (
	"sync"
	"testing"

	"market-structure/src/models"
)

type counter struct {
	n int
}

func TestKeyStoreSerializesPerKey(t *testing.T) {
	ks := NewKeyStore(8, func(models.Key) *counter { return &counter{} })
	keys := []models.Key{
		{Symbol: "EURUSD", Resolution: "5m"},
		{Symbol: "EURUSD", Resolution: "1h"},
		{Symbol: "BTCUSD", Resolution: "5m"},
	}

	var wg sync.WaitGroup
	for _, k := range keys {
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func(k models.Key) {
				defer wg.Done()
				_ = ks.With(k, func(c *counter) error {
					c.n++
					return nil
				})
			}(k)
		}
	}
	wg.Wait()

	for _, k := range keys {
		var got int
		if !ks.View(k, func(c *counter) { got = c.n }) {
			t.Fatalf("key %s missing", k)
		}
		if got != 200 {
			t.Errorf("%s: n = %d, want 200", k, got)
		}
	}
	if ks.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ks.Len())
	}
}

func TestKeyStoreViewUnknownKey(t *testing.T) {
	ks := NewKeyStore(0, func(models.Key) *counter { return &counter{} })

	if ks.View(models.Key{Symbol: "X", Resolution: "1d"}, func(*counter) {}) {
		t.Fatal("View should report a missing key")
	}
	if ks.Len() != 0 {
		t.Fatal("View must not create keys")
	}
}

func TestKeyStoreKeysSorted(t *testing.T) {
	ks := NewKeyStore(4, func(models.Key) *counter { return &counter{} })
	for _, k := range []models.Key{{Symbol: "B", Resolution: "5m"}, {Symbol: "A", Resolution: "1h"}, {Symbol: "A", Resolution: "15m"}} {
		_ = ks.With(k, func(*counter) error { return nil })
	}

	keys := ks.Keys()
	want := []models.Key{{Symbol: "A", Resolution: "15m"}, {Symbol: "A", Resolution: "1h"}, {Symbol: "B", Resolution: "5m"}}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}
