package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market-structure/src/logger"
	"market-structure/src/models"
)

type fakeDB struct {
	mu      sync.Mutex
	saved   []interface{}
	failAll bool
}

func (f *fakeDB) record(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("db down")
	}
	f.saved = append(f.saved, v)
	return nil
}

func (f *fakeDB) Initialize(context.Context) error { return nil }
func (f *fakeDB) SaveCandle(_ context.Context, c models.MCandle) error {
	return f.record(c)
}
func (f *fakeDB) SaveTrend(_ context.Context, t models.MTrend) error {
	return f.record(t)
}
func (f *fakeDB) SaveOneDStructure(_ context.Context, s models.MOneDStructure) error {
	return f.record(s)
}
func (f *fakeDB) SaveTwoDStructure(_ context.Context, s models.MTwoDStructure) error {
	return f.record(s)
}
func (f *fakeDB) SaveSession(_ context.Context, s models.MSession) error {
	return f.record(s)
}
func (f *fakeDB) CleanupOldData(context.Context, time.Time) error { return nil }
func (f *fakeDB) Close() error                                    { return nil }

type fakeBroadcaster struct {
	name string
	fail bool

	mu        sync.Mutex
	envelopes []models.MEnvelope
}

func (f *fakeBroadcaster) Name() string { return f.name }

func (f *fakeBroadcaster) Publish(_ context.Context, env models.MEnvelope) error {
	if f.fail {
		return errors.New("listener gone")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = append(f.envelopes, env)
	return nil
}

var key = models.Key{Symbol: "EURUSD", Resolution: "5m"}

func TestDispatcherPersistsAndPublishes(t *testing.T) {
	db := &fakeDB{}
	ws := &fakeBroadcaster{name: "ws"}
	d := NewDispatcher(db, nil, 8, logger.Nop())
	d.Broadcasters = append(d.Broadcasters, ws)
	d.Start()

	d.Emit(models.MEvent{Type: models.EventCandle, Key: key, Entity: models.MCandle{Symbol: "EURUSD"}, Publish: true})
	d.Emit(models.MEvent{Type: models.EventTrend, Key: key, Entity: models.MTrend{Symbol: "EURUSD"}})
	d.Close()

	if len(db.saved) != 2 {
		t.Fatalf("persisted %d entities, want 2", len(db.saved))
	}
	if len(ws.envelopes) != 1 {
		t.Fatalf("published %d envelopes, want 1 (live trends are not broadcast)", len(ws.envelopes))
	}
	env := ws.envelopes[0]
	if env.Type != "candle" || env.Symbol != "EURUSD" || env.Resolution != "5m" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestDispatcherIsolatesSinkFailures(t *testing.T) {
	db := &fakeDB{failAll: true}
	broken := &fakeBroadcaster{name: "broken", fail: true}
	healthy := &fakeBroadcaster{name: "healthy"}
	d := NewDispatcher(db, nil, 8, logger.Nop())
	d.Broadcasters = append(d.Broadcasters, broken, healthy)
	d.Start()

	for i := 0; i < 3; i++ {
		d.Emit(models.MEvent{
			Type:    string(models.FairValueGap),
			Key:     key,
			Entity:  models.MTwoDStructure{Kind: models.FairValueGap},
			Publish: true,
		})
	}
	d.Close()

	if len(healthy.envelopes) != 3 {
		t.Fatalf("healthy listener got %d envelopes, want 3", len(healthy.envelopes))
	}
	// 3 persistence failures + 3 broken publishes
	if got := d.ErrorHandler.ErrorCount(); got != 6 {
		t.Errorf("ErrorCount() = %d, want 6", got)
	}
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	db := &fakeDB{}
	d := NewDispatcher(db, nil, 1, logger.Nop())

	// not started: Close drains inline
	d.Emit(models.MEvent{Type: models.EventCandle, Key: key, Entity: models.MCandle{}})
	d.Close()
	d.Emit(models.MEvent{Type: models.EventCandle, Key: key, Entity: models.MCandle{}})
	d.Close()

	if len(db.saved) != 1 {
		t.Fatalf("saved %d, want 1", len(db.saved))
	}
}

func TestPersistRejectsUnknownEntity(t *testing.T) {
	if err := Persist(context.Background(), &fakeDB{}, 42); err == nil {
		t.Fatal("expected error for unsupported entity")
	}
}
