package analysis

import (
	"context"
	"sync/atomic"

	"market-structure/src/analysis/core"
	"market-structure/src/helpers"
	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
	"market-structure/src/timeframe"
	"market-structure/src/utils"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------

// keyState is everything owned by one (symbol, resolution) key
type keyState struct {
	resampler *Resampler
	gaps      *GapDetector
	trend     *TrendMachine
	replay    *ReplayQueue
	failed    error
}

// -----------------------------------------------------------------------------

// EngineOptions tunes the engine
type EngineOptions struct {
	ReplayQueueCapacity int
	Shards              int
}

// -----------------------------------------------------------------------------

// Engine fans base candles out to one lane per resolution and runs the
// structure detectors on every closed candle.
type Engine struct {
	Registry *timeframe.Registry
	Emitter  interfaces.IEmitter
	Logger   *logger.Logger

	store *utils.KeyStore[keyState]

	ingested   atomic.Int64
	rejected   atomic.Int64
	closed     atomic.Int64
	structures atomic.Int64
	reversals  atomic.Int64
}

// -----------------------------------------------------------------------------

func NewEngine(registry *timeframe.Registry, emitter interfaces.IEmitter, opts EngineOptions, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewLogger(nil, "Engine")
	}

	e := &Engine{
		Registry: registry,
		Logger:   log,
	}
	e.Emitter = &countingEmitter{next: emitter, structures: &e.structures}

	e.store = utils.NewKeyStore(opts.Shards, func(key models.Key) *keyState {
		res, ok := registry.Lookup(key.Resolution)
		if !ok {
			return &keyState{
				trend:  NewTrendMachine(key),
				failed: helpers.NewInvariantError("%s: unknown resolution", key),
			}
		}
		return &keyState{
			resampler: NewResampler(res),
			gaps:      NewGapDetector(),
			trend:     NewTrendMachine(key),
			replay:    NewReplayQueue(key, opts.ReplayQueueCapacity, log),
		}
	})
	return e
}

// -----------------------------------------------------------------------------

// Ingest processes one base candle on every resolution lane in parallel.
// Malformed or out-of-order candles come back as *helpers.ValidationError and
// leave state untouched; a broken key returns *helpers.InvariantError.
func (e *Engine) Ingest(ctx context.Context, base models.MCandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := core.ValidateCandle(base); err != nil {
		e.rejected.Add(1)
		return &helpers.ValidationError{StructureError: helpers.StructureError{Message: "rejected base candle", Cause: err}}
	}
	base.Resolution = ""

	var g errgroup.Group
	for _, res := range e.Registry.All() {
		g.Go(func() error {
			return e.processLane(base, res)
		})
	}

	if err := g.Wait(); err != nil {
		e.rejected.Add(1)
		return err
	}
	e.ingested.Add(1)
	return nil
}

// -----------------------------------------------------------------------------

// processLane holds the key lock for the whole candle, replay included
func (e *Engine) processLane(base models.MCandle, res models.MResolution) error {
	key := models.Key{Symbol: base.Symbol, Resolution: res.Label}

	return e.store.With(key, func(st *keyState) error {
		if st.failed != nil {
			return st.failed
		}

		closed, ok, err := st.resampler.Ingest(base)
		if err != nil || !ok {
			return err
		}
		e.closed.Add(1)

		e.Emitter.Emit(models.MEvent{Type: models.EventCandle, Key: key, Entity: closed, Publish: true})

		if gap := st.gaps.OnClosedCandle(closed); gap != nil {
			e.Emitter.Emit(models.MEvent{Type: string(gap.Kind), Key: key, Entity: *gap, Publish: true})
		}

		reversals, err := st.replay.Process(closed, st.trend, e.Emitter)
		e.reversals.Add(int64(reversals))
		if err != nil {
			st.failed = err
			e.Logger.Error("%s: processing stopped: %v", key, err)
		}
		return err
	})
}

// -----------------------------------------------------------------------------

// Trend returns the live trend of a key
func (e *Engine) Trend(key models.Key) (models.MTrend, bool) {
	var (
		trend models.MTrend
		ok    bool
	)
	e.store.View(key, func(st *keyState) {
		trend, ok = st.trend.Trend()
	})
	return trend, ok
}

// -----------------------------------------------------------------------------

// LiveTrends returns every live trend, ordered by key
func (e *Engine) LiveTrends() []models.MTrend {
	var trends []models.MTrend
	for _, key := range e.store.Keys() {
		if t, ok := e.Trend(key); ok {
			trends = append(trends, t)
		}
	}
	return trends
}

// -----------------------------------------------------------------------------

// Pending returns the in-progress bucket of a key
func (e *Engine) Pending(key models.Key) (models.MCandle, bool) {
	var (
		candle models.MCandle
		ok     bool
	)
	e.store.View(key, func(st *keyState) {
		if st.resampler != nil {
			candle, ok = st.resampler.Pending()
		}
	})
	return candle, ok
}

// -----------------------------------------------------------------------------

func (e *Engine) Resolutions() []models.MResolution {
	return e.Registry.All()
}

// -----------------------------------------------------------------------------

func (e *Engine) Keys() []models.Key {
	return e.store.Keys()
}

// -----------------------------------------------------------------------------

func (e *Engine) Stats() models.MEngineStats {
	return models.MEngineStats{
		Ingested:   e.ingested.Load(),
		Rejected:   e.rejected.Load(),
		Closed:     e.closed.Load(),
		Structures: e.structures.Load(),
		Reversals:  e.reversals.Load(),
		Keys:       e.store.Len(),
	}
}

// -----------------------------------------------------------------------------

var _ interfaces.IStructureView = (*Engine)(nil)

// -----------------------------------------------------------------------------

// countingEmitter counts structure events on their way out
type countingEmitter struct {
	next       interfaces.IEmitter
	structures *atomic.Int64
}

func (c *countingEmitter) Emit(event models.MEvent) {
	switch event.Entity.(type) {
	case models.MOneDStructure, models.MTwoDStructure:
		c.structures.Add(1)
	}
	if c.next != nil {
		c.next.Emit(event)
	}
}
