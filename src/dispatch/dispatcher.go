package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-structure/src/helpers"
	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
)

// DefaultSinkTimeout bounds one persist or publish call.
const DefaultSinkTimeout = 5 * time.Second

// -----------------------------------------------------------------------------

// Dispatcher is the outbound event channel between the engine and the sinks.
// Delivery is at most once: a failing sink is logged and skipped, never retried.
type Dispatcher struct {
	Database     interfaces.IDatabase
	Broadcasters []interfaces.IDataExchanger
	ErrorHandler *helpers.ErrorHandler
	Logger       *logger.Logger
	SinkTimeout  time.Duration

	events chan models.MEvent
	done   chan struct{}

	mu      sync.RWMutex
	closed  bool
	started bool
}

// -----------------------------------------------------------------------------

// NewDispatcher builds a dispatcher. db may be nil when nothing is persisted.
func NewDispatcher(db interfaces.IDatabase, broadcasters []interfaces.IDataExchanger, buffer int, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewLogger(nil, "Dispatcher")
	}
	if buffer <= 0 {
		buffer = 1024
	}

	return &Dispatcher{
		Database:     db,
		Broadcasters: broadcasters,
		ErrorHandler: helpers.NewErrorHandler(log),
		Logger:       log,
		SinkTimeout:  DefaultSinkTimeout,
		events:       make(chan models.MEvent, buffer),
		done:         make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Start launches the delivery worker
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	go func() {
		defer close(d.done)
		for ev := range d.events {
			d.deliver(ev)
		}
	}()
}

// -----------------------------------------------------------------------------

// Emit queues an event. It blocks only while the buffer is full.
func (d *Dispatcher) Emit(ev models.MEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.Logger.Warning("Dropped %s event for %s: dispatcher closed", ev.Type, ev.Key)
		return
	}
	d.events <- ev
}

// -----------------------------------------------------------------------------

// Close stops accepting events and waits until the queue is drained
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.done
		return
	}
	for ev := range d.events {
		d.deliver(ev)
	}
}

// -----------------------------------------------------------------------------

// Pending returns the number of queued events
func (d *Dispatcher) Pending() int {
	return len(d.events)
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) deliver(ev models.MEvent) {
	if d.Database != nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.SinkTimeout)
		if err := Persist(ctx, d.Database, ev.Entity); err != nil {
			d.ErrorHandler.Handle(helpers.NewSinkError("database", err), fmt.Sprintf("persist %s %s", ev.Type, ev.Key))
		}
		cancel()
	}

	if !ev.Publish {
		return
	}

	envelope := NewEnvelope(ev)
	for _, b := range d.Broadcasters {
		ctx, cancel := context.WithTimeout(context.Background(), d.SinkTimeout)
		if err := b.Publish(ctx, envelope); err != nil {
			d.ErrorHandler.Handle(helpers.NewSinkError(b.Name(), err), fmt.Sprintf("publish %s %s", ev.Type, ev.Key))
		}
		cancel()
	}
}

// -----------------------------------------------------------------------------

// Persist routes an entity to the matching save call
func Persist(ctx context.Context, db interfaces.IDatabase, entity interface{}) error {
	switch v := entity.(type) {
	case models.MCandle:
		return db.SaveCandle(ctx, v)
	case models.MTrend:
		return db.SaveTrend(ctx, v)
	case models.MOneDStructure:
		return db.SaveOneDStructure(ctx, v)
	case models.MTwoDStructure:
		return db.SaveTwoDStructure(ctx, v)
	case models.MSession:
		return db.SaveSession(ctx, v)
	default:
		return fmt.Errorf("unsupported entity %T", entity)
	}
}

// -----------------------------------------------------------------------------

// NewEnvelope wraps an event in the {"type", "value"} broadcast format
func NewEnvelope(ev models.MEvent) models.MEnvelope {
	return models.MEnvelope{
		Type:       ev.Type,
		Symbol:     ev.Key.Symbol,
		Resolution: ev.Key.Resolution,
		Value:      ev.Entity,
	}
}
