package interfaces

import (
	"context"

	"market-structure/src/models"
)

// -----------------------------------------------------------------------------
// IDataExchanger is a broadcast sink: it fans envelopes out to listeners.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// Name identifies the sink in logs
	Name() string

	// -----------------------------------------------------------------------------
	// Publish delivers one envelope. A failing listener must not block the others.
	Publish(ctx context.Context, envelope models.MEnvelope) error
}

// -----------------------------------------------------------------------------
// IEmitter receives detection results from the engine without blocking on I/O.
// -----------------------------------------------------------------------------

type IEmitter interface {
	Emit(event models.MEvent)
}
