package interfaces

import (
	"context"
	"sync"

	"market-structure/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource produces base candles for one or more symbols.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Symbols returns the symbols this source produces
	Symbols() []string

	// -----------------------------------------------------------------------------

	// Start begins producing candles in non-decreasing timestamp order per symbol.
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push candles to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MCandle, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source. Cancelling the Start context is equivalent.
	Stop() error
}
