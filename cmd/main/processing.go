package main

import (
	"context"
	"errors"

	"market-structure/src/helpers"
	"market-structure/src/logger"
	"market-structure/src/models"
)

// -----------------------------------------------------------------------------

// runIngestLoop feeds base candles to the engine until ctx is cancelled or
// every source has finished. Rejected candles are logged and skipped.
func runIngestLoop(ctx context.Context, candles <-chan models.MCandle, sourcesDone <-chan struct{}, app *pipeline, appLogger *logger.Logger) {
	appLogger.Info("Starting ingest loop...")

	for {
		select {
		case c := <-candles:
			ingest(ctx, c, app, appLogger)

		case <-sourcesDone:
			// sources are gone, drain what they left behind
			for {
				select {
				case c := <-candles:
					ingest(ctx, c, app, appLogger)
				default:
					appLogger.Info("All data sources finished.")
					return
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

func ingest(ctx context.Context, c models.MCandle, app *pipeline, appLogger *logger.Logger) {
	err := app.engine.Ingest(ctx, c)

	var validationErr *helpers.ValidationError
	var invariantErr *helpers.InvariantError
	switch {
	case err == nil:
	case errors.As(err, &validationErr):
		appLogger.Warning("Rejected candle %s@%d: %v", c.Symbol, c.Timestamp, err)
		return
	case errors.As(err, &invariantErr):
		appLogger.Error("Key disabled: %v", err)
	case errors.Is(err, context.Canceled):
		return
	default:
		appLogger.Error("Ingest failed for %s: %v", c.Symbol, err)
	}

	if app.tracker != nil {
		app.tracker.OnBaseCandle(c)
	}
}
