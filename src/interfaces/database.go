package interfaces

import (
	"context"
	"time"

	"market-structure/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase is the persistence sink.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	SaveCandle(ctx context.Context, candle models.MCandle) error

	// -----------------------------------------------------------------------------

	// SaveTrend upserts on (symbol, resolution, start_time)
	SaveTrend(ctx context.Context, trend models.MTrend) error

	// -----------------------------------------------------------------------------

	SaveOneDStructure(ctx context.Context, s models.MOneDStructure) error

	// -----------------------------------------------------------------------------

	SaveTwoDStructure(ctx context.Context, s models.MTwoDStructure) error

	// -----------------------------------------------------------------------------

	SaveSession(ctx context.Context, s models.MSession) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows older than before.
	CleanupOldData(ctx context.Context, before time.Time) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
