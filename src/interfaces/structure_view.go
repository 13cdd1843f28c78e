package interfaces

import "market-structure/src/models"

// -----------------------------------------------------------------------------
// IStructureView is the read side of the engine, used by the HTTP and gRPC
// surfaces.
// -----------------------------------------------------------------------------

type IStructureView interface {
	Resolutions() []models.MResolution

	// Trend returns the live trend of one key
	Trend(key models.Key) (models.MTrend, bool)

	// LiveTrends returns every live trend, ordered by key
	LiveTrends() []models.MTrend

	Keys() []models.Key

	Stats() models.MEngineStats
}
