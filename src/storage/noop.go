package storage

import (
	"context"
	"time"

	"market-structure/src/models"
)

// NoopDB discards everything. Used with db_type "none".
type NoopDB struct{}

func (NoopDB) Initialize(context.Context) error                              { return nil }
func (NoopDB) SaveCandle(context.Context, models.MCandle) error               { return nil }
func (NoopDB) SaveTrend(context.Context, models.MTrend) error                 { return nil }
func (NoopDB) SaveOneDStructure(context.Context, models.MOneDStructure) error { return nil }
func (NoopDB) SaveTwoDStructure(context.Context, models.MTwoDStructure) error { return nil }
func (NoopDB) SaveSession(context.Context, models.MSession) error             { return nil }
func (NoopDB) CleanupOldData(context.Context, time.Time) error                { return nil }
func (NoopDB) Close() error                                                   { return nil }
