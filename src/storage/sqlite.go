package storage

import (
	"context"

	"market-structure/src/logger"
	"market-structure/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	sqlStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		sqlStore: sqlStore{Logger: log, stmts: newStatements("")},
		Config:   cfg,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize(ctx context.Context) error {
	if err := d.connect(ctx, "sqlite", d.Config.Storage.DBPath); err != nil {
		return err
	}

	// single writer: the dispatcher already serializes saves
	d.DB.SetMaxOpenConns(1)

	// PRAGMA optimizations
	if _, err := d.DB.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := d.DB.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables(ctx)
}
