package storage

import (
	"fmt"

	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
)

// NewDatabase picks the backend named by storage.db_type. The returned
// database still needs Initialize.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "pgx":
		return NewPgxDB(cfg, log)
	case "none":
		return NoopDB{}, nil
	case "sqlite", "":
		return NewSQLiteDB(cfg, log)
	default:
		return nil, fmt.Errorf("unknown db_type %q", cfg.Storage.DBType)
	}
}
