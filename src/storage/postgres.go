package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"market-structure/src/helpers"
	"market-structure/src/logger"
	"market-structure/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresDB stores everything under a schema named after the service
type PostgresDB struct {
	sqlStore
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	schema, err := schemaName(cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresDB{
		sqlStore: sqlStore{Logger: log, stmts: newStatements(schema).rebindAll()},
		Config:   cfg,
		Schema:   schema,
	}, nil
}

// -----------------------------------------------------------------------------

// schemaName is the configured service name, or the executable name
func schemaName(cfg *models.MConfig) (string, error) {
	if cfg.Name != "" {
		return cfg.Name, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	return strings.TrimSuffix(name, filepath.Ext(name)), nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize(ctx context.Context) error {
	if err := d.connect(ctx, "postgres", d.Config.Storage.DBConnectionString); err != nil {
		return err
	}

	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("create schema %s", d.Schema), err)
	}

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB: schema %q ready", d.Schema)
	return nil
}
