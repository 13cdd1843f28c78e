package storage

import (
	"context"
	"fmt"
	"time"

	"market-structure/src/helpers"
	"market-structure/src/logger"
	"market-structure/src/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// -----------------------------------------------------------------------------

// PgxDB is the postgres backend on a native pgx connection pool. Same schema
// and tables as PostgresDB.
type PgxDB struct {
	Config *models.MConfig
	Pool   *pgxpool.Pool
	Schema string
	Logger *logger.Logger
	stmts  statements
}

// -----------------------------------------------------------------------------

func NewPgxDB(cfg *models.MConfig, log *logger.Logger) (*PgxDB, error) {
	schema, err := schemaName(cfg)
	if err != nil {
		return nil, err
	}
	return &PgxDB{
		Config: cfg,
		Schema: schema,
		Logger: log,
		stmts:  newStatements(schema).rebindAll(),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PgxDB) Initialize(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("parse pgx config", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return helpers.NewDatabaseError("open pgx pool", err)
	}

	err = helpers.RetryWithBackoff(ctx, d.Logger, "pgx ping", connectTimeout, func() error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return helpers.NewDatabaseError("connect pgx", err)
	}
	d.Pool = pool

	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("create schema %s", d.Schema), err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return helpers.NewDatabaseError("create tables", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range d.stmts.createTables {
		if _, err := tx.Exec(ctx, q); err != nil {
			return helpers.NewDatabaseError("create tables", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return helpers.NewDatabaseError("create tables", err)
	}

	d.Logger.Info("PgxDB: schema %q ready (max conns %d)", d.Schema, poolCfg.MaxConns)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PgxDB) exec(ctx context.Context, op, query string, args ...interface{}) error {
	if d.Pool == nil {
		return helpers.NewDatabaseError(op, fmt.Errorf("database not initialized"))
	}
	if _, err := d.Pool.Exec(ctx, query, args...); err != nil {
		return helpers.NewDatabaseError(op, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PgxDB) SaveCandle(ctx context.Context, c models.MCandle) error {
	return d.exec(ctx, "save candle", d.stmts.insertCandle,
		c.Symbol, c.Resolution, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
}

func (d *PgxDB) SaveTrend(ctx context.Context, t models.MTrend) error {
	return d.exec(ctx, "save trend", d.stmts.upsertTrend,
		t.Symbol, t.Resolution, t.StartTime, t.EndTime, string(t.Direction),
		t.High, t.Low, t.HighTime, t.LowTime, t.RelativeHigh, t.RelativeLow)
}

func (d *PgxDB) SaveOneDStructure(ctx context.Context, st models.MOneDStructure) error {
	return d.exec(ctx, "save one-d structure", d.stmts.insertOneD,
		st.ID, st.Symbol, st.Resolution, string(st.Kind), st.Timestamp, st.Price, string(st.Direction))
}

func (d *PgxDB) SaveTwoDStructure(ctx context.Context, st models.MTwoDStructure) error {
	return d.exec(ctx, "save two-d structure", d.stmts.insertTwoD,
		st.ID, st.Symbol, st.Resolution, string(st.Kind), st.Timestamp, st.High, st.Low, string(st.Direction))
}

func (d *PgxDB) SaveSession(ctx context.Context, ss models.MSession) error {
	return d.exec(ctx, "save session", d.stmts.upsertSession,
		ss.Symbol, ss.Label, ss.Start, ss.End, ss.Open, ss.High, ss.Low, ss.Close, ss.Volume, ss.TradingDay)
}

// -----------------------------------------------------------------------------

func (d *PgxDB) CleanupOldData(ctx context.Context, before time.Time) error {
	if d.Pool == nil {
		return helpers.NewDatabaseError("cleanup", fmt.Errorf("database not initialized"))
	}
	cutoff := before.UnixMilli()

	var firstErr error
	var removed int64
	for _, q := range d.stmts.cleanup {
		tag, err := d.Pool.Exec(ctx, q, cutoff)
		if err != nil {
			d.Logger.Error("Cleanup error: %v", err)
			if firstErr == nil {
				firstErr = helpers.NewDatabaseError("cleanup", err)
			}
			continue
		}
		removed += tag.RowsAffected()
	}

	d.Logger.Info("Cleanup completed: %d rows older than %s removed", removed, before.UTC().Format(time.RFC3339))
	return firstErr
}

// -----------------------------------------------------------------------------

func (d *PgxDB) Close() error {
	if d.Pool != nil {
		d.Pool.Close()
	}
	return nil
}
