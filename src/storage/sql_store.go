package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"market-structure/src/helpers"
	"market-structure/src/logger"
	"market-structure/src/models"
)

// connectTimeout bounds the startup ping retries
const connectTimeout = 30 * time.Second

// -----------------------------------------------------------------------------

// sqlStore is the database/sql side shared by the postgres and sqlite
// backends. Each save is a single statement, the dispatcher calls one per
// event.
type sqlStore struct {
	DB     *sql.DB
	Logger *logger.Logger
	stmts  statements
}

// -----------------------------------------------------------------------------

func (s *sqlStore) connect(ctx context.Context, driver, dsn string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return helpers.NewDatabaseError("open "+driver, err)
	}

	err = helpers.RetryWithBackoff(ctx, s.Logger, driver+" ping", connectTimeout, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return helpers.NewDatabaseError("connect "+driver, err)
	}

	s.DB = db
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) createTables(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range s.stmts.createTables {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return helpers.NewDatabaseError("create tables", err)
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) exec(ctx context.Context, op, query string, args ...interface{}) error {
	if s.DB == nil {
		return helpers.NewDatabaseError(op, fmt.Errorf("database not initialized"))
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return helpers.NewDatabaseError(op, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveCandle(ctx context.Context, c models.MCandle) error {
	return s.exec(ctx, "save candle", s.stmts.insertCandle,
		c.Symbol, c.Resolution, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveTrend(ctx context.Context, t models.MTrend) error {
	return s.exec(ctx, "save trend", s.stmts.upsertTrend,
		t.Symbol, t.Resolution, t.StartTime, t.EndTime, string(t.Direction),
		t.High, t.Low, t.HighTime, t.LowTime, t.RelativeHigh, t.RelativeLow)
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveOneDStructure(ctx context.Context, st models.MOneDStructure) error {
	return s.exec(ctx, "save one-d structure", s.stmts.insertOneD,
		st.ID, st.Symbol, st.Resolution, string(st.Kind), st.Timestamp, st.Price, string(st.Direction))
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveTwoDStructure(ctx context.Context, st models.MTwoDStructure) error {
	return s.exec(ctx, "save two-d structure", s.stmts.insertTwoD,
		st.ID, st.Symbol, st.Resolution, string(st.Kind), st.Timestamp, st.High, st.Low, string(st.Direction))
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveSession(ctx context.Context, ss models.MSession) error {
	return s.exec(ctx, "save session", s.stmts.upsertSession,
		ss.Symbol, ss.Label, ss.Start, ss.End, ss.Open, ss.High, ss.Low, ss.Close, ss.Volume, ss.TradingDay)
}

// -----------------------------------------------------------------------------

// CleanupOldData deletes every row older than before. A failing table is
// logged and the rest are still cleaned.
func (s *sqlStore) CleanupOldData(ctx context.Context, before time.Time) error {
	if s.DB == nil {
		return helpers.NewDatabaseError("cleanup", fmt.Errorf("database not initialized"))
	}
	cutoff := before.UnixMilli()

	var firstErr error
	var removed int64
	for _, q := range s.stmts.cleanup {
		res, err := s.DB.ExecContext(ctx, q, cutoff)
		if err != nil {
			s.Logger.Error("Cleanup error: %v", err)
			if firstErr == nil {
				firstErr = helpers.NewDatabaseError("cleanup", err)
			}
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += n
		}
	}

	s.Logger.Info("Cleanup completed: %d rows older than %s removed", removed, before.UTC().Format(time.RFC3339))
	return firstErr
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
