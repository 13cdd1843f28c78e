package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Column types are spelled so that both postgres and sqlite accept them:
// sqlite maps BIGINT to INTEGER and DOUBLE PRECISION to REAL affinity.

// -----------------------------------------------------------------------------

// statements holds every query of the store, with "?" placeholders and table
// names already qualified by the schema prefix (empty for sqlite).
type statements struct {
	createTables []string

	insertCandle  string
	upsertTrend   string
	insertOneD    string
	insertTwoD    string
	upsertSession string

	cleanup []string
}

// -----------------------------------------------------------------------------

func newStatements(schema string) statements {
	table := func(name string) string {
		if schema == "" {
			return name
		}
		return fmt.Sprintf(`"%s"."%s"`, schema, name)
	}

	candles := table("candles")
	trends := table("trends")
	oneD := table("one_d_structures")
	twoD := table("two_d_structures")
	sessions := table("sessions")

	return statements{
		createTables: []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					symbol TEXT NOT NULL,
					resolution TEXT NOT NULL,
					timestamp BIGINT NOT NULL,
					open DOUBLE PRECISION,
					high DOUBLE PRECISION,
					low DOUBLE PRECISION,
					close DOUBLE PRECISION,
					volume DOUBLE PRECISION,
					PRIMARY KEY (symbol, resolution, timestamp)
				)`, candles),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					symbol TEXT NOT NULL,
					resolution TEXT NOT NULL,
					start_time BIGINT NOT NULL,
					end_time BIGINT,
					direction TEXT,
					high DOUBLE PRECISION,
					low DOUBLE PRECISION,
					high_time BIGINT,
					low_time BIGINT,
					relative_high DOUBLE PRECISION,
					relative_low DOUBLE PRECISION,
					PRIMARY KEY (symbol, resolution, start_time)
				)`, trends),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					symbol TEXT NOT NULL,
					resolution TEXT NOT NULL,
					kind TEXT NOT NULL,
					timestamp BIGINT NOT NULL,
					price DOUBLE PRECISION,
					direction TEXT
				)`, oneD),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					symbol TEXT NOT NULL,
					resolution TEXT NOT NULL,
					kind TEXT NOT NULL,
					timestamp BIGINT NOT NULL,
					high DOUBLE PRECISION,
					low DOUBLE PRECISION,
					direction TEXT
				)`, twoD),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					symbol TEXT NOT NULL,
					label TEXT NOT NULL,
					start_time BIGINT NOT NULL,
					end_time BIGINT,
					open DOUBLE PRECISION,
					high DOUBLE PRECISION,
					low DOUBLE PRECISION,
					close DOUBLE PRECISION,
					volume DOUBLE PRECISION,
					trading_day BOOLEAN,
					PRIMARY KEY (symbol, label, start_time)
				)`, sessions),
		},

		insertCandle: fmt.Sprintf(`
			INSERT INTO %s (symbol, resolution, timestamp, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (symbol, resolution, timestamp) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume
		`, candles),

		upsertTrend: fmt.Sprintf(`
			INSERT INTO %s (symbol, resolution, start_time, end_time, direction, high, low, high_time, low_time, relative_high, relative_low)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (symbol, resolution, start_time) DO UPDATE SET
				end_time = EXCLUDED.end_time,
				direction = EXCLUDED.direction,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				high_time = EXCLUDED.high_time,
				low_time = EXCLUDED.low_time,
				relative_high = EXCLUDED.relative_high,
				relative_low = EXCLUDED.relative_low
		`, trends),

		insertOneD: fmt.Sprintf(`
			INSERT INTO %s (id, symbol, resolution, kind, timestamp, price, direction)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, oneD),

		insertTwoD: fmt.Sprintf(`
			INSERT INTO %s (id, symbol, resolution, kind, timestamp, high, low, direction)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, twoD),

		upsertSession: fmt.Sprintf(`
			INSERT INTO %s (symbol, label, start_time, end_time, open, high, low, close, volume, trading_day)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (symbol, label, start_time) DO UPDATE SET
				end_time = EXCLUDED.end_time,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume,
				trading_day = EXCLUDED.trading_day
		`, sessions),

		cleanup: []string{
			fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", candles),
			fmt.Sprintf("DELETE FROM %s WHERE end_time < ?", trends),
			fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", oneD),
			fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", twoD),
			fmt.Sprintf("DELETE FROM %s WHERE end_time < ?", sessions),
		},
	}
}

// -----------------------------------------------------------------------------

// rebind rewrites "?" placeholders to postgres-style "$1, $2, ..."
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rebindAll applies rebind to every statement
func (s statements) rebindAll() statements {
	out := statements{
		insertCandle:  rebind(s.insertCandle),
		upsertTrend:   rebind(s.upsertTrend),
		insertOneD:    rebind(s.insertOneD),
		insertTwoD:    rebind(s.insertTwoD),
		upsertSession: rebind(s.upsertSession),
		createTables:  s.createTables,
	}
	for _, q := range s.cleanup {
		out.cleanup = append(out.cleanup, rebind(q))
	}
	return out
}
