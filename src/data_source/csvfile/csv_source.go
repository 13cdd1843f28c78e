package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-structure/src/helpers"
	"market-structure/src/logger"
	"market-structure/src/models"
)

// millisThreshold separates unix seconds from unix milliseconds: any value
// above it is read as milliseconds (year 2286 in seconds).
const millisThreshold = 10_000_000_000

// -----------------------------------------------------------------------------

// CSVSource replays a file of base candles for one symbol, then stops.
// Rows are "timestamp,open,high,low,close,volume"; a header row is skipped.
type CSVSource struct {
	SourceConfig models.MSourceConfig
	Logger       *logger.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	running    bool
}

// -----------------------------------------------------------------------------

func NewCSVSource(sourceCfg models.MSourceConfig, log *logger.Logger) *CSVSource {
	return &CSVSource{SourceConfig: sourceCfg, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *CSVSource) Name() string {
	return s.SourceConfig.Name
}

func (s *CSVSource) Symbols() []string {
	return append([]string(nil), s.SourceConfig.Symbols...)
}

func (s *CSVSource) symbol() string {
	if len(s.SourceConfig.Symbols) == 0 {
		return ""
	}
	return s.SourceConfig.Symbols[0]
}

// -----------------------------------------------------------------------------

// Start opens the file and replays it in the background
func (s *CSVSource) Start(parentCtx context.Context, outputChan chan<- models.MCandle, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	f, err := os.Open(s.SourceConfig.Path)
	if err != nil {
		return helpers.NewDataSourceError(s.Name(), err)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.running = true

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer f.Close()
		defer s.finish()

		n, err := s.Replay(ctx, f, outputChan)
		switch {
		case errors.Is(err, context.Canceled):
			s.Logger.Info("CSV replay %s cancelled after %d candles", s.Name(), n)
		case err != nil:
			s.Logger.Error("CSV replay %s stopped after %d candles: %v", s.Name(), n, err)
		default:
			s.Logger.Info("CSV replay %s finished: %d candles", s.Name(), n)
		}
	}()

	s.Logger.Info("Started CSVSource: %s (%s)", s.Name(), s.SourceConfig.Path)
	return nil
}

// -----------------------------------------------------------------------------

func (s *CSVSource) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// -----------------------------------------------------------------------------

func (s *CSVSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	s.cancelFunc()
	return nil
}

// -----------------------------------------------------------------------------

// Replay parses r and pushes one candle per row. Malformed rows are logged and
// skipped; the engine rejects out-of-order rows itself.
func (s *CSVSource) Replay(ctx context.Context, r io.Reader, out chan<- models.MCandle) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	sent := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return sent, nil
		}
		if err != nil {
			return sent, helpers.NewDataSourceError(s.Name(), err)
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}

		candle, err := ParseRecord(s.symbol(), record)
		if err != nil {
			s.Logger.Warning("%s line %d skipped: %v", s.Name(), line, err)
			continue
		}

		select {
		case out <- candle:
			sent++
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
}

// -----------------------------------------------------------------------------

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseTimestamp(record[0])
	return err != nil
}

// -----------------------------------------------------------------------------

// ParseRecord turns one CSV row into a base candle
func ParseRecord(symbol string, record []string) (models.MCandle, error) {
	if len(record) < 6 {
		return models.MCandle{}, fmt.Errorf("expected 6 columns, got %d", len(record))
	}

	ts, err := parseTimestamp(record[0])
	if err != nil {
		return models.MCandle{}, err
	}

	var values [5]float64
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return models.MCandle{}, fmt.Errorf("column %d: %w", i+2, err)
		}
		values[i] = v
	}

	return models.MCandle{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

// -----------------------------------------------------------------------------

// parseTimestamp accepts RFC3339 or unix seconds / milliseconds and returns
// unix milliseconds
func parseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > millisThreshold || n < -millisThreshold {
			return n, nil
		}
		return n * 1000, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q", raw)
	}
	return t.UnixMilli(), nil
}
