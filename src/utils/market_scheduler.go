package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-structure/src/logger"

	"github.com/robfig/cron/v3"
)

// Cleaner deletes persisted rows older than a cutoff.
type Cleaner interface {
	CleanupOldData(ctx context.Context, before time.Time) error
}

// -----------------------------------------------------------------------------
// MarketScheduler owns periodic jobs (retention cleanup) and the per-symbol
// trading calendars used to skip polling closed markets.
// -----------------------------------------------------------------------------

type MarketScheduler struct {
	Cron      *cron.Cron
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, defaultMIC string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.MapSymbolsToCalendars(symbols, defaultMIC)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars maps a list of symbols to their respective calendars
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string, defaultMIC string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	byMIC := make(map[string]*TradingCalendar)
	ms.Calendars = make(map[string]*TradingCalendar)
	for _, symbol := range symbols {
		mic := MICForSymbol(symbol, defaultMIC)
		cal, ok := byMIC[mic]
		if !ok {
			cal = GetCalendar(mic)
			byMIC[mic] = cal
		}
		ms.Calendars[symbol] = cal
	}

	ms.Logger.Info("Mapped %d symbols to %d unique calendars", len(symbols), len(byMIC))
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the market of symbol is open at t. Unknown symbols
// are treated as always open.
func (ms *MarketScheduler) IsOpen(symbol string, t time.Time) bool {
	ms.mu.RLock()
	cal, ok := ms.Calendars[symbol]
	ms.mu.RUnlock()
	if !ok {
		return true
	}
	return cal.IsOpenOnMinute(t)
}

// -----------------------------------------------------------------------------

// ScheduleRetention registers a cron job deleting rows older than retentionDays
func (ms *MarketScheduler) ScheduleRetention(spec string, retentionDays int, cleaner Cleaner) error {
	if retentionDays <= 0 {
		return nil
	}

	_, err := ms.Cron.AddFunc(spec, func() {
		ms.RunRetention(context.Background(), retentionDays, cleaner)
	})
	if err != nil {
		return fmt.Errorf("register retention job: %w", err)
	}
	ms.Logger.Info("Retention cleanup scheduled (%s, keep %d days)", spec, retentionDays)
	return nil
}

// -----------------------------------------------------------------------------

// RunRetention executes one cleanup pass
func (ms *MarketScheduler) RunRetention(ctx context.Context, retentionDays int, cleaner Cleaner) {
	cutoff := RetentionCutoff(ms.now(), retentionDays)
	if err := cleaner.CleanupOldData(ctx, cutoff); err != nil {
		ms.Logger.Error("Retention cleanup failed: %v", err)
		return
	}
	ms.Logger.Info("Removed data older than %s", cutoff.Format(time.RFC3339))
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) Start() {
	ms.Cron.Start()
}

// -----------------------------------------------------------------------------

// Stop stops the cron and waits for running jobs
func (ms *MarketScheduler) Stop() {
	<-ms.Cron.Stop().Done()
}
