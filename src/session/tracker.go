package session

import (
	"sort"
	"sync"
	"time"

	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
	"market-structure/src/utils"
)

// -----------------------------------------------------------------------------

// Tracker keeps the running OHLCV of the current session per symbol, built
// from base candles. A session is emitted once a candle lands outside it.
type Tracker struct {
	Emitter  interfaces.IEmitter
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger

	mu      sync.Mutex
	current map[string]*models.MSession
}

// -----------------------------------------------------------------------------

// NewTracker builds a tracker. cal may be nil, sessions are then always
// flagged as trading days.
func NewTracker(emitter interfaces.IEmitter, cal *utils.TradingCalendar, log *logger.Logger) *Tracker {
	return &Tracker{
		Emitter:  emitter,
		Calendar: cal,
		Logger:   log,
		current:  make(map[string]*models.MSession),
	}
}

// -----------------------------------------------------------------------------

// OnBaseCandle folds one validated base candle into its symbol's session
func (t *Tracker) OnBaseCandle(c models.MCandle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.current[c.Symbol]
	if cur != nil {
		switch {
		case c.Timestamp < cur.Start:
			t.Logger.Debug("%s: candle at %d predates session %s, skipped", c.Symbol, c.Timestamp, cur.Label)
			return
		case c.Timestamp < cur.End:
			if c.High > cur.High {
				cur.High = c.High
			}
			if c.Low < cur.Low {
				cur.Low = c.Low
			}
			cur.Close = c.Close
			cur.Volume += c.Volume
			return
		}
		t.emit(*cur)
	}

	w, start, end := Classify(c.Timestamp)
	t.current[c.Symbol] = &models.MSession{
		Symbol:     c.Symbol,
		Label:      w.Label,
		Start:      start,
		End:        end,
		Open:       c.Open,
		High:       c.High,
		Low:        c.Low,
		Close:      c.Close,
		Volume:     c.Volume,
		TradingDay: t.isTradingDay(end),
	}
}

// -----------------------------------------------------------------------------

// Current returns the in-progress session of a symbol
func (t *Tracker) Current(symbol string) (models.MSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.current[symbol]
	if !ok {
		return models.MSession{}, false
	}
	return *cur, true
}

// -----------------------------------------------------------------------------

// Flush emits every in-progress session, ordered by symbol. Used on shutdown.
func (t *Tracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	symbols := make([]string, 0, len(t.current))
	for s := range t.current {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, s := range symbols {
		t.emit(*t.current[s])
		delete(t.current, s)
	}
}

// -----------------------------------------------------------------------------

func (t *Tracker) emit(s models.MSession) {
	t.Emitter.Emit(models.MEvent{
		Type:    models.EventSession,
		Key:     models.Key{Symbol: s.Symbol},
		Entity:  s,
		Publish: true,
	})
}

// -----------------------------------------------------------------------------

// isTradingDay checks the calendar day on which the session closes
func (t *Tracker) isTradingDay(end int64) bool {
	if t.Calendar == nil {
		return true
	}
	return t.Calendar.IsTradingDay(time.UnixMilli(end - 1).UTC())
}
