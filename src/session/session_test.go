package session

import (
	"sync"
	"testing"
	"time"

	"market-structure/src/logger"
	"market-structure/src/models"
	"market-structure/src/utils"
)

type recorder struct {
	mu     sync.Mutex
	events []models.MEvent
}

func (r *recorder) Emit(ev models.MEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func ms(t time.Time) int64 { return t.UnixMilli() }

// 2024-01-08 is a Monday
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		ts         time.Time
		label      string
		start, end time.Time
	}{
		{"london", at(8, 8, 0), "London Session", at(8, 7, 30), at(8, 12, 0)},
		{"new york opens at noon", at(8, 12, 0), "New York Session", at(8, 12, 0), at(8, 22, 0)},
		{"asian before midnight", at(8, 23, 0), "Asian Session", at(8, 22, 0), at(9, 7, 30)},
		{"asian after midnight", at(8, 3, 0), "Asian Session", at(7, 22, 0), at(8, 7, 30)},
		{"london opens at 07:30", at(8, 7, 30), "London Session", at(8, 7, 30), at(8, 12, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, start, end := Classify(ms(tc.ts))
			if w.Label != tc.label || start != ms(tc.start) || end != ms(tc.end) {
				t.Errorf("Classify(%s) = %s [%d, %d)", tc.ts, w.Label, start, end)
			}
		})
	}
}

func candle(ts time.Time, open, high, low, close, volume float64) models.MCandle {
	return models.MCandle{Symbol: "EURUSD", Timestamp: ms(ts), Open: open, High: high, Low: low, Close: close, Volume: volume}
}

func TestTrackerEmitsFinishedSession(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, utils.GetCalendar("xnys"), logger.Nop())

	tr.OnBaseCandle(candle(at(8, 11, 50), 1.0, 1.2, 0.9, 1.1, 5))
	tr.OnBaseCandle(candle(at(8, 11, 55), 1.1, 1.3, 1.0, 1.25, 7))
	if len(rec.events) != 0 {
		t.Fatalf("session emitted early: %+v", rec.events)
	}

	tr.OnBaseCandle(candle(at(8, 12, 0), 1.25, 1.26, 1.2, 1.22, 1))
	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Type != models.EventSession || !ev.Publish {
		t.Errorf("event = %+v", ev)
	}
	s := ev.Entity.(models.MSession)
	if s.Label != "London Session" || s.Open != 1.0 || s.High != 1.3 || s.Low != 0.9 || s.Close != 1.25 || s.Volume != 12 {
		t.Errorf("london = %+v", s)
	}
	if !s.TradingDay {
		t.Error("monday should be a trading day")
	}

	cur, ok := tr.Current("EURUSD")
	if !ok || cur.Label != "New York Session" || cur.Open != 1.25 {
		t.Errorf("current = %+v, %v", cur, ok)
	}
}

func TestTrackerWeekendAndFlush(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, utils.GetCalendar("xnys"), logger.Nop())

	// Saturday
	tr.OnBaseCandle(candle(at(13, 8, 0), 1, 1, 1, 1, 1))
	tr.OnBaseCandle(candle(at(13, 7, 0), 2, 2, 2, 2, 1))
	tr.Flush()

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	s := rec.events[0].Entity.(models.MSession)
	if s.TradingDay {
		t.Error("saturday flagged as trading day")
	}
	if s.Close != 1 {
		t.Errorf("stale candle folded into session: %+v", s)
	}
	if _, ok := tr.Current("EURUSD"); ok {
		t.Error("flush left a session open")
	}
}
