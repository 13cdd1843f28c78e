package session

import (
	"time"
)

// Window is a fixed daily trading session in UTC. Start and End are offsets
// from midnight; a window with End <= Start wraps past midnight.
type Window struct {
	Label string
	Start time.Duration
	End   time.Duration
}

const day = 24 * time.Hour

// Windows cover the whole day without overlap. Bounds are half-open.
var Windows = []Window{
	{Label: "Asian Session", Start: 22 * time.Hour, End: 7*time.Hour + 30*time.Minute},
	{Label: "London Session", Start: 7*time.Hour + 30*time.Minute, End: 12 * time.Hour},
	{Label: "New York Session", Start: 12 * time.Hour, End: 22 * time.Hour},
}

// -----------------------------------------------------------------------------

func (w Window) wraps() bool {
	return w.End <= w.Start
}

// contains reports whether a time-of-day offset falls in [Start, End)
func (w Window) contains(offset time.Duration) bool {
	if w.wraps() {
		return offset >= w.Start || offset < w.End
	}
	return offset >= w.Start && offset < w.End
}

// -----------------------------------------------------------------------------

// Classify returns the session a unix-millisecond timestamp belongs to, with
// the concrete [start, end) bounds of that occurrence in unix milliseconds.
func Classify(ts int64) (Window, int64, int64) {
	t := time.UnixMilli(ts).UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := t.Sub(midnight)

	for _, w := range Windows {
		if !w.contains(offset) {
			continue
		}
		start := midnight.Add(w.Start)
		end := midnight.Add(w.End)
		if w.wraps() {
			if offset >= w.Start {
				end = end.Add(day)
			} else {
				start = start.Add(-day)
			}
		}
		return w, start.UnixMilli(), end.UnixMilli()
	}

	// unreachable while Windows cover the full day
	return Window{}, ts, ts
}
