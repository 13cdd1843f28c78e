package analysis

import (
	"sync"

	"market-structure/src/models"
)

// recorder is an IEmitter that keeps every event
type recorder struct {
	mu     sync.Mutex
	events []models.MEvent
}

func (r *recorder) Emit(event models.MEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) ofType(typ string) []models.MEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.MEvent
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// bar builds a closed 5m candle; ts is a bucket index
func bar(ts int64, open, high, low, close float64) models.MCandle {
	return models.MCandle{
		Symbol:     "EURUSD",
		Resolution: "5m",
		Timestamp:  ts,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
	}
}
