package analysis

import (
	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
	"market-structure/src/utils"
)

// -----------------------------------------------------------------------------

// ReplayQueue keeps the closed candles of a key since the last trend origin
// and replays them after a change of character.
type ReplayQueue struct {
	key     models.Key
	candles *utils.RingBuffer[models.MCandle]
	logger  *logger.Logger
	evicted int64
}

// -----------------------------------------------------------------------------

func NewReplayQueue(key models.Key, capacity int, log *logger.Logger) *ReplayQueue {
	return &ReplayQueue{
		key:     key,
		candles: utils.NewRingBuffer[models.MCandle](capacity),
		logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Process queues c, feeds it to the machine and runs the replay worklist
// until a full pass produces no further reversal. Returns the number of
// reversals handled.
func (q *ReplayQueue) Process(c models.MCandle, m *TrendMachine, emit interfaces.IEmitter) (int, error) {
	if _, evicted := q.candles.Push(c); evicted {
		q.evicted++
		if q.evicted == 1 || q.evicted%1000 == 0 {
			q.logger.Warning("%s: replay queue full, dropped %d oldest candles so far", q.key, q.evicted)
		}
	}

	rep, err := m.OnClosedCandle(c, emit)
	if err != nil {
		return 0, err
	}

	reversals := 0
	for rep != nil {
		reversals++
		work := q.rebase(rep)
		rep = nil

		for _, candle := range work {
			next, err := m.OnClosedCandle(candle, emit)
			if err != nil {
				return reversals, err
			}
			if next != nil {
				rep = next
				break
			}
		}
	}
	return reversals, nil
}

// -----------------------------------------------------------------------------

// rebase drops history up to rep.From and returns the worklist:
// the origin candle followed by everything still queued
func (q *ReplayQueue) rebase(rep *Reprocess) []models.MCandle {
	q.candles.DropWhile(func(c models.MCandle) bool {
		return c.Timestamp <= rep.From
	})

	work := make([]models.MCandle, 0, q.candles.Size()+1)
	work = append(work, rep.Origin)
	return append(work, q.candles.Items()...)
}

// -----------------------------------------------------------------------------

func (q *ReplayQueue) Len() int {
	return q.candles.Size()
}
