package analysis

import (
	"market-structure/src/models"
	"market-structure/src/utils"

	"github.com/google/uuid"
)

// GapDetector finds fair value gaps over the last three closed candles of a key.
type GapDetector struct {
	window *utils.RingBuffer[models.MCandle]
}

// -----------------------------------------------------------------------------

func NewGapDetector() *GapDetector {
	return &GapDetector{window: utils.NewRingBuffer[models.MCandle](3)}
}

// -----------------------------------------------------------------------------

// OnClosedCandle slides the window and reports a gap stamped with c's timestamp
func (g *GapDetector) OnClosedCandle(c models.MCandle) *models.MTwoDStructure {
	g.window.Push(c)
	if !g.window.IsFull() {
		return nil
	}

	first, third := g.window.At(0), g.window.At(2)

	direction := windowDirection(g.window.Items())

	var low, high float64
	switch direction {
	case models.Bullish:
		if !(first.High < third.Low) {
			return nil
		}
		low, high = first.High, third.Low
	case models.Bearish:
		if !(first.Low > third.High) {
			return nil
		}
		low, high = third.High, first.Low
	default:
		return nil
	}

	return &models.MTwoDStructure{
		ID:         uuid.NewString(),
		Symbol:     c.Symbol,
		Resolution: c.Resolution,
		Kind:       models.FairValueGap,
		Timestamp:  c.Timestamp,
		High:       high,
		Low:        low,
		Direction:  direction,
	}
}

// -----------------------------------------------------------------------------

// windowDirection is the shared non-doji direction, or Doji when candles
// disagree or all are doji
func windowDirection(candles []models.MCandle) models.Direction {
	common := models.Doji
	for _, c := range candles {
		d := c.Direction()
		if d == models.Doji {
			continue
		}
		if common == models.Doji {
			common = d
		} else if d != common {
			return models.Doji
		}
	}
	return common
}
