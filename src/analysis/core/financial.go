package core

import (
	"fmt"
	"math"
	"time"

	"market-structure/src/models"
)

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the [start, end) bucket of width window
// that contains ts. Floors toward negative infinity so pre-epoch timestamps
// land in the right bucket too.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - ts%window
	if ts%window < 0 {
		start -= window
	}
	return start, start + window
}

// -----------------------------------------------------------------------------

// BucketStart snaps a unix-millisecond timestamp to its resolution bucket
func BucketStart(ts int64, d time.Duration) int64 {
	start, _ := CalculateWindowBoundaries(ts, d.Milliseconds())
	return start
}

// -----------------------------------------------------------------------------

// ValidateCandle rejects candles that cannot be folded safely
func ValidateCandle(c models.MCandle) error {
	if c.Symbol == "" {
		return fmt.Errorf("candle has no symbol")
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}, {"volume", c.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("candle %s is not finite", f.name)
		}
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle volume %.4f is negative", c.Volume)
	}
	if c.Low > c.High {
		return fmt.Errorf("candle low %.5f above high %.5f", c.Low, c.High)
	}
	if c.Open > c.High || c.Open < c.Low || c.Close > c.High || c.Close < c.Low {
		return fmt.Errorf("candle open/close outside [low, high]")
	}
	return nil
}

// -----------------------------------------------------------------------------

// Fold merges a newer candle of the same bucket into acc
func Fold(acc *models.MCandle, c models.MCandle) {
	acc.High = math.Max(acc.High, c.High)
	acc.Low = math.Min(acc.Low, c.Low)
	acc.Close = c.Close
	acc.Volume += c.Volume
}
