package analysis

import (
	"market-structure/src/analysis/core"
	"market-structure/src/helpers"
	"market-structure/src/models"
)

// -----------------------------------------------------------------------------

// Resampler rolls base candles up into one resolution for one symbol.
// Callers must hold the key lock.
type Resampler struct {
	Resolution models.MResolution
	acc        *models.MCandle
	lastBase   int64
	seen       bool
}

// -----------------------------------------------------------------------------

func NewResampler(res models.MResolution) *Resampler {
	return &Resampler{Resolution: res}
}

// -----------------------------------------------------------------------------

// Ingest folds c into the open bucket. When c falls at or past the end of
// that bucket the finished candle is returned and c opens the next one.
func (r *Resampler) Ingest(c models.MCandle) (models.MCandle, bool, error) {
	if r.seen && c.Timestamp < r.lastBase {
		return models.MCandle{}, false, helpers.NewValidationError(
			"%s %s: candle at %d is older than %d", c.Symbol, r.Resolution.Label, c.Timestamp, r.lastBase)
	}
	r.lastBase, r.seen = c.Timestamp, true

	d := r.Resolution.Duration.Milliseconds()

	if r.acc == nil {
		r.acc = r.open(c)
		return models.MCandle{}, false, nil
	}

	// boundary instant belongs to the new bucket
	if r.acc.Timestamp+d > c.Timestamp {
		core.Fold(r.acc, c)
		return models.MCandle{}, false, nil
	}

	closed := *r.acc
	r.acc = r.open(c)
	return closed, true, nil
}

// -----------------------------------------------------------------------------

func (r *Resampler) open(c models.MCandle) *models.MCandle {
	acc := c
	acc.Resolution = r.Resolution.Label
	acc.Timestamp = core.BucketStart(c.Timestamp, r.Resolution.Duration)
	return &acc
}

// -----------------------------------------------------------------------------

// Pending returns a copy of the in-progress bucket
func (r *Resampler) Pending() (models.MCandle, bool) {
	if r.acc == nil {
		return models.MCandle{}, false
	}
	return *r.acc, true
}
