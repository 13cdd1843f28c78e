package models

import "time"

// Direction of a candle or of a market-structure move.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Doji    Direction = "doji"
)

// Opposite returns the counter direction. Doji has none.
func (d Direction) Opposite() Direction {
	switch d {
	case Bullish:
		return Bearish
	case Bearish:
		return Bullish
	}
	return Doji
}

// -----------------------------------------------------------------------------

// MCandle is an OHLCV bar. Timestamp is the bucket start in unix milliseconds.
// Base candles from a data source carry an empty Resolution.
type MCandle struct {
	Symbol     string  `json:"symbol"`
	Resolution string  `json:"timerange"`
	Timestamp  int64   `json:"timestamp"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
}

// Direction is derived from open and close.
func (c MCandle) Direction() Direction {
	switch {
	case c.Close > c.Open:
		return Bullish
	case c.Close < c.Open:
		return Bearish
	}
	return Doji
}

// Time returns the candle timestamp as UTC time.
func (c MCandle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}
