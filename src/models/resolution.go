package models

import "time"

// MResolution is one roll-up timeframe, e.g. {"5m", 5 * time.Minute}.
type MResolution struct {
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration"`
}

// Key identifies the per-(symbol, resolution) state unit.
type Key struct {
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
}

func (k Key) String() string {
	return k.Symbol + "-" + k.Resolution
}
