package models

// MTrend is the live directional move for one key.
type MTrend struct {
	Symbol       string    `json:"symbol"`
	Resolution   string    `json:"timerange"`
	StartTime    int64     `json:"start_time"`
	EndTime      int64     `json:"end_time"`
	Direction    Direction `json:"direction"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	HighTime     int64     `json:"high_datetime"`
	LowTime      int64     `json:"low_datetime"`
	RelativeHigh float64   `json:"relative_high"`
	RelativeLow  float64   `json:"relative_low"`
}

// MSubtrend is a counter-move inside a live trend, not yet confirmed.
// Origin is the candle that opened it and anchors a later order block.
type MSubtrend struct {
	StartTime int64     `json:"start_time"`
	Direction Direction `json:"direction"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	HighTime  int64     `json:"high_datetime"`
	LowTime   int64     `json:"low_datetime"`
	Origin    MCandle   `json:"last_candle"`
}
