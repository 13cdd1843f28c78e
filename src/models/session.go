package models

// MSession is the running OHLCV of one trading session for a symbol.
type MSession struct {
	Symbol     string  `json:"symbol"`
	Label      string  `json:"label"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	TradingDay bool    `json:"trading_day"`
}
