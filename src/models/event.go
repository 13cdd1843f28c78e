package models

// -----------------------------------------------------------------------------
// Outbound events
// -----------------------------------------------------------------------------

const (
	EventCandle  = "candle"
	EventTrend   = "trend"
	EventSession = "session"
)

// MEvent is one detection result on its way to the sinks.
// Entity is one of MCandle, MTrend, MOneDStructure, MTwoDStructure, MSession.
type MEvent struct {
	Type    string
	Key     Key
	Entity  interface{}
	Publish bool
}

// MEnvelope is the broadcast wire format.
type MEnvelope struct {
	Type       string      `json:"type"`
	Symbol     string      `json:"symbol"`
	Resolution string      `json:"timerange,omitempty"`
	Value      interface{} `json:"value"`
}

// -----------------------------------------------------------------------------
// Client commands
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command   string   `json:"command"`
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
}

// -----------------------------------------------------------------------------
// Engine counters
// -----------------------------------------------------------------------------

type MEngineStats struct {
	Ingested   int64 `json:"ingested"`
	Rejected   int64 `json:"rejected"`
	Closed     int64 `json:"closed"`
	Structures int64 `json:"structures"`
	Reversals  int64 `json:"reversals"`
	Keys       int   `json:"keys"`
}
