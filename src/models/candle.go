package models

// -----------------------------------------------------------------------------
// Candle Data Model
// -----------------------------------------------------------------------------

// MCandle represents a single OHLCV candle. Completed candles are immutable
// once persisted; a forming candle carries IsPartial=true.
type MCandle struct {
	StartTimeMs int64   `json:"start_time_ms"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	IsPartial   bool    `json:"isPartial,omitempty"`
}

// -----------------------------------------------------------------------------

// MSeriesMeta identifies a logical candle series. Rows in storage are unique
// on (Symbol, TimeframeMinutes, Version, start_time_ms).
type MSeriesMeta struct {
	Symbol           string `json:"symbol"`
	TimeframeMinutes int    `json:"timeframeMinutes"`
	Version          string `json:"version"`
}

// Key returns the canonical series key used for tracker maps and seeds.
func (m MSeriesMeta) Key() string {
	return SeriesKey(m.Symbol, m.TimeframeMinutes, m.Version)
}

// -----------------------------------------------------------------------------
// Broadcast Event Structure
// -----------------------------------------------------------------------------

// MCandleEvent is the payload broadcast to websocket clients whenever a new
// candle is durably saved. Delivered at most once per index per process.
type MCandleEvent struct {
	Type   string      `json:"type"` // "candle_completed"
	Meta   MSeriesMeta `json:"meta"`
	Candle MCandle     `json:"candle"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command          string   `json:"command"`
	Symbols          []string `json:"symbols"`
	TimeframeMinutes int      `json:"timeframeMinutes"`
}
