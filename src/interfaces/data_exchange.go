package interfaces

import "otc-broker/src/models"

// -----------------------------------------------------------------------------
// IBroadcaster is the sink notified when a new candle is durably saved.
// Delivery is fire-and-forget: at most once per index per process, never
// retried if a client is unavailable.
// -----------------------------------------------------------------------------

type IBroadcaster interface {
	// BroadcastCandle pushes a candle_completed event to all listeners.
	BroadcastCandle(meta models.MSeriesMeta, candle models.MCandle)
}

// -----------------------------------------------------------------------------
// IDataExchanger is the outward-facing server surface.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	IBroadcaster

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
