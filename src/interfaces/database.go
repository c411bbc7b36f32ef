package interfaces

import "otc-broker/src/models"

// -----------------------------------------------------------------------------
// ICandleStore defines the contract for candle persistence.
//
// Idempotency contract: Save is insert-or-ignore on the uniqueness key
// (symbol, timeframe, version, start_time_ms). inserted=false means the row
// already existed and is a normal, non-error outcome; the stored row stays
// authoritative. Completed candles are immutable once written.
// -----------------------------------------------------------------------------

type ICandleStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Save inserts a completed candle, ignoring duplicates. Returns whether a
	// new row was written.
	Save(meta models.MSeriesMeta, candle models.MCandle) (inserted bool, err error)

	// -----------------------------------------------------------------------------

	// GetRange returns candles with start times in [startMs, endMs], ascending,
	// at most limit rows.
	GetRange(meta models.MSeriesMeta, startMs, endMs int64, limit int) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// GetLatest returns the most recent completed candle, or nil if none.
	GetLatest(meta models.MSeriesMeta) (*models.MCandle, error)

	// -----------------------------------------------------------------------------

	// Purge removes all completed candles of a series and reports the count.
	Purge(meta models.MSeriesMeta) (int64, error)

	// -----------------------------------------------------------------------------

	// Count reports the number of completed candles stored for a series.
	Count(meta models.MSeriesMeta) (int64, error)

	// -----------------------------------------------------------------------------

	// SavePartial upserts the forming candle of a series (mutable row).
	SavePartial(meta models.MSeriesMeta, candle models.MCandle) error

	// -----------------------------------------------------------------------------

	// GetPartial returns the stored forming candle, or nil if none.
	GetPartial(meta models.MSeriesMeta) (*models.MCandle, error)

	// -----------------------------------------------------------------------------

	// DeletePartial removes the forming candle row once its index completes.
	DeletePartial(meta models.MSeriesMeta, startTimeMs int64) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
