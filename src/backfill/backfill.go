// Package backfill seeds candle history in bulk. It drives the same
// generator and store as the auto-saver, in a tight sequential loop over an
// index range, so out-of-order population and a live scheduler agree on every
// persisted value (duplicates are swallowed by the store's uniqueness key).
package backfill

import (
	"otc-broker/src/generator"
	"otc-broker/src/interfaces"
	"otc-broker/src/logger"
	"otc-broker/src/models"
)

// -----------------------------------------------------------------------------

// Populate generates count candles starting at startIndex and saves each with
// insert-or-ignore semantics. The prevClose lineage is local: it starts from
// the series' initial price and chains through generated closes, whether or
// not a given row was newly inserted. Returns the number of rows actually
// written.
func Populate(store interfaces.ICandleStore, cfg models.MSeriesConfig, startIndex int64, count int, log *logger.Logger) (int, error) {
	seedBase := cfg.SeedBase()
	prevClose := cfg.InitialPrice
	saved := 0

	for i := 0; i < count; i++ {
		index := startIndex + int64(i)

		candle := generator.GenerateCandle(generator.Params{
			SeedBase:         seedBase,
			Index:            index,
			PrevClose:        prevClose,
			Volatility:       cfg.Volatility,
			TimeframeMinutes: cfg.TimeframeMinutes,
			PriceDecimals:    cfg.PriceDecimals,
			StartTimeMs:      generator.CandleStartTime(index, cfg.TimeframeMinutes),
		})

		inserted, err := store.Save(cfg.Meta(), candle)
		if err != nil {
			return saved, err
		}
		if inserted {
			saved++
		}

		prevClose = candle.Close
	}

	log.Info("Backfilled %s: %d/%d candles written from index %d", cfg.Meta().Key(), saved, count, startIndex)
	return saved, nil
}

// -----------------------------------------------------------------------------

// PopulateBefore seeds count candles ending just before endMs, the common
// "fill recent history" case for charts.
func PopulateBefore(store interfaces.ICandleStore, cfg models.MSeriesConfig, endMs int64, count int, log *logger.Logger) (int, error) {
	endIndex := generator.CandleIndex(endMs, cfg.TimeframeMinutes)
	startIndex := endIndex - int64(count)
	if startIndex < 0 {
		startIndex = 0
	}
	return Populate(store, cfg, startIndex, int(endIndex-startIndex), log)
}
