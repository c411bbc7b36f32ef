package models

import "fmt"

// SeriesKey builds the canonical "symbol|timeframe|version" key.
func SeriesKey(symbol string, timeframeMinutes int, version string) string {
	return fmt.Sprintf("%s|%d|%s", symbol, timeframeMinutes, version)
}

// SeedBase builds the seed prefix shared by every candle of a series. The
// trailing separator is load-bearing: per-candle seed strings are derived by
// appending to it, and equal bases across processes must hash identically.
func SeedBase(symbol string, timeframeMinutes int, version string) string {
	return fmt.Sprintf("%s|%d|%s|", symbol, timeframeMinutes, version)
}

// Meta returns the series identity of this configuration.
func (c MSeriesConfig) Meta() MSeriesMeta {
	return MSeriesMeta{
		Symbol:           c.Symbol,
		TimeframeMinutes: c.TimeframeMinutes,
		Version:          c.Version,
	}
}

// SeedBase returns the seed prefix for this configuration.
func (c MSeriesConfig) SeedBase() string {
	return SeedBase(c.Symbol, c.TimeframeMinutes, c.Version)
}
