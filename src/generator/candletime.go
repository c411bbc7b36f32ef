package generator

// -----------------------------------------------------------------------------
// Time Indexing
// -----------------------------------------------------------------------------

// TimeframeMs converts a timeframe in minutes to milliseconds.
func TimeframeMs(timeframeMinutes int) int64 {
	return int64(timeframeMinutes) * 60 * 1000
}

// CandleIndex computes the candle index covering epochMs for the given
// timeframe. Index i covers [i*period, (i+1)*period); integer arithmetic only,
// so there is no floating-point drift at large epoch values.
func CandleIndex(epochMs int64, timeframeMinutes int) int64 {
	return epochMs / TimeframeMs(timeframeMinutes)
}

// CandleStartTime is the exact inverse of CandleIndex: the UTC millisecond
// timestamp at which candle index starts.
func CandleStartTime(index int64, timeframeMinutes int) int64 {
	return index * TimeframeMs(timeframeMinutes)
}
