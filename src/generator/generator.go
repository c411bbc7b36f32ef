// Package generator derives OHLCV candles as a pure function of seed
// material and candle index. Generating candle i never requires candles
// 0..i-1: each index reseeds independently, so the boundary-driven auto-saver
// and the bulk populator agree on every value.
package generator

import (
	"fmt"
	"math"

	"otc-broker/src/models"
	"otc-broker/src/rng"
)

// -----------------------------------------------------------------------------

// baseVolume anchors the synthetic volume scale.
const baseVolume = 100.0

// Params carries the full input of a single candle evaluation.
type Params struct {
	SeedBase         string  // "symbol|timeframe|version|" prefix
	Index            int64   // candle index for the series timeframe
	PrevClose        float64 // rounded close of candle Index-1
	Volatility       float64
	TimeframeMinutes int
	PriceDecimals    int
	StartTimeMs      int64 // must equal CandleStartTime(Index, TimeframeMinutes)
}

// -----------------------------------------------------------------------------
// Completed Candle
// -----------------------------------------------------------------------------

// GenerateCandle evaluates one completed candle.
//
// Fixed draw budget per candle: the close stream consumes one gaussian
// (2 uniforms), the intraday stream two gaussians (4 uniforms), the volume
// stream one uniform. The close is a log-normal step from PrevClose; the
// high/low excursions are non-negative, so low <= min(open,close) and
// max(open,close) <= high always hold.
func GenerateCandle(p Params) models.MCandle {
	closeRng := rng.NewSeededRNG(fmt.Sprintf("%s|candle|%d", p.SeedBase, p.Index))
	z := rng.Gaussian(closeRng)

	logReturn := z * p.Volatility * math.Sqrt(float64(p.TimeframeMinutes))
	closePrice := p.PrevClose * math.Exp(logReturn)
	openPrice := p.PrevClose

	intradayRng := rng.NewSeededRNG(fmt.Sprintf("%s|candle|%d|intraday", p.SeedBase, p.Index))
	highFactor := math.Abs(rng.Gaussian(intradayRng)) * p.Volatility * 0.3
	lowFactor := math.Abs(rng.Gaussian(intradayRng)) * p.Volatility * 0.3

	high := math.Max(openPrice, closePrice) * (1 + highFactor)
	low := math.Min(openPrice, closePrice) * (1 - lowFactor)

	volumeRng := rng.NewSeededRNG(fmt.Sprintf("%s|candle|%d|volume", p.SeedBase, p.Index))
	volume := baseVolume * (1 + volumeRng()*0.5) * (1 + math.Abs(z)*0.25)

	return models.MCandle{
		StartTimeMs: p.StartTimeMs,
		Open:        roundPrice(openPrice, p.PriceDecimals),
		High:        roundPrice(high, p.PriceDecimals),
		Low:         roundPrice(low, p.PriceDecimals),
		Close:       roundPrice(closePrice, p.PriceDecimals),
		Volume:      roundPrice(volume, 2),
	}
}

// -----------------------------------------------------------------------------
// Partial (forming) Candle
// -----------------------------------------------------------------------------

// GeneratePartialCandle evaluates the still-forming candle at serverTimeMs as
// a deterministic partial evaluation of GenerateCandle: the close is
// interpolated geometrically in log-price space toward the would-be final
// close, the intraday excursions are scaled by elapsed progress, and the
// volume accrues linearly. As progress approaches 1 the values converge to
// the completed candle, so a redrawing chart shows no jump at the boundary.
func GeneratePartialCandle(p Params, serverTimeMs int64) models.MCandle {
	target := GenerateCandle(p)

	periodMs := TimeframeMs(p.TimeframeMinutes)
	elapsed := float64(serverTimeMs - p.StartTimeMs)
	progress := math.Min(1, math.Max(0, elapsed/float64(periodMs)))

	openPrice := p.PrevClose
	closePrice := openPrice * math.Exp(progress*math.Log(target.Close/openPrice))

	intradayRng := rng.NewSeededRNG(fmt.Sprintf("%s|candle|%d|intraday", p.SeedBase, p.Index))
	highFactor := math.Abs(rng.Gaussian(intradayRng)) * p.Volatility * 0.3 * progress
	lowFactor := math.Abs(rng.Gaussian(intradayRng)) * p.Volatility * 0.3 * progress

	high := math.Max(openPrice, closePrice) * (1 + highFactor)
	low := math.Min(openPrice, closePrice) * (1 - lowFactor)

	return models.MCandle{
		StartTimeMs: p.StartTimeMs,
		Open:        roundPrice(openPrice, p.PriceDecimals),
		High:        roundPrice(high, p.PriceDecimals),
		Low:         roundPrice(low, p.PriceDecimals),
		Close:       roundPrice(closePrice, p.PriceDecimals),
		Volume:      roundPrice(target.Volume*progress, 2),
		IsPartial:   true,
	}
}

// -----------------------------------------------------------------------------
// Series Helper
// -----------------------------------------------------------------------------

// GenerateSeries produces count consecutive candles starting at startTimeMs,
// chaining each candle's rounded close into the next one's open. Used by the
// chart fallback path when storage holds no history yet.
func GenerateSeries(cfg models.MSeriesConfig, startTimeMs int64, count int) []models.MCandle {
	seedBase := cfg.SeedBase()
	periodMs := TimeframeMs(cfg.TimeframeMinutes)

	candles := make([]models.MCandle, 0, count)
	prevClose := cfg.InitialPrice

	for i := 0; i < count; i++ {
		start := startTimeMs + int64(i)*periodMs
		candle := GenerateCandle(Params{
			SeedBase:         seedBase,
			Index:            CandleIndex(start, cfg.TimeframeMinutes),
			PrevClose:        prevClose,
			Volatility:       cfg.Volatility,
			TimeframeMinutes: cfg.TimeframeMinutes,
			PriceDecimals:    cfg.PriceDecimals,
			StartTimeMs:      start,
		})
		candles = append(candles, candle)
		prevClose = candle.Close
	}

	return candles
}

// -----------------------------------------------------------------------------

// roundPrice rounds half away from zero to the given number of decimals.
func roundPrice(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}
