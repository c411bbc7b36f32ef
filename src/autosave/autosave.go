// Package autosave watches the clock for candle boundary crossings and
// persists just-completed candles. The AutoSaver owns all per-series state;
// the timer lives outside and drives the single Tick entry point, so the
// state machine is testable with a simulated clock.
package autosave

import (
	"sync"
	"time"

	"otc-broker/src/generator"
	"otc-broker/src/interfaces"
	"otc-broker/src/logger"
	"otc-broker/src/models"
)

// -----------------------------------------------------------------------------
// Series State
// -----------------------------------------------------------------------------

// seriesState is the only generation context carried between candles.
// prevClose advances exclusively after a successful, non-duplicate save.
type seriesState struct {
	cfg               models.MSeriesConfig
	lastObservedIndex int64
	prevClose         float64
}

// -----------------------------------------------------------------------------
// AutoSaver
// -----------------------------------------------------------------------------

type AutoSaver struct {
	Store  interfaces.ICandleStore
	Sink   interfaces.IBroadcaster // optional, may be nil
	Logger *logger.Logger

	// Now supplies the current UTC time in milliseconds; replaceable in tests.
	Now func() int64

	mu     sync.Mutex
	series map[string]*seriesState
}

// -----------------------------------------------------------------------------

func NewAutoSaver(store interfaces.ICandleStore, sink interfaces.IBroadcaster, log *logger.Logger) *AutoSaver {
	return &AutoSaver{
		Store:  store,
		Sink:   sink,
		Logger: log,
		Now:    func() int64 { return time.Now().UTC().UnixMilli() },
		series: make(map[string]*seriesState),
	}
}

// -----------------------------------------------------------------------------

// Track starts monitoring a series. Idempotent: tracking an already-tracked
// series is a no-op. The initial lastObservedIndex is the *current* index, so
// no history is backfilled or emitted at boot; prevClose resumes from the last
// persisted candle, falling back to the configured initial price.
func (s *AutoSaver) Track(cfg models.MSeriesConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cfg.Meta().Key()
	if _, ok := s.series[key]; ok {
		return nil
	}

	prevClose := cfg.InitialPrice
	latest, err := s.Store.GetLatest(cfg.Meta())
	if err != nil {
		return err
	}
	if latest != nil {
		prevClose = latest.Close
	}

	s.series[key] = &seriesState{
		cfg:               cfg,
		lastObservedIndex: generator.CandleIndex(s.Now(), cfg.TimeframeMinutes),
		prevClose:         prevClose,
	}

	s.Logger.Info("Tracking %s (timeframe: %dm, version: %s)", cfg.Symbol, cfg.TimeframeMinutes, cfg.Version)
	return nil
}

// -----------------------------------------------------------------------------

// TrackedCount reports the number of monitored series.
func (s *AutoSaver) TrackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.series)
}

// -----------------------------------------------------------------------------
// Tick
// -----------------------------------------------------------------------------

// Tick advances every tracked series to nowMs. A tick fully completes for a
// series (generate + persist + maybe broadcast + index update) before the next
// tick's logic runs, so prevClose is only ever touched by one in-flight
// operation.
func (s *AutoSaver) Tick(nowMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.series {
		s.tickSeries(st, nowMs)
	}
}

// -----------------------------------------------------------------------------

func (s *AutoSaver) tickSeries(st *seriesState, nowMs int64) {
	cfg := st.cfg
	meta := cfg.Meta()
	currentIndex := generator.CandleIndex(nowMs, cfg.TimeframeMinutes)

	if currentIndex < st.lastObservedIndex {
		// Clock moved backwards between ticks. Not recoverable here; the
		// index comparison below simply stays quiet until time catches up.
		s.Logger.Warning("Clock regression for %s: index %d < %d", meta.Key(), currentIndex, st.lastObservedIndex)
	}

	if currentIndex > st.lastObservedIndex {
		// The index before currentIndex has just closed. Only that one is
		// generated here; indices skipped in a jump are left to the bulk
		// populator (persistence keys on index, not on observation).
		completedIndex := currentIndex - 1
		startMs := generator.CandleStartTime(completedIndex, cfg.TimeframeMinutes)

		candle := generator.GenerateCandle(generator.Params{
			SeedBase:         cfg.SeedBase(),
			Index:            completedIndex,
			PrevClose:        st.prevClose,
			Volatility:       cfg.Volatility,
			TimeframeMinutes: cfg.TimeframeMinutes,
			PriceDecimals:    cfg.PriceDecimals,
			StartTimeMs:      startMs,
		})

		inserted, err := s.Store.Save(meta, candle)
		switch {
		case err != nil:
			// Store unavailable: log and keep polling. prevClose must not
			// advance on a failed save.
			s.Logger.Error("Failed to save candle %s index %d: %v", meta.Key(), completedIndex, err)

		case inserted:
			st.prevClose = candle.Close
			s.Logger.Info("Completed candle saved: %s index %d (OHLC: %v / %v / %v / %v)",
				meta.Key(), completedIndex, candle.Open, candle.High, candle.Low, candle.Close)
			if s.Sink != nil {
				s.Sink.BroadcastCandle(meta, candle)
			}
			s.cleanupPartial(meta, startMs)

		default:
			// Row already existed (previous run or bulk populate). The stored
			// value is authoritative: resynchronize prevClose from it and do
			// not broadcast.
			latest, lerr := s.Store.GetLatest(meta)
			if lerr != nil {
				s.Logger.Error("Failed to resync prevClose for %s: %v", meta.Key(), lerr)
			} else if latest != nil {
				st.prevClose = latest.Close
			}
			s.Logger.Debug("Candle already persisted: %s index %d", meta.Key(), completedIndex)
			s.cleanupPartial(meta, startMs)
		}
	}

	st.lastObservedIndex = currentIndex

	s.savePartial(st, currentIndex, nowMs)
}

// -----------------------------------------------------------------------------

// savePartial upserts the forming candle so restarts and late-connecting
// clients can render the live candle without waiting for the next boundary.
func (s *AutoSaver) savePartial(st *seriesState, currentIndex int64, nowMs int64) {
	cfg := st.cfg
	startMs := generator.CandleStartTime(currentIndex, cfg.TimeframeMinutes)

	partial := generator.GeneratePartialCandle(generator.Params{
		SeedBase:         cfg.SeedBase(),
		Index:            currentIndex,
		PrevClose:        st.prevClose,
		Volatility:       cfg.Volatility,
		TimeframeMinutes: cfg.TimeframeMinutes,
		PriceDecimals:    cfg.PriceDecimals,
		StartTimeMs:      startMs,
	}, nowMs)

	if err := s.Store.SavePartial(cfg.Meta(), partial); err != nil {
		s.Logger.Error("Failed to save partial candle for %s: %v", cfg.Meta().Key(), err)
	}
}

// -----------------------------------------------------------------------------

func (s *AutoSaver) cleanupPartial(meta models.MSeriesMeta, startTimeMs int64) {
	if err := s.Store.DeletePartial(meta, startTimeMs); err != nil {
		s.Logger.Warning("Failed to delete partial candle for %s: %v", meta.Key(), err)
	}
}
