package autosave

import (
	"errors"
	"sort"
	"testing"

	"otc-broker/src/generator"
	"otc-broker/src/interfaces"
	"otc-broker/src/logger"
	"otc-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Test Doubles
// -----------------------------------------------------------------------------

// fakeStore keeps candles in memory with the same uniqueness semantics as the
// SQL stores: one row per (series key, start time), duplicates ignored.
type fakeStore struct {
	candles  map[string]map[int64]models.MCandle
	partials map[string]models.MCandle
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		candles:  make(map[string]map[int64]models.MCandle),
		partials: make(map[string]models.MCandle),
	}
}

func (f *fakeStore) Initialize() error { return nil }
func (f *fakeStore) Close() error      { return nil }

func (f *fakeStore) Save(meta models.MSeriesMeta, candle models.MCandle) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	key := meta.Key()
	if f.candles[key] == nil {
		f.candles[key] = make(map[int64]models.MCandle)
	}
	if _, exists := f.candles[key][candle.StartTimeMs]; exists {
		return false, nil
	}
	f.candles[key][candle.StartTimeMs] = candle
	return true, nil
}

func (f *fakeStore) GetRange(meta models.MSeriesMeta, startMs, endMs int64, limit int) ([]models.MCandle, error) {
	var out []models.MCandle
	for ts, c := range f.candles[meta.Key()] {
		if ts >= startMs && ts <= endMs {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTimeMs < out[j].StartTimeMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetLatest(meta models.MSeriesMeta) (*models.MCandle, error) {
	var latest *models.MCandle
	for ts := range f.candles[meta.Key()] {
		c := f.candles[meta.Key()][ts]
		if latest == nil || c.StartTimeMs > latest.StartTimeMs {
			latest = &c
		}
	}
	return latest, nil
}

func (f *fakeStore) Purge(meta models.MSeriesMeta) (int64, error) {
	n := int64(len(f.candles[meta.Key()]))
	delete(f.candles, meta.Key())
	return n, nil
}

func (f *fakeStore) Count(meta models.MSeriesMeta) (int64, error) {
	return int64(len(f.candles[meta.Key()])), nil
}

func (f *fakeStore) SavePartial(meta models.MSeriesMeta, candle models.MCandle) error {
	f.partials[meta.Key()] = candle
	return nil
}

func (f *fakeStore) GetPartial(meta models.MSeriesMeta) (*models.MCandle, error) {
	if c, ok := f.partials[meta.Key()]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeStore) DeletePartial(meta models.MSeriesMeta, startTimeMs int64) error {
	if c, ok := f.partials[meta.Key()]; ok && c.StartTimeMs == startTimeMs {
		delete(f.partials, meta.Key())
	}
	return nil
}

// -----------------------------------------------------------------------------

type recordingSink struct {
	events []models.MCandleEvent
}

func (r *recordingSink) BroadcastCandle(meta models.MSeriesMeta, candle models.MCandle) {
	r.events = append(r.events, models.MCandleEvent{Type: "candle_completed", Meta: meta, Candle: candle})
}

// -----------------------------------------------------------------------------
// Fixture
// -----------------------------------------------------------------------------

func testSeries() models.MSeriesConfig {
	return models.MSeriesConfig{
		Symbol:           "OTC-AAPL",
		TimeframeMinutes: 1,
		Version:          "v1",
		InitialPrice:     189.42,
		Volatility:       0.02,
		PriceDecimals:    5,
	}
}

func newTestSaver(t *testing.T, store *fakeStore, sink interfaces.IBroadcaster, nowMs int64) *AutoSaver {
	t.Helper()
	saver := NewAutoSaver(store, sink, logger.NewLogger("ERROR", "test"))
	saver.Now = func() int64 { return nowMs }
	return saver
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestTrackIsIdempotent(t *testing.T) {
	store := newFakeStore()
	saver := newTestSaver(t, store, nil, 600000)

	require.NoError(t, saver.Track(testSeries()))
	require.NoError(t, saver.Track(testSeries()))
	assert.Equal(t, 1, saver.TrackedCount())
}

func TestTrackResumesFromPersistedClose(t *testing.T) {
	store := newFakeStore()
	cfg := testSeries()
	store.Save(cfg.Meta(), models.MCandle{StartTimeMs: 540000, Open: 190, High: 191, Low: 189, Close: 190.5, Volume: 120})

	saver := newTestSaver(t, store, nil, 600000)
	require.NoError(t, saver.Track(cfg))

	// Cross one boundary; the generated candle must open at the stored close.
	saver.Tick(660000)
	latest, err := store.GetLatest(cfg.Meta())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 190.5, latest.Open)
}

func TestNoEmissionAtBoot(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	saver := newTestSaver(t, store, sink, 600500)
	require.NoError(t, saver.Track(testSeries()))

	// Several ticks inside the same candle: nothing completes.
	saver.Tick(600600)
	saver.Tick(630000)
	saver.Tick(659999)

	count, _ := store.Count(testSeries().Meta())
	assert.Equal(t, int64(0), count)
	assert.Empty(t, sink.events)
}

func TestBoundaryCrossingPersistsAndBroadcasts(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	cfg := testSeries()
	saver := newTestSaver(t, store, sink, 600000)
	require.NoError(t, saver.Track(cfg))

	saver.Tick(660500)

	count, _ := store.Count(cfg.Meta())
	require.Equal(t, int64(1), count)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, "candle_completed", event.Type)
	assert.Equal(t, cfg.Meta(), event.Meta)
	assert.Equal(t, int64(600000), event.Candle.StartTimeMs)
	assert.Equal(t, cfg.InitialPrice, event.Candle.Open)
	assert.False(t, event.Candle.IsPartial)
}

func TestMissedBoundariesAreNotBackfilled(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	cfg := testSeries()
	saver := newTestSaver(t, store, sink, 600000)
	require.NoError(t, saver.Track(cfg))

	// Jump three whole candles in one tick: only the most recently completed
	// index is generated.
	saver.Tick(600000 + 3*60000 + 500)

	count, _ := store.Count(cfg.Meta())
	require.Equal(t, int64(1), count)

	latest, _ := store.GetLatest(cfg.Meta())
	assert.Equal(t, int64(720000), latest.StartTimeMs)
	require.Len(t, sink.events, 1)
}

func TestDuplicateSaveResyncsWithoutBroadcast(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	cfg := testSeries()

	// Pre-populate the candle the saver is about to complete, with a close
	// that differs from what the tracked lineage would produce.
	pre := models.MCandle{StartTimeMs: 600000, Open: 200, High: 201, Low: 199, Close: 200.75, Volume: 100}
	store.Save(cfg.Meta(), pre)

	saver := newTestSaver(t, store, sink, 600000)
	require.NoError(t, saver.Track(cfg))

	saver.Tick(660500)

	// No event for the duplicate, and exactly one row remains.
	assert.Empty(t, sink.events)
	count, _ := store.Count(cfg.Meta())
	assert.Equal(t, int64(1), count)

	// The stored close is authoritative: the next completed candle must open
	// at 200.75, not at the lineage the saver computed on its own.
	saver.Tick(720500)
	latest, _ := store.GetLatest(cfg.Meta())
	require.NotNil(t, latest)
	assert.Equal(t, int64(660000), latest.StartTimeMs)
	assert.Equal(t, 200.75, latest.Open)
	require.Len(t, sink.events, 1)
}

func TestSaveErrorDoesNotAdvanceClose(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	cfg := testSeries()
	saver := newTestSaver(t, store, sink, 600000)
	require.NoError(t, saver.Track(cfg))

	store.saveErr = errors.New("disk full")
	saver.Tick(660500)
	assert.Empty(t, sink.events)

	// Store recovers; the next completed candle still opens at the initial
	// price because no save ever succeeded.
	store.saveErr = nil
	saver.Tick(720500)

	latest, _ := store.GetLatest(cfg.Meta())
	require.NotNil(t, latest)
	assert.Equal(t, cfg.InitialPrice, latest.Open)
	require.Len(t, sink.events, 1)
}

func TestClockRegressionStaysQuiet(t *testing.T) {
	store := newFakeStore()
	sink := &recordingSink{}
	saver := newTestSaver(t, store, sink, 600000)
	require.NoError(t, saver.Track(testSeries()))

	saver.Tick(480000) // clock jumped backwards two candles
	count, _ := store.Count(testSeries().Meta())
	assert.Equal(t, int64(0), count)
	assert.Empty(t, sink.events)
}

func TestPartialCandleIsUpserted(t *testing.T) {
	store := newFakeStore()
	cfg := testSeries()
	saver := newTestSaver(t, store, nil, 600000)
	require.NoError(t, saver.Track(cfg))

	saver.Tick(630000)

	partial, err := store.GetPartial(cfg.Meta())
	require.NoError(t, err)
	require.NotNil(t, partial)
	assert.Equal(t, int64(600000), partial.StartTimeMs)
	assert.True(t, partial.IsPartial)

	// After the boundary the stale partial is removed and replaced by the
	// new forming candle.
	saver.Tick(660500)
	partial, err = store.GetPartial(cfg.Meta())
	require.NoError(t, err)
	require.NotNil(t, partial)
	assert.Equal(t, int64(660000), partial.StartTimeMs)
}

func TestNilSinkIsAllowed(t *testing.T) {
	store := newFakeStore()
	saver := newTestSaver(t, store, nil, 600000)
	require.NoError(t, saver.Track(testSeries()))

	assert.NotPanics(t, func() { saver.Tick(660500) })
	count, _ := store.Count(testSeries().Meta())
	assert.Equal(t, int64(1), count)
}

func TestTickMatchesBulkGeneration(t *testing.T) {
	// Boundary-driven saves and direct generation agree on every value.
	store := newFakeStore()
	cfg := testSeries()
	saver := newTestSaver(t, store, nil, 600000)
	require.NoError(t, saver.Track(cfg))

	for i := int64(1); i <= 5; i++ {
		saver.Tick(600000 + i*60000 + 250)
	}

	saved, err := store.GetRange(cfg.Meta(), 0, 1000000, 0)
	require.NoError(t, err)
	require.Len(t, saved, 5)

	prevClose := cfg.InitialPrice
	for _, got := range saved {
		want := generator.GenerateCandle(generator.Params{
			SeedBase:         cfg.SeedBase(),
			Index:            generator.CandleIndex(got.StartTimeMs, cfg.TimeframeMinutes),
			PrevClose:        prevClose,
			Volatility:       cfg.Volatility,
			TimeframeMinutes: cfg.TimeframeMinutes,
			PriceDecimals:    cfg.PriceDecimals,
			StartTimeMs:      got.StartTimeMs,
		})
		require.Equal(t, want, got)
		prevClose = got.Close
	}
}
