package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"otc-broker/src/logger"
	"otc-broker/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// maxRangeRows caps GetRange result sizes.
const maxRangeRows = 10000

// -----------------------------------------------------------------------------

type SQLiteCandleStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteCandleStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteCandleStore, error) {
	return &SQLiteCandleStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) createTables() error {
	// Candle history must survive restarts: tables are created if missing,
	// never dropped. The composite primary key is the sole idempotency
	// mechanism for completed candles.
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT NOT NULL,
			timeframe_minutes INTEGER NOT NULL,
			version TEXT NOT NULL,
			start_time_ms INTEGER NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			volume REAL NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (symbol, timeframe_minutes, version, start_time_ms)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create candles: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS partial_candles (
			symbol TEXT NOT NULL,
			timeframe_minutes INTEGER NOT NULL,
			version TEXT NOT NULL,
			start_time_ms INTEGER NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			volume REAL NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (symbol, timeframe_minutes, version, start_time_ms)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create partial_candles: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Save(meta models.MSeriesMeta, candle models.MCandle) (bool, error) {
	res, err := d.DB.Exec(`
		INSERT OR IGNORE INTO candles
			(symbol, timeframe_minutes, version, start_time_ms, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, candle.StartTimeMs,
		candle.Open, candle.High, candle.Low, candle.Close, candle.Volume)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) GetRange(meta models.MSeriesMeta, startMs, endMs int64, limit int) ([]models.MCandle, error) {
	if limit <= 0 || limit > maxRangeRows {
		limit = maxRangeRows
	}

	rows, err := d.DB.Query(`
		SELECT start_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe_minutes = ? AND version = ?
			AND start_time_ms >= ? AND start_time_ms <= ?
		ORDER BY start_time_ms ASC
		LIMIT ?
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, startMs, endMs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCandles(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) GetLatest(meta models.MSeriesMeta) (*models.MCandle, error) {
	row := d.DB.QueryRow(`
		SELECT start_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe_minutes = ? AND version = ?
		ORDER BY start_time_ms DESC
		LIMIT 1
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version)

	return scanCandle(row)
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Purge(meta models.MSeriesMeta) (int64, error) {
	res, err := d.DB.Exec(`
		DELETE FROM candles
		WHERE symbol = ? AND timeframe_minutes = ? AND version = ?
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Count(meta models.MSeriesMeta) (int64, error) {
	var count int64
	err := d.DB.QueryRow(`
		SELECT COUNT(*) FROM candles
		WHERE symbol = ? AND timeframe_minutes = ? AND version = ?
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version).Scan(&count)
	return count, err
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) SavePartial(meta models.MSeriesMeta, candle models.MCandle) error {
	_, err := d.DB.Exec(`
		INSERT INTO partial_candles
			(symbol, timeframe_minutes, version, start_time_ms, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timeframe_minutes, version, start_time_ms) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			updated_at = CURRENT_TIMESTAMP
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, candle.StartTimeMs,
		candle.Open, candle.High, candle.Low, candle.Close, candle.Volume)
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) GetPartial(meta models.MSeriesMeta) (*models.MCandle, error) {
	row := d.DB.QueryRow(`
		SELECT start_time_ms, open, high, low, close, volume
		FROM partial_candles
		WHERE symbol = ? AND timeframe_minutes = ? AND version = ?
		ORDER BY start_time_ms DESC
		LIMIT 1
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version)

	candle, err := scanCandle(row)
	if candle != nil {
		candle.IsPartial = true
	}
	return candle, err
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) DeletePartial(meta models.MSeriesMeta, startTimeMs int64) error {
	_, err := d.DB.Exec(`
		DELETE FROM partial_candles
		WHERE symbol = ? AND timeframe_minutes = ? AND version = ? AND start_time_ms = ?
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, startTimeMs)
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Row Scanning Helpers (shared with the Postgres backend)
// -----------------------------------------------------------------------------

func scanCandles(rows *sql.Rows) ([]models.MCandle, error) {
	var candles []models.MCandle
	for rows.Next() {
		var c models.MCandle
		if err := rows.Scan(&c.StartTimeMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func scanCandle(row *sql.Row) (*models.MCandle, error) {
	var c models.MCandle
	err := row.Scan(&c.StartTimeMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
