package storage

import (
	"database/sql"
	"fmt"
	"time"

	"otc-broker/src/helpers"
	"otc-broker/src/logger"
	"otc-broker/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresCandleStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresCandleStore(cfg *models.MConfig, log *logger.Logger) (*PostgresCandleStore, error) {
	return &PostgresCandleStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	// The database may still be coming up alongside us.
	if err := helpers.RetryWithBackoff(d.Logger, "postgres ping", 5, time.Second, db.Ping); err != nil {
		return err
	}

	d.DB = db

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresCandleStore initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT NOT NULL,
			timeframe_minutes INTEGER NOT NULL,
			version TEXT NOT NULL,
			start_time_ms BIGINT NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
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
			start_time_ms BIGINT NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (symbol, timeframe_minutes, version, start_time_ms)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create partial_candles: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) Save(meta models.MSeriesMeta, candle models.MCandle) (bool, error) {
	res, err := d.DB.Exec(`
		INSERT INTO candles
			(symbol, timeframe_minutes, version, start_time_ms, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe_minutes, version, start_time_ms) DO NOTHING
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

func (d *PostgresCandleStore) GetRange(meta models.MSeriesMeta, startMs, endMs int64, limit int) ([]models.MCandle, error) {
	if limit <= 0 || limit > maxRangeRows {
		limit = maxRangeRows
	}

	rows, err := d.DB.Query(`
		SELECT start_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe_minutes = $2 AND version = $3
			AND start_time_ms >= $4 AND start_time_ms <= $5
		ORDER BY start_time_ms ASC
		LIMIT $6
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, startMs, endMs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCandles(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) GetLatest(meta models.MSeriesMeta) (*models.MCandle, error) {
	row := d.DB.QueryRow(`
		SELECT start_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe_minutes = $2 AND version = $3
		ORDER BY start_time_ms DESC
		LIMIT 1
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version)

	return scanCandle(row)
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) Purge(meta models.MSeriesMeta) (int64, error) {
	res, err := d.DB.Exec(`
		DELETE FROM candles
		WHERE symbol = $1 AND timeframe_minutes = $2 AND version = $3
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) Count(meta models.MSeriesMeta) (int64, error) {
	var count int64
	err := d.DB.QueryRow(`
		SELECT COUNT(*) FROM candles
		WHERE symbol = $1 AND timeframe_minutes = $2 AND version = $3
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version).Scan(&count)
	return count, err
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) SavePartial(meta models.MSeriesMeta, candle models.MCandle) error {
	_, err := d.DB.Exec(`
		INSERT INTO partial_candles
			(symbol, timeframe_minutes, version, start_time_ms, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe_minutes, version, start_time_ms) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			updated_at = NOW()
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, candle.StartTimeMs,
		candle.Open, candle.High, candle.Low, candle.Close, candle.Volume)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) GetPartial(meta models.MSeriesMeta) (*models.MCandle, error) {
	row := d.DB.QueryRow(`
		SELECT start_time_ms, open, high, low, close, volume
		FROM partial_candles
		WHERE symbol = $1 AND timeframe_minutes = $2 AND version = $3
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

func (d *PostgresCandleStore) DeletePartial(meta models.MSeriesMeta, startTimeMs int64) error {
	_, err := d.DB.Exec(`
		DELETE FROM partial_candles
		WHERE symbol = $1 AND timeframe_minutes = $2 AND version = $3 AND start_time_ms = $4
	`, meta.Symbol, meta.TimeframeMinutes, meta.Version, startTimeMs)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresCandleStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
