package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Storage  MStorageConfig  `yaml:"storage"`
	AutoSave MAutoSaveConfig `yaml:"auto_save"`
	Chart    MChartConfig    `yaml:"chart"`
	Series   []MSeriesConfig `yaml:"series"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MAutoSaveConfig struct {
	Enabled        bool `yaml:"enabled"`
	PollIntervalMs int  `yaml:"poll_interval_ms"`
}

type MChartConfig struct {
	DefaultCount int `yaml:"default_count"`
	MaxCount     int `yaml:"max_count"`
}

// MSeriesConfig describes one deterministic candle series. The value is
// immutable once loaded; changing any of symbol/timeframe/version starts a
// logically distinct series with its own prevClose lineage.
type MSeriesConfig struct {
	Symbol           string  `yaml:"symbol" json:"symbol"`
	TimeframeMinutes int     `yaml:"timeframe_minutes" json:"timeframeMinutes"`
	Version          string  `yaml:"version" json:"version"`
	InitialPrice     float64 `yaml:"initial_price" json:"initialPrice"`
	Volatility       float64 `yaml:"volatility" json:"volatility"`
	PriceDecimals    int     `yaml:"price_decimals" json:"priceDecimals"`
}
