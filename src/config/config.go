package config

import (
	"fmt"
	"os"

	"otc-broker/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults applied when the YAML omits optional settings.
const (
	DefaultPollIntervalMs = 1000
	DefaultChartCount     = 500
	DefaultMaxChartCount  = 10000
)

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.AutoSave.PollIntervalMs <= 0 {
		c.AutoSave.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Chart.DefaultCount <= 0 {
		c.Chart.DefaultCount = DefaultChartCount
	}
	if c.Chart.MaxCount <= 0 {
		c.Chart.MaxCount = DefaultMaxChartCount
	}
	for i := range c.Series {
		s := &c.Series[i]
		if s.Version == "" {
			s.Version = "v1"
		}
		if s.Volatility == 0 {
			s.Volatility = 0.02
		}
		if s.PriceDecimals == 0 {
			s.PriceDecimals = 5
		}
		if s.InitialPrice == 0 {
			s.InitialPrice = 100.0
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate AutoSave configuration
	if c.AutoSave.PollIntervalMs <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}

	// Validate Series configuration. The poll cadence must be materially
	// smaller than the timeframe period or boundary crossings can be missed.
	seen := make(map[string]bool)
	for i, s := range c.Series {
		if s.Symbol == "" {
			return fmt.Errorf("series %d must have a symbol", i)
		}
		if s.TimeframeMinutes <= 0 {
			return fmt.Errorf("series '%s' timeframe must be greater than 0", s.Symbol)
		}
		if s.Volatility <= 0 {
			return fmt.Errorf("series '%s' volatility must be greater than 0", s.Symbol)
		}
		if s.PriceDecimals < 0 || s.PriceDecimals > 8 {
			return fmt.Errorf("series '%s' price decimals out of range: %d", s.Symbol, s.PriceDecimals)
		}
		if s.InitialPrice <= 0 {
			return fmt.Errorf("series '%s' initial price must be greater than 0", s.Symbol)
		}
		periodMs := int64(s.TimeframeMinutes) * 60 * 1000
		if int64(c.AutoSave.PollIntervalMs)*2 > periodMs {
			return fmt.Errorf("series '%s': poll interval %dms too coarse for %dm timeframe",
				s.Symbol, c.AutoSave.PollIntervalMs, s.TimeframeMinutes)
		}
		key := s.Meta().Key()
		if seen[key] {
			return fmt.Errorf("duplicate series configuration: %s", key)
		}
		seen[key] = true
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
