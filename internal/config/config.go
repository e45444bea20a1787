package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		RateLimit   float64  `yaml:"rate_limit"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	DataSource struct {
		Provider     string `yaml:"provider"`
		AlpacaKey    string `yaml:"alpaca_key"`
		AlpacaSecret string `yaml:"alpaca_secret"`
		Proxy        string `yaml:"proxy"`
	} `yaml:"data_source"`
	Artifacts struct {
		ModelPath  string `yaml:"model_path"`
		ScalerPath string `yaml:"scaler_path"`
	} `yaml:"artifacts"`
	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RetrainCron   string `yaml:"retrain_cron"`
		RetrainSymbol string `yaml:"retrain_symbol"`
	} `yaml:"schedule"`
}

// Load reads .env (if present) and the YAML file at path, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse RATE_LIMIT: %w", err)
		}
		cfg.Server.RateLimit = limit
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.DataSource.AlpacaKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.DataSource.AlpacaSecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Artifacts.ModelPath = v
	}
	if v := os.Getenv("SCALER_PATH"); v != "" {
		cfg.Artifacts.ScalerPath = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("RETRAIN_CRON"); v != "" {
		cfg.Schedule.RetrainCron = v
	}
	if v := os.Getenv("RETRAIN_SYMBOL"); v != "" {
		cfg.Schedule.RetrainSymbol = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
		if cfg.DataSource.AlpacaKey != "" && cfg.DataSource.AlpacaSecret != "" {
			cfg.DataSource.Provider = "alpaca"
		}
	}
	if cfg.Artifacts.ModelPath == "" {
		cfg.Artifacts.ModelPath = "models/default_model.json.gz"
	}
	if cfg.Artifacts.ScalerPath == "" {
		cfg.Artifacts.ScalerPath = "scalers/default_scaler.gz"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "log.txt"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "alpaca":
		if c.DataSource.AlpacaKey == "" || c.DataSource.AlpacaSecret == "" {
			return fmt.Errorf("data_source.alpaca_key and alpaca_secret are required for the alpaca provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if (c.Schedule.RetrainCron == "") != (c.Schedule.RetrainSymbol == "") {
		return fmt.Errorf("schedule.retrain_cron and schedule.retrain_symbol must be set together")
	}
	return nil
}

// RetrainEnabled reports whether the scheduled retrain job is configured.
func (c *Config) RetrainEnabled() bool {
	return c.Schedule.RetrainCron != "" && c.Schedule.RetrainSymbol != ""
}
