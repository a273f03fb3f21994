package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CandleFeed/internal/cache"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Feed struct {
		Symbols        []string `yaml:"symbols"`
		PollInterval   string   `yaml:"poll_interval"`
		Interval       string   `yaml:"interval"`
		LookbackPeriod string   `yaml:"lookback_period"`
		PollLookback   string   `yaml:"poll_lookback"`
		FetchTimeout   string   `yaml:"fetch_timeout"`
		Concurrency    int      `yaml:"concurrency"`
	} `yaml:"feed"`
	Cache struct {
		Retention  string `yaml:"retention"`
		ZonePolicy string `yaml:"zone_policy"`
	} `yaml:"cache"`
	DataSource struct {
		Provider  string  `yaml:"provider"` // yahoo | rest | mock; empty picks rest when base_url is set
		BaseURL   string  `yaml:"base_url"`
		APIKey    string  `yaml:"api_key"`
		MockPrice float64 `yaml:"mock_price"`
	} `yaml:"data_source"`
	Portfolio struct {
		AccountSize float64 `yaml:"account_size"`
		RiskPct     float64 `yaml:"risk_pct"`
		StateFile   string  `yaml:"state_file"`
	} `yaml:"portfolio"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DigestCron string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// LoadDotEnv loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("FEED_SYMBOLS"); v != "" {
		cfg.Feed.Symbols = splitList(v)
	}
	if v := os.Getenv("FEED_POLL_INTERVAL"); v != "" {
		cfg.Feed.PollInterval = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CRON_DIGEST"); v != "" {
		cfg.Schedule.DigestCron = v
	}

	cfg.Feed.Symbols = normalizeSymbols(cfg.Feed.Symbols)

	// Defaults
	if cfg.Feed.PollInterval == "" {
		cfg.Feed.PollInterval = "60s"
	}
	if cfg.Feed.Interval == "" {
		cfg.Feed.Interval = "1d"
	}
	if cfg.Feed.LookbackPeriod == "" {
		cfg.Feed.LookbackPeriod = "6mo"
	}
	if cfg.Feed.PollLookback == "" {
		cfg.Feed.PollLookback = "2d"
	}
	if cfg.Feed.FetchTimeout == "" {
		cfg.Feed.FetchTimeout = "30s"
	}
	if cfg.Feed.Concurrency == 0 {
		cfg.Feed.Concurrency = 4
	}
	if cfg.Cache.Retention == "" {
		cfg.Cache.Retention = "180d"
	}
	if cfg.Portfolio.AccountSize == 0 {
		cfg.Portfolio.AccountSize = 100000
	}
	if cfg.Portfolio.RiskPct == 0 {
		cfg.Portfolio.RiskPct = 0.02
	}
	if cfg.Portfolio.StateFile == "" {
		cfg.Portfolio.StateFile = "data/portfolio.json"
	}
	if cfg.Schedule.DigestCron == "" {
		cfg.Schedule.DigestCron = "0 0 22 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/candlefeed.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Provider = "rest"
		}
	}

	return cfg, nil
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols is required")
	}
	if d, err := c.PollInterval(); err != nil {
		return err
	} else if d <= 0 {
		return fmt.Errorf("feed.poll_interval must be positive")
	}
	if d, err := c.FetchTimeout(); err != nil {
		return err
	} else if d <= 0 {
		return fmt.Errorf("feed.fetch_timeout must be positive")
	}
	if c.Feed.Concurrency < 0 {
		return fmt.Errorf("feed.concurrency must not be negative")
	}
	if d, err := c.Retention(); err != nil {
		return err
	} else if d <= 0 {
		return fmt.Errorf("cache.retention must be positive")
	}
	if _, err := c.ZonePolicy(); err != nil {
		return err
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.Portfolio.AccountSize <= 0 {
		return fmt.Errorf("portfolio.account_size must be positive")
	}
	if c.Portfolio.RiskPct <= 0 || c.Portfolio.RiskPct >= 1 {
		return fmt.Errorf("portfolio.risk_pct must be in (0, 1)")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// PollInterval parses feed.poll_interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return parseField("feed.poll_interval", c.Feed.PollInterval)
}

// FetchTimeout parses feed.fetch_timeout.
func (c *Config) FetchTimeout() (time.Duration, error) {
	return parseField("feed.fetch_timeout", c.Feed.FetchTimeout)
}

// Retention parses cache.retention.
func (c *Config) Retention() (time.Duration, error) {
	return parseField("cache.retention", c.Cache.Retention)
}

// ZonePolicy parses cache.zone_policy.
func (c *Config) ZonePolicy() (cache.ZonePolicy, error) {
	p, err := cache.ParseZonePolicy(c.Cache.ZonePolicy)
	if err != nil {
		return 0, fmt.Errorf("cache.zone_policy: %w", err)
	}
	return p, nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

func parseField(name, v string) (time.Duration, error) {
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// ParseDuration accepts time.ParseDuration strings plus a whole-day form
// such as "180d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func splitList(v string) []string {
	return normalizeSymbols(strings.Split(v, ","))
}

// normalizeSymbols trims and upper-cases symbols, dropping empty entries.
func normalizeSymbols(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
