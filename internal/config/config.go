package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dmoloce/stock-ta-ai/internal/indicator"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider string        `yaml:"provider"` // yahoo, rest or mock
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		Ticker   string        `yaml:"ticker"`
		Start    string        `yaml:"start"`
		End      string        `yaml:"end"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"data_source"`
	Indicators []string `yaml:"indicators"`
	Analyst    struct {
		Provider string        `yaml:"provider"` // ollama or openai
		BaseURL  string        `yaml:"base_url"`
		Model    string        `yaml:"model"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"analyst"`
	Chart struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"chart"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Watch struct {
		Cron         string   `yaml:"cron"`
		Tickers      []string `yaml:"tickers"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"watch"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

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
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("TICKER"); v != "" {
		cfg.DataSource.Ticker = v
	}
	if v := os.Getenv("INDICATORS"); v != "" {
		cfg.Indicators = splitList(v)
	}
	if v := os.Getenv("ANALYST_PROVIDER"); v != "" {
		cfg.Analyst.Provider = v
	}
	// OLLAMA_HOST applies only to the ollama provider.
	hostEnv := "OLLAMA_HOST"
	if cfg.Analyst.Provider == "openai" {
		hostEnv = "OPENAI_BASE_URL"
	}
	if v := os.Getenv(hostEnv); v != "" {
		cfg.Analyst.BaseURL = v
	}
	if v := os.Getenv("ANALYST_MODEL"); v != "" {
		cfg.Analyst.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Analyst.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CRON_WATCH"); v != "" {
		cfg.Watch.Cron = v
	}
	if v := os.Getenv("WATCH_TICKERS"); v != "" {
		cfg.Watch.Tickers = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.Ticker == "" {
		cfg.DataSource.Ticker = "AAPL"
	}
	if cfg.DataSource.Start == "" {
		cfg.DataSource.Start = "2023-01-01"
	}
	if cfg.DataSource.End == "" {
		cfg.DataSource.End = "2024-12-27"
	}
	if cfg.DataSource.CacheTTL == 0 {
		cfg.DataSource.CacheTTL = 15 * time.Minute
	}
	if len(cfg.Indicators) == 0 {
		cfg.Indicators = []string{indicator.SMA20.String()}
	}
	if cfg.Analyst.Provider == "" {
		cfg.Analyst.Provider = "ollama"
	}
	if cfg.Analyst.Timeout == 0 {
		cfg.Analyst.Timeout = 5 * time.Minute
	}
	if cfg.Chart.Width == 0 {
		cfg.Chart.Width = 1200
	}
	if cfg.Chart.Height == 0 {
		cfg.Chart.Height = 700
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stock_ta_ai.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Watch.Cron == "" {
		cfg.Watch.Cron = "0 30 22 * * 1-5"
	}
	if cfg.Watch.LookbackDays == 0 {
		cfg.Watch.LookbackDays = 180
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// DateRange parses the configured start and end dates.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = ParseDate(c.DataSource.Start)
	if err != nil {
		return start, end, fmt.Errorf("data_source.start: %w", err)
	}
	end, err = ParseDate(c.DataSource.End)
	if err != nil {
		return start, end, fmt.Errorf("data_source.end: %w", err)
	}
	return start, end, nil
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	start, end, err := c.DateRange()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("data_source.start must be before data_source.end")
	}
	if _, err := indicator.ParseKinds(c.Indicators); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	switch c.Analyst.Provider {
	case "ollama":
	case "openai":
		if c.Analyst.APIKey == "" && c.Analyst.BaseURL == "" {
			return fmt.Errorf("analyst.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("analyst.provider %q is not supported", c.Analyst.Provider)
	}
	return nil
}

// ValidateTelegram checks the fields needed to deliver reports.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
