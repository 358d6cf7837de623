package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ORBSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Strategy struct {
		OpeningRangeBars            int      `yaml:"opening_range_bars"`
		SessionLengthHours          float64  `yaml:"session_length_hours"`
		EMASpan                     int      `yaml:"ema_span"`
		RegimeStrengthVetoThreshold *float64 `yaml:"regime_strength_veto_threshold"`
		PollIntervalSeconds         int      `yaml:"poll_interval_seconds"`
		Timezone                    string   `yaml:"timezone"`
		SessionStart                string   `yaml:"session_start"`
		SessionEnd                  string   `yaml:"session_end"`
		WindowStart                 string   `yaml:"window_start"`
	} `yaml:"strategy"`
	DataSource struct {
		Provider          string  `yaml:"provider"` // yahoo | rest
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		PrimarySymbol     string  `yaml:"primary_symbol"`
		VolatilitySymbol  string  `yaml:"volatility_symbol"`
		SectorSymbol      string  `yaml:"sector_symbol"`
		Interval          string  `yaml:"interval"`
		Lookback          string  `yaml:"lookback"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Pushbullet struct {
		Token string `yaml:"token"`
	} `yaml:"pushbullet"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	HTTP struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	StateFile string `yaml:"state_file"`
	Proxy     string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("PUSHBULLET_TOKEN", &c.Pushbullet.Token)
	str("DATA_SOURCE_PROVIDER", &c.DataSource.Provider)
	str("DATA_SOURCE_BASE_URL", &c.DataSource.BaseURL)
	str("DATA_SOURCE_API_KEY", &c.DataSource.APIKey)
	str("HTTPS_PROXY", &c.Proxy)
	str("SQLITE_PATH", &c.Database.SQLitePath)
	str("POSTGRES_DSN", &c.Database.PostgresDSN)
	str("HTTP_LISTEN_ADDR", &c.HTTP.ListenAddr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("STATE_FILE", &c.StateFile)

	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Strategy.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("OPENING_RANGE_BARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Strategy.OpeningRangeBars = n
		}
	}
}

func (c *Config) applyDefaults() {
	s := &c.Strategy
	if s.OpeningRangeBars == 0 {
		s.OpeningRangeBars = 3
	}
	if s.SessionLengthHours == 0 {
		s.SessionLengthHours = 5
	}
	if s.EMASpan == 0 {
		s.EMASpan = 20
	}
	if s.RegimeStrengthVetoThreshold == nil {
		v := 0.7
		s.RegimeStrengthVetoThreshold = &v
	}
	if s.PollIntervalSeconds == 0 {
		s.PollIntervalSeconds = 300
	}
	if s.Timezone == "" {
		s.Timezone = "America/New_York"
	}
	if s.SessionStart == "" {
		s.SessionStart = "09:30"
	}
	if s.SessionEnd == "" {
		s.SessionEnd = "16:00"
	}
	if s.WindowStart == "" {
		s.WindowStart = "09:45"
	}

	d := &c.DataSource
	if d.Provider == "" {
		d.Provider = "yahoo"
	}
	if d.PrimarySymbol == "" {
		d.PrimarySymbol = "QQQ"
	}
	if d.VolatilitySymbol == "" {
		d.VolatilitySymbol = "^VIX"
	}
	if d.SectorSymbol == "" {
		d.SectorSymbol = "XLU"
	}
	if d.Interval == "" {
		d.Interval = "5m"
	}
	if d.Lookback == "" {
		d.Lookback = "15d"
	}
	if d.RequestsPerSecond == 0 {
		d.RequestsPerSecond = 2
	}
	if d.TimeoutSeconds == 0 {
		d.TimeoutSeconds = 60
	}

	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/orb_sentinel.db"
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.StateFile == "" {
		c.StateFile = "data/orb_state.json"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.OpeningRangeBars < 1 {
		return fmt.Errorf("strategy.opening_range_bars must be at least 1")
	}
	if s.EMASpan < 1 {
		return fmt.Errorf("strategy.ema_span must be at least 1")
	}
	if s.SessionLengthHours <= 0 || s.SessionLengthHours > 24 {
		return fmt.Errorf("strategy.session_length_hours must be in (0, 24]")
	}
	if v := s.RegimeStrengthVetoThreshold; v == nil || math.IsNaN(*v) || *v < 0 {
		return fmt.Errorf("strategy.regime_strength_veto_threshold must be a non-negative number")
	}
	if s.PollIntervalSeconds < 1 {
		return fmt.Errorf("strategy.poll_interval_seconds must be positive")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("strategy.timezone: %w", err)
	}
	start, err := strategy.ParseClock(s.SessionStart)
	if err != nil {
		return fmt.Errorf("strategy.session_start: %w", err)
	}
	end, err := strategy.ParseClock(s.SessionEnd)
	if err != nil {
		return fmt.Errorf("strategy.session_end: %w", err)
	}
	if end.Seconds() <= start.Seconds() {
		return fmt.Errorf("strategy.session_end must be after session_start")
	}
	if _, err := strategy.ParseClock(s.WindowStart); err != nil {
		return fmt.Errorf("strategy.window_start: %w", err)
	}

	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Telegram.BotToken == "" && c.Pushbullet.Token == "" {
		return fmt.Errorf("at least one notifier (telegram or pushbullet) must be configured")
	}
	return nil
}

// StrategyParams converts the strategy section into engine parameters.
// Call Validate first.
func (c *Config) StrategyParams() (strategy.Params, error) {
	s := c.Strategy
	if s.RegimeStrengthVetoThreshold == nil {
		return strategy.Params{}, fmt.Errorf("strategy.regime_strength_veto_threshold is unset")
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return strategy.Params{}, fmt.Errorf("load timezone: %w", err)
	}
	start, err := strategy.ParseClock(s.SessionStart)
	if err != nil {
		return strategy.Params{}, err
	}
	end, err := strategy.ParseClock(s.SessionEnd)
	if err != nil {
		return strategy.Params{}, err
	}
	return strategy.Params{
		OpeningRangeBars:      s.OpeningRangeBars,
		EMASpan:               s.EMASpan,
		StrengthVetoThreshold: *s.RegimeStrengthVetoThreshold,
		Location:              loc,
		SessionStart:          start,
		SessionEnd:            end,
	}, nil
}

// Window returns the daily polling window start and its length.
func (c *Config) Window() (strategy.Clock, time.Duration, error) {
	start, err := strategy.ParseClock(c.Strategy.WindowStart)
	if err != nil {
		return strategy.Clock{}, 0, err
	}
	return start, time.Duration(c.Strategy.SessionLengthHours * float64(time.Hour)), nil
}

// PollInterval returns the scheduler tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Strategy.PollIntervalSeconds) * time.Second
}

// FetchTimeout bounds one cycle's data collection.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}
