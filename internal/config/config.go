package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for containers without one

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string        `yaml:"sqlite_path"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"database"`
	Schedule struct {
		NightlyCron string `yaml:"nightly_cron"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"schedule"`
	Rules struct {
		LookbackDays           int     `yaml:"lookback_days"`
		SuggestionLookbackDays int     `yaml:"suggestion_lookback_days"`
		Threshold              string  `yaml:"threshold"`
		MinDaysSinceWithdrawal int     `yaml:"min_days_since_withdrawal"`
		RoutineBonus           float64 `yaml:"routine_bonus"`
		MaxSuggestions         int     `yaml:"max_suggestions"`
	} `yaml:"rules"`
	Batch struct {
		Workers      int           `yaml:"workers"`
		UserTimeout  time.Duration `yaml:"user_timeout"`
		MinUntracked string        `yaml:"min_untracked"`
	} `yaml:"batch"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Path returns CONFIG_PATH or the default location.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Zero is a meaningful value for these, so they are seeded before parsing.
	cfg.Rules.MinDaysSinceWithdrawal = 3
	cfg.Rules.RoutineBonus = 0.5

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
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CASHNUDGE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CRON_NIGHTLY"); v != "" {
		cfg.Schedule.NightlyCron = v
	}
	if v := os.Getenv("CASHNUDGE_TZ"); v != "" {
		cfg.Schedule.Timezone = v
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
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Workers = n
		}
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/cashnudge.db"
	}
	if cfg.Database.Timeout == 0 {
		cfg.Database.Timeout = 5 * time.Second
	}
	if cfg.Schedule.NightlyCron == "" {
		cfg.Schedule.NightlyCron = "0 0 21 * * *"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if cfg.Rules.LookbackDays == 0 {
		cfg.Rules.LookbackDays = 30
	}
	if cfg.Rules.SuggestionLookbackDays == 0 {
		cfg.Rules.SuggestionLookbackDays = 90
	}
	if cfg.Rules.Threshold == "" {
		cfg.Rules.Threshold = "1000"
	}
	if cfg.Rules.MaxSuggestions == 0 {
		cfg.Rules.MaxSuggestions = 4
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = 4
	}
	if cfg.Batch.UserTimeout == 0 {
		cfg.Batch.UserTimeout = 10 * time.Second
	}
	if cfg.Batch.MinUntracked == "" {
		cfg.Batch.MinUntracked = "0"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks ranges and that the timezone and cron spec parse.
// Telegram is optional; a token without a chat id is rejected.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := cron.NewParser(cronFields).Parse(c.Schedule.NightlyCron); err != nil {
		return fmt.Errorf("schedule.nightly_cron: %w", err)
	}
	if c.Rules.LookbackDays < 1 || c.Rules.LookbackDays > 365 {
		return fmt.Errorf("rules.lookback_days must be between 1 and 365")
	}
	if c.Rules.SuggestionLookbackDays < 1 {
		return fmt.Errorf("rules.suggestion_lookback_days must be positive")
	}
	if th, err := c.Threshold(); err != nil {
		return err
	} else if th.IsNegative() {
		return fmt.Errorf("rules.threshold must not be negative")
	}
	if c.Rules.MinDaysSinceWithdrawal < 0 {
		return fmt.Errorf("rules.min_days_since_withdrawal must not be negative")
	}
	if c.Rules.RoutineBonus < 0 {
		return fmt.Errorf("rules.routine_bonus must not be negative")
	}
	if c.Rules.MaxSuggestions < 1 {
		return fmt.Errorf("rules.max_suggestions must be positive")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be positive")
	}
	if _, err := c.MinUntracked(); err != nil {
		return err
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	return nil
}

// cronFields matches cron.WithSeconds.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Location resolves the schedule timezone, used for both the cron trigger
// and the notification dedupe day.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// Threshold parses rules.threshold.
func (c *Config) Threshold() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Rules.Threshold)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rules.threshold: %w", err)
	}
	return d, nil
}

// MinUntracked parses batch.min_untracked.
func (c *Config) MinUntracked() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Batch.MinUntracked)
	if err != nil {
		return decimal.Zero, fmt.Errorf("batch.min_untracked: %w", err)
	}
	return d, nil
}

// TelegramEnabled reports whether push delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
