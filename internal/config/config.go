package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"PriceScope/internal/collector"
	"PriceScope/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. PRICESCOPE_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "PRICESCOPE"

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level" envconfig:"level" validate:"omitempty,oneof=debug info warn error"`
		Pretty bool   `yaml:"pretty" envconfig:"pretty"`
	} `yaml:"log" envconfig:"log"`
	DataSource struct {
		Provider          string   `yaml:"provider" envconfig:"provider" validate:"oneof=yahoo rest mock"`
		BaseURL           string   `yaml:"base_url" envconfig:"base_url" validate:"required_if=Provider rest"`
		APIKey            string   `yaml:"api_key" envconfig:"api_key"`
		Proxy             string   `yaml:"proxy" envconfig:"proxy"`
		RequestsPerSecond float64  `yaml:"requests_per_second" envconfig:"requests_per_second" validate:"gte=0"`
		Watchlist         []string `yaml:"watchlist" envconfig:"watchlist" validate:"dive,symbol"`
		DefaultPeriod     string   `yaml:"default_period" envconfig:"default_period" validate:"oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
	} `yaml:"data_source" envconfig:"data_source"`
	Indicators struct {
		MAWindow             int     `yaml:"ma_window" envconfig:"ma_window" validate:"gt=0"`
		RSIWindow            int     `yaml:"rsi_window" envconfig:"rsi_window" validate:"gt=0"`
		MACDShort            int     `yaml:"macd_short" envconfig:"macd_short" validate:"gt=0,ltfield=MACDLong"`
		MACDLong             int     `yaml:"macd_long" envconfig:"macd_long" validate:"gt=0"`
		MACDSignal           int     `yaml:"macd_signal" envconfig:"macd_signal" validate:"gt=0"`
		FluctuationThreshold float64 `yaml:"fluctuation_threshold" envconfig:"fluctuation_threshold" validate:"gte=0"`
	} `yaml:"indicators" envconfig:"indicators"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron" envconfig:"analysis_cron" validate:"required"`
	} `yaml:"schedule" envconfig:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"bot_token"`
		ChatID   string `yaml:"chat_id" envconfig:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram" envconfig:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"sqlite_path"`
	} `yaml:"database" envconfig:"database"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr" envconfig:"redis_addr"`
		RedisPassword string        `yaml:"redis_password" envconfig:"redis_password"`
		RedisDB       int           `yaml:"redis_db" envconfig:"redis_db" validate:"gte=0"`
		TTL           time.Duration `yaml:"ttl" envconfig:"ttl" validate:"gte=0"`
	} `yaml:"cache" envconfig:"cache"`
	Export struct {
		Dir    string `yaml:"dir" envconfig:"dir"`
		Format string `yaml:"format" envconfig:"format" validate:"oneof=csv xlsx"`
	} `yaml:"export" envconfig:"export"`
	HTTP struct {
		ListenAddr string `yaml:"listen_addr" envconfig:"listen_addr"`
	} `yaml:"http" envconfig:"http"`
}

// Default returns the configuration used for every key the file and the
// environment leave unset.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.DataSource.Provider = "yahoo"
	cfg.DataSource.RequestsPerSecond = 2
	cfg.DataSource.Watchlist = []string{"AAPL"}
	cfg.DataSource.DefaultPeriod = "1mo"

	p := model.DefaultIndicatorParams()
	cfg.Indicators.MAWindow = p.MAWindow
	cfg.Indicators.RSIWindow = p.RSIWindow
	cfg.Indicators.MACDShort = p.MACDShort
	cfg.Indicators.MACDLong = p.MACDLong
	cfg.Indicators.MACDSignal = p.MACDSignal
	cfg.Indicators.FluctuationThreshold = p.FluctuationThreshold

	cfg.Schedule.AnalysisCron = "0 30 22 * * 1-5"
	cfg.Database.SQLitePath = "data/pricescope.db"
	cfg.Cache.TTL = 15 * time.Minute
	cfg.Export.Dir = "exports"
	cfg.Export.Format = "csv"
	cfg.HTTP.ListenAddr = ":8080"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies .env and
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if cfg.DataSource.Proxy == "" {
		cfg.DataSource.Proxy = os.Getenv("HTTPS_PROXY")
	}
	for i, s := range cfg.DataSource.Watchlist {
		cfg.DataSource.Watchlist[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	return cfg, nil
}

// Validate checks field constraints and the cron expression.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return collector.IsValidSymbol(fl.Field().String())
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if _, err := CronParser.Parse(c.Schedule.AnalysisCron); err != nil {
		return fmt.Errorf("schedule.analysis_cron: %w", err)
	}
	return nil
}

// CronParser parses six-field (with seconds) cron specs.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Params returns the indicator sizing.
func (c *Config) Params() model.IndicatorParams {
	return model.IndicatorParams{
		MAWindow:             c.Indicators.MAWindow,
		RSIWindow:            c.Indicators.RSIWindow,
		MACDShort:            c.Indicators.MACDShort,
		MACDLong:             c.Indicators.MACDLong,
		MACDSignal:           c.Indicators.MACDSignal,
		FluctuationThreshold: c.Indicators.FluctuationThreshold,
	}
}

// TelegramEnabled reports whether alerts can be pushed to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
