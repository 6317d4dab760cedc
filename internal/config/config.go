package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"KlineStudio/internal/batch"
	"KlineStudio/internal/collector"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. KLINE_OUTPUT_DIR.
const EnvPrefix = "KLINE"

// Data source kinds.
const (
	SourceCSV     = "csv"
	SourceTushare = "tushare"
	SourceDuckDB  = "duckdb"
	SourceMock    = "mock"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		Kind         string `yaml:"kind" envconfig:"KIND" validate:"oneof=csv tushare duckdb mock"`
		CSVDir       string `yaml:"csv_dir" envconfig:"CSV_DIR" validate:"required_if=Kind csv"`
		CodeFile     string `yaml:"code_file" envconfig:"CODE_FILE"`
		TushareURL   string `yaml:"tushare_url" envconfig:"TUSHARE_URL" validate:"omitempty,url"`
		TushareToken string `yaml:"tushare_token" envconfig:"TUSHARE_TOKEN" validate:"required_if=Kind tushare"`
		IndexCode    string `yaml:"index_code" envconfig:"INDEX_CODE"`
		Adjust       string `yaml:"adjust" envconfig:"ADJUST" validate:"oneof=qfq none"`
		DuckDBPath   string `yaml:"duckdb_path" envconfig:"DUCKDB_PATH"`
		DuckDBSource string `yaml:"duckdb_source" envconfig:"DUCKDB_SOURCE"`
		// Start and End bound the fetched bars, YYYYMMDD; empty is open.
		Start string `yaml:"start" envconfig:"START" validate:"omitempty,datetime=20060102"`
		End   string `yaml:"end" envconfig:"END" validate:"omitempty,datetime=20060102"`
	} `yaml:"source" envconfig:"SOURCE"`
	Output struct {
		Dir          string `yaml:"dir" envconfig:"DIR" validate:"required"`
		Format       string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json msgpack"`
		WindowMonths int    `yaml:"window_months" envconfig:"WINDOW_MONTHS" validate:"gte=1,lte=24"`
	} `yaml:"output" envconfig:"OUTPUT"`
	Batch struct {
		SymbolLimit    int    `yaml:"symbol_limit" envconfig:"SYMBOL_LIMIT" validate:"gte=0"`
		Periods        []int  `yaml:"periods" envconfig:"PERIODS" validate:"dive,gte=1"`
		Theme          string `yaml:"theme" envconfig:"THEME"`
		KlineOnly      bool   `yaml:"kline_only" envconfig:"KLINE_ONLY"`
		CandleOnly     bool   `yaml:"candle_only" envconfig:"CANDLE_ONLY"`
		SingleOnly     bool   `yaml:"single_only" envconfig:"SINGLE_ONLY"`
		MultiOnly      bool   `yaml:"multi_only" envconfig:"MULTI_ONLY"`
		ClearBeforeRun bool   `yaml:"clear_before_run" envconfig:"CLEAR"`
		Resume         bool   `yaml:"resume" envconfig:"RESUME"`
		Workers        int    `yaml:"workers" envconfig:"WORKERS" validate:"gte=1,lte=64"`
	} `yaml:"batch" envconfig:"BATCH"`
	ThemeFile string `yaml:"theme_file" envconfig:"THEME_FILE"`
	Database  struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database" envconfig:"DATABASE"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID" validate:"required_with=BotToken"`
		APIURL   string `yaml:"api_url" envconfig:"API_URL" validate:"omitempty,url"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Schedule struct {
		Cron    string        `yaml:"cron" envconfig:"CRON"`
		Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Metrics struct {
		Namespace string `yaml:"namespace" envconfig:"NAMESPACE" validate:"required"`
		Textfile  string `yaml:"textfile" envconfig:"TEXTFILE"`
	} `yaml:"metrics" envconfig:"METRICS"`
	Log struct {
		Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
		Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
	} `yaml:"log" envconfig:"LOG"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// LoadDotenv loads .env files into the process environment without
// overriding variables that are already set. ENV_FILE, when set, replaces
// files. Missing files are ignored.
func LoadDotenv(files ...string) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		files = []string{envFile}
	}
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads config from a YAML file, then applies environment overrides and defaults.
// A missing file is not an error: the environment alone can configure a run.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "read config", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "parse config", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "environment overrides", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = SourceCSV
	}
	if c.Source.Adjust == "" {
		c.Source.Adjust = collector.AdjustQFQ
	}
	if c.Source.CSVDir == "" && c.Source.Kind == SourceCSV {
		c.Source.CSVDir = "data"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.Format == "" {
		c.Output.Format = "json"
	}
	if c.Output.WindowMonths == 0 {
		c.Output.WindowMonths = 3
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 1
	}
	if c.Batch.Theme == "" {
		c.Batch.Theme = "all"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/klinestudio.db"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 16 * * 1-5"
	}
	if c.Schedule.Timeout == 0 {
		c.Schedule.Timeout = 2 * time.Hour
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "klinestudio"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var validate = validator.New()

// Validate checks field constraints and option combinations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}
	if c.Batch.KlineOnly && c.Batch.CandleOnly {
		return errors.New(errors.ErrCodeConflictingOptions, "batch.kline_only and batch.candle_only are mutually exclusive")
	}
	if c.Batch.SingleOnly && c.Batch.MultiOnly {
		return errors.New(errors.ErrCodeConflictingOptions, "batch.single_only and batch.multi_only are mutually exclusive")
	}
	if c.Source.Start != "" && c.Source.End != "" && c.Source.Start > c.Source.End {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "source.start %s is after source.end %s", c.Source.Start, c.Source.End)
	}
	return nil
}

// NotifierEnabled reports whether run summaries go to Telegram.
func (c *Config) NotifierEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// BatchOptions maps the batch section onto orchestrator options.
func (c *Config) BatchOptions() batch.Options {
	periods := make([]model.PeriodSpec, len(c.Batch.Periods))
	for i, p := range c.Batch.Periods {
		periods[i] = model.PeriodSpec(p)
	}
	return batch.Options{
		SymbolLimit:    c.Batch.SymbolLimit,
		Periods:        periods,
		Theme:          c.Batch.Theme,
		KlineOnly:      c.Batch.KlineOnly,
		CandleOnly:     c.Batch.CandleOnly,
		SingleOnly:     c.Batch.SingleOnly,
		MultiOnly:      c.Batch.MultiOnly,
		ClearBeforeRun: c.Batch.ClearBeforeRun,
		Resume:         c.Batch.Resume,
		Workers:        c.Batch.Workers,
		OutputDir:      c.Output.Dir,
	}
}

// String renders the config as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	masked.Source.TushareToken = mask(c.Source.TushareToken)
	masked.Telegram.BotToken = mask(c.Telegram.BotToken)
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}

func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
