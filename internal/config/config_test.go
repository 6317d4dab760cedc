package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"KlineStudio/internal/collector"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (suite *ConfigTestSuite) TestDefaultsWithoutFile() {
	cfg, err := Load(filepath.Join(suite.dir, "missing.yaml"))
	suite.Require().NoError(err)
	suite.Require().NoError(cfg.Validate())

	suite.Equal(SourceCSV, cfg.Source.Kind)
	suite.Equal("data", cfg.Source.CSVDir)
	suite.Equal(collector.AdjustQFQ, cfg.Source.Adjust)
	suite.Equal("output", cfg.Output.Dir)
	suite.Equal("json", cfg.Output.Format)
	suite.Equal(3, cfg.Output.WindowMonths)
	suite.Equal(1, cfg.Batch.Workers)
	suite.Equal("all", cfg.Batch.Theme)
	suite.Equal(2*time.Hour, cfg.Schedule.Timeout)
	suite.False(cfg.NotifierEnabled())
}

func (suite *ConfigTestSuite) TestFileThenEnvironment() {
	path := suite.write("config.yaml", `
source:
  kind: tushare
  tushare_token: from-file
  start: "20230101"
output:
  dir: charts
  format: msgpack
batch:
  periods: [5, 10]
  theme: dark
  workers: 4
telegram:
  bot_token: bot
  chat_id: "42"
`)
	suite.T().Setenv("KLINE_OUTPUT_DIR", "/srv/charts")
	suite.T().Setenv("KLINE_BATCH_PERIODS", "5,20")
	suite.T().Setenv("KLINE_BATCH_RESUME", "true")
	suite.T().Setenv("KLINE_SOURCE_ADJUST", "none")
	suite.T().Setenv("TUSHARE_TOKEN", "from-env")

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Require().NoError(cfg.Validate())

	suite.Equal(SourceTushare, cfg.Source.Kind)
	suite.Equal("from-env", cfg.Source.TushareToken)
	suite.Equal(collector.AdjustNone, cfg.Source.Adjust)
	suite.Equal("/srv/charts", cfg.Output.Dir)
	suite.Equal("msgpack", cfg.Output.Format)
	suite.Equal([]int{5, 20}, cfg.Batch.Periods)
	suite.True(cfg.NotifierEnabled())

	opts := cfg.BatchOptions()
	suite.Equal([]model.PeriodSpec{5, 20}, opts.Periods)
	suite.Equal("dark", opts.Theme)
	suite.Equal(4, opts.Workers)
	suite.True(opts.Resume)
	suite.Equal("/srv/charts", opts.OutputDir)
}

func (suite *ConfigTestSuite) TestValidation() {
	cases := []struct {
		name string
		yaml string
		code errors.ErrorCode
	}{
		{"unknown source", "source:\n  kind: ftp\n", errors.ErrCodeInvalidConfiguration},
		{"tushare without token", "source:\n  kind: tushare\n", errors.ErrCodeInvalidConfiguration},
		{"unknown adjustment", "source:\n  adjust: hfq\n", errors.ErrCodeInvalidConfiguration},
		{"bad format", "output:\n  format: png\n", errors.ErrCodeInvalidConfiguration},
		{"bad date", "source:\n  start: \"2023-01-01\"\n", errors.ErrCodeInvalidConfiguration},
		{"reversed range", "source:\n  start: \"20240101\"\n  end: \"20230101\"\n", errors.ErrCodeInvalidConfiguration},
		{"chat id missing", "telegram:\n  bot_token: bot\n", errors.ErrCodeInvalidConfiguration},
		{"kline and candle", "batch:\n  kline_only: true\n  candle_only: true\n", errors.ErrCodeConflictingOptions},
		{"single and multi", "batch:\n  single_only: true\n  multi_only: true\n", errors.ErrCodeConflictingOptions},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			cfg, err := Load(suite.write("c.yaml", tc.yaml))
			suite.Require().NoError(err)
			err = cfg.Validate()
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code), err.Error())
			suite.True(errors.IsConfiguration(err))
		})
	}
}

func (suite *ConfigTestSuite) TestMalformedYAML() {
	_, err := Load(suite.write("bad.yaml", "source: [unterminated"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestDotenvDoesNotOverride() {
	env := suite.write(".env", "KLINE_LOG_LEVEL=debug\nKLINE_OUTPUT_FORMAT=msgpack\n")
	suite.T().Setenv("KLINE_OUTPUT_FORMAT", "json")
	suite.T().Setenv("KLINE_LOG_LEVEL", "")
	suite.Require().NoError(os.Unsetenv("KLINE_LOG_LEVEL"))

	LoadDotenv(env)
	cfg, err := Load(filepath.Join(suite.dir, "none.yaml"))
	suite.Require().NoError(err)
	suite.Equal("debug", cfg.Log.Level)
	suite.Equal("json", cfg.Output.Format)
}

func (suite *ConfigTestSuite) TestStringMasksSecrets() {
	cfg, err := Load(suite.write("c.yaml", "source:\n  tushare_token: abcdef123456\ntelegram:\n  bot_token: 1234:secret\n  chat_id: \"1\"\n"))
	suite.Require().NoError(err)
	out := cfg.String()
	suite.NotContains(out, "abcdef123456")
	suite.NotContains(out, "1234:secret")
	suite.Contains(out, "ab****56")
}
