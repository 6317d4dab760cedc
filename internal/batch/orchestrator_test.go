package batch_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"KlineStudio/internal/batch"
	"KlineStudio/internal/calculator"
	"KlineStudio/internal/collector"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/metrics"
	"KlineStudio/internal/model"
	"KlineStudio/internal/model/modeltest"
	"KlineStudio/internal/recorder"
	"KlineStudio/internal/renderer"
	"KlineStudio/internal/theme"
	"KlineStudio/mocks"
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *theme.Registry
	out      string
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (suite *OrchestratorTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	registry, err := theme.NewBuiltinRegistry()
	suite.Require().NoError(err)
	suite.registry = registry
	suite.out = suite.T().TempDir()
}

func (suite *OrchestratorTestSuite) options() batch.Options {
	return batch.Options{Theme: theme.DefaultName, OutputDir: suite.out}
}

func (suite *OrchestratorTestSuite) fetcher(symbols ...string) *collector.MockFetcher {
	f := &collector.MockFetcher{Series: make(map[string][]model.Bar), Errors: make(map[string]error)}
	for _, s := range symbols {
		f.Series[s] = modeltest.Bars(modeltest.Wave(60, 20)...)
	}
	return f
}

func (suite *OrchestratorTestSuite) specRenderer() renderer.Renderer {
	r, err := renderer.NewSpecRenderer(renderer.FormatJSON, 0)
	suite.Require().NoError(err)
	return r
}

func (suite *OrchestratorTestSuite) TestPlanTargets() {
	opts := suite.options()
	opts.Periods = []model.PeriodSpec{10, 5, 5}
	o, err := batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
	suite.Require().NoError(err)

	plan, err := o.Plan([]string{"600000.SH", " 600000.SH ", "", "601318.SH"})
	suite.Require().NoError(err)
	suite.Equal([]string{"600000.SH", "601318.SH"}, plan.Symbols)
	suite.Equal([]model.PeriodSpec{1, 5, 10}, plan.Periods)
	suite.Equal(8, plan.Len())

	targets := plan.Targets("600000.SH")
	suite.Require().Len(targets, 4)
	suite.Equal(filepath.Join(suite.out, "kline", "default", "600000.SH"), targets[0].Path)
	suite.Equal(model.KindKline, targets[0].Kind)
	suite.Equal(filepath.Join(suite.out, "candle", "default", "600000.SH"), targets[1].Path)
	suite.Equal(filepath.Join(suite.out, "multi_day", "default", "600000.SH", "5d"), targets[2].Path)
	suite.Equal(filepath.Join(suite.out, "multi_day", "default", "600000.SH", "10d"), targets[3].Path)

	keys := make(map[string]bool)
	for _, t := range targets {
		suite.False(keys[t.Key()], t.Key())
		keys[t.Key()] = true
	}
}

func (suite *OrchestratorTestSuite) TestPlanOutputFlags() {
	cases := []struct {
		name  string
		apply func(o *batch.Options)
		kinds []model.OutputKind
	}{
		{"kline only", func(o *batch.Options) { o.KlineOnly = true }, []model.OutputKind{model.KindKline}},
		{"candle only", func(o *batch.Options) { o.CandleOnly = true }, []model.OutputKind{model.KindCandle, model.KindCandle}},
		{"single only", func(o *batch.Options) { o.SingleOnly = true }, []model.OutputKind{model.KindKline, model.KindCandle}},
		{"multi only", func(o *batch.Options) { o.MultiOnly = true }, []model.OutputKind{model.KindCandle}},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			opts := suite.options()
			opts.Periods = []model.PeriodSpec{5}
			tc.apply(&opts)
			o, err := batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
			suite.Require().NoError(err)
			plan, err := o.Plan([]string{"X"})
			suite.Require().NoError(err)
			var kinds []model.OutputKind
			for _, t := range plan.Targets("X") {
				kinds = append(kinds, t.Kind)
			}
			suite.Equal(tc.kinds, kinds)
		})
	}
}

func (suite *OrchestratorTestSuite) TestConflictingOptions() {
	opts := suite.options()
	opts.KlineOnly, opts.CandleOnly = true, true
	_, err := batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
	suite.True(errors.HasCode(err, errors.ErrCodeConflictingOptions))

	opts = suite.options()
	opts.SingleOnly, opts.MultiOnly = true, true
	_, err = batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
	suite.True(errors.HasCode(err, errors.ErrCodeConflictingOptions))
	suite.True(errors.IsRunFatal(err))
}

func (suite *OrchestratorTestSuite) TestNothingToRender() {
	opts := suite.options()
	opts.MultiOnly = true
	o, err := batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
	suite.Require().NoError(err)
	_, err = o.Run(context.Background(), []string{"X"})
	suite.True(errors.HasCode(err, errors.ErrCodeNoTargets))
}

func (suite *OrchestratorTestSuite) TestUnknownThemeFailsBeforeAnyFetch() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	fetcher.EXPECT().FetchDaily(gomock.Any(), gomock.Any()).Times(0)
	opts := suite.options()
	opts.Theme = "neon"
	o, err := batch.New(fetcher, calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
	suite.Require().NoError(err)

	report, err := o.Run(context.Background(), []string{"600000.SH"})
	suite.Nil(report)
	suite.True(errors.IsUnknownTheme(err))
	suite.True(errors.IsRunFatal(err))
}

func (suite *OrchestratorTestSuite) TestNoSymbols() {
	o, err := batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, suite.options())
	suite.Require().NoError(err)
	_, err = o.Run(context.Background(), []string{" ", ""})
	suite.True(errors.HasCode(err, errors.ErrCodeNoSymbols))
}

func (suite *OrchestratorTestSuite) TestSymbolLimit() {
	opts := suite.options()
	opts.SymbolLimit = 2
	o, err := batch.New(suite.fetcher(), calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, opts)
	suite.Require().NoError(err)
	plan, err := o.Plan([]string{"A", "B", "C"})
	suite.Require().NoError(err)
	suite.Equal([]string{"A", "B"}, plan.Symbols)
}

func (suite *OrchestratorTestSuite) TestComputesOncePerSymbolAndPeriod() {
	engine := calculator.NewCounting(calculator.New())
	var renders atomic.Int64
	r := mocks.NewMockRenderer(suite.ctrl)
	r.EXPECT().Render(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, es *model.EnrichedSeries, th theme.Theme, t model.OutputTarget) error {
			suite.Equal(t.Period, es.Period)
			suite.Equal(t.Theme, th.Name)
			renders.Add(1)
			return nil
		}).Times(2 * 12 * 3)

	opts := suite.options()
	opts.Theme = theme.AllThemes
	opts.Periods = []model.PeriodSpec{5}
	opts.Workers = 2
	o, err := batch.New(suite.fetcher("A", "B"), engine, r, suite.registry, opts)
	suite.Require().NoError(err)

	report, err := o.Run(context.Background(), []string{"A", "B"})
	suite.Require().NoError(err)
	suite.True(report.OK(), report.Summary())
	suite.Equal(int64(4), engine.Calls())
	suite.Equal(int64(72), renders.Load())
	suite.Equal(72, report.Succeeded)
	suite.Equal(batch.StateDone, report.Symbols["A"].State)
}

func (suite *OrchestratorTestSuite) TestFetchFailureIsScopedToSymbol() {
	fetcher := suite.fetcher("GOOD")
	fetcher.Errors["BAD"] = errors.New(errors.ErrCodeDataNotFound, "no rows")
	fetcher.Series["EMPTY"] = nil
	fetcher.Series["BROKEN"] = modeltest.Bars(10, 11, 12)
	fetcher.Series["BROKEN"][1].High = 1

	r := mocks.NewMockRenderer(suite.ctrl)
	r.EXPECT().Render(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	o, err := batch.New(fetcher, calculator.New(), r, suite.registry, suite.options())
	suite.Require().NoError(err)
	report, err := o.Run(context.Background(), []string{"BAD", "GOOD", "EMPTY", "BROKEN"})
	suite.Require().NoError(err)

	suite.False(report.OK())
	suite.Equal(2, report.Succeeded)
	suite.Len(report.Failures, 6)
	suite.Equal(batch.StateFailed, report.Symbols["BAD"].State)
	suite.Equal(batch.StateDone, report.Symbols["GOOD"].State)
	suite.Equal([]string{"BAD", "EMPTY", "BROKEN"}, report.FailedSymbols())

	reasons := make(map[string]string)
	for _, f := range report.Failures {
		reasons[f.Symbol] = f.Reason
	}
	suite.Equal(string(errors.KindDataUnavailable), reasons["BAD"])
	suite.Equal(string(errors.KindDataUnavailable), reasons["EMPTY"])
	suite.Equal(string(errors.KindValidation), reasons["BROKEN"])
}

func (suite *OrchestratorTestSuite) TestRenderFailureIsScopedToTarget() {
	r := mocks.NewMockRenderer(suite.ctrl)
	r.EXPECT().Render(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *model.EnrichedSeries, th theme.Theme, t model.OutputTarget) error {
			if th.Name == "dark" && t.Kind == model.KindKline {
				return os.ErrPermission
			}
			return nil
		}).AnyTimes()

	opts := suite.options()
	opts.Theme = theme.AllThemes
	o, err := batch.New(suite.fetcher("A", "B"), calculator.New(), r, suite.registry, opts)
	suite.Require().NoError(err)
	report, err := o.Run(context.Background(), []string{"A", "B"})
	suite.Require().NoError(err)

	suite.Equal(48, report.Planned)
	suite.Equal(46, report.Succeeded)
	suite.Require().Len(report.Failures, 2)
	for _, f := range report.Failures {
		suite.Equal("dark", f.Theme)
		suite.Equal(string(errors.KindRender), f.Reason)
		suite.True(errors.Is(f.Err, os.ErrPermission))
	}
	suite.Equal(batch.StateDone, report.Symbols["A"].State)
	suite.Equal(1, report.Symbols["A"].Failed)
}

func (suite *OrchestratorTestSuite) TestClearTouchesOnlyPlannedTargets() {
	planned := filepath.Join(suite.out, "kline", "default", "A")
	other := filepath.Join(suite.out, "kline", "default", "B")
	suite.Require().NoError(os.MkdirAll(planned, 0o755))
	suite.Require().NoError(os.MkdirAll(other, 0o755))
	suite.Require().NoError(os.WriteFile(filepath.Join(planned, "stale.json"), []byte("{}"), 0o644))
	suite.Require().NoError(os.WriteFile(filepath.Join(other, "keep.json"), []byte("{}"), 0o644))

	opts := suite.options()
	opts.ClearBeforeRun = true
	o, err := batch.New(suite.fetcher("A"), calculator.New(), suite.specRenderer(), suite.registry, opts)
	suite.Require().NoError(err)
	report, err := o.Run(context.Background(), []string{"A"})
	suite.Require().NoError(err)
	suite.True(report.OK(), report.Summary())

	suite.NoFileExists(filepath.Join(planned, "stale.json"))
	suite.FileExists(filepath.Join(other, "keep.json"))
	entries, err := os.ReadDir(planned)
	suite.Require().NoError(err)
	suite.NotEmpty(entries)
}

func (suite *OrchestratorTestSuite) TestResumeSkipsUnchangedTargets() {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(suite.T().TempDir(), "history.db"), nil)
	suite.Require().NoError(err)
	defer rec.Close()

	fetcher := suite.fetcher("A")
	opts := suite.options()
	opts.Resume = true
	o, err := batch.New(fetcher, calculator.New(), suite.specRenderer(), suite.registry, opts, batch.WithRecorder(rec))
	suite.Require().NoError(err)

	first, err := o.Run(context.Background(), []string{"A"})
	suite.Require().NoError(err)
	suite.Equal(2, first.Succeeded)

	second, err := o.Run(context.Background(), []string{"A"})
	suite.Require().NoError(err)
	suite.Equal(0, second.Succeeded)
	suite.Equal(2, second.Skipped)
	suite.True(second.OK())

	// Changed input invalidates the fingerprint.
	fetcher.Series["A"] = modeltest.Bars(modeltest.Wave(61, 20)...)
	third, err := o.Run(context.Background(), []string{"A"})
	suite.Require().NoError(err)
	suite.Equal(2, third.Succeeded)

	// A deleted output directory is regenerated.
	suite.Require().NoError(os.RemoveAll(filepath.Join(suite.out, "candle", "default", "A")))
	fourth, err := o.Run(context.Background(), []string{"A"})
	suite.Require().NoError(err)
	suite.Equal(1, fourth.Succeeded)
	suite.Equal(1, fourth.Skipped)

	runs, err := rec.RecentRuns(10)
	suite.Require().NoError(err)
	suite.Len(runs, 4)
}

func (suite *OrchestratorTestSuite) TestCancelledRunFailsUnstartedSymbols() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	fetcher.EXPECT().Name().Return("mock").AnyTimes()
	fetcher.EXPECT().FetchDaily(gomock.Any(), gomock.Any()).Times(0)

	o, err := batch.New(fetcher, calculator.New(), mocks.NewMockRenderer(suite.ctrl), suite.registry, suite.options())
	suite.Require().NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Run(ctx, []string{"A", "B"})
	suite.Require().NoError(err)
	suite.True(report.Cancelled)
	suite.False(report.OK())
	suite.Len(report.Failures, 4)
	for _, f := range report.Failures {
		suite.Equal(batch.ReasonCancelled, f.Reason)
	}
	suite.Contains(report.Summary(), "cancelled")
}

func (suite *OrchestratorTestSuite) TestStartedSymbolFinishesAfterCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	fetcher.EXPECT().Name().Return("mock").AnyTimes()
	fetcher.EXPECT().FetchDaily(gomock.Any(), "A").
		DoAndReturn(func(ctx context.Context, symbol string) (*model.BarSeries, error) {
			cancel()
			suite.NoError(ctx.Err())
			return modeltest.Series(symbol, modeltest.Wave(30, 20)...), nil
		})

	r := mocks.NewMockRenderer(suite.ctrl)
	r.EXPECT().Render(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	o, err := batch.New(fetcher, calculator.New(), r, suite.registry, suite.options())
	suite.Require().NoError(err)
	report, err := o.Run(ctx, []string{"A", "B"})
	suite.Require().NoError(err)

	suite.Equal(batch.StateDone, report.Symbols["A"].State)
	suite.Equal(batch.StateFailed, report.Symbols["B"].State)
	suite.Equal(2, report.Succeeded)
	suite.True(report.Cancelled)
}

func (suite *OrchestratorTestSuite) TestReportAndObservability() {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New("klinestudio")
	var progress bytes.Buffer

	fetcher := suite.fetcher("A")
	fetcher.Errors["B"] = errors.New(errors.ErrCodeDataNotFound, "no rows")
	o, err := batch.New(fetcher, calculator.New(), suite.specRenderer(), suite.registry, suite.options(),
		batch.WithLogger(&logger.Logger{Logger: zap.New(core)}),
		batch.WithMetrics(m),
		batch.WithProgress(&progress))
	suite.Require().NoError(err)

	report, err := o.Run(context.Background(), []string{"A", "B"})
	suite.Require().NoError(err)

	suite.Equal(1, logs.FilterMessage("run started").Len())
	suite.Equal(1, logs.FilterMessage("symbol failed").Len())
	suite.NotEmpty(progress.String())

	var table bytes.Buffer
	suite.Require().NoError(report.Render(&table))
	suite.Contains(table.String(), "TOTAL")
	suite.Contains(table.String(), "data_unavailable")
	suite.Contains(table.String(), report.RunID)
}
