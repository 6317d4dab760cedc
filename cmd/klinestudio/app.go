package main

import (
	"io"

	"go.uber.org/zap"

	"KlineStudio/internal/batch"
	"KlineStudio/internal/calculator"
	"KlineStudio/internal/collector"
	"KlineStudio/internal/config"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/metrics"
	"KlineStudio/internal/recorder"
	"KlineStudio/internal/renderer"
	"KlineStudio/internal/theme"
)

// mockUniverse is the symbol list of the mock source.
var mockUniverse = collector.StaticLister{"600000.SH", "600036.SH", "600519.SH", "601318.SH", "601398.SH"}

// app holds the components built from one configuration.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "init logger", err)
	}
	return &app{cfg: cfg, log: log, metrics: metrics.New(cfg.Metrics.Namespace)}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// source builds the fetcher and the symbol lister of the configured data source.
func (a *app) source() (collector.Fetcher, collector.Lister, error) {
	src := a.cfg.Source
	filter, err := collector.ParseDateFilter(src.Start, src.End)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "source date range", err)
	}

	var codes collector.Lister
	if src.CodeFile != "" {
		codes = collector.CodeFileLister{Path: src.CodeFile}
	}
	withCodes := func(l collector.Lister) collector.Lister {
		if codes == nil {
			return l
		}
		return collector.FallbackLister{Primary: codes, Fallback: l}
	}

	switch src.Kind {
	case config.SourceCSV:
		return collector.NewCSVFetcher(src.CSVDir, filter), withCodes(collector.DirLister{Dir: src.CSVDir}), nil
	case config.SourceTushare:
		f := collector.NewTushareFetcher(src.TushareURL, src.TushareToken, a.cfg.Proxy, filter, a.log)
		if src.IndexCode != "" {
			f.IndexCode = src.IndexCode
		}
		f.Adjust = src.Adjust
		return f, withCodes(f), nil
	case config.SourceDuckDB:
		f, err := collector.NewDuckDBFetcher(src.DuckDBPath, src.DuckDBSource, filter, a.log)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, f.Close)
		return f, withCodes(f), nil
	case config.SourceMock:
		return &collector.MockFetcher{Price: 10, Days: 400}, withCodes(mockUniverse), nil
	default:
		return nil, nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown source kind %q", src.Kind)
	}
}

// registry returns the builtin themes plus those of the configured theme file.
func (a *app) registry() (*theme.Registry, error) {
	if a.cfg.ThemeFile == "" {
		return theme.NewBuiltinRegistry()
	}
	extra, err := theme.LoadFile(a.cfg.ThemeFile)
	if err != nil {
		return nil, err
	}
	return theme.NewBuiltinRegistry(extra...)
}

// recorder opens run history. A history database that cannot be opened
// disables history rather than failing the run.
func (a *app) recorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.log)
	if err != nil {
		a.log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, rec.Close)
	return rec
}

// orchestrator wires a batch orchestrator with logging and instrumented rendering.
func (a *app) orchestrator(fetcher collector.Fetcher, rec recorder.Recorder, progress io.Writer) (*batch.Orchestrator, error) {
	registry, err := a.registry()
	if err != nil {
		return nil, err
	}
	specs, err := renderer.NewSpecRenderer(renderer.Format(a.cfg.Output.Format), a.cfg.Output.WindowMonths)
	if err != nil {
		return nil, err
	}
	var r renderer.Renderer = specs
	r = renderer.WithInstrumenting(a.metrics, r)
	r = renderer.WithLogging(a.log.Named("renderer"), r)

	options := []batch.Option{
		batch.WithLogger(a.log),
		batch.WithRecorder(rec),
		batch.WithMetrics(a.metrics),
	}
	if progress != nil {
		options = append(options, batch.WithProgress(progress))
	}
	return batch.New(fetcher, calculator.New(), r, registry, a.cfg.BatchOptions(), options...)
}
