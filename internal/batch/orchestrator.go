// Package batch drives a generation run: it plans every (symbol, period,
// theme, kind) target, fetches each symbol once, computes indicators once per
// (symbol, period), and renders the result for every selected theme.
//
// Failures are scoped. A symbol whose data cannot be fetched or validated
// fails alone, a target whose render fails fails alone, and only
// configuration mistakes abort the run, before any work starts.
package batch

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"KlineStudio/internal/aggregator"
	"KlineStudio/internal/calculator"
	"KlineStudio/internal/collector"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/metrics"
	"KlineStudio/internal/model"
	"KlineStudio/internal/recorder"
	"KlineStudio/internal/renderer"
	"KlineStudio/internal/theme"
)

// Orchestrator runs batches. One Orchestrator may serve several runs, and
// runs sharing it never write the same directory at the same time.
type Orchestrator struct {
	fetcher  collector.Fetcher
	engine   calculator.Engine
	renderer renderer.Renderer
	registry *theme.Registry
	opts     Options

	logger   *logger.Logger
	recorder recorder.Recorder
	metrics  *metrics.Metrics
	progress io.Writer

	locks *pathLocks
	now   func() time.Time
}

// New creates an orchestrator. Options are checked again by every Plan.
func New(fetcher collector.Fetcher, engine calculator.Engine, r renderer.Renderer, registry *theme.Registry, opts Options, options ...Option) (*Orchestrator, error) {
	if fetcher == nil || engine == nil || r == nil || registry == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "fetcher, engine, renderer and registry are required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}

	o := &Orchestrator{
		fetcher:  fetcher,
		engine:   engine,
		renderer: r,
		registry: registry,
		opts:     opts,
		logger:   logger.NewNop(),
		recorder: recorder.NewNoopRecorder(),
		locks:    newPathLocks(),
		now:      time.Now,
	}
	for _, option := range options {
		option(o)
	}
	return o, nil
}

// Options returns the options the orchestrator was created with.
func (o *Orchestrator) Options() Options { return o.opts }

// Run plans and executes a batch over symbols.
//
// A non-nil error means the run never started. Otherwise the report lists
// every planned target that did not render. Cancelling ctx stops new symbols
// from starting; a symbol already in progress runs to completion.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) (*Report, error) {
	plan, err := o.Plan(symbols)
	if err != nil {
		return nil, err
	}

	report := newReport(uuid.NewString(), o.now(), plan)
	run := &recorder.RunRecord{ID: report.RunID, StartedAt: report.Started, Symbols: len(plan.Symbols)}
	if err := o.recorder.StartRun(run); err != nil {
		o.logger.Warn("record run start", zap.String("run", run.ID), zap.Error(err))
	}
	o.logger.Info("run started",
		zap.String("run", report.RunID),
		zap.String("source", o.fetcher.Name()),
		zap.Int("symbols", len(plan.Symbols)),
		zap.Int("targets", plan.Len()),
		zap.Strings("indicators", plan.Request.Names()),
		zap.Int("workers", o.opts.Workers))

	var bar *progressbar.ProgressBar
	if o.progress != nil {
		bar = progressbar.NewOptions(len(plan.Symbols),
			progressbar.OptionSetWriter(o.progress),
			progressbar.OptionSetDescription("rendering"),
			progressbar.OptionShowCount())
	}

	// Started symbols keep running after cancellation.
	work := context.WithoutCancel(ctx)
	semaphore := make(chan struct{}, o.opts.Workers)
	var wg sync.WaitGroup
	cancelled := false
	for _, symbol := range plan.Symbols {
		if !o.acquire(ctx, semaphore) {
			cancelled = true
			o.cancelSymbol(report, plan, symbol)
			continue
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			o.processSymbol(work, report, plan, symbol)
			if bar != nil {
				_ = bar.Add(1)
			}
		}(symbol)
	}
	wg.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	report.Cancelled = cancelled
	report.finish(o.now())

	run.FinishedAt = report.Finished
	run.Succeeded = report.Succeeded
	run.Skipped = report.Skipped
	run.Failed = len(report.Failures)
	run.Cancelled = report.Cancelled
	if err := o.recorder.FinishRun(run); err != nil {
		o.logger.Warn("record run finish", zap.String("run", run.ID), zap.Error(err))
	}
	if o.metrics != nil {
		o.metrics.RunFinished(report.Finished)
	}

	log := o.logger.Info
	if !report.OK() {
		log = o.logger.Warn
	}
	log(report.Summary(), zap.String("run", report.RunID), zap.Strings("failed_symbols", report.FailedSymbols()))
	return report, nil
}

// acquire takes a worker slot unless ctx is done first.
func (o *Orchestrator) acquire(ctx context.Context, semaphore chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case semaphore <- struct{}{}:
		if ctx.Err() != nil {
			<-semaphore
			return false
		}
		return true
	}
}

func (o *Orchestrator) cancelSymbol(report *Report, plan *Plan, symbol string) {
	cause := errors.New(errors.ErrCodeUnknown, "run cancelled before "+symbol+" started")
	for _, t := range plan.Targets(symbol) {
		report.failed(t, ReasonCancelled, cause)
	}
	report.setState(symbol, StateFailed)
	if o.metrics != nil {
		o.metrics.SymbolFinished(string(StateFailed))
	}
}

// processSymbol runs the full pipeline for one symbol. It never returns an
// error: every failure lands in the report.
func (o *Orchestrator) processSymbol(ctx context.Context, report *Report, plan *Plan, symbol string) {
	log := o.logger.With(zap.String("run", report.RunID), zap.String("symbol", symbol))
	targets := plan.Targets(symbol)
	finish := func(state State) {
		report.setState(symbol, state)
		if o.metrics != nil {
			o.metrics.SymbolFinished(string(state))
		}
	}
	failAll := func(ts []model.OutputTarget, fingerprint string, err error) {
		log.Error("symbol failed", zap.Error(err))
		for _, t := range ts {
			report.failed(t, reason(err), err)
			o.record(report.RunID, t, fingerprint, recorder.OutcomeFailed, err, log)
		}
		finish(StateFailed)
	}

	report.setState(symbol, StateFetching)
	daily, err := o.fetcher.FetchDaily(ctx, symbol)
	if err == nil && daily.Len() == 0 {
		err = errors.Newf(errors.ErrCodeEmptySeries, "%s: no bars in range", symbol)
	}
	if err != nil {
		if !errors.IsValidation(err) && !errors.IsDataUnavailable(err) {
			err = errors.Wrapf(errors.ErrCodeDataUnavailable, err, "fetch %s", symbol)
		}
		failAll(targets, "", err)
		return
	}
	fingerprint := daily.Fingerprint()

	pending := make([]model.OutputTarget, 0, len(targets))
	for _, t := range targets {
		if o.resumable(t, fingerprint, log) {
			report.skipped(t)
			o.record(report.RunID, t, fingerprint, recorder.OutcomeSkipped, nil, log)
			if o.metrics != nil {
				o.metrics.TargetFinished(string(t.Kind), recorder.OutcomeSkipped)
			}
			continue
		}
		pending = append(pending, t)
	}
	if len(pending) == 0 {
		log.Debug("all targets up to date")
		finish(StateDone)
		return
	}

	// Every period is computed before anything is rendered.
	report.setState(symbol, StateComputing)
	byPeriod := lo.GroupBy(pending, func(t model.OutputTarget) model.PeriodSpec { return t.Period })
	enriched := make(map[model.PeriodSpec]*model.EnrichedSeries, len(byPeriod))
	for _, p := range plan.Periods {
		if len(byPeriod[p]) == 0 {
			continue
		}
		es, err := aggregator.Enrich(o.engine, daily, p, plan.Request)
		if err != nil {
			failAll(pending, fingerprint, errors.Wrapf(errors.GetCode(err), err, "compute %s %s", symbol, p.Label()))
			return
		}
		if o.metrics != nil {
			o.metrics.Computed(p.Label())
		}
		enriched[p] = es
	}

	report.setState(symbol, StateRendering)
	for _, t := range pending {
		th, _ := plan.Theme(t.Theme)
		if err := o.renderTarget(ctx, enriched[t.Period], th, t); err != nil {
			report.failed(t, reason(err), err)
			o.record(report.RunID, t, fingerprint, recorder.OutcomeFailed, err, log)
			if o.metrics != nil {
				o.metrics.TargetFinished(string(t.Kind), recorder.OutcomeFailed)
			}
			continue
		}
		report.rendered(t)
		o.record(report.RunID, t, fingerprint, recorder.OutcomeRendered, nil, log)
		if o.metrics != nil {
			o.metrics.TargetFinished(string(t.Kind), recorder.OutcomeRendered)
		}
	}
	finish(StateDone)
}

// renderTarget clears (when asked) and renders one target while holding the
// lock of its destination directory.
func (o *Orchestrator) renderTarget(ctx context.Context, es *model.EnrichedSeries, th theme.Theme, t model.OutputTarget) error {
	unlock := o.locks.Lock(t.Path)
	defer unlock()

	if o.opts.ClearBeforeRun {
		if err := os.RemoveAll(t.Path); err != nil {
			return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "clear %s", t.Path)
		}
		if err := os.MkdirAll(t.Path, 0o755); err != nil {
			return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "recreate %s", t.Path)
		}
	}
	if err := o.renderer.Render(ctx, es, th, t); err != nil {
		if !errors.IsRender(err) {
			err = errors.Wrapf(errors.ErrCodeRenderFailed, err, "render %s", t)
		}
		return err
	}
	return nil
}

// resumable reports whether t was already rendered from identical input and
// its output is still on disk.
func (o *Orchestrator) resumable(t model.OutputTarget, fingerprint string, log *logger.Logger) bool {
	if !o.opts.Resume {
		return false
	}
	last, ok, err := o.recorder.LastSuccess(t.Key())
	if err != nil {
		log.Warn("resume lookup failed", zap.String("target", t.Key()), zap.Error(err))
		return false
	}
	if !ok || last.Fingerprint != fingerprint || last.Path != t.Path {
		return false
	}
	info, err := os.Stat(t.Path)
	return err == nil && info.IsDir()
}

func (o *Orchestrator) record(runID string, t model.OutputTarget, fingerprint, outcome string, cause error, log *logger.Logger) {
	evt := &recorder.TargetEvent{
		RunID:       runID,
		Key:         t.Key(),
		Symbol:      t.Symbol,
		Period:      t.Period.Label(),
		Theme:       t.Theme,
		Kind:        string(t.Kind),
		Path:        t.Path,
		Fingerprint: fingerprint,
		Outcome:     outcome,
		RecordedAt:  o.now(),
	}
	if cause != nil {
		evt.Error = cause.Error()
	}
	if err := o.recorder.RecordTarget(evt); err != nil {
		log.Warn("record target", zap.String("target", t.Key()), zap.Error(err))
	}
}
