package batch

import (
	"io"

	"github.com/go-playground/validator/v10"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/metrics"
	"KlineStudio/internal/model"
	"KlineStudio/internal/recorder"
)

// Options controls which targets a run plans and how it executes them.
type Options struct {
	// SymbolLimit caps the number of symbols processed; 0 means no cap.
	SymbolLimit int `validate:"gte=0"`
	// Periods lists the multi-day periods to aggregate. Daily is always planned.
	Periods []model.PeriodSpec `validate:"dive,gte=1"`
	// Theme is a theme name, or "" / "all" for every registered theme.
	Theme string

	KlineOnly  bool
	CandleOnly bool
	SingleOnly bool
	MultiOnly  bool

	ClearBeforeRun bool
	Resume         bool

	Workers   int    `validate:"gte=0,lte=64"`
	OutputDir string `validate:"required"`
}

var validate = validator.New()

func (o Options) validate() error {
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid batch options", err)
	}
	if o.KlineOnly && o.CandleOnly {
		return errors.New(errors.ErrCodeConflictingOptions, "kline-only and candle-only are mutually exclusive")
	}
	if o.SingleOnly && o.MultiOnly {
		return errors.New(errors.ErrCodeConflictingOptions, "single-only and multi-only are mutually exclusive")
	}
	return nil
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = log.Named("batch")
	}
}

// WithRecorder persists run history and enables resume lookups.
func WithRecorder(rec recorder.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = rec
	}
}

// WithMetrics counts symbols, targets and computations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithProgress draws a progress bar over the symbols of a run on w.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.progress = w
	}
}
