package renderer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"KlineStudio/internal/logger"
	"KlineStudio/internal/metrics"
	"KlineStudio/internal/model"
	"KlineStudio/internal/theme"
)

// loggingMiddleware wraps Renderer and logs every target.
type loggingMiddleware struct {
	logger *logger.Logger
	next   Renderer
}

// WithLogging logs each Render call at debug level, failures at error level.
func WithLogging(log *logger.Logger, next Renderer) Renderer {
	return &loggingMiddleware{logger: log, next: next}
}

func (m *loggingMiddleware) Render(ctx context.Context, es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget) (err error) {
	defer func(begin time.Time) {
		fields := []zap.Field{
			zap.String("symbol", target.Symbol),
			zap.String("period", target.Period.Label()),
			zap.String("theme", th.Name),
			zap.String("kind", string(target.Kind)),
			zap.String("path", target.Path),
			zap.Duration("elapsed", time.Since(begin)),
		}
		if err != nil {
			m.logger.Error("render failed", append(fields, zap.Error(err))...)
			return
		}
		m.logger.Debug("rendered", fields...)
	}(time.Now())
	return m.next.Render(ctx, es, th, target)
}

// instrumentingMiddleware wraps Renderer and records render durations.
type instrumentingMiddleware struct {
	metrics *metrics.Metrics
	next    Renderer
}

// WithInstrumenting observes each Render call on m.
func WithInstrumenting(m *metrics.Metrics, next Renderer) Renderer {
	return &instrumentingMiddleware{metrics: m, next: next}
}

func (m *instrumentingMiddleware) Render(ctx context.Context, es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget) (err error) {
	defer func(begin time.Time) {
		m.metrics.ObserveRender(string(target.Kind), th.Name, err, time.Since(begin))
	}(time.Now())
	return m.next.Render(ctx, es, th, target)
}
