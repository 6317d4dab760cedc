package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"KlineStudio/internal/batch"
	"KlineStudio/internal/collector"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/metrics"
	"KlineStudio/internal/notifier"
	"KlineStudio/internal/recorder"
)

// Runner executes one batch. *batch.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, symbols []string) (*batch.Report, error)
}

// ErrBusy is returned by RunNow while another run is in progress.
var ErrBusy = errors.New(errors.ErrCodeConflictingOptions, "a run is already in progress")

// Scheduler triggers generation runs on a cron schedule and on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Lister   collector.Lister
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Logger   *logger.Logger
	Ctx      context.Context

	// Metrics and MetricsTextfile export counters after every run when both are set.
	Metrics         *metrics.Metrics
	MetricsTextfile string
	// Timeout bounds one run; zero means no bound.
	Timeout time.Duration

	running atomic.Bool
	mu      sync.Mutex
	last    *batch.Report
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, lister collector.Lister, n notifier.Notifier, rec recorder.Recorder, log *logger.Logger) *Scheduler {
	if n == nil {
		n = notifier.Nop{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Lister:   lister,
		Notifier: n,
		Recorder: rec,
		Logger:   log.Named("scheduler"),
		Ctx:      ctx,
	}
}

// Register schedules a generation run on spec (six fields, seconds first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.generateTask); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "register generate task %q", spec)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running task to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// Next returns the next scheduled run time, zero when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.Cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Last returns the report of the most recent completed run.
func (s *Scheduler) Last() *batch.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }

func (s *Scheduler) generateTask() {
	if _, err := s.RunNow(); err != nil && err != ErrBusy {
		s.Logger.Error("scheduled run failed", zap.Error(err))
	}
}

// RunNow lists symbols and runs one batch immediately, then notifies.
// Overlapping calls return ErrBusy instead of queueing.
func (s *Scheduler) RunNow() (*batch.Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Warn("run skipped, previous run still in progress")
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	ctx := s.Ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	s.Logger.Info("running generate task")
	symbols, err := s.Lister.ListSymbols(ctx)
	if err != nil {
		s.trySend(notifier.FormatError(err))
		return nil, err
	}
	report, err := s.Runner.Run(ctx, symbols)
	if err != nil {
		s.trySend(notifier.FormatError(err))
		return nil, err
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.Metrics != nil && s.MetricsTextfile != "" {
		if err := s.Metrics.WriteTextfile(s.MetricsTextfile); err != nil {
			s.Logger.Error("write metrics textfile", zap.String("path", s.MetricsTextfile), zap.Error(err))
		}
	}
	s.trySend(notifier.FormatRunReport(report))
	return report, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/run", "立即生成":
		if s.Running() {
			return "⏳ 已有任务在运行"
		}
		go func() {
			if _, err := s.RunNow(); err != nil && err != ErrBusy {
				s.Logger.Error("manual run failed", zap.Error(err))
			}
		}()
		return "🚀 已开始生成"
	case "/status", "当前状态":
		return s.status()
	case "/history", "最近运行":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatHistory(runs)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) status() string {
	var b strings.Builder
	if s.Running() {
		b.WriteString("⏳ 正在运行\n")
	} else {
		b.WriteString("💤 空闲\n")
	}
	if next := s.Next(); !next.IsZero() {
		b.WriteString(fmt.Sprintf("下次运行: %s\n", next.Format("2006-01-02 15:04")))
	}
	if last := s.Last(); last != nil {
		b.WriteString(fmt.Sprintf("上次运行: %s\n", last.Summary()))
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
