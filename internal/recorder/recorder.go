package recorder

import "time"

// Target outcomes.
const (
	OutcomeRendered = "rendered"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// RunRecord summarises one batch run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    int
	Succeeded  int
	Skipped    int
	Failed     int
	Cancelled  bool
}

// TargetEvent records the outcome of one output target.
type TargetEvent struct {
	RunID       string
	Key         string
	Symbol      string
	Period      string
	Theme       string
	Kind        string
	Path        string
	Fingerprint string
	Outcome     string
	Error       string
	RecordedAt  time.Time
}

// Recorder persists run history and answers resume lookups.
type Recorder interface {
	StartRun(run *RunRecord) error
	FinishRun(run *RunRecord) error
	RecordTarget(evt *TargetEvent) error
	// LastSuccess returns the most recent rendered event for a target key.
	LastSuccess(key string) (*TargetEvent, bool, error)
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
