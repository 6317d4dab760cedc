package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) StartRun(_ *RunRecord) error           { return nil }
func (n *NoopRecorder) FinishRun(_ *RunRecord) error          { return nil }
func (n *NoopRecorder) RecordTarget(_ *TargetEvent) error     { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                          { return nil }

func (n *NoopRecorder) LastSuccess(_ string) (*TargetEvent, bool, error) {
	return nil, false, nil
}
