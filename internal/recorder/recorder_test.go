package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RecorderTestSuite struct {
	suite.Suite
	rec *SQLiteRecorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (suite *RecorderTestSuite) SetupTest() {
	rec, err := NewSQLiteRecorder(filepath.Join(suite.T().TempDir(), "history.db"), nil)
	suite.Require().NoError(err)
	suite.rec = rec
}

func (suite *RecorderTestSuite) TearDownTest() {
	suite.NoError(suite.rec.Close())
}

func (suite *RecorderTestSuite) TestRunLifecycle() {
	start := time.Unix(1700000000, 0)
	run := &RunRecord{ID: "run-1", StartedAt: start, Symbols: 3}
	suite.Require().NoError(suite.rec.StartRun(run))

	run.FinishedAt = start.Add(time.Minute)
	run.Succeeded, run.Skipped, run.Failed = 10, 2, 1
	suite.Require().NoError(suite.rec.FinishRun(run))

	suite.Require().NoError(suite.rec.StartRun(&RunRecord{ID: "run-2", StartedAt: start.Add(time.Hour), Symbols: 1}))

	runs, err := suite.rec.RecentRuns(10)
	suite.Require().NoError(err)
	suite.Require().Len(runs, 2)
	suite.Equal("run-2", runs[0].ID)
	suite.True(runs[0].FinishedAt.IsZero())
	suite.Equal(10, runs[1].Succeeded)
	suite.Equal(start.Add(time.Minute), runs[1].FinishedAt)

	runs, err = suite.rec.RecentRuns(1)
	suite.Require().NoError(err)
	suite.Len(runs, 1)
}

func (suite *RecorderTestSuite) TestLastSuccess() {
	key := "600000.SH|daily|default|kline"
	_, ok, err := suite.rec.LastSuccess(key)
	suite.Require().NoError(err)
	suite.False(ok)

	base := time.Unix(1700000000, 0)
	suite.Require().NoError(suite.rec.RecordTarget(&TargetEvent{RunID: "a", Key: key, Fingerprint: "f1", Outcome: OutcomeRendered, RecordedAt: base}))
	suite.Require().NoError(suite.rec.RecordTarget(&TargetEvent{RunID: "b", Key: key, Fingerprint: "f2", Outcome: OutcomeRendered, RecordedAt: base.Add(time.Second)}))
	suite.Require().NoError(suite.rec.RecordTarget(&TargetEvent{RunID: "c", Key: key, Fingerprint: "f3", Outcome: OutcomeFailed, Error: "boom", RecordedAt: base.Add(2 * time.Second)}))

	evt, ok, err := suite.rec.LastSuccess(key)
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal("b", evt.RunID)
	suite.Equal("f2", evt.Fingerprint)
}

func (suite *RecorderTestSuite) TestNoop() {
	var rec Recorder = NewNoopRecorder()
	suite.NoError(rec.StartRun(&RunRecord{}))
	_, ok, err := rec.LastSuccess("x")
	suite.NoError(err)
	suite.False(ok)
	suite.NoError(rec.Close())
}
