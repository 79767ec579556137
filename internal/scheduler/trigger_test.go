package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheralert/internal/types"
)

var triggerNow = time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)

type stubRunner struct {
	report types.CycleReport
	err    error
	got    []CycleRequest
}

func (s *stubRunner) Run(_ context.Context, req CycleRequest) (types.CycleReport, error) {
	s.got = append(s.got, req)
	return s.report, s.err
}

type stubPurger struct {
	n   int64
	err error
	at  time.Time
}

func (s *stubPurger) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.at = now
	return s.n, s.err
}

func TestTriggerHandler_DefaultTaskRunsCycle(t *testing.T) {
	runner := &stubRunner{report: types.NewCycleReport("c1", triggerNow, triggerNow)}
	h := NewTriggerHandler(runner, nil, types.FixedClock{T: triggerNow}, testLogger())

	res, err := h.Handle(context.Background(), TriggerPayload{CycleRequest: CycleRequest{UserIDs: []string{"u1"}}})
	require.NoError(t, err)
	assert.Equal(t, TaskEvaluate, res.Task)
	require.NotNil(t, res.Report)
	assert.Equal(t, "c1", res.Report.CycleID)
	require.Len(t, runner.got, 1)
	assert.Equal(t, []string{"u1"}, runner.got[0].UserIDs)
}

func TestTriggerHandler_CycleFailureIsReturned(t *testing.T) {
	runner := &stubRunner{err: errors.New("listing active users: boom")}
	h := NewTriggerHandler(runner, nil, nil, testLogger())

	_, err := h.Handle(context.Background(), TriggerPayload{Task: TaskEvaluate})
	assert.ErrorContains(t, err, "evaluation cycle failed")
}

func TestTriggerHandler_PurgeUsesReferenceTime(t *testing.T) {
	purger := &stubPurger{n: 4}
	runner := &stubRunner{}
	h := NewTriggerHandler(runner, NewMaintenanceService(purger, testLogger()), types.FixedClock{T: triggerNow}, testLogger())

	ref := triggerNow.Add(-time.Hour)
	res, err := h.Handle(context.Background(), TriggerPayload{
		Task:         TaskPurgeForecastCache,
		CycleRequest: CycleRequest{ReferenceTime: &ref},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Purged)
	assert.Equal(t, int64(4), *res.Purged)
	assert.True(t, purger.at.Equal(ref))
	assert.Empty(t, runner.got, "purge must not run a cycle")
}

func TestTriggerHandler_RejectsInvalidPayload(t *testing.T) {
	runner := &stubRunner{}
	h := NewTriggerHandler(runner, nil, nil, testLogger())

	for name, p := range map[string]TriggerPayload{
		"unknown task":  {Task: "reindex"},
		"blank user id": {CycleRequest: CycleRequest{UserIDs: []string{""}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), p)
			assert.Equal(t, types.ErrCodeValidationRequest, types.CodeOf(err))
		})
	}
	assert.Empty(t, runner.got)
}
