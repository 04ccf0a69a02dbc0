package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/pkg/logger"
)

type recordingRunner struct {
	mu       sync.Mutex
	triggers []string
	stations [][]string
	err      error
	fired    chan struct{}
	release  chan struct{}
}

func (r *recordingRunner) RunWithTrigger(ctx context.Context, trigger string, stations []string) (*entity.SummaryResult, error) {
	r.mu.Lock()
	r.triggers = append(r.triggers, trigger)
	r.stations = append(r.stations, stations)
	r.mu.Unlock()

	if r.fired != nil {
		select {
		case r.fired <- struct{}{}:
		default:
		}
	}
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return nil, r.err
	}
	return &entity.SummaryResult{RunID: "run", Stations: []string{"Brussels-Central"}}, nil
}

func TestNewSchedulerRejectsBadExpression(t *testing.T) {
	_, err := NewScheduler(context.Background(), "every hour", &recordingRunner{}, logger.NewNopLogger())
	assert.Error(t, err)

	// Five-field expressions lack the seconds field
	_, err = NewScheduler(context.Background(), "0 * * * *", &recordingRunner{}, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestTriggerUsesDefaultStations(t *testing.T) {
	runner := &recordingRunner{}
	s, err := NewScheduler(context.Background(), "0 0 * * * *", runner, logger.NewNopLogger())
	require.NoError(t, err)

	s.Trigger()
	s.RunOnce()

	assert.Equal(t, []string{entity.TriggerTimer, entity.TriggerStartup}, runner.triggers)
	assert.Nil(t, runner.stations[0], "timer runs never pass stations")
}

func TestTriggerSwallowsErrors(t *testing.T) {
	runner := &recordingRunner{err: &entity.PersistenceError{Op: "insert", Err: errors.New("boom")}}
	s, err := NewScheduler(context.Background(), "0 0 * * * *", runner, logger.NewNopLogger())
	require.NoError(t, err)

	assert.NotPanics(t, s.Trigger)
	assert.Len(t, runner.triggers, 1)
}

func TestSchedulerFires(t *testing.T) {
	runner := &recordingRunner{fired: make(chan struct{}, 1)}
	s, err := NewScheduler(context.Background(), "* * * * * *", runner, logger.NewNopLogger())
	require.NoError(t, err)

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-runner.fired:
	case <-time.After(3 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestStartupRunBlocksTimerRun(t *testing.T) {
	runner := &recordingRunner{fired: make(chan struct{}, 1), release: make(chan struct{})}
	s, err := NewScheduler(context.Background(), "0 0 * * * *", runner, logger.NewNopLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.RunOnce()
		close(done)
	}()
	<-runner.fired

	s.Trigger()

	stopped := s.Stop()
	select {
	case <-stopped.Done():
		t.Fatal("stop returned while the startup run was still going")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	<-done
	<-stopped.Done()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{entity.TriggerStartup}, runner.triggers, "timer run is skipped while the startup run holds the lock")
}
