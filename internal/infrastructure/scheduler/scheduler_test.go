package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return j.err
}

func newTestScheduler() *Scheduler {
	return NewScheduler(SchedulerConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tick:   5 * time.Millisecond,
	})
}

func TestRegisterValidation(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "a"}

	assert.ErrorIs(t, s.Register(nil, Every(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, Every(time.Second)))
	assert.ErrorIs(t, s.Register(job, Every(time.Second)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.DisableJob("missing"), ErrJobNotFound)
}

func TestJobsRunOnSchedule(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.GreaterOrEqual(t, infos[0].RunCount, int64(2))
	assert.Equal(t, "@every 10ms", infos[0].Schedule)
}

func TestBusyJobIsNotOverlapped(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	require.NoError(t, s.Stop())
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "off"}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))
	require.NoError(t, s.DisableJob("off"))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, job.runs.Load())
}

func TestRunNowRecordsFailure(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("boom")
	require.NoError(t, s.Register(&countingJob{name: "fail", err: boom}, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, result)
	assert.True(t, result.Manual)
	assert.False(t, result.Success)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalExecutions)
	assert.Equal(t, int64(1), snap.FailuresByJob["fail"])
	assert.Len(t, s.History(10), 1)
}

func TestEveryDefaultsNonPositive(t *testing.T) {
	assert.Equal(t, time.Minute, Every(0).Interval)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Hour), Every(time.Hour).Next(base))
}

func TestCronSchedule(t *testing.T) {
	sched, err := Cron("CRON_TZ=UTC 30 2 * * *")
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=UTC 30 2 * * *", sched.String())

	base := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 2, 2, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(sched.Next(base)), sched.Next(base))

	_, err = Cron("not a cron")
	assert.Error(t, err)
}
