package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func TestAddCronRejectsDuplicateName(t *testing.T) {
	s := newScheduler(t)

	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddCron(context.Background(), "a", "0 0 1 1 *", noop))
	assert.Error(t, s.AddCron(context.Background(), "a", "0 0 1 1 *", noop))
	assert.Error(t, s.AddCron(context.Background(), "bad", "not a cron", noop))

	info, err := s.GetJobInfoByName("a")
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusScheduled, info.Status)
	assert.False(t, info.NextRun.IsZero())
}

func TestRunNowRecordsResult(t *testing.T) {
	s := newScheduler(t)

	done := make(chan struct{}, 2)
	ctxKey := struct{}{}

	require.NoError(t, s.AddCron(context.WithValue(context.Background(), ctxKey, "v"), "ok", "0 0 1 1 *",
		func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()

			if ctx.Value(ctxKey) != "v" {
				return errors.New("context not propagated")
			}

			return nil
		}))

	require.NoError(t, s.AddCron(context.Background(), "fail", "0 0 1 1 *", func(context.Context) error {
		defer func() { done <- struct{}{} }()
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow("ok"))
	require.NoError(t, s.RunNow("fail"))
	assert.Error(t, s.RunNow("missing"))

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("job did not run")
		}
	}

	require.Eventually(t, func() bool {
		ok, _ := s.GetJobInfoByName("ok")
		fail, _ := s.GetJobInfoByName("fail")

		return !ok.LastSuccess.IsZero() && fail.Status == scheduler.StatusError
	}, 5*time.Second, 10*time.Millisecond)

	fail, err := s.GetJobInfoByName("fail")
	require.NoError(t, err)
	assert.Equal(t, "boom", fail.Error)

	infos := s.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, "fail", infos[0].Name)
	assert.Equal(t, "ok", infos[1].Name)
}

func TestPanickingJobMarkedAsError(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron(context.Background(), "panic", "0 0 1 1 *", func(context.Context) error {
		panic("oops")
	}))

	require.NoError(t, s.RunNow("panic"))

	require.Eventually(t, func() bool {
		info, _ := s.GetJobInfoByName("panic")
		return info.Status == scheduler.StatusError
	}, 5*time.Second, 10*time.Millisecond)
}
