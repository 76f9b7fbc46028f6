package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type fakeLocks map[string]*fakeLock

func (f fakeLocks) For(job string) (Lock, error) {
	lock, ok := f[job]
	if !ok {
		lock = &fakeLock{}
		f[job] = lock
	}
	return lock, nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "outbox-retention"}
	failing := &testJob{name: "content-cache-warmup", err: errors.New("prismic timeout")}
	locks := fakeLocks{}
	reg := prometheus.NewRegistry()

	service, err := NewService(ServiceParams{
		Logger:   quietLogger(),
		Registry: NewRegistry(failing, ok),
		Locks:    locks,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	err = service.runCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content-cache-warmup")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, locks["outbox-retention"].released)
	assert.Equal(t, 1, locks["content-cache-warmup"].released)
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "envases_cron_job_failure_total"))
}

func TestServiceSkipsJobHeldElsewhere(t *testing.T) {
	job := &testJob{name: "cart-snapshot-retention"}
	locks := fakeLocks{"cart-snapshot-retention": &fakeLock{held: true}}
	service, err := NewService(ServiceParams{
		Logger:   quietLogger(),
		Registry: NewRegistry(job),
		Locks:    locks,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, locks["cart-snapshot-retention"].released)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "outbox-retention"}
	service, err := NewService(ServiceParams{Logger: quietLogger(), Registry: NewRegistry(job), Locks: fakeLocks{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, service.Run(ctx), context.Canceled)
}

func TestNewServiceRequiresLocks(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: quietLogger()})
	assert.Error(t, err)
}
