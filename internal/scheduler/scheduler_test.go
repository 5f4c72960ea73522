package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	tenants []string
	date    string
}

func (r *recordingRunner) RunTenants(_ context.Context, tenants []string, asOfDate string) ([]domain.RunResult, error) {
	r.tenants = tenants
	r.date = asOfDate
	out := make([]domain.RunResult, len(tenants))
	for i, t := range tenants {
		out[i] = domain.RunResult{TenantID: t, Success: true}
	}
	return out, nil
}

type staticLister struct {
	tenants []string
	err     error
}

func (l staticLister) ListTenants(context.Context) ([]string, error) {
	return l.tenants, l.err
}

func TestNormalizeTenants(t *testing.T) {
	assert.Equal(t, []string{"t1", "t2", "t3"}, NormalizeTenants([]string{"t1,t2", " t3 ", "t1", ""}))
	assert.Empty(t, NormalizeTenants(nil))
}

func TestRunOnceUsesConfiguredTenants(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New("0 2 * * *", time.UTC, runner, staticLister{tenants: []string{"ignored"}}, []string{"t1, t2"}, 0)
	require.NoError(t, err)

	results, err := s.RunOnce(context.Background(), "2026-10-14")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"t1", "t2"}, runner.tenants)
	assert.Equal(t, "2026-10-14", runner.date)
}

func TestRunOnceDiscoversTenants(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New("@daily", time.UTC, runner, staticLister{tenants: []string{"a", "b", "a"}}, nil, 0)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runner.tenants)

	failing, err := New("@daily", time.UTC, runner, staticLister{err: errors.New("db down")}, nil, 0)
	require.NoError(t, err)
	_, err = failing.RunOnce(context.Background(), "")
	assert.ErrorContains(t, err, "db down")
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New("every day", time.UTC, &recordingRunner{}, nil, nil, 0)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New("0 2 * * *", time.UTC, &recordingRunner{}, nil, []string{"t1"}, 0)
	require.NoError(t, err)

	s.Start()
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)
}

func TestScheduledRunFixesDateOnce(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New("0 2 * * *", time.FixedZone("WIB", 7*60*60), runner, nil, []string{"t1", "t2"}, time.Minute)
	require.NoError(t, err)
	// 2026-10-14 20:00 UTC is already 2026-10-15 in WIB
	s.now = func() time.Time { return time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC) }

	s.tick()
	assert.Equal(t, "2026-10-15", runner.date)
	assert.Equal(t, []string{"t1", "t2"}, runner.tenants)

	_, err = s.RunOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", runner.date)
}

func TestCronLoggerFollowsGlobalLogger(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() { log.Logger = previous })

	_, err := New("@daily", time.UTC, &recordingRunner{}, nil, nil, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	cronLogger{}.Error(errors.New("job panicked"), "panic", "entry", 1)

	assert.Contains(t, buf.String(), "job panicked")
	assert.Contains(t, buf.String(), "cron: panic")
}
