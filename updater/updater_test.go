package updater

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("imgscout", "imgscout", "1.0.0", 0)
	assert.Equal(t, DefaultCheckInterval, cfg.CheckInterval)
	assert.Equal(t, StartupDelay, cfg.StartupDelay)
	assert.Equal(t, "imgscout/imgscout", cfg.Slug())

	cfg = NewConfig("o", "r", "1.0.0", 5*time.Minute)
	assert.Equal(t, 5*time.Minute, cfg.CheckInterval)
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "v1.2.0", normalizeVersion("1.2.0"))
	assert.Equal(t, "v1.2.0", normalizeVersion("v1.2.0"))
	assert.Equal(t, "", normalizeVersion(""))
}

func TestPeriodicCheckCallsBackAndStops(t *testing.T) {
	cfg := NewConfig("o", "r", "1.0.0", 10*time.Millisecond)
	cfg.StartupDelay = time.Millisecond
	u := New(cfg, zerolog.Nop())

	var checks, updates atomic.Int32
	check := func(ctx context.Context) (*selfupdate.Release, bool, error) {
		n := checks.Add(1)
		switch n {
		case 1:
			return nil, false, errors.New("rate limited")
		case 2:
			return nil, false, nil
		default:
			return nil, true, nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.startPeriodic(ctx, check, func() { updates.Add(1) })

	require.Eventually(t, func() bool { return updates.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	time.Sleep(50 * time.Millisecond)
	after := checks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, checks.Load(), "no checks after cancel")
}

func TestPeriodicCheckCancelledDuringStartupDelay(t *testing.T) {
	cfg := NewConfig("o", "r", "1.0.0", time.Millisecond)
	cfg.StartupDelay = time.Hour
	u := New(cfg, zerolog.Nop())

	var checks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	u.startPeriodic(ctx, func(context.Context) (*selfupdate.Release, bool, error) {
		checks.Add(1)
		return nil, false, nil
	}, nil)
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, checks.Load())
}

type fakeRestarter struct {
	calls atomic.Int32
}

func (f *fakeRestarter) Restart() error {
	f.calls.Add(1)
	return nil
}

func TestRestartService(t *testing.T) {
	old := restartDelay
	restartDelay = time.Millisecond
	t.Cleanup(func() { restartDelay = old })

	svc := &fakeRestarter{}
	RestartService(svc, zerolog.Nop())

	require.Eventually(t, func() bool { return svc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLatestVersion(t *testing.T) {
	u := New(NewConfig("acme", "imgscout", "v1.2.0", time.Hour), zerolog.Nop())

	v, err := u.latestVersion(context.Background(), func(context.Context) (*selfupdate.Release, bool, error) {
		return nil, false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", v)

	boom := errors.New("rate limited")
	_, err = u.latestVersion(context.Background(), func(context.Context) (*selfupdate.Release, bool, error) {
		return nil, false, boom
	})
	assert.ErrorIs(t, err, boom)
}
