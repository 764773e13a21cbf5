package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/roelfdiedericks/scrapemcp/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession returns a session whose liveness is controlled by alive.
func fakeSession(alive *atomic.Bool) *Session {
	s := &Session{}
	s.alive = func(context.Context) bool { return alive.Load() }
	return s
}

const testDataDir = "/nonexistent-scrapemcp-test"

func newTestManager(launch func(ctx context.Context) (*Session, error)) *Manager {
	m := NewManager(DefaultBrowserConfig(), testDataDir)
	m.launch = launch
	return m
}

func TestManagerReusesLiveSession(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	var launches int
	m := newTestManager(func(context.Context) (*Session, error) {
		launches++
		return fakeSession(&alive), nil
	})

	s1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, launches)
	assert.True(t, m.Status().Running)
	assert.Equal(t, 1, m.Status().Launches)
}

func TestManagerRelaunchesDeadSession(t *testing.T) {
	var first, second atomic.Bool
	first.Store(true)
	second.Store(true)
	sessions := []*Session{fakeSession(&first), fakeSession(&second)}
	var n int
	m := newTestManager(func(context.Context) (*Session, error) {
		s := sessions[n]
		n++
		return s, nil
	})

	s1, err := m.Acquire(context.Background())
	require.NoError(t, err)

	first.Store(false)
	s2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, s1, s2)
	assert.Same(t, sessions[1], s2)
	assert.Equal(t, 2, m.Status().Launches)
}

func TestManagerLaunchFailureLeavesManagerEmpty(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	fail := true
	m := newTestManager(func(context.Context) (*Session, error) {
		if fail {
			return nil, errors.New("chrome exploded")
		}
		return fakeSession(&alive), nil
	})

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindBrowserLaunch))
	assert.Contains(t, err.Error(), "chrome exploded")
	assert.False(t, m.Status().Running)

	// a later call tries again
	fail = false
	s, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestManagerCancelledContext(t *testing.T) {
	m := newTestManager(func(context.Context) (*Session, error) {
		t.Fatal("launch must not run with a cancelled context")
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Acquire(ctx)
	assert.True(t, types.IsKind(err, types.KindCancelled))
}

func TestManagerKeepsSessionWhenCallerCancelsDuringCheck(t *testing.T) {
	var launches int
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthy := &Session{}
	// the liveness check fails only because the caller went away
	healthy.alive = func(c context.Context) bool { return c.Err() == nil }
	m := newTestManager(func(context.Context) (*Session, error) {
		launches++
		return healthy, nil
	})

	s1, err := m.Acquire(context.Background())
	require.NoError(t, err)

	healthy.alive = func(context.Context) bool {
		cancel()
		return false
	}
	_, err = m.Acquire(ctx)
	assert.True(t, types.IsKind(err, types.KindCancelled), "got %v", err)

	healthy.alive = func(context.Context) bool { return true }
	s2, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, launches)
	assert.Equal(t, 1, m.Status().Launches)
}

func TestManagerShutdown(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	m := newTestManager(func(context.Context) (*Session, error) {
		return fakeSession(&alive), nil
	})

	// no session yet
	m.Shutdown()

	m = newTestManager(func(context.Context) (*Session, error) {
		return fakeSession(&alive), nil
	})
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	m.Shutdown()
	m.Shutdown()
	assert.False(t, m.Status().Running)

	_, err = m.Acquire(context.Background())
	assert.True(t, types.IsKind(err, types.KindBrowserLaunch))
}

func TestNilManager(t *testing.T) {
	var m *Manager
	_, err := m.Acquire(context.Background())
	assert.True(t, types.IsKind(err, types.KindBrowserLaunch))
	m.Shutdown()
	assert.Equal(t, ManagerStatus{}, m.Status())
}
