package accrual

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagerScopesSessionsToOwner(t *testing.T) {
	m := newTestManager(t, &manualClock{}, nil)

	alice := Owner{TenantID: "tenant-1", UserID: "alice"}
	bob := Owner{TenantID: "tenant-1", UserID: "bob"}

	s, err := m.Create(alice)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID())

	got, err := m.Get(alice, s.ID())
	require.NoError(t, err)
	require.Same(t, s, got)

	_, err = m.Get(bob, s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Close(bob, s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Equal(t, 1, m.Count())
}

func TestManagerLimitsSessionsPerUser(t *testing.T) {
	m := newTestManager(t, &manualClock{}, nil, WithMaxSessionsPerUser(2))
	owner := Owner{TenantID: "tenant-1", UserID: "alice"}

	_, err := m.Create(owner)
	require.NoError(t, err)
	second, err := m.Create(owner)
	require.NoError(t, err)

	_, err = m.Create(owner)
	require.ErrorIs(t, err, ErrTooManySessions)

	_, err = m.Create(Owner{TenantID: "tenant-1", UserID: "bob"})
	require.NoError(t, err)

	_, err = m.Close(owner, second.ID())
	require.NoError(t, err)
	_, err = m.Create(owner)
	require.NoError(t, err)
}

func TestManagerCloseStopsWalkingSession(t *testing.T) {
	clock := &manualClock{}
	var (
		mu   sync.Mutex
		seen []Owner
	)
	events := make(chan Snapshot, 16)
	m := newTestManager(t, clock, func(o Owner, snap Snapshot) {
		mu.Lock()
		seen = append(seen, o)
		mu.Unlock()
		events <- snap
	})
	owner := Owner{TenantID: "tenant-1", UserID: "alice"}

	s, err := m.Create(owner)
	require.NoError(t, err)
	require.True(t, s.Start())
	requireEvent(t, events)
	require.True(t, clock.fire())
	tick := requireEvent(t, events)
	require.Equal(t, 10, tick.StepCount)

	final, err := m.Close(owner, s.ID())
	require.NoError(t, err)
	require.False(t, final.IsRunning)
	require.Equal(t, 10, final.StepCount)
	require.True(t, clock.latest().isStopped())
	require.Zero(t, m.Count())

	_, err = m.Get(owner, s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)

	mu.Lock()
	defer mu.Unlock()
	for _, o := range seen {
		require.Equal(t, owner, o)
	}
}

func TestManagerCloseAll(t *testing.T) {
	clock := &manualClock{}
	m := newTestManager(t, clock, nil)

	a, err := m.Create(Owner{TenantID: "t", UserID: "a"})
	require.NoError(t, err)
	b, err := m.Create(Owner{TenantID: "t", UserID: "b"})
	require.NoError(t, err)
	require.True(t, a.Start())
	require.True(t, b.Start())

	require.True(t, clock.fire())

	closed := m.CloseAll()

	require.Len(t, closed, 2)
	byUser := map[string]Snapshot{}
	for _, c := range closed {
		byUser[c.Owner.UserID] = c.Snapshot
	}
	require.Equal(t, a.ID(), byUser["a"].SessionID)
	require.Equal(t, b.ID(), byUser["b"].SessionID)
	require.False(t, byUser["a"].IsRunning)
	require.Equal(t, 10, byUser["a"].StepCount+byUser["b"].StepCount)
	require.Empty(t, m.CloseAll())

	require.Zero(t, m.Count())
	require.False(t, a.Snapshot().IsRunning)
	require.False(t, b.Snapshot().IsRunning)
	require.False(t, a.Start())
	for _, tk := range clock.tickers {
		require.True(t, tk.isStopped())
	}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepsPerThreshold = 0
	_, err := NewManager(cfg)
	require.Error(t, err)
}

func newTestManager(t *testing.T, clock *manualClock, observer OwnerObserver, opts ...ManagerOption) *Manager {
	t.Helper()
	base := []ManagerOption{
		WithSessionRand(func() Rand { return &scriptedRand{values: []int{0}} }),
		WithSessionTicker(clock.NewTicker),
		WithManagerLogger(discardLogger()),
	}
	if observer != nil {
		base = append(base, WithSessionObserver(observer))
	}
	m, err := NewManager(DefaultConfig(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { m.CloseAll() })
	return m
}
