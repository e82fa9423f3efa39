package accrual

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"example.com/sabzgam/internal/observability"
)

var (
	// ErrSessionNotFound is returned when a session does not exist or belongs to another user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when a user already holds the maximum number of sessions.
	ErrTooManySessions = errors.New("too many open sessions")
)

// Owner identifies the user a session is mounted for.
type Owner struct {
	TenantID string
	UserID   string
}

// OwnerObserver receives snapshots together with the owner of the session.
type OwnerObserver func(Owner, Snapshot)

// ManagerOption configures optional behaviour for the Manager.
type ManagerOption func(*Manager)

// WithMaxSessionsPerUser caps concurrently mounted sessions per owner.
func WithMaxSessionsPerUser(n int) ManagerOption {
	return func(m *Manager) {
		m.maxPerUser = n
	}
}

// WithSessionRand sets the factory used to seed each new session.
func WithSessionRand(fn func() Rand) ManagerOption {
	return func(m *Manager) {
		m.newRand = fn
	}
}

// WithSessionTicker sets the ticker used by new sessions.
func WithSessionTicker(fn TickerFunc) ManagerOption {
	return func(m *Manager) {
		m.newTicker = fn
	}
}

// WithSessionObserver registers an observer attached to every new session.
func WithSessionObserver(fn OwnerObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = fn
	}
}

// WithManagerLogger overrides the logger handed to sessions.
func WithManagerLogger(logger *log.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

type entry struct {
	owner   Owner
	session *Session
}

// Manager mounts and tears down sessions on behalf of their owners.
type Manager struct {
	cfg        Config
	maxPerUser int
	newRand    func() Rand
	newTicker  TickerFunc
	observer   OwnerObserver
	logger     *log.Logger

	mu       sync.Mutex
	sessions map[string]entry
}

// NewManager validates cfg and constructs a Manager.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:        cfg,
		maxPerUser: 3,
		newRand:    NewRand,
		newTicker:  NewWallTicker,
		logger:     log.New(log.Writer(), "[accrual] ", log.LstdFlags|log.Lshortfile),
		sessions:   make(map[string]entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create mounts a new Idle session for owner.
func (m *Manager) Create(owner Owner) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxPerUser > 0 && m.countLocked(owner) >= m.maxPerUser {
		return nil, ErrTooManySessions
	}

	opts := []Option{
		WithRand(m.newRand()),
		WithTicker(m.newTicker),
		WithLogger(m.logger),
	}
	if m.observer != nil {
		observer := m.observer
		opts = append(opts, WithObserver(func(snap Snapshot) {
			observer(owner, snap)
		}))
	}

	session := NewSession(uuid.NewString(), m.cfg, opts...)
	m.sessions[session.ID()] = entry{owner: owner, session: session}
	observability.SetActiveSessions(len(m.sessions))
	return session, nil
}

// Get returns the session with id when it belongs to owner.
func (m *Manager) Get(owner Owner, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Close unmounts the session and returns its final snapshot.
func (m *Manager) Close(owner Owner, id string) (Snapshot, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		m.mu.Unlock()
		return Snapshot{}, ErrSessionNotFound
	}
	delete(m.sessions, id)
	observability.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	return e.session.Close(), nil
}

// Closed pairs a torn-down session's final snapshot with its owner.
type Closed struct {
	Owner    Owner
	Snapshot Snapshot
}

// CloseAll tears down every mounted session and returns their final snapshots.
func (m *Manager) CloseAll() []Closed {
	m.mu.Lock()
	entries := make([]entry, 0, len(m.sessions))
	for id, e := range m.sessions {
		entries = append(entries, e)
		delete(m.sessions, id)
	}
	observability.SetActiveSessions(0)
	m.mu.Unlock()

	closed := make([]Closed, 0, len(entries))
	for _, e := range entries {
		closed = append(closed, Closed{Owner: e.owner, Snapshot: e.session.Close()})
	}
	return closed
}

// Count returns the number of mounted sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) countLocked(owner Owner) int {
	n := 0
	for _, e := range m.sessions {
		if e.owner == owner {
			n++
		}
	}
	return n
}
