package accrual

import (
	"log"
	"sync"

	"example.com/sabzgam/internal/observability"
)

// State is the walking mode of a session.
type State string

const (
	StateIdle    State = "idle"
	StateWalking State = "walking"
)

// Snapshot is the read-only view of a session handed to display components.
type Snapshot struct {
	SessionID       string
	StepCount       int
	CoinBalance     int
	IsRunning       bool
	DistanceKm      float64
	CO2SavedGrams   float64
	ProgressPercent int
	DailyGoal       int
	// CoinsAwarded is the number of coins granted by the change that produced this snapshot.
	CoinsAwarded int
	// CoinsEarned counts coins granted since the session was mounted.
	CoinsEarned int
}

// State reports the walking mode captured by the snapshot.
func (s Snapshot) State() State {
	if s.IsRunning {
		return StateWalking
	}
	return StateIdle
}

// Observer receives a snapshot after every state change. Observers run on the
// goroutine that caused the change and must not call Stop or Close.
type Observer func(Snapshot)

// Option configures optional behaviour for a Session.
type Option func(*Session)

// WithRand overrides the random source used to draw step increments.
func WithRand(r Rand) Option {
	return func(s *Session) {
		s.rng = r
	}
}

// WithTicker overrides how the periodic tick is created.
func WithTicker(fn TickerFunc) Option {
	return func(s *Session) {
		s.newTicker = fn
	}
}

// WithObserver registers the change observer.
func WithObserver(fn Observer) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithLogger overrides the logger used to report lifecycle events.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is one simulated walking activity. It starts Idle; Start begins a
// periodic tick that advances the step counter and Stop cancels it.
type Session struct {
	id        string
	cfg       Config
	rng       Rand
	newTicker TickerFunc
	observer  Observer
	logger    *log.Logger

	mu      sync.Mutex
	steps   int
	coins   int
	running bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSession constructs an Idle session holding the configured initial coin grant.
func NewSession(id string, cfg Config, opts ...Option) *Session {
	s := &Session{
		id:        id,
		cfg:       cfg,
		newTicker: NewWallTicker,
		logger:    log.New(log.Writer(), "[accrual] ", log.LstdFlags|log.Lshortfile),
		coins:     cfg.InitialCoins,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand()
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start enters walking mode. It reports false when the session was already
// walking or has been closed. A tick loop still exiting from an earlier Stop is
// waited for first.
func (s *Session) Start() bool {
	s.mu.Lock()
	for s.done != nil && !s.running && !s.closed {
		prev := s.done
		s.mu.Unlock()
		<-prev
		s.mu.Lock()
	}
	if s.running || s.closed {
		s.mu.Unlock()
		return false
	}
	stop, done := make(chan struct{}), make(chan struct{})
	s.running, s.stop, s.done = true, stop, done
	ticker := s.newTicker(s.cfg.TickInterval)
	snap := s.snapshotLocked(0)
	s.mu.Unlock()

	s.notify(snap)
	go s.run(ticker, stop, done)
	return true
}

// Stop leaves walking mode and blocks until the tick loop has exited, so no
// tick can mutate the session once Stop returns. It reports false when the
// session was already idle; in that case it still waits for a loop another
// Stop is tearing down.
func (s *Session) Stop() bool {
	s.mu.Lock()
	done := s.done
	if !s.running {
		s.mu.Unlock()
		if done != nil {
			<-done
		}
		return false
	}
	s.running = false
	close(s.stop)
	s.stop = nil
	snap := s.snapshotLocked(0)
	s.mu.Unlock()

	<-done
	s.notify(snap)
	return true
}

// Close tears the session down. A closed session can no longer be started.
func (s *Session) Close() Snapshot {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.Stop() {
		s.logger.Printf("session %s closed while walking", s.id)
	}
	return s.Snapshot()
}

// Snapshot returns the current state with derived metrics.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(0)
}

func (s *Session) run(ticker Ticker, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		ticker.Stop()
		s.mu.Lock()
		if s.done == done {
			s.done = nil
		}
		s.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			snap, ok := s.tick(stop)
			if !ok {
				return
			}
			s.notify(snap)
		}
	}
}

func (s *Session) tick(stop <-chan struct{}) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop may have won the lock after the tick was received.
	select {
	case <-stop:
		return Snapshot{}, false
	default:
	}

	increment := s.cfg.MinIncrement + s.rng.IntN(s.cfg.MaxIncrement-s.cfg.MinIncrement+1)
	next := s.steps + increment
	awarded := ThresholdsCrossed(s.steps, next, s.cfg.StepsPerThreshold) * s.cfg.CoinsPerThreshold

	s.steps = next
	s.coins += awarded

	observability.RecordTick(increment, awarded)
	return s.snapshotLocked(awarded), true
}

func (s *Session) snapshotLocked(awarded int) Snapshot {
	return Snapshot{
		SessionID:       s.id,
		StepCount:       s.steps,
		CoinBalance:     s.coins,
		IsRunning:       s.running,
		DistanceKm:      DistanceKm(s.steps),
		CO2SavedGrams:   CO2SavedGrams(s.steps),
		ProgressPercent: ProgressPercent(s.steps, s.cfg.DailyGoal),
		DailyGoal:       s.cfg.DailyGoal,
		CoinsAwarded:    awarded,
		CoinsEarned:     s.coins - s.cfg.InitialCoins,
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.observer != nil {
		s.observer(snap)
	}
}
