package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"swapPay/internal/metrics"
	"swapPay/internal/model"
)

// DefaultIdle is how long an unfinished session may go untouched.
const DefaultIdle = 30 * time.Minute

// Manager creates sessions and keeps them addressable by id until Reap
// drops them, either some time after they end or once they go idle.
type Manager struct {
	deps     Deps
	mu       sync.RWMutex
	sessions map[string]*Session
	ended    map[string]time.Time
	now      func() time.Time
}

func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Funding.GasReserveWei == nil {
		deps.Funding.GasReserveWei = DefaultGasReserveWei
	}
	if deps.Funding.SwapBufferBps == 0 {
		deps.Funding.SwapBufferBps = DefaultSwapBufferBps
	}
	if deps.Idle <= 0 {
		deps.Idle = DefaultIdle
	}
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
		ended:    make(map[string]time.Time),
		now:      time.Now,
	}
}

// Create starts an idle session for owner.
func (m *Manager) Create(owner string) (*Session, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("%w: invalid user address %q", model.ErrInvalidTransition, owner)
	}
	s := newSession(uuid.NewString(), common.HexToAddress(owner), &m.deps, m.now)
	s.onTerminal = m.markEnded

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	m.deps.Logger.Info("session created", zap.String("session", s.ID()), zap.String("user", s.state.UserAddress))
	return s, nil
}

// Get returns a live or recently ended session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	return s, nil
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap cancels unfinished sessions idle past Deps.Idle and drops them along
// with sessions that ended more than retain ago. It returns how many were
// removed.
func (m *Manager) Reap(retain time.Duration) int {
	now := m.now()

	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		if _, done := m.ended[id]; !done {
			live = append(live, s)
		}
	}
	m.mu.RUnlock()

	// expire takes the session lock and calls back into markEnded, so it
	// must run without m.mu held.
	var expired []string
	for _, s := range live {
		if s.expire(now.Add(-m.deps.Idle)) {
			expired = append(expired, s.ID())
		}
	}

	cutoff := now.Add(-retain)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range expired {
		delete(m.ended, id)
		delete(m.sessions, id)
		removed++
	}
	for id, at := range m.ended {
		if at.Before(cutoff) {
			delete(m.ended, id)
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) markEnded(id string) {
	m.mu.Lock()
	m.ended[id] = m.now()
	m.mu.Unlock()
	metrics.ActiveSessions.Dec()
}
