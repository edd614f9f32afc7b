package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	noaierrors "github.com/noai-dev/noai/internal/errors"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/metrics"
)

var (
	// ErrSessionNotFound is returned by Get for an unknown or expired id.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrMaxSessionsReached is returned by Create at the session limit.
	ErrMaxSessionsReached = errors.New("session: maximum sessions reached")
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// MaxSessions caps concurrent sessions. 0 means unlimited.
	MaxSessions int

	// IdleTimeout closes sessions with no activity for this long.
	// 0 disables idle expiry.
	IdleTimeout time.Duration

	// CleanupInterval is how often idle sessions are looked for
	// (default 30s).
	CleanupInterval time.Duration

	// Session is applied to every new session.
	Session Config
}

// Manager owns every live session.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	api    backend.Backend
	config ManagerConfig

	done        chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	logger *slog.Logger
}

// NewManager creates a manager and starts its cleanup goroutine.
func NewManager(api backend.Backend, config ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 30 * time.Second
	}

	m := &Manager{
		sessions:    make(map[string]*Session),
		api:         api,
		config:      config,
		done:        make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      logger.With("component", "session_manager"),
	}
	go m.cleanupLoop()
	return m
}

// Create starts a new session.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		m.mu.Unlock()
		return nil, noaierrors.New(noaierrors.CodeSessionLimit).
			WithDetailf("limit is %d", m.config.MaxSessions).
			Wrap(ErrMaxSessionsReached)
	}

	s := New(m.api, m.config.Session, m.logger)
	m.sessions[s.ID] = s
	if n := len(m.sessions); n > m.peakSessions {
		m.peakSessions = n
	}
	m.mu.Unlock()

	m.totalCreated.Add(1)
	metrics.RecordSessionOpen()

	if err := s.Start(); err != nil {
		m.Close(s.ID)
		return nil, err
	}

	m.logger.Info("session created",
		"session_id", s.ID,
		"active_sessions", m.Count())
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Closed() {
		return nil, noaierrors.New(noaierrors.CodeSessionUnknown).
			WithDetailf("session %q", id).
			Wrap(ErrSessionNotFound)
	}
	return s, nil
}

// Close closes and removes a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Close()
	m.totalClosed.Add(1)
	metrics.RecordSessionClose()

	m.logger.Info("session closed",
		"session_id", id,
		"active_sessions", m.Count())
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ForEach calls fn for every live session until fn returns false.
func (m *Manager) ForEach(fn func(*Session) bool) {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	for _, s := range list {
		if !fn(s) {
			return
		}
	}
}

func (m *Manager) cleanupLoop() {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CloseIdle(time.Now())
		case <-m.done:
			return
		}
	}
}

// CloseIdle closes every session inactive since before now minus the idle
// timeout. It returns how many were closed.
func (m *Manager) CloseIdle(now time.Time) int {
	if m.config.IdleTimeout <= 0 {
		return 0
	}

	var expired []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.config.IdleTimeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.logger.Debug("closing idle session", "session_id", id)
		m.Close(id)
	}
	return len(expired)
}

// Shutdown stops the cleanup goroutine and closes every session. It
// returns ctx.Err() if ctx ends before all sessions are closed.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.done) })

	select {
	case <-m.cleanupDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.Close(id)
		}(id)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info("session manager shut down", "closed", len(ids))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ManagerStats is a point-in-time view of the manager.
type ManagerStats struct {
	Active       int    `json:"active"`
	Peak         int    `json:"peak"`
	TotalCreated uint64 `json:"totalCreated"`
	TotalClosed  uint64 `json:"totalClosed"`
}

// Stats returns manager statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ManagerStats{
		Active:       len(m.sessions),
		Peak:         m.peakSessions,
		TotalCreated: m.totalCreated.Load(),
		TotalClosed:  m.totalClosed.Load(),
	}
}
