package viewsvc

import (
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/viewer"
	"github.com/corray333/backend-labs/orderview/internal/service/pricing"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"github.com/google/uuid"
)

// ViewService keeps the open order screens of all viewers.
type ViewService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	dispatcher dispatcher
	pricing    *pricing.Engine
	metrics    *metrics.Metrics
	now        func() time.Time
}

// option is a function that configures the ViewService.
type option func(*ViewService)

// MustNewViewService creates a new ViewService.
func MustNewViewService(opts ...option) *ViewService {
	s := &ViewService{
		sessions: make(map[uuid.UUID]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dispatcher == nil {
		panic("viewsvc: dispatcher is required")
	}
	if s.pricing == nil {
		panic("viewsvc: pricing engine is required")
	}
	if s.metrics == nil {
		s.metrics = metrics.NewUnregistered()
	}

	return s
}

// WithDispatcher sets the command dispatcher for the ViewService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDispatcher(d dispatcher) option {
	return func(s *ViewService) {
		s.dispatcher = d
	}
}

// WithPricingEngine sets the pricing engine for the ViewService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPricingEngine(engine *pricing.Engine) option {
	return func(s *ViewService) {
		s.pricing = engine
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics) option {
	return func(s *ViewService) {
		s.metrics = m
	}
}

// Open starts a new order screen for v.
func (s *ViewService) Open(v viewer.Viewer) (*Session, error) {
	if !v.IsAuthenticated {
		return nil, ErrUnauthenticated
	}

	session := newSession(v, s.dispatcher, s.pricing, s.metrics, s.now)

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	s.metrics.OpenSessions.Inc()
	slog.Info("View session opened", "session_id", session.ID(), "user_id", v.UserID)

	return session, nil
}

// Get returns the session id owned by v. The viewer's current identity replaces
// the one recorded at Open, so admin changes apply immediately.
func (s *ViewService) Get(id uuid.UUID, v viewer.Viewer) (*Session, error) {
	if !v.IsAuthenticated {
		return nil, ErrUnauthenticated
	}

	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	session.mu.Lock()
	owner := session.viewer.UserID
	session.mu.Unlock()
	if owner != v.UserID {
		return nil, ErrSessionNotFound
	}
	session.setViewer(v)

	return session, nil
}

// Close tears down the session. Results of commands still in flight are dropped.
func (s *ViewService) Close(id uuid.UUID, v viewer.Viewer) error {
	session, err := s.Get(id, v)
	if err != nil {
		return err
	}
	s.remove(session)
	slog.Info("View session closed", "session_id", id, "user_id", v.UserID)

	return nil
}

// Sweep closes sessions idle for longer than idle and returns how many were closed.
func (s *ViewService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.RLock()
	var expired []*Session
	for _, session := range s.sessions {
		if session.idleSince().Before(cutoff) {
			expired = append(expired, session)
		}
	}
	s.mu.RUnlock()

	for _, session := range expired {
		s.remove(session)
	}
	if len(expired) > 0 {
		slog.Info("Idle view sessions closed", "count", len(expired))
	}

	return len(expired)
}

// CloseAll tears down every session.
func (s *ViewService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.close()
		s.metrics.OpenSessions.Dec()
	}
}

// Len returns the number of open sessions.
func (s *ViewService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

func (s *ViewService) remove(session *Session) {
	s.mu.Lock()
	_, ok := s.sessions[session.ID()]
	delete(s.sessions, session.ID())
	s.mu.Unlock()

	if ok {
		session.close()
		s.metrics.OpenSessions.Dec()
	}
}
