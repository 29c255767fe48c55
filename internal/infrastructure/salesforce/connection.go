package salesforce

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

// SessionSource hands out the shared session and accepts reports that it
// stopped working.
type SessionSource interface {
	Get(ctx context.Context) (*Session, error)
	Invalidate(s *Session)
}

// ConnectionManager owns the single Session shared by all requests. The
// session is established lazily on the first Get; concurrent first calls
// share one handshake. A failed handshake leaves no session behind, so the
// next Get tries again.
type ConnectionManager struct {
	auth    Authenticator
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker // nil unless enabled

	mu      sync.Mutex
	session *Session

	group singleflight.Group
}

var _ SessionSource = (*ConnectionManager)(nil)

// NewConnectionManager creates a manager. Nothing is contacted until the
// first Get.
func NewConnectionManager(auth Authenticator, cfg *Config, logger *zap.Logger) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ConnectionManager{
		auth:   auth,
		logger: logger.Named("salesforce"),
	}

	if cfg != nil && cfg.Breaker.Enabled {
		bc := cfg.withDefaults().Breaker
		m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "salesforce-auth",
			MaxRequests: 1,
			Timeout:     bc.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bc.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				m.logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return m
}

// Get returns the shared session, performing the handshake if none exists.
// A caller whose ctx ends while a handshake is in flight returns ctx.Err();
// the handshake itself continues for the benefit of the other callers.
func (m *ConnectionManager) Get(ctx context.Context) (*Session, error) {
	if s := m.current(); s != nil {
		return s, nil
	}

	ch := m.group.DoChan("session", func() (any, error) {
		if s := m.current(); s != nil {
			return s, nil
		}

		s, err := m.handshake(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.session = s
		m.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

// Invalidate drops s if it is still the current session. Reports about an
// already replaced session are ignored.
func (m *ConnectionManager) Invalidate(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s != nil && m.session == s {
		m.session = nil
		m.logger.Info("salesforce session invalidated", zap.String("instance_url", s.InstanceURL))
	}
}

// Connected reports whether a session is cached. It never contacts the org.
func (m *ConnectionManager) Connected() bool {
	return m.current() != nil
}

func (m *ConnectionManager) current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *ConnectionManager) handshake(ctx context.Context) (*Session, error) {
	var (
		s   *Session
		err error
	)
	if m.breaker == nil {
		s, err = m.auth.Authenticate(ctx)
	} else {
		var v any
		v, err = m.breaker.Execute(func() (interface{}, error) {
			return m.auth.Authenticate(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &crm.PlatformError{
				Code:    http.StatusServiceUnavailable,
				Content: map[string]any{"error": "authentication temporarily suspended after repeated failures"},
			}
		} else if err == nil {
			s = v.(*Session)
		}
	}

	if err != nil {
		m.logger.Error("salesforce handshake failed", zap.Error(err))
		return nil, err
	}

	m.logger.Info("salesforce session established",
		zap.String("instance_url", s.InstanceURL),
		zap.String("username", s.Username),
	)
	return s, nil
}
