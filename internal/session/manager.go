package session

import (
	"context"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/logger"
	"xybclock/internal/common/metrics"
	"xybclock/internal/xyb"
)

// Manager drives login, validity checking, and invalidation. It wires the
// remote client's invalidation signal straight into the cache so a dead
// session never survives the call that discovered its death.
type Manager struct {
	client *xyb.Client
	cache  *CacheStore
	log    logger.Logger
}

func NewManager(client *xyb.Client, cache *CacheStore, log logger.Logger) *Manager {
	m := &Manager{client: client, cache: cache, log: log}
	client.OnSessionInvalid(func() {
		metrics.SessionInvalidations.Inc()
		if err := cache.Clear(); err != nil {
			log.Error("clearing dead session cache failed", map[string]interface{}{"error": err.Error()})
		} else {
			log.Warn("session declared dead, cache cleared; capture a fresh code", nil)
		}
	})
	return m
}

// Login produces a usable session. With useCache it first tries the cached
// one; otherwise, or on a miss, it redeems the one-time code through the
// two-step exchange and caches the result. A cache hit never consumes the
// code.
func (m *Manager) Login(ctx context.Context, code string, useCache bool) (*Session, error) {
	if useCache {
		cached, err := m.cache.Load()
		if err != nil {
			return nil, err
		}
		if cached != nil {
			m.log.Info("using cached session", nil)
			metrics.SessionLogins.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	if code == "" {
		return nil, apierrors.NewLocalInputInvalid("one-time code is empty, run a capture first")
	}

	m.log.Info("exchanging one-time code for a session", nil)
	seed, err := m.client.GetOpenID(ctx, code)
	if err != nil {
		return nil, err
	}
	login, err := m.client.WxLogin(ctx, seed)
	if err != nil {
		return nil, err
	}

	s := &Session{
		SessionID:    login.SessionID,
		EncryptValue: login.EncryptValue,
		OpenID:       seed.OpenID.String(),
		UnionID:      seed.UnionID.String(),
	}
	if err := m.cache.Save(s); err != nil {
		m.log.Warn("caching session failed", map[string]interface{}{"error": err.Error()})
	}
	metrics.SessionLogins.WithLabelValues("exchange").Inc()
	m.log.Info("login succeeded, session cached", nil)
	return s, nil
}

// CheckValidity asks the server whether the session still works, using the
// plan fetch as the probe. An empty plan still proves the session is alive.
// Network trouble is returned as an error because the answer is unknown.
func (m *Manager) CheckValidity(ctx context.Context, s *Session) (bool, error) {
	_, err := m.client.GetPlan(ctx, s.Auth())
	switch {
	case err == nil:
		return true, nil
	case apierrors.Is(err, apierrors.ErrCodeEmptyPlan):
		return true, nil
	case apierrors.Is(err, apierrors.ErrCodeSessionInvalid):
		return false, nil
	default:
		return false, err
	}
}

// EnsureTraineeID fills in the trainee id, fetching the plan when the
// session does not carry one yet. The enriched session goes back to the
// cache so later runs skip the fetch.
func (m *Manager) EnsureTraineeID(ctx context.Context, s *Session) (string, error) {
	if s.TraineeID != "" {
		return s.TraineeID, nil
	}

	plan, err := m.client.GetPlan(ctx, s.Auth())
	if err != nil {
		return "", err
	}
	id := plan.TraineeID()
	if id == "" {
		return "", apierrors.NewRemoteError("plan carries no trainee id")
	}

	s.TraineeID = id
	if err := m.cache.Save(s); err != nil {
		m.log.Warn("caching trainee id failed", map[string]interface{}{"error": err.Error()})
	}
	return id, nil
}

// Invalidate drops the cached session unconditionally.
func (m *Manager) Invalidate() error {
	return m.cache.Clear()
}
