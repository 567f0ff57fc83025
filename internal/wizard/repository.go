package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/shared/constants"
	"tablebook/pkg/cache"
)

// SessionStore persists sessions between requests.
type SessionStore interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	// ClaimSubmit marks a submission in flight for the session. It fails with
	// ErrInvalidState while another claim is held; release drops the claim.
	ClaimSubmit(ctx context.Context, id string) (release func(), err error)
}

type cacheStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewSessionStore keeps sessions as JSON in the cache, expiring after ttl of inactivity.
func NewSessionStore(c cache.Service, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = constants.TTL_SESSION_DEFAULT
	}
	return &cacheStore{cache: c, ttl: ttl}
}

func (r *cacheStore) Load(ctx context.Context, id string) (Session, error) {
	var s Session
	if err := r.cache.Get(ctx, constants.BuildWizardSessionKey(id), &s); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

func (r *cacheStore) Save(ctx context.Context, s Session) error {
	if err := r.cache.Set(ctx, constants.BuildWizardSessionKey(s.ID), s, r.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *cacheStore) Delete(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, constants.BuildWizardSessionKey(id))
}

func (r *cacheStore) ClaimSubmit(ctx context.Context, id string) (func(), error) {
	key := constants.BuildWizardSubmitKey(id)
	ok, err := r.cache.SetNX(ctx, key, time.Now().UTC(), constants.TTL_SUBMIT_CLAIM)
	if err != nil {
		return nil, fmt.Errorf("failed to claim submission: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: submission already in progress", ErrInvalidState)
	}

	return func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.cache.Delete(ctx, key)
	}, nil
}
