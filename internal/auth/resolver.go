package auth

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/port"
)

// Resolver looks up the application profile for an authenticated identity.
// Concurrent lookups for the same id are coalesced with singleflight, and
// active profiles are kept warm in a TTL cache so guard evaluations do not
// hit the store on every request.
type Resolver struct {
	profiles port.ProfileStore
	cache    port.Cache[*domain.UserProfile]
	sf       singleflight.Group
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewResolver creates a profile resolver.
func NewResolver(profiles port.ProfileStore, cache port.Cache[*domain.UserProfile], logger *zap.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		profiles: profiles,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns the profile for id, serving from cache when possible.
// A missing row yields ErrProfileNotFound. Inactive profiles are returned
// as-is; deciding what an inactive profile means is the caller's job.
func (r *Resolver) Resolve(ctx context.Context, id string) (*domain.UserProfile, error) {
	if p, ok := r.cache.Get(id); ok {
		return p, nil
	}
	return r.fetch(ctx, id)
}

// ResolveFresh bypasses the cache. Used when a stale profile would be a
// correctness problem, e.g. re-checking ativo on a token refresh.
func (r *Resolver) ResolveFresh(ctx context.Context, id string) (*domain.UserProfile, error) {
	r.cache.Delete(id)
	return r.fetch(ctx, id)
}

// Invalidate drops the cached profile for id.
func (r *Resolver) Invalidate(id string) {
	r.cache.Delete(id)
}

func (r *Resolver) fetch(ctx context.Context, id string) (*domain.UserProfile, error) {
	v, err, _ := r.sf.Do(id, func() (interface{}, error) {
		p, err := r.profiles.GetUserProfile(ctx, id)
		if err != nil {
			r.metrics.IncrResolution("transient")
			return nil, err
		}
		if p == nil {
			r.metrics.IncrResolution("not_found")
			r.logger.Warn("perfil de usuário não encontrado",
				zap.String("user_id", id))
			return nil, &domain.ErrProfileNotFound{ID: id}
		}
		if !p.Ativo {
			r.metrics.IncrResolution("inactive")
			return p, nil
		}
		r.metrics.IncrResolution("active")
		r.cache.Set(id, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.UserProfile), nil
}
