package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/port"
)

// TrialChecker answers trial-expiry questions for tenant accounts.
//
// CheckExpired is fail-open on purpose: its result only drives an advisory
// banner, and a backend hiccup must never lock a paying customer out.
type TrialChecker struct {
	policy  port.PolicyClient
	tenants port.TenantStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewTrialChecker creates a trial checker.
func NewTrialChecker(policy port.PolicyClient, tenants port.TenantStore, logger *zap.Logger, metrics *observability.Metrics) *TrialChecker {
	return &TrialChecker{
		policy:  policy,
		tenants: tenants,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckExpired reports whether the user's trial has expired, evaluated
// server-side under the caller's own identity. On error it logs and returns
// false (not expired).
func (t *TrialChecker) CheckExpired(ctx context.Context, accessToken, userID string) bool {
	expired, err := t.policy.CheckTrialExpired(ctx, accessToken, userID)
	if err != nil {
		t.metrics.IncrTrialCheck("error")
		t.metrics.IncrExternalError("supabase")
		t.logger.Error("falha ao verificar expiração do trial",
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}
	if expired {
		t.metrics.IncrTrialCheck("expired")
	} else {
		t.metrics.IncrTrialCheck("active")
	}
	return expired
}

// StatusFor derives the full trial window for a tenant from its row. Used by
// the trial banner endpoint.
func (t *TrialChecker) StatusFor(ctx context.Context, clienteID string) (*domain.TrialStatus, error) {
	c, err := t.tenants.GetCliente(ctx, clienteID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &domain.TrialStatus{IsTrialClient: false}, nil
	}
	return domain.TrialStatusOf(c, time.Now()), nil
}

// SweepExpired asks the backend to inactivate every tenant whose trial window
// has lapsed. Advisory housekeeping; errors are logged by the caller.
func (t *TrialChecker) SweepExpired(ctx context.Context) error {
	return t.policy.InactivateExpiredTrialClients(ctx)
}

// RunSweeper runs SweepExpired on a fixed interval until ctx is done.
func (t *TrialChecker) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.SweepExpired(ctx); err != nil {
				t.logger.Warn("varredura de trials expirados falhou", zap.Error(err))
			}
		}
	}
}
