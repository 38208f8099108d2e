package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Server-side policy predicates: implements port.PolicyClient.
// The booleans are decided by SQL functions under RLS; the client
// never re-derives them locally.
// ============================================================

// CheckTrialExpired asks the server whether the tenant's trial window has
// elapsed, keyed by the tenant's customer-facing user id.
func (c *Client) CheckTrialExpired(ctx context.Context, accessToken, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CheckTrialExpired")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var expired bool
	err := c.withResilience(ctx, "supabase/check_trial_expired", func() error {
		body, err := c.rpc(ctx, "check_trial_expired", accessToken, map[string]any{
			"client_user_id": userID,
		})
		if err != nil {
			return err
		}
		if body == nil {
			expired = false
			return nil
		}
		if err := json.Unmarshal(body, &expired); err != nil {
			return fmt.Errorf("decode check_trial_expired: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// InactivateExpiredTrialClients triggers the server-side bulk deactivation
// of tenants whose trial window has elapsed. Advisory housekeeping; the real
// enforcement is the RLS policies keyed off ativo.
func (c *Client) InactivateExpiredTrialClients(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.InactivateExpiredTrialClients")
	defer span.End()

	return c.withResilience(ctx, "supabase/inactivate_expired_trial_clients", func() error {
		_, err := c.rpc(ctx, "inactivate_expired_trial_clients", c.sessionToken(), nil)
		return err
	})
}

// UserHasChurchAccess asks the server whether the calling identity may
// access the given church. Evaluated server-side under the caller's own
// authenticated identity.
func (c *Client) UserHasChurchAccess(ctx context.Context, accessToken, churchID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UserHasChurchAccess")
	defer span.End()
	span.SetAttributes(attribute.String("church.id", churchID))

	var allowed bool
	err := c.withResilience(ctx, "supabase/user_has_church_access", func() error {
		body, err := c.rpc(ctx, "user_has_church_access", accessToken, map[string]any{
			"church_id": churchID,
		})
		if err != nil {
			return err
		}
		if body == nil {
			allowed = false
			return nil
		}
		if err := json.Unmarshal(body, &allowed); err != nil {
			return fmt.Errorf("decode user_has_church_access: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}
