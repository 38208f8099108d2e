package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vidaplena/igreja-admin-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Profile and tenant reads: implements port.ProfileStore and
// port.TenantStore. Read-only by construction: only GETs are issued.
// ============================================================

// usuarioRow maps the "usuarios" table columns.
type usuarioRow struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ClienteID string `json:"cliente_id"`
	IgrejaID  string `json:"igreja_id"`
	Nome      string `json:"nome"`
	Ativo     bool   `json:"ativo"`
}

// GetUserProfile fetches the application-level profile for an identity id.
// Returns (nil, nil) when no row matches; activity checks are the caller's
// concern.
func (c *Client) GetUserProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", id))

	var profile *domain.UserProfile

	err := c.withResilience(ctx, "supabase/usuarios", func() error {
		path := fmt.Sprintf("usuarios?id=eq.%s&limit=1", url.QueryEscape(id))
		body, err := c.doRequest(ctx, http.MethodGet, path, c.sessionToken(), nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			profile = nil
			return nil // not found is not a transport failure
		}

		var rows []usuarioRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode usuarios: %w", err)
		}
		if len(rows) == 0 {
			profile = nil
			return nil
		}

		r := rows[0]
		profile = &domain.UserProfile{
			ID:        r.ID,
			Email:     r.Email,
			Role:      domain.Role(r.Role),
			ClienteID: r.ClienteID,
			IgrejaID:  r.IgrejaID,
			Nome:      r.Nome,
			Ativo:     r.Ativo,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// clienteRow maps the "clientes" table columns the trial checker needs.
type clienteRow struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Tag       string `json:"tag"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// GetCliente fetches a tenant row. Returns (nil, nil) when no row matches.
func (c *Client) GetCliente(ctx context.Context, id string) (*domain.Cliente, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCliente")
	defer span.End()
	span.SetAttributes(attribute.String("cliente.id", id))

	var cliente *domain.Cliente

	err := c.withResilience(ctx, "supabase/clientes", func() error {
		path := fmt.Sprintf("clientes?id=eq.%s&select=id,nome,tag,status,created_at&limit=1", url.QueryEscape(id))
		body, err := c.doRequest(ctx, http.MethodGet, path, c.sessionToken(), nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			cliente = nil
			return nil
		}

		var rows []clienteRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode clientes: %w", err)
		}
		if len(rows) == 0 {
			cliente = nil
			return nil
		}

		r := rows[0]
		createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			createdAt, _ = time.Parse("2006-01-02T15:04:05", r.CreatedAt)
		}
		cliente = &domain.Cliente{
			ID:        r.ID,
			Nome:      r.Nome,
			Tag:       r.Tag,
			Status:    r.Status,
			CreatedAt: createdAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cliente, nil
}

// sessionToken returns the current session's access token, or "" when signed
// out (anon key fallback; RLS then exposes nothing private).
func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.AccessToken
}
