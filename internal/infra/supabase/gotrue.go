package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vidaplena/igreja-admin-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// GoTrue adapter: implements port.AuthProvider
// ============================================================

// tokenResponse is the GoTrue token grant payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// gotrueError is the GoTrue error payload. Field names vary across versions,
// so all three are tried.
type gotrueError struct {
	ErrorCode        string `json:"error_code"`
	Error_           string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e *gotrueError) text() string {
	for _, s := range []string{e.ErrorCode, e.ErrorDescription, e.Msg, e.Error_} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignInWithPassword performs the password grant. Provider errors are
// translated into the fixed taxonomy; raw GoTrue text is logged at debug
// level only and never returned.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "GoTrue.SignInWithPassword")
	defer span.End()

	payload := map[string]string{"email": email, "password": password}
	status, body, err := c.doAuthRequest(ctx, http.MethodPost, "token?grant_type=password", "", payload)
	if err != nil {
		return nil, &domain.ErrTransient{Op: "gotrue/token", Err: err}
	}

	if status < 200 || status >= 300 {
		return nil, c.translateAuthError(status, body)
	}

	sess, err := c.decodeSession(body)
	if err != nil {
		return nil, &domain.ErrTransient{Op: "gotrue/token", Err: err}
	}

	c.setSession(sess)
	return sess, nil
}

// SignOut revokes the session server-side and drops the local copy. The
// local copy is cleared first so a failed round-trip cannot leave a stale
// session behind.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "GoTrue.SignOut")
	defer span.End()

	c.setSession(nil)

	status, body, err := c.doAuthRequest(ctx, http.MethodPost, "logout", accessToken, nil)
	if err != nil {
		return &domain.ErrTransient{Op: "gotrue/logout", Err: err}
	}
	if status < 200 || status >= 300 {
		return c.translateAuthError(status, body)
	}
	return nil
}

// GetSession returns the provider's current session, refreshing it when the
// access token has expired. (nil, nil) means no session exists.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if !sess.Expired(time.Now()) {
		return sess, nil
	}
	return c.RefreshSession(ctx, sess.RefreshToken)
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "GoTrue.RefreshSession")
	defer span.End()

	payload := map[string]string{"refresh_token": refreshToken}
	status, body, err := c.doAuthRequest(ctx, http.MethodPost, "token?grant_type=refresh_token", "", payload)
	if err != nil {
		return nil, &domain.ErrTransient{Op: "gotrue/refresh", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, c.translateAuthError(status, body)
	}

	sess, err := c.decodeSession(body)
	if err != nil {
		return nil, &domain.ErrTransient{Op: "gotrue/refresh", Err: err}
	}

	c.setSession(sess)
	return sess, nil
}

// doAuthRequest executes a GoTrue call. Unlike doRequest it returns the
// status code so callers can translate error payloads.
func (c *Client) doAuthRequest(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	url := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}

	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("gotrue: request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) decodeSession(body []byte) (*domain.Session, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &domain.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Identity: domain.Identity{
			ID:    tr.User.ID,
			Email: tr.User.Email,
		},
	}, nil
}

func (c *Client) setSession(sess *domain.Session) {
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()
}

// translateAuthError maps GoTrue error payloads onto the domain taxonomy.
// The raw text goes to the debug log only.
func (c *Client) translateAuthError(status int, body []byte) error {
	var ge gotrueError
	_ = json.Unmarshal(body, &ge)
	raw := strings.ToLower(ge.text())

	c.logger.Debug("gotrue: auth error",
		zap.Int("status", status),
		zap.String("provider_error", raw),
	)

	switch {
	case status == http.StatusTooManyRequests,
		strings.Contains(raw, "rate_limit"),
		strings.Contains(raw, "too_many_requests"):
		return &domain.ErrRateLimited{}
	case strings.Contains(raw, "email_not_confirmed"),
		strings.Contains(raw, "email not confirmed"):
		return &domain.ErrUnconfirmedAccount{}
	case strings.Contains(raw, "invalid_credentials"),
		strings.Contains(raw, "invalid login credentials"),
		strings.Contains(raw, "invalid_grant"):
		return &domain.ErrInvalidCredentials{}
	default:
		return &domain.ErrTransient{Op: "gotrue", Err: fmt.Errorf("status %d", status)}
	}
}
