package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/auth"
	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/cache"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/infra/supabase"
)

const testJWTSecret = "unit-test-secret"

// ---- port fakes ----

type stubProvider struct {
	profileRole domain.Role
}

func (s *stubProvider) SignInWithPassword(_ context.Context, email, password string) (*domain.Session, error) {
	if password != "ok" {
		return nil, &domain.ErrInvalidCredentials{}
	}
	return &domain.Session{
		AccessToken:  "tok",
		RefreshToken: "ref",
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     domain.Identity{ID: "u1", Email: email},
	}, nil
}

func (s *stubProvider) SignOut(context.Context, string) error { return nil }

func (s *stubProvider) GetSession(context.Context) (*domain.Session, error) { return nil, nil }

func (s *stubProvider) RefreshSession(context.Context, string) (*domain.Session, error) {
	return nil, nil
}

type stubProfileStore struct {
	role domain.Role
}

func (s *stubProfileStore) GetUserProfile(_ context.Context, id string) (*domain.UserProfile, error) {
	return &domain.UserProfile{
		ID:        id,
		Email:     "a@b.com",
		Role:      s.role,
		ClienteID: "c1",
		Ativo:     true,
	}, nil
}

type stubTenantStore struct{}

func (stubTenantStore) GetCliente(_ context.Context, id string) (*domain.Cliente, error) {
	return &domain.Cliente{
		ID:        id,
		Tag:       domain.TrialTag,
		Status:    "ativo",
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}, nil
}

type stubPolicy struct{}

func (stubPolicy) CheckTrialExpired(context.Context, string, string) (bool, error) {
	return false, nil
}
func (stubPolicy) InactivateExpiredTrialClients(context.Context) error { return nil }
func (stubPolicy) UserHasChurchAccess(context.Context, string, string) (bool, error) {
	return false, nil
}

// ---- fixture ----

func newTestRouter(t *testing.T, role domain.Role) (http.Handler, *auth.Orchestrator) {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	c := cache.New[*domain.UserProfile](time.Minute)
	t.Cleanup(c.Close)

	resolver := auth.NewResolver(&stubProfileStore{role: role}, c, logger, metrics)
	trial := auth.NewTrialChecker(stubPolicy{}, stubTenantStore{}, logger, metrics)
	guard := auth.NewGuard(stubPolicy{}, logger, metrics)
	nav := auth.NavigatorFunc(func(string) {})

	orch := auth.NewOrchestrator(&stubProvider{}, resolver, trial, nav, logger, metrics, 2*time.Second)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	waitUnauthenticated(t, orch)

	verifier := supabase.NewTokenVerifier(testJWTSecret)
	return NewRouter(orch, guard, trial, verifier, metrics, logger, false), orch
}

func waitUnauthenticated(t *testing.T, orch *auth.Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if orch.State().Phase == domain.PhaseUnauthenticated {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("orchestrator never settled")
}

func doLogin(t *testing.T, router http.Handler, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": "a@b.com", "password": password})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, supabase.AccessClaims{
		Email: "a@b.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// ---- tests ----

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LoginSuccess(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)

	rec := doLogin(t, router, "ok")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, auth.PathDashboard, resp.Redirect)
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)

	rec := doLogin(t, router, "nope")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email ou senha incorretos")
}

func TestRouter_GuardedAreaUnauthenticated(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, auth.PathLogin, rec.Header().Get("Location"))
}

func TestRouter_GuardedAreaAfterLogin(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RoleMismatchRedirectsHome(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/superadmin", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, auth.PathDashboard, rec.Header().Get("Location"))
}

func TestRouter_ChurchAreaOpenToCliente(t *testing.T) {
	// Church pages admit all three roles. The scope predicate restricts
	// admin_igreja only, so a cliente gets in even though the stub policy
	// denies every church access check.
	router, _ := newTestRouter(t, domain.RoleCliente)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/church/7f4ac7bb-8571-4d8e-9be2-f4f2a02d5c1a", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "church")
}

func TestRouter_ChurchAreaSuperadminAdmitted(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleSuperAdmin)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/church/7f4ac7bb-8571-4d8e-9be2-f4f2a02d5c1a", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ChurchAreaAdminWithoutGrantRedirected(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleAdminIgreja)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/church/7f4ac7bb-8571-4d8e-9be2-f4f2a02d5c1a", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestRouter_LogoutClearsSession(t *testing.T) {
	router, orch := newTestRouter(t, domain.RoleCliente)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	waitUnauthenticated(t, orch)
}

func TestRouter_TrialRequiresBearerToken(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/trial", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_TrialStatusWithToken(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/trial", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.TrialStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.IsTrialClient)
	assert.Equal(t, 6, status.DaysLeft)
}

func TestRouter_TrialTokenForOtherUserRejected(t *testing.T) {
	// A validly signed token for a different subject must not read the
	// active session's trial window.
	router, _ := newTestRouter(t, domain.RoleCliente)
	require.Equal(t, http.StatusOK, doLogin(t, router, "ok").Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/trial", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u2"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "não corresponde")
}

func TestRouter_ForgedBearerTokenRejected(t *testing.T) {
	router, _ := newTestRouter(t, domain.RoleCliente)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/trial", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
