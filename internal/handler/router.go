package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/auth"
	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/infra/supabase"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	orch *auth.Orchestrator,
	guard *auth.Guard,
	trial *auth.TrialChecker,
	verifier *supabase.TokenVerifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
	devMode bool,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Autenticação
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", loginHandler(orch, logger, devMode))
			r.Post("/logout", logoutHandler(orch, logger))
			r.Get("/session", sessionHandler(orch))

			r.Group(func(r chi.Router) {
				r.Use(BearerAuthMiddleware(verifier, logger))
				r.Get("/trial", trialStatusHandler(orch, trial, logger, devMode))
			})
		})

		// Métricas de autenticação
		r.Get("/metrics/auth", authMetricsHandler(metrics))

		// Áreas protegidas por papel. Páginas de igreja são abertas aos
		// três papéis; o predicado de escopo só restringe admin_igreja.
		r.Group(func(r chi.Router) {
			r.Use(GuardMiddleware(guard, orch, []domain.Role{domain.RoleSuperAdmin}, nil, logger))
			r.Get("/superadmin", areaHandler("superadmin"))
		})
		r.Group(func(r chi.Router) {
			r.Use(GuardMiddleware(guard, orch, []domain.Role{domain.RoleCliente}, nil, logger))
			r.Get("/dashboard", areaHandler("dashboard"))
		})
		r.Group(func(r chi.Router) {
			r.Use(GuardMiddleware(guard, orch,
				[]domain.Role{domain.RoleAdminIgreja, domain.RoleCliente, domain.RoleSuperAdmin},
				churchIDParam, logger))
			r.Get("/church/{churchId}", churchAreaHandler())
		})
	})

	return r
}

func churchIDParam(r *http.Request) string {
	return chi.URLParam(r, "churchId")
}

// ============================================================
// Autenticação
// ============================================================

func loginHandler(orch *auth.Orchestrator, logger *zap.Logger, devMode bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		redirect, err := orch.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			handleAuthError(w, err, logger, devMode)
			return
		}

		state := orch.State()
		span.SetAttributes(attribute.String("auth.redirect", redirect))

		writeJSON(w, http.StatusOK, map[string]any{
			"redirect": redirect,
			"state":    state,
		})
	}
}

func logoutHandler(orch *auth.Orchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		orch.SignOut(ctx)
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionHandler(orch *auth.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.State())
	}
}

func trialStatusHandler(orch *auth.Orchestrator, trial *auth.TrialChecker, logger *zap.Logger, devMode bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auth/trial")
		defer span.End()

		state := orch.State()
		if !state.Authenticated() {
			writeError(w, http.StatusUnauthorized, "Não autenticado")
			return
		}

		// The bearer token must belong to the resolved session's user, so
		// one user's token cannot read another tenant's trial window.
		ident := IdentityFromContext(ctx)
		if ident == nil || ident.ID != state.Profile.ID {
			writeError(w, http.StatusForbidden, "Token não corresponde à sessão ativa")
			return
		}
		if state.Profile.ClienteID == "" {
			writeJSON(w, http.StatusOK, &domain.TrialStatus{IsTrialClient: false})
			return
		}

		status, err := trial.StatusFor(ctx, state.Profile.ClienteID)
		if err != nil {
			handleAuthError(w, err, logger, devMode)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// ============================================================
// Áreas protegidas
// ============================================================

// areaHandler is the stand-in payload for a guarded area. Reaching it at all
// is the interesting part; the guard middleware did the work.
func areaHandler(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"area": area})
	}
}

func churchAreaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		churchID := chi.URLParam(r, "churchId")
		if _, err := uuid.Parse(churchID); err != nil {
			writeError(w, http.StatusBadRequest, "churchId inválido")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"area": "church", "church_id": churchID})
	}
}

// ============================================================
// Métricas & Health
// ============================================================

func authMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAuthSnapshot())
	}
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}
