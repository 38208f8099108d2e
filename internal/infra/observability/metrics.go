package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the auth core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	signIns        *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	trialChecks    *prometheus.CounterVec
	externalErrors *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		signIns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igreja_auth_signins_total",
				Help: "Sign-in attempts by outcome.",
			},
			[]string{"outcome"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igreja_auth_profile_resolutions_total",
				Help: "Profile resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		guardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igreja_auth_guard_decisions_total",
				Help: "Route guard decisions by outcome.",
			},
			[]string{"outcome"},
		),
		trialChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igreja_auth_trial_checks_total",
				Help: "Trial expiry checks by result.",
			},
			[]string{"result"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igreja_auth_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igreja_auth_operation_duration_seconds",
				Help:    "Duration of auth operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// IncrSignIn records a sign-in attempt outcome (success, invalid_credentials,
// rate_limited, unconfirmed, transient).
func (m *Metrics) IncrSignIn(outcome string) {
	m.signIns.WithLabelValues(outcome).Inc()
}

// IncrResolution records a profile resolution outcome (active, inactive,
// not_found, transient, stale).
func (m *Metrics) IncrResolution(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}

// IncrGuardDecision records a guard decision outcome (admit, wait,
// redirect_login, redirect_role_home).
func (m *Metrics) IncrGuardDecision(outcome string) {
	m.guardDecisions.WithLabelValues(outcome).Inc()
}

// IncrTrialCheck records a trial check result (expired, active, error).
func (m *Metrics) IncrTrialCheck(result string) {
	m.trialChecks.WithLabelValues(result).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// RecordOpDuration records the duration of an auth operation.
func (m *Metrics) RecordOpDuration(operation string, d time.Duration) {
	m.opDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// AuthSnapshot is the JSON view served by GET /v1/metrics/auth.
type AuthSnapshot struct {
	SignInsOK          int64 `json:"signins_ok"`
	SignInsFailed      int64 `json:"signins_failed"`
	GuardAdmits        int64 `json:"guard_admits"`
	GuardRedirects     int64 `json:"guard_redirects"`
	ProfilesNotFound   int64 `json:"profiles_not_found"`
	ProfilesInactive   int64 `json:"profiles_inactive"`
	TrialCheckFailures int64 `json:"trial_check_failures"`
}

// GetAuthSnapshot returns cumulative counter values for the snapshot
// endpoint. Prometheus counters expose cumulative values only.
func (m *Metrics) GetAuthSnapshot() *AuthSnapshot {
	failed := getCounterValue(m.signIns, "invalid_credentials") +
		getCounterValue(m.signIns, "rate_limited") +
		getCounterValue(m.signIns, "unconfirmed") +
		getCounterValue(m.signIns, "transient")
	redirects := getCounterValue(m.guardDecisions, "redirect_login") +
		getCounterValue(m.guardDecisions, "redirect_role_home")

	return &AuthSnapshot{
		SignInsOK:          int64(getCounterValue(m.signIns, "success")),
		SignInsFailed:      int64(failed),
		GuardAdmits:        int64(getCounterValue(m.guardDecisions, "admit")),
		GuardRedirects:     int64(redirects),
		ProfilesNotFound:   int64(getCounterValue(m.resolutions, "not_found")),
		ProfilesInactive:   int64(getCounterValue(m.resolutions, "inactive")),
		TrialCheckFailures: int64(getCounterValue(m.trialChecks, "error")),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
