package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/port"
)

// refreshMargin is how far before token expiry a refresh is attempted.
const refreshMargin = 2 * time.Minute

// refreshPollInterval is how often the loop checks whether a refresh is due.
const refreshPollInterval = 30 * time.Second

type signInResult struct {
	redirect string
	err      error
}

type authEvent struct {
	typ     domain.AuthEventType
	session *domain.Session
	reply   chan signInResult
}

type resolveResult struct {
	epoch uint64
	state domain.AuthState
	err   error
}

// Orchestrator owns the authentication state machine. All writes to the
// state go through a single event-loop goroutine, so readers always see a
// consistent snapshot and concurrent auth events cannot interleave their
// side effects.
//
// Each accepted event bumps an epoch counter. Session resolution runs in a
// worker goroutine stamped with the epoch it was started under; results
// arriving with an older stamp are discarded. This is what makes a sign-out
// during a slow profile fetch win: sign-out applies immediately and bumps
// the epoch, so the late fetch result is thrown away.
type Orchestrator struct {
	provider port.AuthProvider
	resolver *Resolver
	trial    *TrialChecker
	nav      port.Navigator
	logger   *zap.Logger
	metrics  *observability.Metrics

	resolveTimeout time.Duration

	mu    sync.RWMutex
	state domain.AuthState

	events  chan authEvent
	results chan resolveResult
	stop    chan struct{}
	done    chan struct{}
}

// NewOrchestrator wires the auth state machine. Call Start to restore any
// persisted session and begin processing events.
func NewOrchestrator(
	provider port.AuthProvider,
	resolver *Resolver,
	trial *TrialChecker,
	nav port.Navigator,
	logger *zap.Logger,
	metrics *observability.Metrics,
	resolveTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		provider:       provider,
		resolver:       resolver,
		trial:          trial,
		nav:            nav,
		logger:         logger,
		metrics:        metrics,
		resolveTimeout: resolveTimeout,
		state:          domain.AuthState{Phase: domain.PhaseUninitialized, Loading: true},
		events:         make(chan authEvent, 16),
		results:        make(chan resolveResult, 16),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start launches the event loop and kicks off session restore. The restore
// is bounded by the resolve timeout, so Loading always settles even when the
// backend hangs.
func (o *Orchestrator) Start(ctx context.Context) {
	go o.run()

	go func() {
		rctx, cancel := context.WithTimeout(ctx, o.resolveTimeout)
		defer cancel()

		session, err := o.provider.GetSession(rctx)
		if err != nil {
			o.logger.Warn("restauração de sessão falhou", zap.Error(err))
			o.enqueue(authEvent{typ: domain.EventInitialSession, session: nil})
			return
		}
		o.enqueue(authEvent{typ: domain.EventInitialSession, session: session})
	}()
}

// Stop shuts the event loop down and waits for it to drain.
func (o *Orchestrator) Stop() {
	close(o.stop)
	<-o.done
}

// State returns a snapshot of the current auth state.
func (o *Orchestrator) State() domain.AuthState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// SignIn authenticates interactively. On success it returns the role-based
// redirect path and navigates there. Credential validation happens locally
// first; the provider error taxonomy is returned unchanged.
func (o *Orchestrator) SignIn(ctx context.Context, email, password string) (string, error) {
	start := time.Now()
	defer func() { o.metrics.RecordOpDuration("sign_in", time.Since(start)) }()

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	session, err := o.provider.SignInWithPassword(ctx, normalized, password)
	if err != nil {
		o.metrics.IncrSignIn(signInOutcome(err))
		return "", err
	}

	reply := make(chan signInResult, 1)
	if !o.enqueue(authEvent{typ: domain.EventSignedIn, session: session, reply: reply}) {
		return "", &domain.ErrTransient{Op: "sign_in", Err: errors.New("auth loop stopped")}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-reply:
		if res.err != nil {
			o.metrics.IncrSignIn(signInOutcome(res.err))
			return "", res.err
		}
		o.metrics.IncrSignIn("success")
		if res.redirect != "" {
			o.nav.NavigateTo(res.redirect)
		}
		return res.redirect, nil
	}
}

// SignOut clears local state immediately, then revokes the session with the
// provider on a best-effort basis, and finally navigates to the root.
// Idempotent: signing out while signed out is a no-op ending at the root.
func (o *Orchestrator) SignOut(ctx context.Context) {
	st := o.State()

	o.enqueue(authEvent{typ: domain.EventSignedOut})

	if st.Session != nil {
		if err := o.provider.SignOut(ctx, st.Session.AccessToken); err != nil {
			o.logger.Warn("revogação de sessão no provedor falhou", zap.Error(err))
		}
		o.resolver.Invalidate(st.Session.Identity.ID)
	}

	o.nav.NavigateTo(PathRoot)
}

func (o *Orchestrator) enqueue(ev authEvent) bool {
	select {
	case o.events <- ev:
		return true
	case <-o.stop:
		return false
	}
}

// run is the single writer of o.state.
func (o *Orchestrator) run() {
	defer close(o.done)

	var (
		epoch          uint64
		inFlight       bool
		inFlightUserID string
		pendingReplies []chan signInResult
	)

	refreshTicker := time.NewTicker(refreshPollInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-o.stop:
			return

		case ev := <-o.events:
			switch ev.typ {
			case domain.EventSignedOut:
				epoch++
				inFlight = false
				inFlightUserID = ""
				pendingReplies = flushReplies(pendingReplies, signInResult{
					err: &domain.ErrTransient{Op: "sign_in", Err: context.Canceled},
				})
				o.setState(domain.AuthState{Phase: domain.PhaseUnauthenticated})

			case domain.EventTokenRefreshed:
				st := o.State()
				if ev.session != nil && st.Authenticated() &&
					st.Profile.ID == ev.session.Identity.ID {
					// Same settled user, only the tokens changed.
					st.Session = ev.session
					o.setState(st)
					continue
				}
				fallthrough

			case domain.EventInitialSession, domain.EventSignedIn:
				if ev.session == nil {
					epoch++
					inFlight = false
					o.setState(domain.AuthState{Phase: domain.PhaseUnauthenticated})
					if ev.reply != nil {
						ev.reply <- signInResult{err: &domain.ErrInvalidCredentials{}}
					}
					continue
				}
				if inFlight && inFlightUserID == ev.session.Identity.ID {
					// Coalesce: one resolution answers every waiter.
					if ev.reply != nil {
						pendingReplies = append(pendingReplies, ev.reply)
					}
					continue
				}
				epoch++
				inFlight = true
				inFlightUserID = ev.session.Identity.ID
				if ev.reply != nil {
					pendingReplies = append(pendingReplies, ev.reply)
				}
				o.setState(domain.AuthState{
					Phase:      domain.PhaseLoading,
					Identity:   &ev.session.Identity,
					Session:    ev.session,
					Loading:    true,
					Processing: true,
				})
				go o.resolve(epoch, ev.session)
			}

		case res := <-o.results:
			if res.epoch != epoch {
				o.metrics.IncrResolution("stale")
				o.logger.Debug("resultado de resolução obsoleto descartado",
					zap.Uint64("result_epoch", res.epoch),
					zap.Uint64("current_epoch", epoch))
				continue
			}
			inFlight = false
			inFlightUserID = ""
			o.setState(res.state)

			// The redirect is computed at flush time so every interactive
			// waiter gets it, including ones that coalesced onto a
			// resolution started by a restore or a token refresh.
			redirect := ""
			if res.err == nil && res.state.Authenticated() {
				redirect = RoleHome(res.state.Profile)
			}
			pendingReplies = flushReplies(pendingReplies, signInResult{
				redirect: redirect,
				err:      res.err,
			})

		case <-refreshTicker.C:
			st := o.State()
			if st.Session == nil || inFlight {
				continue
			}
			if time.Until(st.Session.ExpiresAt) > refreshMargin {
				continue
			}
			go o.refresh(st.Session.RefreshToken)
		}
	}
}

// resolve turns a raw session into a settled auth state. Runs off the loop;
// the result is stamped with the epoch it was started under.
func (o *Orchestrator) resolve(epoch uint64, session *domain.Session) {
	start := time.Now()
	defer func() { o.metrics.RecordOpDuration("resolve", time.Since(start)) }()

	ctx, cancel := context.WithTimeout(context.Background(), o.resolveTimeout)
	defer cancel()

	profile, err := o.resolver.ResolveFresh(ctx, session.Identity.ID)
	if err != nil {
		var notFound *domain.ErrProfileNotFound
		if errors.As(err, &notFound) {
			// Identity without a profile row. Unusable account: revoke
			// the session so it does not linger half-signed-in.
			if serr := o.provider.SignOut(ctx, session.AccessToken); serr != nil {
				o.logger.Warn("revogação após perfil ausente falhou", zap.Error(serr))
			}
			o.sendResult(resolveResult{
				epoch: epoch,
				state: domain.AuthState{Phase: domain.PhaseUnauthenticated},
				err:   err,
			})
			return
		}
		// Transient failure: fail closed, keep nothing.
		o.metrics.IncrExternalError("supabase")
		o.logger.Error("resolução de perfil falhou", zap.Error(err))
		o.sendResult(resolveResult{
			epoch: epoch,
			state: domain.AuthState{Phase: domain.PhaseUnauthenticated},
			err:   err,
		})
		return
	}

	if !profile.Ativo {
		// An inactive account may not keep a live session. Best effort:
		// the phase is inactive either way, and RLS keyed off ativo is
		// the real enforcement.
		if serr := o.provider.SignOut(ctx, session.AccessToken); serr != nil {
			o.logger.Warn("revogação após conta inativa falhou", zap.Error(serr))
		}
		o.sendResult(resolveResult{
			epoch: epoch,
			state: domain.AuthState{
				Phase:    domain.PhaseAuthenticatedInactive,
				Identity: &session.Identity,
			},
			err: &domain.ErrAccountInactive{},
		})
		return
	}

	trialExpired := false
	if profile.Role == domain.RoleCliente {
		trialExpired = o.trial.CheckExpired(ctx, session.AccessToken, profile.ID)
	}

	if !profile.Role.Valid() {
		o.logger.Warn("papel desconhecido no perfil",
			zap.String("user_id", profile.ID),
			zap.String("role", string(profile.Role)))
	}

	o.sendResult(resolveResult{
		epoch: epoch,
		state: domain.AuthState{
			Phase:        domain.PhaseAuthenticatedActive,
			Identity:     &session.Identity,
			Profile:      profile,
			Session:      session,
			TrialExpired: trialExpired,
		},
	})
}

func (o *Orchestrator) refresh(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.resolveTimeout)
	defer cancel()

	session, err := o.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		o.logger.Warn("renovação de token falhou", zap.Error(err))
		return
	}
	o.enqueue(authEvent{typ: domain.EventTokenRefreshed, session: session})
}

func (o *Orchestrator) sendResult(res resolveResult) {
	select {
	case o.results <- res:
	case <-o.stop:
	}
}

func (o *Orchestrator) setState(st domain.AuthState) {
	o.mu.Lock()
	o.state = st
	o.mu.Unlock()
}

func flushReplies(replies []chan signInResult, res signInResult) []chan signInResult {
	for _, ch := range replies {
		ch <- res
	}
	return nil
}

func signInOutcome(err error) string {
	var (
		invalid     *domain.ErrInvalidCredentials
		rateLimited *domain.ErrRateLimited
		unconfirmed *domain.ErrUnconfirmedAccount
		notFound    *domain.ErrProfileNotFound
		inactive    *domain.ErrAccountInactive
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid_credentials"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &unconfirmed):
		return "unconfirmed"
	case errors.As(err, &notFound):
		return "profile_not_found"
	case errors.As(err, &inactive):
		return "inactive"
	default:
		return "transient"
	}
}
