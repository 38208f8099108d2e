package auth

import (
	"context"
	"sync"

	"github.com/vidaplena/igreja-admin-go/internal/domain"
)

// In-memory fakes for the ports. Shared by the tests in this package.

type fakeProvider struct {
	mu       sync.Mutex
	session  *domain.Session
	signInFn func(email, password string) (*domain.Session, error)
	signOuts int
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*domain.Session, error) {
	if f.signInFn != nil {
		return f.signInFn(email, password)
	}
	return nil, &domain.ErrInvalidCredentials{}
}

func (f *fakeProvider) SignOut(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.session = nil
	return nil
}

func (f *fakeProvider) GetSession(_ context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) RefreshSession(_ context.Context, _ string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
	err      error
	calls    int
	block    chan struct{} // when set, GetUserProfile waits on it
}

func (f *fakeProfileStore) GetUserProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[id], nil
}

func (f *fakeProfileStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTenantStore struct {
	clientes map[string]*domain.Cliente
	err      error
}

func (f *fakeTenantStore) GetCliente(_ context.Context, id string) (*domain.Cliente, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.clientes[id], nil
}

type fakePolicy struct {
	trialExpired    bool
	trialErr        error
	churchAccess    map[string]bool
	churchAccessErr error
	sweeps          int
}

func (f *fakePolicy) CheckTrialExpired(_ context.Context, _, _ string) (bool, error) {
	if f.trialErr != nil {
		return false, f.trialErr
	}
	return f.trialExpired, nil
}

func (f *fakePolicy) InactivateExpiredTrialClients(_ context.Context) error {
	f.sweeps++
	return nil
}

func (f *fakePolicy) UserHasChurchAccess(_ context.Context, _, churchID string) (bool, error) {
	if f.churchAccessErr != nil {
		return false, f.churchAccessErr
	}
	return f.churchAccess[churchID], nil
}

type fakeNav struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeNav) NavigateTo(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeNav) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.paths) == 0 {
		return ""
	}
	return f.paths[len(f.paths)-1]
}
