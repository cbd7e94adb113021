// Package session tracks the signed-in account on the client side: token,
// auth user and profile, with watchers notified on every change.
package session

import (
	"context"
	"log"
	"sync"

	"matchday/internal/collection"
	"matchday/internal/models"
	"matchday/internal/validation"
)

// State is a snapshot of the session. User and Profile are nil when signed
// out; Loading is true while a sign-in is resolving.
type State struct {
	User    *models.User
	Profile *models.Profile
	Loading bool
}

// SignedIn reports whether an account is resolved.
func (s State) SignedIn() bool {
	return s.User != nil
}

// IsAdmin reports whether the signed-in account has the admin role.
func (s State) IsAdmin() bool {
	return s.Profile != nil && s.Profile.IsAdmin()
}

// Manager owns the session lifecycle against one platform.
type Manager struct {
	client *collection.Client

	mu          sync.RWMutex
	token       string
	state       State
	watchers    map[int]func(State)
	nextWatcher int
}

// NewManager creates a session manager for the platform at baseURL. The
// returned manager's Client carries the session token on every request.
func NewManager(baseURL string, opts ...collection.Option) *Manager {
	m := &Manager{watchers: make(map[int]func(State))}
	opts = append([]collection.Option{collection.WithTokenProvider(m.Token)}, opts...)
	m.client = collection.NewClient(baseURL, opts...)
	return m
}

// Client returns the collection client bound to this session.
func (m *Manager) Client() *collection.Client {
	return m.client
}

// Token returns the current bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Current returns a snapshot of the session state.
func (m *Manager) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Watch registers a callback invoked on every state change, including the
// loading transition during sign-in. The returned function cancels the watch.
func (m *Manager) Watch(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) setState(token string, state State) {
	m.mu.Lock()
	m.token = token
	m.state = state
	watchers := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(state)
	}
}

// SignIn exchanges credentials for a token and resolves the account profile.
// On failure the session stays signed out.
func (m *Manager) SignIn(ctx context.Context, username, password string) error {
	username = validation.NormalizeUsername(username)
	if err := validation.ValidateUsername(username); err != nil {
		return &collection.RequestError{Message: err.Error()}
	}
	if err := validation.ValidatePassword(password); err != nil {
		return &collection.RequestError{Message: err.Error()}
	}

	m.setState(m.Token(), State{Loading: true})

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	err := m.client.Post(ctx, "/api/auth/token", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		m.setState("", State{})
		return err
	}

	// The profile fetch reuses the fresh token.
	m.mu.Lock()
	m.token = resp.Token
	m.mu.Unlock()

	profiles, err := collection.Fetch[models.Profile](ctx, m.client,
		models.CollectionProfiles,
		collection.Eq("user_id", resp.User.ID), collection.Ascending)
	if err != nil {
		m.setState("", State{})
		return err
	}

	state := State{User: &resp.User}
	if len(profiles) > 0 {
		state.Profile = &profiles[0]
	}
	m.setState(resp.Token, state)
	return nil
}

// SignOut revokes the token best effort and clears the session either way.
func (m *Manager) SignOut(ctx context.Context) {
	if m.Token() != "" {
		if err := m.client.Post(ctx, "/api/auth/signout", map[string]string{}, nil); err != nil {
			log.Printf("session: signout revocation failed: %v", err)
		}
	}
	m.setState("", State{})
}

// RefreshProfile re-fetches the signed-in account's profile, e.g. after an
// avatar upload.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	current := m.Current()
	if !current.SignedIn() {
		return nil
	}
	profiles, err := collection.Fetch[models.Profile](ctx, m.client,
		models.CollectionProfiles,
		collection.Eq("user_id", current.User.ID), collection.Ascending)
	if err != nil {
		return err
	}
	state := State{User: current.User}
	if len(profiles) > 0 {
		state.Profile = &profiles[0]
	}
	m.setState(m.Token(), state)
	return nil
}
