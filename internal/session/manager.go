package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/demianzx/gamefeed/internal/gateway"
	"github.com/demianzx/gamefeed/internal/password"
	"github.com/demianzx/gamefeed/internal/store"
	"github.com/demianzx/gamefeed/internal/token"
)

var (
	// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRefreshFailed is the normalized error recorded when a refresh fails
	// and the session is torn down.
	ErrRefreshFailed = errors.New("session refresh failed")
)

// Gateway is the slice of the API client the manager needs.
type Gateway interface {
	Login(ctx context.Context, email, password string) (gateway.Tokens, error)
	Register(ctx context.Context, email, password string) error
	Refresh(ctx context.Context, refreshToken string) (gateway.Tokens, error)
}

// Manager is the session state machine. All credential persistence goes
// through it; nothing else writes the session store.
//
// Operations are serialized: a Login or Refresh started while another
// operation is in flight waits for it to settle. Logout does not wait: it
// supersedes any in-flight operation, whose result is then discarded.
type Manager struct {
	store *store.Store
	gw    Gateway

	// opMu serializes login/register/refresh, including their network calls.
	opMu sync.Mutex

	// mu guards everything below. Held across store reads/writes so a
	// concurrent logout cannot race a save mid-operation.
	mu           sync.Mutex
	gen          uint64
	status       Status
	user         *User
	accessToken  string
	refreshToken string
	lastErr      error
	subs         []subscriber
	nextSubID    int
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// New creates a Manager and hydrates it from the store. A persisted token
// that no longer decodes, or has expired, is cleared and the manager starts
// unauthenticated; store failures are handled the same way and are never
// surfaced to the caller.
func New(st *store.Store, gw Gateway) *Manager {
	m := &Manager{store: st, gw: gw, status: StatusUnauthenticated}
	m.hydrate()
	return m
}

func (m *Manager) hydrate() {
	tokens, err := m.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load persisted session, starting signed out")
		m.clearStore()
		return
	}

	if tokens.AccessToken == "" {
		return
	}

	claims, err := token.Decode(tokens.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("persisted access token did not decode, clearing session")
		m.clearStore()
		return
	}

	if claims.Expired(time.Now()) {
		log.Debug().Msg("persisted access token expired, clearing session")
		m.clearStore()
		return
	}

	m.accessToken = tokens.AccessToken
	m.refreshToken = tokens.RefreshToken
	m.user = userFromClaims(claims)
	m.status = StatusAuthenticated

	log.Debug().Str("email", m.user.Email).Msg("session hydrated from store")
}

// Login exchanges credentials for a session. The password is checked against
// the account policy before any network call; a password that can never be
// accepted fails without reaching the gateway.
func (m *Manager) Login(ctx context.Context, email, pass string) error {
	if err := password.Validate(pass); err != nil {
		m.recordError(err)
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	gen := m.begin()

	tokens, err := m.gw.Login(ctx, email, pass)
	if err != nil {
		m.fail(gen, err)
		return err
	}

	return m.complete(gen, tokens, deriveUser(tokens.AccessToken, email))
}

// Register creates an account. It never authenticates the caller: on success
// the session keeps its prior state and no tokens are set. Callers chain a
// Login to sign the new account in.
func (m *Manager) Register(ctx context.Context, email, pass string) error {
	if err := password.Validate(pass); err != nil {
		m.recordError(err)
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	prior := m.status
	m.mu.Unlock()

	gen := m.begin()

	if err := m.gw.Register(ctx, email, pass); err != nil {
		m.fail(gen, err)
		return err
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	m.status = prior
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()
	notify(fns, snap)

	return nil
}

// Refresh renews the token pair. A failed refresh fails closed: the store is
// cleared and the session ends, rather than keeping a half-valid session.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	refreshToken := m.refreshToken
	priorEmail := ""
	if m.user != nil {
		priorEmail = m.user.Email
	}
	m.mu.Unlock()

	if refreshToken == "" {
		m.recordError(ErrNoRefreshToken)
		return ErrNoRefreshToken
	}

	gen := m.begin()

	tokens, err := m.gw.Refresh(ctx, refreshToken)
	if err != nil {
		m.failRefresh(gen, err)
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	return m.complete(gen, tokens, deriveUser(tokens.AccessToken, priorEmail))
}

// Logout clears the store and resets the session unconditionally. It is
// idempotent and always succeeds. Issued while a login or refresh is in
// flight, it wins: the in-flight result is discarded when it settles.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++
	m.clearStore()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.status = StatusUnauthenticated
	m.lastErr = nil
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(fns, snap)
}

// ClearError resets the recorded error without touching tokens or status.
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.lastErr = nil
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(fns, snap)
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, _ := m.snapshotLocked()
	return snap
}

// Authenticated reports whether a session is currently held.
func (m *Manager) Authenticated() bool {
	return m.Snapshot().Authenticated()
}

// CurrentUser returns the signed-in user, or nil.
func (m *Manager) CurrentUser() *User {
	return m.Snapshot().User
}

// BearerToken returns the current access token, or empty when signed out.
// Callers use it to authorize API calls outside the manager.
func (m *Manager) BearerToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// Subscribe registers fn to be called synchronously after every state
// transition. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// begin transitions to Authenticating and claims a new operation generation.
// A completion whose generation no longer matches has been superseded and
// must discard its result.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.status = StatusAuthenticating
	m.lastErr = nil
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(fns, snap)

	return gen
}

func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		log.Debug().Err(err).Msg("discarding superseded operation failure")
		return
	}
	m.status = StatusUnauthenticated
	m.lastErr = err
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(fns, snap)
}

func (m *Manager) complete(gen uint64, tokens gateway.Tokens, user *User) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		log.Debug().Msg("discarding superseded operation result")
		return nil
	}

	if err := m.store.Save(tokens.AccessToken, tokens.RefreshToken); err != nil {
		// The session is valid in memory; it just won't survive a restart.
		log.Warn().Err(err).Msg("failed to persist session")
	}

	m.accessToken = tokens.AccessToken
	m.refreshToken = tokens.RefreshToken
	m.user = user
	m.status = StatusAuthenticated
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(fns, snap)

	log.Debug().Str("email", user.Email).Msg("session established")

	return nil
}

// failRefresh publishes the transient RefreshFailed state, then tears the
// session down. No error dialog is owed to the user here; a background
// renewal failure simply returns them to the signed-out experience.
func (m *Manager) failRefresh(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		log.Debug().Err(err).Msg("discarding superseded refresh failure")
		return
	}

	m.status = StatusRefreshFailed
	failing, failingFns := m.snapshotLocked()

	m.clearStore()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.status = StatusUnauthenticated
	m.lastErr = fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	settled, settledFns := m.snapshotLocked()
	m.mu.Unlock()

	notify(failingFns, failing)
	notify(settledFns, settled)
}

// recordError sets the error without changing tokens or status.
func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	snap, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(fns, snap)
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session store")
	}
}

func (m *Manager) snapshotLocked() (Snapshot, []func(Snapshot)) {
	var user *User
	if m.user != nil {
		u := *m.user
		user = &u
	}

	snap := Snapshot{
		Status:       m.status,
		User:         user,
		AccessToken:  m.accessToken,
		RefreshToken: m.refreshToken,
		LastError:    m.lastErr,
	}

	fns := make([]func(Snapshot), len(m.subs))
	for i, s := range m.subs {
		fns[i] = s.fn
	}

	return snap, fns
}

func notify(fns []func(Snapshot), snap Snapshot) {
	for _, fn := range fns {
		fn(snap)
	}
}

// deriveUser decodes the user from a freshly issued access token. Decode
// failure of an otherwise accepted token never blocks sign-in; the session
// continues with a degraded identity holding only the known email.
func deriveUser(accessToken, fallbackEmail string) *User {
	claims, err := token.Decode(accessToken)
	if err != nil {
		log.Warn().Err(err).Msg("issued access token did not decode, using degraded identity")
		return &User{ID: "unknown", Email: fallbackEmail}
	}
	return userFromClaims(claims)
}

func userFromClaims(claims *token.Claims) *User {
	return &User{
		ID:    claims.UserID(),
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
	}
}
