package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demianzx/gamefeed/internal/gateway"
	"github.com/demianzx/gamefeed/internal/password"
	"github.com/demianzx/gamefeed/internal/store"
	"github.com/demianzx/gamefeed/internal/token"
)

const (
	testEmail    = "player@example.com"
	testPassword = "Sup3rSecret!"
)

func signToken(t *testing.T, sub, email, role string, expiresAt time.Time) string {
	t.Helper()

	claims := &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
		Role:  role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return signed
}

type fakeGateway struct {
	mu sync.Mutex

	loginTokens gateway.Tokens
	loginErr    error
	loginCalls  int
	// When set, Login signals loginStarted then blocks until loginRelease
	// is closed.
	loginStarted chan struct{}
	loginRelease chan struct{}

	registerErr   error
	registerCalls int

	refreshTokens gateway.Tokens
	refreshErr    error
	refreshCalls  int
}

func (f *fakeGateway) Login(ctx context.Context, email, pass string) (gateway.Tokens, error) {
	f.mu.Lock()
	f.loginCalls++
	started, release := f.loginStarted, f.loginRelease
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}

	return f.loginTokens, f.loginErr
}

func (f *fakeGateway) Register(ctx context.Context, email, pass string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	return f.registerErr
}

func (f *fakeGateway) Refresh(ctx context.Context, refreshToken string) (gateway.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshTokens, f.refreshErr
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	return st
}

func TestNew_Hydration(t *testing.T) {
	t.Run("starts unauthenticated with an empty store", func(t *testing.T) {
		m := New(newTestStore(t), &fakeGateway{})

		snap := m.Snapshot()
		assert.Equal(t, StatusUnauthenticated, snap.Status)
		assert.Nil(t, snap.User)
	})

	t.Run("hydrates from a valid persisted token", func(t *testing.T) {
		st := newTestStore(t)
		access := signToken(t, "user-123", testEmail, "Administrator", time.Now().Add(time.Hour))
		require.NoError(t, st.Save(access, "refresh-def"))

		m := New(st, &fakeGateway{})

		snap := m.Snapshot()
		require.Equal(t, StatusAuthenticated, snap.Status)
		require.NotNil(t, snap.User)
		assert.Equal(t, "user-123", snap.User.ID)
		assert.Equal(t, testEmail, snap.User.Email)
		assert.Equal(t, "Administrator", snap.User.Role)
		assert.Equal(t, access, snap.AccessToken)
		assert.Equal(t, "refresh-def", snap.RefreshToken)
	})

	t.Run("never authenticates from an expired token", func(t *testing.T) {
		st := newTestStore(t)
		access := signToken(t, "user-123", testEmail, "", time.Now().Add(-time.Minute))
		require.NoError(t, st.Save(access, "refresh-def"))

		m := New(st, &fakeGateway{})

		assert.Equal(t, StatusUnauthenticated, m.Snapshot().Status)

		// The expired pair must also be cleared from the store.
		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Empty(t, tokens.AccessToken)
		assert.Empty(t, tokens.RefreshToken)
	})

	t.Run("clears the store when the persisted token does not decode", func(t *testing.T) {
		st := newTestStore(t)
		require.NoError(t, st.Save("garbage", "refresh-def"))

		m := New(st, &fakeGateway{})

		assert.Equal(t, StatusUnauthenticated, m.Snapshot().Status)

		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Empty(t, tokens.AccessToken)
	})
}

func TestManager_Login(t *testing.T) {
	t.Run("persists tokens and derives the user", func(t *testing.T) {
		st := newTestStore(t)
		access := signToken(t, "user-123", testEmail, "Administrator", time.Now().Add(time.Hour))
		gw := &fakeGateway{loginTokens: gateway.Tokens{AccessToken: access, RefreshToken: "refresh-def"}}
		m := New(st, gw)

		require.NoError(t, m.Login(context.Background(), testEmail, testPassword))

		snap := m.Snapshot()
		require.Equal(t, StatusAuthenticated, snap.Status)
		require.NotNil(t, snap.User)
		assert.Equal(t, testEmail, snap.User.Email)
		assert.Equal(t, "user-123", snap.User.ID)

		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Equal(t, access, tokens.AccessToken)
		assert.Equal(t, "refresh-def", tokens.RefreshToken)

		// Round trip: the decoded token matches the derived identity.
		claims, err := token.Decode(tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, snap.User.ID, claims.UserID())
		assert.Equal(t, snap.User.Email, claims.Email)
	})

	t.Run("records the error and stays unauthenticated on gateway failure", func(t *testing.T) {
		gw := &fakeGateway{loginErr: gateway.ErrInvalidCredentials}
		m := New(newTestStore(t), gw)

		err := m.Login(context.Background(), testEmail, testPassword)
		require.ErrorIs(t, err, gateway.ErrInvalidCredentials)

		snap := m.Snapshot()
		assert.Equal(t, StatusUnauthenticated, snap.Status)
		assert.ErrorIs(t, snap.LastError, gateway.ErrInvalidCredentials)
	})

	t.Run("degrades gracefully when the issued token does not decode", func(t *testing.T) {
		st := newTestStore(t)
		gw := &fakeGateway{loginTokens: gateway.Tokens{AccessToken: "not-a-jwt", RefreshToken: "refresh-def"}}
		m := New(st, gw)

		require.NoError(t, m.Login(context.Background(), testEmail, testPassword))

		snap := m.Snapshot()
		require.Equal(t, StatusAuthenticated, snap.Status)
		require.NotNil(t, snap.User)
		assert.Equal(t, "unknown", snap.User.ID)
		assert.Equal(t, testEmail, snap.User.Email)

		// The opaque token is still persisted; the server accepted it.
		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Equal(t, "not-a-jwt", tokens.AccessToken)
	})

	t.Run("rejects a hopeless password without calling the gateway", func(t *testing.T) {
		gw := &fakeGateway{}
		m := New(newTestStore(t), gw)

		err := m.Login(context.Background(), testEmail, "short")

		var policyErr *password.PolicyError
		require.ErrorAs(t, err, &policyErr)
		assert.Equal(t, password.RuleMinLength, policyErr.Rule)
		assert.Zero(t, gw.loginCalls)
		assert.Equal(t, StatusUnauthenticated, m.Snapshot().Status)
	})
}

func TestManager_Register(t *testing.T) {
	t.Run("success does not authenticate and sets no tokens", func(t *testing.T) {
		st := newTestStore(t)
		gw := &fakeGateway{}
		m := New(st, gw)

		require.NoError(t, m.Register(context.Background(), testEmail, testPassword))

		snap := m.Snapshot()
		assert.Equal(t, StatusUnauthenticated, snap.Status)
		assert.Empty(t, snap.AccessToken)
		assert.Nil(t, snap.User)
		assert.Equal(t, 1, gw.registerCalls)

		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Empty(t, tokens.AccessToken)
	})

	t.Run("surfaces the duplicate account message", func(t *testing.T) {
		registerErr := errors.New("account already exists: Username 'player@example.com' is already taken.")
		gw := &fakeGateway{registerErr: registerErr}
		m := New(newTestStore(t), gw)

		err := m.Register(context.Background(), testEmail, testPassword)
		require.ErrorIs(t, err, registerErr)

		snap := m.Snapshot()
		assert.Equal(t, StatusUnauthenticated, snap.Status)
		assert.ErrorIs(t, snap.LastError, registerErr)
	})

	t.Run("rejects a hopeless password without calling the gateway", func(t *testing.T) {
		gw := &fakeGateway{}
		m := New(newTestStore(t), gw)

		err := m.Register(context.Background(), testEmail, "alllowercase1!")

		var policyErr *password.PolicyError
		require.ErrorAs(t, err, &policyErr)
		assert.Equal(t, password.RuleUppercase, policyErr.Rule)
		assert.Zero(t, gw.registerCalls)
	})
}

func TestManager_Refresh(t *testing.T) {
	authenticated := func(t *testing.T, gw *fakeGateway) (*Manager, *store.Store) {
		t.Helper()
		st := newTestStore(t)
		access := signToken(t, "user-123", testEmail, "", time.Now().Add(time.Hour))
		require.NoError(t, st.Save(access, "refresh-1"))
		return New(st, gw), st
	}

	t.Run("fails immediately without a refresh token", func(t *testing.T) {
		gw := &fakeGateway{}
		m := New(newTestStore(t), gw)

		err := m.Refresh(context.Background())
		require.ErrorIs(t, err, ErrNoRefreshToken)
		assert.Zero(t, gw.refreshCalls)
	})

	t.Run("renews the token pair", func(t *testing.T) {
		access2 := signToken(t, "user-123", testEmail, "", time.Now().Add(2*time.Hour))
		gw := &fakeGateway{refreshTokens: gateway.Tokens{AccessToken: access2, RefreshToken: "refresh-2"}}
		m, st := authenticated(t, gw)

		require.NoError(t, m.Refresh(context.Background()))

		snap := m.Snapshot()
		assert.Equal(t, StatusAuthenticated, snap.Status)
		assert.Equal(t, access2, snap.AccessToken)
		assert.Equal(t, "refresh-2", snap.RefreshToken)

		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Equal(t, access2, tokens.AccessToken)
		assert.Equal(t, "refresh-2", tokens.RefreshToken)
	})

	t.Run("a failed refresh tears the session down", func(t *testing.T) {
		gw := &fakeGateway{refreshErr: gateway.ErrNetwork}
		m, st := authenticated(t, gw)

		var statuses []Status
		m.Subscribe(func(snap Snapshot) {
			statuses = append(statuses, snap.Status)
		})

		err := m.Refresh(context.Background())
		require.ErrorIs(t, err, ErrRefreshFailed)

		snap := m.Snapshot()
		assert.Equal(t, StatusUnauthenticated, snap.Status)
		assert.Empty(t, snap.AccessToken)
		assert.Empty(t, snap.RefreshToken)
		assert.Nil(t, snap.User)
		assert.ErrorIs(t, snap.LastError, ErrRefreshFailed)

		// No stale tokens may remain in storage.
		tokens, lerr := st.Load()
		require.NoError(t, lerr)
		assert.Empty(t, tokens.AccessToken)
		assert.Empty(t, tokens.RefreshToken)

		// The transient refresh-failed state is observable on the way down.
		assert.Equal(t, []Status{StatusAuthenticating, StatusRefreshFailed, StatusUnauthenticated}, statuses)
	})
}

func TestManager_Logout(t *testing.T) {
	t.Run("is idempotent from any state", func(t *testing.T) {
		st := newTestStore(t)
		access := signToken(t, "user-123", testEmail, "", time.Now().Add(time.Hour))
		require.NoError(t, st.Save(access, "refresh-1"))
		m := New(st, &fakeGateway{})

		for i := 0; i < 2; i++ {
			m.Logout()

			snap := m.Snapshot()
			assert.Equal(t, StatusUnauthenticated, snap.Status)
			assert.Empty(t, snap.AccessToken)
			assert.Empty(t, snap.RefreshToken)
			assert.Nil(t, snap.User)

			tokens, err := st.Load()
			require.NoError(t, err)
			assert.Empty(t, tokens.AccessToken)
			assert.Empty(t, tokens.RefreshToken)
		}
	})

	t.Run("wins over an in-flight login", func(t *testing.T) {
		st := newTestStore(t)
		access := signToken(t, "user-123", testEmail, "", time.Now().Add(time.Hour))
		gw := &fakeGateway{
			loginTokens:  gateway.Tokens{AccessToken: access, RefreshToken: "refresh-def"},
			loginStarted: make(chan struct{}),
			loginRelease: make(chan struct{}),
		}
		m := New(st, gw)

		done := make(chan error, 1)
		go func() {
			done <- m.Login(context.Background(), testEmail, testPassword)
		}()

		// Wait until the login has reached the gateway, then log out.
		<-gw.loginStarted
		m.Logout()

		// Let the login settle; its result must be discarded.
		close(gw.loginRelease)
		require.NoError(t, <-done)

		snap := m.Snapshot()
		assert.Equal(t, StatusUnauthenticated, snap.Status)
		assert.Empty(t, snap.AccessToken)
		assert.Nil(t, snap.User)

		tokens, err := st.Load()
		require.NoError(t, err)
		assert.Empty(t, tokens.AccessToken)
	})
}

func TestManager_ClearError(t *testing.T) {
	gw := &fakeGateway{loginErr: gateway.ErrInvalidCredentials}
	m := New(newTestStore(t), gw)

	_ = m.Login(context.Background(), testEmail, testPassword)
	require.Error(t, m.Snapshot().LastError)

	m.ClearError()

	snap := m.Snapshot()
	assert.NoError(t, snap.LastError)
	assert.Equal(t, StatusUnauthenticated, snap.Status)
}

func TestManager_Subscribe(t *testing.T) {
	t.Run("notifies synchronously after each transition", func(t *testing.T) {
		access := signToken(t, "user-123", testEmail, "", time.Now().Add(time.Hour))
		gw := &fakeGateway{loginTokens: gateway.Tokens{AccessToken: access, RefreshToken: "refresh-def"}}
		m := New(newTestStore(t), gw)

		var statuses []Status
		m.Subscribe(func(snap Snapshot) {
			statuses = append(statuses, snap.Status)
		})

		require.NoError(t, m.Login(context.Background(), testEmail, testPassword))

		assert.Equal(t, []Status{StatusAuthenticating, StatusAuthenticated}, statuses)
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		m := New(newTestStore(t), &fakeGateway{})

		calls := 0
		unsubscribe := m.Subscribe(func(Snapshot) { calls++ })

		m.Logout()
		require.Equal(t, 1, calls)

		unsubscribe()
		m.Logout()
		assert.Equal(t, 1, calls)
	})
}
