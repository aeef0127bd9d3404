package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/tokenstore"
)

// mockBackend simulates the storefront REST API
type mockBackend struct {
	t         *testing.T
	users     map[string]string // username -> password
	tokens    map[string]string // access token -> username
	issue     string
	profileOK bool

	mu       sync.Mutex
	lastAuth string
}

func newMockBackend(t *testing.T) *mockBackend {
	return &mockBackend{
		t:         t,
		users:     map[string]string{"alice": "correct-pw"},
		tokens:    map[string]string{},
		issue:     "abc123",
		profileOK: true,
	}
}

func (m *mockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAuth = r.Header.Get("Authorization")

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/api/token/":
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if pw, ok := m.users[req["username"]]; !ok || pw != req["password"] {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
			return
		}
		m.tokens[m.issue] = req["username"]
		json.NewEncoder(w).Encode(map[string]string{"access": m.issue, "refresh": "refresh-" + m.issue})

	case "/api/auth/user/":
		user, ok := m.userFor(r)
		if !ok || !m.profileOK {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Given token not valid for any token type", "code": "token_not_valid"}`))
			return
		}
		json.NewEncoder(w).Encode(models.UserProfile{ID: 1, Username: user, FirstName: "Alice"})

	case "/api/register/":
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if _, exists := m.users[req["username"]]; exists {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"username": ["A user with that username already exists."]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.UserProfile{ID: 2, Username: req["username"]})

	case "/api/orders/":
		if _, ok := m.userFor(r); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "token_not_valid"}`))
			return
		}
		w.Write([]byte(`[]`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *mockBackend) userFor(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) {
		return "", false
	}
	user, ok := m.tokens[auth[len(prefix):]]
	return user, ok
}

func (m *mockBackend) grant(token, user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = user
}

func (m *mockBackend) revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

func (m *mockBackend) LastAuth() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuth
}

type harness struct {
	backend *mockBackend
	storage *tokenstore.MemoryBackend
	api     *apiclient.Client
	store   *Store
}

func newHarness(t *testing.T, seed map[string]string) *harness {
	t.Helper()

	backend := newMockBackend(t)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	storage := tokenstore.NewMemoryBackend(seed)
	tokens := tokenstore.New(storage)
	api := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, tokens, zerolog.Nop())

	return &harness{
		backend: backend,
		storage: storage,
		api:     api,
		store:   NewStore(api, tokens, zerolog.Nop()),
	}
}

func TestStore_InitialState(t *testing.T) {
	h := newHarness(t, nil)

	snap := h.store.Snapshot()
	assert.Equal(t, Unresolved, snap.State)
	assert.True(t, snap.Loading())
	assert.Nil(t, snap.User)
}

// Scenario A: empty storage resolves anonymous
func TestStore_InitializeWithEmptyStorage(t *testing.T) {
	h := newHarness(t, nil)

	h.store.Initialize(context.Background())

	snap := h.store.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.False(t, snap.Loading())
	assert.Nil(t, snap.User)
	assert.Empty(t, h.backend.LastAuth(), "no request should be needed")
}

func TestStore_InitializeWithValidToken(t *testing.T) {
	h := newHarness(t, map[string]string{"access": "abc123"})
	h.backend.grant("abc123", "alice")

	h.store.Initialize(context.Background())

	snap := h.store.Snapshot()
	require.True(t, snap.LoggedIn())
	assert.Equal(t, "alice", snap.User.Username)
	assert.Equal(t, "Bearer abc123", h.backend.LastAuth())
}

func TestStore_InitializeMigratesLegacyToken(t *testing.T) {
	h := newHarness(t, map[string]string{"token": "abc123"})
	h.backend.grant("abc123", "alice")

	h.store.Initialize(context.Background())

	assert.True(t, h.store.Snapshot().LoggedIn())
	v, err := h.storage.Get(tokenstore.KeyAccess)
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
	_, err = h.storage.Get("token")
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestStore_InitializeWithRejectedTokenFailsClosed(t *testing.T) {
	h := newHarness(t, map[string]string{"access": "stale"})

	h.store.Initialize(context.Background())

	snap := h.store.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Empty(t, h.storage.Keys(), "token failure body should clear storage")
}

func TestStore_InitializeNetworkFailureFailsClosed(t *testing.T) {
	tokens := tokenstore.New(tokenstore.NewMemoryBackend(map[string]string{"access": "abc123"}))
	api := apiclient.New(apiclient.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, tokens, zerolog.Nop())
	store := NewStore(api, tokens, zerolog.Nop())

	store.Initialize(context.Background())

	snap := store.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.False(t, snap.Loading())
}

func TestStore_InitializeSkipsNetworkForExpiredJWT(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	h := newHarness(t, map[string]string{"access": token})
	h.store.Initialize(context.Background())

	assert.Equal(t, Anonymous, h.store.Snapshot().State)
	assert.Empty(t, h.backend.LastAuth())
	assert.Empty(t, h.storage.Keys())
}

func TestStore_InitializeIsOnce(t *testing.T) {
	h := newHarness(t, nil)
	var states []State
	unsubscribe := h.store.Subscribe(func(s Snapshot) { states = append(states, s.State) })
	defer unsubscribe()

	h.store.Initialize(context.Background())
	h.store.Initialize(context.Background())

	assert.Equal(t, []State{Resolving, Anonymous}, states)
}

// Scenario B: login stores the canonical token and later requests carry it
func TestStore_LoginSuccess(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Initialize(context.Background())

	user, err := h.store.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	snap := h.store.Snapshot()
	require.True(t, snap.LoggedIn())
	assert.Equal(t, "Alice", snap.User.DisplayName())

	v, err := h.storage.Get(tokenstore.KeyAccess)
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
	v, err = h.storage.Get(tokenstore.KeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh-abc123", v)

	require.NoError(t, h.api.Get(context.Background(), "/orders/", nil))
	assert.Equal(t, "Bearer abc123", h.backend.LastAuth())
}

// Scenario D: wrong password leaves the session anonymous
func TestStore_LoginWrongPassword(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Initialize(context.Background())

	user, err := h.store.Login(context.Background(), "alice", "wrong-pw")
	require.Error(t, err)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

	snap := h.store.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Empty(t, h.storage.Keys())
}

func TestStore_LoginMissingCredentials(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.store.Login(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestStore_LoginProfileFailureRollsBackTokens(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.mu.Lock()
	h.backend.profileOK = false
	h.backend.mu.Unlock()
	h.store.Initialize(context.Background())

	_, err := h.store.Login(context.Background(), "alice", "correct-pw")
	require.Error(t, err)

	assert.Equal(t, Anonymous, h.store.Snapshot().State)
	assert.Empty(t, h.storage.Keys())
}

// Scenario C: a token failure on an authenticated request clears storage
func TestStore_TokenRejectedAfterLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Initialize(context.Background())
	_, err := h.store.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)

	// backend forgets the token (expiry)
	h.backend.revoke("abc123")

	err = h.api.Get(context.Background(), "/orders/", nil)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	for _, key := range tokenstore.RecognizedKeys() {
		_, err := h.storage.Get(key)
		assert.ErrorIs(t, err, tokenstore.ErrNotFound, key)
	}
}

func TestStore_LogoutClearsEverythingAndIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Initialize(context.Background())
	_, err := h.store.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)
	require.NoError(t, h.storage.Set("access_token", "leftover"))

	var seen []Snapshot
	unsubscribe := h.store.Subscribe(func(s Snapshot) { seen = append(seen, s) })

	require.NoError(t, h.store.Logout())
	first := h.store.Snapshot()
	require.NoError(t, h.store.Logout())
	second := h.store.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, Anonymous, second.State)
	assert.Nil(t, second.User)
	assert.Empty(t, h.storage.Keys())
	require.Len(t, seen, 2)
	assert.Equal(t, Anonymous, seen[0].State)

	unsubscribe()
	unsubscribe()
	require.NoError(t, h.store.Logout())
	assert.Len(t, seen, 2)
}

func TestStore_LoginThenLogoutProperty(t *testing.T) {
	for _, seed := range []map[string]string{
		nil,
		{"token": "legacy"},
		{"access_token": "legacy", "refresh": "r"},
	} {
		h := newHarness(t, seed)
		h.store.Initialize(context.Background())
		_, err := h.store.Login(context.Background(), "alice", "correct-pw")
		require.NoError(t, err)
		require.NoError(t, h.store.Logout())

		for _, key := range tokenstore.RecognizedKeys() {
			_, err := h.storage.Get(key)
			assert.ErrorIs(t, err, tokenstore.ErrNotFound, key)
		}
	}
}

func TestStore_Register(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Initialize(context.Background())

	t.Run("does not authenticate", func(t *testing.T) {
		user, err := h.store.Register(context.Background(), RegisterRequest{
			Username: "bob", Email: "bob@example.com", Password: "pw-123456", Password2: "pw-123456",
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
		assert.Equal(t, Anonymous, h.store.Snapshot().State)
		assert.Empty(t, h.storage.Keys())
	})

	t.Run("passes backend validation through", func(t *testing.T) {
		_, err := h.store.Register(context.Background(), RegisterRequest{
			Username: "alice", Password: "x", Password2: "x",
		})
		var apiErr *apiclient.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, []string{"A user with that username already exists."}, apiErr.FieldErrors()["username"])
	})

	t.Run("password mismatch is local", func(t *testing.T) {
		_, err := h.store.Register(context.Background(), RegisterRequest{
			Username: "carol", Password: "a", Password2: "b",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := h.store.Register(context.Background(), RegisterRequest{
			Username: "carol", Email: "not-an-email", Password: "a", Password2: "a",
		})
		assert.ErrorContains(t, err, "invalid registration")
	})
}

// fakeAPI lets tests hold a request open to interleave session operations
type fakeAPI struct {
	mu      sync.Mutex
	get     func(ctx context.Context, path string, out any) error
	post    func(ctx context.Context, path string, body, out any) error
	getHits int
}

func (f *fakeAPI) Get(ctx context.Context, path string, out any) error {
	f.mu.Lock()
	f.getHits++
	f.mu.Unlock()
	return f.get(ctx, path, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body, out any) error {
	return f.post(ctx, path, body, out)
}

func TestStore_LogoutDuringInitializeWins(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{
		get: func(ctx context.Context, path string, out any) error {
			close(entered)
			<-release
			*(out.(*models.UserProfile)) = models.UserProfile{Username: "alice"}
			return nil
		},
	}
	storage := tokenstore.NewMemoryBackend(map[string]string{"access": "abc123"})
	store := NewStore(api, tokenstore.New(storage), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		store.Initialize(context.Background())
		close(done)
	}()

	<-entered
	assert.True(t, store.Snapshot().Loading())
	require.NoError(t, store.Logout())
	close(release)
	<-done

	snap := store.Snapshot()
	assert.Equal(t, Anonymous, snap.State)
	assert.Nil(t, snap.User, "late profile must not resurrect the session")
}

func TestStore_LogoutDuringLoginWins(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{
		post: func(ctx context.Context, path string, body, out any) error {
			*(out.(*models.TokenPair)) = models.TokenPair{Access: "abc123"}
			return nil
		},
		get: func(ctx context.Context, path string, out any) error {
			close(entered)
			<-release
			*(out.(*models.UserProfile)) = models.UserProfile{Username: "alice"}
			return nil
		},
	}
	storage := tokenstore.NewMemoryBackend(nil)
	store := NewStore(api, tokenstore.New(storage), zerolog.Nop())

	errCh := make(chan error, 1)
	go func() {
		_, err := store.Login(context.Background(), "alice", "correct-pw")
		errCh <- err
	}()

	<-entered
	require.NoError(t, store.Logout())
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Equal(t, Anonymous, store.Snapshot().State)
	assert.Empty(t, storage.Keys())
}

func TestStore_LoginDuringInitializeWins(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	api := &fakeAPI{
		post: func(ctx context.Context, path string, body, out any) error {
			*(out.(*models.TokenPair)) = models.TokenPair{
				Access: "fresh",
				User:   &models.UserProfile{Username: "alice"},
			}
			return nil
		},
		get: func(ctx context.Context, path string, out any) error {
			once.Do(func() { close(entered) })
			<-release
			return errors.New("connection reset")
		},
	}
	storage := tokenstore.NewMemoryBackend(map[string]string{"access": "old"})
	store := NewStore(api, tokenstore.New(storage), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		store.Initialize(context.Background())
		close(done)
	}()

	<-entered
	_, err := store.Login(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)
	close(release)
	<-done

	snap := store.Snapshot()
	require.True(t, snap.LoggedIn(), "failed resolution must not log out a newer login")
	assert.Equal(t, "alice", snap.User.Username)
}

func TestStore_LoginUsesUserFromTokenResponse(t *testing.T) {
	api := &fakeAPI{
		post: func(ctx context.Context, path string, body, out any) error {
			*(out.(*models.TokenPair)) = models.TokenPair{
				Access: "abc123",
				User:   &models.UserProfile{Username: "alice", IsStaff: true},
			}
			return nil
		},
		get: func(ctx context.Context, path string, out any) error {
			return errors.New("should not be called")
		},
	}
	store := NewStore(api, tokenstore.New(tokenstore.NewMemoryBackend(nil)), zerolog.Nop())

	user, err := store.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.Zero(t, api.getHits)
}
