// Package session holds the client-side record of who is logged in.
//
// A Store is created once per process and passed to every component that
// needs it. Anything may read a Snapshot or Subscribe to changes; only the
// Store's own operations write.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/ecomstore/storefront/internal/models"
)

// Backend paths used by the session lifecycle
const (
	TokenPath    = "/token/"
	RegisterPath = "/register/"
	ProfilePath  = "/auth/user/"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	// ErrSuperseded is returned by Login when a logout or another login
	// committed while this one was in flight.
	ErrSuperseded = errors.New("login superseded by a newer session change")
)

// API is the subset of the HTTP client the store uses
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Tokens is the subset of the token store the session uses
type Tokens interface {
	Migrate() error
	AccessToken() (string, error)
	SetTokens(access, refresh string) error
	Clear() error
}

// Store is the session store
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	// gen increases on every committed write; async results carrying an
	// older generation are dropped instead of applied
	gen uint64

	api       API
	tokens    Tokens
	logger    zerolog.Logger
	validator *validator.Validate
	now       func() time.Time

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

// NewStore creates a session store in the Unresolved state
func NewStore(api API, tokens Tokens, log zerolog.Logger) *Store {
	return &Store{
		snap:      Snapshot{State: Unresolved},
		api:       api,
		tokens:    tokens,
		logger:    log,
		validator: validator.New(),
		now:       time.Now,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current session view
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn for every state change and returns a function
// that removes it. The returned function may be called more than once.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Initialize resolves the session from durable storage. It never fails:
// anything short of a confirmed profile resolves to Anonymous. Calls after
// the first are no-ops.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.snap.State != Unresolved {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.snap = Snapshot{State: Resolving}
	resolving := s.snap
	s.mu.Unlock()
	s.notify(resolving)

	user := s.resolve(ctx)

	s.mu.Lock()
	if s.gen != gen {
		// login or logout won the race; their state stands
		s.mu.Unlock()
		s.logger.Debug().Msg("Discarding stale session resolution")
		return
	}
	s.gen++
	if user != nil {
		s.snap = Snapshot{State: Authenticated, User: user}
	} else {
		s.snap = Snapshot{State: Anonymous}
	}
	resolved := s.snap
	s.mu.Unlock()

	s.logger.Debug().Str("state", resolved.State.String()).Msg("Session resolved")
	s.notify(resolved)
}

func (s *Store) resolve(ctx context.Context) *models.UserProfile {
	if err := s.tokens.Migrate(); err != nil {
		s.logger.Debug().Err(err).Msg("Token migration failed, treating session as anonymous")
		return nil
	}

	token, err := s.tokens.AccessToken()
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to read access token, treating session as anonymous")
		return nil
	}
	if token == "" {
		return nil
	}

	if tokenExpired(token, s.now()) {
		s.logger.Debug().Msg("Stored access token has expired")
		if err := s.tokens.Clear(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to clear expired tokens")
		}
		return nil
	}

	var user models.UserProfile
	if err := s.api.Get(ctx, ProfilePath, &user); err != nil {
		s.logger.Debug().Err(err).Msg("Profile lookup failed, treating session as anonymous")
		return nil
	}
	return &user
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here; the backend decides.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// Login exchanges credentials for tokens and loads the profile. On failure
// the current user is left as it was and the error is returned for the
// caller to present.
func (s *Store) Login(ctx context.Context, username, password string) (*models.UserProfile, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	s.mu.RLock()
	startGen := s.gen
	s.mu.RUnlock()

	var pair models.TokenPair
	body := map[string]string{"username": username, "password": password}
	if err := s.api.Post(ctx, TokenPath, body, &pair); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if pair.Access == "" {
		return nil, errors.New("login failed: backend returned no access token")
	}

	// Committing tokens is the point of no return; refuse if anything else
	// changed the session since this login started.
	s.mu.Lock()
	if s.gen != startGen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err := s.tokens.SetTokens(pair.Access, pair.Refresh); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save authentication token: %w", err)
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	user := pair.User
	if user == nil {
		var profile models.UserProfile
		if err := s.api.Get(ctx, ProfilePath, &profile); err != nil {
			s.abandonLogin(gen)
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		user = &profile
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.gen++
	s.snap = Snapshot{State: Authenticated, User: user}
	snap := s.snap
	s.mu.Unlock()

	s.logger.Info().Str("username", user.Username).Msg("User logged in")
	s.notify(snap)
	return user, nil
}

// abandonLogin removes tokens committed by a login whose profile could not
// be loaded, so stored tokens and the absent user agree again.
func (s *Store) abandonLogin(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear tokens after failed login")
	}
	s.gen++
	s.snap = Snapshot{State: Anonymous}
	snap := s.snap
	s.mu.Unlock()

	s.notify(snap)
}

// Logout forgets the user and every stored token. No backend call is made.
// The session is anonymous afterwards even if clearing storage fails.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.gen++
	err := s.tokens.Clear()
	s.snap = Snapshot{State: Anonymous}
	snap := s.snap
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear stored tokens on logout")
	} else {
		s.logger.Info().Msg("User logged out")
	}
	s.notify(snap)
	return err
}

// RegisterRequest is the new-account payload
type RegisterRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates an account. It does not log the new account in.
// Backend validation errors are returned as-is (*apiclient.APIError).
func (s *Store) Register(ctx context.Context, req RegisterRequest) (*models.UserProfile, error) {
	if req.Password != req.Password2 {
		return nil, ErrPasswordMismatch
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	var created models.UserProfile
	if err := s.api.Post(ctx, RegisterPath, req, &created); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", req.Username).Msg("Account registered")
	return &created, nil
}
