package tokenstore

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// KeyAccess is the canonical access token key
	KeyAccess = "access"
	// KeyRefresh holds the refresh token when the backend issues one
	KeyRefresh = "refresh"
)

// legacyAccessKeys are older names for the access token, in read priority order.
// They are consulted only by the one-time migration.
var legacyAccessKeys = []string{"access_token", "token"}

// RecognizedKeys lists every key Clear removes
func RecognizedKeys() []string {
	return append([]string{KeyAccess, KeyRefresh}, legacyAccessKeys...)
}

// Store is the process-wide token store shared by the session and the API client
type Store struct {
	mu       sync.Mutex
	backend  Backend
	migrated bool
}

// New creates a token store over backend
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Migrate rewrites a legacy access token to the canonical key and removes the
// legacy entries. After the first successful run only KeyAccess is consulted.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrateLocked()
}

func (s *Store) migrateLocked() error {
	if s.migrated {
		return nil
	}

	_, err := s.backend.Get(KeyAccess)
	switch {
	case err == nil:
		// canonical value is authoritative; legacy copies are dropped below
	case errors.Is(err, ErrNotFound):
		for _, key := range legacyAccessKeys {
			value, err := s.backend.Get(key)
			if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
				continue
			}
			if err != nil {
				return err
			}
			if err := s.backend.Set(KeyAccess, value); err != nil {
				return err
			}
			break
		}
	default:
		return err
	}

	for _, key := range legacyAccessKeys {
		if err := s.backend.Delete(key); err != nil {
			return fmt.Errorf("failed to remove legacy key %s: %w", key, err)
		}
	}

	s.migrated = true
	return nil
}

// AccessToken returns the current access token, or "" when none is stored
func (s *Store) AccessToken() (string, error) {
	return s.get(KeyAccess)
}

// RefreshToken returns the stored refresh token, or "" when none is stored
func (s *Store) RefreshToken() (string, error) {
	return s.get(KeyRefresh)
}

func (s *Store) get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.migrateLocked(); err != nil {
		return "", err
	}

	value, err := s.backend.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}

// SetTokens stores the access token and, when non-empty, the refresh token.
// An empty refresh token removes any previously stored one.
func (s *Store) SetTokens(access, refresh string) error {
	if access == "" {
		return errors.New("access token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(KeyAccess, access); err != nil {
		return err
	}
	if refresh == "" {
		return s.backend.Delete(KeyRefresh)
	}
	return s.backend.Set(KeyRefresh, refresh)
}

// Clear removes every recognized token key. Safe to call repeatedly.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, key := range RecognizedKeys() {
		if err := s.backend.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
