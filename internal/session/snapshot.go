package session

import "github.com/ecomstore/storefront/internal/models"

// State is the session lifecycle position
type State int

const (
	Unresolved State = iota
	Resolving
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session at one point in time
type Snapshot struct {
	State State
	User  *models.UserProfile
}

// Loading reports whether the session has not been resolved yet
func (s Snapshot) Loading() bool {
	return s.State == Unresolved || s.State == Resolving
}

// LoggedIn reports whether a user is present
func (s Snapshot) LoggedIn() bool {
	return s.State == Authenticated && s.User != nil
}
