// Package guard decides whether a protected view may render for a session.
package guard

import "github.com/ecomstore/storefront/internal/session"

// LoginPath is where anonymous visitors are sent
const LoginPath = "/login"

// Decision is the outcome of a guard check
type Decision int

const (
	// Wait means the session is still resolving; render a loading indicator
	Wait Decision = iota
	Allow
	Redirect
	// Forbid is only produced by DecideStaff for logged-in non-staff users
	Forbid
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Forbid:
		return "forbid"
	default:
		return "unknown"
	}
}

// Decide maps a session snapshot onto a decision for a protected view.
// It never returns Allow while the session is loading, and returns Allow
// only when a user is present.
func Decide(snap session.Snapshot) Decision {
	if snap.Loading() {
		return Wait
	}
	if snap.User == nil {
		return Redirect
	}
	return Allow
}

// DecideStaff is Decide for admin views
func DecideStaff(snap session.Snapshot) Decision {
	d := Decide(snap)
	if d != Allow {
		return d
	}
	if !snap.User.IsStaff {
		return Forbid
	}
	return Allow
}
