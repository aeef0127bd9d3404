package server

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/guard"
	"github.com/ecomstore/storefront/internal/session"
	"github.com/ecomstore/storefront/internal/storefront"
)

const snapshotKey = "session"

func setSnapshot(c *gin.Context, snap session.Snapshot) {
	c.Set(snapshotKey, snap)
}

// GetSnapshot returns the session snapshot the guard decided on, so a
// handler sees the same view the guard did
func GetSnapshot(c *gin.Context) (session.Snapshot, bool) {
	v, exists := c.Get(snapshotKey)
	if !exists {
		return session.Snapshot{}, false
	}
	snap, ok := v.(session.Snapshot)
	return snap, ok
}

// RequireSession lets the request through only when a user is logged in.
// While the session is still resolving a loading page is served instead,
// and anonymous visitors are redirected to the login page.
func RequireSession(store *session.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Snapshot()
		setSnapshot(c, snap)

		switch guard.Decide(snap) {
		case guard.Wait:
			renderLoading(c, snap)
		case guard.Redirect:
			log.Debug().Str("path", c.Request.URL.Path).Msg("Anonymous visitor redirected to login")
			c.Redirect(http.StatusFound, guard.LoginPath)
			c.Abort()
		default:
			c.Next()
		}
	}
}

// RequireStaff restricts admin pages to staff accounts. Mount after
// RequireSession.
func RequireStaff(store *session.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := GetSnapshot(c)
		if !ok {
			snap = store.Snapshot()
			setSnapshot(c, snap)
		}

		switch guard.DecideStaff(snap) {
		case guard.Wait:
			renderLoading(c, snap)
		case guard.Redirect:
			c.Redirect(http.StatusFound, guard.LoginPath)
			c.Abort()
		case guard.Forbid:
			log.Warn().Str("username", snap.User.Username).Str("path", c.Request.URL.Path).Msg("Admin access denied")
			renderError(c, snap, http.StatusForbidden, "Admin access required")
		default:
			c.Next()
		}
	}
}

func renderLoading(c *gin.Context, snap session.Snapshot) {
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "loading.html", gin.H{"Session": snap, "Title": "Loading", "CSRF": csrfToken(c)})
	c.Abort()
}

func renderError(c *gin.Context, snap session.Snapshot, status int, message string) {
	c.HTML(status, "error.html", gin.H{"Session": snap, "Title": http.StatusText(status), "Status": status, "Message": message, "CSRF": csrfToken(c)})
	c.Abort()
}

// handleError turns a failed backend call into a page. A 401 that blames
// the token means the client has already dropped the stored credentials,
// so the session is logged out to match before going to the login page.
// Any other 401 leaves storage alone.
func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case s.expireSession(err):
		c.Redirect(http.StatusFound, guard.LoginPath)
		c.Abort()
	case errors.Is(err, apiclient.ErrUnauthorized):
		renderError(c, s.session.Snapshot(), http.StatusUnauthorized, errorMessage(err))
	case errors.Is(err, apiclient.ErrForbidden):
		renderError(c, s.session.Snapshot(), http.StatusForbidden, "You do not have permission to do that")
	case errors.Is(err, apiclient.ErrNotFound):
		renderError(c, s.session.Snapshot(), http.StatusNotFound, "Not found")
	case errors.Is(err, storefront.ErrEmptyCart):
		c.Redirect(http.StatusFound, "/products")
		c.Abort()
	case errors.Is(err, apiclient.ErrTimeout):
		renderError(c, s.session.Snapshot(), http.StatusGatewayTimeout, "The store took too long to respond")
	case errors.Is(err, context.Canceled):
		// client went away
		c.Abort()
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Backend request failed")
		renderError(c, s.session.Snapshot(), http.StatusBadGateway, errorMessage(err))
	}
}

// expireSession logs the session out when err is a 401 caused by a rejected
// token, and reports whether it did
func (s *Server) expireSession(err error) bool {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || !apiclient.IsTokenFailure(apiErr.Body) {
		return false
	}
	if logoutErr := s.session.Logout(); logoutErr != nil {
		s.logger.Warn().Err(logoutErr).Msg("Failed to clear session after backend rejection")
	}
	return true
}

// errorMessage extracts the backend's own message when there is one
func errorMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			return detail
		}
		fieldErrs := apiErr.FieldErrors()
		for _, field := range slices.Sorted(maps.Keys(fieldErrs)) {
			if msgs := fieldErrs[field]; len(msgs) > 0 {
				return field + ": " + msgs[0]
			}
		}
	}
	return "Something went wrong talking to the store"
}
