package server

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecomstore/storefront/internal/session"
)

const (
	csrfCookie = "csrf_token"
	csrfField  = "csrf_token"
	csrfHeader = "X-CSRF-Token"
	csrfKey    = "csrf"
)

// generateCSRFToken returns 32 random bytes, URL-safe encoded
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CSRFProtect guards every state-changing request: it must come from this
// origin (or a configured CORS origin) and echo the csrf_token cookie in its
// form or X-CSRF-Token header.
func CSRFProtect(store *session.Store, allowedOrigins []string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(csrfCookie)
		issued := false
		if err != nil || token == "" {
			token, err = generateCSRFToken()
			if err != nil {
				log.Error().Err(err).Msg("Failed to generate CSRF token")
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			issued = true
			c.SetSameSite(http.SameSiteStrictMode)
			c.SetCookie(csrfCookie, token, 0, "/", "", false, true)
		}
		c.Set(csrfKey, token)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !sameOrigin(c.Request, allowedOrigins) {
			log.Warn().
				Str("origin", c.GetHeader("Origin")).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("Cross-origin request rejected")
			renderError(c, store.Snapshot(), http.StatusForbidden, "Cross-origin request rejected")
			return
		}

		submitted := c.GetHeader(csrfHeader)
		if submitted == "" {
			submitted = c.PostForm(csrfField)
		}
		if issued || !hmac.Equal([]byte(submitted), []byte(token)) {
			log.Warn().Str("path", c.Request.URL.Path).Str("client_ip", c.ClientIP()).Msg("CSRF token mismatch")
			renderError(c, store.Snapshot(), http.StatusForbidden, "Your form expired. Reload the page and try again.")
			return
		}

		c.Next()
	}
}

// sameOrigin reports whether the browser-supplied Origin (or Referer when
// Origin is absent) names this host or an allowed origin. Requests with
// neither header are left to the token check.
func sameOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		ref := r.Header.Get("Referer")
		if ref == "" {
			return true
		}
		u, err := url.Parse(ref)
		if err != nil {
			return false
		}
		origin = u.Scheme + "://" + u.Host
	}
	if slices.Contains(allowed, origin) {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// csrfToken returns the token the middleware bound to this request
func csrfToken(c *gin.Context) string {
	return c.GetString(csrfKey)
}
