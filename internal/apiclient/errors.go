package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("request timed out")
)

// APIError is returned for every non-2xx response. Body is kept verbatim so
// callers can show backend validation messages without this package
// interpreting them.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, detail)
	}
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, strings.TrimSpace(string(e.Body)))
}

// Unwrap maps well-known statuses to sentinel errors for errors.Is
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Detail returns the first human-readable message in the body, if any
func (e *APIError) Detail() string {
	if !gjson.ValidBytes(e.Body) {
		return ""
	}
	for _, path := range []string{"detail", "message", "error"} {
		if v := gjson.GetBytes(e.Body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// FieldErrors extracts {"field": ["msg", ...]} validation errors. Both the
// flat form and the {"details": {...}} envelope are understood. Returns nil
// when the body carries no field errors.
func (e *APIError) FieldErrors() map[string][]string {
	if !gjson.ValidBytes(e.Body) {
		return nil
	}

	root := gjson.ParseBytes(e.Body)
	if details := root.Get("details"); details.IsObject() {
		root = details
	}
	if !root.IsObject() {
		return nil
	}

	fields := map[string][]string{}
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch name {
		case "detail", "message", "code", "error", "messages":
			return true
		}
		switch {
		case value.IsArray():
			for _, item := range value.Array() {
				if item.Type == gjson.String {
					fields[name] = append(fields[name], item.Str)
				}
			}
		case value.Type == gjson.String:
			fields[name] = append(fields[name], value.Str)
		}
		return true
	})

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// IsTokenFailure reports whether an unauthorized response body blames the
// bearer token itself (expired, malformed, revoked) rather than, say,
// missing permissions.
func IsTokenFailure(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}

	candidates := []gjson.Result{
		gjson.GetBytes(body, "detail"),
		gjson.GetBytes(body, "code"),
	}
	candidates = append(candidates, gjson.GetBytes(body, "messages.#.message").Array()...)

	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.String()), "token") {
			return true
		}
	}
	return false
}
