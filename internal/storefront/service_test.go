package storefront

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/tokenstore"
)

// newTestService wires a Service to handler through the real API client
// with a logged-in token store
func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *tokenstore.MemoryBackend) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	storage := tokenstore.NewMemoryBackend(map[string]string{"access": "abc123"})
	api := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, tokenstore.New(storage), zerolog.Nop())
	return NewService(api, zerolog.Nop()), storage
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
