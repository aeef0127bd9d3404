package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomstore/storefront/internal/cli/userconfig"
	"github.com/ecomstore/storefront/internal/models"
)

// shopBackend is a minimal storefront API for command tests
type shopBackend struct {
	mu       sync.Mutex
	users    map[string]models.UserProfile
	tokens   map[string]string
	cart     models.Cart
	orders   []models.Order
	placed   map[string]any
	status   map[int]string
	added    map[string]any
	uploaded map[string]string
}

func newShopBackend() *shopBackend {
	return &shopBackend{
		users: map[string]models.UserProfile{
			"alice": {ID: 1, Username: "alice", Email: "alice@example.com", FirstName: "Alice"},
			"root":  {ID: 2, Username: "root", IsStaff: true},
		},
		tokens: map[string]string{},
		cart: models.Cart{
			Items:      []models.CartItem{{ID: 7, Product: 3, ProductName: "Gold Ring", Quantity: 2, UnitPrice: 10000, LineTotal: 20000}},
			TotalPrice: 20000,
		},
		orders: []models.Order{
			{ID: 1, OrderNumber: "ORD-1", Status: "pending", TotalAmount: 5000, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 2, OrderNumber: "ORD-2", Status: "delivered", TotalAmount: 9000, CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		status:   map[int]string{},
		uploaded: map[string]string{},
	}
}

func (b *shopBackend) placedOrder() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.placed
}

func (b *shopBackend) statusOf(id int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status[id]
}

func (b *shopBackend) addedItem() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.added
}

func (b *shopBackend) upload() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploaded
}

func (b *shopBackend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]string{}
}

func (b *shopBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api")

	switch path {
	case "/token/":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != body["username"]+"-pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
			return
		}
		token := body["username"] + "-token"
		b.tokens[token] = body["username"]
		json.NewEncoder(w).Encode(models.TokenPair{Access: token, Refresh: "r-" + token})
		return
	case "/register/":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if _, exists := b.users[body["username"]]; exists {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"username": ["A user with that username already exists."]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.UserProfile{ID: 9, Username: body["username"]})
		return
	case "/products/":
		w.Write([]byte(`{"results": [{"id": 3, "name": "Gold Ring", "slug": "gold-ring", "price": "100.00", "final_price": "100.00", "stock": 5, "is_active": true}]}`))
		return
	case "/products/gold-ring/":
		w.Write([]byte(`{"id": 3, "name": "Gold Ring", "slug": "gold-ring", "description": "22k", "price": "100.00", "final_price": "100.00", "stock": 5, "is_active": true}`))
		return
	}

	username, ok := b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type", "code": "token_not_valid"}`))
		return
	}
	staff := b.users[username].IsStaff

	switch {
	case path == "/auth/user/":
		json.NewEncoder(w).Encode(b.users[username])
	case path == "/orders/cart/":
		json.NewEncoder(w).Encode(b.cart)
	case path == "/orders/cart/add/":
		json.NewDecoder(r.Body).Decode(&b.added)
		w.Write([]byte(`{}`))
	case path == "/orders/profile/default-address/":
		json.NewEncoder(w).Encode(models.Address{FullName: "Alice Doe", Phone: "99999", Address: "1 Main St", City: "Pune", State: "MH", ZipCode: "411001"})
	case path == "/orders/place-order/":
		json.NewDecoder(r.Body).Decode(&b.placed)
		b.cart = models.Cart{}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_reference": "ORD-1001"}`))
	case path == "/orders/":
		json.NewEncoder(w).Encode(b.orders)
	case path == "/orders/1/":
		json.NewEncoder(w).Encode(b.orders[0])
	case path == "/orders/1/update_status/":
		if !staff {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		b.status[1] = body["status"]
		w.Write([]byte(`{}`))
	case path == "/gold-ring/" && r.Method == http.MethodPatch:
		if !staff {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for k, v := range r.MultipartForm.Value {
			b.uploaded[k] = v[0]
		}
		w.Write([]byte(`{"slug": "gold-ring"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// setupCLI points the commands at a fake backend with file-backed tokens
// and an isolated home directory
func setupCLI(t *testing.T) *shopBackend {
	t.Helper()

	backend := newShopBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("STOREFRONT_API_URL", srv.URL+"/api")
	t.Setenv("STOREFRONT_TOKEN_STORE", "file")
	t.Setenv("STOREFRONT_TOKEN_FILE", filepath.Join(dir, "tokens.yaml"))
	t.Setenv("LOG_LEVEL", "disabled")
	t.Setenv("STOREFRONT_USERNAME", "")
	t.Setenv("STOREFRONT_PASSWORD", "")

	return backend
}

func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "storefront", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("verbose", false, "")
	root.AddCommand(NewLoginCmd(), NewLogoutCmd(), NewRegisterCmd(), NewWhoamiCmd(),
		NewProductsCmd(), NewCartCmd(), NewCheckoutCmd(), NewOrdersCmd(), NewAdminCmd())
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newTestRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func login(t *testing.T, username string) {
	t.Helper()
	_, err := run(t, "login", "--username", username, "--password", username+"-pw")
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	t.Run("success persists session", func(t *testing.T) {
		setupCLI(t)

		out, err := run(t, "login", "--username", "alice", "--password", "alice-pw")
		require.NoError(t, err)
		assert.Contains(t, out, "✓ Login successful!")
		assert.Contains(t, out, "User: Alice")

		out, err = run(t, "whoami")
		require.NoError(t, err)
		assert.Contains(t, out, "Username: alice")
		assert.Contains(t, out, "Email:    alice@example.com")

		uc, err := userconfig.Load()
		require.NoError(t, err)
		assert.Equal(t, "alice", uc.LastUsername)
	})

	t.Run("wrong password", func(t *testing.T) {
		setupCLI(t)

		_, err := run(t, "login", "--username", "alice", "--password", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials not recognized")

		_, err = run(t, "whoami")
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})

	t.Run("credentials from environment", func(t *testing.T) {
		setupCLI(t)
		t.Setenv("STOREFRONT_USERNAME", "root")
		t.Setenv("STOREFRONT_PASSWORD", "root-pw")

		out, err := run(t, "login")
		require.NoError(t, err)
		assert.Contains(t, out, "Role: Staff")
	})
}

func TestLogout(t *testing.T) {
	setupCLI(t)
	login(t, "alice")

	out, err := run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, "whoami")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// idempotent
	_, err = run(t, "logout")
	assert.NoError(t, err)
}

func TestRevokedTokenIsNotLoggedIn(t *testing.T) {
	backend := setupCLI(t)
	login(t, "alice")
	backend.revokeAll()

	_, err := run(t, "cart")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	data, err := os.ReadFile(filepath.Join(os.Getenv("HOME"), "tokens.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "alice-token")
}

func TestRegister(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "register", "--username", "bob", "--password", "pw-123456", "--email", "bob@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created")

	_, err = run(t, "register", "--username", "alice", "--password", "pw-123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username: A user with that username already exists.")

	// registering does not log in
	_, err = run(t, "whoami")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProducts(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "products", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "gold-ring")
	assert.Contains(t, out, "₹100.00")

	out, err = run(t, "products", "show", "gold-ring")
	require.NoError(t, err)
	assert.Contains(t, out, "Gold Ring (id 3)")
	assert.Contains(t, out, "22k")
}

func TestCart(t *testing.T) {
	backend := setupCLI(t)

	_, err := run(t, "cart")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	login(t, "alice")

	out, err := run(t, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Gold Ring")
	assert.Contains(t, out, "Total: ₹200.00")

	out, err = run(t, "cart", "add", "3", "--qty", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 x product 3")
	assert.Equal(t, map[string]any{"product_id": float64(3), "quantity": float64(2)}, backend.addedItem())

	_, err = run(t, "cart", "add", "abc")
	assert.ErrorContains(t, err, "invalid product id")
}

func TestCheckout(t *testing.T) {
	t.Run("upi with saved address", func(t *testing.T) {
		backend := setupCLI(t)
		login(t, "alice")

		out, err := run(t, "checkout", "--method", "upi", "--upi-id", "alice@bank", "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "Fee:      ₹4.00")
		assert.Contains(t, out, "Total:    ₹204.00")
		assert.Contains(t, out, "Reference: ORD-1001")

		placed := backend.placedOrder()
		require.NotNil(t, placed)
		assert.Equal(t, "UPI", placed["payment_method"])
		assert.Equal(t, "204.00", placed["total_amount"])
		shipping := placed["shipping_details"].(map[string]any)
		assert.Equal(t, "Alice Doe", shipping["fullName"])
		assert.Equal(t, "411001", shipping["zipCode"])

		uc, err := userconfig.Load()
		require.NoError(t, err)
		assert.Equal(t, "UPI", uc.PaymentMethod)
	})

	t.Run("flags override saved address", func(t *testing.T) {
		backend := setupCLI(t)
		login(t, "alice")

		_, err := run(t, "checkout", "--method", "COD", "--city", "Mumbai", "--yes")
		require.NoError(t, err)

		placed := backend.placedOrder()
		assert.Equal(t, "205.00", placed["total_amount"])
		assert.Equal(t, "Mumbai", placed["shipping_details"].(map[string]any)["city"])
	})

	t.Run("invalid card never reaches backend", func(t *testing.T) {
		backend := setupCLI(t)
		login(t, "alice")

		_, err := run(t, "checkout", "--method", "CARD", "--card-number", "1234", "--card-expiry", "12/30", "--card-cvv", "123", "--yes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "number")
		assert.Nil(t, backend.placedOrder())
	})

	t.Run("empty cart", func(t *testing.T) {
		setupCLI(t)
		login(t, "alice")

		_, err := run(t, "checkout", "--method", "COD", "--yes")
		require.NoError(t, err)

		_, err = run(t, "checkout", "--method", "COD", "--yes")
		assert.ErrorContains(t, err, "your cart is empty")
	})
}

func TestOrders(t *testing.T) {
	setupCLI(t)
	login(t, "alice")

	out, err := run(t, "orders", "ls", "--sort", "oldest")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "ORD-1"), strings.Index(out, "ORD-2"))

	out, err = run(t, "orders", "ls", "--status", "Delivered")
	require.NoError(t, err)
	assert.Contains(t, out, "ORD-2")
	assert.NotContains(t, out, "ORD-1 ")

	_, err = run(t, "orders", "ls", "--status", "lost")
	assert.ErrorContains(t, err, "unknown status")

	out, err = run(t, "orders", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Order ORD-1")
	assert.Contains(t, out, "Total:    ₹50.00")
}

func TestAdmin(t *testing.T) {
	t.Run("customer is refused", func(t *testing.T) {
		setupCLI(t)
		login(t, "alice")

		_, err := run(t, "admin", "orders", "ls")
		assert.ErrorIs(t, err, ErrStaffRequired)
	})

	t.Run("anonymous is told to log in", func(t *testing.T) {
		setupCLI(t)

		_, err := run(t, "admin", "orders", "ls")
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})

	t.Run("set status", func(t *testing.T) {
		backend := setupCLI(t)
		login(t, "root")

		out, err := run(t, "admin", "orders", "set-status", "1", "Shipped")
		require.NoError(t, err)
		assert.Contains(t, out, "Order 1 is now shipped")
		assert.Equal(t, "shipped", backend.statusOf(1))

		_, err = run(t, "admin", "orders", "set-status", "1", "teleported")
		assert.Error(t, err)
	})

	t.Run("update product overlays changed flags", func(t *testing.T) {
		backend := setupCLI(t)
		login(t, "root")

		out, err := run(t, "admin", "products", "update", "gold-ring", "--price", "120", "--stock", "9")
		require.NoError(t, err)
		assert.Contains(t, out, "Product updated: gold-ring")

		got := backend.upload()
		assert.Equal(t, "Gold Ring", got["name"])
		assert.Equal(t, "22k", got["description"])
		assert.Equal(t, "120.00", got["price"])
		assert.Equal(t, "9", got["stock"])
		assert.Equal(t, "true", got["is_active"])
	})
}
