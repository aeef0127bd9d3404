// Package server is the local web shell. It renders storefront pages,
// owns the process-wide session and wraps protected paths with the guard.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecomstore/storefront/internal/config"
	"github.com/ecomstore/storefront/internal/session"
	"github.com/ecomstore/storefront/internal/storefront"
)

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  zerolog.Logger
	session *session.Store
	shop    *storefront.Service
	version string
}

// New creates a new server instance. The session store is not initialized
// here; Start does that in the background so pages can show a loading state.
func New(cfg *config.Config, zlog zerolog.Logger, store *session.Store, shop *storefront.Service, version string) (*Server, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:  cfg,
		logger:  zlog,
		session: store,
		shop:    shop,
		version: version,
	}

	server.setupRouter()
	server.router.SetHTMLTemplate(tmpl)

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	if len(s.config.Server.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", csrfHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.router.Use(CSRFProtect(s.session, s.config.Server.CORSOrigins, s.logger))

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/session", s.getSession)

	// Public pages
	s.router.GET("/", s.home)
	s.router.GET("/products", s.listProducts)
	s.router.GET("/products/:slug", s.showProduct)
	s.router.GET("/login", s.loginPage)
	s.router.POST("/login", s.login)
	s.router.GET("/register", s.registerPage)
	s.router.POST("/register", s.register)
	s.router.POST("/logout", s.logout)

	// Customer pages
	protected := s.router.Group("/")
	protected.Use(RequireSession(s.session, s.logger))
	{
		protected.GET("/cart", s.showCart)
		protected.POST("/cart/add", s.addToCart)
		protected.POST("/cart/items/:id", s.updateCartItem)
		protected.POST("/cart/items/:id/delete", s.removeCartItem)

		protected.GET("/checkout", s.checkoutPage)
		protected.POST("/checkout", s.placeOrder)

		protected.GET("/orders", s.listOrders)
		protected.GET("/orders/:id", s.showOrder)
	}

	// Admin console
	admin := s.router.Group("/admin")
	admin.Use(RequireSession(s.session, s.logger), RequireStaff(s.session, s.logger))
	{
		admin.GET("", s.adminDashboard)
		admin.GET("/products", s.adminProducts)
		admin.POST("/products", s.adminCreateProduct)
		admin.POST("/products/:slug", s.adminUpdateProduct)
		admin.GET("/orders", s.adminOrders)
		admin.POST("/orders/:id/status", s.adminUpdateOrderStatus)
		admin.GET("/orders/:id", s.adminOrderDetail)
		admin.POST("/orders/:id", s.adminUpdateOrder)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "storefront",
		"version":   s.version,
		"session":   s.session.Snapshot().State.String(),
	})
}

// SessionResponse is the JSON view of the current session
type SessionResponse struct {
	State    string `json:"state"`
	Loading  bool   `json:"loading"`
	Username string `json:"username,omitempty"`
	IsStaff  bool   `json:"is_staff"`
}

func (s *Server) getSession(c *gin.Context) {
	snap := s.session.Snapshot()
	resp := SessionResponse{State: snap.State.String(), Loading: snap.Loading()}
	if snap.User != nil {
		resp.Username = snap.User.Username
		resp.IsStaff = snap.User.IsStaff
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start resolves the session in the background and serves until SIGINT or
// SIGTERM
func (s *Server) Start() error {
	addr := s.config.Server.ListenAddr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.session.Initialize(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("api", s.config.API.BaseURL).Msg("Starting storefront shell")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
