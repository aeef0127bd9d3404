package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/config"
	"github.com/ecomstore/storefront/internal/guard"
	"github.com/ecomstore/storefront/internal/logger"
	"github.com/ecomstore/storefront/internal/models"
	"github.com/ecomstore/storefront/internal/session"
	"github.com/ecomstore/storefront/internal/storefront"
	"github.com/ecomstore/storefront/internal/tokenstore"
)

var (
	ErrNotLoggedIn   = errors.New("not logged in. Run 'storefront login' first")
	ErrStaffRequired = errors.New("admin access required")
)

// Version is reported in the User-Agent header
var Version = "dev"

// app is everything a command needs to talk to the store
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	session *session.Store
	shop    *storefront.Service
	out     io.Writer
	errOut  io.Writer
	close   func() error
}

// newApp loads configuration and wires the token store, API client,
// session store and storefront service for one command invocation
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Commands print their own results; logs stay quiet unless asked for
	level := "warn"
	if _, set := os.LookupEnv("LOG_LEVEL"); set {
		level = cfg.Logging.Level
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
		level = "debug"
	}
	logger.InitWithWriter(level, "console", cmd.ErrOrStderr())
	log := logger.GetLogger()

	backend, closeStore, err := tokenstore.Open(cfg.TokenStore, cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	tokens := tokenstore.New(backend)

	api := apiclient.New(apiclient.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		UserAgent:         "storefront-cli/" + Version,
	}, tokens, log)

	return &app{
		cfg:     cfg,
		logger:  log,
		session: session.NewStore(api, tokens, log),
		shop:    storefront.NewService(api, log),
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		close:   closeStore,
	}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close token store")
	}
}

// requireSession resolves the session and applies the route guard
func (a *app) requireSession(ctx context.Context) (*models.UserProfile, error) {
	a.session.Initialize(ctx)
	snap := a.session.Snapshot()

	switch guard.Decide(snap) {
	case guard.Allow:
		return snap.User, nil
	default:
		return nil, ErrNotLoggedIn
	}
}

// requireStaff is requireSession for admin commands
func (a *app) requireStaff(ctx context.Context) (*models.UserProfile, error) {
	a.session.Initialize(ctx)
	snap := a.session.Snapshot()

	switch guard.DecideStaff(snap) {
	case guard.Allow:
		return snap.User, nil
	case guard.Forbid:
		return nil, ErrStaffRequired
	default:
		return nil, ErrNotLoggedIn
	}
}

// explain rewrites backend failures into messages a user can act on
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apiclient.ErrUnauthorized):
		return fmt.Errorf("session expired or invalid. Run 'storefront login' again")
	case errors.Is(err, apiclient.ErrForbidden):
		return fmt.Errorf("permission denied: %w", err)
	case errors.Is(err, apiclient.ErrTimeout):
		return fmt.Errorf("the store did not respond in time: %w", err)
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if detail := apiErr.Detail(); detail != "" {
			return fmt.Errorf("%s", detail)
		}
		if fields := apiErr.FieldErrors(); len(fields) > 0 {
			return fmt.Errorf("%s", formatFieldErrors(fields))
		}
	}
	return err
}

func formatFieldErrors(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], " ")))
	}
	return strings.Join(lines, "\n")
}

func orderLabel(o *models.Order) string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return fmt.Sprintf("#%d", o.ID)
}
