package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tiliavir/hos-tracker/internal/api"
	"github.com/Tiliavir/hos-tracker/internal/config"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/logger"
	"github.com/Tiliavir/hos-tracker/internal/session"
	"github.com/Tiliavir/hos-tracker/internal/tokenstore"
)

// Process-wide state, built once in setup.
var (
	cfg    config.Config
	appLog = logger.Nop()
	store  *tokenstore.Store
	sess   *session.Session
	client *api.Client

	// redirectToDashboard is set for auth-only commands run while a login
	// marker is present.
	redirectToDashboard bool
)

var rootCmd = &cobra.Command{
	Use:   "hos",
	Short: "Hours-of-service companion for the fleet tracking API",
	Long: `hos is a terminal client for the fleet tracking API: log in, manage your
trips, record duty status changes and print your HOS daily log.

Configuration lives in ~/.hos/config.yaml; run "hos config" for details.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	teardown()

	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(tripsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads config, opens the token store, applies the route guard and
// builds the session and API client.
func setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	c, err := config.Load()
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	cfg = c

	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	appLog = l

	st, err := tokenstore.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	store = st

	kind := guard.KindOf(cmd.Annotations)
	marker, err := store.Marker(ctx)
	if err != nil {
		appLog.Warn("Could not read auth marker", zap.Error(err))
		marker = ""
	}
	switch guard.Decide(kind, marker) {
	case guard.Deny:
		return guard.ErrLoginRequired
	case guard.Redirect:
		redirectToDashboard = true
	}

	tr, err := api.NewTransport(cfg.API.BaseURL, cfg.API.Timeout, appLog.Logger)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	sess = session.New(ctx, tr, store, session.Options{
		ReadyTimeout:   cfg.Auth.ReadyTimeout,
		RefreshTimeout: cfg.API.Timeout,
		OnLogout: func() {
			fmt.Fprintln(os.Stderr, "You have been logged out.")
		},
		Logger: appLog.Logger,
	})
	client = api.NewClient(tr, sess, appLog.Logger)

	if kind == guard.Protected {
		if err := sess.Initialize(ctx); err != nil {
			return err
		}
		if !sess.IsAuthenticated() {
			return guard.ErrLoginRequired
		}
	}
	return nil
}

func teardown() {
	if store != nil {
		if err := store.Close(); err != nil {
			appLog.Warn("Could not close token store", zap.Error(err))
		}
	}
	_ = appLog.Sync()
}

// exitError carries an explicit process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code: 1 for usage and
// authentication problems, 2 for API and storage failures.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, api.ErrSessionExpired),
		errors.Is(err, guard.ErrLoginRequired),
		errors.Is(err, session.ErrRefreshFailed),
		errors.Is(err, session.ErrNotReady):
		return 1
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return 2
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return 2
	}
	return 1
}

// describeError renders err for the terminal, listing field errors of
// validation failures on separate lines.
func describeError(err error) string {
	msg := "Error: " + err.Error()
	if errors.Is(err, api.ErrSessionExpired) || errors.Is(err, session.ErrRefreshFailed) {
		return "Error: your session has expired, please run \"hos login\" again"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if fields := apiErr.Fields(); len(fields) > 0 {
			return msg + "\n  " + strings.Join(fields, "\n  ")
		}
	}
	return msg
}

// loading prints a progress line on stderr so stdout stays clean.
func loading(cmd *cobra.Command, what string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Loading %s...\n", what)
}
