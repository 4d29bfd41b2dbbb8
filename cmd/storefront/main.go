// Command storefront is a terminal client for the bakery: browse the catalog,
// keep a cart, pay for the selected lines and review past orders.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/internal/processor/stripe"
	"github.com/mariotejeda2001/Glazeepink/pkg/apiclient"
	"github.com/mariotejeda2001/Glazeepink/pkg/cart"
	"github.com/mariotejeda2001/Glazeepink/pkg/checkout"
)

const (
	cartFile    = "cart.json"
	sessionFile = "session"
)

// env is the state shared by all commands.
type env struct {
	apiURL         string
	publishableKey string
	stateDir       string
	returnURL      string
	verbose        bool

	lg *zap.Logger
	// newConfirmer is replaced in tests.
	newConfirmer func(e *env) (checkout.Confirmer, error)
}

func defaultEnv() *env {
	stateDir := ".glazeepink"
	if dir, err := os.UserConfigDir(); err == nil {
		stateDir = filepath.Join(dir, "glazeepink")
	}
	return &env{
		apiURL:         envOr("BAKERY_API_URL", "http://localhost:4242"),
		publishableKey: os.Getenv("BAKERY_PUBLISHABLE_KEY"),
		stateDir:       envOr("BAKERY_STATE_DIR", stateDir),
		lg:             zap.NewNop(),
		newConfirmer: func(e *env) (checkout.Confirmer, error) {
			if e.publishableKey == "" {
				return nil, errors.New("publishable key is required: set --publishable-key or BAKERY_PUBLISHABLE_KEY")
			}
			return stripe.NewConfirmer(stripe.Config{Key: e.publishableKey}, e.returnURL)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) client() (*apiclient.Client, error) {
	token, err := os.ReadFile(filepath.Join(e.stateDir, sessionFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read session")
	}
	return apiclient.New(e.apiURL, apiclient.WithToken(strings.TrimSpace(string(token))))
}

func (e *env) saveSession(token string) error {
	if err := os.MkdirAll(e.stateDir, 0o700); err != nil {
		return errors.Wrap(err, "create state dir")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(e.stateDir, sessionFile), []byte(token), 0o600), "write session")
}

func (e *env) clearSession() error {
	err := os.Remove(filepath.Join(e.stateDir, sessionFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session")
	}
	return nil
}

func (e *env) cart() (*cart.Store, error) {
	if err := os.MkdirAll(e.stateDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return cart.New(cart.FileStorage{Path: filepath.Join(e.stateDir, cartFile)}, cart.WithLogger(e.lg))
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Glazeepink bakery storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if e.verbose {
				lg, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				e.lg = lg
			}
			return nil
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&e.apiURL, "api-url", e.apiURL, "storefront API base URL (BAKERY_API_URL)")
	f.StringVar(&e.publishableKey, "publishable-key", e.publishableKey, "payment processor publishable key (BAKERY_PUBLISHABLE_KEY)")
	f.StringVar(&e.stateDir, "state-dir", e.stateDir, "directory holding the cart and session (BAKERY_STATE_DIR)")
	f.BoolVarP(&e.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		productsCmd(e),
		productCmd(e),
		registerCmd(e),
		loginCmd(e),
		logoutCmd(e),
		cartCmd(e),
		checkoutCmd(e),
		ordersCmd(e),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	e := defaultEnv()
	if err := newRootCmd(e).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
	_ = e.lg.Sync()
}
