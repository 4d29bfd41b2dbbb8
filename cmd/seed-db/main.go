// Command seed-db loads the bakery catalog into the database and optionally
// creates a demo customer.
package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/db"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/user"
	"github.com/mariotejeda2001/Glazeepink/internal/repository"
)

type options struct {
	databaseURL  string
	productsFile string
	redisAddr    string

	demoName     string
	demoEmail    string
	demoPassword string
}

func main() {
	lg, _ := zap.NewDevelopment()
	defer func() { _ = lg.Sync() }()

	var opts options
	cmd := &cobra.Command{
		Use:           "seed-db",
		Short:         "Seed the bakery catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.databaseURL == "" {
				opts.databaseURL = os.Getenv("DATABASE_URL")
			}
			if opts.databaseURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}
			return run(cmd.Context(), lg, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.databaseURL, "database-url", os.Getenv("BAKERY_DATABASE_URL"), "PostgreSQL connection URL (or DATABASE_URL)")
	f.StringVar(&opts.productsFile, "products-file", "", "catalog JSON file, optionally gzipped; the bundled catalog when empty")
	f.StringVar(&opts.redisAddr, "redis-addr", os.Getenv("BAKERY_REDIS_ADDR"), "catalog cache to invalidate after seeding")
	f.StringVar(&opts.demoName, "demo-name", "Cliente Demo", "demo user name")
	f.StringVar(&opts.demoEmail, "demo-email", "", "create a demo user with this email")
	f.StringVar(&opts.demoPassword, "demo-password", "", "demo user password")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := openCatalog(opts.productsFile)
	if err != nil {
		return err
	}
	lg.Info("Upserting products", zap.Int("count", len(products)))

	repo := repository.NewProductRepository(pool)
	ids := make([]int64, 0, len(products))
	for i := range products {
		p := &products[i]
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}
		ids = append(ids, p.ID)
		lg.Debug("Upserted product", zap.Int64("id", p.ID), zap.String("name", p.Name))
	}

	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer func() { _ = rdb.Close() }()
		cache := repository.NewCachedProductRepository(repo, rdb, 0)
		if err := cache.Invalidate(ctx, ids...); err != nil {
			lg.Warn("Catalog cache not invalidated", zap.Error(err))
		} else {
			lg.Info("Catalog cache invalidated", zap.Int("products", len(ids)))
		}
	}

	if opts.demoEmail != "" {
		if err := seedDemoUser(ctx, lg, repository.NewUserRepository(pool), opts); err != nil {
			return errors.Wrap(err, "seed demo user")
		}
	}

	lg.Info("Seed completed")
	return nil
}

func seedDemoUser(ctx context.Context, lg *zap.Logger, users user.Repository, opts options) error {
	// Registration issues a credential that is thrown away; any secret will do.
	issuer, err := auth.NewIssuer([]byte(uuid.NewString()+uuid.NewString()), 0)
	if err != nil {
		return err
	}
	s, err := auth.NewService(users, issuer, 0).Register(ctx, opts.demoName, opts.demoEmail, opts.demoPassword)
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		lg.Info("Demo user already exists", zap.String("email", opts.demoEmail))
		return nil
	case err != nil:
		return err
	}
	lg.Info("Demo user created", zap.Int64("id", s.User.ID), zap.String("email", s.User.Email))
	return nil
}

func openCatalog(path string) ([]product.Product, error) {
	if path == "" {
		return parseCatalog(bytes.NewReader(db.Products))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()
	return parseCatalog(f)
}
