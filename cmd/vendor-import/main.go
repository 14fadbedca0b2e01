// Command vendor-import bulk-registers vendors from plain or gzip-compressed
// name lists, skipping duplicates and vendors that already exist.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/vendor"
	"github.com/harvestcart/harvestcart/internal/storage/postgres"
	"github.com/harvestcart/harvestcart/internal/vendorimport"
)

func main() {
	var (
		databaseURL string
		dryRun      bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "scan and report without creating vendors")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		lg.Fatal("No input files: pass one or more .gz files")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, flag.Args(), dryRun); err != nil {
		lg.Fatal("Vendor import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, dryRun bool) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	registry := vendor.NewRegistry(postgres.NewVendorRepository(pool), lg.Named("vendor"))
	stats, err := vendorimport.New(registry, lg).Run(ctx, files, dryRun)
	if err != nil {
		return err
	}
	lg.Info("Vendor import completed",
		zap.Bool("dry_run", dryRun),
		zap.Int("lines", stats.Lines),
		zap.Int("created", stats.Created),
		zap.Int("existing", stats.Existing),
		zap.Int("rejected", stats.Rejected),
	)
	return nil
}
