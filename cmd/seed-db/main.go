// Command seed-db applies migrations and loads demo data: catalog products,
// vendors, customer orders for a demo user and that user's PIN credential.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
	"github.com/harvestcart/harvestcart/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

var demoVendors = []string{"AgroSupplies", "GreenFields Co-op", "Valley Irrigation Ltd"}

var demoOrders = []struct {
	total  string
	status customerorder.Status
}{
	{total: "45.90", status: customerorder.StatusDelivered},
	{total: "120.00", status: customerorder.StatusShipped},
	{total: "18.50", status: customerorder.StatusPending},
}

type orderStore interface {
	ListByUser(ctx context.Context, userID string) ([]customerorder.Order, error)
	Insert(ctx context.Context, o *customerorder.Order) error
}

type credentialStore interface {
	Upsert(ctx context.Context, c auth.Credential) error
}

type seeder struct {
	lg          *zap.Logger
	products    product.Repository
	vendors     *vendor.Registry
	orders      orderStore
	credentials credentialStore
}

type seedOptions struct {
	productsFile string
	demoUser     string
	pin          string
	pepper       string
}

func main() {
	var (
		databaseURL string
		opts        seedOptions
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.demoUser, "demo-user", "demo-farmer", "user id that receives demo orders and a PIN")
	flag.StringVar(&opts.pin, "pin", "", "PIN for the demo user (or HARVEST_SEED_PIN env); skipped when empty")
	flag.StringVar(&opts.pepper, "pepper", "", "HMAC pepper for PIN hashing (or HARVEST_AUTH_PEPPER env)")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.pin == "" {
		opts.pin = os.Getenv("HARVEST_SEED_PIN")
	}
	if opts.pepper == "" {
		opts.pepper = os.Getenv("HARVEST_AUTH_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, opts seedOptions) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	s := &seeder{
		lg:          lg,
		products:    postgres.NewProductRepository(pool),
		vendors:     vendor.NewRegistry(postgres.NewVendorRepository(pool), lg.Named("vendor")),
		orders:      postgres.NewCustomerOrderRepository(pool),
		credentials: postgres.NewCredentialRepository(pool),
	}
	return s.seed(ctx, opts)
}

// seed is idempotent: products are upserted, vendors and orders are only
// added when none exist yet.
func (s *seeder) seed(ctx context.Context, opts seedOptions) error {
	if err := s.seedProducts(ctx, opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := s.seedVendors(ctx); err != nil {
		return errors.Wrap(err, "seed vendors")
	}
	if err := s.seedOrders(ctx, opts.demoUser); err != nil {
		return errors.Wrap(err, "seed orders")
	}
	if opts.pin == "" {
		s.lg.Info("No PIN given, skipping credential")
		return nil
	}
	if err := s.seedCredential(ctx, opts); err != nil {
		return errors.Wrap(err, "seed credential")
	}
	return nil
}

func (s *seeder) seedProducts(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	for _, p := range products {
		if err := s.products.Upsert(ctx, product.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price.Round(2),
			Category: p.Category,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	s.lg.Info("Upserted products", zap.Int("count", len(products)), zap.String("path", path))
	return nil
}

func (s *seeder) seedVendors(ctx context.Context) error {
	existing, err := s.vendors.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.lg.Info("Vendors already present", zap.Int("count", len(existing)))
		return nil
	}
	for _, name := range demoVendors {
		v, err := s.vendors.Create(ctx, name)
		if err != nil {
			return err
		}
		s.lg.Info("Created vendor", zap.String("id", v.ID), zap.String("name", v.Name))
	}
	return nil
}

func (s *seeder) seedOrders(ctx context.Context, userID string) error {
	existing, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.lg.Info("Demo orders already present", zap.String("user_id", userID))
		return nil
	}
	for _, d := range demoOrders {
		o := &customerorder.Order{
			UserID:      userID,
			TotalAmount: decimal.RequireFromString(d.total),
			Status:      d.status,
		}
		if err := s.orders.Insert(ctx, o); err != nil {
			return err
		}
	}
	s.lg.Info("Created demo orders", zap.String("user_id", userID), zap.Int("count", len(demoOrders)))
	return nil
}

func (s *seeder) seedCredential(ctx context.Context, opts seedOptions) error {
	if !auth.ValidPIN(opts.pin) {
		return errors.New("pin must be 4 to 8 digits")
	}
	if opts.pepper == "" {
		return errors.New("pepper is required to hash the pin")
	}
	if err := s.credentials.Upsert(ctx, auth.Credential{
		UserID:  opts.demoUser,
		PINHash: auth.Hash([]byte(opts.pepper), opts.pin),
	}); err != nil {
		return err
	}
	s.lg.Info("Upserted credential", zap.String("user_id", opts.demoUser))
	return nil
}
