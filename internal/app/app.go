// Package app wires configuration, storage, domain services and the HTTP
// server of the API.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
	"github.com/harvestcart/harvestcart/internal/handler"
	"github.com/harvestcart/harvestcart/internal/storage/memory"
	"github.com/harvestcart/harvestcart/internal/storage/postgres"
	"github.com/harvestcart/harvestcart/pkg/health"
	"github.com/harvestcart/harvestcart/pkg/httpmiddleware"
)

// gateway is the set of repositories backing the services.
type gateway struct {
	vendors        vendor.Repository
	products       product.Repository
	purchaseOrders purchaseorder.Repository
	customerOrders customerorder.Repository
	credentials    auth.CredentialRepository
	ping           health.Pinger
	close          func()
}

func openGateway(ctx context.Context, lg *zap.Logger, cfg *Config) (*gateway, error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		s := memory.New()
		return &gateway{
			vendors:        s.Vendors(),
			products:       s.Products(),
			purchaseOrders: s.PurchaseOrders(),
			customerOrders: s.CustomerOrders(),
			credentials:    s.Credentials(),
			ping:           s,
			close:          func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, apperr.Initialization("connect to database", err)
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, apperr.Initialization("run migrations", err)
	}
	return &gateway{
		vendors:        postgres.NewVendorRepository(pool),
		products:       postgres.NewProductRepository(pool),
		purchaseOrders: postgres.NewPurchaseOrderRepository(pool),
		customerOrders: postgres.NewCustomerOrderRepository(pool),
		credentials:    postgres.NewCredentialRepository(pool),
		ping:           pool,
		close:          pool.Close,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("pricing", cfg.Pricing.Adjustment),
	)

	gw, err := openGateway(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer gw.close()

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(gw.ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	rule, err := cfg.PricingRule()
	if err != nil {
		return apperr.Initialization("invalid pricing rule", err)
	}
	engine, err := purchaseorder.NewEngine(gw.purchaseOrders, purchaseorder.EngineConfig{
		Rule:           rule,
		Logger:         lg.Named("purchaseorder"),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create purchase order engine")
	}
	tracker, err := customerorder.NewTracker(gw.customerOrders, customerorder.TrackerConfig{
		Logger:         lg.Named("customerorder"),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order tracker")
	}
	pepper := []byte(cfg.Auth.Pepper)
	login, err := auth.NewMethod(cfg.Auth.Method, gw.credentials, pepper)
	if err != nil {
		return apperr.Initialization("configure login", err)
	}
	if cfg.Admin.APIKeyHash == "" {
		lg.Warn("Admin routes are not protected: HARVEST_ADMIN_API_KEY_HASH is empty")
	}

	h := handler.New(
		handler.Config{AdminKeyHash: cfg.Admin.APIKeyHash, Pepper: pepper},
		vendor.NewRegistry(gw.vendors, lg.Named("vendor")),
		engine,
		tracker,
		gw.products,
		login,
	)

	router := chi.NewRouter()
	router.Use(httpmiddleware.Labeler(), httpmiddleware.LogRequests())
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Register(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.HeaderAdminKey, httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("harvestcart-api", m),
		),
	}
	healthSvc.SetReady(true)

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
