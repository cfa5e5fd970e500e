// Package app wires configuration, storage, the commerce stores, and the
// HTTP server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/farmlane/storefront/internal/commerce/cart"
	"github.com/farmlane/storefront/internal/commerce/checkout"
	"github.com/farmlane/storefront/internal/commerce/favorites"
	"github.com/farmlane/storefront/internal/commerce/order"
	"github.com/farmlane/storefront/internal/commerce/session"
	"github.com/farmlane/storefront/internal/handler"
	"github.com/farmlane/storefront/internal/kv"
	"github.com/farmlane/storefront/pkg/health"
	"github.com/farmlane/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the service.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() { _ = store.Close() }()

	engineCfg, err := orderConfig(cfg.Checkout)
	if err != nil {
		return errors.Wrap(err, "checkout config")
	}

	// Stores load their persisted state up front so a bad blob fails the
	// boot instead of the first request.
	cartStore, err := cart.NewStore(ctx, store)
	if err != nil {
		return errors.Wrap(err, "cart store")
	}
	favoritesStore, err := favorites.NewStore(ctx, store)
	if err != nil {
		return errors.Wrap(err, "favorites store")
	}
	orderEngine, err := order.NewEngine(ctx, store, engineCfg)
	if err != nil {
		return errors.Wrap(err, "order engine")
	}
	sessionStore, err := session.NewStore(ctx, store)
	if err != nil {
		return errors.Wrap(err, "session store")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", 5*time.Second, store.Ping)
	healthSvc.SetReady(true)

	h := handler.NewHandler(
		cartStore,
		favoritesStore,
		orderEngine,
		sessionStore,
		checkout.NewValidator(),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           "86400",
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: stop advertising readiness, drain, then stop.
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// openStore builds the configured durable store driver.
func openStore(ctx context.Context, cfg StorageConfig) (kv.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return kv.NewPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		return kv.NewRedis(cfg.RedisAddr), nil
	case "file":
		return kv.NewFiles(cfg.DataDir)
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func orderConfig(cfg CheckoutConfig) (order.Config, error) {
	fee, err := decimal.NewFromString(cfg.ShippingFee)
	if err != nil {
		return order.Config{}, errors.Wrap(err, "parse shipping fee")
	}
	freeOver, err := decimal.NewFromString(cfg.FreeShippingOver)
	if err != nil {
		return order.Config{}, errors.Wrap(err, "parse free shipping threshold")
	}
	return order.Config{
		ShippingFee:      fee,
		FreeShippingOver: freeOver,
		SettlementDelay:  cfg.SettlementDelay,
	}, nil
}
