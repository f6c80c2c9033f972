package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier-be/internal/config"
	"atelier-be/internal/dashboard"
	"atelier-be/internal/db"
	"atelier-be/internal/logger"
	"atelier-be/internal/metrics"
	"atelier-be/internal/middleware"
	"atelier-be/internal/order"
	"atelier-be/internal/transport"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const serviceName = "atelier-be"

var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		logger.L().Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.AppEnv); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(ctx, cfg, database),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Info("server starting",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.AppEnv),
	)
	return startServerFunc(ctx, srv, cfg.ShutdownTimeout)
}

// newServer wires repositories, services and handlers behind the middleware
// stack. The rate limiter's cleanup loop lives as long as ctx.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) http.Handler {
	orderMetrics := &metrics.OrderMetrics{}

	orderRepo := order.NewRepository(database,
		order.WithTxTimeout(cfg.OrderTxTimeout),
		order.WithItemConcurrency(cfg.OrderItemConcurrency),
	)
	orderSvc := order.NewService(orderRepo, orderMetrics)

	dashboardSvc := dashboard.NewService(dashboard.NewRepository(database), orderSvc.Stats)

	router := transport.NewRouter(
		transport.NewOrderHandler(orderSvc),
		transport.NewDashboardHandler(dashboardSvc),
		database,
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.InternalSecretKey)
	go limiter.Cleanup(ctx, time.Minute)

	return otelhttp.NewHandler(withMiddleware(router, cfg, limiter), serviceName)
}

// withMiddleware assigns the request id first so every later layer,
// Recovery included, logs it.
func withMiddleware(h http.Handler, cfg *config.Config, limiter *middleware.RateLimiter) http.Handler {
	return middleware.Chain(h,
		middleware.RequestID,
		middleware.Recovery,
		middleware.Logging,
		middleware.CORS(cfg.CORSOrigins),
		limiter.Middleware,
	)
}

// serve runs srv until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
