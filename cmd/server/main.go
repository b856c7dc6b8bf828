package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/config"
	"github.com/iliyamo/room-booking-sync/internal/database"
	"github.com/iliyamo/room-booking-sync/internal/handler"
	"github.com/iliyamo/room-booking-sync/internal/middleware"
	"github.com/iliyamo/room-booking-sync/internal/observability"
	"github.com/iliyamo/room-booking-sync/internal/queue"
	"github.com/iliyamo/room-booking-sync/internal/repository"
	"github.com/iliyamo/room-booking-sync/internal/router"
	"github.com/iliyamo/room-booking-sync/internal/service"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	store := repository.NewStore(db)

	// Redis is optional: without it the cache and rate limiter pass through.
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		logger.Warn("redis unavailable; cache and rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	audit := service.MultiSink{
		observability.NewZapSink(logger),
		queue.NewPublisher(cfg.AMQPURL, logger),
	}
	if ci := middleware.NewCacheInvalidator(cacheCfg, rdb, logger); ci != nil {
		audit = append(audit, ci)
	}

	auth, err := service.NewAuthenticator(cfg.ShopifyWebhookSecret)
	if err != nil {
		return err
	}
	availability := service.NewAvailabilityService(store)
	ingestor := service.NewOrderIngestor(store, audit)

	go func() {
		if err := queue.StartBookingConsumer(ctx, cfg.AMQPURL, cfg.BookingLogPath, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("booking consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.Tracing())
	e.Use(middleware.RequestLogger(logger))

	limiter := middleware.NewTokenBucket(rateCfg, rdb, logger)
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, handler.NewAvailabilityHandler(availability, logger),
		limiter, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterWebhooks(e, handler.NewWebhookHandler(ingestor, logger),
		middleware.VerifyWebhook(auth, cfg.WebhookMaxBodyBytes, logger), limiter)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, logger))
	router.RegisterAdmin(e, handler.NewAdminHandler(store.Rooms, store.Bookings, logger), cfg.JWTSecret)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
