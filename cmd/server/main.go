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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/identity"
	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/reservation"
	"github.com/iliyamo/slot-reservation/internal/router"
	queue_publisher "github.com/iliyamo/slot-reservation/internal/service"
	"github.com/iliyamo/slot-reservation/internal/utils"
	"github.com/iliyamo/slot-reservation/internal/whitelist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Connect(database.Options{
		Dialect:    database.Dialect(cfg.DBDriver),
		User:       cfg.DBUser,
		Pass:       cfg.DBPass,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
		Log:        logger,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slots := repository.NewSlotRepo(db, loc)
	reservations := repository.NewReservationRepo(db, loc)
	whitelistRepo := repository.NewWhitelistRepo(db)

	var notifier reservation.Notifier
	if cfg.RabbitURL != "" {
		notifier = queue_publisher.New(cfg.RabbitURL, logger)
		if cfg.ConsumerEnabled {
			go func() {
				if err := queue.StartReservationConsumer(ctx, cfg.RabbitURL, cfg.LogDir, logger); err != nil {
					logger.Warn("reservation consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	catalog := reservation.NewCatalog(slots, cfg.SlotCapacity, logger)
	ledger := reservation.NewLedger(slots, reservations, cfg.SlotCapacity, logger)
	surface := reservation.NewSurface(catalog, ledger, reservations, loc, cfg.MinReservations, cfg.MaxReservations, logger)
	workflow := reservation.NewWorkflow(db, ledger, reservations, catalog, notifier, logger)

	verifier := identity.NewVerifier(cfg.JWTSecret)
	verifier.OnStateChange(func(ev identity.Event) {
		logger.Debug("identity", zap.Stringer("kind", ev.Kind), zap.String("email", ev.Email), zap.Error(ev.Err))
	})

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting is local and caching is off")
	} else {
		defer rdb.Close()
	}
	checker := whitelist.NewChecker(whitelistRepo, rdb, cfg.WhitelistCacheTTL, logger)
	payments := payment.NewClient(cfg.StripeSecretKey, cfg.Currency, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	weeks := handler.NewWeekHandler(surface, catalog, ledger, loc, cfg.WeeksAhead, logger)
	wl := handler.NewWhitelistHandler(whitelistRepo, checker, logger)
	auth := middleware.Authenticate(verifier)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, weeks, wl, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger))
	router.RegisterMember(e,
		handler.NewReservationHandler(workflow, loc),
		handler.NewPaymentHandler(payments),
		auth, middleware.RequireWhitelisted(checker))
	router.RegisterAdmin(e, wl,
		handler.NewAdminHandler(reservations, ledger, catalog, loc, logger),
		auth, middleware.RequireAdmin(cfg.AdminEmail))

	surface.SetWeek(ctx, time.Now())
	go reservation.RunWeekRollover(ctx, surface, cfg.WeekRefresh, time.Now)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	err = e.Shutdown(shutdownCtx)
	workflow.Wait()
	return err
}
