package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	store := repository.NewStore(db, log)
	events := repository.NewEventRepo(db)
	deps := service.Deps{
		Tx:           store,
		Users:        repository.NewUserRepo(db),
		Events:       events,
		Reservations: repository.NewReservationRepo(db),
		Ledger:       ledger.New(events, log),
		Publisher:    service.NopPublisher{},
		Log:          log,
	}

	if cfg.EventsEnabled {
		pub := service.NewAMQPPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		deps.Publisher = pub
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	reservations := service.NewReservationService(deps)
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))

	var rdb *redis.Client
	cacheCfg, rlCfg := config.LoadCacheConfig(), config.LoadRateLimitConfig()
	if cacheCfg.Enabled || rlCfg.Enabled {
		rdb, err = config.NewRedisClient(config.LoadRedisConfig())
		if err != nil {
			log.WithError(err).Warn("redis unavailable; rate limiting and caching disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	e.Use(middleware.NewTokenBucket(rlCfg, rdb, log))
	e.Use(middleware.NewRedisCache(cacheCfg, rdb, log))

	router.RegisterRoutes(e)
	router.RegisterEvents(e, handler.NewEventHandler(service.NewEventService(deps), log))
	router.RegisterUsers(e, handler.NewUserHandler(service.NewUserService(deps), reservations, log))
	router.RegisterReservations(e, handler.NewReservationHandler(reservations, log))

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
