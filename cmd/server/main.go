package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/danielnymberg/bokabuttle/internal/auth"
	"github.com/danielnymberg/bokabuttle/internal/config"
	"github.com/danielnymberg/bokabuttle/internal/database"
	"github.com/danielnymberg/bokabuttle/internal/handler"
	"github.com/danielnymberg/bokabuttle/internal/metrics"
	"github.com/danielnymberg/bokabuttle/internal/queue"
	"github.com/danielnymberg/bokabuttle/internal/repository"
	"github.com/danielnymberg/bokabuttle/internal/router"
	"github.com/danielnymberg/bokabuttle/internal/service"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.LogLevel))

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		slog.Warn("redis unreachable, cache and rate limiting disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var publisher service.EventPublisher
	if p := queue.NewPublisher(cfg.AMQPURL); p != nil {
		publisher = p
	} else {
		slog.Info("RABBITMQ_URL not set, slot events are not published")
	}
	if cfg.AuditConsumerEnabled {
		consumer := queue.NewConsumer(cfg.AMQPURL, queue.NewAuditLog(cfg.AuditLogDir))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("audit consumer stopped", "err", err)
			}
		}()
	}

	events := repository.NewEventRepo(db)
	sessions := repository.NewSessionRepo(db)
	slots := repository.NewSlotRepo(db)
	admins := repository.NewAdminRepo(db)

	svc := service.NewEventAdmin(service.Stores{
		Events: events, Sessions: sessions, Slots: slots, Admins: admins,
	}, cfg.BcryptCost, m)
	arb := service.NewArbitrator(sessions, slots, publisher, m)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomw.BodyLimit("16K"))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	}))

	router.RegisterRoutes(e, router.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Metrics: m,
		Tokens:  tokens,
		Public:  handler.NewPublicHandler(svc),
		Booking: handler.NewBookingHandler(arb),
		Auth:    handler.NewAuthHandler(svc, tokens, cfg.CookieName, cfg.CookieSecure),
		Admin:   handler.NewAdminHandler(svc),
	})

	addr := ":" + cfg.Port
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
	slog.Info("server stopped")
}
