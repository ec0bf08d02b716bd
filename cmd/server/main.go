package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/router"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	cfg := config.Load()
	ledgerCfg := config.LoadLedgerConfig()
	eventCfg := config.LoadEventConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	store, closeStore, err := openLedger(ctx, ledgerCfg, config.LoadCacheConfig(), rdb)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer closeStore()

	var events service.EventPublisher
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL)
	}

	whitelist := repository.NewWhitelistRepo(store)
	seats := repository.NewSeatRepo(store)
	incidents := service.NewIncidentLog(cfg.IncidentLogSize)
	inventory := service.NewInventory(seats, store)
	booker := service.NewBooker(service.NewQuotaTracker(whitelist), inventory, incidents, events)
	sessions := session.NewManager(cfg.SessionTTL)
	flow := session.NewController(sessions, service.NewResolver(whitelist, cfg.QuotaUnlimited), inventory, booker, incidents, session.Gate{
		OpenAt:        eventCfg.OpenAt,
		CloseAt:       eventCfg.CloseAt,
		RefreshBefore: eventCfg.RefreshBefore,
		RefreshAfter:  eventCfg.RefreshAfter,
	})

	go sessions.RunJanitor(ctx, time.Minute)
	if cfg.EventsEnabled && cfg.ConsumerEnabled {
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking-consumer: stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, flow), cfg.JWTSecret, limiter)
	router.RegisterBooking(e, handler.NewBookingHandler(flow, inventory), cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(flow, inventory), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, ledger=%s)", addr, cfg.Env, ledgerCfg.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
