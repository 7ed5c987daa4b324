package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/config"
	"github.com/openclaw/timeclock-server-go/internal/handler"
	"github.com/openclaw/timeclock-server-go/internal/jobs"
	"github.com/openclaw/timeclock-server-go/internal/middleware"
	"github.com/openclaw/timeclock-server-go/internal/notify"
	"github.com/openclaw/timeclock-server-go/internal/redis"
	"github.com/openclaw/timeclock-server-go/internal/service"
	"github.com/openclaw/timeclock-server-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	sessionRepo, closeStore, err := openSessionStore(ctx, cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer closeStore()

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	clk := clock.New(loc)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	sessionService := service.NewSessionService(sessionRepo, clk)
	aggregateService := service.NewAggregateService(sessionRepo, clk)
	reportService := service.NewReportService(aggregateService, loc)

	commandLimiter := middleware.NewRedisRateLimiter(redisClient.Client)
	exportLimiter := middleware.NewIPRateLimitMiddleware(middleware.NewRateLimiter(), config.ExportRateLimitPerMin, "exports")
	signatureMiddleware := middleware.NewCommandSignatureMiddleware(cfg.CommandSignatureSecret)
	gatewayAuth := middleware.NewGatewayTokenMiddleware(cfg.GatewayToken)
	adminAuth := middleware.NewAdminTokenMiddleware(cfg.AdminTokenHash)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	commandHandler := handler.NewCommandHandler(
		sessionService, aggregateService, reportService, commandLimiter, cfg.CommandRateLimitPerMin,
	)
	eventsHandler := handler.NewEventsHandler(broker)
	exportHandler := handler.NewExportHandler(reportService, sessionService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(broker))

	r.Route("/v1/commands", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimitMiddleware.Handler)
		r.Use(signatureMiddleware.Handler)
		r.Post("/", commandHandler.Webhook)
	})

	r.Route("/v1/events", func(r chi.Router) {
		r.Use(gatewayAuth.Handler)
		r.Get("/", eventsHandler.ServeHTTP)
	})

	r.Route("/v1/orgs", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(exportLimiter.Handler)
		r.Use(adminAuth.Handler)
		r.Mount("/", exportHandler.Routes())
	})

	sweeper := jobs.NewStaleSessionSweeper(
		sessionRepo,
		notify.NewBrokerNotifier(broker),
		clk,
		config.StaleSweepInterval,
		config.StaleSessionThreshold,
	)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("timezone", loc.String()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
