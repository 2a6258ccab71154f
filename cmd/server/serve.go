package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/meqhh/simpat-api/internal/config"
	"github.com/meqhh/simpat-api/internal/db"
	"github.com/meqhh/simpat-api/internal/events"
	"github.com/meqhh/simpat-api/internal/httpapi"
	"github.com/meqhh/simpat-api/internal/metrics"
	"github.com/meqhh/simpat-api/internal/service"
	"github.com/meqhh/simpat-api/internal/telemetry"
)

func runServe(ctx context.Context) error {
	// -- Configs preload --
	cfg, logger, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	// -- Tracing --
	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	// -- Connect to DB --
	database, err := db.Connect(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error().Err(err).Msg("close database")
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, "up"); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	// -- Events --
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer publisher.Close()

	qcService := service.NewQCCheckService(database, publisher, logger)
	m := metrics.New()
	handler := httpapi.NewHandler(qcService, logger, m)

	// -- Router --
	tracingService := ""
	if cfg.OTLPEndpoint != "" {
		tracingService = serviceName
	}
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		Ready: func(ctx context.Context) error {
			return db.Ping(ctx, database)
		},
		Metrics:        m,
		TracingService: tracingService,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return listenAndServe(ctx, server, logger)
}

func listenAndServe(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func newPublisher(cfg config.Config, logger zerolog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info().Msg("NATS_URL not set, change events disabled")
		return events.Nop{}, nil
	}

	publisher, err := events.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix,
		nats.Name(serviceName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("prefix", cfg.NATSSubjectPrefix).Msg("publishing change events to nats")
	return publisher, nil
}
