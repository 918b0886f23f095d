// Entry point for REST API
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"presence.service/internal/api"
	"presence.service/internal/config"
	"presence.service/internal/core"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/ports/repository"
	"presence.service/pkg/aws"
	"presence.service/pkg/database"
	"presence.service/pkg/logger"
	"presence.service/pkg/metrics"
	"presence.service/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Init(cfg.IsLocalDev)

	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.Start(context.Background(), telemetry.Config{
			Service:   "presence-api",
			Collector: cfg.OTELExporterEndpoint,
			Console:   cfg.IsLocalDev,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to init tracer")
		}
		defer func() {
			_ = shutdownTracer(context.Background())
		}()
	}

	ctx := context.Background()

	// Subject store
	var repo repository.Repository
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory subject store; data is lost on restart")
		repo = repository.NewInMemoryRepository()
	default:
		db, err := database.NewInstrumentedConnection(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening database")
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Error applying schema")
		}
		log.Info().Msg("Successfully connected to the database.")
		repo = repository.NewSubjectRepository(db)
	}

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}
	producer := messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.TimesheetSQSQueueURL, cfg.EmailSQSQueueURL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	presenceService := core.NewPresenceService(repo, producer, metrics.New(reg))
	router := api.NewRouter(presenceService, reg)

	// Request loggers carry the trace started by otelhttp.
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithTrace(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           otelhttp.NewHandler(loggerMiddleware(router), "api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Str("store", cfg.StoreBackend).Msg("API Service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// In-flight requests get 5 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
