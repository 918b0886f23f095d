package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"presence.service/internal/config"
	"presence.service/internal/core"
	"presence.service/internal/worker"
	"presence.service/internal/worker/email"
	"presence.service/pkg/aws"
	"presence.service/pkg/logger"
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
			Service:   "presence-email-worker",
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	emailService := core.NewSESEmailService(ses.NewFromConfig(awsCfg), cfg.EmailSender)
	processor := email.NewProcessor(emailService)
	app := worker.NewWorker(sqs.NewFromConfig(awsCfg), cfg.EmailSQSQueueURL, processor, cfg.WorkerConcurrency)

	app.Start(ctx)

	log.Info().Msg("Worker exited gracefully")
}
