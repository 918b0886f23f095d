package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"presence.service/internal/config"
	"presence.service/internal/worker"
	"presence.service/internal/worker/payroll"
	"presence.service/internal/worker/timesheet"
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
			Service:   "presence-timesheet-worker",
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

	processor := timesheet.NewProcessor(payroll.NewHTTPClient(cfg.PayrollAPIURL))
	app := worker.NewWorker(sqs.NewFromConfig(awsCfg), cfg.TimesheetSQSQueueURL, processor, cfg.WorkerConcurrency)

	// Start returns once the signal context is canceled and in-flight messages are done.
	app.Start(ctx)

	log.Info().Msg("Worker exited gracefully")
}
