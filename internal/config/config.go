package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Everything comes from environment variables; in the cluster they are set on the pod,
// locally docker-compose provides them.

type Config struct {
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`

	ServerPort   string `mapstructure:"SERVER_PORT"`
	// StoreBackend is "postgres" or "memory".
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	IsLocalDev   bool   `mapstructure:"IS_LOCAL_DEV"`

	TracingEnabled       bool   `mapstructure:"TRACING_ENABLED"`
	OTELExporterEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`

	AWSRegion            string `mapstructure:"AWS_REGION"`
	AWSEndpoint          string `mapstructure:"AWS_ENDPOINT"`
	TimesheetSQSQueueURL string `mapstructure:"TIMESHEET_SQS_QUEUE_URL"`
	EmailSQSQueueURL     string `mapstructure:"EMAIL_SQS_QUEUE_URL"`
	PayrollAPIURL        string `mapstructure:"PAYROLL_API_URL"`
	EmailSender          string `mapstructure:"EMAIL_SENDER"`
	WorkerConcurrency    int    `mapstructure:"WORKER_CONCURRENCY"`
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	v := viper.New()

	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "presence_db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("STORE_BACKEND", StorePostgres)
	v.SetDefault("IS_LOCAL_DEV", false)
	v.SetDefault("TRACING_ENABLED", true)
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "jaeger:4317")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("TIMESHEET_SQS_QUEUE_URL", "http://localstack:4566/000000000000/timesheet-queue")
	v.SetDefault("EMAIL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/email-queue")
	v.SetDefault("PAYROLL_API_URL", "http://localhost:8081/")
	v.SetDefault("EMAIL_SENDER", "presence@facility.example.com")
	v.SetDefault("WORKER_CONCURRENCY", 10)

	v.AutomaticEnv()

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}
	config.StoreBackend = strings.ToLower(config.StoreBackend)
	if config.StoreBackend != StorePostgres && config.StoreBackend != StoreMemory {
		return config, fmt.Errorf("unsupported STORE_BACKEND %q", config.StoreBackend)
	}
	return config, nil
}
