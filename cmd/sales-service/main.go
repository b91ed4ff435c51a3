package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/app"
	"github.com/vladislavdragonenkov/sales/internal/storage/memory"
	"github.com/vladislavdragonenkov/sales/internal/version"
)

const (
	envGRPCAddr                   = "SALES_GRPC_ADDR"
	envHTTPAddr                   = "SALES_HTTP_ADDR"
	envMetricsAddr                = "SALES_METRICS_ADDR"
	envEnvironment                = "SALES_ENV"
	envLogLevel                   = "SALES_LOG_LEVEL"
	envStorageDriver              = "SALES_STORAGE_DRIVER"
	envPostgresDSN                = "SALES_POSTGRES_DSN"
	envPostgresAutoMigrate        = "SALES_POSTGRES_AUTO_MIGRATE"
	envBadgerPath                 = "SALES_BADGER_PATH"
	envSequenceDriver             = "SALES_SEQUENCE_DRIVER"
	envDynamoTable                = "SALES_DYNAMODB_TABLE"
	envDynamoEndpoint             = "SALES_DYNAMODB_ENDPOINT"
	envAWSRegion                  = "AWS_REGION"
	envKafkaBrokers               = "KAFKA_BROKERS"
	envKafkaTopic                 = "SALES_KAFKA_TOPIC"
	envAllowMockIntegrations      = "SALES_ALLOW_MOCK_INTEGRATIONS"
	envOutboxPollInterval         = "SALES_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize            = "SALES_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts          = "SALES_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay           = "SALES_OUTBOX_RETRY_DELAY"
	envSendFriendMaxPerHour       = "SALES_SENDFRIEND_MAX_PER_HOUR"
	envSendFriendCleanupInterval  = "SALES_SENDFRIEND_CLEANUP_INTERVAL"
	envSendFriendCleanupBatchSize = "SALES_SENDFRIEND_CLEANUP_BATCH_SIZE"
	envCatalogSeed                = "SALES_CATALOG_SEED"
	envTraceExporter              = "SALES_TRACE_EXPORTER"
	envOTLPEndpoint               = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных окружения.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию, а причина попадает в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	readString := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	readBool := func(key string, target *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warn(key, v, err)
			return
		}
		*target = parsed
	}
	readInt := func(key string, target *int, validate func(int) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, validate, rule)
		if err != nil {
			warn(key, v, err)
			return
		}
		*target = parsed
	}
	readDuration := func(key string, target *time.Duration, validate func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, validate, rule)
		if err != nil {
			warn(key, v, err)
			return
		}
		*target = parsed
	}

	positive := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	readString(envGRPCAddr, &cfg.GRPCAddr)
	readString(envHTTPAddr, &cfg.HTTPAddr)
	readString(envMetricsAddr, &cfg.MetricsAddr)
	readString(envEnvironment, &cfg.Environment)

	readString(envStorageDriver, &cfg.StorageDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	readString(envPostgresDSN, &cfg.PostgresDSN)
	readBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	readString(envBadgerPath, &cfg.BadgerPath)

	readString(envSequenceDriver, &cfg.SequenceDriver)
	cfg.SequenceDriver = strings.ToLower(cfg.SequenceDriver)
	readString(envDynamoTable, &cfg.DynamoTable)
	readString(envDynamoEndpoint, &cfg.DynamoEndpoint)
	readString(envAWSRegion, &cfg.AWSRegion)

	readString(envKafkaBrokers, &cfg.KafkaBrokers)
	readString(envKafkaTopic, &cfg.KafkaTopic)
	readBool(envAllowMockIntegrations, &cfg.AllowMockIntegrations)

	readDuration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	readInt(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	readInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	readDuration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")

	readInt(envSendFriendMaxPerHour, &cfg.SendFriendMaxPerHour, positive, "must be > 0")
	readDuration(envSendFriendCleanupInterval, &cfg.SendFriendCleanupInterval, positiveDuration, "must be > 0")
	readInt(envSendFriendCleanupBatchSize, &cfg.SendFriendCleanupBatchSize, positive, "must be > 0")
	if v, ok := lookup(envCatalogSeed); ok && strings.TrimSpace(v) != "" {
		if _, err := memory.ParseProducts(v); err != nil {
			warn(envCatalogSeed, v, err)
		} else {
			cfg.CatalogSeed = strings.TrimSpace(v)
		}
	}

	readString(envTraceExporter, &cfg.TraceExporter)
	cfg.TraceExporter = strings.ToLower(cfg.TraceExporter)
	readString(envOTLPEndpoint, &cfg.OTLPEndpoint)

	return cfg, warnings
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", value)
	}
}

func parseInt(value string, validate func(int) bool, rule string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(parsed) {
		return 0, errors.New(rule)
	}
	return parsed, nil
}

func parseDuration(value string, validate func(time.Duration) bool, rule string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(parsed) {
		return 0, errors.New(rule)
	}
	return parsed, nil
}

func main() {
	level, _ := os.LookupEnv(envLogLevel)
	setupLogger(level)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":         version.String(),
		"grpc_addr":       cfg.GRPCAddr,
		"http_addr":       cfg.HTTPAddr,
		"metrics_addr":    cfg.MetricsAddr,
		"storage_driver":  cfg.StorageDriver,
		"sequence_driver": cfg.SequenceDriver,
	}).Info("запускаем SalesService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("SalesService остановлен")
}
