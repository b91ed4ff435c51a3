package app

import (
	"time"

	"github.com/vladislavdragonenkov/sales/internal/tracing"
)

// Драйверы хранилища сущностей.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverBadger   = "badger"
)

// Источники increment id.
const (
	SequenceDriverStorage  = "storage"
	SequenceDriverDynamoDB = "dynamodb"
)

const serviceName = "sales-service"

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string
	Environment string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	BadgerPath          string

	// SequenceDriver выбирает, где хранятся счётчики increment id.
	SequenceDriver string
	DynamoTable    string
	AWSRegion      string
	DynamoEndpoint string

	KafkaBrokers string
	KafkaTopic   string

	// AllowMockIntegrations включает mock платёжного шлюза для fetch транзакций.
	AllowMockIntegrations bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	SendFriendMaxPerHour       int
	SendFriendCleanupInterval  time.Duration
	SendFriendCleanupBatchSize int
	// CatalogSeed наполняет in-memory каталог товаров для memory и badger: "7:Tent,8:Stove".
	CatalogSeed string

	TraceExporter string
	OTLPEndpoint  string
	OTLPInsecure  bool
}

// DefaultConfig возвращает настройки для локального запуска на in-memory хранилище.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		Environment: "development",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		BadgerPath:          "data/badger",

		SequenceDriver: SequenceDriverStorage,
		DynamoTable:    "sales_sequence",

		KafkaTopic: "sales.entity.events",

		AllowMockIntegrations: true,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,

		SendFriendMaxPerHour:       5,
		SendFriendCleanupInterval:  5 * time.Minute,
		SendFriendCleanupBatchSize: 300,

		TraceExporter: tracing.ExporterNone,
		OTLPInsecure:  true,
	}
}

func (c Config) tracingConfig(serviceVersion string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    c.Environment,
		Exporter:       c.TraceExporter,
		Endpoint:       c.OTLPEndpoint,
		Insecure:       c.OTLPInsecure,
	}
}
