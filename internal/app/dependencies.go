package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/sales/internal/health"
	"github.com/vladislavdragonenkov/sales/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/sales/internal/storage/badgerdb"
	"github.com/vladislavdragonenkov/sales/internal/storage/ddbsequence"
	"github.com/vladislavdragonenkov/sales/internal/storage/memory"
	"github.com/vladislavdragonenkov/sales/internal/storage/postgres"
)

// runtimeDependencies содержит инфраструктуру, выбранную конфигурацией.
type runtimeDependencies struct {
	storage    domain.StorageAdapter
	sequences  lifecycle.SequenceFactory
	outboxRepo domain.OutboxRepository
	sendLog    domain.SendLogRepository
	catalog    domain.ProductCatalog

	// durableOutbox означает, что события переживают рестарт процесса.
	durableOutbox bool

	storageChecker healthcheck.Checker
	closeFn        func() error
}

// entityTypes возвращает все типы сущностей в стабильном порядке.
func entityTypes() []domain.EntityType {
	types := domain.EntityTypes()
	return lo.Map(domain.EntityTypeCodes(), func(code string, _ int) domain.EntityType {
		return types[code]
	})
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return runtimeDependencies{}, err
	}

	if err := initSequences(ctx, cfg, &deps, logger); err != nil {
		if deps.closeFn != nil {
			_ = deps.closeFn()
		}
		return runtimeDependencies{}, err
	}

	return deps, nil
}

// seededCatalog создаёт in-memory каталог из cfg.CatalogSeed.
func seededCatalog(cfg Config) (*memory.ProductCatalog, error) {
	products, err := memory.ParseProducts(cfg.CatalogSeed)
	if err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	return memory.NewProductCatalog(products...), nil
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	switch driver {
	case "", StorageDriverMemory:
		catalog, err := seededCatalog(cfg)
		if err != nil {
			return runtimeDependencies{}, err
		}
		logger.Info("storage driver: memory")
		return runtimeDependencies{
			storage:    memory.NewEntityStore(entityTypes()),
			sequences:  memory.NewSequences().For,
			outboxRepo: memory.NewOutboxRepository(),
			sendLog:    memory.NewSendLogRepository(),
			catalog:    catalog,
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return runtimeDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
		}

		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}

		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("storage driver: postgres")
		return runtimeDependencies{
			storage:        postgres.NewEntityStore(store),
			sequences:      postgres.SequenceFactory(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			sendLog:        postgres.NewSendLogRepository(store),
			catalog:        postgres.NewProductCatalog(store),
			durableOutbox:  true,
			storageChecker: healthcheck.NewSimpleChecker("postgres", store.Ping),
			closeFn:        store.Close,
		}, nil

	case StorageDriverBadger:
		catalog, err := seededCatalog(cfg)
		if err != nil {
			return runtimeDependencies{}, err
		}
		store, err := badgerdb.Open(badgerdb.Options{
			Path:   cfg.BadgerPath,
			Logger: logger.WithField("component", "badger"),
		}, entityTypes())
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open badger store: %w", err)
		}

		logger.WithField("path", cfg.BadgerPath).Info("storage driver: badger")
		return runtimeDependencies{
			storage:    store,
			sequences:  badgerdb.SequenceFactory(store),
			outboxRepo: memory.NewOutboxRepository(),
			sendLog:    memory.NewSendLogRepository(),
			catalog:    catalog,
			storageChecker: healthcheck.NewSimpleChecker("badger", func(context.Context) error {
				if store.DB().IsClosed() {
					return errors.New("badger database is closed")
				}
				return nil
			}),
			closeFn: store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

func initSequences(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.SequenceDriver))
	switch driver {
	case "", SequenceDriverStorage:
		return nil

	case SequenceDriverDynamoDB:
		table := strings.TrimSpace(cfg.DynamoTable)
		if table == "" {
			return errors.New("dynamodb table is required for dynamodb sequence driver")
		}
		client, err := ddbsequence.NewClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return fmt.Errorf("init dynamodb sequences: %w", err)
		}

		deps.sequences = ddbsequence.SequenceFactory(client, table)
		logger.WithFields(log.Fields{
			"table":  table,
			"region": cfg.AWSRegion,
		}).Info("sequence driver: dynamodb")
		return nil

	default:
		return fmt.Errorf("unsupported sequence driver: %q", cfg.SequenceDriver)
	}
}
