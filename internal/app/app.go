package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/sales/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/sales/internal/health"
	"github.com/vladislavdragonenkov/sales/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/sales/internal/metrics"
	"github.com/vladislavdragonenkov/sales/internal/service/httpapi"
	"github.com/vladislavdragonenkov/sales/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/sales/internal/service/outbox"
	"github.com/vladislavdragonenkov/sales/internal/service/payment"
	"github.com/vladislavdragonenkov/sales/internal/service/sendfriend"
	"github.com/vladislavdragonenkov/sales/internal/service/transactions"
	"github.com/vladislavdragonenkov/sales/internal/storage/instrumented"
	"github.com/vladislavdragonenkov/sales/internal/tracing"
	"github.com/vladislavdragonenkov/sales/internal/version"
)

const (
	shutdownTimeout     = 5 * time.Second
	readHeaderTimeout   = 5 * time.Second
	instrumentationName = "github.com/vladislavdragonenkov/sales/internal/storage"
)

// services — собранный граф прикладных сервисов.
type services struct {
	registry      *lifecycle.Registry
	transactions  *transactions.Fetcher
	sendFriend    *sendfriend.Service
	outboxWorker  *outbox.Worker
	cleanupWorker *sendfriend.CleanupWorker
	health        *healthcheck.Handler
}

// Run поднимает gRPC health, HTTP API, сервер метрик и фоновые воркеры
// и блокируется до отмены ctx или ошибки одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	tracer, err := tracing.Init(ctx, cfg.tracingConfig(version.GetVersion()), log.WithField("component", "tracing"))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(tracer, logger)

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if deps.closeFn != nil {
		defer func() {
			if err := deps.closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close storage")
			}
		}()
	}

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	svc := buildServices(cfg, deps, kafkaProducer, tracer, logger)

	grpcServer, healthServer := newGRPCServer(logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Dependencies{
		Entities:     svc.registry,
		Transactions: svc.transactions,
		SendFriend:   svc.sendFriend,
	},
		httpapi.WithTracerProvider(serviceName, tracer.TracerProvider()),
		httpapi.WithLogger(logger.WithField("layer", "http")),
	)
	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	g, gctx := errgroup.WithContext(ctx)
	metricsSrv := startMetricsServer(gctx, cfg.MetricsAddr, logger, svc.health)

	g.Go(func() error {
		logger.Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		if err := apiSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api server: %w", err)
		}
		return nil
	})
	if svc.outboxWorker != nil {
		g.Go(func() error {
			svc.outboxWorker.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		svc.cleanupWorker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем серверы")
		stopGRPC(grpcServer, healthServer, logger)
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// buildServices связывает хранилище, генераторы increment id и наблюдателей
// с прикладными сервисами.
func buildServices(cfg Config, deps runtimeDependencies, producer *kafka.Producer, tracer *tracing.Provider, logger *log.Entry) services {
	persistenceMetrics := metrics.NewPersistenceMetrics()
	instrumentation := []instrumented.Option{
		instrumented.WithTracer(tracer.Tracer(instrumentationName)),
		instrumented.WithMetrics(persistenceMetrics),
		instrumented.WithLogger(logger.WithField("component", "storage")),
	}

	options := []lifecycle.Option{lifecycle.WithObserver(persistenceMetrics)}
	if enqueuesEvents(cfg, deps, producer) {
		options = append(options, lifecycle.WithObserver(
			outbox.NewEntityObserver(deps.outboxRepo, logger.WithField("component", "outbox-observer")),
		))
	}

	registry := lifecycle.NewRegistry(
		instrumented.NewStorage(deps.storage, instrumentation...),
		instrumented.SequenceFactory(deps.sequences, instrumentation...),
		entityTypes(),
		options...,
	)

	svc := services{
		registry: registry,
		sendFriend: sendfriend.NewService(deps.catalog, deps.sendLog, cfg.SendFriendMaxPerHour,
			sendfriend.WithLogger(logger.WithField("component", "sendfriend")),
		),
		cleanupWorker: sendfriend.NewCleanupWorker(deps.sendLog,
			sendfriend.WithCleanupLogger(logger.WithField("component", "sendfriend-cleanup-worker")),
			sendfriend.WithInterval(cfg.SendFriendCleanupInterval),
			sendfriend.WithBatchSize(cfg.SendFriendCleanupBatchSize),
		),
		health: healthcheck.NewHandler(version.GetVersion(), storageName(cfg)),
	}

	if cfg.AllowMockIntegrations {
		persister, err := registry.Get(domain.EntityTransaction)
		if err == nil {
			// Реального платёжного шлюза нет: fetch работает только против mock.
			svc.transactions = transactions.NewFetcher(persister, payment.NewMockGateway(),
				logger.WithField("component", "transactions"))
		}
	}

	if producer != nil {
		svc.outboxWorker = outbox.NewWorker(deps.outboxRepo,
			kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
	}

	if deps.storageChecker != nil {
		svc.health.RegisterChecker("storage", deps.storageChecker)
	}
	if producer == nil && cfg.KafkaBrokers != "" {
		svc.health.RegisterChecker("kafka", healthcheck.NewOptionalChecker("kafka", func(context.Context) error {
			return errors.New("kafka producer is not initialized")
		}))
	}

	return svc
}

// enqueuesEvents сообщает, есть ли кому вычитывать outbox: запущенный producer
// или durable outbox при заданных брокерах, который вычитает следующий запуск.
func enqueuesEvents(cfg Config, deps runtimeDependencies, producer *kafka.Producer) bool {
	if producer != nil {
		return true
	}
	return deps.durableOutbox && strings.TrimSpace(cfg.KafkaBrokers) != ""
}

func storageName(cfg Config) string {
	if cfg.StorageDriver == "" {
		return StorageDriverMemory
	}
	return cfg.StorageDriver
}

func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// stopGRPC останавливает сервер с таймаутом на graceful stop.
func stopGRPC(grpcServer *grpc.Server, healthServer *health.Server, logger *log.Entry) {
	healthServer.Shutdown()

	stoppedCh := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		grpcServer.Stop()
	}
}

func shutdownTracing(provider *tracing.Provider, logger *log.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("failed to flush traces")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-проверки.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
