package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/config"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/db"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/httpapi"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/ingest"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/mq"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/query"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// startServer ensures the schema and then brings up the HTTP listener. The
// schema step is a one-time barrier: no request is served before it
// completes.
func startServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	repo *repository.Repository,
	router *gin.Engine,
) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Error("failed to ensure schema", zap.Error(err))
				return err
			}

			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}

			logger.Info("http server listening",
				zap.Int("port", cfg.HTTPPort),
				zap.String("datalog", cfg.Database.Path),
			)

			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("http server shutdown failed", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})
}

// startIngestBridge wires the optional AMQP feed into the ingestion service.
// Without a RABBITMQ_URL the service runs HTTP-only.
func startIngestBridge(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	ingestSvc *ingest.Service,
) error {
	if cfg.RabbitMQ.URL == "" {
		logger.Info("rabbitmq not configured, ingest bridge disabled")
		return nil
	}

	conn, err := mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.AcceptedExchange, logger)
	if err != nil {
		return err
	}

	bridge := mq.NewBridge(ingestSvc, publisher, &cfg.RabbitMQ, logger)

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.IngestQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		RoutingKey:       cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: bridge.ProcessMessage,
	})
	if err != nil {
		return err
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting ingest bridge",
				zap.String("queue", cfg.RabbitMQ.IngestQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(consumerCtx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			if err := publisher.Close(); err != nil {
				logger.Error("failed to close publisher", zap.Error(err))
				return err
			}
			logger.Info("ingest bridge stopped gracefully")
			return nil
		},
	})

	return nil
}

// ProvideDB opens the embedded datalog database
func ProvideDB(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*sql.DB, error) {
	return db.New(lc, logger, cfg.Database.Path)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(handle *sql.DB) *repository.Repository {
	return repository.NewRepository(handle)
}

// ProvideIngestService creates a new ingestion service instance
func ProvideIngestService(repo *repository.Repository, logger *zap.Logger) *ingest.Service {
	return ingest.NewService(repo, logger)
}

// ProvideQueryService creates a new query service instance
func ProvideQueryService(repo *repository.Repository, logger *zap.Logger) *query.Service {
	return query.NewService(repo, logger)
}

// ProvideRouter builds the HTTP router
func ProvideRouter(cfg *config.Config, logger *zap.Logger, ingestSvc *ingest.Service, querySvc *query.Service) *gin.Engine {
	return httpapi.NewRouter(cfg, logger, ingestSvc, querySvc)
}
