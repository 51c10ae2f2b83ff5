package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/Morsalin012/sushi-cafe-web/internal/adapter/event"
	"github.com/Morsalin012/sushi-cafe-web/internal/adapter/handler"
	"github.com/Morsalin012/sushi-cafe-web/internal/adapter/storage"
	"github.com/Morsalin012/sushi-cafe-web/internal/config"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
	"github.com/Morsalin012/sushi-cafe-web/internal/metrics"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
	"github.com/Morsalin012/sushi-cafe-web/internal/telemetry"
)

const serviceName = "sushi-cafe"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type publisher interface {
	port.EventPublisher
	Close() error
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Trace.Stdout)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// Initialize storage
	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	// Initialize coordination
	var (
		locker port.Locker
		idem   port.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL, logger)
		if err := redisAdapter.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		locker, idem = redisAdapter, redisAdapter
	} else {
		logger.Info("redis not configured, using in-process locks")
		locker, idem = storage.NewMemoryLocker(), storage.NewMemoryIdempotency(24*time.Hour)
	}

	// Initialize events
	var events publisher
	if len(cfg.Kafka.Brokers) > 0 {
		events = event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing order events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		events = event.NewLogPublisher(logger)
	}
	defer events.Close()

	// Initialize services
	m := metrics.New("api")
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(m), service.WithEvents(events)}
	svc := handler.Services{
		Orders:       service.NewOrderService(store, locker, idem, opts...),
		Carts:        service.NewCartService(store, locker, opts...),
		Catalog:      service.NewCatalogService(store, opts...),
		Reviews:      service.NewReviewService(store, locker, opts...),
		Reservations: service.NewReservationService(store, locker, opts...),
		Users:        service.NewUserService(store, opts...),
	}
	if cfg.Seed {
		if _, err := svc.Catalog.Seed(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	// Initialize gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = grpc.NewServer()
		handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(svc.Orders, logger))
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "error", err)
			}
		}()
	}

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(svc,
		handler.WithHTTPLogger(logger),
		handler.WithHTTPMetrics(m),
		handler.WithReadiness(func(r *http.Request) error { return store.Ping(r.Context()) }),
	)
	httpServer := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: otelhttp.NewHandler(
			http.TimeoutHandler(httpHandler.Routes(), cfg.HTTP.RequestTimeout, `{"message":"request timed out"}`),
			"cafe-http",
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	logger.Info("HTTP server stopped")

	if grpcServer != nil {
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (port.Storage, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		if _, err := mysql.ParseDSN(cfg.MySQL.DSN); err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if cfg.MySQL.Migrate {
			if err := adapter.Migrate(ctx); err != nil {
				db.Close()
				return nil, err
			}
		}
		logger.Info("connected to mysql")
		return adapter, nil

	case config.DriverMongo:
		client, err := storage.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		adapter := storage.NewMongoAdapter(client, cfg.Mongo.Database)
		if err := adapter.EnsureIndexes(ctx); err != nil {
			adapter.Close(context.Background())
			return nil, err
		}
		logger.Info("connected to mongo", "database", cfg.Mongo.Database)
		return adapter, nil

	default:
		logger.Info("using in-memory storage")
		return storage.NewMemoryAdapter(), nil
	}
}
