package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/config"
	ordersgrpc "github.com/fjod/go_shop/orders-service/internal/grpc"
	"github.com/fjod/go_shop/orders-service/internal/idempotency"
	"github.com/fjod/go_shop/orders-service/internal/publisher"
	"github.com/fjod/go_shop/orders-service/internal/repository"
	"github.com/fjod/go_shop/orders-service/internal/service"
	pb "github.com/fjod/go_shop/orders-service/pkg/api"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/rpc"
	"github.com/fjod/go_shop/pkg/tracing"
	productpb "github.com/fjod/go_shop/product-service/pkg/api"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup("orders-service", cfg.LogLevel)
	var wg sync.WaitGroup

	tp, err := tracing.Init("orders-service", cfg.JaegerEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		slog.Error("failed to open order ledger", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	productConn, err := rpc.Dial(cfg.ProductServiceAddr)
	if err != nil {
		slog.Error("failed to create product service client", "error", err)
		os.Exit(1)
	}

	catalog := service.NewProductHandler(
		productpb.NewProductServiceClient(productConn),
		cfg.RequestTimeout,
		circuitbreaker.New(circuitbreaker.DefaultConfig("product-catalog")),
	)
	inventory := service.NewInventoryHandler(
		productpb.NewInventoryServiceClient(productConn),
		cfg.RequestTimeout,
		circuitbreaker.New(circuitbreaker.DefaultConfig("product-inventory")),
	)

	var redisClient *redis.Client
	var idem service.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		idem = idempotency.NewRedisStore(redisClient, cfg.IdempotencyTTL)
		slog.Info("idempotency keys enabled", "redis", cfg.RedisAddr)
	}

	orderService := service.NewOrderService(
		repo,
		catalog,
		service.NewReserver(inventory, cfg.CompensationTimeout),
		idem,
	)

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...))
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
		slog.Info("outbox publisher started", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	grpcServer, healthServer := rpc.NewServer()
	pb.RegisterOrdersServiceServer(grpcServer, ordersgrpc.NewOrdersHandler(orderService))
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("orders service listening", "addr", cfg.GRPCPort, "driver", cfg.StoreDriver)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down orders service")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	pollerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		slog.Info("outbox publisher stopped cleanly")
	case <-shutdownCtx.Done():
		slog.Warn("outbox publisher didn't stop in time")
	}

	if err := productConn.Close(); err != nil {
		slog.Error("failed to close product service connection", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		slog.Error("failed to close order ledger", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown tracing", "error", err)
	}
	slog.Info("orders service stopped")
}

func openRepository(cfg *config.Config) (repository.OrderRepository, error) {
	if cfg.StoreDriver == config.DriverMemory {
		slog.Warn("using in-memory order ledger, orders are lost on restart")
		return repository.NewMemoryRepository(), nil
	}

	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(); err != nil {
		_ = repo.Close()
		return nil, err
	}
	slog.Info("database migrations completed", "host", cfg.DB.Host, "db", cfg.DB.DBName)
	return repo, nil
}
