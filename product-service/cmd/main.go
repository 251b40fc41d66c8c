package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/rpc"
	"github.com/fjod/go_shop/pkg/tracing"
	"github.com/fjod/go_shop/product-service/internal/config"
	productgrpc "github.com/fjod/go_shop/product-service/internal/grpc"
	"github.com/fjod/go_shop/product-service/internal/store"
	pb "github.com/fjod/go_shop/product-service/pkg/api"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup("product-service", cfg.LogLevel)

	tp, err := tracing.Init("product-service", cfg.JaegerEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	productStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	grpcServer, healthServer := rpc.NewServer()
	pb.RegisterProductServiceServer(grpcServer, productgrpc.NewProductServiceServer(productStore))
	pb.RegisterInventoryServiceServer(grpcServer, productgrpc.NewInventoryServiceServer(productStore))
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("product service listening", "addr", cfg.GRPCPort, "driver", cfg.StoreDriver)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down product service")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	if err := productStore.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown tracing", "error", err)
	}
	slog.Info("product service stopped")
}

func openStore(cfg *config.Config) (store.ProductStore, error) {
	if cfg.StoreDriver == config.DriverMemory {
		s := store.NewMemoryStore()
		if err := store.Seed(context.Background(), s, store.DemoProducts()); err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := s.RunMigrations(); err != nil {
		_ = s.Close()
		return nil, err
	}
	slog.Info("migrations completed successfully", "db_path", cfg.DBPath)
	return s, nil
}
