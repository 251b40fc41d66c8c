package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_shop/api-gateway/internal/config"
	h "github.com/fjod/go_shop/api-gateway/internal/http"
	orderspb "github.com/fjod/go_shop/orders-service/pkg/api"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/rpc"
	"github.com/fjod/go_shop/pkg/tracing"
	productpb "github.com/fjod/go_shop/product-service/pkg/api"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup("api-gateway", cfg.LogLevel)

	tp, err := tracing.Init("api-gateway", cfg.JaegerEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	productConn, err := rpc.Dial(cfg.ProductServiceAddr)
	if err != nil {
		slog.Error("failed to connect to product service", "addr", cfg.ProductServiceAddr, "error", err)
		os.Exit(1)
	}
	defer productConn.Close()

	ordersConn, err := rpc.Dial(cfg.OrdersServiceAddr)
	if err != nil {
		slog.Error("failed to connect to orders service", "addr", cfg.OrdersServiceAddr, "error", err)
		os.Exit(1)
	}
	defer ordersConn.Close()

	productHandler := h.NewProductHandler(productpb.NewProductServiceClient(productConn), cfg.RequestTimeout)
	ordersHandler := h.NewOrdersHandler(orderspb.NewOrdersServiceClient(ordersConn), cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			h.HeaderUserID, h.HeaderUserName, h.HeaderUserEmail, h.HeaderUserRole,
			h.HeaderIdempotencyKey,
		},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(h.IdentityMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{product_id}", productHandler.Get)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.Patch("/{order_id}", ordersHandler.UpdateOrder)
		})
		r.Get("/admin/orders", ordersHandler.ListAllOrders)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "api-gateway"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down api gateway")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown tracing", "error", err)
	}
	slog.Info("api gateway stopped")
}
