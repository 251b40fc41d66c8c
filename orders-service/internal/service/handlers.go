package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_shop/pkg/circuitbreaker"
	productpb "github.com/fjod/go_shop/product-service/pkg/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CatalogReader looks up a product's current price and availability.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (*productpb.Product, error)
}

// StockClient mutates stock one product at a time.
type StockClient interface {
	Decrement(ctx context.Context, productID int64, qty int32) (int32, error)
	Increment(ctx context.Context, productID int64, qty int32) (int32, error)
}

type ProductHandler struct {
	productClient productpb.ProductServiceClient
	timeout       time.Duration
	breaker       *circuitbreaker.Breaker
}

func NewProductHandler(productClient productpb.ProductServiceClient, timeout time.Duration, breaker *circuitbreaker.Breaker) *ProductHandler {
	return &ProductHandler{
		productClient: productClient,
		timeout:       timeout,
		breaker:       breaker,
	}
}

func (h *ProductHandler) GetProduct(ctx context.Context, id int64) (*productpb.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := circuitbreaker.Call(h.breaker, func() (*productpb.GetProductResponse, error) {
		return h.productClient.GetProduct(ctx, &productpb.GetProductRequest{Id: id})
	})
	if err != nil {
		return nil, translateError(err)
	}
	if resp.Product == nil {
		return nil, ErrProductNotFound
	}
	return resp.Product, nil
}

type InventoryHandler struct {
	inventoryClient productpb.InventoryServiceClient
	timeout         time.Duration
	breaker         *circuitbreaker.Breaker
}

func NewInventoryHandler(inventoryClient productpb.InventoryServiceClient, timeout time.Duration, breaker *circuitbreaker.Breaker) *InventoryHandler {
	return &InventoryHandler{
		inventoryClient: inventoryClient,
		timeout:         timeout,
		breaker:         breaker,
	}
}

func (h *InventoryHandler) Decrement(ctx context.Context, productID int64, qty int32) (int32, error) {
	return h.change(ctx, productID, qty, h.breaker, h.inventoryClient.Decrement)
}

// Increment bypasses the breaker so compensation and cancel-release still reach
// the inventory while forward calls are being rejected.
func (h *InventoryHandler) Increment(ctx context.Context, productID int64, qty int32) (int32, error) {
	return h.change(ctx, productID, qty, nil, h.inventoryClient.Increment)
}

type stockCall func(ctx context.Context, in *productpb.StockChangeRequest, opts ...grpc.CallOption) (*productpb.StockChangeResponse, error)

func (h *InventoryHandler) change(ctx context.Context, productID int64, qty int32, breaker *circuitbreaker.Breaker, call stockCall) (int32, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := circuitbreaker.Call(breaker, func() (*productpb.StockChangeResponse, error) {
		return call(ctx, &productpb.StockChangeRequest{ProductId: productID, Quantity: qty})
	})
	if err != nil {
		return 0, translateError(err)
	}
	return resp.Stock, nil
}

// translateError turns a product-service failure into the service error taxonomy.
// Anything that is not a business answer means the dependency is unusable.
func translateError(err error) error {
	if circuitbreaker.IsOpen(err) {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrProductNotFound
	case codes.FailedPrecondition:
		return ErrInsufficientStock
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, status.Convert(err).Message())
	default:
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
}
