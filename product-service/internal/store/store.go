package store

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/product-service/internal/domain"
)

// Common errors returned by the store
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductStore owns the catalog and its stock levels.
type ProductStore interface {
	// GetProduct returns ErrProductNotFound when the id is unknown
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// ListProducts returns the whole catalog ordered by id
	ListProducts(ctx context.Context) ([]*domain.Product, error)

	// Decrement atomically removes qty units and returns the remaining stock.
	// Fails with ErrInsufficientStock, leaving stock untouched, when qty exceeds it.
	Decrement(ctx context.Context, productID int64, qty int32) (int32, error)

	// Increment adds qty units back and returns the new stock
	Increment(ctx context.Context, productID int64, qty int32) (int32, error)

	// GetStock returns stock information for the given product IDs, skipping unknown ones
	GetStock(ctx context.Context, productIDs []int64) ([]domain.StockInfo, error)

	// SaveProduct inserts or replaces a product (used for seeding)
	SaveProduct(ctx context.Context, p *domain.Product) error

	Close() error
}

// NormalizeQuantity treats non-positive quantities as a single unit.
func NormalizeQuantity(qty int32) int32 {
	if qty < 1 {
		return 1
	}
	return qty
}
