package store

import (
	"context"
	"fmt"

	"github.com/fjod/go_shop/product-service/internal/domain"
)

// DemoProducts is the starter catalog. The SQLite store ships the same rows as a migration.
func DemoProducts() []*domain.Product {
	return []*domain.Product{
		{
			ID:          1,
			Title:       "Wireless Headphones",
			Description: "Over-ear, noise cancelling",
			Category:    "Audio",
			ImageURL:    "https://picsum.photos/seed/pho/640/480",
			Price:       2999,
			Stock:       25,
			InStock:     true,
		},
		{
			ID:          2,
			Title:       "Smart Watch",
			Description: "Waterproof with GPS",
			Category:    "Wearables",
			ImageURL:    "https://picsum.photos/seed/watch/640/480",
			Price:       4999,
			Stock:       12,
			InStock:     true,
		},
	}
}

// Seed saves every product into s.
func Seed(ctx context.Context, s ProductStore, products []*domain.Product) error {
	for _, p := range products {
		if err := s.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ID, err)
		}
	}
	return nil
}
