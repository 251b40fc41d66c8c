package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_shop/product-service/internal/domain"
)

type productEntry struct {
	mu      sync.Mutex
	product domain.Product
}

// MemoryStore implements ProductStore with in-memory storage.
// The map lock only guards lookups; stock mutations lock the single product entry.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]*productEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]*productEntry),
	}
}

func (s *MemoryStore) entry(id int64) (*productEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.products[id]
	return e, ok
}

func (s *MemoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrProductNotFound
	}
	e.mu.Lock()
	p := e.product
	e.mu.Unlock()
	return &p, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*productEntry, 0, len(s.products))
	for _, e := range s.products {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	products := make([]*domain.Product, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		p := e.product
		e.mu.Unlock()
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *MemoryStore) Decrement(ctx context.Context, productID int64, qty int32) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	qty = NormalizeQuantity(qty)

	e, ok := s.entry(productID)
	if !ok {
		return 0, ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if qty > e.product.Stock {
		return e.product.Stock, ErrInsufficientStock
	}
	e.product.Stock -= qty
	e.product.Normalize()
	return e.product.Stock, nil
}

func (s *MemoryStore) Increment(ctx context.Context, productID int64, qty int32) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	qty = NormalizeQuantity(qty)

	e, ok := s.entry(productID)
	if !ok {
		return 0, ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.product.Stock += qty
	e.product.Normalize()
	return e.product.Stock, nil
}

func (s *MemoryStore) GetStock(ctx context.Context, productIDs []int64) ([]domain.StockInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]domain.StockInfo, 0, len(productIDs))
	for _, id := range productIDs {
		e, ok := s.entry(id)
		if !ok {
			continue
		}
		e.mu.Lock()
		result = append(result, domain.StockInfo{
			ProductID: id,
			Stock:     e.product.Stock,
			InStock:   e.product.InStock,
		})
		e.mu.Unlock()
	}
	return result, nil
}

func (s *MemoryStore) SaveProduct(ctx context.Context, p *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *p
	cp.Normalize()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.products[cp.ID]; ok {
		e.mu.Lock()
		e.product = cp
		e.mu.Unlock()
		return nil
	}
	s.products[cp.ID] = &productEntry{product: cp}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
