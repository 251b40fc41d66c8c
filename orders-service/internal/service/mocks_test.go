package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/fjod/go_shop/orders-service/internal/repository"
	productpb "github.com/fjod/go_shop/product-service/pkg/api"
	"github.com/google/uuid"
)

// fakeProducts plays both catalog and inventory over one shared stock table.
type fakeProducts struct {
	mu           sync.Mutex
	products     map[int64]*productpb.Product
	getErr       error
	decrementErr map[int64]error
	incrementErr error
	calls        []string
}

func newFakeProducts(products ...*productpb.Product) *fakeProducts {
	f := &fakeProducts{
		products:     make(map[int64]*productpb.Product),
		decrementErr: make(map[int64]error),
	}
	for _, p := range products {
		cp := *p
		cp.InStock = cp.Stock > 0
		f.products[p.Id] = &cp
	}
	return f
}

func (f *fakeProducts) GetProduct(_ context.Context, id int64) (*productpb.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("get:%d", id))
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) Decrement(_ context.Context, id int64, qty int32) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("dec:%d:%d", id, qty))
	if err := f.decrementErr[id]; err != nil {
		return 0, err
	}
	p, ok := f.products[id]
	if !ok {
		return 0, ErrProductNotFound
	}
	if qty > p.Stock {
		return p.Stock, ErrInsufficientStock
	}
	p.Stock -= qty
	p.InStock = p.Stock > 0
	return p.Stock, nil
}

func (f *fakeProducts) Increment(_ context.Context, id int64, qty int32) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("inc:%d:%d", id, qty))
	if f.incrementErr != nil {
		return 0, f.incrementErr
	}
	p, ok := f.products[id]
	if !ok {
		return 0, ErrProductNotFound
	}
	p.Stock += qty
	p.InStock = p.Stock > 0
	return p.Stock, nil
}

func (f *fakeProducts) stock(id int64) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

func (f *fakeProducts) setStock(id int64, stock int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id].Stock = stock
	f.products[id].InStock = stock > 0
}

func (f *fakeProducts) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// failingRepo wraps the in-memory ledger and injects write failures.
type failingRepo struct {
	*repository.MemoryRepository
	createErr error
	updateErr error
}

func (r *failingRepo) CreateOrder(ctx context.Context, o *domain.Order, ev *domain.OrderEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryRepository.CreateOrder(ctx, o, ev)
}

func (r *failingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus, ev *domain.OrderEvent) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryRepository.UpdateStatus(ctx, id, from, to, ev)
}

type fakeIdempotency struct {
	mu       sync.Mutex
	keys     map[string]string
	claimErr error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]string)}
}

func (f *fakeIdempotency) Claim(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return "", false, f.claimErr
	}
	if v, ok := f.keys[key]; ok {
		return v, false, nil
	}
	f.keys[key] = ""
	return "", true, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = orderID
	return nil
}

func (f *fakeIdempotency) Abandon(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}
