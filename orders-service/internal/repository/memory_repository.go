package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository keeps orders in process memory. Returned orders are copies.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
	outbox []*domain.OrderEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[uuid.UUID]*domain.Order),
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	if cp.Items == nil {
		cp.Items = []domain.OrderItem{}
	}
	return &cp
}

func cloneEvent(ev *domain.OrderEvent) *domain.OrderEvent {
	cp := *ev
	cp.Payload = slices.Clone(ev.Payload)
	return &cp
}

func (r *MemoryRepository) CreateOrder(ctx context.Context, order *domain.Order, event *domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return ErrDuplicateOrder
	}
	r.orders[order.ID] = cloneOrder(order)
	if event != nil {
		r.outbox = append(r.outbox, cloneEvent(event))
	}
	return nil
}

func (r *MemoryRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) ListOrdersByCustomer(ctx context.Context, userID, email string) ([]*domain.Order, error) {
	return r.list(ctx, func(o *domain.Order) bool {
		return (email != "" && o.Email == email) || (userID != "" && o.UserID == userID)
	})
}

func (r *MemoryRepository) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, func(*domain.Order) bool { return true })
}

func (r *MemoryRepository) list(ctx context.Context, match func(*domain.Order) bool) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []*domain.Order{}
	for _, o := range r.orders {
		if match(o) {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].PlacedAt.Equal(orders[j].PlacedAt) {
			return orders[i].ID.String() < orders[j].ID.String()
		}
		return orders[i].PlacedAt.After(orders[j].PlacedAt)
	})
	return orders, nil
}

func (r *MemoryRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from []domain.OrderStatus,
	to domain.OrderStatus,
	event *domain.OrderEvent,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if len(from) > 0 && !slices.Contains(from, o.Status) {
		return ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	if event != nil {
		r.outbox = append(r.outbox, cloneEvent(event))
	}
	return nil
}

func (r *MemoryRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*domain.OrderEvent
	for _, ev := range r.outbox {
		if ev.ProcessedAt != nil {
			continue
		}
		if len(events) == limit {
			break
		}
		events = append(events, cloneEvent(ev))
	}
	return events, nil
}

func (r *MemoryRepository) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range r.outbox {
		if ev.ID == id {
			now := time.Now().UTC()
			ev.ProcessedAt = &now
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
