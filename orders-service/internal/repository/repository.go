package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrStatusConflict means the order was no longer in one of the expected statuses.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type OrderRepository interface {
	// CreateOrder stores the order, its items and event in one transaction.
	CreateOrder(ctx context.Context, order *domain.Order, event *domain.OrderEvent) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// ListOrdersByCustomer matches on email or user id, newest first. Blank values never match.
	ListOrdersByCustomer(ctx context.Context, userID, email string) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateStatus sets the status only while the current one is in from.
	// An empty from updates unconditionally.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus, event *domain.OrderEvent) error

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error)
	MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error

	Close() error
}
