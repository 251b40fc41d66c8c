package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/fjod/go_shop/orders-service/internal/repository"
	"github.com/google/uuid"
)

const DefaultPersistTimeout = 5 * time.Second

type CreateOrderRequest struct {
	Lines          []domain.CartLine
	Address        domain.Address
	Method         string
	Coupon         string
	IdempotencyKey string
}

type OrderService struct {
	repo           repository.OrderRepository
	catalog        CatalogReader
	reserver       *Reserver
	idempotency    IdempotencyStore
	persistTimeout time.Duration
	now            func() time.Time
}

// NewOrderService wires the order lifecycle. idempotency may be nil.
func NewOrderService(
	repo repository.OrderRepository,
	catalog CatalogReader,
	reserver *Reserver,
	idempotency IdempotencyStore,
) *OrderService {
	return &OrderService{
		repo:           repo,
		catalog:        catalog,
		reserver:       reserver,
		idempotency:    idempotency,
		persistTimeout: DefaultPersistTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates the cart against the catalog, reserves stock and stores the order.
// Nothing is left reserved when an error is returned.
func (s *OrderService) CreateOrder(ctx context.Context, id domain.Identity, req CreateOrderRequest) (*domain.Order, error) {
	if !id.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	method, err := domain.NormalizeMethod(req.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.Address.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for _, line := range req.Lines {
		if line.ProductID <= 0 {
			return nil, fmt.Errorf("%w: invalid product id %d", ErrInvalidRequest, line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %d must be positive", ErrInvalidRequest, line.ProductID)
		}
	}

	key := s.idempotencyKey(id, req.IdempotencyKey)
	if key != "" {
		existing, err := s.claim(ctx, key)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	order, err := s.createOrder(ctx, id, req, method)
	if key != "" {
		s.settle(ctx, key, order, err)
	}
	return order, err
}

func (s *OrderService) createOrder(ctx context.Context, id domain.Identity, req CreateOrderRequest, method string) (*domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		p, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.InStock || line.Quantity > p.Stock {
			return nil, &OutOfStockError{ProductID: p.Id, Title: p.Title}
		}
		items = append(items, domain.OrderItem{
			ProductID: p.Id,
			Title:     p.Title,
			Price:     p.Price,
			Quantity:  line.Quantity,
			ImageURL:  p.ImageUrl,
		})
	}

	now := s.now()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    id.ID,
		UserName:  id.Name,
		Email:     id.Email,
		Status:    domain.OrderStatusCreated,
		Method:    method,
		Totals:    domain.ComputeTotals(items, req.Coupon),
		Address:   req.Address,
		Items:     items,
		PlacedAt:  now,
		UpdatedAt: now,
	}

	reservation, err := s.reserver.Reserve(ctx, order.Lines())
	if err != nil {
		slog.InfoContext(ctx, "order rejected at reservation", "order_id", order.ID, "error", err)
		return nil, err
	}

	event, err := domain.NewOrderCreatedEvent(order)
	if err == nil {
		// the reservation is taken; finish the write even if the caller has gone away
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
		err = s.repo.CreateOrder(persistCtx, order, event)
		cancel()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist order, releasing stock", "order_id", order.ID, "error", err)
		reservation.Undo(ctx)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	slog.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"total", order.Totals.Total,
		"lines", len(order.Items),
	)
	return order, nil
}

func (s *OrderService) idempotencyKey(id domain.Identity, key string) string {
	key = strings.TrimSpace(key)
	if s.idempotency == nil || key == "" {
		return ""
	}
	owner := id.Email
	if owner == "" {
		owner = id.ID
	}
	return owner + ":" + key
}

// claim returns the stored order when key was already used successfully.
func (s *OrderService) claim(ctx context.Context, key string) (*domain.Order, error) {
	orderID, claimed, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency store: %w", ErrServiceUnavailable, err)
	}
	if claimed {
		return nil, nil
	}
	if orderID == "" {
		return nil, ErrRequestInProgress
	}

	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, fmt.Errorf("stored order id %q: %w", orderID, err)
	}
	order, err := s.repo.GetOrderByID(ctx, oid)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	slog.InfoContext(ctx, "replaying idempotent order", "order_id", order.ID)
	return order, nil
}

func (s *OrderService) settle(ctx context.Context, key string, order *domain.Order, err error) {
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if abandonErr := s.idempotency.Abandon(ctx, key); abandonErr != nil {
			slog.WarnContext(ctx, "failed to abandon idempotency key", "error", abandonErr)
		}
		return
	}
	if completeErr := s.idempotency.Complete(ctx, key, order.ID.String()); completeErr != nil {
		slog.WarnContext(ctx, "failed to complete idempotency key", "order_id", order.ID, "error", completeErr)
	}
}

// CancelOrder moves a Created order to Cancelled and gives its stock back.
// Only the owner (by email) or an admin may cancel.
func (s *OrderService) CancelOrder(ctx context.Context, id domain.Identity, orderID uuid.UUID) error {
	if !id.IsAuthenticated() {
		return ErrUnauthenticated
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return s.mapRepoError(err)
	}
	if !id.OwnsByEmail(order) && !id.IsAdmin() {
		return ErrForbidden
	}
	if err := cancelGuard(order.Status); err != nil {
		return err
	}

	event, err := domain.NewOrderCancelledEvent(order)
	if err != nil {
		return err
	}

	// compare-and-set, so two concurrent cancels cannot both release stock
	err = s.repo.UpdateStatus(ctx, orderID, []domain.OrderStatus{domain.OrderStatusCreated}, domain.OrderStatusCancelled, event)
	if errors.Is(err, repository.ErrStatusConflict) {
		current, getErr := s.repo.GetOrderByID(ctx, orderID)
		if getErr != nil {
			return s.mapRepoError(getErr)
		}
		if guardErr := cancelGuard(current.Status); guardErr != nil {
			return guardErr
		}
		return ErrIllegalTransition
	}
	if err != nil {
		return s.mapRepoError(err)
	}

	s.reserver.Release(ctx, order.Lines())
	slog.InfoContext(ctx, "order cancelled", "order_id", orderID, "by", id.Email)
	return nil
}

func cancelGuard(st domain.OrderStatus) error {
	if st.IsCancellable() {
		return nil
	}
	if st == domain.OrderStatusCancelled {
		return fmt.Errorf("%w: order already cancelled", ErrIllegalTransition)
	}
	return ErrTooLateToCancel
}

// UpdateStatus is the administrative override. It sets any known status without
// consulting the lifecycle and does not touch stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id domain.Identity, orderID uuid.UUID, status string) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}

	to, err := domain.ParseOrderStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return s.mapRepoError(err)
	}

	event, err := domain.NewOrderStatusChangedEvent(order, to)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, orderID, nil, to, event); err != nil {
		return s.mapRepoError(err)
	}

	if !order.Status.CanTransitionTo(to) {
		slog.WarnContext(ctx, "admin status override outside lifecycle",
			"order_id", orderID,
			"from", order.Status,
			"to", to,
		)
	}
	return nil
}

// GetOrder returns an order to its owner or an admin. Others see not found.
func (s *OrderService) GetOrder(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if !id.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if !id.Owns(order) && !id.IsAdmin() {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, id domain.Identity) ([]*domain.Order, error) {
	if !id.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	orders, err := s.repo.ListOrdersByCustomer(ctx, id.ID, id.Email)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, id domain.Identity) ([]*domain.Order, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	orders, err := s.repo.ListAllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) mapRepoError(err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return ErrOrderNotFound
	}
	return err
}
