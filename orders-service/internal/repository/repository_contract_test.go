package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(userID, email string, placedAt time.Time) *domain.Order {
	items := []domain.OrderItem{
		{ProductID: 1, Title: "Wireless Headphones", Price: 2999, Quantity: 2, ImageURL: "https://img/1"},
		{ProductID: 2, Title: "Smart Watch", Price: 4999, Quantity: 1, ImageURL: "https://img/2"},
	}
	return &domain.Order{
		ID:       uuid.New(),
		UserID:   userID,
		UserName: "Asha",
		Email:    email,
		Status:   domain.OrderStatusCreated,
		Method:   domain.MethodCard,
		Totals:   domain.ComputeTotals(items, "DEAL10"),
		Address: domain.Address{
			Name: "Asha", Phone: "9876543210", Line1: "12 MG Road",
			City: "Pune", State: "MH", Pincode: "411001",
		},
		Items:     items,
		PlacedAt:  placedAt.UTC().Truncate(time.Microsecond),
		UpdatedAt: placedAt.UTC().Truncate(time.Microsecond),
	}
}

func createdEvent(t *testing.T, o *domain.Order) *domain.OrderEvent {
	t.Helper()
	ev, err := domain.NewOrderCreatedEvent(o)
	require.NoError(t, err)
	return ev
}

func cancelledEvent(t *testing.T, o *domain.Order) *domain.OrderEvent {
	t.Helper()
	ev, err := domain.NewOrderCancelledEvent(o)
	require.NoError(t, err)
	return ev
}

func statusEvent(t *testing.T, o *domain.Order, to domain.OrderStatus) *domain.OrderEvent {
	t.Helper()
	ev, err := domain.NewOrderStatusChangedEvent(o, to)
	require.NoError(t, err)
	return ev
}

// runRepositoryContract exercises behaviour every OrderRepository must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) OrderRepository) {
	ctx := context.Background()

	t.Run("create and get round trip", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("7", "asha@x.io", time.Now())

		require.NoError(t, repo.CreateOrder(ctx, order, createdEvent(t, order)))

		got, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, order.Totals, got.Totals)
		assert.Equal(t, order.Address, got.Address)
		assert.Equal(t, order.Items, got.Items)
		assert.Equal(t, domain.OrderStatusCreated, got.Status)
		assert.True(t, order.PlacedAt.Equal(got.PlacedAt))
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("7", "asha@x.io", time.Now())
		require.NoError(t, repo.CreateOrder(ctx, order, nil))

		err := repo.CreateOrder(ctx, order, nil)

		assert.ErrorIs(t, err, ErrDuplicateOrder)
	})

	t.Run("get unknown", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetOrderByID(ctx, uuid.New())

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("list by customer matches email or user id newest first", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Now().Add(-time.Hour)
		byEmail := newTestOrder("", "asha@x.io", base)
		byID := newTestOrder("7", "other@x.io", base.Add(time.Minute))
		foreign := newTestOrder("8", "eve@x.io", base.Add(2*time.Minute))
		for _, o := range []*domain.Order{byEmail, byID, foreign} {
			require.NoError(t, repo.CreateOrder(ctx, o, nil))
		}

		orders, err := repo.ListOrdersByCustomer(ctx, "7", "asha@x.io")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, byID.ID, orders[0].ID)
		assert.Equal(t, byEmail.ID, orders[1].ID)
		assert.Len(t, orders[0].Items, 2)

		none, err := repo.ListOrdersByCustomer(ctx, "", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("list all newest first", func(t *testing.T) {
		repo := newRepo(t)
		older := newTestOrder("1", "", time.Now().Add(-time.Hour))
		newer := newTestOrder("2", "", time.Now())
		require.NoError(t, repo.CreateOrder(ctx, older, nil))
		require.NoError(t, repo.CreateOrder(ctx, newer, nil))

		orders, err := repo.ListAllOrders(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, newer.ID, orders[0].ID)
		assert.Equal(t, older.ID, orders[1].ID)
	})

	t.Run("compare and set status", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("7", "asha@x.io", time.Now())
		require.NoError(t, repo.CreateOrder(ctx, order, nil))

		created := []domain.OrderStatus{domain.OrderStatusCreated}
		require.NoError(t, repo.UpdateStatus(ctx, order.ID, created, domain.OrderStatusCancelled,
			cancelledEvent(t, order)))

		err := repo.UpdateStatus(ctx, order.ID, created, domain.OrderStatusCancelled, nil)
		assert.ErrorIs(t, err, ErrStatusConflict)

		got, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCancelled, got.Status)
	})

	t.Run("unconditional status update", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("7", "asha@x.io", time.Now())
		order.Status = domain.OrderStatusDelivered
		require.NoError(t, repo.CreateOrder(ctx, order, nil))

		require.NoError(t, repo.UpdateStatus(ctx, order.ID, nil, domain.OrderStatusCreated, nil))

		got, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCreated, got.Status)
	})

	t.Run("update unknown order", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.UpdateStatus(ctx, uuid.New(), nil, domain.OrderStatusDispatched, nil)

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("outbox events are written with their change", func(t *testing.T) {
		repo := newRepo(t)
		order := newTestOrder("7", "asha@x.io", time.Now())
		created := createdEvent(t, order)
		require.NoError(t, repo.CreateOrder(ctx, order, created))
		changed := statusEvent(t, order, domain.OrderStatusDispatched)
		require.NoError(t, repo.UpdateStatus(ctx, order.ID, nil, domain.OrderStatusDispatched, changed))

		events, err := repo.GetUnprocessedEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, created.ID, events[0].ID)
		assert.Equal(t, domain.EventOrderCreated, events[0].EventType)
		assert.Equal(t, order.ID, events[0].AggregateID)
		assert.JSONEq(t, string(created.Payload), string(events[0].Payload))

		require.NoError(t, repo.MarkEventAsProcessed(ctx, created.ID))

		events, err = repo.GetUnprocessedEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, changed.ID, events[0].ID)

		limited, err := repo.GetUnprocessedEvents(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, limited)
	})
}
