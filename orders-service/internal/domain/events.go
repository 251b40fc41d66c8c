package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is written to the outbox in the same transaction as the change it describes.
type OrderEvent struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type orderEventPayload struct {
	OrderID    uuid.UUID   `json:"order_id"`
	UserID     string      `json:"user_id,omitempty"`
	Email      string      `json:"email,omitempty"`
	Status     OrderStatus `json:"status"`
	PrevStatus OrderStatus `json:"prev_status,omitempty"`
	Total      int64       `json:"total"`
	Items      []OrderItem `json:"items,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewOrderCreatedEvent(o *Order) (*OrderEvent, error) {
	return newEvent(EventOrderCreated, o, "", o.Status)
}

func NewOrderCancelledEvent(o *Order) (*OrderEvent, error) {
	return newEvent(EventOrderCancelled, o, o.Status, OrderStatusCancelled)
}

func NewOrderStatusChangedEvent(o *Order, to OrderStatus) (*OrderEvent, error) {
	return newEvent(EventOrderStatusChanged, o, o.Status, to)
}

func newEvent(eventType string, o *Order, prev, next OrderStatus) (*OrderEvent, error) {
	now := time.Now().UTC()
	payload, err := json.Marshal(orderEventPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Email:      o.Email,
		Status:     next,
		PrevStatus: prev,
		Total:      o.Totals.Total,
		Items:      o.Items,
		OccurredAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &OrderEvent{
		ID:          uuid.New(),
		AggregateID: o.ID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   now,
	}, nil
}
