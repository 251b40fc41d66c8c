package domain

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "Created"
	OrderStatusDispatched OrderStatus = "Dispatched"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var knownStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusDispatched,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus accepts any casing of a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range knownStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsCancellable reports whether the order may still be cancelled.
// Once an order has left the warehouse it is too late.
func (s OrderStatus) IsCancellable() bool {
	return s.CanTransitionTo(OrderStatusCancelled)
}

// CanTransitionTo holds the regular lifecycle. The administrative override does not consult it.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return to == OrderStatusDispatched || to == OrderStatusCancelled
	case OrderStatusDispatched:
		return to == OrderStatusDelivered
	default:
		return false
	}
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}
