package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a snapshot of the catalog entry at the moment the order was placed.
// It is never re-read from the catalog afterwards.
type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int32  `json:"quantity"`
	ImageURL  string `json:"image_url"`
}

func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type Order struct {
	ID        uuid.UUID
	UserID    string
	UserName  string
	Email     string
	Status    OrderStatus
	Method    string
	Totals    Totals
	Address   Address
	Items     []OrderItem
	PlacedAt  time.Time
	UpdatedAt time.Time
}

// Lines returns the stock lines held by the order.
func (o *Order) Lines() []CartLine {
	lines := make([]CartLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = CartLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

// CartLine is a request-scoped (product, quantity) pair.
type CartLine struct {
	ProductID int64
	Quantity  int32
}
