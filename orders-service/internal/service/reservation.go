package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
)

const DefaultCompensationTimeout = 10 * time.Second

type compensation struct {
	productID int64
	quantity  int32
	undo      func(ctx context.Context) error
}

// saga is the ordered list of undo actions for the forward steps that succeeded.
type saga struct {
	steps []compensation
}

func (s *saga) add(c compensation) {
	s.steps = append(s.steps, c)
}

// compensate runs every undo action. Failures are logged and otherwise ignored,
// so a failed undo leaks that line's stock.
func (s *saga) compensate(ctx context.Context) {
	for _, step := range s.steps {
		if err := step.undo(ctx); err != nil {
			slog.WarnContext(ctx, "compensation failed, stock leaked",
				"product_id", step.productID,
				"quantity", step.quantity,
				"error", err,
			)
		}
	}
	s.steps = nil
}

// Reservation holds the stock taken for one cart until the order is stored.
type Reservation struct {
	saga    saga
	timeout time.Duration
}

// Undo gives back every reserved line. It outlives cancellation of ctx.
func (r *Reservation) Undo(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	r.saga.compensate(ctx)
}

// Reserver takes stock for a cart line by line with no lock across lines.
type Reserver struct {
	stock   StockClient
	timeout time.Duration
}

func NewReserver(stock StockClient, compensationTimeout time.Duration) *Reserver {
	if compensationTimeout <= 0 {
		compensationTimeout = DefaultCompensationTimeout
	}
	return &Reserver{
		stock:   stock,
		timeout: compensationTimeout,
	}
}

// Reserve decrements stock for each line in submission order. When a line fails,
// the lines already taken are released before the *ReservationError is returned.
func (r *Reserver) Reserve(ctx context.Context, lines []domain.CartLine) (*Reservation, error) {
	res := &Reservation{timeout: r.timeout}

	for _, line := range lines {
		if _, err := r.stock.Decrement(ctx, line.ProductID, line.Quantity); err != nil {
			res.Undo(ctx)
			return nil, reservationError(line.ProductID, err)
		}

		res.saga.add(compensation{
			productID: line.ProductID,
			quantity:  line.Quantity,
			undo: func(ctx context.Context) error {
				_, err := r.stock.Increment(ctx, line.ProductID, line.Quantity)
				return err
			},
		})
	}

	return res, nil
}

// Release gives stock back for every line. It never fails; errors are logged.
func (r *Reserver) Release(ctx context.Context, lines []domain.CartLine) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	for _, line := range lines {
		if _, err := r.stock.Increment(ctx, line.ProductID, line.Quantity); err != nil {
			slog.WarnContext(ctx, "stock release failed",
				"product_id", line.ProductID,
				"quantity", line.Quantity,
				"error", err,
			)
		}
	}
}

func reservationError(productID int64, err error) *ReservationError {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return &ReservationError{ProductID: productID, Reason: "Insufficient stock", Err: err}
	case errors.Is(err, ErrProductNotFound):
		// deleted between validation and reservation
		return &ReservationError{ProductID: productID, Reason: "Product not found", Err: ErrInsufficientStock}
	default:
		if !errors.Is(err, ErrServiceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
		return &ReservationError{ProductID: productID, Reason: "Products service unavailable", Err: err}
	}
}
