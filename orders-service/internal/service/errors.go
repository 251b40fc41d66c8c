package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRequest     = errors.New("bad request")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductNotFound    = errors.New("product not found")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrServiceUnavailable = errors.New("products service unavailable")
	ErrPersistence        = errors.New("could not create order")
	ErrOrderNotFound      = errors.New("order not found")
	ErrTooLateToCancel    = errors.New("too late to cancel")
	ErrIllegalTransition  = errors.New("illegal transition of order status")
	ErrRequestInProgress  = errors.New("order request already in progress")
)

// OutOfStockError is raised while validating the cart, before anything is reserved.
type OutOfStockError struct {
	ProductID int64
	Title     string
}

func (e *OutOfStockError) Error() string {
	return e.Title + " out of stock"
}

func (e *OutOfStockError) Unwrap() error {
	return ErrOutOfStock
}

// ReservationError reports the line that could not be reserved.
// Every line reserved before it has already been released when this is returned.
type ReservationError struct {
	ProductID int64
	Reason    string
	Err       error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("reserve product %d: %s", e.ProductID, e.Reason)
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}
