package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MethodCard = "card"
	MethodUPI  = "upi"
	MethodCOD  = "cod"
)

var (
	ErrInvalidMethod  = errors.New("invalid payment method")
	ErrInvalidAddress = errors.New("invalid address")

	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// NormalizeMethod lower-cases the method and defaults blank to card.
func NormalizeMethod(method string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return MethodCard, nil
	}
	switch m {
	case MethodCard, MethodUPI, MethodCOD:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
}

// Validate checks the shipping address the way the checkout form does.
func (a Address) Validate() error {
	switch {
	case utf8.RuneCountInString(strings.TrimSpace(a.Name)) < 2:
		return fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidAddress)
	case !phonePattern.MatchString(a.Phone):
		return fmt.Errorf("%w: phone must be 10 digits", ErrInvalidAddress)
	case strings.TrimSpace(a.Line1) == "":
		return fmt.Errorf("%w: line1 is required", ErrInvalidAddress)
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("%w: city is required", ErrInvalidAddress)
	case strings.TrimSpace(a.State) == "":
		return fmt.Errorf("%w: state is required", ErrInvalidAddress)
	case !pincodePattern.MatchString(a.Pincode):
		return fmt.Errorf("%w: pincode must be 6 digits", ErrInvalidAddress)
	}
	return nil
}
