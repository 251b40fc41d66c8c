package domain

import "strings"

const (
	CouponDeal10   = "DEAL10"
	CouponFreeShip = "FREESHIP"

	FreeShippingThreshold int64 = 999
	ShippingFee           int64 = 49

	deal10Percent int64 = 10
	taxPercent    int64 = 12
)

// Totals is computed once at creation and stored; it is never recomputed.
type Totals struct {
	Subtotal int64  `json:"subtotal"`
	Discount int64  `json:"discount"`
	Shipping int64  `json:"shipping"`
	Tax      int64  `json:"tax"`
	Total    int64  `json:"total"`
	Coupon   string `json:"coupon,omitempty"`
}

// NormalizeCoupon upper-cases a coupon code; blank means none.
func NormalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ComputeTotals prices a cart. Integer division floors the discount and tax
// since all amounts are non-negative.
func ComputeTotals(items []OrderItem, coupon string) Totals {
	coupon = NormalizeCoupon(coupon)

	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotal()
	}

	var discount int64
	if coupon == CouponDeal10 {
		discount = subtotal * deal10Percent / 100
	}

	after := max(0, subtotal-discount)

	shipping := ShippingFee
	if after >= FreeShippingThreshold || coupon == CouponFreeShip || len(items) == 0 {
		shipping = 0
	}

	tax := after * taxPercent / 100

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    after + shipping + tax,
		Coupon:   coupon,
	}
}
