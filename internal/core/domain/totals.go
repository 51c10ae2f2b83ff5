package domain

import "github.com/shopspring/decimal"

const (
	// FreeDeliveryThreshold is exclusive: a subtotal must exceed it.
	FreeDeliveryThreshold int64 = 1000
	DeliveryFee           int64 = 50
)

var taxRate = decimal.RequireFromString("0.05")

// Line is the priced view of one cart line used for totals.
type Line struct {
	UnitPrice int64
	Quantity  int
	Available bool
}

// Totals are derived from cart lines and never stored on the cart.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"deliveryFee"`
	Total       int64 `json:"total"`
	ItemCount   int   `json:"itemCount"`
}

// Tax is 5% of subtotal rounded half away from zero to a whole unit.
func Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
}

// DeliveryFeeFor is free strictly above FreeDeliveryThreshold.
func DeliveryFeeFor(subtotal int64) int64 {
	if subtotal > FreeDeliveryThreshold {
		return 0
	}
	return DeliveryFee
}

// ComputeTotals sums available lines only; ItemCount covers every line.
func ComputeTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.ItemCount += l.Quantity
		if !l.Available {
			continue
		}
		t.Subtotal += l.UnitPrice * int64(l.Quantity)
	}
	t.Tax = Tax(t.Subtotal)
	t.DeliveryFee = DeliveryFeeFor(t.Subtotal)
	t.Total = t.Subtotal + t.Tax + t.DeliveryFee
	return t
}

// EmptyTotals is what an absent or cleared cart reports.
func EmptyTotals() Totals {
	return Totals{}
}

// LoyaltyPoints grants one point per 100 units spent, rounded down.
func LoyaltyPoints(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return total / 100
}
