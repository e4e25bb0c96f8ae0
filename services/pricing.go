package services

import (
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/farm-to-table/models"
)

// Pricing decides what an order must cost. Customers pay the item subtotal
// plus a flat delivery fee, waived once the subtotal exceeds the threshold.
type Pricing struct {
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	// Enforce rejects orders whose amount does not match Total.
	Enforce bool
}

func NewPricing(deliveryFee, freeDeliveryThreshold float64, enforce bool) Pricing {
	return Pricing{
		DeliveryFee:           decimal.NewFromFloat(deliveryFee),
		FreeDeliveryThreshold: decimal.NewFromFloat(freeDeliveryThreshold),
		Enforce:               enforce,
	}
}

// DefaultPricing matches the storefront: 50 delivery, free above 500.
func DefaultPricing() Pricing {
	return NewPricing(50, 500, true)
}

func (p Pricing) Subtotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

func (p Pricing) DeliveryFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return p.DeliveryFee
}

// Total is subtotal plus delivery fee, rounded to cents.
func (p Pricing) Total(items []models.OrderItem) decimal.Decimal {
	subtotal := p.Subtotal(items)
	return subtotal.Add(p.DeliveryFeeFor(subtotal)).Round(2)
}

// Verify checks a client-supplied amount against Total when enforcement is on.
func (p Pricing) Verify(items []models.OrderItem, amount float64) error {
	if !p.Enforce {
		return nil
	}
	expected := p.Total(items)
	if !decimal.NewFromFloat(amount).Round(2).Equal(expected) {
		return newError(ErrInvalidArgument, "Order amount %.2f does not match cart total %s", amount, expected.StringFixed(2))
	}
	return nil
}
