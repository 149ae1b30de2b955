package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/gildedlane/marketplace-backend/pkg/config"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
)

// Policy carries the marketplace-wide pricing constants. Rates are basis
// points so a policy loaded from env never drifts through float parsing.
type Policy struct {
	TaxRateBps        int64
	FreeShippingCents int64
	DeliveryFeeCents  int64
	Currency          string
}

// PolicyFromConfig builds the policy applied to every cart and checkout.
func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		TaxRateBps:        cfg.TaxRateBps,
		FreeShippingCents: cfg.FreeShippingCents,
		DeliveryFeeCents:  cfg.DeliveryFeeCents,
		Currency:          "USD",
	}
}

// Line is the pricing view of one cart line.
type Line struct {
	UnitPriceCents int64
	Quantity       int
}

// Coupon is the pricing view of a validated discount code.
type Coupon struct {
	Type        enums.CouponType
	AmountCents int64
	PercentBps  int64
}

// Breakdown is the computed pricing result. For carts it is recomputed on
// every mutation; order creation freezes one copy as the snapshot.
type Breakdown struct {
	SubtotalCents    int64  `json:"subtotal_cents"`
	DiscountCents    int64  `json:"discount_cents"`
	TaxCents         int64  `json:"tax_cents"`
	DeliveryFeeCents int64  `json:"delivery_fee_cents"`
	TotalCents       int64  `json:"total_cents"`
	Currency         string `json:"currency"`
}

// LineTotalCents returns the exact line total. Unit prices are integer cents
// so no rounding is involved at the line level.
func LineTotalCents(line Line) int64 {
	return line.UnitPriceCents * int64(line.Quantity)
}

// Compute turns lines plus an optional coupon into a breakdown. Pure, no I/O.
// Fractional steps (percent discount, tax) round half-up to the cent.
func Compute(policy Policy, lines []Line, coupon *Coupon) (Breakdown, error) {
	var subtotal int64
	for _, line := range lines {
		if line.Quantity < 0 {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "line quantity cannot be negative")
		}
		if line.UnitPriceCents < 0 {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "line unit price cannot be negative")
		}
		subtotal += LineTotalCents(line)
	}

	discount, err := discountCents(subtotal, coupon)
	if err != nil {
		return Breakdown{}, err
	}

	tax := roundBps(subtotal-discount, policy.TaxRateBps)

	var deliveryFee int64
	if subtotal < policy.FreeShippingCents {
		deliveryFee = policy.DeliveryFeeCents
	}

	total := subtotal - discount + tax + deliveryFee
	if total < 0 {
		total = 0
	}

	currency := policy.Currency
	if currency == "" {
		currency = "USD"
	}

	return Breakdown{
		SubtotalCents:    subtotal,
		DiscountCents:    discount,
		TaxCents:         tax,
		DeliveryFeeCents: deliveryFee,
		TotalCents:       total,
		Currency:         currency,
	}, nil
}

func discountCents(subtotal int64, coupon *Coupon) (int64, error) {
	if coupon == nil {
		return 0, nil
	}
	switch coupon.Type {
	case enums.CouponTypeFixed:
		discount := coupon.AmountCents
		if discount < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon amount cannot be negative")
		}
		if discount > subtotal {
			discount = subtotal
		}
		return discount, nil
	case enums.CouponTypePercentage:
		if coupon.PercentBps < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon percent cannot be negative")
		}
		return roundBps(subtotal, coupon.PercentBps), nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown coupon type")
	}
}

// roundBps computes amount * bps/10000 rounded half-up to the nearest cent.
func roundBps(amountCents, bps int64) int64 {
	if amountCents <= 0 || bps <= 0 {
		return 0
	}
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}
