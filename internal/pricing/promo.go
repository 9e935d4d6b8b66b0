package pricing

import (
	"time"

	"meetly/internal/domain"
	"meetly/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PromoUsage carries the caller-specific facts promo validation depends on.
type PromoUsage struct {
	Now time.Time
	// ByUser is the number of PromoCodeUsage rows for this user and code.
	ByUser int64
	// PriorBookings counts the user's bookings that were not cancelled or rejected.
	PriorBookings int64
}

// ValidatePromo applies the promo rules in order and returns the first failure.
func ValidatePromo(p *models.PromoCode, subtotal int64, u PromoUsage) error {
	if !p.IsActive {
		return domain.Errorf(domain.KindValidation, "promo code is not active")
	}
	if p.ValidFrom != nil && u.Now.Before(*p.ValidFrom) {
		return domain.Errorf(domain.KindValidation, "promo code is not valid yet")
	}
	if p.ValidUntil != nil && u.Now.After(*p.ValidUntil) {
		return domain.Errorf(domain.KindValidation, "promo code has expired")
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return domain.Errorf(domain.KindValidation, "promo code usage limit reached")
	}
	if subtotal < p.MinOrderAmount {
		return domain.Errorf(domain.KindValidation, "order does not meet the promo minimum of %d", p.MinOrderAmount)
	}
	if p.UserLimit > 0 && u.ByUser >= int64(p.UserLimit) {
		return domain.Errorf(domain.KindValidation, "you have already used this promo code")
	}
	if p.FirstBookingOnly && u.PriorBookings > 0 {
		return domain.Errorf(domain.KindValidation, "promo code is only valid on your first booking")
	}
	switch p.DiscountType {
	case domain.DiscountPercentage, domain.DiscountFixed:
	default:
		return domain.Errorf(domain.KindValidation, "promo code has an invalid discount type")
	}
	if p.DiscountValue.IsNegative() {
		return domain.Errorf(domain.KindValidation, "promo code has an invalid discount value")
	}
	return nil
}

// Discount returns the discount for subtotal, always within [0, subtotal].
func Discount(p *models.PromoCode, subtotal int64) int64 {
	var d int64
	switch p.DiscountType {
	case domain.DiscountPercentage:
		d = decimal.NewFromInt(subtotal).Mul(p.DiscountValue).Div(hundred).Round(0).IntPart()
		if p.MaxDiscountAmount > 0 && d > p.MaxDiscountAmount {
			d = p.MaxDiscountAmount
		}
	case domain.DiscountFixed:
		d = p.DiscountValue.Round(0).IntPart()
	}
	if d < 0 {
		d = 0
	}
	if d > subtotal {
		d = subtotal
	}
	return d
}
