// Package pricing computes the charge, platform fee and partner earning of a booking.
// Everything here is a pure function of its inputs.
package pricing

import (
	"meetly/internal/domain"
	"meetly/internal/models"

	"github.com/shopspring/decimal"
)

// BaseFeeRate is the platform's cut before any partner tier discount.
var BaseFeeRate = decimal.RequireFromString("0.30")

// feeDiscount is the discount a partner tier gets on the platform's cut.
var feeDiscount = map[string]decimal.Decimal{
	domain.PartnerTierFree:     decimal.Zero,
	domain.PartnerTierBronze:   decimal.RequireFromString("0.05"),
	domain.PartnerTierSilver:   decimal.RequireFromString("0.10"),
	domain.PartnerTierGold:     decimal.RequireFromString("0.20"),
	domain.PartnerTierPlatinum: decimal.RequireFromString("0.30"),
}

var bpsScale = decimal.NewFromInt(10000)

// EffectiveFeeRate returns 0.30 * (1 - tierDiscount). Unknown tiers pay the base rate.
func EffectiveFeeRate(partnerTier string) decimal.Decimal {
	d, ok := feeDiscount[partnerTier]
	if !ok {
		d = decimal.Zero
	}
	return BaseFeeRate.Mul(decimal.NewFromInt(1).Sub(d))
}

// RateToBps converts a fee rate to basis points for storage on the booking.
func RateToBps(rate decimal.Decimal) int {
	return int(rate.Mul(bpsScale).Round(0).IntPart())
}

// FeeAt returns round(amount * bps / 10000), half away from zero.
func FeeAt(amount int64, bps int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(bpsScale).
		Round(0).
		IntPart()
}

// DurationHours resolves the booked hours for a duration category. A session is
// always 3 hours. A day is 8 hours unless override is within 1..24.
func DurationHours(duration string, override int) (int, error) {
	switch duration {
	case domain.DurationSession:
		return domain.SessionHours, nil
	case domain.DurationDay:
		if override >= 1 && override <= domain.MaxDayHours {
			return override, nil
		}
		return domain.DefaultDayHours, nil
	}
	return 0, domain.Errorf(domain.KindValidation, "unknown service duration %q", duration)
}

type Input struct {
	Price            int64
	Duration         string
	DurationOverride int
	PartnerTier      string
	// Promo must already have passed ValidatePromo.
	Promo *models.PromoCode
}

type Quote struct {
	DurationHours  int             `json:"durationHours"`
	OriginalAmount int64           `json:"originalAmount"`
	PromoDiscount  int64           `json:"promoDiscount"`
	TotalAmount    int64           `json:"totalAmount"`
	PlatformFee    int64           `json:"platformFee"`
	PartnerEarning int64           `json:"partnerEarning"`
	FeeRate        decimal.Decimal `json:"feeRate"`
	FeeRateBps     int             `json:"feeRateBps"`
}

// Calculate prices a booking. The payer is charged TotalAmount; the platform fee
// is carved out of it, never added on top.
func Calculate(in Input) (*Quote, error) {
	if in.Price <= 0 {
		return nil, domain.Errorf(domain.KindValidation, "service price must be positive")
	}
	hours, err := DurationHours(in.Duration, in.DurationOverride)
	if err != nil {
		return nil, err
	}
	subtotal := in.Price
	var discount int64
	if in.Promo != nil {
		discount = Discount(in.Promo, subtotal)
	}
	total := subtotal - discount
	rate := EffectiveFeeRate(in.PartnerTier)
	fee := decimal.NewFromInt(total).Mul(rate).Round(0).IntPart()
	return &Quote{
		DurationHours:  hours,
		OriginalAmount: subtotal,
		PromoDiscount:  discount,
		TotalAmount:    total,
		PlatformFee:    fee,
		PartnerEarning: total - fee,
		FeeRate:        rate,
		FeeRateBps:     RateToBps(rate),
	}, nil
}
