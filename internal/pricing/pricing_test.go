package pricing

import (
	"testing"
	"time"

	"meetly/internal/domain"
	"meetly/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_GoldPartnerNoPromo(t *testing.T) {
	q, err := Calculate(Input{Price: 300_000, Duration: domain.DurationSession, PartnerTier: domain.PartnerTierGold})
	require.NoError(t, err)
	assert.Equal(t, 3, q.DurationHours)
	assert.True(t, q.FeeRate.Equal(decimal.RequireFromString("0.24")), q.FeeRate.String())
	assert.Equal(t, 2400, q.FeeRateBps)
	assert.Equal(t, int64(300_000), q.TotalAmount)
	assert.Equal(t, int64(72_000), q.PlatformFee)
	assert.Equal(t, int64(228_000), q.PartnerEarning)
}

func TestCalculate_GoldPartnerCappedPercentagePromo(t *testing.T) {
	promo := &models.PromoCode{
		DiscountType:      domain.DiscountPercentage,
		DiscountValue:     decimal.NewFromInt(10),
		MaxDiscountAmount: 20_000,
		IsActive:          true,
	}
	q, err := Calculate(Input{Price: 300_000, Duration: domain.DurationSession, PartnerTier: domain.PartnerTierGold, Promo: promo})
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), q.PromoDiscount)
	assert.Equal(t, int64(280_000), q.TotalAmount)
	assert.Equal(t, int64(67_200), q.PlatformFee)
	assert.Equal(t, int64(212_800), q.PartnerEarning)
}

func TestCalculate_RejectsNonPositivePrice(t *testing.T) {
	_, err := Calculate(Input{Price: 0, Duration: domain.DurationSession})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestEffectiveFeeRate(t *testing.T) {
	cases := map[string]string{
		domain.PartnerTierFree:     "0.3",
		domain.PartnerTierBronze:   "0.285",
		domain.PartnerTierSilver:   "0.27",
		domain.PartnerTierGold:     "0.24",
		domain.PartnerTierPlatinum: "0.21",
		"unknown":                  "0.3",
	}
	for tier, want := range cases {
		got := EffectiveFeeRate(tier)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: got %s", tier, got)
	}
}

func TestPartnerEarningNeverDecreasesWithTier(t *testing.T) {
	tiers := []string{
		domain.PartnerTierFree,
		domain.PartnerTierBronze,
		domain.PartnerTierSilver,
		domain.PartnerTierGold,
		domain.PartnerTierPlatinum,
	}
	for _, price := range []int64{1, 7, 999, 150_000, 300_000, 1_234_567} {
		var prev int64 = -1
		for _, tier := range tiers {
			q, err := Calculate(Input{Price: price, Duration: domain.DurationSession, PartnerTier: tier})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, q.PartnerEarning, prev, "price %d tier %s", price, tier)
			assert.Equal(t, q.TotalAmount, q.PlatformFee+q.PartnerEarning)
			prev = q.PartnerEarning
		}
	}
}

func TestDurationHours(t *testing.T) {
	tests := []struct {
		duration string
		override int
		want     int
		wantErr  bool
	}{
		{domain.DurationSession, 0, 3, false},
		{domain.DurationSession, 10, 3, false},
		{domain.DurationDay, 0, 8, false},
		{domain.DurationDay, 12, 12, false},
		{domain.DurationDay, 24, 24, false},
		{domain.DurationDay, 25, 8, false},
		{domain.DurationDay, -3, 8, false},
		{"week", 0, 0, true},
	}
	for _, tt := range tests {
		got, err := DurationHours(tt.duration, tt.override)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%d", tt.duration, tt.override)
	}
}

func TestDiscountStaysWithinSubtotal(t *testing.T) {
	promos := []*models.PromoCode{
		{DiscountType: domain.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)},
		{DiscountType: domain.DiscountPercentage, DiscountValue: decimal.NewFromInt(150)},
		{DiscountType: domain.DiscountPercentage, DiscountValue: decimal.NewFromInt(50), MaxDiscountAmount: 1_000},
		{DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(5_000)},
		{DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(10_000_000)},
	}
	for _, p := range promos {
		for _, subtotal := range []int64{1, 999, 5_000, 300_000} {
			d := Discount(p, subtotal)
			assert.GreaterOrEqual(t, d, int64(0))
			assert.LessOrEqual(t, d, subtotal)
			if p.DiscountType == domain.DiscountPercentage && p.MaxDiscountAmount > 0 {
				assert.LessOrEqual(t, d, p.MaxDiscountAmount)
			}
		}
	}
}

func TestDiscount_PercentageRoundsHalfAwayFromZero(t *testing.T) {
	p := &models.PromoCode{DiscountType: domain.DiscountPercentage, DiscountValue: decimal.NewFromInt(15)}
	// 15% of 10 = 1.5 -> 2
	assert.Equal(t, int64(2), Discount(p, 10))
}

func TestValidatePromo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	base := func() *models.PromoCode {
		return &models.PromoCode{
			DiscountType:  domain.DiscountFixed,
			DiscountValue: decimal.NewFromInt(1_000),
			IsActive:      true,
		}
	}
	tests := []struct {
		name    string
		mutate  func(p *models.PromoCode)
		usage   PromoUsage
		total   int64
		wantErr string
	}{
		{name: "valid", mutate: func(p *models.PromoCode) {}, total: 10_000},
		{name: "inactive", mutate: func(p *models.PromoCode) { p.IsActive = false }, total: 10_000, wantErr: "not active"},
		{name: "not started", mutate: func(p *models.PromoCode) { p.ValidFrom = &future }, total: 10_000, wantErr: "not valid yet"},
		{name: "expired", mutate: func(p *models.PromoCode) { p.ValidUntil = &past }, total: 10_000, wantErr: "expired"},
		{name: "inside window", mutate: func(p *models.PromoCode) { p.ValidFrom = &past; p.ValidUntil = &future }, total: 10_000},
		{name: "usage exhausted", mutate: func(p *models.PromoCode) { p.UsageLimit = 3; p.UsedCount = 3 }, total: 10_000, wantErr: "usage limit"},
		{name: "usage unlimited", mutate: func(p *models.PromoCode) { p.UsedCount = 1_000 }, total: 10_000},
		{name: "below minimum", mutate: func(p *models.PromoCode) { p.MinOrderAmount = 20_000 }, total: 10_000, wantErr: "minimum"},
		{name: "per user limit", mutate: func(p *models.PromoCode) { p.UserLimit = 1 }, usage: PromoUsage{ByUser: 1}, total: 10_000, wantErr: "already used"},
		{name: "first booking only", mutate: func(p *models.PromoCode) { p.FirstBookingOnly = true }, usage: PromoUsage{PriorBookings: 1}, total: 10_000, wantErr: "first booking"},
		{name: "first booking ok", mutate: func(p *models.PromoCode) { p.FirstBookingOnly = true }, total: 10_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			tt.usage.Now = now
			err := ValidatePromo(p, tt.total, tt.usage)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestFeeAt(t *testing.T) {
	assert.Equal(t, int64(72_000), FeeAt(300_000, 2400))
	assert.Equal(t, int64(0), FeeAt(0, 2400))
	// 0.24 * 5 = 1.2 -> 1; 0.3 * 5 = 1.5 -> 2
	assert.Equal(t, int64(1), FeeAt(5, 2400))
	assert.Equal(t, int64(2), FeeAt(5, 3000))
}
