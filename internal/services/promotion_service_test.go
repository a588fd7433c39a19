package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/arister/internal/models"
)

func activePercentagePromo() models.Promotion {
	return models.Promotion{
		Code:          "SAVE10",
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: 10,
		IsActive:      true,
	}
}

func TestEvaluatePromotionPercentage(t *testing.T) {
	promo := activePercentagePromo()

	result := EvaluatePromotion(&promo, 1000, time.Now())
	assert.True(t, result.Valid)
	assert.Equal(t, 100.0, result.Discount)
}

func TestEvaluatePromotionFixedClampedToSubtotal(t *testing.T) {
	promo := models.Promotion{
		Code:          "FLAT200",
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: 200,
		IsActive:      true,
	}

	result := EvaluatePromotion(&promo, 1000, time.Now())
	assert.True(t, result.Valid)
	assert.Equal(t, 200.0, result.Discount)

	// A fixed discount larger than the cart cannot push the total negative.
	result = EvaluatePromotion(&promo, 150, time.Now())
	assert.True(t, result.Valid)
	assert.Equal(t, 150.0, result.Discount)
}

func TestEvaluatePromotionValidationOrder(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	limit := 5

	tests := []struct {
		name   string
		mutate func(*models.Promotion)
		reason string
	}{
		{
			name:   "inactive",
			mutate: func(p *models.Promotion) { p.IsActive = false },
			reason: "Promotion is not active",
		},
		{
			name:   "not started",
			mutate: func(p *models.Promotion) { p.StartDate = &future },
			reason: "Promotion has not started yet",
		},
		{
			name:   "expired",
			mutate: func(p *models.Promotion) { p.EndDate = &past },
			reason: "Promotion has expired",
		},
		{
			name:   "below minimum purchase",
			mutate: func(p *models.Promotion) { p.MinPurchase = 2000 },
			reason: "Minimum purchase of 2000 required",
		},
		{
			name: "usage limit reached",
			mutate: func(p *models.Promotion) {
				p.UsageLimit = &limit
				p.TimesUsed = 5
			},
			reason: "Promotion usage limit reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := activePercentagePromo()
			tt.mutate(&promo)

			result := EvaluatePromotion(&promo, 1000, now)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Equal(t, 0.0, result.Discount)
		})
	}
}

func TestEvaluatePromotionUsageBelowLimit(t *testing.T) {
	limit := 5
	promo := activePercentagePromo()
	promo.UsageLimit = &limit
	promo.TimesUsed = 4

	result := EvaluatePromotion(&promo, 1000, time.Now())
	assert.True(t, result.Valid)
}
