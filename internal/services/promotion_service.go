package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/arister/internal/models"
)

// ErrPromotionExhausted is returned when a redeem races past the usage limit.
var ErrPromotionExhausted = errors.New("promotion usage limit reached")

// PromotionResult is the outcome of evaluating a code against a subtotal.
type PromotionResult struct {
	Valid    bool    `json:"valid"`
	Reason   string  `json:"reason,omitempty"`
	Discount float64 `json:"discount"`
}

// PromotionService validates and redeems discount codes.
type PromotionService struct {
	db *gorm.DB
}

// NewPromotionService constructs a PromotionService.
func NewPromotionService(db *gorm.DB) *PromotionService {
	return &PromotionService{db: db}
}

// EvaluatePromotion applies the validation rules in order and computes the
// discount. A fixed discount never exceeds the subtotal.
func EvaluatePromotion(p *models.Promotion, subtotal float64, now time.Time) PromotionResult {
	if !p.IsActive {
		return PromotionResult{Reason: "Promotion is not active"}
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return PromotionResult{Reason: "Promotion has not started yet"}
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return PromotionResult{Reason: "Promotion has expired"}
	}
	if p.UsageLimit != nil && p.TimesUsed >= *p.UsageLimit {
		return PromotionResult{Reason: "Promotion usage limit reached"}
	}
	if subtotal < p.MinPurchase {
		return PromotionResult{Reason: fmt.Sprintf("Minimum purchase of %.0f required", p.MinPurchase)}
	}

	var discount float64
	switch p.DiscountType {
	case models.DiscountTypePercentage:
		discount = subtotal * p.DiscountValue / 100
	case models.DiscountTypeFixed:
		discount = p.DiscountValue
		if discount > subtotal {
			discount = subtotal
		}
	}

	return PromotionResult{Valid: true, Discount: discount}
}

// FindByCode looks up a promotion by its normalized code.
func (s *PromotionService) FindByCode(code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// Apply evaluates a code against a subtotal without consuming it.
func (s *PromotionService) Apply(code string, subtotal float64) (PromotionResult, error) {
	promo, err := s.FindByCode(code)
	if err == gorm.ErrRecordNotFound {
		return PromotionResult{Reason: "Invalid promotion code"}, nil
	}
	if err != nil {
		return PromotionResult{}, err
	}
	return EvaluatePromotion(promo, subtotal, time.Now()), nil
}

// Redeem increments the usage counter, refusing when the limit is reached.
// The guard lives in the WHERE clause so concurrent redeems cannot overshoot.
func (s *PromotionService) Redeem(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Model(&models.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR times_used < usage_limit)", id).
		UpdateColumn("times_used", gorm.Expr("times_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPromotionExhausted
	}
	return nil
}
