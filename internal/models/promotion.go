package models

import "time"

// Discount types.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Promotion struct {
	BaseModel
	Code          string     `gorm:"uniqueIndex" json:"code"`
	Description   string     `json:"description"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	MinPurchase   float64    `json:"min_purchase"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	UsageLimit    *int       `json:"usage_limit"`
	TimesUsed     int        `json:"times_used"`
}
