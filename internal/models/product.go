package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	Name               string           `json:"name"`
	Price              float64          `json:"price"`
	SalePrice          float64          `json:"sale_price"`
	DiscountPercentage float64          `json:"discount_percentage"`
	Category           string           `json:"category"`
	Description        string           `json:"description"`
	Gender             string           `json:"gender"`
	Sizes              pq.StringArray   `gorm:"type:text[]" json:"sizes"`
	Colors             pq.StringArray   `gorm:"type:text[]" json:"colors"`
	Badges             pq.StringArray   `gorm:"type:text[]" json:"badges"`
	IsFeatured         bool             `json:"is_featured"`
	Barcode            string           `gorm:"uniqueIndex;default:null" json:"barcode"`
	Status             string           `gorm:"default:Active" json:"status"`
	ReplacementDays    int              `json:"replacement_days"`
	ReplacementPolicy  string           `json:"replacement_policy"`
	Images             []ProductImage   `json:"images,omitempty"`
	Variants           []ProductVariant `json:"variants,omitempty"`
}

// ProductImage holds both the primary gallery (empty Color) and
// color-specific image sets.
type ProductImage struct {
	BaseModel
	ProductID    uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Color        string    `json:"color"`
	URL          string    `json:"url"`
	PublicID     string    `json:"public_id"`
	DisplayOrder int       `json:"display_order"`
}

// ProductVariant is a (color, optional size) stock keeping unit.
type ProductVariant struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	Stock     int       `json:"stock"`
}

// HasReplacementPolicy reports whether the product accepts replacements.
func (p *Product) HasReplacementPolicy() bool {
	return p.ReplacementDays > 0
}

// ImageForColor returns the first color-specific image URL, falling back
// to the primary gallery. Empty string when the product has no images.
func (p *Product) ImageForColor(color string) string {
	if color != "" {
		for _, img := range p.Images {
			if img.Color == color {
				return img.URL
			}
		}
	}
	for _, img := range p.Images {
		if img.Color == "" {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}
