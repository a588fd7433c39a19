package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/example/arister/internal/models"
	"github.com/example/arister/internal/utils"
)

// ProductHandler manages the catalog.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// List returns catalog products with optional filters.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	query := h.db.Model(&models.Product{}).Where("status = ?", "Active")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if gender := c.Query("gender"); gender != "" {
		query = query.Where("gender = ?", gender)
	}
	if c.Query("featured") == "true" {
		query = query.Where("is_featured = ?", true)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	err := query.Preload("Images").Preload("Variants").
		Order("created_at DESC").Offset(pagination.Offset).Limit(pagination.Limit).
		Find(&products).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"meta":    fiber.Map{"page": pagination.Page, "limit": pagination.Limit, "total": total},
	})
}

// Get returns one product with variants grouped by color.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	product, err := h.load(c)
	if err != nil {
		return err
	}

	grouped := make(map[string][]models.ProductVariant)
	for _, v := range product.Variants {
		grouped[v.Color] = append(grouped[v.Color], v)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"product":           product,
			"variants_by_color": grouped,
		},
	})
}

type productPayload struct {
	Name               string                  `json:"name"`
	Price              float64                 `json:"price"`
	SalePrice          float64                 `json:"sale_price"`
	DiscountPercentage float64                 `json:"discount_percentage"`
	Category           string                  `json:"category"`
	Description        string                  `json:"description"`
	Gender             string                  `json:"gender"`
	Sizes              []string                `json:"sizes"`
	Colors             []string                `json:"colors"`
	Badges             []string                `json:"badges"`
	IsFeatured         bool                    `json:"is_featured"`
	Barcode            string                  `json:"barcode"`
	Status             string                  `json:"status"`
	ReplacementDays    int                     `json:"replacement_days"`
	ReplacementPolicy  string                  `json:"replacement_policy"`
	Images             []models.ProductImage   `json:"images"`
	Variants           []models.ProductVariant `json:"variants"`
}

// Create adds a product with its images and variants.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req productPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" || req.Price <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "name and a positive price are required")
	}

	product := models.Product{
		Name:               req.Name,
		Price:              req.Price,
		SalePrice:          req.SalePrice,
		DiscountPercentage: req.DiscountPercentage,
		Category:           req.Category,
		Description:        req.Description,
		Gender:             req.Gender,
		Sizes:              pq.StringArray(req.Sizes),
		Colors:             pq.StringArray(req.Colors),
		Badges:             pq.StringArray(req.Badges),
		IsFeatured:         req.IsFeatured,
		Barcode:            req.Barcode,
		ReplacementDays:    req.ReplacementDays,
		ReplacementPolicy:  req.ReplacementPolicy,
		Images:             req.Images,
		Variants:           req.Variants,
	}
	if req.Status != "" {
		product.Status = req.Status
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// Update modifies a product's scalar fields.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	product, err := h.load(c)
	if err != nil {
		return err
	}

	var req productPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	product.Name = req.Name
	product.Price = req.Price
	product.SalePrice = req.SalePrice
	product.DiscountPercentage = req.DiscountPercentage
	product.Category = req.Category
	product.Description = req.Description
	product.Gender = req.Gender
	product.Sizes = pq.StringArray(req.Sizes)
	product.Colors = pq.StringArray(req.Colors)
	product.Badges = pq.StringArray(req.Badges)
	product.IsFeatured = req.IsFeatured
	product.ReplacementDays = req.ReplacementDays
	product.ReplacementPolicy = req.ReplacementPolicy
	if req.Status != "" {
		product.Status = req.Status
	}

	if err := h.db.Save(product).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// Delete retires a product from the catalog.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	product, err := h.load(c)
	if err != nil {
		return err
	}
	if err := h.db.Model(product).Update("status", "Inactive").Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Stock update targeting modes.
const (
	stockUpdateVariantIndex = "variant_index"
	stockUpdateColorSize    = "color_size"
	stockUpdateColorAll     = "color_all"
)

type stockUpdateRequest struct {
	UpdateKind string `json:"update_kind"`
	Index      int    `json:"index"`
	Color      string `json:"color"`
	Size       string `json:"size"`
	Stock      int    `json:"stock"`
}

// UpdateStock adjusts variant stock. The update kind selects the target:
// a single variant by position, one (color, size) pair, or every size of a
// color at once.
func (h *ProductHandler) UpdateStock(c *fiber.Ctx) error {
	product, err := h.load(c)
	if err != nil {
		return err
	}

	var req stockUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Stock < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "stock cannot be negative")
	}

	switch req.UpdateKind {
	case stockUpdateVariantIndex:
		if req.Index < 0 || req.Index >= len(product.Variants) {
			return fiber.NewError(fiber.StatusBadRequest, "variant index out of range")
		}
		variant := product.Variants[req.Index]
		if err := h.db.Model(&models.ProductVariant{}).
			Where("id = ?", variant.ID).
			Update("stock", req.Stock).Error; err != nil {
			return err
		}

	case stockUpdateColorSize:
		res := h.db.Model(&models.ProductVariant{}).
			Where("product_id = ? AND color = ? AND size = ?", product.ID, req.Color, req.Size).
			Update("stock", req.Stock)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "variant not found")
		}

	case stockUpdateColorAll:
		res := h.db.Model(&models.ProductVariant{}).
			Where("product_id = ? AND color = ?", product.ID, req.Color).
			Update("stock", req.Stock)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no variants for color")
		}

	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown update_kind")
	}

	var variants []models.ProductVariant
	if err := h.db.Where("product_id = ?", product.ID).Find(&variants).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": variants})
}

func (h *ProductHandler) load(c *fiber.Ctx) (*models.Product, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	err = h.db.Preload("Images").Preload("Variants").First(&product, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fiber.NewError(fiber.StatusNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
