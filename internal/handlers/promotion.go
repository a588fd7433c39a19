package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/arister/internal/models"
	"github.com/example/arister/internal/services"
)

// PromotionHandler manages discount codes.
type PromotionHandler struct {
	db         *gorm.DB
	promotions *services.PromotionService
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(db *gorm.DB, promotions *services.PromotionService) *PromotionHandler {
	return &PromotionHandler{db: db, promotions: promotions}
}

type promotionPayload struct {
	Code          string     `json:"code"`
	Description   string     `json:"description"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	MinPurchase   float64    `json:"min_purchase"`
	IsActive      *bool      `json:"is_active"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	UsageLimit    *int       `json:"usage_limit"`
}

func (p *promotionPayload) validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}
	if p.DiscountType != models.DiscountTypePercentage && p.DiscountType != models.DiscountTypeFixed {
		return fiber.NewError(fiber.StatusBadRequest, "discount_type must be percentage or fixed")
	}
	if p.DiscountValue <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "discount_value must be positive")
	}
	if p.DiscountType == models.DiscountTypePercentage && p.DiscountValue > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "percentage discount cannot exceed 100")
	}
	return nil
}

// List returns all promotions.
func (h *PromotionHandler) List(c *fiber.Ctx) error {
	var promos []models.Promotion
	if err := h.db.Order("created_at DESC").Find(&promos).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": promos})
}

// Create adds a promotion.
func (h *PromotionHandler) Create(c *fiber.Ctx) error {
	var req promotionPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	promo := models.Promotion{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Description:   req.Description,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinPurchase:   req.MinPurchase,
		IsActive:      true,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		UsageLimit:    req.UsageLimit,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := h.db.Create(&promo).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": promo})
}

// Update modifies a promotion.
func (h *PromotionHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid promotion id")
	}

	var promo models.Promotion
	if err := h.db.First(&promo, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "promotion not found")
		}
		return err
	}

	var req promotionPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	promo.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	promo.Description = req.Description
	promo.DiscountType = req.DiscountType
	promo.DiscountValue = req.DiscountValue
	promo.MinPurchase = req.MinPurchase
	promo.StartDate = req.StartDate
	promo.EndDate = req.EndDate
	promo.UsageLimit = req.UsageLimit
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := h.db.Save(&promo).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": promo})
}

// Delete removes a promotion.
func (h *PromotionHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid promotion id")
	}

	res := h.db.Delete(&models.Promotion{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "promotion not found")
	}
	return c.JSON(fiber.Map{"success": true})
}

type applyPromotionRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

// Apply evaluates a code against a cart subtotal without consuming it.
func (h *PromotionHandler) Apply(c *fiber.Ctx) error {
	var req applyPromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Code) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}

	result, err := h.promotions.Apply(req.Code, req.Subtotal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": result})
}
