package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/arister/internal/middleware"
	"github.com/example/arister/internal/models"
)

// ReviewHandler manages product reviews.
type ReviewHandler struct {
	db *gorm.DB
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{db: db}
}

// ListForProduct returns active reviews for a product, newest first.
func (h *ReviewHandler) ListForProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var reviews []models.Review
	err = h.db.Where("product_id = ? AND is_active = ?", productID, true).
		Order("created_at DESC").Find(&reviews).Error
	if err != nil {
		return err
	}

	var average float64
	if len(reviews) > 0 {
		var sum int
		for _, r := range reviews {
			sum += r.Rating
		}
		average = float64(sum) / float64(len(reviews))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"reviews": reviews,
			"count":   len(reviews),
			"average": average,
		},
	})
}

type createReviewRequest struct {
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// Create records a review. The verified flag is set when the reviewer has a
// delivered order containing the product.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fiber.NewError(fiber.StatusBadRequest, "rating must be between 1 and 5")
	}

	var existing models.Review
	if err := h.db.First(&existing, "product_id = ? AND user_id = ?", productID, userID).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "you have already reviewed this product")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var purchases int64
	err = h.db.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND orders.user_id = ? AND orders.status = ?",
			productID, userID, models.OrderStatusDelivered).
		Count(&purchases).Error
	if err != nil {
		return err
	}

	review := models.Review{
		ProductID: productID,
		UserID:    userID,
		UserName:  user.Name,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
		Size:      req.Size,
		Color:     req.Color,
		Verified:  purchases > 0,
		IsActive:  true,
	}
	if err := h.db.Create(&review).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": review})
}

// MarkHelpful increments a review's helpful counter.
func (h *ReviewHandler) MarkHelpful(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid review id")
	}

	res := h.db.Model(&models.Review{}).Where("id = ?", id).
		UpdateColumn("helpful", gorm.Expr("helpful + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "review not found")
	}
	return c.JSON(fiber.Map{"success": true})
}

// Delete hides a review.
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid review id")
	}

	res := h.db.Model(&models.Review{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "review not found")
	}
	return c.JSON(fiber.Map{"success": true})
}
