package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/arister/internal/middleware"
	"github.com/example/arister/internal/models"
	"github.com/example/arister/internal/services"
)

// ReplacementHandler manages the replacement request lifecycle.
type ReplacementHandler struct {
	db         *gorm.DB
	orders     *services.OrderService
	shiprocket *services.ShiprocketService
	mailer     *services.Mailer
}

// NewReplacementHandler constructs ReplacementHandler.
func NewReplacementHandler(db *gorm.DB, orders *services.OrderService, shiprocket *services.ShiprocketService, mailer *services.Mailer) *ReplacementHandler {
	return &ReplacementHandler{db: db, orders: orders, shiprocket: shiprocket, mailer: mailer}
}

// policyDays returns the widest replacement window among the order's
// products. Zero means nothing in the order is replaceable.
func (h *ReplacementHandler) policyDays(order *models.Order) (int, error) {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID != nil {
			ids = append(ids, *item.ProductID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var products []models.Product
	if err := h.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return 0, err
	}

	days := 0
	for _, p := range products {
		if p.HasReplacementPolicy() && p.ReplacementDays > days {
			days = p.ReplacementDays
		}
	}
	return days, nil
}

func (h *ReplacementHandler) resolveOwnedOrder(c *fiber.Ctx) (*models.Order, error) {
	order, err := h.orders.FindByAnyRef(c.Params("orderId"))
	if err == gorm.ErrRecordNotFound {
		return nil, fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}

	if middleware.GetCurrentUserRole(c) != models.RoleAdmin {
		userID, ok := middleware.GetCurrentUserID(c)
		if !ok || order.UserID != userID {
			return nil, fiber.NewError(fiber.StatusNotFound, "order not found")
		}
	}
	return order, nil
}

// CheckEligibility reports whether a replacement may still be requested.
func (h *ReplacementHandler) CheckEligibility(c *fiber.Ctx) error {
	order, err := h.resolveOwnedOrder(c)
	if err != nil {
		return err
	}

	days, err := h.policyDays(order)
	if err != nil {
		return err
	}

	eligible, reason := services.CanRequestReplacement(order, days, time.Now())
	data := fiber.Map{
		"eligible":    eligible,
		"policy_days": days,
	}
	if eligible {
		data["deadline"] = services.ReplacementDeadline(order, days)
	} else {
		data["reason"] = reason
	}
	return c.JSON(fiber.Map{"success": true, "data": data})
}

type replacementRequest struct {
	Reason string `json:"reason"`
}

// Request records a customer's replacement request within the policy window.
func (h *ReplacementHandler) Request(c *fiber.Ctx) error {
	order, err := h.resolveOwnedOrder(c)
	if err != nil {
		return err
	}

	var req replacementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "reason is required")
	}

	days, err := h.policyDays(order)
	if err != nil {
		return err
	}
	if ok, reason := services.CanRequestReplacement(order, days, time.Now()); !ok {
		return fiber.NewError(fiber.StatusBadRequest, reason)
	}

	now := time.Now()
	order.Replacement.Requested = true
	order.Replacement.RequestedAt = &now
	order.Replacement.Status = models.ReplacementStatusPending
	order.Replacement.Reason = req.Reason
	if err := h.orders.Save(order); err != nil {
		return err
	}

	h.mailer.NotifyAdmin(
		fmt.Sprintf("Replacement requested for order %s", order.OrderNumber),
		fmt.Sprintf("<p>Order <b>%s</b>: %s</p>", order.OrderNumber, req.Reason),
	)

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelRequest withdraws a pending replacement request.
func (h *ReplacementHandler) CancelRequest(c *fiber.Ctx) error {
	order, err := h.resolveOwnedOrder(c)
	if err != nil {
		return err
	}
	if !order.Replacement.Requested || order.Replacement.Status != models.ReplacementStatusPending {
		return fiber.NewError(fiber.StatusBadRequest, "no pending replacement request")
	}

	order.Replacement = models.ReplacementInfo{}
	if err := h.orders.Save(order); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// MyReplacements lists the authenticated user's orders with replacement
// requests.
func (h *ReplacementHandler) MyReplacements(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var orders []models.Order
	err := h.db.Preload("Items").
		Where("user_id = ? AND repl_requested = ?", userID, true).
		Order("repl_requested_at DESC").
		Find(&orders).Error
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// ListAll returns every order with a replacement request, filterable by
// replacement status.
func (h *ReplacementHandler) ListAll(c *fiber.Ctx) error {
	query := h.db.Preload("Items").Preload("User").Where("repl_requested = ?", true)
	if status := c.Query("status"); status != "" {
		query = query.Where("repl_status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("repl_requested_at DESC").Find(&orders).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}

type replacementDecision struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// Approve accepts a pending request and registers a zero-valued shipment
// with the carrier. A carrier failure auto-rejects the request so it does
// not sit approved with nothing shipping.
func (h *ReplacementHandler) Approve(c *fiber.Ctx) error {
	order, err := h.resolveOwnedOrder(c)
	if err != nil {
		return err
	}
	if order.Replacement.Status != models.ReplacementStatusPending {
		return fiber.NewError(fiber.StatusBadRequest, "no pending replacement request")
	}

	var req replacementDecision
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	now := time.Now()
	result, err := h.shiprocket.CreateReplacementOrder(carrierInputFromOrder(order))
	if err != nil {
		log.Printf("[Replacement] carrier order failed for %s, auto-rejecting: %v", order.OrderNumber, err)
		order.Replacement.Status = models.ReplacementStatusRejected
		order.Replacement.RejectedAt = &now
		order.Replacement.RejectionReason = "Could not create replacement shipment"
		if saveErr := h.orders.Save(order); saveErr != nil {
			return saveErr
		}
		return fiber.NewError(fiber.StatusBadGateway, "failed to create replacement shipment")
	}

	order.Replacement.Status = models.ReplacementStatusApproved
	order.Replacement.ApprovedAt = &now
	order.Replacement.AdminNotes = req.Notes
	order.Replacement.ShipmentID = fmt.Sprintf("%d", result.ShipmentID)
	order.Replacement.ShiprocketOrderID = fmt.Sprintf("%d", result.OrderID)

	if awb, err := h.shiprocket.AssignAWB(result.ShipmentID, 0); err != nil {
		log.Printf("[Replacement] AWB assignment failed for %s: %v", order.OrderNumber, err)
	} else {
		order.Replacement.Courier = awb.CourierName
	}

	if err := h.orders.Save(order); err != nil {
		return err
	}

	if email := h.userEmailFor(order); email != "" {
		h.mailer.SendReplacementUpdate(email, order, "approved", "A replacement shipment is on its way.")
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// Reject declines a pending replacement request. The reason is mandatory
// because it is relayed to the customer.
func (h *ReplacementHandler) Reject(c *fiber.Ctx) error {
	var req replacementDecision
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "rejection reason is required")
	}

	order, err := h.resolveOwnedOrder(c)
	if err != nil {
		return err
	}
	if order.Replacement.Status != models.ReplacementStatusPending {
		return fiber.NewError(fiber.StatusBadRequest, "no pending replacement request")
	}

	now := time.Now()
	order.Replacement.Status = models.ReplacementStatusRejected
	order.Replacement.RejectedAt = &now
	order.Replacement.RejectionReason = req.Reason
	if err := h.orders.Save(order); err != nil {
		return err
	}

	if email := h.userEmailFor(order); email != "" {
		h.mailer.SendReplacementUpdate(email, order, "rejected", req.Reason)
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// Complete marks an approved replacement as delivered.
func (h *ReplacementHandler) Complete(c *fiber.Ctx) error {
	order, err := h.resolveOwnedOrder(c)
	if err != nil {
		return err
	}
	if order.Replacement.Status != models.ReplacementStatusApproved {
		return fiber.NewError(fiber.StatusBadRequest, "replacement is not approved")
	}

	now := time.Now()
	order.Replacement.Status = models.ReplacementStatusCompleted
	order.Replacement.CompletedAt = &now
	if err := h.orders.Save(order); err != nil {
		return err
	}

	if email := h.userEmailFor(order); email != "" {
		h.mailer.SendReplacementUpdate(email, order, "completed", "Your replacement has been delivered.")
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

func (h *ReplacementHandler) userEmailFor(order *models.Order) string {
	var user models.User
	if err := h.db.First(&user, "id = ?", order.UserID).Error; err != nil {
		return ""
	}
	return user.Email
}
