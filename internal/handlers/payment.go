package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/arister/internal/middleware"
	"github.com/example/arister/internal/models"
	"github.com/example/arister/internal/services"
)

// PaymentHandler manages online payment capture.
type PaymentHandler struct {
	db       *gorm.DB
	orders   *services.OrderService
	razorpay *services.RazorpayService
	settings *services.SettingsService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(db *gorm.DB, orders *services.OrderService, razorpay *services.RazorpayService, settings *services.SettingsService) *PaymentHandler {
	return &PaymentHandler{db: db, orders: orders, razorpay: razorpay, settings: settings}
}

func (h *PaymentHandler) resolveOwnedOrder(c *fiber.Ctx, ref string) (*models.Order, error) {
	order, err := h.orders.FindByAnyRef(ref)
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

// CreateRazorpayOrder registers a gateway payment order for an unpaid order.
func (h *PaymentHandler) CreateRazorpayOrder(c *fiber.Ctx) error {
	settings, err := h.settings.Get()
	if err != nil {
		return err
	}
	if !settings.OnlinePayment.Enabled {
		return fiber.NewError(fiber.StatusForbidden, "online payment is currently disabled")
	}

	order, err := h.resolveOwnedOrder(c, c.Params("orderId"))
	if err != nil {
		return err
	}
	if order.Payment.Method != models.PaymentMethodOnline {
		return fiber.NewError(fiber.StatusBadRequest, "order is not an online payment order")
	}
	if order.Payment.Status == "paid" {
		return fiber.NewError(fiber.StatusBadRequest, "order is already paid")
	}

	gatewayOrder, err := h.razorpay.CreateOrder(order.Total, order.OrderNumber)
	if err != nil {
		return err
	}

	order.Payment.PaymentID = gatewayOrder.ID
	if err := h.orders.Save(order); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"razorpay_order_id": gatewayOrder.ID,
			"amount":            gatewayOrder.Amount,
			"currency":          gatewayOrder.Currency,
			"key_id":            h.razorpay.KeyID(),
		},
	})
}

type verifyPaymentRequest struct {
	OrderID           string `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPayment checks the gateway signature and marks the order paid.
// A failed check marks the payment failed without touching the order axis.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing payment verification fields")
	}

	order, err := h.resolveOwnedOrder(c, req.OrderID)
	if err != nil {
		return err
	}
	if order.Payment.PaymentID != req.RazorpayOrderID {
		return fiber.NewError(fiber.StatusBadRequest, "payment does not belong to this order")
	}

	if !h.razorpay.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		order.Payment.Status = "failed"
		if saveErr := h.orders.Save(order); saveErr != nil {
			return saveErr
		}
		return fiber.NewError(fiber.StatusBadRequest, "payment signature verification failed")
	}

	order.Payment.Status = "paid"
	order.Payment.PaymentID = req.RazorpayPaymentID
	order.Status = models.OrderStatusConfirmed
	if err := h.orders.Save(order); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
