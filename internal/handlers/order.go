package handlers

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/arister/internal/middleware"
	"github.com/example/arister/internal/models"
	"github.com/example/arister/internal/services"
	"github.com/example/arister/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db         *gorm.DB
	orders     *services.OrderService
	cod        *services.CODService
	shiprocket *services.ShiprocketService
	mailer     *services.Mailer
	settings   *services.SettingsService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, orders *services.OrderService, cod *services.CODService, shiprocket *services.ShiprocketService, mailer *services.Mailer, settings *services.SettingsService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders, cod: cod, shiprocket: shiprocket, mailer: mailer, settings: settings}
}

type checkCodRequest struct {
	OrderValue float64  `json:"order_value"`
	Pincode    string   `json:"pincode"`
	State      string   `json:"state"`
	City       string   `json:"city"`
	ProductIDs []string `json:"product_ids"`
	Categories []string `json:"categories"`
	Courier    string   `json:"courier"`
}

// CheckCod reports COD availability and the surcharge for a prospective order.
func (h *OrderHandler) CheckCod(c *fiber.Ctx) error {
	var req checkCodRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	codReq := services.CodRequest{
		OrderValue:  req.OrderValue,
		Pincode:     req.Pincode,
		State:       req.State,
		City:        req.City,
		ProductIDs:  req.ProductIDs,
		Categories:  req.Categories,
		CourierCode: req.Courier,
		OrderTime:   time.Now(),
	}

	availability, err := h.cod.IsCodAvailable(codReq)
	if err != nil {
		log.Printf("[Order] COD availability check failed: %v", err)
	}

	var charge float64
	if availability.Available {
		charge = h.cod.CalculateCodCharge(codReq)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"available":  availability.Available,
			"reason":     availability.Reason,
			"cod_charge": charge,
		},
	})
}

type createOrderRequest struct {
	Items         []services.CreateOrderItemInput `json:"items"`
	PaymentMethod string                          `json:"payment_method"`
	DiscountCode  string                          `json:"discount_code"`
	Address       models.ShippingAddress          `json:"address"`
}

// CreateOrder places an order for the authenticated user.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order has no items")
	}
	if req.PaymentMethod != models.PaymentMethodCOD && req.PaymentMethod != models.PaymentMethodOnline {
		return fiber.NewError(fiber.StatusBadRequest, "unsupported payment method")
	}

	if req.PaymentMethod == models.PaymentMethodOnline {
		settings, err := h.settings.Get()
		if err != nil {
			return err
		}
		if !settings.OnlinePayment.Enabled {
			return fiber.NewError(fiber.StatusBadRequest, "online payment is currently disabled")
		}
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	order, err := h.orders.CreateOrder(services.CreateOrderInput{
		UserID:        userID,
		Items:         req.Items,
		PaymentMethod: req.PaymentMethod,
		DiscountCode:  req.DiscountCode,
		Address:       req.Address,
		Email:         user.Email,
	})
	if err != nil {
		if services.IsClientOrderError(err) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

// GetOrder returns one order by id or order number. Customers only see
// their own orders.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// GetDiscount returns the discount breakdown for one order.
func (h *OrderHandler) GetDiscount(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"subtotal":      order.Subtotal,
			"discount":      order.Discount,
			"discount_code": order.DiscountCode,
			"cod_charge":    order.CodCharge,
			"total":         order.Total,
		},
	})
}

// TrackOrder proxies carrier tracking for one order.
func (h *OrderHandler) TrackOrder(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	if order.Shipping.ShipmentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order has no shipment yet")
	}

	shipmentID, err := strconv.ParseInt(order.Shipping.ShipmentID, 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "order has an invalid shipment id")
	}

	tracking, err := h.shiprocket.TrackShipment(shipmentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": tracking})
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	err := h.db.Preload("Items").Where("user_id = ?", userID).
		Order("created_at DESC").Offset(pagination.Offset).Limit(pagination.Limit).
		Find(&orders).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"meta":    fiber.Map{"page": pagination.Page, "limit": pagination.Limit, "total": total},
	})
}

// ListAllOrders returns every order, filterable by status.
func (h *OrderHandler) ListAllOrders(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)
	status := c.Query("status")

	countQuery := h.db.Model(&models.Order{})
	listQuery := h.db.Preload("Items").Preload("User")
	if status != "" {
		countQuery = countQuery.Where("status = ?", status)
		listQuery = listQuery.Where("status = ?", status)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	err := listQuery.Order("created_at DESC").Offset(pagination.Offset).Limit(pagination.Limit).
		Find(&orders).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"meta":    fiber.Map{"page": pagination.Page, "limit": pagination.Limit, "total": total},
	})
}

type cancellationRequest struct {
	Reason string `json:"reason"`
}

// RequestCancellation records a customer's cancellation request when the
// order has not yet left the warehouse.
func (h *OrderHandler) RequestCancellation(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}

	var req cancellationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if ok, reason := services.CanRequestCancellation(order); !ok {
		return fiber.NewError(fiber.StatusBadRequest, reason)
	}

	now := time.Now()
	order.Cancellation.Requested = true
	order.Cancellation.RequestedAt = &now
	order.Cancellation.Reason = req.Reason
	if err := h.orders.Save(order); err != nil {
		return err
	}

	h.mailer.NotifyAdmin(
		fmt.Sprintf("Cancellation requested for order %s", order.OrderNumber),
		fmt.Sprintf("<p>Order <b>%s</b>: %s</p>", order.OrderNumber, req.Reason),
	)

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ApproveCancellation cancels the order, restores stock and voids the
// carrier order when one exists.
func (h *OrderHandler) ApproveCancellation(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	if !order.Cancellation.Requested {
		return fiber.NewError(fiber.StatusBadRequest, "no cancellation request pending")
	}
	if order.Status == models.OrderStatusCancelled {
		return fiber.NewError(fiber.StatusBadRequest, "order is already cancelled")
	}

	return h.cancelOrder(c, order, order.Cancellation.Reason)
}

type adminReasonRequest struct {
	Reason string `json:"reason"`
}

// RejectCancellation declines a pending cancellation request.
func (h *OrderHandler) RejectCancellation(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	if !order.Cancellation.Requested {
		return fiber.NewError(fiber.StatusBadRequest, "no cancellation request pending")
	}

	var req adminReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	services.RejectCancellationRequest(order, req.Reason)
	if err := h.orders.Save(order); err != nil {
		return err
	}

	if email := h.userEmail(order); email != "" {
		h.mailer.SendCancellationRejected(email, order, req.Reason)
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelOrder cancels an order directly without a pending customer request.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusCancelled {
		return fiber.NewError(fiber.StatusBadRequest, "order is already cancelled")
	}

	var req adminReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return h.cancelOrder(c, order, req.Reason)
}

func (h *OrderHandler) cancelOrder(c *fiber.Ctx, order *models.Order, reason string) error {
	if order.Shipping.ShiprocketOrderID != "" {
		if carrierID, err := strconv.ParseInt(order.Shipping.ShiprocketOrderID, 10, 64); err == nil {
			if _, err := h.shiprocket.CancelOrder([]int64{carrierID}); err != nil {
				log.Printf("[Order] carrier cancel failed for order %s: %v", order.OrderNumber, err)
			}
		}
	}

	now := time.Now()
	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			res := tx.Model(&models.ProductVariant{}).
				Where("product_id = ? AND color = ? AND size = ?", item.ProductID, item.Color, item.Size).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
		}

		order.Status = models.OrderStatusCancelled
		order.Cancellation.CancelledAt = &now
		if reason != "" {
			order.Cancellation.AdminReason = reason
		}
		return tx.Save(order).Error
	})
	if err != nil {
		return err
	}

	if email := h.userEmail(order); email != "" {
		h.mailer.SendCancellationUpdate(email, order, reason)
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CourierOptions lists serviceable couriers for an order's destination.
func (h *OrderHandler) CourierOptions(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}

	options, err := h.shiprocket.CheckServiceability(
		order.Address.PostalCode, shipmentWeight(order), order.Payment.Method == models.PaymentMethodCOD, order.Total,
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": options})
}

type addToShiprocketRequest struct {
	CourierID int `json:"courier_id"`
}

// AddToShiprocket registers the order with the carrier, assigns an AWB and
// schedules pickup. Carrier failure leaves the order axis untouched and
// marks only the shipping axis failed.
func (h *OrderHandler) AddToShiprocket(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusCancelled {
		return fiber.NewError(fiber.StatusBadRequest, "cannot ship a cancelled order")
	}
	if order.Shipping.ShipmentID != "" {
		return fiber.NewError(fiber.StatusBadRequest, "order is already registered with the carrier")
	}

	var req addToShiprocketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	options, err := h.shiprocket.CheckServiceability(
		order.Address.PostalCode, shipmentWeight(order), order.Payment.Method == models.PaymentMethodCOD, order.Total,
	)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no couriers service the delivery pincode")
	}

	result, err := h.shiprocket.CreateOrder(carrierInputFromOrder(order))
	if err != nil {
		order.Shipping.Status = models.ShippingStatusFailed
		if saveErr := h.orders.Save(order); saveErr != nil {
			log.Printf("[Order] failed to record shipping failure for %s: %v", order.OrderNumber, saveErr)
		}
		return err
	}

	services.RegisterCarrierOrder(order, result)

	if awb, err := h.shiprocket.AssignAWB(result.ShipmentID, req.CourierID); err != nil {
		log.Printf("[Order] AWB assignment failed for order %s: %v", order.OrderNumber, err)
	} else {
		order.Shipping.AWBCode = awb.AwbCode
		order.Shipping.Courier = awb.CourierName
		order.Shipping.CourierID = strconv.Itoa(awb.CourierID)
	}

	if order.Shipping.AWBCode != "" {
		if _, err := h.shiprocket.GeneratePickup(result.ShipmentID); err != nil {
			log.Printf("[Order] pickup scheduling failed for order %s: %v", order.OrderNumber, err)
		} else {
			now := time.Now()
			order.Shipping.PickupScheduledDate = &now
		}
	}

	if err := h.orders.Save(order); err != nil {
		return err
	}

	if email := h.userEmail(order); email != "" && order.Shipping.AWBCode != "" {
		h.mailer.SendTrackingUpdate(email, order)
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ShippingDocument serves carrier documents: label, manifest, invoice.
func (h *OrderHandler) ShippingDocument(c *fiber.Ctx) error {
	order, err := h.resolveOrder(c)
	if err != nil {
		return err
	}
	if order.Shipping.ShipmentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order has no shipment yet")
	}

	shipmentID, err := strconv.ParseInt(order.Shipping.ShipmentID, 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "order has an invalid shipment id")
	}

	var doc any
	switch c.Params("doc") {
	case "label":
		doc, err = h.shiprocket.GenerateLabel(shipmentID)
	case "manifest":
		if doc, err = h.shiprocket.GenerateManifest(shipmentID); err == nil {
			break
		}
		var carrierID int64
		if carrierID, err = strconv.ParseInt(order.Shipping.ShiprocketOrderID, 10, 64); err == nil {
			doc, err = h.shiprocket.PrintManifest([]int64{carrierID})
		}
	case "invoice":
		var carrierID int64
		if carrierID, err = strconv.ParseInt(order.Shipping.ShiprocketOrderID, 10, 64); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "order has an invalid carrier order id")
		}
		doc, err = h.shiprocket.PrintInvoice([]int64{carrierID})
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown document type")
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": doc})
}

type shiprocketWebhook struct {
	OrderID              string `json:"order_id"`
	AWBCode              any    `json:"awb_code"`
	CourierName          string `json:"courier_name"`
	CourierID            any    `json:"courier_id"`
	Status               string `json:"status"`
	ExpectedDeliveryDate string `json:"expected_delivery_date"`
	PickupScheduledDate  string `json:"pickup_scheduled_date"`
}

// ShiprocketWebhook ingests carrier status pushes. The payload's order_id is
// whatever id the carrier holds for the order, so lookup runs on both keys.
// Repeated deliveries of the same payload are harmless.
func (h *OrderHandler) ShiprocketWebhook(c *fiber.Ctx) error {
	var payload shiprocketWebhook
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook payload")
	}
	awb := anyToString(payload.AWBCode)
	if payload.OrderID == "" || awb == "" {
		return fiber.NewError(fiber.StatusBadRequest, "webhook payload missing order_id or awb_code")
	}

	order, err := h.orders.FindByAnyRef(payload.OrderID)
	if err == gorm.ErrRecordNotFound {
		return fiber.NewError(fiber.StatusNotFound, "order not found: "+payload.OrderID)
	}
	if err != nil {
		return err
	}

	status := payload.Status
	if status == "" {
		status = models.OrderStatusShipped
	}

	services.ApplyTrackingUpdate(order, status, awb, payload.CourierName, parseCarrierTime(payload.ExpectedDeliveryDate), time.Now())
	if courierID := anyToString(payload.CourierID); courierID != "" {
		order.Shipping.CourierID = courierID
	}
	if pickup := parseCarrierTime(payload.PickupScheduledDate); pickup != nil {
		order.Shipping.PickupScheduledDate = pickup
	}

	if err := h.orders.Save(order); err != nil {
		return err
	}

	if order.Status == models.OrderStatusDelivered || order.Status == models.OrderStatusShipped {
		if email := h.userEmail(order); email != "" {
			h.mailer.SendTrackingUpdate(email, order)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "order updated",
		"orderId": order.ID,
	})
}

func parseCarrierTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	return nil
}

// OnlinePaymentStatus reports whether online payment is currently accepted.
func (h *OrderHandler) OnlinePaymentStatus(c *fiber.Ctx) error {
	settings, err := h.settings.Get()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"enabled": settings.OnlinePayment.Enabled},
	})
}

// resolveOrder loads the order from the :orderId param and enforces
// ownership for non-admin callers.
func (h *OrderHandler) resolveOrder(c *fiber.Ctx) (*models.Order, error) {
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

func (h *OrderHandler) userEmail(order *models.Order) string {
	var user models.User
	if err := h.db.First(&user, "id = ?", order.UserID).Error; err != nil {
		return ""
	}
	return user.Email
}

func carrierInputFromOrder(order *models.Order) services.CarrierOrderInput {
	items := make([]services.ShipmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		sku := item.SKU
		if sku == "" {
			sku = item.Name
		}
		items = append(items, services.ShipmentItem{
			Name:         item.Name,
			SKU:          sku,
			Units:        item.Quantity,
			SellingPrice: item.Price,
		})
	}

	method := "Prepaid"
	var codCharge float64
	if order.Payment.Method == models.PaymentMethodCOD {
		method = "COD"
		codCharge = order.CodCharge
	}

	return services.CarrierOrderInput{
		OrderID:       order.OrderNumber,
		OrderDate:     order.CreatedAt,
		CustomerName:  order.Address.Name,
		Address:       order.Address.AddressLine1 + " " + order.Address.AddressLine2,
		City:          order.Address.City,
		Pincode:       order.Address.PostalCode,
		State:         order.Address.State,
		Country:       order.Address.Country,
		Phone:         order.Address.Phone,
		Items:         items,
		PaymentMethod: method,
		CodCharge:     codCharge,
		Weight:        shipmentWeight(order),
	}
}

func shipmentWeight(order *models.Order) float64 {
	var units int
	for _, item := range order.Items {
		units += item.Quantity
	}
	if units == 0 {
		units = 1
	}
	return 0.5 * float64(units)
}

func anyToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatInt(int64(val), 10)
	default:
		return ""
	}
}
