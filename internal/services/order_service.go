package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/arister/internal/models"
)

// ErrInsufficientStock is returned when a variant cannot cover the requested
// quantity at commit time.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidOrder marks checkout failures caused by the request itself.
var ErrInvalidOrder = errors.New("invalid order")

// IsClientOrderError reports whether a checkout failure should surface as a
// client error rather than a server fault.
func IsClientOrderError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrInvalidOrder)
}

// shippedStatuses are the carrier states past which a cancellation is no
// longer possible.
var shippedStatuses = []string{"shipped", "in_transit", "out_for_delivery", "delivered"}

// OrderService owns the order aggregate: creation, lookup and the lifecycle
// transitions shared by customer and admin flows.
type OrderService struct {
	db         *gorm.DB
	promotions *PromotionService
	cod        *CODService
	mailer     *Mailer
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, promotions *PromotionService, cod *CODService, mailer *Mailer) *OrderService {
	return &OrderService{db: db, promotions: promotions, cod: cod, mailer: mailer}
}

// CreateOrderItemInput is one requested line at checkout.
type CreateOrderItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
}

// CreateOrderInput carries everything checkout submits.
type CreateOrderInput struct {
	UserID        uuid.UUID
	Items         []CreateOrderItemInput
	PaymentMethod string
	DiscountCode  string
	Address       models.ShippingAddress
	Email         string
}

// GenerateOrderNumber builds a human-readable order number. The millisecond
// timestamp plus a random suffix keeps collisions out of reach while the
// unique index backstops the rest.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%d%04d", now.UnixMilli(), rand.Intn(10000))
}

// OrderTotal computes the amount the customer owes. Discounts are clamped
// upstream but the floor here keeps the total from ever going negative.
func OrderTotal(subtotal, discount, codCharge float64) float64 {
	total := subtotal - discount + codCharge
	if total < 0 {
		return 0
	}
	return total
}

// CreateOrder prices and persists an order. Stock is decremented inside the
// transaction with a conditional update so concurrent checkouts cannot
// oversell; a promotion is consumed in the same transaction. Invalid
// discount codes are ignored rather than failing checkout.
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidOrder)
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrInvalidOrder)
		}
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	var products []models.Product
	if err := s.db.Preload("Images").Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var subtotal float64
	orderItems := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s not found", ErrInvalidOrder, item.ProductID)
		}
		price := product.Price
		if product.SalePrice > 0 && product.SalePrice < product.Price {
			price = product.SalePrice
		}
		subtotal += price * float64(item.Quantity)

		pid := item.ProductID
		orderItems = append(orderItems, models.OrderItem{
			ProductID: &pid,
			SKU:       product.Barcode,
			Name:      product.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Color:     item.Color,
			Size:      item.Size,
			Image:     product.ImageForColor(item.Color),
		})
	}

	var discount float64
	var discountCode string
	var promo *models.Promotion
	if input.DiscountCode != "" {
		p, err := s.promotions.FindByCode(input.DiscountCode)
		if err == nil {
			result := EvaluatePromotion(p, subtotal, time.Now())
			if result.Valid {
				discount = result.Discount
				discountCode = p.Code
				promo = p
			}
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	var codCharge float64
	if input.PaymentMethod == models.PaymentMethodCOD {
		categories := make([]string, 0, len(products))
		for _, p := range products {
			categories = append(categories, p.Category)
		}
		codReq := checkoutCodRequest(subtotal, input.Address, uuidStrings(productIDs), categories, time.Now())
		availability, err := s.cod.IsCodAvailable(codReq)
		if err != nil {
			return nil, err
		}
		if !availability.Available {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, availability.Reason)
		}
		codCharge = s.cod.CalculateCodCharge(codReq)
	}

	paymentStatus := "pending"
	order := &models.Order{
		OrderNumber:  GenerateOrderNumber(time.Now()),
		UserID:       input.UserID,
		Status:       models.OrderStatusPending,
		Items:        orderItems,
		Subtotal:     subtotal,
		Discount:     discount,
		CodCharge:    codCharge,
		Total:        OrderTotal(subtotal, discount, codCharge),
		DiscountCode: discountCode,
		Payment: models.PaymentInfo{
			Method: input.PaymentMethod,
			Status: paymentStatus,
		},
		Address: input.Address,
		Shipping: models.ShippingInfo{
			Status: models.ShippingStatusProcessing,
		},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range input.Items {
			res := tx.Model(&models.ProductVariant{}).
				Where("product_id = ? AND color = ? AND size = ? AND stock >= ?",
					item.ProductID, item.Color, item.Size, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w for product %s (%s/%s)", ErrInsufficientStock, item.ProductID, item.Color, item.Size)
			}
		}

		if promo != nil {
			if err := s.promotions.Redeem(tx, promo.ID); err != nil {
				return err
			}
		}

		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	if s.mailer != nil && input.Email != "" {
		s.mailer.SendOrderConfirmation(input.Email, order)
	}
	return order, nil
}

// checkoutCodRequest builds the COD evaluation request for a checkout.
// Availability and the surcharge are both evaluated against the
// undiscounted subtotal, so the quote matches what check-cod returned
// before a promotion code was applied.
func checkoutCodRequest(subtotal float64, address models.ShippingAddress, productIDs, categories []string, now time.Time) CodRequest {
	return CodRequest{
		OrderValue: subtotal,
		Pincode:    address.PostalCode,
		State:      address.State,
		City:       address.City,
		ProductIDs: productIDs,
		Categories: categories,
		OrderTime:  now,
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// FindByAnyRef resolves an order by primary key, order number or the id the
// carrier echoes back in webhooks.
func (s *OrderService) FindByAnyRef(ref string) (*models.Order, error) {
	var order models.Order
	query := s.db.Preload("Items")
	if id, err := uuid.Parse(ref); err == nil {
		if err := query.First(&order, "id = ?", id).Error; err == nil {
			return &order, nil
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	err := s.db.Preload("Items").
		Where("order_number = ? OR shipping_shiprocket_order_id = ?", ref, ref).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Save persists an order and its associations.
func (s *OrderService) Save(order *models.Order) error {
	return s.db.Save(order).Error
}

// CanRequestCancellation applies the cancellation guards. An order already
// handed to a courier, tracked past shipping on either status axis, or with
// a pending request cannot be cancelled.
func CanRequestCancellation(order *models.Order) (bool, string) {
	if order.Status == models.OrderStatusCancelled {
		return false, "Order is already cancelled"
	}
	if order.Cancellation.Requested {
		return false, "Cancellation already requested"
	}
	if isShippedStatus(order.Status) {
		return false, "Order has already been shipped"
	}
	if isShippedStatus(order.Shipping.Status) {
		return false, "Order has already been shipped"
	}
	if order.Shipping.AWBCode != "" {
		return false, "Order has already been assigned to a courier"
	}
	return true, ""
}

func isShippedStatus(status string) bool {
	status = strings.ToLower(status)
	for _, s := range shippedStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// ReplacementDeadline computes the last day a replacement may be requested.
// Delivery date anchors the window; orders without a recorded delivery fall
// back to the order date.
func ReplacementDeadline(order *models.Order, policyDays int) time.Time {
	base := order.CreatedAt
	if order.Shipping.DeliveredAt != nil {
		base = *order.Shipping.DeliveredAt
	}
	return base.AddDate(0, 0, policyDays)
}

// CanRequestReplacement applies the replacement guards for a given policy
// window.
func CanRequestReplacement(order *models.Order, policyDays int, now time.Time) (bool, string) {
	if policyDays <= 0 {
		return false, "Product has no replacement policy"
	}
	if order.Status == models.OrderStatusCancelled {
		return false, "Order is cancelled"
	}
	if order.Status != models.OrderStatusDelivered && order.Status != models.OrderStatusConfirmed {
		return false, "Order has not been delivered yet"
	}
	if order.Replacement.Requested {
		return false, "Replacement already requested"
	}
	if now.After(ReplacementDeadline(order, policyDays)) {
		return false, fmt.Sprintf("Replacement window of %d days has expired", policyDays)
	}
	return true, ""
}

// RegisterCarrierOrder records the ids the carrier handed back and moves
// the order to confirmed with its shipment back in processing, clearing
// any failure left by an earlier attempt.
func RegisterCarrierOrder(order *models.Order, result *CarrierOrderResult) {
	order.Shipping.ShipmentID = strconv.FormatInt(result.ShipmentID, 10)
	order.Shipping.ShiprocketOrderID = strconv.FormatInt(result.OrderID, 10)
	order.Shipping.Status = models.ShippingStatusProcessing
	order.Status = models.OrderStatusConfirmed
}

// RejectCancellationRequest returns the cancellation sub-record to its
// un-requested state, keeping only the admin's reason for declining.
func RejectCancellationRequest(order *models.Order, adminReason string) {
	order.Cancellation = models.CancellationInfo{AdminReason: adminReason}
}

// ApplyTrackingUpdate maps a carrier status onto both status axes. Delivery
// stamps the delivered date that anchors the replacement window.
func ApplyTrackingUpdate(order *models.Order, carrierStatus, awb, courier string, etd *time.Time, now time.Time) {
	status := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(carrierStatus), " ", "_"))

	order.Shipping.Status = status
	if awb != "" {
		order.Shipping.AWBCode = awb
	}
	if courier != "" {
		order.Shipping.Courier = courier
	}
	if etd != nil {
		order.Shipping.ExpectedDeliveryDate = etd
	}

	switch {
	case status == "delivered":
		order.Status = models.OrderStatusDelivered
		if order.Shipping.DeliveredAt == nil {
			t := now
			order.Shipping.DeliveredAt = &t
		}
	case status == "canceled" || status == "cancelled":
		order.Status = models.OrderStatusCancelled
		if order.Cancellation.CancelledAt == nil {
			t := now
			order.Cancellation.CancelledAt = &t
		}
	case isShippedStatus(status):
		order.Status = models.OrderStatusShipped
	}
}
