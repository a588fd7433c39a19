package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/arister/internal/models"
)

func pendingOrder() *models.Order {
	order := &models.Order{
		OrderNumber: "ORD17000000000001234",
		Status:      models.OrderStatusPending,
	}
	order.Shipping.Status = models.ShippingStatusProcessing
	order.CreatedAt = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return order
}

func TestCanRequestCancellation(t *testing.T) {
	ok, reason := CanRequestCancellation(pendingOrder())
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestCanRequestCancellationGuards(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.Order)
		reason string
	}{
		{
			name:   "already cancelled",
			mutate: func(o *models.Order) { o.Status = models.OrderStatusCancelled },
			reason: "Order is already cancelled",
		},
		{
			name: "already requested",
			mutate: func(o *models.Order) {
				o.Cancellation.Requested = true
				o.Cancellation.RequestedAt = &now
			},
			reason: "Cancellation already requested",
		},
		{
			name:   "awb assigned",
			mutate: func(o *models.Order) { o.Shipping.AWBCode = "AWB123" },
			reason: "Order has already been assigned to a courier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder()
			tt.mutate(order)

			ok, reason := CanRequestCancellation(order)
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCanRequestCancellationShippedStatuses(t *testing.T) {
	for _, status := range []string{"shipped", "in_transit", "out_for_delivery", "delivered"} {
		t.Run("order status "+status, func(t *testing.T) {
			order := pendingOrder()
			order.Status = status

			ok, reason := CanRequestCancellation(order)
			assert.False(t, ok)
			assert.Equal(t, "Order has already been shipped", reason)
		})

		t.Run("shipping status "+status, func(t *testing.T) {
			order := pendingOrder()
			order.Shipping.Status = status

			ok, reason := CanRequestCancellation(order)
			assert.False(t, ok)
			assert.Equal(t, "Order has already been shipped", reason)
		})
	}
}

func TestReplacementDeadline(t *testing.T) {
	order := pendingOrder()
	delivered := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	order.Shipping.DeliveredAt = &delivered

	assert.Equal(t, delivered.AddDate(0, 0, 7), ReplacementDeadline(order, 7))

	// Without a recorded delivery the order date anchors the window.
	order.Shipping.DeliveredAt = nil
	assert.Equal(t, order.CreatedAt.AddDate(0, 0, 7), ReplacementDeadline(order, 7))
}

func TestCanRequestReplacement(t *testing.T) {
	delivered := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

	deliveredOrder := func() *models.Order {
		order := pendingOrder()
		order.Status = models.OrderStatusDelivered
		order.Shipping.Status = "delivered"
		order.Shipping.DeliveredAt = &delivered
		return order
	}

	t.Run("inside the window", func(t *testing.T) {
		ok, _ := CanRequestReplacement(deliveredOrder(), 7, delivered.AddDate(0, 0, 7))
		assert.True(t, ok)
	})

	t.Run("one day past the window", func(t *testing.T) {
		ok, reason := CanRequestReplacement(deliveredOrder(), 7, delivered.AddDate(0, 0, 8))
		assert.False(t, ok)
		assert.Equal(t, "Replacement window of 7 days has expired", reason)
	})

	t.Run("no policy", func(t *testing.T) {
		ok, reason := CanRequestReplacement(deliveredOrder(), 0, delivered)
		assert.False(t, ok)
		assert.Equal(t, "Product has no replacement policy", reason)
	})

	t.Run("not delivered yet", func(t *testing.T) {
		order := pendingOrder()
		ok, reason := CanRequestReplacement(order, 7, delivered)
		assert.False(t, ok)
		assert.Equal(t, "Order has not been delivered yet", reason)
	})

	t.Run("cancelled order", func(t *testing.T) {
		order := deliveredOrder()
		order.Status = models.OrderStatusCancelled
		ok, reason := CanRequestReplacement(order, 7, delivered)
		assert.False(t, ok)
		assert.Equal(t, "Order is cancelled", reason)
	})

	t.Run("already requested", func(t *testing.T) {
		order := deliveredOrder()
		order.Replacement.Requested = true
		ok, reason := CanRequestReplacement(order, 7, delivered)
		assert.False(t, ok)
		assert.Equal(t, "Replacement already requested", reason)
	})
}

func TestApplyTrackingUpdate(t *testing.T) {
	now := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)

	t.Run("delivered stamps the delivery date", func(t *testing.T) {
		order := pendingOrder()
		ApplyTrackingUpdate(order, "Delivered", "AWB1", "Delhivery", nil, now)

		assert.Equal(t, models.OrderStatusDelivered, order.Status)
		assert.Equal(t, "delivered", order.Shipping.Status)
		assert.Equal(t, "AWB1", order.Shipping.AWBCode)
		assert.Equal(t, "Delhivery", order.Shipping.Courier)
		assert.Equal(t, now, *order.Shipping.DeliveredAt)
	})

	t.Run("repeat delivered keeps the first date", func(t *testing.T) {
		order := pendingOrder()
		ApplyTrackingUpdate(order, "Delivered", "", "", nil, now)
		later := now.Add(48 * time.Hour)
		ApplyTrackingUpdate(order, "Delivered", "", "", nil, later)

		assert.Equal(t, now, *order.Shipping.DeliveredAt)
	})

	t.Run("in transit maps to shipped", func(t *testing.T) {
		order := pendingOrder()
		ApplyTrackingUpdate(order, "In Transit", "", "", nil, now)

		assert.Equal(t, models.OrderStatusShipped, order.Status)
		assert.Equal(t, "in_transit", order.Shipping.Status)
	})

	t.Run("carrier cancellation maps to cancelled", func(t *testing.T) {
		order := pendingOrder()
		ApplyTrackingUpdate(order, "Canceled", "", "", nil, now)

		assert.Equal(t, models.OrderStatusCancelled, order.Status)
		assert.Equal(t, now, *order.Cancellation.CancelledAt)
	})

	t.Run("unknown status touches only the shipping axis", func(t *testing.T) {
		order := pendingOrder()
		ApplyTrackingUpdate(order, "Pickup Exception", "", "", nil, now)

		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, "pickup_exception", order.Shipping.Status)
	})
}

func TestOrderTotal(t *testing.T) {
	// Cart of 1000 with a 10% promo and the default fixed COD charge.
	promo := models.Promotion{
		Code:          "SAVE10",
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: 10,
		IsActive:      true,
	}
	result := EvaluatePromotion(&promo, 1000, time.Now())
	assert.Equal(t, 100.0, result.Discount)

	charge := CalculateCodCharge(enabledCodConfig(), CodRequest{OrderValue: 900})
	assert.Equal(t, 50.0, charge)

	assert.Equal(t, 950.0, OrderTotal(1000, result.Discount, charge))
	assert.Equal(t, 0.0, OrderTotal(100, 150, 0))
}

func TestCheckoutCodRequestUsesUndiscountedSubtotal(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	address := models.ShippingAddress{
		City:       "Mumbai",
		State:      "Maharashtra",
		PostalCode: "400001",
	}

	req := checkoutCodRequest(1000, address, []string{"p1"}, []string{"apparel"}, now)

	// The COD quote must match what check-cod returned for the cart, so a
	// promotion applied later at checkout does not shift the base.
	assert.Equal(t, 1000.0, req.OrderValue)
	assert.Equal(t, "400001", req.Pincode)
	assert.Equal(t, "Maharashtra", req.State)
	assert.Equal(t, "Mumbai", req.City)
	assert.Equal(t, []string{"p1"}, req.ProductIDs)
	assert.Equal(t, []string{"apparel"}, req.Categories)
	assert.Equal(t, now, req.OrderTime)
}

func TestRegisterCarrierOrder(t *testing.T) {
	order := pendingOrder()
	// A failed first attempt leaves the shipping axis failed.
	order.Shipping.Status = models.ShippingStatusFailed

	RegisterCarrierOrder(order, &CarrierOrderResult{OrderID: 77, ShipmentID: 88})

	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.ShippingStatusProcessing, order.Shipping.Status)
	assert.Equal(t, "88", order.Shipping.ShipmentID)
	assert.Equal(t, "77", order.Shipping.ShiprocketOrderID)
}

func TestRejectCancellationRequest(t *testing.T) {
	now := time.Now()
	order := pendingOrder()
	order.Cancellation.Requested = true
	order.Cancellation.RequestedAt = &now
	order.Cancellation.Reason = "changed my mind"

	RejectCancellationRequest(order, "order already packed")

	assert.False(t, order.Cancellation.Requested)
	assert.Nil(t, order.Cancellation.RequestedAt)
	assert.Empty(t, order.Cancellation.Reason)
	assert.Equal(t, "order already packed", order.Cancellation.AdminReason)

	// The order is requestable again after the rejection.
	ok, reason := CanRequestCancellation(order)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	number := GenerateOrderNumber(now)

	assert.Regexp(t, `^ORD\d{17}$`, number)
	assert.Contains(t, number, "ORD1748865600000")
}
