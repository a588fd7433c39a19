package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/arister/internal/models"
)

func enabledCodConfig() models.CODConfig {
	cfg := models.DefaultSettings().COD
	cfg.Rules.TimeRestrictions.Enabled = false
	return cfg
}

func TestCheckCodAvailability(t *testing.T) {
	monday10am := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mutate    func(*models.CODConfig)
		req       CodRequest
		available bool
		reason    string
	}{
		{
			name:      "enabled config allows a plain order",
			req:       CodRequest{OrderValue: 500, OrderTime: monday10am},
			available: true,
		},
		{
			name:      "disabled config rejects everything",
			mutate:    func(c *models.CODConfig) { c.Enabled = false },
			req:       CodRequest{OrderValue: 500, OrderTime: monday10am},
			available: false,
			reason:    "COD is disabled",
		},
		{
			name:      "order below minimum value",
			mutate:    func(c *models.CODConfig) { c.Rules.MinOrderValue = 200 },
			req:       CodRequest{OrderValue: 100, OrderTime: monday10am},
			available: false,
			reason:    "Order value 100 is below minimum 200",
		},
		{
			name:      "order above maximum value",
			req:       CodRequest{OrderValue: 15000, OrderTime: monday10am},
			available: false,
			reason:    "Order value 15000 exceeds maximum 10000",
		},
		{
			name:      "excluded pincode",
			mutate:    func(c *models.CODConfig) { c.Rules.ExcludedPincodes = []string{"110001"} },
			req:       CodRequest{OrderValue: 500, Pincode: "110001", OrderTime: monday10am},
			available: false,
			reason:    "COD not available for pincode 110001",
		},
		{
			name:      "excluded state",
			mutate:    func(c *models.CODConfig) { c.Rules.ExcludedStates = []string{"Assam"} },
			req:       CodRequest{OrderValue: 500, State: "Assam", OrderTime: monday10am},
			available: false,
			reason:    "COD not available for state Assam",
		},
		{
			name:      "excluded product",
			mutate:    func(c *models.CODConfig) { c.Rules.ExcludedProducts = []string{"p1"} },
			req:       CodRequest{OrderValue: 500, ProductIDs: []string{"p2", "p1"}, OrderTime: monday10am},
			available: false,
			reason:    "COD not available for product p1",
		},
		{
			name:      "excluded category",
			mutate:    func(c *models.CODConfig) { c.Rules.ExcludedCategories = []string{"jewellery"} },
			req:       CodRequest{OrderValue: 500, Categories: []string{"jewellery"}, OrderTime: monday10am},
			available: false,
			reason:    "COD not available for category jewellery",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledCodConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			result := CheckCodAvailability(cfg, tt.req)
			assert.Equal(t, tt.available, result.Available)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestCheckCodAvailabilityTimeRestrictions(t *testing.T) {
	cfg := enabledCodConfig()
	cfg.Rules.TimeRestrictions = models.CODTimeRestrictions{
		Enabled:    true,
		StartTime:  "09:00",
		EndTime:    "18:00",
		DaysOfWeek: []int{1, 2, 3, 4, 5},
	}

	monday10am := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	sunday10am := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	monday8pm := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)

	assert.True(t, CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday10am}).Available)

	result := CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: sunday10am})
	assert.False(t, result.Available)
	assert.Equal(t, "COD not available on this day", result.Reason)

	result = CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday8pm})
	assert.False(t, result.Available)
	assert.Equal(t, "COD not available at this time", result.Reason)
}

func TestCheckCodAvailabilityOpenEndedWindow(t *testing.T) {
	monday8pm := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	monday6am := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)

	cfg := enabledCodConfig()
	cfg.Rules.TimeRestrictions = models.CODTimeRestrictions{Enabled: true, StartTime: "09:00"}

	assert.True(t, CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday8pm}).Available,
		"missing end time should not cap the window")
	assert.False(t, CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday6am}).Available)

	cfg.Rules.TimeRestrictions = models.CODTimeRestrictions{Enabled: true, EndTime: "18:00"}

	assert.True(t, CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday6am}).Available,
		"missing start time should not floor the window")
	assert.False(t, CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday8pm}).Available)

	cfg.Rules.TimeRestrictions = models.CODTimeRestrictions{Enabled: true}
	assert.True(t, CheckCodAvailability(cfg, CodRequest{OrderValue: 500, OrderTime: monday8pm}).Available)
}

func TestCalculateCodChargeFixed(t *testing.T) {
	cfg := enabledCodConfig()

	assert.Equal(t, 50.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800}))

	cfg.Enabled = false
	assert.Equal(t, 0.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800}))
}

func TestCalculateCodChargeTiered(t *testing.T) {
	cfg := enabledCodConfig()
	cfg.Pricing.Type = models.CODPricingTiered
	cfg.Pricing.Tiers = []models.CODTier{
		{MinAmount: 0, MaxAmount: 500, Charge: 30},
		{MinAmount: 500, MaxAmount: 0, Charge: 60},
	}

	assert.Equal(t, 30.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 200}))
	assert.Equal(t, 60.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800}))
}

func TestCalculateCodChargePercentageClamped(t *testing.T) {
	cfg := enabledCodConfig()
	cfg.Pricing.Type = models.CODPricingPercentage
	cfg.Pricing.Percentage = 2.5
	cfg.Pricing.MinCharge = 30
	cfg.Pricing.MaxCharge = 200

	// 2.5% of 400 is 10, clamped up to the floor.
	assert.Equal(t, 30.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 400}))
	// 2.5% of 2000 is 50, inside the band.
	assert.Equal(t, 50.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 2000}))
	// 2.5% of 10000 is 250, clamped down to the ceiling.
	assert.Equal(t, 200.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 10000}))
}

func TestCalculateCodChargeZoneTakesPriority(t *testing.T) {
	cfg := enabledCodConfig()
	cfg.Pricing.LocationBased = models.CODLocationBased{
		Enabled: true,
		Zones: []models.CODZone{
			{Name: "metro", Pincodes: []string{"110001"}, Charge: 20},
			{Name: "northeast", States: []string{"Assam"}, Charge: 120},
		},
	}
	cfg.CourierCharges = models.CODCourierCharges{
		Enabled:  true,
		Couriers: []models.CODCourier{{Code: "DL", Percentage: 5, Enabled: true}},
	}

	// Zone match wins over the courier override and the fixed fallback.
	assert.Equal(t, 20.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800, Pincode: "110001", CourierCode: "DL"}))
	assert.Equal(t, 120.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800, State: "Assam"}))

	// No zone match falls through to the courier percentage.
	assert.Equal(t, 40.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800, Pincode: "560001", CourierCode: "DL"}))

	// Disabled courier entries are skipped.
	cfg.CourierCharges.Couriers[0].Enabled = false
	assert.Equal(t, 50.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 800, Pincode: "560001", CourierCode: "DL"}))
}

func TestCalculateCodChargeCourierClamped(t *testing.T) {
	cfg := enabledCodConfig()
	cfg.CourierCharges = models.CODCourierCharges{
		Enabled: true,
		Couriers: []models.CODCourier{
			{Code: "XB", Percentage: 1, MinCharge: 25, MaxCharge: 90, Enabled: true},
		},
	}

	assert.Equal(t, 25.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 1000, CourierCode: "XB"}))
	assert.Equal(t, 90.0, CalculateCodCharge(cfg, CodRequest{OrderValue: 50000, CourierCode: "XB"}))
}
