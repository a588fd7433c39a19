package services

import (
	"fmt"
	"log"
	"time"

	"github.com/example/arister/internal/models"
)

// CodAvailability is the outcome of a COD availability check.
type CodAvailability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// CodRequest carries the checkout facts the rules engine evaluates.
type CodRequest struct {
	OrderValue  float64
	Pincode     string
	State       string
	City        string
	ProductIDs  []string
	Categories  []string
	CourierCode string
	OrderTime   time.Time
}

// CODService evaluates COD availability and surcharges against the stored
// settings. The rule evaluation itself is pure over a CODConfig value so it
// can be exercised without a database.
type CODService struct {
	settings *SettingsService
}

// NewCODService constructs a CODService.
func NewCODService(settings *SettingsService) *CODService {
	return &CODService{settings: settings}
}

// IsCodAvailable loads the current COD config and runs the availability rules.
func (s *CODService) IsCodAvailable(req CodRequest) (CodAvailability, error) {
	cfg, err := s.settings.Get()
	if err != nil {
		return CodAvailability{Available: false, Reason: "Failed to check COD availability"}, err
	}
	return CheckCodAvailability(cfg.COD, req), nil
}

// CalculateCodCharge loads the current COD config and computes the surcharge.
// Errors never propagate: the charge degrades to 0.
func (s *CODService) CalculateCodCharge(req CodRequest) float64 {
	cfg, err := s.settings.Get()
	if err != nil {
		log.Printf("[COD] failed to load settings, defaulting charge to 0: %v", err)
		return 0
	}
	return CalculateCodCharge(cfg.COD, req)
}

// CheckCodAvailability applies the business rules in order; the first failing
// rule wins and carries its own reason.
func CheckCodAvailability(cod models.CODConfig, req CodRequest) CodAvailability {
	if !cod.Enabled {
		return CodAvailability{Available: false, Reason: "COD is disabled"}
	}

	rules := cod.Rules

	if req.OrderValue < rules.MinOrderValue {
		return CodAvailability{
			Available: false,
			Reason:    fmt.Sprintf("Order value %.0f is below minimum %.0f", req.OrderValue, rules.MinOrderValue),
		}
	}
	if rules.MaxOrderValue > 0 && req.OrderValue > rules.MaxOrderValue {
		return CodAvailability{
			Available: false,
			Reason:    fmt.Sprintf("Order value %.0f exceeds maximum %.0f", req.OrderValue, rules.MaxOrderValue),
		}
	}

	if containsString(rules.ExcludedPincodes, req.Pincode) {
		return CodAvailability{Available: false, Reason: fmt.Sprintf("COD not available for pincode %s", req.Pincode)}
	}
	if containsString(rules.ExcludedStates, req.State) {
		return CodAvailability{Available: false, Reason: fmt.Sprintf("COD not available for state %s", req.State)}
	}

	if rules.TimeRestrictions.Enabled {
		tr := rules.TimeRestrictions
		day := int(req.OrderTime.Weekday())
		if len(tr.DaysOfWeek) > 0 && !containsInt(tr.DaysOfWeek, day) {
			return CodAvailability{Available: false, Reason: "COD not available on this day"}
		}
		// An unset bound is not a restriction.
		clock := req.OrderTime.Format("15:04")
		if tr.StartTime != "" && clock < tr.StartTime {
			return CodAvailability{Available: false, Reason: "COD not available at this time"}
		}
		if tr.EndTime != "" && clock > tr.EndTime {
			return CodAvailability{Available: false, Reason: "COD not available at this time"}
		}
	}

	for _, id := range req.ProductIDs {
		if containsString(rules.ExcludedProducts, id) {
			return CodAvailability{Available: false, Reason: fmt.Sprintf("COD not available for product %s", id)}
		}
	}
	for _, category := range req.Categories {
		if containsString(rules.ExcludedCategories, category) {
			return CodAvailability{Available: false, Reason: fmt.Sprintf("COD not available for category %s", category)}
		}
	}

	return CodAvailability{Available: true}
}

// CalculateCodCharge resolves the surcharge through the pricing branches in
// strict priority order: location zone, courier override, tiers, percentage,
// fixed. A disabled COD config always yields 0.
func CalculateCodCharge(cod models.CODConfig, req CodRequest) float64 {
	if !cod.Enabled {
		return 0
	}

	pricing := cod.Pricing

	if pricing.LocationBased.Enabled {
		if zone := matchZone(pricing.LocationBased.Zones, req); zone != nil {
			if pricing.Type == models.CODPricingPercentage {
				return clampCharge(req.OrderValue*pricing.Percentage/100, zone.MinCharge, zone.MaxCharge)
			}
			return zone.Charge
		}
	}

	if req.CourierCode != "" && cod.CourierCharges.Enabled {
		for _, courier := range cod.CourierCharges.Couriers {
			if courier.Code == req.CourierCode && courier.Enabled {
				return clampCharge(req.OrderValue*courier.Percentage/100, courier.MinCharge, courier.MaxCharge)
			}
		}
	}

	if pricing.Type == models.CODPricingTiered {
		for _, tier := range pricing.Tiers {
			if req.OrderValue >= tier.MinAmount && (tier.MaxAmount == 0 || req.OrderValue <= tier.MaxAmount) {
				return tier.Charge
			}
		}
	}

	if pricing.Type == models.CODPricingPercentage {
		return clampCharge(req.OrderValue*pricing.Percentage/100, pricing.MinCharge, pricing.MaxCharge)
	}

	return pricing.FixedAmount
}

func matchZone(zones []models.CODZone, req CodRequest) *models.CODZone {
	for i := range zones {
		z := &zones[i]
		if containsString(z.Pincodes, req.Pincode) ||
			containsString(z.States, req.State) ||
			containsString(z.Cities, req.City) {
			return z
		}
	}
	return nil
}

func clampCharge(charge, min, max float64) float64 {
	if charge < min {
		return min
	}
	if max > 0 && charge > max {
		return max
	}
	return charge
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
