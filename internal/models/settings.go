package models

// Settings is a single-row table holding payment policy configuration.
// It is read by the COD rules engine and mutated only through the admin
// settings endpoints.
type Settings struct {
	BaseModel
	COD           CODConfig           `gorm:"type:jsonb;serializer:json" json:"cod"`
	OnlinePayment OnlinePaymentConfig `gorm:"type:jsonb;serializer:json" json:"online_payment"`
}

// COD pricing strategies.
const (
	CODPricingFixed      = "fixed"
	CODPricingPercentage = "percentage"
	CODPricingTiered     = "tiered"
	CODPricingDynamic    = "dynamic"
)

type CODConfig struct {
	Enabled        bool              `json:"enabled"`
	Pricing        CODPricing        `json:"pricing"`
	CourierCharges CODCourierCharges `json:"courier_charges"`
	Rules          CODRules          `json:"rules"`
}

type CODPricing struct {
	Type          string           `json:"type"`
	FixedAmount   float64          `json:"fixed_amount"`
	Percentage    float64          `json:"percentage"`
	MinCharge     float64          `json:"min_charge"`
	MaxCharge     float64          `json:"max_charge"`
	Tiers         []CODTier        `json:"tiers"`
	LocationBased CODLocationBased `json:"location_based"`
}

// CODTier maps an order value range to a flat charge. MaxAmount zero means
// the tier is unbounded above.
type CODTier struct {
	MinAmount float64 `json:"min_amount"`
	MaxAmount float64 `json:"max_amount"`
	Charge    float64 `json:"charge"`
}

type CODLocationBased struct {
	Enabled bool      `json:"enabled"`
	Zones   []CODZone `json:"zones"`
}

type CODZone struct {
	Name      string   `json:"name"`
	Pincodes  []string `json:"pincodes"`
	States    []string `json:"states"`
	Cities    []string `json:"cities"`
	Charge    float64  `json:"charge"`
	MinCharge float64  `json:"min_charge"`
	MaxCharge float64  `json:"max_charge"`
}

type CODCourierCharges struct {
	Enabled  bool         `json:"enabled"`
	Couriers []CODCourier `json:"couriers"`
}

type CODCourier struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Percentage float64 `json:"percentage"`
	MinCharge  float64 `json:"min_charge"`
	MaxCharge  float64 `json:"max_charge"`
	Enabled    bool    `json:"enabled"`
}

type CODRules struct {
	MinOrderValue      float64             `json:"min_order_value"`
	MaxOrderValue      float64             `json:"max_order_value"`
	ExcludedCategories []string            `json:"excluded_categories"`
	ExcludedProducts   []string            `json:"excluded_products"`
	ExcludedPincodes   []string            `json:"excluded_pincodes"`
	ExcludedStates     []string            `json:"excluded_states"`
	TimeRestrictions   CODTimeRestrictions `json:"time_restrictions"`
}

// CODTimeRestrictions limits COD to a clock window on selected weekdays.
// An empty DaysOfWeek list allows every day. Times are "HH:MM".
type CODTimeRestrictions struct {
	Enabled    bool   `json:"enabled"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek []int  `json:"days_of_week"`
}

type OnlinePaymentConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultSettings mirrors the defaults applied when no settings row exists.
func DefaultSettings() Settings {
	return Settings{
		COD: CODConfig{
			Enabled: true,
			Pricing: CODPricing{
				Type:        CODPricingFixed,
				FixedAmount: 50,
				Percentage:  2.5,
				MinCharge:   30,
				MaxCharge:   200,
			},
			Rules: CODRules{
				MinOrderValue: 0,
				MaxOrderValue: 10000,
				TimeRestrictions: CODTimeRestrictions{
					StartTime: "09:00",
					EndTime:   "18:00",
				},
			},
		},
		OnlinePayment: OnlinePaymentConfig{Enabled: true},
	}
}
