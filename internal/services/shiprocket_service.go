package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/boltdb/bolt"

	"github.com/example/arister/internal/config"
)

// Shiprocket tokens stay valid for 10 days; refresh slightly ahead of that.
const shiprocketTokenTTL = 228 * time.Hour

var (
	shiprocketBucket   = []byte("shiprocket")
	shiprocketTokenKey = []byte("token")
)

type storedToken struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// ShiprocketService wraps the Shiprocket external API. The auth token is
// cached in memory behind a mutex and persisted to a small bolt file so
// restarts do not burn a fresh login.
type ShiprocketService struct {
	cfg    config.ShiprocketConfig
	client *http.Client
	store  *bolt.DB

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewShiprocketService opens the token store and loads any cached token.
func NewShiprocketService(cfg config.ShiprocketConfig) (*ShiprocketService, error) {
	store, err := bolt.Open(cfg.TokenDBPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open shiprocket token store: %w", err)
	}
	if err := store.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(shiprocketBucket)
		return err
	}); err != nil {
		store.Close()
		return nil, fmt.Errorf("init shiprocket token store: %w", err)
	}

	s := &ShiprocketService{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		store:  store,
	}
	s.loadStoredToken()
	return s, nil
}

// Close releases the token store.
func (s *ShiprocketService) Close() error {
	return s.store.Close()
}

func (s *ShiprocketService) loadStoredToken() {
	var st storedToken
	err := s.store.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(shiprocketBucket).Get(shiprocketTokenKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &st)
	})
	if err != nil || st.Token == "" {
		return
	}
	expiry := st.CreatedAt.Add(shiprocketTokenTTL)
	if time.Now().After(expiry) {
		return
	}
	s.token = st.Token
	s.tokenExpiry = expiry
	log.Printf("[Shiprocket] loaded cached token, valid until %s", expiry.Format(time.RFC3339))
}

func (s *ShiprocketService) persistToken(token string, createdAt time.Time) {
	raw, err := json.Marshal(storedToken{Token: token, CreatedAt: createdAt})
	if err != nil {
		return
	}
	if err := s.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(shiprocketBucket).Put(shiprocketTokenKey, raw)
	}); err != nil {
		log.Printf("[Shiprocket] failed to persist token: %v", err)
	}
}

// Token returns a cached auth token, logging in when none is valid.
func (s *ShiprocketService) Token() (string, error) {
	return s.getToken(false)
}

// RefreshToken forces a fresh login.
func (s *ShiprocketService) RefreshToken() (string, error) {
	return s.getToken(true)
}

func (s *ShiprocketService) getToken(force bool) (string, error) {
	if !force {
		s.mu.RLock()
		token := s.currentTokenLocked()
		s.mu.RUnlock()
		if token != "" {
			return token, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again in case another goroutine refreshed while we waited for the lock.
	if !force {
		if token := s.currentTokenLocked(); token != "" {
			return token, nil
		}
	}

	if s.cfg.Email == "" || s.cfg.Password == "" {
		return "", errors.New("shiprocket credentials are not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"email":    s.cfg.Email,
		"password": s.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal shiprocket login payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL()+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create shiprocket login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute shiprocket login request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read shiprocket login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("shiprocket login failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		return "", fmt.Errorf("unmarshal shiprocket login response: %w", err)
	}
	if loginResp.Token == "" {
		return "", errors.New("shiprocket login response missing token")
	}

	now := time.Now()
	s.token = loginResp.Token
	s.tokenExpiry = now.Add(shiprocketTokenTTL)
	s.persistToken(loginResp.Token, now)
	log.Printf("[Shiprocket] obtained new token")

	return s.token, nil
}

func (s *ShiprocketService) currentTokenLocked() string {
	if s.token == "" {
		return ""
	}
	if time.Now().Add(time.Minute).After(s.tokenExpiry) {
		return ""
	}
	return s.token
}

func (s *ShiprocketService) baseURL() string {
	return strings.TrimRight(s.cfg.BaseURL, "/")
}

// doRequest performs an authenticated API call, retrying once on 401.
func (s *ShiprocketService) doRequest(method, path string, query map[string]string, body any) ([]byte, error) {
	build := func(token string) (*http.Request, error) {
		var bodyReader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request body: %w", err)
			}
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequest(method, s.baseURL()+"/"+strings.TrimLeft(path, "/"), bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if len(query) > 0 {
			values := req.URL.Query()
			for k, v := range query {
				values.Set(k, v)
			}
			req.URL.RawQuery = values.Encode()
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	do := func(req *http.Request) (int, []byte, error) {
		resp, err := s.client.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("read response: %w", err)
		}
		return resp.StatusCode, respBody, nil
	}

	token, err := s.Token()
	if err != nil {
		return nil, err
	}

	req, err := build(token)
	if err != nil {
		return nil, err
	}
	status, respBody, err := do(req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		// Token likely expired; refresh and retry once.
		token, err = s.RefreshToken()
		if err != nil {
			return nil, err
		}
		req, err = build(token)
		if err != nil {
			return nil, err
		}
		status, respBody, err = do(req)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("shiprocket request %s %s failed: status %d, body: %s", method, path, status, string(respBody))
	}
	return respBody, nil
}

// CourierOption is one serviceable courier with its quoted rates.
type CourierOption struct {
	CourierCompanyID int     `json:"courier_company_id"`
	CourierName      string  `json:"courier_name"`
	Rate             float64 `json:"rate"`
	CodCharges       float64 `json:"cod_charges"`
	EstimatedDays    string  `json:"estimated_delivery_days"`
	ETD              string  `json:"etd"`
}

// CheckServiceability lists couriers able to deliver to the given pincode.
func (s *ShiprocketService) CheckServiceability(deliveryPincode string, weight float64, cod bool, declaredValue float64) ([]CourierOption, error) {
	codFlag := "0"
	if cod {
		codFlag = "1"
	}
	query := map[string]string{
		"pickup_postcode":   s.cfg.Pincode,
		"delivery_postcode": deliveryPincode,
		"weight":            fmt.Sprintf("%.2f", weight),
		"cod":               codFlag,
		"declared_value":    fmt.Sprintf("%.2f", declaredValue),
	}

	raw, err := s.doRequest(http.MethodGet, "/courier/serviceability/", query, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			AvailableCourierCompanies []CourierOption `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal serviceability response: %w", err)
	}
	return resp.Data.AvailableCourierCompanies, nil
}

// ShipmentItem is one line in a carrier order.
type ShipmentItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// CarrierOrderInput carries everything needed to register an adhoc order.
type CarrierOrderInput struct {
	OrderID        string
	OrderDate      time.Time
	PickupLocation string
	CustomerName   string
	LastName       string
	Address        string
	City           string
	Pincode        string
	State          string
	Country        string
	Email          string
	Phone          string
	Items          []ShipmentItem
	PaymentMethod  string // "COD" or "Prepaid"
	CodCharge      float64
	Length         float64
	Breadth        float64
	Height         float64
	Weight         float64
}

type adhocOrderPayload struct {
	OrderID             string         `json:"order_id"`
	OrderDate           string         `json:"order_date"`
	PickupLocation      string         `json:"pickup_location"`
	BillingCustomerName string         `json:"billing_customer_name"`
	BillingLastName     string         `json:"billing_last_name"`
	BillingAddress      string         `json:"billing_address"`
	BillingCity         string         `json:"billing_city"`
	BillingPincode      string         `json:"billing_pincode"`
	BillingState        string         `json:"billing_state"`
	BillingCountry      string         `json:"billing_country"`
	BillingEmail        string         `json:"billing_email"`
	BillingPhone        string         `json:"billing_phone"`
	ShippingIsBilling   bool           `json:"shipping_is_billing"`
	OrderItems          []ShipmentItem `json:"order_items"`
	PaymentMethod       string         `json:"payment_method"`
	SubTotal            float64        `json:"sub_total"`
	Length              float64        `json:"length"`
	Breadth             float64        `json:"breadth"`
	Height              float64        `json:"height"`
	Weight              float64        `json:"weight"`
}

// buildAdhocPayload maps an input to the carrier wire format. The carrier
// sub_total must equal the item lines plus the COD surcharge or the remitted
// amount will not match what the customer owes.
func buildAdhocPayload(input CarrierOrderInput) adhocOrderPayload {
	var itemTotal float64
	for _, item := range input.Items {
		itemTotal += item.SellingPrice * float64(item.Units)
	}

	country := input.Country
	if country == "" {
		country = "India"
	}
	pickup := input.PickupLocation
	if pickup == "" {
		pickup = "Primary"
	}

	return adhocOrderPayload{
		OrderID:             input.OrderID,
		OrderDate:           input.OrderDate.Format("2006-01-02 15:04"),
		PickupLocation:      pickup,
		BillingCustomerName: input.CustomerName,
		BillingLastName:     input.LastName,
		BillingAddress:      input.Address,
		BillingCity:         input.City,
		BillingPincode:      input.Pincode,
		BillingState:        input.State,
		BillingCountry:      country,
		BillingEmail:        input.Email,
		BillingPhone:        input.Phone,
		ShippingIsBilling:   true,
		OrderItems:          input.Items,
		PaymentMethod:       input.PaymentMethod,
		SubTotal:            itemTotal + input.CodCharge,
		Length:              defaultDim(input.Length, 10),
		Breadth:             defaultDim(input.Breadth, 10),
		Height:              defaultDim(input.Height, 5),
		Weight:              defaultDim(input.Weight, 0.5),
	}
}

func defaultDim(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

// CarrierOrderResult is the carrier's handle for a registered order.
type CarrierOrderResult struct {
	OrderID    int64  `json:"order_id"`
	ShipmentID int64  `json:"shipment_id"`
	Status     string `json:"status"`
}

// CreateOrder registers an adhoc order with the carrier.
func (s *ShiprocketService) CreateOrder(input CarrierOrderInput) (*CarrierOrderResult, error) {
	raw, err := s.doRequest(http.MethodPost, "/orders/create/adhoc", nil, buildAdhocPayload(input))
	if err != nil {
		return nil, err
	}
	var result CarrierOrderResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal create order response: %w", err)
	}
	if result.ShipmentID == 0 {
		return nil, fmt.Errorf("carrier did not return a shipment id: %s", string(raw))
	}
	return &result, nil
}

// CreateReplacementOrder registers a zero-valued order so the replacement
// shipment carries no collectable amount. The carrier order id is derived
// from the original so support can trace it back.
func (s *ShiprocketService) CreateReplacementOrder(input CarrierOrderInput) (*CarrierOrderResult, error) {
	input.OrderID = fmt.Sprintf("REP_%s_%d", input.OrderID, time.Now().Unix())
	input.PaymentMethod = "Prepaid"
	input.CodCharge = 0
	items := make([]ShipmentItem, len(input.Items))
	for i, item := range input.Items {
		item.SellingPrice = 0
		items[i] = item
	}
	input.Items = items
	return s.CreateOrder(input)
}

// AwbResult carries the assigned airway bill and courier.
type AwbResult struct {
	AwbCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
	CourierID   int    `json:"courier_company_id"`
}

// AssignAWB requests an airway bill for a shipment. courierID zero lets the
// carrier pick.
func (s *ShiprocketService) AssignAWB(shipmentID int64, courierID int) (*AwbResult, error) {
	body := map[string]any{"shipment_id": shipmentID}
	if courierID > 0 {
		body["courier_id"] = courierID
	}

	raw, err := s.doRequest(http.MethodPost, "/courier/assign/awb", nil, body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Response struct {
			Data AwbResult `json:"data"`
		} `json:"response"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal awb response: %w", err)
	}
	if resp.Response.Data.AwbCode == "" {
		return nil, fmt.Errorf("carrier did not assign an awb: %s", string(raw))
	}
	return &resp.Response.Data, nil
}

// GeneratePickup schedules courier pickup for a shipment.
func (s *ShiprocketService) GeneratePickup(shipmentID int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodPost, "/courier/generate/pickup", nil, map[string]any{
		"shipment_id": []int64{shipmentID},
	})
}

// GenerateManifest creates the manifest for a shipment.
func (s *ShiprocketService) GenerateManifest(shipmentID int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodPost, "/manifests/generate", nil, map[string]any{
		"shipment_id": []int64{shipmentID},
	})
}

// PrintManifest returns the printable manifest for carrier order ids.
func (s *ShiprocketService) PrintManifest(orderIDs []int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodPost, "/manifests/print", nil, map[string]any{
		"order_ids": orderIDs,
	})
}

// GenerateLabel returns the shipping label for a shipment.
func (s *ShiprocketService) GenerateLabel(shipmentID int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodPost, "/courier/generate/label", nil, map[string]any{
		"shipment_id": []int64{shipmentID},
	})
}

// PrintInvoice returns the invoice for carrier order ids.
func (s *ShiprocketService) PrintInvoice(orderIDs []int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodPost, "/orders/print/invoice", nil, map[string]any{
		"ids": orderIDs,
	})
}

// TrackShipment fetches tracking activity for a shipment.
func (s *ShiprocketService) TrackShipment(shipmentID int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodGet, fmt.Sprintf("/courier/track/shipment/%d", shipmentID), nil, nil)
}

// CancelOrder cancels carrier orders by their carrier ids.
func (s *ShiprocketService) CancelOrder(orderIDs []int64) (json.RawMessage, error) {
	return s.doRequest(http.MethodPost, "/orders/cancel", nil, map[string]any{
		"ids": orderIDs,
	})
}
