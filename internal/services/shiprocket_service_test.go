package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/arister/internal/config"
)

func newTestShiprocket(t *testing.T, baseURL, tokenDB string) *ShiprocketService {
	t.Helper()
	svc, err := NewShiprocketService(config.ShiprocketConfig{
		Email:       "ops@example.com",
		Password:    "secret",
		BaseURL:     baseURL,
		Pincode:     "110001",
		TokenDBPath: tokenDB,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestShiprocketTokenCachedAndPersisted(t *testing.T) {
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			logins++
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tokenDB := filepath.Join(t.TempDir(), "token.db")

	svc := newTestShiprocket(t, server.URL, tokenDB)
	token, err := svc.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, logins)

	// Second call hits the in-memory cache.
	_, err = svc.Token()
	require.NoError(t, err)
	assert.Equal(t, 1, logins)
	svc.Close()

	// A fresh instance picks the token up from disk without logging in.
	svc2 := newTestShiprocket(t, server.URL, tokenDB)
	token, err = svc2.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, logins)
}

func TestShiprocketRetriesOnceOn401(t *testing.T) {
	logins := 0
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/login":
			logins++
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + time.Now().String()})
		case strings.HasPrefix(r.URL.Path, "/courier/track/shipment/"):
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"tracking_data": map[string]any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := newTestShiprocket(t, server.URL, filepath.Join(t.TempDir(), "token.db"))

	_, err := svc.TrackShipment(42)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, logins)
}

func TestBuildAdhocPayloadMoneyInvariant(t *testing.T) {
	input := CarrierOrderInput{
		OrderID:       "ORD1",
		OrderDate:     time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		CustomerName:  "Asha",
		Pincode:       "560001",
		PaymentMethod: "COD",
		CodCharge:     60,
		Items: []ShipmentItem{
			{Name: "Tee", SKU: "TEE-1", Units: 2, SellingPrice: 400},
			{Name: "Cap", SKU: "CAP-1", Units: 1, SellingPrice: 150},
		},
	}

	payload := buildAdhocPayload(input)

	// The carrier collects sub_total on delivery, so it must cover the item
	// lines plus the COD surcharge.
	assert.Equal(t, 1010.0, payload.SubTotal)
	assert.Equal(t, "2025-06-02 12:00", payload.OrderDate)
	assert.Equal(t, "India", payload.BillingCountry)
	assert.Equal(t, "Primary", payload.PickupLocation)
	assert.True(t, payload.ShippingIsBilling)
	assert.Equal(t, 0.5, payload.Weight)
}

func TestCreateReplacementOrderZeroValued(t *testing.T) {
	var captured adhocOrderPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
		case "/orders/create/adhoc":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(map[string]any{"order_id": 9001, "shipment_id": 5001, "status": "NEW"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := newTestShiprocket(t, server.URL, filepath.Join(t.TempDir(), "token.db"))

	result, err := svc.CreateReplacementOrder(CarrierOrderInput{
		OrderID:       "ORD1",
		OrderDate:     time.Now(),
		PaymentMethod: "COD",
		CodCharge:     60,
		Items: []ShipmentItem{
			{Name: "Tee", SKU: "TEE-1", Units: 1, SellingPrice: 400},
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5001, result.ShipmentID)

	assert.True(t, strings.HasPrefix(captured.OrderID, "REP_ORD1_"))
	assert.Equal(t, "Prepaid", captured.PaymentMethod)
	assert.Equal(t, 0.0, captured.SubTotal)
	for _, item := range captured.OrderItems {
		assert.Equal(t, 0.0, item.SellingPrice)
	}
}
