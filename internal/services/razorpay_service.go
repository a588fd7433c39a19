package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// RazorpayService creates payment orders and verifies capture signatures.
type RazorpayService struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewRazorpayService constructs a RazorpayService.
func NewRazorpayService(keyID, keySecret, baseURL string) *RazorpayService {
	return &RazorpayService{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// KeyID exposes the public key id for checkout clients.
func (s *RazorpayService) KeyID() string {
	return s.keyID
}

// RazorpayOrder is the gateway's order handle.
type RazorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder registers a payment order with the gateway. The amount is in
// rupees and converted to paise on the wire.
func (s *RazorpayService) CreateOrder(amount float64, receipt string) (*RazorpayOrder, error) {
	if s.keyID == "" || s.keySecret == "" {
		return nil, errors.New("razorpay credentials are not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"amount":   int64(math.Round(amount * 100)),
		"currency": "INR",
		"receipt":  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal razorpay order payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create razorpay order request: %w", err)
	}
	req.SetBasicAuth(s.keyID, s.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute razorpay order request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read razorpay order response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay order request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var order RazorpayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("unmarshal razorpay order response: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("razorpay order response missing id")
	}
	return &order, nil
}

// VerifySignature checks the HMAC the gateway attaches to a captured
// payment. The signed message is "<orderID>|<paymentID>".
func (s *RazorpayService) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
