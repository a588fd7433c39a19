package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	svc := NewRazorpayService("key", "topsecret", "https://api.razorpay.com/v1")

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte("order_abc|pay_xyz"))
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, svc.VerifySignature("order_abc", "pay_xyz", signature))
	assert.False(t, svc.VerifySignature("order_abc", "pay_other", signature))
	assert.False(t, svc.VerifySignature("order_abc", "pay_xyz", "deadbeef"))
}

func TestCreateOrderConvertsToPaise(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", user)
		require.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_abc",
			"amount":   captured["amount"],
			"currency": "INR",
			"status":   "created",
		})
	}))
	defer server.Close()

	svc := NewRazorpayService("key", "secret", server.URL)

	order, err := svc.CreateOrder(949.50, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.EqualValues(t, 94950, captured["amount"])
	assert.Equal(t, "INR", captured["currency"])
}
