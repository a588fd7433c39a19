package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestShiprocketWebhookRejectsIncompletePayloads(t *testing.T) {
	app := fiber.New()
	h := NewOrderHandler(nil, nil, nil, nil, nil, nil)
	app.Post("/api/orders/webhook/shiprocket", h.ShiprocketWebhook)

	tests := []struct {
		name string
		body string
	}{
		{"empty payload", `{}`},
		{"missing awb_code", `{"order_id":"ORD17000000000001234","status":"shipped"}`},
		{"missing order_id", `{"awb_code":"AWB123","status":"shipped"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/api/orders/webhook/shiprocket", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestShiprocketWebhookRejectsMalformedBody(t *testing.T) {
	app := fiber.New()
	h := NewOrderHandler(nil, nil, nil, nil, nil, nil)
	app.Post("/api/orders/webhook/shiprocket", h.ShiprocketWebhook)

	resp := postJSON(t, app, "/api/orders/webhook/shiprocket", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReplacementRejectRequiresReason(t *testing.T) {
	app := fiber.New()
	h := NewReplacementHandler(nil, nil, nil, nil)
	app.Post("/api/admin/replacements/:orderId/reject", h.Reject)

	resp := postJSON(t, app, "/api/admin/replacements/ORD17000000000001234/reject", `{"notes":"out of stock"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/api/admin/replacements/ORD17000000000001234/reject", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
