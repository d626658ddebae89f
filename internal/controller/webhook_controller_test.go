package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

const invoicePaidPayload = `{
  "id": "evt_test_1",
  "object": "event",
  "api_version": "2025-01-27.acacia",
  "type": "invoice.paid",
  "data": {"object": {"id": "in_1", "object": "invoice", "amount_paid": 2500}}
}`

func newWebhookApp(dispatcher service.IWebhookDispatcher, maxBody int) *fiber.App {
	app := fiber.New()
	NewWebhookController(dispatcher, testWebhookSecret, maxBody, logger.NewNopLogger()).RegisterRoutes(app)
	return app
}

func signedRequest(t *testing.T, payload, secret string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  secret,
	})
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhookDispatchesVerifiedEvent(t *testing.T) {
	dispatcher := new(mockDispatcher)
	dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(ev stripe.Event) bool {
		return ev.ID == "evt_test_1" && ev.Type == "invoice.paid" && ev.Data.Object["id"] == "in_1"
	})).Return(service.DispatchProcessed, nil).Once()

	app := newWebhookApp(dispatcher, 0)
	resp, err := app.Test(signedRequest(t, invoicePaidPayload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.True(t, ack.Received)
	assert.Equal(t, "processed", ack.Status)
	dispatcher.AssertExpectations(t)
}

func TestStripeWebhookRejects(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		dispatcher := new(mockDispatcher)
		app := newWebhookApp(dispatcher, 0)

		resp, err := app.Test(signedRequest(t, invoicePaidPayload, "whsec_other"), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("missing signature", func(t *testing.T) {
		dispatcher := new(mockDispatcher)
		app := newWebhookApp(dispatcher, 0)

		req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", strings.NewReader(invoicePaidPayload))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("oversized body", func(t *testing.T) {
		dispatcher := new(mockDispatcher)
		app := newWebhookApp(dispatcher, 64)

		resp, err := app.Test(signedRequest(t, invoicePaidPayload, testWebhookSecret), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("empty body", func(t *testing.T) {
		app := newWebhookApp(new(mockDispatcher), 0)
		req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestStripeWebhookAcceptsLargeInvoiceByDefault(t *testing.T) {
	dispatcher := new(mockDispatcher)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(service.DispatchProcessed, nil).Once()

	payload := `{
  "id": "evt_large",
  "object": "event",
  "type": "invoice.paid",
  "data": {"object": {"id": "in_large", "object": "invoice", "description": "` + strings.Repeat("x", 200*1024) + `"}}
}`
	require.Greater(t, len(payload), 65536)

	app := newWebhookApp(dispatcher, 0)
	resp, err := app.Test(signedRequest(t, payload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	dispatcher.AssertExpectations(t)
}

func TestStripeWebhookHandlerFailureAsksForRedelivery(t *testing.T) {
	dispatcher := new(mockDispatcher)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).
		Return(service.DispatchStatus(""), errors.New("lock timeout")).Once()

	app := newWebhookApp(dispatcher, 0)
	resp, err := app.Test(signedRequest(t, invoicePaidPayload, testWebhookSecret), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
