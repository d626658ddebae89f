package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"giving-ledger-be/internal/bootstrap"
	"giving-ledger-be/internal/config"
	"giving-ledger-be/internal/model"
	"giving-ledger-be/internal/pkg/serverutils"
	"giving-ledger-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const integrationWebhookSecret = "whsec_integration"

func newIntegrationApp(t *testing.T) *fiber.App {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		t.Logf("Warning: Could not load ../../.env: %v", err)
	}
	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false, database.DefaultPoolConfig())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Pledge{}, &model.Transaction{}, &model.Refund{}, &model.WebhookEvent{}))

	cfg := &config.Config{
		App: config.AppConfig{
			Environment: "test",
			LogFilePath: filepath.Join(t.TempDir(), "app.log"),
		},
		Stripe: config.StripeConfig{
			WebhookSecret:   integrationWebhookSecret,
			DefaultCurrency: "usd",
		},
		Ledger: config.LedgerConfig{
			TxRetryAttempts:        5,
			WebhookDedupTTLMinutes: 60,
			WebhookMaxBodyBytes:    512 * 1024,
		},
		Keys: config.APIKeys{JWTSecret: "integration"},
	}

	container := bootstrap.NewContainer(db, cfg)
	t.Cleanup(container.Close)
	return New(cfg, container).GetApp()
}

func invoiceEventBody(t *testing.T, eventId, invoiceId, subscriptionId string, pledgeId uint64, attemptId string, start, end time.Time) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          eventId,
		"object":      "event",
		"api_version": "2025-01-27.acacia",
		"type":        "invoice.paid",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             invoiceId,
				"object":         "invoice",
				"subscription":   subscriptionId,
				"payment_intent": "pi_" + invoiceId,
				"amount_paid":    2500,
				"currency":       "usd",
				"status":         "paid",
				"subscription_details": map[string]interface{}{
					"metadata": map[string]string{
						"pledge_id":  strconv.FormatUint(pledgeId, 10),
						"attempt_id": attemptId,
					},
				},
				"status_transitions": map[string]interface{}{"paid_at": start.Add(time.Minute).Unix()},
				"lines": map[string]interface{}{
					"data": []interface{}{
						map[string]interface{}{"period": map[string]interface{}{"start": start.Unix(), "end": end.Unix()}},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func signedWebhook(payload string) *http.Request {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  integrationWebhookSecret,
	})
	req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func deliver(t *testing.T, app *fiber.App, payload string) (int, string) {
	t.Helper()
	resp, err := app.Test(signedWebhook(payload), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var ack struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &ack)
	return resp.StatusCode, ack.Status
}

func getData(t *testing.T, app *fiber.App, target string) map[string]interface{} {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, target)
	body, _ := io.ReadAll(resp.Body)
	var out serverutils.Response
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Data.(map[string]interface{})
}

func TestPledgeLifecycleAgainstPostgres(t *testing.T) {
	app := newIntegrationApp(t)
	suffix := uuid.NewString()[:8]
	email := fmt.Sprintf("donor-%s@example.org", suffix)

	req := httptest.NewRequest(fiber.MethodPost, "/api/giving/pledges",
		strings.NewReader(fmt.Sprintf(`{"donor_email":%q,"amount_cents":2500}`, email)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var started struct {
		Data struct {
			PledgeId      uint64 `json:"pledge_id"`
			TransactionId uint64 `json:"transaction_id"`
			AttemptId     string `json:"attempt_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &started))
	pledgeId := started.Data.PledgeId

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	subscriptionId := "sub_" + suffix

	first := invoiceEventBody(t, "evt_first_"+suffix, "in_first_"+suffix, subscriptionId, pledgeId, started.Data.AttemptId, start, end)
	code, status := deliver(t, app, first)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "processed", status)

	code, status = deliver(t, app, first)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "duplicate", status)

	placeholder := getData(t, app, fmt.Sprintf("/api/giving/transactions/%d", started.Data.TransactionId))
	assert.Equal(t, "succeeded", placeholder["status"])
	assert.Equal(t, "in_first_"+suffix, placeholder["invoice_id"])

	pledge := getData(t, app, fmt.Sprintf("/api/giving/pledges/%d", pledgeId))
	assert.Equal(t, "active", pledge["status"])
	assert.Equal(t, subscriptionId, pledge["subscription_id"])

	// concurrent deliveries of the renewal under distinct event ids
	renewal := "in_renew_" + suffix
	payloads := make([]string, 4)
	for i := range payloads {
		payloads[i] = invoiceEventBody(t, fmt.Sprintf("evt_renew_%d_%s", i, suffix), renewal, subscriptionId, pledgeId, started.Data.AttemptId, end, end.AddDate(0, 1, 0))
	}
	var wg sync.WaitGroup
	for _, payload := range payloads {
		wg.Add(1)
		go func(payload string) {
			defer wg.Done()
			resp, err := app.Test(signedWebhook(payload), -1)
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}(payload)
	}
	wg.Wait()

	list := getData(t, app, "/api/giving/transactions?limit=50&payer_email="+email)
	assert.EqualValues(t, 2, list["total"])

	pledge = getData(t, app, fmt.Sprintf("/api/giving/pledges/%d", pledgeId))
	nextAt, err := time.Parse(time.RFC3339, pledge["next_pledge_at"].(string))
	require.NoError(t, err)
	assert.True(t, nextAt.Equal(end.AddDate(0, 1, 0)))
}
