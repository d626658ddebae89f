package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/pkg/serverutils"
	"giving-ledger-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func newGivingApp(pledges *mockPledgeService, reads *mockGivingService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewGivingController(pledges, reads).RegisterRoutes(app)
	NewAdminController(pledges).RegisterRoutes(app, serverutils.JwtMiddleware(testJWTSecret, serverutils.RoleAdmin))
	return app
}

func decodeResponse(t *testing.T, resp *http.Response) serverutils.Response {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out serverutils.Response
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "staff-1",
		"role":    role,
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestStartPledgeEndpoint(t *testing.T) {
	pledges := new(mockPledgeService)
	pledges.On("StartPledge", mock.Anything, mock.MatchedBy(func(req *dto.StartPledgeRequest) bool {
		return req.DonorEmail == "d@example.org" && req.AmountCents == 2500 && req.Interval == "month"
	})).Return(&dto.StartPledgeResponse{PledgeId: 1, TransactionId: 2, AttemptId: "att"}, nil).Once()

	app := newGivingApp(pledges, new(mockGivingService))
	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/giving/pledges",
		`{"donor_email":"d@example.org","amount_cents":2500,"interval":"month"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.True(t, out.Success)
	data := out.Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["pledge_id"])
	assert.Equal(t, "att", data["attempt_id"])
	pledges.AssertExpectations(t)
}

func TestStartPledgeEndpointValidates(t *testing.T) {
	pledges := new(mockPledgeService)
	app := newGivingApp(pledges, new(mockGivingService))

	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/giving/pledges", `{"interval":"fortnight"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	out := decodeResponse(t, resp)
	fields := out.Errors.(map[string]interface{})
	assert.Contains(t, fields, "donor_email")
	assert.Contains(t, fields, "amount_cents")
	assert.Contains(t, fields, "interval")
	pledges.AssertNotCalled(t, "StartPledge", mock.Anything, mock.Anything)
}

func TestStartOneTimeGiftEndpoint(t *testing.T) {
	pledges := new(mockPledgeService)
	pledges.On("StartOneTimeGift", mock.Anything, mock.Anything).
		Return(&dto.StartOneTimeGiftResponse{TransactionId: 9, AttemptId: "att"}, nil).Once()

	app := newGivingApp(pledges, new(mockGivingService))
	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/giving/one-time",
		`{"donor_email":"d@example.org","amount_cents":1000}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	pledges.AssertExpectations(t)
}

func TestReadEndpoints(t *testing.T) {
	reads := new(mockGivingService)
	reads.On("GetPledge", mock.Anything, uint64(5)).Return(&dto.PledgeResponse{Id: 5, Status: "active"}, nil)
	reads.On("GetPledge", mock.Anything, uint64(6)).Return(nil, service.ErrPledgeNotFound)
	reads.On("GetTransaction", mock.Anything, uint64(8)).Return(nil, service.ErrTransactionNotFound)
	reads.On("ListTransactions", mock.Anything, dto.ListTransactionsFilter{PayerEmail: "d@example.org", Limit: 10}).
		Return([]*dto.TransactionResponse{{Id: 2}, {Id: 1}}, int64(2), nil)

	app := newGivingApp(new(mockPledgeService), reads)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"pledge", "/giving/pledges/5", fiber.StatusOK},
		{"missing pledge", "/giving/pledges/6", fiber.StatusNotFound},
		{"bad id", "/giving/pledges/abc", fiber.StatusBadRequest},
		{"missing transaction", "/giving/transactions/8", fiber.StatusNotFound},
		{"list", "/giving/transactions?payer_email=d@example.org&limit=10", fiber.StatusOK},
		{"bad filter", "/giving/transactions?payer_email=not-an-email", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.target, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	pledges := new(mockPledgeService)
	app := newGivingApp(pledges, new(mockGivingService))

	req := httptest.NewRequest(fiber.MethodPost, "/admin/pledges/1/cancel", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/admin/pledges/1/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "donor"))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	pledges.AssertNotCalled(t, "CancelSubscriptionAtPeriodEnd", mock.Anything, mock.Anything)
}

func TestAdminActions(t *testing.T) {
	pledges := new(mockPledgeService)
	pledges.On("CancelSubscriptionAtPeriodEnd", mock.Anything, uint64(1)).
		Return(&dto.PledgeResponse{Id: 1, CancelAtPeriodEnd: true}, nil)
	pledges.On("ResumeSubscription", mock.Anything, uint64(2)).Return(nil, service.ErrPledgeCanceled)
	pledges.On("UpdateSubscriptionAmount", mock.Anything, uint64(1), int64(4000)).
		Return(&dto.PledgeResponse{Id: 1, AmountCents: 4000}, nil)
	pledges.On("CreateSubscriptionForPledge", mock.Anything, uint64(1), "pm_card").
		Return(nil, service.ErrSubscriptionExists)
	pledges.On("Refund", mock.Anything, uint64(3)).Return(nil, service.ErrNoCharge)
	pledges.On("Refund", mock.Anything, uint64(4)).
		Return(&dto.RefundResponse{Id: 1, TransactionId: 4, StripeRefundId: "re_1"}, nil)

	app := newGivingApp(pledges, new(mockGivingService))
	token := tokenFor(t, serverutils.RoleAdmin)

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{fiber.MethodPost, "/admin/pledges/1/cancel", "", fiber.StatusOK},
		{fiber.MethodPost, "/admin/pledges/2/resume", "", fiber.StatusConflict},
		{fiber.MethodPatch, "/admin/pledges/1/amount", `{"amount_cents":4000}`, fiber.StatusOK},
		{fiber.MethodPatch, "/admin/pledges/1/amount", `{"amount_cents":0}`, fiber.StatusBadRequest},
		{fiber.MethodPost, "/admin/pledges/1/subscribe", `{"payment_method_id":"pm_card"}`, fiber.StatusConflict},
		{fiber.MethodPost, "/admin/transactions/3/refund", "", fiber.StatusConflict},
		{fiber.MethodPost, "/admin/transactions/4/refund", "", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.target), func(t *testing.T) {
			req := jsonRequest(tt.method, tt.target, tt.body)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, statusFor(fmt.Errorf("wrapped: %w", service.ErrPledgeNotFound)))
	assert.Equal(t, fiber.StatusBadRequest, statusFor(service.ErrInvalidInterval))
	assert.Equal(t, fiber.StatusConflict, statusFor(service.ErrNoSubscription))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(fmt.Errorf("processor down")))
}
