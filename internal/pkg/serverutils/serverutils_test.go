package serverutils

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	DonorEmail  string `validate:"required,email"`
	AmountCents int64  `validate:"required,gt=0"`
	Interval    string `validate:"omitempty,oneof=day week month year"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{DonorEmail: "d@example.org", AmountCents: 1}))

	err := ValidateRequest(sampleRequest{DonorEmail: "nope", Interval: "fortnight"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be a valid email", verr.Fields["donor_email"])
	assert.Equal(t, "is required", verr.Fields["amount_cents"])
	assert.Equal(t, "must be one of [day week month year]", verr.Fields["interval"])
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "s3cret"
	app := fiber.New()
	app.Use(JwtMiddleware(secret, RoleAdmin))
	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("user_id").(string))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"role": RoleAdmin}), fiber.StatusUnauthorized},
		{"wrong algorithm", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"role": RoleAdmin}), fiber.StatusUnauthorized},
		{"wrong role", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": "donor", "user_id": "u1"}), fiber.StatusForbidden},
		{"admin", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": RoleAdmin, "user_id": "u1"}), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/validation", func(ctx *fiber.Ctx) error {
		return &ValidationError{Fields: map[string]string{"amount_cents": "is required"}}
	})
	app.Get("/fiber", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "conflict")
	})
	app.Get("/other", func(ctx *fiber.Ctx) error {
		return errors.New("boom")
	})

	for target, status := range map[string]int{
		"/validation": fiber.StatusBadRequest,
		"/fiber":      fiber.StatusConflict,
		"/other":      fiber.StatusInternalServerError,
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, target)
	}
}
