package stripemeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func TestExtractID(t *testing.T) {
	piID := "pi_ptr"
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, ""},
		{"bare string", "pi_123", "pi_123"},
		{"padded string", "  in_1 ", "in_1"},
		{"string pointer", &piID, "pi_ptr"},
		{"nil string pointer", (*string)(nil), ""},
		{"expanded map", map[string]any{"id": "ch_9", "object": "charge"}, "ch_9"},
		{"map without id", map[string]any{"object": "charge"}, ""},
		{"map with non-string id", map[string]any{"id": 42}, ""},
		{"typed struct", &stripe.PaymentIntent{ID: "pi_typed"}, "pi_typed"},
		{"nil typed struct", (*stripe.Invoice)(nil), ""},
		{"struct value with Id", struct{ Id string }{Id: "sub_1"}, "sub_1"},
		{"number", 12, ""},
		{"slice", []string{"pi_1"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractID(tt.input))
		})
	}
}

func TestMergeMetadata(t *testing.T) {
	t.Run("extra wins and existing is untouched", func(t *testing.T) {
		existing := map[string]any{"a": "1", "b": "2"}
		merged := MergeMetadata(existing, map[string]any{"b": "3", "c": "4"})

		assert.Equal(t, map[string]any{"a": "1", "b": "3", "c": "4"}, merged)
		assert.Equal(t, map[string]any{"a": "1", "b": "2"}, existing)
	})

	t.Run("json string", func(t *testing.T) {
		merged := MergeMetadata(`{"pledge_id":"7"}`, map[string]any{"brand": "visa"})
		assert.Equal(t, map[string]any{"pledge_id": "7", "brand": "visa"}, merged)
	})

	t.Run("json bytes", func(t *testing.T) {
		merged := MergeMetadata([]byte(`{"x":1}`), nil)
		assert.Equal(t, map[string]any{"x": float64(1)}, merged)
	})

	t.Run("nil and garbage", func(t *testing.T) {
		assert.Empty(t, MergeMetadata(nil, nil))
		assert.Equal(t, map[string]any{"k": "v"}, MergeMetadata("not json", map[string]any{"k": "v"}))
		assert.Equal(t, map[string]any{"k": "v"}, MergeMetadata(`["array"]`, map[string]any{"k": "v"}))
	})
}

func TestCardMetaFromCharge(t *testing.T) {
	t.Run("map shaped", func(t *testing.T) {
		charge := map[string]any{
			"payment_method_details": map[string]any{
				"card": map[string]any{
					"brand":     "visa",
					"last4":     "4242",
					"country":   "US",
					"funding":   nil,
					"exp_month": float64(12),
					"exp_year":  float64(2030),
				},
			},
		}

		meta := CardMetaFromCharge(charge)
		assert.Equal(t, map[string]any{
			"brand":     "visa",
			"last4":     "4242",
			"country":   "US",
			"exp_month": float64(12),
			"exp_year":  float64(2030),
		}, meta)
	})

	t.Run("struct shaped", func(t *testing.T) {
		charge := &stripe.Charge{
			PaymentMethodDetails: &stripe.ChargePaymentMethodDetails{
				Card: &stripe.ChargePaymentMethodDetailsCard{
					Brand:    "mastercard",
					Last4:    "4444",
					Funding:  "credit",
					ExpMonth: 1,
					ExpYear:  2029,
				},
			},
		}

		meta := CardMetaFromCharge(charge)
		assert.Equal(t, "mastercard", meta["brand"])
		assert.Equal(t, "4444", meta["last4"])
		assert.Equal(t, "credit", meta["funding"])
		assert.Equal(t, int64(1), meta["exp_month"])
		assert.Equal(t, int64(2029), meta["exp_year"])
		assert.NotContains(t, meta, "country")
	})

	t.Run("missing details", func(t *testing.T) {
		assert.Empty(t, CardMetaFromCharge(nil))
		assert.Empty(t, CardMetaFromCharge("ch_1"))
		assert.Empty(t, CardMetaFromCharge(map[string]any{"payment_method_details": nil}))
	})
}

func TestReceiptURLFromCharge(t *testing.T) {
	assert.Equal(t, "https://pay/r/1", ReceiptURLFromCharge(map[string]any{"receipt_url": "https://pay/r/1"}))
	assert.Equal(t, "https://pay/r/2", ReceiptURLFromCharge(&stripe.Charge{ReceiptURL: "https://pay/r/2"}))
	assert.Equal(t, "", ReceiptURLFromCharge(map[string]any{"receipt_url": nil}))
	assert.Equal(t, "", ReceiptURLFromCharge(nil))
}

func TestLookup(t *testing.T) {
	payload := map[string]any{
		"latest_invoice": map[string]any{
			"payments": map[string]any{
				"data": []any{
					map[string]any{"payment": map[string]any{"payment_intent": "pi_basil"}},
				},
			},
		},
	}

	assert.Equal(t, "pi_basil", Lookup(payload, "latest_invoice", "payments", "data", "0", "payment", "payment_intent"))
	assert.Nil(t, Lookup(payload, "latest_invoice", "payments", "data", "1"))
	assert.Nil(t, Lookup(payload, "latest_invoice", "payment_intent"))
	assert.Nil(t, Lookup(nil, "a"))
	assert.Equal(t, payload, Lookup(payload))
}

func TestScalars(t *testing.T) {
	assert.Equal(t, "12", String(float64(12)))
	assert.Equal(t, "pi_1", String(map[string]any{"id": "pi_1"}))
	assert.Equal(t, "", String(nil))
	assert.Equal(t, int64(2500), Int64(float64(2500)))
	assert.Equal(t, int64(7), Int64("7"))
	assert.Equal(t, int64(0), Int64("seven"))
	assert.True(t, Bool(true))
	assert.False(t, Bool("true"))
}
