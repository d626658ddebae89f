package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v82"
)

func TestToSubscription_ItemPeriodsAndPaymentsList(t *testing.T) {
	raw := []byte(`{
		"id": "sub_1",
		"latest_invoice": {
			"id": "in_1",
			"status": "paid",
			"payments": {"data": [{"payment": {"type": "payment_intent", "payment_intent": "pi_1", "charge": null}}]}
		}
	}`)
	sub := &stripeapi.Subscription{
		APIResource:       stripeapi.APIResource{LastResponse: &stripeapi.APIResponse{RawJSON: raw}},
		ID:                "sub_1",
		Customer:          &stripeapi.Customer{ID: "cus_1"},
		Status:            stripeapi.SubscriptionStatusActive,
		CancelAtPeriodEnd: false,
		Items: &stripeapi.SubscriptionItemList{
			Data: []*stripeapi.SubscriptionItem{
				{
					ID:                 "si_1",
					CurrentPeriodStart: 1700000000,
					CurrentPeriodEnd:   1702592000,
					Price: &stripeapi.Price{
						ID:         "price_1",
						Product:    &stripeapi.Product{ID: "prod_1"},
						UnitAmount: 2500,
						Currency:   stripeapi.CurrencyUSD,
					},
				},
			},
		},
		LatestInvoice: &stripeapi.Invoice{ID: "in_1", Status: stripeapi.InvoiceStatusPaid, AmountPaid: 2750, AmountDue: 2750},
	}

	out := ToSubscription(sub)
	require.NotNil(t, out)

	assert.Equal(t, "sub_1", out.Id)
	assert.Equal(t, "cus_1", out.CustomerId)
	assert.Equal(t, "active", out.Status)
	assert.Equal(t, "si_1", out.ItemId)
	assert.Equal(t, "price_1", out.PriceId)
	assert.Equal(t, "prod_1", out.ProductId)
	assert.Equal(t, int64(2500), out.AmountCents)
	assert.Equal(t, "usd", out.Currency)
	require.NotNil(t, out.CurrentPeriodStart)
	require.NotNil(t, out.CurrentPeriodEnd)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *out.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), *out.CurrentPeriodEnd)
	assert.Equal(t, "in_1", out.LatestInvoiceId)
	assert.True(t, out.LatestInvoicePaid())
	assert.Equal(t, int64(2750), out.LatestInvoiceAmountCents)
	assert.Equal(t, "pi_1", out.LatestPaymentIntentId)
	assert.Empty(t, out.LatestChargeId)
}

func TestToSubscription_LegacyShape(t *testing.T) {
	raw := []byte(`{
		"id": "sub_2",
		"current_period_start": 1700000000,
		"current_period_end": 1702592000,
		"latest_invoice": {"id": "in_2", "status": "open", "amount_paid": 0, "amount_due": 1800, "payment_intent": {"id": "pi_2", "object": "payment_intent"}, "charge": "ch_2"}
	}`)
	sub := &stripeapi.Subscription{
		APIResource:   stripeapi.APIResource{LastResponse: &stripeapi.APIResponse{RawJSON: raw}},
		ID:            "sub_2",
		Status:        stripeapi.SubscriptionStatusIncomplete,
		LatestInvoice: &stripeapi.Invoice{ID: "in_2", Status: stripeapi.InvoiceStatusOpen},
	}

	out := ToSubscription(sub)
	require.NotNil(t, out)

	assert.Equal(t, "pi_2", out.LatestPaymentIntentId)
	assert.Equal(t, "ch_2", out.LatestChargeId)
	assert.False(t, out.LatestInvoicePaid())
	assert.Equal(t, int64(1800), out.LatestInvoiceAmountCents, "unpaid invoice reports amount due")
	require.NotNil(t, out.CurrentPeriodStart)
	assert.Equal(t, int64(1700000000), out.CurrentPeriodStart.Unix())
	assert.Equal(t, int64(1702592000), out.CurrentPeriodEnd.Unix())
}

func TestToSubscription_Nil(t *testing.T) {
	assert.Nil(t, ToSubscription(nil))
	assert.Nil(t, ToCharge(nil))
}

func TestToCharge(t *testing.T) {
	ch := &stripeapi.Charge{
		ID:            "ch_1",
		PaymentIntent: &stripeapi.PaymentIntent{ID: "pi_1"},
		Amount:        5000,
		Currency:      stripeapi.CurrencyUSD,
		Paid:          true,
		Status:        stripeapi.ChargeStatusSucceeded,
		ReceiptURL:    "https://pay/r/ch_1",
		PaymentMethodDetails: &stripeapi.ChargePaymentMethodDetails{
			Card: &stripeapi.ChargePaymentMethodDetailsCard{Brand: "visa", Last4: "4242"},
		},
	}

	out := ToCharge(ch)
	assert.Equal(t, "pi_1", out.PaymentIntentId)
	assert.Equal(t, "https://pay/r/ch_1", out.ReceiptUrl)
	assert.Equal(t, "succeeded", out.Status)
	assert.Equal(t, "visa", out.CardMeta["brand"])
	assert.Equal(t, "4242", out.CardMeta["last4"])
	assert.Nil(t, out.Created)
}
