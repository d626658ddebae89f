package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/repository/memory"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func invoicePaidEvent(eventId, invoiceId, subscriptionId string) stripe.Event {
	return stripe.Event{
		ID:   eventId,
		Type: stripe.EventType(EventInvoicePaid),
		Data: &stripe.EventData{Object: map[string]interface{}{
			"id":             invoiceId,
			"object":         "invoice",
			"subscription":   subscriptionId,
			"payment_intent": "pi_" + invoiceId,
			"amount_paid":    float64(2500),
			"currency":       "USD",
			"billing_reason": "subscription_cycle",
			"status":         "paid",
			"status_transitions": map[string]interface{}{
				"paid_at": float64(periodStart.Add(time.Hour).Unix()),
			},
			"lines": map[string]interface{}{
				"data": []interface{}{
					map[string]interface{}{
						"period": map[string]interface{}{
							"start": float64(periodStart.Unix()),
							"end":   float64(periodEnd.Unix()),
						},
					},
				},
			},
		}},
	}
}

func (h *harness) delivery(t *testing.T, eventId string) *entity.WebhookEvent {
	t.Helper()
	row, err := h.uow().WebhookEventRepository().FindOne(context.Background(), specification.ByEventId{EventId: eventId})
	require.NoError(t, err)
	require.NotNil(t, row)
	return row
}

func TestDispatchProcessesOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.createPledge(t, &entity.Pledge{
		SubscriptionId: "sub_d",
		DonorEmail:     "d@example.org",
		AmountCents:    2500,
		Status:         entity.PledgeStatusActive,
	})

	event := invoicePaidEvent("evt_1", "in_d", "sub_d")
	status, err := h.dispatcher.Dispatch(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, DispatchProcessed, status)

	rows := h.transactions(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "in_d", rows[0].StripeInvoiceId)
	assert.Equal(t, "pi_in_d", rows[0].PaymentIntentId)
	assert.Equal(t, "usd", rows[0].Currency)
	require.NotNil(t, rows[0].PledgeId)
	assert.Equal(t, p.Id, *rows[0].PledgeId)

	row := h.delivery(t, "evt_1")
	assert.Equal(t, entity.WebhookEventStatusProcessed, row.Status)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, EventInvoicePaid, row.Type)
	assert.NotNil(t, row.ProcessedAt)

	status, err = h.dispatcher.Dispatch(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, DispatchDuplicate, status)
	assert.EqualValues(t, 1, h.countTransactions(t))
	assert.Equal(t, 1, h.delivery(t, "evt_1").Attempts)
}

func TestDispatchFindsPledgeByLineItemMetadata(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.createPledge(t, &entity.Pledge{
		AttemptId:   "attempt-line",
		DonorEmail:  "d@example.org",
		AmountCents: 2500,
	})
	placeholder := h.createTransaction(t, &entity.Transaction{
		PledgeId:  &p.Id,
		AttemptId: "attempt-line",
		Type:      entity.TransactionTypeSubscriptionInitial,
	})

	// the subscription id is not on the pledge yet; only the line item says who paid
	event := invoicePaidEvent("evt_line", "in_line", "sub_line")
	obj := event.Data.Object
	obj["billing_reason"] = "subscription_create"
	line := obj["lines"].(map[string]interface{})["data"].([]interface{})[0].(map[string]interface{})
	line["metadata"] = map[string]interface{}{
		entity.MetaPledgeId:  strconv.FormatUint(p.Id, 10),
		entity.MetaAttemptId: "attempt-line",
	}

	status, err := h.dispatcher.Dispatch(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, DispatchProcessed, status)

	rows := h.transactions(t)
	require.Len(t, rows, 1)
	assert.Equal(t, placeholder.Id, rows[0].Id)
	assert.Equal(t, entity.TransactionStatusSucceeded, rows[0].Status)
	assert.Equal(t, "in_line", rows[0].StripeInvoiceId)
	assert.Nil(t, rows[0].Metadata[entity.MetaUnmatched])

	pledge := h.pledge(t, p.Id)
	assert.Equal(t, entity.PledgeStatusActive, pledge.Status)
	assert.Equal(t, "sub_line", pledge.SubscriptionId)
	assert.Empty(t, h.events.Unmatched)
}

func TestDispatchRedeliveryWithoutMarkerConverges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.createPledge(t, &entity.Pledge{SubscriptionId: "sub_d", DonorEmail: "d@example.org", AmountCents: 2500})

	dispatcher := NewWebhookDispatcher(h.factory, h.webhooks, nil, clock.Fixed{At: testNow}, logger.NewNopLogger())
	event := invoicePaidEvent("evt_2", "in_d", "sub_d")
	for i := 0; i < 3; i++ {
		status, err := dispatcher.Dispatch(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, DispatchProcessed, status)
	}

	assert.EqualValues(t, 1, h.countTransactions(t))
	assert.Len(t, h.events.Succeeded, 1)
	assert.Equal(t, 3, h.delivery(t, "evt_2").Attempts)
}

func TestDispatchIgnoresUnsupportedAndEmptyEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	status, err := h.dispatcher.Dispatch(ctx, stripe.Event{
		ID:   "evt_cust",
		Type: "customer.created",
		Data: &stripe.EventData{Object: map[string]interface{}{"id": "cus_1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, DispatchIgnored, status)
	assert.Equal(t, entity.WebhookEventStatusProcessed, h.delivery(t, "evt_cust").Status)

	status, err = h.dispatcher.Dispatch(ctx, stripe.Event{ID: "evt_empty", Type: stripe.EventType(EventInvoicePaid)})
	require.NoError(t, err)
	assert.Equal(t, DispatchIgnored, status)
	assert.Zero(t, h.countTransactions(t))
}

type mockWebhookHandlers struct {
	IWebhookService
	mock.Mock
}

func (m *mockWebhookHandlers) HandleInvoicePaid(ctx context.Context, inv *dto.InvoiceEvent, eventType string) error {
	args := m.Called(ctx, inv, eventType)
	return args.Error(0)
}

func TestDispatchRecordsHandlerFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	handlers := new(mockWebhookHandlers)
	boom := errors.New("database unavailable")
	handlers.On("HandleInvoicePaid", mock.Anything, mock.MatchedBy(func(inv *dto.InvoiceEvent) bool {
		return inv.Id == "in_f" && inv.SubscriptionId == "sub_f"
	}), EventInvoicePaid).Return(boom).Once()
	handlers.On("HandleInvoicePaid", mock.Anything, mock.Anything, EventInvoicePaid).Return(nil).Once()

	marker := memory.NewDeliveryMarker(time.Hour)
	dispatcher := NewWebhookDispatcher(h.factory, handlers, marker, clock.Fixed{At: testNow}, logger.NewNopLogger())
	event := invoicePaidEvent("evt_fail", "in_f", "sub_f")

	_, err := dispatcher.Dispatch(ctx, event)
	require.ErrorIs(t, err, boom)

	row := h.delivery(t, "evt_fail")
	assert.Equal(t, entity.WebhookEventStatusFailed, row.Status)
	assert.Equal(t, boom.Error(), row.LastError)
	assert.Nil(t, row.ProcessedAt)

	done, err := marker.IsProcessed(ctx, "evt_fail")
	require.NoError(t, err)
	assert.False(t, done)

	status, err := dispatcher.Dispatch(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, DispatchProcessed, status)

	row = h.delivery(t, "evt_fail")
	assert.Equal(t, entity.WebhookEventStatusProcessed, row.Status)
	assert.Equal(t, 2, row.Attempts)
	handlers.AssertExpectations(t)
}
