package mapper

import (
	"strings"
	"time"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/pkg/stripemeta"
)

// StripeEventMapper normalizes event.data.object into typed events. Fields
// that moved between API versions are read from every location they have
// lived in, newest first.
type StripeEventMapper struct{}

func NewStripeEventMapper() *StripeEventMapper {
	return &StripeEventMapper{}
}

func (m *StripeEventMapper) ToInvoiceEvent(obj map[string]any) *dto.InvoiceEvent {
	ev := &dto.InvoiceEvent{
		Id:               str(obj, "id"),
		CustomerId:       firstID(obj, []string{"customer"}),
		CustomerEmail:    strings.TrimSpace(str(obj, "customer_email")),
		CustomerName:     str(obj, "customer_name"),
		AmountPaid:       stripemeta.Int64(stripemeta.Lookup(obj, "amount_paid")),
		AmountDue:        stripemeta.Int64(stripemeta.Lookup(obj, "amount_due")),
		Currency:         strings.ToLower(str(obj, "currency")),
		BillingReason:    str(obj, "billing_reason"),
		Status:           str(obj, "status"),
		HostedInvoiceUrl: str(obj, "hosted_invoice_url"),
	}

	ev.SubscriptionId = firstID(obj,
		[]string{"parent", "subscription_details", "subscription"},
		[]string{"subscription"},
		[]string{"lines", "data", "0", "parent", "subscription_item_details", "subscription"},
		[]string{"lines", "data", "0", "subscription"},
	)
	ev.PaymentIntentId = firstID(obj,
		[]string{"payment_intent"},
		[]string{"payments", "data", "0", "payment", "payment_intent"},
	)
	ev.ChargeId = firstID(obj,
		[]string{"charge"},
		[]string{"payments", "data", "0", "payment", "charge"},
		[]string{"payment_intent", "latest_charge"},
	)

	ev.PaidAt = unixAt(obj, "status_transitions", "paid_at")
	ev.PeriodStart = unixAt(obj, "lines", "data", "0", "period", "start")
	ev.PeriodEnd = unixAt(obj, "lines", "data", "0", "period", "end")

	ev.Metadata = mergeStringMaps(
		stringMap(stripemeta.Lookup(obj, "subscription_details", "metadata")),
		stringMap(stripemeta.Lookup(obj, "parent", "subscription_details", "metadata")),
		stringMap(stripemeta.Lookup(obj, "lines", "data", "0", "metadata")),
		stringMap(stripemeta.Lookup(obj, "metadata")),
	)
	return ev
}

func (m *StripeEventMapper) ToPaymentIntentEvent(obj map[string]any) *dto.PaymentIntentEvent {
	amount := stripemeta.Int64(stripemeta.Lookup(obj, "amount_received"))
	if amount == 0 {
		amount = stripemeta.Int64(stripemeta.Lookup(obj, "amount"))
	}
	ev := &dto.PaymentIntentEvent{
		Id:               str(obj, "id"),
		InvoiceId:        firstID(obj, []string{"invoice"}),
		CustomerId:       firstID(obj, []string{"customer"}),
		AmountCents:      amount,
		Currency:         strings.ToLower(str(obj, "currency")),
		Status:           str(obj, "status"),
		ReceiptEmail:     strings.TrimSpace(str(obj, "receipt_email")),
		LastErrorMessage: stripemeta.String(stripemeta.Lookup(obj, "last_payment_error", "message")),
		Metadata:         stringMap(stripemeta.Lookup(obj, "metadata")),
	}
	ev.LatestChargeId = firstID(obj,
		[]string{"latest_charge"},
		[]string{"charges", "data", "0"},
	)

	if charge, ok := stripemeta.Lookup(obj, "latest_charge").(map[string]any); ok {
		ev.Charge = m.ToChargeEvent(charge)
	} else if charge, ok := stripemeta.Lookup(obj, "charges", "data", "0").(map[string]any); ok {
		ev.Charge = m.ToChargeEvent(charge)
	}
	return ev
}

func (m *StripeEventMapper) ToSubscriptionEvent(obj map[string]any) *dto.SubscriptionEvent {
	ev := &dto.SubscriptionEvent{
		Id:                str(obj, "id"),
		CustomerId:        firstID(obj, []string{"customer"}),
		Status:            str(obj, "status"),
		CancelAtPeriodEnd: stripemeta.Bool(stripemeta.Lookup(obj, "cancel_at_period_end")),
		ItemId:            str(obj, "items", "data", "0", "id"),
		PriceId:           firstID(obj, []string{"items", "data", "0", "price"}),
		ProductId:         firstID(obj, []string{"items", "data", "0", "price", "product"}),
		AmountCents:       stripemeta.Int64(stripemeta.Lookup(obj, "items", "data", "0", "price", "unit_amount")),
		Currency:          strings.ToLower(str(obj, "items", "data", "0", "price", "currency")),
		Interval:          str(obj, "items", "data", "0", "price", "recurring", "interval"),
		LatestInvoiceId:   firstID(obj, []string{"latest_invoice"}),
		Metadata:          stringMap(stripemeta.Lookup(obj, "metadata")),
	}

	ev.CurrentPeriodStart = unixAt(obj, "items", "data", "0", "current_period_start")
	if ev.CurrentPeriodStart == nil {
		ev.CurrentPeriodStart = unixAt(obj, "current_period_start")
	}
	ev.CurrentPeriodEnd = unixAt(obj, "items", "data", "0", "current_period_end")
	if ev.CurrentPeriodEnd == nil {
		ev.CurrentPeriodEnd = unixAt(obj, "current_period_end")
	}
	return ev
}

func (m *StripeEventMapper) ToChargeEvent(obj map[string]any) *dto.ChargeEvent {
	ev := &dto.ChargeEvent{
		Id:              str(obj, "id"),
		PaymentIntentId: firstID(obj, []string{"payment_intent"}),
		InvoiceId:       firstID(obj, []string{"invoice"}),
		CustomerId:      firstID(obj, []string{"customer"}),
		AmountCents:     stripemeta.Int64(stripemeta.Lookup(obj, "amount")),
		AmountRefunded:  stripemeta.Int64(stripemeta.Lookup(obj, "amount_refunded")),
		Currency:        strings.ToLower(str(obj, "currency")),
		Paid:            stripemeta.Bool(stripemeta.Lookup(obj, "paid")),
		Status:          str(obj, "status"),
		ReceiptUrl:      stripemeta.ReceiptURLFromCharge(obj),
		CardMeta:        stripemeta.CardMetaFromCharge(obj),
		Created:         unixAt(obj, "created"),
	}

	if list, ok := stripemeta.Lookup(obj, "refunds", "data").([]any); ok {
		for _, item := range list {
			r, ok := item.(map[string]any)
			if !ok {
				continue
			}
			refund := m.ToRefundEvent(r)
			if refund.ChargeId == "" {
				refund.ChargeId = ev.Id
			}
			ev.Refunds = append(ev.Refunds, *refund)
		}
	}
	return ev
}

func (m *StripeEventMapper) ToRefundEvent(obj map[string]any) *dto.RefundEvent {
	return &dto.RefundEvent{
		Id:              str(obj, "id"),
		ChargeId:        firstID(obj, []string{"charge"}),
		PaymentIntentId: firstID(obj, []string{"payment_intent"}),
		AmountCents:     stripemeta.Int64(stripemeta.Lookup(obj, "amount")),
		Currency:        strings.ToLower(str(obj, "currency")),
		Status:          str(obj, "status"),
		Reason:          str(obj, "reason"),
		Metadata:        stringMap(stripemeta.Lookup(obj, "metadata")),
	}
}

func (m *StripeEventMapper) ToInvoicePaymentEvent(obj map[string]any) *dto.InvoicePaymentEvent {
	return &dto.InvoicePaymentEvent{
		Id:              str(obj, "id"),
		InvoiceId:       firstID(obj, []string{"invoice"}),
		PaymentIntentId: firstID(obj, []string{"payment", "payment_intent"}),
		ChargeId:        firstID(obj, []string{"payment", "charge"}),
		Status:          str(obj, "status"),
	}
}

func str(obj map[string]any, path ...string) string {
	return strings.TrimSpace(stripemeta.String(stripemeta.Lookup(obj, path...)))
}

func firstID(obj map[string]any, paths ...[]string) string {
	for _, path := range paths {
		if id := stripemeta.ExtractID(stripemeta.Lookup(obj, path...)); id != "" {
			return id
		}
	}
	return ""
}

func unixAt(obj map[string]any, path ...string) *time.Time {
	sec := stripemeta.Int64(stripemeta.Lookup(obj, path...))
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func stringMap(v any) map[string]string {
	out := map[string]string{}
	for k, val := range stripemeta.ToMap(v) {
		if s := stripemeta.String(val); s != "" {
			out[k] = s
		}
	}
	return out
}

// mergeStringMaps layers maps left to right; later maps win.
func mergeStringMaps(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
