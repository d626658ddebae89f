package mapper

import (
	"encoding/json"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/model"

	"gorm.io/datatypes"
)

type LedgerMapper struct{}

func NewLedgerMapper() *LedgerMapper {
	return &LedgerMapper{}
}

func (m *LedgerMapper) PledgeToEntity(p *model.Pledge) *entity.Pledge {
	if p == nil {
		return nil
	}
	return &entity.Pledge{
		Id:                    p.Id,
		UserId:                p.UserId,
		AttemptId:             p.AttemptId,
		SubscriptionId:        fromNullable(p.SubscriptionId),
		CustomerId:            p.CustomerId,
		DonorEmail:            p.DonorEmail,
		DonorName:             p.DonorName,
		AmountCents:           p.AmountCents,
		Currency:              p.Currency,
		Interval:              entity.PledgeInterval(p.Interval),
		Status:                entity.PledgeStatus(p.Status),
		CancelAtPeriodEnd:     p.CancelAtPeriodEnd,
		CurrentPeriodStart:    p.CurrentPeriodStart,
		CurrentPeriodEnd:      p.CurrentPeriodEnd,
		LastPledgeAt:          p.LastPledgeAt,
		NextPledgeAt:          p.NextPledgeAt,
		LatestInvoiceId:       p.LatestInvoiceId,
		LatestPaymentIntentId: p.LatestPaymentIntentId,
		StripePriceId:         p.StripePriceId,
		StripeProductId:       p.StripeProductId,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (m *LedgerMapper) PledgeToModel(p *entity.Pledge) *model.Pledge {
	if p == nil {
		return nil
	}
	return &model.Pledge{
		Id:                    p.Id,
		UserId:                p.UserId,
		AttemptId:             p.AttemptId,
		SubscriptionId:        toNullable(p.SubscriptionId),
		CustomerId:            p.CustomerId,
		DonorEmail:            p.DonorEmail,
		DonorName:             p.DonorName,
		AmountCents:           p.AmountCents,
		Currency:              p.Currency,
		Interval:              string(p.Interval),
		Status:                string(p.Status),
		CancelAtPeriodEnd:     p.CancelAtPeriodEnd,
		CurrentPeriodStart:    p.CurrentPeriodStart,
		CurrentPeriodEnd:      p.CurrentPeriodEnd,
		LastPledgeAt:          p.LastPledgeAt,
		NextPledgeAt:          p.NextPledgeAt,
		LatestInvoiceId:       p.LatestInvoiceId,
		LatestPaymentIntentId: p.LatestPaymentIntentId,
		StripePriceId:         p.StripePriceId,
		StripeProductId:       p.StripeProductId,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (m *LedgerMapper) TransactionToEntity(t *model.Transaction) *entity.Transaction {
	if t == nil {
		return nil
	}
	return &entity.Transaction{
		Id:              t.Id,
		PledgeId:        t.PledgeId,
		StripeInvoiceId: fromNullable(t.StripeInvoiceId),
		PaymentIntentId: fromNullable(t.PaymentIntentId),
		ChargeId:        fromNullable(t.ChargeId),
		SubscriptionId:  t.SubscriptionId,
		CustomerId:      t.CustomerId,
		AttemptId:       t.AttemptId,
		UserId:          t.UserId,
		PayerEmail:      t.PayerEmail,
		Type:            entity.TransactionType(t.Type),
		Status:          entity.TransactionStatus(t.Status),
		AmountCents:     t.AmountCents,
		Currency:        t.Currency,
		PaidAt:          t.PaidAt,
		ReceiptUrl:      fromNullable(t.ReceiptUrl),
		Metadata:        decodeMetadata(t.Metadata),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (m *LedgerMapper) TransactionToModel(t *entity.Transaction) *model.Transaction {
	if t == nil {
		return nil
	}
	return &model.Transaction{
		Id:              t.Id,
		PledgeId:        t.PledgeId,
		StripeInvoiceId: toNullable(t.StripeInvoiceId),
		PaymentIntentId: toNullable(t.PaymentIntentId),
		ChargeId:        toNullable(t.ChargeId),
		SubscriptionId:  t.SubscriptionId,
		CustomerId:      t.CustomerId,
		AttemptId:       t.AttemptId,
		UserId:          t.UserId,
		PayerEmail:      t.PayerEmail,
		Type:            string(t.Type),
		Status:          string(t.Status),
		AmountCents:     t.AmountCents,
		Currency:        t.Currency,
		PaidAt:          t.PaidAt,
		ReceiptUrl:      toNullable(t.ReceiptUrl),
		Metadata:        encodeMetadata(t.Metadata),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (m *LedgerMapper) RefundToEntity(r *model.Refund) *entity.Refund {
	if r == nil {
		return nil
	}
	return &entity.Refund{
		Id:             r.Id,
		TransactionId:  r.TransactionId,
		StripeRefundId: r.StripeRefundId,
		ChargeId:       r.ChargeId,
		AmountCents:    r.AmountCents,
		Currency:       r.Currency,
		Status:         r.Status,
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (m *LedgerMapper) RefundToModel(r *entity.Refund) *model.Refund {
	if r == nil {
		return nil
	}
	return &model.Refund{
		Id:             r.Id,
		TransactionId:  r.TransactionId,
		StripeRefundId: r.StripeRefundId,
		ChargeId:       r.ChargeId,
		AmountCents:    r.AmountCents,
		Currency:       r.Currency,
		Status:         r.Status,
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (m *LedgerMapper) WebhookEventToEntity(e *model.WebhookEvent) *entity.WebhookEvent {
	if e == nil {
		return nil
	}
	return &entity.WebhookEvent{
		Id:          e.Id,
		EventId:     e.EventId,
		Type:        e.Type,
		Payload:     json.RawMessage(e.Payload),
		Status:      entity.WebhookEventStatus(e.Status),
		Attempts:    e.Attempts,
		LastError:   e.LastError,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (m *LedgerMapper) WebhookEventToModel(e *entity.WebhookEvent) *model.WebhookEvent {
	if e == nil {
		return nil
	}
	return &model.WebhookEvent{
		Id:          e.Id,
		EventId:     e.EventId,
		Type:        e.Type,
		Payload:     datatypes.JSON(e.Payload),
		Status:      string(e.Status),
		Attempts:    e.Attempts,
		LastError:   e.LastError,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toNullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encodeMetadata(meta map[string]any) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func decodeMetadata(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
