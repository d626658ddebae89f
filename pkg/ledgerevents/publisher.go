package ledgerevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/pkg/logger"
	pkgEvents "giving-ledger-be/pkg/events"
	pktNats "giving-ledger-be/pkg/nats"
)

// Publisher announces committed ledger facts. Calls never fail the caller;
// delivery problems are logged.
type Publisher interface {
	PublishTransactionSucceeded(ctx context.Context, tx *entity.Transaction)
	PublishPledgeActivated(ctx context.Context, pledge *entity.Pledge)
	PublishPledgeCanceled(ctx context.Context, pledge *entity.Pledge)
	PublishRefundCreated(ctx context.Context, refund *entity.Refund, tx *entity.Transaction)
	PublishUnmatchedPayment(ctx context.Context, tx *entity.Transaction, reason string)
}

// ReceiptQueue hands succeeded payments to the receipt mailer.
type ReceiptQueue interface {
	Publish(ctx context.Context, payload []byte) error
}

type ReceiptMessage struct {
	TransactionId uint64     `json:"transaction_id"`
	PayerEmail    string     `json:"payer_email"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	ReceiptUrl    string     `json:"receipt_url,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	Recurring     bool       `json:"recurring"`
}

// NatsPublisher implements Publisher using NATS. Either sink may be nil.
type NatsPublisher struct {
	publisher *pktNats.Publisher
	receipts  ReceiptQueue
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Publisher, receipts ReceiptQueue, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		receipts:  receipts,
		logger:    logger,
	}
}

func (p *NatsPublisher) publish(ctx context.Context, evt pkgEvents.BaseEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error(logger.ModuleEvents, fmt.Sprintf("Failed to publish %s event", evt.Type), map[string]interface{}{
			"error": err.Error(),
			"key":   evt.Key,
		})
	}
}

// PublishTransactionSucceeded emits TRANSACTION_SUCCEEDED and queues a receipt.
func (p *NatsPublisher) PublishTransactionSucceeded(ctx context.Context, tx *entity.Transaction) {
	now := time.Now()
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.TransactionSucceeded,
		Key:  fmt.Sprint(tx.Id),
		Data: map[string]interface{}{
			"transaction_id":    tx.Id,
			"pledge_id":         tx.PledgeId,
			"type":              tx.Type,
			"amount_cents":      tx.AmountCents,
			"currency":          tx.Currency,
			"payment_intent_id": tx.PaymentIntentId,
			"charge_id":         tx.ChargeId,
			"invoice_id":        tx.StripeInvoiceId,
			"paid_at":           tx.PaidAt,
			"entity_type":       "transaction",
			"entity_id":         fmt.Sprint(tx.Id),
		},
		OccurredAt: now,
	})

	if p.receipts == nil || tx.PayerEmail == "" {
		return
	}
	payload, err := json.Marshal(ReceiptMessage{
		TransactionId: tx.Id,
		PayerEmail:    tx.PayerEmail,
		AmountCents:   tx.AmountCents,
		Currency:      tx.Currency,
		ReceiptUrl:    tx.ReceiptUrl,
		PaidAt:        tx.PaidAt,
		Recurring:     tx.Type != entity.TransactionTypeOneTime,
	})
	if err != nil {
		return
	}
	if err := p.receipts.Publish(ctx, payload); err != nil {
		p.logger.Error(logger.ModuleEvents, "Failed to queue receipt", map[string]interface{}{
			"error":          err.Error(),
			"transaction_id": tx.Id,
		})
	}
}

// PublishPledgeActivated emits PLEDGE_ACTIVATED
func (p *NatsPublisher) PublishPledgeActivated(ctx context.Context, pledge *entity.Pledge) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.PledgeActivated,
		Key:  fmt.Sprintf("%d:%s", pledge.Id, pledge.SubscriptionId),
		Data: map[string]interface{}{
			"pledge_id":          pledge.Id,
			"subscription_id":    pledge.SubscriptionId,
			"amount_cents":       pledge.AmountCents,
			"currency":           pledge.Currency,
			"interval":           pledge.Interval,
			"current_period_end": pledge.CurrentPeriodEnd,
			"entity_type":        "pledge",
			"entity_id":          fmt.Sprint(pledge.Id),
		},
		OccurredAt: time.Now(),
	})
}

// PublishPledgeCanceled emits PLEDGE_CANCELED
func (p *NatsPublisher) PublishPledgeCanceled(ctx context.Context, pledge *entity.Pledge) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.PledgeCanceled,
		Key:  fmt.Sprint(pledge.Id),
		Data: map[string]interface{}{
			"pledge_id":       pledge.Id,
			"subscription_id": pledge.SubscriptionId,
			"entity_type":     "pledge",
			"entity_id":       fmt.Sprint(pledge.Id),
		},
		OccurredAt: time.Now(),
	})
}

// PublishRefundCreated emits REFUND_CREATED
func (p *NatsPublisher) PublishRefundCreated(ctx context.Context, refund *entity.Refund, tx *entity.Transaction) {
	data := map[string]interface{}{
		"refund_id":        refund.Id,
		"stripe_refund_id": refund.StripeRefundId,
		"transaction_id":   refund.TransactionId,
		"amount_cents":     refund.AmountCents,
		"currency":         refund.Currency,
		"status":           refund.Status,
		"entity_type":      "refund",
		"entity_id":        refund.StripeRefundId,
	}
	if tx != nil {
		data["pledge_id"] = tx.PledgeId
		data["payer_email"] = tx.PayerEmail
	}
	p.publish(ctx, pkgEvents.BaseEvent{
		Type:       pkgEvents.RefundCreated,
		Key:        refund.StripeRefundId,
		Data:       data,
		OccurredAt: time.Now(),
	})
}

// PublishUnmatchedPayment emits LEDGER_UNMATCHED_PAYMENT for rows the ledger
// had to create without any correlating pledge or placeholder.
func (p *NatsPublisher) PublishUnmatchedPayment(ctx context.Context, tx *entity.Transaction, reason string) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.LedgerUnmatchedPayment,
		Key:  fmt.Sprint(tx.Id),
		Data: map[string]interface{}{
			"transaction_id":    tx.Id,
			"invoice_id":        tx.StripeInvoiceId,
			"payment_intent_id": tx.PaymentIntentId,
			"subscription_id":   tx.SubscriptionId,
			"reason":            reason,
			"entity_type":       "transaction",
			"entity_id":         fmt.Sprint(tx.Id),
		},
		OccurredAt: time.Now(),
	})
}
