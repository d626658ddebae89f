package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/mapper"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/repository/contract"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
	"giving-ledger-be/pkg/clock"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

type DispatchStatus string

const (
	DispatchProcessed DispatchStatus = "processed"
	DispatchIgnored   DispatchStatus = "ignored"
	DispatchDuplicate DispatchStatus = "duplicate"
)

// Event types the ledger reacts to.
const (
	EventInvoicePaid                 = "invoice.paid"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventInvoicePaymentFailed        = "invoice.payment_failed"
	EventInvoicePaymentPaid          = "invoice_payment.paid"
	EventPaymentIntentSucceeded      = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed  = "payment_intent.payment_failed"
	EventChargeSucceeded             = "charge.succeeded"
	EventChargeRefunded              = "charge.refunded"
	EventRefundCreated               = "refund.created"
	EventRefundUpdated               = "refund.updated"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// IWebhookDispatcher routes a verified processor event to its handler and
// keeps the delivery log.
type IWebhookDispatcher interface {
	Dispatch(ctx context.Context, event stripe.Event) (DispatchStatus, error)
}

type webhookDispatcher struct {
	uowFactory unitofwork.RepositoryFactory
	handlers   IWebhookService
	mapper     *mapper.StripeEventMapper
	marker     contract.DeliveryMarker
	clock      clock.Clock
	logger     logger.ILogger
}

func NewWebhookDispatcher(
	uowFactory unitofwork.RepositoryFactory,
	handlers IWebhookService,
	marker contract.DeliveryMarker,
	clk clock.Clock,
	logger logger.ILogger,
) IWebhookDispatcher {
	return &webhookDispatcher{
		uowFactory: uowFactory,
		handlers:   handlers,
		mapper:     mapper.NewStripeEventMapper(),
		marker:     marker,
		clock:      clk,
		logger:     logger,
	}
}

func (d *webhookDispatcher) Dispatch(ctx context.Context, event stripe.Event) (DispatchStatus, error) {
	eventType := string(event.Type)

	if d.alreadyProcessed(ctx, event.ID) {
		d.logger.Info(logger.ModuleWebhook, "Duplicate delivery acknowledged", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
		})
		return DispatchDuplicate, nil
	}

	if event.Data == nil || event.Data.Object == nil {
		d.logger.Warn(logger.ModuleWebhook, "Event without data object", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
		})
		return DispatchIgnored, nil
	}

	delivery := d.recordDelivery(ctx, event)

	err := d.route(ctx, eventType, event.Data.Object)
	if errors.Is(err, ErrUnsupportedEventType) {
		d.finishDelivery(ctx, delivery, entity.WebhookEventStatusProcessed, "")
		return DispatchIgnored, nil
	}
	if err != nil {
		d.finishDelivery(ctx, delivery, entity.WebhookEventStatusFailed, err.Error())
		d.logger.Error(logger.ModuleWebhook, "Webhook handler failed", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
			"error":      err.Error(),
		})
		return "", err
	}

	d.finishDelivery(ctx, delivery, entity.WebhookEventStatusProcessed, "")
	if d.marker != nil && event.ID != "" {
		if err := d.marker.MarkProcessed(ctx, event.ID); err != nil {
			d.logger.Warn(logger.ModuleWebhook, "Failed to mark event processed", map[string]interface{}{
				"event_id": event.ID,
				"error":    err.Error(),
			})
		}
	}

	d.logger.Info(logger.ModuleWebhook, "Webhook processed", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
	})
	return DispatchProcessed, nil
}

func (d *webhookDispatcher) route(ctx context.Context, eventType string, obj map[string]interface{}) error {
	switch eventType {
	case EventInvoicePaid, EventInvoicePaymentSucceeded:
		return d.handlers.HandleInvoicePaid(ctx, d.mapper.ToInvoiceEvent(obj), eventType)
	case EventInvoicePaymentFailed:
		return d.handlers.HandleInvoicePaymentFailed(ctx, d.mapper.ToInvoiceEvent(obj))
	case EventInvoicePaymentPaid:
		return d.handlers.HandleInvoicePaymentPaid(ctx, d.mapper.ToInvoicePaymentEvent(obj))
	case EventPaymentIntentSucceeded:
		return d.handlers.HandlePaymentIntentSucceeded(ctx, d.mapper.ToPaymentIntentEvent(obj))
	case EventPaymentIntentPaymentFailed:
		return d.handlers.HandlePaymentIntentFailed(ctx, d.mapper.ToPaymentIntentEvent(obj))
	case EventChargeSucceeded:
		return d.handlers.HandleChargeSucceeded(ctx, d.mapper.ToChargeEvent(obj))
	case EventChargeRefunded:
		return d.handlers.HandleChargeRefunded(ctx, d.mapper.ToChargeEvent(obj))
	case EventRefundCreated, EventRefundUpdated:
		return d.handlers.HandleRefund(ctx, d.mapper.ToRefundEvent(obj))
	case EventCustomerSubscriptionUpdated:
		return d.handlers.HandleSubscriptionUpdated(ctx, d.mapper.ToSubscriptionEvent(obj))
	case EventCustomerSubscriptionDeleted:
		return d.handlers.HandleSubscriptionDeleted(ctx, d.mapper.ToSubscriptionEvent(obj))
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedEventType, eventType)
}

func (d *webhookDispatcher) alreadyProcessed(ctx context.Context, eventId string) bool {
	if d.marker == nil || eventId == "" {
		return false
	}
	done, err := d.marker.IsProcessed(ctx, eventId)
	if err != nil {
		d.logger.Warn(logger.ModuleWebhook, "Delivery marker lookup failed", map[string]interface{}{
			"event_id": eventId,
			"error":    err.Error(),
		})
		return false
	}
	return done
}

// recordDelivery upserts the audit row for this delivery. Failures are
// logged; the log is never needed for correctness.
func (d *webhookDispatcher) recordDelivery(ctx context.Context, event stripe.Event) *entity.WebhookEvent {
	if event.ID == "" {
		return nil
	}
	repo := d.uowFactory.NewUnitOfWork(ctx).WebhookEventRepository()

	payload := event.Data.Raw
	if len(payload) == 0 {
		payload, _ = json.Marshal(event.Data.Object)
	}

	for i := 0; i < 2; i++ {
		row, err := repo.FindOne(ctx, specification.ByEventId{EventId: event.ID})
		if err != nil {
			break
		}
		if row != nil {
			row.Attempts++
			row.Status = entity.WebhookEventStatusReceived
			if err := repo.Update(ctx, row); err != nil {
				break
			}
			return row
		}

		row = &entity.WebhookEvent{
			EventId:  event.ID,
			Type:     string(event.Type),
			Payload:  payload,
			Status:   entity.WebhookEventStatusReceived,
			Attempts: 1,
		}
		err = repo.Create(ctx, row)
		if err == nil {
			return row
		}
		// a concurrent delivery inserted it first; count this one on the next pass
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			d.logger.Warn(logger.ModuleWebhook, "Failed to record delivery", map[string]interface{}{
				"event_id": event.ID,
				"error":    err.Error(),
			})
			return nil
		}
	}
	return nil
}

func (d *webhookDispatcher) finishDelivery(ctx context.Context, row *entity.WebhookEvent, status entity.WebhookEventStatus, lastError string) {
	if row == nil {
		return
	}
	row.Status = status
	row.LastError = lastError
	if status == entity.WebhookEventStatusProcessed {
		now := d.clock.Now()
		row.ProcessedAt = &now
	}
	if err := d.uowFactory.NewUnitOfWork(ctx).WebhookEventRepository().Update(ctx, row); err != nil {
		d.logger.Warn(logger.ModuleWebhook, "Failed to update delivery", map[string]interface{}{
			"event_id": row.EventId,
			"error":    err.Error(),
		})
	}
}
