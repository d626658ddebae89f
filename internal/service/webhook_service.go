package service

import (
	"context"
	"fmt"
	"strings"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
	"giving-ledger-be/pkg/clock"
	"giving-ledger-be/pkg/ledgerevents"
	"giving-ledger-be/pkg/processor"
	"giving-ledger-be/pkg/stripemeta"

	"github.com/google/uuid"
)

// IWebhookService reconciles processor events into the ledger. Every handler
// is safe to re-run with the same event and tolerates any arrival order.
type IWebhookService interface {
	HandleInvoicePaid(ctx context.Context, inv *dto.InvoiceEvent, eventType string) error
	HandleInvoicePaymentFailed(ctx context.Context, inv *dto.InvoiceEvent) error
	HandleInvoicePaymentPaid(ctx context.Context, ev *dto.InvoicePaymentEvent) error
	HandlePaymentIntentSucceeded(ctx context.Context, pi *dto.PaymentIntentEvent) error
	HandlePaymentIntentFailed(ctx context.Context, pi *dto.PaymentIntentEvent) error
	HandleChargeSucceeded(ctx context.Context, charge *dto.ChargeEvent) error
	HandleChargeRefunded(ctx context.Context, charge *dto.ChargeEvent) error
	HandleRefund(ctx context.Context, refund *dto.RefundEvent) error
	HandleSubscriptionUpdated(ctx context.Context, sub *dto.SubscriptionEvent) error
	HandleSubscriptionDeleted(ctx context.Context, sub *dto.SubscriptionEvent) error
}

type webhookService struct {
	uowFactory unitofwork.RepositoryFactory
	pledges    IPledgeService
	claimer    ITransactionClaimer
	resolver   ITransactionResolver
	gateway    processor.Gateway
	publisher  ledgerevents.Publisher
	clock      clock.Clock
	logger     logger.ILogger
}

func NewWebhookService(
	uowFactory unitofwork.RepositoryFactory,
	pledges IPledgeService,
	claimer ITransactionClaimer,
	resolver ITransactionResolver,
	gateway processor.Gateway,
	publisher ledgerevents.Publisher,
	clk clock.Clock,
	logger logger.ILogger,
) IWebhookService {
	return &webhookService{
		uowFactory: uowFactory,
		pledges:    pledges,
		claimer:    claimer,
		resolver:   resolver,
		gateway:    gateway,
		publisher:  publisher,
		clock:      clk,
		logger:     logger,
	}
}

// --- Invoices ---

func (s *webhookService) HandleInvoicePaid(ctx context.Context, inv *dto.InvoiceEvent, eventType string) error {
	if inv == nil || inv.Id == "" {
		s.logger.Warn(logger.ModuleWebhook, "Invoice event without invoice id", map[string]interface{}{
			"event_type": eventType,
		})
		return nil
	}

	// processor reads happen before the transaction opens
	charge := s.fetchCharge(ctx, inv.ChargeId)
	s.fillInvoicePeriod(ctx, inv)

	hooks := &afterCommit{}
	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()
		return s.applyInvoicePaid(ctx, uow, inv, charge, hooks)
	})
	if err != nil {
		return fmt.Errorf("handle %s %s: %w", eventType, inv.Id, err)
	}
	hooks.run(ctx)
	return nil
}

func (s *webhookService) applyInvoicePaid(ctx context.Context, uow unitofwork.UnitOfWork, inv *dto.InvoiceEvent, charge *dto.ChargeEvent, hooks *afterCommit) error {
	pledge, err := lockPledge(ctx, uow, inv.SubscriptionId, inv.Metadata)
	if err != nil {
		return err
	}
	if pledge != nil && pledge.SubscriptionId == "" && inv.SubscriptionId != "" {
		pledge.SubscriptionId = inv.SubscriptionId
	}

	tx, err := s.resolver.Resolve(ctx, uow, pledge, inv.Id, inv.PaymentIntentId)
	if err != nil {
		return err
	}
	unmatched := false
	if tx == nil {
		tx = newInvoiceTransaction(inv, pledge)
		if pledge == nil {
			unmatched = true
			tx.SetMeta(entity.MetaUnmatched, true)
			s.logger.Warn(logger.ModuleLedger, "Paid invoice matches no pledge or placeholder; recording unmatched row", map[string]interface{}{
				"invoice_id":        inv.Id,
				"payment_intent_id": inv.PaymentIntentId,
				"subscription_id":   inv.SubscriptionId,
			})
		}
	}
	adoptInvoice(tx, inv, pledge)

	owner, err := s.claimer.ClaimPaymentIntent(ctx, uow, tx, inv.PaymentIntentId)
	if err != nil {
		return err
	}
	if owner != tx {
		tx = owner
		adoptInvoice(tx, inv, pledge)
	} else if inv.PaymentIntentId != "" && tx.PaymentIntentId != inv.PaymentIntentId {
		tx.SetMeta(entity.MetaPaymentIntentId, inv.PaymentIntentId)
	}

	tx, err = s.claimInvoiceFor(ctx, uow, tx, inv.Id, inv.PaymentIntentId)
	if err != nil {
		return err
	}
	adoptInvoice(tx, inv, pledge)

	chargeId := inv.ChargeId
	if chargeId == "" && charge != nil {
		chargeId = charge.Id
	}
	owner, err = s.claimer.ClaimCharge(ctx, uow, tx, chargeId)
	if err != nil {
		return err
	}
	if owner != tx {
		tx.SetMeta(entity.MetaChargeId, chargeId)
	}

	newlySucceeded := !tx.IsSucceeded()
	tx.Status = entity.TransactionStatusSucceeded
	if tx.PaidAt == nil {
		paidAt := s.clock.Now()
		if inv.PaidAt != nil {
			paidAt = *inv.PaidAt
		}
		tx.PaidAt = &paidAt
	}
	if tx.ReceiptUrl == "" {
		if charge != nil && charge.ReceiptUrl != "" {
			tx.ReceiptUrl = charge.ReceiptUrl
		} else {
			tx.ReceiptUrl = inv.HostedInvoiceUrl
		}
	}
	if charge != nil && len(charge.CardMeta) > 0 {
		tx.Metadata = stripemeta.MergeMetadata(tx.Metadata, map[string]any{entity.MetaCard: charge.CardMeta})
	}
	if pledge != nil && tx.Type == entity.TransactionTypeSubscriptionInitial {
		if err := s.retirePlaceholder(ctx, uow, pledge, tx); err != nil {
			return err
		}
	}
	if err := saveTransaction(ctx, uow, tx); err != nil {
		return err
	}

	snapshot := *tx
	if newlySucceeded {
		hooks.add(func(ctx context.Context) { s.publisher.PublishTransactionSucceeded(ctx, &snapshot) })
	}
	if unmatched {
		hooks.add(func(ctx context.Context) {
			s.publisher.PublishUnmatchedPayment(ctx, &snapshot, "invoice matched no pledge, attempt or transaction")
		})
	}

	if pledge == nil {
		return nil
	}
	transition := applyInvoiceToPledge(pledge, inv, *tx.PaidAt)
	if err := uow.PledgeRepository().Update(ctx, pledge); err != nil {
		return err
	}
	if transition.Activated {
		activated := *pledge
		hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeActivated(ctx, &activated) })
	}
	return nil
}

// claimInvoiceFor attaches invoiceId to tx, or settles which row keeps it
// when another row already holds the invoice. A row that holds the invoice
// but never saw a payment intent yields to tx when tx owns the event's
// payment intent.
func (s *webhookService) claimInvoiceFor(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, invoiceId, paymentIntentId string) (*entity.Transaction, error) {
	owner, err := s.claimer.ClaimInvoice(ctx, uow, tx, invoiceId)
	if err != nil {
		return nil, err
	}
	if owner == tx {
		return tx, nil
	}

	if tx.Id != 0 && tx.PaymentIntentId != "" && tx.StripeInvoiceId == "" && owner.PaymentIntentId == "" {
		return s.supersede(ctx, uow, owner, tx, invoiceId)
	}

	// the invoice row stays canonical; the intent it could not take is
	// remembered in its metadata
	if paymentIntentId != "" {
		claimed, err := s.claimer.ClaimPaymentIntent(ctx, uow, owner, paymentIntentId)
		if err != nil {
			return nil, err
		}
		if claimed != owner || owner.PaymentIntentId != paymentIntentId {
			owner.SetMeta(entity.MetaPaymentIntentId, paymentIntentId)
		}
	}
	return owner, nil
}

// supersede moves invoiceId from loser to winner. The loser points at the
// winner in metadata and stops counting as a payment.
func (s *webhookService) supersede(ctx context.Context, uow unitofwork.UnitOfWork, loser, winner *entity.Transaction, invoiceId string) (*entity.Transaction, error) {
	absorb(winner, loser)

	loser.StripeInvoiceId = ""
	loser.Status = entity.TransactionStatusFailed
	loser.SetMeta(entity.MetaSupersededByTransactionId, winner.Id)
	loser.SetMeta(entity.MetaSupersededInvoiceId, invoiceId)
	if err := uow.TransactionRepository().Update(ctx, loser); err != nil {
		return nil, fmt.Errorf("supersede transaction %d: %w", loser.Id, err)
	}

	owner, err := s.claimer.ClaimInvoice(ctx, uow, winner, invoiceId)
	if err != nil {
		return nil, err
	}

	s.logger.Info(logger.ModuleLedger, "Invoice moved to payment intent owner", map[string]interface{}{
		"invoice_id":     invoiceId,
		"superseded_id":  loser.Id,
		"transaction_id": owner.Id,
	})
	return owner, nil
}

// retirePlaceholder folds the pledge's still-pending checkout placeholder
// into tx when the first payment settled on a different row, for example one
// a payment intent event created before the invoice arrived.
func (s *webhookService) retirePlaceholder(ctx context.Context, uow unitofwork.UnitOfWork, pledge *entity.Pledge, tx *entity.Transaction) error {
	if pledge.AttemptId == "" || tx.Id == 0 {
		return nil
	}
	placeholder, err := uow.TransactionRepository().FindOne(ctx,
		specification.ByAttemptId{AttemptId: pledge.AttemptId},
		specification.ByPledgeId{PledgeId: pledge.Id},
		specification.ByStatus{Status: string(entity.TransactionStatusPending)},
		specification.IsNull{Field: "stripe_invoice_id"},
		specification.IsNull{Field: "payment_intent_id"},
		specification.Newest(),
		specification.ForUpdate{},
	)
	if err != nil || placeholder == nil || placeholder.Id == tx.Id {
		return err
	}

	absorb(tx, placeholder)
	placeholder.Status = entity.TransactionStatusFailed
	placeholder.SetMeta(entity.MetaSupersededByTransactionId, tx.Id)
	return uow.TransactionRepository().Update(ctx, placeholder)
}

// absorb copies what loser knew about the payment into winner's empty fields.
func absorb(winner, loser *entity.Transaction) {
	if winner.PledgeId == nil {
		winner.PledgeId = loser.PledgeId
	}
	if winner.Type == entity.TransactionTypeOneTime && loser.Type != entity.TransactionTypeOneTime {
		winner.Type = loser.Type
	}
	if winner.AttemptId == "" {
		winner.AttemptId = loser.AttemptId
	}
	if winner.UserId == nil {
		winner.UserId = loser.UserId
	}
	winner.SubscriptionId = firstNonEmpty(winner.SubscriptionId, loser.SubscriptionId)
	winner.CustomerId = firstNonEmpty(winner.CustomerId, loser.CustomerId)
	winner.PayerEmail = firstNonEmpty(winner.PayerEmail, loser.PayerEmail)
	winner.ReceiptUrl = firstNonEmpty(winner.ReceiptUrl, loser.ReceiptUrl)
	winner.Currency = firstNonEmpty(winner.Currency, loser.Currency)
	if winner.AmountCents == 0 {
		winner.AmountCents = loser.AmountCents
	}
	if winner.PaidAt == nil {
		winner.PaidAt = loser.PaidAt
	}
	if loser.IsSucceeded() {
		winner.Status = entity.TransactionStatusSucceeded
	}
}

func newInvoiceTransaction(inv *dto.InvoiceEvent, pledge *entity.Pledge) *entity.Transaction {
	tx := &entity.Transaction{
		Type:   entity.TransactionTypeOneTime,
		Status: entity.TransactionStatusPending,
	}
	switch {
	case inv.IsRecurring():
		tx.Type = entity.TransactionTypeSubscriptionRecurring
	case inv.SubscriptionId != "" || pledge != nil:
		tx.Type = entity.TransactionTypeSubscriptionInitial
	}
	if pledge != nil {
		tx.AttemptId = pledge.AttemptId
		tx.UserId = pledge.UserId
	} else {
		tx.AttemptId = inv.Metadata[entity.MetaAttemptId]
	}
	return tx
}

// adoptInvoice fills the fields of tx the invoice knows and tx does not.
func adoptInvoice(tx *entity.Transaction, inv *dto.InvoiceEvent, pledge *entity.Pledge) {
	if tx.PledgeId == nil && pledge != nil {
		id := pledge.Id
		tx.PledgeId = &id
	}
	if tx.Type == entity.TransactionTypeOneTime && inv.SubscriptionId != "" {
		tx.Type = entity.TransactionTypeSubscriptionInitial
		if inv.IsRecurring() {
			tx.Type = entity.TransactionTypeSubscriptionRecurring
		}
	}
	if tx.UserId == nil {
		if raw := inv.Metadata[entity.MetaUserId]; raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				tx.UserId = &id
			}
		}
	}
	tx.SubscriptionId = firstNonEmpty(tx.SubscriptionId, inv.SubscriptionId)
	tx.CustomerId = firstNonEmpty(tx.CustomerId, inv.CustomerId)
	tx.PayerEmail = firstNonEmpty(tx.PayerEmail, strings.ToLower(inv.CustomerEmail))
	tx.Currency = firstNonEmpty(tx.Currency, inv.Currency)
	if tx.AmountCents == 0 {
		tx.AmountCents = inv.AmountPaid
	}
	if pledge != nil {
		tx.PayerEmail = firstNonEmpty(tx.PayerEmail, pledge.DonorEmail)
	}
}

func (s *webhookService) HandleInvoicePaymentFailed(ctx context.Context, inv *dto.InvoiceEvent) error {
	if inv == nil || inv.Id == "" {
		return nil
	}

	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		pledge, err := lockPledge(ctx, uow, inv.SubscriptionId, inv.Metadata)
		if err != nil {
			return err
		}

		tx, err := s.resolver.Resolve(ctx, uow, pledge, inv.Id, inv.PaymentIntentId)
		if err != nil {
			return err
		}
		settled := tx != nil && tx.IsSucceeded()
		if tx != nil {
			adoptInvoice(tx, inv, pledge)
			if tx, err = s.claimer.ClaimInvoice(ctx, uow, tx, inv.Id); err != nil {
				return err
			}
			if !tx.IsSucceeded() {
				tx.Status = entity.TransactionStatusFailed
				if inv.PaymentIntentId != "" && tx.PaymentIntentId != inv.PaymentIntentId {
					tx.SetMeta(entity.MetaFailedPaymentIntentId, inv.PaymentIntentId)
				}
				if err := saveTransaction(ctx, uow, tx); err != nil {
					return err
				}
			}
		} else {
			s.logger.Warn(logger.ModuleLedger, "Failed invoice matches no ledger row", map[string]interface{}{
				"invoice_id":      inv.Id,
				"subscription_id": inv.SubscriptionId,
			})
		}

		// a failure reported after the invoice settled is stale
		if pledge != nil && !settled && pledge.Status == entity.PledgeStatusActive {
			pledge.Status = entity.PledgeStatusPastDue
			if err := uow.PledgeRepository().Update(ctx, pledge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("handle invoice.payment_failed %s: %w", inv.Id, err)
	}
	return nil
}

// HandleInvoicePaymentPaid links the invoice's payment intent once the
// invoice payment object reports it. The invoice row itself is created by
// invoice.paid.
func (s *webhookService) HandleInvoicePaymentPaid(ctx context.Context, ev *dto.InvoicePaymentEvent) error {
	if ev == nil || ev.InvoiceId == "" || ev.PaymentIntentId == "" {
		return nil
	}

	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		tx, err := uow.TransactionRepository().FindOne(ctx,
			specification.ByInvoiceId{InvoiceId: ev.InvoiceId},
			specification.Newest(),
			specification.ForUpdate{},
		)
		if err != nil {
			return err
		}
		if tx == nil {
			s.logger.Info(logger.ModuleLedger, "Invoice payment for unrecorded invoice", map[string]interface{}{
				"invoice_id":        ev.InvoiceId,
				"payment_intent_id": ev.PaymentIntentId,
			})
			return nil
		}

		owner, err := s.claimer.ClaimPaymentIntent(ctx, uow, tx, ev.PaymentIntentId)
		if err != nil {
			return err
		}
		if owner != tx {
			if owner.StripeInvoiceId == "" && tx.PaymentIntentId == "" {
				_, err := s.supersede(ctx, uow, tx, owner, ev.InvoiceId)
				return err
			}
			tx.SetMeta(entity.MetaPaymentIntentId, ev.PaymentIntentId)
		}

		if owner, err = s.claimer.ClaimCharge(ctx, uow, tx, ev.ChargeId); err != nil {
			return err
		}
		if owner != tx {
			tx.SetMeta(entity.MetaChargeId, ev.ChargeId)
		}
		return uow.TransactionRepository().Update(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("handle invoice_payment.paid %s: %w", ev.Id, err)
	}
	return nil
}

// --- Payment intents and charges ---

func (s *webhookService) HandlePaymentIntentSucceeded(ctx context.Context, pi *dto.PaymentIntentEvent) error {
	if pi == nil || pi.Id == "" {
		return nil
	}
	if pi.InvoiceId != "" {
		s.logger.Debug(logger.ModuleWebhook, "Payment intent belongs to an invoice; invoice event reconciles it", map[string]interface{}{
			"payment_intent_id": pi.Id,
			"invoice_id":        pi.InvoiceId,
		})
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	pledge, err := uow.PledgeRepository().FindOne(ctx, specification.ByLatestPaymentIntentId{PaymentIntentId: pi.Id})
	if err != nil {
		return err
	}
	if pledge != nil {
		s.logger.Debug(logger.ModuleWebhook, "Payment intent is a pledge invoice payment", map[string]interface{}{
			"payment_intent_id": pi.Id,
			"pledge_id":         pledge.Id,
		})
		return nil
	}

	charge := pi.Charge
	if charge == nil && pi.LatestChargeId != "" {
		charge = s.fetchCharge(ctx, pi.LatestChargeId)
		if charge == nil {
			charge = &dto.ChargeEvent{Id: pi.LatestChargeId}
		}
	}

	hooks := &afterCommit{}
	err = s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		tx, err := s.findOneTimeRow(ctx, uow, pi)
		if err != nil {
			return err
		}
		if tx == nil {
			tx = &entity.Transaction{
				AttemptId:   pi.Metadata[entity.MetaAttemptId],
				Type:        entity.TransactionTypeOneTime,
				Status:      entity.TransactionStatusPending,
				AmountCents: pi.AmountCents,
				Currency:    pi.Currency,
				CustomerId:  pi.CustomerId,
				PayerEmail:  strings.ToLower(pi.ReceiptEmail),
			}
		}

		owner, err := s.claimer.ClaimPaymentIntent(ctx, uow, tx, pi.Id)
		if err != nil {
			return err
		}
		tx = owner

		newlySucceeded := !tx.IsSucceeded()
		if tx, err = s.pledges.FinalizeTransactionFromPaymentIntent(ctx, uow, tx, pi, charge); err != nil {
			return err
		}
		if newlySucceeded {
			snapshot := *tx
			hooks.add(func(ctx context.Context) { s.publisher.PublishTransactionSucceeded(ctx, &snapshot) })
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("handle payment_intent.succeeded %s: %w", pi.Id, err)
	}
	hooks.run(ctx)
	return nil
}

// findOneTimeRow locks the row a standalone payment intent settles: the row
// already holding it, else the newest pending placeholder of its checkout.
func (s *webhookService) findOneTimeRow(ctx context.Context, uow unitofwork.UnitOfWork, pi *dto.PaymentIntentEvent) (*entity.Transaction, error) {
	repo := uow.TransactionRepository()
	tx, err := repo.FindOne(ctx, specification.ByPaymentIntentId{PaymentIntentId: pi.Id}, specification.ForUpdate{})
	if err != nil || tx != nil {
		return tx, err
	}

	attemptId := pi.Metadata[entity.MetaAttemptId]
	if attemptId == "" {
		return nil, nil
	}
	return repo.FindOne(ctx,
		specification.ByAttemptId{AttemptId: attemptId},
		specification.ByStatus{Status: string(entity.TransactionStatusPending)},
		specification.IsNull{Field: "payment_intent_id"},
		specification.IsNull{Field: "stripe_invoice_id"},
		specification.Newest(),
		specification.ForUpdate{},
	)
}

func (s *webhookService) HandlePaymentIntentFailed(ctx context.Context, pi *dto.PaymentIntentEvent) error {
	if pi == nil || pi.Id == "" || pi.InvoiceId != "" {
		return nil
	}

	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		tx, err := s.findOneTimeRow(ctx, uow, pi)
		if err != nil {
			return err
		}
		if tx == nil || tx.IsSucceeded() {
			return nil
		}

		owner, err := s.claimer.ClaimPaymentIntent(ctx, uow, tx, pi.Id)
		if err != nil {
			return err
		}
		if owner != tx {
			return nil
		}
		tx.Status = entity.TransactionStatusFailed
		if pi.LastErrorMessage != "" {
			tx.SetMeta(entity.MetaLastError, pi.LastErrorMessage)
		}
		return uow.TransactionRepository().Update(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("handle payment_intent.payment_failed %s: %w", pi.Id, err)
	}
	return nil
}

func (s *webhookService) HandleChargeSucceeded(ctx context.Context, charge *dto.ChargeEvent) error {
	if charge == nil || charge.Id == "" || charge.PaymentIntentId == "" {
		return nil
	}

	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		tx, err := uow.TransactionRepository().FindOne(ctx,
			specification.ByPaymentIntentId{PaymentIntentId: charge.PaymentIntentId},
			specification.ForUpdate{},
		)
		if err != nil || tx == nil {
			return err
		}

		owner, err := s.claimer.ClaimCharge(ctx, uow, tx, charge.Id)
		if err != nil {
			return err
		}
		if owner != tx {
			tx.SetMeta(entity.MetaChargeId, charge.Id)
		}
		if tx.ReceiptUrl == "" {
			tx.ReceiptUrl = charge.ReceiptUrl
		}
		if len(charge.CardMeta) > 0 {
			tx.Metadata = stripemeta.MergeMetadata(tx.Metadata, map[string]any{entity.MetaCard: charge.CardMeta})
		}
		return uow.TransactionRepository().Update(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("handle charge.succeeded %s: %w", charge.Id, err)
	}
	return nil
}

// --- Refunds ---

func (s *webhookService) HandleChargeRefunded(ctx context.Context, charge *dto.ChargeEvent) error {
	if charge == nil || charge.Id == "" {
		return nil
	}
	if len(charge.Refunds) == 0 {
		s.logger.Info(logger.ModuleRefund, "charge.refunded without embedded refunds; waiting for refund events", map[string]interface{}{
			"charge_id": charge.Id,
		})
		return nil
	}
	for i := range charge.Refunds {
		refund := charge.Refunds[i]
		if refund.ChargeId == "" {
			refund.ChargeId = charge.Id
		}
		if refund.PaymentIntentId == "" {
			refund.PaymentIntentId = charge.PaymentIntentId
		}
		if err := s.HandleRefund(ctx, &refund); err != nil {
			return err
		}
	}
	return nil
}

func (s *webhookService) HandleRefund(ctx context.Context, refund *dto.RefundEvent) error {
	if refund == nil || refund.Id == "" {
		return nil
	}

	hooks := &afterCommit{}
	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		tx, err := s.findRefundedTransaction(ctx, uow, refund)
		if err != nil {
			return err
		}
		if tx == nil {
			s.logger.Warn(logger.ModuleRefund, "Refund for a charge the ledger does not know", map[string]interface{}{
				"refund_id":         refund.Id,
				"charge_id":         refund.ChargeId,
				"payment_intent_id": refund.PaymentIntentId,
			})
			return nil
		}

		row, created, err := upsertRefund(ctx, uow, tx.Id, &entity.Refund{
			StripeRefundId: refund.Id,
			ChargeId:       optionalString(firstNonEmpty(refund.ChargeId, tx.ChargeId)),
			AmountCents:    optionalInt64(refund.AmountCents),
			Currency:       optionalString(refund.Currency),
			Status:         optionalString(refund.Status),
			Reason:         optionalString(refund.Reason),
		})
		if err != nil {
			return err
		}
		if created {
			snapshot := *row
			hooks.add(func(ctx context.Context) { s.publisher.PublishRefundCreated(ctx, &snapshot, tx) })
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("handle refund %s: %w", refund.Id, err)
	}
	hooks.run(ctx)
	return nil
}

func (s *webhookService) findRefundedTransaction(ctx context.Context, uow unitofwork.UnitOfWork, refund *dto.RefundEvent) (*entity.Transaction, error) {
	repo := uow.TransactionRepository()
	if refund.ChargeId != "" {
		tx, err := repo.FindOne(ctx, specification.ByChargeId{ChargeId: refund.ChargeId})
		if err != nil || tx != nil {
			return tx, err
		}
	}
	if raw := refund.Metadata[entity.MetaTransactionId]; raw != "" {
		var id uint64
		if _, err := fmt.Sscan(raw, &id); err == nil && id > 0 {
			tx, err := repo.FindOne(ctx, specification.ByID{ID: id})
			if err != nil || tx != nil {
				return tx, err
			}
		}
	}
	if refund.PaymentIntentId != "" {
		return repo.FindOne(ctx, specification.ByPaymentIntentId{PaymentIntentId: refund.PaymentIntentId})
	}
	return nil, nil
}

// --- Subscriptions ---

func (s *webhookService) HandleSubscriptionUpdated(ctx context.Context, sub *dto.SubscriptionEvent) error {
	if sub == nil || sub.Id == "" {
		return nil
	}

	hooks := &afterCommit{}
	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		pledge, err := lockPledge(ctx, uow, sub.Id, sub.Metadata)
		if err != nil {
			return err
		}
		if pledge == nil {
			s.logger.Warn(logger.ModulePledge, "Subscription update for unknown pledge", map[string]interface{}{
				"subscription_id": sub.Id,
			})
			return nil
		}

		transition := applySubscriptionState(pledge, stateFromEvent(sub))
		if err := uow.PledgeRepository().Update(ctx, pledge); err != nil {
			return err
		}
		snapshot := *pledge
		if transition.Activated {
			hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeActivated(ctx, &snapshot) })
		}
		if transition.Canceled {
			hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeCanceled(ctx, &snapshot) })
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("handle customer.subscription.updated %s: %w", sub.Id, err)
	}
	hooks.run(ctx)
	return nil
}

func (s *webhookService) HandleSubscriptionDeleted(ctx context.Context, sub *dto.SubscriptionEvent) error {
	if sub == nil || sub.Id == "" {
		return nil
	}

	hooks := &afterCommit{}
	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		pledge, err := lockPledge(ctx, uow, sub.Id, sub.Metadata)
		if err != nil || pledge == nil {
			return err
		}
		if pledge.IsCanceled() {
			return nil
		}

		pledge.Status = entity.PledgeStatusCanceled
		pledge.NextPledgeAt = nil
		if pledge.SubscriptionId == "" {
			pledge.SubscriptionId = sub.Id
		}
		if err := uow.PledgeRepository().Update(ctx, pledge); err != nil {
			return err
		}
		snapshot := *pledge
		hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeCanceled(ctx, &snapshot) })
		return nil
	})
	if err != nil {
		return fmt.Errorf("handle customer.subscription.deleted %s: %w", sub.Id, err)
	}
	hooks.run(ctx)
	return nil
}

// --- Processor reads ---

// fetchCharge retrieves a charge for receipt and card details. A failure only
// costs those details, so it is logged and ignored.
func (s *webhookService) fetchCharge(ctx context.Context, chargeId string) *dto.ChargeEvent {
	if chargeId == "" || s.gateway == nil {
		return nil
	}
	charge, err := s.gateway.GetCharge(ctx, chargeId)
	if err != nil || charge == nil {
		s.logger.Warn(logger.ModuleWebhook, "Could not retrieve charge", map[string]interface{}{
			"charge_id": chargeId,
			"error":     fmt.Sprint(err),
		})
		return nil
	}
	return &dto.ChargeEvent{
		Id:              charge.Id,
		PaymentIntentId: charge.PaymentIntentId,
		AmountCents:     charge.AmountCents,
		Currency:        charge.Currency,
		Paid:            charge.Paid,
		Status:          charge.Status,
		ReceiptUrl:      charge.ReceiptUrl,
		CardMeta:        charge.CardMeta,
		Created:         charge.Created,
	}
}

// fillInvoicePeriod takes the period from the subscription when the invoice
// lines did not carry one.
func (s *webhookService) fillInvoicePeriod(ctx context.Context, inv *dto.InvoiceEvent) {
	if inv.SubscriptionId == "" || s.gateway == nil || (inv.PeriodStart != nil && inv.PeriodEnd != nil) {
		return
	}
	sub, err := s.gateway.GetSubscription(ctx, inv.SubscriptionId)
	if err != nil || sub == nil {
		s.logger.Warn(logger.ModuleWebhook, "Could not retrieve subscription period", map[string]interface{}{
			"subscription_id": inv.SubscriptionId,
			"error":           fmt.Sprint(err),
		})
		return
	}
	inv.PeriodStart = sub.CurrentPeriodStart
	inv.PeriodEnd = sub.CurrentPeriodEnd
}
