package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"giving-ledger-be/internal/config"
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

type IPledgeService interface {
	StartPledge(ctx context.Context, req *dto.StartPledgeRequest) (*dto.StartPledgeResponse, error)
	StartOneTimeGift(ctx context.Context, req *dto.StartOneTimeGiftRequest) (*dto.StartOneTimeGiftResponse, error)
	CreateSubscriptionForPledge(ctx context.Context, pledgeId uint64, paymentMethodId string) (*dto.PledgeResponse, error)
	CancelSubscriptionAtPeriodEnd(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error)
	ResumeSubscription(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error)
	UpdateSubscriptionAmount(ctx context.Context, pledgeId uint64, newAmountCents int64) (*dto.PledgeResponse, error)
	Refund(ctx context.Context, transactionId uint64) (*dto.RefundResponse, error)
	GetOrCreateCustomer(ctx context.Context, attrs dto.CustomerAttributes) (string, error)
	// FinalizeTransactionFromPaymentIntent marks tx paid from a succeeded
	// payment intent and its charge, then persists it. It runs inside the
	// caller's unit of work.
	FinalizeTransactionFromPaymentIntent(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, pi *dto.PaymentIntentEvent, charge *dto.ChargeEvent) (*entity.Transaction, error)
}

type pledgeService struct {
	uowFactory      unitofwork.RepositoryFactory
	gateway         processor.Gateway
	claimer         ITransactionClaimer
	resolver        ITransactionResolver
	publisher       ledgerevents.Publisher
	clock           clock.Clock
	logger          logger.ILogger
	productId       string
	defaultCurrency string
}

func NewPledgeService(
	uowFactory unitofwork.RepositoryFactory,
	gateway processor.Gateway,
	claimer ITransactionClaimer,
	resolver ITransactionResolver,
	publisher ledgerevents.Publisher,
	clk clock.Clock,
	cfg config.StripeConfig,
	logger logger.ILogger,
) IPledgeService {
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "usd"
	}
	return &pledgeService{
		uowFactory:      uowFactory,
		gateway:         gateway,
		claimer:         claimer,
		resolver:        resolver,
		publisher:       publisher,
		clock:           clk,
		logger:          logger,
		productId:       cfg.ProductId,
		defaultCurrency: currency,
	}
}

func (s *pledgeService) currencyOrDefault(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return s.defaultCurrency
	}
	return c
}

func (s *pledgeService) StartPledge(ctx context.Context, req *dto.StartPledgeRequest) (*dto.StartPledgeResponse, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	interval := entity.PledgeIntervalMonth
	if req.Interval != "" {
		interval = entity.PledgeInterval(req.Interval)
	}
	if !interval.Valid() {
		return nil, ErrInvalidInterval
	}

	attemptId := uuid.NewString()
	email := strings.ToLower(strings.TrimSpace(req.DonorEmail))
	currency := s.currencyOrDefault(req.Currency)

	var res *dto.StartPledgeResponse
	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		pledge := &entity.Pledge{
			UserId:      req.UserId,
			AttemptId:   attemptId,
			DonorEmail:  email,
			DonorName:   strings.TrimSpace(req.DonorName),
			AmountCents: req.AmountCents,
			Currency:    currency,
			Interval:    interval,
			Status:      entity.PledgeStatusIncomplete,
		}
		if err := uow.PledgeRepository().Create(ctx, pledge); err != nil {
			return err
		}

		placeholder := &entity.Transaction{
			PledgeId:    &pledge.Id,
			AttemptId:   attemptId,
			UserId:      req.UserId,
			PayerEmail:  email,
			Type:        entity.TransactionTypeSubscriptionInitial,
			Status:      entity.TransactionStatusPending,
			AmountCents: req.AmountCents,
			Currency:    currency,
		}
		if err := uow.TransactionRepository().Create(ctx, placeholder); err != nil {
			return err
		}

		res = &dto.StartPledgeResponse{
			PledgeId:      pledge.Id,
			TransactionId: placeholder.Id,
			AttemptId:     attemptId,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start pledge: %w", err)
	}

	s.logger.Info(logger.ModulePledge, "Pledge started", map[string]interface{}{
		"pledge_id":  res.PledgeId,
		"attempt_id": attemptId,
	})
	return res, nil
}

func (s *pledgeService) StartOneTimeGift(ctx context.Context, req *dto.StartOneTimeGiftRequest) (*dto.StartOneTimeGiftResponse, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	placeholder := &entity.Transaction{
		AttemptId:   uuid.NewString(),
		UserId:      req.UserId,
		PayerEmail:  strings.ToLower(strings.TrimSpace(req.DonorEmail)),
		Type:        entity.TransactionTypeOneTime,
		Status:      entity.TransactionStatusPending,
		AmountCents: req.AmountCents,
		Currency:    s.currencyOrDefault(req.Currency),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.TransactionRepository().Create(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("start one-time gift: %w", err)
	}

	return &dto.StartOneTimeGiftResponse{
		TransactionId: placeholder.Id,
		AttemptId:     placeholder.AttemptId,
	}, nil
}

// findPledge reads a pledge outside any transaction, for the checks made
// before calling the processor.
func (s *pledgeService) findPledge(ctx context.Context, pledgeId uint64) (*entity.Pledge, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	pledge, err := uow.PledgeRepository().FindOne(ctx, specification.ByID{ID: pledgeId})
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, ErrPledgeNotFound
	}
	if pledge.IsCanceled() {
		return nil, ErrPledgeCanceled
	}
	return pledge, nil
}

func lockPledgeById(ctx context.Context, uow unitofwork.UnitOfWork, pledgeId uint64) (*entity.Pledge, error) {
	pledge, err := uow.PledgeRepository().FindOne(ctx, specification.ByID{ID: pledgeId}, specification.ForUpdate{})
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, ErrPledgeNotFound
	}
	return pledge, nil
}

func (s *pledgeService) CreateSubscriptionForPledge(ctx context.Context, pledgeId uint64, paymentMethodId string) (*dto.PledgeResponse, error) {
	pledge, err := s.findPledge(ctx, pledgeId)
	if err != nil {
		return nil, err
	}
	if pledge.SubscriptionId != "" {
		return nil, ErrSubscriptionExists
	}

	customerId := pledge.CustomerId
	if customerId == "" {
		customerId, err = s.GetOrCreateCustomer(ctx, dto.CustomerAttributes{
			Email:    pledge.DonorEmail,
			Name:     pledge.DonorName,
			PledgeId: pledge.Id,
		})
		if err != nil {
			return nil, err
		}
	}

	productId := pledge.StripeProductId
	if productId == "" {
		productId = s.productId
	}
	price, err := s.gateway.CreatePrice(ctx, processor.PriceParams{
		ProductId:   productId,
		AmountCents: pledge.AmountCents,
		Currency:    s.currencyOrDefault(pledge.Currency),
		Interval:    string(pledge.Interval),
	})
	if err != nil {
		return nil, fmt.Errorf("create price for pledge %d: %w", pledge.Id, err)
	}

	sub, err := s.gateway.CreateSubscription(ctx, processor.SubscriptionParams{
		CustomerId:      customerId,
		PriceId:         price.Id,
		PaymentMethodId: paymentMethodId,
		Metadata: map[string]string{
			entity.MetaPledgeId:  strconv.FormatUint(pledge.Id, 10),
			entity.MetaAttemptId: pledge.AttemptId,
		},
		IdempotencyKey: fmt.Sprintf("pledge-%d-subscribe-%s", pledge.Id, pledge.AttemptId),
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription for pledge %d: %w", pledge.Id, err)
	}

	hooks := &afterCommit{}
	var res *dto.PledgeResponse
	err = s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		p, err := lockPledgeById(ctx, uow, pledgeId)
		if err != nil {
			return err
		}
		if p.SubscriptionId != "" && p.SubscriptionId != sub.Id {
			return ErrSubscriptionExists
		}

		p.CustomerId = customerId
		p.StripePriceId = price.Id
		if p.StripeProductId == "" {
			p.StripeProductId = price.ProductId
		}
		transition := applySubscriptionState(p, stateFromSubscription(sub))

		tx, err := s.recordFirstInvoice(ctx, uow, p, sub, hooks)
		if err != nil {
			return err
		}
		if tx.IsSucceeded() && p.LastPledgeAt == nil {
			p.LastPledgeAt = tx.PaidAt
		}

		if err := uow.PledgeRepository().Update(ctx, p); err != nil {
			return err
		}
		if transition.Activated {
			activated := *p
			hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeActivated(ctx, &activated) })
		}
		res = toPledgeResponse(p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record subscription %s for pledge %d: %w", sub.Id, pledgeId, err)
	}
	hooks.run(ctx)

	s.logger.Info(logger.ModulePledge, "Subscription created", map[string]interface{}{
		"pledge_id":       pledgeId,
		"subscription_id": sub.Id,
		"status":          sub.Status,
	})
	return res, nil
}

// recordFirstInvoice attaches the subscription's first invoice to the
// pledge's canonical row. The row is only marked paid once the processor
// reports the invoice settled.
func (s *pledgeService) recordFirstInvoice(ctx context.Context, uow unitofwork.UnitOfWork, p *entity.Pledge, sub *processor.Subscription, hooks *afterCommit) (*entity.Transaction, error) {
	tx, err := s.resolver.Resolve(ctx, uow, p, sub.LatestInvoiceId, sub.LatestPaymentIntentId)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		tx = &entity.Transaction{
			PledgeId:  &p.Id,
			AttemptId: p.AttemptId,
			UserId:    p.UserId,
			Type:      entity.TransactionTypeSubscriptionRecurring,
			Status:    entity.TransactionStatusPending,
		}
	}
	if tx.PledgeId == nil {
		tx.PledgeId = &p.Id
	}

	owner, err := s.claimer.ClaimPaymentIntent(ctx, uow, tx, sub.LatestPaymentIntentId)
	if err != nil {
		return nil, err
	}
	tx = owner
	if tx.PledgeId == nil {
		tx.PledgeId = &p.Id
	}

	owner, err = s.claimer.ClaimInvoice(ctx, uow, tx, sub.LatestInvoiceId)
	if err != nil {
		return nil, err
	}
	tx = owner

	if owner, err = s.claimer.ClaimCharge(ctx, uow, tx, sub.LatestChargeId); err != nil {
		return nil, err
	}
	if owner != tx {
		tx.SetMeta(entity.MetaChargeId, sub.LatestChargeId)
	}

	if tx.SubscriptionId == "" {
		tx.SubscriptionId = sub.Id
	}
	if tx.CustomerId == "" {
		tx.CustomerId = p.CustomerId
	}
	if tx.PayerEmail == "" {
		tx.PayerEmail = p.DonorEmail
	}
	// the first invoice can differ from the pledge amount (tax, coupons)
	switch {
	case sub.LatestInvoiceAmountCents > 0 && !tx.IsSucceeded():
		tx.AmountCents = sub.LatestInvoiceAmountCents
	case tx.AmountCents == 0:
		tx.AmountCents = p.AmountCents
	}
	if tx.Currency == "" {
		tx.Currency = p.Currency
	}

	paid := sub.LatestInvoicePaid() ||
		sub.Status == processor.SubscriptionActive ||
		sub.Status == processor.SubscriptionTrialing
	newlySucceeded := paid && !tx.IsSucceeded()
	if newlySucceeded {
		tx.Status = entity.TransactionStatusSucceeded
		if tx.PaidAt == nil {
			now := s.clock.Now()
			tx.PaidAt = &now
		}
	}

	if err := saveTransaction(ctx, uow, tx); err != nil {
		return nil, err
	}
	if newlySucceeded {
		succeeded := *tx
		hooks.add(func(ctx context.Context) { s.publisher.PublishTransactionSucceeded(ctx, &succeeded) })
	}
	return tx, nil
}

func (s *pledgeService) CancelSubscriptionAtPeriodEnd(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error) {
	pledge, err := s.findPledge(ctx, pledgeId)
	if err != nil {
		return nil, err
	}
	if pledge.SubscriptionId == "" {
		return nil, ErrNoSubscription
	}

	cancel := true
	sub, err := s.gateway.UpdateSubscription(ctx, pledge.SubscriptionId, processor.SubscriptionUpdateParams{
		CancelAtPeriodEnd: &cancel,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", pledge.SubscriptionId, err)
	}

	var res *dto.PledgeResponse
	err = s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		p, err := lockPledgeById(ctx, uow, pledgeId)
		if err != nil {
			return err
		}
		// status stays as is until the processor ends the subscription
		p.CancelAtPeriodEnd = true
		advancePeriod(p, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
		syncNextPledgeAt(p)
		if err := uow.PledgeRepository().Update(ctx, p); err != nil {
			return err
		}
		res = toPledgeResponse(p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record cancellation for pledge %d: %w", pledgeId, err)
	}

	s.logger.Info(logger.ModulePledge, "Subscription set to cancel at period end", map[string]interface{}{
		"pledge_id":       pledgeId,
		"subscription_id": pledge.SubscriptionId,
	})
	return res, nil
}

func (s *pledgeService) ResumeSubscription(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error) {
	pledge, err := s.findPledge(ctx, pledgeId)
	if err != nil {
		return nil, err
	}
	if pledge.SubscriptionId == "" {
		return nil, ErrNoSubscription
	}

	cancel := false
	sub, err := s.gateway.UpdateSubscription(ctx, pledge.SubscriptionId, processor.SubscriptionUpdateParams{
		CancelAtPeriodEnd: &cancel,
	})
	if err != nil {
		return nil, fmt.Errorf("resume subscription %s: %w", pledge.SubscriptionId, err)
	}

	return s.syncFromSubscription(ctx, pledgeId, sub, func(p *entity.Pledge) {
		p.CancelAtPeriodEnd = false
	})
}

func (s *pledgeService) UpdateSubscriptionAmount(ctx context.Context, pledgeId uint64, newAmountCents int64) (*dto.PledgeResponse, error) {
	if newAmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	pledge, err := s.findPledge(ctx, pledgeId)
	if err != nil {
		return nil, err
	}
	if pledge.SubscriptionId == "" {
		return nil, ErrNoSubscription
	}

	current, err := s.gateway.GetSubscription(ctx, pledge.SubscriptionId)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", pledge.SubscriptionId, err)
	}

	productId := firstNonEmpty(current.ProductId, pledge.StripeProductId, s.productId)
	price, err := s.gateway.CreatePrice(ctx, processor.PriceParams{
		ProductId:   productId,
		AmountCents: newAmountCents,
		Currency:    s.currencyOrDefault(firstNonEmpty(current.Currency, pledge.Currency)),
		Interval:    firstNonEmpty(current.Interval, string(pledge.Interval)),
	})
	if err != nil {
		return nil, fmt.Errorf("create price for pledge %d: %w", pledgeId, err)
	}

	updated, err := s.gateway.UpdateSubscription(ctx, pledge.SubscriptionId, processor.SubscriptionUpdateParams{
		ItemId:         current.ItemId,
		PriceId:        price.Id,
		IdempotencyKey: fmt.Sprintf("pledge-%d-price-%s", pledgeId, price.Id),
	})
	if err != nil {
		return nil, fmt.Errorf("swap price on subscription %s: %w", pledge.SubscriptionId, err)
	}

	return s.syncFromSubscription(ctx, pledgeId, updated, func(p *entity.Pledge) {
		p.AmountCents = newAmountCents
		p.StripePriceId = price.Id
		if p.StripeProductId == "" {
			p.StripeProductId = productId
		}
	})
}

// syncFromSubscription folds a processor response onto the locked pledge,
// then applies the caller's own changes on top.
func (s *pledgeService) syncFromSubscription(ctx context.Context, pledgeId uint64, sub *processor.Subscription, mutate func(p *entity.Pledge)) (*dto.PledgeResponse, error) {
	hooks := &afterCommit{}
	var res *dto.PledgeResponse
	err := s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		p, err := lockPledgeById(ctx, uow, pledgeId)
		if err != nil {
			return err
		}
		transition := applySubscriptionState(p, stateFromSubscription(sub))
		mutate(p)
		syncNextPledgeAt(p)

		if err := uow.PledgeRepository().Update(ctx, p); err != nil {
			return err
		}
		snapshot := *p
		if transition.Activated {
			hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeActivated(ctx, &snapshot) })
		}
		if transition.Canceled {
			hooks.add(func(ctx context.Context) { s.publisher.PublishPledgeCanceled(ctx, &snapshot) })
		}
		res = toPledgeResponse(p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync pledge %d: %w", pledgeId, err)
	}
	hooks.run(ctx)
	return res, nil
}

func (s *pledgeService) Refund(ctx context.Context, transactionId uint64) (*dto.RefundResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tx, err := uow.TransactionRepository().FindOne(ctx, specification.ByID{ID: transactionId})
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	if tx.ChargeId == "" {
		return nil, ErrNoCharge
	}

	ref, err := s.gateway.CreateRefund(ctx, processor.RefundParams{
		ChargeId:    tx.ChargeId,
		AmountCents: tx.AmountCents,
		Metadata: map[string]string{
			entity.MetaTransactionId: strconv.FormatUint(tx.Id, 10),
		},
		IdempotencyKey: fmt.Sprintf("refund-tx-%d", tx.Id),
	})
	if err != nil {
		return nil, fmt.Errorf("refund transaction %d: %w", tx.Id, err)
	}

	hooks := &afterCommit{}
	var refund *entity.Refund
	err = s.uowFactory.RunInTransaction(ctx, func(uow unitofwork.UnitOfWork) error {
		hooks.reset()

		r, created, err := upsertRefund(ctx, uow, tx.Id, &entity.Refund{
			StripeRefundId: ref.Id,
			ChargeId:       optionalString(firstNonEmpty(ref.ChargeId, tx.ChargeId)),
			AmountCents:    optionalInt64(ref.AmountCents),
			Currency:       optionalString(ref.Currency),
			Status:         optionalString(ref.Status),
			Reason:         optionalString(ref.Reason),
		})
		if err != nil {
			return err
		}
		refund = r
		if created {
			snapshot := *refund
			hooks.add(func(ctx context.Context) { s.publisher.PublishRefundCreated(ctx, &snapshot, tx) })
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record refund %s: %w", ref.Id, err)
	}
	hooks.run(ctx)

	s.logger.Info(logger.ModuleRefund, "Refund issued", map[string]interface{}{
		"transaction_id": tx.Id,
		"refund_id":      ref.Id,
		"status":         ref.Status,
	})
	return toRefundResponse(refund), nil
}

// upsertRefund records a processor refund once per refund id. Fields the
// processor omitted do not erase what an earlier delivery stored.
func upsertRefund(ctx context.Context, uow unitofwork.UnitOfWork, transactionId uint64, in *entity.Refund) (*entity.Refund, bool, error) {
	existing, err := uow.RefundRepository().FindOne(ctx,
		specification.ByStripeRefundId{StripeRefundId: in.StripeRefundId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		in.TransactionId = transactionId
		if err := uow.RefundRepository().Create(ctx, in); err != nil {
			return nil, false, err
		}
		return in, true, nil
	}

	if in.ChargeId != nil {
		existing.ChargeId = in.ChargeId
	}
	if in.AmountCents != nil {
		existing.AmountCents = in.AmountCents
	}
	if in.Currency != nil {
		existing.Currency = in.Currency
	}
	if in.Status != nil {
		existing.Status = in.Status
	}
	if in.Reason != nil {
		existing.Reason = in.Reason
	}
	if err := uow.RefundRepository().Update(ctx, existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *pledgeService) GetOrCreateCustomer(ctx context.Context, attrs dto.CustomerAttributes) (string, error) {
	email := strings.ToLower(strings.TrimSpace(attrs.Email))
	if email != "" {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		prior, err := uow.TransactionRepository().FindOne(ctx,
			specification.ByPayerEmail{Email: email},
			specification.HasCustomer{},
			specification.Newest(),
		)
		if err != nil {
			return "", err
		}
		if prior != nil {
			return prior.CustomerId, nil
		}
	}

	metadata := map[string]string{}
	if attrs.PledgeId != 0 {
		metadata[entity.MetaPledgeId] = strconv.FormatUint(attrs.PledgeId, 10)
	}
	customerId, err := s.gateway.CreateCustomer(ctx, processor.CustomerParams{
		Email:    email,
		Name:     attrs.Name,
		Metadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return customerId, nil
}

func (s *pledgeService) FinalizeTransactionFromPaymentIntent(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, pi *dto.PaymentIntentEvent, charge *dto.ChargeEvent) (*entity.Transaction, error) {
	if tx == nil || pi == nil {
		return nil, errors.New("finalize: transaction and payment intent are required")
	}

	chargeId := pi.LatestChargeId
	if charge != nil && charge.Id != "" {
		chargeId = charge.Id
	}
	owner, err := s.claimer.ClaimCharge(ctx, uow, tx, chargeId)
	if err != nil {
		return nil, err
	}
	if owner != tx {
		tx.SetMeta(entity.MetaChargeId, chargeId)
	}

	tx.Status = entity.TransactionStatusSucceeded
	if tx.PaidAt == nil {
		paidAt := s.clock.Now()
		if charge != nil && charge.Created != nil {
			paidAt = *charge.Created
		}
		tx.PaidAt = &paidAt
	}
	if tx.AmountCents == 0 {
		tx.AmountCents = pi.AmountCents
	}
	if tx.Currency == "" {
		tx.Currency = pi.Currency
	}
	if tx.CustomerId == "" {
		tx.CustomerId = pi.CustomerId
	}
	if tx.PayerEmail == "" {
		tx.PayerEmail = strings.ToLower(pi.ReceiptEmail)
	}
	if charge != nil {
		if tx.ReceiptUrl == "" {
			tx.ReceiptUrl = charge.ReceiptUrl
		}
		if len(charge.CardMeta) > 0 {
			tx.Metadata = stripemeta.MergeMetadata(tx.Metadata, map[string]any{entity.MetaCard: charge.CardMeta})
		}
	}

	if err := saveTransaction(ctx, uow, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
