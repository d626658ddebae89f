package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
	"giving-ledger-be/pkg/processor"
)

// subscriptionState is the part of a processor subscription folded onto a
// pledge, whether it came from an API response or a webhook payload.
type subscriptionState struct {
	Id                    string
	CustomerId            string
	Status                string
	CancelAtPeriodEnd     bool
	CurrentPeriodStart    *time.Time
	CurrentPeriodEnd      *time.Time
	PriceId               string
	ProductId             string
	AmountCents           int64
	Currency              string
	Interval              string
	LatestInvoiceId       string
	LatestPaymentIntentId string
}

func stateFromSubscription(sub *processor.Subscription) subscriptionState {
	return subscriptionState{
		Id:                    sub.Id,
		CustomerId:            sub.CustomerId,
		Status:                sub.Status,
		CancelAtPeriodEnd:     sub.CancelAtPeriodEnd,
		CurrentPeriodStart:    sub.CurrentPeriodStart,
		CurrentPeriodEnd:      sub.CurrentPeriodEnd,
		PriceId:               sub.PriceId,
		ProductId:             sub.ProductId,
		AmountCents:           sub.AmountCents,
		Currency:              sub.Currency,
		Interval:              sub.Interval,
		LatestInvoiceId:       sub.LatestInvoiceId,
		LatestPaymentIntentId: sub.LatestPaymentIntentId,
	}
}

func stateFromEvent(ev *dto.SubscriptionEvent) subscriptionState {
	return subscriptionState{
		Id:                 ev.Id,
		CustomerId:         ev.CustomerId,
		Status:             ev.Status,
		CancelAtPeriodEnd:  ev.CancelAtPeriodEnd,
		CurrentPeriodStart: ev.CurrentPeriodStart,
		CurrentPeriodEnd:   ev.CurrentPeriodEnd,
		PriceId:            ev.PriceId,
		ProductId:          ev.ProductId,
		AmountCents:        ev.AmountCents,
		Currency:           ev.Currency,
		Interval:           ev.Interval,
		LatestInvoiceId:    ev.LatestInvoiceId,
	}
}

// pledgeStatusFor maps a processor subscription status onto the pledge
// lifecycle. ok is false for statuses the ledger does not track.
func pledgeStatusFor(status string) (entity.PledgeStatus, bool) {
	switch status {
	case processor.SubscriptionActive, processor.SubscriptionTrialing:
		return entity.PledgeStatusActive, true
	case processor.SubscriptionPastDue, processor.SubscriptionUnpaid, processor.SubscriptionPaused:
		return entity.PledgeStatusPastDue, true
	case processor.SubscriptionCanceled, processor.SubscriptionIncompleteExpired:
		return entity.PledgeStatusCanceled, true
	case processor.SubscriptionIncomplete:
		return entity.PledgeStatusIncomplete, true
	}
	return "", false
}

// pledgeTransition reports status edges callers announce after commit.
type pledgeTransition struct {
	Activated bool
	Canceled  bool
}

// applySubscriptionState folds processor state onto the pledge. A canceled
// pledge never leaves canceled.
func applySubscriptionState(p *entity.Pledge, s subscriptionState) pledgeTransition {
	var tr pledgeTransition
	if p.IsCanceled() {
		return tr
	}
	before := p.Status

	if p.SubscriptionId == "" && s.Id != "" {
		p.SubscriptionId = s.Id
	}
	if s.CustomerId != "" {
		p.CustomerId = s.CustomerId
	}
	p.CancelAtPeriodEnd = s.CancelAtPeriodEnd
	advancePeriod(p, s.CurrentPeriodStart, s.CurrentPeriodEnd)

	if s.PriceId != "" {
		p.StripePriceId = s.PriceId
	}
	if s.ProductId != "" {
		p.StripeProductId = s.ProductId
	}
	if s.AmountCents > 0 {
		p.AmountCents = s.AmountCents
	}
	if s.Currency != "" {
		p.Currency = s.Currency
	}
	if interval := entity.PledgeInterval(s.Interval); interval.Valid() {
		p.Interval = interval
	}
	if s.LatestInvoiceId != "" {
		p.LatestInvoiceId = s.LatestInvoiceId
	}
	if s.LatestPaymentIntentId != "" {
		p.LatestPaymentIntentId = s.LatestPaymentIntentId
	}

	if status, ok := pledgeStatusFor(s.Status); ok {
		setPledgeStatus(p, status)
	}
	syncNextPledgeAt(p)

	tr.Activated = before != entity.PledgeStatusActive && p.Status == entity.PledgeStatusActive
	tr.Canceled = before != entity.PledgeStatusCanceled && p.Status == entity.PledgeStatusCanceled
	return tr
}

// applyInvoiceToPledge records a paid invoice on its pledge. An invoice for
// an older period than the one already recorded does not move the pledge's
// latest ids backwards.
func applyInvoiceToPledge(p *entity.Pledge, inv *dto.InvoiceEvent, paidAt time.Time) pledgeTransition {
	var tr pledgeTransition
	if p.IsCanceled() {
		return tr
	}
	before := p.Status

	stale := inv.PeriodEnd != nil && p.CurrentPeriodEnd != nil && inv.PeriodEnd.Before(*p.CurrentPeriodEnd)
	advancePeriod(p, inv.PeriodStart, inv.PeriodEnd)
	if !stale {
		p.LatestInvoiceId = inv.Id
		if inv.PaymentIntentId != "" {
			p.LatestPaymentIntentId = inv.PaymentIntentId
		}
	}
	if p.CustomerId == "" && inv.CustomerId != "" {
		p.CustomerId = inv.CustomerId
	}
	if p.LastPledgeAt == nil || paidAt.After(*p.LastPledgeAt) {
		at := paidAt
		p.LastPledgeAt = &at
	}

	setPledgeStatus(p, entity.PledgeStatusActive)
	syncNextPledgeAt(p)

	tr.Activated = before != entity.PledgeStatusActive && p.Status == entity.PledgeStatusActive
	return tr
}

// advancePeriod moves the current period forward only. A pair with end
// before start is ignored.
func advancePeriod(p *entity.Pledge, start, end *time.Time) {
	if start == nil || end == nil || end.Before(*start) {
		return
	}
	if p.CurrentPeriodEnd != nil && end.Before(*p.CurrentPeriodEnd) {
		return
	}
	s, e := *start, *end
	p.CurrentPeriodStart = &s
	p.CurrentPeriodEnd = &e
}

// setPledgeStatus refuses active without a complete period.
func setPledgeStatus(p *entity.Pledge, status entity.PledgeStatus) {
	if status == entity.PledgeStatusActive && (p.CurrentPeriodStart == nil || p.CurrentPeriodEnd == nil) {
		return
	}
	p.Status = status
}

func syncNextPledgeAt(p *entity.Pledge) {
	if p.CancelAtPeriodEnd || p.IsCanceled() || p.CurrentPeriodEnd == nil {
		p.NextPledgeAt = nil
		return
	}
	next := *p.CurrentPeriodEnd
	p.NextPledgeAt = &next
}

// lockPledge finds the pledge an event belongs to: by subscription id, then
// the pledge_id and attempt_id the checkout stamped into metadata.
func lockPledge(ctx context.Context, uow unitofwork.UnitOfWork, subscriptionId string, metadata map[string]string) (*entity.Pledge, error) {
	repo := uow.PledgeRepository()

	if subscriptionId != "" {
		p, err := repo.FindOne(ctx, specification.BySubscriptionId{SubscriptionId: subscriptionId}, specification.ForUpdate{})
		if err != nil {
			return nil, fmt.Errorf("lock pledge by subscription: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}

	if raw := metadata[entity.MetaPledgeId]; raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			p, err := repo.FindOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
			if err != nil {
				return nil, fmt.Errorf("lock pledge by id: %w", err)
			}
			if p != nil && (subscriptionId == "" || p.SubscriptionId == "" || p.SubscriptionId == subscriptionId) {
				return p, nil
			}
		}
	}

	if attemptId := metadata[entity.MetaAttemptId]; attemptId != "" {
		p, err := repo.FindOne(ctx,
			specification.ByAttemptId{AttemptId: attemptId},
			specification.Newest(),
			specification.ForUpdate{},
		)
		if err != nil {
			return nil, fmt.Errorf("lock pledge by attempt: %w", err)
		}
		if p != nil && (subscriptionId == "" || p.SubscriptionId == "" || p.SubscriptionId == subscriptionId) {
			return p, nil
		}
	}
	return nil, nil
}

// afterCommit collects side effects that must only run once the surrounding
// transaction has committed. reset is called at the top of every attempt.
type afterCommit struct {
	fns []func(ctx context.Context)
}

func (a *afterCommit) reset() {
	a.fns = a.fns[:0]
}

func (a *afterCommit) add(fn func(ctx context.Context)) {
	a.fns = append(a.fns, fn)
}

func (a *afterCommit) run(ctx context.Context) {
	for _, fn := range a.fns {
		fn(ctx)
	}
}

func toPledgeResponse(p *entity.Pledge) *dto.PledgeResponse {
	return &dto.PledgeResponse{
		Id:                 p.Id,
		SubscriptionId:     p.SubscriptionId,
		CustomerId:         p.CustomerId,
		DonorEmail:         p.DonorEmail,
		DonorName:          p.DonorName,
		AmountCents:        p.AmountCents,
		Currency:           p.Currency,
		Interval:           string(p.Interval),
		Status:             string(p.Status),
		CancelAtPeriodEnd:  p.CancelAtPeriodEnd,
		CurrentPeriodStart: p.CurrentPeriodStart,
		CurrentPeriodEnd:   p.CurrentPeriodEnd,
		LastPledgeAt:       p.LastPledgeAt,
		NextPledgeAt:       p.NextPledgeAt,
		CreatedAt:          p.CreatedAt,
	}
}

func toTransactionResponse(t *entity.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		Id:              t.Id,
		PledgeId:        t.PledgeId,
		Type:            string(t.Type),
		Status:          string(t.Status),
		AmountCents:     t.AmountCents,
		Currency:        t.Currency,
		PayerEmail:      t.PayerEmail,
		PaymentIntentId: t.PaymentIntentId,
		ChargeId:        t.ChargeId,
		InvoiceId:       t.StripeInvoiceId,
		ReceiptUrl:      t.ReceiptUrl,
		PaidAt:          t.PaidAt,
		Metadata:        t.Metadata,
		CreatedAt:       t.CreatedAt,
	}
}

func toRefundResponse(r *entity.Refund) *dto.RefundResponse {
	res := &dto.RefundResponse{
		Id:             r.Id,
		TransactionId:  r.TransactionId,
		StripeRefundId: r.StripeRefundId,
	}
	if r.AmountCents != nil {
		res.AmountCents = *r.AmountCents
	}
	if r.Currency != nil {
		res.Currency = *r.Currency
	}
	if r.Status != nil {
		res.Status = *r.Status
	}
	return res
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
