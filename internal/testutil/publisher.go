package testutil

import (
	"context"
	"sync"

	"giving-ledger-be/internal/entity"
)

// RecordingPublisher keeps every ledger event it is handed.
type RecordingPublisher struct {
	mu sync.Mutex

	Succeeded []entity.Transaction
	Activated []entity.Pledge
	Canceled  []entity.Pledge
	Refunds   []entity.Refund
	Unmatched []entity.Transaction
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) PublishTransactionSucceeded(ctx context.Context, tx *entity.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Succeeded = append(p.Succeeded, *tx)
}

func (p *RecordingPublisher) PublishPledgeActivated(ctx context.Context, pledge *entity.Pledge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Activated = append(p.Activated, *pledge)
}

func (p *RecordingPublisher) PublishPledgeCanceled(ctx context.Context, pledge *entity.Pledge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Canceled = append(p.Canceled, *pledge)
}

func (p *RecordingPublisher) PublishRefundCreated(ctx context.Context, refund *entity.Refund, tx *entity.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Refunds = append(p.Refunds, *refund)
}

func (p *RecordingPublisher) PublishUnmatchedPayment(ctx context.Context, tx *entity.Transaction, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Unmatched = append(p.Unmatched, *tx)
}

func (p *RecordingPublisher) SucceededCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Succeeded)
}
