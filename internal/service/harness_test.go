package service

import (
	"context"
	"testing"
	"time"

	"giving-ledger-be/internal/config"
	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/repository/memory"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
	"giving-ledger-be/internal/testutil"
	"giving-ledger-be/pkg/clock"

	"github.com/stretchr/testify/require"
)

var (
	periodStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	testNow     = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	factory    unitofwork.RepositoryFactory
	gateway    *testutil.FakeGateway
	events     *testutil.RecordingPublisher
	pledges    IPledgeService
	webhooks   IWebhookService
	dispatcher IWebhookDispatcher
	reads      IGivingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.NewDB(t)
	factory := unitofwork.NewRepositoryFactory(db, unitofwork.WithBackoff(0))
	gateway := testutil.NewFakeGateway()
	events := testutil.NewRecordingPublisher()
	clk := clock.Fixed{At: testNow}
	log := logger.NewNopLogger()

	claimer := NewTransactionClaimer()
	resolver := NewTransactionResolver()
	pledges := NewPledgeService(factory, gateway, claimer, resolver, events, clk, config.StripeConfig{
		ProductId:       "prod_giving",
		DefaultCurrency: "usd",
	}, log)
	webhooks := NewWebhookService(factory, pledges, claimer, resolver, gateway, events, clk, log)

	return &harness{
		factory:    factory,
		gateway:    gateway,
		events:     events,
		pledges:    pledges,
		webhooks:   webhooks,
		dispatcher: NewWebhookDispatcher(factory, webhooks, memory.NewDeliveryMarker(time.Hour), clk, log),
		reads:      NewGivingService(factory),
	}
}

func (h *harness) uow() unitofwork.UnitOfWork {
	return h.factory.NewUnitOfWork(context.Background())
}

func (h *harness) createPledge(t *testing.T, p *entity.Pledge) *entity.Pledge {
	t.Helper()
	if p.Status == "" {
		p.Status = entity.PledgeStatusIncomplete
	}
	if p.Interval == "" {
		p.Interval = entity.PledgeIntervalMonth
	}
	if p.Currency == "" {
		p.Currency = "usd"
	}
	require.NoError(t, h.uow().PledgeRepository().Create(context.Background(), p))
	return p
}

func (h *harness) createTransaction(t *testing.T, tx *entity.Transaction) *entity.Transaction {
	t.Helper()
	if tx.Status == "" {
		tx.Status = entity.TransactionStatusPending
	}
	if tx.Type == "" {
		tx.Type = entity.TransactionTypeOneTime
	}
	require.NoError(t, h.uow().TransactionRepository().Create(context.Background(), tx))
	return tx
}

func (h *harness) pledge(t *testing.T, id uint64) *entity.Pledge {
	t.Helper()
	p, err := h.uow().PledgeRepository().FindOne(context.Background(), specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (h *harness) transaction(t *testing.T, id uint64) *entity.Transaction {
	t.Helper()
	tx, err := h.uow().TransactionRepository().FindOne(context.Background(), specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, tx)
	return tx
}

func (h *harness) transactions(t *testing.T) []*entity.Transaction {
	t.Helper()
	rows, err := h.uow().TransactionRepository().FindAll(context.Background(), specification.Oldest())
	require.NoError(t, err)
	return rows
}

func (h *harness) countTransactions(t *testing.T) int64 {
	t.Helper()
	n, err := h.uow().TransactionRepository().Count(context.Background())
	require.NoError(t, err)
	return n
}

func (h *harness) countRefunds(t *testing.T) int64 {
	t.Helper()
	rows, err := h.uow().RefundRepository().FindAll(context.Background())
	require.NoError(t, err)
	return int64(len(rows))
}

// ledgerView is the part of a row that replaying an event must not change.
type ledgerView struct {
	Id              uint64
	PledgeId        *uint64
	InvoiceId       string
	PaymentIntentId string
	ChargeId        string
	Status          entity.TransactionStatus
	Type            entity.TransactionType
	AmountCents     int64
	PaidAt          *time.Time
	Metadata        map[string]any
}

func viewOf(rows []*entity.Transaction) []ledgerView {
	out := make([]ledgerView, 0, len(rows))
	for _, tx := range rows {
		var paidAt *time.Time
		if tx.PaidAt != nil {
			at := tx.PaidAt.UTC()
			paidAt = &at
		}
		out = append(out, ledgerView{
			Id:              tx.Id,
			PledgeId:        tx.PledgeId,
			InvoiceId:       tx.StripeInvoiceId,
			PaymentIntentId: tx.PaymentIntentId,
			ChargeId:        tx.ChargeId,
			Status:          tx.Status,
			Type:            tx.Type,
			AmountCents:     tx.AmountCents,
			PaidAt:          paidAt,
			Metadata:        tx.Metadata,
		})
	}
	return out
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
