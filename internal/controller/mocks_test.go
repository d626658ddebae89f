package controller

import (
	"context"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/unitofwork"
	"giving-ledger-be/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"
)

type mockPledgeService struct {
	mock.Mock
}

func (m *mockPledgeService) StartPledge(ctx context.Context, req *dto.StartPledgeRequest) (*dto.StartPledgeResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*dto.StartPledgeResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) StartOneTimeGift(ctx context.Context, req *dto.StartOneTimeGiftRequest) (*dto.StartOneTimeGiftResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*dto.StartOneTimeGiftResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) CreateSubscriptionForPledge(ctx context.Context, pledgeId uint64, paymentMethodId string) (*dto.PledgeResponse, error) {
	args := m.Called(ctx, pledgeId, paymentMethodId)
	res, _ := args.Get(0).(*dto.PledgeResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) CancelSubscriptionAtPeriodEnd(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error) {
	args := m.Called(ctx, pledgeId)
	res, _ := args.Get(0).(*dto.PledgeResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) ResumeSubscription(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error) {
	args := m.Called(ctx, pledgeId)
	res, _ := args.Get(0).(*dto.PledgeResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) UpdateSubscriptionAmount(ctx context.Context, pledgeId uint64, newAmountCents int64) (*dto.PledgeResponse, error) {
	args := m.Called(ctx, pledgeId, newAmountCents)
	res, _ := args.Get(0).(*dto.PledgeResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) Refund(ctx context.Context, transactionId uint64) (*dto.RefundResponse, error) {
	args := m.Called(ctx, transactionId)
	res, _ := args.Get(0).(*dto.RefundResponse)
	return res, args.Error(1)
}

func (m *mockPledgeService) GetOrCreateCustomer(ctx context.Context, attrs dto.CustomerAttributes) (string, error) {
	args := m.Called(ctx, attrs)
	return args.String(0), args.Error(1)
}

func (m *mockPledgeService) FinalizeTransactionFromPaymentIntent(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, pi *dto.PaymentIntentEvent, charge *dto.ChargeEvent) (*entity.Transaction, error) {
	args := m.Called(ctx, uow, tx, pi, charge)
	res, _ := args.Get(0).(*entity.Transaction)
	return res, args.Error(1)
}

type mockGivingService struct {
	mock.Mock
}

func (m *mockGivingService) GetPledge(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error) {
	args := m.Called(ctx, pledgeId)
	res, _ := args.Get(0).(*dto.PledgeResponse)
	return res, args.Error(1)
}

func (m *mockGivingService) GetTransaction(ctx context.Context, transactionId uint64) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, transactionId)
	res, _ := args.Get(0).(*dto.TransactionResponse)
	return res, args.Error(1)
}

func (m *mockGivingService) ListTransactions(ctx context.Context, filter dto.ListTransactionsFilter) ([]*dto.TransactionResponse, int64, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).([]*dto.TransactionResponse)
	return res, args.Get(1).(int64), args.Error(2)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, event stripe.Event) (service.DispatchStatus, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(service.DispatchStatus), args.Error(1)
}
