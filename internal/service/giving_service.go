package service

import (
	"context"

	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// IGivingService serves the donor-facing read models. Reads take no locks and
// may observe a row before its webhook has settled it.
type IGivingService interface {
	GetPledge(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error)
	GetTransaction(ctx context.Context, transactionId uint64) (*dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, filter dto.ListTransactionsFilter) ([]*dto.TransactionResponse, int64, error)
}

type givingService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewGivingService(uowFactory unitofwork.RepositoryFactory) IGivingService {
	return &givingService{
		uowFactory: uowFactory,
	}
}

func (s *givingService) GetPledge(ctx context.Context, pledgeId uint64) (*dto.PledgeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	pledge, err := uow.PledgeRepository().FindOne(ctx, specification.ByID{ID: pledgeId})
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, ErrPledgeNotFound
	}
	return toPledgeResponse(pledge), nil
}

func (s *givingService) GetTransaction(ctx context.Context, transactionId uint64) (*dto.TransactionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tx, err := uow.TransactionRepository().FindOne(ctx, specification.ByID{ID: transactionId})
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	return toTransactionResponse(tx), nil
}

func (s *givingService) ListTransactions(ctx context.Context, filter dto.ListTransactionsFilter) ([]*dto.TransactionResponse, int64, error) {
	var specs []specification.Specification
	if filter.PledgeId != nil {
		specs = append(specs, specification.ByPledgeId{PledgeId: *filter.PledgeId})
	}
	if filter.PayerEmail != "" {
		specs = append(specs, specification.ByPayerEmail{Email: filter.PayerEmail})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.TransactionRepository().Count(ctx, specs...)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	specs = append(specs, specification.Newest(), specification.Pagination{Limit: limit, Offset: offset})
	rows, err := uow.TransactionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, 0, err
	}

	res := make([]*dto.TransactionResponse, 0, len(rows))
	for _, tx := range rows {
		res = append(res, toTransactionResponse(tx))
	}
	return res, total, nil
}
