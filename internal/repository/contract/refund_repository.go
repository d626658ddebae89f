package contract

import (
	"context"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/specification"
)

type RefundRepository interface {
	Create(ctx context.Context, refund *entity.Refund) error
	Update(ctx context.Context, refund *entity.Refund) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Refund, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Refund, error)
}
