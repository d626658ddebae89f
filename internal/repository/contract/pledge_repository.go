package contract

import (
	"context"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/specification"
)

type PledgeRepository interface {
	Create(ctx context.Context, pledge *entity.Pledge) error
	Update(ctx context.Context, pledge *entity.Pledge) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Pledge, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Pledge, error)
}
