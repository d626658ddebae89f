package contract

import (
	"context"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/specification"
)

type WebhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	Update(ctx context.Context, event *entity.WebhookEvent) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error)
}
