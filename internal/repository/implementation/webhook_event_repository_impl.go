package implementation

import (
	"context"
	"errors"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/mapper"
	"giving-ledger-be/internal/model"
	"giving-ledger-be/internal/repository/contract"
	"giving-ledger-be/internal/repository/specification"

	"gorm.io/gorm"
)

type webhookEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LedgerMapper
}

func NewWebhookEventRepository(db *gorm.DB) contract.WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db, mapper: mapper.NewLedgerMapper()}
}

func (r *webhookEventRepositoryImpl) Create(ctx context.Context, event *entity.WebhookEvent) error {
	m := r.mapper.WebhookEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.WebhookEventToEntity(m)
	return nil
}

func (r *webhookEventRepositoryImpl) Update(ctx context.Context, event *entity.WebhookEvent) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", event.Id).
		Updates(map[string]interface{}{
			"status":       string(event.Status),
			"attempts":     event.Attempts,
			"last_error":   event.LastError,
			"processed_at": event.ProcessedAt,
		}).Error
}

func (r *webhookEventRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WebhookEvent, error) {
	var m model.WebhookEvent
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.WebhookEventToEntity(&m), nil
}
