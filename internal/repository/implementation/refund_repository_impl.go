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

type refundRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LedgerMapper
}

func NewRefundRepository(db *gorm.DB) contract.RefundRepository {
	return &refundRepositoryImpl{db: db, mapper: mapper.NewLedgerMapper()}
}

func (r *refundRepositoryImpl) Create(ctx context.Context, refund *entity.Refund) error {
	m := r.mapper.RefundToModel(refund)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*refund = *r.mapper.RefundToEntity(m)
	return nil
}

func (r *refundRepositoryImpl) Update(ctx context.Context, refund *entity.Refund) error {
	return r.db.WithContext(ctx).Model(&model.Refund{}).
		Where("id = ?", refund.Id).
		Updates(map[string]interface{}{
			"charge_id":    refund.ChargeId,
			"amount_cents": refund.AmountCents,
			"currency":     refund.Currency,
			"status":       refund.Status,
			"reason":       refund.Reason,
		}).Error
}

func (r *refundRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Refund, error) {
	var modelRefund model.Refund
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&modelRefund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.RefundToEntity(&modelRefund), nil
}

func (r *refundRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Refund, error) {
	var modelRefunds []*model.Refund
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&modelRefunds).Error; err != nil {
		return nil, err
	}

	var refunds []*entity.Refund
	for _, mr := range modelRefunds {
		refunds = append(refunds, r.mapper.RefundToEntity(mr))
	}

	return refunds, nil
}
