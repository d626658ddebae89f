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

type PledgeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LedgerMapper
}

func NewPledgeRepository(db *gorm.DB) contract.PledgeRepository {
	return &PledgeRepositoryImpl{
		db:     db,
		mapper: mapper.NewLedgerMapper(),
	}
}

func (r *PledgeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PledgeRepositoryImpl) Create(ctx context.Context, pledge *entity.Pledge) error {
	m := r.mapper.PledgeToModel(pledge)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*pledge = *r.mapper.PledgeToEntity(m)
	return nil
}

func (r *PledgeRepositoryImpl) Update(ctx context.Context, pledge *entity.Pledge) error {
	m := r.mapper.PledgeToModel(pledge)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*pledge = *r.mapper.PledgeToEntity(m)
	return nil
}

func (r *PledgeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Pledge, error) {
	var m model.Pledge
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PledgeToEntity(&m), nil
}

func (r *PledgeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Pledge, error) {
	var models []*model.Pledge
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Pledge, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PledgeToEntity(m)
	}
	return entities, nil
}
