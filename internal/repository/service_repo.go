package repository

import (
	"context"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, s *domain.Service) error {
	return storeErr(r.db.WithContext(ctx).Create(s).Error)
}

func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	var s domain.Service
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &s, nil
}

// List returns services newest first.
func (r *ServiceRepository) List(ctx context.Context, limit int) ([]domain.Service, error) {
	var services []domain.Service
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&services).Error; err != nil {
		return nil, storeErr(err)
	}
	return services, nil
}
