package repository

import (
	"context"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts the review. The unique index on gig_id turns a concurrent
// duplicate into domain.ErrInvalidState.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	return storeErr(r.db.WithContext(ctx).Create(rv).Error)
}

func (r *ReviewRepository) ExistsForGig(ctx context.Context, gigID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("gig_id = ?", gigID).
		Count(&cnt).Error
	if err != nil {
		return false, storeErr(err)
	}
	return cnt > 0, nil
}
