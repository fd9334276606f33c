package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type GigRepository struct {
	db *gorm.DB
}

func NewGigRepository(db *gorm.DB) *GigRepository {
	return &GigRepository{db: db}
}

func (r *GigRepository) Create(ctx context.Context, g *domain.Gig) error {
	return storeErr(r.db.WithContext(ctx).Create(g).Error)
}

func (r *GigRepository) GetByID(ctx context.Context, id int64) (*domain.Gig, error) {
	var g domain.Gig
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &g, nil
}

// ListOpen returns open gigs, soonest first.
func (r *GigRepository) ListOpen(ctx context.Context, limit int) ([]domain.Gig, error) {
	var gigs []domain.Gig
	q := r.db.WithContext(ctx).
		Where("status = ?", domain.GigOpen).
		Order("gig_date ASC").
		Order("start_time ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&gigs).Error; err != nil {
		return nil, storeErr(err)
	}
	return gigs, nil
}

// ListByOwner returns the owner's gigs with their offers, newest first.
func (r *GigRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Gig, error) {
	var gigs []domain.Gig
	err := r.db.WithContext(ctx).
		Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("price ASC, id ASC") }).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&gigs).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return gigs, nil
}

// Complete moves a gig from assigned to completed. It returns
// domain.ErrGigNotAssigned when the gig was not assigned at update time.
func (r *GigRepository) Complete(ctx context.Context, gigID int64) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Gig{}).
		Where("id = ? AND status = ?", gigID, domain.GigAssigned).
		Updates(map[string]any{"status": domain.GigCompleted, "updated_at": time.Now()})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrGigNotAssigned
	}
	return nil
}
