package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create inserts o only while its gig is open. The gig row is touched with a
// conditional update first, so an insert racing Accept either commits before
// the gig is assigned (and is closed as a sibling) or fails with
// domain.ErrOfferRaceLost.
func (r *OfferRepository) Create(ctx context.Context, o *domain.Offer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Gig{}).
			Where("id = ? AND status = ?", o.GigID, domain.GigOpen).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrOfferRaceLost
		}
		return storeErr(tx.Create(o).Error)
	})
}

func (r *OfferRepository) GetByID(ctx context.Context, id int64) (*domain.Offer, error) {
	var o domain.Offer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &o, nil
}

func (r *OfferRepository) ListByGig(ctx context.Context, gigID int64) ([]domain.Offer, error) {
	var offers []domain.Offer
	err := r.db.WithContext(ctx).
		Where("gig_id = ?", gigID).
		Order("price ASC").
		Order("id ASC").
		Find(&offers).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return offers, nil
}

// ListByProvider returns a provider's offers with their gig, newest first.
func (r *OfferRepository) ListByProvider(ctx context.Context, providerID int64) ([]domain.Offer, error) {
	var offers []domain.Offer
	err := r.db.WithContext(ctx).
		Preload("Gig").
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&offers).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return offers, nil
}

// Accepted returns the accepted offer of a gig.
func (r *OfferRepository) Accepted(ctx context.Context, gigID int64) (*domain.Offer, error) {
	var o domain.Offer
	err := r.db.WithContext(ctx).
		Where("gig_id = ? AND status = ?", gigID, domain.OfferAccepted).
		First(&o).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return &o, nil
}

// Accept assigns the gig to the offer in one transaction:
//
//	gigs:   open -> assigned      (conditional on status)
//	offer:  pending -> accepted   (conditional on gig_id and status)
//	others: pending -> closed
//
// A lost race on either conditional update rolls the whole unit back and
// returns domain.ErrOfferRaceLost.
func (r *OfferRepository) Accept(ctx context.Context, gigID, offerID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		res := tx.Model(&domain.Gig{}).
			Where("id = ? AND status = ?", gigID, domain.GigOpen).
			Updates(map[string]any{"status": domain.GigAssigned, "updated_at": now})
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrOfferRaceLost
		}

		res = tx.Model(&domain.Offer{}).
			Where("id = ? AND gig_id = ? AND status = ?", offerID, gigID, domain.OfferPending).
			Updates(map[string]any{"status": domain.OfferAccepted, "updated_at": now})
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrOfferRaceLost
		}

		res = tx.Model(&domain.Offer{}).
			Where("gig_id = ? AND id <> ? AND status = ?", gigID, offerID, domain.OfferPending).
			Updates(map[string]any{"status": domain.OfferClosed, "updated_at": now})
		return storeErr(res.Error)
	})
}
