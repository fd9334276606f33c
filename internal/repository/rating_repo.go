package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

// RatingRepository reads review ratings through sqlx on the same pool gorm uses.
// Only reviews of a completed gig whose accepted offer belongs to the reviewee count.
type RatingRepository struct {
	db *sqlx.DB
}

func NewRatingRepository(db *gorm.DB) (*RatingRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("rating repository: %w", err)
	}
	return &RatingRepository{db: sqlx.NewDb(sqlDB, driverName(db))}, nil
}

func driverName(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

const ratingsQuery = `
SELECT r.reviewee_id, r.rating
FROM reviews r
JOIN gigs g ON g.id = r.gig_id AND g.status = ?
JOIN offers o ON o.gig_id = r.gig_id AND o.status = ? AND o.provider_id = r.reviewee_id
WHERE r.reviewee_id IN (?)
ORDER BY r.id`

type ratingRow struct {
	RevieweeID int64 `db:"reviewee_id"`
	Rating     int   `db:"rating"`
}

// Ratings returns the ratings received by each provider. Providers without
// reviews are absent from the map.
func (r *RatingRepository) Ratings(ctx context.Context, providerIDs []int64) (map[int64][]int, error) {
	out := make(map[int64][]int, len(providerIDs))
	if len(providerIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(ratingsQuery, domain.GigCompleted, domain.OfferAccepted, providerIDs)
	if err != nil {
		return nil, fmt.Errorf("build ratings query: %w", err)
	}

	var rows []ratingRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, storeErr(err)
	}
	for _, row := range rows {
		out[row.RevieweeID] = append(out[row.RevieweeID], row.Rating)
	}
	return out, nil
}
