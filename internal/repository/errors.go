package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

// storeErr maps driver errors onto the domain taxonomy.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// createInTopicOrder inserts row so that ids of one realtime topic become
// visible in id order. On Postgres the sequence value is taken at insert but
// published at commit, so inserts on the same topic are serialized with a
// transaction-scoped advisory lock. SQLite already has a single writer.
func createInTopicOrder(ctx context.Context, db *gorm.DB, topic string, row any) error {
	if db.Dialector.Name() != "postgres" {
		return storeErr(db.WithContext(ctx).Create(row).Error)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", topic).Error; err != nil {
			return storeErr(err)
		}
		return storeErr(tx.Create(row).Error)
	})
}
