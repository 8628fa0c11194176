package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateEntry is returned by Create when an entry already exists
// for the same (user, pool, date). Callers treat it as the
// already-admitted outcome, not a failure.
var ErrDuplicateEntry = errors.New("pool entry already exists")

type PoolRepository struct {
	db *gorm.DB
}

func NewPoolRepository(db *gorm.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// Create inserts the admission snapshot. Uniqueness on
// (user_id, pool_type, date) is enforced by the database so concurrent
// duplicate admissions cannot race into two rows.
func (r *PoolRepository) Create(ctx context.Context, entry *models.PoolEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEntry
	}
	return err
}

// GetByPoolTier returns all snapshots for a pool/tier pair, optionally
// scoped to one day when date is non-zero.
func (r *PoolRepository) GetByPoolTier(ctx context.Context, poolType models.PoolType, nftAddress string, date time.Time) ([]models.PoolEntry, error) {
	query := r.db.WithContext(ctx).
		Where("pool_type = ? AND nft_address = ?", poolType, nftAddress)

	if !date.IsZero() {
		query = query.Where("date = ?", models.DayOf(date))
	}

	var entries []models.PoolEntry
	err := query.Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *PoolRepository) GetByUserDate(ctx context.Context, userID string, date time.Time) ([]models.PoolEntry, error) {
	var entries []models.PoolEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, models.DayOf(date)).
		Find(&entries).Error
	return entries, err
}
