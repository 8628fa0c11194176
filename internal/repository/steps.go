package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"

	"gorm.io/gorm"
)

type StepRepository struct {
	db *gorm.DB
}

func NewStepRepository(db *gorm.DB) *StepRepository {
	return &StepRepository{db: db}
}

// Upsert replaces the day's entry with the reported totals. The client
// reports cumulative daily counts, so this is last-write-wins, not
// additive.
func (r *StepRepository) Upsert(ctx context.Context, record *models.StepRecord) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO step_records (user_id, date, walking_steps, reward_steps, source, reported_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
			walking_steps = VALUES(walking_steps),
			reward_steps = VALUES(reward_steps),
			source = VALUES(source),
			reported_at = VALUES(reported_at)
	`, record.UserID, record.Date, record.WalkingSteps, record.RewardSteps, record.Source, record.ReportedAt).Error
}

func (r *StepRepository) GetByUserDate(ctx context.Context, userID string, date time.Time) (*models.StepRecord, error) {
	var record models.StepRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, models.DayOf(date)).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetRange returns the user's records with date in [from, to], ordered
// ascending. Days with no record are absent; the service layer fills
// placeholders.
func (r *StepRepository) GetRange(ctx context.Context, userID string, from, to time.Time) ([]models.StepRecord, error) {
	var records []models.StepRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, models.DayOf(from), models.DayOf(to)).
		Order("date ASC").
		Find(&records).Error
	return records, err
}

func (r *StepRepository) GetAllByUser(ctx context.Context, userID string) ([]models.StepRecord, error) {
	var records []models.StepRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Find(&records).Error
	return records, err
}
