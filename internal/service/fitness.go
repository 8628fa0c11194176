package service

import (
	"context"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/errors"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

// StepStore is the persistence surface the step ledger needs.
type StepStore interface {
	Upsert(ctx context.Context, record *models.StepRecord) error
	GetByUserDate(ctx context.Context, userID string, date time.Time) (*models.StepRecord, error)
	GetRange(ctx context.Context, userID string, from, to time.Time) ([]models.StepRecord, error)
	GetAllByUser(ctx context.Context, userID string) ([]models.StepRecord, error)
}

type FitnessService struct {
	steps         StepStore
	goalThreshold int64
}

func NewFitnessService(steps StepStore, goalThreshold int64) *FitnessService {
	return &FitnessService{
		steps:         steps,
		goalThreshold: goalThreshold,
	}
}

// ReportSteps stores the day's cumulative totals for a user. Each call
// replaces the previous values for the day; the client always reports
// running daily totals, never deltas.
func (s *FitnessService) ReportSteps(ctx context.Context, userID string, walkingSteps, rewardSteps int64, source string) error {
	if userID == "" {
		return errors.New(errors.ErrValidation, "user id is required", nil)
	}
	if walkingSteps < 0 || rewardSteps < 0 {
		return errors.New(errors.ErrValidation, "step counts must not be negative", nil)
	}

	now := time.Now().UTC()
	record := &models.StepRecord{
		UserID:       userID,
		Date:         models.DayOf(now),
		WalkingSteps: walkingSteps,
		RewardSteps:  rewardSteps,
		Source:       source,
		ReportedAt:   now,
	}

	if err := s.steps.Upsert(ctx, record); err != nil {
		return errors.New(errors.ErrStepUpdate, "failed to store step record", err)
	}

	logger.WithFields(map[string]interface{}{
		"user_id":       userID,
		"walking_steps": walkingSteps,
		"reward_steps":  rewardSteps,
		"source":        source,
	}).Debug("steps updated")

	return nil
}

// GetDay returns the record for one calendar day, or NOT_FOUND when the
// user never reported on that day.
func (s *FitnessService) GetDay(ctx context.Context, userID string, date time.Time) (*models.StepRecord, error) {
	record, err := s.steps.GetByUserDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New(errors.ErrNotFound, "no step record for the requested day", nil)
	}
	return record, nil
}

// GetRange returns one record per calendar day in [from, to], inserting
// zero-valued placeholders for silent days so streak and summary views
// have a defined value for every date.
func (s *FitnessService) GetRange(ctx context.Context, userID string, from, to time.Time) ([]models.StepRecord, error) {
	from, to = models.DayOf(from), models.DayOf(to)
	if to.Before(from) {
		return nil, errors.New(errors.ErrValidation, "range end precedes range start", nil)
	}

	records, err := s.steps.GetRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]models.StepRecord, len(records))
	for _, r := range records {
		byDay[models.DayOf(r.Date)] = r
	}

	var out []models.StepRecord
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if r, ok := byDay[day]; ok {
			out = append(out, r)
		} else {
			out = append(out, models.StepRecord{UserID: userID, Date: day})
		}
	}
	return out, nil
}

type StepStats struct {
	UserID        string `json:"userId"`
	TotalSteps    int64  `json:"totalSteps"`
	CurrentStreak int    `json:"currentStreak"`
	MaxStreak     int    `json:"maxStreak"`
}

// StepStats computes lifetime reward-step totals and goal streaks as of
// the given day. A streak day is one whose reward steps meet the daily
// goal; any gap breaks it, and the current streak is zero unless the
// last qualifying day is asOf itself.
func (s *FitnessService) StepStats(ctx context.Context, userID string, asOf time.Time) (*StepStats, error) {
	records, err := s.steps.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &StepStats{UserID: userID}
	var currentStreak, maxStreak int
	var lastDay time.Time

	for _, r := range records {
		day := models.DayOf(r.Date)
		stats.TotalSteps += r.RewardSteps

		if r.RewardSteps >= s.goalThreshold {
			if lastDay.IsZero() || day.Sub(lastDay) > 24*time.Hour {
				currentStreak = 1
			} else {
				currentStreak++
			}
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}

		lastDay = day
	}

	if !lastDay.Equal(models.DayOf(asOf)) {
		currentStreak = 0
	}

	stats.CurrentStreak = currentStreak
	stats.MaxStreak = maxStreak
	return stats, nil
}

// WeeklyGoalStatus reports, for each day of the ISO week containing
// asOf, whether combined walking and reward steps met the daily goal.
// Keys are weekday names Monday through Sunday.
func (s *FitnessService) WeeklyGoalStatus(ctx context.Context, userID string, asOf time.Time) (map[string]bool, error) {
	day := models.DayOf(asOf)
	offset := (int(day.Weekday()) + 6) % 7 // Monday-based week
	weekStart := day.AddDate(0, 0, -offset)

	records, err := s.steps.GetRange(ctx, userID, weekStart, weekStart.AddDate(0, 0, 6))
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]models.StepRecord, len(records))
	for _, r := range records {
		byDay[models.DayOf(r.Date)] = r
	}

	status := make(map[string]bool, 7)
	for i := 0; i < 7; i++ {
		d := weekStart.AddDate(0, 0, i)
		r := byDay[d]
		status[d.Weekday().String()] = r.WalkingSteps+r.RewardSteps >= s.goalThreshold
	}
	return status, nil
}
