package models

import (
	"time"
)

// StepRecord is the authoritative per-user, per-day step entry. The
// mobile client reports cumulative daily totals, so every update
// replaces the day's values rather than adding to them.
type StepRecord struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"size:64;not null;uniqueIndex:uk_user_date" json:"user_id"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:uk_user_date" json:"date"`
	WalkingSteps int64     `gorm:"not null;default:0" json:"walking_steps"`
	RewardSteps  int64     `gorm:"not null;default:0" json:"reward_steps"`
	Source       string    `gorm:"size:32" json:"source"`
	ReportedAt   time.Time `gorm:"not null" json:"reported_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (StepRecord) TableName() string {
	return "step_records"
}

// DayOf truncates t to its UTC calendar day, the key granularity for
// step records and pool entries.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
