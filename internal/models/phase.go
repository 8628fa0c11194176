package models

import (
	"time"
)

// Phase marks a token sale phase. Exactly one phase is expected to be
// active at a time; its name selects the purchase bonus from each
// tier's PhaseBonuses table.
type Phase struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:32;not null;uniqueIndex" json:"name"`
	IsActive  bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Phase) TableName() string {
	return "phases"
}
