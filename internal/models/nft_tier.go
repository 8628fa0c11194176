package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PhaseBonuses maps phase name to the flat token bonus granted on a
// purchase made while that phase is active.
type PhaseBonuses map[string]decimal.Decimal

func (p PhaseBonuses) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PhaseBonuses) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, p)
}

// NftTier is static reference data for one NFT collection: its daily
// mining cap (split evenly between Pool A and Pool B), the referral
// bonus percentage applied when a referrer holds this tier, and the
// per-phase purchase bonuses.
type NftTier struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	NftAddress      string          `gorm:"size:42;not null;uniqueIndex" json:"nft_address"`
	TierName        string          `gorm:"size:32;not null" json:"tier_name"`
	DailyMineCap    float64         `gorm:"not null" json:"daily_mine_cap"`
	ReferralPercent decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0" json:"referral_percent"`
	PhaseBonuses    PhaseBonuses    `gorm:"type:json" json:"phase_bonuses"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (NftTier) TableName() string {
	return "nft_tiers"
}

// PoolBudget is the token budget one pool may pay out for this tier in
// a single day.
func (t *NftTier) PoolBudget() float64 {
	return t.DailyMineCap / 2
}
