package models

import (
	"time"
)

type PoolType string

const (
	PoolA PoolType = "A"
	PoolB PoolType = "B"
)

// FreeTierAddress is the sentinel NFT address assigned to users who
// hold no NFT at admission time.
const FreeTierAddress = "free"

// PoolEntry freezes a user's steps, wallet and NFT tier at the moment
// they qualify for a daily pool. The unique index makes re-admission a
// duplicate-key insert, never an overwrite, so the steps-at-entry
// snapshot used by allocation stays intact.
type PoolEntry struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"size:64;not null;uniqueIndex:uk_user_pool_date" json:"user_id"`
	PoolType      PoolType  `gorm:"type:enum('A','B');not null;uniqueIndex:uk_user_pool_date" json:"pool_type"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uk_user_pool_date" json:"date"`
	StepsRecorded int64     `gorm:"not null" json:"steps_recorded"`
	NftAddress    string    `gorm:"size:42;not null;index:idx_pool_nft" json:"nft_address"`
	WalletAddress string    `gorm:"size:42;not null" json:"wallet_address"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PoolEntry) TableName() string {
	return "pool_entries"
}
