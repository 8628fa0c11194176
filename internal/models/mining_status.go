package models

import (
	"time"
)

// MiningStatus is a single global row toggling the two reward paths.
// The distribution scheduler skips its run while BlockchainMining is
// off.
type MiningStatus struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FreeMining       bool      `gorm:"not null;default:false" json:"free_mining"`
	BlockchainMining bool      `gorm:"not null;default:false" json:"blockchain_mining"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MiningStatus) TableName() string {
	return "mining_status"
}
