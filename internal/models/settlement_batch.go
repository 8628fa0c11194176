package models

import (
	"time"
)

// SettlementBatch tracks one on-chain submission of a distribution
// cycle chunk. The row is written with its transaction hash before the
// transaction is broadcast, and flipped to completed in the same
// database transaction as the chunk's reward rows. A re-run therefore
// always sees what a prior run submitted: completed chunks are
// skipped, pending chunks are resolved from their receipt instead of
// being paid again.
type SettlementBatch struct {
	ID              uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionType TransactionType   `gorm:"size:32;not null;uniqueIndex:uk_cycle_batch" json:"transaction_type"`
	NftAddress      string            `gorm:"size:42;not null;uniqueIndex:uk_cycle_batch" json:"nft_address"`
	Date            time.Time         `gorm:"type:date;not null;uniqueIndex:uk_cycle_batch" json:"date"`
	BatchIndex      int               `gorm:"not null;uniqueIndex:uk_cycle_batch" json:"batch_index"`
	TxHash          string            `gorm:"size:66;not null;index" json:"tx_hash"`
	Status          TransactionStatus `gorm:"type:enum('pending','completed','failed');not null;default:'pending'" json:"status"`
	Recorded        int               `gorm:"not null;default:0" json:"recorded"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (SettlementBatch) TableName() string {
	return "settlement_batches"
}
