package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, record *models.TransactionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ExistsByHashAndType reports whether the ledger already holds rows for
// a transaction hash and type. Settlement uses this as its re-run
// guard before recording a confirmed batch.
func (r *TransactionRepository) ExistsByHashAndType(ctx context.Context, txHash string, txType models.TransactionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("transaction_hash = ? AND transaction_type = ?", txHash, txType).
		Count(&count).Error
	return count > 0, err
}

// SaveBatch persists a chunk's submission record. Resubmitting the
// same (type, nft, date, index) slot after a revert replaces the hash
// and resets the status instead of inserting a second row.
func (r *TransactionRepository) SaveBatch(ctx context.Context, batch *models.SettlementBatch) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO settlement_batches (transaction_type, nft_address, date, batch_index, tx_hash, status, recorded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW())
		ON DUPLICATE KEY UPDATE
			tx_hash = VALUES(tx_hash),
			status = VALUES(status),
			recorded = VALUES(recorded)
	`, batch.TransactionType, batch.NftAddress, models.DayOf(batch.Date), batch.BatchIndex, batch.TxHash, batch.Status).Error
}

// ConfirmSettlement marks a chunk completed and appends its reward
// rows in one database transaction, so a confirmed chunk is either
// fully ledgered or not ledgered at all.
func (r *TransactionRepository) ConfirmSettlement(ctx context.Context, batch *models.SettlementBatch, records []*models.TransactionRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.SettlementBatch{}).
			Where("transaction_type = ? AND nft_address = ? AND date = ? AND batch_index = ?",
				batch.TransactionType, batch.NftAddress, models.DayOf(batch.Date), batch.BatchIndex).
			Updates(map[string]interface{}{
				"status":   models.TxStatusCompleted,
				"recorded": len(records),
			}).Error
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SettledBatch returns the submission record for one cycle chunk, or
// nil when the chunk has never been submitted.
func (r *TransactionRepository) SettledBatch(ctx context.Context, txType models.TransactionType, nftAddress string, date time.Time, batchIndex int) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("transaction_type = ? AND nft_address = ? AND date = ? AND batch_index = ?",
			txType, nftAddress, models.DayOf(date), batchIndex).
		First(&batch).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *TransactionRepository) GetByUser(ctx context.Context, userID string, types ...models.TransactionType) ([]models.TransactionRecord, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID)

	if len(types) > 0 {
		query = query.Where("transaction_type IN ?", types)
	}

	var records []models.TransactionRecord
	err := query.Order("timestamp DESC").Find(&records).Error
	return records, err
}

func (r *TransactionRepository) GetByWindow(ctx context.Context, userID string, types []models.TransactionType, from, to time.Time) ([]models.TransactionRecord, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp <= ?", userID, from, to)

	if len(types) > 0 {
		query = query.Where("transaction_type IN ?", types)
	}

	var records []models.TransactionRecord
	err := query.Order("timestamp ASC").Find(&records).Error
	return records, err
}

// UpdateStatus performs the only mutation the ledger permits: a status
// transition on an existing row.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uint64, status models.TransactionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}
