package repository

import (
	"context"
	"errors"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"

	"gorm.io/gorm"
)

type MiningRepository struct {
	db *gorm.DB
}

func NewMiningRepository(db *gorm.DB) *MiningRepository {
	return &MiningRepository{db: db}
}

// Get returns the single global row, or nil when mining has never been
// configured.
func (r *MiningRepository) Get(ctx context.Context) (*models.MiningStatus, error) {
	var status models.MiningStatus
	err := r.db.WithContext(ctx).First(&status).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Set upserts the global toggle row.
func (r *MiningRepository) Set(ctx context.Context, freeMining, blockchainMining bool) (*models.MiningStatus, error) {
	var status models.MiningStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&status).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = models.MiningStatus{FreeMining: freeMining, BlockchainMining: blockchainMining}
			return tx.Create(&status).Error
		}
		if err != nil {
			return err
		}
		status.FreeMining = freeMining
		status.BlockchainMining = blockchainMining
		return tx.Model(&status).Updates(map[string]interface{}{
			"free_mining":       freeMining,
			"blockchain_mining": blockchainMining,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}
