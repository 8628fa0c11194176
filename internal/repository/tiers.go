package repository

import (
	"context"
	"errors"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"

	"gorm.io/gorm"
)

type TierRepository struct {
	db *gorm.DB
}

func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

func (r *TierRepository) GetByAddress(ctx context.Context, nftAddress string) (*models.NftTier, error) {
	var tier models.NftTier
	err := r.db.WithContext(ctx).
		Where("nft_address = ?", nftAddress).
		First(&tier).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// List returns every tier in insertion order. Distribution iterates
// this sequentially, one tier at a time.
func (r *TierRepository) List(ctx context.Context) ([]models.NftTier, error) {
	var tiers []models.NftTier
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&tiers).Error
	return tiers, err
}

func (r *TierRepository) GetActivePhase(ctx context.Context) (*models.Phase, error) {
	var phase models.Phase
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&phase).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &phase, nil
}
