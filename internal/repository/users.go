package repository

import (
	"context"
	"errors"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"

	"gorm.io/gorm"
)

// UserWalletRepository reads the wallet/NFT slice of the user aggregate
// the reward core depends on. The rows themselves are maintained by the
// account service.
type UserWalletRepository struct {
	db *gorm.DB
}

func NewUserWalletRepository(db *gorm.DB) *UserWalletRepository {
	return &UserWalletRepository{db: db}
}

func (r *UserWalletRepository) GetByUser(ctx context.Context, userID string) (*models.UserWallet, error) {
	var wallet models.UserWallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetByWalletAddress returns every user mapped to a wallet. Multiple
// users sharing a receiving wallet is rare but legal, so settlement
// records a ledger row for each.
func (r *UserWalletRepository) GetByWalletAddress(ctx context.Context, walletAddress string) ([]models.UserWallet, error) {
	var wallets []models.UserWallet
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		Find(&wallets).Error
	return wallets, err
}
