package models

import (
	"time"
)

// UserWallet is the slice of the user aggregate the reward core needs:
// the decentralized wallet a user settles to and the NFT tier they
// hold. The rest of the user record lives with the account service.
type UserWallet struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"size:64;not null;uniqueIndex" json:"user_id"`
	WalletAddress string    `gorm:"size:42;not null;index" json:"wallet_address"`
	NftAddress    string    `gorm:"size:42" json:"nft_address"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserWallet) TableName() string {
	return "user_wallets"
}
