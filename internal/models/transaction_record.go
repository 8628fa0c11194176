package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit                TransactionType = "deposit"
	TxWithdrawal             TransactionType = "withdrawal"
	TxStaking                TransactionType = "staking"
	TxUnstaking              TransactionType = "unstaking"
	TxSwap                   TransactionType = "swap"
	TxReferralBonus          TransactionType = "referral_bonus"
	TxInvestorBonus          TransactionType = "investor_bonus"
	TxWatchBonus             TransactionType = "watch_bonus"
	TxPhaseBonus             TransactionType = "phase_bonus"
	TxDailyReward            TransactionType = "daily_reward"
	TxPoolAReward            TransactionType = "pool_A_reward"
	TxPoolBReward            TransactionType = "pool_B_reward"
	TxPurchase               TransactionType = "purchase"
	TxDepositAgainstPurchase TransactionType = "deposite_against_purchase"
)

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
)

// CompanyWallet is the ledger-side identity used as counterparty for
// bonuses and swaps that do not move through a user wallet.
const CompanyWallet = "company_wallet"

// TransactionRecord is one append-only ledger row. Rows are never
// mutated after creation except for status transitions.
type TransactionRecord struct {
	ID              uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string            `gorm:"size:64;not null;index:idx_user_type_time" json:"user_id"`
	TransactionType TransactionType   `gorm:"size:32;not null;index:idx_user_type_time" json:"transaction_type"`
	SenderWallet    string            `gorm:"size:64;not null" json:"sender_wallet"`
	ReceiverWallet  string            `gorm:"size:64;not null" json:"receiver_wallet"`
	Amount          decimal.Decimal   `gorm:"type:decimal(36,18);not null" json:"amount"`
	Currency        string            `gorm:"size:16;not null" json:"currency"`
	TransactionHash string            `gorm:"size:66;index" json:"transaction_hash"`
	Status          TransactionStatus `gorm:"type:enum('pending','completed','failed');not null;default:'pending'" json:"status"`
	Timestamp       time.Time         `gorm:"not null;index:idx_user_type_time" json:"timestamp"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}
