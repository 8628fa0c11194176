package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/errors"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

// TransactionStore is the full ledger surface: append-only writes plus
// the read paths reporting views build on.
type TransactionStore interface {
	LedgerStore
	Create(ctx context.Context, record *models.TransactionRecord) error
	GetByUser(ctx context.Context, userID string, types ...models.TransactionType) ([]models.TransactionRecord, error)
	GetByWindow(ctx context.Context, userID string, types []models.TransactionType, from, to time.Time) ([]models.TransactionRecord, error)
	UpdateStatus(ctx context.Context, id uint64, status models.TransactionStatus) error
}

type LedgerService struct {
	transactions TransactionStore
	tiers        TierStore
	currency     string
}

func NewLedgerService(transactions TransactionStore, tiers TierStore, currency string) *LedgerService {
	return &LedgerService{
		transactions: transactions,
		tiers:        tiers,
		currency:     currency,
	}
}

// Append writes one ledger row. Rows are immutable once written; only
// a status transition may follow.
func (s *LedgerService) Append(ctx context.Context, record *models.TransactionRecord) (uint64, error) {
	if record.UserID == "" {
		return 0, errors.New(errors.ErrValidation, "user id is required", nil)
	}
	if record.Amount.IsNegative() {
		return 0, errors.New(errors.ErrValidation, "amount must not be negative", nil)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = models.TxStatusPending
	}

	if err := s.transactions.Create(ctx, record); err != nil {
		return 0, errors.New(errors.ErrLedgerAppend, "failed to append transaction record", err)
	}
	return record.ID, nil
}

func (s *LedgerService) QueryByUser(ctx context.Context, userID string, types ...models.TransactionType) ([]models.TransactionRecord, error) {
	return s.transactions.GetByUser(ctx, userID, types...)
}

func (s *LedgerService) QueryByWindow(ctx context.Context, userID string, types []models.TransactionType, from, to time.Time) ([]models.TransactionRecord, error) {
	return s.transactions.GetByWindow(ctx, userID, types, from, to)
}

func (s *LedgerService) MarkStatus(ctx context.Context, id uint64, status models.TransactionStatus) error {
	return s.transactions.UpdateStatus(ctx, id, status)
}

// PurchaseInput carries one NFT purchase plus the optional referrer
// context needed for the referral bonus row.
type PurchaseInput struct {
	UserID             string
	SenderWallet       string
	ReceiverWallet     string
	Amount             decimal.Decimal
	Currency           string
	TransactionHash    string
	NftAddress         string
	ReferrerUserID     string
	ReferrerWallet     string
	ReferrerNftAddress string
}

// RecordPurchase writes the purchase row plus its derived rows: the
// active phase's bonus for the purchased tier, and a referral bonus
// computed from the referrer tier's percentage when a referrer is
// present.
func (s *LedgerService) RecordPurchase(ctx context.Context, input PurchaseInput) error {
	if input.Amount.IsNegative() {
		return errors.New(errors.ErrValidation, "purchase amount must not be negative", nil)
	}

	purchase := &models.TransactionRecord{
		UserID:          input.UserID,
		TransactionType: models.TxPurchase,
		SenderWallet:    input.SenderWallet,
		ReceiverWallet:  input.ReceiverWallet,
		Amount:          input.Amount,
		Currency:        input.Currency,
		TransactionHash: input.TransactionHash,
		Status:          models.TxStatusCompleted,
	}
	if _, err := s.Append(ctx, purchase); err != nil {
		return err
	}

	if bonus := s.phaseBonus(ctx, input.NftAddress); bonus.IsPositive() {
		phaseBonus := &models.TransactionRecord{
			UserID:          input.UserID,
			TransactionType: models.TxPhaseBonus,
			SenderWallet:    models.CompanyWallet,
			ReceiverWallet:  input.SenderWallet,
			Amount:          bonus,
			Currency:        s.currency,
			TransactionHash: input.TransactionHash,
			Status:          models.TxStatusCompleted,
		}
		if _, err := s.Append(ctx, phaseBonus); err != nil {
			return err
		}
	}

	if input.ReferrerUserID != "" {
		percent, err := s.ReferralPercent(ctx, input.ReferrerNftAddress)
		if err != nil {
			return err
		}
		if percent.IsPositive() {
			referral := &models.TransactionRecord{
				UserID:          input.ReferrerUserID,
				TransactionType: models.TxReferralBonus,
				SenderWallet:    models.CompanyWallet,
				ReceiverWallet:  input.ReferrerWallet,
				Amount:          input.Amount.Mul(percent),
				Currency:        s.currency,
				TransactionHash: input.TransactionHash,
				Status:          models.TxStatusCompleted,
			}
			if _, err := s.Append(ctx, referral); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReferralPercent looks up the bonus fraction for a referrer's tier.
// Unknown or free tiers earn nothing.
func (s *LedgerService) ReferralPercent(ctx context.Context, nftAddress string) (decimal.Decimal, error) {
	if nftAddress == "" || nftAddress == models.FreeTierAddress {
		return decimal.Zero, nil
	}
	tier, err := s.tiers.GetByAddress(ctx, nftAddress)
	if err != nil {
		return decimal.Zero, errors.New(errors.ErrLedgerAppend, "failed to read referrer tier", err)
	}
	if tier == nil {
		return decimal.Zero, nil
	}
	return tier.ReferralPercent, nil
}

func (s *LedgerService) phaseBonus(ctx context.Context, nftAddress string) decimal.Decimal {
	phase, err := s.tiers.GetActivePhase(ctx)
	if err != nil || phase == nil {
		if err != nil {
			logger.Error("failed to read active phase: ", err)
		}
		return decimal.Zero
	}
	tier, err := s.tiers.GetByAddress(ctx, nftAddress)
	if err != nil || tier == nil {
		if err != nil {
			logger.Error("failed to read tier for phase bonus: ", err)
		}
		return decimal.Zero
	}
	return tier.PhaseBonuses[phase.Name]
}

// RecordSwap writes a swap row against the company wallet.
func (s *LedgerService) RecordSwap(ctx context.Context, userID, senderWallet string, amount decimal.Decimal, currency, txHash string) error {
	record := &models.TransactionRecord{
		UserID:          userID,
		TransactionType: models.TxSwap,
		SenderWallet:    senderWallet,
		ReceiverWallet:  models.CompanyWallet,
		Amount:          amount,
		Currency:        currency,
		TransactionHash: txHash,
		Status:          models.TxStatusCompleted,
	}
	_, err := s.Append(ctx, record)
	return err
}

// DailyRewards is one day of a reward summary window.
type DailyRewards struct {
	Date        time.Time       `json:"date"`
	PoolAReward decimal.Decimal `json:"poolAReward"`
	PoolBReward decimal.Decimal `json:"poolBReward"`
	TotalReward decimal.Decimal `json:"totalReward"`
}

// LastNDaysRewards aggregates pool reward ledger rows per day over the
// trailing window ending at asOf. Every day of the window is present
// in the result, zeroed when nothing was earned.
func (s *LedgerService) LastNDaysRewards(ctx context.Context, userID string, days int, asOf time.Time) ([]DailyRewards, error) {
	if days <= 0 {
		return nil, errors.New(errors.ErrValidation, "days must be a positive number", nil)
	}

	end := models.DayOf(asOf)
	start := end.AddDate(0, 0, -(days - 1))

	records, err := s.transactions.GetByWindow(ctx, userID,
		[]models.TransactionType{models.TxPoolAReward, models.TxPoolBReward},
		start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*DailyRewards, days)
	out := make([]DailyRewards, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		out = append(out, DailyRewards{Date: day})
		byDay[day] = &out[len(out)-1]
	}

	for _, r := range records {
		day := models.DayOf(r.Timestamp)
		summary, ok := byDay[day]
		if !ok {
			continue
		}
		switch r.TransactionType {
		case models.TxPoolAReward:
			summary.PoolAReward = summary.PoolAReward.Add(r.Amount)
		case models.TxPoolBReward:
			summary.PoolBReward = summary.PoolBReward.Add(r.Amount)
		}
		summary.TotalReward = summary.PoolAReward.Add(summary.PoolBReward)
	}

	return out, nil
}
