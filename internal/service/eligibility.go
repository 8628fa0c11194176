package service

import (
	"context"
	"errors"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/repository"
	apperrors "github.com/Developerodin/StepsStamp-backend-v2/pkg/errors"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

// PoolStore is the admission-snapshot persistence surface. Create must
// enforce (user, pool, date) uniqueness and return
// repository.ErrDuplicateEntry on a repeat admission.
type PoolStore interface {
	Create(ctx context.Context, entry *models.PoolEntry) error
	GetByUserDate(ctx context.Context, userID string, date time.Time) ([]models.PoolEntry, error)
	GetByPoolTier(ctx context.Context, poolType models.PoolType, nftAddress string, date time.Time) ([]models.PoolEntry, error)
}

// UserDirectory exposes the wallet/NFT slice of the user aggregate.
// User records are owned by the account service; the reward core only
// reads them.
type UserDirectory interface {
	GetByUser(ctx context.Context, userID string) (*models.UserWallet, error)
	GetByWalletAddress(ctx context.Context, walletAddress string) ([]models.UserWallet, error)
}

// Admission outcomes that are expected results, not faults.
const (
	ReasonInsufficientSteps = "insufficient_steps"
	ReasonAlreadyAdmitted   = "already_admitted"
)

type AdmissionResult struct {
	Admitted bool              `json:"admitted"`
	Reason   string            `json:"reason,omitempty"`
	Entry    *models.PoolEntry `json:"entry,omitempty"`
}

type PoolService struct {
	steps      StepStore
	pools      PoolStore
	users      UserDirectory
	thresholds map[models.PoolType]int64
}

func NewPoolService(steps StepStore, pools PoolStore, users UserDirectory, poolAThreshold, poolBThreshold int64) *PoolService {
	return &PoolService{
		steps: steps,
		pools: pools,
		users: users,
		thresholds: map[models.PoolType]int64{
			models.PoolA: poolAThreshold,
			models.PoolB: poolBThreshold,
		},
	}
}

// TryAdmit evaluates today's reward steps against the pool threshold
// and, if met, freezes an admission snapshot. Duplicate admissions on
// the same day come back as already_admitted without touching the
// original snapshot.
func (s *PoolService) TryAdmit(ctx context.Context, userID string, poolType models.PoolType) (*AdmissionResult, error) {
	threshold, ok := s.thresholds[poolType]
	if !ok {
		return nil, apperrors.New(apperrors.ErrValidation, "unknown pool type", nil)
	}
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "user id is required", nil)
	}

	today := models.DayOf(time.Now())

	record, err := s.steps.GetByUserDate(ctx, userID, today)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrPoolAdmit, "failed to read step record", err)
	}
	if record == nil || record.RewardSteps < threshold {
		return &AdmissionResult{Admitted: false, Reason: ReasonInsufficientSteps}, nil
	}

	wallet, err := s.users.GetByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrPoolAdmit, "failed to read user wallet", err)
	}
	if wallet == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "user wallet not found", nil)
	}

	nftAddress := wallet.NftAddress
	if nftAddress == "" {
		nftAddress = models.FreeTierAddress
	}

	entry := &models.PoolEntry{
		UserID:        userID,
		PoolType:      poolType,
		Date:          today,
		StepsRecorded: record.RewardSteps,
		NftAddress:    nftAddress,
		WalletAddress: wallet.WalletAddress,
	}

	if err := s.pools.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return &AdmissionResult{Admitted: false, Reason: ReasonAlreadyAdmitted}, nil
		}
		return nil, apperrors.New(apperrors.ErrPoolAdmit, "failed to create pool entry", err)
	}

	logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"pool_type": poolType,
		"steps":     record.RewardSteps,
		"nft":       nftAddress,
	}).Info("user admitted to pool")

	return &AdmissionResult{Admitted: true, Entry: entry}, nil
}

type ActivePools struct {
	PoolA bool `json:"PoolA"`
	PoolB bool `json:"PoolB"`
}

// ActivePools reports which pools the user has entered on the given
// day.
func (s *PoolService) ActivePools(ctx context.Context, userID string, date time.Time) (*ActivePools, error) {
	entries, err := s.pools.GetByUserDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	status := &ActivePools{}
	for _, e := range entries {
		switch e.PoolType {
		case models.PoolA:
			status.PoolA = true
		case models.PoolB:
			status.PoolB = true
		}
	}
	return status, nil
}
