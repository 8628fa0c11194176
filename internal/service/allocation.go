package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/errors"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

// TierStore reads the static NFT tier reference data.
type TierStore interface {
	GetByAddress(ctx context.Context, nftAddress string) (*models.NftTier, error)
	List(ctx context.Context) ([]models.NftTier, error)
	GetActivePhase(ctx context.Context) (*models.Phase, error)
}

// RewardAllocation is one user's computed share for a distribution
// cycle. It is never persisted; settlement consumes it immediately.
// Steps and RewardDate are only meaningful for Pool A rows.
type RewardAllocation struct {
	UserID          string          `json:"userId"`
	WalletAddress   string          `json:"walletAddress"`
	NftAddress      string          `json:"nftAddress"`
	PoolType        models.PoolType `json:"poolType"`
	Tokens          float64         `json:"tokens"`
	TotalPoolTokens float64         `json:"totalPoolTokens"`
	Steps           int64           `json:"steps,omitempty"`
	RewardDate      time.Time       `json:"rewardDate,omitempty"`
}

type PoolRewards struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Rewards []RewardAllocation `json:"rewards"`
}

type RewardService struct {
	pools PoolStore
	tiers TierStore
}

func NewRewardService(pools PoolStore, tiers TierStore) *RewardService {
	return &RewardService{pools: pools, tiers: tiers}
}

// CalculatePoolRewards computes each eligible user's token share for a
// (pool, tier) pair. Pool A splits half the tier's daily cap in
// proportion to snapshot steps; Pool B splits it equally. An empty
// pool is a valid daily outcome and yields success with no rewards. A
// missing tier config fails the whole computation: defaulting the cap
// would corrupt on-chain amounts.
func (s *RewardService) CalculatePoolRewards(ctx context.Context, poolType models.PoolType, nftAddress string, asOf time.Time) (*PoolRewards, error) {
	tier, err := s.tiers.GetByAddress(ctx, nftAddress)
	if err != nil {
		return nil, errors.New(errors.ErrRewardCalc, "failed to read tier config", err)
	}
	if tier == nil {
		return nil, errors.New(errors.ErrConfigNotFound,
			fmt.Sprintf("no tier config for nft %s", nftAddress), nil)
	}

	entries, err := s.pools.GetByPoolTier(ctx, poolType, nftAddress, asOf)
	if err != nil {
		return nil, errors.New(errors.ErrRewardCalc, "failed to read pool entries", err)
	}

	poolBudget := tier.PoolBudget()

	// First-seen wins: one share per user per cycle regardless of how
	// many snapshots matched.
	seen := make(map[string]struct{}, len(entries))
	var unique []models.PoolEntry
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		unique = append(unique, e)
	}

	if len(unique) == 0 {
		return &PoolRewards{Success: true, Message: "no eligible users in pool"}, nil
	}

	var rewards []RewardAllocation

	switch poolType {
	case models.PoolA:
		var totalSteps int64
		for _, e := range unique {
			totalSteps += e.StepsRecorded
		}
		if totalSteps == 0 {
			return &PoolRewards{Success: true, Message: "no steps recorded in pool"}, nil
		}

		for _, e := range unique {
			rewards = append(rewards, RewardAllocation{
				UserID:          e.UserID,
				WalletAddress:   e.WalletAddress,
				NftAddress:      e.NftAddress,
				PoolType:        models.PoolA,
				Tokens:          float64(e.StepsRecorded) / float64(totalSteps) * poolBudget,
				TotalPoolTokens: poolBudget,
				Steps:           e.StepsRecorded,
				RewardDate:      e.Date,
			})
		}

	case models.PoolB:
		tokensPerUser := poolBudget / float64(len(unique))
		for _, e := range unique {
			rewards = append(rewards, RewardAllocation{
				UserID:          e.UserID,
				WalletAddress:   e.WalletAddress,
				NftAddress:      e.NftAddress,
				PoolType:        models.PoolB,
				Tokens:          tokensPerUser,
				TotalPoolTokens: poolBudget,
			})
		}

	default:
		return nil, errors.New(errors.ErrValidation, "unknown pool type", nil)
	}

	logger.WithFields(map[string]interface{}{
		"pool_type":   poolType,
		"nft_address": nftAddress,
		"users":       len(rewards),
		"pool_budget": poolBudget,
	}).Info("pool rewards calculated")

	return &PoolRewards{Success: true, Message: "rewards calculated", Rewards: rewards}, nil
}
