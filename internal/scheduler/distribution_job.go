package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/service"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

// MiningStore reads the global mining toggle the daily run honors.
type MiningStore interface {
	Get(ctx context.Context) (*models.MiningStatus, error)
}

// DistributionScheduler drives the daily settlement pipeline: once per
// day, every NFT tier in sequence, and within each tier Pool A before
// Pool B. Tiers are never settled in parallel; the signing account's
// nonce sequence cannot tolerate concurrent submissions.
type DistributionScheduler struct {
	cron       *cron.Cron
	rewards    *service.RewardService
	settlement *service.SettlementService
	tiers      service.TierStore
	mining     MiningStore
	cronExpr   string
}

func NewDistributionScheduler(
	rewards *service.RewardService,
	settlement *service.SettlementService,
	tiers service.TierStore,
	mining MiningStore,
	cronExpr string,
) *DistributionScheduler {
	return &DistributionScheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		rewards:    rewards,
		settlement: settlement,
		tiers:      tiers,
		mining:     mining,
		cronExpr:   cronExpr,
	}
}

func (s *DistributionScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, s.runDaily)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("reward distribution scheduler started")
	return nil
}

func (s *DistributionScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("reward distribution scheduler stopped")
}

func (s *DistributionScheduler) runDaily() {
	ctx := context.Background()

	status, err := s.mining.Get(ctx)
	if err != nil {
		logger.Error("failed to read mining status, skipping distribution: ", err)
		return
	}
	if status == nil || !status.BlockchainMining {
		logger.Info("blockchain mining disabled, skipping distribution run")
		return
	}

	if err := s.DistributeAllTiers(ctx, time.Now().UTC()); err != nil {
		logger.Error("distribution run finished with error: ", err)
	}
}

// DistributeAllTiers runs the full pipeline for every configured tier.
// A failing tier is logged and skipped; the run proceeds to the next
// tier rather than aborting the day.
func (s *DistributionScheduler) DistributeAllTiers(ctx context.Context, asOf time.Time) error {
	tiers, err := s.tiers.List(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"tiers": len(tiers),
		"as_of": asOf.Format("2006-01-02"),
	}).Info("starting daily reward distribution")

	for _, tier := range tiers {
		if err := s.distributeTier(ctx, tier, asOf); err != nil {
			logger.WithFields(map[string]interface{}{
				"tier": tier.TierName,
				"nft":  tier.NftAddress,
			}).Error("tier distribution failed, continuing with next tier: ", err)
		}
	}

	logger.Info("daily reward distribution completed")
	return nil
}

// distributeTier settles one tier's cycle: Pool A first, then Pool B,
// each with its own freshly fetched nonce inside settlement.
func (s *DistributionScheduler) distributeTier(ctx context.Context, tier models.NftTier, asOf time.Time) error {
	for _, poolType := range []models.PoolType{models.PoolA, models.PoolB} {
		computed, err := s.rewards.CalculatePoolRewards(ctx, poolType, tier.NftAddress, asOf)
		if err != nil {
			return err
		}
		if len(computed.Rewards) == 0 {
			logger.WithFields(map[string]interface{}{
				"tier":      tier.TierName,
				"pool_type": poolType,
			}).Info("empty pool, nothing to distribute")
			continue
		}

		result, err := s.settlement.Settle(ctx, poolType, tier.NftAddress, asOf, computed.Rewards)
		if err != nil {
			// A failed pool batch must not block the tier's other
			// pool; settlement is re-runnable.
			logger.WithFields(map[string]interface{}{
				"tier":      tier.TierName,
				"pool_type": poolType,
			}).Error("pool settlement failed: ", err)
			continue
		}

		logger.WithFields(map[string]interface{}{
			"tier":      tier.TierName,
			"pool_type": poolType,
			"tx_hashes": result.TxHashes,
			"recorded":  result.Recorded,
			"excluded":  len(result.Excluded),
		}).Info("pool settled")
	}
	return nil
}
