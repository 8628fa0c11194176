package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/blockchain"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/errors"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

// ChainClient is the slice of the RPC client settlement depends on.
type ChainClient interface {
	ChainID() *big.Int
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxSigner signs settlement transactions with the distribution account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// LedgerStore is the settlement outcome sink. SaveBatch persists a
// chunk's submission hash before broadcast; ConfirmSettlement must
// flip the chunk to completed and append its reward rows atomically.
type LedgerStore interface {
	SaveBatch(ctx context.Context, batch *models.SettlementBatch) error
	ConfirmSettlement(ctx context.Context, batch *models.SettlementBatch, records []*models.TransactionRecord) error
	SettledBatch(ctx context.Context, txType models.TransactionType, nftAddress string, date time.Time, batchIndex int) (*models.SettlementBatch, error)
	ExistsByHashAndType(ctx context.Context, txHash string, txType models.TransactionType) (bool, error)
}

// Batch lifecycle, logged per chunk.
const (
	statePending       = "pending"
	stateEstimatingGas = "estimating_gas"
	stateSigning       = "signing"
	stateSubmitted     = "submitted"
	stateConfirmed     = "confirmed"
	stateFailed        = "failed"
)

type SettlementResult struct {
	TxHashes []string `json:"txHashes"`
	Recorded int      `json:"recorded"`
	Excluded []string `json:"excluded"`
}

type SettlementService struct {
	chain         ChainClient
	signer        TxSigner
	ledger        LedgerStore
	users         UserDirectory
	contract      common.Address
	batchLimit    int
	tokenDecimals int32
	currency      string
}

func NewSettlementService(
	chain ChainClient,
	signer TxSigner,
	ledger LedgerStore,
	users UserDirectory,
	contract common.Address,
	batchLimit int,
	tokenDecimals int32,
	currency string,
) *SettlementService {
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &SettlementService{
		chain:         chain,
		signer:        signer,
		ledger:        ledger,
		users:         users,
		contract:      contract,
		batchLimit:    batchLimit,
		tokenDecimals: tokenDecimals,
		currency:      currency,
	}
}

// Settle submits one cycle's allocations on-chain in batches and
// records the confirmed transfers in the ledger. Malformed wallet
// addresses are dropped from the batch and reported for manual
// follow-up rather than blocking everyone else. Every chunk's
// transaction hash is persisted before broadcast and confirmed
// atomically with its reward rows, so a re-run of the same
// (pool, tier, day) cycle skips chunks that already completed and
// resolves interrupted ones from their receipt instead of paying the
// chunk a second time.
func (s *SettlementService) Settle(ctx context.Context, poolType models.PoolType, nftAddress string, day time.Time, rewards []RewardAllocation) (*SettlementResult, error) {
	txType := models.TxPoolAReward
	if poolType == models.PoolB {
		txType = models.TxPoolBReward
	}
	day = models.DayOf(day)

	result := &SettlementResult{}

	var wallets []common.Address
	var amounts []*big.Int
	for _, r := range rewards {
		if !common.IsHexAddress(r.WalletAddress) {
			result.Excluded = append(result.Excluded, r.WalletAddress)
			logger.WithFields(map[string]interface{}{
				"user_id":   r.UserID,
				"wallet":    r.WalletAddress,
				"pool_type": poolType,
			}).Warn("excluding malformed wallet address from settlement batch")
			continue
		}
		wallets = append(wallets, common.HexToAddress(r.WalletAddress))
		amounts = append(amounts, TokensToWei(r.Tokens, s.tokenDecimals))
	}

	if len(wallets) == 0 {
		logger.WithFields(map[string]interface{}{
			"pool_type": poolType,
			"excluded":  len(result.Excluded),
		}).Info("nothing to settle")
		return result, nil
	}

	batchIndex := 0
	for start := 0; start < len(wallets); start += s.batchLimit {
		end := start + s.batchLimit
		if end > len(wallets) {
			end = len(wallets)
		}

		prior, err := s.ledger.SettledBatch(ctx, txType, nftAddress, day, batchIndex)
		if err != nil {
			return result, errors.New(errors.ErrLedgerAppend, "settlement batch lookup failed", err)
		}

		var txHash string
		var recorded int
		switch {
		case prior != nil && prior.Status == models.TxStatusCompleted:
			logger.WithFields(map[string]interface{}{
				"tx_type":     txType,
				"batch_index": batchIndex,
				"tx_hash":     prior.TxHash,
			}).Warn("batch already settled in a prior run, skipping submission")
			txHash = prior.TxHash

		case prior != nil && prior.Status == models.TxStatusPending:
			txHash, recorded, err = s.resumeBatch(ctx, txType, nftAddress, day, batchIndex, prior, wallets[start:end], amounts[start:end])
			if err != nil {
				return result, err
			}

		default:
			txHash, recorded, err = s.settleBatch(ctx, txType, nftAddress, day, batchIndex, wallets[start:end], amounts[start:end])
			if err != nil {
				return result, err
			}
		}

		result.TxHashes = append(result.TxHashes, txHash)
		result.Recorded += recorded
		batchIndex++
	}

	return result, nil
}

// resumeBatch resolves a chunk whose submission was persisted but
// whose outcome was never ledgered. The persisted hash's receipt
// decides: a confirmed receipt is recorded now, a reverted one frees
// the chunk for resubmission. An unreachable receipt aborts the chunk
// for manual follow-up; the chunk is never re-broadcast while its
// first transaction may still pay out.
func (s *SettlementService) resumeBatch(ctx context.Context, txType models.TransactionType, nftAddress string, day time.Time, batchIndex int, prior *models.SettlementBatch, wallets []common.Address, amounts []*big.Int) (string, int, error) {
	logger.WithFields(map[string]interface{}{
		"tx_type":     txType,
		"batch_index": batchIndex,
		"tx_hash":     prior.TxHash,
	}).Warn("unresolved settlement submission found, checking its receipt")

	receipt, err := s.chain.WaitReceipt(ctx, common.HexToHash(prior.TxHash))
	if err != nil {
		return "", 0, errors.New(errors.ErrChainSubmission,
			fmt.Sprintf("unresolved submission %s: receipt unavailable, manual review required", prior.TxHash), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		logger.WithFields(map[string]interface{}{
			"tx_hash": prior.TxHash,
		}).Warn("prior submission reverted, resubmitting batch")
		return s.settleBatch(ctx, txType, nftAddress, day, batchIndex, wallets, amounts)
	}

	recorded, err := s.recordReceipt(ctx, txType, nftAddress, day, batchIndex, prior.TxHash, receipt)
	if err != nil {
		return "", 0, err
	}
	return prior.TxHash, recorded, nil
}

// settleBatch drives one contract call through the batch state machine
// and records its receipt. No ledger row is written unless the
// transaction confirmed.
func (s *SettlementService) settleBatch(ctx context.Context, txType models.TransactionType, nftAddress string, day time.Time, batchIndex int, wallets []common.Address, amounts []*big.Int) (string, int, error) {
	log := logger.WithFields(map[string]interface{}{
		"tx_type":    txType,
		"batch_size": len(wallets),
		"state":      statePending,
	})
	log.Info("settlement batch started")

	data, err := blockchain.PackUpdateUserRewards(wallets, amounts)
	if err != nil {
		return "", 0, errors.New(errors.ErrChainSubmission, "failed to encode distribution call", err)
	}

	gasPrice, err := s.chain.SuggestGasPrice(ctx)
	if err != nil {
		return "", 0, s.batchError("failed to fetch gas price", len(wallets), nil, err)
	}

	estimated, err := s.chain.EstimateGas(ctx, ethereum.CallMsg{
		From: s.signer.Address(),
		To:   &s.contract,
		Data: data,
	})
	if err != nil {
		return "", 0, s.batchError("gas estimation failed", len(wallets), gasPrice, err)
	}
	// 20% buffer over the estimate.
	gasLimit := estimated * 12 / 10

	logger.WithFields(map[string]interface{}{
		"state":         stateEstimatingGas,
		"estimated_gas": estimated,
		"gas_limit":     gasLimit,
		"gas_price":     gasPrice.String(),
	}).Debug("gas estimated")

	// Nonce is fetched just-in-time for every submission; two
	// sequential pool settlements from the same account must each see
	// the chain's current view.
	nonce, err := s.chain.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return "", 0, s.batchError("failed to fetch nonce", len(wallets), gasPrice, err)
	}

	tx := types.NewTransaction(nonce, s.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := s.signer.SignTx(tx, s.chain.ChainID())
	if err != nil {
		return "", 0, s.batchError("failed to sign transaction", len(wallets), gasPrice, err)
	}

	logger.WithFields(map[string]interface{}{
		"state":   stateSigning,
		"tx_hash": signed.Hash().Hex(),
		"nonce":   nonce,
	}).Debug("transaction signed")

	// The hash goes to the database before the transaction goes to the
	// chain; a crash between the two leaves a pending row that the
	// next run resolves from its receipt instead of paying again.
	if err := s.ledger.SaveBatch(ctx, &models.SettlementBatch{
		TransactionType: txType,
		NftAddress:      nftAddress,
		Date:            day,
		BatchIndex:      batchIndex,
		TxHash:          signed.Hash().Hex(),
		Status:          models.TxStatusPending,
	}); err != nil {
		return "", 0, errors.New(errors.ErrLedgerAppend, "failed to persist settlement submission", err)
	}

	if err := s.chain.SendTransaction(ctx, signed); err != nil {
		return "", 0, s.batchError("failed to submit transaction", len(wallets), gasPrice, err)
	}

	txHash := signed.Hash()
	logger.WithFields(map[string]interface{}{
		"state":   stateSubmitted,
		"tx_hash": txHash.Hex(),
	}).Info("settlement transaction submitted")

	receipt, err := s.chain.WaitReceipt(ctx, txHash)
	if err != nil {
		return "", 0, s.batchError("failed to fetch receipt", len(wallets), gasPrice, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		logger.WithFields(map[string]interface{}{
			"state":   stateFailed,
			"tx_hash": txHash.Hex(),
		}).Error("settlement transaction reverted")
		return "", 0, errors.New(errors.ErrChainSubmission,
			fmt.Sprintf("transaction %s reverted", txHash.Hex()), nil)
	}

	recorded, err := s.recordReceipt(ctx, txType, nftAddress, day, batchIndex, txHash.Hex(), receipt)
	if err != nil {
		return "", 0, err
	}

	logger.WithFields(map[string]interface{}{
		"state":    stateConfirmed,
		"tx_hash":  txHash.Hex(),
		"recorded": recorded,
	}).Info("settlement batch confirmed")

	return txHash.Hex(), recorded, nil
}

// recordReceipt resolves each Transfer event's receiving wallet back
// to users and appends one completed ledger row per user, in the same
// database transaction that marks the batch completed. A hash already
// present in the ledger means a prior run recorded this batch; the
// batch is marked completed without writing new rows.
func (s *SettlementService) recordReceipt(ctx context.Context, txType models.TransactionType, nftAddress string, day time.Time, batchIndex int, txHash string, receipt *types.Receipt) (int, error) {
	batch := &models.SettlementBatch{
		TransactionType: txType,
		NftAddress:      nftAddress,
		Date:            day,
		BatchIndex:      batchIndex,
		TxHash:          txHash,
		Status:          models.TxStatusCompleted,
	}

	exists, err := s.ledger.ExistsByHashAndType(ctx, txHash, txType)
	if err != nil {
		return 0, errors.New(errors.ErrLedgerAppend, "ledger re-run guard lookup failed", err)
	}
	if exists {
		logger.WithFields(map[string]interface{}{
			"tx_hash": txHash,
			"tx_type": txType,
		}).Warn("settlement already recorded, skipping ledger write")
		if err := s.ledger.ConfirmSettlement(ctx, batch, nil); err != nil {
			return 0, errors.New(errors.ErrLedgerAppend, "failed to close settlement batch", err)
		}
		return 0, nil
	}

	var records []*models.TransactionRecord
	for _, event := range blockchain.ParseTransferLogs(receipt.Logs) {
		users, err := s.users.GetByWalletAddress(ctx, event.To.Hex())
		if err != nil {
			return 0, errors.New(errors.ErrLedgerAppend, "failed to resolve receiving wallet", err)
		}
		if len(users) == 0 {
			logger.WithFields(map[string]interface{}{
				"wallet": event.To.Hex(),
			}).Warn("no users found for receiving wallet")
			continue
		}

		amount := WeiToTokens(event.Value, s.tokenDecimals)
		for _, u := range users {
			records = append(records, &models.TransactionRecord{
				UserID:          u.UserID,
				TransactionType: txType,
				SenderWallet:    event.From.Hex(),
				ReceiverWallet:  event.To.Hex(),
				Amount:          amount,
				Currency:        s.currency,
				TransactionHash: txHash,
				Status:          models.TxStatusCompleted,
				Timestamp:       time.Now().UTC(),
			})
		}
	}

	if err := s.ledger.ConfirmSettlement(ctx, batch, records); err != nil {
		return 0, errors.New(errors.ErrLedgerAppend, "failed to append settlement records", err)
	}
	return len(records), nil
}

func (s *SettlementService) batchError(message string, batchSize int, gasPrice *big.Int, err error) error {
	fields := map[string]interface{}{
		"state":      stateFailed,
		"batch_size": batchSize,
	}
	if gasPrice != nil {
		fields["gas_price"] = gasPrice.String()
	}
	logger.WithFields(fields).Error(message, ": ", err)
	return errors.New(errors.ErrChainSubmission, message, err)
}

// TokensToWei scales a decimal token amount to the chain's minimal
// unit, truncating any precision below one wei.
func TokensToWei(tokens float64, decimals int32) *big.Int {
	return decimal.NewFromFloat(tokens).Shift(decimals).Truncate(0).BigInt()
}

// WeiToTokens converts a minimal-unit amount back to decimal tokens.
func WeiToTokens(wei *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -decimals)
}
