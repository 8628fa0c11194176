package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/repository"
)

type fakeStepStore struct {
	records map[string]map[time.Time]models.StepRecord
}

func newFakeStepStore() *fakeStepStore {
	return &fakeStepStore{records: make(map[string]map[time.Time]models.StepRecord)}
}

func (f *fakeStepStore) Upsert(_ context.Context, record *models.StepRecord) error {
	day := models.DayOf(record.Date)
	if f.records[record.UserID] == nil {
		f.records[record.UserID] = make(map[time.Time]models.StepRecord)
	}
	f.records[record.UserID][day] = *record
	return nil
}

func (f *fakeStepStore) GetByUserDate(_ context.Context, userID string, date time.Time) (*models.StepRecord, error) {
	r, ok := f.records[userID][models.DayOf(date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeStepStore) GetRange(_ context.Context, userID string, from, to time.Time) ([]models.StepRecord, error) {
	var out []models.StepRecord
	for day := models.DayOf(from); !day.After(models.DayOf(to)); day = day.AddDate(0, 0, 1) {
		if r, ok := f.records[userID][day]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStepStore) GetAllByUser(_ context.Context, userID string) ([]models.StepRecord, error) {
	days := f.records[userID]
	var out []models.StepRecord
	// Chronological, mirroring the repository's ORDER BY date.
	for day := earliest(days); !day.IsZero() && !day.After(latest(days)); day = day.AddDate(0, 0, 1) {
		if r, ok := days[day]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func earliest(days map[time.Time]models.StepRecord) time.Time {
	var min time.Time
	for d := range days {
		if min.IsZero() || d.Before(min) {
			min = d
		}
	}
	return min
}

func latest(days map[time.Time]models.StepRecord) time.Time {
	var max time.Time
	for d := range days {
		if d.After(max) {
			max = d
		}
	}
	return max
}

type fakePoolStore struct {
	entries []models.PoolEntry
}

func (f *fakePoolStore) Create(_ context.Context, entry *models.PoolEntry) error {
	for _, e := range f.entries {
		if e.UserID == entry.UserID && e.PoolType == entry.PoolType && e.Date.Equal(entry.Date) {
			return repository.ErrDuplicateEntry
		}
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakePoolStore) GetByUserDate(_ context.Context, userID string, date time.Time) ([]models.PoolEntry, error) {
	var out []models.PoolEntry
	for _, e := range f.entries {
		if e.UserID == userID && e.Date.Equal(models.DayOf(date)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakePoolStore) GetByPoolTier(_ context.Context, poolType models.PoolType, nftAddress string, date time.Time) ([]models.PoolEntry, error) {
	var out []models.PoolEntry
	for _, e := range f.entries {
		if e.PoolType != poolType || e.NftAddress != nftAddress {
			continue
		}
		if !date.IsZero() && !e.Date.Equal(models.DayOf(date)) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeTierStore struct {
	tiers map[string]*models.NftTier
	phase *models.Phase
}

func (f *fakeTierStore) GetByAddress(_ context.Context, nftAddress string) (*models.NftTier, error) {
	return f.tiers[nftAddress], nil
}

func (f *fakeTierStore) List(_ context.Context) ([]models.NftTier, error) {
	var out []models.NftTier
	for _, t := range f.tiers {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTierStore) GetActivePhase(_ context.Context) (*models.Phase, error) {
	return f.phase, nil
}

type fakeDirectory struct {
	byUser   map[string]*models.UserWallet
	byWallet map[string][]models.UserWallet
}

func (f *fakeDirectory) GetByUser(_ context.Context, userID string) (*models.UserWallet, error) {
	return f.byUser[userID], nil
}

func (f *fakeDirectory) GetByWalletAddress(_ context.Context, walletAddress string) ([]models.UserWallet, error) {
	return f.byWallet[walletAddress], nil
}

type fakeLedger struct {
	records    []models.TransactionRecord
	batches    []models.SettlementBatch
	existsAll  bool
	confirmErr error
	nextID     uint64
}

func (f *fakeLedger) Create(_ context.Context, record *models.TransactionRecord) error {
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

func batchKeyMatches(b *models.SettlementBatch, txType models.TransactionType, nftAddress string, date time.Time, batchIndex int) bool {
	return b.TransactionType == txType && b.NftAddress == nftAddress &&
		b.Date.Equal(models.DayOf(date)) && b.BatchIndex == batchIndex
}

func (f *fakeLedger) SaveBatch(_ context.Context, batch *models.SettlementBatch) error {
	batch.Date = models.DayOf(batch.Date)
	for i := range f.batches {
		if batchKeyMatches(&f.batches[i], batch.TransactionType, batch.NftAddress, batch.Date, batch.BatchIndex) {
			f.batches[i].TxHash = batch.TxHash
			f.batches[i].Status = batch.Status
			f.batches[i].Recorded = 0
			return nil
		}
	}
	f.batches = append(f.batches, *batch)
	return nil
}

func (f *fakeLedger) ConfirmSettlement(ctx context.Context, batch *models.SettlementBatch, records []*models.TransactionRecord) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	for i := range f.batches {
		if batchKeyMatches(&f.batches[i], batch.TransactionType, batch.NftAddress, batch.Date, batch.BatchIndex) {
			for _, r := range records {
				if err := f.Create(ctx, r); err != nil {
					return err
				}
			}
			f.batches[i].Status = models.TxStatusCompleted
			f.batches[i].Recorded = len(records)
			return nil
		}
	}
	return fmt.Errorf("batch %d not found", batch.BatchIndex)
}

func (f *fakeLedger) SettledBatch(_ context.Context, txType models.TransactionType, nftAddress string, date time.Time, batchIndex int) (*models.SettlementBatch, error) {
	for i := range f.batches {
		if batchKeyMatches(&f.batches[i], txType, nftAddress, date, batchIndex) {
			found := f.batches[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) ExistsByHashAndType(_ context.Context, txHash string, txType models.TransactionType) (bool, error) {
	if f.existsAll {
		return true, nil
	}
	for _, r := range f.records {
		if r.TransactionHash == txHash && r.TransactionType == txType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) GetByUser(_ context.Context, userID string, types ...models.TransactionType) ([]models.TransactionRecord, error) {
	var out []models.TransactionRecord
	for _, r := range f.records {
		if r.UserID != userID {
			continue
		}
		if len(types) > 0 && !containsType(types, r.TransactionType) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeLedger) GetByWindow(_ context.Context, userID string, types []models.TransactionType, from, to time.Time) ([]models.TransactionRecord, error) {
	var out []models.TransactionRecord
	for _, r := range f.records {
		if r.UserID != userID || r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		if len(types) > 0 && !containsType(types, r.TransactionType) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, id uint64, status models.TransactionStatus) error {
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("record %d not found", id)
}

func containsType(types []models.TransactionType, t models.TransactionType) bool {
	for _, tt := range types {
		if tt == t {
			return true
		}
	}
	return false
}

// fakeChain is an in-memory RPC client. Receipts are served in order
// from a preloaded queue, one per submitted transaction.
type fakeChain struct {
	gasPrice    *big.Int
	estimateErr error
	sendErr     error
	nonce       uint64
	nonceCalls  int
	sent        []*types.Transaction
	receipts    []*types.Receipt
	receiptIdx  int
}

func (f *fakeChain) ChainID() *big.Int { return big.NewInt(97) }

func (f *fakeChain) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	if f.gasPrice == nil {
		return big.NewInt(5_000_000_000), nil
	}
	return f.gasPrice, nil
}

func (f *fakeChain) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	f.nonceCalls++
	n := f.nonce
	f.nonce++
	return n, nil
}

func (f *fakeChain) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 100_000, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) WaitReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.receiptIdx >= len(f.receipts) {
		return nil, fmt.Errorf("no receipt queued for %s", txHash.Hex())
	}
	receipt := f.receipts[f.receiptIdx]
	f.receiptIdx++
	receipt.TxHash = txHash
	return receipt, nil
}

func transferLog(from, to common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.BigToHash(amount).Bytes(),
	}
}

func successReceipt(logs ...*types.Log) *types.Receipt {
	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   logs,
	}
}
