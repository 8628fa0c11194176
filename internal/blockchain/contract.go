package blockchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Mining contract surface used by distribution: one batched call
// crediting a list of wallets with their reward amounts in wei.
const miningABIJSON = `[{"inputs":[{"internalType":"address[]","name":"users","type":"address[]"},{"internalType":"uint256[]","name":"rewards","type":"uint256[]"}],"name":"updateUserRewards","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

var (
	miningABI   abi.ABI
	transferSig common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(miningABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid mining ABI: %v", err))
	}
	miningABI = parsed
	transferSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
}

// PackUpdateUserRewards encodes the updateUserRewards(address[],uint256[])
// call. The two slices must be index-aligned.
func PackUpdateUserRewards(wallets []common.Address, amounts []*big.Int) ([]byte, error) {
	if len(wallets) != len(amounts) {
		return nil, fmt.Errorf("wallet/amount length mismatch: %d vs %d", len(wallets), len(amounts))
	}
	return miningABI.Pack("updateUserRewards", wallets, amounts)
}

// UnpackUpdateUserRewards decodes a previously packed call back into
// its wallet and amount slices. Used to verify pending submissions.
func UnpackUpdateUserRewards(data []byte) ([]common.Address, []*big.Int, error) {
	method := miningABI.Methods["updateUserRewards"]
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("call data too short")
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("unexpected argument count %d", len(values))
	}
	wallets, ok := values[0].([]common.Address)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected wallet argument type")
	}
	amounts, ok := values[1].([]*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected amount argument type")
	}
	return wallets, amounts, nil
}

// TransferEvent is one ERC-20 Transfer emitted in a settlement receipt.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// ParseTransferLogs extracts Transfer(address,address,uint256) events
// from receipt logs, skipping anything else the contract emitted.
func ParseTransferLogs(logs []*types.Log) []TransferEvent {
	var events []TransferEvent
	for _, log := range logs {
		if log == nil || len(log.Topics) < 3 || log.Topics[0] != transferSig {
			continue
		}

		value := new(big.Int)
		if len(log.Data) > 0 {
			value.SetBytes(log.Data)
		}

		events = append(events, TransferEvent{
			From:  common.BytesToAddress(log.Topics[1].Bytes()),
			To:    common.BytesToAddress(log.Topics[2].Bytes()),
			Value: value,
		})
	}
	return events
}
