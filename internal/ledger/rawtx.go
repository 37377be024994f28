package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

var (
	ErrInvalidTx       = errors.New("ledger: invalid raw transaction")
	ErrInsufficientGas = errors.New("ledger: insufficient gas")
)

// GasEstimator is the part of Client CheckGas needs.
type GasEstimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// DecodeRawTx parses a hex encoded signed transaction (legacy RLP or typed envelope).
func DecodeRawTx(s string) (*types.Transaction, []byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	return tx, raw, nil
}

// Sender recovers the address that signed tx.
func Sender(tx *types.Transaction) (common.Address, error) {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	return from, nil
}

// CheckGas fails with ErrInsufficientGas when tx carries less gas than the
// intrinsic cost or the node's estimate for it.
func CheckGas(ctx context.Context, est GasEstimator, tx *types.Transaction, from common.Address) error {
	if tx.Gas() < params.TxGas {
		return fmt.Errorf("%w: %d below intrinsic %d", ErrInsufficientGas, tx.Gas(), params.TxGas)
	}

	estimate, err := est.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Value: tx.Value(),
		Data:  tx.Data(),
	})
	if err != nil {
		return fmt.Errorf("%w: estimate failed: %v", ErrInsufficientGas, err)
	}
	if tx.Gas() < estimate {
		return fmt.Errorf("%w: %d below estimate %d", ErrInsufficientGas, tx.Gas(), estimate)
	}
	return nil
}
