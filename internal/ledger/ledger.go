// Package ledger is the gateway's view of an Ethereum-compatible node.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNoAuthority = errors.New("ledger: no authority key configured")

type (
	// Client is what the gateway needs from a node. Lookups return (nil, nil)
	// for unknown transactions and receipts of unmined transactions.
	Client interface {
		GetTransaction(ctx context.Context, hash common.Hash) (*TxStatus, error)
		GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
		SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
		Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
		GetBlockNumber(ctx context.Context) (uint64, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		SignAndSendAuthorityCall(ctx context.Context, contract common.Address, method string, args ...any) (common.Hash, error)
	}

	// TxStatus is the get-tx-status response body. BlockNumber is null while pending.
	TxStatus struct {
		BlockNumber *uint64 `json:"blockNumber"`
		Nonce       uint64  `json:"nonce"`
		Gas         uint64  `json:"gas"`
	}
)
