// Package ledgertest provides an in-memory ledger.Client for tests.
package ledgertest

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"

	"ble_gateway/internal/ledger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type (
	// AuthorityCall records one SignAndSendAuthorityCall.
	AuthorityCall struct {
		Contract common.Address
		Method   string
		Args     []any
		Hash     common.Hash
	}

	tx struct {
		status   ledger.TxStatus
		polls    int
		reverted bool
	}

	// Ledger mines every known transaction after MineAfter receipt polls.
	Ledger struct {
		mu sync.Mutex

		MineAfter   int
		Block       uint64
		CallResult  []byte
		CallErr     error
		GasEstimate uint64
		EstimateErr error
		SendErr     error
		AuthErr     error
		ReadErr     error

		txs       map[common.Hash]*tx
		sent      [][]byte
		authCalls []AuthorityCall
		calls     int
		nonce     uint64
	}
)

var _ ledger.Client = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{
		Block:       100,
		GasEstimate: 21000,
		txs:         make(map[common.Hash]*tx),
	}
}

// Seed registers a transaction the node already knows about.
func (l *Ledger) Seed(hash common.Hash, status ledger.TxStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[hash] = &tx{status: status}
}

// Revert makes hash mine with a failed receipt.
func (l *Ledger) Revert(hash common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.txs[hash]; ok {
		t.reverted = true
	}
}

// Drop forgets hash, as if the node evicted it.
func (l *Ledger) Drop(hash common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.txs, hash)
}

func (l *Ledger) Set(fn func(l *Ledger)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

func (l *Ledger) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.sent...)
}

func (l *Ledger) AuthorityCalls() []AuthorityCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuthorityCall(nil), l.authCalls...)
}

// Calls counts read-only Call invocations.
func (l *Ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *Ledger) GetTransaction(_ context.Context, hash common.Hash) (*ledger.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ReadErr != nil {
		return nil, l.ReadErr
	}
	t, ok := l.txs[hash]
	if !ok {
		return nil, nil
	}
	s := t.status
	return &s, nil
}

func (l *Ledger) GetTransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ReadErr != nil {
		return nil, l.ReadErr
	}
	t, ok := l.txs[hash]
	if !ok {
		return nil, nil
	}

	t.polls++
	if t.polls <= l.MineAfter {
		return nil, nil
	}

	if t.status.BlockNumber == nil {
		l.Block++
		n := l.Block
		t.status.BlockNumber = &n
	}
	status := types.ReceiptStatusSuccessful
	if t.reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(*t.status.BlockNumber),
		GasUsed:     t.status.Gas,
	}, nil
}

func (l *Ledger) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	decoded := new(types.Transaction)
	if err := decoded.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, ledger.ErrInvalidTx
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.SendErr != nil {
		return common.Hash{}, l.SendErr
	}
	l.sent = append(l.sent, append([]byte(nil), raw...))
	l.txs[decoded.Hash()] = &tx{status: ledger.TxStatus{Nonce: decoded.Nonce(), Gas: decoded.Gas()}}
	return decoded.Hash(), nil
}

func (l *Ledger) Call(context.Context, common.Address, []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	return l.CallResult, l.CallErr
}

func (l *Ledger) GetBlockNumber(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ReadErr != nil {
		return 0, l.ReadErr
	}
	return l.Block, nil
}

func (l *Ledger) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.GasEstimate, l.EstimateErr
}

func (l *Ledger) SignAndSendAuthorityCall(_ context.Context, contract common.Address, method string, args ...any) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.AuthErr != nil {
		return common.Hash{}, l.AuthErr
	}

	l.nonce++
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], l.nonce)
	hash := crypto.Keccak256Hash(contract.Bytes(), []byte(method), n[:])

	l.authCalls = append(l.authCalls, AuthorityCall{Contract: contract, Method: method, Args: args, Hash: hash})
	l.txs[hash] = &tx{status: ledger.TxStatus{Nonce: l.nonce, Gas: 60000}}
	return hash, nil
}
