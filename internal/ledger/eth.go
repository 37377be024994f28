package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"ble_gateway/internal/utils/log"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

type (
	// EthClient implements Client over JSON-RPC and signs authority calls locally.
	EthClient struct {
		client  *ethclient.Client
		abi     abi.ABI
		chainID *big.Int

		// serializes nonce allocation for authority calls
		sendMu    sync.Mutex
		key       *ecdsa.PrivateKey
		authority common.Address
	}
)

var _ Client = (*EthClient)(nil)

// Dial connects to rpcURL. authorityKey is a hex private key and may be empty,
// in which case authority calls fail with ErrNoAuthority. A zero chainID is
// read from the node.
func Dial(ctx context.Context, rpcURL, authorityKey string, chainID int64) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", rpcURL, err)
	}

	c := &EthClient{
		client: client,
		abi:    PresenceABI,
	}

	if authorityKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(authorityKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("ledger: authority key: %w", err)
		}
		c.key = key
		c.authority = crypto.PubkeyToAddress(key.PublicKey)
	}

	if chainID > 0 {
		c.chainID = big.NewInt(chainID)
	} else {
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("ledger: chain id: %w", err)
		}
		c.chainID = id
	}

	log.Info("ledger connected",
		zap.String("rpc", rpcURL),
		zap.Stringer("chain_id", c.chainID),
		zap.String("authority", c.authority.Hex()),
	)
	return c, nil
}

func (c *EthClient) Close() {
	c.client.Close()
}

func (c *EthClient) Authority() common.Address {
	return c.authority
}

func (c *EthClient) GetTransaction(ctx context.Context, hash common.Hash) (*TxStatus, error) {
	tx, pending, err := c.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	status := &TxStatus{
		Nonce: tx.Nonce(),
		Gas:   tx.Gas(),
	}
	if pending {
		return status, nil
	}

	receipt, err := c.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt != nil && receipt.BlockNumber != nil {
		n := receipt.BlockNumber.Uint64()
		status.BlockNumber = &n
	}
	return status, nil
}

func (c *EthClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return receipt, err
}

func (c *EthClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if err := c.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *EthClient) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (c *EthClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

func (c *EthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

// SignAndSendAuthorityCall packs method(args...) against the presence ABI,
// signs it with the authority key and submits it.
func (c *EthClient) SignAndSendAuthorityCall(ctx context.Context, contract common.Address, method string, args ...any) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, ErrNoAuthority
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger: pack %s: %w", method, err)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := c.client.PendingNonceAt(ctx, c.authority)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger: nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger: gas price: %w", err)
	}
	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.authority,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger: estimate %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &contract,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger: sign: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	log.Debug("authority call sent",
		zap.String("method", method),
		zap.String("contract", contract.Hex()),
		zap.String("tx", signed.Hash().Hex()),
	)
	return signed.Hash(), nil
}
