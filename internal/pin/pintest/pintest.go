// Package pintest signs pins the way gateway clients do.
package pintest

import (
	"crypto/ecdsa"
	"encoding/json"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignEth returns the eth_sign style hex signature over keccak256(pin).
func SignEth(key *ecdsa.PrivateKey, pin []byte) string {
	sig, err := crypto.Sign(accounts.TextHash(crypto.Keccak256(pin)), key)
	if err != nil {
		panic(err)
	}
	sig[64] += 27
	return hexutil.Encode(sig)
}

// SignWallet returns the {r, s, v} object signed over keccak256(pin).
func SignWallet(key *ecdsa.PrivateKey, pin []byte) map[string]any {
	sig, err := crypto.Sign(crypto.Keccak256(pin), key)
	if err != nil {
		panic(err)
	}
	return map[string]any{
		"r": hexutil.Encode(sig[:32]),
		"s": hexutil.Encode(sig[32:64]),
		"v": int(sig[64]) + 27,
	}
}

// SignWalletBuffer is SignWallet with r and s serialized the way Node Buffers
// are: {"type":"Buffer","data":[...]}.
func SignWalletBuffer(key *ecdsa.PrivateKey, pin []byte) map[string]any {
	sig, err := crypto.Sign(crypto.Keccak256(pin), key)
	if err != nil {
		panic(err)
	}
	return map[string]any{
		"r": nodeBuffer(sig[:32]),
		"s": nodeBuffer(sig[32:64]),
		"v": int(sig[64]) + 27,
	}
}

func nodeBuffer(b []byte) map[string]any {
	data := make([]int, len(b))
	for i, c := range b {
		data[i] = int(c)
	}
	return map[string]any{"type": "Buffer", "data": data}
}

// JSON marshals v, panicking on failure.
func JSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
