package hash

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func TestKeccak256(t *testing.T) {
	// keccak256("") is a well known constant.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256()),
	)

	msg := []byte("0f9b8b9e-6a1c-4a43-9c51-2f7a7a4a3f10")
	assert.Equal(t, crypto.Keccak256(msg), Keccak256(msg))
	assert.Equal(t, Keccak256(msg), Keccak256(msg[:10], msg[10:]))
}
