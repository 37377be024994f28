package pin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"ble_gateway/internal/cryptographic/hash"
	"ble_gateway/internal/cryptographic/signature"
	"ble_gateway/internal/utils/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// ErrNoSignedMessage means the input could not be read as a signature over the pin.
var ErrNoSignedMessage = errors.New("pin: no signed message in request")

type (
	// Challenge owns the current pin. Clients prove key ownership by signing
	// keccak256(pin).
	Challenge struct {
		mu  sync.RWMutex
		pin string
	}

	// walletSignature is the {r, s, v} shape produced by lightweight wallets.
	walletSignature struct {
		R word            `json:"r"`
		S word            `json:"s"`
		V json.RawMessage `json:"v"`
	}

	// word is a 32 byte signature half, sent either as hex or as a serialized
	// Node Buffer: {"type":"Buffer","data":[...]}.
	word []byte

	nodeBuffer struct {
		Type string `json:"type"`
		Data []int  `json:"data"`
	}
)

func NewChallenge() *Challenge {
	return &Challenge{pin: uuid.NewString()}
}

// Current returns the pin bytes as sent to clients.
func (c *Challenge) Current() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return []byte(c.pin)
}

// Rotate replaces the pin and returns the new value.
func (c *Challenge) Rotate() string {
	p := uuid.NewString()
	c.mu.Lock()
	c.pin = p
	c.mu.Unlock()
	return p
}

// Run rotates the pin every interval until ctx is done.
func (c *Challenge) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Rotate()
			log.Debug("pin rotated")
		}
	}
}

func (c *Challenge) digest() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return hash.Keccak256([]byte(c.pin))
}

// Verify recovers the address that signed the current pin.
//
// msg is a JSON value: either a hex signature string (eth_sign style, signed
// over the EIP-191 digest of keccak256(pin)) or an {r, s, v} object signed over
// keccak256(pin) directly. A JSON string wrapping either shape is unwrapped once.
// A signature by the wrong key still recovers, just to another address.
func (c *Challenge) Verify(msg []byte) (common.Address, error) {
	return c.verify(msg, true)
}

func (c *Challenge) verify(msg []byte, unwrap bool) (common.Address, error) {
	msg = []byte(strings.TrimSpace(string(msg)))
	if len(msg) == 0 {
		return common.Address{}, ErrNoSignedMessage
	}

	switch msg[0] {
	case '"':
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return common.Address{}, fmt.Errorf("%w: %v", ErrNoSignedMessage, err)
		}
		s = strings.TrimSpace(s)
		if unwrap && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, `"`)) {
			return c.verify([]byte(s), false)
		}
		return c.verifyHex(s)
	case '{':
		var ws walletSignature
		if err := json.Unmarshal(msg, &ws); err != nil {
			return common.Address{}, fmt.Errorf("%w: %v", ErrNoSignedMessage, err)
		}
		return c.verifyWallet(ws)
	default:
		return common.Address{}, ErrNoSignedMessage
	}
}

func (c *Challenge) verifyHex(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	sig, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrNoSignedMessage, err)
	}

	addr, err := signature.RecoverAddress(signature.PersonalDigest(c.digest()), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrNoSignedMessage, err)
	}
	return addr, nil
}

func (c *Challenge) verifyWallet(ws walletSignature) (common.Address, error) {
	r, s := ws.R, ws.S
	if len(r) != 32 {
		return common.Address{}, fmt.Errorf("%w: r: want 32 bytes, got %d", ErrNoSignedMessage, len(r))
	}
	if len(s) != 32 {
		return common.Address{}, fmt.Errorf("%w: s: want 32 bytes, got %d", ErrNoSignedMessage, len(s))
	}
	v, err := decodeV(ws.V)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: v: %v", ErrNoSignedMessage, err)
	}

	sig := make([]byte, 0, signature.SignatureLength)
	sig = append(sig, r...)
	sig = append(sig, s...)
	sig = append(sig, v)

	addr, err := signature.RecoverAddress(c.digest(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrNoSignedMessage, err)
	}
	return addr, nil
}

func (w *word) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b, err := decodeWord(s)
		if err != nil {
			return err
		}
		*w = b
		return nil
	}

	var buf nodeBuffer
	if err := json.Unmarshal(data, &buf); err != nil {
		return err
	}
	if buf.Type != "Buffer" {
		return fmt.Errorf("unexpected object type %q", buf.Type)
	}
	if len(buf.Data) != 32 {
		return fmt.Errorf("want 32 bytes, got %d", len(buf.Data))
	}
	b := make([]byte, len(buf.Data))
	for i, n := range buf.Data {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte %d out of range: %d", i, n)
		}
		b[i] = byte(n)
	}
	*w = b
	return nil
}

func decodeWord(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	return b, nil
}

// decodeV accepts a JSON number or a hex string.
func decodeV(raw json.RawMessage) (byte, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing")
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := n.Int64()
		if err != nil || v < 0 || v > 255 {
			return 0, fmt.Errorf("out of range: %s", n)
		}
		return byte(v), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok || !v.IsUint64() || v.Uint64() > 255 {
		return 0, fmt.Errorf("invalid: %q", s)
	}
	return byte(v.Uint64()), nil
}
