package pin

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ble_gateway/internal/pin/pintest"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCurrentAndRotate(t *testing.T) {
	c := NewChallenge()
	first := string(c.Current())
	assert.Len(t, first, 36)

	next := c.Rotate()
	assert.NotEqual(t, first, next)
	assert.Equal(t, next, string(c.Current()))
}

func TestVerifyEthSignature(t *testing.T) {
	c := NewChallenge()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signed := pintest.SignEth(key, c.Current())

	addr, err := c.Verify(pintest.JSON(signed))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	// doubly stringified input is unwrapped once
	addr, err = c.Verify(pintest.JSON(string(pintest.JSON(signed))))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
}

func TestVerifyWalletSignature(t *testing.T) {
	c := NewChallenge()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	ws := pintest.SignWallet(key, c.Current())
	addr, err := c.Verify(pintest.JSON(ws))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	// v as hex string
	ws["v"] = fmt.Sprintf("0x%x", ws["v"])
	addr, err = c.Verify(pintest.JSON(ws))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
}

func TestVerifyWalletBufferSignature(t *testing.T) {
	c := NewChallenge()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	ws := pintest.SignWalletBuffer(key, c.Current())
	addr, err := c.Verify(pintest.JSON(ws))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	// as sent by clients that stringify the signature first
	addr, err = c.Verify(pintest.JSON(string(pintest.JSON(ws))))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
}

func TestVerifyStalePinRecoversOtherAddress(t *testing.T) {
	c := NewChallenge()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signed := pintest.SignEth(key, c.Current())
	c.Rotate()

	addr, err := c.Verify(pintest.JSON(signed))
	require.NoError(t, err)
	assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), addr)
}

func TestVerifyMalformed(t *testing.T) {
	c := NewChallenge()
	cases := map[string][]byte{
		"empty":           nil,
		"garbage string":  pintest.JSON("dd5[w,r,0,,n,g"),
		"not json":        []byte("dd5[w,r,0,,n,g"),
		"number":          []byte("42"),
		"array":           []byte(`["0x00"]`),
		"short hex":       pintest.JSON("0x1234"),
		"odd hex":         pintest.JSON("0x123"),
		"object no r":     []byte(`{"s":"0x00","v":27}`),
		"object bad v":    []byte(`{"r":"0x` + hex64('1') + `","s":"0x` + hex64('2') + `","v":"zz"}`),
		"object short r":  []byte(`{"r":"0x01","s":"0x` + hex64('2') + `","v":27}`),
		"broken object":   []byte(`{"r":`),
		"buffer short r":  []byte(`{"r":{"type":"Buffer","data":[1,2,3]},"s":"0x` + hex64('2') + `","v":27}`),
		"buffer bad byte": []byte(`{"r":{"type":"Buffer","data":[` + strings.Repeat("1,", 31) + `256]},"s":"0x` + hex64('2') + `","v":27}`),
		"buffer bad type": []byte(`{"r":{"type":"Array","data":[` + strings.Repeat("1,", 31) + `1]},"s":"0x` + hex64('2') + `","v":27}`),
		"zero signature":  pintest.JSON("0x" + hex64('0') + hex64('0') + "1b"),
		"nested too deep": pintest.JSON(string(pintest.JSON(string(pintest.JSON("0x00"))))),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Verify(in)
			assert.ErrorIs(t, err, ErrNoSignedMessage)
		})
	}
}

func TestRunRotates(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewChallenge()
	first := string(c.Current())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return string(c.Current()) != first
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func hex64(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
