package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type estimator struct {
	gas uint64
	err error
	msg ethereum.CallMsg
}

func (e *estimator) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	e.msg = msg
	return e.gas, e.err
}

func signedTx(t *testing.T, signer types.Signer, gas uint64) (*types.Transaction, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	to := common.HexToAddress("0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae")
	tx, err := types.SignNewTx(key, signer, &types.LegacyTx{
		Nonce:    3,
		GasPrice: big.NewInt(1),
		Gas:      gas,
		To:       &to,
		Data:     []byte{0x60, 0xfe, 0x47, 0xb1},
	})
	require.NoError(t, err)
	return tx, crypto.PubkeyToAddress(key.PublicKey)
}

func TestDecodeRawTxAndSender(t *testing.T) {
	signers := map[string]types.Signer{
		"eip155":    types.LatestSignerForChainID(big.NewInt(1337)),
		"homestead": types.HomesteadSigner{},
	}
	for name, signer := range signers {
		t.Run(name, func(t *testing.T) {
			tx, from := signedTx(t, signer, 50000)
			raw, err := tx.MarshalBinary()
			require.NoError(t, err)

			decoded, gotRaw, err := DecodeRawTx(hexutil.Encode(raw))
			require.NoError(t, err)
			assert.Equal(t, tx.Hash(), decoded.Hash())
			assert.Equal(t, raw, gotRaw)

			// missing 0x prefix is tolerated
			decoded, _, err = DecodeRawTx(common.Bytes2Hex(raw))
			require.NoError(t, err)

			sender, err := Sender(decoded)
			require.NoError(t, err)
			assert.Equal(t, from, sender)
		})
	}
}

func TestDecodeRawTxRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "0x", "zz", "0x1234", "dd5[w,r,0,,n,g"} {
		_, _, err := DecodeRawTx(in)
		assert.ErrorIs(t, err, ErrInvalidTx, in)
	}
}

func TestCheckGas(t *testing.T) {
	ctx := context.Background()
	signer := types.LatestSignerForChainID(big.NewInt(1337))

	tx, from := signedTx(t, signer, 50000)
	est := &estimator{gas: 26000}
	require.NoError(t, CheckGas(ctx, est, tx, from))
	assert.Equal(t, from, est.msg.From)
	assert.Equal(t, tx.To(), est.msg.To)
	assert.Equal(t, tx.Data(), est.msg.Data)

	est.gas = 60000
	assert.ErrorIs(t, CheckGas(ctx, est, tx, from), ErrInsufficientGas)

	est.err = errors.New("execution reverted")
	assert.ErrorIs(t, CheckGas(ctx, est, tx, from), ErrInsufficientGas)

	zeroGas, from := signedTx(t, signer, 0)
	assert.ErrorIs(t, CheckGas(ctx, &estimator{gas: 0}, zeroGas, from), ErrInsufficientGas)
}

func TestPresenceABI(t *testing.T) {
	client := common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")

	data, err := PresenceABI.Pack(MethodVerifyPresence, client, uint64(1700000000))
	require.NoError(t, err)
	assert.Len(t, data, 4+32+32)

	data, err = PresenceABI.Pack(MethodIsVerified, client)
	require.NoError(t, err)
	assert.Len(t, data, 4+32)

	_, err = PresenceABI.Pack("nope")
	assert.Error(t, err)
}
