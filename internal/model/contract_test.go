package model

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to AuthStatus
		ok       bool
	}{
		{AuthUnset, AuthPending, true},
		{AuthUnset, AuthSuccess, true},
		{AuthUnset, AuthFailed, true},
		{AuthPending, AuthPending, false},
		{AuthPending, AuthSuccess, true},
		{AuthPending, AuthFailed, true},
		{AuthSuccess, AuthPending, false},
		{AuthSuccess, AuthFailed, false},
		{AuthFailed, AuthSuccess, false},
		{AuthFailed, AuthUnset, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransition(c.to), "%q -> %q", c.from, c.to)
	}
}

func TestApplyNeverMovesBackward(t *testing.T) {
	r := &ContractRecord{ID: "0xabc"}

	r.Apply(StatusUpdate{AuthStatus: StatusPtr(AuthPending), AuthTxHash: StringPtr("0x01")})
	assert.Equal(t, AuthPending, r.AuthStatus)
	assert.Equal(t, "0x01", r.AuthTxHash)

	r.Apply(StatusUpdate{AuthStatus: StatusPtr(AuthSuccess)})
	assert.Equal(t, AuthSuccess, r.AuthStatus)
	assert.Equal(t, "0x01", r.AuthTxHash)

	r.Apply(StatusUpdate{AuthStatus: StatusPtr(AuthPending)})
	assert.Equal(t, AuthSuccess, r.AuthStatus)

	r.Apply(StatusUpdate{AuthStatus: StatusPtr(AuthPending), AuthTxHash: StringPtr("0x01")})
	assert.Equal(t, AuthSuccess, r.AuthStatus)

	r.Apply(StatusUpdate{VerifiedTxHash: StringPtr("0x03")})
	assert.Equal(t, "0x03", r.VerifiedTxHash)
}

func TestApplyNewAuthTxStartsCycle(t *testing.T) {
	for _, prev := range []AuthStatus{AuthSuccess, AuthFailed} {
		t.Run(string(prev), func(t *testing.T) {
			r := &ContractRecord{ID: "0xabc", AuthStatus: prev, AuthTxHash: "0x01", VerifiedTxHash: "0x02"}

			r.Apply(StatusUpdate{AuthStatus: StatusPtr(AuthPending), AuthTxHash: StringPtr("0x03")})
			assert.Equal(t, AuthPending, r.AuthStatus)
			assert.Equal(t, "0x03", r.AuthTxHash)
			assert.Empty(t, r.VerifiedTxHash)

			r.Apply(StatusUpdate{AuthStatus: StatusPtr(AuthSuccess)})
			assert.Equal(t, AuthSuccess, r.AuthStatus)
		})
	}
}

func TestApplyClearsHash(t *testing.T) {
	r := &ContractRecord{ID: "0xabc", AuthStatus: AuthSuccess, AuthTxHash: "0x01", VerifiedTxHash: "0x02"}
	r.Apply(StatusUpdate{VerifiedTxHash: StringPtr("")})
	assert.Empty(t, r.VerifiedTxHash)
	assert.Equal(t, AuthSuccess, r.AuthStatus)
}

func TestVerificationJSON(t *testing.T) {
	r := &ContractRecord{ID: "0xabc", AuthStatus: AuthPending, AuthTxHash: "0x00001"}
	data, err := json.Marshal(r.Verification())
	require.NoError(t, err)
	assert.JSONEq(t, `{"authStatus":"pending","authTxHash":"0x00001","verifiedTxHash":null}`, string(data))

	data, err = json.Marshal((&ContractRecord{ID: "0xabc"}).Verification())
	require.NoError(t, err)
	assert.JSONEq(t, `{"authTxHash":null,"verifiedTxHash":null}`, string(data))
}

func TestAccountKeys(t *testing.T) {
	a := common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", AddressKey(a))
	assert.Equal(t, AddressKey(a), AccountKey(" 0x52908400098527886E0F7030069857D2E4169EE7 "))
}
