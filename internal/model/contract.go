package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type AuthStatus string

const (
	AuthUnset   AuthStatus = ""
	AuthPending AuthStatus = "pending"
	AuthSuccess AuthStatus = "success"
	AuthFailed  AuthStatus = "failed"
)

type (
	// ContractRecord tracks the presence contract of one client account.
	// ID is the lowercased client address.
	ContractRecord struct {
		ID              string     `json:"id" bson:"_id"`
		Authority       string     `json:"authority" bson:"authority"`
		ContractAddress string     `json:"contractAddress" bson:"contractAddress"`
		AuthStatus      AuthStatus `json:"authStatus,omitempty" bson:"authStatus,omitempty"`
		AuthTxHash      string     `json:"authTxHash,omitempty" bson:"authTxHash,omitempty"`
		VerifiedTxHash  string     `json:"verifiedTxHash,omitempty" bson:"verifiedTxHash,omitempty"`
	}

	// StatusUpdate is a partial update; nil fields are left alone and a
	// pointer to "" clears a hash.
	StatusUpdate struct {
		AuthStatus     *AuthStatus
		AuthTxHash     *string
		VerifiedTxHash *string
	}

	// VerificationStatus is the get-verified-tx-hash response body.
	VerificationStatus struct {
		AuthStatus     AuthStatus `json:"authStatus,omitempty"`
		AuthTxHash     *string    `json:"authTxHash"`
		VerifiedTxHash *string    `json:"verifiedTxHash"`
	}
)

// Terminal reports whether no further status change is allowed.
func (s AuthStatus) Terminal() bool {
	return s == AuthSuccess || s == AuthFailed
}

// CanTransition reports whether s may move to next. Status never moves backward.
func (s AuthStatus) CanTransition(next AuthStatus) bool {
	switch s {
	case AuthUnset:
		return next != AuthUnset
	case AuthPending:
		return next == AuthSuccess || next == AuthFailed
	default:
		return false
	}
}

// Apply merges u into r. Hash fields always overwrite; AuthStatus only moves
// forward within one auth cycle. A different non-empty AuthTxHash starts a new
// cycle, which resets the status and the verified hash of the previous one.
func (r *ContractRecord) Apply(u StatusUpdate) {
	if u.AuthTxHash != nil && *u.AuthTxHash != "" && *u.AuthTxHash != r.AuthTxHash {
		r.AuthStatus = AuthUnset
		r.VerifiedTxHash = ""
	}
	if u.AuthStatus != nil && r.AuthStatus.CanTransition(*u.AuthStatus) {
		r.AuthStatus = *u.AuthStatus
	}
	if u.AuthTxHash != nil {
		r.AuthTxHash = *u.AuthTxHash
	}
	if u.VerifiedTxHash != nil {
		r.VerifiedTxHash = *u.VerifiedTxHash
	}
}

func (r *ContractRecord) Verification() VerificationStatus {
	v := VerificationStatus{AuthStatus: r.AuthStatus}
	if r.AuthTxHash != "" {
		h := r.AuthTxHash
		v.AuthTxHash = &h
	}
	if r.VerifiedTxHash != "" {
		h := r.VerifiedTxHash
		v.VerifiedTxHash = &h
	}
	return v
}

func (r *ContractRecord) Contract() common.Address {
	return common.HexToAddress(r.ContractAddress)
}

// AccountKey normalizes an address string into a record/session key.
func AccountKey(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// AddressKey is AccountKey for a parsed address.
func AddressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func StatusPtr(s AuthStatus) *AuthStatus {
	return &s
}

func StringPtr(s string) *string {
	return &s
}
