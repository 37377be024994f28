package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	// MethodVerifyPresence is the authority call that marks a client present until expires.
	MethodVerifyPresence = "verifyPresence"
	// MethodIsVerified is the read-only check clients usually call.
	MethodIsVerified = "isVerified"
)

const presenceABI = `[
	{"type":"function","name":"verifyPresence","stateMutability":"nonpayable",
	 "inputs":[{"name":"client","type":"address"},{"name":"expires","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"isVerified","stateMutability":"view",
	 "inputs":[{"name":"client","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

// PresenceABI is the interface of the contracts the authority signs calls to.
var PresenceABI = mustParseABI(presenceABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
