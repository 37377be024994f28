package hash

import (
	"golang.org/x/crypto/sha3"
)

// Keccak256 is the pre-standard SHA3 used by Ethereum.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
