package signature

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is r || s || v.
const SignatureLength = crypto.SignatureLength

var ErrInvalidSignature = errors.New("invalid secp256k1 signature")

// RecoverAddress returns the address whose key produced sig over digest.
// sig is 65 bytes; v may be 0/1 or 27/28.
func RecoverAddress(digest, sig []byte) (common.Address, error) {
	if len(digest) != 32 {
		return common.Address{}, fmt.Errorf("%w: digest is %d bytes", ErrInvalidSignature, len(digest))
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature is %d bytes", ErrInvalidSignature, len(sig))
	}

	s := make([]byte, SignatureLength)
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}
	if s[64] > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig[64])
	}

	pub, err := crypto.SigToPub(digest, s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// PersonalDigest is the EIP-191 digest eth_sign produces for data.
func PersonalDigest(data []byte) []byte {
	return accounts.TextHash(data)
}
