// Package codes holds the result codes written back to characteristic callers.
package codes

import "fmt"

type ResultCode byte

const (
	ResultSuccess          ResultCode = 0x00
	InvalidJSONInRequest   ResultCode = 0x80
	InvalidTxHash          ResultCode = 0x81
	NoSignedMsgInRequest   ResultCode = 0x82
	InvalidCallData        ResultCode = 0x83
	InsufficientGas        ResultCode = 0x84
	InvalidTxSenderAddress ResultCode = 0x85
	NoTxDBErr              ResultCode = 0x86
)

// EOFName is the wire name of the end-of-stream sentinel.
const EOFName = "EOF"

var names = map[ResultCode]string{
	ResultSuccess:          "RESULT_SUCCESS",
	InvalidJSONInRequest:   "INVALID_JSON_IN_REQUEST",
	InvalidTxHash:          "INVALID_TX_HASH",
	NoSignedMsgInRequest:   "NO_SIGNED_MSG_IN_REQUEST",
	InvalidCallData:        "INVALID_CALL_DATA",
	InsufficientGas:        "INSUFFICIENT_GAS",
	InvalidTxSenderAddress: "INVALID_TX_SENDER_ADDRESS",
	NoTxDBErr:              "NO_TX_DB_ERR",
}

// EOF returns the sentinel packet sent after the last queued packet.
// A fresh slice is returned so callers cannot mutate the shared value.
func EOF() []byte {
	return []byte(EOFName)
}

// IsEOF reports whether p is the end-of-stream sentinel.
func IsEOF(p []byte) bool {
	return string(p) == EOFName
}

func (c ResultCode) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("ResultCode(0x%02x)", byte(c))
}

func (c ResultCode) MarshalText() ([]byte, error) {
	if _, ok := names[c]; !ok {
		return nil, fmt.Errorf("codes: unknown result code 0x%02x", byte(c))
	}
	return []byte(c.String()), nil
}

func (c *ResultCode) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Parse maps a wire name back to its code.
func Parse(name string) (ResultCode, error) {
	for c, n := range names {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("codes: unknown result code %q", name)
}

// All returns every result code, ordered by value.
func All() []ResultCode {
	return []ResultCode{
		ResultSuccess,
		InvalidJSONInRequest,
		InvalidTxHash,
		NoSignedMsgInRequest,
		InvalidCallData,
		InsufficientGas,
		InvalidTxSenderAddress,
		NoTxDBErr,
	}
}
