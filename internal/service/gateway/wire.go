package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// nullPayload is notified when a lookup finds nothing: the JSON string "null".
var nullPayload = []byte(`"null"`)

type (
	authAndSendRequest struct {
		Pin json.RawMessage `json:"pin"`
		Tx  string          `json:"tx"`
	}

	sendTxRequest struct {
		ID string `json:"id"`
		Tx string `json:"tx"`
	}
)

var errTrailingData = errors.New("trailing data after JSON value")

// decodeStrict decodes exactly one JSON value into v, rejecting unknown fields.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// parseTxHash reads a JSON string holding a 0x prefixed 32 byte hash.
func parseTxHash(input []byte) (common.Hash, error) {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return common.Hash{}, err
	}
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("hash is %d bytes", len(b))
	}
	return common.BytesToHash(b), nil
}

// parseCallArgs reads the JSON array [to, data] of a read-only call.
func parseCallArgs(input []byte) (common.Address, []byte, error) {
	var args []string
	if err := json.Unmarshal(input, &args); err != nil {
		return common.Address{}, nil, err
	}
	if len(args) != 2 {
		return common.Address{}, nil, fmt.Errorf("want [to, data], got %d args", len(args))
	}
	if !common.IsHexAddress(args[0]) {
		return common.Address{}, nil, fmt.Errorf("invalid address %q", args[0])
	}
	data, err := hexutil.Decode(args[1])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("data: %w", err)
	}
	return common.HexToAddress(args[0]), data, nil
}

// txHashPayload is the JSON quoted hex hash, 68 bytes long.
func txHashPayload(h common.Hash) []byte {
	return []byte(`"` + h.Hex() + `"`)
}
