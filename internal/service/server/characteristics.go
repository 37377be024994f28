package server

import (
	"strings"

	"ble_gateway/internal/service/gateway"

	"github.com/google/uuid"
)

// ServiceUUID identifies the gateway's primary GATT service.
const ServiceUUID = "a7c10000-5f1e-4b6a-9c3d-1e2f3a4b5c6d"

type (
	// Characteristic is one GATT characteristic the bridge exposes.
	Characteristic struct {
		Name       gateway.Operation `json:"name"`
		UUID       uuid.UUID         `json:"uuid"`
		Properties []string          `json:"properties"`
	}

	characteristicTable struct {
		list   []Characteristic
		byName map[gateway.Operation]Characteristic
		byUUID map[uuid.UUID]Characteristic
	}
)

var characteristics = newCharacteristicTable([]Characteristic{
	{Name: gateway.OpGetPin, UUID: uuid.MustParse("a7c10001-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"read", "notify"}},
	{Name: gateway.OpGetTxStatus, UUID: uuid.MustParse("a7c10002-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpNewSession, UUID: uuid.MustParse("a7c10003-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpCall, UUID: uuid.MustParse("a7c10004-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpAuthTx, UUID: uuid.MustParse("a7c10005-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpAuthAndSendTx, UUID: uuid.MustParse("a7c10006-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpSendTx, UUID: uuid.MustParse("a7c10007-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpGetVerifiedTxHash, UUID: uuid.MustParse("a7c10008-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "notify"}},
	{Name: gateway.OpGetBlockNumber, UUID: uuid.MustParse("a7c10009-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"read"}},
	{Name: gateway.OpGetContract, UUID: uuid.MustParse("a7c1000a-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"write", "indicate"}},
	// pulls on get-contract's indications
	{Name: gateway.OpGetContractIndicate, UUID: uuid.MustParse("a7c1000b-5f1e-4b6a-9c3d-1e2f3a4b5c6d"), Properties: []string{"indicate"}},
})

func newCharacteristicTable(list []Characteristic) *characteristicTable {
	t := &characteristicTable{
		list:   list,
		byName: make(map[gateway.Operation]Characteristic, len(list)),
		byUUID: make(map[uuid.UUID]Characteristic, len(list)),
	}
	for _, c := range list {
		t.byName[c.Name] = c
		t.byUUID[c.UUID] = c
	}
	return t
}

// Characteristics returns the exposed characteristics in a stable order.
func Characteristics() []Characteristic {
	return append([]Characteristic(nil), characteristics.list...)
}

// lookup resolves a characteristic by operation name or UUID.
func (t *characteristicTable) lookup(ref string) (Characteristic, bool) {
	ref = strings.TrimSpace(ref)
	if c, ok := t.byName[gateway.Operation(ref)]; ok {
		return c, true
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return Characteristic{}, false
	}
	c, ok := t.byUUID[id]
	return c, ok
}
