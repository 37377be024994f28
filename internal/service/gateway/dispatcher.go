// Package gateway turns characteristic requests into ledger operations.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ble_gateway/internal/codes"
	"ble_gateway/internal/ledger"
	"ble_gateway/internal/repository"
	"ble_gateway/internal/sendqueue"
	"ble_gateway/internal/service/watcher"
	"ble_gateway/internal/utils/log"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type Operation string

const (
	OpGetPin              Operation = "get-pin"
	OpGetTxStatus         Operation = "get-tx-status"
	OpNewSession          Operation = "new-session"
	OpCall                Operation = "call"
	OpAuthTx              Operation = "auth-tx"
	OpAuthAndSendTx       Operation = "auth-and-send-tx"
	OpSendTx              Operation = "send-tx"
	OpGetVerifiedTxHash   Operation = "get-verified-tx-hash"
	OpGetBlockNumber      Operation = "get-block-number"
	OpGetContract         Operation = "get-contract"
	OpGetContractIndicate Operation = "get-contract-indicate"
)

// Operations lists every operation Handle routes.
func Operations() []Operation {
	return []Operation{
		OpGetPin,
		OpGetTxStatus,
		OpNewSession,
		OpCall,
		OpAuthTx,
		OpAuthAndSendTx,
		OpSendTx,
		OpGetVerifiedTxHash,
		OpGetBlockNumber,
		OpGetContract,
		OpGetContractIndicate,
	}
}

// DefaultPresenceWindow is how long a verifyPresence call keeps a client present.
const DefaultPresenceWindow = 5 * time.Minute

type (
	// PinVerifier is the pin challenge as seen by the dispatcher.
	PinVerifier interface {
		Current() []byte
		Verify(msg []byte) (common.Address, error)
	}

	// TxWatcher follows an auth tx until it mines, then sends the follow-up.
	TxWatcher interface {
		Start(ctx context.Context, account string, authHash common.Hash, followUp watcher.FollowUp) error
	}

	// Request is one write to a characteristic. Respond carries the result
	// code; Notify pushes data on the characteristic's notification channel.
	// Either callback may be nil.
	Request struct {
		Input   []byte
		Respond func(code codes.ResultCode, data []byte)
		Notify  func(data []byte)
	}

	Deps struct {
		Pin            PinVerifier
		Sessions       repository.SessionStore
		Contracts      repository.ContractStore
		Ledger         ledger.Client
		Watcher        TxWatcher
		Queue          *sendqueue.Queue
		PacketSize     int
		PresenceWindow time.Duration
		Now            func() time.Time
	}

	Dispatcher struct {
		pin            PinVerifier
		sessions       repository.SessionStore
		contracts      repository.ContractStore
		ledger         ledger.Client
		watcher        TxWatcher
		queue          *sendqueue.Queue
		packetSize     int
		presenceWindow time.Duration
		now            func() time.Time
	}
)

func NewDispatcher(deps Deps) *Dispatcher {
	d := &Dispatcher{
		pin:            deps.Pin,
		sessions:       deps.Sessions,
		contracts:      deps.Contracts,
		ledger:         deps.Ledger,
		watcher:        deps.Watcher,
		queue:          deps.Queue,
		packetSize:     deps.PacketSize,
		presenceWindow: deps.PresenceWindow,
		now:            deps.Now,
	}
	if d.queue == nil {
		d.queue = sendqueue.New()
	}
	if d.packetSize <= 0 {
		d.packetSize = sendqueue.DefaultPacketSize
	}
	if d.presenceWindow <= 0 {
		d.presenceWindow = DefaultPresenceWindow
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// WithQueue returns a dispatcher sharing everything but the send queue.
// Each transport connection streams get-contract through its own queue.
func (d *Dispatcher) WithQueue(q *sendqueue.Queue) *Dispatcher {
	cp := *d
	cp.queue = q
	return &cp
}

func (d *Dispatcher) Queue() *sendqueue.Queue {
	return d.queue
}

// Handle routes req to op. Unknown operations answer INVALID_JSON_IN_REQUEST.
// A panicking handler is logged and swallowed.
func (d *Dispatcher) Handle(ctx context.Context, op Operation, req Request) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", zap.String("op", string(op)), zap.Any("panic", r))
		}
	}()

	switch op {
	case OpGetPin:
		d.GetPin(ctx, req)
	case OpGetTxStatus:
		d.GetTxStatus(ctx, req)
	case OpNewSession:
		d.NewSession(ctx, req)
	case OpCall:
		d.Call(ctx, req)
	case OpAuthTx:
		d.AuthTx(ctx, req)
	case OpAuthAndSendTx:
		d.AuthAndSendTx(ctx, req)
	case OpSendTx:
		d.SendTx(ctx, req)
	case OpGetVerifiedTxHash:
		d.GetVerifiedTxHash(ctx, req)
	case OpGetBlockNumber:
		d.GetBlockNumber(ctx, req)
	case OpGetContract:
		d.GetContract(ctx, req)
	case OpGetContractIndicate:
		d.GetContractIndicate(ctx, req)
	default:
		d.fail(req, op, codes.InvalidJSONInRequest, fmt.Errorf("unknown operation %q", op))
	}
}

func (r Request) respond(code codes.ResultCode, data []byte) {
	if r.Respond != nil {
		r.Respond(code, data)
	}
}

func (r Request) notify(data []byte) {
	if r.Notify != nil {
		r.Notify(data)
	}
}

func (d *Dispatcher) fail(req Request, op Operation, code codes.ResultCode, err error) {
	log.Warn("request rejected",
		zap.String("op", string(op)),
		zap.Stringer("code", code),
		zap.Error(err),
	)
	req.respond(code, nil)
}

// succeed answers RESULT_SUCCESS and then notifies payload.
func (d *Dispatcher) succeed(req Request, payload []byte) {
	req.respond(codes.ResultSuccess, nil)
	req.notify(payload)
}

func (d *Dispatcher) succeedJSON(req Request, op Operation, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		d.fail(req, op, codes.InvalidJSONInRequest, err)
		return
	}
	d.succeed(req, payload)
}
