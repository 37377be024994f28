package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"ble_gateway/internal/codes"
	"ble_gateway/internal/ledger"
	"ble_gateway/internal/model"
	"ble_gateway/internal/sendqueue"
	"ble_gateway/internal/utils/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// GetPin answers with the current pin, both in the result and as a notification.
func (d *Dispatcher) GetPin(_ context.Context, req Request) {
	p := d.pin.Current()
	req.respond(codes.ResultSuccess, p)
	req.notify(p)
}

func (d *Dispatcher) GetTxStatus(ctx context.Context, req Request) {
	hash, err := parseTxHash(req.Input)
	if err != nil {
		d.fail(req, OpGetTxStatus, codes.InvalidTxHash, err)
		return
	}

	status, err := d.ledger.GetTransaction(ctx, hash)
	if err != nil {
		log.Warn("get transaction failed", zap.String("tx", hash.Hex()), zap.Error(err))
		d.succeed(req, nullPayload)
		return
	}
	if status == nil {
		d.succeed(req, nullPayload)
		return
	}
	d.succeedJSON(req, OpGetTxStatus, status)
}

func (d *Dispatcher) NewSession(ctx context.Context, req Request) {
	account, err := d.pin.Verify(req.Input)
	if err != nil {
		d.fail(req, OpNewSession, codes.NoSignedMsgInRequest, err)
		return
	}

	sess, err := d.sessions.Start(ctx, model.AddressKey(account))
	if err != nil {
		d.fail(req, OpNewSession, codes.NoTxDBErr, err)
		return
	}

	log.Info("session started", zap.String("account", sess.Account), zap.Int64("expires", sess.Expires))
	d.succeedJSON(req, OpNewSession, sess.Ticket())
}

// Call runs a read-only contract call. Arguments that do not parse never reach the ledger.
func (d *Dispatcher) Call(ctx context.Context, req Request) {
	to, data, err := parseCallArgs(req.Input)
	if err != nil {
		d.fail(req, OpCall, codes.InvalidCallData, err)
		return
	}

	out, err := d.ledger.Call(ctx, to, data)
	if err != nil {
		d.fail(req, OpCall, codes.InvalidCallData, err)
		return
	}
	d.succeedJSON(req, OpCall, hexutil.Encode(out))
}

// AuthTx has the authority mark the signer present on its contract.
func (d *Dispatcher) AuthTx(ctx context.Context, req Request) {
	account, err := d.pin.Verify(req.Input)
	if err != nil {
		d.fail(req, OpAuthTx, codes.NoSignedMsgInRequest, err)
		return
	}

	rec, err := d.contracts.Get(ctx, model.AddressKey(account))
	if err != nil {
		d.fail(req, OpAuthTx, codes.NoTxDBErr, err)
		return
	}
	if rec == nil {
		d.succeed(req, nullPayload)
		return
	}

	hash, err := d.verifyPresence(ctx, rec, account)
	if err != nil {
		d.fail(req, OpAuthTx, codes.InsufficientGas, err)
		return
	}
	d.succeed(req, txHashPayload(hash))
}

// AuthAndSendTx authenticates like AuthTx, then forwards the client's own
// signed tx once the authority tx has mined.
func (d *Dispatcher) AuthAndSendTx(ctx context.Context, req Request) {
	var in authAndSendRequest
	if err := decodeStrict(req.Input, &in); err != nil {
		d.fail(req, OpAuthAndSendTx, codes.NoSignedMsgInRequest, err)
		return
	}

	account, err := d.pin.Verify(in.Pin)
	if err != nil {
		d.fail(req, OpAuthAndSendTx, codes.NoSignedMsgInRequest, err)
		return
	}

	tx, raw, err := ledger.DecodeRawTx(in.Tx)
	if err != nil {
		d.fail(req, OpAuthAndSendTx, codes.InsufficientGas, err)
		return
	}
	from, err := ledger.Sender(tx)
	if err != nil {
		d.fail(req, OpAuthAndSendTx, codes.InsufficientGas, err)
		return
	}
	if err := ledger.CheckGas(ctx, d.ledger, tx, from); err != nil {
		d.fail(req, OpAuthAndSendTx, codes.InsufficientGas, err)
		return
	}

	key := model.AddressKey(account)
	rec, err := d.contracts.Get(ctx, key)
	if err != nil {
		d.fail(req, OpAuthAndSendTx, codes.NoTxDBErr, err)
		return
	}
	if rec == nil {
		d.succeed(req, nullPayload)
		return
	}

	authHash, err := d.verifyPresence(ctx, rec, account)
	if err != nil {
		d.fail(req, OpAuthAndSendTx, codes.InsufficientGas, err)
		return
	}

	followUp := func(ctx context.Context) (common.Hash, error) {
		return d.ledger.SendRawTransaction(ctx, raw)
	}
	if err := d.watcher.Start(ctx, key, authHash, followUp); err != nil {
		d.fail(req, OpAuthAndSendTx, codes.NoTxDBErr, err)
		return
	}

	log.Info("auth and send started",
		zap.String("account", key),
		zap.String("auth_tx", authHash.Hex()),
		zap.String("pending_tx", tx.Hash().Hex()),
	)
	d.succeed(req, txHashPayload(authHash))
}

// SendTx submits a signed tx on behalf of a session. The tx signer must be
// the session's account.
func (d *Dispatcher) SendTx(ctx context.Context, req Request) {
	var in sendTxRequest
	if err := decodeStrict(req.Input, &in); err != nil {
		d.fail(req, OpSendTx, codes.InvalidJSONInRequest, err)
		return
	}

	sess, err := d.sessions.Lookup(ctx, in.ID)
	if err != nil {
		d.fail(req, OpSendTx, codes.NoTxDBErr, err)
		return
	}
	if sess == nil {
		d.fail(req, OpSendTx, codes.InvalidTxSenderAddress, errors.New("no such session"))
		return
	}

	tx, raw, err := ledger.DecodeRawTx(in.Tx)
	if err != nil {
		d.fail(req, OpSendTx, codes.InvalidTxSenderAddress, err)
		return
	}
	from, err := ledger.Sender(tx)
	if err != nil {
		d.fail(req, OpSendTx, codes.InvalidTxSenderAddress, err)
		return
	}
	if model.AddressKey(from) != model.AccountKey(sess.Account) {
		d.fail(req, OpSendTx, codes.InvalidTxSenderAddress, errors.New("sender "+from.Hex()+" does not own session"))
		return
	}

	hash, err := d.ledger.SendRawTransaction(ctx, raw)
	if err != nil {
		d.fail(req, OpSendTx, codes.InsufficientGas, err)
		return
	}
	d.succeed(req, txHashPayload(hash))
}

func (d *Dispatcher) GetVerifiedTxHash(ctx context.Context, req Request) {
	account, err := d.pin.Verify(req.Input)
	if err != nil {
		d.fail(req, OpGetVerifiedTxHash, codes.NoSignedMsgInRequest, err)
		return
	}

	rec, err := d.contracts.Get(ctx, model.AddressKey(account))
	if err != nil {
		d.fail(req, OpGetVerifiedTxHash, codes.NoTxDBErr, err)
		return
	}
	if rec == nil {
		d.succeed(req, nullPayload)
		return
	}
	d.succeedJSON(req, OpGetVerifiedTxHash, rec.Verification())
}

// GetBlockNumber answers through the result callback only.
func (d *Dispatcher) GetBlockNumber(ctx context.Context, req Request) {
	n, err := d.ledger.GetBlockNumber(ctx)
	if err != nil {
		d.fail(req, OpGetBlockNumber, codes.InvalidCallData, err)
		return
	}
	req.respond(codes.ResultSuccess, []byte(strconv.FormatUint(n, 10)))
}

// GetContract loads the signer's contract record into the send queue and
// pushes the first packet. The rest is pulled through GetContractIndicate.
func (d *Dispatcher) GetContract(ctx context.Context, req Request) {
	account, err := d.pin.Verify(req.Input)
	if err != nil {
		d.fail(req, OpGetContract, codes.InvalidJSONInRequest, err)
		return
	}

	rec, err := d.contracts.Get(ctx, model.AddressKey(account))
	if err != nil {
		d.fail(req, OpGetContract, codes.NoTxDBErr, err)
		return
	}
	if rec == nil {
		d.fail(req, OpGetContract, codes.NoTxDBErr, errors.New("no contract for "+account.Hex()))
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		d.fail(req, OpGetContract, codes.NoTxDBErr, err)
		return
	}

	d.queue.Replace(sendqueue.Chunk(payload, d.packetSize)...)
	req.respond(codes.ResultSuccess, nil)
	d.GetContractIndicate(ctx, req)
}

// GetContractIndicate sends the next queued packet, the EOF sentinel once, or nothing.
func (d *Dispatcher) GetContractIndicate(_ context.Context, req Request) {
	p, res := d.queue.DrainNext()
	if res == sendqueue.Noop {
		return
	}
	req.notify(p)
}

func (d *Dispatcher) verifyPresence(ctx context.Context, rec *model.ContractRecord, client common.Address) (common.Hash, error) {
	expires := uint64(d.now().Add(d.presenceWindow).Unix())
	hash, err := d.ledger.SignAndSendAuthorityCall(ctx, rec.Contract(), ledger.MethodVerifyPresence, client, expires)
	if err != nil {
		return common.Hash{}, err
	}
	log.Info("presence tx sent",
		zap.String("account", model.AddressKey(client)),
		zap.String("contract", rec.ContractAddress),
		zap.String("tx", hash.Hex()),
	)
	return hash, nil
}
