package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ble_gateway/internal/ledger"
	"ble_gateway/internal/model"
	"ble_gateway/internal/repository"
	"ble_gateway/internal/utils/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	ErrClosed  = errors.New("watcher: closed")
	errTimeout = errors.New("watcher: transaction not mined in time")
)

type (
	// FollowUp submits the dependent transaction once the auth tx has mined.
	FollowUp func(ctx context.Context) (common.Hash, error)

	// Watcher drives auth tx -> mined -> follow-up tx -> mined for one
	// account at a time, persisting progress to the contract store.
	Watcher struct {
		ledger    ledger.Client
		contracts repository.ContractStore
		interval  atomic.Int64
		timeout   time.Duration

		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup

		mu    sync.Mutex
		tasks map[string]*task
	}

	task struct {
		authHash common.Hash
		cancel   context.CancelFunc
		done     chan struct{}
	}
)

// New builds a watcher polling every interval. A zero timeout lets a
// transaction stay pending forever.
func New(client ledger.Client, contracts repository.ContractStore, interval, timeout time.Duration) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ledger:    client,
		contracts: contracts,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(map[string]*task),
	}
	w.SetInterval(interval)
	return w
}

// SetInterval changes the poll period; running tasks pick it up on their next tick.
func (w *Watcher) SetInterval(d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	w.interval.Store(int64(d))
}

func (w *Watcher) Interval() time.Duration {
	return time.Duration(w.interval.Load())
}

// Start opens a new auth cycle for account: authHash is recorded as pending,
// the previous verified hash is cleared, and the tx is watched in the
// background. A task already running for account is cancelled and awaited first.
func (w *Watcher) Start(ctx context.Context, account string, authHash common.Hash, followUp FollowUp) error {
	key := model.AccountKey(account)

	taskCtx, cancel := context.WithCancel(w.ctx)
	t := &task{authHash: authHash, cancel: cancel, done: make(chan struct{})}

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		cancel()
		return ErrClosed
	}
	prev := w.tasks[key]
	w.tasks[key] = t
	w.wg.Add(1)
	w.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
		log.Info("watcher replaced",
			zap.String("account", key),
			zap.String("previous_tx", prev.authHash.Hex()),
			zap.String("tx", authHash.Hex()),
		)
	}

	err := w.contracts.UpdateStatus(ctx, key, model.StatusUpdate{
		AuthStatus:     model.StatusPtr(model.AuthPending),
		AuthTxHash:     model.StringPtr(authHash.Hex()),
		VerifiedTxHash: model.StringPtr(""),
	})
	if err != nil {
		w.finish(key, t)
		return err
	}

	go func() {
		defer w.finish(key, t)
		w.run(taskCtx, key, authHash, followUp)
	}()
	return nil
}

func (w *Watcher) finish(key string, t *task) {
	t.cancel()

	w.mu.Lock()
	if w.tasks[key] == t {
		delete(w.tasks, key)
	}
	w.mu.Unlock()

	close(t.done)
	w.wg.Done()
}

// Active reports whether a task is running for account.
func (w *Watcher) Active(account string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tasks[model.AccountKey(account)]
	return ok
}

// Close cancels every task and waits for them to exit.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, key string, authHash common.Hash, followUp FollowUp) {
	logger := log.With(zap.String("account", key), zap.String("auth_tx", authHash.Hex()))

	receipt, err := w.waitMined(ctx, authHash)
	switch {
	case errors.Is(err, errTimeout):
		logger.Warn("auth tx not mined before timeout", zap.Duration("timeout", w.timeout))
		w.update(ctx, logger, key, model.StatusUpdate{AuthStatus: model.StatusPtr(model.AuthFailed)})
		return
	case err != nil:
		logger.Debug("watch stopped", zap.Error(err))
		return
	}

	if receipt.Status == types.ReceiptStatusFailed {
		logger.Warn("auth tx reverted", zap.Stringer("block", receipt.BlockNumber))
		w.update(ctx, logger, key, model.StatusUpdate{AuthStatus: model.StatusPtr(model.AuthFailed)})
		return
	}

	logger.Info("auth tx mined", zap.Stringer("block", receipt.BlockNumber))
	if !w.update(ctx, logger, key, model.StatusUpdate{AuthStatus: model.StatusPtr(model.AuthSuccess)}) {
		return
	}

	if followUp == nil {
		return
	}
	verifyHash, err := followUp(ctx)
	if err != nil {
		logger.Error("follow-up tx rejected", zap.Error(err))
		return
	}
	logger = logger.With(zap.String("verify_tx", verifyHash.Hex()))

	receipt, err = w.waitMined(ctx, verifyHash)
	switch {
	case errors.Is(err, errTimeout):
		logger.Warn("follow-up tx not mined before timeout", zap.Duration("timeout", w.timeout))
		return
	case err != nil:
		logger.Debug("watch stopped", zap.Error(err))
		return
	}

	if receipt.Status == types.ReceiptStatusFailed {
		logger.Warn("follow-up tx reverted", zap.Stringer("block", receipt.BlockNumber))
		return
	}

	logger.Info("follow-up tx mined", zap.Stringer("block", receipt.BlockNumber))
	w.update(ctx, logger, key, model.StatusUpdate{VerifiedTxHash: model.StringPtr(verifyHash.Hex())})
}

func (w *Watcher) update(ctx context.Context, logger *zap.Logger, key string, u model.StatusUpdate) bool {
	if err := w.contracts.UpdateStatus(ctx, key, u); err != nil {
		logger.Error("update contract status failed", zap.Error(err))
		return false
	}
	return true
}

// waitMined polls for hash's receipt every interval. Lookup errors are
// logged and retried.
func (w *Watcher) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var deadline <-chan time.Time
	if w.timeout > 0 {
		t := time.NewTimer(w.timeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		tick := time.NewTimer(w.Interval())
		select {
		case <-ctx.Done():
			tick.Stop()
			return nil, ctx.Err()
		case <-deadline:
			tick.Stop()
			return nil, errTimeout
		case <-tick.C:
		}

		receipt, err := w.ledger.GetTransactionReceipt(ctx, hash)
		if err != nil {
			log.Warn("receipt lookup failed", zap.String("tx", hash.Hex()), zap.Error(err))
			continue
		}
		if receipt != nil {
			return receipt, nil
		}
	}
}
