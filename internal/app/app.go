package app

import (
	"context"
	"errors"
	"sync"

	"ble_gateway/internal/config"
	"ble_gateway/internal/ledger"
	"ble_gateway/internal/pin"
	"ble_gateway/internal/sendqueue"
	"ble_gateway/internal/service/gateway"
	"ble_gateway/internal/service/server"
	"ble_gateway/internal/service/watcher"
	"ble_gateway/internal/utils/log"

	"go.uber.org/zap"
)

type App struct {
	cfg     config.Config
	infra   *Infra
	ledger  *ledger.EthClient
	pin     *pin.Challenge
	watcher *watcher.Watcher
	server  *server.HttpServer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	infra, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := ledger.Dial(ctx, cfg.RPCURL, cfg.AuthorityKey, cfg.ChainID)
	if err != nil {
		_ = infra.Close(context.Background())
		return nil, err
	}
	if cfg.AuthorityKey == "" {
		log.Warn("no authority key configured; auth-tx and auth-and-send-tx will fail")
	}

	challenge := pin.NewChallenge()
	w := watcher.New(client, infra.Contracts, cfg.MiningCheckInterval, cfg.MiningTimeout)

	dispatcher := gateway.NewDispatcher(gateway.Deps{
		Pin:            challenge,
		Sessions:       infra.Sessions,
		Contracts:      infra.Contracts,
		Ledger:         client,
		Watcher:        w,
		Queue:          sendqueue.New(),
		PacketSize:     cfg.PacketSize,
		PresenceWindow: cfg.PresenceWindow,
	})

	a := &App{
		cfg:     cfg,
		infra:   infra,
		ledger:  client,
		pin:     challenge,
		watcher: w,
		server:  server.NewHttpServer(cfg.ListenAddr, dispatcher),
	}

	rotateCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.pin.Run(rotateCtx, cfg.PinRotation)
	}()

	return a, nil
}

// Run serves until Shutdown.
func (a *App) Run() error {
	return a.server.Run()
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	a.cancel()
	a.wg.Wait()

	a.watcher.Close()
	a.ledger.Close()

	if err := a.infra.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}
