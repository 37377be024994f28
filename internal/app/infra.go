package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ble_gateway/internal/config"
	"ble_gateway/internal/repository"
	"ble_gateway/internal/repository/contract"
	"ble_gateway/internal/repository/memory"
	"ble_gateway/internal/repository/session"
	redisSvc "ble_gateway/internal/service/redis"
	"ble_gateway/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

type Infra struct {
	Sessions  repository.SessionStore
	Contracts repository.ContractStore

	closers []func(ctx context.Context) error
}

// OpenStores connects the session and contract stores chosen by cfg.
func OpenStores(ctx context.Context, cfg config.Config) (*Infra, error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("using in-memory stores; state is lost on exit")
		return &Infra{
			Sessions:  memory.NewSessions(cfg.SessionTTL),
			Contracts: memory.NewContracts(),
		}, nil
	}

	infra := &Infra{}

	mongoClient, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	infra.closers = append(infra.closers, mongoClient.Disconnect)
	infra.Contracts = contract.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	log.Info("mongo ready", zap.String("db", cfg.MongoDB))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	redisService := redisSvc.NewRedis(rdb)
	infra.closers = append(infra.closers, func(context.Context) error { return redisService.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := redisService.Ping(pingCtx); err != nil {
		_ = infra.Close(context.Background())
		return nil, fmt.Errorf("redis: %w", err)
	}
	infra.Sessions = session.NewRedisStore(redisService, cfg.SessionTTL)
	log.Info("redis ready", zap.String("addr", cfg.RedisAddr))

	return infra, nil
}

// Close releases connections in reverse order of opening.
func (i *Infra) Close(ctx context.Context) error {
	var errs []error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
