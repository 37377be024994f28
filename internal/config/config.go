package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	ListenAddr string

	RPCURL       string
	AuthorityKey string
	ChainID      int64

	StoreBackend string
	MongoURI     string
	MongoDB      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL          time.Duration
	PinRotation         time.Duration
	MiningCheckInterval time.Duration
	MiningTimeout       time.Duration
	PacketSize          int
	PresenceWindow      time.Duration

	LogLevel string
	LogDev   bool
}

// Default is the configuration used for anything the environment leaves unset.
func Default() Config {
	return Config{
		ListenAddr:          "localhost:9090",
		RPCURL:              "http://localhost:8545",
		StoreBackend:        BackendMongo,
		MongoURI:            "mongodb://localhost:27017",
		MongoDB:             "gateway",
		RedisAddr:           "localhost:6379",
		SessionTTL:          10 * time.Minute,
		PinRotation:         time.Minute,
		MiningCheckInterval: time.Second,
		MiningTimeout:       10 * time.Minute,
		PacketSize:          20,
		PresenceWindow:      5 * time.Minute,
		LogLevel:            "info",
	}
}

// Load reads GATEWAY_* variables on top of Default and validates the result.
func Load() (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv is Load without validation, for callers that still apply overrides.
func FromEnv() (Config, error) {
	cfg := Default()

	str(&cfg.ListenAddr, "GATEWAY_LISTEN_ADDR")
	str(&cfg.RPCURL, "GATEWAY_RPC_URL")
	str(&cfg.AuthorityKey, "GATEWAY_AUTHORITY_KEY")
	str(&cfg.StoreBackend, "GATEWAY_STORE")
	str(&cfg.MongoURI, "GATEWAY_MONGO_URI")
	str(&cfg.MongoDB, "GATEWAY_MONGO_DB")
	str(&cfg.RedisAddr, "GATEWAY_REDIS_ADDR")
	str(&cfg.RedisPassword, "GATEWAY_REDIS_PASSWORD")
	str(&cfg.LogLevel, "GATEWAY_LOG_LEVEL")

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(int64Var(&cfg.ChainID, "GATEWAY_CHAIN_ID"))
	collect(intVar(&cfg.RedisDB, "GATEWAY_REDIS_DB"))
	collect(intVar(&cfg.PacketSize, "GATEWAY_PACKET_SIZE"))
	collect(durationVar(&cfg.SessionTTL, "GATEWAY_SESSION_TTL"))
	collect(durationVar(&cfg.PinRotation, "GATEWAY_PIN_ROTATION"))
	collect(durationVar(&cfg.MiningCheckInterval, "GATEWAY_MINING_INTERVAL"))
	collect(durationVar(&cfg.MiningTimeout, "GATEWAY_MINING_TIMEOUT"))
	collect(durationVar(&cfg.PresenceWindow, "GATEWAY_PRESENCE_WINDOW"))
	collect(boolVar(&cfg.LogDev, "GATEWAY_LOG_DEV"))

	if len(errs) > 0 {
		return Config{}, errs[0]
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("config: rpc url is required")
	}
	if c.SessionTTL < time.Second {
		return fmt.Errorf("config: session ttl %s is below one second", c.SessionTTL)
	}
	if c.PinRotation <= 0 {
		return fmt.Errorf("config: pin rotation must be positive")
	}
	if c.MiningCheckInterval <= 0 {
		return fmt.Errorf("config: mining check interval must be positive")
	}
	if c.MiningTimeout < 0 {
		return fmt.Errorf("config: mining timeout must not be negative")
	}
	if c.PacketSize <= 0 {
		return fmt.Errorf("config: packet size must be positive")
	}
	return nil
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func intVar(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func int64Var(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func durationVar(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func boolVar(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}
