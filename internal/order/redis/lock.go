package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/logger"

	"github.com/go-redis/redis/v8"
)

const lockPrefix = "checkout_lock:"

// releaseScript deletes the lock only while it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CheckoutLock keeps a payment credential from being charged by two
// checkouts at once. Keys are derived from a hash of the credential so the
// credential itself never reaches redis.
type CheckoutLock struct {
	Client *redis.Client
	TTL    time.Duration
	Log    *logger.Logger
}

func NewCheckoutLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *CheckoutLock {
	return &CheckoutLock{Client: client, TTL: ttl, Log: log}
}

// Connect opens a client and checks it can reach the server.
func Connect(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log.Info("REDIS", fmt.Sprintf("Connected to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client, nil
}

func lockKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return lockPrefix + hex.EncodeToString(sum[:])
}

// Acquire takes the lock for credential on behalf of orderID. It returns
// false when another checkout holds it.
func (l *CheckoutLock) Acquire(ctx context.Context, credential, orderID string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, lockKey(credential), orderID, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !ok {
		l.Log.Warn("REDIS", fmt.Sprintf("Checkout lock busy for order %s", orderID))
	}
	return ok, nil
}

// Release frees the lock if orderID still holds it.
func (l *CheckoutLock) Release(ctx context.Context, credential, orderID string) error {
	if err := releaseScript.Run(ctx, l.Client, []string{lockKey(credential)}, orderID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release checkout lock: %w", err)
	}
	return nil
}
