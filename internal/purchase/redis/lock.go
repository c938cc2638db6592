package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes stock mutation per ticket: one key per ticket, SetNX with
// a caller token, released only by the holder. Holding the lock across the
// check-and-decrement keeps two instances from racing on the same counter.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getStockLockDuration returns the stock lock TTL from environment variables or the default value
func (r *Redis) getStockLockDuration() time.Duration {
	// Default lock TTL is 10 seconds; the lock only covers one decrement
	// transaction, not a checkout session.
	defaultDuration := 10 * time.Second

	lockTTLStr := os.Getenv("STOCK_LOCK_TTL_SECONDS")
	if lockTTLStr == "" {
		return defaultDuration
	}

	lockTTLSec, err := strconv.Atoi(lockTTLStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid STOCK_LOCK_TTL_SECONDS value '" + lockTTLStr + "', using default 10 seconds")
		return defaultDuration
	}

	return time.Duration(lockTTLSec) * time.Second
}

// LockTicket locks a single ticket's stock for the caller identified by token.
func (r *Redis) LockTicket(ctx context.Context, ticketID, token string) (bool, error) {
	key := "stock_lock:" + ticketID
	ok, err := r.Client.SetNX(ctx, key, token, r.getStockLockDuration()).Result()
	return ok, err
}

// UnlockTicket releases the ticket's stock lock if the caller still holds it.
func (r *Redis) UnlockTicket(ctx context.Context, ticketID, token string) error {
	key := fmt.Sprintf("stock_lock:%s", ticketID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// CheckTicketLocked reports whether a ticket's stock is currently locked
// without acquiring the lock.
func (r *Redis) CheckTicketLocked(ctx context.Context, ticketID string) (bool, error) {
	_, err := r.Client.Get(ctx, "stock_lock:"+ticketID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
