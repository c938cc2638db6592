package redis

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client using miniredis for testing
// miniredis is an in-memory Redis mock that doesn't require a real Redis server
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestLockTicket_MutualExclusion(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	ctx := context.Background()

	locked, err := r.LockTicket(ctx, "ticket-1", "token-a")
	require.NoError(t, err)
	assert.True(t, locked, "First locker should acquire the lock")

	locked, err = r.LockTicket(ctx, "ticket-1", "token-b")
	require.NoError(t, err)
	assert.False(t, locked, "Second locker must be refused while the lock is held")

	// A different ticket is an independent lock.
	locked, err = r.LockTicket(ctx, "ticket-2", "token-b")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestUnlockTicket_OnlyHolderReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	ctx := context.Background()

	locked, err := r.LockTicket(ctx, "ticket-1", "token-a")
	require.NoError(t, err)
	require.True(t, locked)

	// A stale caller with the wrong token must not release the lock.
	err = r.UnlockTicket(ctx, "ticket-1", "token-b")
	require.NoError(t, err)

	stillLocked, err := r.CheckTicketLocked(ctx, "ticket-1")
	require.NoError(t, err)
	assert.True(t, stillLocked)

	// The holder releases, and the lock becomes free again.
	err = r.UnlockTicket(ctx, "ticket-1", "token-a")
	require.NoError(t, err)

	locked, err = r.LockTicket(ctx, "ticket-1", "token-c")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestUnlockTicket_AlreadyExpired(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}

	// Unlocking a key that never existed (or already expired) is not an error.
	err := r.UnlockTicket(context.Background(), "ticket-1", "token-a")
	assert.NoError(t, err)
}

func TestLockTicket_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	ctx := context.Background()

	locked, err := r.LockTicket(ctx, "ticket-1", "token-a")
	require.NoError(t, err)
	require.True(t, locked)

	// Past the default 10s TTL the lock must fall away on its own.
	mr.FastForward(11 * time.Second)

	locked, err = r.LockTicket(ctx, "ticket-1", "token-b")
	require.NoError(t, err)
	assert.True(t, locked, "Lock should be reacquirable after TTL expiry")
}

func TestGetStockLockDuration(t *testing.T) {
	r := &Redis{Logger: log.Default()}

	t.Setenv("STOCK_LOCK_TTL_SECONDS", "")
	assert.Equal(t, 10*time.Second, r.getStockLockDuration())

	t.Setenv("STOCK_LOCK_TTL_SECONDS", "30")
	assert.Equal(t, 30*time.Second, r.getStockLockDuration())

	t.Setenv("STOCK_LOCK_TTL_SECONDS", "not-a-number")
	assert.Equal(t, 10*time.Second, r.getStockLockDuration())
}
