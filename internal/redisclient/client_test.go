package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"restaurant-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "ledger:product:7", productKey(7))
	assert.Equal(t, "ledger:dish:3", dishKey(3))
	assert.Equal(t, "idempotency:abc", requestKey("abc"))
}

func openTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires TEST_REDIS_ADDR")
	}

	client, err := NewClient(addr, "", 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSnapshotIgnoresOlderVersions(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	productID := time.Now().UnixNano()

	newer := time.Now()
	older := newer.Add(-time.Second)

	require.NoError(t, client.SetProductSnapshot(ctx,
		models.ProductSnapshot{ProductID: productID, Quantity: 5, Available: 4}, newer))
	require.NoError(t, client.SetProductSnapshot(ctx,
		models.ProductSnapshot{ProductID: productID, Quantity: 9, Available: 9}, older))

	available, ok, err := client.GetAvailable(ctx, productID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.0, available)
}

func TestPortionsMissAndHit(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	dishID := time.Now().UnixNano()

	_, ok, err := client.GetPortions(ctx, dishID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.SetPortions(ctx, dishID, 12, time.Now()))
	portions, ok, err := client.GetPortions(ctx, dishID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12, portions)
}

func TestSnapshotExpires(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	productID := time.Now().UnixNano()

	require.NoError(t, client.SetProductSnapshot(ctx,
		models.ProductSnapshot{ProductID: productID, Quantity: 5, Available: 5}, time.Now()))

	ttl, err := client.rdb.PTTL(ctx, productKey(productID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestInvalidate(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	id := time.Now().UnixNano()

	require.NoError(t, client.SetProductSnapshot(ctx,
		models.ProductSnapshot{ProductID: id, Quantity: 5, Available: 5}, time.Now()))
	require.NoError(t, client.SetPortions(ctx, id, 4, time.Now()))

	require.NoError(t, client.InvalidateProduct(ctx, id))
	require.NoError(t, client.InvalidateDish(ctx, id))

	_, ok, err := client.GetAvailable(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = client.GetPortions(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimRequest(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	key := uuid.New().String()

	first, err := client.ClaimRequest(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := client.ClaimRequest(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, client.ForgetRequest(ctx, key))
	again, err := client.ClaimRequest(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}
