package unit

import (
	"context"
	"testing"
	"time"

	"github.com/evanofslack/go-dealer/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x1111111111111111111111111111111111111111"

func TestMemoryNonceStore_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("valid nonce consumes once", func(t *testing.T) {
		store := auth.NewMemoryNonceStore(time.Minute)

		nonce, err := store.Create(ctx, testAddress)
		require.NoError(t, err)
		assert.Len(t, nonce, 64) // 32 bytes hex

		ok, err := store.Consume(ctx, nonce, testAddress)
		require.NoError(t, err)
		assert.True(t, ok)

		// Second consumption must fail: single use.
		ok, err = store.Consume(ctx, nonce, testAddress)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("address matching is case insensitive", func(t *testing.T) {
		store := auth.NewMemoryNonceStore(time.Minute)

		nonce, err := store.Create(ctx, "0xAbCd111111111111111111111111111111111111")
		require.NoError(t, err)

		ok, err := store.Consume(ctx, nonce, "0xABCD111111111111111111111111111111111111")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("address mismatch burns the nonce", func(t *testing.T) {
		store := auth.NewMemoryNonceStore(time.Minute)

		nonce, err := store.Create(ctx, testAddress)
		require.NoError(t, err)

		ok, err := store.Consume(ctx, nonce, "0x2222222222222222222222222222222222222222")
		require.NoError(t, err)
		assert.False(t, ok)

		// The rightful owner cannot use it anymore either.
		ok, err = store.Consume(ctx, nonce, testAddress)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired nonce is invalid", func(t *testing.T) {
		store := auth.NewMemoryNonceStore(-time.Second)

		nonce, err := store.Create(ctx, testAddress)
		require.NoError(t, err)

		ok, err := store.Consume(ctx, nonce, testAddress)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown nonce is invalid", func(t *testing.T) {
		store := auth.NewMemoryNonceStore(time.Minute)

		ok, err := store.Consume(ctx, "deadbeef", testAddress)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nonces are unique", func(t *testing.T) {
		store := auth.NewMemoryNonceStore(time.Minute)

		first, err := store.Create(ctx, testAddress)
		require.NoError(t, err)
		second, err := store.Create(ctx, testAddress)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}
