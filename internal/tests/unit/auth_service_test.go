package unit

import (
	"context"
	"testing"
	"time"

	"github.com/evanofslack/go-dealer/internal/auth"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signerKeyHex = "8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63"

func newAuthService() *services.AuthService {
	nonces := auth.NewMemoryNonceStore(time.Minute)
	sessions := auth.NewSessionManager(testSecret, "test-issuer", time.Hour)
	return services.NewAuthService(nonces, sessions)
}

func TestAuthService_GetNonce(t *testing.T) {
	ctx := context.Background()
	authService := newAuthService()

	t.Run("issues challenge with embedded nonce", func(t *testing.T) {
		challenge, err := authService.GetNonce(ctx, testAddress)
		require.NoError(t, err)
		assert.NotEmpty(t, challenge.Nonce)
		assert.Contains(t, challenge.Message, challenge.Nonce)
		assert.Contains(t, challenge.Message, testAddress)
	})

	t.Run("rejects malformed address", func(t *testing.T) {
		_, err := authService.GetNonce(ctx, "not-an-address")
		assert.ErrorIs(t, err, services.ErrInvalidAddress)
	})
}

func TestAuthService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid flow issues a session", func(t *testing.T) {
		authService := newAuthService()

		// Derive the address from the test key so the signature matches.
		address, _ := signMessage(t, "probe", signerKeyHex)

		challenge, err := authService.GetNonce(ctx, address)
		require.NoError(t, err)

		_, signature := signMessage(t, challenge.Message, signerKeyHex)

		session, err := authService.Verify(ctx, address, challenge.Nonce, signature)
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.True(t, session.ExpiresAt.After(time.Now()))

		claims := authService.VerifySession(session.Token)
		require.NotNil(t, claims)
		assert.Equal(t, session.Address, claims.Address)
	})

	t.Run("wrong signer is rejected", func(t *testing.T) {
		authService := newAuthService()

		challenge, err := authService.GetNonce(ctx, testAddress)
		require.NoError(t, err)

		// Signature from a key that does not own testAddress.
		_, signature := signMessage(t, challenge.Message, signerKeyHex)

		_, err = authService.Verify(ctx, testAddress, challenge.Nonce, signature)
		assert.ErrorIs(t, err, services.ErrInvalidSignature)
	})

	t.Run("failed signature burns the nonce", func(t *testing.T) {
		authService := newAuthService()

		address, _ := signMessage(t, "probe", signerKeyHex)
		challenge, err := authService.GetNonce(ctx, address)
		require.NoError(t, err)

		_, err = authService.Verify(ctx, address, challenge.Nonce, "0x1234")
		assert.ErrorIs(t, err, services.ErrInvalidSignature)

		// Even a now-correct signature cannot reuse the nonce.
		_, signature := signMessage(t, challenge.Message, signerKeyHex)
		_, err = authService.Verify(ctx, address, challenge.Nonce, signature)
		assert.ErrorIs(t, err, services.ErrInvalidNonce)
	})

	t.Run("unknown nonce is rejected", func(t *testing.T) {
		authService := newAuthService()

		address, signature := signMessage(t, "whatever", signerKeyHex)
		_, err := authService.Verify(ctx, address, "deadbeef", signature)
		assert.ErrorIs(t, err, services.ErrInvalidNonce)
	})

	t.Run("invalid session tokens verify to nil", func(t *testing.T) {
		authService := newAuthService()
		assert.Nil(t, authService.VerifySession("garbage"))
		assert.Nil(t, authService.VerifySession(""))
	})
}
