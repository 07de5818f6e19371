package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/evanofslack/go-dealer/internal/auth"
)

var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidNonce     = errors.New("invalid or expired nonce")
	ErrInvalidSignature = errors.New("invalid signature")
)

// AuthService is the public wallet authentication contract: challenge
// issuance, signature verification and session validation.
type AuthService struct {
	nonces   auth.NonceStore
	sessions *auth.SessionManager
}

type Challenge struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type Session struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAuthService(nonces auth.NonceStore, sessions *auth.SessionManager) *AuthService {
	return &AuthService{
		nonces:   nonces,
		sessions: sessions,
	}
}

// GetNonce issues a one-time challenge for address and the exact message
// the wallet must sign.
func (s *AuthService) GetNonce(ctx context.Context, address string) (*Challenge, error) {
	if !auth.IsHexAddress(address) {
		return nil, ErrInvalidAddress
	}

	nonce, err := s.nonces.Create(ctx, address)
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Nonce:   nonce,
		Message: auth.ChallengeMessage(address, nonce),
	}, nil
}

// Verify consumes the nonce, checks the wallet signature over the
// challenge message and issues a session token. The nonce is spent even
// when the signature check fails: one attempt per challenge.
func (s *AuthService) Verify(ctx context.Context, address, nonce, signature string) (*Session, error) {
	if !auth.IsHexAddress(address) {
		return nil, ErrInvalidAddress
	}

	ok, err := s.nonces.Consume(ctx, nonce, address)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidNonce
	}

	message := auth.ChallengeMessage(address, nonce)
	valid, err := auth.VerifyPersonalSignature(address, message, signature)
	if err != nil || !valid {
		if err != nil {
			slog.Warn("Signature verification failed", "address", strings.ToLower(address), "error", err)
		}
		return nil, ErrInvalidSignature
	}

	token, expiresAt, err := s.sessions.CreateToken(address)
	if err != nil {
		return nil, err
	}

	slog.Info("Wallet authenticated", "address", strings.ToLower(address))
	return &Session{
		Token:     token,
		Address:   strings.ToLower(address),
		ExpiresAt: expiresAt,
	}, nil
}

// VerifySession returns the session claims, or nil for any invalid token.
func (s *AuthService) VerifySession(token string) *auth.SessionClaims {
	claims, err := s.sessions.VerifyToken(token)
	if err != nil {
		return nil
	}
	return claims
}
