package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

const nonceByteLen = 32

// NonceStore issues one-time, time-boxed authentication challenges per address.
type NonceStore interface {
	// Create issues a fresh nonce bound to address.
	Create(ctx context.Context, address string) (string, error)
	// Consume removes the nonce if it exists, regardless of outcome, and
	// reports whether it was valid for address. Unknown, expired and
	// mismatched nonces are indistinguishable to the caller.
	Consume(ctx context.Context, nonce, address string) (bool, error)
}

type nonceRecord struct {
	address   string
	createdAt time.Time
	expiresAt time.Time
}

// MemoryNonceStore keeps challenges in process memory and sweeps expired
// entries on a timer.
type MemoryNonceStore struct {
	mu      sync.Mutex
	records map[string]nonceRecord
	ttl     time.Duration
	done    chan struct{}
}

func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	return &MemoryNonceStore{
		records: make(map[string]nonceRecord),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
}

// Start launches the periodic sweep of expired nonces.
func (s *MemoryNonceStore) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(time.Now())
			case <-s.done:
				return
			}
		}
	}()
}

func (s *MemoryNonceStore) Stop() {
	close(s.done)
}

func (s *MemoryNonceStore) Create(_ context.Context, address string) (string, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return "", err
	}

	now := time.Now()
	s.mu.Lock()
	s.records[nonce] = nonceRecord{
		address:   strings.ToLower(address),
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()

	return nonce, nil
}

func (s *MemoryNonceStore) Consume(_ context.Context, nonce, address string) (bool, error) {
	s.mu.Lock()
	record, ok := s.records[nonce]
	if ok {
		// One-time use: the nonce is gone even if the check below fails.
		delete(s.records, nonce)
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(record.expiresAt) {
		return false, nil
	}
	return record.address == strings.ToLower(address), nil
}

func (s *MemoryNonceStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, record := range s.records {
		if now.After(record.expiresAt) {
			delete(s.records, nonce)
		}
	}
}

// GenerateNonce returns a cryptographically random hex token.
func GenerateNonce() (string, error) {
	bytes := make([]byte, nonceByteLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
