package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evanofslack/go-dealer/internal/cards"
)

var (
	ErrNotFound      = errors.New("hole card record not found")
	ErrAlreadyExists = errors.New("hole card record already exists")
	ErrInvalidCards  = errors.New("invalid cards")
)

// HoleCardRecord is the secret produced at deal time for one seat. Cards
// and Salt are never exposed on the player-facing commitments surface.
type HoleCardRecord struct {
	TableID    string    `json:"tableId"`
	HandID     string    `json:"handId"`
	SeatIndex  int       `json:"seatIndex"`
	Cards      [2]int    `json:"cards"`
	Salt       string    `json:"salt"`       // hex, fixed width
	Commitment string    `json:"commitment"` // 0x-prefixed keccak hash
	CreatedAt  time.Time `json:"createdAt"`
}

// HoleCardStore persists one record per (table, hand, seat). Set is the
// sole concurrency guard against double dealing: it fails rather than
// overwrite when the key is already present.
type HoleCardStore interface {
	Set(ctx context.Context, record HoleCardRecord) error
	Get(ctx context.Context, tableID, handID string, seatIndex int) (*HoleCardRecord, error)
	Has(ctx context.Context, tableID, handID string, seatIndex int) (bool, error)
	Delete(ctx context.Context, tableID, handID string, seatIndex int) error
	// GetHand returns all seat records for a hand, ordered by seat index.
	GetHand(ctx context.Context, tableID, handID string) ([]HoleCardRecord, error)
	// DeleteHand removes every seat record for a hand, returning the count.
	DeleteHand(ctx context.Context, tableID, handID string) (int, error)
	// DeleteOlderThan removes records created before now-maxAge, returning
	// the count. It is the only operation the retention timer invokes.
	DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

func validateRecord(record HoleCardRecord) error {
	if record.TableID == "" || record.HandID == "" {
		return fmt.Errorf("%w: missing table or hand id", ErrInvalidCards)
	}
	if record.SeatIndex < 0 {
		return fmt.Errorf("%w: negative seat index", ErrInvalidCards)
	}
	if !cards.Valid(record.Cards[0]) || !cards.Valid(record.Cards[1]) {
		return fmt.Errorf("%w: cards must be in [0,%d)", ErrInvalidCards, cards.DeckSize)
	}
	if record.Cards[0] == record.Cards[1] {
		return fmt.Errorf("%w: duplicate card in hand", ErrInvalidCards)
	}
	return nil
}

func recordKey(tableID, handID string, seatIndex int) string {
	return fmt.Sprintf("%s:%s:%d", tableID, handID, seatIndex)
}
