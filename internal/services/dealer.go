package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/evanofslack/go-dealer/internal/cards"
	"github.com/evanofslack/go-dealer/internal/store"
)

var (
	ErrAlreadyDealt  = errors.New("hand already dealt")
	ErrDealFailed    = errors.New("deal failed")
	ErrInvalidParams = errors.New("invalid deal parameters")
)

const cardsPerSeat = 2

// DealerService orchestrates a single deal per hand: sample cards for
// every seat, commit, persist, and hand out only the commitments.
type DealerService struct {
	generator *cards.Generator
	store     store.HoleCardStore
	maxSeats  int
}

type SeatCommitment struct {
	SeatIndex  int    `json:"seatIndex"`
	Commitment string `json:"commitment"`
}

type DealResult struct {
	TableID string           `json:"tableId"`
	HandID  string           `json:"handId"`
	Seats   []SeatCommitment `json:"commitments"`
}

type RevealData struct {
	SeatIndex int    `json:"seatIndex"`
	Cards     [2]int `json:"cards"`
	Salt      string `json:"salt"`
}

func NewDealerService(generator *cards.Generator, holeCards store.HoleCardStore, maxSeats int) *DealerService {
	return &DealerService{
		generator: generator,
		store:     holeCards,
		maxSeats:  maxSeats,
	}
}

// Deal deals hole cards for every requested seat exactly once. The
// seat-0 existence probe is the fast idempotency check; the store's
// insert-unless-present contract is the authoritative guard under races.
func (d *DealerService) Deal(ctx context.Context, tableID, handID string, seatIndexes []int) (*DealResult, error) {
	if tableID == "" || handID == "" {
		return nil, fmt.Errorf("%w: missing table or hand id", ErrInvalidParams)
	}
	handNum, err := strconv.ParseUint(handID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: hand id must be an unsigned integer", ErrInvalidParams)
	}

	if len(seatIndexes) == 0 {
		seatIndexes = make([]int, d.maxSeats)
		for i := range seatIndexes {
			seatIndexes[i] = i
		}
	}
	seen := make(map[int]bool, len(seatIndexes))
	for _, seat := range seatIndexes {
		if seat < 0 || seat >= d.maxSeats {
			return nil, fmt.Errorf("%w: seat %d out of range [0,%d)", ErrInvalidParams, seat, d.maxSeats)
		}
		if seen[seat] {
			return nil, fmt.Errorf("%w: duplicate seat %d", ErrInvalidParams, seat)
		}
		seen[seat] = true
	}

	dealt, err := d.IsHandDealt(ctx, tableID, handID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDealFailed, err)
	}
	if dealt {
		return nil, ErrAlreadyDealt
	}

	hands, err := d.generator.DealHoleCards(len(seatIndexes), cardsPerSeat, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDealFailed, err)
	}

	now := time.Now()
	result := &DealResult{
		TableID: tableID,
		HandID:  handID,
		Seats:   make([]SeatCommitment, 0, len(seatIndexes)),
	}

	for i, seat := range seatIndexes {
		salt, err := cards.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDealFailed, err)
		}

		commitment := cards.Commitment(handNum, uint8(seat), hands[i][0], hands[i][1], salt)
		record := store.HoleCardRecord{
			TableID:    tableID,
			HandID:     handID,
			SeatIndex:  seat,
			Cards:      [2]int{hands[i][0], hands[i][1]},
			Salt:       hex.EncodeToString(salt[:]),
			Commitment: commitment,
			CreatedAt:  now,
		}

		if err := d.store.Set(ctx, record); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Lost a race with a concurrent deal of the same hand.
				return nil, ErrAlreadyDealt
			}
			return nil, fmt.Errorf("%w: %v", ErrDealFailed, err)
		}

		result.Seats = append(result.Seats, SeatCommitment{
			SeatIndex:  seat,
			Commitment: commitment,
		})
	}

	slog.Info("Dealt hand", "table_id", tableID, "hand_id", handID, "seats", len(result.Seats))
	return result, nil
}

// GetCommitments returns the public commitments for a dealt hand.
func (d *DealerService) GetCommitments(ctx context.Context, tableID, handID string) (*DealResult, error) {
	records, err := d.store.GetHand(ctx, tableID, handID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}

	result := &DealResult{
		TableID: tableID,
		HandID:  handID,
		Seats:   make([]SeatCommitment, 0, len(records)),
	}
	for _, record := range records {
		result.Seats = append(result.Seats, SeatCommitment{
			SeatIndex:  record.SeatIndex,
			Commitment: record.Commitment,
		})
	}
	return result, nil
}

// GetRevealData returns a seat's cards and salt for showdown reveal. This
// is sensitive and must stay behind the operator gate, not the player ACL.
func (d *DealerService) GetRevealData(ctx context.Context, tableID, handID string, seatIndex int) (*RevealData, error) {
	record, err := d.store.Get(ctx, tableID, handID, seatIndex)
	if err != nil {
		return nil, err
	}
	return &RevealData{
		SeatIndex: record.SeatIndex,
		Cards:     record.Cards,
		Salt:      record.Salt,
	}, nil
}

func (d *DealerService) IsHandDealt(ctx context.Context, tableID, handID string) (bool, error) {
	return d.store.Has(ctx, tableID, handID, 0)
}

// CleanupHand removes all seat records for a settled hand.
func (d *DealerService) CleanupHand(ctx context.Context, tableID, handID string) (int, error) {
	deleted, err := d.store.DeleteHand(ctx, tableID, handID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("Cleaned up hand", "table_id", tableID, "hand_id", handID, "deleted", deleted)
	}
	return deleted, nil
}
