package services

import (
	"context"
	"errors"
	"strings"

	"github.com/evanofslack/go-dealer/internal/chain"
	"github.com/evanofslack/go-dealer/internal/store"
)

var (
	ErrChainUnavailable  = errors.New("chain collaborator not configured")
	ErrNotSeatOwner      = errors.New("address does not own a seat")
	ErrHoleCardsNotFound = errors.New("hole cards not found")
)

// OwnerGateway gates hole-card reads on live on-chain seat ownership. The
// two implementations make the optional chain dependency explicit instead
// of a nullable field.
type OwnerGateway interface {
	// HoleCardsFor resolves the seat currently owned by address and returns
	// only that seat's cards. Seat selection is never client-supplied.
	HoleCardsFor(ctx context.Context, address, tableID, handID string) (*OwnerHoleCards, error)
}

type OwnerHoleCards struct {
	TableID   string `json:"tableId"`
	HandID    string `json:"handId"`
	SeatIndex int    `json:"seatIndex"`
	Cards     [2]int `json:"cards"`
}

// UnavailableGateway serves deployments without a chain client; every call
// reports the dependency missing.
type UnavailableGateway struct{}

func (UnavailableGateway) HoleCardsFor(context.Context, string, string, string) (*OwnerHoleCards, error) {
	return nil, ErrChainUnavailable
}

// ReadyGateway re-derives seat ownership from chain state on every call.
// Ownership is deliberately never cached: the seat can change hands
// between deal time and read time.
type ReadyGateway struct {
	reader chain.Reader
	store  store.HoleCardStore
}

func NewOwnerGateway(reader chain.Reader, holeCards store.HoleCardStore) *ReadyGateway {
	return &ReadyGateway{
		reader: reader,
		store:  holeCards,
	}
}

func (g *ReadyGateway) HoleCardsFor(ctx context.Context, address, tableID, handID string) (*OwnerHoleCards, error) {
	seat, err := g.resolveSeat(ctx, address)
	if err != nil {
		return nil, err
	}

	record, err := g.store.Get(ctx, tableID, handID, seat)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrHoleCardsNotFound
		}
		return nil, err
	}

	return &OwnerHoleCards{
		TableID:   tableID,
		HandID:    handID,
		SeatIndex: record.SeatIndex,
		Cards:     record.Cards,
	}, nil
}

func (g *ReadyGateway) resolveSeat(ctx context.Context, address string) (int, error) {
	maxSeats, err := g.reader.MaxSeats(ctx)
	if err != nil {
		return 0, err
	}

	normalized := strings.ToLower(address)
	for seat := 0; seat < int(maxSeats); seat++ {
		state, err := g.reader.GetSeat(ctx, seat)
		if err != nil {
			return 0, err
		}
		if state.Occupied() && strings.ToLower(state.Owner.Hex()) == normalized {
			return seat, nil
		}
	}
	return 0, ErrNotSeatOwner
}
