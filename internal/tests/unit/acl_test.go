package unit

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/evanofslack/go-dealer/internal/chain"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/evanofslack/go-dealer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader is an in-memory chain.Reader for service tests.
type fakeReader struct {
	seats  map[int]chain.Seat
	max    uint8
	handID *big.Int
	events []chain.HandStartedEvent
	head   uint64
	err    error
}

func (f *fakeReader) GetSeat(_ context.Context, seatIndex int) (chain.Seat, error) {
	if f.err != nil {
		return chain.Seat{}, f.err
	}
	if seatIndex < 0 || seatIndex >= int(f.max) {
		return chain.Seat{}, fmt.Errorf("%w: %d", chain.ErrInvalidSeat, seatIndex)
	}
	return f.seats[seatIndex], nil
}

func (f *fakeReader) MaxSeats(context.Context) (uint8, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.max, nil
}

func (f *fakeReader) CurrentHandID(context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.handID, nil
}

func (f *fakeReader) HeadBlock(context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.head, nil
}

func (f *fakeReader) FilterHandStarted(_ context.Context, fromBlock uint64) ([]chain.HandStartedEvent, uint64, error) {
	if f.err != nil {
		return nil, fromBlock, f.err
	}
	var out []chain.HandStartedEvent
	for _, event := range f.events {
		if event.BlockNumber >= fromBlock {
			out = append(out, event)
		}
	}
	return out, f.head, nil
}

func occupiedSeat(owner string) chain.Seat {
	return chain.Seat{
		Owner:      common.HexToAddress(owner),
		Stack:      big.NewInt(1000),
		IsActive:   true,
		CurrentBet: big.NewInt(0),
	}
}

const (
	ownerA = "0x1111111111111111111111111111111111111111"
	ownerB = "0x2222222222222222222222222222222222222222"
)

func TestOwnerGateway_SeatIsolation(t *testing.T) {
	ctx := context.Background()

	reader := &fakeReader{
		max: storeMaxSeats,
		seats: map[int]chain.Seat{
			0: occupiedSeat(ownerA),
			1: occupiedSeat(ownerB),
		},
	}

	holeCards := store.NewMemoryStore(storeMaxSeats)
	require.NoError(t, holeCards.Set(ctx, testRecord("7", "3", 0)))
	require.NoError(t, holeCards.Set(ctx, testRecord("7", "3", 1)))

	gateway := services.NewOwnerGateway(reader, holeCards)

	t.Run("each owner sees only its own seat", func(t *testing.T) {
		forA, err := gateway.HoleCardsFor(ctx, ownerA, "7", "3")
		require.NoError(t, err)
		assert.Equal(t, 0, forA.SeatIndex)
		assert.Equal(t, [2]int{0, 1}, forA.Cards)

		forB, err := gateway.HoleCardsFor(ctx, ownerB, "7", "3")
		require.NoError(t, err)
		assert.Equal(t, 1, forB.SeatIndex)
		assert.Equal(t, [2]int{2, 3}, forB.Cards)

		assert.NotEqual(t, forA.Cards, forB.Cards)
	})

	t.Run("owner lookup is case insensitive", func(t *testing.T) {
		upper := common.HexToAddress(ownerA).Hex()
		result, err := gateway.HoleCardsFor(ctx, upper, "7", "3")
		require.NoError(t, err)
		assert.Equal(t, 0, result.SeatIndex)
	})

	t.Run("stranger is denied", func(t *testing.T) {
		_, err := gateway.HoleCardsFor(ctx, "0x3333333333333333333333333333333333333333", "7", "3")
		assert.ErrorIs(t, err, services.ErrNotSeatOwner)
	})

	t.Run("missing records yield not found", func(t *testing.T) {
		_, err := gateway.HoleCardsFor(ctx, ownerA, "7", "99")
		assert.ErrorIs(t, err, services.ErrHoleCardsNotFound)
	})
}

func TestOwnerGateway_OwnershipReadLive(t *testing.T) {
	ctx := context.Background()

	reader := &fakeReader{
		max: storeMaxSeats,
		seats: map[int]chain.Seat{
			0: occupiedSeat(ownerA),
		},
	}

	holeCards := store.NewMemoryStore(storeMaxSeats)
	require.NoError(t, holeCards.Set(ctx, testRecord("7", "3", 0)))

	gateway := services.NewOwnerGateway(reader, holeCards)

	_, err := gateway.HoleCardsFor(ctx, ownerA, "7", "3")
	require.NoError(t, err)

	// Seat changes hands on chain between requests; access moves with it.
	reader.seats[0] = occupiedSeat(ownerB)

	_, err = gateway.HoleCardsFor(ctx, ownerA, "7", "3")
	assert.ErrorIs(t, err, services.ErrNotSeatOwner)

	result, err := gateway.HoleCardsFor(ctx, ownerB, "7", "3")
	require.NoError(t, err)
	assert.Equal(t, 0, result.SeatIndex)
}

func TestOwnerGateway_ChainErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	reader := &fakeReader{max: storeMaxSeats, err: chain.ErrRPC}
	gateway := services.NewOwnerGateway(reader, store.NewMemoryStore(storeMaxSeats))

	_, err := gateway.HoleCardsFor(ctx, ownerA, "7", "3")
	assert.ErrorIs(t, err, chain.ErrRPC)
}

func TestUnavailableGateway(t *testing.T) {
	gateway := services.UnavailableGateway{}
	_, err := gateway.HoleCardsFor(context.Background(), ownerA, "7", "3")
	assert.ErrorIs(t, err, services.ErrChainUnavailable)
}
