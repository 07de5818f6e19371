package unit

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/evanofslack/go-dealer/internal/chain"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandStartedListener_DealsOnEvent(t *testing.T) {
	ctx := context.Background()
	dealer, holeCards := newDealer()

	reader := &fakeReader{
		max: storeMaxSeats,
		seats: map[int]chain.Seat{
			0: occupiedSeat(ownerA),
			2: occupiedSeat(ownerB),
		},
		events: []chain.HandStartedEvent{
			{HandID: big.NewInt(3), SmallBlind: big.NewInt(1), BigBlind: big.NewInt(2), ButtonSeat: 0, BlockNumber: 10},
		},
		head: 9,
	}

	listener := services.NewHandStartedListener(reader, dealer, "7", 5*time.Millisecond)
	listener.Start()
	defer listener.Stop()

	assert.True(t, listener.Watching())

	require.Eventually(t, func() bool {
		dealt, err := dealer.IsHandDealt(ctx, "7", "3")
		return err == nil && dealt
	}, time.Second, 5*time.Millisecond)

	// Only the occupied seats got cards.
	records, err := holeCards.GetHand(ctx, "7", "3")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].SeatIndex)
	assert.Equal(t, 2, records[1].SeatIndex)
}

func TestHandStartedListener_IgnoresEventsBeforeStart(t *testing.T) {
	ctx := context.Background()
	dealer, holeCards := newDealer()

	// The event predates the listener: the chain head is already well past
	// its block when watching begins. It must never be dealt.
	reader := &fakeReader{
		max: storeMaxSeats,
		seats: map[int]chain.Seat{
			0: occupiedSeat(ownerA),
			1: occupiedSeat(ownerB),
		},
		events: []chain.HandStartedEvent{
			{HandID: big.NewInt(3), SmallBlind: big.NewInt(1), BigBlind: big.NewInt(2), BlockNumber: 10},
		},
		head: 100,
	}

	listener := services.NewHandStartedListener(reader, dealer, "7", 5*time.Millisecond)
	listener.Start()
	time.Sleep(100 * time.Millisecond)
	listener.Stop()

	dealt, err := dealer.IsHandDealt(ctx, "7", "3")
	require.NoError(t, err)
	assert.False(t, dealt)

	records, err := holeCards.GetHand(ctx, "7", "3")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandStartedListener_RedundantEventIsBenign(t *testing.T) {
	ctx := context.Background()
	dealer, holeCards := newDealer()

	// Hand is already dealt before the event is observed.
	_, err := dealer.Deal(ctx, "7", "3", []int{0, 1})
	require.NoError(t, err)
	before, err := holeCards.Get(ctx, "7", "3", 0)
	require.NoError(t, err)

	reader := &fakeReader{
		max: storeMaxSeats,
		seats: map[int]chain.Seat{
			0: occupiedSeat(ownerA),
			1: occupiedSeat(ownerB),
		},
		events: []chain.HandStartedEvent{
			{HandID: big.NewInt(3), SmallBlind: big.NewInt(1), BigBlind: big.NewInt(2), BlockNumber: 10},
		},
		head: 9,
	}

	listener := services.NewHandStartedListener(reader, dealer, "7", 5*time.Millisecond)
	listener.Start()

	time.Sleep(50 * time.Millisecond)
	listener.Stop()
	assert.False(t, listener.Watching())

	// The stored cards were not touched.
	after, err := holeCards.Get(ctx, "7", "3", 0)
	require.NoError(t, err)
	assert.Equal(t, before.Cards, after.Cards)
	assert.Equal(t, before.Salt, after.Salt)
}

func TestHandStartedListener_SurvivesChainErrors(t *testing.T) {
	dealer, _ := newDealer()

	reader := &fakeReader{max: storeMaxSeats, err: chain.ErrRPC}
	listener := services.NewHandStartedListener(reader, dealer, "7", 5*time.Millisecond)

	listener.Start()
	time.Sleep(30 * time.Millisecond)

	// Still watching despite every poll failing.
	assert.True(t, listener.Watching())
	listener.Stop()
}

func TestHandStartedListener_StartStopIdempotent(t *testing.T) {
	dealer, _ := newDealer()
	reader := &fakeReader{max: storeMaxSeats}

	listener := services.NewHandStartedListener(reader, dealer, "7", time.Minute)
	listener.Start()
	listener.Start()
	assert.True(t, listener.Watching())

	listener.Stop()
	listener.Stop()
	assert.False(t, listener.Watching())
}
