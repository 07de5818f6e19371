// Package chain is the narrow read-only view of the on-chain table
// contract: seat state, the current hand id and the HandStarted event.
// Everything chain-library specific stays behind Reader so the services can
// be exercised against a fake.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrRPC         = errors.New("chain rpc error")
	ErrInvalidSeat = errors.New("invalid seat index")
)

// Seat is the live on-chain state of one table position.
type Seat struct {
	Owner      common.Address
	Operator   common.Address
	Stack      *big.Int
	IsActive   bool
	CurrentBet *big.Int
}

// Occupied reports whether the seat currently has a live owner.
func (s Seat) Occupied() bool {
	return s.IsActive && s.Owner != (common.Address{})
}

// HandStartedEvent is the decoded hand-start signal.
type HandStartedEvent struct {
	HandID      *big.Int
	SmallBlind  *big.Int
	BigBlind    *big.Int
	ButtonSeat  uint8
	BlockNumber uint64
}

// Reader is the collaborator interface the dealer consumes. Seat ownership
// must never be cached across requests; callers re-read it every time.
type Reader interface {
	GetSeat(ctx context.Context, seatIndex int) (Seat, error)
	MaxSeats(ctx context.Context) (uint8, error)
	CurrentHandID(ctx context.Context) (*big.Int, error)
	// HeadBlock returns the number of the latest block.
	HeadBlock(ctx context.Context) (uint64, error)
	// FilterHandStarted returns HandStarted events at or after fromBlock,
	// along with the latest block scanned.
	FilterHandStarted(ctx context.Context, fromBlock uint64) ([]HandStartedEvent, uint64, error)
}
