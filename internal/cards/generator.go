package cards

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	mathrand "math/rand"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeckSize is the number of cards in a standard deck. Card identifiers are
// integers in [0, DeckSize): rank-major, card = rank*4 + suit.
const DeckSize = 52

// SaltSize is the fixed width of a per-seat salt, matching the bytes32 the
// on-chain verifier hashes over.
const SaltSize = 32

var ErrInvalidCount = errors.New("invalid card count")

// Generator samples unique cards and computes reveal commitments.
//
// AllowSeeded gates the deterministic shuffle path: it exists only so tests
// can reproduce deals and must stay false anywhere real money is at stake.
type Generator struct {
	AllowSeeded bool
}

func NewGenerator(allowSeeded bool) *Generator {
	return &Generator{AllowSeeded: allowSeeded}
}

// GenerateUniqueCards draws count distinct cards from the deck minus
// exclude, uniformly at random. A non-nil seed selects the deterministic
// shuffle, which is rejected unless the generator allows it.
func (g *Generator) GenerateUniqueCards(count int, exclude []int, seed *int64) ([]int, error) {
	excluded := make(map[int]bool, len(exclude))
	for _, c := range exclude {
		excluded[c] = true
	}

	available := make([]int, 0, DeckSize)
	for c := 0; c < DeckSize; c++ {
		if !excluded[c] {
			available = append(available, c)
		}
	}

	if count < 1 || count > len(available) {
		return nil, fmt.Errorf("%w: requested %d of %d available", ErrInvalidCount, count, len(available))
	}

	if seed != nil {
		if !g.AllowSeeded {
			return nil, fmt.Errorf("seeded shuffle is disabled")
		}
		shuffleSeeded(available, *seed)
	} else {
		if err := shuffleSecure(available); err != nil {
			return nil, err
		}
	}

	return available[:count], nil
}

// DealHoleCards draws seatCount*cardsPerSeat unique cards in one shuffle
// and chunks them per seat, so no card can appear at two seats.
func (g *Generator) DealHoleCards(seatCount, cardsPerSeat int, seed *int64) ([][]int, error) {
	if seatCount < 1 || cardsPerSeat < 1 {
		return nil, fmt.Errorf("%w: %d seats, %d cards per seat", ErrInvalidCount, seatCount, cardsPerSeat)
	}

	drawn, err := g.GenerateUniqueCards(seatCount*cardsPerSeat, nil, seed)
	if err != nil {
		return nil, err
	}

	hands := make([][]int, seatCount)
	for i := 0; i < seatCount; i++ {
		hands[i] = drawn[i*cardsPerSeat : (i+1)*cardsPerSeat]
	}
	return hands, nil
}

// Commitment hashes (handID, seatIndex, card1, card2, salt) exactly as the
// on-chain verifier does: keccak256 over the packed encoding of a uint256
// hand id, three single bytes and a bytes32 salt, in that order.
func Commitment(handID uint64, seatIndex uint8, card1, card2 int, salt [SaltSize]byte) string {
	var handIDWord [32]byte
	new(big.Int).SetUint64(handID).FillBytes(handIDWord[:])

	preimage := make([]byte, 0, 32+3+SaltSize)
	preimage = append(preimage, handIDWord[:]...)
	preimage = append(preimage, seatIndex, byte(card1), byte(card2))
	preimage = append(preimage, salt[:]...)

	return hexutil.Encode(crypto.Keccak256(preimage))
}

// NewSalt returns a fresh unpredictable per-seat salt.
func NewSalt() ([SaltSize]byte, error) {
	var salt [SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Valid reports whether card is a legal deck identifier.
func Valid(card int) bool {
	return card >= 0 && card < DeckSize
}

// shuffleSecure runs Fisher-Yates with indexes drawn from crypto/rand.
func shuffleSecure(cards []int) error {
	for i := len(cards) - 1; i > 0; i-- {
		j, err := secureIntn(i + 1)
		if err != nil {
			return fmt.Errorf("failed to draw shuffle index: %w", err)
		}
		cards[i], cards[j] = cards[j], cards[i]
	}
	return nil
}

// secureIntn returns a uniform value in [0, n) via rejection sampling.
func secureIntn(n int) (int, error) {
	max := uint64(n)
	limit := (^uint64(0) / max) * max
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % max), nil
		}
	}
}

func shuffleSeeded(cards []int, seed int64) {
	rng := mathrand.New(mathrand.NewSource(seed))
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
