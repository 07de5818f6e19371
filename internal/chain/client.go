package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// tableABI covers exactly the two calls and one event this service
// consumes; decoding is statically typed against it.
const tableABI = `[
	{"type":"function","name":"getSeat","stateMutability":"view","inputs":[{"name":"seatIndex","type":"uint8"}],"outputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"},{"name":"stack","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"currentBet","type":"uint256"}]},
	{"type":"function","name":"MAX_SEATS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"currentHandId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"HandStarted","inputs":[{"name":"handId","type":"uint256","indexed":true},{"name":"smallBlind","type":"uint256","indexed":false},{"name":"bigBlind","type":"uint256","indexed":false},{"name":"buttonSeat","type":"uint8","indexed":false}]}
]`

// Client reads the table contract over JSON-RPC.
type Client struct {
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
}

func NewClient(rpcURL, contractAddress string) (*Client, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("malformed contract address %q", contractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(tableABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table abi: %w", err)
	}

	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	return &Client{
		eth:      eth,
		abi:      parsed,
		contract: common.HexToAddress(contractAddress),
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRPC, method, err)
	}

	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

func (c *Client) GetSeat(ctx context.Context, seatIndex int) (Seat, error) {
	if seatIndex < 0 || seatIndex > 255 {
		return Seat{}, fmt.Errorf("%w: %d", ErrInvalidSeat, seatIndex)
	}

	out, err := c.call(ctx, "getSeat", uint8(seatIndex))
	if err != nil {
		return Seat{}, err
	}
	if len(out) != 5 {
		return Seat{}, fmt.Errorf("getSeat returned %d values", len(out))
	}

	seat := Seat{}
	var ok bool
	if seat.Owner, ok = out[0].(common.Address); !ok {
		return Seat{}, fmt.Errorf("getSeat owner has unexpected type %T", out[0])
	}
	if seat.Operator, ok = out[1].(common.Address); !ok {
		return Seat{}, fmt.Errorf("getSeat operator has unexpected type %T", out[1])
	}
	if seat.Stack, ok = out[2].(*big.Int); !ok {
		return Seat{}, fmt.Errorf("getSeat stack has unexpected type %T", out[2])
	}
	if seat.IsActive, ok = out[3].(bool); !ok {
		return Seat{}, fmt.Errorf("getSeat isActive has unexpected type %T", out[3])
	}
	if seat.CurrentBet, ok = out[4].(*big.Int); !ok {
		return Seat{}, fmt.Errorf("getSeat currentBet has unexpected type %T", out[4])
	}
	return seat, nil
}

func (c *Client) MaxSeats(ctx context.Context) (uint8, error) {
	out, err := c.call(ctx, "MAX_SEATS")
	if err != nil {
		return 0, err
	}
	max, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("MAX_SEATS has unexpected type %T", out[0])
	}
	return max, nil
}

func (c *Client) CurrentHandID(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "currentHandId")
	if err != nil {
		return nil, err
	}
	handID, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("currentHandId has unexpected type %T", out[0])
	}
	return handID, nil
}

func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: block number: %v", ErrRPC, err)
	}
	return head, nil
}

func (c *Client) FilterHandStarted(ctx context.Context, fromBlock uint64) ([]HandStartedEvent, uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fromBlock, fmt.Errorf("%w: block number: %v", ErrRPC, err)
	}
	if head < fromBlock {
		return nil, fromBlock, nil
	}

	event := c.abi.Events["HandStarted"]
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, fromBlock, fmt.Errorf("%w: filter logs: %v", ErrRPC, err)
	}

	events := make([]HandStartedEvent, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}

		var decoded struct {
			SmallBlind *big.Int
			BigBlind   *big.Int
			ButtonSeat uint8
		}
		if err := c.abi.UnpackIntoInterface(&decoded, "HandStarted", l.Data); err != nil {
			return nil, fromBlock, fmt.Errorf("failed to decode HandStarted log: %w", err)
		}

		events = append(events, HandStartedEvent{
			HandID:      new(big.Int).SetBytes(l.Topics[1].Bytes()),
			SmallBlind:  decoded.SmallBlind,
			BigBlind:    decoded.BigBlind,
			ButtonSeat:  decoded.ButtonSeat,
			BlockNumber: l.BlockNumber,
		})
	}
	return events, head, nil
}
