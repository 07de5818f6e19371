package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/evanofslack/go-dealer/internal/chain"
	"github.com/google/uuid"
)

// HandStartedListener polls the chain for HandStarted events and triggers
// an idempotent deal for each. The block cursor starts at the chain head
// and is never persisted: events from before Start, or missed while the
// service is down, are not retroactively dealt; operators recover via the
// manual deal endpoint.
type HandStartedListener struct {
	reader   chain.Reader
	dealer   *DealerService
	tableID  string
	interval time.Duration

	mu        sync.Mutex
	watching  bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	primed    bool
	fromBlock uint64
}

func NewHandStartedListener(reader chain.Reader, dealer *DealerService, tableID string, interval time.Duration) *HandStartedListener {
	return &HandStartedListener{
		reader:   reader,
		dealer:   dealer,
		tableID:  tableID,
		interval: interval,
	}
}

// Watching reports the listener state for the health endpoint.
func (l *HandStartedListener) Watching() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.watching
}

func (l *HandStartedListener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watching {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.watching = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		slog.Info("Hand event listener started", "table_id", l.tableID, "interval", l.interval)
		for {
			select {
			case <-ticker.C:
				l.poll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (l *HandStartedListener) Stop() {
	l.mu.Lock()
	if !l.watching {
		l.mu.Unlock()
		return
	}
	l.watching = false
	l.cancel()
	l.mu.Unlock()

	l.wg.Wait()
	slog.Info("Hand event listener stopped", "table_id", l.tableID)
}

// poll scans for new events. Any failure is logged and abandoned; the next
// tick starts clean.
func (l *HandStartedListener) poll(ctx context.Context) {
	if !l.primed {
		head, err := l.reader.HeadBlock(ctx)
		if err != nil {
			slog.Warn("Failed to read chain head", "error", err)
			return
		}
		// Only events strictly after the current head are dealt; hands
		// started before the listener came up belong to the operator.
		l.fromBlock = head + 1
		l.primed = true
		return
	}

	events, lastBlock, err := l.reader.FilterHandStarted(ctx, l.fromBlock)
	if err != nil {
		slog.Warn("Failed to poll for hand events", "error", err)
		return
	}
	if lastBlock >= l.fromBlock {
		l.fromBlock = lastBlock + 1
	}

	for _, event := range events {
		l.handleEvent(ctx, event)
	}
}

func (l *HandStartedListener) handleEvent(ctx context.Context, event chain.HandStartedEvent) {
	eventID := uuid.NewString()
	handID := event.HandID.String()
	logger := slog.With("event_id", eventID, "table_id", l.tableID, "hand_id", handID)

	dealt, err := l.dealer.IsHandDealt(ctx, l.tableID, handID)
	if err != nil {
		logger.Error("Failed to check hand state", "error", err)
		return
	}
	if dealt {
		logger.Info("Hand already dealt, skipping event")
		return
	}

	seats, err := l.resolveOccupiedSeats(ctx)
	if err != nil {
		logger.Error("Failed to resolve occupied seats", "error", err)
		return
	}
	if len(seats) == 0 {
		logger.Warn("No occupied seats at hand start")
		return
	}

	if _, err := l.dealer.Deal(ctx, l.tableID, handID, seats); err != nil {
		if errors.Is(err, ErrAlreadyDealt) {
			// Benign: someone else won the race for this hand.
			logger.Info("Hand dealt concurrently, skipping event")
			return
		}
		logger.Error("Failed to deal hand for event", "error", err)
		return
	}

	logger.Info("Dealt hand from chain event", "seats", len(seats), "button_seat", event.ButtonSeat)
}

func (l *HandStartedListener) resolveOccupiedSeats(ctx context.Context) ([]int, error) {
	maxSeats, err := l.reader.MaxSeats(ctx)
	if err != nil {
		return nil, err
	}

	var occupied []int
	for seat := 0; seat < int(maxSeats); seat++ {
		state, err := l.reader.GetSeat(ctx, seat)
		if err != nil {
			return nil, err
		}
		if state.Occupied() {
			occupied = append(occupied, seat)
		}
	}
	return occupied, nil
}
