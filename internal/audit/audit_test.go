package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedfund/pkg/requestcontext"
)

func TestPublisherStampsEvents(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, slog.New(slog.DiscardHandler))

	ctx := requestcontext.WithRequestID(context.Background(), "req-7")
	pub.Emit(ctx, Event{Action: ActionInvestmentInitiated, InvestorID: "inv-1", Amount: "10000.00"})

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionInvestmentInitiated, events[0].Action)
	assert.Equal(t, "req-7", events[0].RequestID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestInMemoryStoreConcurrentAppend(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(ctx, Event{Action: ActionAuthRejected, Timestamp: time.Now()})
		}()
	}
	wg.Wait()

	events, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

func TestInMemoryStoreListRecentLimit(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Event{Action: ActionTokensMinted, TransactionID: string(rune('a' + i))}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "d", events[0].TransactionID)
	assert.Equal(t, "e", events[1].TransactionID)
}

func TestWorkerDrainsInbox(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 4)
	worker := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Action: ActionPaymentConfirmed, TransactionID: "tx-1"}
	inbox <- Event{Action: ActionTokensMinted, TransactionID: "tx-1"}

	require.Eventually(t, func() bool {
		events, _ := store.ListRecent(context.Background(), 0)
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
