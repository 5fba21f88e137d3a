package emission

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/chain"
	"poolwatch/internal/domain"
)

type fakeSink struct {
	mu      sync.Mutex
	posts   []domain.PoolEvent
	batches [][]domain.PoolEvent
	err     error
}

func (f *fakeSink) Post(ctx context.Context, ev domain.PoolEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, ev)
	return f.err
}

func (f *fakeSink) PostBatch(ctx context.Context, evs []domain.PoolEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, evs)
	return f.err
}

func testEvent(n byte) domain.PoolEvent {
	var pool chain.Address
	pool[0] = n
	return domain.PoolEvent{
		Kind: domain.NewPool,
		Pool: domain.PoolSnapshot{
			PoolAddress: pool,
			DEX:         chain.RaydiumAMMv4,
		},
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "journal.jsonl"), nil, nil, nil)
	for i := 0; i < queueCapacity; i++ {
		require.True(t, p.Enqueue(testEvent(byte(i%256))))
	}
	assert.False(t, p.Enqueue(testEvent(1)))
	assert.Equal(t, int64(1), p.Dropped())
}

func TestDispatchWritesJournalLine(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	p := New(journalPath, nil, nil, nil)
	p.Dispatch(context.Background(), testEvent(7))
	require.NoError(t, p.Close())

	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)

	// Assert against the flat §6 schema directly, not through
	// journalRecord, so a regression to a nested shape is caught here.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &raw)) // strip trailing newline
	assert.Equal(t, "discovery", raw["type"])
	assert.Contains(t, raw, "token")
	assert.Contains(t, raw, "dex")
	assert.Contains(t, raw, "poolAddress")
	assert.Contains(t, raw, "timestamp")
	assert.Contains(t, raw, "slot")
	assert.NotContains(t, raw, "pool")
	assert.NotContains(t, raw, "kind")
}

func TestDispatchPostsToSink(t *testing.T) {
	sink := &fakeSink{}
	p := New(filepath.Join(t.TempDir(), "journal.jsonl"), sink, nil, nil)
	p.Dispatch(context.Background(), testEvent(1))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.posts, 1)
}

func TestSinkRateLimitDropsSecondPostWithinWindow(t *testing.T) {
	sink := &fakeSink{}
	p := New(filepath.Join(t.TempDir(), "journal.jsonl"), sink, nil, nil)
	p.Dispatch(context.Background(), testEvent(1))
	p.Dispatch(context.Background(), testEvent(2))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.posts, 1, "second post within the 2s window must be skipped, not queued")
}

func TestDispatchBatchPostsAllAtOnce(t *testing.T) {
	sink := &fakeSink{}
	p := New(filepath.Join(t.TempDir(), "journal.jsonl"), sink, nil, nil)
	evs := []domain.PoolEvent{testEvent(1), testEvent(2), testEvent(3)}
	require.NoError(t, p.DispatchBatch(context.Background(), evs))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
}

type fakeMirror struct {
	mu     sync.Mutex
	events []domain.PoolEvent
}

func (f *fakeMirror) Insert(ctx context.Context, ev domain.PoolEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func TestDispatchMirrorsEvent(t *testing.T) {
	mirror := &fakeMirror{}
	p := New(filepath.Join(t.TempDir(), "journal.jsonl"), nil, mirror, nil)
	p.Dispatch(context.Background(), testEvent(9))

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	require.Len(t, mirror.events, 1)
}
