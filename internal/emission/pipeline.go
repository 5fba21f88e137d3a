// Package emission implements the Emission Pipeline (§4.H): a bounded
// FIFO queue, a dispatcher rate-limited to one event every 300ms, local
// JSON-line journaling with size-based rotation, and an optional
// rate-limited remote sink plus ClickHouse mirror. Grounded on the
// teacher's internal/solana/rpc_client.go HTTP idiom for the sink call
// and internal/storage/clickhouse for the mirror shape.
package emission

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"poolwatch/internal/domain"
)

// Tuning constants, per §4.H.
const (
	queueCapacity       = 500
	dispatchMinInterval = 300 * time.Millisecond
	sinkMinInterval     = 2 * time.Second
	sinkTimeout         = 5 * time.Second
	journalMaxSizeMB    = 10
	journalMaxBackups   = 3
)

// Sink is the optional remote fan-out target (§4.H: "fire-and-forget
// POST"). A nil Sink means the pipeline only journals.
type Sink interface {
	Post(ctx context.Context, ev domain.PoolEvent) error
	PostBatch(ctx context.Context, evs []domain.PoolEvent) error
}

// Mirror is the optional ClickHouse (or other analytical store) write
// path. A nil Mirror means events are not mirrored.
type Mirror interface {
	Insert(ctx context.Context, ev domain.PoolEvent) error
}

// journalRecord is the on-disk JSON-line shape, flattened per §6's
// "Local journal format" (a fixed flat schema, not a nested PoolSnapshot).
// Addresses are stored as their base-58 String() form.
type journalRecord struct {
	Token             string  `json:"token"`
	DEX               string  `json:"dex"`
	PoolAddress       string  `json:"poolAddress"`
	Type              string  `json:"type"`
	Timestamp         int64   `json:"timestamp"`
	Slot              uint64  `json:"slot"`
	TokenName         string  `json:"tokenName,omitempty"`
	TokenSymbol       string  `json:"tokenSymbol,omitempty"`
	LiquiditySol      float64 `json:"liquiditySol,omitempty"`
	TokenSupply       uint64  `json:"tokenSupply,omitempty"`
	RealSolReserves   uint64  `json:"realSolReserves,omitempty"`
	RealTokenReserves uint64  `json:"realTokenReserves,omitempty"`
	Complete          bool    `json:"complete,omitempty"`
	GraduatedFrom     string  `json:"graduatedFrom,omitempty"`
	BondingCurveTime  uint64  `json:"bondingCurveTime,omitempty"`
}

// Pipeline is the single FIFO queue + single dispatcher described by
// §4.H. Construction never blocks; Start spawns the dispatcher goroutine.
type Pipeline struct {
	queue chan domain.PoolEvent

	journal *lumberjack.Logger
	sink    Sink
	mirror  Mirror
	logger  *log.Logger

	sinkMu       sync.Mutex
	lastSinkPost time.Time

	dropped atomic.Int64

	eg *errgroup.Group
}

// New constructs a Pipeline. journalPath is required; sink and mirror may
// be nil.
func New(journalPath string, sink Sink, mirror Mirror, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		queue: make(chan domain.PoolEvent, queueCapacity),
		journal: &lumberjack.Logger{
			Filename:   journalPath,
			MaxSize:    journalMaxSizeMB,
			MaxBackups: journalMaxBackups,
		},
		sink:   sink,
		mirror: mirror,
		logger: logger,
	}
}

// Enqueue appends ev to the queue. It reports false if the queue was at
// capacity, in which case ev is dropped per §4.H's backpressure contract
// (never blocks the caller).
func (p *Pipeline) Enqueue(ev domain.PoolEvent) bool {
	select {
	case p.queue <- ev:
		return true
	default:
		p.dropped.Add(1)
		p.logger.Printf("emission: queue full, dropping event for pool %s", ev.Pool.PoolAddress)
		return false
	}
}

// Dropped reports the number of events dropped due to a full queue.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// Start runs the dispatcher until ctx is cancelled, draining the queue
// with at least dispatchMinInterval between successive dispatches. The
// dispatcher goroutine is tracked with an errgroup so Close can wait for
// it to return (after ctx is cancelled) before closing the journal file.
func (p *Pipeline) Start(ctx context.Context) {
	eg, egCtx := errgroup.WithContext(ctx)
	p.eg = eg
	eg.Go(func() error {
		ticker := time.NewTicker(dispatchMinInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case ev := <-p.queue:
				p.Dispatch(egCtx, ev)
				<-ticker.C // enforce the minimum gap before the next drain
			}
		}
	})
}

// Dispatch journals ev and, if configured, mirrors and posts it to the
// remote sink. Exposed directly so tests can drive dispatch without the
// dispatcher's ticker-paced loop.
func (p *Pipeline) Dispatch(ctx context.Context, ev domain.PoolEvent) {
	p.writeJournal(ev)

	if p.mirror != nil {
		if err := p.mirror.Insert(ctx, ev); err != nil {
			p.logger.Printf("emission: mirror insert failed: %v", err)
		}
	}

	if p.sink == nil {
		return
	}
	if !p.acquireSinkSlot() {
		return
	}
	sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := p.sink.Post(sinkCtx, ev); err != nil {
		p.logger.Printf("emission: sink post failed: %v", err)
	}
}

// DispatchBatch posts a set of correlated events atomically to the sink
// in one request (§4.H), bypassing the per-event 300ms pacing (the
// caller already chose to batch). It still journals each event and
// still respects the sink's own 2-second rate limit.
func (p *Pipeline) DispatchBatch(ctx context.Context, evs []domain.PoolEvent) error {
	for _, ev := range evs {
		p.writeJournal(ev)
	}
	if p.sink == nil || len(evs) == 0 {
		return nil
	}
	if !p.acquireSinkSlot() {
		return nil
	}
	sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := p.sink.PostBatch(sinkCtx, evs); err != nil {
		p.logger.Printf("emission: sink batch post failed: %v", err)
		return err
	}
	return nil
}

func (p *Pipeline) writeJournal(ev domain.PoolEvent) {
	rec := journalRecord{
		Token:             ev.Pool.BaseMint.String(),
		DEX:               ev.Pool.DEX.String(),
		PoolAddress:       ev.Pool.PoolAddress.String(),
		Type:              ev.Kind.String(),
		Timestamp:         ev.Pool.ObservedAt,
		Slot:              ev.Pool.Slot,
		TokenName:         ev.TokenName,
		TokenSymbol:       ev.TokenSymbol,
		LiquiditySol:      ev.Pool.Enriched.LiquiditySol,
		TokenSupply:       ev.Pool.Enriched.TokenSupply,
		RealSolReserves:   ev.Pool.Enriched.RealSolReserves,
		RealTokenReserves: ev.Pool.Enriched.RealTokenReserves,
		Complete:          ev.Pool.Enriched.Complete,
	}
	if ev.HasGraduatedFrom {
		rec.GraduatedFrom = ev.GraduatedFrom.String()
	}
	if ev.HasBondingCurveDurMs {
		rec.BondingCurveTime = ev.BondingCurveDurationMs
	}
	line, err := json.Marshal(rec)
	if err != nil {
		p.logger.Printf("emission: marshal journal record: %v", err)
		return
	}
	line = append(line, '\n')
	if _, err := p.journal.Write(line); err != nil {
		p.logger.Printf("emission: journal write failed: %v", err)
	}
}

// acquireSinkSlot reports whether the caller may post to the sink now,
// enforcing the independent 2-second sink rate limit (§4.H). Journal
// writes never go through this gate.
func (p *Pipeline) acquireSinkSlot() bool {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	now := time.Now()
	if !p.lastSinkPost.IsZero() && now.Sub(p.lastSinkPost) < sinkMinInterval {
		return false
	}
	p.lastSinkPost = now
	return true
}

// Close waits for the dispatcher goroutine to return (if Start was ever
// called), then flushes and closes the journal file. The dispatcher only
// returns once the context passed to Start is cancelled, so Close blocks
// until then.
func (p *Pipeline) Close() error {
	if p.eg != nil {
		_ = p.eg.Wait()
	}
	return p.journal.Close()
}
