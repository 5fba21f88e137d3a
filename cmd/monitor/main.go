// Command monitor runs the live pool-discovery and risk-scoring
// pipeline end to end: Subscription Manager -> Account Decoder -> Pool
// Tracker -> Metadata Correlator -> Risk Scorer -> Emission Pipeline.
// Flag/shutdown shape grounded on cmd/ingest/main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poolwatch/internal/correlator"
	"poolwatch/internal/domain"
	"poolwatch/internal/emission"
	"poolwatch/internal/features"
	"poolwatch/internal/metadata"
	"poolwatch/internal/observability"
	"poolwatch/internal/outcome"
	"poolwatch/internal/risk"
	"poolwatch/internal/storage/postgres"
	"poolwatch/internal/stream"
	"poolwatch/internal/streampb"
	"poolwatch/internal/tracker"
)

func main() {
	grpcEndpoint := flag.String("grpc-endpoint", "", "Account-update gRPC endpoint")
	dasEndpoint := flag.String("das-endpoint", "", "DAS getAsset HTTP fallback endpoint (empty disables the fallback)")
	sinkEndpoint := flag.String("sink-endpoint", "", "HTTP sink endpoint for emitted pool events (empty disables the sink)")
	journalPath := flag.String("journal-path", "pool_events.jsonl", "Path to the rotating JSON-line event journal")
	classifierPath := flag.String("classifier-path", "", "Path to the quantised risk classifier weights (empty runs rule-based mode)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for the outcome learner's durable store (empty keeps predictions in-memory only)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	mode := flag.String("mode", "track", "Pipeline mode label (discover or track); only reported in the startup log, it does not change which events are processed")

	flag.Parse()

	logger := log.New(os.Stdout, "[monitor] ", log.LstdFlags|log.Lshortfile)

	if *grpcEndpoint == "" {
		logger.Fatal("--grpc-endpoint is required")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Println("received shutdown signal")
		cancel()
	}()

	var classifier *risk.Classifier
	if *classifierPath != "" {
		c, err := risk.LoadClassifier(*classifierPath)
		if err != nil {
			logger.Printf("loading classifier, falling back to rule-based mode: %v", err)
		} else {
			classifier = c
		}
	}
	scorer := risk.NewScorer(classifier, nil)

	var learnerStore outcome.Store = outcome.New(nil)
	if *postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		logger.Println("outcome predictions will also be mirrored to postgres")
		// PostgresStore durably persists alongside the in-memory Learner;
		// analytics (GetStats/GetFeatureImportance) run over the latter.
		pgStore := outcome.NewPostgresStore(pool)
		go mirrorPredictionsToPostgres(ctx, learnerStore, pgStore, logger)
	}

	var sink emission.Sink
	if *sinkEndpoint != "" {
		sink = emission.NewHTTPSink(*sinkEndpoint)
	}
	pipeline := emission.New(*journalPath, sink, nil, logger)
	defer pipeline.Close()
	go pipeline.Start(ctx)

	var dasFetcher correlator.DASFetcher
	if *dasEndpoint != "" {
		dasFetcher = correlator.NewHTTPDASFetcher(*dasEndpoint)
	}

	// The cache's onArrival callback and the correlator each need a
	// reference to the other; resolve the cycle with a forwarding
	// closure over a pointer set once the correlator exists.
	var corr *correlator.Correlator
	metaCache := metadata.NewCache(func(e metadata.Entry) {
		if corr != nil {
			corr.OnMetadataArrival(e)
		}
	})
	corr = correlator.New(metaCache, dasFetcher, func(ev domain.PoolEvent) {
		scoreAndEmit(ev, scorer, learnerStore, pipeline, logger)
	})
	go corr.Start(ctx)

	mgr, _ := buildManager(*grpcEndpoint, logger, func(ev domain.PoolEvent) {
		observability.RecordStreamMessage(ev.Pool.DEX.String())
		corr.HandlePoolEvent(ev)
	}, metaCache)

	if err := mgr.Start(ctx); err != nil {
		logger.Fatalf("start stream manager: %v", err)
	}
	defer mgr.Stop()

	logger.Printf("monitor running in %s mode", *mode)
	<-ctx.Done()
	logger.Println("shutdown complete")
}

// buildManager wires the Subscription Manager's raw-update callbacks
// into the Pool Tracker and the Metadata Decoder/Cache, matching §4.E's
// division of labor: the manager only demultiplexes by owner program.
func buildManager(endpoint string, logger *log.Logger, emit func(domain.PoolEvent), metaCache *metadata.Cache) (*stream.Manager, *tracker.Tracker) {
	var mgr *stream.Manager
	trk := tracker.New(managerSubscriber{&mgr}, emit)

	handlers := stream.Handlers{
		OnPoolUpdate: trk.HandlePoolUpdate,
		OnMetadataUpdate: func(update streampb.AccountUpdate) {
			handleMetadataUpdate(update, metaCache)
		},
		OnToken2022Update: trk.HandleToken2022Update,
		OnSPLTokenUpdate:  trk.HandleSPLTokenUpdate,
		OnError: func(err error) {
			logger.Printf("stream error: %v", err)
		},
		OnConnect: func() {
			logger.Println("stream connected")
		},
		OnDisconnect: func() {
			logger.Println("stream disconnected")
			observability.RecordStreamReconnect("disconnect")
		},
	}
	mgr = stream.New(endpoint, handlers, logger)
	return mgr, trk
}

// managerSubscriber defers resolving the *stream.Manager pointer until
// after stream.New has returned, since tracker.New needs a
// VaultSubscriber before the Manager it wraps exists yet.
type managerSubscriber struct {
	mgr **stream.Manager
}

func (m managerSubscriber) SubscribeAdditional(key string, filter streampb.AccountFilter) error {
	return (*m.mgr).SubscribeAdditional(key, filter)
}

// handleMetadataUpdate tries both metadata account shapes the decoder
// supports (§4.B) and caches whichever one parses.
func handleMetadataUpdate(update streampb.AccountUpdate, cache *metadata.Cache) {
	if decoded, ok := metadata.DecodeLegacyPDA(update.Data); ok {
		cache.Put(metadata.Entry{Mint: decoded.Mint, Name: decoded.Name, Symbol: decoded.Symbol, CachedAt: time.Now().UnixMilli()})
		return
	}
	if decoded, ok := metadata.DecodeToken2022Extension(update.Data); ok {
		cache.Put(metadata.Entry{Mint: decoded.Mint, Name: decoded.Name, Symbol: decoded.Symbol, CachedAt: time.Now().UnixMilli()})
	}
}

// scoreAndEmit runs a metadata-resolved pool event through the Risk
// Scorer, records the prediction with the Outcome Learner, and hands
// the event to the Emission Pipeline (§4.H). Holder/bundle/creator
// inputs are left at their zero-value defaults: that analytics feed is
// a separate ingestion concern not exercised by this binary.
func scoreAndEmit(ev domain.PoolEvent, scorer *risk.Scorer, learner outcome.Store, pipeline *emission.Pipeline, logger *log.Logger) {
	in := features.Inputs{
		LiquidityUsd: ev.Pool.Enriched.LiquiditySol,
		MarketCap:    ev.Pool.Enriched.PriceSolPerToken * float64(ev.Pool.Enriched.TokenSupply),
	}
	vec := features.Extract(in)
	report := scorer.Score(vec, in)
	observability.RecordRiskScore(report.RiskLevel.String())

	allow, warn, reason := risk.Gate(report)
	if !allow {
		observability.RecordRiskGateBlocked(reason)
		logger.Printf("gate blocked pool %s: %s", ev.Pool.PoolAddress.String(), reason)
		return
	}
	if warn {
		logger.Printf("gate warning for pool %s: %s", ev.Pool.PoolAddress.String(), reason)
	}

	predID, err := learner.RecordPrediction(outcome.Prediction{
		Mint:       ev.Pool.BaseMint.String(),
		Timestamp:  ev.Pool.ObservedAt,
		RiskScore:  report.RiskScore,
		Verdict:    outcome.Verdict(report.RiskLevel.String()),
		Confidence: report.Confidence,
		Features:   vec,
	})
	if err != nil {
		logger.Printf("record prediction: %v", err)
	} else {
		observability.RecordOutcomePrediction()
		_ = predID
	}

	if !pipeline.Enqueue(ev) {
		observability.RecordEmissionDropped()
	} else {
		observability.RecordEmissionEnqueued()
	}
}

// mirrorPredictionsToPostgres periodically copies still-unresolved
// predictions from the in-memory learner into the durable Postgres
// store, best-effort: a prediction whose outcome arrives within one
// poll interval may never be mirrored. A poll loop (rather than a
// dual-write on every RecordPrediction call) keeps learner.Store's
// interface free of a context parameter.
func mirrorPredictionsToPostgres(ctx context.Context, learner outcome.Store, pg *outcome.PostgresStore, logger *log.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	var lastCutoff time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := learner.GetPendingOutcomes(0, time.Now())
			if err != nil {
				logger.Printf("list pending predictions for postgres mirror: %v", err)
				continue
			}
			for _, pred := range pending {
				if time.UnixMilli(pred.Timestamp).Before(lastCutoff) {
					continue
				}
				if _, err := pg.RecordPrediction(ctx, pred); err != nil {
					logger.Printf("mirror prediction %s to postgres: %v", pred.PredictionID, err)
				}
			}
			lastCutoff = time.Now()
		}
	}
}
