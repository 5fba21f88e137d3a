// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	SwapEventsProcessed      prometheus.Counter
	LiquidityEventsProcessed prometheus.Counter
	SwapEventsStored         prometheus.Counter
	LiquidityEventsStored    prometheus.Counter
	EventProcessingErrors    *prometheus.CounterVec

	// Discovery metrics
	NewTokensDiscovered    prometheus.Counter
	ActiveTokensDiscovered prometheus.Counter
	CandidatesCreated      *prometheus.CounterVec

	// Buffer metrics
	SwapBufferSize      prometheus.Gauge
	LiquidityBufferSize prometheus.Gauge
	HighestSlotSeen     prometheus.Gauge

	// Latency metrics
	EventProcessingLatency *prometheus.HistogramVec
	RPCCallLatency         *prometheus.HistogramVec
	WSMessageLatency       prometheus.Histogram

	// Pipeline metrics
	PipelineRunsTotal    *prometheus.CounterVec
	PipelineDuration     *prometheus.HistogramVec
	TradesSimulated      prometheus.Counter
	AggregatesComputed   prometheus.Counter
	ReportsGenerated     prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
	UptimeSeconds           prometheus.Counter

	// Stream metrics
	StreamMessagesReceived *prometheus.CounterVec
	StreamReconnects       *prometheus.CounterVec
	StreamSubscribedSlots  prometheus.Gauge

	// Decoder metrics
	DecodeAttempts   *prometheus.CounterVec
	DecodeFailures   *prometheus.CounterVec
	DecodeDuration   prometheus.Histogram

	// Tracker metrics
	PoolsTracked        prometheus.Gauge
	PoolsGraduated      prometheus.Counter
	PendingPoolsPruned  prometheus.Counter
	DedupDropped        prometheus.Counter

	// Metadata / correlator metrics
	MetadataCacheHits    prometheus.Counter
	MetadataCacheMisses  prometheus.Counter
	MetadataPendingSize  prometheus.Gauge
	MetadataDASFallbacks *prometheus.CounterVec
	MetadataRetriesExhausted prometheus.Counter

	// Feature / risk metrics
	FeaturesComputed  prometheus.Counter
	FeatureComputeErr *prometheus.CounterVec
	RiskScoresComputed *prometheus.CounterVec
	RiskGateBlocked    *prometheus.CounterVec

	// Emission metrics
	EmissionEnqueued prometheus.Counter
	EmissionDropped  prometheus.Counter
	EmissionSinkPosts *prometheus.CounterVec
	EmissionMirrorWrites *prometheus.CounterVec

	// Outcome metrics
	OutcomePredictionsRecorded prometheus.Counter
	OutcomesRecorded           *prometheus.CounterVec
	OutcomeAccuracy            prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_lab"
	}

	return &Metrics{
		// Ingestion metrics
		SwapEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "swap_events_processed_total",
			Help:      "Total number of swap events processed",
		}),
		LiquidityEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "liquidity_events_processed_total",
			Help:      "Total number of liquidity events processed",
		}),
		SwapEventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "swap_events_stored_total",
			Help:      "Total number of swap events stored to database",
		}),
		LiquidityEventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "liquidity_events_stored_total",
			Help:      "Total number of liquidity events stored to database",
		}),
		EventProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by type",
		}, []string{"event_type", "error_type"}),

		// Discovery metrics
		NewTokensDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "new_tokens_discovered_total",
			Help:      "Total number of NEW_TOKEN candidates discovered",
		}),
		ActiveTokensDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "active_tokens_discovered_total",
			Help:      "Total number of ACTIVE_TOKEN candidates discovered",
		}),
		CandidatesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_created_total",
			Help:      "Total number of candidates created by source",
		}, []string{"source"}),

		// Buffer metrics
		SwapBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "swap_buffer_size",
			Help:      "Current number of slots in swap event buffer",
		}),
		LiquidityBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "liquidity_buffer_size",
			Help:      "Current number of slots in liquidity event buffer",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		// Latency metrics
		EventProcessingLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_latency_seconds",
			Help:      "Event processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		AggregatesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "aggregates_computed_total",
			Help:      "Total number of strategy aggregates computed",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),

		// Stream metrics
		StreamMessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_received_total",
			Help:      "Total number of account-update messages received, by program",
		}, []string{"program"}),
		StreamReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of gRPC stream reconnects, by reason",
		}, []string{"reason"}),
		StreamSubscribedSlots: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "highest_subscribed_slot",
			Help:      "Highest slot observed on the subscribed stream",
		}),

		// Decoder metrics
		DecodeAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "attempts_total",
			Help:      "Total account-decode attempts, by DEX",
		}, []string{"dex"}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "failures_total",
			Help:      "Total account-decode failures, by DEX and reason",
		}, []string{"dex", "reason"}),
		DecodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "duration_seconds",
			Help:      "Time spent decoding a single account update",
			Buckets:   prometheus.DefBuckets,
		}),

		// Tracker metrics
		PoolsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "pools_tracked",
			Help:      "Current number of pools held in the tracker",
		}),
		PoolsGraduated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "pools_graduated_total",
			Help:      "Total number of PumpFun pools observed graduating to Raydium",
		}),
		PendingPoolsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "pending_pools_pruned_total",
			Help:      "Total number of pending bonding-curve entries pruned after their TTL",
		}),
		DedupDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "dedup_dropped_total",
			Help:      "Total number of repeated pool-discovery events dropped by dedup",
		}),

		// Metadata / correlator metrics
		MetadataCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "cache_hits_total",
			Help:      "Total metadata cache hits on pool-event correlation",
		}),
		MetadataCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "cache_misses_total",
			Help:      "Total metadata cache misses on pool-event correlation",
		}),
		MetadataPendingSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "pending_size",
			Help:      "Current number of pool events awaiting metadata correlation",
		}),
		MetadataDASFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "das_fallbacks_total",
			Help:      "Total DAS getAsset HTTP fallback attempts, by outcome",
		}, []string{"outcome"}),
		MetadataRetriesExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "retries_exhausted_total",
			Help:      "Total pool events forwarded without metadata after exhausting retries",
		}),

		// Feature / risk metrics
		FeaturesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "computed_total",
			Help:      "Total feature vectors computed",
		}),
		FeatureComputeErr: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "errors_total",
			Help:      "Total feature computation errors, by feature group",
		}, []string{"group"}),
		RiskScoresComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "scores_computed_total",
			Help:      "Total risk scores computed, by verdict",
		}, []string{"verdict"}),
		RiskGateBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "gate_blocked_total",
			Help:      "Total pool events blocked by the risk gate, by reason",
		}, []string{"reason"}),

		// Emission metrics
		EmissionEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "enqueued_total",
			Help:      "Total pool events enqueued for emission",
		}),
		EmissionDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "dropped_total",
			Help:      "Total pool events dropped because the emission queue was full",
		}),
		EmissionSinkPosts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "sink_posts_total",
			Help:      "Total HTTP sink POST attempts, by outcome",
		}, []string{"outcome"}),
		EmissionMirrorWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "mirror_writes_total",
			Help:      "Total ClickHouse mirror insert attempts, by outcome",
		}, []string{"outcome"}),

		// Outcome metrics
		OutcomePredictionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outcome",
			Name:      "predictions_recorded_total",
			Help:      "Total predictions recorded by the outcome learner",
		}),
		OutcomesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outcome",
			Name:      "outcomes_recorded_total",
			Help:      "Total outcomes recorded, by outcome label",
		}, []string{"outcome"}),
		OutcomeAccuracy: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outcome",
			Name:      "accuracy_overall",
			Help:      "Most recently computed overall prediction accuracy",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSwapProcessed increments the swap events processed counter.
func RecordSwapProcessed() {
	DefaultMetrics.SwapEventsProcessed.Inc()
}

// RecordLiquidityProcessed increments the liquidity events processed counter.
func RecordLiquidityProcessed() {
	DefaultMetrics.LiquidityEventsProcessed.Inc()
}

// RecordNewTokenDiscovered increments the new tokens discovered counter.
func RecordNewTokenDiscovered() {
	DefaultMetrics.NewTokensDiscovered.Inc()
	DefaultMetrics.CandidatesCreated.WithLabelValues("NEW_TOKEN").Inc()
}

// RecordActiveTokenDiscovered increments the active tokens discovered counter.
func RecordActiveTokenDiscovered() {
	DefaultMetrics.ActiveTokensDiscovered.Inc()
	DefaultMetrics.CandidatesCreated.WithLabelValues("ACTIVE_TOKEN").Inc()
}

// RecordEventError records an event processing error.
func RecordEventError(eventType, errorType string) {
	DefaultMetrics.EventProcessingErrors.WithLabelValues(eventType, errorType).Inc()
}

// UpdateBufferSizes updates the buffer size gauges.
func UpdateBufferSizes(swapSlots, liquiditySlots int) {
	DefaultMetrics.SwapBufferSize.Set(float64(swapSlots))
	DefaultMetrics.LiquidityBufferSize.Set(float64(liquiditySlots))
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordStreamMessage records an account-update message received for program.
func RecordStreamMessage(program string) {
	DefaultMetrics.StreamMessagesReceived.WithLabelValues(program).Inc()
}

// RecordStreamReconnect records a gRPC stream reconnect.
func RecordStreamReconnect(reason string) {
	DefaultMetrics.StreamReconnects.WithLabelValues(reason).Inc()
}

// RecordDecodeAttempt records a decode attempt and, on failure, its reason.
func RecordDecodeAttempt(dex string, seconds float64, failureReason string) {
	DefaultMetrics.DecodeAttempts.WithLabelValues(dex).Inc()
	DefaultMetrics.DecodeDuration.Observe(seconds)
	if failureReason != "" {
		DefaultMetrics.DecodeFailures.WithLabelValues(dex, failureReason).Inc()
	}
}

// RecordPoolGraduated increments the graduation counter.
func RecordPoolGraduated() {
	DefaultMetrics.PoolsGraduated.Inc()
}

// RecordPendingPoolPruned increments the pending-pruned counter.
func RecordPendingPoolPruned() {
	DefaultMetrics.PendingPoolsPruned.Inc()
}

// RecordDedupDropped increments the dedup-dropped counter.
func RecordDedupDropped() {
	DefaultMetrics.DedupDropped.Inc()
}

// RecordMetadataCacheResult records a correlator cache hit or miss.
func RecordMetadataCacheResult(hit bool) {
	if hit {
		DefaultMetrics.MetadataCacheHits.Inc()
	} else {
		DefaultMetrics.MetadataCacheMisses.Inc()
	}
}

// RecordDASFallback records a DAS HTTP fallback attempt outcome.
func RecordDASFallback(outcome string) {
	DefaultMetrics.MetadataDASFallbacks.WithLabelValues(outcome).Inc()
}

// RecordRetriesExhausted increments the retries-exhausted counter.
func RecordRetriesExhausted() {
	DefaultMetrics.MetadataRetriesExhausted.Inc()
}

// RecordRiskScore records a computed risk verdict.
func RecordRiskScore(verdict string) {
	DefaultMetrics.RiskScoresComputed.WithLabelValues(verdict).Inc()
}

// RecordRiskGateBlocked records a pool event blocked by the risk gate.
func RecordRiskGateBlocked(reason string) {
	DefaultMetrics.RiskGateBlocked.WithLabelValues(reason).Inc()
}

// RecordEmissionEnqueued increments the emission-enqueued counter.
func RecordEmissionEnqueued() {
	DefaultMetrics.EmissionEnqueued.Inc()
}

// RecordEmissionDropped increments the emission-dropped counter.
func RecordEmissionDropped() {
	DefaultMetrics.EmissionDropped.Inc()
}

// RecordEmissionSinkPost records a sink POST attempt outcome.
func RecordEmissionSinkPost(outcome string) {
	DefaultMetrics.EmissionSinkPosts.WithLabelValues(outcome).Inc()
}

// RecordEmissionMirrorWrite records a ClickHouse mirror write outcome.
func RecordEmissionMirrorWrite(outcome string) {
	DefaultMetrics.EmissionMirrorWrites.WithLabelValues(outcome).Inc()
}

// RecordOutcomePrediction increments the predictions-recorded counter.
func RecordOutcomePrediction() {
	DefaultMetrics.OutcomePredictionsRecorded.Inc()
}

// RecordOutcomeResult records an outcome and refreshes the accuracy gauge.
func RecordOutcomeResult(outcome string, overallAccuracy float64) {
	DefaultMetrics.OutcomesRecorded.WithLabelValues(outcome).Inc()
	DefaultMetrics.OutcomeAccuracy.Set(overallAccuracy)
}
