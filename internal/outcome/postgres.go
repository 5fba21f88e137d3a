package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"poolwatch/internal/storage/postgres"
)

// PostgresStore durably persists predictions and outcomes, for when the
// process-lifetime Learner isn't enough (§4.I: "persistence is the
// responsibility of an external store"). Grounded on
// internal/storage/postgres/candidate_store.go's parameterized-query
// shape; features are stored as a JSON array rather than 29 columns,
// since they are only ever read back whole (by GetPendingOutcomes).
type PostgresStore struct {
	pool *postgres.Pool
}

// NewPostgresStore wraps an already-connected pool.
func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RecordPrediction inserts pred, assigning a predictionId if unset.
func (s *PostgresStore) RecordPrediction(ctx context.Context, pred Prediction) (string, error) {
	if pred.PredictionID == "" {
		pred.PredictionID = fmt.Sprintf("pred_%d_%s", pred.Timestamp, pred.Mint)
	}
	featuresJSON, err := json.Marshal(pred.Features)
	if err != nil {
		return "", fmt.Errorf("marshal features: %w", err)
	}
	patternsJSON, err := json.Marshal(pred.MatchedPatternIDs)
	if err != nil {
		return "", fmt.Errorf("marshal matched patterns: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO risk_predictions (
			prediction_id, mint, timestamp_ms, risk_score, verdict,
			confidence, features, matched_pattern_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		pred.PredictionID, pred.Mint, pred.Timestamp, pred.RiskScore,
		string(pred.Verdict), pred.Confidence, featuresJSON, patternsJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert prediction: %w", err)
	}
	return pred.PredictionID, nil
}

// RecordOutcome inserts or overwrites the outcome for predictionID.
func (s *PostgresStore) RecordOutcome(ctx context.Context, predictionID string, rec OutcomeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prediction_outcomes (
			prediction_id, outcome, price_change, liquidity_change,
			time_to_outcome_ms, details
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (prediction_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			price_change = EXCLUDED.price_change,
			liquidity_change = EXCLUDED.liquidity_change,
			time_to_outcome_ms = EXCLUDED.time_to_outcome_ms,
			details = EXCLUDED.details
	`,
		predictionID, string(rec.Outcome), rec.PriceChange, rec.LiquidityChange,
		rec.TimeToOutcomeMs, rec.Details,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// GetPendingOutcomes returns predictions with timestamp_ms <= cutoff and
// no row in prediction_outcomes.
func (s *PostgresStore) GetPendingOutcomes(ctx context.Context, olderThan time.Duration, now time.Time) ([]Prediction, error) {
	cutoff := now.Add(-olderThan).UnixMilli()
	rows, err := s.pool.Query(ctx, `
		SELECT p.prediction_id, p.mint, p.timestamp_ms, p.risk_score, p.verdict,
		       p.confidence, p.features, p.matched_pattern_ids
		FROM risk_predictions p
		LEFT JOIN prediction_outcomes o ON o.prediction_id = p.prediction_id
		WHERE o.prediction_id IS NULL AND p.timestamp_ms <= $1
		ORDER BY p.timestamp_ms ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query pending outcomes: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var pred Prediction
		var verdict string
		var featuresJSON, patternsJSON []byte
		if err := rows.Scan(&pred.PredictionID, &pred.Mint, &pred.Timestamp, &pred.RiskScore,
			&verdict, &pred.Confidence, &featuresJSON, &patternsJSON); err != nil {
			return nil, fmt.Errorf("scan pending prediction: %w", err)
		}
		pred.Verdict = Verdict(verdict)
		_ = json.Unmarshal(featuresJSON, &pred.Features)
		_ = json.Unmarshal(patternsJSON, &pred.MatchedPatternIDs)
		out = append(out, pred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending predictions: %w", err)
	}
	return out, nil
}
