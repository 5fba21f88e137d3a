package emission

import (
	"context"
	"fmt"

	"poolwatch/internal/domain"
	"poolwatch/internal/storage/clickhouse"
)

// ClickHouseMirror writes every dispatched PoolEvent to an analytical
// ClickHouse table, for downstream backtesting/replay (§4.H's optional
// mirror). Grounded on
// internal/storage/clickhouse/derived_feature_store.go's single-conn,
// parameterized-insert shape.
type ClickHouseMirror struct {
	conn *clickhouse.Conn
}

// NewClickHouseMirror wraps an already-connected conn.
func NewClickHouseMirror(conn *clickhouse.Conn) *ClickHouseMirror {
	return &ClickHouseMirror{conn: conn}
}

// Insert appends one row to the pool_events table.
func (m *ClickHouseMirror) Insert(ctx context.Context, ev domain.PoolEvent) error {
	err := m.conn.Exec(ctx, `
		INSERT INTO pool_events (
			kind, dex, pool_address, base_mint, quote_mint,
			token_name, token_symbol, liquidity_sol, price_sol_per_token,
			slot, observed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.Kind.String(), ev.Pool.DEX.String(), ev.Pool.PoolAddress.String(),
		ev.Pool.BaseMint.String(), ev.Pool.QuoteMint.String(),
		ev.TokenName, ev.TokenSymbol,
		ev.Pool.Enriched.LiquiditySol, ev.Pool.Enriched.PriceSolPerToken,
		ev.Pool.Slot, uint64(ev.Pool.ObservedAt),
	)
	if err != nil {
		return fmt.Errorf("insert pool_event: %w", err)
	}
	return nil
}
