package domain

import "poolwatch/internal/chain"

// PoolSnapshot is derived from a single account update. Values, not
// records: once constructed it is never mutated.
type PoolSnapshot struct {
	DEX         chain.DEXKind
	PoolAddress chain.Address
	BaseMint    chain.Address
	QuoteMint   chain.Address
	HasBaseMint bool
	HasQuoteMint bool
	Slot        uint64
	ObservedAt  int64 // unix millis
	Enriched    EnrichedData
}

// EnrichedData holds the per-DEX fields filled in by the Account Decoder
// (§4.A) and later refined by vault updates (§4.F). All fields are
// optional; zero values mean "not yet known" rather than "known zero",
// except where the spec defines 0 as a legitimate value (e.g. AMMv4
// liquidity pre vault-subscription, §9 open question 2).
type EnrichedData struct {
	LiquiditySol float64

	Token0Amount uint64
	Token1Amount uint64
	HasReserves  bool

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	TokenSupply          uint64
	Complete             bool
	HasBondingCurve      bool

	BaseVault    chain.Address
	QuoteVault   chain.Address
	LPMint       chain.Address
	HasVaults    bool
	HasLPMint    bool

	PriceSolPerToken float64
}

// PoolEventKind distinguishes the three kinds of event emitted downstream.
type PoolEventKind int

const (
	NewPool PoolEventKind = iota
	Graduation
	PriceUpdate
)

// String renders a PoolEventKind for journal/sink payloads.
func (k PoolEventKind) String() string {
	switch k {
	case NewPool:
		return "discovery"
	case Graduation:
		return "graduation"
	case PriceUpdate:
		return "price_update"
	default:
		return "unknown"
	}
}

// PoolEvent is what is emitted downstream after metadata resolution
// (§3, §4.G).
type PoolEvent struct {
	Kind         PoolEventKind
	Pool         PoolSnapshot
	TokenName    string
	TokenSymbol  string
	HasMetadata  bool

	GraduatedFrom          chain.DEXKind
	HasGraduatedFrom       bool
	BondingCurveDurationMs uint64
	HasBondingCurveDurMs   bool
}

// DedupKey is the (dex, baseMint, quoteMint) key used by the Pool
// Tracker's seen-set (§4.F) to guarantee at-most-once NewPool emission.
type DedupKey struct {
	DEX       chain.DEXKind
	BaseMint  chain.Address
	QuoteMint chain.Address
}
