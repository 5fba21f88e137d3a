// Package decoder implements the Account Decoder (§4.A): parsing raw
// per-DEX account bytes into a normalized domain.PoolSnapshot. Grounded on
// the named-offset-constant + cursor style of
// other_examples/eb653d7b_guidebee-SolRoute__pkg-pool-pump-amm.go.go and
// the readUint64LE helper naming from the teacher's
// internal/discovery/dex_parser.go.
package decoder

import (
	"encoding/binary"
	"math"
	"math/big"

	"poolwatch/internal/chain"
	"poolwatch/internal/domain"
)

// Minimum buffer sizes per DEX, per §4.A's layout table.
const (
	raydiumCPMMMinSize   = 354
	raydiumAMMv4MinSize  = 464
	orcaWhirlpoolMinSize = 245
	meteoraDLMMMinSize   = 136
	pumpFunSize          = 151
)

// pumpFunDiscriminator is the fixed 8-byte prefix every PumpFun bonding
// curve account begins with.
var pumpFunDiscriminator = [8]byte{0x17, 0xB7, 0xF8, 0x37, 0x60, 0xD8, 0xAC, 0x60}

// Decode parses rawBytes according to dex's layout, returning
// (snapshot, true) on success or (zero, false) on any malformed input.
// It never panics, never blocks, and never reads external state, per
// §4.A's contract.
func Decode(dex chain.DEXKind, poolAddress chain.Address, slot uint64, observedAt int64, rawBytes []byte) (domain.PoolSnapshot, bool) {
	switch dex {
	case chain.RaydiumCPMM:
		return decodeRaydiumCPMM(poolAddress, slot, observedAt, rawBytes)
	case chain.RaydiumAMMv4:
		return decodeRaydiumAMMv4(poolAddress, slot, observedAt, rawBytes)
	case chain.OrcaWhirlpool:
		return decodeOrcaWhirlpool(poolAddress, slot, observedAt, rawBytes)
	case chain.MeteoraDLMM:
		return decodeMeteoraDLMM(poolAddress, slot, observedAt, rawBytes)
	case chain.PumpFun:
		return decodePumpFun(poolAddress, slot, observedAt, rawBytes)
	default:
		return domain.PoolSnapshot{}, false
	}
}

func decodeRaydiumCPMM(pool chain.Address, slot uint64, observedAt int64, data []byte) (domain.PoolSnapshot, bool) {
	if len(data) < raydiumCPMMMinSize {
		return domain.PoolSnapshot{}, false
	}
	mint0, ok := addrAt(data, 72, 104)
	if !ok || !chain.IsValidMint(mint0) {
		return domain.PoolSnapshot{}, false
	}
	mint1, ok := addrAt(data, 104, 136)
	if !ok || !chain.IsValidMint(mint1) {
		return domain.PoolSnapshot{}, false
	}
	lpMint, _ := addrAt(data, 136, 168)
	baseVault, _ := addrAt(data, 168, 200)
	quoteVault, _ := addrAt(data, 200, 232)
	token0 := readUint64LE(data, 338)
	token1 := readUint64LE(data, 346)

	base, quote, reserve0, reserve1 := orientBaseQuote(mint0, mint1, token0, token1)

	liquidity := ammLiquidity(base, quote, reserve0, reserve1)

	snap := domain.PoolSnapshot{
		DEX:          chain.RaydiumCPMM,
		PoolAddress:  pool,
		BaseMint:     base,
		QuoteMint:    quote,
		HasBaseMint:  true,
		HasQuoteMint: true,
		Slot:         slot,
		ObservedAt:   observedAt,
		Enriched: domain.EnrichedData{
			Token0Amount:     reserve0,
			Token1Amount:     reserve1,
			HasReserves:      true,
			LiquiditySol:     liquidity,
			BaseVault:        baseVault,
			QuoteVault:       quoteVault,
			LPMint:           lpMint,
			HasVaults:        true,
			HasLPMint:        true,
			PriceSolPerToken: cpmmPrice(quote, reserve1, reserve0),
		},
	}
	return snap, true
}

func decodeRaydiumAMMv4(pool chain.Address, slot uint64, observedAt int64, data []byte) (domain.PoolSnapshot, bool) {
	if len(data) < raydiumAMMv4MinSize {
		return domain.PoolSnapshot{}, false
	}
	lpMint, _ := addrAt(data, 304, 336)
	baseMint, ok := addrAt(data, 336, 368)
	if !ok || !chain.IsValidMint(baseMint) {
		return domain.PoolSnapshot{}, false
	}
	quoteMint, ok := addrAt(data, 368, 400)
	if !ok || !chain.IsValidMint(quoteMint) {
		return domain.PoolSnapshot{}, false
	}
	coinVault, _ := addrAt(data, 400, 432)
	pcVault, _ := addrAt(data, 432, 464)

	// Reserves are read later from vault subscriptions (§4.A); liquidity
	// is 0/"unknown" at discovery per §9 open question 2.
	return domain.PoolSnapshot{
		DEX:          chain.RaydiumAMMv4,
		PoolAddress:  pool,
		BaseMint:     baseMint,
		QuoteMint:    quoteMint,
		HasBaseMint:  true,
		HasQuoteMint: true,
		Slot:         slot,
		ObservedAt:   observedAt,
		Enriched: domain.EnrichedData{
			BaseVault:  coinVault,
			QuoteVault: pcVault,
			LPMint:     lpMint,
			HasVaults:  true,
			HasLPMint:  true,
		},
	}, true
}

func decodeOrcaWhirlpool(pool chain.Address, slot uint64, observedAt int64, data []byte) (domain.PoolSnapshot, bool) {
	if len(data) < orcaWhirlpoolMinSize {
		return domain.PoolSnapshot{}, false
	}
	sqrtPriceX64, ok := readUint128LE(data, 65)
	if !ok {
		return domain.PoolSnapshot{}, false
	}
	mintA, ok := addrAt(data, 101, 133)
	if !ok || !chain.IsValidMint(mintA) {
		return domain.PoolSnapshot{}, false
	}
	vaultA, _ := addrAt(data, 133, 165)
	mintB, ok := addrAt(data, 181, 213)
	if !ok || !chain.IsValidMint(mintB) {
		return domain.PoolSnapshot{}, false
	}
	vaultB, _ := addrAt(data, 213, 245)

	price := whirlpoolPrice(sqrtPriceX64, mintA, mintB)

	base, quote, baseVault, quoteVault := mintA, mintB, vaultA, vaultB
	if chain.IsQuoteMint(mintA) && !chain.IsQuoteMint(mintB) {
		base, quote, baseVault, quoteVault = mintB, mintA, vaultB, vaultA
	}

	return domain.PoolSnapshot{
		DEX:          chain.OrcaWhirlpool,
		PoolAddress:  pool,
		BaseMint:     base,
		QuoteMint:    quote,
		HasBaseMint:  true,
		HasQuoteMint: true,
		Slot:         slot,
		ObservedAt:   observedAt,
		Enriched: domain.EnrichedData{
			BaseVault:        baseVault,
			QuoteVault:       quoteVault,
			HasVaults:        true,
			PriceSolPerToken: price,
		},
	}, true
}

func decodeMeteoraDLMM(pool chain.Address, slot uint64, observedAt int64, data []byte) (domain.PoolSnapshot, bool) {
	if len(data) < meteoraDLMMMinSize {
		return domain.PoolSnapshot{}, false
	}
	mintX, ok := addrAt(data, 8, 40)
	if !ok || !chain.IsValidMint(mintX) {
		return domain.PoolSnapshot{}, false
	}
	mintY, ok := addrAt(data, 40, 72)
	if !ok || !chain.IsValidMint(mintY) {
		return domain.PoolSnapshot{}, false
	}
	reserveX := readUint64LE(data, 72)
	reserveY := readUint64LE(data, 104)

	base, quote, reserve0, reserve1 := orientBaseQuote(mintX, mintY, reserveX, reserveY)
	liquidity := ammLiquidity(base, quote, reserve0, reserve1)

	return domain.PoolSnapshot{
		DEX:          chain.MeteoraDLMM,
		PoolAddress:  pool,
		BaseMint:     base,
		QuoteMint:    quote,
		HasBaseMint:  true,
		HasQuoteMint: true,
		Slot:         slot,
		ObservedAt:   observedAt,
		Enriched: domain.EnrichedData{
			Token0Amount:     reserve0,
			Token1Amount:     reserve1,
			HasReserves:      true,
			LiquiditySol:     liquidity,
			PriceSolPerToken: cpmmPrice(quote, reserve1, reserve0),
		},
	}, true
}

func decodePumpFun(pool chain.Address, slot uint64, observedAt int64, data []byte) (domain.PoolSnapshot, bool) {
	if len(data) != pumpFunSize {
		return domain.PoolSnapshot{}, false
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	if disc != pumpFunDiscriminator {
		return domain.PoolSnapshot{}, false
	}

	virtualToken := readUint64LE(data, 8)
	virtualSol := readUint64LE(data, 16)
	realToken := readUint64LE(data, 24)
	realSol := readUint64LE(data, 32)
	tokenSupply := readUint64LE(data, 40)
	complete := data[48] != 0

	liquiditySol := float64(virtualSol) / 1e9
	if liquiditySol <= 1 || liquiditySol >= 100 {
		// Sanity clamp (§4.A): brand-new launchpad curves outside (1,100)
		// SOL are treated as a parse error, per the stricter of the two
		// source bounds (§9 open question 3).
		return domain.PoolSnapshot{}, false
	}

	price := bondingCurvePrice(virtualSol, virtualToken)

	return domain.PoolSnapshot{
		DEX:          chain.PumpFun,
		PoolAddress:  pool,
		QuoteMint:    chain.WrappedSOLMint,
		HasQuoteMint: true,
		// BaseMint is unresolved here: the launchpad account never
		// contains the mint (§4.A); it is recovered via the bonding-curve
		// PDA mapping in the Pool Tracker (§4.G).
		Slot:       slot,
		ObservedAt: observedAt,
		Enriched: domain.EnrichedData{
			VirtualSolReserves:   virtualSol,
			VirtualTokenReserves: virtualToken,
			RealSolReserves:      realSol,
			RealTokenReserves:    realToken,
			TokenSupply:          tokenSupply,
			Complete:             complete,
			HasBondingCurve:      true,
			LiquiditySol:         liquiditySol,
			PriceSolPerToken:     price,
		},
	}, true
}

// orientBaseQuote decides which of two (mint, reserve) pairs is the base
// vs. quote side: the quote side is whichever mint is wrapped-SOL, USDC,
// or USDT (§4.A). If neither or both are quote candidates, the first
// mint/reserve pair is treated as base by convention.
func orientBaseQuote(mint0, mint1 chain.Address, reserve0, reserve1 uint64) (base, quote chain.Address, baseReserve, quoteReserve uint64) {
	if chain.IsQuoteMint(mint1) && !chain.IsQuoteMint(mint0) {
		return mint0, mint1, reserve0, reserve1
	}
	if chain.IsQuoteMint(mint0) && !chain.IsQuoteMint(mint1) {
		return mint1, mint0, reserve1, reserve0
	}
	return mint0, mint1, reserve0, reserve1
}

// RecomputeLiquidity exposes ammLiquidity for the Pool Tracker's vault
// update path (§4.F: "recomputes liquiditySol using the same rules as
// §4.A").
func RecomputeLiquidity(base, quote chain.Address, baseReserve, quoteReserve uint64) float64 {
	return ammLiquidity(base, quote, baseReserve, quoteReserve)
}

// ammLiquidity implements §4.A's liquidity derivation for AMM pools.
func ammLiquidity(base, quote chain.Address, baseReserve, quoteReserve uint64) float64 {
	var liquidity float64
	switch {
	case quote == chain.WrappedSOLMint:
		liquidity = float64(quoteReserve) / 1e9
	case quote == chain.USDCMint || quote == chain.USDTMint:
		liquidity = float64(quoteReserve) / 1e6
	default:
		liquidity = math.Sqrt(float64(baseReserve)*float64(quoteReserve)) / 1e11
		if liquidity > 100000 {
			liquidity = 100000
		}
	}
	if math.IsNaN(liquidity) || math.IsInf(liquidity, 0) {
		liquidity = 0
	}
	if liquidity < 0 {
		liquidity = 0
	}
	if liquidity > 1000 {
		liquidity = 1000
	}
	return liquidity
}

// cpmmPrice derives priceSolPerToken for CPMM/DLMM-style reserve pairs:
// (solReserves/1e9)/(tokenReserves/1e6), only meaningful when the quote
// side is SOL; otherwise it returns 0 (unknown) rather than a
// dollar-scaled estimate, since §4.A only defines the SOL-denominated
// formula explicitly.
func cpmmPrice(quote chain.Address, quoteReserve, baseReserve uint64) float64 {
	if quote != chain.WrappedSOLMint || baseReserve == 0 {
		return 0
	}
	price := (float64(quoteReserve) / 1e9) / (float64(baseReserve) / 1e6)
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}

// whirlpoolPrice implements §4.A's Whirlpool price derivation:
// price = (sqrtPriceX64/2^64)^2, decimal-corrected depending on which
// side SOL occupies. Any non-finite result is rewritten to 0.
func whirlpoolPrice(sqrtPriceX64 *big.Int, mintA, mintB chain.Address) float64 {
	if sqrtPriceX64.Sign() == 0 {
		return 0
	}
	sqrtF := new(big.Float).SetInt(sqrtPriceX64)
	two64 := new(big.Float).SetFloat64(math.Pow(2, 64))
	ratio := new(big.Float).Quo(sqrtF, two64)
	ratioF, _ := ratio.Float64()
	price := ratioF * ratioF

	const decimalCorrection = 1e6 / 1e9

	var result float64
	switch {
	case mintB == chain.WrappedSOLMint:
		result = price * decimalCorrection
	case mintA == chain.WrappedSOLMint:
		if price == 0 {
			return 0
		}
		result = (1 / price) * decimalCorrection
	default:
		result = price
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

// bondingCurvePrice derives priceSolPerToken for a PumpFun bonding curve:
// virtualSol/virtualToken with a decimal adjustment (SOL has 9 decimals,
// the launchpad token has 6).
func bondingCurvePrice(virtualSol, virtualToken uint64) float64 {
	if virtualToken == 0 {
		return 0
	}
	price := (float64(virtualSol) / 1e9) / (float64(virtualToken) / 1e6)
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}

// readUint64LE reads a little-endian uint64 from data at offset,
// returning 0 if the read would run past the end of data.
func readUint64LE(data []byte, offset int) uint64 {
	if offset < 0 || offset+8 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint64(data[offset : offset+8])
}

// readUint128LE reads a little-endian 128-bit unsigned integer at offset
// as a big.Int. Returns false if the read would run past the end of data.
func readUint128LE(data []byte, offset int) (*big.Int, bool) {
	if offset < 0 || offset+16 > len(data) {
		return nil, false
	}
	// big.Int.SetBytes expects big-endian, so reverse the 16 LE bytes.
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = data[offset+15-i]
	}
	return new(big.Int).SetBytes(be), true
}

// addrAt reads a 32-byte address from data[start:end], returning false
// if the slice is too short.
func addrAt(data []byte, start, end int) (chain.Address, bool) {
	if start < 0 || end > len(data) || end-start != chain.AddrLen {
		return chain.Address{}, false
	}
	return chain.FromBytes(data[start:end])
}
