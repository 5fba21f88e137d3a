package tracker

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/chain"
	"poolwatch/internal/domain"
	"poolwatch/internal/streampb"
)

type fakeSubscriber struct {
	calls []string
}

func (f *fakeSubscriber) SubscribeAdditional(key string, filter streampb.AccountFilter) error {
	f.calls = append(f.calls, key)
	return nil
}

func pumpFunAccount(virtualSolLamports uint64) []byte {
	buf := make([]byte, 151)
	copy(buf[:8], []byte{0x17, 0xB7, 0xF8, 0x37, 0x60, 0xD8, 0xAC, 0x60})
	binary.LittleEndian.PutUint64(buf[16:24], virtualSolLamports) // virtualSolReserves@16
	binary.LittleEndian.PutUint64(buf[8:16], 1_000_000_000_000)   // virtualTokenReserves@8
	return buf
}

func raydiumAMMv4Account(baseMint, quoteMint chain.Address) []byte {
	buf := make([]byte, 464)
	copy(buf[336:368], baseMint.Bytes())
	copy(buf[368:400], quoteMint.Bytes())
	return buf
}

func orcaWhirlpoolAccount(mintA, mintB chain.Address) []byte {
	buf := make([]byte, 245)
	copy(buf[101:133], mintA.Bytes())
	copy(buf[181:213], mintB.Bytes())
	return buf
}

func TestScenario1NewPoolWithMintAlreadyRegistered(t *testing.T) {
	var emitted []domain.PoolEvent
	tr := New(nil, func(e domain.PoolEvent) { emitted = append(emitted, e) })

	mint := chain.MustFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	var mintUpdate streampb.AccountUpdate
	mintUpdate.Pubkey = mint.Bytes()
	mintUpdate.Owner = chain.Token2022Program.Bytes()
	tr.HandleToken2022Update(mintUpdate)

	bondingCurve, err := chain.BondingCurvePDA(mint, chain.PumpFunProgram)
	require.NoError(t, err)

	var poolUpdate streampb.AccountUpdate
	poolUpdate.Pubkey = bondingCurve.Bytes()
	poolUpdate.Owner = chain.PumpFunProgram.Bytes()
	poolUpdate.Data = pumpFunAccount(45 * 1e9)
	tr.HandlePoolUpdate(chain.PumpFun, poolUpdate)

	require.Len(t, emitted, 1)
	assert.Equal(t, domain.NewPool, emitted[0].Kind)
	assert.Equal(t, chain.PumpFun, emitted[0].Pool.DEX)
	assert.Equal(t, mint, emitted[0].Pool.BaseMint)
	assert.InDelta(t, 45.0, emitted[0].Pool.Enriched.LiquiditySol, 1e-6)
}

func TestScenario2Graduation(t *testing.T) {
	var emitted []domain.PoolEvent
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := New(nil, func(e domain.PoolEvent) { emitted = append(emitted, e) }).WithClock(func() time.Time { return now })

	mint := chain.MustFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	var mintUpdate streampb.AccountUpdate
	mintUpdate.Pubkey = mint.Bytes()
	tr.HandleToken2022Update(mintUpdate)

	bondingCurve, err := chain.BondingCurvePDA(mint, chain.PumpFunProgram)
	require.NoError(t, err)
	var poolUpdate streampb.AccountUpdate
	poolUpdate.Pubkey = bondingCurve.Bytes()
	poolUpdate.Data = pumpFunAccount(45 * 1e9)
	tr.HandlePoolUpdate(chain.PumpFun, poolUpdate)
	require.Len(t, emitted, 1)

	now = now.Add(37 * time.Minute)
	var ammUpdate streampb.AccountUpdate
	var ammPool chain.Address
	ammPool[0] = 7
	ammUpdate.Pubkey = ammPool.Bytes()
	ammUpdate.Data = raydiumAMMv4Account(mint, chain.WrappedSOLMint)
	tr.HandlePoolUpdate(chain.RaydiumAMMv4, ammUpdate)

	require.Len(t, emitted, 2)
	grad := emitted[1]
	assert.Equal(t, domain.Graduation, grad.Kind)
	assert.Equal(t, chain.PumpFun, grad.GraduatedFrom)
	assert.InDelta(t, float64(37*60*1000), float64(grad.BondingCurveDurationMs), 1000)

	// A later update for the same already-graduated pool must not
	// re-emit as a spurious NewPool: graduationMap.Consume deletes its
	// entry on the first hit, so the dedup key must already be marked.
	ammUpdate.Data = raydiumAMMv4Account(mint, chain.WrappedSOLMint)
	tr.HandlePoolUpdate(chain.RaydiumAMMv4, ammUpdate)
	assert.Len(t, emitted, 2, "re-observing a graduated pool must not emit another event")
}

func TestGraduationRestrictedToRaydium(t *testing.T) {
	var emitted []domain.PoolEvent
	tr := New(nil, func(e domain.PoolEvent) { emitted = append(emitted, e) })

	mint := chain.MustFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	var mintUpdate streampb.AccountUpdate
	mintUpdate.Pubkey = mint.Bytes()
	tr.HandleToken2022Update(mintUpdate)

	bondingCurve, err := chain.BondingCurvePDA(mint, chain.PumpFunProgram)
	require.NoError(t, err)
	var poolUpdate streampb.AccountUpdate
	poolUpdate.Pubkey = bondingCurve.Bytes()
	poolUpdate.Data = pumpFunAccount(45 * 1e9)
	tr.HandlePoolUpdate(chain.PumpFun, poolUpdate)
	require.Len(t, emitted, 1)

	// An Orca pool landing for the same mint decodes successfully but is
	// not a Raydium pool, so it must not be treated as a graduation.
	var orcaUpdate streampb.AccountUpdate
	var orcaPool chain.Address
	orcaPool[0] = 9
	orcaUpdate.Pubkey = orcaPool.Bytes()
	orcaUpdate.Data = orcaWhirlpoolAccount(mint, chain.WrappedSOLMint)
	tr.HandlePoolUpdate(chain.OrcaWhirlpool, orcaUpdate)

	require.Len(t, emitted, 2)
	assert.Equal(t, domain.NewPool, emitted[1].Kind, "Orca landing must emit as a plain NewPool, not a graduation")
}

func TestScenario3PendingPrunedAfter30Seconds(t *testing.T) {
	var emitted []domain.PoolEvent
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := New(nil, func(e domain.PoolEvent) { emitted = append(emitted, e) }).WithClock(func() time.Time { return now })

	var bondingCurve chain.Address
	bondingCurve[0] = 9
	var poolUpdate streampb.AccountUpdate
	poolUpdate.Pubkey = bondingCurve.Bytes()
	poolUpdate.Data = pumpFunAccount(45 * 1e9)
	tr.HandlePoolUpdate(chain.PumpFun, poolUpdate)

	assert.Empty(t, emitted, "no mint mapping yet, event must stay pending")

	now = now.Add(31 * time.Second)
	tr.PrunePending()

	tr.pendingMu.Lock()
	_, stillPending := tr.pending[bondingCurve]
	tr.pendingMu.Unlock()
	assert.False(t, stillPending)
}

func TestDedupDropsRepeatedNewPool(t *testing.T) {
	var emitted []domain.PoolEvent
	tr := New(nil, func(e domain.PoolEvent) { emitted = append(emitted, e) })

	base := chain.MustFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	var pool chain.Address
	pool[0] = 3
	var update streampb.AccountUpdate
	update.Pubkey = pool.Bytes()
	update.Data = raydiumAMMv4Account(base, chain.WrappedSOLMint)

	tr.HandlePoolUpdate(chain.RaydiumAMMv4, update)
	tr.HandlePoolUpdate(chain.RaydiumAMMv4, update)

	assert.Len(t, emitted, 1)
}

func TestVaultUpdateRecomputesLiquidity(t *testing.T) {
	sub := &fakeSubscriber{}
	var emitted []domain.PoolEvent
	tr := New(sub, func(e domain.PoolEvent) { emitted = append(emitted, e) })

	base := chain.MustFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	var pool chain.Address
	pool[0] = 4
	buf := raydiumAMMv4Account(base, chain.WrappedSOLMint)
	var baseVault, quoteVault chain.Address
	baseVault[0], quoteVault[0] = 5, 6
	copy(buf[400:432], baseVault.Bytes())
	copy(buf[432:464], quoteVault.Bytes())

	var update streampb.AccountUpdate
	update.Pubkey = pool.Bytes()
	update.Data = buf
	tr.HandlePoolUpdate(chain.RaydiumAMMv4, update)

	require.NotEmpty(t, sub.calls)

	var quoteUpdate streampb.AccountUpdate
	quoteUpdate.Pubkey = quoteVault.Bytes()
	quoteUpdate.Data = make([]byte, 72)
	binary.LittleEndian.PutUint64(quoteUpdate.Data[64:72], 10*1e9) // 10 SOL
	tr.HandleSPLTokenUpdate(quoteUpdate)

	tr.poolsMu.Lock()
	snap := tr.pools[pool]
	tr.poolsMu.Unlock()
	assert.InDelta(t, 10.0, snap.Enriched.LiquiditySol, 1e-6)
}
