package risk

import (
	"fmt"

	"poolwatch/internal/domain"
	"poolwatch/internal/features"
)

// Flag type identifiers, stable strings so downstream consumers and the
// pattern library's requiredIndicators can key off them without importing
// this package's internals.
const (
	FlagWhaleConcentration = "WHALE_CONCENTRATION"
	FlagHighGini           = "HOLDER_INEQUALITY"
	FlagFreshWalletSwarm   = "FRESH_WALLET_SWARM"
	FlagMintAuthorityLive  = "MINT_AUTHORITY_ACTIVE"
	FlagFreezeAuthorityLive = "FREEZE_AUTHORITY_ACTIVE"
	FlagLPNotLocked        = "LP_NOT_LOCKED"
	FlagBundleControl      = "BUNDLE_CONTROL"
	FlagCreatorRugHistory  = "CREATOR_RUG_HISTORY"
	FlagLowHolderCount     = "LOW_HOLDER_COUNT"
	FlagExtremePriceMove   = "EXTREME_PRICE_MOVE"
)

// EvaluateFlags runs the hard-coded rule set over the raw snapshot
// inputs, independent of the classifier. Order is stable; callers that
// only need "is there a CRITICAL flag" can short-circuit on the first
// match.
func EvaluateFlags(in features.Inputs) []domain.Flag {
	var flags []domain.Flag

	if in.Top10Concentration > 0.5 {
		sev := domain.SeverityHigh
		if in.Top10Concentration > 0.8 {
			sev = domain.SeverityCritical
		}
		flags = append(flags, domain.Flag{
			Type:     FlagWhaleConcentration,
			Severity: sev,
			Message:  fmt.Sprintf("top 10 holders control %.0f%% of supply", in.Top10Concentration*100),
		})
	}

	if in.Gini > 0.8 {
		flags = append(flags, domain.Flag{
			Type:     FlagHighGini,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("holder distribution gini coefficient %.2f", in.Gini),
		})
	}

	if in.FreshWalletRatio > 0.6 {
		flags = append(flags, domain.Flag{
			Type:     FlagFreshWalletSwarm,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("%.0f%% of holders are fresh wallets", in.FreshWalletRatio*100),
		})
	}

	if !in.MintDisabled {
		flags = append(flags, domain.Flag{
			Type:     FlagMintAuthorityLive,
			Severity: domain.SeverityMedium,
			Message:  "mint authority has not been revoked",
		})
	}

	if !in.FreezeDisabled {
		flags = append(flags, domain.Flag{
			Type:     FlagFreezeAuthorityLive,
			Severity: domain.SeverityLow,
			Message:  "freeze authority has not been revoked",
		})
	}

	if in.LPLockedPct < 0.2 && !in.LPBurned {
		flags = append(flags, domain.Flag{
			Type:     FlagLPNotLocked,
			Severity: domain.SeverityHigh,
			Message:  "liquidity is neither locked nor burned",
		})
	}

	if in.BundleDetected && in.BundleControlPercent > 0.5 {
		sev := domain.SeverityHigh
		if in.BundleControlPercent > 0.7 {
			sev = domain.SeverityCritical
		}
		flags = append(flags, domain.Flag{
			Type:     FlagBundleControl,
			Severity: sev,
			Message:  fmt.Sprintf("coordinated bundle controls %.0f%% of supply", in.BundleControlPercent*100),
		})
	}

	if in.CreatorRuggedCount > 0 {
		sev := domain.SeverityHigh
		if in.CreatorRuggedCount >= 3 {
			sev = domain.SeverityCritical
		}
		flags = append(flags, domain.Flag{
			Type:     FlagCreatorRugHistory,
			Severity: sev,
			Message:  fmt.Sprintf("creator associated with %d prior rugged tokens", in.CreatorRuggedCount),
		})
	}

	if in.HolderCount > 0 && in.HolderCount < 10 {
		flags = append(flags, domain.Flag{
			Type:     FlagLowHolderCount,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("only %d holders", in.HolderCount),
		})
	}

	if in.PriceChange5m > 300 || in.PriceChange5m < -80 {
		flags = append(flags, domain.Flag{
			Type:     FlagExtremePriceMove,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("price moved %.0f%% in 5 minutes", in.PriceChange5m),
		})
	}

	return flags
}

// hasCritical reports whether any flag in the set is CRITICAL severity
// (§4.D gating: "Any flag of severity CRITICAL -> reject").
func hasCritical(flags []domain.Flag) bool {
	for _, f := range flags {
		if f.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}
