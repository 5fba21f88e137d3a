package chain

// DEXKind is a closed enumeration of the five supported pool families.
// The first four are AMM-style venues; PumpFun is a bonding-curve
// launchpad and the only source of graduation events.
type DEXKind int

const (
	RaydiumCPMM DEXKind = iota
	RaydiumAMMv4
	OrcaWhirlpool
	MeteoraDLMM
	PumpFun
)

// String renders a DEXKind for logs and journal records.
func (d DEXKind) String() string {
	switch d {
	case RaydiumCPMM:
		return "RaydiumCPMM"
	case RaydiumAMMv4:
		return "RaydiumAMMv4"
	case OrcaWhirlpool:
		return "OrcaWhirlpool"
	case MeteoraDLMM:
		return "MeteoraDLMM"
	case PumpFun:
		return "PumpFun"
	default:
		return "Unknown"
	}
}

// IsAMM reports whether d is one of the four AMM-style venues (as
// opposed to the PumpFun bonding-curve launchpad).
func (d DEXKind) IsAMM() bool {
	return d != PumpFun
}

// Program ids, statically known per DEXKind. Values are the real mainnet
// program addresses for each venue.
var (
	RaydiumCPMMProgram    = MustFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	RaydiumAMMv4Program   = MustFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	OrcaWhirlpoolProgram  = MustFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	MeteoraDLMMProgram    = MustFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
	PumpFunProgram        = MustFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	MetadataProgram       = MustFromBase58("metaqbxxUERbuDorvJA5bwqBDgjiXPM3SAaMqUAFL9q")
	Token2022Program      = MustFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	SPLTokenProgram       = MustFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// ProgramFor returns the statically known program id owning accounts of
// the given DEXKind.
func ProgramFor(d DEXKind) Address {
	switch d {
	case RaydiumCPMM:
		return RaydiumCPMMProgram
	case RaydiumAMMv4:
		return RaydiumAMMv4Program
	case OrcaWhirlpool:
		return OrcaWhirlpoolProgram
	case MeteoraDLMM:
		return MeteoraDLMMProgram
	case PumpFun:
		return PumpFunProgram
	}
	return ZeroAddress
}

// OwnerKind classifies an account update by which subsystem should
// handle it, per §4.E's demultiplexing table.
type OwnerKind int

const (
	OwnerUnknown OwnerKind = iota
	OwnerPool
	OwnerMetadata
	OwnerToken2022
	OwnerSPLToken
)

// ownerIndex maps a program id to the dispatch kind and, for pool
// programs, the specific DEXKind.
var ownerIndex = buildOwnerIndex()

type ownerEntry struct {
	kind OwnerKind
	dex  DEXKind
}

func buildOwnerIndex() map[Address]ownerEntry {
	m := make(map[Address]ownerEntry, 8)
	m[RaydiumCPMMProgram] = ownerEntry{OwnerPool, RaydiumCPMM}
	m[RaydiumAMMv4Program] = ownerEntry{OwnerPool, RaydiumAMMv4}
	m[OrcaWhirlpoolProgram] = ownerEntry{OwnerPool, OrcaWhirlpool}
	m[MeteoraDLMMProgram] = ownerEntry{OwnerPool, MeteoraDLMM}
	m[PumpFunProgram] = ownerEntry{OwnerPool, PumpFun}
	m[MetadataProgram] = ownerEntry{kind: OwnerMetadata}
	m[Token2022Program] = ownerEntry{kind: OwnerToken2022}
	m[SPLTokenProgram] = ownerEntry{kind: OwnerSPLToken}
	return m
}

// ClassifyOwner looks up owner in the static owner map, returning the
// dispatch kind and (for pool owners) the DEXKind. Unknown owners report
// OwnerUnknown.
func ClassifyOwner(owner Address) (OwnerKind, DEXKind) {
	e, ok := ownerIndex[owner]
	if !ok {
		return OwnerUnknown, 0
	}
	return e.kind, e.dex
}

// EnabledDEXSet is a filter over DEXKind, used to honor the ENABLED_DEXS
// configuration variable (§6).
type EnabledDEXSet map[DEXKind]bool

// AllDEXs returns a set containing every DEXKind.
func AllDEXs() EnabledDEXSet {
	return EnabledDEXSet{
		RaydiumCPMM:   true,
		RaydiumAMMv4:  true,
		OrcaWhirlpool: true,
		MeteoraDLMM:   true,
		PumpFun:       true,
	}
}

// ParseEnabledDEXs parses a comma-separated list of DEX names (as in
// §6's ENABLED_DEXS env var) into a set. An empty string enables all.
func ParseEnabledDEXs(csv string) EnabledDEXSet {
	if csv == "" {
		return AllDEXs()
	}
	names := map[string]DEXKind{
		"raydiumcpmm":   RaydiumCPMM,
		"raydiumammv4":  RaydiumAMMv4,
		"orcawhirlpool": OrcaWhirlpool,
		"meteoradlmm":   MeteoraDLMM,
		"pumpfun":       PumpFun,
	}
	out := EnabledDEXSet{}
	for _, tok := range splitCSV(csv) {
		if d, ok := names[normalizeDEXName(tok)]; ok {
			out[d] = true
		}
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func normalizeDEXName(s string) string {
	out := make([]byte, 0, len(s))
	for _, c := range s {
		if c == ' ' || c == '\t' || c == '_' || c == '-' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out = append(out, byte(c))
	}
	return string(out)
}
