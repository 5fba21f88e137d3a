// Package chain defines Solana address types and program constants shared
// by the decoder, tracker, and correlator packages.
package chain

import (
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

// AddrLen is the fixed width of every on-chain address.
const AddrLen = 32

// Address is a fixed-width opaque identifier displayed as base-58.
// Equality is bytewise.
type Address [AddrLen]byte

// ErrBadAddressLen is returned when decoding a base-58 string that does
// not decode to exactly AddrLen bytes.
var ErrBadAddressLen = errors.New("chain: address must decode to 32 bytes")

// ZeroAddress is the reserved all-zeros sentinel (32 0x00 bytes, which
// base-58 encodes as the Solana system program id,
// "11111111111111111111111111111111"). It never refers to a real token.
var ZeroAddress Address

// SystemProgramAddress is an alias for ZeroAddress: the well-known
// system program id is the conventional all-zero-bytes address.
var SystemProgramAddress = ZeroAddress

// AllOnesAddress is the other reserved sentinel named by the spec: 32
// bytes of 0xFF, the maximum possible address value. Like ZeroAddress it
// never refers to a real token.
var AllOnesAddress = Address{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// String renders the address as base-58.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// MarshalText renders a as base-58, so encoding/json and encoding/csv
// encode it as a plain string rather than a byte array.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a base-58 string produced by MarshalText.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := FromBase58(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// IsZero reports whether a is the all-zeros sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns the raw 32-byte slice view of a.
func (a Address) Bytes() []byte {
	return a[:]
}

// FromBase58 decodes a base-58 string into an Address.
func FromBase58(s string) (Address, error) {
	var out Address
	decoded, err := base58.Decode(s)
	if err != nil {
		return out, err
	}
	if len(decoded) != AddrLen {
		return out, ErrBadAddressLen
	}
	copy(out[:], decoded)
	return out, nil
}

// MustFromBase58 panics on a malformed constant; used only for package-level
// program-id constants known to be valid at compile time.
func MustFromBase58(s string) Address {
	a, err := FromBase58(s)
	if err != nil {
		panic("chain: invalid constant address " + s + ": " + err.Error())
	}
	return a
}

// FromBytes copies a 32-byte slice into an Address. Returns false if the
// slice is not exactly AddrLen bytes long.
func FromBytes(b []byte) (Address, bool) {
	var out Address
	if len(b) != AddrLen {
		return out, false
	}
	copy(out[:], b)
	return out, true
}

// IsValidMint reports whether addr can be a real token mint, per the
// valid-mint rule: not the all-zeros system program, not the all-ones
// sentinel, and its base-58 form does not begin with ten '1' characters
// (a heuristic against degenerate low-entropy keys historically used as
// reserved/burn addresses).
func IsValidMint(addr Address) bool {
	if addr == ZeroAddress || addr == AllOnesAddress {
		return false
	}
	return !strings.HasPrefix(addr.String(), "1111111111")
}

// WrappedSOLMint is the canonical wrapped-SOL mint address.
var WrappedSOLMint = MustFromBase58("So11111111111111111111111111111111111111112")

// USDCMint and USDTMint are the canonical stablecoin mints treated as
// quote-side tokens alongside wrapped SOL.
var (
	USDCMint = MustFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMint = MustFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

// IsQuoteMint reports whether addr is one of the conventional quote-side
// tokens: wrapped SOL, USDC, or USDT.
func IsQuoteMint(addr Address) bool {
	return addr == WrappedSOLMint || addr == USDCMint || addr == USDTMint
}

// sha256Sum is a small indirection so PDA derivation reads like the
// two-step hash-then-check-off-curve process it implements.
func sha256Sum(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
