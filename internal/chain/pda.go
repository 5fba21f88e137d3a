package chain

import (
	"errors"

	"filippo.io/edwards25519"
)

// pdaMarker is appended to the hash preimage for every program-derived
// address, matching Solana's find_program_address convention.
var pdaMarker = []byte("ProgramDerivedAddress")

// ErrNoViableBump is returned when no bump seed in [0,255] yields an
// off-curve address; this should not happen in practice for well-formed
// seeds but is reported rather than panicking.
var ErrNoViableBump = errors.New("chain: no viable PDA bump seed found")

// FindProgramAddress derives a program-derived address the same way the
// runtime does: it tries decreasing bump seeds until the resulting
// digest does not decode as a valid point on edwards25519 (i.e. lies off
// the curve), which is the defining property of a PDA.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		parts := make([][]byte, 0, len(seeds)+3)
		parts = append(parts, seeds...)
		parts = append(parts, []byte{byte(bump)}, programID.Bytes(), pdaMarker)
		digest := sha256Sum(parts...)

		if isOffCurve(digest[:]) {
			return Address(digest), uint8(bump), nil
		}
	}
	var zero Address
	return zero, 0, ErrNoViableBump
}

// isOffCurve reports whether b (32 bytes) fails to decode as a valid
// compressed edwards25519 point, which is the off-curve condition PDAs
// rely on to be indistinguishable from valid keypairs on-chain.
func isOffCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err != nil
}

// BondingCurvePDA derives the PumpFun bonding-curve address for mint,
// per §4.A: the pool account is itself the PDA of ["bonding-curve", mint]
// under the launchpad program.
func BondingCurvePDA(mint Address, pumpFunProgram Address) (Address, error) {
	addr, _, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), mint.Bytes()}, pumpFunProgram)
	return addr, err
}
