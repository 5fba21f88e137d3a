package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	addr, err := FromBase58(WrappedSOLMint.String())
	require.NoError(t, err)
	assert.Equal(t, WrappedSOLMint, addr)
}

func TestFromBase58BadLength(t *testing.T) {
	_, err := FromBase58(base58OfShortBytes())
	assert.ErrorIs(t, err, ErrBadAddressLen)
}

func base58OfShortBytes() string {
	// 4 bytes, never decodes to AddrLen.
	return "2VfUX"
}

func TestIsValidMint(t *testing.T) {
	assert.False(t, IsValidMint(SystemProgramAddress))
	assert.False(t, IsValidMint(ZeroAddress))
	assert.False(t, IsValidMint(AllOnesAddress))
	assert.True(t, IsValidMint(WrappedSOLMint))
}

func TestIsQuoteMint(t *testing.T) {
	assert.True(t, IsQuoteMint(WrappedSOLMint))
	assert.True(t, IsQuoteMint(USDCMint))
	assert.True(t, IsQuoteMint(USDTMint))
	assert.False(t, IsQuoteMint(PumpFunProgram))
}
