package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOwner(t *testing.T) {
	kind, dex := ClassifyOwner(RaydiumCPMMProgram)
	assert.Equal(t, OwnerPool, kind)
	assert.Equal(t, RaydiumCPMM, dex)

	kind, _ = ClassifyOwner(MetadataProgram)
	assert.Equal(t, OwnerMetadata, kind)

	kind, _ = ClassifyOwner(Address{1, 2, 3})
	assert.Equal(t, OwnerUnknown, kind)
}

func TestParseEnabledDEXs(t *testing.T) {
	all := ParseEnabledDEXs("")
	assert.Len(t, all, 5)

	subset := ParseEnabledDEXs("raydium_cpmm, PumpFun")
	assert.True(t, subset[RaydiumCPMM])
	assert.True(t, subset[PumpFun])
	assert.False(t, subset[MeteoraDLMM])
}

func TestDEXKindString(t *testing.T) {
	assert.Equal(t, "PumpFun", PumpFun.String())
	assert.True(t, RaydiumCPMM.IsAMM())
	assert.False(t, PumpFun.IsAMM())
}
