package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/chain"
)

func buildLegacyAccount(kind byte, mint chain.Address, name, symbol string) []byte {
	buf := make([]byte, legacyNameLenOff+4+len(name)+4+len(symbol))
	buf[0] = kind
	copy(buf[legacyMintOffset:legacyMintOffset+chain.AddrLen], mint.Bytes())
	off := legacyNameLenOff
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(name)))
	off += 4
	copy(buf[off:], name)
	off += len(name)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(symbol)))
	off += 4
	copy(buf[off:], symbol)
	return buf
}

func TestDecodeLegacyPDA(t *testing.T) {
	mint := chain.WrappedSOLMint
	buf := buildLegacyAccount(0, mint, "Test\x00", "TST")
	d, ok := DecodeLegacyPDA(buf)
	require.True(t, ok)
	assert.Equal(t, mint, d.Mint)
	assert.Equal(t, "Test", d.Name)
	assert.Equal(t, "TST", d.Symbol)
}

func TestDecodeLegacyPDARejectsBadKind(t *testing.T) {
	buf := buildLegacyAccount(9, chain.WrappedSOLMint, "Name", "SYM")
	_, ok := DecodeLegacyPDA(buf)
	assert.False(t, ok)
}

func TestDecodeLegacyPDARejectsNameLenZero(t *testing.T) {
	buf := buildLegacyAccount(0, chain.WrappedSOLMint, "", "SYM")
	_, ok := DecodeLegacyPDA(buf)
	assert.False(t, ok)
}

func TestDecodeLegacyPDARejectsNameLenTooLong(t *testing.T) {
	longName := make([]byte, 33)
	for i := range longName {
		longName[i] = 'a'
	}
	buf := buildLegacyAccount(0, chain.WrappedSOLMint, string(longName), "SYM")
	_, ok := DecodeLegacyPDA(buf)
	assert.False(t, ok)
}

func buildToken2022(mint chain.Address, name, symbol, uri string) []byte {
	payload := make([]byte, 32+chain.AddrLen)
	copy(payload[32:], mint.Bytes())

	appendStr := func(s string) {
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(s)))
		payload = append(payload, lenBuf...)
		payload = append(payload, []byte(s)...)
	}
	appendStr(name)
	appendStr(symbol)
	appendStr(uri)

	buf := make([]byte, tlvStreamOffset)
	tlvHeader := make([]byte, 4)
	binary.LittleEndian.PutUint16(tlvHeader[0:2], tlvMetadataType)
	binary.LittleEndian.PutUint16(tlvHeader[2:4], uint16(len(payload)))
	buf = append(buf, tlvHeader...)
	buf = append(buf, payload...)
	if len(buf) < token2022MinSize {
		buf = append(buf, make([]byte, token2022MinSize-len(buf))...)
	}
	return buf
}

func TestDecodeToken2022Extension(t *testing.T) {
	mint := chain.USDCMint
	buf := buildToken2022(mint, "Coin", "COI", "https://example.test")
	d, ok := DecodeToken2022Extension(buf)
	require.True(t, ok)
	assert.Equal(t, mint, d.Mint)
	assert.Equal(t, "Coin", d.Name)
	assert.Equal(t, "COI", d.Symbol)
}

func TestDecodeToken2022ExtensionTooShort(t *testing.T) {
	_, ok := DecodeToken2022Extension(make([]byte, 50))
	assert.False(t, ok)
}
