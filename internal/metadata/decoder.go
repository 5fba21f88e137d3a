// Package metadata implements the Metadata Decoder (§4.B): parsing legacy
// Metaplex PDA metadata accounts and Token-2022 embedded TLV metadata, plus
// the bounded mint->metadata cache (§3). Grounded on the binaryReader
// cursor idiom in
// other_examples/b15f7173_hadydotai-raydium-client__token_metadata.go.go
// (exact offsets and type codes follow spec.md, not that file).
package metadata

import (
	"encoding/binary"
	"strings"

	"poolwatch/internal/chain"
)

const (
	legacyMintOffset   = 33
	legacyNameLenOff   = 65
	tlvStreamOffset    = 83
	tlvMetadataType    = 12
	token2022MinSize   = 200
	maxNameLen         = 32
	maxSymbolLen       = 10
)

// legacyAccountKinds are the accepted values of byte 0 on a legacy PDA
// metadata account.
var legacyAccountKinds = map[byte]bool{0: true, 4: true}

// Decoded is the (mint, name, symbol) triple both decoders emit.
type Decoded struct {
	Mint   chain.Address
	Name   string
	Symbol string
}

// cursor is a small bounds-checked reader over a byte slice, in the style
// of the binaryReader helper in the raydium-client reference.
type cursor struct {
	b []byte
	i int
}

func (c *cursor) u32() (uint32, bool) {
	if c.i+4 > len(c.b) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(c.b[c.i : c.i+4])
	c.i += 4
	return v, true
}

func (c *cursor) u16() (uint16, bool) {
	if c.i+2 > len(c.b) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(c.b[c.i : c.i+2])
	c.i += 2
	return v, true
}

func (c *cursor) bytes(n int) ([]byte, bool) {
	if n < 0 || c.i+n > len(c.b) {
		return nil, false
	}
	out := c.b[c.i : c.i+n]
	c.i += n
	return out, true
}

func (c *cursor) skip(n int) bool {
	if c.i+n > len(c.b) || c.i+n < 0 {
		return false
	}
	c.i += n
	return true
}

func cleanString(b []byte) string {
	s := string(b)
	s = strings.TrimRight(s, "\x00")
	return strings.TrimSpace(s)
}

// DecodeLegacyPDA parses a legacy Metaplex PDA metadata account (§4.B).
// It never fails noisily: malformed input returns (Decoded{}, false).
func DecodeLegacyPDA(data []byte) (Decoded, bool) {
	if len(data) < legacyNameLenOff+4 {
		return Decoded{}, false
	}
	if !legacyAccountKinds[data[0]] {
		return Decoded{}, false
	}
	mint, ok := chain.FromBytes(data[legacyMintOffset : legacyMintOffset+chain.AddrLen])
	if !ok {
		return Decoded{}, false
	}

	c := &cursor{b: data, i: legacyNameLenOff}
	nameLen, ok := c.u32()
	if !ok {
		return Decoded{}, false
	}
	if nameLen < 1 || nameLen > maxNameLen {
		return Decoded{}, false
	}
	nameBytes, ok := c.bytes(int(nameLen))
	if !ok {
		return Decoded{}, false
	}
	name := cleanString(nameBytes)

	symbolLen, ok := c.u32()
	if !ok {
		return Decoded{}, false
	}
	if symbolLen < 1 || symbolLen > maxSymbolLen {
		return Decoded{}, false
	}
	symbolBytes, ok := c.bytes(int(symbolLen))
	if !ok {
		return Decoded{}, false
	}
	symbol := cleanString(symbolBytes)

	return Decoded{Mint: mint, Name: name, Symbol: symbol}, true
}

// DecodeToken2022Extension walks the TLV extension stream embedded in a
// Token-2022 mint account starting at offset 83 (§4.B), looking for the
// metadata extension (type 12).
func DecodeToken2022Extension(data []byte) (Decoded, bool) {
	if len(data) < token2022MinSize {
		return Decoded{}, false
	}
	c := &cursor{b: data, i: tlvStreamOffset}
	for c.i < len(data) {
		tlvType, ok := c.u16()
		if !ok {
			return Decoded{}, false
		}
		length, ok := c.u16()
		if !ok {
			return Decoded{}, false
		}
		payload, ok := c.bytes(int(length))
		if !ok {
			return Decoded{}, false
		}
		if tlvType != tlvMetadataType {
			continue
		}
		return decodeMetadataPayload(payload)
	}
	return Decoded{}, false
}

// decodeMetadataPayload parses the TLV payload for the metadata
// extension: 32-byte update authority, 32-byte mint, then three
// length-prefixed UTF-8 strings (name, symbol, uri).
func decodeMetadataPayload(payload []byte) (Decoded, bool) {
	pc := &cursor{b: payload}
	if !pc.skip(32) { // update authority
		return Decoded{}, false
	}
	mintBytes, ok := pc.bytes(chain.AddrLen)
	if !ok {
		return Decoded{}, false
	}
	mint, ok := chain.FromBytes(mintBytes)
	if !ok {
		return Decoded{}, false
	}

	nameLen, ok := pc.u32()
	if !ok {
		return Decoded{}, false
	}
	nameBytes, ok := pc.bytes(int(nameLen))
	if !ok {
		return Decoded{}, false
	}

	symbolLen, ok := pc.u32()
	if !ok {
		return Decoded{}, false
	}
	symbolBytes, ok := pc.bytes(int(symbolLen))
	if !ok {
		return Decoded{}, false
	}

	// uri is present in the payload but not part of the (mint, name,
	// symbol) contract this decoder emits; read-and-discard to validate
	// the stream is well-formed.
	uriLen, ok := pc.u32()
	if !ok {
		return Decoded{}, false
	}
	if _, ok := pc.bytes(int(uriLen)); !ok {
		return Decoded{}, false
	}

	return Decoded{Mint: mint, Name: cleanString(nameBytes), Symbol: cleanString(symbolBytes)}, true
}
