package cartridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func blankHeader() []byte {
	raw := make([]byte, 0x150)
	copy(raw[offLogoStart:offLogoEnd], Logo[:])
	raw[offCartridgeType] = 0x00 // NONE
	raw[offROMSize] = 0x00
	raw[offRAMSize] = 0x00
	raw[offHeaderChecksum] = HeaderChecksum(raw)
	return raw
}

func TestHeaderChecksum_MatchesValidHeader(t *testing.T) {
	raw := blankHeader()
	h, err := Parse(raw)
	require.NoError(t, err)
	require.True(t, h.HeaderChecksumValid)
	require.True(t, h.LogoValid)
}

func TestHeaderChecksum_Formula(t *testing.T) {
	// checksum(s) == (-sum(s) - len(s)) mod 256 for the summed slice.
	s := make([]byte, 25)
	for i := range s {
		s[i] = byte(i + 1)
	}
	var sum int
	for _, b := range s {
		sum += int(b)
	}
	want := byte((-sum - len(s)) % 256)

	raw := make([]byte, 0x150)
	copy(raw[offTitle:offHeaderChecksum], s)
	require.Equal(t, want, HeaderChecksum(raw))
}

func TestGlobalChecksum_ExcludesItsOwnBytes(t *testing.T) {
	rom := make([]byte, 0x8000)
	for i := range rom {
		rom[i] = byte(i)
	}
	before := GlobalChecksum(rom)

	rom[offGlobalChecksum] = 0xFF
	rom[offGlobalChecksum+1] = 0xFF
	require.Equal(t, before, GlobalChecksum(rom))
}

func TestGlobalChecksum_InvariantUnderPermutation(t *testing.T) {
	rom := []byte{0x10, 0x20, 0x30, 0x40, 0x50}
	permuted := []byte{0x50, 0x10, 0x40, 0x20, 0x30}
	require.Equal(t, GlobalChecksum(rom), GlobalChecksum(permuted))
}

func TestROMBanks_TimesBankSizeEqualsROMBytes(t *testing.T) {
	for code, info := range romSizeTable {
		require.Equalf(t, info.bytes, info.banks*0x4000, "code %d", code)
	}
}

func TestParse_RejectsUnknownMapper(t *testing.T) {
	raw := blankHeader()
	raw[offCartridgeType] = 0x04 // not in the table
	raw[offHeaderChecksum] = HeaderChecksum(raw)
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestParse_RejectsOutOfRangeSizeCodes(t *testing.T) {
	raw := blankHeader()
	raw[offROMSize] = 0xFF
	raw[offHeaderChecksum] = HeaderChecksum(raw)
	_, err := Parse(raw)
	require.Error(t, err)
}

// S2 from the spec: a header whose [0x0134..0x014C] bytes sum to 0x2A
// carries a checksum byte computed from that sum, and is reported valid.
func TestScenario_S2_HeaderChecksum(t *testing.T) {
	raw := make([]byte, 0x150)
	copy(raw[offLogoStart:offLogoEnd], Logo[:])
	raw[offTitle] = 0x2A // the only nonzero byte in the summed range
	raw[offCartridgeType] = 0x00
	raw[offROMSize] = 0x00
	raw[offRAMSize] = 0x00
	raw[offHeaderChecksum] = HeaderChecksum(raw)

	h, err := Parse(raw)
	require.NoError(t, err)
	require.True(t, h.HeaderChecksumValid)
}
