// Package cartridge decodes the Game Boy cartridge header and classifies
// the cartridge's mapper family, ROM size and RAM size from it.
package cartridge

import (
	"bytes"
	"fmt"

	"github.com/gbcart/reader/internal/gbcrerr"
)

// Mapper identifies the bank-switching family a cartridge uses.
type Mapper uint8

const (
	MapperNone Mapper = iota
	MapperMBC1
	MapperMBC2
	MapperMBC3
	MapperMMM01
	MapperMBC5
	MapperMBC6
	MapperMBC7
)

func (m Mapper) String() string {
	switch m {
	case MapperNone:
		return "NONE"
	case MapperMBC1:
		return "MBC1"
	case MapperMBC2:
		return "MBC2"
	case MapperMBC3:
		return "MBC3"
	case MapperMMM01:
		return "MMM01"
	case MapperMBC5:
		return "MBC5"
	case MapperMBC6:
		return "MBC6"
	case MapperMBC7:
		return "MBC7"
	default:
		return "UNKNOWN"
	}
}

// mapperTable maps a cartridge-type header byte to its mapper family.
var mapperTable = map[byte]Mapper{
	0x00: MapperNone,
	0x01: MapperMBC1, 0x02: MapperMBC1, 0x03: MapperMBC1,
	0x05: MapperMBC2, 0x06: MapperMBC2,
	0x0B: MapperMMM01, 0x0C: MapperMMM01,
	0x0F: MapperMBC3, 0x10: MapperMBC3, 0x11: MapperMBC3, 0x12: MapperMBC3, 0x13: MapperMBC3,
	0x19: MapperMBC5, 0x1A: MapperMBC5, 0x1B: MapperMBC5, 0x1C: MapperMBC5, 0x1D: MapperMBC5, 0x1E: MapperMBC5,
	0x20: MapperMBC6,
	0x22: MapperMBC7,
}

type romSizeInfo struct {
	bytes int
	banks int
}

var romSizeTable = map[byte]romSizeInfo{
	0: {32 * 1024, 2},
	1: {64 * 1024, 4},
	2: {128 * 1024, 8},
	3: {256 * 1024, 16},
	4: {512 * 1024, 32},
	5: {1024 * 1024, 64},
	6: {2 * 1024 * 1024, 128},
	7: {4 * 1024 * 1024, 256},
	8: {8 * 1024 * 1024, 512},
}

type ramSizeInfo struct {
	bytes int
	banks int
}

var ramSizeTable = map[byte]ramSizeInfo{
	0: {0, 0},
	1: {2 * 1024, 1},
	2: {8 * 1024, 1},
	3: {32 * 1024, 4},
	4: {128 * 1024, 16},
	5: {64 * 1024, 8},
}

// Logo is the 48-byte Nintendo logo every valid header must contain at
// 0x0104..0x0133.
var Logo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header offsets within the 0x150-byte header block.
const (
	offTitle          = 0x0134
	offTitleEnd       = 0x0144
	offCGBFlag        = 0x0143
	offSGBFlag        = 0x0146
	offCartridgeType  = 0x0147
	offROMSize        = 0x0148
	offRAMSize        = 0x0149
	offHeaderChecksum = 0x014D
	offGlobalChecksum = 0x014E
	offLogoStart      = 0x0104
	offLogoEnd        = 0x0134
)

// Header is the decoded cartridge header and classification.
type Header struct {
	Title string

	GBCCapable bool // CGB flag 0x80 or 0xC0
	SGBCapable bool // SGB flag 0x03

	CartridgeType byte
	Mapper        Mapper

	ROMBytes, ROMBanks int
	RAMBytes, RAMBanks int

	HeaderChecksum      byte
	HeaderChecksumValid bool

	GlobalChecksum uint16 // as declared in the header; not yet verified

	LogoValid bool

	Raw [0x150]byte
}

// Parse decodes raw (which must be exactly 0x150 bytes, as returned by
// READHDR0) into a Header.
func Parse(raw []byte) (*Header, error) {
	if len(raw) != 0x150 {
		return nil, fmt.Errorf("%w: expected 0x150 bytes, got %d", gbcrerr.ErrInvalidHeader, len(raw))
	}

	h := &Header{}
	copy(h.Raw[:], raw)

	h.Title = string(bytes.TrimRight(raw[offTitle:offTitleEnd], "\x00"))

	switch raw[offCGBFlag] {
	case 0x80, 0xC0:
		h.GBCCapable = true
	}
	h.SGBCapable = raw[offSGBFlag] == 0x03

	h.CartridgeType = raw[offCartridgeType]
	mapper, ok := mapperTable[h.CartridgeType]
	if !ok {
		return nil, fmt.Errorf("%w: cartridge type 0x%02X", gbcrerr.ErrUnknownMapper, h.CartridgeType)
	}
	h.Mapper = mapper

	romInfo, ok := romSizeTable[raw[offROMSize]]
	if !ok {
		return nil, fmt.Errorf("%w: rom size code 0x%02X", gbcrerr.ErrInvalidHeader, raw[offROMSize])
	}
	h.ROMBytes, h.ROMBanks = romInfo.bytes, romInfo.banks

	ramInfo, ok := ramSizeTable[raw[offRAMSize]]
	if !ok {
		return nil, fmt.Errorf("%w: ram size code 0x%02X", gbcrerr.ErrInvalidHeader, raw[offRAMSize])
	}
	h.RAMBytes, h.RAMBanks = ramInfo.bytes, ramInfo.banks

	h.HeaderChecksum = raw[offHeaderChecksum]
	h.HeaderChecksumValid = HeaderChecksum(raw) == h.HeaderChecksum

	h.GlobalChecksum = uint16(raw[offGlobalChecksum])<<8 | uint16(raw[offGlobalChecksum+1])

	h.LogoValid = bytes.Equal(raw[offLogoStart:offLogoEnd], Logo[:])

	return h, nil
}

// HeaderChecksum computes the 8-bit header checksum over a 0x150-byte
// (or longer) header buffer's 0x0134..0x014C range: acc = acc - b - 1
// (mod 256) for every byte b in that range.
func HeaderChecksum(header []byte) byte {
	var acc byte
	for _, b := range header[offTitle:offHeaderChecksum] {
		acc = acc - b - 1
	}
	return acc
}

// GlobalChecksum computes the 16-bit unsigned sum of every byte of a
// full ROM image except the two checksum bytes at 0x014E and 0x014F.
func GlobalChecksum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i == offGlobalChecksum || i == offGlobalChecksum+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
