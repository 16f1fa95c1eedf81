// Package mbc implements per-family ROM/RAM bank switching. Every
// family is driven purely by WR writes issued over the wire; none of
// them touch memory directly, since the reader's hardware — not this
// process — is what's memory-mapped to the cartridge.
package mbc

import (
	"fmt"

	"github.com/gbcart/reader/internal/cartridge"
	"github.com/gbcart/reader/internal/gbcrerr"
)

// AddressWriter issues a single WR addr value exchange. *protocol.Codec
// implements this.
type AddressWriter interface {
	WriteAddr(addr uint16, value uint8) error
}

// Driver switches ROM and RAM banks for one mapper family.
type Driver interface {
	ChangeROMBank(bank int) error
	ChangeRAMBank(bank int) error
}

// New returns the Driver for mapper, bound to w.
func New(mapper cartridge.Mapper, w AddressWriter) (Driver, error) {
	switch mapper {
	case cartridge.MapperNone:
		return noneDriver{}, nil
	case cartridge.MapperMBC1:
		return mbc1Driver{w: w}, nil
	case cartridge.MapperMBC2:
		return mbc2Driver{w: w}, nil
	case cartridge.MapperMBC3:
		return mbc3Driver{w: w}, nil
	case cartridge.MapperMBC5:
		return mbc5Driver{w: w}, nil
	case cartridge.MapperMMM01, cartridge.MapperMBC6, cartridge.MapperMBC7:
		return unsupportedDriver{mapper: mapper}, nil
	default:
		return nil, fmt.Errorf("%w: mapper %s", gbcrerr.ErrUnknownMapper, mapper)
	}
}

type noneDriver struct{}

func (noneDriver) ChangeROMBank(int) error { return nil }
func (noneDriver) ChangeRAMBank(int) error { return nil }

type unsupportedDriver struct{ mapper cartridge.Mapper }

func (u unsupportedDriver) ChangeROMBank(int) error {
	return fmt.Errorf("%w: %s", gbcrerr.ErrUnsupportedMapper, u.mapper)
}
func (u unsupportedDriver) ChangeRAMBank(int) error {
	return fmt.Errorf("%w: %s", gbcrerr.ErrUnsupportedMapper, u.mapper)
}

// Addresses shared by the bank-switching sequences. RAM enable/disable
// goes through the codec's RAMON000/RAMOFF00 commands instead of a
// raw write here, since the reader's firmware does that sequencing
// itself.
const (
	addrROMBankLow = 0x2100
	addrBankHigh   = 0x4000
	addrModeSelect = 0x6000
	addrROMBank8   = 0x3000
)
