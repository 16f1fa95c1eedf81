package mbc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gbcart/reader/internal/cartridge"
	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/stretchr/testify/require"
)

type write struct {
	addr  uint16
	value uint8
}

type recorder struct{ writes []write }

func (r *recorder) WriteAddr(addr uint16, value uint8) error {
	r.writes = append(r.writes, write{addr, value})
	return nil
}

func TestMBC1_BankBelow0x20_SingleWrite(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperMBC1, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(0x05))
	require.Equal(t, []write{{0x2100, 0x05}}, r.writes)
}

// Bank 0x20 needs the mode-select/high-bits/low-bits sequence since the
// low 5 bank bits alone can't express it.
func TestMBC1_Bank0x20_ExactWriteOrder(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperMBC1, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(0x20))
	require.Equal(t, []write{
		{0x6000, 0x00},
		{0x4000, 0x01},
		{0x2100, 0x00},
	}, r.writes)
}

// S3: MBC1 bank 0x21.
func TestScenario_S3_MBC1Bank0x21(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperMBC1, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(0x21))
	require.Equal(t, []write{
		{0x6000, 0x00},
		{0x4000, 0x01},
		{0x2100, 0x01},
	}, r.writes)
}

func TestMBC2_MasksToFourBits(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperMBC2, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(0x1F))
	require.Equal(t, []write{{0x2100, 0x0F}}, r.writes)
}

func TestMBC3_MasksToSevenBits(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperMBC3, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(0xFF))
	require.Equal(t, []write{{0x2100, 0x7F}}, r.writes)
}

func TestMBC5_NinthBitGoesToBank8(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperMBC5, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(0x1FF))
	require.Equal(t, []write{
		{0x2100, 0xFF},
		{0x3000, 0x01},
	}, r.writes)
}

func TestUnsupportedMapper_ReturnsErrUnsupportedMapper(t *testing.T) {
	for _, m := range []cartridge.Mapper{cartridge.MapperMMM01, cartridge.MapperMBC6, cartridge.MapperMBC7} {
		r := &recorder{}
		d, err := New(m, r)
		require.NoError(t, err)

		err = d.ChangeROMBank(1)
		require.Error(t, err)
		require.True(t, errors.Is(err, gbcrerr.ErrUnsupportedMapper), fmt.Sprintf("mapper %s", m))
	}
}

func TestNoneMapper_IsNoop(t *testing.T) {
	r := &recorder{}
	d, err := New(cartridge.MapperNone, r)
	require.NoError(t, err)

	require.NoError(t, d.ChangeROMBank(3))
	require.NoError(t, d.ChangeRAMBank(1))
	require.Empty(t, r.writes)
}
