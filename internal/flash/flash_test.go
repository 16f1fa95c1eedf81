package flash

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/stretchr/testify/require"
)

// fakeChip is an in-memory SST39SF0x0 stand-in: 32 KiB of 0xFF, erasable
// in 4 KiB sectors, programmable a byte at a time (AND semantics, like
// real NOR flash, so a program after erase is the only way to get 0s).
type fakeChip struct {
	mem        [imageSize]byte
	id1, id2   byte
	erased     []uint16 // addr of each EraseSector call, in order
	programmed []uint16 // addr of each WriteBlock call, in order
	// programmedBefore[i] is len(programmed) when erased[i] happened.
	programmedBefore []int
	eraseOK          bool
}

func newFakeChip(id1, id2 byte) *fakeChip {
	c := &fakeChip{id1: id1, id2: id2, eraseOK: true}
	for i := range c.mem {
		c.mem[i] = 0xFF
	}
	return c
}

func (c *fakeChip) DeviceID() (byte, byte, error) { return c.id1, c.id2, nil }

func (c *fakeChip) EraseSector(addr uint16) (uint16, error) {
	c.erased = append(c.erased, addr)
	c.programmedBefore = append(c.programmedBefore, len(c.programmed))
	if !c.eraseOK {
		return erasePollCap, nil
	}
	for i := int(addr); i < int(addr)+0x1000; i++ {
		c.mem[i] = 0xFF
	}
	return 17, nil
}

func (c *fakeChip) WriteBlock(addr uint16, data []byte) error {
	c.programmed = append(c.programmed, addr)
	for i, b := range data {
		c.mem[int(addr)+i] &= b
	}
	return nil
}

func (c *fakeChip) ReadSector(byteOffset uint16) ([]byte, error) {
	buf := make([]byte, 0x1000)
	copy(buf, c.mem[byteOffset:int(byteOffset)+0x1000])
	return buf, nil
}

// S5: wrong chip id aborts before any ESST.
func TestScenario_S5_WrongChipAbortsBeforeErase(t *testing.T) {
	chip := newFakeChip(0x00, 0x00) // chip_id = 0x0100
	image := bytes.Repeat([]byte{0x5A}, imageSize)

	err := ROM(context.Background(), chip, image, nil)
	require.Error(t, err)

	var wrong *gbcrerr.WrongFlashChip
	require.True(t, errors.As(err, &wrong))
	require.Equal(t, uint16(0x0100), wrong.ChipID)
	require.Empty(t, chip.erased)
}

// S6: a 32 KiB image of repeated 0x5A on a chip reporting raw JEDEC
// bytes (0xBE, 0xB5), which the +1/shift computation turns into the
// accepted id 0xBFB5.
func TestScenario_S6_FullProgramCycle(t *testing.T) {
	chip := newFakeChip(0xBE, 0xB5) // (0xBE+1)<<8 | 0xB5 == 0xBFB5
	image := bytes.Repeat([]byte{0x5A}, imageSize)

	err := ROM(context.Background(), chip, image, nil)
	require.NoError(t, err)

	require.Len(t, chip.erased, 8)
	for i, addr := range chip.erased {
		require.Equal(t, uint16(i*0x1000), addr)
	}
	require.Len(t, chip.programmed, pagesPerChip)
	require.True(t, bytes.Equal(chip.mem[:], image))
}

// Testable property 7: each 4 KiB region is erased exactly once, and
// always before any byte in it is programmed.
func TestProperty_EachRegionErasedOnceBeforeProgram(t *testing.T) {
	chip := newFakeChip(0xBE, 0xB5)
	image := bytes.Repeat([]byte{0x11}, imageSize)
	require.NoError(t, ROM(context.Background(), chip, image, nil))

	eraseIndexOf := map[uint16]int{}
	for i, addr := range chip.erased {
		sector := addr / 0x1000
		if _, seen := eraseIndexOf[sector]; seen {
			t.Fatalf("sector 0x%04X erased more than once", sector)
		}
		eraseIndexOf[sector] = i
	}

	for pageIdx, addr := range chip.programmed {
		sector := addr / 0x1000
		eraseSeq, ok := eraseIndexOf[sector]
		require.Truef(t, ok, "page 0x%04X programmed without its sector ever erased", addr)
		// the sector's erase happened while at most pageIdx pages had been
		// programmed, i.e. before this page's WriteBlock.
		require.LessOrEqual(t, chip.programmedBefore[eraseSeq], pageIdx)
	}
}

func TestEraseTimeout_SurfacesAsFlashEraseTimeout(t *testing.T) {
	chip := newFakeChip(0xBE, 0xB5)
	chip.eraseOK = false
	image := bytes.Repeat([]byte{0x00}, imageSize)

	err := ROM(context.Background(), chip, image, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, gbcrerr.ErrFlashEraseTimeout))
}
