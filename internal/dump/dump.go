// Package dump implements the ROM dumper: iterate every bank's sectors
// over the wire, assemble the full image, and check it against the
// header's declared global checksum.
package dump

import (
	"context"
	"fmt"

	"github.com/gbcart/reader/internal/cartridge"
	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/gbcart/reader/internal/mbc"
	"github.com/gbcart/reader/pkg/progress"
)

// sectorsPerBank is 0x4000 (a ROM bank) / 0x1000 (a sector).
const sectorsPerBank = 4

// Reader is the subset of *protocol.Codec the dumper needs.
type Reader interface {
	ReadSector(byteOffset uint16) ([]byte, error)
}

// Result is a completed dump: the assembled image and whether it
// passed the header's global-checksum self-check. A failed checksum is
// reported, not treated as an error — the image is still returned.
type Result struct {
	Image         []byte
	ChecksumValid bool
}

// ROM reads the full ROM image described by h over codec, switching
// banks through driver as it goes. Progress is reported per sector
// read, indexed from 0 across the whole job. Cancellation is checked
// between sectors only.
func ROM(ctx context.Context, codec Reader, driver mbc.Driver, h *cartridge.Header, sink progress.Sink) (*Result, error) {
	if sink == nil {
		sink = progress.Null{}
	}

	image := make([]byte, 0, h.ROMBytes)
	sector := 0

	readSector := func(byteOffset uint16) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w", gbcrerr.ErrCancelled)
		}
		sink.Start(sector)
		data, err := codec.ReadSector(byteOffset)
		if err != nil {
			return err
		}
		image = append(image, data...)
		sink.Done(sector)
		sector++
		return nil
	}

	// Sectors 0-3: the fixed low window, always bank 0.
	for i := 0; i < sectorsPerBank; i++ {
		if err := readSector(uint16(i * 0x1000)); err != nil {
			return nil, err
		}
	}

	for bank := 1; bank < h.ROMBanks; bank++ {
		if err := driver.ChangeROMBank(bank); err != nil {
			return nil, err
		}
		for i := sectorsPerBank; i < sectorsPerBank*2; i++ {
			if err := readSector(uint16(i * 0x1000)); err != nil {
				return nil, err
			}
		}
	}

	got := cartridge.GlobalChecksum(image)
	return &Result{Image: image, ChecksumValid: got == h.GlobalChecksum}, nil
}
