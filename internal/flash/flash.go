// Package flash drives the SST39SF0x0 program/erase state machine:
// chip identification, sector erase with DQ7 busy-polling, 256-byte
// block programming, and a full read-back verify.
package flash

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/gbcart/reader/pkg/progress"
)

const (
	imageSize    = 32 * 1024
	pageSize     = 256
	pagesPerChip = imageSize / pageSize // 128
	sectorPages  = 16                   // 4 KiB erase sector / 256 B page
	erasePollCap = 0x1000
)

// acceptedChipIDs is the set of ((id1+1)<<8)|id2 values §4.8 accepts.
var acceptedChipIDs = map[uint16]bool{
	0xBFB5: true,
	0xBFB6: true,
	0xBFB7: true,
}

// Codec is the subset of *protocol.Codec the flash programmer needs.
type Codec interface {
	DeviceID() (id1, id2 byte, err error)
	EraseSector(addr uint16) (uint16, error)
	WriteBlock(addr uint16, data []byte) error
	ReadSector(byteOffset uint16) ([]byte, error)
}

// chipID computes the accept-checked id from the raw JEDEC pair, per
// the documented (and flagged-suspicious, see DESIGN.md) +1 on the
// high byte.
func chipID(id1, id2 byte) uint16 {
	return (uint16(id1)+1)<<8 | uint16(id2)
}

// IdentifyChip issues DEVIDSST and validates the reported chip id
// against the accepted SST39SF0x0 family values.
func IdentifyChip(codec Codec) (uint16, error) {
	id1, id2, err := codec.DeviceID()
	if err != nil {
		return 0, err
	}
	id := chipID(id1, id2)
	if !acceptedChipIDs[id] {
		return id, &gbcrerr.WrongFlashChip{ChipID: id}
	}
	return id, nil
}

// ROM programs image (which must be exactly 32 KiB) onto the flash
// cartridge, then verifies it by reading the whole chip back. Progress
// is reported per page. Cancellation is checked between pages only.
func ROM(ctx context.Context, codec Codec, image []byte, sink progress.Sink) error {
	if sink == nil {
		sink = progress.Null{}
	}
	if len(image) != imageSize {
		return fmt.Errorf("%w: flash image must be %d bytes, got %d", gbcrerr.ErrInvalidHeader, imageSize, len(image))
	}

	if _, err := IdentifyChip(codec); err != nil {
		return err
	}

	for page := 0; page < pagesPerChip; page++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w", gbcrerr.ErrCancelled)
		}

		addr := uint16(page * pageSize)

		if page%sectorPages == 0 {
			cycles, err := codec.EraseSector(addr)
			if err != nil {
				return err
			}
			if cycles >= erasePollCap {
				return fmt.Errorf("%w: sector 0x%04X", gbcrerr.ErrFlashEraseTimeout, addr)
			}
		}

		sink.Start(page)
		block := image[page*pageSize : (page+1)*pageSize]
		if err := codec.WriteBlock(addr, block); err != nil {
			return err
		}
		sink.Done(page)
	}

	return verify(codec, image)
}

// verify reads the chip back sector by sector (8 sectors across the
// fixed low/high windows, mapper NONE, 2 banks) and compares against
// image byte for byte.
func verify(codec Codec, image []byte) error {
	readback := make([]byte, 0, imageSize)
	for sector := 0; sector < imageSize/0x1000; sector++ {
		data, err := codec.ReadSector(uint16(sector * 0x1000))
		if err != nil {
			return err
		}
		readback = append(readback, data...)
	}

	if !bytes.Equal(readback, image) {
		return gbcrerr.ErrFlashVerifyFailed
	}
	return nil
}
