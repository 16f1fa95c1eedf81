// Package ramio implements cartridge RAM backup and restore: reading
// or writing the save data described by a cartridge header, banked
// where the header's RAM size needs more than one 8 KiB window.
package ramio

import (
	"fmt"

	"github.com/gbcart/reader/internal/cartridge"
	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/gbcart/reader/internal/mbc"
)

const smallRAMThreshold = 8 * 1024

// addrRAMLow and addrRAMHigh are the two 4 KiB windows a full 8 KiB RAM
// bank is read and written through.
const (
	addrRAMLow  = 0xA000
	addrRAMHigh = 0xB000
)

// Codec is the subset of *protocol.Codec ramio needs.
type Codec interface {
	ReadSector(byteOffset uint16) ([]byte, error)
	SetRAM(enable bool) error
	WriteRAMSmall(data []byte) error
	WriteRAMHalf(data []byte, upper bool) error
}

// Backup reads the full RAM contents described by h.
func Backup(codec Codec, driver mbc.Driver, h *cartridge.Header) ([]byte, error) {
	if h.RAMBytes == 0 {
		return nil, nil
	}

	if h.RAMBytes < smallRAMThreshold {
		if err := codec.SetRAM(true); err != nil {
			return nil, err
		}
		sector, err := codec.ReadSector(addrRAMLow)
		if err != nil {
			_ = codec.SetRAM(false)
			return nil, err
		}
		if err := codec.SetRAM(false); err != nil {
			return nil, err
		}
		return sector[:h.RAMBytes], nil
	}

	image := make([]byte, 0, h.RAMBytes)
	for bank := 0; bank < h.RAMBanks; bank++ {
		if h.RAMBanks > 1 {
			if err := driver.ChangeRAMBank(bank); err != nil {
				return nil, err
			}
		}
		if err := codec.SetRAM(true); err != nil {
			return nil, err
		}

		low, err := codec.ReadSector(addrRAMLow)
		if err != nil {
			_ = codec.SetRAM(false)
			return nil, err
		}
		high, err := codec.ReadSector(addrRAMHigh)
		if err != nil {
			_ = codec.SetRAM(false)
			return nil, err
		}

		if err := codec.SetRAM(false); err != nil {
			return nil, err
		}

		image = append(image, low...)
		image = append(image, high...)
	}

	return image, nil
}

// Restore writes image to cartridge RAM. image's length must equal
// h.RAMBytes exactly.
func Restore(codec Codec, driver mbc.Driver, h *cartridge.Header, image []byte) error {
	if len(image) != h.RAMBytes {
		return fmt.Errorf("%w: expected %d bytes, got %d", gbcrerr.ErrSaveSizeMismatch, h.RAMBytes, len(image))
	}
	if h.RAMBytes == 0 {
		return nil
	}

	if err := driver.ChangeRAMBank(0); err != nil {
		return err
	}

	if h.RAMBytes < smallRAMThreshold {
		if err := codec.SetRAM(true); err != nil {
			return err
		}
		if err := codec.WriteRAMSmall(image); err != nil {
			_ = codec.SetRAM(false)
			return err
		}
		return codec.SetRAM(false)
	}

	bankSize := smallRAMThreshold
	for bank := 0; bank < h.RAMBanks; bank++ {
		if bank > 0 {
			if err := driver.ChangeRAMBank(bank); err != nil {
				return err
			}
		}
		if err := codec.SetRAM(true); err != nil {
			return err
		}

		half := bankSize / 2
		low := image[bank*bankSize : bank*bankSize+half]
		high := image[bank*bankSize+half : (bank+1)*bankSize]

		if err := codec.WriteRAMHalf(low, false); err != nil {
			_ = codec.SetRAM(false)
			return err
		}
		if err := codec.WriteRAMHalf(high, true); err != nil {
			_ = codec.SetRAM(false)
			return err
		}

		if err := codec.SetRAM(false); err != nil {
			return err
		}
	}

	return nil
}
