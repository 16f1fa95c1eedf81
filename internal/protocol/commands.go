package protocol

import (
	"encoding/binary"
	"fmt"
)

// ReadInfo issues READINFO and returns the 16-byte board id string.
func (c *Codec) ReadInfo() ([]byte, error) {
	return c.Exchange("READINFO", BoardInfoLen)
}

// ReadCompileTime issues COMPTIME and returns the 32-byte date/time blob.
func (c *Codec) ReadCompileTime() ([]byte, error) {
	return c.Exchange("COMPTIME", CompTimeLen)
}

// ReadHeader issues READHDR0 and returns the 0x150-byte cartridge header.
func (c *Codec) ReadHeader() ([]byte, error) {
	return c.Exchange("READHDR0", HeaderLen)
}

// ReadSector issues RDBK for the sector at byteOffset (the offset within
// the current 32KiB ROM window) and returns its 0x1000 bytes.
func (c *Codec) ReadSector(byteOffset uint16) ([]byte, error) {
	return c.Exchange(fmt.Sprintf("RDBK%04X", byteOffset), SectorLen)
}

// WriteAddr issues WR to write value at the cartridge-bus address addr.
// It implements mbc.AddressWriter for the MBC drivers.
func (c *Codec) WriteAddr(addr uint16, value uint8) error {
	return c.Send(fmt.Sprintf("WR%04X%02X", addr, value))
}

// SetRAM enables or disables the external RAM chip select.
func (c *Codec) SetRAM(enable bool) error {
	if enable {
		return c.Send("RAMON000")
	}
	return c.Send("RAMOFF00")
}

// WriteRAMSmall streams a 2048-byte payload for RAM smaller than 8KiB.
func (c *Codec) WriteRAMSmall(data []byte) error {
	if len(data) != RAMSmallLen {
		return fmt.Errorf("gbcr: small RAM write requires %d bytes, got %d", RAMSmallLen, len(data))
	}
	if err := c.Send("RMWR2k00"); err != nil {
		return err
	}
	return c.StreamWrite(data)
}

// WriteRAMHalf streams a 4096-byte half of an 8KiB RAM bank, to the low
// window (0xA000) when upper is false, or the high window (0xB000) when
// upper is true.
func (c *Codec) WriteRAMHalf(data []byte, upper bool) error {
	if len(data) != RAMHalfLen {
		return fmt.Errorf("gbcr: RAM half write requires %d bytes, got %d", RAMHalfLen, len(data))
	}
	cmd := "RMWR4kA0"
	if upper {
		cmd = "RMWR4kB0"
	}
	if err := c.Send(cmd); err != nil {
		return err
	}
	return c.StreamWrite(data)
}

// DeviceID issues DEVIDSST and returns the raw two-byte JEDEC id pair as
// reported by the reader (id1, id2).
func (c *Codec) DeviceID() (id1, id2 byte, err error) {
	resp, err := c.Exchange("DEVIDSST", ChipIDLen)
	if err != nil {
		return 0, 0, err
	}
	return resp[0], resp[1], nil
}

// EraseSector issues ESST at addr and returns the big-endian erase-poll
// cycle count the chip took to report completion.
func (c *Codec) EraseSector(addr uint16) (uint16, error) {
	resp, err := c.Exchange(fmt.Sprintf("ESST%04X", addr), ErasePollLen)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(resp), nil
}

// WriteBlock issues WRST at addr and streams the 256-byte page, draining
// any stray bytes left behind afterwards.
func (c *Codec) WriteBlock(addr uint16, data []byte) error {
	if len(data) != FlashBlkLen {
		return fmt.Errorf("gbcr: flash block write requires %d bytes, got %d", FlashBlkLen, len(data))
	}
	if err := c.Send(fmt.Sprintf("WRST%04X", addr)); err != nil {
		return err
	}
	if err := c.StreamWrite(data); err != nil {
		return err
	}
	return c.Drain()
}
