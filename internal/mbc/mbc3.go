package mbc

type mbc3Driver struct{ w AddressWriter }

// ChangeROMBank selects bank, masked to MBC3's 7 bank bits.
func (d mbc3Driver) ChangeROMBank(bank int) error {
	return d.w.WriteAddr(addrROMBankLow, uint8(bank&0x7F))
}

// ChangeRAMBank selects bank 0-3, or a RTC register index 0x08-0x0C.
func (d mbc3Driver) ChangeRAMBank(bank int) error {
	return d.w.WriteAddr(addrBankHigh, uint8(bank))
}
