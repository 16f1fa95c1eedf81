package mbc

type mbc2Driver struct{ w AddressWriter }

// ChangeROMBank selects bank, masked to MBC2's 4 bank bits.
func (d mbc2Driver) ChangeROMBank(bank int) error {
	return d.w.WriteAddr(addrROMBankLow, uint8(bank&0x0F))
}

// ChangeRAMBank is a no-op: MBC2's built-in 512x4 bit cell array isn't
// banked.
func (d mbc2Driver) ChangeRAMBank(int) error {
	return nil
}
