package mbc

type mbc5Driver struct{ w AddressWriter }

// ChangeROMBank selects bank across MBC5's full 9 bank bits: the low
// byte at 0x2000-0x2FFF, then the 9th bit at 0x3000-0x3FFF.
func (d mbc5Driver) ChangeROMBank(bank int) error {
	if err := d.w.WriteAddr(addrROMBankLow, uint8(bank&0xFF)); err != nil {
		return err
	}
	return d.w.WriteAddr(addrROMBank8, uint8((bank>>8)&0x01))
}

func (d mbc5Driver) ChangeRAMBank(bank int) error {
	return d.w.WriteAddr(addrBankHigh, uint8(bank&0x0F))
}
