package mbc

type mbc1Driver struct{ w AddressWriter }

// ChangeROMBank selects bank. Banks below 0x20 take the single-write
// path; banks at or above 0x20 need mode select plus the high two bits
// written separately, since MBC1 only ever exposes 5 low bank bits at
// 0x2000-0x3FFF.
func (d mbc1Driver) ChangeROMBank(bank int) error {
	if bank < 0x20 {
		return d.w.WriteAddr(addrROMBankLow, uint8(bank))
	}
	if err := d.w.WriteAddr(addrModeSelect, 0x00); err != nil {
		return err
	}
	if err := d.w.WriteAddr(addrBankHigh, uint8(bank>>5)); err != nil {
		return err
	}
	return d.w.WriteAddr(addrROMBankLow, uint8(bank&0x1F))
}

func (d mbc1Driver) ChangeRAMBank(bank int) error {
	return d.w.WriteAddr(addrBankHigh, uint8(bank))
}
