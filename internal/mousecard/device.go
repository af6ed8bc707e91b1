package mousecard

import "github.com/benj-edwards/bobbin/internal/bus"

// Handle satisfies bus.Peripheral. ROM reads bank through the page
// selected by the PIA's Output Register B; soft-switch accesses go
// straight to the PIA register file.
func (c *Card) Handle(a bus.Access) byte {
	if a.IsROM() {
		return c.romRead(a.Ploc)
	}
	if a.IsSoftSwitch() && a.Psw < 4 {
		if a.IsWrite() {
			c.pia.write(a.Psw, byte(a.Val))
			return 0
		}
		return c.pia.read(a.Psw)
	}
	return 0
}

func (c *Card) romRead(ploc int) byte {
	offset := int(c.pia.romPage())*pageSize + ploc
	if offset < 0 || offset >= romSize {
		return 0
	}
	return c.rom[offset]
}
