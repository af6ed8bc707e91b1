package netcard

import (
	"testing"

	"github.com/benj-edwards/bobbin/internal/bus"
)

func writeSwitch(t *testing.T, c *Card, psw int, val int) {
	t.Helper()
	c.Handle(bus.Access{Val: val, Ploc: -1, Psw: psw})
}

func readSwitch(t *testing.T, c *Card, psw int) byte {
	t.Helper()
	return c.Handle(bus.Access{Val: -1, Ploc: -1, Psw: psw})
}

func seekAddr(t *testing.T, c *Card, addr uint16) {
	t.Helper()
	writeSwitch(t, c, swAddrHi, int(hi(addr)))
	writeSwitch(t, c, swAddrLo, int(lo(addr)))
}

func TestNewCard_ResetDefaults(t *testing.T) {
	c := NewCard(3)

	if c.memory[regRCR] != 0x08 {
		t.Errorf("RCR = 0x%02x, want 0x08", c.memory[regRCR])
	}
	if got := word(c.memory[regRTR], c.memory[regRTR+1]); got != 0x07D0 {
		t.Errorf("RTR = 0x%04x, want 0x07d0", got)
	}
	if c.memory[regRMSR] != 0x55 || c.memory[regTMSR] != 0x55 {
		t.Errorf("RMSR/TMSR = 0x%02x/0x%02x, want 0x55/0x55", c.memory[regRMSR], c.memory[regTMSR])
	}

	var mac [6]byte
	copy(mac[:], c.memory[regSHAR:regSHAR+6])
	if mac != defaultMAC {
		t.Errorf("SHAR = %x, want %x", mac, defaultMAC)
	}

	for i := 0; i < 4; i++ {
		base := int(socketRegBase(i))
		if c.memory[base+snSR] != statusClosed {
			t.Errorf("socket %d SR = 0x%02x, want closed", i, c.memory[base+snSR])
		}
		if c.sockets[i].fd != -1 {
			t.Errorf("socket %d fd = %d, want -1", i, c.sockets[i].fd)
		}
	}
}

func TestCard_IndirectAddressing_AutoIncrement(t *testing.T) {
	c := NewCard(3)

	writeSwitch(t, c, swMode, mrAI)
	seekAddr(t, c, 0x0100)
	writeSwitch(t, c, swData, 0xAB)
	writeSwitch(t, c, swData, 0xCD)

	if c.memory[0x0100] != 0xAB || c.memory[0x0101] != 0xCD {
		t.Errorf("memory[0x100:0x102] = %02x %02x, want ab cd", c.memory[0x0100], c.memory[0x0101])
	}

	seekAddr(t, c, 0x0100)
	if v := readSwitch(t, c, swData); v != 0xAB {
		t.Errorf("read at 0x100 = 0x%02x, want 0xab", v)
	}
	if v := readSwitch(t, c, swData); v != 0xCD {
		t.Errorf("read at 0x101 = 0x%02x, want 0xcd", v)
	}
}

func TestCard_IndirectAddressing_NoAutoIncrement(t *testing.T) {
	c := NewCard(3)

	writeSwitch(t, c, swMode, 0) // AI off
	seekAddr(t, c, 0x0200)
	writeSwitch(t, c, swData, 0x11)
	writeSwitch(t, c, swData, 0x22)

	if c.memory[0x0200] != 0x22 {
		t.Errorf("memory[0x200] = 0x%02x, want 0x22 (second write overwrote without advancing)", c.memory[0x0200])
	}
}

func TestCard_ModeRegisterResetBit(t *testing.T) {
	c := NewCard(3)
	seekAddr(t, c, 0x0100)
	writeSwitch(t, c, swData, 0x99)

	writeSwitch(t, c, swMode, mrRST)

	if c.memory[0x0100] != 0 {
		t.Errorf("memory[0x100] = 0x%02x after reset, want 0", c.memory[0x100])
	}
	if c.memory[regRCR] != 0x08 {
		t.Errorf("RCR not reseeded after soft reset: 0x%02x", c.memory[regRCR])
	}
}

func TestCard_ROMIdentificationBytes(t *testing.T) {
	c := NewCard(3)
	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x05, Psw: -1}); got != 0x38 {
		t.Errorf("ROM[0x05] = 0x%02x, want 0x38", got)
	}
	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x07, Psw: -1}); got != 0x18 {
		t.Errorf("ROM[0x07] = 0x%02x, want 0x18", got)
	}
	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x00, Psw: -1}); got != 0x00 {
		t.Errorf("ROM[0x00] = 0x%02x, want 0x00", got)
	}
}

func TestCard_SocketCommandRegisterSelfClears(t *testing.T) {
	c := NewCard(3)
	base := int(socketRegBase(0))

	seekAddr(t, c, uint16(base+snMR))
	writeSwitch(t, c, swData, modeTCP)

	seekAddr(t, c, uint16(base+snCR))
	writeSwitch(t, c, swData, cmdOpen)

	seekAddr(t, c, uint16(base+snCR))
	if v := readSwitch(t, c, swData); v != 0 {
		t.Errorf("Sn_CR = 0x%02x after dispatch, want 0 (self-clear)", v)
	}

	seekAddr(t, c, uint16(base+snSR))
	if v := readSwitch(t, c, swData); v != statusInit {
		t.Errorf("Sn_SR after OPEN(TCP) = 0x%02x, want INIT (0x%02x)", v, statusInit)
	}

	closeHostHandle(c.sockets[0].fd)
}

func TestBusRegistry_RoutesToCard(t *testing.T) {
	r := bus.NewRegistry()
	c := NewCard(3)
	if err := r.Register(3, c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := r.SoftSwitch(3, swAddrHi, int(hi(0x0009))); err != nil {
		t.Fatalf("SoftSwitch(AddrHi): %v", err)
	}
	if _, err := r.SoftSwitch(3, swAddrLo, int(lo(0x0009))); err != nil {
		t.Fatalf("SoftSwitch(AddrLo): %v", err)
	}
	v, err := r.SoftSwitch(3, swData, -1)
	if err != nil {
		t.Fatalf("SoftSwitch(Data read): %v", err)
	}
	if v != defaultMAC[0] {
		t.Errorf("read SHAR[0] via registry = 0x%02x, want 0x%02x", v, defaultMAC[0])
	}
}
