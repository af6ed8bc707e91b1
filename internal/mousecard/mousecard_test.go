package mousecard

import (
	"errors"
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

func newTestCard() *Card {
	return &Card{rom: minimalROM(), slot: 4}
}

func TestCard_MinimalROM_SignatureBytes(t *testing.T) {
	c := newTestCard()
	c.reset()

	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x05, Psw: -1}); got != 0x38 {
		t.Errorf("ROM[0x05] = 0x%02x, want 0x38", got)
	}
	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x07, Psw: -1}); got != 0x18 {
		t.Errorf("ROM[0x07] = 0x%02x, want 0x18", got)
	}
	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x12, Psw: -1}); got != 0x60 {
		t.Errorf("ROM[0x12] (SETMOUSE) = 0x%02x, want RTS (0x60)", got)
	}
}

func TestCard_ROMPageSelectedByORB(t *testing.T) {
	c := newTestCard()
	c.reset()
	c.rom[3*pageSize+0x12] = 0xEA // NOP, to distinguish page 3

	// CRB bit 2 set: ORB writes go to the data register, not DDRB.
	writeSwitch(t, c, piaCRB, 0x04)
	writeSwitch(t, c, piaORB, 0x03)

	if got := c.Handle(bus.Access{Val: -1, Ploc: 0x12, Psw: -1}); got != 0xEA {
		t.Errorf("ROM page 3 offset 0x12 = 0x%02x, want 0xea", got)
	}
}

func TestCard_ORB_DDRGating(t *testing.T) {
	c := newTestCard()
	c.reset()

	// CRB bit 2 clear: ORB accesses hit DDRB instead.
	writeSwitch(t, c, piaCRB, 0x00)
	writeSwitch(t, c, piaORB, 0xFF)

	if c.pia.orb != 0 {
		t.Errorf("ORB = 0x%02x, want unchanged (write should have hit DDRB)", c.pia.orb)
	}
	if c.pia.ddrb != 0xFF {
		t.Errorf("DDRB = 0x%02x, want 0xff", c.pia.ddrb)
	}

	if got := readSwitch(t, c, piaORB); got != 0xFF {
		t.Errorf("read ORB with CRB bit 2 clear = 0x%02x, want DDRB value 0xff", got)
	}
}

func TestCard_QuadratureEncoding_DrainsOneStepPerRead(t *testing.T) {
	c := newTestCard()
	c.reset()
	writeSwitch(t, c, piaCRA, 0x04) // ORA reads return live data

	c.SetPosition(515, 512) // +3 in X only
	c.SetButton(true)

	var reads []byte
	for i := 0; i < 4; i++ {
		reads = append(reads, readSwitch(t, c, piaORA))
	}

	for i := 0; i < 3; i++ {
		if reads[i]&0x01 == 0 {
			t.Errorf("read %d: expected X-moved strobe set, got 0x%02x", i, reads[i])
		}
		if reads[i]&0x02 == 0 {
			t.Errorf("read %d: expected rightward direction bit set, got 0x%02x", i, reads[i])
		}
		if reads[i]&0x80 != 0 {
			t.Errorf("read %d: button bit should be clear (pressed), got 0x%02x", i, reads[i])
		}
	}
	if reads[3]&0x01 != 0 {
		t.Errorf("read 3: expected delta exhausted, got 0x%02x", reads[3])
	}
}

func TestCard_ButtonBit_ActiveLow(t *testing.T) {
	c := newTestCard()
	c.reset()
	writeSwitch(t, c, piaCRA, 0x04)

	c.SetButton(false)
	if v := readSwitch(t, c, piaORA); v&0x80 == 0 {
		t.Errorf("button released: expected bit 7 set, got 0x%02x", v)
	}

	c.SetButton(true)
	if v := readSwitch(t, c, piaORA); v&0x80 != 0 {
		t.Errorf("button pressed: expected bit 7 clear, got 0x%02x", v)
	}
}

func TestLoadROM_FallsBackToMinimal(t *testing.T) {
	failing := func(string) ([]byte, error) { return nil, errors.New("not found") }
	rom := loadROM([]string{"nonexistent"}, failing)
	want := minimalROM()
	if rom != want {
		t.Error("loadROM did not fall back to the minimal synthesized ROM")
	}
}

func TestLoadROM_PrefersFileContent(t *testing.T) {
	var want [romSize]byte
	want[0] = 0xAB
	reader := func(path string) ([]byte, error) {
		if path == "good.rom" {
			return want[:], nil
		}
		return nil, errors.New("not found")
	}
	rom := loadROM([]string{"bad.rom", "good.rom"}, reader)
	if rom != want {
		t.Error("loadROM did not return the file's content when a candidate path succeeded")
	}
}

func TestCard_SetPosition_Clamps(t *testing.T) {
	c := newTestCard()
	c.reset()
	c.SetPosition(-5, 2000)
	x, y, _ := c.GetState()
	if x != 0 || y != 1023 {
		t.Errorf("GetState = (%d, %d), want (0, 1023)", x, y)
	}
}
