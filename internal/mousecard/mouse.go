// Package mousecard emulates an AppleMouse card: a 6821 PIA exposed
// through four soft switches, a banked 256-byte ROM window selected by
// the PIA's Output Register B, and quadrature-encoded position
// tracking for a host-driven pointer.
package mousecard

import (
	"os"

	"github.com/benj-edwards/bobbin/internal/logging"
)

var logCard = logging.CardMouse

// Card is the emulated AppleMouse state attached to one Apple II slot.
type Card struct {
	pia piaState
	rom [romSize]byte

	x, y int
	slot int
}

// NewCard creates a Card for the given slot (1..7), loading ROM data
// from the first readable path in romPaths and falling back to a
// synthesized minimal ROM otherwise.
func NewCard(slot int, romPaths []string) *Card {
	paths := romPaths
	if len(paths) == 0 {
		paths = candidateROMPaths
	}
	c := &Card{
		rom:  loadROM(paths, readROMFile),
		slot: slot,
	}
	c.reset()
	return c
}

func readROMFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Init satisfies bus.Peripheral.
func (c *Card) Init() error {
	logCard.Infof("AppleMouse: initializing in slot %d", c.slot)
	c.reset()
	return nil
}

func (c *Card) reset() {
	c.pia = piaState{}
	c.x, c.y = 512, 512
}

// SetPosition moves the pointer to (x, y), accumulating the delta for
// the quadrature encoder to drain on subsequent PIA reads. Positions
// are clamped to the mouse's 10-bit coordinate range.
func (c *Card) SetPosition(x, y int) {
	x = clamp10(x)
	y = clamp10(y)
	c.pia.deltaX += x - c.x
	c.pia.deltaY += y - c.y
	c.x, c.y = x, y
	logCard.Debugf("position set to (%d, %d)", x, y)
}

// SetButton reports the physical button state.
func (c *Card) SetButton(pressed bool) {
	c.pia.button = pressed
	logCard.Debugf("button %v", pressed)
}

// GetState returns the current logical position and button state.
func (c *Card) GetState() (x, y int, button bool) {
	return c.x, c.y, c.pia.button
}

func clamp10(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1023 {
		return 1023
	}
	return v
}
