// Package bus defines the peripheral-handler contract shared by every
// card in this repository. The slot dispatch that routes a CPU access
// to the right card's handler lives outside this module; Registry here
// is only a thin stand-in used by cmd/bobbind to drive the cores
// without the full emulator.
package bus

import "fmt"

// Access describes one bus transaction delivered to a peripheral.
//
// Exactly one of Ploc and Psw is non-negative: Ploc selects a byte
// inside the card's 256-byte ROM window ($Cn00..$CnFF), Psw selects a
// soft switch inside the card's I/O window ($C0n0..$C0nF). Val is -1
// for a read, or the byte being written.
type Access struct {
	Loc  uint16
	Val  int
	Ploc int
	Psw  int
}

// IsWrite reports whether this access is a write.
func (a Access) IsWrite() bool { return a.Val >= 0 }

// IsROM reports whether this access targets the card's ROM window.
func (a Access) IsROM() bool { return a.Ploc >= 0 }

// IsSoftSwitch reports whether this access targets a soft switch.
func (a Access) IsSoftSwitch() bool { return a.Psw >= 0 }

// Peripheral is the contract every card exposes to the slot dispatch:
// an initializer called once before emulation starts, and a handler
// invoked for every bus access routed to the card. The handler's
// return value is the byte delivered to the CPU on reads; on writes
// it is ignored.
type Peripheral interface {
	Init() error
	Handle(a Access) byte
}

// Registry wires peripherals to slot numbers for manual/demo driving
// outside the full emulator. It is not the real slot dispatch.
type Registry struct {
	slots map[int]Peripheral
}

// NewRegistry creates an empty slot registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[int]Peripheral)}
}

// Register assigns a peripheral to a slot (1..7) and initializes it.
func (r *Registry) Register(slot int, p Peripheral) error {
	if slot < 1 || slot > 7 {
		return fmt.Errorf("bus: invalid slot %d", slot)
	}
	if err := p.Init(); err != nil {
		return fmt.Errorf("bus: init slot %d: %w", slot, err)
	}
	r.slots[slot] = p
	return nil
}

// SoftSwitch delivers a soft-switch access ($C0n0..$C0nF) to slot n.
func (r *Registry) SoftSwitch(slot, psw, val int) (byte, error) {
	p, ok := r.slots[slot]
	if !ok {
		return 0, fmt.Errorf("bus: no peripheral in slot %d", slot)
	}
	loc := uint16(0xC080 + slot*0x10 + psw)
	return p.Handle(Access{Loc: loc, Val: val, Ploc: -1, Psw: psw}), nil
}

// ROM delivers a ROM-window access ($Cn00..$CnFF) to slot n.
func (r *Registry) ROM(slot, ploc int) (byte, error) {
	p, ok := r.slots[slot]
	if !ok {
		return 0, fmt.Errorf("bus: no peripheral in slot %d", slot)
	}
	loc := uint16(0xC000 + slot*0x100 + ploc)
	return p.Handle(Access{Loc: loc, Val: -1, Ploc: ploc, Psw: -1}), nil
}
