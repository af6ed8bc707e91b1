// Package netcard emulates a WIZnet W5100-based Uthernet II Ethernet
// card: the register file and indirect-address pointer, the four-socket
// state machine, a host-socket bridge, and a virtual ARP/DHCP/TCP
// responder that answers MACRAW traffic without a real network.
package netcard

import (
	"github.com/benj-edwards/bobbin/internal/logging"
)

var logCard = logging.CardUthernet2

// dhcpState is the virtual DHCP responder's state machine, observed
// only as a monotonically advancing sequence.
type dhcpState int

const (
	dhcpIdle dhcpState = iota
	dhcpDiscoverSeen
	dhcpOfferSent
	dhcpRequestSeen
	dhcpComplete
)

// socketState is the host-bridging extension state for one of the
// four W5100 sockets; it is not part of the register image.
type socketState struct {
	fd         int // host socket fd, -1 if not open
	connecting bool
	rxStaging  [4096]byte
	rxHead     int
	rxTail     int
	rxCursor   int // next unread byte index, reset when the CPU seeks into the RX window
	macraw     bool
}

// tcpFlow is the single live virtual TCP termination. Creating a new
// one closes any prior flow.
type tcpFlow struct {
	fd          int
	remoteMAC   [6]byte
	remoteIP    [4]byte
	localIP     [4]byte // the IP the client addressed; used as our reply source
	remotePort  uint16
	localPort   uint16
	ourSeq      uint32
	theirSeq    uint32
	established bool
	finSent     bool
	finReceived bool
}

// Default virtual-network constants, bit-exact with the spec.
var (
	defaultMAC     = [6]byte{0x02, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}
	defaultIP      = [4]byte{192, 168, 1, 100}
	defaultGateway = [4]byte{192, 168, 1, 1}
	defaultSubnet  = [4]byte{255, 255, 255, 0}

	virtualServerMAC  = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	virtualGatewayMAC = [6]byte{0x02, 0x00, 0xDE, 0xAD, 0xBE, 0x01}
	virtualClientIP   = [4]byte{192, 168, 65, 100}
	virtualServerIP   = [4]byte{192, 168, 65, 1}
	virtualGateway    = [4]byte{192, 168, 65, 1}
	virtualSubnet     = [4]byte{255, 255, 255, 0}
	virtualDNS        = [4]byte{8, 8, 8, 8}
)

// Card is the emulated W5100 state attached to one Apple II slot.
type Card struct {
	memory  [0x8000]byte
	addrPtr uint16
	mode    byte

	sockets [4]socketState

	dhcpState dhcpState
	dhcpXID   [4]byte
	clientMAC [6]byte

	virtualTCP *tcpFlow

	slot int
}

// NewCard creates a Card for the given slot (1..7) in its post-reset
// state.
func NewCard(slot int) *Card {
	c := &Card{slot: slot}
	c.reset()
	return c
}

// Init satisfies bus.Peripheral.
func (c *Card) Init() error {
	logCard.Infof("Uthernet II: initializing in slot %d", c.slot)
	c.reset()
	return nil
}

// reset implements w5100_reset: closes open host handles, zeroes the
// register image, and re-seeds every default.
func (c *Card) reset() {
	for i := range c.sockets {
		closeHostHandle(c.sockets[i].fd)
	}
	if c.virtualTCP != nil {
		closeHostHandle(c.virtualTCP.fd)
		c.virtualTCP = nil
	}

	c.memory = [0x8000]byte{}
	c.addrPtr = 0
	c.mode = 0
	c.dhcpState = dhcpIdle
	c.dhcpXID = [4]byte{}
	c.clientMAC = [6]byte{}

	copy(c.memory[regSHAR:], defaultMAC[:])
	copy(c.memory[regSIPR:], defaultIP[:])
	copy(c.memory[regGAR:], defaultGateway[:])
	copy(c.memory[regSUBR:], defaultSubnet[:])
	c.memory[regRTR] = 0x07
	c.memory[regRTR+1] = 0xD0
	c.memory[regRCR] = 0x08
	c.memory[regRMSR] = 0x55
	c.memory[regTMSR] = 0x55
	c.memory[regPPTLR] = 0x00

	for i := 0; i < 4; i++ {
		base := socketRegBase(i)
		c.memory[int(base)+snSR] = statusClosed
		c.memory[int(base)+snTTL] = 128

		txb := socketTXBase(i)
		c.memory[int(base)+snTXRD] = hi(txb)
		c.memory[int(base)+snTXRD+1] = lo(txb)
		c.memory[int(base)+snTXWR] = hi(txb)
		c.memory[int(base)+snTXWR+1] = lo(txb)

		rxb := socketRXBase(i)
		c.memory[int(base)+snRXRD] = hi(rxb)
		c.memory[int(base)+snRXRD+1] = lo(rxb)

		c.sockets[i] = socketState{fd: -1}
	}

	logCard.Infof("Uthernet II: reset complete")
}

// closeHostHandle closes fd unless it is one of the reserved standard
// streams (0, 1, 2) or already closed.
func closeHostHandle(fd int) {
	if fd > 2 {
		_ = hostClose(fd)
	}
}
