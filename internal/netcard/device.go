package netcard

import "github.com/benj-edwards/bobbin/internal/bus"

// Handle satisfies bus.Peripheral. It implements the W5100's indirect
// addressing window: Mode/AddrHi/AddrLo/Data live at the card's four
// soft switches, and every other access is either the ROM
// identification bytes or a no-op.
func (c *Card) Handle(a bus.Access) byte {
	if a.IsROM() {
		return c.romByte(a.Ploc)
	}
	if a.IsSoftSwitch() {
		return c.softSwitch(a.Psw, a.Val, a.IsWrite())
	}
	return 0
}

// romByte identifies the card to firmware that probes slot ROM: two
// bytes distinguish a W5100-style Ethernet card from other peripheral
// classes. Every other offset reads as zero.
func (c *Card) romByte(ploc int) byte {
	switch ploc {
	case 0x05:
		return 0x38
	case 0x07:
		return 0x18
	default:
		return 0
	}
}

func (c *Card) softSwitch(psw int, val int, write bool) byte {
	switch psw {
	case swMode:
		if write {
			b := byte(val)
			if b&mrRST != 0 {
				c.reset()
				return 0
			}
			c.mode = b
			return 0
		}
		return c.mode
	case swAddrHi:
		if write {
			c.addrPtr = word(byte(val), lo(c.addrPtr))
			c.seekMACRAWCursor(c.addrPtr)
			return 0
		}
		return hi(c.addrPtr)
	case swAddrLo:
		if write {
			c.addrPtr = word(hi(c.addrPtr), byte(val))
			c.seekMACRAWCursor(c.addrPtr)
			return 0
		}
		return lo(c.addrPtr)
	case swData:
		if write {
			c.writeData(byte(val))
			return 0
		}
		return c.readData()
	default:
		return 0
	}
}

func (c *Card) writeData(b byte) {
	addr := c.addrPtr
	if !c.beforeWrite(addr, b) && addr < 0x8000 {
		c.memory[addr] = b
	}
	c.advance()
}

func (c *Card) readData() byte {
	addr := c.addrPtr
	v := c.readAt(addr)
	c.advance()
	return v
}

func (c *Card) advance() {
	if c.mode&mrAI != 0 {
		c.addrPtr++
	}
}

// beforeWrite intercepts writes that have side effects beyond storing
// into memory: a write to a socket's command register dispatches that
// command immediately and the register self-clears, matching the
// W5100's Sn_CR semantics. It reports whether it has already settled
// the stored value, in which case the written byte must not be stored.
func (c *Card) beforeWrite(addr uint16, b byte) bool {
	if n, off, ok := socketOffset(addr); ok && off == snCR {
		c.command(n, b)
		c.memory[addr] = 0
		return true
	}
	return false
}

// readAt dispatches reads that must be computed rather than fetched
// verbatim: Sn_TX_FSR, Sn_RX_RSR, and the RX data window for MACRAW
// sockets (served from the socket's own staging buffer rather than
// the shared memory image).
func (c *Card) readAt(addr uint16) byte {
	if n, ok := macrawRXBank(addr, &c.sockets); ok {
		return c.readMACRAWByte(n, addr)
	}
	if n, off, ok := socketOffset(addr); ok {
		c.socketPoll(n)
		switch off {
		case snTXFSR:
			return hi(c.txFreeSize(n))
		case snTXFSR + 1:
			return lo(c.txFreeSize(n))
		case snRXRSR:
			return hi(c.rxReceivedSize(n))
		case snRXRSR + 1:
			return lo(c.rxReceivedSize(n))
		}
	}
	if addr >= 0x8000 {
		return 0
	}
	return c.memory[addr]
}

func (c *Card) txFreeSize(n int) uint16 {
	base := int(socketRegBase(n))
	rd := word(c.memory[base+snTXRD], c.memory[base+snTXRD+1])
	wr := word(c.memory[base+snTXWR], c.memory[base+snTXWR+1])
	return uint16(sockBufLen - int(wr-rd))
}

func (c *Card) rxReceivedSize(n int) uint16 {
	sock := &c.sockets[n]
	if sock.macraw {
		return uint16(sock.rxTail - sock.rxHead)
	}
	return uint16((sock.rxTail - sock.rxHead) & sockMask)
}

// seekMACRAWCursor resets the MACRAW read cursor to the staging head
// whenever a write to either address-register byte leaves the pointer
// anywhere inside a MACRAW socket's RX window, modeling firmware that
// seeks once and then streams bytes forward through the
// auto-incrementing Data register. The offset within the window is not
// used: reads always continue from the cursor.
func (c *Card) seekMACRAWCursor(addr uint16) {
	if n, ok := macrawRXBank(addr, &c.sockets); ok {
		c.sockets[n].rxCursor = c.sockets[n].rxHead
	}
}

func (c *Card) readMACRAWByte(n int, addr uint16) byte {
	sock := &c.sockets[n]
	if sock.rxCursor >= sock.rxTail {
		return 0
	}
	b := sock.rxStaging[sock.rxCursor%len(sock.rxStaging)]
	sock.rxCursor++
	return b
}

// socketOffset reports which socket (if any) a register-file address
// belongs to, and the offset within that socket's page.
func socketOffset(addr uint16) (n int, off int, ok bool) {
	if addr < socketBase || addr >= socketBase+4*socketSize {
		return 0, 0, false
	}
	rel := addr - socketBase
	return int(rel / socketSize), int(rel % socketSize), true
}

// macrawRXBank reports whether addr falls in socket n's RX buffer
// window and that socket is in MACRAW mode, in which case the byte
// must come from the socket's linear staging buffer instead of the
// shared memory image.
func macrawRXBank(addr uint16, sockets *[4]socketState) (int, bool) {
	if addr < rxBase || addr >= rxBase+4*sockBufLen {
		return 0, false
	}
	n := int((addr - rxBase) / sockBufLen)
	if !sockets[n].macraw {
		return 0, false
	}
	return n, true
}
