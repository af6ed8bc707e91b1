package netcard

const (
	etherTypeARP  = 0x0806
	etherTypeIPv4 = 0x0800
	ipProtoUDP    = 17
	ipProtoTCP    = 6
)

// handleMACRAWSend is the entry point for everything written to a
// MACRAW socket's TX buffer: a raw Ethernet frame headed for the
// virtual network. Frames outside [1, 1600] bytes are dropped, as are
// frames this responder has no handler for.
func (c *Card) handleMACRAWSend(n int, frame []byte) {
	if len(frame) <= 0 || len(frame) > 1600 {
		logCard.Debugf("socket %d: dropping oversized/empty MACRAW frame (%d bytes)", n, len(frame))
		return
	}
	if len(frame) < 14 {
		return
	}

	etherType := word(frame[12], frame[13])
	switch etherType {
	case etherTypeARP:
		c.handleARPFrame(n, frame)
	case etherTypeIPv4:
		c.handleIPv4Frame(n, frame)
	default:
		logCard.Debugf("socket %d: ignoring MACRAW frame, ethertype=0x%04x", n, etherType)
	}
}

func (c *Card) handleIPv4Frame(n int, frame []byte) {
	if len(frame) < 14+20 {
		return
	}
	ipHeader := frame[14:]
	ihl := int(ipHeader[0]&0x0F) * 4
	if ihl < 20 || len(ipHeader) < ihl {
		return
	}
	proto := ipHeader[9]
	payload := frame[14+ihl:]

	switch proto {
	case ipProtoUDP:
		c.handleUDPFrame(n, frame, payload)
	case ipProtoTCP:
		c.handleTCPFrame(n, frame, payload)
	}
}

func (c *Card) handleUDPFrame(n int, frame []byte, udp []byte) {
	if len(udp) < 8 {
		return
	}
	srcPort := word(udp[0], udp[1])
	dstPort := word(udp[2], udp[3])
	if srcPort == 68 && dstPort == 67 {
		c.handleDHCP(n, frame, udp[8:])
	}
}

// injectMACRAWFrame appends frame to socket n's linear RX staging
// buffer with a 2-byte big-endian length prefix, matching the W5100's
// MACRAW RX framing. Frames that would overflow the staging buffer
// are dropped.
func (c *Card) injectMACRAWFrame(n int, frame []byte) {
	sock := &c.sockets[n]
	need := 2 + len(frame)
	free := len(sock.rxStaging) - (sock.rxTail - sock.rxHead)
	if need > free {
		logCard.Debugf("socket %d: MACRAW RX staging full, dropping %d-byte frame", n, need)
		return
	}

	push := func(b byte) {
		sock.rxStaging[sock.rxTail%len(sock.rxStaging)] = b
		sock.rxTail++
	}
	prefixed := uint16(2 + len(frame))
	push(hi(prefixed))
	push(lo(prefixed))
	for _, b := range frame {
		push(b)
	}
}
