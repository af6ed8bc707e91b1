package netcard

const (
	tcpFlagFIN = 0x01
	tcpFlagSYN = 0x02
	tcpFlagRST = 0x04
	tcpFlagPSH = 0x08
	tcpFlagACK = 0x10

	// tcpInitialSeq is the fixed initial sequence number the virtual
	// terminator uses for every flow, matching the original's
	// our_seq = 12345.
	tcpInitialSeq = 12345
)

// handleTCPFrame is the virtual TCP terminator's entry point. It
// supports a single live flow: a new SYN replaces whatever flow is in
// progress. Once established, segments are forwarded to (and
// responses synthesized from) a real host TCP socket dialed at the
// redirected destination.
func (c *Card) handleTCPFrame(n int, frame []byte, tcp []byte) {
	if len(tcp) < 20 {
		return
	}
	dataOff := int(tcp[12]>>4) * 4
	if dataOff < 20 || len(tcp) < dataOff {
		return
	}
	flags := tcp[13]
	srcPort := word(tcp[0], tcp[1])
	dstPort := word(tcp[2], tcp[3])
	seq := beUint32(tcp[4:8])
	ack := beUint32(tcp[8:12])
	payload := tcp[dataOff:]

	ip := frame[14:]
	var srcIP, dstIP [4]byte
	copy(srcIP[:], ip[12:16])
	copy(dstIP[:], ip[16:20])

	switch {
	case flags&tcpFlagSYN != 0:
		c.startVirtualTCP(n, frame, srcIP, srcPort, dstIP, dstPort, seq)
	case c.virtualTCP != nil && c.virtualTCP.remotePort == srcPort && c.virtualTCP.localPort == dstPort:
		c.continueVirtualTCP(n, flags, seq, ack, payload)
	}
}

func (c *Card) startVirtualTCP(n int, frame []byte, srcIP [4]byte, srcPort uint16, dstIP [4]byte, dstPort uint16, clientSeq uint32) {
	if c.virtualTCP != nil {
		closeHostHandle(c.virtualTCP.fd)
		c.virtualTCP = nil
	}

	var remoteMAC [6]byte
	copy(remoteMAC[:], frame[6:12])

	fd, err := newStreamSocket()
	if err != nil {
		logCard.Infof("virtual TCP: socket() failed: %v", err)
		return
	}
	target := redirect(dstIP)
	established, err := connectNonblocking(fd, target, dstPort)
	if err != nil {
		logCard.Infof("virtual TCP: connect to %d.%d.%d.%d:%d failed: %v", target[0], target[1], target[2], target[3], dstPort, err)
		c.injectTCPResponse(n, remoteMAC, srcIP, srcPort, dstIP, dstPort, 0, clientSeq+1, tcpFlagRST|tcpFlagACK, nil)
		hostClose(fd)
		return
	}
	if !established {
		// Give the loopback redirect a brief window to finish connecting
		// synchronously; this mirrors how quickly 127.0.0.1 connects
		// resolve in practice and keeps the flow setup single-shot.
		if pollWritable(fd, 100) && socketError(fd) == 0 {
			established = true
		}
	}
	if !established {
		logCard.Infof("virtual TCP: connect to %d.%d.%d.%d:%d did not complete", target[0], target[1], target[2], target[3], dstPort)
		c.injectTCPResponse(n, remoteMAC, srcIP, srcPort, dstIP, dstPort, 0, clientSeq+1, tcpFlagRST|tcpFlagACK, nil)
		hostClose(fd)
		return
	}

	flow := &tcpFlow{
		fd:          fd,
		remoteMAC:   remoteMAC,
		remoteIP:    srcIP,
		localIP:     dstIP,
		remotePort:  srcPort,
		localPort:   dstPort,
		ourSeq:      tcpInitialSeq,
		theirSeq:    clientSeq + 1,
		established: false,
	}
	c.virtualTCP = flow
	c.injectTCPResponse(n, remoteMAC, srcIP, srcPort, dstIP, dstPort, flow.ourSeq, flow.theirSeq, tcpFlagSYN|tcpFlagACK, nil)
	flow.ourSeq++
	logCard.Infof("virtual TCP: SYN-ACK sent for port %d", srcPort)
}

func (c *Card) continueVirtualTCP(n int, flags byte, seq, ack uint32, payload []byte) {
	flow := c.virtualTCP
	if flow == nil {
		return
	}

	if flags&tcpFlagACK != 0 && !flow.established {
		flow.established = true
	}
	if flags&tcpFlagRST != 0 {
		c.teardownVirtualTCP(n)
		return
	}

	if len(payload) > 0 {
		if _, err := hostSend(flow.fd, payload); err != nil {
			logCard.Debugf("virtual TCP: write to host socket failed: %v", err)
		}
		flow.theirSeq += uint32(len(payload))
		c.injectTCPResponse(n, flow.remoteMAC, flow.remoteIP, flow.remotePort, flow.localIP, flow.localPort,
			flow.ourSeq, flow.theirSeq, tcpFlagACK, nil)
	}

	if flags&tcpFlagFIN != 0 {
		flow.theirSeq++
		flow.finReceived = true
		c.injectTCPResponse(n, flow.remoteMAC, flow.remoteIP, flow.remotePort, flow.localIP, flow.localPort,
			flow.ourSeq, flow.theirSeq, tcpFlagACK, nil)
		if !flow.finSent {
			flow.ourSeq++
			flow.finSent = true
			c.injectTCPResponse(n, flow.remoteMAC, flow.remoteIP, flow.remotePort, flow.localIP, flow.localPort,
				flow.ourSeq, flow.theirSeq, tcpFlagFIN|tcpFlagACK, nil)
		}
		if flow.finReceived {
			closeHostHandle(flow.fd)
			c.virtualTCP = nil
		}
	}
}

func (c *Card) teardownVirtualTCP(n int) {
	if c.virtualTCP == nil {
		return
	}
	closeHostHandle(c.virtualTCP.fd)
	c.virtualTCP = nil
}

// virtualTCPPoll drains bytes from the bridged host socket and
// forwards them to the client as TCP segments, and notices when the
// host side has closed so a FIN can be synthesized.
func (c *Card) virtualTCPPoll(n int) {
	flow := c.virtualTCP
	if flow == nil || !flow.established {
		return
	}

	for pollReadable(flow.fd, 0) {
		buf := make([]byte, 1460)
		got, err := hostRecv(flow.fd, buf)
		if err != nil {
			return
		}
		if got == 0 {
			if !flow.finSent {
				flow.ourSeq++
				flow.finSent = true
				c.injectTCPResponse(n, flow.remoteMAC, flow.remoteIP, flow.remotePort, flow.localIP, flow.localPort,
					flow.ourSeq, flow.theirSeq, tcpFlagFIN|tcpFlagACK, nil)
			}
			return
		}
		payload := buf[:got]
		c.injectTCPResponse(n, flow.remoteMAC, flow.remoteIP, flow.remotePort, flow.localIP, flow.localPort,
			flow.ourSeq, flow.theirSeq, tcpFlagPSH|tcpFlagACK, payload)
		flow.ourSeq += uint32(got)
	}
}

func (c *Card) injectTCPResponse(n int, dstMAC [6]byte, dstIP [4]byte, dstPort uint16, srcIP [4]byte, srcPort uint16,
	seq, ack uint32, flags byte, payload []byte) {

	tcp := make([]byte, 20+len(payload))
	tcp[0], tcp[1] = hi(srcPort), lo(srcPort)
	tcp[2], tcp[3] = hi(dstPort), lo(dstPort)
	putBeUint32(tcp[4:8], seq)
	putBeUint32(tcp[8:12], ack)
	tcp[12] = 5 << 4 // data offset, no options
	tcp[13] = flags
	tcp[14], tcp[15] = 0xFF, 0xFF // window
	copy(tcp[20:], payload)

	sum := tcpChecksum(srcIP, dstIP, tcp)
	tcp[16] = byte(sum >> 8)
	tcp[17] = byte(sum)

	ip := buildIPv4Header(srcIP, dstIP, ipProtoTCP, len(tcp))
	ip = append(ip, tcp...)

	frame := make([]byte, 14+len(ip))
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], virtualGatewayMAC[:])
	frame[12], frame[13] = 0x08, 0x00
	copy(frame[14:], ip)

	c.injectMACRAWFrame(n, frame)
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBeUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
