package netcard

// command dispatches a write to Sn_CR (the socket command register).
// It mirrors socket_command: most commands act once and return to a
// quiescent status; OPEN/LISTEN/CONNECT move the socket into a state
// that socketPoll continues to drive on later bus reads.
func (c *Card) command(n int, cmd byte) {
	base := int(socketRegBase(n))
	mode := c.memory[base+snMR] & 0x0F

	switch cmd {
	case cmdOpen:
		c.doOpen(n, mode)
	case cmdListen:
		c.doListen(n)
	case cmdConnect:
		c.doConnect(n)
	case cmdDiscon:
		c.doDiscon(n)
	case cmdClose:
		c.doClose(n)
	case cmdSend:
		c.doSend(n, mode)
	case cmdRecv:
		c.doRecv(n)
	default:
		logCard.Debugf("socket %d: unknown command 0x%02x", n, cmd)
	}
}

func (c *Card) doOpen(n int, mode byte) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]

	closeHostHandle(sock.fd)
	*sock = socketState{fd: -1}

	switch mode {
	case modeTCP:
		fd, err := newStreamSocket()
		if err != nil {
			logCard.Infof("socket %d: open TCP failed: %v", n, err)
			return
		}
		sock.fd = fd
		c.memory[base+snSR] = statusInit
	case modeUDP:
		fd, err := newDgramSocket()
		if err != nil {
			logCard.Infof("socket %d: open UDP failed: %v", n, err)
			return
		}
		sock.fd = fd
		c.memory[base+snSR] = statusUDP
	case modeIPRAW:
		c.memory[base+snSR] = statusIPRaw
	case modeMACRAW:
		sock.macraw = true
		c.memory[base+snSR] = statusMACRAW
	default:
		logCard.Debugf("socket %d: open with unsupported mode 0x%02x", n, mode)
	}

	logCard.Infof("socket %d: opened, mode=0x%02x", n, mode)
}

func (c *Card) doListen(n int) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]
	if c.memory[base+snSR] != statusInit || sock.fd < 0 {
		return
	}

	port := word(c.memory[base+snPORT], c.memory[base+snPORT+1])
	if err := bindAndListen(sock.fd, port, 1); err != nil {
		logCard.Infof("socket %d: listen on port %d failed: %v", n, port, err)
		return
	}
	c.memory[base+snSR] = statusListen
	logCard.Infof("socket %d: listening on port %d", n, port)
}

func (c *Card) doConnect(n int) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]
	if c.memory[base+snSR] != statusInit || sock.fd < 0 {
		return
	}

	var dst [4]byte
	copy(dst[:], c.memory[base+snDIPR:base+snDIPR+4])
	dst = redirect(dst)
	port := word(c.memory[base+snDPORT], c.memory[base+snDPORT+1])

	established, err := connectNonblocking(sock.fd, dst, port)
	if err != nil {
		logCard.Infof("socket %d: connect failed: %v", n, err)
		c.memory[base+snSR] = statusClosed
		closeHostHandle(sock.fd)
		*sock = socketState{fd: -1}
		return
	}

	c.memory[base+snSR] = statusSynSent
	if established {
		c.memory[base+snSR] = statusEstablished
	} else {
		sock.connecting = true
	}
	logCard.Infof("socket %d: connecting to %d.%d.%d.%d:%d", n, dst[0], dst[1], dst[2], dst[3], port)
}

func (c *Card) doDiscon(n int) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]
	if sock.fd >= 0 {
		closeHostHandle(sock.fd)
	}
	*sock = socketState{fd: -1}
	c.memory[base+snSR] = statusClosed
}

func (c *Card) doClose(n int) {
	c.doDiscon(n)
}

func (c *Card) doSend(n int, mode byte) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]

	rd := word(c.memory[base+snTXRD], c.memory[base+snTXRD+1])
	wr := word(c.memory[base+snTXWR], c.memory[base+snTXWR+1])
	if rd == wr {
		return
	}

	bufBase := socketTXBase(n)
	data := extractRing(c.memory[:], bufBase, sockMask, rd, wr)

	if mode == modeMACRAW {
		c.handleMACRAWSend(n, data)
	} else if sock.fd >= 0 {
		if _, err := hostSend(sock.fd, data); err != nil {
			logCard.Debugf("socket %d: send failed: %v", n, err)
		}
	}

	c.memory[base+snTXRD] = hi(wr)
	c.memory[base+snTXRD+1] = lo(wr)
	c.memory[base+snIR] |= 0x10 // SEND_OK
}

func (c *Card) doRecv(n int) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]

	var size uint16
	if sock.macraw {
		size = uint16(sock.rxTail - sock.rxHead)
	} else {
		size = uint16((sock.rxTail - sock.rxHead) & sockMask)
	}
	if size == 0 {
		return
	}

	rd := word(c.memory[base+snRXRD], c.memory[base+snRXRD+1])
	rd += size
	c.memory[base+snRXRD] = hi(rd)
	c.memory[base+snRXRD+1] = lo(rd)
	sock.rxHead = sock.rxTail
}

// extractRing copies the ring span [rd, wr) in a buffer of length
// mask+1 starting at base, handling wraparound.
func extractRing(mem []byte, base uint16, mask uint16, rd, wr uint16) []byte {
	n := int(wr - rd)
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		off := (rd + uint16(i)) & mask
		out[i] = mem[int(base)+int(off)]
	}
	return out
}

// socketPoll advances socket n's asynchronous state: completing
// in-flight connects, accepting pending listeners, and draining any
// host-readable bytes into the socket's RX buffer window; for a MACRAW
// socket it runs the virtual TCP poll instead. It is called lazily,
// from every bus read of one of the socket's registers (Sn_SR,
// Sn_RX_RSR, Sn_TX_FSR and the rest of its page) rather than on a
// timer; reads of the RX data window do not poll.
func (c *Card) socketPoll(n int) {
	base := int(socketRegBase(n))
	sock := &c.sockets[n]
	if sock.macraw {
		c.virtualTCPPoll(n)
		return
	}
	if sock.fd < 0 {
		return
	}

	switch c.memory[base+snSR] {
	case statusSynSent:
		if sock.connecting {
			if pollWritable(sock.fd, 0) {
				if errno := socketError(sock.fd); errno != 0 {
					logCard.Infof("socket %d: connect failed, errno=%d", n, errno)
					c.doDiscon(n)
					return
				}
				sock.connecting = false
				c.memory[base+snSR] = statusEstablished
				logCard.Infof("socket %d: established", n)
			}
		}
	case statusListen:
		if pollReadable(sock.fd, 0) {
			nfd, err := acceptNonblocking(sock.fd)
			if err == nil {
				closeHostHandle(sock.fd)
				sock.fd = nfd
				c.memory[base+snSR] = statusEstablished
				logCard.Infof("socket %d: accepted connection", n)
			}
		}
	case statusEstablished, statusCloseWait:
		c.pollReadableSocket(n)
	}
}

func (c *Card) pollReadableSocket(n int) {
	sock := &c.sockets[n]
	base := int(socketRegBase(n))

	for pollReadable(sock.fd, 0) {
		free := sockBufLen - (sock.rxTail - sock.rxHead)
		if free <= 0 {
			break
		}
		tmp := make([]byte, minInt(free, 1500))
		n2, err := hostRecv(sock.fd, tmp)
		if err != nil {
			logCard.Debugf("socket %d: recv error: %v", n, err)
			break
		}
		if n2 == 0 {
			if c.memory[base+snSR] == statusEstablished {
				c.memory[base+snSR] = statusCloseWait
				logCard.Infof("socket %d: peer closed", n)
			}
			break
		}
		for i := 0; i < n2; i++ {
			off := sock.rxTail & sockMask
			c.memory[int(socketRXBase(n))+off] = tmp[i]
			sock.rxTail++
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
