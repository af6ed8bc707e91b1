package netcard

// handleARPFrame answers ARP requests for the virtual gateway. Any
// other ARP traffic (replies, requests for other targets) is ignored;
// there is nothing else alive on the virtual network to speak for.
func (c *Card) handleARPFrame(n int, frame []byte) {
	if len(frame) < 14+28 {
		return
	}
	arp := frame[14:]
	op := word(arp[6], arp[7])
	if op != 1 { // request
		return
	}

	var senderMAC [6]byte
	var senderIP, targetIP [4]byte
	copy(senderMAC[:], arp[8:14])
	copy(senderIP[:], arp[14:18])
	copy(targetIP[:], arp[24:28])

	if targetIP != virtualGateway {
		return
	}

	c.clientMAC = senderMAC
	reply := buildARPReply(senderMAC, senderIP)
	logCard.Infof("socket %d: answering ARP who-has %d.%d.%d.%d", n, targetIP[0], targetIP[1], targetIP[2], targetIP[3])
	c.injectMACRAWFrame(n, reply)
}

func buildARPReply(toMAC [6]byte, toIP [4]byte) []byte {
	frame := make([]byte, 14+28)

	copy(frame[0:6], toMAC[:])
	copy(frame[6:12], virtualGatewayMAC[:])
	frame[12] = 0x08
	frame[13] = 0x06

	arp := frame[14:]
	arp[0], arp[1] = 0x00, 0x01 // hw type: ethernet
	arp[2], arp[3] = 0x08, 0x00 // proto type: IPv4
	arp[4] = 6                 // hw len
	arp[5] = 4                 // proto len
	arp[6], arp[7] = 0x00, 0x02 // op: reply

	copy(arp[8:14], virtualGatewayMAC[:])
	copy(arp[14:18], virtualGateway[:])
	copy(arp[18:24], toMAC[:])
	copy(arp[24:28], toIP[:])

	return frame
}
