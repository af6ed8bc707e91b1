package netcard

const (
	dhcpDiscover = 1
	dhcpOffer    = 2
	dhcpRequest  = 3
	dhcpAck      = 5

	dhcpLeaseSeconds = 86400
	dhcpMinFrameLen  = 300
)

var dhcpMagicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

// handleDHCP advances the virtual DHCP responder. payload is the BOOTP
// message that follows the UDP header (client port 68, server port
// 67 was already confirmed by the caller).
func (c *Card) handleDHCP(n int, frame []byte, payload []byte) {
	if len(payload) < 240 {
		return
	}
	if payload[0] != 1 { // BOOTREQUEST
		return
	}

	var xid [4]byte
	copy(xid[:], payload[4:8])
	var chaddr [6]byte
	copy(chaddr[:], payload[28:34])

	msgType, ok := dhcpOption(payload[236:], 53)
	if !ok || len(msgType) != 1 {
		return
	}

	switch msgType[0] {
	case dhcpDiscover:
		c.dhcpState = dhcpDiscoverSeen
		c.dhcpXID = xid
		c.clientMAC = chaddr
		logCard.Infof("socket %d: DHCP DISCOVER from %02x:%02x:%02x:%02x:%02x:%02x", n,
			chaddr[0], chaddr[1], chaddr[2], chaddr[3], chaddr[4], chaddr[5])
		c.injectMACRAWFrame(n, buildDHCPReply(chaddr, xid, dhcpOffer))
		c.dhcpState = dhcpOfferSent
	case dhcpRequest:
		c.dhcpState = dhcpRequestSeen
		c.dhcpXID = xid
		c.clientMAC = chaddr
		logCard.Infof("socket %d: DHCP REQUEST from %02x:%02x:%02x:%02x:%02x:%02x", n,
			chaddr[0], chaddr[1], chaddr[2], chaddr[3], chaddr[4], chaddr[5])
		c.injectMACRAWFrame(n, buildDHCPReply(chaddr, xid, dhcpAck))
		c.dhcpState = dhcpComplete
		c.updateIPRegistersFromLease()
	}
}

// dhcpOption scans a DHCP options area, which must begin with the
// magic cookie, for the tag. It stops at the end-of-options tag (255)
// or a short read.
func dhcpOption(options []byte, tag byte) ([]byte, bool) {
	if len(options) < 4 || options[0] != dhcpMagicCookie[0] || options[1] != dhcpMagicCookie[1] ||
		options[2] != dhcpMagicCookie[2] || options[3] != dhcpMagicCookie[3] {
		return nil, false
	}
	i := 4
	for i < len(options) {
		t := options[i]
		if t == 255 {
			break
		}
		if t == 0 {
			i++
			continue
		}
		if i+1 >= len(options) {
			break
		}
		l := int(options[i+1])
		if i+2+l > len(options) {
			break
		}
		if t == tag {
			return options[i+2 : i+2+l], true
		}
		i += 2 + l
	}
	return nil, false
}

func buildDHCPReply(chaddr [6]byte, xid [4]byte, msgType byte) []byte {
	bootp := make([]byte, 236)
	bootp[0] = 2 // BOOTREPLY
	bootp[1] = 1 // htype: ethernet
	bootp[2] = 6 // hlen
	copy(bootp[4:8], xid[:])
	copy(bootp[16:20], virtualClientIP[:]) // yiaddr
	copy(bootp[20:24], virtualServerIP[:]) // siaddr
	copy(bootp[28:34], chaddr[:])

	opts := []byte{}
	opts = append(opts, dhcpMagicCookie[:]...)
	opts = append(opts, 53, 1, msgType)
	opts = append(opts, 1, 4)
	opts = append(opts, virtualSubnet[:]...)
	opts = append(opts, 3, 4)
	opts = append(opts, virtualGateway[:]...)
	opts = append(opts, 6, 4)
	opts = append(opts, virtualDNS[:]...)
	lease := uint32(dhcpLeaseSeconds)
	leaseBytes := [4]byte{
		byte(lease >> 24), byte(lease >> 16),
		byte(lease >> 8), byte(lease),
	}
	opts = append(opts, 51, 4)
	opts = append(opts, leaseBytes[:]...)
	opts = append(opts, 54, 4)
	opts = append(opts, virtualServerIP[:]...)
	opts = append(opts, 255)

	bootp = append(bootp, opts...)
	if len(bootp) < dhcpMinFrameLen {
		bootp = append(bootp, make([]byte, dhcpMinFrameLen-len(bootp))...)
	}

	udpPayload := bootp
	udp := make([]byte, 8+len(udpPayload))
	udp[0], udp[1] = 0x00, 0x43 // src port 67
	udp[2], udp[3] = 0x00, 0x44 // dst port 68
	udp[4] = byte(len(udp) >> 8)
	udp[5] = byte(len(udp))
	copy(udp[8:], udpPayload)

	dstIP := [4]byte{255, 255, 255, 255}
	dstMAC := [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if msgType == dhcpAck {
		dstIP = virtualClientIP
		dstMAC = chaddr
	}

	ip := buildIPv4Header(virtualServerIP, dstIP, ipProtoUDP, len(udp))
	ip = append(ip, udp...)

	frame := make([]byte, 14+len(ip))
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], virtualGatewayMAC[:])
	frame[12], frame[13] = 0x08, 0x00
	copy(frame[14:], ip)

	return frame
}

func (c *Card) updateIPRegistersFromLease() {
	copy(c.memory[regSIPR:], virtualClientIP[:])
	copy(c.memory[regGAR:], virtualGateway[:])
	copy(c.memory[regSUBR:], virtualSubnet[:])
	logCard.Infof("DHCP lease applied: ip=%d.%d.%d.%d", virtualClientIP[0], virtualClientIP[1], virtualClientIP[2], virtualClientIP[3])
}

// buildIPv4Header returns a 20-byte IPv4 header (no options) with
// checksum filled in, sized for a payload of payloadLen bytes.
func buildIPv4Header(src, dst [4]byte, proto byte, payloadLen int) []byte {
	h := make([]byte, 20)
	h[0] = 0x45 // version 4, IHL 5
	h[1] = 0x00
	total := 20 + payloadLen
	h[2] = byte(total >> 8)
	h[3] = byte(total)
	h[4], h[5] = 0, 0 // identification
	h[6], h[7] = 0, 0 // flags/fragment
	h[8] = 64         // TTL
	h[9] = proto
	h[10], h[11] = 0, 0 // checksum, filled below
	copy(h[12:16], src[:])
	copy(h[16:20], dst[:])

	sum := internetChecksum(h)
	h[10] = byte(sum >> 8)
	h[11] = byte(sum)
	return h
}
