package netcard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInternetChecksum_KnownVector(t *testing.T) {
	// A minimal IPv4 header with checksum zeroed; computed checksum
	// should make the header sum to 0xFFFF when re-verified.
	header := []byte{
		0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00,
		0x40, 0x06, 0x00, 0x00, 0xac, 0x10, 0x0a, 0x63,
		0xac, 0x10, 0x0a, 0x0c,
	}
	sum := internetChecksum(header)
	header[10] = byte(sum >> 8)
	header[11] = byte(sum)

	verify := internetChecksum(header)
	if verify != 0xFFFF {
		t.Errorf("checksum self-verification = 0x%04x, want 0xffff", verify)
	}
}

func TestBuildARPReply_AnswersGatewayRequest(t *testing.T) {
	requester := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	requesterIP := [4]byte{192, 168, 65, 100}

	reply := buildARPReply(requester, requesterIP)

	if len(reply) != 14+28 {
		t.Fatalf("reply length = %d, want 42", len(reply))
	}
	if got := reply[0:6]; !cmp.Equal(got, requester[:]) {
		t.Errorf("dest MAC = %x, want %x", got, requester)
	}
	if got := reply[6:12]; !cmp.Equal(got, virtualGatewayMAC[:]) {
		t.Errorf("src MAC = %x, want %x", got, virtualGatewayMAC)
	}
	if op := word(reply[20], reply[21]); op != 2 {
		t.Errorf("ARP op = %d, want 2 (reply)", op)
	}
	if got := reply[28:32]; !cmp.Equal(got, virtualGateway[:]) {
		t.Errorf("ARP sender IP = %x, want %x", got, virtualGateway)
	}
}

func TestHandleARPFrame_InjectsReplyForGatewayQuery(t *testing.T) {
	c := NewCard(3)
	base := int(socketRegBase(0))
	c.memory[base+snMR] = modeMACRAW
	c.sockets[0].macraw = true

	frame := make([]byte, 14+28)
	copy(frame[0:6], virtualGatewayMAC[:]) // broadcast in practice; MAC irrelevant for dispatch
	copy(frame[6:12], []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	frame[12], frame[13] = 0x08, 0x06

	arp := frame[14:]
	arp[6], arp[7] = 0x00, 0x01 // request
	copy(arp[8:14], []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	copy(arp[14:18], []byte{192, 168, 65, 100})
	copy(arp[24:28], virtualGateway[:])

	c.handleARPFrame(0, frame)

	if c.sockets[0].rxTail == 0 {
		t.Fatal("expected an ARP reply to be staged in socket 0's RX buffer")
	}
}

func TestDHCPOption_FindsTagAndRespectsCookie(t *testing.T) {
	opts := append([]byte{}, dhcpMagicCookie[:]...)
	opts = append(opts, 53, 1, dhcpDiscover, 255)

	got, ok := dhcpOption(opts, 53)
	if !ok || len(got) != 1 || got[0] != dhcpDiscover {
		t.Fatalf("dhcpOption(53) = %v, %v, want [%d], true", got, ok, dhcpDiscover)
	}

	if _, ok := dhcpOption(opts, 12); ok {
		t.Error("dhcpOption(12) found a tag that was never present")
	}

	bad := append([]byte{0, 0, 0, 0}, opts[4:]...)
	if _, ok := dhcpOption(bad, 53); ok {
		t.Error("dhcpOption should refuse options without the magic cookie")
	}
}

func TestBuildDHCPReply_PaddedAndTaggedWithMessageType(t *testing.T) {
	chaddr := [6]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}
	xid := [4]byte{1, 2, 3, 4}

	frame := buildDHCPReply(chaddr, xid, dhcpOffer)

	if len(frame) < dhcpMinFrameLen {
		t.Errorf("DHCP reply frame len = %d, want >= %d", len(frame), dhcpMinFrameLen)
	}

	bootp := frame[14+20+8:]
	msgType, ok := dhcpOption(bootp[236:], 53)
	if !ok || msgType[0] != dhcpOffer {
		t.Errorf("reply message type = %v, %v, want [%d] true", msgType, ok, dhcpOffer)
	}

	gotXID := bootp[4:8]
	if !cmp.Equal([]byte(gotXID), xid[:]) {
		t.Errorf("xid = %x, want %x", gotXID, xid)
	}
}
