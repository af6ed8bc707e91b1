package netcard

// W5100 internal memory map. Addresses are offsets into Card.memory.
const (
	regMR    = 0x0000 // Mode Register
	regGAR   = 0x0001 // Gateway Address (4 bytes)
	regSUBR  = 0x0005 // Subnet Mask (4 bytes)
	regSHAR  = 0x0009 // Source Hardware Address / MAC (6 bytes)
	regSIPR  = 0x000F // Source IP Address (4 bytes)
	regRTR   = 0x0017 // Retry Time (2 bytes)
	regRCR   = 0x0019 // Retry Count
	regRMSR  = 0x001A // RX Memory Size
	regTMSR  = 0x001B // TX Memory Size
	regPPTLR = 0x0028 // PPP LCP Request Timer; 0 identifies the emulated card
)

// Per-socket register base addresses and offsets within a socket's
// 256-byte register page.
const (
	socketBase = 0x0400
	socketSize = 0x0100

	snMR     = 0x00 // Socket Mode
	snCR     = 0x01 // Socket Command
	snIR     = 0x02 // Socket Interrupt
	snSR     = 0x03 // Socket Status
	snPORT   = 0x04 // Source Port (2 bytes)
	snDHAR   = 0x06 // Destination Hardware Address (6 bytes)
	snDIPR   = 0x0C // Destination IP (4 bytes)
	snDPORT  = 0x10 // Destination Port (2 bytes)
	snTTL    = 0x16 // Time to Live
	snTXFSR  = 0x20 // TX Free Size (2 bytes, computed on read)
	snTXRD   = 0x22 // TX Read Pointer (2 bytes)
	snTXWR   = 0x24 // TX Write Pointer (2 bytes)
	snRXRSR  = 0x26 // RX Received Size (2 bytes, computed on read)
	snRXRD   = 0x28 // RX Read Pointer (2 bytes)
)

// Socket modes (Sn_MR).
const (
	modeClose  = 0x00
	modeTCP    = 0x01
	modeUDP    = 0x02
	modeIPRAW  = 0x03
	modeMACRAW = 0x04
)

// Socket commands (Sn_CR).
const (
	cmdOpen    = 0x01
	cmdListen  = 0x02
	cmdConnect = 0x04
	cmdDiscon  = 0x08
	cmdClose   = 0x10
	cmdSend    = 0x20
	cmdRecv    = 0x40
)

// Socket status (Sn_SR).
const (
	statusClosed      = 0x00
	statusInit        = 0x13
	statusListen      = 0x14
	statusSynSent     = 0x15
	statusSynRecv     = 0x16
	statusEstablished = 0x17
	statusFinWait     = 0x18
	statusClosing     = 0x1A
	statusTimeWait    = 0x1B
	statusCloseWait   = 0x1C
	statusLastAck     = 0x1D
	statusUDP         = 0x22
	statusIPRaw       = 0x32
	statusMACRAW      = 0x42
)

// TX/RX buffer windows (default: 2KiB per socket, 4 sockets each).
const (
	txBase     = 0x4000
	txSize     = 0x2000
	rxBase     = 0x6000
	rxSize     = 0x2000
	sockBufLen = 0x0800 // 2KiB per socket
	sockMask   = sockBufLen - 1
)

// Apple II soft-switch offsets for the W5100's indirect-access window:
// slot n exposes Mode/AddrHi/AddrLo/Data at $C0n4..$C0n7.
const (
	swMode   = 0x04
	swAddrHi = 0x05
	swAddrLo = 0x06
	swData   = 0x07
)

// Mode register bits.
const (
	mrRST = 0x80 // Reset
	mrAI  = 0x02 // Address auto-increment
)

func socketRegBase(n int) uint16 { return socketBase + uint16(n)*socketSize }
func socketTXBase(n int) uint16  { return txBase + uint16(n)*sockBufLen }
func socketRXBase(n int) uint16  { return rxBase + uint16(n)*sockBufLen }

func hi(w uint16) byte { return byte(w >> 8) }
func lo(w uint16) byte { return byte(w) }
func word(h, l byte) uint16 { return uint16(h)<<8 | uint16(l) }
