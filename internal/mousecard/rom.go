package mousecard

const (
	romSize  = 2048
	romPages = 8
	pageSize = 256
)

// candidateROMPaths are tried in order when cfg.MouseROMPaths is empty;
// callers normally supply their own list via config.
var candidateROMPaths = []string{
	"roms/cards/mouse.rom",
	"../roms/cards/mouse.rom",
}

// loadROM tries each path in order, returning the first ROM that reads
// back exactly romSize bytes. If none succeed it falls back to a
// synthesized minimal ROM that answers every firmware entry point with
// RTS, so a mouse-unaware disk still boots.
func loadROM(paths []string, readFile func(string) ([]byte, error)) [romSize]byte {
	for _, p := range paths {
		data, err := readFile(p)
		if err != nil || len(data) != romSize {
			continue
		}
		var rom [romSize]byte
		copy(rom[:], data)
		return rom
	}
	return minimalROM()
}

// minimalROM synthesizes just enough ROM to pass a card-detection
// probe and return harmlessly from every entry point: the signature
// bytes at 0x05/0x07/0x0B/0x0C/0xFB, and RTS (0x60) at each of the
// firmware's published vectors.
func minimalROM() [romSize]byte {
	var rom [romSize]byte

	rom[0x05] = 0x38
	rom[0x07] = 0x18
	rom[0x0B] = 0x01
	rom[0x0C] = 0x20
	rom[0xFB] = 0xD6

	for _, off := range []int{0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1C} {
		rom[off] = 0x60 // RTS
	}

	return rom
}
