package ttble

// FileID identifies a device file. It is a 24-bit unsigned value; the top
// 8 bits must always be zero.
type FileID uint32

// Well-known file IDs from the device's namespace (§6).
const (
	FileStatus      FileID = 0x00020002 // short UTF-8 progress string
	FilePreferences FileID = 0x00f20000
	FileActivityBase FileID = 0x00910000
	FileAssistance  FileID = 0x00010100
	filePairingRegistryBase FileID = 0x000f0000 // informational: available pairing codes
	filePairingCodeBase     FileID = 0x000f2000 // informational: per-pair codes
)

// Valid reports whether the top byte of the id is zero.
func (f FileID) Valid() bool {
	return f&0xff000000 == 0
}

// wireBytes returns the 3 command-suffix bytes for this file id, in the
// device's on-wire order: the natural little-endian triplet (byte0, byte1,
// byte2) of a 0x00AABBCC id is transmitted as (byte2, byte0, byte1), i.e.
// wire bytes [AA, CC, BB]. Expressed from the 24-bit value alone: high,
// low, mid.
func (f FileID) wireBytes() [3]byte {
	high := byte(f >> 16)
	mid := byte(f >> 8)
	low := byte(f)
	return [3]byte{high, low, mid}
}

// fileIDFromSubOffset combines a base file id's high byte (bits 16-23) with a 16-bit
// list offset, per the corrected (parenthesized) form of the list_sub_files
// arithmetic: (base & 0x00ff0000) + offset.
func fileIDFromSubOffset(base FileID, offset uint16) FileID {
	return (base & 0x00ff0000) + FileID(offset)
}

// opcode identifies the operation carried by a Command.
type opcode uint8

const (
	opWrite  opcode = 0
	opRead   opcode = 1
	opList   opcode = 3
	opDelete opcode = 4
)

// command builds the 4-byte on-wire command packet for op against fileID.
func command(op opcode, fileID FileID) ([4]byte, error) {
	if !fileID.Valid() {
		return [4]byte{}, ErrInvalidFileID
	}
	w := fileID.wireBytes()
	return [4]byte{byte(op), w[0], w[1], w[2]}, nil
}
