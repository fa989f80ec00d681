package ttbletest

import (
	"encoding/binary"

	"github.com/dlenski/ttble-sync/ttble"
)

// crc16Modbus is a private re-implementation of the production CRC used
// only to build test fixtures, so fixture construction does not depend on
// (and so cannot mask a bug in) ttble.CRC16Modbus.
func crc16Modbus(data []byte) uint16 {
	v := uint16(0xFFFF)
	for _, b := range data {
		v ^= uint16(b)
		for i := 0; i < 8; i++ {
			if v&1 != 0 {
				v = (v >> 1) ^ 0xA001
			} else {
				v >>= 1
			}
		}
	}
	return v
}

const (
	mtu    = 20
	window = 256*mtu - 2
)

// BuildReadScript builds the full notification sequence a device would
// emit to serve read_file(data): a command accept on 0x25, a length
// notification on 0x28, one window of 0x2b data chunks per started 5118
// bytes (none for empty data), each closed by a correct CRC trailer, then
// the terminal 0x25/0 ack. Used to drive ReadFile end to end in tests
// without committing test fixtures to the production CRC implementation.
func BuildReadScript(data []byte) []Notify {
	var out []Notify
	out = append(out, Notify{Handle: ttble.HandleCommand, Data: []byte{1}}) // send_command accepted

	lengthBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBytes, uint32(len(data)))
	out = append(out, Notify{Handle: ttble.HandleLength, Data: lengthBytes})

	for start := 0; start < len(data); start += window {
		end := start + window
		if end > len(data) {
			end = len(data)
		}
		windowBytes := data[start:end]
		trailer := make([]byte, 2)
		binary.LittleEndian.PutUint16(trailer, crc16Modbus(windowBytes))
		wire := append(append([]byte(nil), windowBytes...), trailer...)

		for j := 0; j < len(wire); j += mtu {
			e := j + mtu
			if e > len(wire) {
				e = len(wire)
			}
			out = append(out, Notify{Handle: ttble.HandleData, Data: wire[j:e]})
		}
	}

	out = append(out, Notify{Handle: ttble.HandleCommand, Data: []byte{0}})
	return out
}

// BuildWriteScript builds the notification sequence a device would emit
// while accepting write_file(length bytes, expectEnd): a command accept,
// one pacing echo per window (the final one only when expectEnd is true),
// then the terminal ack.
func BuildWriteScript(length int, expectEnd bool) []Notify {
	out := []Notify{{Handle: ttble.HandleCommand, Data: []byte{1}}}

	windows := 0
	if length > 0 {
		windows = (length + window - 1) / window
	}
	for w := 1; w <= windows; w++ {
		isFinal := w == windows
		if !isFinal || expectEnd {
			counter := make([]byte, 4)
			binary.LittleEndian.PutUint32(counter, uint32(w))
			out = append(out, Notify{Handle: ttble.HandlePacing, Data: counter})
		}
	}
	out = append(out, Notify{Handle: ttble.HandleCommand, Data: []byte{0}})
	return out
}
