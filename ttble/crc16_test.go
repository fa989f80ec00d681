package ttble

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16Modbus_Vectors(t *testing.T) {
	var testCases = []struct {
		name   string
		given  []byte
		expect uint16
	}{
		{name: "ascii 123456789", given: []byte("123456789"), expect: 0x4B37},
		{name: "empty input", given: []byte{}, expect: 0xFFFF},
		{name: "raw bytes", given: []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, expect: 0xC5CD},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CRC16Modbus(tc.given))
		})
	}
}

func TestCRC16_ClosureProperty(t *testing.T) {
	var testCases = [][]byte{
		[]byte("123456789"),
		{},
		{0x00},
		{0xff, 0xff, 0xff, 0xff},
		[]byte("the quick brown fox jumps over the lazy dog"),
	}
	for _, data := range testCases {
		digest := CRC16Modbus(data)
		trailer := make([]byte, 2)
		binary.LittleEndian.PutUint16(trailer, digest)

		c := NewCRC16()
		c.Update(data)
		c.Update(trailer)
		assert.Equal(t, uint16(0), c.Digest(), "crc(data||crc(data).le) must be zero")
	}
}

func TestCRC16_StreamingMatchesOneShot(t *testing.T) {
	data := []byte("streamed in pieces across several chunk boundaries")
	c := NewCRC16()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		c.Update(data[i:end])
	}
	assert.Equal(t, CRC16Modbus(data), c.Digest())
}

func TestCRC16_Reset(t *testing.T) {
	c := NewCRC16()
	c.Update([]byte("abc"))
	assert.NotEqual(t, uint16(0xFFFF), c.Digest())
	c.Reset()
	assert.Equal(t, uint16(0xFFFF), c.Digest())
}
