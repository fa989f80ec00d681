package ttble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileID_Valid(t *testing.T) {
	assert.True(t, FileID(0x00123456).Valid())
	assert.False(t, FileID(0xAA123456).Valid())
}

func TestCommand_WireEncoding(t *testing.T) {
	cmd, err := command(opRead, FileID(0x001234AB))
	require.NoError(t, err)
	assert.Equal(t, [4]byte{byte(opRead), 0x12, 0xAB, 0x34}, cmd)
}

func TestCommand_InvalidFileID(t *testing.T) {
	_, err := command(opRead, FileID(0xFF123456))
	assert.ErrorIs(t, err, ErrInvalidFileID)
}

func TestFileIDFromSubOffset(t *testing.T) {
	base := FileID(0x00910000)
	assert.Equal(t, FileID(0x00910001), fileIDFromSubOffset(base, 1))
	assert.Equal(t, FileID(0x00910002), fileIDFromSubOffset(base, 2))
}
