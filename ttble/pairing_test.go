package ttble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlenski/ttble-sync/internal/ttbletest"
)

func TestPair_ExistingPairing_WriteOrder(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandlePairingCode, Data: []byte{1, 0, 0, 0}},
	})
	engine := NewEngine(mock, Config{sleepFunc: noSleep})

	err := engine.Pair(context.Background(), ExistingPairing, 12345)
	require.NoError(t, err)

	require.Len(t, mock.Writes, 4)
	assert.Equal(t, HandleInitA, mock.Writes[0].Handle)
	assert.Equal(t, HandleInitB, mock.Writes[1].Handle)
	assert.Equal(t, HandleNotifyEnAlt, mock.Writes[2].Handle)
	assert.Equal(t, HandlePairingCode, mock.Writes[3].Handle)
	assert.Equal(t, []byte{0x39, 0x30, 0x00, 0x00}, mock.Writes[3].Payload)
}

func TestPair_NewPairing_WriteOrder(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandlePairingCode, Data: []byte{1, 0, 0, 0}},
	})
	engine := NewEngine(mock, Config{sleepFunc: noSleep})

	err := engine.Pair(context.Background(), NewPairing, 1)
	require.NoError(t, err)

	require.Len(t, mock.Writes, 7)
	wantOrder := []Handle{
		HandleInitA,
		HandleNotifyEnAlt,
		HandlePairingDesc3,
		HandlePairingDesc,
		HandlePairingDesc2,
		HandleInitB,
		HandlePairingCode,
	}
	for i, h := range wantOrder {
		assert.Equal(t, h, mock.Writes[i].Handle, "write %d", i)
	}
}

func TestPair_RejectedResponse(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandlePairingCode, Data: []byte{0, 0, 0, 0}},
	})
	engine := NewEngine(mock, Config{sleepFunc: noSleep})

	err := engine.Pair(context.Background(), ExistingPairing, 1)
	require.Error(t, err)
	var rejected *PairingRejected
	require.ErrorAs(t, err, &rejected)
	require.NotNil(t, rejected.Response)
	assert.Equal(t, uint64(0), *rejected.Response)
}

func TestPair_Timeout(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Timeout: true},
	})
	engine := NewEngine(mock, Config{sleepFunc: noSleep})

	err := engine.Pair(context.Background(), ExistingPairing, 1)
	require.Error(t, err)
	var timeout *TimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestPair_UnknownMode(t *testing.T) {
	mock := ttbletest.New(nil)
	engine := NewEngine(mock, Config{sleepFunc: noSleep})

	err := engine.Pair(context.Background(), PairingMode(99), 1)
	require.Error(t, err)
	var proto *ProtocolError
	assert.ErrorAs(t, err, &proto)
}
