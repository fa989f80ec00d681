package ttble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlenski/ttble-sync/internal/ttbletest"
)

func TestNotification_IntegerDecoding(t *testing.T) {
	testCases := []struct {
		name   string
		data   []byte
		expect uint64
	}{
		{"1 byte", []byte{0x07}, 7},
		{"2 bytes", []byte{0x34, 0x12}, 0x1234},
		{"4 bytes", []byte{0x78, 0x56, 0x34, 0x12}, 0x12345678},
		{"8 bytes", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := NewTestNotification(HandleCommand, tc.data)
			v, ok := n.Integer()
			require.True(t, ok)
			assert.Equal(t, tc.expect, v)
		})
	}
}

func TestNotification_NoIntegerForArbitraryLength(t *testing.T) {
	n := NewTestNotification(HandleData, []byte{1, 2, 3})
	_, ok := n.Integer()
	assert.False(t, ok)
}

func TestNotification_NilIntegerIsFalse(t *testing.T) {
	var n *Notification
	v, ok := n.Integer()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), v)
}

func TestDemux_AwaitExpected_MatchesHandle(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandleLength, Data: []byte{10, 0, 0, 0}},
	})
	dx := newDemux(mock)

	n, err := dx.awaitExpected(context.Background(), expectHandle(HandleLength), time.Second)
	require.NoError(t, err)
	v, ok := n.Integer()
	require.True(t, ok)
	assert.Equal(t, uint64(10), v)
}

func TestDemux_AwaitExpected_HandleMismatch(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandleData, Data: []byte{1, 2}},
	})
	dx := newDemux(mock)

	_, err := dx.awaitExpected(context.Background(), expectHandle(HandleLength), time.Second)
	require.Error(t, err)
	var proto *ProtocolError
	assert.ErrorAs(t, err, &proto)
}

func TestDemux_AwaitExpected_IntegerMismatch(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandleCommand, Data: []byte{0}},
	})
	dx := newDemux(mock)

	_, err := dx.awaitExpected(context.Background(), expectInteger(HandleCommand, 1), time.Second)
	require.Error(t, err)
	var proto *ProtocolError
	assert.ErrorAs(t, err, &proto)
}

func TestDemux_AwaitExpected_Timeout(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Timeout: true},
	})
	dx := newDemux(mock)

	_, err := dx.awaitExpected(context.Background(), expectHandle(HandleCommand), time.Second)
	require.Error(t, err)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, HandleCommand, timeout.Handle)
}

func TestDemux_AwaitExpected_DataMismatch(t *testing.T) {
	mock := ttbletest.New([]ttbletest.Notify{
		{Handle: HandlePairingCode, Data: []byte{0xde, 0xad}},
	})
	dx := newDemux(mock)

	exp := expectation{data: []byte{0xbe, 0xef}}
	_, err := dx.awaitExpected(context.Background(), exp, time.Second)
	require.Error(t, err)
	var proto *ProtocolError
	assert.ErrorAs(t, err, &proto)
}
