package ttble

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// Notification is a single BLE notification observed on some handle.
type Notification struct {
	Handle Handle
	Data   []byte

	// hasInteger/integer cache the decoded little-endian integer form,
	// defined only when len(Data) is 1, 2, 4 or 8.
	hasInteger bool
	integer    uint64
}

// newNotification builds a Notification, eagerly decoding the integer form
// when the payload length permits it.
func newNotification(handle Handle, data []byte) *Notification {
	n := &Notification{Handle: handle, Data: data}
	switch len(data) {
	case 1:
		n.integer = uint64(data[0])
		n.hasInteger = true
	case 2:
		n.integer = uint64(binary.LittleEndian.Uint16(data))
		n.hasInteger = true
	case 4:
		n.integer = uint64(binary.LittleEndian.Uint32(data))
		n.hasInteger = true
	case 8:
		n.integer = binary.LittleEndian.Uint64(data)
		n.hasInteger = true
	}
	return n
}

// NewNotification builds a Notification with the integer form decoded the
// same way the protocol engine would. Exported so Transport implementations
// outside this package (internal/bleadapter, internal/ttbletest) can
// construct one from raw handle/payload data.
func NewNotification(handle Handle, data []byte) *Notification {
	return newNotification(handle, data)
}

// NewTestNotification is an alias of NewNotification kept for test fixtures.
func NewTestNotification(handle Handle, data []byte) *Notification {
	return newNotification(handle, data)
}

// Integer returns the little-endian decoded integer form of the
// notification payload and whether one is defined for this payload length.
func (n *Notification) Integer() (uint64, bool) {
	if n == nil {
		return 0, false
	}
	return n.integer, n.hasInteger
}

// expectation describes what await_expected should verify against the
// observed notification. A nil field means "don't care".
type expectation struct {
	handle  *Handle
	data    []byte
	integer *uint64
}

// expectHandle builds an expectation that only checks the handle.
func expectHandle(h Handle) expectation {
	return expectation{handle: &h}
}

// expectInteger builds an expectation on handle and decoded integer value.
func expectInteger(h Handle, v uint64) expectation {
	return expectation{handle: &h, integer: &v}
}

// demux is the single-slot notification latch of §4.3. It is intentionally
// not a queue: the device is polled in lock-step and is expected to emit
// exactly one notification per awaited step, the way Design Note §9
// describes — "a queued channel with capacity 1 (drop-oldest)". Here the
// capacity-1 behavior is provided directly by the underlying Transport; the
// demux only validates what comes back against the caller's expectation.
type demux struct {
	transport Transport
}

func newDemux(transport Transport) *demux {
	return &demux{transport: transport}
}

// awaitExpected takes the next notification the Transport yields within
// timeout and validates it against exp; it discards nothing beforehand. A zero expectation (no
// handle/data/integer set) matches anything.
func (d *demux) awaitExpected(ctx context.Context, exp expectation, timeout time.Duration) (*Notification, error) {
	n, err := d.transport.AwaitNotification(ctx, timeout)
	if err != nil {
		return nil, &TransportError{Op: "await_notification", Err: err}
	}
	if n == nil {
		if exp.handle != nil {
			return nil, &TimeoutError{Handle: *exp.handle, Timeout: timeout}
		}
		return nil, &TimeoutError{Timeout: timeout}
	}

	if exp.handle != nil && n.Handle != *exp.handle {
		return nil, &ProtocolError{Msg: fmtUnexpected(exp, n)}
	}
	if exp.data != nil && !bytesEqual(exp.data, n.Data) {
		return nil, &ProtocolError{Msg: fmtUnexpected(exp, n)}
	}
	if exp.integer != nil {
		got, ok := n.Integer()
		if !ok || got != *exp.integer {
			return nil, &ProtocolError{Msg: fmtUnexpected(exp, n)}
		}
	}
	return n, nil
}

func fmtUnexpected(exp expectation, got *Notification) string {
	gotInt, ok := got.Integer()
	if !ok {
		return fmt.Sprintf("expected %s, got (handle=0x%02x data=%x)", describeExpectation(exp), got.Handle, got.Data)
	}
	return fmt.Sprintf("expected %s, got (handle=0x%02x data=%x integer=%d)", describeExpectation(exp), got.Handle, got.Data, gotInt)
}

func describeExpectation(exp expectation) string {
	h := "any"
	if exp.handle != nil {
		h = fmt.Sprintf("0x%02x", *exp.handle)
	}
	i := "any"
	if exp.integer != nil {
		i = fmt.Sprintf("%d", *exp.integer)
	}
	return fmt.Sprintf("(handle=%s integer=%s)", h, i)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
