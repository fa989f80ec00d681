package ttble

import (
	"context"
	"encoding/binary"
)

// enableNotify is the fixed payload written to a notification-enable
// descriptor: [01 00].
var enableNotify = []byte{0x01, 0x00}

// sessionInit is the fixed payload written to handle 0x35 that registers
// notification interest as part of both pairing modes.
var sessionInit = []byte{0x01, 0x13, 0x00, 0x00, 0x01, 0x12, 0x00, 0x00}

// PairingMode selects between establishing a brand new pairing and
// reconnecting with a previously-established code.
type PairingMode int

const (
	// ExistingPairing reconnects using a code obtained from a prior
	// NewPairing run.
	ExistingPairing PairingMode = iota
	// NewPairing performs the extended preamble that establishes a fresh
	// pairing code with the device.
	NewPairing
)

// Pair runs the ordered initialization writes and code exchange that gate
// all subsequent file operations (§4.6). The exact write order is
// reproduced verbatim from observed device behavior and must not be
// reordered.
func (e *Engine) Pair(ctx context.Context, mode PairingMode, code uint32) error {
	switch mode {
	case ExistingPairing:
		if err := e.transport.Write(ctx, HandleInitA, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x33", Err: err}
		}
		if err := e.transport.Write(ctx, HandleInitB, sessionInit, true); err != nil {
			return &TransportError{Op: "pairing init 0x35", Err: err}
		}
		if err := e.transport.Write(ctx, HandleNotifyEnAlt, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x26", Err: err}
		}
	case NewPairing:
		if err := e.transport.Write(ctx, HandleInitA, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x33", Err: err}
		}
		if err := e.transport.Write(ctx, HandleNotifyEnAlt, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x26", Err: err}
		}
		if err := e.transport.Write(ctx, HandlePairingDesc3, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x2f", Err: err}
		}
		if err := e.transport.Write(ctx, HandlePairingDesc, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x29", Err: err}
		}
		if err := e.transport.Write(ctx, HandlePairingDesc2, enableNotify, false); err != nil {
			return &TransportError{Op: "pairing init 0x2c", Err: err}
		}
		if err := e.transport.Write(ctx, HandleInitB, sessionInit, true); err != nil {
			return &TransportError{Op: "pairing init 0x35", Err: err}
		}
	default:
		return &ProtocolError{Msg: "unknown pairing mode"}
	}

	codeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(codeBytes, code)
	if err := e.transport.Write(ctx, HandlePairingCode, codeBytes, true); err != nil {
		return &TransportError{Op: "pairing code write", Err: err}
	}

	n, err := e.dx.awaitExpected(ctx, expectHandle(HandlePairingCode), CommandAckTimeout)
	if err != nil {
		return err
	}
	v, ok := n.Integer()
	if !ok || v != 1 {
		if ok {
			return &PairingRejected{Response: &v}
		}
		return &PairingRejected{}
	}
	return nil
}
