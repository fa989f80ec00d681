// Package ttble implements the device-side file-transfer protocol used by
// TomTom-style wrist GPS units over a BLE GATT connection: the command
// channel, the windowed CRC-checked read/write/list/delete operations and
// the pairing handshake that must precede them.
//
// The BLE stack itself (scanning, connecting, subscribing to notifications)
// is not part of this package. Callers provide a Transport implementation;
// internal/bleadapter wires one against github.com/tinygo-org/bluetooth.
package ttble

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MTU is the maximum number of payload bytes carried by a single BLE
// write or notification on this protocol.
const MTU = 20

// Window is the number of data bytes covered by a single pacing window:
// up to 256 MTU-sized chunks, minus the 2 bytes of CRC trailer that close
// the window.
const Window = 256*MTU - 2

// Handle is a 16-bit GATT attribute handle.
type Handle uint16

// GATT attribute handles, bit-exact per the device's attribute map.
const (
	HandleCommand     Handle = 0x25 // write + notify: command channel, 1-byte ack
	HandleNotifyEnAlt Handle = 0x26 // write: notification-enable descriptor
	HandleLength      Handle = 0x28 // notify + write: transfer length, 4 bytes LE
	HandlePairingDesc Handle = 0x29 // write: notification-enable descriptor (pairing)
	HandleData        Handle = 0x2b // notify + write: data chunks, <=20 bytes
	HandlePairingDesc2 Handle = 0x2c // write: notification-enable descriptor (pairing)
	HandlePacing      Handle = 0x2e // write: pacing counter / early-termination sentinel
	HandlePairingDesc3 Handle = 0x2f // write: notification-enable descriptor (pairing)
	HandlePairingCode Handle = 0x32 // write + notify: pairing code / response
	HandleInitA       Handle = 0x33 // write: session-initialization
	HandleInitB       Handle = 0x35 // write: session-initialization
)

// Default per-notification timeouts (§5).
const (
	CommandAckTimeout = 1 * time.Second
	PacingEchoTimeout = 20 * time.Second
	DeleteTimeout     = 20 * time.Second
)

// TransportError wraps an underlying BLE I/O failure. Fatal for the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ttble: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError means an expected notification did not arrive in time.
type TimeoutError struct {
	Handle  Handle
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ttble: timed out after %s waiting for notification on handle 0x%02x", e.Timeout, e.Handle)
}

// ProtocolError means a notification arrived but did not match what the
// protocol step expected: wrong handle, wrong integer value, or a
// structurally invalid payload.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "ttble: protocol error: " + e.Msg }

// CrcMismatch means a transfer window's CRC-16/MODBUS residue was nonzero
// after feeding the window's data and trailer.
type CrcMismatch struct {
	Residue uint16
}

func (e *CrcMismatch) Error() string {
	return fmt.Sprintf("ttble: crc mismatch, residue=0x%04x", e.Residue)
}

// CommandRejected means send_command exhausted its retry budget.
type CommandRejected struct {
	Attempts int
}

func (e *CommandRejected) Error() string {
	return fmt.Sprintf("ttble: command rejected after %d attempts", e.Attempts)
}

// PairingRejected means the device's 0x32 response was not 1 (accepted).
type PairingRejected struct {
	Response *uint64 // nil if no integer form could be decoded
}

func (e *PairingRejected) Error() string {
	if e.Response == nil {
		return "ttble: pairing rejected, device sent no usable response"
	}
	return fmt.Sprintf("ttble: pairing rejected, device responded %d", *e.Response)
}

// ErrInvalidFileID is returned when a FileID has nonzero bits in its top
// byte. Programmer error, not a protocol failure.
var ErrInvalidFileID = errors.New("ttble: file id has nonzero top byte")

// Transport is the minimum BLE surface the protocol engine needs. BLE
// discovery, connection management and the notification plumbing live on
// the other side of this interface; see internal/bleadapter for a concrete
// implementation.
type Transport interface {
	// Write sends payload (at most MTU bytes) to handle. withResponse
	// selects a write-with-response (GATT Write Request) versus a
	// write-without-response (GATT Write Command).
	Write(ctx context.Context, handle Handle, payload []byte, withResponse bool) error

	// AwaitNotification blocks until a notification arrives or timeout
	// elapses, returning the most recently observed one. A nil
	// Notification with a nil error means the timeout elapsed.
	AwaitNotification(ctx context.Context, timeout time.Duration) (*Notification, error)

	Connect(ctx context.Context) error
	Disconnect() error
}
