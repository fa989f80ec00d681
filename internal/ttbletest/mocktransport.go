// Package ttbletest provides a scripted mock ttble.Transport for exercising
// the protocol engine deterministically, the way the teacher's test.helper
// package scripts an io.ReadWriter for the Actisense reader.
package ttbletest

import (
	"context"
	"fmt"
	"time"

	"github.com/dlenski/ttble-sync/ttble"
)

// WriteRecord captures one observed Transport.Write call.
type WriteRecord struct {
	Handle       ttble.Handle
	Payload      []byte
	WithResponse bool
}

// Notify is one scripted notification, or a timeout when Timeout is true.
type Notify struct {
	Handle  ttble.Handle
	Data    []byte
	Timeout bool
}

// Transport is a scripted, single-connection mock: AwaitNotification pops
// entries off Notifications in order; every Write is recorded and,
// optionally, made to fail via WriteErr.
type Transport struct {
	Notifications []Notify
	pos           int

	Writes []WriteRecord

	WriteErr error

	ConnectCalled    bool
	DisconnectCalled bool
}

func New(notifications []Notify) *Transport {
	return &Transport{Notifications: notifications}
}

func (t *Transport) Write(_ context.Context, handle ttble.Handle, payload []byte, withResponse bool) error {
	cp := append([]byte(nil), payload...)
	t.Writes = append(t.Writes, WriteRecord{Handle: handle, Payload: cp, WithResponse: withResponse})
	if t.WriteErr != nil {
		return t.WriteErr
	}
	return nil
}

func (t *Transport) AwaitNotification(_ context.Context, _ time.Duration) (*ttble.Notification, error) {
	if t.pos >= len(t.Notifications) {
		return nil, fmt.Errorf("ttbletest: script exhausted after %d notifications", t.pos)
	}
	n := t.Notifications[t.pos]
	t.pos++
	if n.Timeout {
		return nil, nil
	}
	return ttble.NewTestNotification(n.Handle, n.Data), nil
}

func (t *Transport) Connect(_ context.Context) error {
	t.ConnectCalled = true
	return nil
}

func (t *Transport) Disconnect() error {
	t.DisconnectCalled = true
	return nil
}
