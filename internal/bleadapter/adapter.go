// Package bleadapter implements ttble.Transport against a real BLE radio
// using github.com/tinygo-org/bluetooth. It owns scanning, connecting,
// characteristic discovery and notification subscription; the protocol
// semantics (commands, windows, CRC, pairing) live entirely in package
// ttble and never see a bluetooth.UUID.
package bleadapter

import (
	"context"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/dlenski/ttble-sync/ttble"
)

// CharacteristicMap resolves the protocol's raw GATT attribute handles
// (ttble.Handle) to the service/characteristic UUIDs the radio actually
// discovers over BLE. tinygo-org/bluetooth addresses characteristics by
// UUID, not by the numeric ATT handle the device firmware happens to
// assign them, so the adapter needs this table to bridge the two; it is
// supplied by the caller because it is a property of the specific device
// model, not of the wire protocol.
type CharacteristicMap map[ttble.Handle]CharacteristicRef

// CharacteristicRef names the service and characteristic UUID that backs
// one protocol handle.
type CharacteristicRef struct {
	Service        bluetooth.UUID
	Characteristic bluetooth.UUID
}

// Adapter is a ttble.Transport backed by a real BLE connection.
type Adapter struct {
	adapter *bluetooth.Adapter
	address bluetooth.Address
	chars   CharacteristicMap

	device bluetooth.Device
	chrs   map[ttble.Handle]bluetooth.DeviceCharacteristic

	latch *latch
}

// New builds an Adapter for the device at address, using chars to resolve
// protocol handles to BLE characteristics. It does not connect; call
// Connect to do that.
func New(address bluetooth.Address, chars CharacteristicMap) *Adapter {
	return &Adapter{
		adapter: bluetooth.DefaultAdapter,
		address: address,
		chars:   chars,
		chrs:    make(map[ttble.Handle]bluetooth.DeviceCharacteristic),
		latch:   newLatch(),
	}
}

// Connect enables the local adapter, connects to the device, discovers
// every characteristic named in the CharacteristicMap and subscribes to
// notifications on each of them.
func (a *Adapter) Connect(ctx context.Context) error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("bleadapter: enable adapter: %w", err)
	}

	device, err := a.adapter.Connect(a.address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("bleadapter: connect to %s: %w", a.address.String(), err)
	}
	a.device = device

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("bleadapter: discover services: %w", err)
	}

	for handle, ref := range a.chars {
		svc, ok := findService(services, ref.Service)
		if !ok {
			return fmt.Errorf("bleadapter: service %s not found for handle 0x%02x", ref.Service.String(), handle)
		}
		chrs, err := svc.DiscoverCharacteristics([]bluetooth.UUID{ref.Characteristic})
		if err != nil || len(chrs) == 0 {
			return fmt.Errorf("bleadapter: discover characteristic %s for handle 0x%02x: %w", ref.Characteristic.String(), handle, err)
		}
		chr := chrs[0]
		a.chrs[handle] = chr

		h := handle
		if err := chr.EnableNotifications(func(data []byte) {
			a.latch.push(rawNotification{handle: uint16(h), data: append([]byte(nil), data...)})
		}); err != nil {
			return fmt.Errorf("bleadapter: enable notifications on handle 0x%02x: %w", handle, err)
		}
	}

	return nil
}

// Disconnect tears down the BLE connection.
func (a *Adapter) Disconnect() error {
	return a.device.Disconnect()
}

// Write performs a GATT characteristic write, with or without response, on
// the characteristic bound to handle.
func (a *Adapter) Write(ctx context.Context, handle ttble.Handle, payload []byte, withResponse bool) error {
	chr, ok := a.chrs[handle]
	if !ok {
		return fmt.Errorf("bleadapter: no characteristic bound for handle 0x%02x", handle)
	}
	var err error
	if withResponse {
		_, err = chr.Write(payload)
	} else {
		_, err = chr.WriteWithoutResponse(payload)
	}
	return err
}

// AwaitNotification blocks until the next notification on any subscribed
// characteristic arrives or timeout elapses.
func (a *Adapter) AwaitNotification(ctx context.Context, timeout time.Duration) (*ttble.Notification, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case n := <-a.latch.ch:
		return ttble.NewNotification(ttble.Handle(n.handle), n.data), nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func findService(services []bluetooth.DeviceService, uuid bluetooth.UUID) (bluetooth.DeviceService, bool) {
	for _, s := range services {
		if s.UUID() == uuid {
			return s, true
		}
	}
	return bluetooth.DeviceService{}, false
}
