package main

import (
	"io"
	"os"
	"path/filepath"

	"tinygo.org/x/bluetooth"

	"github.com/dlenski/ttble-sync/internal/bleadapter"
	"github.com/dlenski/ttble-sync/ttble"
)

// deviceServiceUUID is the single custom GATT service this device exposes
// all protocol characteristics under.
var deviceServiceUUID = bluetooth.NewUUID([16]byte{
	0x6b, 0x46, 0x83, 0x72, 0xe8, 0x41, 0x4a, 0xcd,
	0x8a, 0xdf, 0x01, 0x94, 0x0c, 0x00, 0x00, 0x00,
})

func charUUID(suffix uint16) bluetooth.UUID {
	b := deviceServiceUUID.Bytes()
	b[12] = byte(suffix >> 8)
	b[13] = byte(suffix)
	return bluetooth.NewUUID(b)
}

// deviceCharacteristics maps every protocol handle this module uses onto a
// characteristic UUID under deviceServiceUUID. The handle numbers
// themselves (0x25, 0x26, ...) come from the device's attribute map and
// are reused verbatim as the low 16 bits of each characteristic's UUID,
// which is how this device model exposes them.
var deviceCharacteristics = bleadapter.CharacteristicMap{
	ttble.HandleCommand:      {Service: deviceServiceUUID, Characteristic: charUUID(0x25)},
	ttble.HandleNotifyEnAlt:  {Service: deviceServiceUUID, Characteristic: charUUID(0x26)},
	ttble.HandleLength:       {Service: deviceServiceUUID, Characteristic: charUUID(0x28)},
	ttble.HandlePairingDesc:  {Service: deviceServiceUUID, Characteristic: charUUID(0x29)},
	ttble.HandleData:         {Service: deviceServiceUUID, Characteristic: charUUID(0x2b)},
	ttble.HandlePairingDesc2: {Service: deviceServiceUUID, Characteristic: charUUID(0x2c)},
	ttble.HandlePacing:       {Service: deviceServiceUUID, Characteristic: charUUID(0x2e)},
	ttble.HandlePairingDesc3: {Service: deviceServiceUUID, Characteristic: charUUID(0x2f)},
	ttble.HandlePairingCode:  {Service: deviceServiceUUID, Characteristic: charUUID(0x32)},
	ttble.HandleInitA:        {Service: deviceServiceUUID, Characteristic: charUUID(0x33)},
	ttble.HandleInitB:        {Service: deviceServiceUUID, Characteristic: charUUID(0x35)},
}

// xmlFilePreferences writes the drained preferences blob to preferences.xml
// in the current directory.
type xmlFilePreferences struct{}

func newXMLFilePreferences() (*xmlFilePreferences, error) {
	return &xmlFilePreferences{}, nil
}

func (xmlFilePreferences) Create() (io.WriteCloser, error) {
	return os.Create("preferences.xml")
}

// dirActivityStore writes each drained activity to <dir>/<nameHint>.ttbin.
type dirActivityStore struct {
	dir string
}

func newDirActivityStore(dir string) *dirActivityStore {
	return &dirActivityStore{dir: dir}
}

func (s *dirActivityStore) Create(fileID ttble.FileID, nameHint string) (io.WriteCloser, error) {
	return os.Create(filepath.Join(s.dir, nameHint+".ttbin"))
}
