package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"tinygo.org/x/bluetooth"

	"github.com/dlenski/ttble-sync/internal/bleadapter"
	"github.com/dlenski/ttble-sync/internal/ttblue/assistance"
	"github.com/dlenski/ttble-sync/internal/ttblue/pairingstore"
	syncpkg "github.com/dlenski/ttble-sync/internal/ttblue/sync"
	"github.com/dlenski/ttble-sync/ttble"
)

var (
	debugFrames     bool
	skipActivities  bool
	skipAssistance  bool
	pairingStoreArg string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ttble-sync <bluetooth-address> <pairing-code|pair>",
		Short: "Sync a TomTom-style wrist GPS device over BLE",
		Long: `ttble-sync pairs with a TomTom-style wrist GPS device over BLE and
drains its activity files and preferences and uploads the GPS quickfix
assistance blob, the way the device's own companion app does.`,
		Args: cobra.ExactArgs(2),
		RunE: runSync,
	}
	rootCmd.Flags().BoolVar(&debugFrames, "debug-frames", false, "log every BLE chunk exchanged with the device")
	rootCmd.Flags().BoolVar(&skipActivities, "skip-activities", false, "skip draining and deleting activity files")
	rootCmd.Flags().BoolVar(&skipAssistance, "skip-assistance", false, "skip the GPS quickfix assistance upload")
	rootCmd.Flags().StringVar(&pairingStoreArg, "pairing-store", "", "path to the persisted pairing-code store (default: OS config dir)")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	address, codeArg := args[0], args[1]

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storePath := pairingStoreArg
	if storePath == "" {
		var err error
		storePath, err = pairingstore.DefaultPath()
		if err != nil {
			return fmt.Errorf("ttble-sync: %w", err)
		}
	}
	store, err := pairingstore.Open(storePath)
	if err != nil {
		return fmt.Errorf("ttble-sync: %w", err)
	}

	mode, code, err := resolvePairing(store, address, codeArg)
	if err != nil {
		return fmt.Errorf("ttble-sync: %w", err)
	}

	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return fmt.Errorf("ttble-sync: parse address %q: %w", address, err)
	}
	adapter := bleadapter.New(bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, deviceCharacteristics)

	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("ttble-sync: %w", err)
	}
	defer adapter.Disconnect()

	engine := ttble.NewEngine(adapter, ttble.Config{
		LogFunc:        log.Printf,
		DebugLogFrames: debugFrames,
	})

	if err := engine.Pair(ctx, mode, code); err != nil {
		return fmt.Errorf("ttble-sync: pairing: %w", err)
	}
	if mode == ttble.NewPairing {
		if err := store.Save(address, code); err != nil {
			return fmt.Errorf("ttble-sync: save pairing code: %w", err)
		}
		log.Printf("paired and saved pairing code for %s", address)
	} else {
		log.Printf("paired using stored code for %s", address)
	}

	prefs, err := newXMLFilePreferences()
	if err != nil {
		return fmt.Errorf("ttble-sync: %w", err)
	}

	var activities syncpkg.ActivityStore
	if !skipActivities {
		activities = newDirActivityStore(".")
	}
	var assist syncpkg.AssistanceFetcher
	if !skipAssistance {
		assist = assistance.New()
	}

	syncer := syncpkg.New(engine, syncpkg.Config{LogFunc: log.Printf}, activities, prefs, assist)
	if err := syncer.Run(ctx); err != nil {
		return fmt.Errorf("ttble-sync: sync: %w", err)
	}
	return nil
}

// resolvePairing decides between a fresh NewPairing run (argv "pair",
// prompting for a code on stdin) and an ExistingPairing run using either an
// explicit numeric argv code or one looked up in the persisted store.
func resolvePairing(store *pairingstore.Store, address, codeArg string) (ttble.PairingMode, uint32, error) {
	if codeArg == "pair" {
		fmt.Print("Code? ")
		var code uint32
		if _, err := fmt.Scanln(&code); err != nil {
			return 0, 0, fmt.Errorf("read pairing code: %w", err)
		}
		return ttble.NewPairing, code, nil
	}

	code, err := strconv.ParseUint(codeArg, 10, 32)
	if err != nil {
		if stored, ok := store.Lookup(address); ok {
			return ttble.ExistingPairing, stored, nil
		}
		return 0, 0, fmt.Errorf("invalid pairing code %q and no stored code for %s", codeArg, address)
	}
	return ttble.ExistingPairing, uint32(code), nil
}
