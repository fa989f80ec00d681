// Package sync reproduces the TomTom sync client's run sequence after
// pairing: post status messages, fetch preferences, drain and delete
// activities, upload the GPS assistance blob, and report a final status.
// It owns no BLE knowledge; everything is expressed against ttble.Engine's
// core file operations. Pairing is done by the caller before Run.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dlenski/ttble-sync/internal/utils"
	"github.com/dlenski/ttble-sync/ttble"
)

// ActivityStore persists drained activity files. Implementations decide
// naming and location; the Syncer only provides the FileID, a suggested
// base name and the bytes.
type ActivityStore interface {
	// Create returns a writer for the activity identified by fileID and a
	// timestamp-derived name hint. The caller closes it when done.
	Create(fileID ttble.FileID, nameHint string) (io.WriteCloser, error)
}

// PreferencesStore persists the single preferences.xml blob.
type PreferencesStore interface {
	Create() (io.WriteCloser, error)
}

// AssistanceFetcher retrieves the current GPS quickfix assistance blob.
// internal/ttblue/assistance provides the net/http-based implementation;
// this interface keeps that dependency out of the core sync sequence.
type AssistanceFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Config mirrors ttble.Config's LogFunc/clock-injection shape so syncer
// runs can be driven deterministically from tests.
type Config struct {
	LogFunc func(format string, args ...any)

	nowFunc func() time.Time
}

func (c Config) logf(format string, args ...any) {
	if c.LogFunc != nil {
		c.LogFunc(format, args...)
	}
}

func (c Config) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}
	return time.Now()
}

const (
	fileStatus      = ttble.FileStatus
	filePreferences = ttble.FilePreferences
	fileActivities  = ttble.FileActivityBase
	fileAssistance  = ttble.FileAssistance
)

// Syncer drives one full sync pass against a paired Engine.
type Syncer struct {
	engine      *ttble.Engine
	cfg         Config
	activities  ActivityStore
	preferences PreferencesStore
	assistance  AssistanceFetcher
}

// New builds a Syncer. activities and preferences may be nil to skip
// persisting those payloads (useful for pairing-only runs); assistance may
// be nil to skip the GPS quickfix step entirely.
func New(engine *ttble.Engine, cfg Config, activities ActivityStore, preferences PreferencesStore, assistance AssistanceFetcher) *Syncer {
	return &Syncer{engine: engine, cfg: cfg, activities: activities, preferences: preferences, assistance: assistance}
}

// postStatus overwrites file 0x00020002 with a short human-readable status
// message, the way the device's display surfaces sync progress.
func (s *Syncer) postStatus(ctx context.Context, msg string) error {
	s.cfg.logf("status: %s", utils.FormatSpaces([]byte(msg)))
	if _, err := s.engine.DeleteFile(ctx, fileStatus); err != nil {
		return fmt.Errorf("sync: clear status file: %w", err)
	}
	return s.engine.WriteFile(ctx, fileStatus, stringReader(msg), uint32(len(msg)), false)
}

// Run executes one full sync pass: preferences, activities, assistance,
// final status.
func (s *Syncer) Run(ctx context.Context) error {
	if s.preferences != nil {
		if err := s.syncPreferences(ctx); err != nil {
			return err
		}
	}

	if s.activities != nil {
		if err := s.syncActivities(ctx); err != nil {
			return err
		}
	}

	if s.assistance != nil {
		if err := s.syncAssistance(ctx); err != nil {
			return err
		}
	}

	return s.postStatus(ctx, "ttble-sync done")
}

func (s *Syncer) syncPreferences(ctx context.Context) error {
	s.cfg.logf("reading preferences (file 0x%08x)", filePreferences)
	w, err := s.preferences.Create()
	if err != nil {
		return fmt.Errorf("sync: open preferences sink: %w", err)
	}
	defer w.Close()

	if err := s.engine.ReadFile(ctx, filePreferences, w, nil); err != nil {
		return fmt.Errorf("sync: read preferences: %w", err)
	}
	return nil
}

func (s *Syncer) syncActivities(ctx context.Context) error {
	s.cfg.logf("checking activity file status")
	files, err := s.engine.ListSubFiles(ctx, fileActivities)
	if err != nil {
		return fmt.Errorf("sync: list activities: %w", err)
	}
	s.cfg.logf("got %d activities: %v", len(files), files)

	stamp := s.cfg.now().Format("20060102_150405")
	for i, fileID := range files {
		if err := s.postStatus(ctx, fmt.Sprintf("Activity %d/%d…", i+1, len(files))); err != nil {
			return err
		}

		s.cfg.logf("saving activity file 0x%08x", fileID)
		// Append a short uuid suffix so two runs racing on the same
		// second (or the same stale fileID after a device reset) never
		// collide on disk.
		nameHint := fmt.Sprintf("%08x_%s_%s", uint32(fileID), stamp, uuid.NewString()[:8])
		w, err := s.activities.Create(fileID, nameHint)
		if err != nil {
			return fmt.Errorf("sync: open activity sink for 0x%08x: %w", fileID, err)
		}
		err = s.engine.ReadFile(ctx, fileID, w, nil)
		closeErr := w.Close()
		if err != nil {
			return fmt.Errorf("sync: read activity 0x%08x: %w", fileID, err)
		}
		if closeErr != nil {
			return fmt.Errorf("sync: close activity sink for 0x%08x: %w", fileID, closeErr)
		}

		if err := s.postStatus(ctx, fmt.Sprintf("%d/%d synced.", i+1, len(files))); err != nil {
			return err
		}

		s.cfg.logf("deleting activity file 0x%08x", fileID)
		if _, err := s.engine.DeleteFile(ctx, fileID); err != nil {
			return fmt.Errorf("sync: delete activity 0x%08x: %w", fileID, err)
		}
	}
	return nil
}

func (s *Syncer) syncAssistance(ctx context.Context) error {
	blob, err := s.assistance.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("sync: fetch gps assistance blob: %w", err)
	}

	s.cfg.logf("updating GPS quickfix assistance (%d bytes)", len(blob))
	if err := s.postStatus(ctx, "GPSQuickFix…"); err != nil {
		return err
	}
	if _, err := s.engine.DeleteFile(ctx, fileAssistance); err != nil {
		return fmt.Errorf("sync: clear assistance file: %w", err)
	}
	if err := s.engine.WriteFile(ctx, fileAssistance, bytes.NewReader(blob), uint32(len(blob)), true); err != nil {
		return fmt.Errorf("sync: write assistance blob: %w", err)
	}
	return nil
}

func stringReader(s string) io.Reader { return strings.NewReader(s) }
