package sync

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlenski/ttble-sync/internal/ttbletest"
	"github.com/dlenski/ttble-sync/ttble"
)

func deleteScript() []ttbletest.Notify {
	return []ttbletest.Notify{
		{Handle: ttble.HandleCommand, Data: []byte{1}},
		{Handle: ttble.HandleCommand, Data: []byte{0}},
	}
}

type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

type memoryPreferences struct{ buf bytes.Buffer }

func (m *memoryPreferences) Create() (io.WriteCloser, error) {
	return nopWriteCloser{&m.buf}, nil
}

type memoryActivities struct {
	buf   bytes.Buffer
	hints []string
}

func (m *memoryActivities) Create(fileID ttble.FileID, nameHint string) (io.WriteCloser, error) {
	m.hints = append(m.hints, nameHint)
	return nopWriteCloser{&m.buf}, nil
}

func TestSyncer_Run_PreferencesOnly(t *testing.T) {
	prefsData := []byte("<preferences/>")
	var script []ttbletest.Notify
	script = append(script, ttbletest.BuildReadScript(prefsData)...)
	script = append(script, deleteScript()...)      // final postStatus delete
	script = append(script, ttbletest.BuildWriteScript(len("ttble-sync done"), false)...)

	mock := ttbletest.New(script)
	engine := ttble.NewEngine(mock, ttble.Config{})

	prefs := &memoryPreferences{}
	s := New(engine, Config{}, nil, prefs, nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, prefsData, prefs.buf.Bytes())
}

func TestSyncer_Run_WithOneActivity(t *testing.T) {
	activityData := bytes.Repeat([]byte{0x42}, 50)

	var script []ttbletest.Notify
	// ListSubFiles: one sub file at offset 1
	script = append(script, ttbletest.Notify{Handle: ttble.HandleCommand, Data: []byte{1}})
	script = append(script, ttbletest.Notify{Handle: ttble.HandleData, Data: []byte{0x01, 0x00, 0x01, 0x00}})
	script = append(script, ttbletest.Notify{Handle: ttble.HandleCommand, Data: []byte{0}})

	// postStatus "Activity 1/1…"
	script = append(script, deleteScript()...)
	script = append(script, ttbletest.BuildWriteScript(len("Activity 1/1…"), false)...)

	// ReadFile the activity
	script = append(script, ttbletest.BuildReadScript(activityData)...)

	// postStatus "1/1 synced."
	script = append(script, deleteScript()...)
	script = append(script, ttbletest.BuildWriteScript(len("1/1 synced."), false)...)

	// DeleteFile the activity
	script = append(script, deleteScript()...)

	// final postStatus
	script = append(script, deleteScript()...)
	script = append(script, ttbletest.BuildWriteScript(len("ttble-sync done"), false)...)

	mock := ttbletest.New(script)
	engine := ttble.NewEngine(mock, ttble.Config{})

	activities := &memoryActivities{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(engine, Config{nowFunc: func() time.Time { return now }}, activities, nil, nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, activityData, activities.buf.Bytes())
	require.Len(t, activities.hints, 1)
	assert.Contains(t, activities.hints[0], "20260102_030405")
}

func TestSyncer_Run_NothingConfigured(t *testing.T) {
	var script []ttbletest.Notify
	script = append(script, deleteScript()...)
	script = append(script, ttbletest.BuildWriteScript(len("ttble-sync done"), false)...)

	mock := ttbletest.New(script)
	engine := ttble.NewEngine(mock, ttble.Config{})

	s := New(engine, Config{}, nil, nil, nil)
	require.NoError(t, s.Run(context.Background()))
}
