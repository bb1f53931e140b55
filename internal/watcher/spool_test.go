package watcher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSpoolDoc(t *testing.T, dir, name string, change Change) {
	t.Helper()
	data, err := json.Marshal(change)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func receiveChange(t *testing.T, sink chan Change) Change {
	t.Helper()
	select {
	case c := <-sink:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for spool change")
		return Change{}
	}
}

func TestSpoolDrainsExistingDocuments(t *testing.T) {
	dir := t.TempDir()
	writeSpoolDoc(t, dir, "000001.json", Change{
		SubjectID: "light.kitchen",
		OldValue:  "off",
		NewValue:  "on",
	})

	sink := make(chan Change, 8)
	w := NewSpoolWatcher(dir, 10*time.Millisecond, sink)
	require.NoError(t, w.Start())
	defer w.Stop()

	c := receiveChange(t, sink)
	require.Equal(t, "light.kitchen", c.SubjectID)
	require.Equal(t, "on", c.NewValue)
	// missing id and timestamp are filled at ingest
	require.NotEmpty(t, c.ID)
	require.False(t, c.Timestamp.IsZero())

	// the document is consumed
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSpoolPicksUpNewDocuments(t *testing.T) {
	dir := t.TempDir()
	sink := make(chan Change, 8)
	w := NewSpoolWatcher(dir, 10*time.Millisecond, sink)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeSpoolDoc(t, dir, "change.json", Change{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		SubjectID: "switch.heater",
		OldValue:  "off",
		NewValue:  "on",
	})

	c := receiveChange(t, sink)
	require.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", c.ID)
	require.Equal(t, "switch.heater", c.SubjectID)
}

func TestSpoolSkipsMalformedDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nosubject.json"), []byte("{}"), 0o644))
	writeSpoolDoc(t, dir, "ok.json", Change{SubjectID: "light.hall", NewValue: "on"})

	sink := make(chan Change, 8)
	w := NewSpoolWatcher(dir, 10*time.Millisecond, sink)
	require.NoError(t, w.Start())
	defer w.Stop()

	c := receiveChange(t, sink)
	require.Equal(t, "light.hall", c.SubjectID)

	select {
	case extra := <-sink:
		t.Fatalf("unexpected change from malformed document: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSpoolIgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644))

	sink := make(chan Change, 8)
	w := NewSpoolWatcher(dir, 10*time.Millisecond, sink)
	require.NoError(t, w.Start())
	defer w.Stop()

	select {
	case c := <-sink:
		t.Fatalf("unexpected change: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}

	// the non-spool file is left alone
	_, err := os.Stat(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
}
