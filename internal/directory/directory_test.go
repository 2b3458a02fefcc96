package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMappings(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	writeMappings(t, path, `{"employees": [
		{"timeclock_id": "5", "name": "Jane Doe", "extension_id": "305", "email": "jane@example.com"},
		{"timeclock_id": "7", "name": "Sam Lee"},
		{"timeclock_id": "", "name": "No ID"}
	]}`)

	dir := New(path)
	require.NoError(t, dir.Load())

	emp, ok := dir.Lookup("5")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", emp.Name)
	assert.Equal(t, "305", emp.ExtensionID)

	emp, ok = dir.Lookup("7")
	require.True(t, ok)
	assert.Empty(t, emp.ExtensionID)

	_, ok = dir.Lookup("999")
	assert.False(t, ok)
}

func TestAllSortedByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	writeMappings(t, path, `{"employees": [
		{"timeclock_id": "9", "name": "Last"},
		{"timeclock_id": "1", "name": "First"}
	]}`)

	dir := New(path)
	require.NoError(t, dir.Load())

	all := dir.All()
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "9", all[1].ID)
}

func TestLoadFailureKeepsPreviousMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	writeMappings(t, path, `{"employees": [{"timeclock_id": "5", "name": "Jane Doe"}]}`)

	dir := New(path)
	require.NoError(t, dir.Load())

	writeMappings(t, path, `{broken json`)
	require.Error(t, dir.Load())

	_, ok := dir.Lookup("5")
	assert.True(t, ok)
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	writeMappings(t, path, `{"employees": [{"timeclock_id": "5", "name": "Jane Doe"}]}`)

	dir := New(path)
	require.NoError(t, dir.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = dir.Watch(ctx)
	}()

	// Give the watcher a beat to register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	writeMappings(t, path, `{"employees": [
		{"timeclock_id": "5", "name": "Jane Doe"},
		{"timeclock_id": "8", "name": "New Hire", "extension_id": "412"}
	]}`)

	require.Eventually(t, func() bool {
		_, ok := dir.Lookup("8")
		return ok
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancel")
	}
}
