package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"computegen/internal/errors"
)

func newTestWatcher(t *testing.T, root string, excludes ...string) *Watcher {
	t.Helper()
	w, err := New(Config{Root: root, Excludes: excludes})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestNewValidatesRoot(t *testing.T) {
	_, err := New(Config{Root: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	file := filepath.Join(t.TempDir(), "Curve.cs")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Config{Root: file})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	_, err = New(Config{Root: t.TempDir(), Excludes: []string{"[unclosed"}})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestNewDefaultsDebounce(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())
	assert.Equal(t, DefaultDebounce, w.config.Debounce)
}

func TestIsExcluded(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, "**/obj/**", "**/*.Designer.cs")

	assert.False(t, w.isExcluded(root))
	assert.False(t, w.isExcluded(filepath.Join(root, "Geometry", "Curve.cs")))
	assert.True(t, w.isExcluded(filepath.Join(root, "obj", "Debug")))
	assert.True(t, w.isExcluded(filepath.Join(root, "src", "obj", "Gen.cs")))
	assert.True(t, w.isExcluded(filepath.Join(root, "Form.Designer.cs")))
}

func TestRelevant(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, "**/obj/**")

	newDir := filepath.Join(root, "Geometry")
	require.NoError(t, os.Mkdir(newDir, 0o755))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"source write", fsnotify.Event{Name: filepath.Join(root, "Curve.cs"), Op: fsnotify.Write}, true},
		{"upper case extension", fsnotify.Event{Name: filepath.Join(root, "Mesh.CS"), Op: fsnotify.Create}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(root, "Curve.cs"), Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}, false},
		{"excluded source", fsnotify.Event{Name: filepath.Join(root, "obj", "Gen.cs"), Op: fsnotify.Write}, false},
		{"new directory", fsnotify.Event{Name: newDir, Op: fsnotify.Create}, true},
		{"removed directory", fsnotify.Event{Name: filepath.Join(root, "Old"), Op: fsnotify.Remove}, true},
		{"removed other file", fsnotify.Event{Name: filepath.Join(root, "a.txt"), Op: fsnotify.Remove}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
	assert.Contains(t, w.fs.WatchList(), newDir)
}
