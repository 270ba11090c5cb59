package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

// An unchanged file set reports no change.
func TestCheckUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.beancount")
	assert.NoError(t, os.WriteFile(path, []byte("2014-01-01 open Assets:Cash\n"), 0o644))

	w := New([]string{path})
	assert.False(t, w.Check())
	assert.False(t, w.Check())
}

// A modified file is reported once, then the snapshot advances.
func TestCheckModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.beancount")
	assert.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w := New([]string{path})
	later := time.Now().Add(2 * time.Second)
	assert.NoError(t, os.WriteFile(path, []byte("b"), 0o644))
	assert.NoError(t, os.Chtimes(path, later, later))

	assert.True(t, w.Check())
	assert.False(t, w.Check())
}

// A file appearing in a watched directory counts as a change, even though
// the file itself was never listed.
func TestCheckNewFileInDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.beancount")
	assert.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w := New([]string{path})
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "new.beancount"), []byte("b"), 0o644))
	later := time.Now().Add(2 * time.Second)
	assert.NoError(t, os.Chtimes(dir, later, later))

	assert.True(t, w.Check())
}

// A deleted file counts as a change.
func TestCheckDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.beancount")
	assert.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w := New([]string{path})
	assert.NoError(t, os.Remove(path))
	assert.True(t, w.Check())
}

// Update replaces the watched set.
func TestUpdate(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.beancount")
	b := filepath.Join(dir, "b.beancount")
	assert.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	assert.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	w := New([]string{a})
	w.Update([]string{b})

	later := time.Now().Add(2 * time.Second)
	assert.NoError(t, os.Chtimes(b, later, later))
	assert.True(t, w.Check())
}

// Paths includes parent directories exactly once.
func TestPathsDeduplicated(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.beancount")
	b := filepath.Join(dir, "b.beancount")
	assert.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	assert.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	w := New([]string{a, b})
	assert.Equal(t, 3, len(w.Paths()))
}
