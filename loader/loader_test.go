package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// A root with includes merges every file's directives, recording the load
// order and the include list.
func TestLoadMergesIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount": `option "title" "Main"
include "accounts.beancount"
2014-02-01 * "From main"
  Expenses:Food  10.00 USD
  Assets:Cash  -10.00 USD
`,
		"accounts.beancount": `2014-01-01 open Assets:Cash
2014-01-01 open Expenses:Food
`,
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Errors))
	assert.Equal(t, 3, len(result.Directives))
	assert.Equal(t, 2, len(result.Files))
	assert.Equal(t, "Main", result.Options.Title)
	assert.Equal(t, []string{
		filepath.Join(dir, "accounts.beancount"),
		filepath.Join(dir, "main.beancount"),
	}, result.Options.Include)
}

// The include list covers every file actually loaded, root included, in
// sorted order. A target that fails to read stays out.
func TestLoadIncludeListsLoadedFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount":    "include \"sub/inc.beancount\"\ninclude \"nope.beancount\"\n",
		"sub/inc.beancount": "2014-01-01 open Assets:A\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "main.beancount"),
		filepath.Join(dir, "sub", "inc.beancount"),
	}, result.Options.Include)
}

// Includes resolve relative to the file containing them.
func TestLoadNestedRelativeIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount":       "include \"sub/first.beancount\"\n",
		"sub/first.beancount":  "include \"second.beancount\"\n2014-01-01 open Assets:A\n",
		"sub/second.beancount": "2014-01-01 open Assets:B\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Errors))
	assert.Equal(t, 2, len(result.Directives))
	assert.Equal(t, 3, len(result.Files))
}

// An include cycle yields one error while both files still load once.
func TestLoadIncludeCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.beancount": "include \"b.beancount\"\n2014-01-01 open Assets:A\n",
		"b.beancount": "include \"a.beancount\"\n2014-01-01 open Assets:B\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "a.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Errors))
	cycle, ok := result.Errors[0].(*IncludeCycleError)
	assert.True(t, ok)
	assert.Equal(t, "IncludeCycle", cycle.Kind())
	assert.Equal(t, 2, len(result.Directives))
	assert.Equal(t, 2, len(result.Files))
}

// A diamond include loads the shared file once without an error.
func TestLoadDiamondInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount":   "include \"left.beancount\"\ninclude \"right.beancount\"\n",
		"left.beancount":   "include \"shared.beancount\"\n",
		"right.beancount":  "include \"shared.beancount\"\n",
		"shared.beancount": "2014-01-01 open Assets:Shared\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Errors))
	assert.Equal(t, 1, len(result.Directives))
	assert.Equal(t, 4, len(result.Files))
}

// An include that resolves outside the root directory is refused and
// contributes no directives.
func TestLoadIncludePathEscape(t *testing.T) {
	outside := writeFiles(t, map[string]string{
		"secret.beancount": "2014-01-01 open Assets:Secret\n",
	})
	dir := writeFiles(t, map[string]string{
		"main.beancount": "include \"" + filepath.Join(outside, "secret.beancount") + "\"\ninclude \"../../../etc/passwd\"\n2014-01-01 open Assets:Ok\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(result.Errors))
	for _, loadErr := range result.Errors {
		escape, ok := loadErr.(*IncludePathEscapeError)
		assert.True(t, ok)
		assert.Equal(t, "IncludePathEscape", escape.Kind())
	}
	assert.Equal(t, 1, len(result.Directives))
	assert.Equal(t, 1, len(result.Files))
}

// Parse errors in a leaf are collected while the rest of the tree loads.
func TestLoadCollectsParseErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount":   "include \"broken.beancount\"\n2014-01-01 open Assets:Ok\n",
		"broken.beancount": "2014-01-01 open NotAnAccount\n2014-01-02 open Assets:Fine\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Errors))
	assert.Equal(t, 2, len(result.Directives))
}

// A missing include is an error, not a crash.
func TestLoadMissingInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount": "include \"nope.beancount\"\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Errors))
	readErr, ok := result.Errors[0].(*ReadError)
	assert.True(t, ok)
	assert.IsError(t, readErr.Err, os.ErrNotExist)
}

// The input hash is deterministic across loads and changes with content.
func TestLoadInputHash(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount": "2014-01-01 open Assets:Cash\n",
	})
	path := filepath.Join(dir, "main.beancount")

	first, err := New().Load(context.Background(), path)
	assert.NoError(t, err)
	second, err := New().Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, first.Options.InputHash, second.Options.InputHash)
	assert.Equal(t, 64, len(first.Options.InputHash))

	assert.NoError(t, os.WriteFile(path, []byte("2014-01-02 open Assets:Cash\n"), 0o644))
	third, err := New().Load(context.Background(), path)
	assert.NoError(t, err)
	assert.NotEqual(t, first.Options.InputHash, third.Options.InputHash)
}

// Plugin declarations across files land on the options record in order.
func TestLoadCollectsPlugins(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount": "plugin \"auto_accounts\"\ninclude \"sub.beancount\"\n",
		"sub.beancount":  "plugin \"noop\" \"cfg\"\n",
	})

	result, err := New().Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(result.Options.Plugin))
	assert.Equal(t, "auto_accounts", result.Options.Plugin[0].Name)
	assert.Equal(t, "cfg", result.Options.Plugin[1].Config)
}

// LoadSource resolves includes relative to the named file even though the
// root content came from memory.
func TestLoadSource(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"accounts.beancount": "2014-01-01 open Assets:Cash\n",
	})

	source := []byte("include \"accounts.beancount\"\n")
	result, err := New().LoadSource(context.Background(), filepath.Join(dir, "virtual.beancount"), source)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Errors))
	assert.Equal(t, 1, len(result.Directives))
}

// Encryption detection matches both the extension and armored content.
func TestIsEncrypted(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"ledger.beancount.gpg": "binary",
		"armored.beancount":    "-----BEGIN PGP MESSAGE-----\n...",
		"plain.beancount":      "2014-01-01 open Assets:Cash\n",
	})

	assert.True(t, IsEncrypted(filepath.Join(dir, "ledger.beancount.gpg")))
	assert.True(t, IsEncrypted(filepath.Join(dir, "armored.beancount")))
	assert.False(t, IsEncrypted(filepath.Join(dir, "plain.beancount")))
}

// A failed gpg run surfaces as a decryption error on the result.
func TestLoadDecryptionFailure(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.beancount":       "include \"secret.beancount.gpg\"\n",
		"secret.beancount.gpg": "not really encrypted",
	})

	loader := New(WithGPGCommand("false"))
	result, err := loader.Load(context.Background(), filepath.Join(dir, "main.beancount"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Errors))
	decErr, ok := result.Errors[0].(*DecryptionError)
	assert.True(t, ok)
	assert.Equal(t, "DecryptionError", decErr.Kind())
}
