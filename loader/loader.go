// Package loader turns a root file into a single merged directive stream.
// It resolves include directives recursively, loading every reachable file
// exactly once, detects include cycles, refuses includes that escape the
// root directory, and transparently decrypts GPG-encrypted leaves.
//
// Loading is total: parse errors, include errors and option errors are
// collected on the result while the remaining files still load. Only an
// unreadable root file aborts the load.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/parser"
	"github.com/robinvdvleuten/beanquery/telemetry"
	"github.com/rs/zerolog"
)

// DefaultGPGTimeout bounds a single gpg invocation. Decryption that takes
// longer, typically a pinentry prompt nobody answers, fails with a
// DecryptionTimeoutError instead of hanging the load.
const DefaultGPGTimeout = 60 * time.Second

const pgpArmorMarker = "-----BEGIN PGP MESSAGE-----"

// Result is the merged output of one load: the raw directive stream in
// source order, the extracted options record, and everything the caller
// needs to re-run the load later.
type Result struct {
	// Directives is the merged stream across all loaded files, unsorted.
	Directives ast.Directives

	// Options is the extracted options record with Filename, Include and
	// InputHash filled in.
	Options *options.Options

	// Plugins lists plugin declarations across all files in load order.
	Plugins []*ast.Plugin

	// Files lists every loaded file in load order, the root first.
	Files []string

	// Errors collects parse, include and option errors. Loading is total,
	// so a non-empty slice still comes with a usable directive stream.
	Errors []error
}

// Loader loads and merges ledger files.
type Loader struct {
	log        zerolog.Logger
	gpgTimeout time.Duration
	gpgCommand string
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger routes load progress to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithGPGTimeout overrides the decryption timeout.
func WithGPGTimeout(d time.Duration) Option {
	return func(l *Loader) { l.gpgTimeout = d }
}

// WithGPGCommand overrides the gpg binary, mainly for tests.
func WithGPGCommand(cmd string) Option {
	return func(l *Loader) { l.gpgCommand = cmd }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		log:        zerolog.Nop(),
		gpgTimeout: DefaultGPGTimeout,
		gpgCommand: "gpg",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the root file from disk and loads everything reachable from
// it.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	source, err := l.readFile(ctx, filename)
	if err != nil {
		return nil, err
	}
	return l.LoadSource(ctx, filename, source)
}

// LoadSource loads from in-memory root content, resolving includes
// relative to filename. This is the entry point for document-over-stdin
// callers.
func (l *Loader) LoadSource(ctx context.Context, filename string, source []byte) (*Result, error) {
	timer := telemetry.StartTimer(ctx, "loader.load "+filename)
	defer timer.End()

	root, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	state := &loadState{
		loader:  l,
		rootDir: filepath.Dir(root),
		state:   make(map[string]int),
		hash:    sha256.New(),
	}
	state.loadFile(ctx, root, source, ast.Position{Filename: root})

	opts, optErrs := options.Extract(state.options)
	state.errors = append(state.errors, optErrs...)
	opts.Filename = root
	opts.Include = append([]string(nil), state.files...)
	sort.Strings(opts.Include)
	opts.InputHash = hex.EncodeToString(state.hash.Sum(nil))
	for _, plugin := range state.plugins {
		opts.Plugin = append(opts.Plugin, options.PluginSpec{Name: plugin.Name, Config: plugin.Config})
	}

	l.log.Debug().
		Int("files", len(state.files)).
		Int("directives", len(state.directives)).
		Int("errors", len(state.errors)).
		Msg("load complete")

	return &Result{
		Directives: state.directives,
		Options:    opts,
		Plugins:    state.plugins,
		Files:      state.files,
		Errors:     state.errors,
	}, nil
}

// File load states for cycle detection.
const (
	stateLoading = 1
	stateDone    = 2
)

type loadState struct {
	loader  *Loader
	rootDir string
	state   map[string]int

	directives ast.Directives
	options    []*ast.Option
	plugins    []*ast.Plugin
	files      []string
	errors     []error
	hash       hash.Hash
}

// loadFile parses one file and recurses into its includes. Source is nil
// unless the caller already holds the content (the stdin root).
func (s *loadState) loadFile(ctx context.Context, path string, source []byte, includedAt ast.Position) {
	switch s.state[path] {
	case stateLoading:
		s.errors = append(s.errors, &IncludeCycleError{Pos: includedAt, Filename: path})
		return
	case stateDone:
		// Diamond includes load once.
		return
	}
	s.state[path] = stateLoading
	defer func() { s.state[path] = stateDone }()

	if source == nil {
		var err error
		source, err = s.loader.readFile(ctx, path)
		if err != nil {
			s.errors = append(s.errors, err)
			return
		}
	}

	s.files = append(s.files, path)
	_, _ = s.hash.Write(source)

	timer := telemetry.StartTimer(ctx, "loader.parse "+path)
	file, parseErrs := parser.Parse(path, source)
	timer.End()
	s.errors = append(s.errors, parseErrs...)

	s.loader.log.Debug().
		Str("file", path).
		Int("directives", len(file.Directives)).
		Int("errors", len(parseErrs)).
		Msg("parsed file")

	s.directives = append(s.directives, file.Directives...)
	s.options = append(s.options, file.Options...)
	s.plugins = append(s.plugins, file.Plugins...)

	baseDir := filepath.Dir(path)
	for _, include := range file.Includes {
		select {
		case <-ctx.Done():
			s.errors = append(s.errors, ctx.Err())
			return
		default:
		}

		target := include.Filename
		if !filepath.IsAbs(target) {
			target = filepath.Join(baseDir, target)
		}
		target = filepath.Clean(target)

		if !s.withinRoot(target) {
			s.errors = append(s.errors, &IncludePathEscapeError{
				Pos:      include.Pos,
				Filename: include.Filename,
				Root:     s.rootDir,
			})
			continue
		}

		s.loadFile(ctx, target, nil, include.Pos)
	}
}

// withinRoot reports whether a resolved include path stays inside the root
// file's directory tree.
func (s *loadState) withinRoot(path string) bool {
	rel, err := filepath.Rel(s.rootDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// readFile reads a leaf from disk, decrypting it when it is encrypted.
func (l *Loader) readFile(ctx context.Context, path string) ([]byte, error) {
	if IsEncrypted(path) {
		return l.decrypt(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Pos: ast.Position{Filename: path}, Filename: path, Err: err}
	}
	// An armored payload in a plain file still needs gpg.
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(pgpArmorMarker)) {
		return l.decrypt(ctx, path)
	}
	return data, nil
}

// IsEncrypted reports whether a file looks GPG-encrypted: a .gpg or .asc
// extension, or an ASCII-armored PGP message as content.
func IsEncrypted(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpg", ".asc":
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(pgpArmorMarker))
}

// decrypt shells out to gpg with a bounded timeout.
func (l *Loader) decrypt(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.gpgTimeout)
	defer cancel()

	l.log.Debug().Str("file", path).Msg("decrypting")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.gpgCommand, "--batch", "--quiet", "--decrypt", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &DecryptionTimeoutError{Filename: path, Timeout: l.gpgTimeout.String()}
	}
	if err != nil {
		return nil, &DecryptionError{Filename: path, Output: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
