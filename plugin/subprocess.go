package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/wire"
	"github.com/rs/zerolog"
)

// Subprocess runs an external plugin executable. The directive stream is
// written to the process as JSON and read back rewritten, using the same
// wire format as the public surface, so a plugin can be written in any
// language that can parse JSON.
type Subprocess struct {
	PluginName string
	Path       string
	Log        zerolog.Logger
}

var _ Plugin = &Subprocess{}

// subprocessRequest is what the plugin reads on stdin.
type subprocessRequest struct {
	APIVersion string            `json:"api_version"`
	Config     string            `json:"config,omitempty"`
	Options    *options.Options  `json:"options"`
	Directives []*wire.Directive `json:"directives"`
}

// subprocessResponse is what the plugin writes on stdout.
type subprocessResponse struct {
	APIVersion string            `json:"api_version"`
	Directives []*wire.Directive `json:"directives"`
	Errors     []*wire.Error     `json:"errors,omitempty"`
}

func (s *Subprocess) Name() string { return s.PluginName }

// Run feeds the stream through the executable. Process failures and
// malformed responses surface as a single RuntimeError with the original
// stream passed through; diagnostics reported by the plugin keep the kind
// the plugin assigned.
func (s *Subprocess) Run(ctx context.Context, directives ast.Directives, opts *options.Options, config string) (ast.Directives, []error) {
	request, err := json.Marshal(&subprocessRequest{
		APIVersion: wire.APIVersion,
		Config:     config,
		Options:    opts,
		Directives: wire.EncodeDirectives(directives),
	})
	if err != nil {
		return directives, []error{&RuntimeError{Name: s.PluginName, Err: err}}
	}

	s.Log.Debug().Str("plugin", s.PluginName).Str("path", s.Path).Msg("running subprocess plugin")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Path)
	cmd.Stdin = bytes.NewReader(request)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = &processError{err: err, stderr: msg}
		}
		return directives, []error{&RuntimeError{Name: s.PluginName, Err: err}}
	}

	var response subprocessResponse
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return directives, []error{&RuntimeError{Name: s.PluginName, Err: err}}
	}
	if !compatibleVersion(response.APIVersion) {
		return directives, []error{&IncompatibleAPIVersionError{
			Name: s.PluginName,
			Got:  response.APIVersion,
			Want: wire.APIVersion,
		}}
	}

	rewritten, decodeErrs := wire.DecodeDirectives(response.Directives)
	if len(decodeErrs) > 0 {
		return directives, []error{&RuntimeError{Name: s.PluginName, Err: decodeErrs[0]}}
	}

	var errs []error
	for _, werr := range response.Errors {
		errs = append(errs, &diagnostic{kind: werr.Kind, message: werr.Message})
	}
	return rewritten, errs
}

// compatibleVersion reports whether a response version shares our major
// version.
func compatibleVersion(version string) bool {
	got, _, _ := strings.Cut(version, ".")
	want, _, _ := strings.Cut(wire.APIVersion, ".")
	return got == want
}

type processError struct {
	err    error
	stderr string
}

func (e *processError) Error() string { return e.err.Error() + ": " + e.stderr }
func (e *processError) Unwrap() error { return e.err }
