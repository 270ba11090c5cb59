package cli

import (
	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beanquery"
)

type isEncryptedResponse struct {
	APIVersion string `json:"api_version"`
	Encrypted  bool   `json:"encrypted"`
}

// IsEncryptedCmd reports whether a file looks GPG-encrypted.
type IsEncryptedCmd struct {
	Path string `help:"File to inspect." arg:""`
}

func (cmd *IsEncryptedCmd) Run(ctx *kong.Context, globals *Globals) error {
	return respond(ctx.Stdout, &isEncryptedResponse{
		APIVersion: beanquery.APIVersion,
		Encrypted:  beanquery.IsEncrypted(cmd.Path),
	})
}

type accountTypeResponse struct {
	APIVersion  string `json:"api_version"`
	AccountType string `json:"account_type"`
}

// GetAccountTypeCmd maps an account name to its root category.
type GetAccountTypeCmd struct {
	Account string `help:"Account name, e.g. Assets:Checking." arg:""`
}

func (cmd *GetAccountTypeCmd) Run(ctx *kong.Context, globals *Globals) error {
	typ, err := beanquery.AccountType(cmd.Account, nil)
	if err != nil {
		return userError(err)
	}
	return respond(ctx.Stdout, &accountTypeResponse{
		APIVersion:  beanquery.APIVersion,
		AccountType: typ,
	})
}

type typesResponse struct {
	APIVersion string `json:"api_version"`
	*beanquery.Types
}

// TypesCmd enumerates directive kinds, booking methods and account roots.
type TypesCmd struct{}

func (cmd *TypesCmd) Run(ctx *kong.Context, globals *Globals) error {
	return respond(ctx.Stdout, &typesResponse{
		APIVersion: beanquery.APIVersion,
		Types:      beanquery.AllTypes(nil),
	})
}

type versionResponse struct {
	APIVersion string `json:"api_version"`
	Version    string `json:"version"`
	Commit     string `json:"commit,omitempty"`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, globals *Globals) error {
	version := Version
	if version == "" {
		version = "devel"
	}
	return respond(ctx.Stdout, &versionResponse{
		APIVersion: beanquery.APIVersion,
		Version:    version,
		Commit:     CommitSHA,
	})
}
