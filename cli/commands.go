package cli

// Version metadata, injected at build time.
var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool `help:"Show timing telemetry for operations."`
}

// Commands is the full command tree. The JSON commands write one response
// object to stdout; check, format and doctor are human-facing.
type Commands struct {
	Globals

	Load           LoadCmd           `cmd:"" name:"load" help:"Load a document and emit the booked stream as JSON."`
	LoadFull       LoadFullCmd       `cmd:"" name:"load-full" help:"Load from a path with extra plugins; includes loaded files."`
	Query          QueryCmd          `cmd:"" help:"Evaluate a BQL query over a document."`
	Validate       ValidateCmd       `cmd:"" help:"Report whether a document loads without errors."`
	Format         FormatCmd         `cmd:"" help:"Format a document to align numbers and currencies."`
	FormatEntry    FormatEntryCmd    `cmd:"" name:"format-entry" help:"Render one JSON entry as canonical source."`
	CreateEntry    CreateEntryCmd    `cmd:"" name:"create-entry" help:"Complete one JSON entry with metadata and hash."`
	Clamp          ClampCmd          `cmd:"" help:"Truncate a document to a date window with opening summaries."`
	FilterEntries  FilterEntriesCmd  `cmd:"" name:"filter-entries" help:"Filter a JSON entry stream to a date window."`
	IsEncrypted    IsEncryptedCmd    `cmd:"" name:"is-encrypted" help:"Report whether a file is GPG-encrypted."`
	GetAccountType GetAccountTypeCmd `cmd:"" name:"get-account-type" help:"Map an account name to its root category."`
	Types          TypesCmd          `cmd:"" help:"Enumerate directive kinds and booking methods."`
	Version        VersionCmd        `cmd:"" help:"Print version information."`

	Check  CheckCmd  `cmd:"" help:"Parse, book and validate a document, human readable."`
	Doctor DoctorCmd `cmd:"" help:"Doctor utilities for debugging documents."`
}
