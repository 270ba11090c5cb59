package ast

// Option sets a named ledger-wide configuration value.
//
// Example:
//
//	option "title" "Personal Ledger"
//	option "operating_currency" "USD"
type Option struct {
	Pos   Position
	Name  string
	Value string
}

func (o *Option) Position() Position { return o.Pos }

// Include pulls in directives from another file, resolved relative to the
// including file by the loader.
type Include struct {
	Pos      Position
	Filename string
}

func (i *Include) Position() Position { return i.Pos }

// Plugin names a directive transformer to run over the stream, with an
// optional configuration string.
//
// Example:
//
//	plugin "beancount.plugins.auto_accounts"
//	plugin "beancount.plugins.check_commodity" "USD,EUR"
type Plugin struct {
	Pos    Position
	Name   string
	Config string
}

func (p *Plugin) Position() Position { return p.Pos }

// File is the result of parsing one source file: the directives it declares
// plus the undated top-level forms the loader and options extractor consume.
// Push/pop state has already been folded into the directives by the parser,
// so the stream here carries its inherited tags and metadata.
type File struct {
	Filename   string
	Directives Directives
	Options    []*Option
	Includes   []*Include
	Plugins    []*Plugin
}
