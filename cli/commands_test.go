package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"
)

const testLedger = `2014-01-01 open Assets:Checking
2014-01-01 open Income:Salary
2014-01-01 open Expenses:Food

2014-01-05 * "Employer" "Salary"
  Assets:Checking                            2000.00 USD
  Income:Salary

2014-02-10 * "Lunch"
  Expenses:Food                                20.00 USD
  Assets:Checking
`

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.beancount")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCommand executes one command line against the full command tree and
// captures both streams.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var commands Commands
	var stdout, stderr strings.Builder

	parser, err := kong.New(&commands, kong.Name("beanquery"), kong.Writers(&stdout, &stderr))
	assert.NoError(t, err)

	ctx, err := parser.Parse(args)
	assert.NoError(t, err)

	runErr := ctx.Run(&commands.Globals)
	return stdout.String(), stderr.String(), runErr
}

// feedStdin replaces stdin with the given payload for one test.
func feedStdin(t *testing.T, payload string) {
	t.Helper()
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	_, err = w.WriteString(payload)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	old := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = old })
}

// load emits the booked stream with options inside a versioned envelope.
func TestLoadCommand(t *testing.T) {
	path := writeLedger(t, testLedger)
	stdout, _, err := runCommand(t, "load", path)
	assert.NoError(t, err)

	var response struct {
		APIVersion string `json:"api_version"`
		Entries    []struct {
			Kind string `json:"kind"`
			Hash string `json:"hash"`
		} `json:"entries"`
		Errors  []any `json:"errors"`
		Options struct {
			BookingMethod string `json:"booking_method"`
			InputHash     string `json:"input_hash"`
		} `json:"options"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, "1.2", response.APIVersion)
	assert.Equal(t, 5, len(response.Entries))
	assert.Equal(t, 0, len(response.Errors))
	assert.Equal(t, "open", response.Entries[0].Kind)
	assert.Equal(t, 16, len(response.Entries[0].Hash))
	assert.Equal(t, "STRICT", response.Options.BookingMethod)
	assert.NotEqual(t, "", response.Options.InputHash)
}

// load-full reports the loaded file list.
func TestLoadFullCommand(t *testing.T) {
	path := writeLedger(t, testLedger)
	stdout, _, err := runCommand(t, "load-full", path)
	assert.NoError(t, err)

	var response struct {
		LoadedFiles []string `json:"loaded_files"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, 1, len(response.LoadedFiles))
}

// validate reports validity and errors.
func TestValidateCommand(t *testing.T) {
	path := writeLedger(t, testLedger)
	stdout, _, err := runCommand(t, "validate", path)
	assert.NoError(t, err)

	var response struct {
		Valid  bool  `json:"valid"`
		Errors []any `json:"errors"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.True(t, response.Valid)

	bad := writeLedger(t, testLedger+"\n2014-03-01 balance Assets:Checking 1.00 USD\n")
	stdout, _, err = runCommand(t, "validate", bad)
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.False(t, response.Valid)
	assert.Equal(t, 1, len(response.Errors))
}

// query returns typed columns and rendered rows.
func TestQueryCommand(t *testing.T) {
	path := writeLedger(t, testLedger)
	stdout, _, err := runCommand(t, "query",
		`SELECT account, sum(position) GROUP BY account ORDER BY account`, path)
	assert.NoError(t, err)

	var response struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows [][]string `json:"rows"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, 2, len(response.Columns))
	assert.Equal(t, "Inventory", response.Columns[1].Type)
	assert.Equal(t, 3, len(response.Rows))
	assert.Equal(t, "Assets:Checking", response.Rows[0][0])
	assert.Equal(t, "(1980.00 USD)", response.Rows[0][1])
}

// clamp truncates the stream to the window.
func TestClampCommand(t *testing.T) {
	path := writeLedger(t, testLedger)
	stdout, _, err := runCommand(t, "clamp", "2014-02-01", "2014-03-01", path)
	assert.NoError(t, err)

	var response struct {
		Entries []struct {
			Kind string `json:"kind"`
			Date string `json:"date"`
			Flag string `json:"flag"`
		} `json:"entries"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	for _, entry := range response.Entries {
		assert.True(t, entry.Date >= "2014-02-01" && entry.Date < "2014-03-01")
	}
	assert.Equal(t, "S", response.Entries[0].Flag)
}

// filter-entries windows a JSON stream from stdin.
func TestFilterEntriesCommand(t *testing.T) {
	feedStdin(t, `[
		{"kind": "open", "date": "2014-01-01", "account": "Assets:Checking"},
		{"kind": "commodity", "date": "2014-01-02", "currency": "USD"},
		{"kind": "close", "date": "2014-04-01", "account": "Assets:Checking"}
	]`)
	stdout, _, err := runCommand(t, "filter-entries", "2014-02-01", "2014-03-01")
	assert.NoError(t, err)

	var response struct {
		Entries []struct {
			Kind string `json:"kind"`
		} `json:"entries"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, 2, len(response.Entries))
	assert.Equal(t, "open", response.Entries[0].Kind)
	assert.Equal(t, "close", response.Entries[1].Kind)
}

// format-entry renders one entry as source text.
func TestFormatEntryCommand(t *testing.T) {
	feedStdin(t, `{"kind": "open", "date": "2014-01-01", "account": "Assets:Checking", "currencies": ["USD"]}`)
	stdout, _, err := runCommand(t, "format-entry")
	assert.NoError(t, err)

	var response struct {
		Formatted string `json:"formatted"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, "2014-01-01 open Assets:Checking USD\n", response.Formatted)
}

// create-entry completes an entry with its hash.
func TestCreateEntryCommand(t *testing.T) {
	feedStdin(t, `{"kind": "note", "date": "2014-01-01", "account": "Assets:Checking", "comment": "hello"}`)
	stdout, _, err := runCommand(t, "create-entry")
	assert.NoError(t, err)

	var response struct {
		Entry struct {
			Kind string `json:"kind"`
			Hash string `json:"hash"`
		} `json:"entry"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, "note", response.Entry.Kind)
	assert.Equal(t, 16, len(response.Entry.Hash))
}

// Malformed request JSON is a user error, not a JSON response.
func TestCreateEntryMalformed(t *testing.T) {
	feedStdin(t, `{not json`)
	stdout, _, err := runCommand(t, "create-entry")
	assert.Equal(t, "", stdout)

	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, ExitUserError, cmdErr.ExitCode())
}

// format --raw prints canonical text; the default is a JSON response.
func TestFormatCommand(t *testing.T) {
	path := writeLedger(t, "2014-01-01 open Assets:Checking\n")
	stdout, _, err := runCommand(t, "format", "--raw", path)
	assert.NoError(t, err)
	assert.Equal(t, "2014-01-01 open Assets:Checking\n", stdout)

	stdout, _, err = runCommand(t, "format", path)
	assert.NoError(t, err)
	var response struct {
		Formatted string `json:"formatted"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, "2014-01-01 open Assets:Checking\n", response.Formatted)
}

// is-encrypted detects the .gpg extension.
func TestIsEncryptedCommand(t *testing.T) {
	stdout, _, err := runCommand(t, "is-encrypted", "ledger.beancount.gpg")
	assert.NoError(t, err)

	var response struct {
		Encrypted bool `json:"encrypted"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.True(t, response.Encrypted)
}

// get-account-type maps accounts to their root category.
func TestGetAccountTypeCommand(t *testing.T) {
	stdout, _, err := runCommand(t, "get-account-type", "Expenses:Food")
	assert.NoError(t, err)

	var response struct {
		AccountType string `json:"account_type"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, "Expenses", response.AccountType)
}

// types enumerates kinds and booking methods.
func TestTypesCommand(t *testing.T) {
	stdout, _, err := runCommand(t, "types")
	assert.NoError(t, err)

	var response struct {
		AllDirectives  []string `json:"all_directives"`
		BookingMethods []string `json:"booking_methods"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, 12, len(response.AllDirectives))
	assert.Equal(t, 6, len(response.BookingMethods))
}

// version reports the api version alongside the build version.
func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCommand(t, "version")
	assert.NoError(t, err)

	var response struct {
		APIVersion string `json:"api_version"`
		Version    string `json:"version"`
	}
	assert.NoError(t, json.Unmarshal([]byte(stdout), &response))
	assert.Equal(t, "1.2", response.APIVersion)
	assert.Equal(t, "devel", response.Version)
}

// check passes on a clean document and exits 1 on a broken one.
func TestCheckCommand(t *testing.T) {
	path := writeLedger(t, testLedger)
	stdout, _, err := runCommand(t, "check", path)
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Check passed")

	bad := writeLedger(t, testLedger+"\n2014-03-01 balance Assets:Checking 1.00 USD\n")
	_, stderr, err := runCommand(t, "check", bad)
	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, ExitUserError, cmdErr.ExitCode())
	assert.Contains(t, stderr, "balance failed")
}
