package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Reserved metadata keys that never contribute to a directive hash. The
// first three are positional bookkeeping; __tolerances__ is scratch state
// left by the booking pass.
var unhashedMetaKeys = map[string]bool{
	"filename":       true,
	"lineno":         true,
	"hash":           true,
	"__tolerances__": true,
}

// HashDirective computes the 16-hex semantic fingerprint of a directive: a
// truncated sha256 over a canonical serialization of its content. Source
// position is excluded, so the same directive text hashes identically
// wherever it appears.
func HashDirective(d Directive) string {
	var b strings.Builder
	b.WriteString(string(d.Kind()))
	b.WriteByte('\x00')
	b.WriteString(d.Date().String())
	b.WriteByte('\x00')
	writeDirectiveBody(&b, d)
	writeMeta(&b, d.Meta())

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// HashDirectives fills the hash slot of every directive in the stream.
// Runs after plugins and booking so synthesized directives are covered too.
func HashDirectives(ds Directives) {
	for _, d := range ds {
		d.setHash(HashDirective(d))
	}
}

func writeDirectiveBody(b *strings.Builder, d Directive) {
	switch v := d.(type) {
	case *Open:
		writeFields(b, string(v.Account), strings.Join(v.Currencies, ","), v.Booking)
	case *Close:
		writeFields(b, string(v.Account))
	case *Commodity:
		writeFields(b, v.Currency)
	case *Balance:
		writeFields(b, string(v.Account), v.Amount.Number.String(), v.Amount.Currency)
	case *Pad:
		writeFields(b, string(v.Account), string(v.AccountPad))
	case *Note:
		writeFields(b, string(v.Account), v.Comment)
	case *Document:
		writeFields(b, string(v.Account), v.Path)
	case *Price:
		writeFields(b, v.Currency, v.Amount.Number.String(), v.Amount.Currency)
	case *Event:
		writeFields(b, v.Name, v.Value)
	case *Query:
		writeFields(b, v.Name, v.Contents)
	case *Custom:
		writeFields(b, v.Type)
		for _, cv := range v.Values {
			writeFields(b, cv.Render())
		}
	case *Transaction:
		writeFields(b, v.Flag, v.Payee, v.Narration)
		writeStringSet(b, tagsToStrings(v.Tags))
		writeStringSet(b, linksToStrings(v.Links))
		for _, p := range v.Postings {
			writePosting(b, p)
		}
	}
}

func writePosting(b *strings.Builder, p *Posting) {
	b.WriteString("posting\x00")
	writeFields(b, p.Flag, string(p.Account))
	if p.Units != nil {
		writeFields(b, p.Units.Number.String(), p.Units.Currency)
	} else {
		writeFields(b, "", "")
	}
	if p.Cost != nil {
		writeFields(b, p.Cost.Number.String(), p.Cost.Currency, p.Cost.Date.String(), p.Cost.Label)
	}
	if p.Price != nil {
		writeFields(b, p.Price.Number.String(), p.Price.Currency)
	}
}

// writeMeta serializes metadata sorted by key so that source ordering does
// not affect the fingerprint.
func writeMeta(b *strings.Builder, meta []*Metadata) {
	entries := make([]string, 0, len(meta))
	for _, m := range meta {
		if unhashedMetaKeys[m.Key] {
			continue
		}
		entries = append(entries, fmt.Sprintf("%s=%s", m.Key, m.Value.Render()))
	}
	slices.Sort(entries)
	for _, e := range entries {
		b.WriteString(e)
		b.WriteByte('\x00')
	}
}

// writeStringSet serializes a set-valued field order-insensitively.
func writeStringSet(b *strings.Builder, items []string) {
	sorted := slices.Clone(items)
	slices.Sort(sorted)
	writeFields(b, sorted...)
}

func writeFields(b *strings.Builder, fields ...string) {
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte('\x00')
	}
}

func tagsToStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func linksToStrings(links []Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = string(l)
	}
	return out
}
