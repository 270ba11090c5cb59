// Package ast declares the types used to represent a Beancount directive
// stream. Directives are produced by the parser package, rewritten by plugins,
// completed by the ledger, and finally hashed and sorted here into the
// canonical order consumed by queries and the wire surface.
package ast

import (
	"golang.org/x/exp/slices"
)

// Kind identifies a directive variant.
type Kind string

const (
	KindOpen        Kind = "open"
	KindClose       Kind = "close"
	KindCommodity   Kind = "commodity"
	KindTransaction Kind = "transaction"
	KindBalance     Kind = "balance"
	KindPad         Kind = "pad"
	KindNote        Kind = "note"
	KindDocument    Kind = "document"
	KindPrice       Kind = "price"
	KindEvent       Kind = "event"
	KindQuery       Kind = "query"
	KindCustom      Kind = "custom"
)

// kindOrder fixes the relative order of same-day directives. Opens come
// first so accounts exist before anything touches them, Closes come last so
// same-day activity still lands in an open account.
var kindOrder = map[Kind]int{
	KindOpen:        0,
	KindBalance:     1,
	KindDocument:    2,
	KindNote:        3,
	KindEvent:       4,
	KindQuery:       5,
	KindPrice:       6,
	KindCommodity:   7,
	KindPad:         8,
	KindTransaction: 9,
	KindCustom:      10,
	KindClose:       11,
}

// KindOrder returns the same-day sort rank for a directive kind.
func KindOrder(k Kind) int { return kindOrder[k] }

// AllKinds lists every directive kind in same-day sort order.
func AllKinds() []Kind {
	ks := make([]Kind, 0, len(kindOrder))
	for k := range kindOrder {
		ks = append(ks, k)
	}
	slices.SortFunc(ks, func(a, b Kind) int { return kindOrder[a] - kindOrder[b] })
	return ks
}

// Directive is the interface implemented by all directive types.
type Directive interface {
	WithMetadata

	Date() *Date
	Kind() Kind
	Position() Position

	// Hash returns the 16-hex semantic fingerprint, empty until
	// HashDirectives has run over the stream.
	Hash() string
	setHash(string)
}

// Directives is the canonical directive stream.
type Directives []Directive

// WithMetadata is implemented by nodes that can carry metadata.
type WithMetadata interface {
	AddMetadata(...*Metadata)
	Meta() []*Metadata
}

// withMeta is the embeddable metadata holder shared by directives and
// postings.
type withMeta struct {
	Metadata []*Metadata
}

func (w *withMeta) AddMetadata(m ...*Metadata) { w.Metadata = append(w.Metadata, m...) }
func (w *withMeta) Meta() []*Metadata          { return w.Metadata }

// MetaValue returns the value for a metadata key, or nil.
func (w *withMeta) MetaValue(key string) *MetadataValue {
	for _, m := range w.Metadata {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// withHash is the embeddable hash slot filled by HashDirectives.
type withHash struct {
	hash string
}

func (w *withHash) Hash() string     { return w.hash }
func (w *withHash) setHash(h string) { w.hash = h }

// Compare orders two directives by (date, kind order). Insertion order
// breaks the remaining ties, which callers obtain by sorting stably.
func Compare(a, b Directive) int {
	ad, bd := a.Date(), b.Date()
	if ad.Before(bd.Time) {
		return -1
	}
	if ad.After(bd.Time) {
		return 1
	}
	return kindOrder[a.Kind()] - kindOrder[b.Kind()]
}

// isSorted reports whether the stream is already in canonical order.
func isSorted(ds Directives) bool {
	for i := 1; i < len(ds); i++ {
		if Compare(ds[i], ds[i-1]) < 0 {
			return false
		}
	}
	return true
}

// SortDirectives sorts the stream by (date, kind order, insertion index).
// The sort is stable, so user order survives within a same-day kind.
func SortDirectives(ds Directives) {
	if isSorted(ds) {
		return
	}
	slices.SortStableFunc(ds, Compare)
}
