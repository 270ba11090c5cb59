package ast

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

// Same-day directives sort Opens first and Closes last, with the remaining
// kinds in their fixed relative order.
func TestSortSameDayKindOrder(t *testing.T) {
	date := MustDate("2020-01-01")
	account := Account("Assets:Cash")

	txn := NewTransaction(date, "coffee", WithFlag("*"))
	cls := NewClose(date, account)
	bal := NewBalance(date, account, NewAmount("5.00", "USD"))
	opn := NewOpen(date, account, nil, "")

	ds := Directives{txn, cls, bal, opn}
	SortDirectives(ds)

	assert.Equal(t, KindOpen, ds[0].Kind())
	assert.Equal(t, KindBalance, ds[1].Kind())
	assert.Equal(t, KindTransaction, ds[2].Kind())
	assert.Equal(t, KindClose, ds[3].Kind())
}

// Two same-day directives of the same kind keep their input order, and
// reversing them in the input reverses them in the output.
func TestSortStability(t *testing.T) {
	date := MustDate("2020-01-01")
	first := NewTransaction(date, "first", WithFlag("*"))
	second := NewTransaction(date, "second", WithFlag("*"))

	// Needs an out-of-order element so the fast path does not skip sorting.
	later := NewOpen(MustDate("2019-12-31"), Account("Assets:Cash"), nil, "")

	ds := Directives{first, second, later}
	SortDirectives(ds)
	assert.Equal(t, "first", ds[1].(*Transaction).Narration)
	assert.Equal(t, "second", ds[2].(*Transaction).Narration)

	ds = Directives{second, first, later}
	SortDirectives(ds)
	assert.Equal(t, "second", ds[1].(*Transaction).Narration)
	assert.Equal(t, "first", ds[2].(*Transaction).Narration)
}

// Dates dominate kind order when sorting across days.
func TestSortByDate(t *testing.T) {
	cls := NewClose(MustDate("2020-01-01"), Account("Assets:Cash"))
	opn := NewOpen(MustDate("2020-01-02"), Account("Assets:Savings"), nil, "")

	ds := Directives{opn, cls}
	SortDirectives(ds)
	assert.Equal(t, KindClose, ds[0].Kind())
	assert.Equal(t, KindOpen, ds[1].Kind())
}

// AllKinds enumerates every directive kind in same-day sort order.
func TestAllKinds(t *testing.T) {
	ks := AllKinds()
	assert.Equal(t, 12, len(ks))
	assert.Equal(t, KindOpen, ks[0])
	assert.Equal(t, KindClose, ks[11])
	for i, k := range ks {
		assert.Equal(t, i, KindOrder(k))
	}
}

// Account helpers split the root type and parent off a name.
func TestAccountHelpers(t *testing.T) {
	a := Account("Assets:US:BofA:Checking")
	assert.Equal(t, "Assets", a.Type())
	assert.Equal(t, Account("Assets:US:BofA"), a.Parent())

	assert.NoError(t, ValidateAccount("Expenses:Food:Restaurant"))
	assert.Error(t, ValidateAccount("Food"))
	assert.Error(t, ValidateAccount("Banana:Food"))
	assert.Error(t, ValidateAccount("Assets:lowercase"))
}
