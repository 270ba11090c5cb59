package ledger

import (
	"sort"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// Lot is one position in an inventory: a quantity of a currency held at an
// optional cost basis. Lots without cost represent plain cash positions.
type Lot struct {
	Currency string
	Units    decimal.Decimal
	Cost     *ast.Cost
}

// String renders the lot as it would appear in a posting.
func (l *Lot) String() string {
	s := l.Units.String() + " " + l.Currency
	if l.Cost != nil {
		s += " {" + l.Cost.String() + "}"
	}
	return s
}

// Inventory is a multiset of lots keyed by currency. Lots that reach zero
// units are pruned so an emptied inventory compares equal to a fresh one.
type Inventory struct {
	lots map[string][]*Lot
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{lots: make(map[string][]*Lot)}
}

// Add accumulates units of a currency without cost basis.
func (inv *Inventory) Add(currency string, units decimal.Decimal) {
	inv.AddLot(currency, units, nil)
}

// AddLot accumulates units into the lot matching the given cost basis,
// creating the lot if none matches and pruning it if the sum reaches zero.
func (inv *Inventory) AddLot(currency string, units decimal.Decimal, cost *ast.Cost) {
	for _, lot := range inv.lots[currency] {
		if lot.Cost.Equal(cost) {
			lot.Units = lot.Units.Add(units)
			if lot.Units.IsZero() {
				inv.removeLot(currency, lot)
			}
			return
		}
	}
	if units.IsZero() {
		return
	}
	inv.lots[currency] = append(inv.lots[currency], &Lot{Currency: currency, Units: units, Cost: cost})
}

// Units returns the total quantity of a currency across all lots.
func (inv *Inventory) Units(currency string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range inv.lots[currency] {
		total = total.Add(lot.Units)
	}
	return total
}

// Lots returns the lots held in a currency, in insertion order.
func (inv *Inventory) Lots(currency string) []*Lot {
	return inv.lots[currency]
}

// AllLots returns every lot across all currencies, sorted by currency then
// cost for deterministic iteration.
func (inv *Inventory) AllLots() []*Lot {
	var all []*Lot
	for _, lots := range inv.lots {
		all = append(all, lots...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Currency != all[j].Currency {
			return all[i].Currency < all[j].Currency
		}
		return costKey(all[i].Cost) < costKey(all[j].Cost)
	})
	return all
}

// Currencies returns the currencies with at least one lot, sorted.
func (inv *Inventory) Currencies() []string {
	currencies := make([]string, 0, len(inv.lots))
	for currency := range inv.lots {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}

// IsEmpty reports whether the inventory holds no lots.
func (inv *Inventory) IsEmpty() bool {
	return len(inv.lots) == 0
}

// Copy returns a deep copy; the lots of the copy can be mutated freely.
func (inv *Inventory) Copy() *Inventory {
	out := NewInventory()
	for currency, lots := range inv.lots {
		copied := make([]*Lot, len(lots))
		for i, lot := range lots {
			clone := *lot
			copied[i] = &clone
		}
		out.lots[currency] = copied
	}
	return out
}

// Equal compares two inventories without regard to lot insertion order.
func (inv *Inventory) Equal(other *Inventory) bool {
	if len(inv.lots) != len(other.lots) {
		return false
	}
	for currency, lots := range inv.lots {
		others := other.lots[currency]
		if len(lots) != len(others) {
			return false
		}
		for _, lot := range lots {
			found := false
			for _, o := range others {
				if lot.Cost.Equal(o.Cost) && lot.Units.Equal(o.Units) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// String renders the inventory in a stable order, e.g.
// "(100.00 USD, 10 HOOL {518.73 USD, 2014-05-01})".
func (inv *Inventory) String() string {
	if inv.IsEmpty() {
		return "()"
	}
	var buf strings.Builder
	buf.WriteByte('(')
	for i, lot := range inv.AllLots() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(lot.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

func (inv *Inventory) removeLot(currency string, target *Lot) {
	lots := inv.lots[currency]
	kept := lots[:0]
	for _, lot := range lots {
		if lot != target {
			kept = append(kept, lot)
		}
	}
	if len(kept) == 0 {
		delete(inv.lots, currency)
	} else {
		inv.lots[currency] = kept
	}
}

func costKey(cost *ast.Cost) string {
	if cost == nil {
		return ""
	}
	return cost.String()
}
