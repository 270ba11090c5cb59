package query

import (
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/shopspring/decimal"
)

// Type names a column type as surfaced to callers.
type Type string

const (
	TypeStr       Type = "str"
	TypeInt       Type = "int"
	TypeDecimal   Type = "Decimal"
	TypeBool      Type = "bool"
	TypeDate      Type = "date"
	TypeSet       Type = "set"
	TypeAmount    Type = "Amount"
	TypePosition  Type = "Position"
	TypeInventory Type = "Inventory"
	TypeObject    Type = "object"
)

// Column describes one column of a result: its display name and type.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Position is a posting's units at its optional cost basis.
type Position struct {
	Units *ast.Amount
	Cost  *ast.Cost
}

// String renders the position as it would appear in a posting. Postings
// left without units by a failed booking render empty.
func (p *Position) String() string {
	if p == nil || p.Units == nil {
		return ""
	}
	s := p.Units.String()
	if p.Cost != nil {
		s += " {" + p.Cost.String() + "}"
	}
	return s
}

// Result is an executed query: typed columns and rows of values. Row cells
// hold string, int, decimal.Decimal, bool, *ast.Date, []string,
// *ast.Amount, *Position or *ledger.Inventory according to the column type.
type Result struct {
	Columns []Column
	Rows    [][]any
}

// RenderValue returns the display form of one result cell.
func RenderValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return decimal.NewFromInt(int64(v)).String()
	case decimal.Decimal:
		return v.String()
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case *ast.Date:
		return v.String()
	case []string:
		return strings.Join(v, ",")
	case *ast.Amount:
		return v.String()
	case *Position:
		return v.String()
	case *ledger.Inventory:
		return v.String()
	default:
		return ""
	}
}

// compareValues orders two cells of the same type. Nil sorts first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch a := a.(type) {
	case string:
		return strings.Compare(a, b.(string))
	case int:
		return a - b.(int)
	case decimal.Decimal:
		return a.Cmp(b.(decimal.Decimal))
	case bool:
		bb := b.(bool)
		switch {
		case a == bb:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case *ast.Date:
		bd := b.(*ast.Date)
		switch {
		case a == nil || a.IsZero():
			if bd == nil || bd.IsZero() {
				return 0
			}
			return -1
		case bd == nil || bd.IsZero():
			return 1
		case a.Before(bd.Time):
			return -1
		case a.After(bd.Time):
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(RenderValue(a), RenderValue(b))
	}
}
