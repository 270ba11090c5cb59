package query

import (
	"regexp"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/shopspring/decimal"
)

// rowContext is the evaluation scope for one row. For posting rows every
// field is set; for entry rows (the FROM filter) posting and txn-derived
// fields may be nil.
type rowContext struct {
	entry    ast.Directive
	txn      *ast.Transaction
	posting  *ast.Posting
	balances map[ast.Account]*ledger.Inventory
}

// evaluator is a compiled expression: a static type and an evaluation
// closure.
type evaluator struct {
	typ  Type
	eval func(row *rowContext) any
}

// columnDef declares one column of an environment.
type columnDef struct {
	typ  Type
	eval func(row *rowContext) any
}

// postingColumns is the environment for targets and WHERE: one row per
// posting of each transaction.
var postingColumns = map[string]columnDef{
	"date": {TypeDate, func(row *rowContext) any { return row.entry.Date() }},
	"year": {TypeInt, func(row *rowContext) any { return row.entry.Date().Year() }},
	"flag": {TypeStr, func(row *rowContext) any {
		if row.posting != nil && row.posting.Flag != "" {
			return row.posting.Flag
		}
		return row.txn.Flag
	}},
	"payee":     {TypeStr, func(row *rowContext) any { return row.txn.Payee }},
	"narration": {TypeStr, func(row *rowContext) any { return row.txn.Narration }},
	"account":   {TypeStr, func(row *rowContext) any { return string(row.posting.Account) }},
	"number": {TypeDecimal, func(row *rowContext) any {
		if row.posting.Units == nil {
			return decimal.Zero
		}
		return row.posting.Units.Number
	}},
	"currency": {TypeStr, func(row *rowContext) any {
		if row.posting.Units == nil {
			return ""
		}
		return row.posting.Units.Currency
	}},
	"position": {TypePosition, func(row *rowContext) any {
		if row.posting.Units == nil {
			return (*Position)(nil)
		}
		return &Position{Units: row.posting.Units, Cost: row.posting.Cost}
	}},
	"cost_number": {TypeDecimal, func(row *rowContext) any {
		if row.posting.Cost == nil {
			return decimal.Zero
		}
		return row.posting.Cost.Number
	}},
	"cost_currency": {TypeStr, func(row *rowContext) any {
		if row.posting.Cost == nil {
			return ""
		}
		return row.posting.Cost.Currency
	}},
	"cost_date": {TypeDate, func(row *rowContext) any {
		if row.posting.Cost == nil {
			return (*ast.Date)(nil)
		}
		return row.posting.Cost.Date
	}},
	"balance": {TypeInventory, func(row *rowContext) any {
		if inv, ok := row.balances[row.posting.Account]; ok {
			return inv.Copy()
		}
		return ledger.NewInventory()
	}},
	"tags":  {TypeSet, func(row *rowContext) any { return tagSet(row.txn.Tags) }},
	"links": {TypeSet, func(row *rowContext) any { return linkSet(row.txn.Links) }},
}

// entryColumns is the environment for the FROM filter: one row per
// directive of any kind.
var entryColumns = map[string]columnDef{
	"date": {TypeDate, func(row *rowContext) any { return row.entry.Date() }},
	"year": {TypeInt, func(row *rowContext) any { return row.entry.Date().Year() }},
	"kind": {TypeStr, func(row *rowContext) any { return string(row.entry.Kind()) }},
	"flag": {TypeStr, func(row *rowContext) any {
		if row.txn != nil {
			return row.txn.Flag
		}
		return ""
	}},
	"payee": {TypeStr, func(row *rowContext) any {
		if row.txn != nil {
			return row.txn.Payee
		}
		return ""
	}},
	"narration": {TypeStr, func(row *rowContext) any {
		if row.txn != nil {
			return row.txn.Narration
		}
		return ""
	}},
	"tags": {TypeSet, func(row *rowContext) any {
		if row.txn != nil {
			return tagSet(row.txn.Tags)
		}
		return []string(nil)
	}},
	"links": {TypeSet, func(row *rowContext) any {
		if row.txn != nil {
			return linkSet(row.txn.Links)
		}
		return []string(nil)
	}},
}

func tagSet(tags []ast.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func linkSet(links []ast.Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = string(l)
	}
	return out
}

// wildcardColumns is what SELECT * expands to.
var wildcardColumns = []string{
	"date", "flag", "payee", "narration", "account",
	"number", "currency", "cost_number", "cost_currency",
}

type aggKind int

const (
	aggNone aggKind = iota
	aggSum
	aggCount
	aggFirst
	aggLast
)

var aggKinds = map[string]aggKind{
	"sum":   aggSum,
	"count": aggCount,
	"first": aggFirst,
	"last":  aggLast,
}

// compiledTarget is one projected column: either a plain evaluator or an
// aggregate over one.
type compiledTarget struct {
	column Column
	agg    aggKind
	arg    evaluator
}

// compiled is a query ready to execute.
type compiled struct {
	query   string
	targets []compiledTarget
	from    *evaluator
	where   *evaluator
	groupBy []int
	orderBy []orderSpec
	limit   *int
}

type orderSpec struct {
	index int
	desc  bool
}

// compile resolves the statement against the column environments and
// type-checks it.
func compile(queryText string, stmt *selectStmt) (*compiled, error) {
	c := &compiled{query: queryText, limit: stmt.Limit}

	targets := stmt.Targets
	if stmt.Wildcard {
		targets = nil
		for _, name := range wildcardColumns {
			targets = append(targets, target{Expr: &columnExpr{Name: name}})
		}
	}

	for _, t := range targets {
		ct, err := c.compileTarget(t)
		if err != nil {
			return nil, err
		}
		c.targets = append(c.targets, ct)
	}

	if stmt.From != nil {
		ev, err := c.compileExpr(stmt.From, entryColumns)
		if err != nil {
			return nil, err
		}
		if ev.typ != TypeBool {
			return nil, newCompileErrorf(queryText, "FROM filter must be a boolean, got %s", ev.typ)
		}
		c.from = &ev
	}
	if stmt.Where != nil {
		ev, err := c.compileExpr(stmt.Where, postingColumns)
		if err != nil {
			return nil, err
		}
		if ev.typ != TypeBool {
			return nil, newCompileErrorf(queryText, "WHERE filter must be a boolean, got %s", ev.typ)
		}
		c.where = &ev
	}

	if err := c.resolveGrouping(stmt); err != nil {
		return nil, err
	}

	for _, key := range stmt.OrderBy {
		idx, err := c.resolveRef(key.Ref)
		if err != nil {
			return nil, err
		}
		c.orderBy = append(c.orderBy, orderSpec{index: idx, desc: key.Desc})
	}
	return c, nil
}

func (c *compiled) compileTarget(t target) (compiledTarget, error) {
	name := t.As
	if name == "" {
		name = t.Expr.text()
	}

	if call, ok := t.Expr.(*callExpr); ok {
		if kind, isAgg := aggKinds[call.Func]; isAgg {
			if len(call.Args) != 1 {
				return compiledTarget{}, newCompileErrorf(c.query, "%s takes exactly one argument", call.Func)
			}
			if containsAggregate(call.Args[0]) {
				return compiledTarget{}, newCompileErrorf(c.query, "aggregates cannot nest")
			}
			arg, err := c.compileExpr(call.Args[0], postingColumns)
			if err != nil {
				return compiledTarget{}, err
			}
			typ, err := c.aggregateType(kind, call.Func, arg.typ)
			if err != nil {
				return compiledTarget{}, err
			}
			return compiledTarget{column: Column{Name: name, Type: typ}, agg: kind, arg: arg}, nil
		}
	}
	if containsAggregate(t.Expr) {
		return compiledTarget{}, newCompileErrorf(c.query, "aggregates must be the outermost call of a target")
	}

	ev, err := c.compileExpr(t.Expr, postingColumns)
	if err != nil {
		return compiledTarget{}, err
	}
	return compiledTarget{column: Column{Name: name, Type: ev.typ}, arg: ev}, nil
}

func (c *compiled) aggregateType(kind aggKind, name string, arg Type) (Type, error) {
	switch kind {
	case aggCount:
		return TypeInt, nil
	case aggFirst, aggLast:
		return arg, nil
	case aggSum:
		switch arg {
		case TypeDecimal, TypeInt:
			return arg, nil
		case TypeAmount, TypePosition:
			return TypeInventory, nil
		default:
			return "", newCompileErrorf(c.query, "cannot sum a %s", arg)
		}
	}
	return "", newCompileErrorf(c.query, "unknown aggregate %q", name)
}

func containsAggregate(e expr) bool {
	switch e := e.(type) {
	case *callExpr:
		if _, ok := aggKinds[e.Func]; ok {
			return true
		}
		for _, a := range e.Args {
			if containsAggregate(a) {
				return true
			}
		}
	case *binaryExpr:
		return containsAggregate(e.Left) || containsAggregate(e.Right)
	case *unaryExpr:
		return containsAggregate(e.X)
	case *caseExpr:
		for _, w := range e.Whens {
			if containsAggregate(w.Cond) || containsAggregate(w.Then) {
				return true
			}
		}
		if e.Else != nil {
			return containsAggregate(e.Else)
		}
	}
	return false
}

// resolveGrouping checks aggregate/grouping consistency: with grouping or
// any aggregate present, every plain target must be a group key.
func (c *compiled) resolveGrouping(stmt *selectStmt) error {
	hasAggregate := false
	for _, t := range c.targets {
		if t.agg != aggNone {
			hasAggregate = true
		}
	}

	grouped := make(map[int]bool)
	for _, ref := range stmt.GroupBy {
		idx, err := c.resolveRef(ref)
		if err != nil {
			return err
		}
		if c.targets[idx].agg != aggNone {
			return newCompileErrorf(c.query, "cannot group by aggregate column %q", c.targets[idx].column.Name)
		}
		if !grouped[idx] {
			grouped[idx] = true
			c.groupBy = append(c.groupBy, idx)
		}
	}

	if len(c.groupBy) == 0 && !hasAggregate {
		return nil
	}
	for i, t := range c.targets {
		if t.agg == aggNone && !grouped[i] {
			return newCompileErrorf(c.query, "column %q is not aggregated and not in GROUP BY", t.column.Name)
		}
	}
	return nil
}

// resolveRef maps a GROUP BY / ORDER BY reference onto a target index.
func (c *compiled) resolveRef(ref columnRef) (int, error) {
	if ref.Index > 0 {
		if ref.Index > len(c.targets) {
			return 0, newCompileErrorf(c.query, "column index %d out of range", ref.Index)
		}
		return ref.Index - 1, nil
	}
	for i, t := range c.targets {
		if t.column.Name == ref.Name {
			return i, nil
		}
	}
	return 0, newCompileErrorf(c.query, "unknown column %q", ref.Name)
}

func (c *compiled) compileExpr(e expr, env map[string]columnDef) (evaluator, error) {
	switch e := e.(type) {
	case *columnExpr:
		def, ok := env[e.Name]
		if !ok {
			return evaluator{}, newCompileErrorf(c.query, "unknown column %q", e.Name)
		}
		return evaluator{typ: def.typ, eval: def.eval}, nil

	case *literalExpr:
		switch {
		case e.Str != nil:
			v := *e.Str
			return evaluator{typ: TypeStr, eval: func(*rowContext) any { return v }}, nil
		case e.Number != nil:
			v := *e.Number
			return evaluator{typ: TypeDecimal, eval: func(*rowContext) any { return v }}, nil
		case e.Date != nil:
			v := e.Date
			return evaluator{typ: TypeDate, eval: func(*rowContext) any { return v }}, nil
		case e.Bool != nil:
			v := *e.Bool
			return evaluator{typ: TypeBool, eval: func(*rowContext) any { return v }}, nil
		}
		return evaluator{}, newCompileErrorf(c.query, "empty literal")

	case *unaryExpr:
		return c.compileUnary(e, env)

	case *binaryExpr:
		return c.compileBinary(e, env)

	case *callExpr:
		if _, isAgg := aggKinds[e.Func]; isAgg {
			return evaluator{}, newCompileErrorf(c.query, "aggregate %q not allowed here", e.Func)
		}
		return c.compileCall(e, env)

	case *caseExpr:
		return c.compileCase(e, env)
	}
	return evaluator{}, newCompileErrorf(c.query, "unsupported expression")
}

func (c *compiled) compileUnary(e *unaryExpr, env map[string]columnDef) (evaluator, error) {
	x, err := c.compileExpr(e.X, env)
	if err != nil {
		return evaluator{}, err
	}
	switch e.Op {
	case "NOT":
		if x.typ != TypeBool {
			return evaluator{}, newCompileErrorf(c.query, "NOT needs a boolean, got %s", x.typ)
		}
		return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
			return !x.eval(row).(bool)
		}}, nil
	case "-":
		return c.negate(x)
	}
	return evaluator{}, newCompileErrorf(c.query, "unknown operator %q", e.Op)
}

func (c *compiled) negate(x evaluator) (evaluator, error) {
	switch x.typ {
	case TypeDecimal:
		return evaluator{typ: TypeDecimal, eval: func(row *rowContext) any {
			return x.eval(row).(decimal.Decimal).Neg()
		}}, nil
	case TypeInt:
		return evaluator{typ: TypeInt, eval: func(row *rowContext) any {
			return -x.eval(row).(int)
		}}, nil
	case TypeAmount:
		return evaluator{typ: TypeAmount, eval: func(row *rowContext) any {
			return x.eval(row).(*ast.Amount).Neg()
		}}, nil
	case TypePosition:
		return evaluator{typ: TypePosition, eval: func(row *rowContext) any {
			p := x.eval(row).(*Position)
			return &Position{Units: p.Units.Neg(), Cost: p.Cost}
		}}, nil
	default:
		return evaluator{}, newCompileErrorf(c.query, "cannot negate a %s", x.typ)
	}
}

func (c *compiled) compileBinary(e *binaryExpr, env map[string]columnDef) (evaluator, error) {
	left, err := c.compileExpr(e.Left, env)
	if err != nil {
		return evaluator{}, err
	}
	right, err := c.compileExpr(e.Right, env)
	if err != nil {
		return evaluator{}, err
	}

	switch e.Op {
	case "AND", "OR":
		if left.typ != TypeBool || right.typ != TypeBool {
			return evaluator{}, newCompileErrorf(c.query, "%s needs booleans, got %s and %s", e.Op, left.typ, right.typ)
		}
		and := e.Op == "AND"
		return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
			if left.eval(row).(bool) == !and {
				return !and
			}
			return right.eval(row).(bool)
		}}, nil

	case "~":
		if left.typ != TypeStr || right.typ != TypeStr {
			return evaluator{}, newCompileErrorf(c.query, "~ needs strings, got %s and %s", left.typ, right.typ)
		}
		// Compile the pattern once when it is a literal.
		if lit, ok := e.Right.(*literalExpr); ok && lit.Str != nil {
			re, err := regexp.Compile(*lit.Str)
			if err != nil {
				return evaluator{}, newCompileErrorf(c.query, "invalid pattern %q: %v", *lit.Str, err)
			}
			return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
				return re.MatchString(left.eval(row).(string))
			}}, nil
		}
		return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
			re, err := regexp.Compile(right.eval(row).(string))
			if err != nil {
				return false
			}
			return re.MatchString(left.eval(row).(string))
		}}, nil

	case "=", "!=", "<", "<=", ">", ">=":
		return c.compileComparison(e.Op, left, right)

	case "+", "-", "*", "/":
		return c.compileArithmetic(e.Op, left, right)
	}
	return evaluator{}, newCompileErrorf(c.query, "unknown operator %q", e.Op)
}

func (c *compiled) compileComparison(op string, left, right evaluator) (evaluator, error) {
	lt, rt := promote(left.typ), promote(right.typ)
	if lt != rt {
		return evaluator{}, newCompileErrorf(c.query, "cannot compare %s with %s", left.typ, right.typ)
	}
	switch lt {
	case TypeStr, TypeDecimal, TypeDate, TypeBool:
	default:
		return evaluator{}, newCompileErrorf(c.query, "cannot compare values of type %s", left.typ)
	}

	le, re := coerce(left), coerce(right)
	return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
		cmp := compareValues(le(row), re(row))
		switch op {
		case "=":
			return cmp == 0
		case "!=":
			return cmp != 0
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		default:
			return cmp >= 0
		}
	}}, nil
}

func (c *compiled) compileArithmetic(op string, left, right evaluator) (evaluator, error) {
	if promote(left.typ) != TypeDecimal || promote(right.typ) != TypeDecimal {
		return evaluator{}, newCompileErrorf(c.query, "%s needs numbers, got %s and %s", op, left.typ, right.typ)
	}
	le, re := coerce(left), coerce(right)
	return evaluator{typ: TypeDecimal, eval: func(row *rowContext) any {
		a := le(row).(decimal.Decimal)
		b := re(row).(decimal.Decimal)
		switch op {
		case "+":
			return a.Add(b)
		case "-":
			return a.Sub(b)
		case "*":
			return a.Mul(b)
		default:
			if b.IsZero() {
				return decimal.Zero
			}
			return a.Div(b)
		}
	}}, nil
}

// promote folds int into Decimal for comparisons and arithmetic.
func promote(t Type) Type {
	if t == TypeInt {
		return TypeDecimal
	}
	return t
}

// coerce wraps an evaluator so int cells come out as Decimal.
func coerce(ev evaluator) func(row *rowContext) any {
	if ev.typ != TypeInt {
		return ev.eval
	}
	return func(row *rowContext) any {
		return decimal.NewFromInt(int64(ev.eval(row).(int)))
	}
}

func (c *compiled) compileCall(e *callExpr, env map[string]columnDef) (evaluator, error) {
	if len(e.Args) != 1 {
		return evaluator{}, newCompileErrorf(c.query, "%s takes exactly one argument", e.Func)
	}
	arg, err := c.compileExpr(e.Args[0], env)
	if err != nil {
		return evaluator{}, err
	}

	switch e.Func {
	case "neg":
		return c.negate(arg)
	case "abs":
		switch arg.typ {
		case TypeDecimal:
			return evaluator{typ: TypeDecimal, eval: func(row *rowContext) any {
				return arg.eval(row).(decimal.Decimal).Abs()
			}}, nil
		case TypeInt:
			return evaluator{typ: TypeInt, eval: func(row *rowContext) any {
				v := arg.eval(row).(int)
				if v < 0 {
					return -v
				}
				return v
			}}, nil
		case TypeAmount:
			return evaluator{typ: TypeAmount, eval: func(row *rowContext) any {
				a := arg.eval(row).(*ast.Amount)
				return &ast.Amount{Number: a.Number.Abs(), Currency: a.Currency}
			}}, nil
		default:
			return evaluator{}, newCompileErrorf(c.query, "cannot take abs of a %s", arg.typ)
		}
	case "units":
		switch arg.typ {
		case TypePosition:
			return evaluator{typ: TypeAmount, eval: func(row *rowContext) any {
				if p := arg.eval(row).(*Position); p != nil {
					return p.Units
				}
				return (*ast.Amount)(nil)
			}}, nil
		case TypeInventory:
			return evaluator{typ: TypeInventory, eval: func(row *rowContext) any {
				return inventoryUnits(arg.eval(row).(*ledger.Inventory))
			}}, nil
		default:
			return evaluator{}, newCompileErrorf(c.query, "units needs a position or inventory, got %s", arg.typ)
		}
	case "cost":
		switch arg.typ {
		case TypePosition:
			return evaluator{typ: TypeAmount, eval: func(row *rowContext) any {
				return positionCost(arg.eval(row).(*Position))
			}}, nil
		case TypeInventory:
			return evaluator{typ: TypeInventory, eval: func(row *rowContext) any {
				return inventoryCost(arg.eval(row).(*ledger.Inventory))
			}}, nil
		default:
			return evaluator{}, newCompileErrorf(c.query, "cost needs a position or inventory, got %s", arg.typ)
		}
	case "has_account":
		if arg.typ != TypeStr {
			return evaluator{}, newCompileErrorf(c.query, "has_account needs a string pattern, got %s", arg.typ)
		}
		// Compile the pattern once when it is a literal.
		if lit, ok := e.Args[0].(*literalExpr); ok && lit.Str != nil {
			re, err := regexp.Compile(*lit.Str)
			if err != nil {
				return evaluator{}, newCompileErrorf(c.query, "invalid pattern %q: %v", *lit.Str, err)
			}
			return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
				return hasAccount(row.entry, re)
			}}, nil
		}
		return evaluator{typ: TypeBool, eval: func(row *rowContext) any {
			re, err := regexp.Compile(arg.eval(row).(string))
			if err != nil {
				return false
			}
			return hasAccount(row.entry, re)
		}}, nil
	}
	return evaluator{}, newCompileErrorf(c.query, "unknown function %q", e.Func)
}

// hasAccount reports whether any account the entry references matches the
// pattern.
func hasAccount(entry ast.Directive, re *regexp.Regexp) bool {
	for _, account := range entryAccounts(entry) {
		if re.MatchString(string(account)) {
			return true
		}
	}
	return false
}

// entryAccounts yields every account an entry references.
func entryAccounts(entry ast.Directive) []ast.Account {
	switch e := entry.(type) {
	case *ast.Transaction:
		accounts := make([]ast.Account, 0, len(e.Postings))
		for _, posting := range e.Postings {
			accounts = append(accounts, posting.Account)
		}
		return accounts
	case *ast.Open:
		return []ast.Account{e.Account}
	case *ast.Close:
		return []ast.Account{e.Account}
	case *ast.Balance:
		return []ast.Account{e.Account}
	case *ast.Pad:
		return []ast.Account{e.Account, e.AccountPad}
	case *ast.Note:
		return []ast.Account{e.Account}
	case *ast.Document:
		return []ast.Account{e.Account}
	case *ast.Custom:
		var accounts []ast.Account
		for _, value := range e.Values {
			if value.Account != nil {
				accounts = append(accounts, *value.Account)
			}
		}
		return accounts
	default:
		return nil
	}
}

// inventoryUnits collapses an inventory to plain per-currency quantities,
// discarding cost bases.
func inventoryUnits(inv *ledger.Inventory) *ledger.Inventory {
	out := ledger.NewInventory()
	for _, currency := range inv.Currencies() {
		out.Add(currency, inv.Units(currency))
	}
	return out
}

// inventoryCost converts costed lots to their cost-currency value.
func inventoryCost(inv *ledger.Inventory) *ledger.Inventory {
	out := ledger.NewInventory()
	for _, lot := range inv.AllLots() {
		if lot.Cost != nil {
			out.Add(lot.Cost.Currency, lot.Units.Mul(lot.Cost.Number))
		} else {
			out.Add(lot.Currency, lot.Units)
		}
	}
	return out
}

// positionCost values a position at its cost basis, falling back to units.
func positionCost(p *Position) *ast.Amount {
	if p == nil {
		return nil
	}
	if p.Cost == nil || p.Units == nil {
		return p.Units
	}
	return &ast.Amount{Number: p.Units.Number.Mul(p.Cost.Number), Currency: p.Cost.Currency}
}

func (c *compiled) compileCase(e *caseExpr, env map[string]columnDef) (evaluator, error) {
	type compiledWhen struct {
		cond evaluator
		then evaluator
	}
	var whens []compiledWhen
	var resultType Type

	for _, w := range e.Whens {
		cond, err := c.compileExpr(w.Cond, env)
		if err != nil {
			return evaluator{}, err
		}
		if cond.typ != TypeBool {
			return evaluator{}, newCompileErrorf(c.query, "WHEN needs a boolean, got %s", cond.typ)
		}
		then, err := c.compileExpr(w.Then, env)
		if err != nil {
			return evaluator{}, err
		}
		if resultType == "" {
			resultType = then.typ
		} else if then.typ != resultType {
			return evaluator{}, newCompileErrorf(c.query, "CASE branches disagree: %s vs %s", resultType, then.typ)
		}
		whens = append(whens, compiledWhen{cond: cond, then: then})
	}

	var elseEval *evaluator
	if e.Else != nil {
		ev, err := c.compileExpr(e.Else, env)
		if err != nil {
			return evaluator{}, err
		}
		if ev.typ != resultType {
			return evaluator{}, newCompileErrorf(c.query, "CASE branches disagree: %s vs %s", resultType, ev.typ)
		}
		elseEval = &ev
	}

	return evaluator{typ: resultType, eval: func(row *rowContext) any {
		for _, w := range whens {
			if w.cond.eval(row).(bool) {
				return w.then.eval(row)
			}
		}
		if elseEval != nil {
			return elseEval.eval(row)
		}
		return nil
	}}, nil
}
