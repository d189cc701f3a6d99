/*
variance.go - Budget variance aggregator

PURPOSE:
  Builds the yearly (group x category x flow) x month grid of actual
  values against user-declared targets.

FLOW RULES:
  Ledger entry, value > 0, not shared     -> income, actual += value
  Ledger entry, value < 0, not shared     -> expense, actual += |value|
  Shared entry (any sign)                 -> expense, actual += |value|
  Card purchase (any sign)                -> expense, actual += |value|,
                                             bucketed by billing month
  Statement-split entry                   -> skipped, its purchases are
                                             already counted one by one

ROWS:
  Every tag of the universe is computed for every group and every flow it
  applies to. Categories outside the universe are reported as warnings and
  never create rows.

VISIBILITY:
  A row is visible when any month has a non-zero target or actual, or when
  the caller pinned its category. Visibility never changes the numbers.
*/
package budget

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
)

// Input is the snapshot the grid is computed from.
type Input struct {
	Year int

	// Groups restricts the grid to these groups. When empty, every group
	// referenced by targets, entries, invoices or cards is used.
	Groups []generic.GroupID

	Tags      []generic.Tag
	Targets   []generic.BudgetTarget
	Entries   []generic.LedgerEntry
	Purchases []generic.CardPurchase

	// Shared holds shared events kept outside Entries (e.g. the partner's
	// records). They always count as expense magnitudes.
	Shared []generic.LedgerEntry

	// Invoices count as income in their issue month under their own group
	// and category. Cancelled invoices and invoices without a category are
	// not budgeted.
	Invoices []generic.Invoice

	Cards []generic.Card

	// ForcedVisible pins categories visible regardless of their values.
	ForcedVisible []string
}

// Cell is one month of one row.
type Cell struct {
	Actual decimal.Decimal
	Target decimal.Decimal
	// Variance = Actual - Target.
	Variance decimal.Decimal
}

func zeroCell() Cell {
	return Cell{Actual: decimal.Zero, Target: decimal.Zero, Variance: decimal.Zero}
}

func (c Cell) IsZero() bool {
	return c.Actual.IsZero() && c.Target.IsZero()
}

type Row struct {
	Group    generic.GroupID
	Category string
	Flow     generic.Flow
	Months   [12]Cell
	Visible  bool
	Forced   bool
}

// Total sums the row over the year.
func (r Row) Total() Cell {
	total := zeroCell()
	for _, c := range r.Months {
		total = add(total, c)
	}
	return total
}

type Grid struct {
	Year     int
	Rows     []Row
	Warnings []generic.Warning

	index map[rowKey]int
}

type rowKey struct {
	group    generic.GroupID
	category string
	flow     generic.Flow
}

// Cell returns the cell of (group, category, flow, month0).
func (g Grid) Cell(group generic.GroupID, category string, flow generic.Flow, month0 int) (Cell, bool) {
	if month0 < 0 || month0 > 11 {
		return Cell{}, false
	}
	i, ok := g.index[rowKey{group, category, flow}]
	if !ok {
		return Cell{}, false
	}
	return g.Rows[i].Months[month0], true
}

// Row returns the row of (group, category, flow).
func (g Grid) Row(group generic.GroupID, category string, flow generic.Flow) (Row, bool) {
	i, ok := g.index[rowKey{group, category, flow}]
	if !ok {
		return Row{}, false
	}
	return g.Rows[i], true
}

// Totals sums every row of a group and flow, month by month.
func (g Grid) Totals(group generic.GroupID, flow generic.Flow) [12]Cell {
	var totals [12]Cell
	for m := range totals {
		totals[m] = zeroCell()
	}
	for _, r := range g.Rows {
		if r.Group != group || r.Flow != flow {
			continue
		}
		for m, c := range r.Months {
			totals[m] = add(totals[m], c)
		}
	}
	return totals
}

// VisibleRows returns the rows to render, in grid order.
func (g Grid) VisibleRows() []Row {
	var out []Row
	for _, r := range g.Rows {
		if r.Visible {
			out = append(out, r)
		}
	}
	return out
}

func add(a, b Cell) Cell {
	return Cell{
		Actual:   a.Actual.Add(b.Actual),
		Target:   a.Target.Add(b.Target),
		Variance: a.Variance.Add(b.Variance),
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// ComputeBudgetVariance builds the grid for in.Year.
func ComputeBudgetVariance(in Input) Grid {
	g := Grid{Year: in.Year, index: make(map[rowKey]int)}

	groups := in.Groups
	if len(groups) == 0 {
		groups = referencedGroups(in)
	}
	forced := make(map[string]bool, len(in.ForcedVisible))
	for _, c := range in.ForcedVisible {
		forced[c] = true
	}

	// Rows: group order as given, then tag order, income before expense.
	for _, group := range groups {
		for _, tag := range in.Tags {
			for _, flow := range []generic.Flow{generic.FlowIncome, generic.FlowExpense} {
				if !tag.Applies(flow) {
					continue
				}
				key := rowKey{group, tag.Name, flow}
				if _, dup := g.index[key]; dup {
					continue
				}
				row := Row{Group: group, Category: tag.Name, Flow: flow, Forced: forced[tag.Name]}
				for m := range row.Months {
					row.Months[m] = zeroCell()
				}
				g.index[key] = len(g.Rows)
				g.Rows = append(g.Rows, row)
			}
		}
	}

	acc := accumulator{grid: &g, year: in.Year}

	for _, e := range in.Entries {
		acc.entry(e)
	}
	for _, e := range in.Shared {
		e.Shared = true
		acc.entry(e)
	}
	for _, inv := range in.Invoices {
		acc.invoice(inv)
	}

	cards := make(map[generic.CardID]generic.Card, len(in.Cards))
	for _, c := range in.Cards {
		cards[c.ID] = c
	}
	for _, p := range in.Purchases {
		acc.purchase(p, cards)
	}

	for _, t := range in.Targets {
		if t.Year != in.Year || t.Month0 < 0 || t.Month0 > 11 {
			continue
		}
		if i, ok := g.index[rowKey{t.GroupID, t.Category, t.Flow}]; ok {
			g.Rows[i].Months[t.Month0].Target = t.Target
		}
	}

	for i := range g.Rows {
		r := &g.Rows[i]
		for m := range r.Months {
			c := &r.Months[m]
			c.Variance = c.Actual.Sub(c.Target)
			if !c.IsZero() {
				r.Visible = true
			}
		}
		if r.Forced {
			r.Visible = true
		}
	}

	g.Warnings = acc.warnings
	return g
}

type accumulator struct {
	grid     *Grid
	year     int
	warnings []generic.Warning
}

func (a *accumulator) entry(e generic.LedgerEntry) {
	if e.Source == generic.SourceStatement || e.Value.IsZero() {
		return
	}
	k, err := generic.ResolveCalendarPeriod(e.EffectiveDate())
	if err != nil {
		a.warn(e.ID, "date", err.Error())
		return
	}
	if k.IsZero() || k.Year != a.year {
		return
	}

	flow := generic.FlowExpense
	switch {
	case e.Shared:
	case e.Value.IsPositive():
		flow = generic.FlowIncome
	}
	a.add(e.ID, e.GroupID, e.Category, flow, k.Month0, e.Value.Abs())
}

func (a *accumulator) invoice(inv generic.Invoice) {
	if !budgeted(inv) || inv.GrossValue.IsZero() {
		return
	}
	k, err := generic.ResolveCalendarPeriod(inv.IssueDate)
	if err != nil {
		a.warn(inv.ID, "issue_date", err.Error())
		return
	}
	if k.IsZero() || k.Year != a.year {
		return
	}
	a.add(inv.ID, inv.GroupID, inv.Category, generic.FlowIncome, k.Month0, inv.GrossValue.Abs())
}

func budgeted(inv generic.Invoice) bool {
	return inv.Status != generic.InvoiceCancelled && inv.Category != ""
}

func (a *accumulator) purchase(p generic.CardPurchase, cards map[generic.CardID]generic.Card) {
	var card *generic.Card
	group := generic.GroupID("")
	if c, ok := cards[p.CardID]; ok {
		card = &c
		group = c.GroupID
	}
	k := p.BillingMonth(card)
	if k.IsZero() {
		if p.PurchaseDate != "" || p.InvoicePeriod != "" {
			a.warn(p.ID, "purchase_date", "no billing period")
		}
		return
	}
	if k.Year != a.year {
		return
	}
	a.add(p.ID, group, p.Category, generic.FlowExpense, k.Month0, p.Value.Abs())
}

func (a *accumulator) add(id string, group generic.GroupID, category string, flow generic.Flow, month0 int, v decimal.Decimal) {
	i, ok := a.grid.index[rowKey{group, category, flow}]
	if !ok {
		a.warn(id, "category", "category "+category+" is not a "+string(flow)+" tag of group "+string(group))
		return
	}
	c := &a.grid.Rows[i].Months[month0]
	c.Actual = c.Actual.Add(v)
}

func (a *accumulator) warn(id, field, msg string) {
	a.warnings = append(a.warnings, generic.Warning{RecordID: id, Field: field, Message: msg})
}

// referencedGroups collects every group named by the input, sorted.
func referencedGroups(in Input) []generic.GroupID {
	seen := make(map[generic.GroupID]bool)
	for _, t := range in.Targets {
		seen[t.GroupID] = true
	}
	for _, e := range in.Entries {
		seen[e.GroupID] = true
	}
	for _, e := range in.Shared {
		seen[e.GroupID] = true
	}
	for _, inv := range in.Invoices {
		if budgeted(inv) {
			seen[inv.GroupID] = true
		}
	}
	for _, c := range in.Cards {
		seen[c.GroupID] = true
	}
	out := make([]generic.GroupID, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
