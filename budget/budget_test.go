package budget_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/budget"
	"github.com/warp/finance-engine/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s got %s %v", want, got, msg)
}

const home generic.GroupID = "home"

var tags = []generic.Tag{
	{Name: "salary", Flow: generic.FlowIncome},
	{Name: "groceries", Flow: generic.FlowExpense},
	{Name: "travel"}, // both flows
	{Name: "gym", Flow: generic.FlowExpense},
}

func entry(id, value, date, category string) generic.LedgerEntry {
	return generic.LedgerEntry{ID: id, Value: dec(value), ExpectedDate: date, GroupID: home, Category: category}
}

func baseInput() budget.Input {
	return budget.Input{
		Year:   2025,
		Groups: []generic.GroupID{home},
		Tags:   tags,
		Cards:  []generic.Card{{ID: "visa", ClosingDay: 10, GroupID: home}},
	}
}

func actual(t *testing.T, g budget.Grid, category string, flow generic.Flow, month0 int) decimal.Decimal {
	t.Helper()
	c, ok := g.Cell(home, category, flow, month0)
	require.Truef(t, ok, "no cell %s/%s/%d", category, flow, month0)
	return c.Actual
}

// =============================================================================
// FLOW RULES
// =============================================================================

func TestVariance_FlowRules(t *testing.T) {
	in := baseInput()
	in.Entries = []generic.LedgerEntry{
		entry("salary", "5000", "2025-01-05", "salary"),
		entry("market", "-300", "2025-01-12", "groceries"),
		entry("refund", "120", "2025-01-20", "travel"), // positive -> income
		entry("flight", "-800", "2025-01-21", "travel"),
	}
	shared := entry("dinner", "-90", "2025-01-25", "groceries")
	shared.Shared = true
	in.Entries = append(in.Entries, shared)

	in.Purchases = []generic.CardPurchase{
		{ID: "p1", Value: dec("50"), PurchaseDate: "2025-01-09", Category: "groceries", CardID: "visa"},
		{ID: "p2", Value: dec("-70"), PurchaseDate: "2025-01-10", Category: "groceries", CardID: "visa"},
	}

	g := budget.ComputeBudgetVariance(in)

	assertDec(t, "5000", actual(t, g, "salary", generic.FlowIncome, 0))
	assertDec(t, "440", actual(t, g, "groceries", generic.FlowExpense, 0), "300 + shared 90 + purchase 50")
	assertDec(t, "70", actual(t, g, "groceries", generic.FlowExpense, 1), "on the closing day -> next statement")
	assertDec(t, "120", actual(t, g, "travel", generic.FlowIncome, 0))
	assertDec(t, "800", actual(t, g, "travel", generic.FlowExpense, 0))
	assert.Empty(t, g.Warnings)
}

func TestVariance_RealizedDateWins(t *testing.T) {
	in := baseInput()
	e := entry("late", "-100", "2025-03-30", "gym")
	e.Realized, e.RealizedDate = true, "2025-04-02"
	in.Entries = []generic.LedgerEntry{e}

	g := budget.ComputeBudgetVariance(in)

	assertDec(t, "0", actual(t, g, "gym", generic.FlowExpense, 2))
	assertDec(t, "100", actual(t, g, "gym", generic.FlowExpense, 3))
}

func TestVariance_InvoiceOverrideAndStatementEntries(t *testing.T) {
	in := baseInput()
	in.Purchases = []generic.CardPurchase{
		{ID: "p", Value: dec("40"), PurchaseDate: "2025-05-02", InvoicePeriod: "2025-07", Category: "gym", CardID: "visa"},
	}
	stmt := entry("stmt-mine", "-40", "2025-07-15", "gym")
	stmt.Source = generic.SourceStatement
	in.Entries = []generic.LedgerEntry{stmt}

	g := budget.ComputeBudgetVariance(in)

	assertDec(t, "40", actual(t, g, "gym", generic.FlowExpense, 6), "counted once, via the purchase")
	assertDec(t, "0", actual(t, g, "gym", generic.FlowExpense, 4))
}

func TestVariance_SharedInputIsAlwaysExpense(t *testing.T) {
	// GIVEN: a partner's positive-value event in a two-flow category
	in := baseInput()
	in.Entries = []generic.LedgerEntry{entry("refund", "40", "2025-03-03", "travel")}
	in.Shared = []generic.LedgerEntry{entry("partner-train", "150", "2025-03-02", "travel")}

	// WHEN
	g := budget.ComputeBudgetVariance(in)

	// THEN: the shared event is an expense magnitude, the own refund stays income
	assertDec(t, "150", actual(t, g, "travel", generic.FlowExpense, 2))
	assertDec(t, "40", actual(t, g, "travel", generic.FlowIncome, 2))
	assert.False(t, in.Shared[0].Shared, "caller input is not modified")
	assert.Empty(t, g.Warnings)
}

func TestVariance_InvoicesCountAsIncome(t *testing.T) {
	// GIVEN: invoices in every status, one uncategorized and one malformed
	invoice := func(id, gross, date string, status generic.InvoiceStatus) generic.Invoice {
		return generic.Invoice{ID: id, GrossValue: dec(gross), IssueDate: date, Status: status, GroupID: home, Category: "salary"}
	}
	in := baseInput()
	in.Invoices = []generic.Invoice{
		invoice("paid", "1000", "2025-03-05", generic.InvoicePaid),
		invoice("draft", "500", "15/03/2025", generic.InvoiceDraft),
		invoice("cancelled", "300", "2025-03-20", generic.InvoiceCancelled),
		invoice("last-year", "900", "2024-03-05", generic.InvoiceIssued),
		invoice("bad-date", "800", "2025-03-150", generic.InvoiceIssued),
	}
	uncategorized := invoice("uncategorized", "700", "2025-03-05", generic.InvoiceIssued)
	uncategorized.Category = ""
	in.Invoices = append(in.Invoices, uncategorized)

	// WHEN
	g := budget.ComputeBudgetVariance(in)

	// THEN: cancelled, uncategorized and other-year invoices are left out
	assertDec(t, "1500", actual(t, g, "salary", generic.FlowIncome, 2))
	require.Len(t, g.Warnings, 1)
	assert.Equal(t, "bad-date", g.Warnings[0].RecordID)
	assert.Equal(t, "issue_date", g.Warnings[0].Field)
}

func TestVariance_MalformedInputBecomesWarnings(t *testing.T) {
	in := baseInput()
	in.Entries = []generic.LedgerEntry{
		entry("bad-date", "-10", "2025/13/01", "gym"),
		entry("no-date", "-10", "", "gym"),
		entry("unknown-tag", "-10", "2025-02-01", "pets"),
		entry("wrong-flow", "10", "2025-02-01", "gym"),
		entry("other-year", "-10", "2024-02-01", "gym"),
	}

	g := budget.ComputeBudgetVariance(in)

	require.Len(t, g.Warnings, 3)
	assert.Equal(t, "bad-date", g.Warnings[0].RecordID)
	assert.Equal(t, "unknown-tag", g.Warnings[1].RecordID)
	assert.Equal(t, "wrong-flow", g.Warnings[2].RecordID)
	for _, m := range g.Totals(home, generic.FlowExpense) {
		assert.True(t, m.Actual.IsZero())
	}
}

// =============================================================================
// TARGETS AND VISIBILITY
// =============================================================================

func TestVariance_TargetsAndVariance(t *testing.T) {
	in := baseInput()
	in.Targets = []generic.BudgetTarget{
		{Year: 2025, Month0: 0, GroupID: home, Category: "groceries", Flow: generic.FlowExpense, Target: dec("400")},
		{Year: 2024, Month0: 0, GroupID: home, Category: "groceries", Flow: generic.FlowExpense, Target: dec("999")},
	}
	in.Entries = []generic.LedgerEntry{entry("m", "-450", "2025-01-03", "groceries")}

	g := budget.ComputeBudgetVariance(in)

	c, ok := g.Cell(home, "groceries", generic.FlowExpense, 0)
	require.True(t, ok)
	assertDec(t, "450", c.Actual)
	assertDec(t, "400", c.Target)
	assertDec(t, "50", c.Variance)

	feb, _ := g.Cell(home, "groceries", generic.FlowExpense, 1)
	assertDec(t, "0", feb.Target, "target absent -> 0")
}

func TestVariance_EveryTagIsComputed(t *testing.T) {
	g := budget.ComputeBudgetVariance(baseInput())

	// salary(income) + groceries(expense) + travel(both) + gym(expense)
	require.Len(t, g.Rows, 5)
	assert.Empty(t, g.VisibleRows())

	_, ok := g.Row(home, "salary", generic.FlowExpense)
	assert.False(t, ok, "income-only tag has no expense row")
}

func TestVariance_Visibility(t *testing.T) {
	in := baseInput()
	in.ForcedVisible = []string{"gym"}
	in.Targets = []generic.BudgetTarget{
		{Year: 2025, Month0: 5, GroupID: home, Category: "travel", Flow: generic.FlowExpense, Target: dec("1000")},
	}
	in.Entries = []generic.LedgerEntry{entry("s", "3000", "2025-11-01", "salary")}

	forced := budget.ComputeBudgetVariance(in)

	var visible []string
	for _, r := range forced.VisibleRows() {
		visible = append(visible, r.Category+"/"+string(r.Flow))
	}
	assert.Equal(t, []string{"salary/income", "travel/expense", "gym/expense"}, visible)

	// Forcing a row visible never changes its numbers.
	in.ForcedVisible = nil
	unforced := budget.ComputeBudgetVariance(in)
	for i := range unforced.Rows {
		assert.Equal(t, unforced.Rows[i].Months, forced.Rows[i].Months)
	}
	gym, _ := unforced.Row(home, "gym", generic.FlowExpense)
	assert.False(t, gym.Visible)
}

func TestVariance_TotalsAndDerivedGroups(t *testing.T) {
	in := baseInput()
	in.Groups = nil
	in.Entries = []generic.LedgerEntry{
		entry("a", "-10", "2025-03-01", "gym"),
		entry("b", "-15", "2025-03-02", "groceries"),
		{ID: "c", Value: dec("-99"), ExpectedDate: "2025-03-03", GroupID: "work", Category: "travel"},
	}

	g := budget.ComputeBudgetVariance(in)

	totals := g.Totals(home, generic.FlowExpense)
	assertDec(t, "25", totals[2].Actual)

	work, ok := g.Cell("work", "travel", generic.FlowExpense, 2)
	require.True(t, ok, "groups are derived from the records")
	assertDec(t, "99", work.Actual)

	gymRow, _ := g.Row(home, "gym", generic.FlowExpense)
	assertDec(t, "10", gymRow.Total().Actual)
}

func TestVariance_Idempotent(t *testing.T) {
	in := baseInput()
	in.Entries = []generic.LedgerEntry{entry("a", "-10.10", "2025-03-01", "gym")}
	assert.Equal(t, budget.ComputeBudgetVariance(in), budget.ComputeBudgetVariance(in))
}
