/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario applies a configuration
	document through the factory, then records invoices, payments, entries
	and purchases that exercise one report.

AVAILABLE SCENARIOS:

	tax-year:         A year of invoices with retentions, keyed and legacy payments
	shared-expenses:  Couple splitting expenses with modes and a card statement
	household-budget: Targets vs actuals across two groups and a credit card

HOW SCENARIOS WORK:
 1. Reset store (clear all data, default rates)
 2. Apply configuration via factory (modes, cards, tags)
 3. Record the scenario's rows

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "shared-expenses"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ApplyConfig, ResetDatabase
  - factory/config.go: Configuration JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/finance-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "tax-year",
		Name:        "Tax Year",
		Description: "Invoices with retained taxes, quarterly surcharge and partial payments",
		Category:    "tax",
	},
	{
		ID:          "shared-expenses",
		Name:        "Shared Expenses",
		Description: "Two people splitting expenses with sharing modes and a card statement",
		Category:    "sharing",
	},
	{
		ID:          "household-budget",
		Name:        "Household Budget",
		Description: "Monthly targets vs actuals, card purchases billed by closing day",
		Category:    "budget",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context, int) error
	switch req.ScenarioID {
	case "tax-year":
		load = h.loadTaxYearScenario
	case "shared-expenses":
		load = h.loadSharedExpensesScenario
	case "household-budget":
		load = h.loadHouseholdBudgetScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeDomainError(ctx, w, "Failed to reset store", err)
		return
	}
	h.setScenario("")

	if err := load(ctx, h.Now().Year()); err != nil {
		writeDomainError(ctx, w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.setScenario(req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

const sharedConfigJSON = `{
  "sharing_modes": [
    {"id": "half", "name": "50/50", "party_a": 50, "party_b": 50},
    {"id": "income-ratio", "name": "By income", "party_a": 60, "party_b": 40}
  ],
  "cards": [
    {"id": "nubank", "name": "Nubank", "closing_day": 10, "group_id": "home"},
    {"id": "inter", "name": "Inter", "closing_day": 25, "group_id": "studio"}
  ],
  "tags": [
    {"name": "salary", "flow": "income"},
    {"name": "consulting", "flow": "income"},
    {"name": "rent"},
    {"name": "groceries", "flow": "expense"},
    {"name": "restaurants", "flow": "expense"},
    {"name": "software", "flow": "expense"}
  ]
}`

func (h *Handler) applyScenarioConfig(ctx context.Context, doc string) error {
	cfg, err := h.ConfigFactory.ParseConfig(doc)
	if err != nil {
		return err
	}
	return h.applyConfig(ctx, cfg, false)
}

func (h *Handler) loadTaxYearScenario(ctx context.Context, year int) error {
	if err := h.applyScenarioConfig(ctx, sharedConfigJSON); err != nil {
		return err
	}

	// Revenue crosses the quarterly surcharge threshold in Q1.
	invoices := []struct {
		id, client, gross, date, iss string
		status                       generic.InvoiceStatus
	}{
		{"nf-001", "Acme", "80000", "%d-01-15", "4000", generic.InvoicePaid},
		{"nf-002", "Globex", "120000", "%d-02-10", "", generic.InvoicePaid},
		{"nf-003", "Initech", "35000,50", "%d-03-28", "1750,03", generic.InvoiceIssued},
		{"nf-004", "Acme", "40000", "%d-04-03", "", generic.InvoiceDraft},
		{"nf-005", "Umbrella", "15000", "%d-05-20", "", generic.InvoiceCancelled},
		{"nf-006", "Globex", "60000", "%d-07-07", "n/a", generic.InvoiceIssued},
	}
	for _, spec := range invoices {
		inv := generic.Invoice{
			ID:         spec.id,
			Number:     spec.id,
			Client:     spec.client,
			GrossValue: generic.CoerceAmount(spec.gross),
			IssueDate:  fmt.Sprintf(spec.date, year),
			Status:     spec.status,
			Taxable:    true,
			GroupID:    "studio",
			Category:   "consulting",
		}
		inv.Retained.ISS = generic.LooseDecimal(spec.iss)
		if _, err := h.Store.SaveInvoice(ctx, inv); err != nil {
			return err
		}
	}

	payments := []generic.TaxPayment{
		{Kind: generic.TaxISS, Period: generic.NewMonthKey(year, 0), Amount: generic.MustParseDecimal("0"), PaidOn: generic.NewDate(year, time.February, 10)},
		{Kind: generic.TaxPIS, Period: generic.NewMonthKey(year, 0), Amount: generic.MustParseDecimal("520"), PaidOn: generic.NewDate(year, time.February, 20)},
		{Kind: generic.TaxCOFINS, Period: generic.NewMonthKey(year, 0), Amount: generic.MustParseDecimal("2350"), PaidOn: generic.NewDate(year, time.February, 25)},
		// Recorded before payments had a deterministic key.
		{LegacyID: fmt.Sprintf("iss-%d-02", year), Amount: generic.MustParseDecimal("6000"), PaidOn: generic.NewDate(year, time.March, 10)},
		{LegacyID: fmt.Sprintf("pis_%d_02", year), Amount: generic.MustParseDecimal("780")},
	}
	for _, p := range payments {
		if err := h.Store.SavePayment(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadSharedExpensesScenario(ctx context.Context, year int) error {
	if err := h.applyScenarioConfig(ctx, sharedConfigJSON); err != nil {
		return err
	}

	custom := generic.NewSplit(70, 30)
	entries := []generic.LedgerEntry{
		{ID: "rent-03", Description: "Rent", Value: generic.MustParseDecimal("-3000"), ExpectedDate: fmt.Sprintf("%d-03-05", year),
			Realized: true, RealizedDate: fmt.Sprintf("%d-03-05", year), GroupID: "home", Category: "rent", Shared: true, Payer: "me", ModeID: "income-ratio"},
		{ID: "market-03", Description: "Market", Value: generic.MustParseDecimal("-640.20"), ExpectedDate: fmt.Sprintf("%d-03-12", year),
			GroupID: "home", Category: "groceries", Shared: true, Payer: "partner", ModeID: "half"},
		{ID: "dinner-03", Description: "Anniversary dinner", Value: generic.MustParseDecimal("-380"), ExpectedDate: fmt.Sprintf("%d-03-20", year),
			GroupID: "home", Category: "restaurants", Shared: true, Payer: "me", Custom: &custom},
		{ID: "gift-03", Description: "Unknown mode falls back to 50/50", Value: generic.MustParseDecimal("-100"), ExpectedDate: fmt.Sprintf("%d-03-22", year),
			GroupID: "home", Category: "restaurants", Shared: true, Payer: "partner", ModeID: "retired-mode"},
		{ID: "salary-03", Description: "Salary", Value: generic.MustParseDecimal("9000"), ExpectedDate: fmt.Sprintf("%d-03-01", year),
			GroupID: "home", Category: "salary"},
	}
	for _, e := range entries {
		if _, err := h.Store.SaveEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadHouseholdBudgetScenario(ctx context.Context, year int) error {
	if err := h.applyScenarioConfig(ctx, sharedConfigJSON); err != nil {
		return err
	}

	for m0 := 0; m0 < 12; m0++ {
		targets := []generic.BudgetTarget{
			{Year: year, Month0: m0, GroupID: "home", Category: "groceries", Flow: generic.FlowExpense, Target: generic.MustParseDecimal("1200")},
			{Year: year, Month0: m0, GroupID: "home", Category: "rent", Flow: generic.FlowExpense, Target: generic.MustParseDecimal("3000")},
			{Year: year, Month0: m0, GroupID: "home", Category: "salary", Flow: generic.FlowIncome, Target: generic.MustParseDecimal("9000")},
			{Year: year, Month0: m0, GroupID: "studio", Category: "consulting", Flow: generic.FlowIncome, Target: generic.MustParseDecimal("20000")},
		}
		for _, t := range targets {
			if err := h.Store.SaveTarget(ctx, t); err != nil {
				return err
			}
		}

		date := generic.NewDate(year, time.Month(m0+1), 5).String()
		entries := []generic.LedgerEntry{
			{ID: fmt.Sprintf("salary-%02d", m0+1), Description: "Salary", Value: generic.MustParseDecimal("9000"), ExpectedDate: date, GroupID: "home", Category: "salary"},
			{ID: fmt.Sprintf("rent-%02d", m0+1), Description: "Rent", Value: generic.MustParseDecimal("-3000"), ExpectedDate: date, GroupID: "home", Category: "rent"},
		}
		for _, e := range entries {
			if _, err := h.Store.SaveEntry(ctx, e); err != nil {
				return err
			}
		}
	}

	// Consulting income in the studio group, received late in March.
	if _, err := h.Store.SaveEntry(ctx, generic.LedgerEntry{
		ID: "consulting-q1", Description: "Consulting", Value: generic.MustParseDecimal("18500"),
		ExpectedDate: fmt.Sprintf("%d-02-28", year), Realized: true, RealizedDate: fmt.Sprintf("%d-03-02", year),
		GroupID: "studio", Category: "consulting",
	}); err != nil {
		return err
	}

	// Purchases on or after the closing day bill into the next month.
	purchases := []generic.CardPurchase{
		{ID: "mkt-1", Description: "Supermarket", Value: generic.MustParseDecimal("410.35"), PurchaseDate: fmt.Sprintf("09/01/%d", year), CardID: "nubank", Category: "groceries"},
		{ID: "mkt-2", Description: "Supermarket", Value: generic.MustParseDecimal("388.90"), PurchaseDate: fmt.Sprintf("10/01/%d", year), CardID: "nubank", Category: "groceries"},
		{ID: "mkt-3", Description: "Bakery", Value: generic.MustParseDecimal("56"), PurchaseDate: fmt.Sprintf("%d-01-28", year), CardID: "nubank", Category: "groceries"},
		{ID: "sw-1", Description: "IDE license", Value: generic.MustParseDecimal("899"), PurchaseDate: fmt.Sprintf("%d-12-26", year), CardID: "inter", Category: "software"},
		{ID: "old-1", Description: "Statement month set by hand", Value: generic.MustParseDecimal("120"), PurchaseDate: fmt.Sprintf("%d-02-02", year), InvoicePeriod: fmt.Sprintf("%d-04", year), CardID: "nubank", Category: "restaurants"},
	}
	for _, p := range purchases {
		if _, err := h.Store.SavePurchase(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
