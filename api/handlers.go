/*
handlers.go - HTTP API handlers for the finance engine

PURPOSE:
  Exposes the period resolver and the tax, sharing and budget calculators
  via REST API. Handlers load a whole-collection snapshot from the store,
  run a pure calculator over it and serialize the result.

ENDPOINTS:
  Periods:
    GET    /api/periods/billing?date=&closing_day=   Billing period of a purchase

  Taxes:
    GET    /api/tax/report?year=                     12 monthly summaries
    GET    /api/tax/reconciliation?year=&today=      Paid/pending/overdue/fines
    GET    /api/tax/payments                         List payments
    PUT    /api/tax/payments                         Upsert by (kind, period)

  Sharing:
    GET    /api/sharing/settlement?year=&month=      Who owes whom
    POST   /api/sharing/statements/split             Split a shared statement
    GET    /api/sharing/modes                        List sharing modes
    POST   /api/sharing/modes                        Create/replace a mode

  Budget:
    GET    /api/budget/variance?year=&forced=&group=&all=
    GET    /api/budget/targets                       List targets
    PUT    /api/budget/targets                       Upsert by cell

  Records:
    GET/POST /api/invoices, /api/entries, /api/purchases, /api/cards, /api/tags

  Config:
    GET    /api/config/rates                         Current tax rates
    POST   /api/config                               Apply a factory config

  Admin:
    POST   /api/admin/migrate-payments               Legacy payment id migration

REPORT MEMOISATION:
  Reports are cached in generic.Memo keyed by (store version, kind, year,
  filters). Any write bumps the store version, which drops every cached
  report on the next lookup.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors (logged)
  Malformed rows never fail a report; they come back as "warnings".

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/warp/finance-engine/budget"
	"github.com/warp/finance-engine/factory"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/sharing"
	"github.com/warp/finance-engine/store/sqlite"
	"github.com/warp/finance-engine/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter is implemented by stores that can be wiped for demos.
type Resetter interface {
	Reset(ctx context.Context) error
}

// PaymentMigrator is implemented by stores holding legacy payment ids.
type PaymentMigrator interface {
	MigrateLegacyPayments(ctx context.Context) (sqlite.MigrationResult, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         generic.Store
	ConfigFactory *factory.ConfigFactory
	Metrics       *Metrics

	// Now returns today's date; replaced in tests.
	Now func() generic.Date

	// mu guards rates and currentScenario.
	mu    sync.RWMutex
	rates tax.RateTable

	taxReports      *generic.Memo[tax.Report]
	reconciliations *generic.Memo[tax.Reconciliation]
	settlements     *generic.Memo[sharing.Settlement]
	budgets         *generic.Memo[budget.Grid]

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store generic.Store) *Handler {
	return &Handler{
		Store:           store,
		ConfigFactory:   factory.NewConfigFactory(),
		Metrics:         NewMetrics(),
		Now:             generic.Today,
		rates:           tax.DefaultRates(),
		taxReports:      generic.NewMemo[tax.Report](),
		reconciliations: generic.NewMemo[tax.Reconciliation](),
		settlements:     generic.NewMemo[sharing.Settlement](),
		budgets:         generic.NewMemo[budget.Grid](),
	}
}

// Rates returns the tax rates in use.
func (h *Handler) Rates() tax.RateTable {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rates
}

// SetRates validates and installs a rate table.
func (h *Handler) SetRates(r tax.RateTable) error {
	if err := r.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.rates = r
	h.mu.Unlock()
	return nil
}

func (h *Handler) scenario() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// ratesKey distinguishes cached reports computed with different rates.
func ratesKey(r tax.RateTable) string {
	return strings.Join([]string{
		r.ISS.String(), r.PIS.String(), r.COFINS.String(), r.IRPJ.String(), r.CSLL.String(),
		r.PresumedProfit.String(), r.SurchargeRate.String(), r.SurchargeThreshold.String(),
	}, "|")
}

// cached resolves a report through memo. The snapshot is only loaded on a
// miss.
func cached[V any](ctx context.Context, h *Handler, memo *generic.Memo[V], kind string, year int, filters string,
	compute func(generic.Snapshot) (V, int)) (V, error) {

	version, err := h.Store.Version(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	key := generic.MemoKey{Version: version, Kind: kind, Year: year, Filters: filters}

	warnings := 0
	v, hit, err := memo.Load(key, func() (V, error) {
		snap, err := h.Store.Snapshot(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		var out V
		out, warnings = compute(snap)
		return out, nil
	})
	if err != nil {
		return v, err
	}
	h.Metrics.observeReport(kind, hit, warnings, version)
	if warnings > 0 {
		slog.DebugContext(ctx, "report computed with warnings", "report", kind, "year", year, "warnings", warnings)
	}
	return v, nil
}

// =============================================================================
// PERIOD ENDPOINTS
// =============================================================================

// GetBillingPeriod resolves the statement month of a purchase date.
func (h *Handler) GetBillingPeriod(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	closingDay, err := strconv.Atoi(r.URL.Query().Get("closing_day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "closing_day must be an integer", err)
		return
	}

	period, err := generic.ResolveBillingPeriod(date, closingDay)
	if err != nil {
		writeDomainError(r.Context(), w, "Invalid billing period input", err)
		return
	}
	writeJSON(w, http.StatusOK, BillingPeriodDTO{Date: date, ClosingDay: closingDay, BillingPeriod: period})
}

// =============================================================================
// TAX ENDPOINTS
// =============================================================================

// GetTaxReport returns the 12 monthly tax summaries of a year.
func (h *Handler) GetTaxReport(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	report, err := h.taxReport(r.Context(), year)
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to compute tax report", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxReportDTO(report))
}

func (h *Handler) taxReport(ctx context.Context, year int) (tax.Report, error) {
	rates := h.Rates()
	calc := tax.NewCalculator(rates)
	return cached(ctx, h, h.taxReports, "tax", year, ratesKey(rates), func(s generic.Snapshot) (tax.Report, int) {
		rep := calc.Report(s.Invoices, year)
		return rep, len(rep.Warnings)
	})
}

// GetTaxReconciliation buckets every obligation of a year against payments.
func (h *Handler) GetTaxReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	today := h.Now()
	if s := r.URL.Query().Get("today"); s != "" {
		if today, err = generic.ParseDate(s); err != nil {
			writeDomainError(ctx, w, "Invalid today", err)
			return
		}
	}

	rates := h.Rates()
	calc := tax.NewCalculator(rates)
	filters := ratesKey(rates) + "|today=" + today.String()
	rec, err := cached(ctx, h, h.reconciliations, "reconciliation", year, filters, func(s generic.Snapshot) (tax.Reconciliation, int) {
		rep := calc.Report(s.Invoices, year)
		rec := tax.Reconcile(rep, s.Payments, today)
		return rec, len(rec.Warnings)
	})
	if err != nil {
		writeDomainError(ctx, w, "Failed to reconcile taxes", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationDTO(year, today, rec))
}

// ListTaxPayments returns every stored payment.
func (h *Handler) ListTaxPayments(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load payments", err)
		return
	}
	dtos := make([]TaxPaymentDTO, 0, len(snap.Payments))
	for _, p := range snap.Payments {
		dtos = append(dtos, toTaxPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutTaxPayment upserts a payment. Its identity is (kind, period); a
// free-form legacy_id alone is accepted when it parses into one.
func (h *Handler) PutTaxPayment(w http.ResponseWriter, r *http.Request) {
	var req TaxPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := generic.TaxPayment{Amount: req.Amount, LegacyID: req.LegacyID}
	var err error
	if req.Kind != "" {
		if p.Kind, err = generic.ParseTaxKind(req.Kind); err != nil {
			writeDomainError(r.Context(), w, "Invalid tax kind", err)
			return
		}
	}
	if req.Period != "" {
		if p.Period, err = generic.ParseMonthKey(req.Period); err != nil {
			writeDomainError(r.Context(), w, "Invalid period", err)
			return
		}
	}
	if p.PaidOn, err = generic.ParseDate(req.PaidOn); err != nil {
		writeDomainError(r.Context(), w, "Invalid paid_on", err)
		return
	}
	if p.Amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must not be negative", nil)
		return
	}

	normalized, ok := tax.Normalize(p)
	if !ok {
		writeError(w, http.StatusBadRequest, "payment needs kind and period, or a parseable legacy_id", nil)
		return
	}
	if err := h.Store.SavePayment(r.Context(), normalized); err != nil {
		writeDomainError(r.Context(), w, "Failed to save payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxPaymentDTO(normalized))
}

// =============================================================================
// SHARING ENDPOINTS
// =============================================================================

// GetSettlement settles the shared entries of one month.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12", err)
		return
	}

	s, err := cached(ctx, h, h.settlements, "settlement", year, "month="+strconv.Itoa(month), func(snap generic.Snapshot) (sharing.Settlement, int) {
		events := sharing.SharedEvents(snap.Entries, year, month-1)
		modes := append(append([]generic.SharingMode{}, snap.SharingModes...), sharing.SyntheticModes()...)
		return sharing.ComputeSettlement(events, modes), 0
	})
	if err != nil {
		writeDomainError(ctx, w, "Failed to compute settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(year, month, s))
}

// SplitStatement replaces a shared card statement by "my part" and
// "partner's part" entries and stores both.
func (h *Handler) SplitStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SplitStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := generic.ParseDate(req.Date); err != nil {
		writeDomainError(ctx, w, "Invalid date", err)
		return
	}

	split := generic.DefaultSplit
	switch {
	case req.Custom != nil:
		split = generic.Split{PartyA: req.Custom.PartyA, PartyB: req.Custom.PartyB}
		if err := split.Validate(); err != nil {
			writeDomainError(ctx, w, "Invalid custom split", err)
			return
		}
	case req.ModeID != "":
		snap, err := h.Store.Snapshot(ctx)
		if err != nil {
			writeDomainError(ctx, w, "Failed to load sharing modes", err)
			return
		}
		m, ok := generic.IndexSharingModes(snap.SharingModes)[generic.SharingModeID(req.ModeID)]
		if !ok {
			writeDomainError(ctx, w, "Unknown sharing mode", fmt.Errorf("%w: %s", generic.ErrSharingModeNotFound, req.ModeID))
			return
		}
		split = m.Split()
	}

	if req.ID == "" {
		req.ID = "statement-" + strings.ReplaceAll(req.Date, "/", "-") + "-" + req.CardID
	}
	mine, partner := sharing.SplitStatement(sharing.StatementInput{
		ID:          req.ID,
		Description: req.Description,
		Total:       req.Total,
		Date:        req.Date,
		Payer:       req.Payer,
		Split:       split,
		Group:       generic.GroupID(req.GroupID),
		Card:        generic.CardID(req.CardID),
	})

	for _, m := range sharing.SyntheticModes() {
		if err := h.Store.SaveSharingMode(ctx, m); err != nil {
			writeDomainError(ctx, w, "Failed to save sharing mode", err)
			return
		}
	}
	var err error
	if mine, err = h.Store.SaveEntry(ctx, mine); err != nil {
		writeDomainError(ctx, w, "Failed to save entry", err)
		return
	}
	if partner, err = h.Store.SaveEntry(ctx, partner); err != nil {
		writeDomainError(ctx, w, "Failed to save entry", err)
		return
	}

	slog.InfoContext(ctx, "statement split", "statement", req.ID, "total", req.Total.String(),
		"mine", mine.Value.String(), "partner", partner.Value.String())
	writeJSON(w, http.StatusCreated, SplitStatementResponse{Mine: toLedgerEntryDTO(mine), Partner: toLedgerEntryDTO(partner)})
}

// ListSharingModes returns every stored sharing mode.
func (h *Handler) ListSharingModes(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load sharing modes", err)
		return
	}
	dtos := make([]SharingModeDTO, 0, len(snap.SharingModes))
	for _, m := range snap.SharingModes {
		dtos = append(dtos, SharingModeDTO{ID: string(m.ID), Name: m.Name, PartyA: m.PartyA, PartyB: m.PartyB})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSharingMode stores a mode after validating its percentages.
func (h *Handler) CreateSharingMode(w http.ResponseWriter, r *http.Request) {
	var req factory.SharingModeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	m, err := h.ConfigFactory.SharingModeFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sharing mode", err)
		return
	}
	if err := h.Store.SaveSharingMode(r.Context(), m); err != nil {
		writeDomainError(r.Context(), w, "Failed to save sharing mode", err)
		return
	}
	writeJSON(w, http.StatusCreated, SharingModeDTO{ID: string(m.ID), Name: m.Name, PartyA: m.PartyA, PartyB: m.PartyB})
}

// =============================================================================
// BUDGET ENDPOINTS
// =============================================================================

// GetBudgetVariance returns the (group x category x flow) x month grid.
//
// Query: forced=a,b pins categories visible; group=g1,g2 restricts groups;
// all=true returns invisible rows too.
func (h *Handler) GetBudgetVariance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	forced := splitList(r.URL.Query().Get("forced"))
	groupNames := splitList(r.URL.Query().Get("group"))
	groups := make([]generic.GroupID, 0, len(groupNames))
	for _, g := range groupNames {
		groups = append(groups, generic.GroupID(g))
	}

	filters := "forced=" + strings.Join(forced, ",") + "|group=" + strings.Join(groupNames, ",")
	grid, err := cached(ctx, h, h.budgets, "budget", year, filters, func(s generic.Snapshot) (budget.Grid, int) {
		g := budget.ComputeBudgetVariance(budget.Input{
			Year:          year,
			Groups:        groups,
			Tags:          s.Tags,
			Targets:       s.Targets,
			Entries:       s.Entries,
			Purchases:     s.Purchases,
			Invoices:      s.Invoices,
			Cards:         s.Cards,
			ForcedVisible: forced,
		})
		return g, len(g.Warnings)
	})
	if err != nil {
		writeDomainError(ctx, w, "Failed to compute budget variance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetGridDTO(grid, r.URL.Query().Get("all") == "true"))
}

// ListBudgetTargets returns every stored target.
func (h *Handler) ListBudgetTargets(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load targets", err)
		return
	}
	dtos := make([]BudgetTargetDTO, 0, len(snap.Targets))
	for _, t := range snap.Targets {
		dtos = append(dtos, BudgetTargetDTO{
			Year: t.Year, Month: t.Month0 + 1, GroupID: string(t.GroupID),
			Category: t.Category, Flow: string(t.Flow), Target: t.Target,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutBudgetTarget upserts one target cell.
func (h *Handler) PutBudgetTarget(w http.ResponseWriter, r *http.Request) {
	var req BudgetTargetDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Store.SaveTarget(r.Context(), req.toDomain()); err != nil {
		writeDomainError(r.Context(), w, "Failed to save target", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// RECORD ENDPOINTS
// =============================================================================

// ListInvoices returns every stored invoice.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load invoices", err)
		return
	}
	dtos := make([]InvoiceDTO, 0, len(snap.Invoices))
	for _, inv := range snap.Invoices {
		dtos = append(dtos, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInvoice stores an invoice. Malformed dates and retentions are
// accepted as imported; reports flag them as warnings.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	inv, err := h.Store.SaveInvoice(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to save invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// ListEntries returns every stored ledger entry.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load entries", err)
		return
	}
	dtos := make([]LedgerEntryDTO, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		dtos = append(dtos, toLedgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEntry stores a ledger entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req LedgerEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	e, err := h.Store.SaveEntry(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to save entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerEntryDTO(e))
}

// ListPurchases returns every stored card purchase with its billing period.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load purchases", err)
		return
	}
	cards := snap.CardIndex()
	dtos := make([]CardPurchaseDTO, 0, len(snap.Purchases))
	for _, p := range snap.Purchases {
		var card *generic.Card
		if c, ok := cards[p.CardID]; ok {
			card = &c
		}
		dtos = append(dtos, toCardPurchaseDTO(p, card))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePurchase stores a card purchase.
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req CardPurchaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Store.SavePurchase(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to save purchase", err)
		return
	}

	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load cards", err)
		return
	}
	var card *generic.Card
	if c, ok := snap.CardIndex()[p.CardID]; ok {
		card = &c
	}
	writeJSON(w, http.StatusCreated, toCardPurchaseDTO(p, card))
}

// ListCards returns every stored card.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load cards", err)
		return
	}
	dtos := make([]CardDTO, 0, len(snap.Cards))
	for _, c := range snap.Cards {
		dtos = append(dtos, CardDTO{ID: string(c.ID), Name: c.Name, ClosingDay: c.ClosingDay, GroupID: string(c.GroupID)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCard stores a card after validating its closing day.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req factory.CardJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.ConfigFactory.CardFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid card", err)
		return
	}
	if err := h.Store.SaveCard(r.Context(), c); err != nil {
		writeDomainError(r.Context(), w, "Failed to save card", err)
		return
	}
	writeJSON(w, http.StatusCreated, CardDTO{ID: string(c.ID), Name: c.Name, ClosingDay: c.ClosingDay, GroupID: string(c.GroupID)})
}

// ListTags returns the category universe.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Failed to load tags", err)
		return
	}
	dtos := make([]TagDTO, 0, len(snap.Tags))
	for _, t := range snap.Tags {
		dtos = append(dtos, TagDTO{Name: t.Name, Flow: string(t.Flow)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTag adds a category to the universe.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if err := h.Store.SaveTag(r.Context(), generic.Tag{Name: req.Name, Flow: generic.Flow(req.Flow)}); err != nil {
		writeDomainError(r.Context(), w, "Failed to save tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// CONFIG ENDPOINTS
// =============================================================================

// GetRates returns the tax rates in use.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	rates := h.Rates()
	writeJSON(w, http.StatusOK, factory.RateTableJSON{
		ISS: &rates.ISS, PIS: &rates.PIS, COFINS: &rates.COFINS, IRPJ: &rates.IRPJ, CSLL: &rates.CSLL,
		PresumedProfit: &rates.PresumedProfit, SurchargeRate: &rates.SurchargeRate,
		SurchargeThreshold: &rates.SurchargeThreshold,
	})
}

// ApplyConfig validates a full configuration document and applies it:
// rates replace the current table; modes, cards and tags are upserted.
func (h *Handler) ApplyConfig(w http.ResponseWriter, r *http.Request) {
	var req factory.ConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cfg, err := h.ConfigFactory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err)
		return
	}
	if err := h.applyConfig(r.Context(), cfg, req.Rates != nil); err != nil {
		writeDomainError(r.Context(), w, "Failed to apply configuration", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"sharing_modes": len(cfg.SharingModes),
		"cards":         len(cfg.Cards),
		"tags":          len(cfg.Tags),
	})
}

// Configure applies a validated configuration, rates included.
func (h *Handler) Configure(ctx context.Context, cfg *factory.Config) error {
	return h.applyConfig(ctx, cfg, true)
}

func (h *Handler) applyConfig(ctx context.Context, cfg *factory.Config, withRates bool) error {
	if withRates {
		if err := h.SetRates(cfg.Rates); err != nil {
			return err
		}
	}
	for _, m := range cfg.SharingModes {
		if err := h.Store.SaveSharingMode(ctx, m); err != nil {
			return err
		}
	}
	for _, c := range cfg.Cards {
		if err := h.Store.SaveCard(ctx, c); err != nil {
			return err
		}
	}
	for _, t := range cfg.Tags {
		if err := h.Store.SaveTag(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// MigratePayments rewrites legacy payment ids into (kind, period) keys.
func (h *Handler) MigratePayments(w http.ResponseWriter, r *http.Request) {
	m, ok := h.Store.(PaymentMigrator)
	if !ok {
		writeJSON(w, http.StatusOK, MigrationDTO{Unparsed: []string{}})
		return
	}
	res, err := m.MigrateLegacyPayments(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, "Migration failed", err)
		return
	}
	if res.Unparsed == nil {
		res.Unparsed = []string{}
	}
	slog.InfoContext(r.Context(), "legacy payments migrated",
		"migrated", res.Migrated, "superseded", res.Superseded, "unparsed", len(res.Unparsed))
	writeJSON(w, http.StatusOK, MigrationDTO{Migrated: res.Migrated, Superseded: res.Superseded, Unparsed: res.Unparsed})
}

// ResetDatabase clears all data (for testing/demo).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeDomainError(r.Context(), w, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(Resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	if err := rs.Reset(ctx); err != nil {
		return err
	}
	return h.SetRates(tax.DefaultRates())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses. Unexpected errors
// are logged and returned as 500.
func writeDomainError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		slog.ErrorContext(ctx, message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// yearParam reads ?year=, defaulting to the current year.
func (h *Handler) yearParam(r *http.Request) (int, error) {
	s := r.URL.Query().Get("year")
	if s == "" {
		return h.Now().Year(), nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("%w: year %q", generic.ErrInvalidPeriod, s)
	}
	return year, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
