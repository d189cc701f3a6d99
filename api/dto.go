/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary values are decimal strings ("1234.56"). Imported retention
  fields accept numbers, strings or null and keep their raw text.
  Totals also carry a "formatted" display string (R$1.234,56).

VALIDATION:
  Validation is done in handlers and stores, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: Configuration JSON types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/budget"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/sharing"
	"github.com/warp/finance-engine/tax"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WarningDTO is a row-level problem found during aggregation.
type WarningDTO struct {
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func toWarningDTOs(ws []generic.Warning) []WarningDTO {
	out := make([]WarningDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, WarningDTO{RecordID: w.RecordID, Field: w.Field, Message: w.Message})
	}
	return out
}

// MoneyDTO is an amount with its display form.
type MoneyDTO struct {
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

func money(d decimal.Decimal) MoneyDTO {
	return MoneyDTO{Value: d.Round(2), Formatted: generic.NewAmountFromDecimal(d, generic.CurrencyBRL).Format()}
}

// =============================================================================
// PERIODS
// =============================================================================

type BillingPeriodDTO struct {
	Date          string `json:"date"`
	ClosingDay    int    `json:"closing_day"`
	BillingPeriod string `json:"billing_period"`
}

// =============================================================================
// RECORDS
// =============================================================================

type SplitDTO struct {
	PartyA decimal.Decimal `json:"party_a"`
	PartyB decimal.Decimal `json:"party_b"`
}

type LedgerEntryDTO struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Value        decimal.Decimal `json:"value"`
	ExpectedDate string          `json:"expected_date,omitempty"`
	RealizedDate string          `json:"realized_date,omitempty"`
	Realized     bool            `json:"realized"`
	AccountID    string          `json:"account_id,omitempty"`
	GroupID      string          `json:"group_id,omitempty"`
	Category     string          `json:"category,omitempty"`
	Shared       bool            `json:"shared"`
	Payer        string          `json:"payer,omitempty"`
	ModeID       string          `json:"mode_id,omitempty"`
	Custom       *SplitDTO       `json:"custom_split,omitempty"`
	Source       string          `json:"source,omitempty"`
}

func (d LedgerEntryDTO) toDomain() generic.LedgerEntry {
	e := generic.LedgerEntry{
		ID:           d.ID,
		Description:  d.Description,
		Value:        d.Value,
		ExpectedDate: d.ExpectedDate,
		RealizedDate: d.RealizedDate,
		Realized:     d.Realized,
		AccountID:    d.AccountID,
		GroupID:      generic.GroupID(d.GroupID),
		Category:     d.Category,
		Shared:       d.Shared,
		Payer:        d.Payer,
		ModeID:       generic.SharingModeID(d.ModeID),
		Source:       generic.EntrySource(d.Source),
	}
	if d.Custom != nil {
		e.Custom = &generic.CustomSplit{PartyA: d.Custom.PartyA, PartyB: d.Custom.PartyB}
	}
	return e
}

func toLedgerEntryDTO(e generic.LedgerEntry) LedgerEntryDTO {
	d := LedgerEntryDTO{
		ID:           e.ID,
		Description:  e.Description,
		Value:        e.Value,
		ExpectedDate: e.ExpectedDate,
		RealizedDate: e.RealizedDate,
		Realized:     e.Realized,
		AccountID:    e.AccountID,
		GroupID:      string(e.GroupID),
		Category:     e.Category,
		Shared:       e.Shared,
		Payer:        e.Payer,
		ModeID:       string(e.ModeID),
		Source:       string(e.Source),
	}
	if e.Custom != nil {
		d.Custom = &SplitDTO{PartyA: e.Custom.PartyA, PartyB: e.Custom.PartyB}
	}
	return d
}

type CardPurchaseDTO struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Value         decimal.Decimal `json:"value"`
	PurchaseDate  string          `json:"purchase_date"`
	InvoicePeriod string          `json:"invoice_period,omitempty"`
	Category      string          `json:"category,omitempty"`
	CardID        string          `json:"card_id"`
	BillingPeriod string          `json:"billing_period,omitempty"` // response only
}

func (d CardPurchaseDTO) toDomain() generic.CardPurchase {
	return generic.CardPurchase{
		ID:            d.ID,
		Description:   d.Description,
		Value:         d.Value,
		PurchaseDate:  d.PurchaseDate,
		InvoicePeriod: d.InvoicePeriod,
		Category:      d.Category,
		CardID:        generic.CardID(d.CardID),
	}
}

func toCardPurchaseDTO(p generic.CardPurchase, card *generic.Card) CardPurchaseDTO {
	d := CardPurchaseDTO{
		ID:            p.ID,
		Description:   p.Description,
		Value:         p.Value,
		PurchaseDate:  p.PurchaseDate,
		InvoicePeriod: p.InvoicePeriod,
		Category:      p.Category,
		CardID:        string(p.CardID),
	}
	if k := p.BillingMonth(card); !k.IsZero() {
		d.BillingPeriod = k.String()
	}
	return d
}

type CardDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClosingDay int    `json:"closing_day"`
	GroupID    string `json:"group_id,omitempty"`
}

type RetainedDTO struct {
	ISS    generic.LooseDecimal `json:"iss,omitempty"`
	PIS    generic.LooseDecimal `json:"pis,omitempty"`
	COFINS generic.LooseDecimal `json:"cofins,omitempty"`
	IRPJ   generic.LooseDecimal `json:"irpj,omitempty"`
	IRRF   generic.LooseDecimal `json:"irrf,omitempty"`
	CSLL   generic.LooseDecimal `json:"csll,omitempty"`
}

type InvoiceDTO struct {
	ID         string          `json:"id"`
	Number     string          `json:"number,omitempty"`
	Client     string          `json:"client,omitempty"`
	GrossValue decimal.Decimal `json:"gross_value"`
	IssueDate  string          `json:"issue_date"`
	Retained   RetainedDTO     `json:"retained_taxes"`
	Status     string          `json:"status,omitempty"`
	Taxable    *bool           `json:"taxable,omitempty"` // default true
	GroupID    string          `json:"group_id,omitempty"`
	Category   string          `json:"category,omitempty"`
}

func (d InvoiceDTO) toDomain() generic.Invoice {
	taxable := true
	if d.Taxable != nil {
		taxable = *d.Taxable
	}
	return generic.Invoice{
		ID:         d.ID,
		Number:     d.Number,
		Client:     d.Client,
		GrossValue: d.GrossValue,
		IssueDate:  d.IssueDate,
		Retained: generic.RetainedTaxes{
			ISS: d.Retained.ISS, PIS: d.Retained.PIS, COFINS: d.Retained.COFINS,
			IRPJ: d.Retained.IRPJ, IRRF: d.Retained.IRRF, CSLL: d.Retained.CSLL,
		},
		Status:   generic.InvoiceStatus(d.Status),
		Taxable:  taxable,
		GroupID:  generic.GroupID(d.GroupID),
		Category: d.Category,
	}
}

func toInvoiceDTO(inv generic.Invoice) InvoiceDTO {
	taxable := inv.Taxable
	r := inv.Retained
	return InvoiceDTO{
		ID:         inv.ID,
		Number:     inv.Number,
		Client:     inv.Client,
		GrossValue: inv.GrossValue,
		IssueDate:  inv.IssueDate,
		Retained:   RetainedDTO{ISS: r.ISS, PIS: r.PIS, COFINS: r.COFINS, IRPJ: r.IRPJ, IRRF: r.IRRF, CSLL: r.CSLL},
		Status:     string(inv.Status),
		Taxable:    &taxable,
		GroupID:    string(inv.GroupID),
		Category:   inv.Category,
	}
}

type TagDTO struct {
	Name string `json:"name"`
	Flow string `json:"flow,omitempty"`
}

type BudgetTargetDTO struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"` // 1-12
	GroupID  string          `json:"group_id"`
	Category string          `json:"category"`
	Flow     string          `json:"flow"`
	Target   decimal.Decimal `json:"target"`
}

func (d BudgetTargetDTO) toDomain() generic.BudgetTarget {
	return generic.BudgetTarget{
		Year:     d.Year,
		Month0:   d.Month - 1,
		GroupID:  generic.GroupID(d.GroupID),
		Category: d.Category,
		Flow:     generic.Flow(d.Flow),
		Target:   d.Target,
	}
}

// TaxPaymentDTO is what was paid for one (kind, period).
type TaxPaymentDTO struct {
	Kind     string          `json:"kind,omitempty"`
	Period   string          `json:"period,omitempty"` // YYYY-MM
	Amount   decimal.Decimal `json:"amount"`
	PaidOn   string          `json:"paid_on,omitempty"`
	LegacyID string          `json:"legacy_id,omitempty"`
	Key      string          `json:"key,omitempty"` // response only
}

func toTaxPaymentDTO(p generic.TaxPayment) TaxPaymentDTO {
	d := TaxPaymentDTO{Kind: string(p.Kind), Amount: p.Amount, PaidOn: p.PaidOn.String(), LegacyID: p.LegacyID}
	if !p.Period.IsZero() {
		d.Period = p.Period.String()
		d.Key = tax.PaymentKey(p.Kind, p.Period)
	}
	return d
}

// =============================================================================
// TAX REPORTS
// =============================================================================

type TaxLineDTO struct {
	Kind       string          `json:"kind"`
	Calculated decimal.Decimal `json:"calculated"`
	Retained   decimal.Decimal `json:"retained"`
	Due        decimal.Decimal `json:"due"`
	DueDate    string          `json:"due_date"`

	// Quarterly taxes only.
	Quarter        string           `json:"quarter,omitempty"`
	QuarterRevenue *decimal.Decimal `json:"quarter_revenue,omitempty"`
	PresumedProfit *decimal.Decimal `json:"presumed_profit,omitempty"`
	Surcharge      *decimal.Decimal `json:"surcharge,omitempty"`
}

type TaxMonthDTO struct {
	Period       string       `json:"period"`
	Revenue      MoneyDTO     `json:"revenue"`
	InvoiceCount int          `json:"invoice_count"`
	Taxes        []TaxLineDTO `json:"taxes"`
	TotalDue     MoneyDTO     `json:"total_due"`
}

type TaxReportDTO struct {
	Year     int                 `json:"year"`
	Months   []TaxMonthDTO       `json:"months"`
	Totals   map[string]MoneyDTO `json:"totals_due"`
	Revenue  MoneyDTO            `json:"revenue"`
	Warnings []WarningDTO        `json:"warnings"`
}

func toTaxReportDTO(r tax.Report) TaxReportDTO {
	dto := TaxReportDTO{
		Year:     r.Year,
		Months:   make([]TaxMonthDTO, 0, len(r.Months)),
		Totals:   make(map[string]MoneyDTO),
		Revenue:  money(r.Revenue()),
		Warnings: toWarningDTOs(r.Warnings),
	}
	for _, m := range r.Months {
		md := TaxMonthDTO{
			Period:       m.Period.String(),
			Revenue:      money(m.Revenue),
			InvoiceCount: m.InvoiceCount,
			TotalDue:     money(m.TotalDue()),
		}
		for _, kind := range generic.TaxKinds {
			line := m.Line(kind)
			ld := TaxLineDTO{
				Kind:       string(kind),
				Calculated: line.Calculated.Round(2),
				Retained:   line.Retained.Round(2),
				Due:        line.Due.Round(2),
				DueDate:    line.DueDate.String(),
			}
			if kind.Quarterly() {
				q := m.IRPJ
				if kind == generic.TaxCSLL {
					q = m.CSLL
				}
				rev, profit, surcharge := q.Revenue.Round(2), q.PresumedProfit.Round(2), q.Surcharge.Round(2)
				ld.Quarter = q.Quarter.String()
				ld.QuarterRevenue, ld.PresumedProfit, ld.Surcharge = &rev, &profit, &surcharge
			}
			md.Taxes = append(md.Taxes, ld)
		}
		dto.Months = append(dto.Months, md)
	}
	for kind, line := range r.Totals() {
		dto.Totals[string(kind)] = money(line.Due)
	}
	return dto
}

type ReconciliationItemDTO struct {
	Kind       string          `json:"kind"`
	Period     string          `json:"period"`
	Key        string          `json:"key"`
	DueDate    string          `json:"due_date"`
	Due        decimal.Decimal `json:"due"`
	Paid       decimal.Decimal `json:"paid"`
	Status     string          `json:"status"`
	Adjustment decimal.Decimal `json:"adjustment"`
}

type ReconciliationDTO struct {
	Year     int                     `json:"year"`
	Today    string                  `json:"today"`
	Items    []ReconciliationItemDTO `json:"items"`
	Paid     MoneyDTO                `json:"paid_total"`
	Pending  MoneyDTO                `json:"pending_total"`
	Overdue  MoneyDTO                `json:"overdue_total"`
	Fines    MoneyDTO                `json:"fine_total"`
	Warnings []WarningDTO            `json:"warnings"`
}

func toReconciliationDTO(year int, today generic.Date, rec tax.Reconciliation) ReconciliationDTO {
	dto := ReconciliationDTO{
		Year:     year,
		Today:    today.String(),
		Items:    make([]ReconciliationItemDTO, 0, len(rec.Items)),
		Paid:     money(rec.PaidTotal),
		Pending:  money(rec.PendingTotal),
		Overdue:  money(rec.OverdueTotal),
		Fines:    money(rec.FineTotal),
		Warnings: toWarningDTOs(rec.Warnings),
	}
	for _, it := range rec.Items {
		dto.Items = append(dto.Items, ReconciliationItemDTO{
			Kind:       string(it.Kind),
			Period:     it.Period.String(),
			Key:        it.Key,
			DueDate:    it.DueDate.String(),
			Due:        it.Due.Round(2),
			Paid:       it.Paid,
			Status:     string(it.Status),
			Adjustment: it.Adjustment.Round(2),
		})
	}
	return dto
}

// =============================================================================
// SHARING
// =============================================================================

type SharingModeDTO struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	PartyA decimal.Decimal `json:"party_a"`
	PartyB decimal.Decimal `json:"party_b"`
}

type AllocationDTO struct {
	EventID    string          `json:"event_id"`
	Amount     decimal.Decimal `json:"amount"`
	PartyA     decimal.Decimal `json:"party_a_percent"`
	PartyB     decimal.Decimal `json:"party_b_percent"`
	LiabilityA decimal.Decimal `json:"liability_a"`
	LiabilityB decimal.Decimal `json:"liability_b"`
	PaidBy     string          `json:"paid_by"`
}

type TransferDTO struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Amount MoneyDTO `json:"amount"`
}

type SettlementDTO struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Total       MoneyDTO        `json:"total"`
	LiabilityA  MoneyDTO        `json:"liability_a"`
	LiabilityB  MoneyDTO        `json:"liability_b"`
	PaidByA     MoneyDTO        `json:"paid_by_a"`
	PaidByB     MoneyDTO        `json:"paid_by_b"`
	Balance     MoneyDTO        `json:"balance"`
	Transfer    *TransferDTO    `json:"transfer,omitempty"`
	Allocations []AllocationDTO `json:"allocations"`
}

func toSettlementDTO(year, month int, s sharing.Settlement) SettlementDTO {
	dto := SettlementDTO{
		Year:        year,
		Month:       month,
		Total:       money(s.Total),
		LiabilityA:  money(s.LiabilityA),
		LiabilityB:  money(s.LiabilityB),
		PaidByA:     money(s.PaidByA),
		PaidByB:     money(s.PaidByB),
		Balance:     money(s.Balance),
		Allocations: make([]AllocationDTO, 0, len(s.Allocations)),
	}
	if tr, ok := s.Transfer(); ok {
		dto.Transfer = &TransferDTO{From: string(tr.From), To: string(tr.To), Amount: money(tr.Amount)}
	}
	for _, a := range s.Allocations {
		dto.Allocations = append(dto.Allocations, AllocationDTO{
			EventID:    a.EventID,
			Amount:     a.Amount,
			PartyA:     a.Split.PartyA,
			PartyB:     a.Split.PartyB,
			LiabilityA: a.LiabilityA.Round(2),
			LiabilityB: a.LiabilityB.Round(2),
			PaidBy:     string(a.PaidBy),
		})
	}
	return dto
}

// SplitStatementRequest splits one shared card statement into two entries.
// The split is the custom split when given, else the mode, else 50/50.
type SplitStatementRequest struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	Date        string          `json:"date"`
	Payer       string          `json:"payer"`
	ModeID      string          `json:"mode_id,omitempty"`
	Custom      *SplitDTO       `json:"custom_split,omitempty"`
	CardID      string          `json:"card_id,omitempty"`
	GroupID     string          `json:"group_id,omitempty"`
}

type SplitStatementResponse struct {
	Mine    LedgerEntryDTO `json:"mine"`
	Partner LedgerEntryDTO `json:"partner"`
}

// =============================================================================
// BUDGET
// =============================================================================

type BudgetCellDTO struct {
	Actual   decimal.Decimal `json:"actual"`
	Target   decimal.Decimal `json:"target"`
	Variance decimal.Decimal `json:"variance"`
}

type BudgetRowDTO struct {
	GroupID  string          `json:"group_id"`
	Category string          `json:"category"`
	Flow     string          `json:"flow"`
	Months   []BudgetCellDTO `json:"months"`
	Total    BudgetCellDTO   `json:"total"`
	Visible  bool            `json:"visible"`
}

type BudgetGridDTO struct {
	Year     int            `json:"year"`
	Rows     []BudgetRowDTO `json:"rows"`
	Warnings []WarningDTO   `json:"warnings"`
}

func toBudgetCellDTO(c budget.Cell) BudgetCellDTO {
	return BudgetCellDTO{Actual: c.Actual.Round(2), Target: c.Target.Round(2), Variance: c.Variance.Round(2)}
}

// toBudgetGridDTO renders the grid. With all=false only visible rows are
// returned.
func toBudgetGridDTO(g budget.Grid, all bool) BudgetGridDTO {
	dto := BudgetGridDTO{Year: g.Year, Rows: []BudgetRowDTO{}, Warnings: toWarningDTOs(g.Warnings)}
	for _, r := range g.Rows {
		if !all && !r.Visible {
			continue
		}
		rd := BudgetRowDTO{
			GroupID:  string(r.Group),
			Category: r.Category,
			Flow:     string(r.Flow),
			Months:   make([]BudgetCellDTO, 0, 12),
			Total:    toBudgetCellDTO(r.Total()),
			Visible:  r.Visible,
		}
		for _, c := range r.Months {
			rd.Months = append(rd.Months, toBudgetCellDTO(c))
		}
		dto.Rows = append(dto.Rows, rd)
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type MigrationDTO struct {
	Migrated   int      `json:"migrated"`
	Superseded int      `json:"superseded"`
	Unparsed   []string `json:"unparsed"`
}
