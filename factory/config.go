/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON configuration (tax rate table, sharing modes, cards, tags)
  into validated generic/tax structs. This is the write-time boundary where
  configuration invariants are enforced; the calculators never re-check them.

JSON SCHEMA:
  {
    "rates": {
      "iss": 0.05, "pis": 0.0065, "cofins": 0.03,
      "irpj": 0.048, "csll": 0.0288,
      "presumed_profit": 0.32,
      "surcharge_rate": 0.10, "surcharge_threshold": 60000
    },
    "sharing_modes": [
      {"id": "half", "name": "50/50", "party_a": 50, "party_b": 50}
    ],
    "cards": [
      {"id": "nubank", "name": "Nubank", "closing_day": 10, "group_id": "home"}
    ],
    "tags": [
      {"name": "groceries", "flow": "expense"}
    ]
  }

  Every rate is optional; missing rates keep their default.

VALIDATION:
  - Rates must not be negative            -> generic.ErrInvalidRate
  - Mode percentages in [0,100], sum 100  -> generic.ErrInvalidSplit
  - Closing day in [1,31]                 -> generic.ErrInvalidClosingDay

USAGE:
  f := factory.NewConfigFactory()
  cfg, err := f.ParseConfig(jsonString)
  calc := tax.NewCalculator(cfg.Rates)

SEE ALSO:
  - tax/rates.go: RateTable and defaults
  - generic/split.go: SharingMode validation
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/tax"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of the whole configuration.
type ConfigJSON struct {
	Rates        *RateTableJSON    `json:"rates,omitempty"`
	SharingModes []SharingModeJSON `json:"sharing_modes,omitempty"`
	Cards        []CardJSON        `json:"cards,omitempty"`
	Tags         []TagJSON         `json:"tags,omitempty"`
}

// RateTableJSON overrides individual rates. Nil fields keep the default.
type RateTableJSON struct {
	ISS                *decimal.Decimal `json:"iss,omitempty"`
	PIS                *decimal.Decimal `json:"pis,omitempty"`
	COFINS             *decimal.Decimal `json:"cofins,omitempty"`
	IRPJ               *decimal.Decimal `json:"irpj,omitempty"`
	CSLL               *decimal.Decimal `json:"csll,omitempty"`
	PresumedProfit     *decimal.Decimal `json:"presumed_profit,omitempty"`
	SurchargeRate      *decimal.Decimal `json:"surcharge_rate,omitempty"`
	SurchargeThreshold *decimal.Decimal `json:"surcharge_threshold,omitempty"`
}

type SharingModeJSON struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	PartyA decimal.Decimal `json:"party_a"`
	PartyB decimal.Decimal `json:"party_b"`
}

type CardJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClosingDay int    `json:"closing_day"`
	GroupID    string `json:"group_id,omitempty"`
}

type TagJSON struct {
	Name string `json:"name"`
	Flow string `json:"flow,omitempty"` // income, expense, or empty for both
}

// Config is the validated configuration.
type Config struct {
	Rates        tax.RateTable
	SharingModes []generic.SharingMode
	Cards        []generic.Card
	Tags         []generic.Tag
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON configuration to Go structs.
type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseConfig parses and validates a complete configuration document.
func (f *ConfigFactory) ParseConfig(jsonStr string) (*Config, error) {
	var cj ConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON validates a decoded configuration.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (*Config, error) {
	cfg := &Config{Rates: tax.DefaultRates()}

	if cj.Rates != nil {
		rates, err := f.RateTableFromJSON(*cj.Rates)
		if err != nil {
			return nil, err
		}
		cfg.Rates = rates
	}

	seen := make(map[generic.SharingModeID]bool)
	for _, mj := range cj.SharingModes {
		m, err := f.SharingModeFromJSON(mj)
		if err != nil {
			return nil, err
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate sharing mode %q", m.ID)
		}
		seen[m.ID] = true
		cfg.SharingModes = append(cfg.SharingModes, m)
	}

	for _, cardJ := range cj.Cards {
		c, err := f.CardFromJSON(cardJ)
		if err != nil {
			return nil, err
		}
		cfg.Cards = append(cfg.Cards, c)
	}

	for _, tj := range cj.Tags {
		t, err := parseTag(tj)
		if err != nil {
			return nil, err
		}
		cfg.Tags = append(cfg.Tags, t)
	}

	return cfg, nil
}

// =============================================================================
// INDIVIDUAL PARSERS
// =============================================================================

// ParseRateTable parses a rate table document. Missing rates keep their
// default value.
func (f *ConfigFactory) ParseRateTable(jsonStr string) (tax.RateTable, error) {
	var rj RateTableJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return tax.RateTable{}, fmt.Errorf("failed to parse rate table JSON: %w", err)
	}
	return f.RateTableFromJSON(rj)
}

func (f *ConfigFactory) RateTableFromJSON(rj RateTableJSON) (tax.RateTable, error) {
	rates := tax.DefaultRates()
	override := func(dst *decimal.Decimal, src *decimal.Decimal) {
		if src != nil {
			*dst = *src
		}
	}
	override(&rates.ISS, rj.ISS)
	override(&rates.PIS, rj.PIS)
	override(&rates.COFINS, rj.COFINS)
	override(&rates.IRPJ, rj.IRPJ)
	override(&rates.CSLL, rj.CSLL)
	override(&rates.PresumedProfit, rj.PresumedProfit)
	override(&rates.SurchargeRate, rj.SurchargeRate)
	override(&rates.SurchargeThreshold, rj.SurchargeThreshold)

	if err := rates.Validate(); err != nil {
		return tax.RateTable{}, err
	}
	return rates, nil
}

// ParseSharingMode parses a single sharing mode.
func (f *ConfigFactory) ParseSharingMode(jsonStr string) (generic.SharingMode, error) {
	var mj SharingModeJSON
	if err := json.Unmarshal([]byte(jsonStr), &mj); err != nil {
		return generic.SharingMode{}, fmt.Errorf("failed to parse sharing mode JSON: %w", err)
	}
	return f.SharingModeFromJSON(mj)
}

// ParseSharingModes parses a JSON array of sharing modes.
func (f *ConfigFactory) ParseSharingModes(jsonStr string) ([]generic.SharingMode, error) {
	var mjs []SharingModeJSON
	if err := json.Unmarshal([]byte(jsonStr), &mjs); err != nil {
		return nil, fmt.Errorf("failed to parse sharing modes JSON: %w", err)
	}
	modes := make([]generic.SharingMode, 0, len(mjs))
	for _, mj := range mjs {
		m, err := f.SharingModeFromJSON(mj)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

func (f *ConfigFactory) SharingModeFromJSON(mj SharingModeJSON) (generic.SharingMode, error) {
	if mj.ID == "" {
		return generic.SharingMode{}, fmt.Errorf("%w: sharing mode id is required", generic.ErrInvalidSplit)
	}
	m := generic.SharingMode{
		ID:     generic.SharingModeID(mj.ID),
		Name:   mj.Name,
		PartyA: mj.PartyA,
		PartyB: mj.PartyB,
	}
	if m.Name == "" {
		m.Name = mj.ID
	}
	if err := m.Validate(); err != nil {
		return generic.SharingMode{}, err
	}
	return m, nil
}

// ParseCard parses a single card.
func (f *ConfigFactory) ParseCard(jsonStr string) (generic.Card, error) {
	var cj CardJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return generic.Card{}, fmt.Errorf("failed to parse card JSON: %w", err)
	}
	return f.CardFromJSON(cj)
}

func (f *ConfigFactory) CardFromJSON(cj CardJSON) (generic.Card, error) {
	c := generic.Card{
		ID:         generic.CardID(cj.ID),
		Name:       cj.Name,
		ClosingDay: cj.ClosingDay,
		GroupID:    generic.GroupID(cj.GroupID),
	}
	if err := c.Validate(); err != nil {
		return generic.Card{}, fmt.Errorf("card %q: %w", cj.ID, err)
	}
	return c, nil
}

func parseTag(tj TagJSON) (generic.Tag, error) {
	t := generic.Tag{Name: tj.Name, Flow: generic.Flow(tj.Flow)}
	if t.Name == "" {
		return generic.Tag{}, fmt.Errorf("tag name is required")
	}
	if t.Flow != "" && !t.Flow.Valid() {
		return generic.Tag{}, fmt.Errorf("tag %q: unknown flow %q", tj.Name, tj.Flow)
	}
	return t, nil
}
