package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/tax"
)

func TestParseConfig_Full(t *testing.T) {
	f := NewConfigFactory()

	cfg, err := f.ParseConfig(`{
		"rates": {"iss": 0.02, "surcharge_threshold": "90000"},
		"sharing_modes": [
			{"id": "half", "name": "50/50", "party_a": 50, "party_b": 50},
			{"id": "mostly-me", "party_a": "66.67", "party_b": "33.33"}
		],
		"cards": [{"id": "nubank", "name": "Nubank", "closing_day": 10, "group_id": "home"}],
		"tags": [{"name": "groceries", "flow": "expense"}, {"name": "travel"}]
	}`)
	require.NoError(t, err)

	assert.Equal(t, "0.02", cfg.Rates.ISS.String())
	assert.Equal(t, "90000", cfg.Rates.SurchargeThreshold.String())
	assert.True(t, cfg.Rates.PIS.Equal(tax.DefaultRates().PIS), "missing rates keep defaults")

	require.Len(t, cfg.SharingModes, 2)
	assert.Equal(t, "mostly-me", cfg.SharingModes[1].Name, "name defaults to id")

	require.Len(t, cfg.Cards, 1)
	assert.Equal(t, generic.GroupID("home"), cfg.Cards[0].GroupID)

	require.Len(t, cfg.Tags, 2)
	assert.Equal(t, generic.Flow(""), cfg.Tags[1].Flow)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := NewConfigFactory().ParseConfig(`{}`)
	require.NoError(t, err)
	assert.Equal(t, tax.DefaultRates(), cfg.Rates)
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"negative rate", `{"rates": {"pis": -0.01}}`, generic.ErrInvalidRate},
		{"split over 100", `{"sharing_modes": [{"id": "x", "party_a": 60, "party_b": 50}]}`, generic.ErrInvalidSplit},
		{"split under 100", `{"sharing_modes": [{"id": "x", "party_a": 60, "party_b": 30}]}`, generic.ErrInvalidSplit},
		{"negative split", `{"sharing_modes": [{"id": "x", "party_a": -10, "party_b": 110}]}`, generic.ErrInvalidSplit},
		{"mode without id", `{"sharing_modes": [{"party_a": 50, "party_b": 50}]}`, generic.ErrInvalidSplit},
		{"closing day 0", `{"cards": [{"id": "c", "closing_day": 0}]}`, generic.ErrInvalidClosingDay},
		{"closing day 32", `{"cards": [{"id": "c", "closing_day": 32}]}`, generic.ErrInvalidClosingDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigFactory().ParseConfig(tt.json)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	f := NewConfigFactory()

	_, err := f.ParseConfig(`{"rates": `)
	assert.Error(t, err)

	_, err = f.ParseConfig(`{"sharing_modes": [{"id": "a", "party_a": 50, "party_b": 50}, {"id": "a", "party_a": 50, "party_b": 50}]}`)
	assert.ErrorContains(t, err, "duplicate")

	_, err = f.ParseConfig(`{"tags": [{"name": "x", "flow": "sideways"}]}`)
	assert.Error(t, err)
}

func TestParseSingleDocuments(t *testing.T) {
	f := NewConfigFactory()

	rates, err := f.ParseRateTable(`{"csll": 0.03}`)
	require.NoError(t, err)
	assert.Equal(t, "0.03", rates.CSLL.String())

	m, err := f.ParseSharingMode(`{"id": "p", "name": "Partner", "party_a": 0, "party_b": 100}`)
	require.NoError(t, err)
	assert.Equal(t, generic.SharingModeID("p"), m.ID)

	modes, err := f.ParseSharingModes(`[{"id": "a", "party_a": 100, "party_b": 0}, {"id": "b", "party_a": 0, "party_b": 100}]`)
	require.NoError(t, err)
	assert.Len(t, modes, 2)

	c, err := f.ParseCard(`{"id": "visa", "closing_day": 31}`)
	require.NoError(t, err)
	assert.Equal(t, 31, c.ClosingDay)
}
