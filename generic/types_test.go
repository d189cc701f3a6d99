package generic_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// NUMERIC PARSER
// =============================================================================

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1234.56", "1234.56", true},
		{"1.234,56", "1234.56", true},
		{"R$ 1.234,56", "1234.56", true},
		{"1.234.567", "1234567", true},
		{"0,65", "0.65", true},
		{"-12,5", "-12.5", true},
		{"50", "50", true},
		{"", "0", false},
		{"abc", "0", false},
		{"12,34,56", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := generic.ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestLooseDecimal_JSON(t *testing.T) {
	var v struct {
		A generic.LooseDecimal `json:"a"`
		B generic.LooseDecimal `json:"b"`
		C generic.LooseDecimal `json:"c"`
		D generic.LooseDecimal `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 12.5, "b": "1.000,10", "c": "n/a", "d": null}`), &v)
	require.NoError(t, err)

	assert.True(t, v.A.Decimal().Equal(dec("12.5")))
	assert.True(t, v.B.Decimal().Equal(dec("1000.10")))
	assert.True(t, v.C.Decimal().IsZero())
	assert.False(t, v.C.Valid())
	assert.True(t, v.D.Decimal().IsZero())
	assert.True(t, v.D.Valid())
}

// =============================================================================
// SPLITS
// =============================================================================

func TestSplit_Validate(t *testing.T) {
	assert.NoError(t, generic.NewSplit(50, 50).Validate())
	assert.NoError(t, generic.NewSplit(100, 0).Validate())
	assert.NoError(t, generic.NewSplit(33.33, 66.67).Validate())
	assert.NoError(t, generic.NewSplit(33.33, 66.66).Validate(), "within epsilon")

	err := generic.NewSplit(60, 60).Validate()
	assert.ErrorIs(t, err, generic.ErrInvalidSplit)

	err = generic.NewSplit(-10, 110).Validate()
	assert.ErrorIs(t, err, generic.ErrInvalidSplit)

	mode := generic.SharingMode{ID: "rent", PartyA: dec("70"), PartyB: dec("20")}
	err = mode.Validate()
	var se *generic.SplitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, generic.SharingModeID("rent"), se.ModeID)
}

func TestSharingModes_ResolveSplit(t *testing.T) {
	modes := generic.IndexSharingModes([]generic.SharingMode{
		{ID: "rent", PartyA: dec("70"), PartyB: dec("30")},
	})
	custom := generic.NewSplit(10, 90)

	assert.Equal(t, custom, modes.ResolveSplit(&custom, "rent"), "custom wins")
	assert.True(t, modes.ResolveSplit(nil, "rent").PartyA.Equal(dec("70")))
	assert.Equal(t, generic.DefaultSplit, modes.ResolveSplit(nil, "missing"))
	assert.Equal(t, generic.DefaultSplit, modes.ResolveSplit(nil, ""))
}

// =============================================================================
// AMOUNT
// =============================================================================

func TestAmount_Format(t *testing.T) {
	a := generic.NewAmountFromDecimal(dec("1234.56"), generic.CurrencyBRL)
	assert.Equal(t, "R$1.234,56", a.Format())
	assert.Equal(t, "1234.56", a.String())
	assert.True(t, a.Neg().ClampZero().IsZero())
}

// =============================================================================
// MEMO
// =============================================================================

func TestMemo_InvalidatesOnNewVersion(t *testing.T) {
	memo := generic.NewMemo[int]()
	calls := 0
	compute := func() int { calls++; return calls }

	k1 := generic.MemoKey{Version: 1, Kind: "tax", Year: 2025}
	v, hit := memo.Get(k1, compute)
	assert.Equal(t, 1, v)
	assert.False(t, hit)

	v, hit = memo.Get(k1, compute)
	assert.Equal(t, 1, v)
	assert.True(t, hit)

	k2 := generic.MemoKey{Version: 2, Kind: "tax", Year: 2025}
	v, hit = memo.Get(k2, compute)
	assert.Equal(t, 2, v)
	assert.False(t, hit)
	assert.Equal(t, 1, memo.Len(), "old version dropped")
}

func TestMemo_Concurrent(t *testing.T) {
	memo := generic.NewMemo[string]()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(year int) {
			defer wg.Done()
			k := generic.MemoKey{Version: 1, Kind: "budget", Year: 2000 + year%4}
			v, _ := memo.Get(k, func() string { return k.String() })
			assert.Equal(t, k.String(), v)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, memo.Len())
}

func TestMemo_LoadDoesNotCacheErrors(t *testing.T) {
	memo := generic.NewMemo[int]()
	k := generic.MemoKey{Version: 3, Kind: "settlement", Year: 2025, Filters: "month=1"}

	_, _, err := memo.Load(k, func() (int, error) { return 0, generic.ErrNotFound })
	assert.ErrorIs(t, err, generic.ErrNotFound)
	assert.Zero(t, memo.Len())

	v, hit, err := memo.Load(k, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
}
