package shipping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vitrine-shop/backend-loja/internal/cart"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func method(name, base, perKg string, minDays int, regions ...string) Method {
	return Method{
		ID:          uuid.New(),
		CarrierName: "Correios",
		Name:        name,
		BaseCost:    dec(base),
		CostPerKg:   dec(perKg),
		MinDays:     minDays,
		MaxDays:     minDays + 3,
		RegionCodes: regions,
		Active:      true,
	}
}

func weightedSnapshot(weightKg string, qty int) cart.Snapshot {
	return cart.Snapshot{Items: []cart.Item{
		{ProductID: uuid.New(), UnitPrice: dec("50.00"), Quantity: qty, WeightKg: dec(weightKg)},
	}}
}

func TestNormalizeCEP(t *testing.T) {
	require.Equal(t, "01310100", NormalizeCEP(" 01310-100 "))
	require.Equal(t, "01310100", NormalizeCEP("01310100"))
	require.Equal(t, "", NormalizeCEP("0131010"))
	require.Equal(t, "", NormalizeCEP("01310-10a"))
	require.Equal(t, "", NormalizeCEP(""))
}

func TestMethodCostFormula(t *testing.T) {
	m := method("PAC", "10.00", "2.50", 5)
	// 10.00 + 2.50 * 1.2 = 13.00
	require.True(t, MethodCost(m, dec("1.2")).Equal(dec("13.00")))
}

func TestMethodCostRoundsHalfUp(t *testing.T) {
	m := method("PAC", "0.00", "3.33", 5)
	// 3.33 * 0.5 = 1.665 -> 1.67
	require.True(t, MethodCost(m, dec("0.5")).Equal(dec("1.67")))
}

func TestBuildQuoteSortsByCostThenSpeed(t *testing.T) {
	cheapSlow := method("PAC", "10.00", "1.00", 7)
	cheapFast := method("Mini", "10.00", "1.00", 3)
	expensive := method("SEDEX", "25.00", "2.00", 1)

	quote, err := BuildQuote([]Method{expensive, cheapSlow, cheapFast}, weightedSnapshot("1", 1), "01310100", "SP", false, dec("0.3"))
	require.NoError(t, err)
	require.Len(t, quote.Options, 3)
	require.Equal(t, "Mini", quote.Options[0].Name)
	require.Equal(t, "PAC", quote.Options[1].Name)
	require.Equal(t, "SEDEX", quote.Options[2].Name)
}

func TestBuildQuoteDefaultItemWeight(t *testing.T) {
	m := method("PAC", "10.00", "5.00", 5)
	snap := cart.Snapshot{Items: []cart.Item{
		{ProductID: uuid.New(), UnitPrice: dec("20.00"), Quantity: 2}, // no weight tracked
	}}

	quote, err := BuildQuote([]Method{m}, snap, "01310100", "SP", false, dec("0.3"))
	require.NoError(t, err)
	// 2 items * 0.3kg default = 0.6kg; 10.00 + 5.00*0.6 = 13.00
	require.True(t, quote.WeightKg.Equal(dec("0.6")))
	require.True(t, quote.Options[0].Cost.Equal(dec("13.00")))
}

func TestBuildQuoteFiltersRegionAndInactive(t *testing.T) {
	spOnly := method("Local SP", "5.00", "1.00", 2, "SP")
	nationwide := method("PAC", "10.00", "1.00", 7)
	inactive := method("Desativado", "1.00", "0.00", 1)
	inactive.Active = false

	quote, err := BuildQuote([]Method{spOnly, nationwide, inactive}, weightedSnapshot("1", 1), "20040000", "RJ", false, dec("0.3"))
	require.NoError(t, err)
	require.Len(t, quote.Options, 1)
	require.Equal(t, "PAC", quote.Options[0].Name)
}

func TestBuildQuoteNoCoverage(t *testing.T) {
	spOnly := method("Local SP", "5.00", "1.00", 2, "SP")
	_, err := BuildQuote([]Method{spOnly}, weightedSnapshot("1", 1), "69005000", "AM", false, dec("0.3"))
	require.ErrorIs(t, err, ErrNoCoverage)
}

func TestBuildQuoteEmptyCartChargesBaseOnly(t *testing.T) {
	m := method("PAC", "10.00", "5.00", 5)
	quote, err := BuildQuote([]Method{m}, cart.Snapshot{}, "01310100", "SP", false, dec("0.3"))
	require.NoError(t, err)
	require.True(t, quote.WeightKg.IsZero())
	require.True(t, quote.Options[0].Cost.Equal(dec("10.00")))
}

func TestRegionFromCEP(t *testing.T) {
	cases := map[string]string{
		"01310100": "SP",
		"20040000": "RJ",
		"30110000": "MG",
		"69005000": "AM",
		"90010000": "RS",
	}
	for cep, uf := range cases {
		got, ok := RegionFromCEP(cep)
		require.True(t, ok, cep)
		require.Equal(t, uf, got, cep)
	}
}
