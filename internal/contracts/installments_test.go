package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controladoria/internal"
)

func TestGenerateInstallmentsOnlyForActiveContracts(t *testing.T) {
	now := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	for _, status := range []string{"analysis", "proposal", "rejected", "probono", ""} {
		c := FromMap(map[string]any{"id": "c", "status": status, "pro_labore": "R$ 1.000,00"})
		assert.Empty(t, GenerateInstallments(c, now), status)
	}
}

func TestGenerateInstallments(t *testing.T) {
	now := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	c := FromMap(map[string]any{
		"id":                             "c-9",
		"status":                         "active",
		"pro_labore":                     "R$ 1.000,00",
		"pro_labore_installments":        "3x",
		"pro_labore_clause":              "cl. 2",
		"final_success_fee":              "",
		"fixed_monthly_fee":              json.Number("500"),
		"intermediate_fees":              []any{"R$ 100,00", "R$ 0,00", "R$ 90,00"},
		"intermediate_fees_installments": `["2x", "1x", "3x"]`,
		"intermediate_fees_clauses":      []any{"a", "b"},
		"pro_labore_extras":              "R$ 10,00",
	})

	got := GenerateInstallments(c, now)
	require.Len(t, got, 9)

	byType := map[string][]internal.Installment{}
	ids := map[string]bool{}
	for _, it := range got {
		byType[it.Type] = append(byType[it.Type], it)
		assert.Equal(t, "c-9", it.ContractID)
		assert.Equal(t, "pending", it.Status)
		assert.False(t, ids[it.ID], "duplicate id %s", it.ID)
		ids[it.ID] = true
	}

	pl := byType["pro_labore"]
	require.Len(t, pl, 3)
	assert.Equal(t, 333.33, pl[0].Amount)
	assert.Equal(t, []string{"2025-02-28", "2025-03-31", "2025-04-30"}, []string{pl[0].DueDate, pl[1].DueDate, pl[2].DueDate})
	require.NotNil(t, pl[0].Clause)
	assert.Equal(t, "cl. 2", *pl[0].Clause)
	assert.Equal(t, 3, pl[2].InstallmentNumber)
	assert.Equal(t, 3, pl[2].TotalInstallments)

	fixed := byType["fixed"]
	require.Len(t, fixed, 1)
	assert.Equal(t, 500.0, fixed[0].Amount)
	assert.Nil(t, fixed[0].Clause)

	inter := byType["intermediate_fee"]
	require.Len(t, inter, 5)
	assert.Equal(t, 50.0, inter[0].Amount)
	assert.Equal(t, 2, inter[0].TotalInstallments)
	require.NotNil(t, inter[0].Clause)
	assert.Equal(t, "a", *inter[0].Clause)
	assert.Equal(t, 30.0, inter[2].Amount)
	assert.Equal(t, 3, inter[2].TotalInstallments)
	assert.Nil(t, inter[2].Clause)

	assert.Empty(t, byType["final_success_fee"])
}
