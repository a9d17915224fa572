package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controladoria/internal"
)

var brt = time.FixedZone("BRT", -3*60*60)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSummarizeTotals(t *testing.T) {
	c := FromMap(map[string]any{
		"id":                   "c-1",
		"status":               "Active",
		"client_name":          "Acme Ltda",
		"responsavel_socio":    "Ana",
		"pro_labore":           "R$ 1.000,00",
		"pro_labore_extras":    []any{"R$ 500,50"},
		"other_fees":           json.Number("200"),
		"other_fees_extras":    []any{"R$ 10,00"},
		"final_success_fee":    "R$ 5.000,00",
		"final_success_extras": []any{"R$ 1.000,00"},
		"intermediate_fees":    []any{"R$ 250,00", "R$ 250,00"},
		"fixed_monthly_fee":    "R$ 3.000,00",
		"fixed_monthly_extras": []any{"R$ 100,00"},
		"physical_signature":   true,
		"cases": []any{
			map[string]any{"pro_labore": "R$ 50,00", "success_fee": "R$ 70,00"},
			map[string]any{"final_success_fee": "R$ 30,00", "success_fee": "R$ 999,00"},
			"junk",
		},
	})

	s := NewSummarizer(brt).Summarize(7, c)

	assert.Equal(t, 7, s.LineNo)
	assert.Equal(t, "c-1", s.ContractID)
	assert.Equal(t, "Ana", s.PartnerName)
	assert.Equal(t, internal.StatusActive, s.Status)
	assert.Equal(t, 1760.5, s.ProLabore)
	assert.Equal(t, 6600.0, s.Success)
	assert.Equal(t, 3100.0, s.Monthly)
	assert.True(t, s.PhysicalSignature)
	assert.Empty(t, s.MalformedFields)
}

func TestSummarizeSkipsMalformedLists(t *testing.T) {
	type seen struct{ field, kind string }
	var observed []seen

	c := FromMap(map[string]any{
		"id":                   "c-2",
		"pro_labore":           "R$ 100,00",
		"pro_labore_extras":    "R$ 500,00",
		"final_success_extras": "",
		"intermediate_fees":    nil,
		"cases":                map[string]any{"pro_labore": "R$ 1,00"},
	})

	s := NewSummarizer(brt, WithObserver(func(_, field, kind string) {
		observed = append(observed, seen{field, kind})
	})).Summarize(1, c)

	assert.Equal(t, 100.0, s.ProLabore)
	assert.Equal(t, 0.0, s.Success)
	assert.Equal(t, []string{"pro_labore_extras", "cases"}, s.MalformedFields)
	assert.Equal(t, []seen{{"pro_labore_extras", "string"}, {"cases", "object"}}, observed)
}

func TestSummarizeEntryDate(t *testing.T) {
	now := time.Date(2026, time.January, 15, 9, 0, 0, 0, brt)
	summarizer := NewSummarizer(brt, WithClock(fixedClock(now)))

	t.Run("earliest status date", func(t *testing.T) {
		s := summarizer.Summarize(1, FromMap(map[string]any{
			"prospect_date": "2025-06-10",
			"proposal_date": "05/06/2025",
			"contract_date": "invalid-date",
			"created_at":    "2020-01-01T00:00:00Z",
		}))
		assert.False(t, s.EntryFromFallback)
		assert.Equal(t, "2025-06-05", s.EntryDate.Format("2006-01-02"))
		assert.Equal(t, 12, s.EntryDate.Hour())
		assert.Equal(t, "2025-06", s.EntryMonth)
		require.NotNil(t, s.ProposalDate)
		assert.Equal(t, "2025-06-05", *s.ProposalDate)
		require.NotNil(t, s.ProspectDate)
		assert.Equal(t, "2025-06-10", *s.ProspectDate)
		assert.Nil(t, s.ContractDate)
	})

	t.Run("created_at fallback", func(t *testing.T) {
		s := summarizer.Summarize(1, FromMap(map[string]any{
			"prospect_date": "",
			"created_at":    "2025-03-02T10:00:00+00:00",
		}))
		assert.True(t, s.EntryFromFallback)
		assert.Equal(t, "2025-03-02", s.EntryDate.Format("2006-01-02"))
		assert.Equal(t, "2025-03", s.EntryMonth)
	})

	t.Run("clock fallback", func(t *testing.T) {
		s := summarizer.Summarize(1, FromMap(map[string]any{"created_at": "ontem"}))
		assert.True(t, s.EntryFromFallback)
		assert.True(t, s.EntryDate.Equal(now))
		assert.Equal(t, "2026-01", s.EntryMonth)
	})
}

func TestContractAccessors(t *testing.T) {
	c := FromMap(map[string]any{"seq_id": json.Number("42"), "physical_signature": "Sim"})
	assert.Equal(t, "42", c.ID())
	assert.True(t, c.PhysicalSignature())

	empty := FromMap(nil)
	assert.Equal(t, "", empty.ID())
	assert.False(t, empty.PhysicalSignature())
	assert.Equal(t, []string{"", "", "", "", ""}, empty.StatusDates())
}
