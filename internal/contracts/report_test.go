package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controladoria/internal"
)

func iso(v string) *string { return &v }

func TestBuildReport(t *testing.T) {
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.August, 20, 15, 0, 0, 0, time.UTC)

	summaries := []internal.ContractSummary{
		{
			Status: internal.StatusActive, PartnerName: "Ana", EntryMonth: "2025-06",
			ProspectDate: iso("2025-06-01"), ProposalDate: iso("2025-06-20"), ContractDate: iso("2025-07-10"),
			ProLabore: 1000, Success: 500, Monthly: 100, PhysicalSignature: true,
		},
		{
			Status: internal.StatusProposal, PartnerName: "Ana", EntryMonth: "2025-07",
			ProspectDate: iso("2025-07-01"), ProposalDate: iso("2025-07-05"),
			ProLabore: 300, Monthly: 50,
		},
		{Status: internal.StatusRejected, EntryMonth: "2025-08", ProposalDate: iso("2025-08-01")},
		{Status: internal.StatusRejected, PartnerName: "Bruno", EntryMonth: "2025-05", EntryFromFallback: true},
		{Status: internal.StatusAnalysis, PartnerName: "Bruno", EntryMonth: "2025-08", MalformedFields: []string{"cases"}},
	}

	r := BuildReport(summaries, start, now)

	require.Len(t, r.Months, 3)
	assert.Equal(t, []string{"2025-06", "2025-07", "2025-08"}, []string{r.Months[0].Month, r.Months[1].Month, r.Months[2].Month})
	assert.Equal(t, []int{1, 1, 2}, []int{r.Months[0].Entries, r.Months[1].Entries, r.Months[2].Entries})
	assert.Equal(t, 1000.0, r.Months[1].ClosedProLabore)
	assert.Equal(t, 100.0, r.Months[1].ClosedMonthly)
	assert.Equal(t, 500.0, r.Months[1].ClosedSuccess)
	assert.Equal(t, 300.0, r.Months[1].ProposalProLabore)
	assert.Equal(t, -100.0, r.ClosedDelta)

	assert.Equal(t, map[internal.ContractStatus]int{
		internal.StatusAnalysis: 1,
		internal.StatusProposal: 1,
		internal.StatusActive:   1,
		internal.StatusRejected: 2,
		internal.StatusProbono:  0,
	}, r.StatusCounts)

	assert.Equal(t, 5, r.Funnel.Total)
	assert.Equal(t, 3, r.Funnel.Qualified)
	assert.Equal(t, 1, r.Funnel.Closed)
	assert.Equal(t, 1, r.Funnel.LostInNegotiation)
	assert.Equal(t, 1, r.Funnel.LostInAnalysis)
	assert.InDelta(t, 60.0, r.Funnel.ProposalRate, 1e-9)
	assert.InDelta(t, 33.33, r.Funnel.ClosingRate, 0.01)
	assert.Equal(t, 12, r.Funnel.AvgDaysProspectToProposal)
	assert.Equal(t, 20, r.Funnel.AvgDaysProposalToContract)

	assert.Equal(t, 1000.0, r.Totals.ClosedProLabore)
	assert.Equal(t, 500.0, r.Totals.ClosedSuccess)
	assert.Equal(t, 100.0, r.Totals.RecurringMonthly)
	assert.Equal(t, 350.0, r.Totals.NegotiatingProLabore)
	assert.Equal(t, 1, r.Totals.Signed)
	assert.Equal(t, 0, r.Totals.Unsigned)

	require.Len(t, r.Partners, 3)
	assert.Equal(t, "Ana", r.Partners[0].Name)
	assert.Equal(t, "Bruno", r.Partners[1].Name)
	assert.Equal(t, unassignedPartner, r.Partners[2].Name)
	assert.Equal(t, 1, r.Partners[1].ByStatus[internal.StatusAnalysis])

	assert.Equal(t, 1, r.FallbackEntries)
	assert.Equal(t, 1, r.MalformedRecords)
}

func TestBuildReportEmpty(t *testing.T) {
	now := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	r := BuildReport(nil, time.Time{}, now)
	require.Len(t, r.Months, 1)
	assert.Equal(t, "2025-06", r.Months[0].Month)
	assert.Equal(t, 0, r.Funnel.Total)
	assert.Equal(t, 0.0, r.Funnel.ProposalRate)
	assert.Equal(t, 0, r.Funnel.AvgDaysProposalToContract)
}
