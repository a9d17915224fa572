package contracts

import (
	"math"
	"sort"
	"time"

	"controladoria/internal"
	"controladoria/internal/dates"
	"controladoria/internal/money"
)

const unassignedPartner = "Não informado"

type MonthBucket struct {
	Month             string
	Entries           int
	ClosedProLabore   float64
	ClosedMonthly     float64
	ClosedSuccess     float64
	ProposalProLabore float64
	ProposalMonthly   float64
	ProposalSuccess   float64
}

func (b MonthBucket) ClosedTotal() float64 {
	return b.ClosedProLabore + b.ClosedMonthly + b.ClosedSuccess
}

type Funnel struct {
	Total                     int
	Qualified                 int
	Closed                    int
	LostInAnalysis            int
	LostInNegotiation         int
	ProposalRate              float64
	ClosingRate               float64
	AvgDaysProspectToProposal int
	AvgDaysProposalToContract int
}

type Totals struct {
	ClosedProLabore      float64
	ClosedSuccess        float64
	RecurringMonthly     float64
	NegotiatingProLabore float64
	NegotiatingSuccess   float64
	Signed               int
	Unsigned             int
}

type PartnerCount struct {
	Name     string
	Total    int
	ByStatus map[internal.ContractStatus]int
}

type Report struct {
	Start            time.Time
	Months           []MonthBucket
	StatusCounts     map[internal.ContractStatus]int
	Funnel           Funnel
	Totals           Totals
	Partners         []PartnerCount
	FallbackEntries  int
	MalformedRecords int
	// ClosedDelta is the change in closed value between the last two months, in percent.
	ClosedDelta float64
}

// BuildReport aggregates summaries into monthly buckets from the month of
// start up to the month of now, both inclusive. Entries outside that window
// still count in every other figure.
func BuildReport(summaries []internal.ContractSummary, start, now time.Time) Report {
	if start.IsZero() || start.After(now) {
		start = now
	}
	r := Report{
		Start:        time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location()),
		StatusCounts: map[internal.ContractStatus]int{},
	}
	for _, st := range internal.ContractStatuses {
		r.StatusCounts[st] = 0
	}

	index := map[string]int{}
	last := dates.MonthKey(now.In(start.Location()))
	for m := r.Start; dates.MonthKey(m) <= last; m = m.AddDate(0, 1, 0) {
		index[dates.MonthKey(m)] = len(r.Months)
		r.Months = append(r.Months, MonthBucket{Month: dates.MonthKey(m)})
	}

	partners := map[string]*PartnerCount{}
	daysToProposal, proposals := 0, 0
	daysToContract, closings := 0, 0

	for _, s := range summaries {
		r.StatusCounts[s.Status]++
		if s.EntryFromFallback {
			r.FallbackEntries++
		}
		if len(s.MalformedFields) > 0 {
			r.MalformedRecords++
		}
		if i, ok := index[s.EntryMonth]; ok {
			r.Months[i].Entries++
		}

		name := s.PartnerName
		if name == "" {
			name = unassignedPartner
		}
		p, ok := partners[name]
		if !ok {
			p = &PartnerCount{Name: name, ByStatus: map[internal.ContractStatus]int{}}
			partners[name] = p
		}
		p.Total++
		p.ByStatus[s.Status]++

		switch s.Status {
		case internal.StatusActive:
			r.Totals.ClosedProLabore += s.ProLabore
			r.Totals.ClosedSuccess += s.Success
			r.Totals.RecurringMonthly += s.Monthly
			if s.PhysicalSignature {
				r.Totals.Signed++
			} else {
				r.Totals.Unsigned++
			}
			if i, ok := index[monthOf(s.ContractDate)]; ok {
				r.Months[i].ClosedProLabore += s.ProLabore
				r.Months[i].ClosedMonthly += s.Monthly
				r.Months[i].ClosedSuccess += s.Success
			}
		case internal.StatusProposal:
			r.Totals.NegotiatingProLabore += s.ProLabore + s.Monthly
			r.Totals.NegotiatingSuccess += s.Success
			if i, ok := index[monthOf(s.ProposalDate)]; ok {
				r.Months[i].ProposalProLabore += s.ProLabore
				r.Months[i].ProposalMonthly += s.Monthly
				r.Months[i].ProposalSuccess += s.Success
			}
		}

		r.Funnel.Total++
		switch {
		case s.Status == internal.StatusActive:
			r.Funnel.Qualified++
			r.Funnel.Closed++
		case s.Status == internal.StatusProposal:
			r.Funnel.Qualified++
		case s.Status == internal.StatusRejected && s.ProposalDate != nil:
			r.Funnel.Qualified++
			r.Funnel.LostInNegotiation++
		case s.Status == internal.StatusRejected:
			r.Funnel.LostInAnalysis++
		}

		if d, ok := forwardDays(s.ProspectDate, s.ProposalDate); ok {
			daysToProposal += d
			proposals++
		}
		if d, ok := forwardDays(s.ProposalDate, s.ContractDate); ok {
			daysToContract += d
			closings++
		}
	}

	r.Funnel.ProposalRate = money.Percent(float64(r.Funnel.Qualified), float64(r.Funnel.Total))
	r.Funnel.ClosingRate = money.Percent(float64(r.Funnel.Closed), float64(r.Funnel.Qualified))
	r.Funnel.AvgDaysProspectToProposal = average(daysToProposal, proposals)
	r.Funnel.AvgDaysProposalToContract = average(daysToContract, closings)

	for _, p := range partners {
		r.Partners = append(r.Partners, *p)
	}
	sort.Slice(r.Partners, func(i, j int) bool {
		if r.Partners[i].Total != r.Partners[j].Total {
			return r.Partners[i].Total > r.Partners[j].Total
		}
		return r.Partners[i].Name < r.Partners[j].Name
	})

	if n := len(r.Months); n > 1 {
		r.ClosedDelta = money.Delta(r.Months[n-1].ClosedTotal(), r.Months[n-2].ClosedTotal())
	}

	return r
}

func monthOf(iso *string) string {
	if iso == nil || len(*iso) < 7 {
		return ""
	}
	return (*iso)[:7]
}

func forwardDays(from, to *string) (int, bool) {
	if from == nil || to == nil {
		return 0, false
	}
	a, err := time.Parse(dates.ISOLayout, *from)
	if err != nil {
		return 0, false
	}
	b, err := time.Parse(dates.ISOLayout, *to)
	if err != nil || b.Before(a) {
		return 0, false
	}
	return dates.DaysBetween(a, b), true
}

func average(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
