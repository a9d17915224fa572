package contracts

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"controladoria/internal"
	"controladoria/internal/dates"
	"controladoria/internal/logging"
	"controladoria/internal/money"
)

var listFields = []string{
	"pro_labore_extras",
	"final_success_extras",
	"fixed_monthly_extras",
	"other_fees_extras",
	"intermediate_fees",
	"percent_extras",
	"cases",
}

// Observer is told about every list field that arrived in a shape other
// than a list and was therefore skipped.
type Observer func(contractID, field, kind string)

type Summarizer struct {
	dates    *dates.Normalizer
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
}

type Option func(*Summarizer)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Summarizer) { s.logger = logging.OrNop(logger) }
}

func WithObserver(observer Observer) Option {
	return func(s *Summarizer) { s.observer = observer }
}

func WithClock(now func() time.Time) Option {
	return func(s *Summarizer) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSummarizer(loc *time.Location, opts ...Option) *Summarizer {
	s := &Summarizer{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.dates = dates.NewNormalizer(loc, dates.FallbackPolicy(s.now))
	return s
}

func (s *Summarizer) Location() *time.Location {
	return s.dates.Location()
}

func (s *Summarizer) Summarize(lineNo int, c Contract) internal.ContractSummary {
	id := c.ID()
	out := internal.ContractSummary{
		LineNo:            lineNo,
		ContractID:        id,
		ClientName:        c.ClientName(),
		PartnerName:       c.PartnerName(),
		Status:            c.Status(),
		PhysicalSignature: c.PhysicalSignature(),
	}

	for _, field := range listFields {
		extras := c.ListField(field)
		if extras.IsSequence() || extras.Absent() {
			continue
		}
		out.MalformedFields = append(out.MalformedFields, field)
		s.logger.Warn("skipping malformed list field",
			zap.String("contract", id),
			zap.Int("line", lineNo),
			zap.String("field", field),
			zap.String("kind", extras.Kind()))
		if s.observer != nil {
			s.observer(id, field, extras.Kind())
		}
	}

	proLabore, success, monthly := SumTotals(c)
	out.ProLabore = proLabore.InexactFloat64()
	out.Success = success.InexactFloat64()
	out.Monthly = monthly.InexactFloat64()

	fallback := dates.FromTimestamp(c.Text("created_at"), dates.FallbackPolicy(s.now))
	entry, found := s.dates.EarliestWith(c.StatusDates(), fallback)
	out.EntryDate = entry.In(s.dates.Location())
	out.EntryFromFallback = !found
	out.EntryMonth = dates.MonthKey(out.EntryDate)

	out.ProspectDate = s.isoDate(c.Text("prospect_date"))
	out.ProposalDate = s.isoDate(c.Text("proposal_date"))
	out.ContractDate = s.isoDate(c.Text("contract_date"))
	out.RejectionDate = s.isoDate(c.Text("rejection_date"))
	out.ProbonoDate = s.isoDate(c.Text("probono_date"))

	return out
}

func (s *Summarizer) isoDate(raw string) *string {
	t, ok := s.dates.ParseStatusDate(raw)
	if !ok {
		return nil
	}
	iso := t.Format(dates.ISOLayout)
	return &iso
}

// SumTotals computes the pro-labore, success and monthly values of a contract.
// Other fees count as pro-labore; intermediate fees count as success.
func SumTotals(c Contract) (proLabore, success, monthly decimal.Decimal) {
	proLabore = money.ParseCurrencyDecimal(c.Get("pro_labore")).
		Add(c.ListField("pro_labore_extras").Sum()).
		Add(money.ParseCurrencyDecimal(c.Get("other_fees"))).
		Add(c.ListField("other_fees_extras").Sum())

	success = money.ParseCurrencyDecimal(c.Get("final_success_fee")).
		Add(c.ListField("final_success_extras").Sum()).
		Add(c.ListField("intermediate_fees").Sum())

	monthly = money.ParseCurrencyDecimal(c.Get("fixed_monthly_fee")).
		Add(c.ListField("fixed_monthly_extras").Sum())

	cases, _ := money.MapExtras(c.Get("cases"), func(_ int, entry any) [2]decimal.Decimal {
		item, ok := entry.(map[string]any)
		if !ok {
			return [2]decimal.Decimal{}
		}
		fee := money.ParseCurrencyDecimal(item["final_success_fee"])
		if fee.IsZero() {
			fee = money.ParseCurrencyDecimal(item["success_fee"])
		}
		return [2]decimal.Decimal{money.ParseCurrencyDecimal(item["pro_labore"]), fee}
	})
	for _, pair := range cases {
		proLabore = proLabore.Add(pair[0])
		success = success.Add(pair[1])
	}
	return proLabore, success, monthly
}
