package contracts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"controladoria/internal"
	"controladoria/internal/dates"
	"controladoria/internal/money"
)

const installmentPending = "pending"

type feeSchedule struct {
	field        string
	installments string
	clause       string
	kind         string
}

var mainFees = []feeSchedule{
	{field: "pro_labore", installments: "pro_labore_installments", clause: "pro_labore_clause", kind: "pro_labore"},
	{field: "final_success_fee", installments: "final_success_fee_installments", clause: "final_success_fee_clause", kind: "final_success_fee"},
	{field: "fixed_monthly_fee", installments: "fixed_monthly_fee_installments", clause: "fixed_monthly_fee_clause", kind: "fixed"},
	{field: "other_fees", installments: "other_fees_installments", clause: "other_fees_clause", kind: "other"},
}

var extraFees = []feeSchedule{
	{field: "intermediate_fees", installments: "intermediate_fees_installments", clause: "intermediate_fees_clauses", kind: "intermediate_fee"},
	{field: "pro_labore_extras", installments: "pro_labore_extras_installments", clause: "pro_labore_extras_clauses", kind: "pro_labore"},
}

// GenerateInstallments builds the pending receivables schedule of an active
// contract. Each fee is split into equal amounts rounded to cents, due one
// month apart starting a month after now. Other statuses get nothing.
func GenerateInstallments(c Contract, now time.Time) []internal.Installment {
	if c.Status() != internal.StatusActive {
		return nil
	}

	id := c.ID()
	var out []internal.Installment
	for _, fee := range mainFees {
		out = appendSchedule(out, id, fee.kind, money.ParseCurrencyDecimal(c.Get(fee.field)), money.InstallmentCount(c.Get(fee.installments)), c.Text(fee.clause), now)
	}

	for _, fee := range extraFees {
		clauses := money.EnsureStrings(c.Get(fee.clause))
		counts := money.EnsureArray(c.Get(fee.installments))
		parts, _ := money.MapExtras(c.Get(fee.field), func(i int, entry any) []internal.Installment {
			var count any
			if i < len(counts) {
				count = counts[i]
			}
			clause := ""
			if i < len(clauses) {
				clause = clauses[i]
			}
			return appendSchedule(nil, id, fee.kind, money.ParseCurrencyDecimal(entry), money.InstallmentCount(count), clause, now)
		})
		for _, p := range parts {
			out = append(out, p...)
		}
	}

	return out
}

func appendSchedule(out []internal.Installment, contractID, kind string, total decimal.Decimal, count int, clause string, now time.Time) []internal.Installment {
	if !total.IsPositive() {
		return out
	}
	amount := money.SplitEvenly(total, count).InexactFloat64()
	var clausePtr *string
	if c := strings.TrimSpace(clause); c != "" {
		clausePtr = &c
	}
	for i := 1; i <= count; i++ {
		out = append(out, internal.Installment{
			ID:                uuid.NewString(),
			ContractID:        contractID,
			Type:              kind,
			InstallmentNumber: i,
			TotalInstallments: count,
			Amount:            amount,
			DueDate:           dates.AddMonths(now, i).Format(dates.ISOLayout),
			Clause:            clausePtr,
			Status:            installmentPending,
		})
	}
	return out
}
