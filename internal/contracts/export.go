package contracts

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"controladoria/internal"
	"controladoria/internal/dates"
	"controladoria/internal/money"
)

const (
	SheetContracts    = "contracts"
	SheetInstallments = "installments"
	SheetReport       = "report"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
}

func (w sheetWriter) set(col, row int, value any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = w.f.SetCellValue(w.sheet, cell, value)
}

func (w sheetWriter) row(row int, values ...any) {
	for i, v := range values {
		w.set(i+1, row, v)
	}
}

func ExportToXLSX(rows []internal.ContractSummary, installments []internal.Installment, report Report, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetContracts); err != nil {
		return err
	}
	for _, name := range []string{SheetInstallments, SheetReport} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	writeContracts(sheetWriter{f: f, sheet: SheetContracts}, rows)
	writeInstallments(sheetWriter{f: f, sheet: SheetInstallments}, installments)
	writeReport(sheetWriter{f: f, sheet: SheetReport}, report)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeContracts(w sheetWriter, rows []internal.ContractSummary) {
	w.row(1,
		"line_no", "contract_id", "client_name", "partner_name", "status",
		"pro_labore", "success", "monthly", "total",
		"entry_date", "entry_month", "entry_from_fallback",
		"prospect_date", "proposal_date", "contract_date", "rejection_date", "probono_date",
		"physical_signature", "malformed_fields",
	)
	for i, s := range rows {
		w.row(i+2,
			s.LineNo, s.ContractID, s.ClientName, s.PartnerName, string(s.Status),
			s.ProLabore, s.Success, s.Monthly, s.ProLabore+s.Success+s.Monthly,
			dates.FormatDisplay(s.EntryDate), s.EntryMonth, s.EntryFromFallback,
			dates.ToDisplayPtr(s.ProspectDate), dates.ToDisplayPtr(s.ProposalDate), dates.ToDisplayPtr(s.ContractDate),
			dates.ToDisplayPtr(s.RejectionDate), dates.ToDisplayPtr(s.ProbonoDate),
			s.PhysicalSignature, strings.Join(s.MalformedFields, ", "),
		)
	}
}

func writeInstallments(w sheetWriter, items []internal.Installment) {
	w.row(1, "contract_id", "type", "installment_number", "total_installments", "amount", "due_date", "clause", "status")
	for i, it := range items {
		w.row(i+2,
			it.ContractID, it.Type, it.InstallmentNumber, it.TotalInstallments, it.Amount,
			dates.ToDisplay(it.DueDate), derefString(it.Clause), it.Status,
		)
	}
}

func writeReport(w sheetWriter, r Report) {
	row := 1
	w.row(row, "month", "entries", "closed_pro_labore", "closed_monthly", "closed_success", "proposal_pro_labore", "proposal_monthly", "proposal_success")
	for _, m := range r.Months {
		row++
		w.row(row, m.Month, m.Entries, m.ClosedProLabore, m.ClosedMonthly, m.ClosedSuccess, m.ProposalProLabore, m.ProposalMonthly, m.ProposalSuccess)
	}

	row += 2
	w.row(row, "status", "count")
	for _, st := range internal.ContractStatuses {
		row++
		w.row(row, string(st), r.StatusCounts[st])
	}

	row += 2
	w.row(row, "funnel", "value")
	for _, kv := range [][2]any{
		{"total", r.Funnel.Total},
		{"qualified", r.Funnel.Qualified},
		{"closed", r.Funnel.Closed},
		{"lost_in_analysis", r.Funnel.LostInAnalysis},
		{"lost_in_negotiation", r.Funnel.LostInNegotiation},
		{"proposal_rate_pct", r.Funnel.ProposalRate},
		{"closing_rate_pct", r.Funnel.ClosingRate},
		{"avg_days_prospect_to_proposal", r.Funnel.AvgDaysProspectToProposal},
		{"avg_days_proposal_to_contract", r.Funnel.AvgDaysProposalToContract},
		{"fallback_entry_dates", r.FallbackEntries},
		{"records_with_malformed_fields", r.MalformedRecords},
		{"closed_delta_pct", r.ClosedDelta},
	} {
		row++
		w.row(row, kv[0], kv[1])
	}

	row += 2
	w.row(row, "totals", "value", "formatted", "compact")
	for _, kv := range []struct {
		name  string
		value float64
	}{
		{"closed_pro_labore", r.Totals.ClosedProLabore},
		{"closed_success", r.Totals.ClosedSuccess},
		{"recurring_monthly", r.Totals.RecurringMonthly},
		{"negotiating_pro_labore", r.Totals.NegotiatingProLabore},
		{"negotiating_success", r.Totals.NegotiatingSuccess},
	} {
		row++
		w.row(row, kv.name, kv.value, money.FormatBRL(kv.value), money.FormatCompact(kv.value))
	}
	row++
	w.row(row, "signed", r.Totals.Signed)
	row++
	w.row(row, "unsigned", r.Totals.Unsigned)

	row += 2
	header := []any{"partner", "total"}
	for _, st := range internal.ContractStatuses {
		header = append(header, string(st))
	}
	w.row(row, header...)
	for _, p := range r.Partners {
		row++
		values := []any{p.Name, p.Total}
		for _, st := range internal.ContractStatuses {
			values = append(values, p.ByStatus[st])
		}
		w.row(row, values...)
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
