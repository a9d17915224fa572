package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"controladoria/internal/dates"
	"controladoria/internal/money"
)

func newInspectCmd(a *app) *cobra.Command {
	var input, inType string
	var importID int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the normalised records of an import file, or of a stored import, as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if importID != 0 {
				dump, err := inspectStored(a, importID)
				if err != nil {
					return err
				}
				return enc.Encode(dump)
			}
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("--input or --importId is required")
			}
			results, err := normalizeInputs(cmd, a, []string{input}, inType, time.Now().In(a.cfg.Location()))
			if err != nil {
				return err
			}
			res := results[0]
			return enc.Encode(map[string]any{
				"source":       res.Source,
				"records":      len(res.Records),
				"summaries":    res.Summaries,
				"installments": res.Installments,
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "import file path")
	cmd.Flags().StringVar(&inType, "type", "", "json|xlsx|html (default: from extension)")
	cmd.Flags().IntVar(&importID, "importId", 0, "stored import id (reads records and runs from the database)")
	return cmd
}

// inspectStored re-summarises the records kept for an import with the
// current rules.
func inspectStored(a *app, importID int) (map[string]any, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	imp, err := db.MustImportByID(importID)
	if err != nil {
		return nil, err
	}
	records, err := db.ListRecords(importID)
	if err != nil {
		return nil, err
	}
	runs, err := db.ListRuns(importID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"import":    imp,
		"records":   len(records),
		"summaries": a.summarizer().SummarizeRecords(records),
		"runs":      runs,
	}, nil
}

func newDateDisplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date:display <date>...",
		Short: "Render dates as DD/MM/YYYY",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				fmt.Fprintln(cmd.OutOrStdout(), dates.ToDisplay(arg))
			}
			return nil
		},
	}
}

func newDateISOCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date:iso <date>...",
		Short: "Convert DD/MM/YYYY dates to YYYY-MM-DD",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				iso, ok := dates.ToISO(arg)
				if !ok {
					return fmt.Errorf("not a recognised date: %q", arg)
				}
				fmt.Fprintln(cmd.OutOrStdout(), iso)
			}
			return nil
		},
	}
}

func newDateEarliestCmd(a *app) *cobra.Command {
	var fallback string
	cmd := &cobra.Command{
		Use:   "date:earliest <date>...",
		Short: "Pick the earliest valid status date",
		RunE: func(cmd *cobra.Command, args []string) error {
			n := dates.NewNormalizer(a.cfg.Location(), dates.FromTimestamp(fallback, dates.DefaultToCurrentTime))
			t, fromDates := n.Earliest(args)
			from := "status_dates"
			if !fromDates {
				from = "fallback"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s from=%s\n", t.Format(dates.ISOLayout), dates.FormatDisplay(t), from)
			return nil
		},
	}
	cmd.Flags().StringVar(&fallback, "fallback", "", "timestamp used when no date is valid (default: now)")
	return cmd
}

func newMoneySumCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "money:sum <json-list | entry...>",
		Short: "Add up a fee-extras list",
		Long: `Adds up currency entries. A single JSON list, object or string argument is
read as the value itself, so drifted values (objects, strings) can be checked; any
other arguments are read as one entry each.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := sumInput(args)
			extras := money.ClassifyExtras(value)
			if !extras.IsSequence() {
				a.logger.Warn("value is not a list, counted as empty", zap.String("kind", extras.Kind()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s entries=%d kind=%s\n",
				money.FormatBRL(money.SumExtras(value)), extras.Len(), extras.Kind())
			return nil
		},
	}
}

func sumInput(args []string) any {
	if len(args) == 1 && looksLikeJSON(args[0]) {
		dec := json.NewDecoder(bytes.NewReader([]byte(args[0])))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err == nil && !dec.More() {
			return value
		}
	}
	entries := make([]any, 0, len(args))
	for _, arg := range args {
		entries = append(entries, arg)
	}
	return entries
}

func looksLikeJSON(arg string) bool {
	arg = strings.TrimSpace(arg)
	return strings.HasPrefix(arg, "[") || strings.HasPrefix(arg, "{") || strings.HasPrefix(arg, `"`)
}
