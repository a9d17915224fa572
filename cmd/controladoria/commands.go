package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"controladoria/internal"
	"controladoria/internal/contracts"
	"controladoria/internal/watcher"
)

func newImportCmd(a *app) *cobra.Command {
	var input, inType string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store an import file for later processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("--input is required")
			}
			source, err := resolveSource(input, inType)
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			row, isNew, err := watcher.NewFileStore(db, a.cfg.RawDir).StoreAs(input, source)
			if err != nil {
				return err
			}
			state := "stored"
			if !isNew {
				state = "already known"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "import %s id=%d status=%s\n", state, row.ID, row.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "import file path")
	cmd.Flags().StringVar(&inType, "type", "", "json|xlsx|html (default: from extension)")
	return cmd
}

func newProcessCmd(a *app) *cobra.Command {
	var batch, importID int
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Normalise stored imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			processor := contracts.NewProcessingService(db, a.summarizer(), a.logger)
			if importID != 0 {
				res, err := processor.ProcessByID(importID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed import id=%d records=%d installments=%d malformed=%d\n",
					res.ImportID, res.Records, res.Installments, res.Malformed)
				return nil
			}
			imports, records, err := processor.ProcessPending(batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed pending imports=%d records=%d\n", imports, records)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 20, "batch size")
	cmd.Flags().IntVar(&importID, "importId", 0, "specific import id")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var importID int
	var out string
	cmd := &cobra.Command{
		Use:   "export:xlsx",
		Short: "Write the contracts, installments and report sheets for an import",
		RunE: func(cmd *cobra.Command, args []string) error {
			if importID == 0 || strings.TrimSpace(out) == "" {
				return fmt.Errorf("--importId and --out are required")
			}
			start, err := a.cfg.ReportStart()
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.GetExportRows(importID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no export rows for importId=%d", importID)
			}
			installments, err := db.GetExportInstallments(importID)
			if err != nil {
				return err
			}
			report := contracts.BuildReport(rows, start, time.Now().In(a.cfg.Location()))
			if err := contracts.ExportToXLSX(rows, installments, report, out); err != nil {
				return err
			}
			if err := db.UpdateImportStatus(importID, internal.ImportExported); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&importID, "importId", 0, "internal import id")
	cmd.Flags().StringVar(&out, "out", "", "output xlsx path")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var inputs []string
	var inType, output string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalise import files and export them in one go, without the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(inputs) == 0 || strings.TrimSpace(output) == "" {
				return fmt.Errorf("--input and --output are required")
			}
			start, err := a.cfg.ReportStart()
			if err != nil {
				return err
			}
			now := time.Now().In(a.cfg.Location())

			results, err := normalizeInputs(cmd, a, inputs, inType, now)
			if err != nil {
				return err
			}
			var rows []internal.ContractSummary
			var installments []internal.Installment
			for _, res := range results {
				rows = append(rows, res.Summaries...)
				installments = append(installments, res.Installments...)
			}
			report := contracts.BuildReport(rows, start, now)
			if err := contracts.ExportToXLSX(rows, installments, report, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run done files=%d rows=%d installments=%d output=%s\n",
				len(results), len(rows), len(installments), output)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "import file path (repeatable)")
	cmd.Flags().StringVar(&inType, "type", "", "json|xlsx|html (default: from extension)")
	cmd.Flags().StringVar(&output, "output", "", "output xlsx path")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the import directory and process new files as they land",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			processor := contracts.NewProcessingService(db, a.summarizer(), a.logger)
			a.logger.Info("watching import dir", zap.String("dir", a.cfg.ImportDir))
			return watcher.NewService(db, a.cfg, processor, a.logger).Run(cmd.Context())
		},
	}
}

// normalizeInputs fans out over the inputs when their types come from the
// extension; an explicit --type applies to every input.
func normalizeInputs(cmd *cobra.Command, a *app, inputs []string, inType string, now time.Time) ([]contracts.FileResult, error) {
	s := a.summarizer()
	if strings.TrimSpace(inType) == "" {
		return contracts.NormalizeFiles(cmd.Context(), s, inputs, a.cfg.WatchWorkers, now)
	}
	source, err := contracts.ParseSource(inType)
	if err != nil {
		return nil, err
	}
	results := make([]contracts.FileResult, 0, len(inputs))
	for _, path := range inputs {
		records, err := contracts.ExtractFile(path, source)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, contracts.FileResult{
			Path:         path,
			Source:       source,
			Records:      records,
			Summaries:    s.SummarizeRecords(records),
			Installments: contracts.InstallmentsForRecords(records, now),
		})
	}
	return results, nil
}

func resolveSource(path, inType string) (internal.ImportSource, error) {
	if strings.TrimSpace(inType) != "" {
		return contracts.ParseSource(inType)
	}
	return contracts.SourceFromPath(path)
}
