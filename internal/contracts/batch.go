package contracts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"controladoria/internal"
)

type FileResult struct {
	Path         string
	Source       internal.ImportSource
	Records      []internal.RawRecord
	Summaries    []internal.ContractSummary
	Installments []internal.Installment
}

func (s *Summarizer) SummarizeRecords(records []internal.RawRecord) []internal.ContractSummary {
	out := make([]internal.ContractSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, s.Summarize(rec.LineNo, FromMap(rec.Fields)))
	}
	return out
}

func InstallmentsForRecords(records []internal.RawRecord, now time.Time) []internal.Installment {
	var out []internal.Installment
	for _, rec := range records {
		out = append(out, GenerateInstallments(FromMap(rec.Fields), now)...)
	}
	return out
}

// NormalizeFiles extracts and summarises several import files with at most
// workers files in flight. Results keep the order of paths; the first
// failure cancels the rest.
func NormalizeFiles(ctx context.Context, s *Summarizer, paths []string, workers int, now time.Time) ([]FileResult, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			source, err := SourceFromPath(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			records, err := ExtractFile(path, source)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = FileResult{
				Path:         path,
				Source:       source,
				Records:      records,
				Summaries:    s.SummarizeRecords(records),
				Installments: InstallmentsForRecords(records, now),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
