package contracts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"controladoria/internal"
	"controladoria/internal/logging"
	"controladoria/internal/storage"
)

type ProcessingService struct {
	db         *storage.DB
	summarizer *Summarizer
	logger     *zap.Logger
	now        func() time.Time
}

func NewProcessingService(db *storage.DB, summarizer *Summarizer, logger *zap.Logger) *ProcessingService {
	return &ProcessingService{db: db, summarizer: summarizer, logger: logging.OrNop(logger), now: summarizer.now}
}

type ProcessResult struct {
	ImportID     int
	TraceID      string
	Records      int
	Installments int
	Malformed    int
}

func (s *ProcessingService) ProcessByID(importID int) (ProcessResult, error) {
	imp, err := s.db.MustImportByID(importID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessImport(imp)
}

// ProcessPending works through stored imports. A file that fails is marked
// failed and the batch moves on; only storage errors stop it.
func (s *ProcessingService) ProcessPending(limit int) (int, int, error) {
	pending, err := s.db.ListImportsByStatus(internal.ImportStored, limit)
	if err != nil {
		return 0, 0, err
	}
	processedImports := 0
	processedRecords := 0
	for _, imp := range pending {
		res, err := s.ProcessImport(imp)
		if err != nil {
			s.logger.Error("import failed", zap.Int("import", imp.ID), zap.String("name", imp.Name), zap.Error(err))
			if markErr := s.db.MarkImportFailed(imp.ID, err.Error()); markErr != nil {
				return processedImports, processedRecords, markErr
			}
			continue
		}
		processedImports++
		processedRecords += res.Records
	}
	return processedImports, processedRecords, nil
}

func (s *ProcessingService) ProcessImport(imp internal.ImportRow) (ProcessResult, error) {
	start := time.Now()
	traceID := uuid.NewString()
	log := s.logger.With(zap.String("trace", traceID), zap.Int("import", imp.ID))

	records, err := ExtractFile(imp.RawRef, internal.ImportSource(imp.Source))
	if err != nil {
		return ProcessResult{}, err
	}
	extractMs := msSince(start)

	if err := s.db.ClearImportProcessing(imp.ID); err != nil {
		return ProcessResult{}, fmt.Errorf("clear import %d: %w", imp.ID, err)
	}

	now := s.now()
	malformed := 0
	installments := 0
	statusCounts := map[internal.ContractStatus]int{}
	for _, rec := range records {
		recordID, err := s.db.InsertRecord(imp.ID, rec)
		if err != nil {
			return ProcessResult{}, fmt.Errorf("insert record %d: %w", rec.LineNo, err)
		}
		contract := FromMap(rec.Fields)
		summary := s.summarizer.Summarize(rec.LineNo, contract)
		if err := s.db.InsertSummary(imp.ID, recordID, summary); err != nil {
			return ProcessResult{}, fmt.Errorf("insert summary %d: %w", rec.LineNo, err)
		}
		schedule := GenerateInstallments(contract, now)
		if err := s.db.InsertInstallments(imp.ID, schedule); err != nil {
			return ProcessResult{}, fmt.Errorf("insert installments %d: %w", rec.LineNo, err)
		}
		malformed += len(summary.MalformedFields)
		installments += len(schedule)
		statusCounts[summary.Status]++
	}

	if err := s.db.UpdateImportStatus(imp.ID, internal.ImportProcessed); err != nil {
		return ProcessResult{}, err
	}

	counts := map[string]int{
		"records":      len(records),
		"installments": installments,
		"malformed":    malformed,
	}
	for status, n := range statusCounts {
		counts[string(status)] = n
	}
	timings := map[string]float64{"extractMs": extractMs, "totalMs": msSince(start)}
	if err := s.db.InsertRun(traceID, imp.ID, timings, counts); err != nil {
		log.Warn("failed to record run", zap.Error(err))
	}

	log.Info("import processed",
		zap.String("name", imp.Name),
		zap.Int("records", len(records)),
		zap.Int("installments", installments),
		zap.Int("malformed", malformed))

	return ProcessResult{ImportID: imp.ID, TraceID: traceID, Records: len(records), Installments: installments, Malformed: malformed}, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
