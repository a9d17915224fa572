package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"controladoria/internal"
	"controladoria/internal/config"
	"controladoria/internal/contracts"
	"controladoria/internal/logging"
	"controladoria/internal/storage"
)

type Service struct {
	db        *storage.DB
	cfg       config.Config
	store     *FileStore
	processor *contracts.ProcessingService
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(db *storage.DB, cfg config.Config, processor *contracts.ProcessingService, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		store:     NewFileStore(db, cfg.RawDir),
		processor: processor,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

type CycleResult struct {
	Scanned   int
	Stored    int
	Processed int
	Exported  int
}

// Run processes the import directory once at start, then again whenever
// files change there (after WatchSettleMs of quiet) and every
// WatchIntervalSec. It returns nil once ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.ImportDir, 0o755); err != nil {
		return err
	}

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("file notifications unavailable, polling only", zap.Error(err))
	} else {
		defer w.Close()
		if err := w.Add(s.cfg.ImportDir); err != nil {
			s.logger.Warn("cannot watch import dir, polling only", zap.String("dir", s.cfg.ImportDir), zap.Error(err))
		} else {
			events, watchErrors = w.Events, w.Errors
		}
	}

	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	settle := time.Duration(s.cfg.WatchSettleMs) * time.Millisecond
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var debounce *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !isImportCandidate(filepath.Base(ev.Name)) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(settle)
			} else {
				debounce.Reset(settle)
			}
			debounceC = debounce.C
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			s.logger.Warn("watch error", zap.Error(err))
		case <-debounceC:
			debounceC = nil
			s.cycle(ctx)
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunCycle(ctx); err != nil {
		s.logger.Error("watch cycle error", zap.Error(err))
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	entries, err := os.ReadDir(s.cfg.ImportDir)
	if err != nil {
		return res, err
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if entry.IsDir() || !isImportCandidate(entry.Name()) {
			continue
		}
		res.Scanned++
		_, isNew, err := s.store.Store(filepath.Join(s.cfg.ImportDir, entry.Name()))
		if err != nil {
			s.logger.Warn("cannot store import file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if isNew {
			res.Stored++
		}
	}

	processed, _, err := s.processor.ProcessPending(s.cfg.WatchProcessBatch)
	if err != nil {
		return res, err
	}
	res.Processed = processed

	if s.cfg.WatchAutoExport {
		exported, err := s.exportProcessed()
		if err != nil {
			return res, err
		}
		res.Exported = exported
	}

	s.logger.Info("watch cycle done",
		zap.Int("scanned", res.Scanned),
		zap.Int("stored", res.Stored),
		zap.Int("processed", res.Processed),
		zap.Int("exported", res.Exported))
	return res, nil
}

func (s *Service) exportProcessed() (int, error) {
	imports, err := s.db.ListImportsByStatus(internal.ImportProcessed, 200)
	if err != nil {
		return 0, err
	}

	start, err := s.cfg.ReportStart()
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, imp := range imports {
		rows, err := s.db.GetExportRows(imp.ID)
		if err != nil {
			return exported, err
		}
		if len(rows) == 0 {
			continue
		}
		installments, err := s.db.GetExportInstallments(imp.ID)
		if err != nil {
			return exported, err
		}
		report := contracts.BuildReport(rows, start, s.now())

		outputPath := ExportPath(s.cfg.OutputDir, imp)
		if err := contracts.ExportToXLSX(rows, installments, report, outputPath); err != nil {
			return exported, err
		}
		if err := s.db.UpdateImportStatus(imp.ID, internal.ImportExported); err != nil {
			return exported, err
		}
		_ = s.db.SetMetadata("last_export", outputPath)
		exported++
	}
	return exported, nil
}

func ExportPath(outputDir string, imp internal.ImportRow) string {
	name := strings.TrimSuffix(imp.Name, filepath.Ext(imp.Name))
	return filepath.Join(outputDir, "watch", fmt.Sprintf("%d_%s.xlsx", imp.ID, sanitizeName(name)))
}

func sanitizeName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
