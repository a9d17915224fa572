package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"controladoria/internal"
	"controladoria/internal/config"
	"controladoria/internal/contracts"
	"controladoria/internal/storage"
)

const sampleImport = `[{"id":"w-1","status":"active","pro_labore":"R$ 1.000,00","prospect_date":"2025-06-02"}]`

func testConfig(root string) config.Config {
	return config.Config{
		DBPath:            filepath.Join(root, "app.db"),
		ImportDir:         filepath.Join(root, "inbox"),
		RawDir:            filepath.Join(root, "raw"),
		OutputDir:         filepath.Join(root, "out"),
		Timezone:          "UTC",
		ReportStartMonth:  "2025-06",
		WatchIntervalSec:  3600,
		WatchSettleMs:     20,
		WatchProcessBatch: 10,
		WatchAutoExport:   true,
	}
}

func newService(t *testing.T, cfg config.Config) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	proc := contracts.NewProcessingService(db, contracts.NewSummarizer(cfg.Location()), nil)
	return NewService(db, cfg, proc, nil), db
}

func TestFileStoreDedupesByContent(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)
	svc, db := newService(t, cfg)
	defer db.Close()

	require.NoError(t, os.MkdirAll(cfg.ImportDir, 0o755))
	a := filepath.Join(cfg.ImportDir, "a.json")
	b := filepath.Join(cfg.ImportDir, "copy of a.json")
	require.NoError(t, os.WriteFile(a, []byte(sampleImport), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(sampleImport), 0o644))

	first, isNew, err := svc.store.Store(a)
	require.NoError(t, err)
	assert.True(t, isNew)
	second, isNew, err := svc.store.Store(b)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, second.ID)
	assert.FileExists(t, first.RawRef)

	_, _, err = svc.store.Store(filepath.Join(cfg.ImportDir, "notes.txt"))
	assert.Error(t, err)
}

func TestRunCycle(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)
	svc, db := newService(t, cfg)
	defer db.Close()

	require.NoError(t, os.MkdirAll(cfg.ImportDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImportDir, "june.json"), []byte(sampleImport), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImportDir, "broken.json"), []byte(`{oops`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImportDir, "readme.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImportDir, ".hidden.json"), []byte("[]"), 0o644))

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Scanned: 2, Stored: 2, Processed: 1, Exported: 1}, res)

	exported, err := db.ListImportsByStatus(internal.ImportExported, 10)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	out := ExportPath(cfg.OutputDir, exported[0])
	assert.FileExists(t, out)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "watch", fmt.Sprintf("%d_june.xlsx", exported[0].ID)), out)

	last, err := db.GetMetadata("last_export")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, out, *last)

	failed, err := db.ListImportsByStatus(internal.ImportFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "broken.json", failed[0].Name)

	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Scanned: 2}, res)
}

func TestRunPicksUpNewFilesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	cfg := testConfig(root)
	svc, db := newService(t, cfg)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.ImportDir)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ImportDir, "live.json"), []byte(sampleImport), 0o644))

	require.Eventually(t, func() bool {
		rows, err := db.ListImportsByStatus(internal.ImportExported, 10)
		return err == nil && len(rows) == 1
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "contratos_jun_2025", sanitizeName("contratos jun 2025"))
	assert.Equal(t, "a_b_c", sanitizeName("a/b:c"))
}
