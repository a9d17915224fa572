package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controladoria/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strp(v string) *string { return &v }

func TestUpsertImportKeepsIdentityAndStatus(t *testing.T) {
	db := openTestDB(t)

	first, err := db.UpsertImport("contracts.json", "json", "abc", "/raw/abc.json", internal.ImportStored)
	require.NoError(t, err)
	require.NoError(t, db.UpdateImportStatus(first.ID, internal.ImportProcessed))

	again, err := db.UpsertImport("renamed.json", "json", "abc", "/raw/abc.json", internal.ImportStored)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "renamed.json", again.Name)
	assert.Equal(t, internal.ImportProcessed, again.Status)

	missing, err := db.GetImportByHash("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = db.MustImportByID(999)
	assert.EqualError(t, err, "import not found: id=999")
}

func TestListImportsByStatusAndFailure(t *testing.T) {
	db := openTestDB(t)

	a, err := db.UpsertImport("a.json", "json", "h1", "/raw/h1.json", internal.ImportStored)
	require.NoError(t, err)
	b, err := db.UpsertImport("b.xlsx", "xlsx", "h2", "/raw/h2.xlsx", internal.ImportStored)
	require.NoError(t, err)

	require.NoError(t, db.MarkImportFailed(a.ID, "broken json"))

	stored, err := db.ListImportsByStatus(internal.ImportStored, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)

	failed, err := db.MustImportByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.ImportFailed, failed.Status)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "broken json", *failed.LastError)

	require.NoError(t, db.UpdateImportStatus(a.ID, internal.ImportStored))
	retried, err := db.MustImportByID(a.ID)
	require.NoError(t, err)
	assert.Nil(t, retried.LastError)
}

func TestRecordsSummariesAndInstallments(t *testing.T) {
	db := openTestDB(t)
	imp, err := db.UpsertImport("c.json", "json", "h", "/raw/h.json", internal.ImportStored)
	require.NoError(t, err)

	recID, err := db.InsertRecord(imp.ID, internal.RawRecord{
		LineNo:  1,
		Source:  internal.SourceJSON,
		RawJSON: `{"id":"c-1","pro_labore":1500.5,"pro_labore_extras":"R$ 10,00"}`,
	})
	require.NoError(t, err)

	records, err := db.ListRecords(imp.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, json.Number("1500.5"), records[0].Fields["pro_labore"])
	assert.Equal(t, "R$ 10,00", records[0].Fields["pro_labore_extras"])

	entry := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	require.NoError(t, db.InsertSummary(imp.ID, recID, internal.ContractSummary{
		LineNo:          1,
		ContractID:      "c-1",
		ClientName:      "Acme",
		Status:          internal.StatusActive,
		ProLabore:       1500.5,
		EntryDate:       entry,
		EntryMonth:      "2025-06",
		ProspectDate:    strp("2025-06-03"),
		MalformedFields: []string{"pro_labore_extras"},
	}))

	rows, err := db.GetExportRows(imp.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, internal.StatusActive, rows[0].Status)
	assert.True(t, rows[0].EntryDate.Equal(entry))
	assert.Equal(t, []string{"pro_labore_extras"}, rows[0].MalformedFields)
	require.NotNil(t, rows[0].ProspectDate)
	assert.Nil(t, rows[0].ContractDate)

	require.NoError(t, db.InsertInstallments(imp.ID, []internal.Installment{
		{ID: "i-2", ContractID: "c-1", Type: "pro_labore", InstallmentNumber: 2, TotalInstallments: 2, Amount: 750.25, DueDate: "2025-08-03", Status: "pending"},
		{ID: "i-1", ContractID: "c-1", Type: "pro_labore", InstallmentNumber: 1, TotalInstallments: 2, Amount: 750.25, DueDate: "2025-07-03", Status: "pending"},
	}))
	installments, err := db.GetExportInstallments(imp.ID)
	require.NoError(t, err)
	require.Len(t, installments, 2)
	assert.Equal(t, 1, installments[0].InstallmentNumber)

	require.NoError(t, db.ClearImportProcessing(imp.ID))
	rows, err = db.GetExportRows(imp.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	records, err = db.ListRecords(imp.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunsAndMetadata(t *testing.T) {
	db := openTestDB(t)
	imp, err := db.UpsertImport("c.json", "json", "h", "/raw/h.json", internal.ImportStored)
	require.NoError(t, err)

	require.NoError(t, db.InsertRun("trace-1", imp.ID, map[string]float64{"totalMs": 12}, map[string]int{"records": 3}))
	runs, err := db.ListRuns(imp.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "trace-1", runs[0].TraceID)
	assert.Equal(t, 3, runs[0].Counts["records"])

	value, err := db.GetMetadata("last_export")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.SetMetadata("last_export", "a"))
	require.NoError(t, db.SetMetadata("last_export", "b"))
	value, err = db.GetMetadata("last_export")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "b", *value)
}
