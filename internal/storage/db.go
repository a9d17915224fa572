package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"controladoria/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS imports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  source TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'stored',
  rawRef TEXT NOT NULL,
  lastError TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_imports_status ON imports(status);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  importId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  source TEXT NOT NULL,
  externalId TEXT,
  fieldsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(importId, lineNo),
  FOREIGN KEY(importId) REFERENCES imports(id)
);

CREATE TABLE IF NOT EXISTS summaries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  importId INTEGER NOT NULL,
  recordId INTEGER NOT NULL UNIQUE,
  lineNo INTEGER NOT NULL,
  contractId TEXT NOT NULL,
  clientName TEXT NOT NULL,
  partnerName TEXT NOT NULL,
  status TEXT NOT NULL,
  proLabore REAL NOT NULL,
  success REAL NOT NULL,
  monthly REAL NOT NULL,
  entryDate TEXT NOT NULL,
  entryFromFallback INTEGER NOT NULL,
  entryMonth TEXT NOT NULL,
  prospectDate TEXT,
  proposalDate TEXT,
  contractDate TEXT,
  rejectionDate TEXT,
  probonoDate TEXT,
  physicalSignature INTEGER NOT NULL DEFAULT 0,
  malformedJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(importId) REFERENCES imports(id),
  FOREIGN KEY(recordId) REFERENCES records(id)
);
CREATE INDEX IF NOT EXISTS idx_summaries_entryMonth ON summaries(entryMonth);

CREATE TABLE IF NOT EXISTS installments (
  id TEXT PRIMARY KEY,
  importId INTEGER NOT NULL,
  contractId TEXT NOT NULL,
  type TEXT NOT NULL,
  installmentNumber INTEGER NOT NULL,
  totalInstallments INTEGER NOT NULL,
  amount REAL NOT NULL,
  dueDate TEXT NOT NULL,
  clause TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(importId) REFERENCES imports(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  importId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(importId) REFERENCES imports(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const importColumns = `id, name, source, hash, status, rawRef, lastError, createdAt`

type scanner interface {
	Scan(dest ...any) error
}

func scanImport(s scanner) (internal.ImportRow, error) {
	var row internal.ImportRow
	err := s.Scan(&row.ID, &row.Name, &row.Source, &row.Hash, &row.Status, &row.RawRef, &row.LastError, &row.CreatedAt)
	return row, err
}

// UpsertImport registers a stored file. A file seen before (same hash) keeps
// its id and status.
func (d *DB) UpsertImport(name, source, hash, rawRef, status string) (internal.ImportRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO imports (name, source, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
  name=excluded.name,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, name, source, hash, status, rawRef)
	if err != nil {
		return internal.ImportRow{}, err
	}

	row, err := d.GetImportByHash(hash)
	if err != nil {
		return internal.ImportRow{}, err
	}
	if row == nil {
		return internal.ImportRow{}, errors.New("failed to upsert import")
	}
	return *row, nil
}

func (d *DB) GetImportByHash(hash string) (*internal.ImportRow, error) {
	row, err := scanImport(d.conn.QueryRow(`SELECT `+importColumns+` FROM imports WHERE hash = ?`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetImportByID(id int) (*internal.ImportRow, error) {
	row, err := scanImport(d.conn.QueryRow(`SELECT `+importColumns+` FROM imports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListImportsByStatus(status string, limit int) ([]internal.ImportRow, error) {
	rows, err := d.conn.Query(`SELECT `+importColumns+` FROM imports WHERE status = ? ORDER BY id ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ImportRow
	for rows.Next() {
		row, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateImportStatus(importID int, status string) error {
	_, err := d.conn.Exec(`UPDATE imports SET status = ?, lastError = NULL, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, importID)
	return err
}

func (d *DB) MarkImportFailed(importID int, reason string) error {
	_, err := d.conn.Exec(`UPDATE imports SET status = ?, lastError = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, internal.ImportFailed, reason, importID)
	return err
}

func (d *DB) ClearImportProcessing(importID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM installments WHERE importId = ?`,
		`DELETE FROM summaries WHERE importId = ?`,
		`DELETE FROM records WHERE importId = ?`,
	} {
		if _, err := tx.Exec(stmt, importID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertRecord(importID int, rec internal.RawRecord) (int64, error) {
	fieldsJSON := rec.RawJSON
	if fieldsJSON == "" {
		blob, err := json.Marshal(rec.Fields)
		if err != nil {
			return 0, fmt.Errorf("encode record %d: %w", rec.LineNo, err)
		}
		fieldsJSON = string(blob)
	}
	result, err := d.conn.Exec(`
INSERT INTO records (importId, lineNo, source, externalId, fieldsJson)
VALUES (?, ?, ?, ?, ?)
`, importID, rec.LineNo, string(rec.Source), rec.ExternalID, fieldsJSON)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListRecords returns stored records with numbers kept as json.Number, the
// way they were imported.
func (d *DB) ListRecords(importID int) ([]internal.RawRecord, error) {
	rows, err := d.conn.Query(`
SELECT lineNo, source, externalId, fieldsJson
FROM records WHERE importId = ? ORDER BY lineNo ASC
`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RawRecord
	for rows.Next() {
		var rec internal.RawRecord
		var source string
		if err := rows.Scan(&rec.LineNo, &source, &rec.ExternalID, &rec.RawJSON); err != nil {
			return nil, err
		}
		rec.Source = internal.ImportSource(source)
		dec := json.NewDecoder(bytes.NewReader([]byte(rec.RawJSON)))
		dec.UseNumber()
		if err := dec.Decode(&rec.Fields); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", rec.LineNo, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) InsertSummary(importID int, recordID int64, s internal.ContractSummary) error {
	malformed := s.MalformedFields
	if malformed == nil {
		malformed = []string{}
	}
	malformedJSON, _ := json.Marshal(malformed)
	_, err := d.conn.Exec(`
INSERT INTO summaries (
  importId, recordId, lineNo, contractId, clientName, partnerName, status,
  proLabore, success, monthly, entryDate, entryFromFallback, entryMonth,
  prospectDate, proposalDate, contractDate, rejectionDate, probonoDate,
  physicalSignature, malformedJson
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, importID, recordID, s.LineNo, s.ContractID, s.ClientName, s.PartnerName, string(s.Status),
		s.ProLabore, s.Success, s.Monthly, s.EntryDate.Format(time.RFC3339), s.EntryFromFallback, s.EntryMonth,
		s.ProspectDate, s.ProposalDate, s.ContractDate, s.RejectionDate, s.ProbonoDate,
		s.PhysicalSignature, string(malformedJSON))
	return err
}

func (d *DB) InsertInstallments(importID int, items []internal.Installment) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO installments (
  id, importId, contractId, type, installmentNumber, totalInstallments,
  amount, dueDate, clause, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.Exec(
			it.ID, importID, it.ContractID, it.Type, it.InstallmentNumber, it.TotalInstallments,
			it.Amount, it.DueDate, it.Clause, it.Status,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertRun(traceID string, importID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, importId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, importID, string(timingsJSON), string(countsJSON))
	return err
}

type RunRow struct {
	TraceID   string
	ImportID  int
	Timings   map[string]float64
	Counts    map[string]int
	CreatedAt string
}

func (d *DB) ListRuns(importID int) ([]RunRow, error) {
	rows, err := d.conn.Query(`
SELECT traceId, importId, timingsJson, countsJson, createdAt
FROM runs WHERE importId = ? ORDER BY id ASC
`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.TraceID, &row.ImportID, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) GetExportRows(importID int) ([]internal.ContractSummary, error) {
	rows, err := d.conn.Query(`
SELECT
  lineNo, contractId, clientName, partnerName, status,
  proLabore, success, monthly, entryDate, entryFromFallback, entryMonth,
  prospectDate, proposalDate, contractDate, rejectionDate, probonoDate,
  physicalSignature, malformedJson
FROM summaries
WHERE importId = ?
ORDER BY lineNo ASC
`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ContractSummary
	for rows.Next() {
		var row internal.ContractSummary
		var status, entryDate, malformedJSON string
		if err := rows.Scan(
			&row.LineNo, &row.ContractID, &row.ClientName, &row.PartnerName, &status,
			&row.ProLabore, &row.Success, &row.Monthly, &entryDate, &row.EntryFromFallback, &row.EntryMonth,
			&row.ProspectDate, &row.ProposalDate, &row.ContractDate, &row.RejectionDate, &row.ProbonoDate,
			&row.PhysicalSignature, &malformedJSON,
		); err != nil {
			return nil, err
		}
		row.Status = internal.ContractStatus(status)
		row.EntryDate, err = time.Parse(time.RFC3339, entryDate)
		if err != nil {
			return nil, fmt.Errorf("summary line %d: bad entry date %q: %w", row.LineNo, entryDate, err)
		}
		_ = json.Unmarshal([]byte(malformedJSON), &row.MalformedFields)
		out = append(out, row)
	}

	return out, rows.Err()
}

func (d *DB) GetExportInstallments(importID int) ([]internal.Installment, error) {
	rows, err := d.conn.Query(`
SELECT id, contractId, type, installmentNumber, totalInstallments, amount, dueDate, clause, status
FROM installments
WHERE importId = ?
ORDER BY contractId ASC, dueDate ASC, type ASC, installmentNumber ASC
`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Installment
	for rows.Next() {
		var it internal.Installment
		if err := rows.Scan(&it.ID, &it.ContractID, &it.Type, &it.InstallmentNumber, &it.TotalInstallments, &it.Amount, &it.DueDate, &it.Clause, &it.Status); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) MustImportByID(id int) (internal.ImportRow, error) {
	row, err := d.GetImportByID(id)
	if err != nil {
		return internal.ImportRow{}, err
	}
	if row == nil {
		return internal.ImportRow{}, fmt.Errorf("import not found: id=%d", id)
	}
	return *row, nil
}
