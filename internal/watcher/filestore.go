package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"controladoria/internal"
	"controladoria/internal/contracts"
	"controladoria/internal/storage"
)

type FileStore struct {
	db     *storage.DB
	rawDir string
}

func NewFileStore(db *storage.DB, rawDir string) *FileStore {
	return &FileStore{db: db, rawDir: rawDir}
}

// Store copies an import file into the raw directory under its content hash
// and registers it. The bool reports whether the content was new.
func (s *FileStore) Store(path string) (internal.ImportRow, bool, error) {
	source, err := contracts.SourceFromPath(path)
	if err != nil {
		return internal.ImportRow{}, false, err
	}
	return s.StoreAs(path, source)
}

func (s *FileStore) StoreAs(path string, source internal.ImportSource) (internal.ImportRow, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return internal.ImportRow{}, false, err
	}
	hashBytes := sha256.Sum256(raw)
	hash := hex.EncodeToString(hashBytes[:])

	existing, err := s.db.GetImportByHash(hash)
	if err != nil {
		return internal.ImportRow{}, false, err
	}

	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return internal.ImportRow{}, false, err
	}

	rawPath := filepath.Join(s.rawDir, hash+"."+string(source))
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, raw, 0o644); err != nil {
			return internal.ImportRow{}, false, fmt.Errorf("store %s: %w", path, err)
		}
	}

	row, err := s.db.UpsertImport(filepath.Base(path), string(source), hash, rawPath, internal.ImportStored)
	if err != nil {
		return internal.ImportRow{}, false, err
	}
	return row, existing == nil, nil
}

func isImportCandidate(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	_, err := contracts.SourceFromPath(name)
	return err == nil
}
