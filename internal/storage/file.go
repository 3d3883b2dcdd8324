// Package storage provides file-based JSON persistence for trade ledgers
// and computed NAV series.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/models"
)

// FileStore provides file-based JSON storage under a base path.
type FileStore struct {
	basePath string
	logger   *common.Logger
}

// subdirectories defines the directory layout under basePath.
var subdirectories = []string{
	"trades", "nav", "history", "charts",
}

// NewFileStore creates a new FileStore and ensures all subdirectories exist.
func NewFileStore(logger *common.Logger, config *common.StorageConfig) (*FileStore, error) {
	fs := &FileStore{
		basePath: config.Path,
		logger:   logger,
	}

	for _, sub := range subdirectories {
		dir := filepath.Join(fs.basePath, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger.Debug().Str("path", config.Path).Msg("FileStore opened")
	return fs, nil
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
func (fs *FileStore) sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

// filePath returns the full path for a key in a directory.
func (fs *FileStore) filePath(dir, key string) string {
	return filepath.Join(dir, fs.sanitizeKey(key)+".json")
}

// readJSON reads and unmarshals a JSON file.
func (fs *FileStore) readJSON(dir, key string, dest interface{}) error {
	path := fs.filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s' not found", key)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically:
// a temp file in the same directory followed by a rename, so concurrent
// readers only ever see a complete document.
func (fs *FileStore) writeJSON(dir, key string, data interface{}) error {
	target := fs.filePath(dir, key)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// deleteJSON removes a JSON file. Missing files are not an error.
func (fs *FileStore) deleteJSON(dir, key string) error {
	path := fs.filePath(dir, key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// WriteRaw writes arbitrary binary data (chart PNGs, exports) atomically.
func (fs *FileStore) WriteRaw(subdir, key string, data []byte) error {
	dir := filepath.Join(fs.basePath, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, fs.sanitizeKey(key))
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// --- Trade ledger ---

// tradeStorage keeps each user's trades in a single JSON file, in the
// order they were recorded.
type tradeStorage struct {
	fs     *FileStore
	logger *common.Logger
}

func newTradeStorage(fs *FileStore, logger *common.Logger) *tradeStorage {
	return &tradeStorage{fs: fs, logger: logger}
}

func (s *tradeStorage) dir() string {
	return filepath.Join(s.fs.basePath, "trades")
}

func (s *tradeStorage) ListTrades(ctx context.Context, userID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	if err := s.fs.readJSON(s.dir(), userID, &trades); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return []*models.Trade{}, nil
		}
		return nil, err
	}
	return trades, nil
}

func (s *tradeStorage) SaveTrades(ctx context.Context, userID string, trades []*models.Trade) error {
	existing, err := s.ListTrades(ctx, userID)
	if err != nil {
		return err
	}
	existing = append(existing, trades...)
	if err := s.fs.writeJSON(s.dir(), userID, existing); err != nil {
		return err
	}
	s.logger.Debug().Str("user", userID).Int("appended", len(trades)).Int("total", len(existing)).Msg("Trades saved")
	return nil
}

func (s *tradeStorage) DeleteTrades(ctx context.Context, userID string) (int, error) {
	existing, err := s.ListTrades(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.fs.deleteJSON(s.dir(), userID); err != nil {
		return 0, err
	}
	return len(existing), nil
}

// --- NAV cache ---

// navCacheStorage memoizes computed NAV series, one file per user. The
// filename is a digest of the user id so account names never leak into
// the directory listing.
type navCacheStorage struct {
	fs     *FileStore
	logger *common.Logger
}

func newNAVCacheStorage(fs *FileStore, logger *common.Logger) *navCacheStorage {
	return &navCacheStorage{fs: fs, logger: logger}
}

func (s *navCacheStorage) dir() string {
	return filepath.Join(s.fs.basePath, "nav")
}

func cacheKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

func (s *navCacheStorage) Get(ctx context.Context, userID string) (*models.NAVSeries, error) {
	var series models.NAVSeries
	if err := s.fs.readJSON(s.dir(), cacheKey(userID), &series); err != nil {
		// Missing and corrupt entries both degrade to a miss so the
		// caller falls back to a full recompute.
		return nil, models.ErrCacheMiss
	}
	if series.GeneratedAt.IsZero() || len(series.Rows) == 0 {
		return nil, models.ErrCacheMiss
	}
	return &series, nil
}

func (s *navCacheStorage) Put(ctx context.Context, series *models.NAVSeries) error {
	if err := s.fs.writeJSON(s.dir(), cacheKey(series.UserID), series); err != nil {
		return err
	}
	s.logger.Debug().Str("user", series.UserID).Int("rows", len(series.Rows)).Msg("NAV series cached")
	return nil
}

func (s *navCacheStorage) Invalidate(ctx context.Context, userID string) error {
	return s.fs.deleteJSON(s.dir(), cacheKey(userID))
}
