package storage

import (
	"fmt"

	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a single file store.
type Manager struct {
	fs       *FileStore
	trades   *tradeStorage
	navCache *navCacheStorage
	logger   *common.Logger
}

// NewManager creates a new StorageManager rooted at the configured path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	fs, err := NewFileStore(logger, &config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}

	logger.Info().Str("path", config.Storage.Path).Msg("Storage manager initialized")

	return &Manager{
		fs:       fs,
		trades:   newTradeStorage(fs, logger),
		navCache: newNAVCacheStorage(fs, logger),
		logger:   logger,
	}, nil
}

func (m *Manager) TradeStore() interfaces.TradeStore {
	return m.trades
}

func (m *Manager) NAVCache() interfaces.NAVCacheStore {
	return m.navCache
}

func (m *Manager) DataPath() string {
	return m.fs.basePath
}

func (m *Manager) WriteRaw(subdir, key string, data []byte) error {
	return m.fs.WriteRaw(subdir, key, data)
}

func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
