// Package app wires configuration, storage, clients and services into a
// running Navio instance.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mfreitas/navio/internal/clients/alphavantage"
	"github.com/mfreitas/navio/internal/clients/cryptocompare"
	"github.com/mfreitas/navio/internal/common"
	"github.com/mfreitas/navio/internal/interfaces"
	"github.com/mfreitas/navio/internal/services/nav"
	"github.com/mfreitas/navio/internal/services/position"
	"github.com/mfreitas/navio/internal/storage"
)

// App holds the assembled services and their shared dependencies.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Positions   interfaces.PositionService
	NAV         interfaces.NAVService
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients and services. configPath may be
// empty, in which case NAVIO_CONFIG and the binary directory are tried.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("NAVIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "navio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/navio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory for self-contained
	// operation.
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Clients.AlphaVantage.CachePath != "" && !filepath.IsAbs(config.Clients.AlphaVantage.CachePath) {
		config.Clients.AlphaVantage.CachePath = filepath.Join(binDir, config.Clients.AlphaVantage.CachePath)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.AlphaVantage.APIKey == "" {
		logger.Warn().Msg("Alpha Vantage API key not configured - NAV builds will value tickers at zero")
	}

	spotClient := cryptocompare.NewClient(
		cryptocompare.WithBaseURL(config.Clients.CryptoCompare.BaseURL),
		cryptocompare.WithRateLimit(config.Clients.CryptoCompare.RateLimit),
		cryptocompare.WithTimeout(config.Clients.CryptoCompare.GetTimeout()),
		cryptocompare.WithLogger(logger),
	)

	historicalClient := alphavantage.NewClient(
		config.Clients.AlphaVantage.APIKey,
		alphavantage.WithBaseURL(config.Clients.AlphaVantage.BaseURL),
		alphavantage.WithRateLimit(config.Clients.AlphaVantage.RateLimit),
		alphavantage.WithTimeout(config.Clients.AlphaVantage.GetTimeout()),
		alphavantage.WithCachePath(config.Clients.AlphaVantage.CachePath),
		alphavantage.WithLogger(logger),
	)

	positionService := position.NewService(storageManager, spotClient, config.Engine, logger)
	navService := nav.NewService(storageManager, historicalClient, spotClient, config.Engine, logger)

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Positions:   positionService,
		NAV:         navService,
		StartupTime: time.Now(),
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if err := a.Storage.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to close storage")
	}
}
