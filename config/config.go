// Package config handles node configuration and the immutable consensus
// parameters every component consults.
//
// Configuration is split into two categories:
//   - Protocol rules (Params, genesis): immutable, must match across all nodes
//   - Node settings (Config): runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds node-specific runtime configuration. These settings can vary
// between nodes without breaking consensus — the P2P transport, RPC/wallet
// surface, and operator CLI that would normally also live here are external
// collaborators this core does not implement (spec §1).
type Config struct {
	Network        NetworkType `conf:"network"`
	DataDir        string      `conf:"datadir"`
	PreValidators  int         `conf:"validate.workers"` // 0 = max(1, NumCPU-1)
	Log            LogConfig
	RebuildIndexes bool // maintenance flag, not persisted in config file
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.spacetime-chain
//	macOS:   ~/Library/Application Support/SpacetimeChain
//	Windows: %APPDATA%\SpacetimeChain
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spacetime-chain"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "SpacetimeChain")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "SpacetimeChain")
		}
		return filepath.Join(home, "AppData", "Roaming", "SpacetimeChain")
	default:
		return filepath.Join(home, ".spacetime-chain")
	}
}

// ChainDataDir returns the chain-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// BlocksDir returns the block store's data directory.
func (c *Config) BlocksDir() string {
	return filepath.Join(c.ChainDataDir(), "blocks")
}

// UnspentDir returns the unspent store's data directory.
func (c *Config) UnspentDir() string {
	return filepath.Join(c.ChainDataDir(), "unspent")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "spacetime-chain.conf")
}
