// Package config holds the collabd daemon configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Config is the daemon configuration, loaded from a JSON file with every
// field optional; missing fields fall back to defaults.
type Config struct {
	// ListenAddr is the host:port the gateway binds to.
	ListenAddr string `json:"listen_addr"`

	// DBPath is the sqlite database backing the directory service.
	DBPath string `json:"db_path"`

	// PidfilePath guards against a second daemon instance.
	PidfilePath string `json:"pidfile_path"`

	// LockTTLMinutes is the lifetime of a file lock from acquisition.
	LockTTLMinutes int `json:"lock_ttl_minutes"`

	// SweepIntervalSeconds is how often expired locks are evicted.
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`

	// SendBuffer is the per-connection outbound queue length. When a
	// client's queue is full, further messages to it are dropped.
	SendBuffer int `json:"send_buffer"`

	LogLevel string `json:"log_level"`
	LogPath  string `json:"log_path"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "collabd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "collabd")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "collabd")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "collabd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "collabd")
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "collabd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "collabd")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		ListenAddr:           "localhost:8940",
		DBPath:               filepath.Join(stateDir, "directory.db"),
		PidfilePath:          filepath.Join(stateDir, "collabd.pid"),
		LockTTLMinutes:       30,
		SweepIntervalSeconds: 60,
		SendBuffer:           256,
		LogLevel:             "info",
		LogPath:              filepath.Join(stateDir, "collabd.log"),
	}
}

// Load loads configuration from file. A missing file yields the defaults;
// a present file overrides only the fields it sets.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Re-fill anything the file blanked out.
	defaults := DefaultConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaults.DBPath
	}
	if cfg.PidfilePath == "" {
		cfg.PidfilePath = defaults.PidfilePath
	}
	if cfg.LockTTLMinutes <= 0 {
		cfg.LockTTLMinutes = defaults.LockTTLMinutes
	}
	if cfg.SweepIntervalSeconds <= 0 {
		cfg.SweepIntervalSeconds = defaults.SweepIntervalSeconds
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	return cfg, nil
}

// Save writes the configuration as indented JSON
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
