// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all protoview configuration.
type Config struct {
	Version int `yaml:"version"`

	Capture   CaptureConfig   `yaml:"capture"`
	Analyze   AnalyzeConfig   `yaml:"analyze"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CaptureConfig controls the capture command.
type CaptureConfig struct {
	Interface string `yaml:"interface"` // e.g., "lo", "eth0"
	Dumpcap   string `yaml:"dumpcap"`   // dumpcap binary path, "" = PATH lookup
}

// AnalyzeConfig controls trace analysis.
type AnalyzeConfig struct {
	Tshark               string `yaml:"tshark"` // tshark binary path, "" = PATH lookup
	DisplayBinaryPayload bool   `yaml:"display_binary_payload"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig for optional OTLP export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Capture: CaptureConfig{
			Interface: "lo",
		},
		Analyze: AnalyzeConfig{},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.configPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("config: %s: %w", path, err)
			}
			continue
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// configPaths returns config file paths in priority order.
func (m *Manager) configPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/protoview/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".protoview", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".protoview.yaml"))
	}
	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}
	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	if src.Capture.Interface != "" {
		m.config.Capture.Interface = src.Capture.Interface
	}
	if src.Capture.Dumpcap != "" {
		m.config.Capture.Dumpcap = src.Capture.Dumpcap
	}

	if src.Analyze.Tshark != "" {
		m.config.Analyze.Tshark = src.Analyze.Tshark
	}
	if src.Analyze.DisplayBinaryPayload {
		m.config.Analyze.DisplayBinaryPayload = true
	}

	if src.Watch.Debounce != 0 {
		m.config.Watch.Debounce = src.Watch.Debounce
	}

	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("PROTOVIEW_INTERFACE"); v != "" {
		m.config.Capture.Interface = v
	}
	if v := os.Getenv("PROTOVIEW_DUMPCAP"); v != "" {
		m.config.Capture.Dumpcap = v
	}
	if v := os.Getenv("PROTOVIEW_TSHARK"); v != "" {
		m.config.Analyze.Tshark = v
	}
	if v := os.Getenv("PROTOVIEW_DISPLAY_BINARY_PAYLOAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m.config.Analyze.DisplayBinaryPayload = b
		}
	}
	if v := os.Getenv("PROTOVIEW_TELEMETRY_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	configDir := filepath.Join(home, ".protoview")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager. A config file that fails
// to load is reported once and the defaults (plus whatever merged before the
// failure) are used.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		if err := globalManager.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "protoview: %v (continuing with defaults)\n", err)
		}
	})
	return globalManager
}
