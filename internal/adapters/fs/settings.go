// Package fs persists connection settings and request templates as TOML
// files, and watches the request file for external edits.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/mbtools/modpoll/internal/ports"
)

// fileSettings mirrors ports.ConnectionConfig but uses strings for durations
// to make TOML friendly.
type fileSettings struct {
	Mode     string `toml:"mode"`
	Port     string `toml:"port"`
	BaudRate int    `toml:"baud_rate"`
	Parity   string `toml:"parity"`
	StopBits string `toml:"stop_bits"`
	DataBits int    `toml:"data_bits"`
	Address  string `toml:"address"`
	TCPPort  int    `toml:"tcp_port"`
	Timeout  string `toml:"timeout"`
}

// SettingsFile implements ports.SettingsStore on one TOML file.
type SettingsFile struct {
	path string
}

// NewSettingsFile creates a store backed by the file at path.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// Path returns the backing file path.
func (s *SettingsFile) Path() string { return s.path }

// LoadSettings reads and parses the settings file.
func (s *SettingsFile) LoadSettings() (ports.ConnectionConfig, error) {
	var cfg ports.ConnectionConfig

	b, err := os.ReadFile(s.path)
	if err != nil {
		return cfg, err
	}
	var fc fileSettings
	if err := toml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", s.path, err)
	}

	cfg.Mode = ports.Mode(fc.Mode)
	cfg.Port = fc.Port
	cfg.BaudRate = fc.BaudRate
	cfg.Parity = ports.Parity(fc.Parity)
	cfg.StopBits = ports.StopBits(fc.StopBits)
	cfg.DataBits = fc.DataBits
	cfg.Address = fc.Address
	cfg.TCPPort = fc.TCPPort
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: timeout: %w", s.path, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// SaveSettings writes the settings file atomically.
func (s *SettingsFile) SaveSettings(cfg ports.ConnectionConfig) error {
	fc := fileSettings{
		Mode:     string(cfg.Mode),
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Parity:   string(cfg.Parity),
		StopBits: string(cfg.StopBits),
		DataBits: cfg.DataBits,
		Address:  cfg.Address,
		TCPPort:  cfg.TCPPort,
	}
	if cfg.Timeout > 0 {
		fc.Timeout = cfg.Timeout.String()
	}

	b, err := toml.Marshal(fc)
	if err != nil {
		return err
	}
	return writeAtomic(s.path, b)
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
