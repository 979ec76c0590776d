package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Mode     string `toml:"mode"`
	Port     string `toml:"port"`
	BaudRate int    `toml:"baud_rate"`
	Parity   string `toml:"parity"`
	StopBits string `toml:"stop_bits"`
	DataBits int    `toml:"data_bits"`

	Address string `toml:"address"`
	TCPPort int    `toml:"tcp_port"`

	Timeout      string `toml:"timeout"`
	Interval     string `toml:"interval"`
	GlobalCycles int    `toml:"cycles"`

	RequestsFile    string `toml:"requests_file"`
	HistoryCapacity int    `toml:"history_capacity"`

	Watch   *bool `toml:"watch"`
	Verbose *bool `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.modpoll/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".modpoll", "config.toml")
	}
	return ""
}

// DefaultRequestsPath returns the default request template file path.
func DefaultRequestsPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".modpoll", "requests.toml")
	}
	return "requests.toml"
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("mode", fc.Mode, &cfg.Mode)
	s.setString("port", fc.Port, &cfg.Port)
	s.setString("parity", fc.Parity, &cfg.Parity)
	s.setString("stop-bits", fc.StopBits, &cfg.StopBits)
	s.setString("address", fc.Address, &cfg.Address)
	s.setString("requests", fc.RequestsFile, &cfg.RequestsFile)

	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setInt("data-bits", fc.DataBits, &cfg.DataBits)
	s.setInt("tcp-port", fc.TCPPort, &cfg.TCPPort)
	s.setInt("cycles", fc.GlobalCycles, &cfg.GlobalCycles)
	s.setInt("history-capacity", fc.HistoryCapacity, &cfg.HistoryCapacity)

	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}

	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
