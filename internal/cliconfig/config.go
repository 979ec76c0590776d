// Package cliconfig holds the command-line configuration for modpoll: the
// flag set, its file and environment overlays, and validation.
package cliconfig

import (
	"fmt"
	"time"

	"github.com/mbtools/modpoll/internal/ports"
)

// DefaultTCPPort is the registered Modbus TCP port.
const DefaultTCPPort = 502

// Config holds CLI configuration for modpoll.
type Config struct {
	Mode string

	Port     string
	BaudRate int
	Parity   string
	StopBits string
	DataBits int

	Address string
	TCPPort int

	Timeout      time.Duration
	Interval     time.Duration
	GlobalCycles int

	RequestsFile    string
	SettingsFile    string
	HistoryCapacity int

	Watch   bool
	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Mode:            string(ports.ModeSerial),
		BaudRate:        9600,
		Parity:          string(ports.ParityNone),
		StopBits:        string(ports.StopBitsOne),
		DataBits:        8,
		TCPPort:         DefaultTCPPort,
		Timeout:         time.Second,
		Interval:        time.Second,
		HistoryCapacity: 1000,
		RequestsFile:    DefaultRequestsPath(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch ports.Mode(c.Mode) {
	case ports.ModeSerial:
		if c.Port == "" {
			return fmt.Errorf("port is required in serial mode")
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("baud rate must be positive")
		}
		if c.DataBits != 7 && c.DataBits != 8 {
			return fmt.Errorf("data bits must be 7 or 8")
		}
		switch ports.Parity(c.Parity) {
		case ports.ParityNone, ports.ParityEven, ports.ParityOdd:
		default:
			return fmt.Errorf("parity must be N, E or O")
		}
		switch ports.StopBits(c.StopBits) {
		case ports.StopBitsOne, ports.StopBitsOnePointFive, ports.StopBitsTwo:
		default:
			return fmt.Errorf("stop bits must be 1, 1.5 or 2")
		}
	case ports.ModeTCP:
		if c.Address == "" {
			return fmt.Errorf("address is required in tcp mode")
		}
		if c.TCPPort <= 0 || c.TCPPort > 65535 {
			return fmt.Errorf("tcp port out of range")
		}
	default:
		return fmt.Errorf("mode must be serial or tcp")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if c.GlobalCycles < 0 {
		return fmt.Errorf("cycles must not be negative")
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive")
	}

	return nil
}

// ToConnectionConfig maps the CLI fields onto a transport configuration.
func (c *Config) ToConnectionConfig() ports.ConnectionConfig {
	return ports.ConnectionConfig{
		Mode:     ports.Mode(c.Mode),
		Port:     c.Port,
		BaudRate: c.BaudRate,
		Parity:   ports.Parity(c.Parity),
		StopBits: ports.StopBits(c.StopBits),
		DataBits: c.DataBits,
		Address:  c.Address,
		TCPPort:  c.TCPPort,
		Timeout:  c.Timeout,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
