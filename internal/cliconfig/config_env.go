package cliconfig

import (
	"fmt"
	"os"
	"strconv"
)

// ApplyEnvConfig applies configuration from environment variables (MODPOLL_*).
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("mode", os.Getenv("MODPOLL_MODE"), &cfg.Mode)
	s.setString("port", os.Getenv("MODPOLL_PORT"), &cfg.Port)
	s.setString("parity", os.Getenv("MODPOLL_PARITY"), &cfg.Parity)
	s.setString("stop-bits", os.Getenv("MODPOLL_STOP_BITS"), &cfg.StopBits)
	s.setString("address", os.Getenv("MODPOLL_ADDRESS"), &cfg.Address)
	s.setString("requests", os.Getenv("MODPOLL_REQUESTS_FILE"), &cfg.RequestsFile)

	if err := s.setIntFromString("baud", os.Getenv("MODPOLL_BAUD"), &cfg.BaudRate); err != nil {
		return err
	}
	if err := s.setIntFromString("data-bits", os.Getenv("MODPOLL_DATA_BITS"), &cfg.DataBits); err != nil {
		return err
	}
	if err := s.setIntFromString("tcp-port", os.Getenv("MODPOLL_TCP_PORT"), &cfg.TCPPort); err != nil {
		return err
	}
	if err := s.setIntFromString("cycles", os.Getenv("MODPOLL_CYCLES"), &cfg.GlobalCycles); err != nil {
		return err
	}
	if err := s.setIntFromString("history-capacity", os.Getenv("MODPOLL_HISTORY_CAPACITY"), &cfg.HistoryCapacity); err != nil {
		return err
	}

	if err := s.setDuration("timeout", os.Getenv("MODPOLL_TIMEOUT"), &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("MODPOLL_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("MODPOLL_WATCH"), &cfg.Watch)
	s.setBoolFromString("verbose", os.Getenv("MODPOLL_VERBOSE"), &cfg.Verbose)

	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
