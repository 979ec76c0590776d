package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbtools/modpoll/pkg/modpoll"
)

// newPortsCommand builds the serial port listing subcommand.
func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports present on the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := modpoll.ListSerialPorts()
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}
			if len(found) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}
			for _, p := range found {
				line := p.Name
				if p.Description != "" {
					line += "  " + p.Description
				}
				if p.VID != "" || p.PID != "" {
					line += fmt.Sprintf("  [%s:%s]", p.VID, p.PID)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
