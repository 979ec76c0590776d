package serialport

import (
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes one detected serial port.
type PortInfo struct {
	Name        string
	Description string
	VID         string
	PID         string
}

// ListPorts returns the serial ports present on the system with USB details
// where available.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var result []PortInfo
	for _, port := range details {
		result = append(result, PortInfo{
			Name:        port.Name,
			Description: port.Product,
			VID:         port.VID,
			PID:         port.PID,
		})
	}
	return result, nil
}

// ValidatePort reports whether name is one of the system's serial ports.
func ValidatePort(name string) bool {
	names, err := serial.GetPortsList()
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
