package hil

import (
	"fmt"

	"go.bug.st/serial"
)

const DefaultBaud = 115200

// OpenSerial opens a serial port for the HIL link, 8N1 at baud (DefaultBaud
// when zero).
func OpenSerial(port string, baud int) (serial.Port, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("hil: open %s: %w", port, err)
	}
	return p, nil
}

// Ports lists the serial ports present on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
