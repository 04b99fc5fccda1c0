package report

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// PortOptions describes the UART the direction lines are written to.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

var parityModes = map[string]serial.Parity{
	"N": serial.NoParity,
	"E": serial.EvenParity,
	"O": serial.OddParity,
}

var stopBitModes = map[int]serial.StopBits{
	1: serial.OneStopBit,
	2: serial.TwoStopBits,
}

// WithFraming sets data bits, parity and stop bits from a frame notation
// such as "8N1" or "7E2" and returns the normalized options.
func (o PortOptions) WithFraming(framing string) (PortOptions, error) {
	f := strings.ToUpper(strings.TrimSpace(framing))
	if len(f) != 3 || f[0] < '0' || f[0] > '9' || f[2] < '0' || f[2] > '9' {
		return o, fmt.Errorf("invalid framing %q: expected a form like 8N1", framing)
	}
	o.DataBits = int(f[0] - '0')
	o.Parity = f[1:2]
	o.StopBits = int(f[2] - '0')
	return o.Normalize()
}

// Normalize validates the options and fills defaults for unset values
// (115200 8N1). Parity is reduced to its one-letter form.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = 115200
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	parity := strings.ToUpper(strings.TrimSpace(o.Parity))
	switch parity {
	case "", "NONE":
		parity = "N"
	case "EVEN":
		parity = "E"
	case "ODD":
		parity = "O"
	}

	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if _, ok := stopBitModes[o.StopBits]; !ok {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	if _, ok := parityModes[parity]; !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = parity
	return o, nil
}

// SerialMode converts the options into a go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: stopBitModes[opts.StopBits],
		Parity:   parityModes[opts.Parity],
	}, nil
}

// OpenSerial opens the port at path with opts.
func OpenSerial(path string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return port, nil
}
