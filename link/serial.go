package link

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// TarmOpener opens devices with github.com/tarm/serial, 8N1.
type TarmOpener struct{}

func (TarmOpener) Open(device string, cfg Config) (io.ReadWriteCloser, error) {
	c := &serial.Config{
		Name:        device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BugstOpener opens devices with go.bug.st/serial, 8N1.
type BugstOpener struct{}

func (BugstOpener) Open(device string, cfg Config) (io.ReadWriteCloser, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, err
	}
	if cfg.ReadTimeout > 0 {
		if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return p, nil
}

// NewOpener returns the Opener for a driver name.
func NewOpener(driver string) (Opener, error) {
	switch driver {
	case "", "tarm":
		return TarmOpener{}, nil
	case "bugst":
		return BugstOpener{}, nil
	}
	return nil, fmt.Errorf("unknown serial driver %q", driver)
}
