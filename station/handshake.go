package station

import (
	"time"

	"github.com/w1xm/lisat_interface/link"
)

// Handshaker decides whether a freshly opened link is the actuator.
type Handshaker interface {
	Handshake(l *link.Link) error
}

type HandshakeFunc func(l *link.Link) error

func (f HandshakeFunc) Handshake(l *link.Link) error {
	return f(l)
}

// NeutralProbe writes the neutral angle command and waits Settle. A device
// that accepts the write is taken to be the actuator; nothing is read back.
type NeutralProbe struct {
	Settle time.Duration
}

func (p NeutralProbe) Handshake(l *link.Link) error {
	if err := l.Write(FormatAngle(0)); err != nil {
		return err
	}
	if p.Settle > 0 {
		time.Sleep(p.Settle)
	}
	return nil
}
