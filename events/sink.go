// Package events carries connection and command notifications from the
// station core to whatever is displaying them.
package events

import (
	"fmt"
	"strings"
	"time"
)

type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

var severityNames = [...]string{"info", "success", "warning", "error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	for i, name := range severityNames {
		if strings.EqualFold(string(b), name) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", b)
}

// Sink receives notifications. Implementations must be safe to call from
// any goroutine.
type Sink interface {
	OnLog(msg string, sev Severity)
	OnStatus(msg string, sev Severity)
	OnConnected(device string)
	OnDisconnected()
	OnAngleConfirmed(angle int)
}

// Event types.
const (
	TypeLog          = "log"
	TypeStatus       = "status"
	TypeConnected    = "connected"
	TypeDisconnected = "disconnected"
	TypeAngle        = "angle"
	TypePorts        = "ports"
)

// Event is the serialized form of a notification.
type Event struct {
	Type     string    `json:"type"`
	Message  string    `json:"message,omitempty"`
	Severity Severity  `json:"severity"`
	Device   string    `json:"device,omitempty"`
	Angle    *int      `json:"angle,omitempty"`
	Ports    []string  `json:"ports,omitempty"`
	Time     time.Time `json:"time"`
}

// Multi fans notifications out to several sinks in order.
type Multi []Sink

func (m Multi) OnLog(msg string, sev Severity) {
	for _, s := range m {
		s.OnLog(msg, sev)
	}
}

func (m Multi) OnStatus(msg string, sev Severity) {
	for _, s := range m {
		s.OnStatus(msg, sev)
	}
}

func (m Multi) OnConnected(device string) {
	for _, s := range m {
		s.OnConnected(device)
	}
}

func (m Multi) OnDisconnected() {
	for _, s := range m {
		s.OnDisconnected()
	}
}

func (m Multi) OnAngleConfirmed(angle int) {
	for _, s := range m {
		s.OnAngleConfirmed(angle)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) OnLog(string, Severity)    {}
func (Discard) OnStatus(string, Severity) {}
func (Discard) OnConnected(string)        {}
func (Discard) OnDisconnected()           {}
func (Discard) OnAngleConfirmed(int)      {}
