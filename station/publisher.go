package station

import (
	"fmt"

	"github.com/w1xm/lisat_interface/events"
)

// Sender transmits raw wire commands. *Manager implements it.
type Sender interface {
	SendRaw(p []byte) error
}

// Publisher turns operator input into tilt commands.
type Publisher struct {
	sender Sender
	sink   events.Sink
}

func NewPublisher(sender Sender, sink events.Sink) *Publisher {
	return &Publisher{sender: sender, sink: sink}
}

// Send parses raw, clamps it to [0, 90] and transmits it. Input that is not
// an integer is reported and never reaches the link.
func (p *Publisher) Send(raw string) error {
	angle, err := ParseAngle(raw)
	if err != nil {
		p.sink.OnLog(fmt.Sprintf("Enter integer %d-%d!", MinAngle, MaxAngle), events.Warning)
		return err
	}
	if err := p.sender.SendRaw(FormatAngle(angle)); err != nil {
		return err
	}
	p.sink.OnLog(fmt.Sprintf("Sent angle: %d", angle), events.Info)
	p.sink.OnAngleConfirmed(angle)
	return nil
}
