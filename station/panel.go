package station

import (
	"context"
	"fmt"
	"time"

	"github.com/w1xm/lisat_interface/events"
	"golang.org/x/sync/errgroup"
)

// PanelConfig sizes the background execution behind a Panel.
type PanelConfig struct {
	Workers         int
	QueueSize       int
	MonitorInterval time.Duration
}

// Panel is the non-blocking entry point for a display: each request is
// queued for a worker and its outcome arrives through the Sink.
type Panel struct {
	m        *Manager
	pub      *Publisher
	d        *Dispatcher
	sink     events.Sink
	interval time.Duration
}

func NewPanel(m *Manager, cfg PanelConfig) *Panel {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = time.Second
	}
	return &Panel{
		m:        m,
		pub:      NewPublisher(m, m.sink),
		d:        NewDispatcher(cfg.Workers, cfg.QueueSize),
		sink:     m.sink,
		interval: cfg.MonitorInterval,
	}
}

func (p *Panel) submit(op string, fn func()) error {
	if err := p.d.Submit(fn); err != nil {
		p.sink.OnLog(fmt.Sprintf("Busy; %s request dropped.", op), events.Warning)
		return err
	}
	return nil
}

func (p *Panel) Connect(device string) error {
	return p.submit("connect", func() { p.m.ConnectManual(device) })
}

func (p *Panel) AutoConnect() error {
	return p.submit("auto-connect", func() { p.m.ConnectAuto() })
}

func (p *Panel) Disconnect() error {
	return p.submit("disconnect", func() { p.m.Disconnect() })
}

func (p *Panel) SendAngle(raw string) error {
	return p.submit("send", func() { p.pub.Send(raw) })
}

// Ports enumerates candidate devices synchronously.
func (p *Panel) Ports() []string {
	return p.m.Candidates()
}

func (p *Panel) State() (State, string) {
	return p.m.State()
}

// Run drives the workers and the monitor timer until ctx is done, then
// releases the link.
func (p *Panel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.d.Run(ctx)
	})
	g.Go(func() error {
		p.m.Monitor(ctx, p.interval)
		return nil
	})
	err := g.Wait()
	p.m.Close()
	return err
}
