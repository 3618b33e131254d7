package station

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/w1xm/lisat_interface/events"
	"github.com/w1xm/lisat_interface/link"
	"github.com/w1xm/lisat_interface/ports"
)

type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Manager owns the single actuator link. Every operation that can change
// the connection state holds mu for its whole duration, so connects,
// sends, monitor probes and disconnects never interleave. Notifications
// are emitted while mu is held, which keeps them in state order.
type Manager struct {
	opener    link.Opener
	lister    ports.Lister
	sink      events.Sink
	handshake Handshaker
	cfg       link.Config
	log       zerolog.Logger

	mu   sync.Mutex
	link *link.Link
}

type Option func(*Manager)

func WithLinkConfig(cfg link.Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

func WithHandshaker(h Handshaker) Option {
	return func(m *Manager) { m.handshake = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(opener link.Opener, lister ports.Lister, sink events.Sink, opts ...Option) *Manager {
	m := &Manager{
		opener:    opener,
		lister:    lister,
		sink:      sink,
		handshake: NeutralProbe{Settle: 200 * time.Millisecond},
		cfg:       link.DefaultConfig(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("component", "manager").Logger()
	return m
}

// State returns the connection state and, when connected, the device.
func (m *Manager) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.link == nil {
		return Disconnected, ""
	}
	return Connected, m.link.Device()
}

// Candidates enumerates the devices auto-connect would try.
func (m *Manager) Candidates() []string {
	return m.lister.List()
}

// ConnectManual opens device directly, replacing any held link.
func (m *Manager) ConnectManual(device string) error {
	if device == "" {
		m.sink.OnLog("No COM port selected.", events.Warning)
		return ErrNoDevice
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()

	l, err := link.Open(m.opener, device, m.cfg)
	if err != nil {
		m.log.Warn().Err(err).Str("device", device).Msg("manual connect failed")
		m.sink.OnLog(fmt.Sprintf("Failed to connect to %s: %v", device, cause(err)), events.Error)
		m.sink.OnStatus("Manual connect failed", events.Error)
		return err
	}
	m.attachLocked(l, "Manually connected to "+device)
	return nil
}

// ConnectAuto tries each enumerated device in order and keeps the first
// one that opens and passes the handshake.
func (m *Manager) ConnectAuto() error {
	candidates := m.lister.List()
	if len(candidates) == 0 {
		m.sink.OnLog("No COM ports found.", events.Warning)
		return ErrNoCandidates
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()

	m.sink.OnLog("Attempting auto-connect...", events.Info)
	for _, device := range candidates {
		l, err := link.Open(m.opener, device, m.cfg)
		if err == nil {
			if err = m.handshake.Handshake(l); err != nil {
				l.Close()
			}
		}
		if err != nil {
			m.log.Debug().Err(err).Str("device", device).Msg("candidate rejected")
			m.sink.OnLog(fmt.Sprintf("%s failed: %v", device, cause(err)), events.Error)
			continue
		}
		m.attachLocked(l, "Auto-connected to "+device)
		return nil
	}

	m.log.Warn().Strs("candidates", candidates).Msg("auto-connect failed")
	m.sink.OnStatus("Auto-connect failed", events.Error)
	m.sink.OnLog("None of the ports responded. Use manual option.", events.Warning)
	return ErrNoResponse
}

// Tick probes the held link and drops it if the probe fails. It does
// nothing while disconnected.
func (m *Manager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.link == nil {
		return
	}
	if err := m.link.Probe(); err != nil {
		m.log.Warn().Err(err).Str("device", m.link.Device()).Msg("probe failed")
		m.disconnectLocked("Connection lost.")
		m.sink.OnLog(fmt.Sprintf("Disconnected: %v", cause(err)), events.Error)
	}
}

// Monitor calls Tick every interval until ctx is done.
func (m *Manager) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// HandleDisconnect drops a lost link. It is a no-op when disconnected.
func (m *Manager) HandleDisconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked("Connection lost.")
}

// Disconnect closes the link at the operator's request.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.link == nil {
		return
	}
	m.disconnectLocked("Disconnected from " + m.link.Device() + ".")
}

// SendRaw writes p to the held link. A failed write drops the link; it is
// not retried.
func (m *Manager) SendRaw(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.link == nil {
		m.sink.OnLog("Not connected!", events.Warning)
		return ErrNotConnected
	}
	if err := m.link.Write(p); err != nil {
		m.log.Warn().Err(err).Str("device", m.link.Device()).Msg("write failed")
		m.sink.OnLog(fmt.Sprintf("Send error: %v", cause(err)), events.Error)
		m.disconnectLocked("Connection lost.")
		return err
	}
	m.log.Debug().Str("device", m.link.Device()).Bytes("data", p).Msg("sent")
	return nil
}

// Close releases the link at shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *Manager) attachLocked(l *link.Link, msg string) {
	m.link = l
	m.log.Info().Str("device", l.Device()).Msg("connected")
	m.sink.OnConnected(l.Device())
	m.sink.OnStatus("Connected to "+l.Device(), events.Success)
	m.sink.OnLog(msg, events.Success)
}

// releaseLocked closes a held link without reporting it as lost.
func (m *Manager) releaseLocked() {
	if m.link == nil {
		return
	}
	device := m.link.Device()
	if err := m.link.Close(); err != nil {
		m.log.Debug().Err(err).Str("device", device).Msg("close")
	}
	m.link = nil
	m.sink.OnDisconnected()
	m.sink.OnLog("Released "+device+".", events.Info)
}

func (m *Manager) disconnectLocked(msg string) {
	if m.link == nil {
		return
	}
	device := m.link.Device()
	if err := m.link.Close(); err != nil {
		m.log.Debug().Err(err).Str("device", device).Msg("close")
	}
	m.link = nil
	m.log.Info().Str("device", device).Msg("disconnected")
	m.sink.OnStatus("Disconnected", events.Error)
	m.sink.OnLog(msg, events.Error)
	m.sink.OnDisconnected()
}
